// Copyright 2021 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package imap

// An Iter iterates over the intervals of an Imap in address order.
type Iter[V comparable] struct {
	n *avlNode[V]
}

// Iter returns an iterator positioned on the interval containing addr
// or the lowest interval following addr.
func (m *Imap[V]) Iter(addr uint64) Iter[V] {
	n := m.tree.Search(func(n *avlNode[V]) bool {
		return addr < n.high
	})
	return Iter[V]{n}
}

func (i *Iter[V]) Valid() bool {
	return i.n != nil
}

func (i *Iter[V]) Key() Interval {
	if i.n == nil {
		panic("iterator not valid")
	}
	return i.n.interval()
}

func (i *Iter[V]) Value() V {
	if i.n == nil {
		panic("iterator not valid")
	}
	return i.n.value
}

func (i *Iter[V]) Next() {
	if i.n == nil {
		panic("iterator out of bounds")
	}
	i.n = i.n.Next()
}
