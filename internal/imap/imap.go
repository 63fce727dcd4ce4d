// Copyright 2021 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package imap implements a map from disjoint address intervals to
// values.
package imap

// Imap maps disjoint intervals of addresses to values. Inserting an
// interval replaces whatever was mapped over that interval before,
// so callers that insert in increasing priority order end up with the
// highest priority value at every address.
//
// The zero value is an empty map.
type Imap[V comparable] struct {
	tree avlTree[V]
}

type avlNode[V comparable] struct {
	key         uint64 // Interval low
	left, right *avlNode[V]
	parent      *avlNode[V]
	heightCache int

	high  uint64
	value V
}

func (n *avlNode[V]) interval() Interval {
	return Interval{n.key, n.high}
}

// Insert maps every address in key to value, replacing any existing
// mappings in that range. Adjacent intervals with equal values are
// merged.
func (m *Imap[V]) Insert(key Interval, value V) {
	if key.Empty() {
		return
	}
	low, high := key.Low, key.High

	// Find the node that overlaps or just abuts the new range. If an
	// existing range abuts the new range, we may extend it.
	n := m.tree.Search(func(n *avlNode[V]) bool {
		return low <= n.high
	})
	pred := n

	// Trim or split intervals that intersect [low, high) and delete
	// the ones it covers entirely.
	for n != nil && n.key < high {
		// Fetch the next node in case we delete this node.
		nNext := n.Next()

		l, h := n.interval().Subtract(key)
		lok, hok := !l.Empty(), !h.Empty()
		if lok && !hok {
			// n overlaps the low end. Order doesn't change.
			n.high = l.High
		} else if !lok && hok {
			// n overlaps the high end. Order doesn't change.
			n.key = h.Low
			break
		} else if lok && hok {
			// The new interval falls in the middle of n.
			if n.value == value {
				return
			}
			n.high = l.High
			n2 := m.tree.Insert(h.Low)
			n2.high, n2.value = h.High, n.value
			n = n2
			break
		} else {
			m.tree.Delete(n)
		}

		n = nNext
	}

	// Merge with neighbors if possible.
	if pred != nil && pred.high == low && pred.value == value {
		pred.high = high
		if n != nil && n.key == high && n.value == value {
			pred.high = n.high
			m.tree.Delete(n)
		}
		return
	}
	if n != nil && n.key == high && n.value == value {
		n.key = low
		return
	}

	n = m.tree.Insert(low)
	n.high, n.value = high, value
}

// Find returns the value mapped at addr and the maximal interval
// around addr over which that value is mapped. If nothing is mapped at
// addr, ok is false.
func (m *Imap[V]) Find(addr uint64) (key Interval, value V, ok bool) {
	n := m.tree.Search(func(n *avlNode[V]) bool {
		return addr < n.high
	})
	if n != nil && n.key <= addr {
		return n.interval(), n.value, true
	}
	return Interval{}, value, false
}

// Len returns the number of disjoint intervals in m.
func (m *Imap[V]) Len() int {
	count := 0
	for it := m.Iter(0); it.Valid(); it.Next() {
		count++
	}
	return count
}
