// Copyright 2021 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package symname synthesizes unique, randomized symbol names.
package symname

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/opteya/dladdr-test/sample"
)

// MaxNameLen bounds the length of a synthesized name. Every name is
// strictly shorter.
const MaxNameLen = 1024

// MaxSuffixLen is the longest random suffix Name appends.
const MaxSuffixLen = 255

// Charset is the set of characters random suffixes are drawn from.
const Charset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ" +
	"abcdefghijklmnopqrstuvwxyz" +
	"0123456789" +
	"_"

// A Synthesizer produces names of the form prefix_counter_suffix.
// The counter makes every name from one Synthesizer distinct, even if
// random suffixes coincide.
//
// A Synthesizer is not safe for concurrent use.
type Synthesizer struct {
	s       *sample.Sampler
	counter uint64
}

// New returns a Synthesizer drawing suffixes from s.
func New(s *sample.Sampler) *Synthesizer {
	return &Synthesizer{s: s}
}

// Name returns a fresh name with the given prefix.
//
// Name panics if the result could reach MaxNameLen bytes. Callers
// control prefixes, so this is a programming error.
func (n *Synthesizer) Name(prefix string) string {
	// The suffix is drawn first, so its length does not depend on
	// the prefix.
	suffixLen := int(n.s.Uint32n(MaxSuffixLen))
	var suffix [MaxSuffixLen]byte
	for i := 0; i < suffixLen; i++ {
		suffix[i] = Charset[n.s.Uint32n(uint32(len(Charset)-1))]
	}

	counter := strconv.FormatUint(n.counter, 10)
	size := len(prefix) + 1 + len(counter) + 1 + suffixLen
	if size >= MaxNameLen {
		panic(fmt.Sprintf("symname: name with prefix of %d bytes would be %d bytes, limit is %d", len(prefix), size, MaxNameLen-1))
	}
	n.counter++

	var b strings.Builder
	b.Grow(size)
	b.WriteString(prefix)
	b.WriteByte('_')
	b.WriteString(counter)
	b.WriteByte('_')
	b.Write(suffix[:suffixLen])
	return b.String()
}

// Counter returns the number of names n has produced.
func (n *Synthesizer) Counter() uint64 {
	return n.counter
}

// MaxPrefixLen returns the longest prefix for which Name can never
// panic while the counter stays below 10^digits.
func MaxPrefixLen(digits int) int {
	return MaxNameLen - 1 - 1 - digits - 1 - MaxSuffixLen
}
