// Copyright 2021 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package sample draws uniformly distributed integers from an
// injectable source of random 32-bit values.
package sample

import (
	"math"
)

// A Source produces uniformly distributed 32-bit values.
type Source interface {
	Uint32() uint32
}

// A Sampler draws bounded integers from a Source without modulo bias.
//
// A Sampler is not safe for concurrent use.
type Sampler struct {
	src Source
}

// New returns a Sampler drawing from src.
func New(src Source) *Sampler {
	return &Sampler{src}
}

// Uint32n returns a value uniformly distributed over [0, max].
//
// Uint32n(0) returns 0 without consuming entropy. For other bounds,
// raw draws that would make the final reduction biased are discarded
// and redrawn.
func (s *Sampler) Uint32n(max uint32) uint32 {
	switch max {
	case 0:
		return 0
	case math.MaxUint32:
		return s.src.Uint32()
	}
	n := max + 1
	interval := math.MaxUint32 - math.MaxUint32%n
	for {
		v := s.src.Uint32()
		if v < interval {
			return v % n
		}
	}
}
