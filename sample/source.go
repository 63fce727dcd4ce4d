// Copyright 2021 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sample

import (
	"math/rand/v2"
	"os"
	"time"
)

// Lrand48 is the 48-bit linear congruential generator of the C
// library's srand48 family. Each Uint32 matches the low 32 bits of
// mrand48 after srand48 with the same seed.
type Lrand48 struct {
	state uint64
}

const (
	lcgA    = 0x5DEECE66D
	lcgC    = 0xB
	lcgMask = 1<<48 - 1
)

// NewLrand48 returns a generator seeded like srand48(seed).
func NewLrand48(seed int64) *Lrand48 {
	g := new(Lrand48)
	g.Seed(seed)
	return g
}

// Seed resets g as srand48 does: the high 32 bits of state come from
// the low 32 bits of seed and the low 16 bits are 0x330E.
func (g *Lrand48) Seed(seed int64) {
	g.state = (uint64(uint32(seed))<<16 | 0x330E) & lcgMask
}

// Uint32 advances the generator and returns the top 32 bits of the
// new state.
func (g *Lrand48) Uint32() uint32 {
	g.state = (lcgA*g.state + lcgC) & lcgMask
	return uint32(g.state >> 16)
}

// Seed returns a seed that differs between processes and over time,
// the process ID xor the current time in seconds.
func Seed() int64 {
	return int64(os.Getpid()) ^ time.Now().Unix()
}

// FromRand adapts a math/rand/v2 generator to a Source.
func FromRand(r *rand.Rand) Source {
	return r
}

// NewPCG returns a Source for a PCG stream determined by seed.
func NewPCG(seed uint64) Source {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// Sequence is a Source that replays a fixed list of values, cycling
// when it reaches the end. It counts the values it has produced.
type Sequence struct {
	Values []uint32
	Drawn  int
}

func (s *Sequence) Uint32() uint32 {
	if len(s.Values) == 0 {
		panic("sample: empty Sequence")
	}
	v := s.Values[s.Drawn%len(s.Values)]
	s.Drawn++
	return v
}
