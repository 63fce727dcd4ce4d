// Copyright 2021 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package gen generates assembler source defining one known data
// symbol surrounded by randomly named, sized and aligned neighbors
// that share its name as a prefix.
package gen

import (
	"fmt"
	"io"
	"strconv"

	"github.com/opteya/dladdr-test/asm"
	"github.com/opteya/dladdr-test/sample"
	"github.com/opteya/dladdr-test/symname"
)

// DefaultMaxPadding is the default largest number of random symbols
// placed on each side of the known symbol.
const DefaultMaxPadding = 123

// Options control the shape of generated source.
type Options struct {
	// MinPadding and MaxPadding bound the number of random symbols
	// before and after the known symbol. Each count is drawn
	// independently and uniformly from [MinPadding, MaxPadding].
	MinPadding, MaxPadding uint32

	// Section is the section to define symbols in.
	Section string
}

// DefaultOptions returns the options matching the historical
// generator: between 0 and 123 neighbors on each side, in .rodata.
func DefaultOptions() Options {
	return Options{MaxPadding: DefaultMaxPadding, Section: ".rodata"}
}

// Validate reports whether o is usable.
func (o Options) Validate() error {
	if o.MinPadding > o.MaxPadding {
		return fmt.Errorf("minimum padding %d exceeds maximum padding %d", o.MinPadding, o.MaxPadding)
	}
	if o.Section == "" {
		return fmt.Errorf("empty section name")
	}
	return nil
}

// A Generator writes randomized symbol populations.
type Generator struct {
	opts Options
	s    *sample.Sampler
}

// New returns a Generator drawing from s.
func New(opts Options, s *sample.Sampler) (*Generator, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &Generator{opts, s}, nil
}

// A Summary describes one generated source file.
type Summary struct {
	// Known is the known symbol.
	Known asm.Symbol
	// Before and After count the random symbols on each side.
	Before, After uint32
}

// KnownName returns the name of the known symbol for a base name and
// size: the base followed by the size in decimal.
func KnownName(base string, size uint64) string {
	return base + strconv.FormatUint(size, 10)
}

// MaxBaseLen is the longest base name Generate accepts. It leaves room
// for the size, the counter and the random suffix of neighbor names.
var MaxBaseLen = symname.MaxPrefixLen(20) - 20

// Generate writes to w a source file defining the known symbol of the
// given size, named by KnownName, with random neighbors before and
// after it.
func (g *Generator) Generate(w io.Writer, base string, size uint64) (Summary, error) {
	if len(base) > MaxBaseLen {
		return Summary{}, fmt.Errorf("base name of %d bytes exceeds %d bytes", len(base), MaxBaseLen)
	}
	known := KnownName(base, size)
	e := asm.NewEmitter(w, g.s, symname.New(g.s))
	e.Header()
	e.Section(g.opts.Section)

	var sum Summary
	sum.Before = g.padding()
	for i := uint32(0); i < sum.Before; i++ {
		e.EmitRandom(known)
	}
	sum.Known = e.EmitKnown(known, size)
	sum.After = g.padding()
	for i := uint32(0); i < sum.After; i++ {
		e.EmitRandom(known)
	}

	if err := e.Flush(); err != nil {
		return Summary{}, fmt.Errorf("writing %s: %w", known, err)
	}
	return sum, nil
}

func (g *Generator) padding() uint32 {
	return g.opts.MinPadding + g.s.Uint32n(g.opts.MaxPadding-g.opts.MinPadding)
}
