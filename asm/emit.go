// Copyright 2021 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asm

import (
	"bufio"
	"fmt"
	"io"

	"github.com/opteya/dladdr-test/sample"
	"github.com/opteya/dladdr-test/symname"
)

// License is the comment block at the top of generated source, so
// generated libraries carry a license compatible with the programs
// that load them.
const License = `/*
 * This library is free software; you can redistribute it and/or
 * modify it under the terms of the GNU Lesser General Public
 * License as published by the Free Software Foundation; either
 * version 2.1 of the License, or (at your option) any later version.
 *
 * This library is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
 * Lesser General Public License for more details.
 *
 * You should have received a copy of the GNU Lesser General Public
 * License along with this library; if not, write to the Free Software
 * Foundation, Inc., 51 Franklin Street, Fifth Floor, Boston, MA
 * 02110-1301  USA
 */
`

// An Emitter writes symbol definitions as assembler source.
//
// Output is buffered. Write errors are sticky: after the first one,
// further calls do nothing and Err and Flush report it.
type Emitter struct {
	w     *bufio.Writer
	s     *sample.Sampler
	names *symname.Synthesizer
	err   error
}

// NewEmitter returns an Emitter writing to w. Random alignments and
// sizes are drawn from s, and random names from names.
func NewEmitter(w io.Writer, s *sample.Sampler, names *symname.Synthesizer) *Emitter {
	return &Emitter{w: bufio.NewWriter(w), s: s, names: names}
}

func (e *Emitter) printf(format string, args ...any) {
	if e.err != nil {
		return
	}
	_, e.err = fmt.Fprintf(e.w, format, args...)
}

// Header writes the license comment.
func (e *Emitter) Header() {
	e.printf("%s", License)
}

// Section writes a directive switching to the named section.
func (e *Emitter) Section(name string) {
	e.printf("\t.section %s\n", name)
}

// EmitRandom writes a symbol with a random alignment, a random size
// and a synthesized name starting with prefix, and returns it.
func (e *Emitter) EmitRandom(prefix string) Symbol {
	align := e.s.Uint32n(MaxAlign)
	size := 1 + uint64(e.s.Uint32n(MaxRandomSize))
	sym := Symbol{Name: e.names.Name(prefix), Align: align, Size: size, Global: true, Object: true}
	e.Emit(sym)
	return sym
}

// EmitKnown writes a symbol with the exact name and size and a random
// alignment, and returns it.
func (e *Emitter) EmitKnown(name string, size uint64) Symbol {
	sym := Symbol{Name: name, Align: e.s.Uint32n(MaxAlign), Size: size, Global: true, Object: true}
	e.Emit(sym)
	return sym
}

// Emit writes the definition of sym as a global, aligned, sized,
// zero-filled data object.
func (e *Emitter) Emit(sym Symbol) {
	e.printf("\t.globl %s\n"+
		"\t.p2align %d\n"+
		"\t.type  %s, @object\n"+
		"\t.size  %s, %d\n"+
		"%s:\n"+
		"\t.zero  %d\n"+
		"\n",
		sym.Name,
		sym.Align,
		sym.Name,
		sym.Name, sym.Size,
		sym.Name,
		sym.Size)
}

// Err returns the first write error, if any.
func (e *Emitter) Err() error {
	return e.err
}

// Flush writes any buffered output and returns the first error
// encountered by e.
func (e *Emitter) Flush() error {
	if e.err != nil {
		return e.err
	}
	e.err = e.w.Flush()
	return e.err
}
