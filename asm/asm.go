// Copyright 2021 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package asm writes and reads the subset of GNU assembler syntax used
// to define zero-filled global data objects, and lays such source out
// in memory the way the assembler would.
package asm

import "fmt"

// MaxAlign is the largest alignment exponent the emitter draws.
const MaxAlign = 16

// MaxRandomSize bounds the size of random symbols: sizes are drawn
// from [1, MaxRandomSize+1].
const MaxRandomSize = 12344

// A Symbol is a data object definition.
type Symbol struct {
	Name string
	// Align is the alignment as a power-of-two exponent.
	Align uint32
	// Size is both the declared size and the number of zero bytes
	// that follow the label.
	Size uint64

	// Global and Object record the .globl and ".type name, @object"
	// directives. Emitted symbols always have both.
	Global, Object bool
}

func (s Symbol) String() string {
	return fmt.Sprintf("%s (align 2^%d, size %d)", s.Name, s.Align, s.Size)
}
