// Copyright 2020 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package obj

import (
	"bytes"
	"fmt"

	"github.com/opteya/dladdr-test/arch"
)

// Data represents byte data in an object file.
type Data struct {
	// Addr is the address at which this data starts.
	//
	// If this Data is for a Section or a Sym, this is the base address
	// of the section or symbol.
	Addr uint64

	// P stores the raw byte data. Callers must not modify this.
	P []byte

	// Layout specifies the byte order and word size of this data. This
	// is inferred from the object file's architecture.
	Layout arch.Layout
}

// IsZero reports whether every byte of d is zero.
func (d *Data) IsZero() bool {
	for _, b := range d.P {
		if b != 0 {
			return false
		}
	}
	return true
}

// A Reader decodes fixed-size values from a Data using the Data's
// layout.
type Reader struct {
	d *Data
	p int // Offset into P
}

func NewReader(d *Data) *Reader {
	return &Reader{d, 0}
}

// SetOffset moves r's cursor to the given offset from the beginning of
// r's data.
func (r *Reader) SetOffset(offset int) {
	if offset < 0 || offset >= len(r.d.P) {
		panic(fmt.Sprintf("offset %d out of data's range [0,%d)", offset, len(r.d.P)))
	}
	r.p = offset
}

func (r *Reader) Uint8() uint8 {
	o := r.p
	r.p++
	return r.d.P[o]
}

func (r *Reader) Uint16() uint16 {
	o := r.p
	r.p += 2
	return r.d.Layout.Uint16(r.d.P[o : o+2])
}

func (r *Reader) Uint32() uint32 {
	o := r.p
	r.p += 4
	return r.d.Layout.Uint32(r.d.P[o : o+4])
}

func (r *Reader) Uint64() uint64 {
	o := r.p
	r.p += 8
	return r.d.Layout.Uint64(r.d.P[o : o+8])
}

// CString reads a NULL-terminated string. The result omits the final
// NULL byte. If there is no NULL, this reads to the end of r's Data.
func (r *Reader) CString() []byte {
	s := r.d.P[r.p:]
	n := bytes.IndexByte(s, 0)
	if n < 0 {
		r.p = len(r.d.P)
		return s
	}
	r.p += n + 1
	return s[:n]
}
