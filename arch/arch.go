// Copyright 2018 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package arch provides basic descriptions of CPU architectures.
package arch

import (
	"encoding/binary"
	"runtime"
)

// An Arch describes a CPU architecture.
type Arch struct {
	// Layout is the byte order and word size of this architecture.
	// The word size is also the pointer size.
	Layout Layout

	// GoArch is the GOARCH value for this architecture.
	GoArch string
}

var (
	AMD64   = &Arch{Layout{0, 8}, "amd64"}
	I386    = &Arch{Layout{0, 4}, "386"}
	ARM64   = &Arch{Layout{0, 8}, "arm64"}
	ARM     = &Arch{Layout{0, 4}, "arm"}
	RISCV64 = &Arch{Layout{0, 8}, "riscv64"}
	PPC64LE = &Arch{Layout{0, 8}, "ppc64le"}
	PPC64   = &Arch{Layout{1, 8}, "ppc64"}
	S390X   = &Arch{Layout{1, 8}, "s390x"}
)

var arches = []*Arch{AMD64, I386, ARM64, ARM, RISCV64, PPC64LE, PPC64, S390X}

// Lookup returns the Arch for a GOARCH value, or nil if unknown.
func Lookup(goarch string) *Arch {
	for _, a := range arches {
		if a.GoArch == goarch {
			return a
		}
	}
	return nil
}

// Host returns the Arch of the running process. If GOARCH is not one
// of the known architectures, Host derives a layout from the native
// pointer size and byte order.
func Host() *Arch {
	if a := Lookup(runtime.GOARCH); a != nil {
		return a
	}
	order := binary.ByteOrder(binary.LittleEndian)
	if binary.NativeEndian.Uint16([]byte{0, 1}) == 1 {
		order = binary.BigEndian
	}
	return &Arch{NewLayout(order, ptrSize), runtime.GOARCH}
}

const ptrSize = 4 << (^uintptr(0) >> 63)

// PtrSize returns the size of a pointer in bytes.
func (a *Arch) PtrSize() int {
	return a.Layout.WordSize()
}

// MaxAddr returns the largest value representable by an unsigned
// pointer on a.
func (a *Arch) MaxAddr() uint64 {
	return a.Layout.MaxWord()
}

// String returns the GOARCH value of a.
func (a *Arch) String() string {
	if a == nil {
		return "<nil>"
	}
	return a.GoArch
}
