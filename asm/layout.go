// Copyright 2021 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asm

import (
	"fmt"
	"strings"

	"github.com/opteya/dladdr-test/obj"
)

// Layout assigns addresses to u's symbols as an assembler and linker
// would for a single section placed at base. The section start is
// rounded up to the largest alignment in u; each .p2align rounds the
// location counter up, each label takes the current location and each
// .zero advances it.
//
// The returned symbols are indexed like u.Symbols and refer to the
// returned section. Symbols without a .size have size 0.
func (u *Unit) Layout(base uint64) ([]obj.Sym, *obj.Section, error) {
	var maxAlign uint64
	for _, op := range u.ops {
		if op.kind == opAlign && op.n > maxAlign {
			maxAlign = op.n
		}
	}
	align := uint64(1) << maxAlign
	start := (base + align - 1) &^ (align - 1)
	if start < base {
		return nil, nil, fmt.Errorf("section %s at %#x: cannot align to %#x", u.Section, base, align)
	}

	section := &obj.Section{Name: u.Section, Addr: start, RawID: -1}
	section.SetMapped(true)
	kind := sectionKind(u.Section)
	switch kind {
	case obj.SymROData:
		section.SetReadOnly(true)
	case obj.SymBSS:
		section.SetZeroInitialized(true)
	}

	syms := make([]obj.Sym, len(u.Symbols))
	loc := start
	for _, op := range u.ops {
		switch op.kind {
		case opAlign:
			a := uint64(1) << op.n
			next := (loc + a - 1) &^ (a - 1)
			if next < loc {
				return nil, nil, fmt.Errorf("section %s: location %#x overflows aligning to %#x", u.Section, loc, a)
			}
			loc = next
		case opLabel:
			s := u.Symbols[op.n]
			sym := obj.Sym{Name: s.Name, Section: section, Value: loc, Size: s.Size, Kind: kind}
			sym.SetLocal(!s.Global)
			sym.SetObject(s.Object)
			syms[op.n] = sym
		case opZero:
			next := loc + op.n
			if next < loc {
				return nil, nil, fmt.Errorf("section %s: location %#x overflows adding %#x bytes", u.Section, loc, op.n)
			}
			loc = next
		}
	}
	section.Size = loc - start

	for _, sym := range syms {
		if sym.Value+sym.Size < sym.Value || sym.Value+sym.Size > loc {
			return nil, nil, fmt.Errorf("symbol %s [%#x,+%#x) extends past the end of section %s", sym.Name, sym.Value, sym.Size, u.Section)
		}
	}
	return syms, section, nil
}

// sectionKind returns the symbol kind for symbols defined in the named
// section, following the ELF conventions for section names.
func sectionKind(name string) obj.SymKind {
	switch {
	case name == ".rodata" || strings.HasPrefix(name, ".rodata."):
		return obj.SymROData
	case name == ".bss" || strings.HasPrefix(name, ".bss."):
		return obj.SymBSS
	case name == ".text" || strings.HasPrefix(name, ".text."):
		return obj.SymText
	}
	return obj.SymData
}
