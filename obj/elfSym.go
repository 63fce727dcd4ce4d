// Copyright 2021 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package obj

import (
	"debug/elf"
	"fmt"
)

type elfSymTab struct {
	start, end SymID // Excludes ELF symbol index 0: start maps to ELF symbol 1
	section    *elfSection
	dynamic    bool
	data       Data
	strings    Data
}

func (f *elfFile) NumSyms() SymID {
	return f.symTabs[len(f.symTabs)-1].end
}

func (f *elfFile) Sym(i SymID) Sym {
	tab := &f.symTabs[0]
	if i >= tab.end {
		tab = &f.symTabs[1]
		if i >= tab.end {
			panic(fmt.Sprintf("symbol index %d out of range [%d,%d)", i, 0, f.NumSyms()))
		}
	}

	r := NewReader(&tab.data)
	rs := NewReader(&tab.strings)
	r.SetOffset(int(f.symSize * uint64(i-tab.start+1)))

	var sym Sym
	var (
		nameOff uint32
		info    uint8
		shn     elf.SectionIndex
	)
	switch f.f.Class {
	case elf.ELFCLASS32:
		nameOff = r.Uint32()
		sym.Value = uint64(r.Uint32())
		sym.Size = uint64(r.Uint32())
		info = r.Uint8()
		_ = r.Uint8() // st_other
		shn = elf.SectionIndex(r.Uint16())
	case elf.ELFCLASS64:
		nameOff = r.Uint32()
		info = r.Uint8()
		_ = r.Uint8() // st_other
		shn = elf.SectionIndex(r.Uint16())
		sym.Value = r.Uint64()
		sym.Size = r.Uint64()
	}

	es, ok := f.lookupShn(shn)
	if ok {
		sym.Section = es.Section
	}

	typ := elf.ST_TYPE(info)
	if typ == elf.STT_SECTION && es != nil {
		// Section symbols don't have their own name, but tools conventionally
		// show the name of the section.
		sym.Name = es.Name
	} else if int(nameOff) < len(tab.strings.P) {
		rs.SetOffset(int(nameOff))
		sym.Name = string(rs.CString())
	}

	sym.Kind = elfSymKind(typ, shn, es)
	sym.SetLocal(elf.ST_BIND(info) == elf.STB_LOCAL)
	sym.SetDynamic(tab.dynamic)
	sym.SetObject(typ == elf.STT_OBJECT || typ == elf.STT_COMMON)

	return sym
}

func elfSymKind(typ elf.SymType, shn elf.SectionIndex, es *elfSection) SymKind {
	if typ == elf.STT_SECTION {
		return SymSection
	}
	switch shn {
	case elf.SHN_UNDEF:
		return SymUndef
	case elf.SHN_COMMON:
		return SymBSS
	case elf.SHN_ABS:
		return SymAbsolute
	}
	if es == nil {
		return SymUnknown
	}
	// Determine kind by looking at section flags.
	switch es.elf.Flags & (elf.SHF_WRITE | elf.SHF_ALLOC | elf.SHF_EXECINSTR) {
	case elf.SHF_ALLOC | elf.SHF_EXECINSTR:
		return SymText
	case elf.SHF_ALLOC:
		return SymROData
	case elf.SHF_ALLOC | elf.SHF_WRITE:
		if es.elf.Type == elf.SHT_NOBITS {
			return SymBSS
		}
		return SymData
	}
	return SymUnknown
}
