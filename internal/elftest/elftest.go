// Copyright 2021 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package elftest builds small in-memory ELF images for tests.
//
// Images are 64-bit little endian with a single data section
// (.rodata, or .bss when NoBits is set) mapped at RodataAddr, plus
// static and dynamic symbol tables describing symbols in that section.
package elftest

import (
	"bytes"
	"debug/elf"
	"encoding/binary"
)

// RodataAddr is the virtual address (and file offset) of the data
// section.
const RodataAddr = 0x1000

// A Sym is a symbol to place in the data section.
type Sym struct {
	Name string
	// Off is the offset of the symbol from the start of the data
	// section.
	Off  uint64
	Size uint64
	// Local symbols only go in the static symbol table.
	Local bool
	// Type defaults to STT_OBJECT.
	Type elf.SymType
	// Fill, if not zero, is stored in every byte of the symbol.
	Fill byte
}

// A File describes an ELF image.
type File struct {
	// Type defaults to ET_DYN.
	Type elf.Type
	// Machine defaults to EM_X86_64.
	Machine elf.Machine
	// DataSize is the size of the data section.
	DataSize uint64
	// NoBits makes the data section a writable SHT_NOBITS .bss.
	NoBits bool
	Syms   []Sym
}

type strtab struct {
	buf bytes.Buffer
}

func (s *strtab) add(name string) uint32 {
	if s.buf.Len() == 0 {
		s.buf.WriteByte(0)
	}
	if name == "" {
		return 0
	}
	off := uint32(s.buf.Len())
	s.buf.WriteString(name)
	s.buf.WriteByte(0)
	return off
}

func (s *strtab) bytes() []byte {
	if s.buf.Len() == 0 {
		s.buf.WriteByte(0)
	}
	return s.buf.Bytes()
}

const (
	shnData = 1 + iota
	shnDynsym
	shnDynstr
	shnSymtab
	shnStrtab
	shnShstrtab
	numSections
)

// Bytes returns the encoded ELF image.
func (f *File) Bytes() []byte {
	typ, machine := f.Type, f.Machine
	if typ == elf.ET_NONE {
		typ = elf.ET_DYN
	}
	if machine == elf.EM_NONE {
		machine = elf.EM_X86_64
	}

	// Symbol tables. Locals must precede globals in each table.
	var dynstr, strtab, shstrtab strtab
	dynsym := []elf.Sym64{{}}
	symtab := []elf.Sym64{{}, {
		Info:  elf.ST_INFO(elf.STB_LOCAL, elf.STT_SECTION),
		Shndx: shnData,
		Value: RodataAddr,
	}}
	var globals []Sym
	for _, s := range f.Syms {
		if s.Local {
			symtab = append(symtab, f.sym(&strtab, s, elf.STB_LOCAL))
		} else {
			globals = append(globals, s)
		}
	}
	firstGlobal := len(symtab)
	for _, s := range globals {
		symtab = append(symtab, f.sym(&strtab, s, elf.STB_GLOBAL))
		dynsym = append(dynsym, f.sym(&dynstr, s, elf.STB_GLOBAL))
	}

	var out bytes.Buffer
	write := func(v interface{}) {
		if err := binary.Write(&out, binary.LittleEndian, v); err != nil {
			panic(err)
		}
	}
	pad := func(align int) {
		for out.Len()%align != 0 {
			out.WriteByte(0)
		}
	}

	// Header is written last, once we know the section header offset.
	out.Write(make([]byte, binary.Size(elf.Header64{})))
	pad(RodataAddr)

	sections := make([]elf.Section64, numSections)
	dataName := ".rodata"
	dataSect := elf.Section64{Type: uint32(elf.SHT_PROGBITS), Flags: uint64(elf.SHF_ALLOC)}
	if f.NoBits {
		dataName = ".bss"
		dataSect = elf.Section64{Type: uint32(elf.SHT_NOBITS), Flags: uint64(elf.SHF_ALLOC | elf.SHF_WRITE)}
	}
	dataSect.Name = shstrtab.add(dataName)
	dataSect.Addr, dataSect.Off, dataSect.Size, dataSect.Addralign = RodataAddr, RodataAddr, f.DataSize, 16
	if !f.NoBits {
		data := make([]byte, f.DataSize)
		for _, s := range f.Syms {
			if s.Fill != 0 {
				copy(data[s.Off:s.Off+s.Size], bytes.Repeat([]byte{s.Fill}, int(s.Size)))
			}
		}
		out.Write(data)
	}
	sections[shnData] = dataSect

	place := func(shn int, name string, typ elf.SectionType, flags elf.SectionFlag, data interface{}) {
		pad(8)
		off := uint64(out.Len())
		write(data)
		s := elf.Section64{
			Name:      shstrtab.add(name),
			Type:      uint32(typ),
			Flags:     uint64(flags),
			Off:       off,
			Size:      uint64(out.Len()) - off,
			Addralign: 8,
		}
		if flags&elf.SHF_ALLOC != 0 {
			s.Addr = off
		}
		sections[shn] = s
	}
	place(shnDynsym, ".dynsym", elf.SHT_DYNSYM, elf.SHF_ALLOC, dynsym)
	sections[shnDynsym].Link, sections[shnDynsym].Info, sections[shnDynsym].Entsize = shnDynstr, 1, elf.Sym64Size
	place(shnDynstr, ".dynstr", elf.SHT_STRTAB, elf.SHF_ALLOC, dynstr.bytes())
	place(shnSymtab, ".symtab", elf.SHT_SYMTAB, 0, symtab)
	sections[shnSymtab].Link, sections[shnSymtab].Info, sections[shnSymtab].Entsize = shnStrtab, uint32(firstGlobal), elf.Sym64Size
	place(shnStrtab, ".strtab", elf.SHT_STRTAB, 0, strtab.bytes())
	// The section name table must be complete before it's written.
	shstrtabName := shstrtab.add(".shstrtab")
	place(shnShstrtab, "", elf.SHT_STRTAB, 0, shstrtab.bytes())
	sections[shnShstrtab].Name = shstrtabName

	pad(8)
	shoff := out.Len()
	write(sections)

	hdr := elf.Header64{
		Type:      uint16(typ),
		Machine:   uint16(machine),
		Version:   uint32(elf.EV_CURRENT),
		Shoff:     uint64(shoff),
		Ehsize:    uint16(binary.Size(elf.Header64{})),
		Phentsize: uint16(binary.Size(elf.Prog64{})),
		Shentsize: uint16(binary.Size(elf.Section64{})),
		Shnum:     numSections,
		Shstrndx:  shnShstrtab,
	}
	copy(hdr.Ident[:], elf.ELFMAG)
	hdr.Ident[elf.EI_CLASS] = byte(elf.ELFCLASS64)
	hdr.Ident[elf.EI_DATA] = byte(elf.ELFDATA2LSB)
	hdr.Ident[elf.EI_VERSION] = byte(elf.EV_CURRENT)

	img := out.Bytes()
	var hbuf bytes.Buffer
	if err := binary.Write(&hbuf, binary.LittleEndian, hdr); err != nil {
		panic(err)
	}
	copy(img, hbuf.Bytes())
	return img
}

func (f *File) sym(names *strtab, s Sym, bind elf.SymBind) elf.Sym64 {
	typ := s.Type
	if typ == elf.STT_NOTYPE {
		typ = elf.STT_OBJECT
	}
	return elf.Sym64{
		Name:  names.add(s.Name),
		Info:  elf.ST_INFO(bind, typ),
		Shndx: shnData,
		Value: RodataAddr + s.Off,
		Size:  s.Size,
	}
}
