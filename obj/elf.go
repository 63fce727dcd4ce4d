// Copyright 2021 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package obj

import (
	"debug/elf"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"sync"

	"golang.org/x/sys/unix"

	"github.com/opteya/dladdr-test/arch"
)

type elfFile struct {
	f    *elf.File
	arch *arch.Arch
	typ  FileType

	// fd is the mmap-able FD of this file, or ^0.
	fd uintptr
	// pageSize is the system page size for mmapping.
	pageSize uint64

	// elfLayout is the data layout of the ELF file itself (as opposed
	// to the architecture).
	elfLayout arch.Layout
	// symSize is the size of a symbol table entry in bytes.
	symSize uint64

	// sections contains the sections of this object file, indexed by
	// internal ID (not ELF section number).
	sections []*elfSection

	// shnToSection maps ELF section numbers to *elfSection objects.
	//
	// In general, prefer lookupShn, which performs checking.
	shnToSection []*elfSection

	// symTabs stores the static (index 0) and dynamic (index 1) symbol
	// tables, if they exist.
	//
	// [TIS ELF 1.2 Book III, p. 1-2] There may be at most one of each
	// type of symbol table section.
	symTabs [2]elfSymTab
}

var elfArches = map[elf.Machine]*arch.Arch{
	elf.EM_X86_64:  arch.AMD64,
	elf.EM_386:     arch.I386,
	elf.EM_AARCH64: arch.ARM64,
	elf.EM_ARM:     arch.ARM,
	elf.EM_RISCV:   arch.RISCV64,
	elf.EM_S390:    arch.S390X,
}

func elfArch(ff *elf.File) *arch.Arch {
	if ff.Machine == elf.EM_PPC64 {
		if ff.ByteOrder == binary.LittleEndian {
			return arch.PPC64LE
		}
		return arch.PPC64
	}
	return elfArches[ff.Machine]
}

func openElf(r io.ReaderAt) (bool, File, error) {
	// Is this an ELF file?
	var magic [4]uint8
	if _, err := r.ReadAt(magic[0:], 0); err != nil {
		if err == io.EOF {
			return false, nil, nil
		}
		return false, nil, err
	}
	if magic[0] != '\x7f' || magic[1] != 'E' || magic[2] != 'L' || magic[3] != 'F' {
		return false, nil, nil
	}
	// If there are errors past this point, we assume it's ELF and we
	// should report the error.

	ff, err := elf.NewFile(r)
	if err != nil {
		return true, nil, err
	}

	f := &elfFile{f: ff, arch: elfArch(ff)}
	switch ff.Type {
	case elf.ET_REL:
		f.typ = TypeRelocatable
	case elf.ET_EXEC:
		f.typ = TypeExecutable
	case elf.ET_DYN:
		f.typ = TypeShared
	}

	// Is this a real file we can mmap?
	if file, ok := r.(*os.File); ok {
		f.fd = file.Fd()
		f.pageSize = uint64(unix.Getpagesize())
	} else {
		f.fd = ^uintptr(0)
	}

	// Set per-class constants.
	var elfWordSize int
	switch ff.Class {
	default:
		return true, nil, fmt.Errorf("unknown ELF class %s", ff.Class)
	case elf.ELFCLASS32:
		elfWordSize = 4
		f.symSize = elf.Sym32Size
	case elf.ELFCLASS64:
		elfWordSize = 8
		f.symSize = elf.Sym64Size
	}
	f.elfLayout = arch.NewLayout(ff.ByteOrder, elfWordSize)

	// Process section table.
	f.shnToSection = make([]*elfSection, len(ff.Sections))
	for elfID, elfSect := range ff.Sections {
		if elfSect.Type == elf.SHT_NULL {
			continue
		}

		s := &Section{
			File:  f,
			Name:  elfSect.Name,
			ID:    SectionID(len(f.sections)),
			RawID: elfID,
			Addr:  elfSect.Addr,
			Size:  elfSect.Size,
		}
		if f.typ != TypeRelocatable && elfSect.Flags&elf.SHF_ALLOC != 0 {
			// Allocatable sections in relocatable objects only get
			// meaningful addresses after linking.
			s.SetMapped(true)
		}
		if elfSect.Flags&elf.SHF_WRITE == 0 {
			s.SetReadOnly(true)
		}
		if elfSect.Type == elf.SHT_NOBITS {
			s.SetZeroInitialized(true)
		}

		es := &elfSection{Section: s, elf: elfSect}
		f.sections = append(f.sections, es)
		f.shnToSection[elfID] = es

		switch elfSect.Type {
		case elf.SHT_SYMTAB:
			f.symTabs[0].section = es
		case elf.SHT_DYNSYM:
			f.symTabs[1].section = es
		}
	}

	// For each symbol table, compute its global index range and get its
	// string section.
	var nSyms SymID
	for i := range f.symTabs {
		symTab := &f.symTabs[i]
		symTab.dynamic = i == 1
		es := symTab.section
		symTab.start = nSyms
		symTab.end = nSyms
		if es == nil || es.Size < f.symSize {
			// This file doesn't have this type of symbol table.
			continue
		}

		if err := f.elfSectionData(es, es.Addr, es.Size, &symTab.data); err != nil {
			return true, nil, fmt.Errorf("reading symbol table %s: %w", es, err)
		}
		symTab.data.Layout = f.elfLayout

		// ELF symbol 0 is the null symbol, which we don't represent.
		count := SymID(es.Size/f.symSize - 1)
		symTab.end = symTab.start + count
		nSyms += count

		strShn := elf.SectionIndex(es.elf.Link)
		strSection, ok := f.lookupShn(strShn)
		if !ok || strSection.elf.Type != elf.SHT_STRTAB {
			return true, nil, fmt.Errorf("symbol table %s references bad string section %d", es, strShn)
		}
		strAddr, strSize := strSection.Bounds()
		if err := f.elfSectionData(strSection, strAddr, strSize, &symTab.strings); err != nil {
			return true, nil, fmt.Errorf("reading string table %s: %w", strSection, err)
		}
		symTab.strings.Layout = f.elfLayout
	}

	return true, f, nil
}

func (f *elfFile) Close() {
	// Release mmaps.
	for _, s := range f.sections {
		if s.mmapped != nil {
			mmapped := s.mmapped
			s.data = nil
			s.mmapped = nil
			unix.Munmap(mmapped)
		}
	}
}

func (f *elfFile) Info() FileInfo {
	return FileInfo{Arch: f.arch, Type: f.typ}
}

// AsDebugElf is implemented by File types that can return an underlying
// *debug/elf.File for format-specific access.
type AsDebugElf interface {
	AsDebugElf() *elf.File
}

func (f *elfFile) AsDebugElf() *elf.File {
	return f.f
}

var _ AsDebugElf = (*elfFile)(nil)

type elfSection struct {
	*Section

	elf *elf.Section

	dataOnce sync.Once
	data     []byte
	dataErr  error
	mmapped  []byte // if non-nil, original mmap of this section
}

func (s *elfSection) String() string {
	return fmt.Sprintf("%s [%d]", s.Name, s.RawID)
}

// lookupShn returns the *elfSection for a raw ELF section number and
// whether or not the section exists.
func (f *elfFile) lookupShn(shn elf.SectionIndex) (*elfSection, bool) {
	if shn < elf.SectionIndex(len(f.shnToSection)) {
		es := f.shnToSection[shn]
		return es, es != nil
	}
	return nil, false
}

func (f *elfFile) Sections() []*Section {
	out := make([]*Section, len(f.sections))
	for i, es := range f.sections {
		out[i] = es.Section
	}
	return out
}

func (f *elfFile) Section(i SectionID) *Section {
	return f.sections[i].Section
}

func (f *elfFile) sectionData(s *Section, addr, size uint64, d *Data) (*Data, error) {
	if err := f.elfSectionData(f.sections[s.ID], addr, size, d); err != nil {
		return nil, err
	}
	return d, nil
}

func (f *elfFile) elfSectionData(s *elfSection, addr, size uint64, d *Data) error {
	es := s.elf

	if addr+size < addr {
		panic("address overflow")
	}
	if addr < es.Addr || addr+size > es.Addr+es.Size {
		panic(fmt.Sprintf("requested data [0x%x, 0x%x) is outside section [0x%x, 0x%x)", addr, addr+size, es.Addr, es.Addr+es.Size))
	}

	bytes, err := f.sectionBytes(s)
	if err != nil {
		return err
	}
	layout := f.elfLayout
	if f.arch != nil {
		layout = f.arch.Layout
	}
	*d = Data{Addr: addr, P: bytes[addr-es.Addr:][:size], Layout: layout}
	return nil
}

func (f *elfFile) sectionBytes(s *elfSection) (data []byte, err error) {
	s.dataOnce.Do(func() {
		s.data, s.mmapped, s.dataErr = f.sectionBytesUncached(s)
	})
	return s.data, s.dataErr
}

var testMmapSection func(bool)

func (f *elfFile) sectionBytesUncached(s *elfSection) (data []byte, mmapped []byte, err error) {
	es := s.elf

	if es.Type == elf.SHT_NOBITS {
		// There's no file data. Use an anonymous zeroed mapping to
		// avoid bloating the Go heap with large zero-filled sections.
		if f.pageSize != 0 {
			if size := roundUp2(es.Size, f.pageSize); size > 0 {
				data, err = unix.Mmap(-1, 0, int(size), unix.PROT_READ, unix.MAP_PRIVATE|unix.MAP_ANON)
				if err == nil {
					if testMmapSection != nil {
						testMmapSection(true)
					}
					return data[:es.Size], data, nil
				}
			}
		}
		if testMmapSection != nil {
			testMmapSection(false)
		}
		return make([]byte, es.Size), nil, nil
	}

	// Memory map the section when possible.
	if f.fd != ^uintptr(0) && es.Flags&elf.SHF_COMPRESSED == 0 && es.Size > 0 {
		start := roundDown2(es.Offset, f.pageSize)
		end := roundUp2(es.Offset+es.Size, f.pageSize)
		data, err = unix.Mmap(int(f.fd), int64(start), int(end-start), unix.PROT_READ, unix.MAP_SHARED)
		if err == nil {
			if testMmapSection != nil {
				testMmapSection(true)
			}
			return data[es.Offset-start:][:es.Size], data, nil
		}
	}

	// Mmapping failed or wasn't possible. Read into the heap.
	data, err = io.ReadAll(es.Open())
	if err != nil {
		return nil, nil, err
	}
	if uint64(len(data)) != es.Size {
		return nil, nil, fmt.Errorf("reading section %s: got %d bytes, want %d", s, len(data), es.Size)
	}
	if testMmapSection != nil {
		testMmapSection(false)
	}
	return data, nil, nil
}

func (f *elfFile) ResolveAddr(addr uint64) *Section {
	for _, es := range f.sections {
		if es.Mapped() && es.Contains(addr) {
			return es.Section
		}
	}
	return nil
}
