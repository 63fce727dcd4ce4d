// Copyright 2018 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package obj provides a common abstraction for reading the symbols
// and sections of object files.
package obj

import (
	"errors"
	"io"

	"github.com/opteya/dladdr-test/arch"
)

// ErrUnrecognized is returned by Open for data that is not in a known
// object file format.
var ErrUnrecognized = errors.New("unrecognized object file format")

// Open attempts to open r as a known object file format.
func Open(r io.ReaderAt) (File, error) {
	if isElf, f, err := openElf(r); isElf {
		return f, err
	}
	return nil, ErrUnrecognized
}

// A File represents an object file.
type File interface {
	// Close closes this object file, releasing any OS resources used by it.
	//
	// Referencing a Data object returned from this File after closing
	// the File may panic.
	Close()

	// Info returns metadata about the whole object file.
	Info() FileInfo

	// Sections returns a slice of sections in this object file, indexed
	// by SectionID.
	//
	// All addresses within an object file, such as symbol addresses,
	// are relative to some section of the object file. In a shared
	// object, loadable sections have addresses relative to the load
	// base; in an unlinked object file, none of them do.
	Sections() []*Section

	// Section returns the i'th section. If i is out of range, it panics.
	Section(i SectionID) *Section

	// sectionData implements Section.Data. On success, it should
	// populate *d and return d, nil. If there's an error, it should
	// return nil and the error.
	sectionData(s *Section, addr, size uint64, d *Data) (*Data, error)

	// ResolveAddr finds the mapped Section containing the given
	// address. It returns nil if addr is not in the mapped address
	// space, which is always the case for relocatable objects.
	ResolveAddr(addr uint64) *Section

	// Sym returns i'th symbol. If i is out of range, it panics.
	Sym(i SymID) Sym

	// NumSyms returns the number of symbols.
	//
	// If an object file has more than one symbol table, they are
	// concatenated and the "same" symbol may appear more than once.
	// Symbols from the dynamic table have the Dynamic flag set.
	NumSyms() SymID
}

// FileInfo is metadata about a whole object file.
type FileInfo struct {
	// Arch is the machine architecture of this object file, or
	// nil if unknown.
	Arch *arch.Arch

	// Type is the kind of object file.
	Type FileType
}

// FileType is the kind of an object file.
type FileType uint8

const (
	TypeUnknown FileType = iota
	// TypeRelocatable is an unlinked object file.
	TypeRelocatable
	// TypeExecutable is a position-dependent executable.
	TypeExecutable
	// TypeShared is a shared object or position-independent
	// executable, loaded at an arbitrary base address.
	TypeShared
)

func (t FileType) String() string {
	switch t {
	case TypeRelocatable:
		return "relocatable"
	case TypeExecutable:
		return "executable"
	case TypeShared:
		return "shared"
	}
	return "unknown"
}

// Syms returns all symbols in f, indexed by SymID.
func Syms(f File) []Sym {
	syms := make([]Sym, f.NumSyms())
	for i := range syms {
		syms[i] = f.Sym(SymID(i))
	}
	return syms
}

// SectionID is an index for a section in an object file. These indexes
// are compact and start at 0.
//
// These may not correspond to any section numbering used by the object
// format itself; see Section.RawID for this. For example, ELF section
// number 0 is reserved, so this slice starts at section 1 in ELF
// objects.
type SectionID int

// A Section is a contiguous region of address space in an object file.
type Section struct {
	// File is the object file containing this section, or nil for
	// sections that are not backed by a file.
	File File

	// Name is the name of this section, such as ".rodata".
	Name string

	// ID is the obj-internal index of this section.
	ID SectionID

	// RawID is the index of this section in the underlying format's
	// representation, or -1 if this is not meaningful.
	RawID int

	// Addr is the virtual address at which this section begins in
	// memory, or 0 if it has not been assigned a meaningful address.
	Addr uint64

	// Size is the size of this section in memory, in bytes.
	Size uint64

	// SectionFlags stores flags for this section. This field is
	// embedded so Section inherits the methods of SectionFlags.
	SectionFlags
}

// Data reads size bytes of data from this section, starting at the
// given address. It panics if the requested byte range is out of range
// for the section.
func (s *Section) Data(addr, size uint64) (*Data, error) {
	if s.File == nil {
		return nil, &ErrNoData{"section not backed by a file"}
	}
	// This approach allows the allocation of Data to be inlined into
	// the caller, where it can often be stack-allocated.
	var d Data
	return s.File.sectionData(s, addr, size, &d)
}

// Bounds returns the starting address and size in bytes of Section s.
func (s *Section) Bounds() (addr, size uint64) {
	return s.Addr, s.Size
}

// Contains reports whether addr falls within s.
func (s *Section) Contains(addr uint64) bool {
	return s.Addr <= addr && addr-s.Addr < s.Size
}

func (s *Section) String() string {
	if s == nil {
		return "<nil>"
	}
	return s.Name
}

// SectionFlags is a set of section flags.
type SectionFlags struct {
	f sectionFlags
}

type sectionFlags uint8

const (
	sectionFlagReadOnly sectionFlags = 1 << iota
	sectionFlagZeroInitialized
	sectionFlagMapped
)

func (s *SectionFlags) set(flag sectionFlags, v bool) {
	if v {
		s.f |= flag
	} else {
		s.f &^= flag
	}
}

// ReadOnly indicates a section's data is read-only.
func (s SectionFlags) ReadOnly() bool {
	return s.f&sectionFlagReadOnly != 0
}

// SetReadOnly sets the ReadOnly flag to v.
func (s *SectionFlags) SetReadOnly(v bool) { s.set(sectionFlagReadOnly, v) }

// ZeroInitialized indicates a section has no file data and reads as
// zeros.
func (s SectionFlags) ZeroInitialized() bool {
	return s.f&sectionFlagZeroInitialized != 0
}

// SetZeroInitialized sets the ZeroInitialized flag to v.
func (s *SectionFlags) SetZeroInitialized(v bool) { s.set(sectionFlagZeroInitialized, v) }

// Mapped indicates a section occupies the loaded address space, so
// its addresses are comparable with those of every other mapped
// section.
func (s SectionFlags) Mapped() bool {
	return s.f&sectionFlagMapped != 0
}

// SetMapped sets the Mapped flag to v.
func (s *SectionFlags) SetMapped(v bool) { s.set(sectionFlagMapped, v) }

// roundDown2 to rounds x down to a multiple of y, where y must be a
// power of 2.
func roundDown2(x, y uint64) uint64 {
	if y&(y-1) != 0 {
		panic("y must be a power of 2")
	}
	return x &^ (y - 1)
}

// roundUp2 to rounds x up to a multiple of y, where y must be a power
// of 2.
func roundUp2(x, y uint64) uint64 {
	if y&(y-1) != 0 {
		panic("y must be a power of 2")
	}
	return (x + y - 1) &^ (y - 1)
}
