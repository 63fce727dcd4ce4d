// Copyright 2021 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dl

import (
	"errors"
	"fmt"
	"os"
	"slices"

	"github.com/opteya/dladdr-test/asm"
	"github.com/opteya/dladdr-test/internal/imap"
	"github.com/opteya/dladdr-test/obj"
	"github.com/opteya/dladdr-test/symtab"
)

const (
	// FirstBase is the load base of the first relocatable object in a
	// Space.
	FirstBase = 0x10000000
	// baseAlign is the alignment of load bases.
	baseAlign = 0x200000
)

// A Space simulates the address space of a process with a set of
// loaded objects. Position-independent objects are placed at
// successive aligned bases starting at FirstBase; executables keep
// their link-time addresses.
//
// Only symbols a dynamic linker would export take part in lookups:
// the dynamic symbols of ELF images, and the global symbols of
// assembler source.
//
// A Space is not safe for concurrent use.
type Space struct {
	mods   []*Module
	ranges imap.Imap[*Module]
	next   uint64
}

// A Module is an object loaded in a Space.
type Module struct {
	// Name is the path the module was loaded from.
	Name string
	// Base is the load base added to the object's addresses.
	Base uint64

	// lo and hi bound the object's mapped addresses, before adding
	// Base.
	lo, hi uint64
	tab    *symtab.Table
	close  func()

	initialized []string
}

// Bounds returns the range of addresses the module occupies.
func (m *Module) Bounds() (lo, hi uint64) {
	return m.Base + m.lo, m.Base + m.hi
}

// Initialized returns the exported data objects of m, in symbol
// order, whose bytes are not all zero. Objects built from generator
// output hold only zero-filled storage, so a non-empty result means
// the module did not come from it.
func (m *Module) Initialized() []string {
	return m.initialized
}

// initialized lists the exported data symbols in tab that hold
// nonzero bytes. Symbols not backed by file data are skipped.
func initialized(tab *symtab.Table) ([]string, error) {
	var names []string
	syms := tab.Syms()
	for i := range syms {
		sym := &syms[i]
		if sym.Size == 0 || !sym.Kind.IsData() || !exported(sym) {
			continue
		}
		data, err := sym.Data(sym.Bounds())
		if err != nil {
			var noData *obj.ErrNoData
			if errors.As(err, &noData) {
				continue
			}
			return nil, fmt.Errorf("reading %s: %w", sym.Name, err)
		}
		if !data.IsZero() {
			names = append(names, sym.Name)
		}
	}
	return names, nil
}

// NewSpace returns an empty Space.
func NewSpace() *Space {
	return &Space{next: FirstBase}
}

// Images returns a Space with the ELF objects at paths loaded in
// order.
func Images(paths ...string) (*Space, error) {
	s := NewSpace()
	for _, path := range paths {
		if err := s.LoadImage(path); err != nil {
			s.Close()
			return nil, err
		}
	}
	return s, nil
}

// Assembly returns a Space with the assembler sources at paths laid out
// and loaded in order.
func Assembly(paths ...string) (*Space, error) {
	s := NewSpace()
	for _, path := range paths {
		if err := s.LoadAssembly(path); err != nil {
			s.Close()
			return nil, err
		}
	}
	return s, nil
}

// LoadImage opens the ELF object at path and loads it.
func (s *Space) LoadImage(path string) error {
	fp, err := os.Open(path)
	if err != nil {
		return &Error{Op: "dlopen", Name: path, Err: err}
	}
	f, err := obj.Open(fp)
	if err != nil {
		fp.Close()
		return &Error{Op: "dlopen", Name: path, Err: err}
	}
	_, err = s.AddFile(path, f, func() {
		f.Close()
		fp.Close()
	})
	if err != nil {
		f.Close()
		fp.Close()
	}
	return err
}

// LoadAssembly parses the assembler source at path, lays it out and
// loads it.
func (s *Space) LoadAssembly(path string) error {
	fp, err := os.Open(path)
	if err != nil {
		return &Error{Op: "dlopen", Name: path, Err: err}
	}
	defer fp.Close()
	u, err := asm.Parse(fp)
	if err != nil {
		return &Error{Op: "dlopen", Name: path, Err: err}
	}
	_, err = s.AddUnit(path, u)
	return err
}

// AddFile loads the object f under the given name. close, if not nil,
// is called by Space.Close.
func (s *Space) AddFile(name string, f obj.File, close func()) (*Module, error) {
	typ := f.Info().Type
	if typ != obj.TypeShared && typ != obj.TypeExecutable {
		return nil, &Error{Op: "dlopen", Name: name, Err: fmt.Errorf("cannot load %s object", typ)}
	}

	var lo, hi uint64
	for _, sect := range f.Sections() {
		if !sect.Mapped() || sect.Size == 0 {
			continue
		}
		start, end := sect.Addr, sect.Addr+sect.Size
		if hi == 0 || start < lo {
			lo = start
		}
		if end > hi {
			hi = end
		}
	}
	if hi == 0 {
		return nil, &Error{Op: "dlopen", Name: name, Err: fmt.Errorf("no loadable sections")}
	}

	tab := symtab.NewTableFunc(obj.Syms(f), exported)
	filled, err := initialized(tab)
	if err != nil {
		return nil, &Error{Op: "dlopen", Name: name, Err: err}
	}
	m := &Module{Name: name, lo: lo, hi: hi, tab: tab, close: close, initialized: filled}
	if typ == obj.TypeShared {
		s.place(m)
	}
	// Executables are loaded at their link-time addresses.
	if err := s.add(m); err != nil {
		return nil, err
	}
	return m, nil
}

// AddUnit lays out u at the next free load base and loads it under the
// given name.
func (s *Space) AddUnit(name string, u *asm.Unit) (*Module, error) {
	syms, section, err := u.Layout(0)
	if err != nil {
		return nil, &Error{Op: "dlopen", Name: name, Err: err}
	}
	if section.Size == 0 {
		return nil, &Error{Op: "dlopen", Name: name, Err: fmt.Errorf("section %s is empty", section.Name)}
	}
	m := &Module{
		Name: name,
		lo:   section.Addr,
		hi:   section.Addr + section.Size,
		tab:  symtab.NewTableFunc(syms, exported),
	}
	s.place(m)
	if err := s.add(m); err != nil {
		return nil, err
	}
	return m, nil
}

// exported reports whether a dynamic linker can find sym: a defined,
// global symbol that is in the dynamic symbol table when the object has
// one.
func exported(sym *obj.Sym) bool {
	if sym.Local() || sym.Section == nil || sym.Kind == obj.SymUndef || sym.Kind == obj.SymSection {
		return false
	}
	if sym.Section.File != nil {
		// Symbols read from an object file must come from its
		// dynamic symbol table.
		return sym.Dynamic()
	}
	return true
}

// place assigns m the next free load base.
func (s *Space) place(m *Module) {
	m.Base = s.next
	s.next = roundUp(m.Base+m.hi, baseAlign) + baseAlign
}

func (s *Space) add(m *Module) error {
	mlo, mhi := m.Bounds()
	if mhi < mlo {
		return &Error{Op: "dlopen", Name: m.Name, Err: fmt.Errorf("object does not fit in the address space")}
	}
	if it := s.ranges.Iter(mlo); it.Valid() && it.Key().Low < mhi {
		o := it.Key()
		return &Error{Op: "dlopen", Name: m.Name, Err: fmt.Errorf("[%#x,%#x) overlaps %s at %v", mlo, mhi, it.Value().Name, o)}
	}
	s.mods = append(s.mods, m)
	s.ranges.Insert(imap.Interval{Low: mlo, High: mhi}, m)
	if mhi > s.next {
		s.next = roundUp(mhi, baseAlign) + baseAlign
	}
	return nil
}

func roundUp(x, align uint64) uint64 {
	return (x + align - 1) &^ (align - 1)
}

// Modules returns the loaded modules in load order.
func (s *Space) Modules() []*Module {
	return slices.Clone(s.mods)
}

// Sym returns the address of the first definition of name in load
// order.
func (s *Space) Sym(name string) (uint64, error) {
	for _, m := range s.mods {
		if id := m.tab.Name(name); id != obj.NoSym {
			return m.Base + m.tab.Syms()[id].Value, nil
		}
	}
	return 0, &Error{Op: "dlsym", Name: name, Err: ErrNotFound}
}

// Addr describes the module and symbol containing addr. Among
// overlapping symbols, it picks the one that starts last, then the
// smallest.
func (s *Space) Addr(addr uint64) (Info, error) {
	_, m, ok := s.ranges.Find(addr)
	if !ok {
		return Info{}, &Error{Op: "dladdr", Addr: addr, Err: ErrNoObject}
	}
	info := Info{FName: m.Name, FBase: m.Base}
	if id := m.tab.Addr(nil, addr-m.Base); id != obj.NoSym {
		sym := &m.tab.Syms()[id]
		info.SName = sym.Name
		info.SAddr = m.Base + sym.Value
	}
	return info, nil
}

// Close releases the resources of all loaded modules.
func (s *Space) Close() error {
	for _, m := range s.mods {
		if m.close != nil {
			m.close()
		}
	}
	s.mods = nil
	s.ranges = imap.Imap[*Module]{}
	return nil
}
