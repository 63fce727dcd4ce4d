// Copyright 2021 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package symtab implements symbol table lookup by name and address.
package symtab

import (
	"sort"

	"github.com/opteya/dladdr-test/internal/imap"
	"github.com/opteya/dladdr-test/obj"
)

// Table facilitates fast symbol lookup by name and address.
type Table struct {
	// syms is the original syms slice, by SymID
	syms []obj.Sym

	// sections contains the address to symbol mapping for each section.
	// Mappable sections are all indexed under the nil key.
	sections map[*obj.Section]*imap.Imap[obj.SymID]

	// name indexes non-local symbols by name.
	name map[string]obj.SymID
}

// NewTable creates a new table for syms. syms must be indexed by obj.SymID.
func NewTable(syms []obj.Sym) *Table {
	return NewTableFunc(syms, nil)
}

// NewTableFunc is like NewTable, but only indexes the symbols for which
// include returns true. Excluded symbols are still returned by Syms.
// A nil include indexes every symbol.
func NewTableFunc(syms []obj.Sym, include func(*obj.Sym) bool) *Table {
	// Index symbols by name and break them up by section for address
	// indexing.
	name := make(map[string]obj.SymID)
	sectionSyms := map[*obj.Section][]obj.SymID{nil: {}}
	for i := range syms {
		s := &syms[i]
		if include != nil && !include(s) {
			continue
		}
		if !s.Local() {
			name[s.Name] = obj.SymID(i)
		}
		// Symbols of size 0 can't be the result of an address
		// lookup.
		if s.Section != nil && s.Size != 0 {
			section := s.Section
			if section.Mapped() {
				// All mapped sections are indexed under "nil".
				section = nil
			}
			sectionSyms[section] = append(sectionSyms[section], obj.SymID(i))
		}
	}

	sections := make(map[*obj.Section]*imap.Imap[obj.SymID])
	for section, symIDs := range sectionSyms {
		sections[section] = makeAddrIndex(syms, symIDs)
	}

	return &Table{syms, sections, name}
}

func makeAddrIndex(syms []obj.Sym, ids []obj.SymID) *imap.Imap[obj.SymID] {
	// Sort by priority, lowest first, so higher priority symbols
	// overwrite lower priority ones as we insert them. See Addr for
	// the rules of disambiguation.
	sort.Slice(ids, func(i, j int) bool {
		si, sj := &syms[ids[i]], &syms[ids[j]]

		// Later starting addresses win.
		if si.Value != sj.Value {
			return si.Value < sj.Value
		}

		// Then size, preferring smaller symbols.
		if si.Size != sj.Size {
			return si.Size > sj.Size
		}

		// Then by index, which is guaranteed to be unique. In ELF
		// files with both a static and a dynamic table, this prefers
		// static symbols.
		return ids[i] > ids[j]
	})

	m := new(imap.Imap[obj.SymID])
	for _, id := range ids {
		sym := &syms[id]
		high := sym.Value + sym.Size
		if high < sym.Value {
			// Clamp symbols that wrap the address space.
			high = ^uint64(0)
		}
		m.Insert(imap.Interval{Low: sym.Value, High: high}, id)
	}
	return m
}

// Syms returns all symbols in Table. The returned slice can be
// indexed by SymID. The caller must not modify the returned slice.
func (t *Table) Syms() []obj.Sym {
	return t.syms
}

// Name returns the (global) symbol with the given name, or obj.NoSym.
// This symbol may not be unique.
func (t *Table) Name(name string) obj.SymID {
	if i, ok := t.name[name]; ok {
		return i
	}
	return obj.NoSym
}

// Addr returns the symbol containing addr in section, or obj.NoSym.
//
// If section is nil or a mapped section, Addr considers symbols in all
// mapped sections.
//
// This symbol may not be unique, in which case Addr prioritizes the
// symbol with the latest starting address, followed by the symbol with
// the smallest size, followed by the lowest SymID.
func (t *Table) Addr(section *obj.Section, addr uint64) obj.SymID {
	if section != nil && section.Mapped() {
		section = nil
	}
	m, ok := t.sections[section]
	if !ok {
		return obj.NoSym
	}
	_, id, ok := m.Find(addr)
	if !ok {
		return obj.NoSym
	}
	return id
}
