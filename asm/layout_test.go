// Copyright 2021 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asm

import (
	"strings"
	"testing"

	"github.com/opteya/dladdr-test/obj"
)

const layoutSrc = `	.section .rodata
	.globl a
	.p2align 4
	.type a, @object
	.size a, 3
a:
	.zero 3

	.globl b
	.p2align 3
	.size b, 5
b:
	.zero 5
c:
	.zero 1
`

func TestLayout(t *testing.T) {
	u, err := Parse(strings.NewReader(layoutSrc))
	if err != nil {
		t.Fatal(err)
	}
	syms, section, err := u.Layout(0x1001)
	if err != nil {
		t.Fatalf("Layout failed unexpectedly: %v", err)
	}

	if section.Addr != 0x1010 || section.Size != 0xe {
		t.Errorf("want section [0x1010,+0xe), got [%#x,+%#x)", section.Addr, section.Size)
	}
	if !section.Mapped() || !section.ReadOnly() {
		t.Errorf("want mapped read-only section, got %v", section.SectionFlags)
	}

	for i, want := range []struct {
		name   string
		addr   uint64
		size   uint64
		local  bool
		object bool
	}{
		{"a", 0x1010, 3, false, true},
		{"b", 0x1018, 5, false, false},
		{"c", 0x101d, 0, true, false},
	} {
		got := syms[i]
		if got.Name != want.name || got.Value != want.addr || got.Size != want.size {
			t.Errorf("symbol %d: want %s [%#x,+%d), got %s [%#x,+%d)", i, want.name, want.addr, want.size, got.Name, got.Value, got.Size)
		}
		if got.Local() != want.local || got.Object() != want.object {
			t.Errorf("symbol %s: want local=%v object=%v, got %v", got.Name, want.local, want.object, got.SymFlags)
		}
		if got.Kind != obj.SymROData || got.Section != section {
			t.Errorf("symbol %s: want read-only data in %s, got %s in %s", got.Name, section, got.Kind, got.Section)
		}
	}
}

func TestLayoutSectionKinds(t *testing.T) {
	for _, test := range []struct {
		section string
		want    obj.SymKind
	}{
		{".rodata", obj.SymROData},
		{".rodata.cst16", obj.SymROData},
		{".bss", obj.SymBSS},
		{".data", obj.SymData},
		{".text", obj.SymText},
	} {
		u, err := Parse(strings.NewReader("\t.section " + test.section + "\nx:\n\t.zero 1\n"))
		if err != nil {
			t.Fatal(err)
		}
		syms, _, err := u.Layout(0)
		if err != nil {
			t.Fatal(err)
		}
		if syms[0].Kind != test.want {
			t.Errorf("section %s: want kind %s, got %s", test.section, test.want, syms[0].Kind)
		}
	}
}

func TestLayoutErrors(t *testing.T) {
	for _, test := range []struct {
		src  string
		base uint64
		want string
	}{
		{"\t.section .rodata\n\t.p2align 4\nx:\n", ^uint64(0) - 3, "cannot align"},
		{"\t.section .rodata\nx:\n\t.zero 0xffffffffffffffff\n", 0x10, "overflows"},
		{"\t.section .rodata\n\t.size x, 9\nx:\n\t.zero 8\n", 0, "extends past the end"},
	} {
		u, err := Parse(strings.NewReader(test.src))
		if err != nil {
			t.Fatal(err)
		}
		_, _, err = u.Layout(test.base)
		if err == nil || !strings.Contains(err.Error(), test.want) {
			t.Errorf("Layout(%q at %#x): want error containing %q, got %v", test.src, test.base, test.want, err)
		}
	}
}
