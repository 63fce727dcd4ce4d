// Copyright 2021 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asm

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/opteya/dladdr-test/sample"
)

func TestParseEmitted(t *testing.T) {
	var buf strings.Builder
	e := newTestEmitter(&buf, sample.NewPCG(5))
	e.Header()
	e.Section(".rodata")
	var want []Symbol
	for i := 0; i < 20; i++ {
		want = append(want, e.EmitRandom("t64"))
	}
	want = append(want, e.EmitKnown("t64", 64))
	if err := e.Flush(); err != nil {
		t.Fatal(err)
	}

	u, err := Parse(strings.NewReader(buf.String()))
	if err != nil {
		t.Fatalf("Parse failed unexpectedly: %v", err)
	}
	if u.Section != ".rodata" {
		t.Errorf("want section .rodata, got %q", u.Section)
	}
	if diff := cmp.Diff(want, u.Symbols, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("symbols mismatch (-want +got):\n%s", diff)
	}
}

func TestParseSyntax(t *testing.T) {
	src := `# leading comment
	.section .rodata, "a" /* flags */
	.p2align 3
plain:
	.zero	0x10
/* a comment
   spanning lines */ .p2align 1
	.type hidden,%object
hidden:
	.zero 2 # trailing
	.size hidden, 2
`
	u, err := Parse(strings.NewReader(src))
	if err != nil {
		t.Fatalf("Parse failed unexpectedly: %v", err)
	}
	want := []Symbol{
		{Name: "plain", Align: 3},
		{Name: "hidden", Align: 1, Size: 2, Object: true},
	}
	if diff := cmp.Diff(want, u.Symbols); diff != "" {
		t.Errorf("symbols mismatch (-want +got):\n%s", diff)
	}
}

func TestParseErrors(t *testing.T) {
	for _, test := range []struct {
		src      string
		wantLine int
		wantMsg  string
	}{
		{"\t.section .rodata\n\t.byte 1\n", 2, "unsupported directive .byte"},
		{"\t.section .rodata\n\t.zero lots\n", 2, `bad number "lots"`},
		{"\t.section .rodata\na:\na:\n", 3, "already defined"},
		{"\t.section .rodata\n\t.size b, 4\n", 2, ".size of undefined symbol b"},
		{"\t.section .rodata\n\t.globl b\n", 2, ".globl of undefined symbol b"},
		{"\t.section .rodata\n\t.type c, @object\n", 2, ".type of undefined symbol c"},
		// The first undefined reference in the source is reported.
		{"\t.section .rodata\n\t.type z, @object\n\t.globl y\n\t.size x, 1\n\t.size w, 2\n", 2, ".type of undefined symbol z"},
		{"\t.section .rodata\n\t.size a, 1\na:\n\t.globl q\n\t.size p, 2\n\t.type a, @object\n", 4, ".globl of undefined symbol q"},
		{"a:\n", 1, "outside of any section"},
		{"\t.section .rodata\n\t.section .data\n", 2, "only one section"},
		{"\t.section .rodata\n\t.p2align 64\n", 2, "too large"},
		{"\t.section .rodata\n\t.type a, @function\na:\n", 2, "unsupported symbol type"},
		{"/* open\n", 1, "unterminated comment"},
	} {
		_, err := Parse(strings.NewReader(test.src))
		var serr *SyntaxError
		if !errors.As(err, &serr) {
			t.Errorf("Parse(%q): want *SyntaxError, got %v", test.src, err)
			continue
		}
		if serr.Line != test.wantLine || !strings.Contains(serr.Msg, test.wantMsg) {
			t.Errorf("Parse(%q): want line %d containing %q, got %v", test.src, test.wantLine, test.wantMsg, err)
		}
	}
}
