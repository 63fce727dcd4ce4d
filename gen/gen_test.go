// Copyright 2021 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gen

import (
	"errors"
	"strings"
	"testing"

	"github.com/opteya/dladdr-test/asm"
	"github.com/opteya/dladdr-test/sample"
)

func generate(t *testing.T, opts Options, src sample.Source, base string, size uint64) (string, Summary) {
	t.Helper()
	g, err := New(opts, sample.New(src))
	if err != nil {
		t.Fatalf("New failed unexpectedly: %v", err)
	}
	var buf strings.Builder
	sum, err := g.Generate(&buf, base, size)
	if err != nil {
		t.Fatalf("Generate failed unexpectedly: %v", err)
	}
	return buf.String(), sum
}

func TestGenerateKnown(t *testing.T) {
	for seed := uint64(0); seed < 20; seed++ {
		out, sum := generate(t, DefaultOptions(), sample.NewPCG(seed), "t", 4096)

		if n := strings.Count(out, "\nt4096:\n"); n != 1 {
			t.Errorf("seed %d: want exactly one t4096 label, got %d", seed, n)
		}
		if !strings.Contains(out, "\t.size  t4096, 4096\n") {
			t.Errorf("seed %d: missing .size for t4096", seed)
		}
		if sum.Known.Name != "t4096" || sum.Known.Size != 4096 {
			t.Errorf("seed %d: want known t4096 of size 4096, got %s", seed, sum.Known)
		}
		if sum.Before > DefaultMaxPadding || sum.After > DefaultMaxPadding {
			t.Errorf("seed %d: padding %d/%d above %d", seed, sum.Before, sum.After, DefaultMaxPadding)
		}

		u, err := asm.Parse(strings.NewReader(out))
		if err != nil {
			t.Fatalf("seed %d: generated source does not parse: %v", seed, err)
		}
		if u.Section != ".rodata" {
			t.Errorf("seed %d: want section .rodata, got %s", seed, u.Section)
		}
		if got, want := len(u.Symbols), int(sum.Before+sum.After+1); got != want {
			t.Fatalf("seed %d: want %d symbols, got %d", seed, want, got)
		}
		if u.Symbols[sum.Before].Name != "t4096" {
			t.Errorf("seed %d: want t4096 after %d neighbors, got %s", seed, sum.Before, u.Symbols[sum.Before].Name)
		}
		for i, sym := range u.Symbols {
			if i == int(sum.Before) {
				continue
			}
			if !strings.HasPrefix(sym.Name, "t4096_") {
				t.Errorf("seed %d: neighbor %s lacks prefix t4096_", seed, sym.Name)
			}
		}
	}
}

func TestGeneratePaddingRange(t *testing.T) {
	// The extremes of the padding draw.
	for _, test := range []struct {
		opts      Options
		draw      uint32
		wantCount uint32
	}{
		{DefaultOptions(), 0, 0},
		{DefaultOptions(), DefaultMaxPadding, DefaultMaxPadding},
		{Options{MinPadding: 4, MaxPadding: 4, Section: ".rodata"}, 9, 4},
		{Options{MinPadding: 2, MaxPadding: 10, Section: ".rodata"}, 8, 10},
	} {
		// The same value answers every draw. A draw of 0 yields
		// empty names and alignment 0, which is fine here.
		src := &sample.Sequence{Values: []uint32{test.draw}}
		_, sum := generate(t, test.opts, src, "p", 1)
		if sum.Before != test.wantCount || sum.After != test.wantCount {
			t.Errorf("%+v with draws of %d: want %d on each side, got %d/%d",
				test.opts, test.draw, test.wantCount, sum.Before, sum.After)
		}
	}
}

func TestGenerateSection(t *testing.T) {
	opts := DefaultOptions()
	opts.Section = ".data.rel.ro"
	out, _ := generate(t, opts, sample.NewPCG(1), "s", 8)
	if !strings.Contains(out, " */\n\t.section .data.rel.ro\n") {
		t.Errorf("missing section directive in:\n%s", out)
	}
}

func TestGenerateDeterministic(t *testing.T) {
	a, _ := generate(t, DefaultOptions(), sample.NewLrand48(99), "d", 16)
	b, _ := generate(t, DefaultOptions(), sample.NewLrand48(99), "d", 16)
	if a != b {
		t.Errorf("same seed produced different output")
	}
}

func TestOptionsValidate(t *testing.T) {
	for _, test := range []struct {
		opts Options
		want string
	}{
		{Options{MinPadding: 5, MaxPadding: 4, Section: ".rodata"}, "exceeds maximum"},
		{Options{MaxPadding: 4}, "empty section"},
	} {
		if _, err := New(test.opts, sample.New(sample.NewPCG(0))); err == nil || !strings.Contains(err.Error(), test.want) {
			t.Errorf("%+v: want error containing %q, got %v", test.opts, test.want, err)
		}
	}
}

func TestGenerateLongBase(t *testing.T) {
	g, err := New(DefaultOptions(), sample.New(sample.NewPCG(0)))
	if err != nil {
		t.Fatal(err)
	}
	var buf strings.Builder
	if _, err := g.Generate(&buf, strings.Repeat("b", MaxBaseLen+1), 1); err == nil {
		t.Errorf("overlong base name accepted")
	}
	if buf.Len() != 0 {
		t.Errorf("output written for rejected base name")
	}
	if _, err := g.Generate(&buf, strings.Repeat("b", MaxBaseLen), ^uint64(0)); err != nil {
		t.Errorf("longest base name rejected: %v", err)
	}
}

type brokenWriter struct{}

var errBroken = errors.New("broken pipe")

func (brokenWriter) Write([]byte) (int, error) { return 0, errBroken }

func TestGenerateWriteError(t *testing.T) {
	g, err := New(DefaultOptions(), sample.New(sample.NewPCG(0)))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := g.Generate(brokenWriter{}, "w", 1); !errors.Is(err, errBroken) {
		t.Errorf("want %v, got %v", errBroken, err)
	}
}

func TestKnownName(t *testing.T) {
	for _, test := range []struct {
		base string
		size uint64
		want string
	}{
		{"symbol", 1, "symbol1"},
		{"t", 4096, "t4096"},
		{"x", 0, "x0"},
		{"max", ^uint64(0), "max18446744073709551615"},
	} {
		if got := KnownName(test.base, test.size); got != test.want {
			t.Errorf("KnownName(%q, %d): want %s, got %s", test.base, test.size, test.want, got)
		}
	}
}
