// Copyright 2021 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asm

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// A Unit is parsed assembler source for a single section.
type Unit struct {
	// Section is the name of the section symbols are defined in.
	Section string

	// Symbols lists labels in source order. Align is the last
	// .p2align before the label.
	Symbols []Symbol

	ops []op
}

type opKind uint8

const (
	opAlign opKind = iota
	opLabel
	opZero
)

// op is one location-counter effect, in source order.
type op struct {
	kind opKind
	n    uint64 // alignment exponent, symbol index or byte count
}

// A SyntaxError reports source that Parse does not understand.
type SyntaxError struct {
	Line int
	Msg  string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Msg)
}

// Parse reads the directives written by Emitter: .section, .globl,
// .p2align, .type, .size, labels and .zero, along with comments and
// blank lines. Anything else is an error.
func Parse(r io.Reader) (*Unit, error) {
	p := parser{u: &Unit{}, index: make(map[string]int)}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(nil, 1<<20)
	for scanner.Scan() {
		p.line++
		if err := p.parseLine(scanner.Text()); err != nil {
			return nil, err
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if p.inComment {
		return nil, p.errorf("unterminated comment")
	}
	for _, ref := range p.refs {
		i, ok := p.index[ref.name]
		if !ok {
			return nil, &SyntaxError{ref.line, fmt.Sprintf("%s of undefined symbol %s", ref.directive, ref.name)}
		}
		sym := &p.u.Symbols[i]
		switch ref.directive {
		case ".size":
			sym.Size = ref.n
		case ".type":
			sym.Object = true
		default:
			sym.Global = true
		}
	}
	return p.u, nil
}

// A symbolRef is a directive naming a symbol.
type symbolRef struct {
	directive string
	name      string
	line      int
	n         uint64 // .size only
}

type parser struct {
	u         *Unit
	line      int
	inComment bool
	align     uint32

	// index maps label names to indexes in u.Symbols.
	index map[string]int
	// Directives may name a symbol before its label, so refs are
	// resolved at the end, in source order.
	refs []symbolRef
}

func (p *parser) ref(directive, name string, n uint64) {
	p.refs = append(p.refs, symbolRef{directive, name, p.line, n})
}

func (p *parser) errorf(format string, args ...any) error {
	return &SyntaxError{p.line, fmt.Sprintf(format, args...)}
}

func (p *parser) stripComments(line string) string {
	var out strings.Builder
	for line != "" {
		if p.inComment {
			end := strings.Index(line, "*/")
			if end < 0 {
				return out.String()
			}
			p.inComment = false
			line = line[end+2:]
			continue
		}
		start := strings.Index(line, "/*")
		hash := strings.IndexByte(line, '#')
		if hash >= 0 && (start < 0 || hash < start) {
			out.WriteString(line[:hash])
			return out.String()
		}
		if start < 0 {
			out.WriteString(line)
			return out.String()
		}
		out.WriteString(line[:start])
		out.WriteByte(' ')
		p.inComment = true
		line = line[start+2:]
	}
	return out.String()
}

func (p *parser) parseLine(line string) error {
	line = strings.TrimSpace(p.stripComments(line))
	if line == "" {
		return nil
	}

	if name, ok := strings.CutSuffix(line, ":"); ok {
		if !isSymbolName(name) {
			return p.errorf("bad label %q", name)
		}
		if p.u.Section == "" {
			return p.errorf("label %s outside of any section", name)
		}
		if _, dup := p.index[name]; dup {
			return p.errorf("symbol %s is already defined", name)
		}
		p.index[name] = len(p.u.Symbols)
		p.u.ops = append(p.u.ops, op{opLabel, uint64(len(p.u.Symbols))})
		p.u.Symbols = append(p.u.Symbols, Symbol{Name: name, Align: p.align})
		p.align = 0
		return nil
	}

	directive, args := line, ""
	if i := strings.IndexAny(line, " \t"); i >= 0 {
		directive, args = line[:i], strings.TrimSpace(line[i:])
	}
	switch directive {
	case ".section":
		name, _, _ := strings.Cut(args, ",")
		name = strings.TrimSpace(name)
		if name == "" {
			return p.errorf(".section needs a name")
		}
		if p.u.Section != "" && p.u.Section != name {
			return p.errorf("switching to section %s: only one section is supported (have %s)", name, p.u.Section)
		}
		p.u.Section = name
	case ".globl", ".global":
		if !isSymbolName(args) {
			return p.errorf("bad symbol name %q", args)
		}
		p.ref(directive, args, 0)
	case ".p2align":
		n, err := p.number(args)
		if err != nil {
			return err
		}
		if n >= 64 {
			return p.errorf("alignment 2^%d too large", n)
		}
		p.align = uint32(n)
		p.u.ops = append(p.u.ops, op{opAlign, n})
	case ".type":
		name, typ, ok := splitPair(args)
		if !ok || !isSymbolName(name) {
			return p.errorf("bad .type arguments %q", args)
		}
		switch typ {
		case "@object", "%object", "STT_OBJECT":
			p.ref(".type", name, 0)
		default:
			return p.errorf("unsupported symbol type %s", typ)
		}
	case ".size":
		name, size, ok := splitPair(args)
		if !ok || !isSymbolName(name) {
			return p.errorf("bad .size arguments %q", args)
		}
		n, err := p.number(size)
		if err != nil {
			return err
		}
		p.ref(".size", name, n)
	case ".zero":
		n, err := p.number(args)
		if err != nil {
			return err
		}
		if p.u.Section == "" {
			return p.errorf(".zero outside of any section")
		}
		p.u.ops = append(p.u.ops, op{opZero, n})
	default:
		return p.errorf("unsupported directive %s", directive)
	}
	return nil
}

func (p *parser) number(s string) (uint64, error) {
	n, err := strconv.ParseUint(s, 0, 64)
	if err != nil {
		return 0, p.errorf("bad number %q", s)
	}
	return n, nil
}

func splitPair(args string) (a, b string, ok bool) {
	a, b, ok = strings.Cut(args, ",")
	return strings.TrimSpace(a), strings.TrimSpace(b), ok
}

func isSymbolName(s string) bool {
	if s == "" || (s[0] >= '0' && s[0] <= '9') {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '_', c == '.', c == '$':
		default:
			return false
		}
	}
	return true
}
