// Copyright 2021 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package verify checks that a resolver maps addresses inside
// power-of-two sized symbols back to the exact symbol.
//
// For each size i = 1, 2, 4, ... the symbol named Prefix followed by i
// in decimal is looked up by name, and the address i/2 bytes into it
// is resolved back. The resolver must return that symbol's name and
// start address. The first missing symbol ends the sweep.
package verify

import (
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/opteya/dladdr-test/dl"
)

// DefaultPrefix is the name prefix of the symbols a sweep checks.
const DefaultPrefix = "symbol"

// Options control a sweep.
type Options struct {
	// Prefix is the symbol name prefix. If empty, DefaultPrefix is
	// used.
	Prefix string

	// Max is the largest size to check. If 0, every size up to
	// math.MaxUint64 is checked.
	Max uint64

	// Check, if not nil, is called after each successful check.
	Check func(Check)
}

// A Check records one verified symbol.
type Check struct {
	Name   string
	Addr   uint64
	Offset uint64
	Info   dl.Info
}

// A Report summarizes a sweep that found no violation.
type Report struct {
	// Checked lists the verified symbols, smallest first.
	Checked []Check

	// Stop is the first symbol that was not found, and StopReason
	// says why. Stop is empty if the sweep ran through Max.
	Stop       string
	StopReason string
}

// Kind classifies a violation.
type Kind uint8

const (
	// Unresolvable means the address was in no loaded object.
	Unresolvable Kind = iota + 1
	// NameMissing means the address resolved to no symbol.
	NameMissing
	// NameMismatch means the address resolved to another symbol.
	NameMismatch
	// AddrMismatch means the address resolved to the right name with
	// another start address.
	AddrMismatch
)

var (
	ErrUnresolvable = errors.New("address not resolvable")
	ErrNameMissing  = errors.New("name is missing")
	ErrNameMismatch = errors.New("name mismatch")
	ErrAddrMismatch = errors.New("addr mismatch")
)

var kindErrs = [...]error{
	Unresolvable: ErrUnresolvable,
	NameMissing:  ErrNameMissing,
	NameMismatch: ErrNameMismatch,
	AddrMismatch: ErrAddrMismatch,
}

func (k Kind) String() string {
	if int(k) < len(kindErrs) && kindErrs[k] != nil {
		return kindErrs[k].Error()
	}
	return "Kind(" + strconv.Itoa(int(k)) + ")"
}

// A Violation is a resolver answer that contradicts the symbol it was
// asked about.
type Violation struct {
	Kind   Kind
	Name   string
	Addr   uint64
	Offset uint64
	// Info is what the resolver returned, if it succeeded.
	Info dl.Info
	// Err is the resolver error for Unresolvable violations.
	Err error
}

func (v *Violation) Error() string {
	prefix := fmt.Sprintf("%s!%#x+%#x", v.Name, v.Addr, v.Offset)
	switch v.Kind {
	case Unresolvable:
		return fmt.Sprintf("%s: %v", prefix, v.Err)
	case NameMismatch:
		return fmt.Sprintf("%s: %v: %s", prefix, v.Kind, v.Info.SName)
	case AddrMismatch:
		return fmt.Sprintf("%s: %v: %#x", prefix, v.Kind, v.Info.SAddr)
	}
	return fmt.Sprintf("%s: %v", prefix, v.Kind)
}

// Is makes errors.Is(v, ErrNameMismatch) and the like report the kind
// of v.
func (v *Violation) Is(target error) bool {
	return int(v.Kind) < len(kindErrs) && kindErrs[v.Kind] == target
}

func (v *Violation) Unwrap() error {
	return v.Err
}

// Sweep checks the symbols Prefix1, Prefix2, Prefix4, ... against r.
//
// A symbol that r does not find ends the sweep without error. A wrong
// answer ends it with a *Violation.
func Sweep(r dl.Resolver, opts Options) (Report, error) {
	prefix := opts.Prefix
	if prefix == "" {
		prefix = DefaultPrefix
	}
	max := opts.Max
	if max == 0 {
		max = math.MaxUint64
	}

	var rep Report
	for i := uint64(1); i <= max; i *= 2 {
		name := prefix + strconv.FormatUint(i, 10)
		addr, err := r.Sym(name)
		if err != nil {
			rep.Stop, rep.StopReason = name, err.Error()
			return rep, nil
		}

		c := Check{Name: name, Addr: addr, Offset: i / 2}
		if err := check(r, &c); err != nil {
			return rep, err
		}
		rep.Checked = append(rep.Checked, c)
		if opts.Check != nil {
			opts.Check(c)
		}

		if i > max/2 {
			// Doubling would pass max or overflow.
			break
		}
	}
	return rep, nil
}

func check(r dl.Resolver, c *Check) error {
	v := &Violation{Name: c.Name, Addr: c.Addr, Offset: c.Offset}
	info, err := r.Addr(c.Addr + c.Offset)
	if err != nil {
		v.Kind, v.Err = Unresolvable, err
		return v
	}
	c.Info, v.Info = info, info
	switch {
	case info.SName == "":
		v.Kind = NameMissing
	case info.SName != c.Name:
		v.Kind = NameMismatch
	case info.SAddr != c.Addr:
		v.Kind = AddrMismatch
	default:
		return nil
	}
	return v
}

// Run performs count sweeps and returns the report of the last one.
// It stops at the first violation.
func Run(r dl.Resolver, opts Options, count uint64) (Report, error) {
	var rep Report
	for n := uint64(0); n < count; n++ {
		var err error
		rep, err = Sweep(r, opts)
		if err != nil {
			return rep, fmt.Errorf("sweep %d: %w", n+1, err)
		}
	}
	return rep, nil
}
