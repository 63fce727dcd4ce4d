// Copyright 2021 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package dl resolves symbol names to addresses and addresses back to
// symbols, the way a dynamic linker's dlsym and dladdr do.
//
// Native queries the dynamic linker of the running process. Space
// simulates one from ELF images or assembler source, placing each
// object at its own load base.
package dl

import (
	"errors"
	"fmt"
)

// A Resolver looks up symbols in a set of loaded objects.
type Resolver interface {
	// Sym returns the address of the named symbol, searching all
	// loaded objects in load order. If no object defines name, it
	// returns an *Error wrapping ErrNotFound.
	Sym(name string) (uint64, error)

	// Addr describes the object and symbol containing addr. If no
	// loaded object contains addr, it returns an *Error wrapping
	// ErrNoObject. If an object contains addr but no symbol does,
	// the returned Info has an empty SName.
	Addr(addr uint64) (Info, error)
}

// Info describes an address, like the C library's Dl_info.
type Info struct {
	// FName is the path of the object containing the address.
	FName string
	// FBase is the load base of that object.
	FBase uint64
	// SName is the name of the symbol containing the address, or ""
	// if there is none.
	SName string
	// SAddr is the address of that symbol, or 0 if there is none.
	SAddr uint64
}

func (i Info) String() string {
	if i.SName == "" {
		return fmt.Sprintf("%s@%#x (no symbol)", i.FName, i.FBase)
	}
	return fmt.Sprintf("%s@%#x %s@%#x", i.FName, i.FBase, i.SName, i.SAddr)
}

var (
	// ErrNotFound indicates no loaded object defines a symbol.
	ErrNotFound = errors.New("symbol not found")

	// ErrNoObject indicates no loaded object contains an address.
	ErrNoObject = errors.New("address not in any loaded object")
)

// An Error records a failed dynamic linker operation.
type Error struct {
	// Op is the operation, such as "dlopen", "dlsym" or "dladdr".
	Op string
	// Name is the symbol or object name, if any.
	Name string
	// Addr is the address looked up by dladdr.
	Addr uint64
	// Detail is the dynamic linker's own message, if any.
	Detail string
	Err    error
}

func (e *Error) Error() string {
	var msg string
	switch {
	case e.Op == "dladdr":
		msg = fmt.Sprintf("dladdr %#x: %v", e.Addr, e.Err)
	case e.Name == "":
		msg = fmt.Sprintf("%s: %v", e.Op, e.Err)
	default:
		msg = fmt.Sprintf("%s %s: %v", e.Op, e.Name, e.Err)
	}
	if e.Detail != "" {
		msg += " (" + e.Detail + ")"
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}
