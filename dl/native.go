// Copyright 2021 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build linux || darwin

package dl

import (
	"runtime"
	"unsafe"

	"github.com/ebitengine/purego"
)

// dlInfo mirrors the C library's Dl_info.
type dlInfo struct {
	fname *byte
	fbase uintptr
	sname *byte
	saddr uintptr
}

// libcPaths lists the libraries that may provide dladdr, in the order
// to try them.
func libcPaths() []string {
	if runtime.GOOS == "darwin" {
		return []string{"/usr/lib/libSystem.B.dylib"}
	}
	// Since glibc 2.34, dladdr lives in libc itself.
	return []string{"libc.so.6", "libdl.so.2", "libc.so"}
}

// Native resolves symbols with the dynamic linker of the running
// process.
type Native struct {
	handles []uintptr
	dladdr  func(addr uintptr, info *dlInfo) int32
}

// OpenNative loads the shared objects at preload with global symbol
// visibility, so that their symbols are found by Sym, and returns a
// Native resolver.
func OpenNative(preload ...string) (*Native, error) {
	n := new(Native)
	var lastErr error
	for _, path := range libcPaths() {
		lib, err := purego.Dlopen(path, purego.RTLD_NOW|purego.RTLD_GLOBAL)
		if err != nil {
			lastErr = err
			continue
		}
		fn, err := purego.Dlsym(lib, "dladdr")
		if err != nil {
			lastErr = err
			purego.Dlclose(lib)
			continue
		}
		purego.RegisterFunc(&n.dladdr, fn)
		n.handles = append(n.handles, lib)
		break
	}
	if n.dladdr == nil {
		return nil, &Error{Op: "dlsym", Name: "dladdr", Err: ErrNotFound, Detail: errDetail(lastErr)}
	}

	for _, path := range preload {
		lib, err := purego.Dlopen(path, purego.RTLD_NOW|purego.RTLD_GLOBAL)
		if err != nil {
			n.Close()
			return nil, &Error{Op: "dlopen", Name: path, Err: err}
		}
		n.handles = append(n.handles, lib)
	}
	return n, nil
}

func errDetail(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// Sym looks name up with dlsym(RTLD_DEFAULT, name).
func (n *Native) Sym(name string) (uint64, error) {
	addr, err := purego.Dlsym(purego.RTLD_DEFAULT, name)
	if err != nil || addr == 0 {
		return 0, &Error{Op: "dlsym", Name: name, Err: ErrNotFound, Detail: errDetail(err)}
	}
	return uint64(addr), nil
}

// Addr describes addr with dladdr.
func (n *Native) Addr(addr uint64) (Info, error) {
	var info dlInfo
	if n.dladdr(uintptr(addr), &info) == 0 {
		return Info{}, &Error{Op: "dladdr", Addr: addr, Err: ErrNoObject}
	}
	return Info{
		FName: cString(info.fname),
		FBase: uint64(info.fbase),
		SName: cString(info.sname),
		SAddr: uint64(info.saddr),
	}, nil
}

// Close unloads the objects n loaded.
func (n *Native) Close() error {
	var first error
	for i := len(n.handles) - 1; i >= 0; i-- {
		if err := purego.Dlclose(n.handles[i]); err != nil && first == nil {
			first = &Error{Op: "dlclose", Err: err}
		}
	}
	n.handles = nil
	return first
}

// cString copies the NUL-terminated C string at p.
func cString(p *byte) string {
	if p == nil {
		return ""
	}
	n := 0
	for *(*byte)(unsafe.Add(unsafe.Pointer(p), n)) != 0 {
		n++
	}
	return string(unsafe.Slice(p, n))
}
