// Copyright 2021 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build !(linux || darwin)

package dl

import (
	"fmt"
	"runtime"
)

// Native resolves symbols with the dynamic linker of the running
// process. It is not supported on this platform.
type Native struct{}

// OpenNative reports that the platform has no supported dynamic
// linker interface.
func OpenNative(preload ...string) (*Native, error) {
	return nil, &Error{Op: "dlopen", Err: fmt.Errorf("not supported on %s", runtime.GOOS)}
}

func (n *Native) Sym(name string) (uint64, error) {
	return 0, &Error{Op: "dlsym", Name: name, Err: ErrNotFound}
}

func (n *Native) Addr(addr uint64) (Info, error) {
	return Info{}, &Error{Op: "dladdr", Addr: addr, Err: ErrNoObject}
}

func (n *Native) Close() error { return nil }
