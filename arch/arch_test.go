// Copyright 2021 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package arch

import (
	"runtime"
	"testing"
	"unsafe"
)

func TestHost(t *testing.T) {
	a := Host()
	if a.GoArch != runtime.GOARCH {
		t.Errorf("want GOARCH %s, got %s", runtime.GOARCH, a.GoArch)
	}
	if want := int(unsafe.Sizeof(uintptr(0))); a.PtrSize() != want {
		t.Errorf("want pointer size %d, got %d", want, a.PtrSize())
	}
	if want := uint64(^uintptr(0)); a.MaxAddr() != want {
		t.Errorf("want max address %#x, got %#x", want, a.MaxAddr())
	}
}

func TestLookup(t *testing.T) {
	if got := Lookup("386"); got != I386 {
		t.Errorf("want %v, got %v", I386, got)
	}
	if got := I386.MaxAddr(); got != 1<<32-1 {
		t.Errorf("386 max address: want %#x, got %#x", uint64(1<<32-1), got)
	}
	if got := Lookup("vax"); got != nil {
		t.Errorf("want nil for unknown arch, got %v", got)
	}
}
