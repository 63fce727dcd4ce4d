// Copyright 2021 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package obj

import (
	"bytes"
	"errors"
	"testing"
)

func TestOpenNonObject(t *testing.T) {
	for _, data := range []string{"AAA", "", "\x7fELX and some more"} {
		_, err := Open(bytes.NewReader([]byte(data)))
		if !errors.Is(err, ErrUnrecognized) {
			t.Errorf("Open(%q): want %v, got %v", data, ErrUnrecognized, err)
		}
	}
}

func TestSymDataUndefined(t *testing.T) {
	undef := Sym{Name: "u", Value: 0x1010, Size: 4, Kind: SymUndef}
	_, err := undef.Data(undef.Bounds())
	var noData *ErrNoData
	if !errors.As(err, &noData) {
		t.Fatalf("Data of undefined symbol: want *ErrNoData, got %v", err)
	}
	if want := "no data: undefined symbol"; err.Error() != want {
		t.Errorf("want %q, got %q", want, err.Error())
	}
}

func TestSectionDataUnbacked(t *testing.T) {
	sect := &Section{Name: ".rodata", Addr: 0x1000, Size: 0x100}
	sym := Sym{Name: "x", Section: sect, Value: 0x1010, Size: 4, Kind: SymROData}
	var noData *ErrNoData
	if _, err := sym.Data(sym.Bounds()); !errors.As(err, &noData) {
		t.Errorf("Data of a symbol in a section without a file: want *ErrNoData, got %v", err)
	}
}

func TestSymFlagsString(t *testing.T) {
	var f SymFlags
	if got := f.String(); got != "{}" {
		t.Errorf("empty flags: want {}, got %s", got)
	}
	f.SetLocal(true)
	f.SetObject(true)
	if got, want := f.String(), "{Local,Object}"; got != want {
		t.Errorf("want %s, got %s", want, got)
	}
	f.SetLocal(false)
	f.SetDynamic(true)
	if got, want := f.String(), "{Dynamic,Object}"; got != want {
		t.Errorf("want %s, got %s", want, got)
	}
}
