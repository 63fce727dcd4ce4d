// Copyright 2021 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build linux || darwin

package dl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openNative(t *testing.T) *Native {
	t.Helper()
	n, err := OpenNative()
	if err != nil {
		t.Skipf("no dynamic linker interface: %v", err)
	}
	t.Cleanup(func() { n.Close() })
	return n
}

func TestNativeNotFound(t *testing.T) {
	n := openNative(t)
	_, err := n.Sym("symbol_not_defined_by_anything_4096")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestNativeRoundTrip(t *testing.T) {
	n := openNative(t)
	addr, err := n.Sym("dladdr")
	require.NoError(t, err)

	info, err := n.Addr(addr)
	require.NoError(t, err)
	assert.NotEmpty(t, info.FName)
	assert.NotZero(t, info.SAddr)
	assert.LessOrEqual(t, info.SAddr, addr)
	assert.LessOrEqual(t, info.FBase, info.SAddr)
}

func TestNativePreloadMissing(t *testing.T) {
	openNative(t)
	_, err := OpenNative("/nonexistent/libdladdr-test-missing.so")
	var dlErr *Error
	require.ErrorAs(t, err, &dlErr)
	assert.Equal(t, "dlopen", dlErr.Op)
}
