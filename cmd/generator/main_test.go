// Copyright 2021 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opteya/dladdr-test/asm"
	"github.com/opteya/dladdr-test/internal/tool"
)

func runGenerator(args ...string) (code int, stdout, stderr string) {
	var out, errOut bytes.Buffer
	code = run(args, &out, &errOut)
	return code, out.String(), errOut.String()
}

func TestGenerate(t *testing.T) {
	// Given: a name and a size
	// When: generating
	code, out, errOut := runGenerator("t", "4096")

	// Then: the source defines exactly one t4096 of 4096 bytes
	require.Equal(t, tool.ExitOK, code, errOut)
	assert.Empty(t, errOut)
	assert.Equal(t, 1, strings.Count(out, "\nt4096:\n"))
	assert.Contains(t, out, "\t.size  t4096, 4096\n")
	assert.Contains(t, out, "\t.section .rodata\n")

	u, err := asm.Parse(strings.NewReader(out))
	require.NoError(t, err)
	assert.NotEmpty(t, u.Symbols)
}

func TestGenerateHexSize(t *testing.T) {
	code, out, errOut := runGenerator("t", "0x1000")
	require.Equal(t, tool.ExitOK, code, errOut)
	assert.Contains(t, out, "\nt4096:\n", "the known name uses the decimal size")
}

func TestGenerateSeed(t *testing.T) {
	_, a, _ := runGenerator("--seed", "1234", "s", "8")
	_, b, _ := runGenerator("--seed", "1234", "s", "8")
	_, c, _ := runGenerator("--seed", "1235", "s", "8")
	assert.Equal(t, a, b, "same seed, same output")
	assert.NotEqual(t, a, c, "different seed, different output")
}

func TestGeneratePadding(t *testing.T) {
	code, out, errOut := runGenerator("--min-padding", "3", "--max-padding", "3", "--section", ".data", "p", "16")
	require.Equal(t, tool.ExitOK, code, errOut)

	u, err := asm.Parse(strings.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, ".data", u.Section)
	require.Len(t, u.Symbols, 7)
	assert.Equal(t, "p16", u.Symbols[3].Name)
}

func TestGenerateOutputFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.s")
	code, out, errOut := runGenerator("-o", path, "f", "1")
	require.Equal(t, tool.ExitOK, code, errOut)
	assert.Empty(t, out)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "\nf1:\n")
}

func TestGenerateDebugLog(t *testing.T) {
	code, _, errOut := runGenerator("--log-level", "debug", "--seed", "1", "d", "2")
	require.Equal(t, tool.ExitOK, code, errOut)
	assert.Contains(t, errOut, `"known":"d2"`)
	assert.Contains(t, errOut, `"seed":"1"`)
}

func TestGenerateIgnoresVerifierSettings(t *testing.T) {
	t.Setenv("DLADDR_BACKEND", "gdb")
	code, out, errOut := runGenerator("v", "4")
	require.Equal(t, tool.ExitOK, code, errOut)
	assert.Contains(t, out, "\nv4:\n")
}

func TestGenerateUsageErrors(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"invalid size", []string{"foo", "abc"}, "abc: invalid size"},
		{"empty size", []string{"foo", ""}, `"": invalid size`},
		{"trailing garbage", []string{"foo", "12k"}, "12k: invalid size"},
		{"negative size", []string{"--", "foo", "-1"}, "-1: invalid size"},
		{"out of range", []string{"foo", "18446744073709551616"}, "18446744073709551616: value out of range"},
		{"too few arguments", []string{"foo"}, "accepts 2 arg(s), received 1"},
		{"too many arguments", []string{"foo", "1", "2"}, "accepts 2 arg(s), received 3"},
		{"padding order", []string{"--min-padding", "5", "--max-padding", "4", "foo", "1"}, "minimum padding 5 exceeds maximum padding 4"},
		{"bad seed", []string{"--seed", "x", "foo", "1"}, "x: invalid size"},
		{"bad log level", []string{"--log-level", "loud", "foo", "1"}, "unknown log level"},
		{"long name", []string{strings.Repeat("n", 1024), "1"}, "is longer than"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, out, errOut := runGenerator(tt.args...)
			assert.Equal(t, tool.ExitUsage, code)
			assert.Empty(t, out, "nothing may reach standard output")
			assert.Contains(t, errOut, tt.wantErr)
		})
	}
}
