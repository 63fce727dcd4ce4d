// Copyright 2021 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseLevel(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseLevel("verbose")
	assert.ErrorContains(t, err, `unknown log level "verbose"`)
}

func TestSetupAutoIsJSONForBuffers(t *testing.T) {
	// Given: a non-terminal output
	var buf bytes.Buffer

	// When: logging with the automatic format
	logger, err := Setup(Config{Level: "debug", Output: &buf})
	require.NoError(t, err)
	logger.Debug("generated", "known", "t4096", "before", 3)

	// Then: the record is JSON
	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "generated", rec["msg"])
	assert.Equal(t, "t4096", rec["known"])
	assert.Equal(t, float64(3), rec["before"])
}

func TestSetupText(t *testing.T) {
	var buf bytes.Buffer
	logger, err := Setup(Config{Level: "info", Format: FormatText, Output: &buf})
	require.NoError(t, err)
	logger.Debug("hidden")
	logger.Info("checked", "name", "symbol8")
	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.True(t, strings.Contains(out, "msg=checked") && strings.Contains(out, "name=symbol8"), "got %q", out)
}

func TestSetupErrors(t *testing.T) {
	_, err := Setup(Config{Level: "loud"})
	assert.Error(t, err)
	_, err = Setup(Config{Format: "xml"})
	assert.ErrorContains(t, err, "unknown log format")
}

func TestDiscard(t *testing.T) {
	assert.False(t, Discard().Enabled(context.Background(), slog.LevelError))
}
