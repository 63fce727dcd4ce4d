// Copyright 2021 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package config loads settings for the command line tools.
//
// Settings come from defaults, then an optional YAML file, then
// DLADDR_* environment variables. Command line flags are applied last
// by the tools themselves.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/opteya/dladdr-test/arch"
	"github.com/opteya/dladdr-test/gen"
	"github.com/opteya/dladdr-test/internal/logging"
	"github.com/opteya/dladdr-test/internal/tool"
	"github.com/opteya/dladdr-test/verify"
)

// Backends.
const (
	BackendNative   = "dl"
	BackendImage    = "image"
	BackendAssembly = "asm"
)

// Config holds the settings of both tools.
type Config struct {
	LogLevel  string          `yaml:"log_level"`
	LogFormat string          `yaml:"log_format"`
	Generator GeneratorConfig `yaml:"generator"`
	Verifier  VerifierConfig  `yaml:"verifier"`
}

// GeneratorConfig configures the generator.
type GeneratorConfig struct {
	// MinPadding and MaxPadding bound the number of random neighbors
	// on each side of the known symbol.
	MinPadding uint32 `yaml:"min_padding"`
	MaxPadding uint32 `yaml:"max_padding"`
	Section    string `yaml:"section"`
	// Seed makes output reproducible. Nil means a new seed per run.
	Seed *uint64 `yaml:"seed"`
}

// VerifierConfig configures the verifier.
type VerifierConfig struct {
	// Backend is dl, image or asm.
	Backend string `yaml:"backend"`
	Prefix  string `yaml:"prefix"`
	// MaxSize is the largest symbol size to check.
	MaxSize uint64 `yaml:"max_size"`
	// Preload lists shared objects to load before a dl sweep.
	Preload []string `yaml:"preload"`
	// Images lists ELF objects for the image backend.
	Images []string `yaml:"images"`
	// Assembly lists assembler sources for the asm backend.
	Assembly []string `yaml:"assembly"`
}

// Default returns the built-in settings.
func Default() *Config {
	opts := gen.DefaultOptions()
	return &Config{
		LogLevel:  "info",
		LogFormat: logging.FormatAuto,
		Generator: GeneratorConfig{
			MinPadding: opts.MinPadding,
			MaxPadding: opts.MaxPadding,
			Section:    opts.Section,
		},
		Verifier: VerifierConfig{
			Backend: BackendNative,
			Prefix:  verify.DefaultPrefix,
			MaxSize: arch.Host().MaxAddr(),
		},
	}
}

// Load returns the default settings overridden by the YAML file at
// path, if path is not empty, and then by the environment.
func Load(path string) (*Config, error) {
	c := Default()
	if path != "" {
		if err := c.loadYAML(path); err != nil {
			return nil, err
		}
	}
	if err := c.applyEnv(os.Getenv); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	// Fields absent from the file keep their defaults.
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// applyEnv applies DLADDR_* overrides looked up with getenv.
func (c *Config) applyEnv(getenv func(string) string) error {
	str := func(name string, dst *string) {
		if v := getenv(name); v != "" {
			*dst = v
		}
	}
	list := func(name string, dst *[]string) {
		if v := getenv(name); v != "" {
			*dst = filepath.SplitList(v)
		}
	}
	num := func(name string, bits int, set func(uint64)) error {
		v := getenv(name)
		if v == "" {
			return nil
		}
		n, err := tool.ParseUint(v)
		if err == nil && bits < 64 && n >= 1<<bits {
			err = &tool.UsageError{Arg: v, Err: tool.ErrRange}
		}
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		set(n)
		return nil
	}

	str("DLADDR_LOG_LEVEL", &c.LogLevel)
	str("DLADDR_LOG_FORMAT", &c.LogFormat)
	str("DLADDR_SECTION", &c.Generator.Section)
	str("DLADDR_BACKEND", &c.Verifier.Backend)
	str("DLADDR_PREFIX", &c.Verifier.Prefix)
	list("DLADDR_PRELOAD", &c.Verifier.Preload)
	list("DLADDR_IMAGES", &c.Verifier.Images)
	list("DLADDR_ASSEMBLY", &c.Verifier.Assembly)
	return errors.Join(
		num("DLADDR_MIN_PADDING", 32, func(n uint64) { c.Generator.MinPadding = uint32(n) }),
		num("DLADDR_MAX_PADDING", 32, func(n uint64) { c.Generator.MaxPadding = uint32(n) }),
		num("DLADDR_SEED", 64, func(n uint64) { c.Generator.Seed = &n }),
		num("DLADDR_MAX_SIZE", 64, func(n uint64) { c.Verifier.MaxSize = n }),
	)
}

// Validate reports the first invalid setting in c.
func (c *Config) Validate() error {
	if err := c.ValidateGenerator(); err != nil {
		return err
	}
	return c.validateVerifier()
}

// ValidateGenerator reports the first invalid setting the generator
// uses. Verifier settings are not checked.
func (c *Config) ValidateGenerator() error {
	if err := c.validateLogging(); err != nil {
		return err
	}
	if err := c.GenOptions().Validate(); err != nil {
		return fmt.Errorf("generator: %w", err)
	}
	return nil
}

// ValidateVerifier reports the first invalid setting the verifier
// uses. Generator settings are not checked.
func (c *Config) ValidateVerifier() error {
	if err := c.validateLogging(); err != nil {
		return err
	}
	return c.validateVerifier()
}

func (c *Config) validateLogging() error {
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if !slices.Contains([]string{logging.FormatAuto, logging.FormatText, logging.FormatJSON}, c.LogFormat) {
		return fmt.Errorf("log_format must be auto, text or json, got %q", c.LogFormat)
	}
	return nil
}

func (c *Config) validateVerifier() error {
	switch c.Verifier.Backend {
	case BackendNative, BackendImage, BackendAssembly:
	default:
		return fmt.Errorf("verifier: backend must be %s, %s or %s, got %q", BackendNative, BackendImage, BackendAssembly, c.Verifier.Backend)
	}
	if c.Verifier.Prefix == "" {
		return fmt.Errorf("verifier: prefix must not be empty")
	}
	if c.Verifier.MaxSize == 0 {
		return fmt.Errorf("verifier: max_size must be positive")
	}
	return nil
}

// GenOptions returns the generator options in c.
func (c *Config) GenOptions() gen.Options {
	return gen.Options{
		MinPadding: c.Generator.MinPadding,
		MaxPadding: c.Generator.MaxPadding,
		Section:    c.Generator.Section,
	}
}

// VerifyOptions returns the sweep options in c.
func (c *Config) VerifyOptions() verify.Options {
	return verify.Options{Prefix: c.Verifier.Prefix, Max: c.Verifier.MaxSize}
}

// Logging returns the logging configuration in c.
func (c *Config) Logging() logging.Config {
	return logging.Config{Level: c.LogLevel, Format: c.LogFormat}
}

// SeedString formats the configured seed for logs.
func (g GeneratorConfig) SeedString() string {
	if g.Seed == nil {
		return "random"
	}
	return strconv.FormatUint(*g.Seed, 10)
}
