// Copyright 2021 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command dladdr-test checks that dladdr maps addresses inside data
// symbols back to the exact symbol.
//
// Usage:
//
//	dladdr-test [flags] <count>
//
// Each of <count> sweeps looks up symbol1, symbol2, symbol4, ... by
// name, resolves the address half way into each symbol, and checks
// that the answer names that symbol at its start address. A sweep ends
// at the first symbol that is not found. The exit status is 0 when all
// sweeps pass, 1 on usage or setup errors and 2 on a wrong answer.
package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/opteya/dladdr-test/dl"
	"github.com/opteya/dladdr-test/internal/config"
	"github.com/opteya/dladdr-test/internal/logging"
	"github.com/opteya/dladdr-test/internal/tool"
	"github.com/opteya/dladdr-test/verify"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run executes the command and returns the process exit code.
func run(args []string, stdout, stderr io.Writer) int {
	cmd := newRootCmd(stdout, stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	tool.Report(stderr, err)
	return tool.ExitCode(err)
}

type flags struct {
	config   string
	backend  string
	preload  []string
	images   []string
	asm      []string
	prefix   string
	maxSize  string
	logLevel string
	verbose  bool
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	var f flags
	cmd := &cobra.Command{
		Use:   "dladdr-test [flags] <count>",
		Short: "Check that dladdr resolves addresses inside symbols exactly",
		Long: `dladdr-test runs <count> sweeps over the symbols symbol1, symbol2,
symbol4, ... For each one found, it resolves the address half way into the
symbol and checks that the answer names the symbol and its start address.

Backends:
  dl     the dynamic linker of this process (load objects with --preload)
  image  ELF shared objects read from disk (--image)
  asm    generator output laid out in memory (--asm)`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return sweep(cmd, &f, args[0], stderr)
		},
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	fl := cmd.Flags()
	fl.StringVar(&f.config, "config", "", "YAML configuration file")
	fl.StringVar(&f.backend, "backend", config.BackendNative, "resolver backend: dl, image or asm")
	fl.StringArrayVar(&f.preload, "preload", nil, "shared object to load before sweeping (repeatable)")
	fl.StringArrayVar(&f.images, "image", nil, "ELF shared object for the image backend (repeatable)")
	fl.StringArrayVar(&f.asm, "asm", nil, "assembler source for the asm backend (repeatable)")
	fl.StringVar(&f.prefix, "prefix", verify.DefaultPrefix, "symbol name prefix")
	fl.StringVar(&f.maxSize, "max-size", "", "largest symbol size to check (default: largest address)")
	fl.StringVar(&f.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	fl.BoolVarP(&f.verbose, "verbose", "v", false, "log every checked symbol")
	return cmd
}

func sweep(cmd *cobra.Command, f *flags, countArg string, stderr io.Writer) (err error) {
	count, err := tool.ParseUint(countArg)
	if err != nil {
		return err
	}

	c, err := config.Load(f.config)
	if err != nil {
		return err
	}
	changed := cmd.Flags().Changed
	if changed("backend") {
		c.Verifier.Backend = f.backend
	}
	if changed("preload") {
		c.Verifier.Preload = f.preload
	}
	if changed("image") {
		c.Verifier.Images = f.images
	}
	if changed("asm") {
		c.Verifier.Assembly = f.asm
	}
	if changed("prefix") {
		c.Verifier.Prefix = f.prefix
	}
	if changed("max-size") {
		if c.Verifier.MaxSize, err = tool.ParseUint(f.maxSize); err != nil {
			return err
		}
	}
	if changed("log-level") {
		c.LogLevel = f.logLevel
	}
	if err := c.ValidateVerifier(); err != nil {
		return tool.Usagef("%v", err)
	}

	lc := c.Logging()
	lc.Output = stderr
	logger, err := logging.Setup(lc)
	if err != nil {
		return err
	}

	r, closer, err := openResolver(&c.Verifier, logger)
	if err != nil {
		return err
	}
	defer func() { err = finish(logger, closer, err) }()

	opts := c.VerifyOptions()
	checkLevel := slog.LevelDebug
	if f.verbose {
		checkLevel = slog.LevelInfo
	}
	opts.Check = func(ch verify.Check) {
		logger.Log(cmd.Context(), checkLevel, "checked",
			slog.String("symbol", ch.Name),
			slog.String("addr", fmt.Sprintf("%#x", ch.Addr)),
			slog.String("offset", fmt.Sprintf("%#x", ch.Offset)),
			slog.String("object", ch.Info.FName))
	}

	logger.Debug("sweeping", slog.String("backend", c.Verifier.Backend), slog.Uint64("count", count))
	rep, err := verify.Run(r, opts, count)
	if err != nil {
		var v *verify.Violation
		if errors.As(err, &v) {
			logger.Error("wrong answer",
				slog.String("kind", v.Kind.String()),
				slog.String("symbol", v.Name),
				slog.String("addr", fmt.Sprintf("%#x", v.Addr)),
				slog.String("offset", fmt.Sprintf("%#x", v.Offset)),
				slog.String("got_name", v.Info.SName),
				slog.String("got_addr", fmt.Sprintf("%#x", v.Info.SAddr)),
				slog.String("object", v.Info.FName))
			return &tool.ExitError{Code: tool.ExitViolation, Err: err}
		}
		return err
	}
	if rep.Stop != "" {
		logger.Info("sweep stopped", slog.String("symbol", rep.Stop), slog.String("reason", rep.StopReason))
	}
	logger.Info("passed", slog.Uint64("sweeps", count), slog.Int("symbols", len(rep.Checked)))
	return nil
}

// finish releases the resolver. A failure to close is logged, and
// returned if the sweep itself succeeded.
func finish(logger *slog.Logger, release func() error, err error) error {
	if cerr := release(); cerr != nil {
		logger.Warn("closing resolver", slog.Any("error", cerr))
		if err == nil {
			return cerr
		}
	}
	return err
}

// openResolver opens the configured backend. The returned function
// releases it.
func openResolver(c *config.VerifierConfig, logger *slog.Logger) (dl.Resolver, func() error, error) {
	switch c.Backend {
	case config.BackendNative:
		n, err := dl.OpenNative(c.Preload...)
		if err != nil {
			return nil, nil, err
		}
		return n, n.Close, nil
	case config.BackendImage:
		if len(c.Images) == 0 {
			return nil, nil, tool.Usagef("backend %s needs at least one --image", c.Backend)
		}
		s, err := dl.Images(c.Images...)
		if err != nil {
			return nil, nil, err
		}
		for _, m := range s.Modules() {
			if names := m.Initialized(); len(names) > 0 {
				logger.Warn("object has initialized data symbols",
					slog.String("object", m.Name),
					slog.Int("count", len(names)),
					slog.String("first", names[0]))
			}
		}
		return s, s.Close, nil
	case config.BackendAssembly:
		if len(c.Assembly) == 0 {
			return nil, nil, tool.Usagef("backend %s needs at least one --asm", c.Backend)
		}
		s, err := dl.Assembly(c.Assembly...)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	}
	return nil, nil, tool.Usagef("unknown backend %q", c.Backend)
}
