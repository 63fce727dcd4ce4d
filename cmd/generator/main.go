// Copyright 2021 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command generator writes GNU assembler source defining a data symbol
// of exact name and size among randomly named, sized and aligned
// neighbors.
//
// Usage:
//
//	generator [flags] <name> <size>
//
// The known symbol is named <name><size>, and neighbors share that
// name as a prefix. Assemble and link the output into a shared object
// to exercise dladdr-test.
package main

import (
	"bytes"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/opteya/dladdr-test/gen"
	"github.com/opteya/dladdr-test/internal/config"
	"github.com/opteya/dladdr-test/internal/logging"
	"github.com/opteya/dladdr-test/internal/tool"
	"github.com/opteya/dladdr-test/sample"
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
	config     string
	seed       string
	minPadding uint32
	maxPadding uint32
	section    string
	logLevel   string
	output     string
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	var f flags
	cmd := &cobra.Command{
		Use:   "generator [flags] <name> <size>",
		Short: "Generate assembler source with a known symbol among random ones",
		Long: `Generator writes GNU assembler source to standard output defining a
zero-filled global data object named <name><size> of exactly <size> bytes,
preceded and followed by randomly named, sized and aligned objects whose
names start with the same prefix.

<size> accepts decimal, 0x-prefixed hexadecimal and 0-prefixed octal.`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return generate(cmd, &f, args[0], args[1], stdout, stderr)
		},
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	fl := cmd.Flags()
	fl.StringVar(&f.config, "config", "", "YAML configuration file")
	fl.StringVar(&f.seed, "seed", "", "seed for reproducible output (default: new seed per run)")
	fl.Uint32Var(&f.minPadding, "min-padding", 0, "minimum number of random symbols on each side")
	fl.Uint32Var(&f.maxPadding, "max-padding", gen.DefaultMaxPadding, "maximum number of random symbols on each side")
	fl.StringVar(&f.section, "section", ".rodata", "section to define symbols in")
	fl.StringVar(&f.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	fl.StringVarP(&f.output, "output", "o", "", "write to file instead of standard output")
	return cmd
}

func generate(cmd *cobra.Command, f *flags, name, sizeArg string, stdout, stderr io.Writer) error {
	size, err := tool.ParseUint(sizeArg)
	if err != nil {
		return err
	}
	if len(name) > gen.MaxBaseLen {
		return tool.Usagef("name of %d bytes is longer than %d bytes", len(name), gen.MaxBaseLen)
	}

	c, err := config.Load(f.config)
	if err != nil {
		return err
	}
	changed := cmd.Flags().Changed
	if changed("seed") {
		seed, err := tool.ParseUint(f.seed)
		if err != nil {
			return err
		}
		c.Generator.Seed = &seed
	}
	if changed("min-padding") {
		c.Generator.MinPadding = f.minPadding
	}
	if changed("max-padding") {
		c.Generator.MaxPadding = f.maxPadding
	}
	if changed("section") {
		c.Generator.Section = f.section
	}
	if changed("log-level") {
		c.LogLevel = f.logLevel
	}
	if err := c.ValidateGenerator(); err != nil {
		return tool.Usagef("%v", err)
	}

	lc := c.Logging()
	lc.Output = stderr
	logger, err := logging.Setup(lc)
	if err != nil {
		return err
	}

	var src sample.Source
	if c.Generator.Seed != nil {
		src = sample.NewPCG(*c.Generator.Seed)
	} else {
		src = sample.NewLrand48(sample.Seed())
	}
	g, err := gen.New(c.GenOptions(), sample.New(src))
	if err != nil {
		return err
	}

	// Generate fully before writing, so failures leave no partial
	// output.
	var buf bytes.Buffer
	sum, err := g.Generate(&buf, name, size)
	if err != nil {
		return err
	}
	logger.Debug("generated",
		slog.String("known", sum.Known.Name),
		slog.Uint64("size", sum.Known.Size),
		slog.Any("align", sum.Known.Align),
		slog.Any("before", sum.Before),
		slog.Any("after", sum.After),
		slog.String("seed", c.Generator.SeedString()))

	if f.output == "" {
		_, err = buf.WriteTo(stdout)
		return err
	}
	return os.WriteFile(f.output, buf.Bytes(), 0o644)
}
