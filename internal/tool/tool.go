// Copyright 2021 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package tool contains helpers shared by the command line tools.
package tool

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode"
)

// Exit codes.
const (
	ExitOK        = 0
	ExitUsage     = 1
	ExitViolation = 2
)

var (
	// ErrInvalid reports a malformed numeric argument.
	ErrInvalid = errors.New("invalid size")
	// ErrRange reports a numeric argument that does not fit in 64 bits.
	ErrRange = errors.New("value out of range")
)

// A UsageError reports bad command line input. Arg is the offending
// argument. It is quoted in the message when it is empty or holds
// spaces, so the token stays visible.
type UsageError struct {
	Arg string
	Err error

	// noArg is set by Usagef for errors about no single argument.
	noArg bool
}

func (e *UsageError) Error() string {
	if e.noArg {
		return e.Err.Error()
	}
	arg := e.Arg
	if arg == "" || strings.IndexFunc(arg, unicode.IsSpace) >= 0 {
		arg = strconv.Quote(arg)
	}
	return arg + ": " + e.Err.Error()
}

func (e *UsageError) Unwrap() error {
	return e.Err
}

// Usagef returns a *UsageError with a formatted message.
func Usagef(format string, args ...any) error {
	return &UsageError{Err: fmt.Errorf(format, args...), noArg: true}
}

// ParseUint parses an unsigned integer in C notation: a 0x or 0X
// prefix selects hexadecimal, a leading 0 selects octal, and anything
// else is decimal. Signs, spaces, underscores and trailing characters
// are rejected. Errors are *UsageError wrapping ErrInvalid or ErrRange.
func ParseUint(s string) (uint64, error) {
	digits, base := s, 10
	switch {
	case strings.HasPrefix(s, "0x"), strings.HasPrefix(s, "0X"):
		digits, base = s[2:], 16
	case len(s) > 1 && s[0] == '0':
		digits, base = s[1:], 8
	}
	v, err := strconv.ParseUint(digits, base, 64)
	if err != nil {
		if errors.Is(err, strconv.ErrRange) {
			return 0, &UsageError{Arg: s, Err: ErrRange}
		}
		return 0, &UsageError{Arg: s, Err: ErrInvalid}
	}
	return v, nil
}

// An ExitError carries the process exit code for an error.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// ExitCode returns the exit code for the result of a command: ExitOK
// for nil, the code of an *ExitError, and ExitUsage otherwise.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var exit *ExitError
	if errors.As(err, &exit) {
		return exit.Code
	}
	return ExitUsage
}

// Report writes err to w, as tools do before exiting with a failure.
func Report(w io.Writer, err error) {
	if err != nil {
		fmt.Fprintln(w, err)
	}
}
