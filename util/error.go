// util/error.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package util

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/humaa-taj/aircontrolx/log"
)

// ErrorLogger accumulates validation problems found while checking
// configuration and schedule files. It tracks context about what is
// currently being validated so that messages point at the offending item,
// and it lets validation continue after the first problem.
type ErrorLogger struct {
	hierarchy []string
	errors    []error
	warnings  []string
}

func (e *ErrorLogger) Push(s string) {
	e.hierarchy = append(e.hierarchy, s)
}

func (e *ErrorLogger) Pop() {
	e.hierarchy = e.hierarchy[:len(e.hierarchy)-1]
}

func (e *ErrorLogger) prefix() string {
	if len(e.hierarchy) == 0 {
		return ""
	}
	return strings.Join(e.hierarchy, " / ") + ": "
}

// ErrorString records an error; %w verbs in s wrap their arguments as
// with fmt.Errorf.
func (e *ErrorLogger) ErrorString(s string, args ...interface{}) {
	e.errors = append(e.errors, fmt.Errorf("%s"+s, append([]interface{}{e.prefix()}, args...)...))
}

func (e *ErrorLogger) Error(err error) {
	e.errors = append(e.errors, fmt.Errorf("%s%w", e.prefix(), err))
}

// Warning records a problem that doesn't prevent the input from being
// used.
func (e *ErrorLogger) Warning(s string, args ...interface{}) {
	e.warnings = append(e.warnings, e.prefix()+fmt.Sprintf(s, args...))
}

func (e *ErrorLogger) HaveErrors() bool {
	return len(e.errors) > 0
}

func (e *ErrorLogger) Warnings() []string {
	return e.warnings
}

// Err returns a single error holding all of the accumulated errors, or
// nil if there were none.
func (e *ErrorLogger) Err() error {
	return errors.Join(e.errors...)
}

func (e *ErrorLogger) PrintErrors(w io.Writer, lg *log.Logger) {
	// Two loops so they aren't interleaved with logging to stdout
	for _, s := range e.warnings {
		lg.Warn(s)
	}
	for _, err := range e.errors {
		lg.Errorf("%+v", err)
	}
	for _, s := range e.warnings {
		fmt.Fprintln(w, "warning: "+s)
	}
	for _, err := range e.errors {
		fmt.Fprintln(w, err)
	}
}

func (e *ErrorLogger) String() string {
	var s []string
	for _, err := range e.errors {
		s = append(s, err.Error())
	}
	return strings.Join(s, "\n")
}

func (e *ErrorLogger) CurrentDepth() int {
	if e == nil {
		return 0
	}
	return len(e.hierarchy)
}

// CheckDepth panics if Push and Pop calls were unbalanced since the depth
// d was recorded; it is meant to be deferred by validation routines.
func (e *ErrorLogger) CheckDepth(d int) {
	if e == nil || e.CurrentDepth() == d {
		return
	}
	if r := recover(); r != nil {
		panic(r)
	}
	panic(fmt.Sprintf("ErrorLogger depth mismatch: initial %d, final %d", d, e.CurrentDepth()))
}
