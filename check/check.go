/*
Copyright © 2026 Benny Powers <web@bennypowers.com>

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program. If not, see <http://www.gnu.org/licenses/>.
*/
// Package check runs a type or syntax checker next to the build. The
// checker never blocks bundling: Start returns a Handle immediately and
// the build waits on it once, after its output is ready.
package check

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"
)

// Severity grades a diagnostic.
type Severity int

const (
	Warning Severity = iota
	Error
)

func (s Severity) String() string {
	if s == Error {
		return "error"
	}
	return "warning"
}

// Diagnostic is one checker finding.
type Diagnostic struct {
	File     string   `json:"file"`
	Line     int      `json:"line"`
	Column   int      `json:"column,omitempty"`
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
}

func (d Diagnostic) String() string {
	pos := d.File
	if d.Line > 0 {
		pos = fmt.Sprintf("%s:%d:%d", d.File, d.Line, d.Column)
	}
	return fmt.Sprintf("%s: %s: %s", pos, d.Severity, d.Message)
}

// MarshalText encodes the severity by name.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Checker inspects source files and reports diagnostics.
type Checker interface {
	Name() string
	Check(ctx context.Context, files []string) ([]Diagnostic, error)
}

// Handle is a running check.
type Handle struct {
	name     string
	done     chan struct{}
	diags    []Diagnostic
	err      error
	duration time.Duration
}

// Start runs checker over files in the background. A nil checker yields
// a handle that finishes immediately with no diagnostics.
func Start(ctx context.Context, checker Checker, files []string) *Handle {
	h := &Handle{done: make(chan struct{})}
	if checker == nil {
		close(h.done)
		return h
	}
	h.name = checker.Name()
	go func() {
		defer close(h.done)
		start := time.Now()
		h.diags, h.err = checker.Check(ctx, files)
		h.duration = time.Since(start)
		sortDiagnostics(h.diags)
	}()
	return h
}

// Name returns the checker's name, or "" when none ran.
func (h *Handle) Name() string {
	return h.name
}

// Wait blocks until the check finishes and returns its diagnostics, sorted
// by file and position. An error means the checker itself could not run.
func (h *Handle) Wait() ([]Diagnostic, error) {
	<-h.done
	return h.diags, h.err
}

// Duration reports how long the check took. It is valid after Wait.
func (h *Handle) Duration() time.Duration {
	<-h.done
	return h.duration
}

func sortDiagnostics(diags []Diagnostic) {
	slices.SortStableFunc(diags, func(a, b Diagnostic) int {
		if c := strings.Compare(a.File, b.File); c != 0 {
			return c
		}
		if a.Line != b.Line {
			return a.Line - b.Line
		}
		return a.Column - b.Column
	})
}

// FailedError reports error-severity diagnostics.
type FailedError struct {
	Diagnostics []Diagnostic
}

func (e *FailedError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "check failed with %d error(s):", len(e.Diagnostics))
	for _, d := range e.Diagnostics {
		b.WriteString("\n  ")
		b.WriteString(d.String())
	}
	return b.String()
}

// Failed returns a *FailedError holding the error-severity diagnostics,
// or nil when there are none.
func Failed(diags []Diagnostic) error {
	var errs []Diagnostic
	for _, d := range diags {
		if d.Severity == Error {
			errs = append(errs, d)
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return &FailedError{Diagnostics: errs}
}

// parallel runs fn for every file on a fixed number of workers and
// gathers the diagnostics.
func parallel(ctx context.Context, files []string, workers int, fn func(file string) ([]Diagnostic, error)) ([]Diagnostic, error) {
	if workers <= 0 {
		workers = 1
	}

	type result struct {
		diags []Diagnostic
		err   error
	}
	jobs := make(chan string, len(files))
	results := make(chan result, len(files))

	var wg sync.WaitGroup
	for range workers {
		wg.Go(func() {
			for file := range jobs {
				if err := ctx.Err(); err != nil {
					results <- result{err: err}
					continue
				}
				diags, err := fn(file)
				results <- result{diags: diags, err: err}
			}
		})
	}

	for _, file := range files {
		jobs <- file
	}
	close(jobs)
	wg.Wait()
	close(results)

	var all []Diagnostic
	var firstErr error
	for r := range results {
		if r.err != nil && firstErr == nil {
			firstErr = r.err
		}
		all = append(all, r.diags...)
	}
	return all, firstErr
}
