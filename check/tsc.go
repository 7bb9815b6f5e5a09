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
package check

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"bennypowers.dev/splitpack/config"
	"bennypowers.dev/splitpack/fs"
)

// TSC runs the TypeScript compiler in no-emit mode over a project.
type TSC struct {
	FS  fs.FileSystem
	Dir string
	// Command is the compiler invocation; "tsc" by default.
	Command []string
	// Project is the tsconfig path relative to Dir.
	Project string
}

// Name implements Checker.
func (t *TSC) Name() string {
	return "tsc"
}

// Check implements Checker. The compiler reads the project itself, so
// files is unused.
func (t *TSC) Check(ctx context.Context, files []string) ([]Diagnostic, error) {
	project := t.Project
	if project == "" {
		project = "tsconfig.json"
	}
	projectPath := filepath.Join(t.Dir, project)
	data, err := t.FS.ReadFile(projectPath)
	if err != nil {
		return nil, fmt.Errorf("tsc: %w", err)
	}
	if _, err := config.ParseTSConfig(data); err != nil {
		return []Diagnostic{{File: projectPath, Message: "invalid tsconfig: " + err.Error(), Severity: Error}}, nil
	}

	command := t.Command
	if len(command) == 0 {
		command = []string{"tsc"}
	}
	args := append(command[1:len(command):len(command)], "--noEmit", "--pretty", "false", "-p", project)
	cmd := exec.CommandContext(ctx, command[0], args...)
	cmd.Dir = t.Dir
	out, err := cmd.CombinedOutput()
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return nil, fmt.Errorf("tsc: %w", err)
		}
	}
	return ParseTSCOutput(t.Dir, out), nil
}

var tscLine = regexp.MustCompile(`^(.+?)\((\d+),(\d+)\): (error|warning) (TS\d+): (.*)$`)

// ParseTSCOutput parses "file(line,col): error TSxxxx: message" lines.
// Indented continuation lines extend the previous message. Relative
// files are resolved against dir.
func ParseTSCOutput(dir string, out []byte) []Diagnostic {
	var diags []Diagnostic
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		line := scanner.Text()
		m := tscLine.FindStringSubmatch(line)
		if m == nil {
			if len(diags) > 0 && strings.HasPrefix(line, " ") {
				diags[len(diags)-1].Message += "\n" + strings.TrimRight(line, " ")
			}
			continue
		}
		file := m[1]
		if !filepath.IsAbs(file) {
			file = filepath.Join(dir, filepath.FromSlash(file))
		}
		lineNo, _ := strconv.Atoi(m[2])
		col, _ := strconv.Atoi(m[3])
		severity := Error
		if m[4] == "warning" {
			severity = Warning
		}
		diags = append(diags, Diagnostic{
			File:     file,
			Line:     lineNo,
			Column:   col,
			Message:  m[5] + ": " + m[6],
			Severity: severity,
		})
	}
	return diags
}

// New returns the checker registered under name: "syntax", "tsc", or
// "none" (and "") for no checker.
func New(name string, fsys fs.FileSystem, dir string) (Checker, error) {
	switch name {
	case "syntax":
		return &Syntax{FS: fsys}, nil
	case "tsc":
		return &TSC{FS: fsys, Dir: dir}, nil
	case "none", "":
		return nil, nil
	}
	return nil, fmt.Errorf("unknown checker %q", name)
}
