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
	"context"
	"fmt"
	"runtime"

	ts "github.com/tree-sitter/go-tree-sitter"

	"bennypowers.dev/splitpack/fs"
	"bennypowers.dev/splitpack/graph"
)

// maxSyntaxErrors caps the diagnostics reported per file.
const maxSyntaxErrors = 10

// Syntax reports files the TypeScript grammar cannot parse. It catches
// what would stop the transpiler without running a full type checker.
type Syntax struct {
	FS      fs.FileSystem
	Workers int
}

// Name implements Checker.
func (s *Syntax) Name() string {
	return "syntax"
}

// Check implements Checker.
func (s *Syntax) Check(ctx context.Context, files []string) ([]Diagnostic, error) {
	workers := s.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return parallel(ctx, files, workers, s.checkFile)
}

func (s *Syntax) checkFile(file string) ([]Diagnostic, error) {
	content, err := s.FS.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", file, err)
	}
	tree, err := graph.Parse(file, content)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	root := tree.RootNode()
	if !root.HasError() {
		return nil, nil
	}
	var diags []Diagnostic
	collectErrors(root, file, &diags)
	return diags, nil
}

// collectErrors walks the subtrees that contain errors, reporting ERROR
// and MISSING nodes.
func collectErrors(n *ts.Node, file string, diags *[]Diagnostic) {
	if len(*diags) >= maxSyntaxErrors {
		return
	}
	pos := n.StartPosition()
	switch {
	case n.IsMissing():
		*diags = append(*diags, Diagnostic{
			File:     file,
			Line:     int(pos.Row) + 1,
			Column:   int(pos.Column) + 1,
			Message:  fmt.Sprintf("missing %s", n.Kind()),
			Severity: Error,
		})
		return
	case n.IsError():
		*diags = append(*diags, Diagnostic{
			File:     file,
			Line:     int(pos.Row) + 1,
			Column:   int(pos.Column) + 1,
			Message:  "unexpected syntax",
			Severity: Error,
		})
		return
	}
	for i := range n.ChildCount() {
		child := n.Child(i)
		if child != nil && (child.HasError() || child.IsMissing()) {
			collectErrors(child, file, diags)
		}
	}
}
