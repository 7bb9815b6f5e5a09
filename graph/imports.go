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
package graph

import (
	"slices"

	ts "github.com/tree-sitter/go-tree-sitter"
)

// ImportKind distinguishes how a module references another.
type ImportKind int

const (
	StaticImport ImportKind = iota
	ReExport
	DynamicImport
	Require
)

// ModuleImport is one reference found in module source.
type ModuleImport struct {
	Specifier string
	Kind      ImportKind
	Line      int // 1-indexed
	// CalleeStart and CalleeEnd delimit the "import" keyword of a dynamic
	// import.
	CalleeStart uint
	CalleeEnd   uint
}

// IsDynamic reports whether the import starts a split point.
func (i ModuleImport) IsDynamic() bool {
	return i.Kind == DynamicImport
}

// ExtractImports parses JavaScript or TypeScript and returns its import,
// re-export, dynamic import and require() specifiers in source order.
func ExtractImports(file string, content []byte) ([]ModuleImport, error) {
	query, err := ImportsQuery(file)
	if err != nil {
		return nil, err
	}

	tree, err := Parse(file, content)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	cursor := ts.NewQueryCursor()
	defer cursor.Close()

	var imports []ModuleImport
	matches := cursor.Matches(query, tree.RootNode(), content)
	captureNames := query.CaptureNames()

	type position struct{ start, end uint }
	seen := make(map[position]bool)

	for {
		match := matches.Next()
		if match == nil {
			break
		}

		var callee *ts.Node
		for _, capture := range match.Captures {
			node := capture.Node
			name := captureNames[capture.Index]

			imp := ModuleImport{
				Specifier: node.Utf8Text(content),
				Line:      int(node.StartPosition().Row) + 1,
			}
			switch name {
			case "dynamicImport.callee", "require.callee":
				callee = &node
				continue
			case "import.spec":
				imp.Kind = StaticImport
			case "reexport.spec":
				imp.Kind = ReExport
			case "dynamicImport.spec":
				imp.Kind = DynamicImport
				if callee != nil {
					imp.CalleeStart, imp.CalleeEnd = callee.StartByte(), callee.EndByte()
				}
			case "require.spec":
				if callee == nil || callee.Utf8Text(content) != "require" {
					continue
				}
				imp.Kind = Require
			default:
				continue
			}

			pos := position{node.StartByte(), node.EndByte()}
			if seen[pos] {
				continue
			}
			seen[pos] = true
			imports = append(imports, imp)
		}
	}

	slices.SortStableFunc(imports, func(a, b ModuleImport) int {
		return a.Line - b.Line
	})
	return imports, nil
}

// LoaderName replaces the "import" keyword of dynamic imports. It has the
// same length so source map columns stay valid.
const LoaderName = "__load"

// RewriteDynamicImports returns content with every dynamic import() callee
// renamed to LoaderName, the module runtime's chunk loader.
func RewriteDynamicImports(content []byte, imports []ModuleImport) []byte {
	out := slices.Clone(content)
	for _, imp := range imports {
		if imp.Kind != DynamicImport || imp.CalleeEnd-imp.CalleeStart != uint(len(LoaderName)) {
			continue
		}
		copy(out[imp.CalleeStart:imp.CalleeEnd], LoaderName)
	}
	return out
}
