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
	_ "embed"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	ts "github.com/tree-sitter/go-tree-sitter"
	tsTypescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"
)

//go:embed queries/typescript/imports.scm
var importsQuery string

// grammar pairs a tree-sitter language with a pool of parsers for it and
// its compiled imports query. Queries are compiled on first use and kept
// for the life of the process.
type grammar struct {
	name    string
	lang    *ts.Language
	parsers sync.Pool

	once    sync.Once
	imports *ts.Query
	err     error
}

func newGrammar(name string, lang *ts.Language) *grammar {
	g := &grammar{name: name, lang: lang}
	g.parsers.New = func() any {
		parser := ts.NewParser()
		if err := parser.SetLanguage(lang); err != nil {
			panic("failed to set " + name + " language: " + err.Error())
		}
		return parser
	}
	return g
}

var (
	typescript = newGrammar("TypeScript", ts.NewLanguage(tsTypescript.LanguageTypescript()))
	tsx        = newGrammar("TSX", ts.NewLanguage(tsTypescript.LanguageTSX()))
)

// grammarFor picks the grammar by extension. JavaScript may contain JSX,
// and the TSX grammar accepts plain JavaScript as well, so only TypeScript
// files use the TypeScript grammar.
func grammarFor(file string) *grammar {
	switch strings.ToLower(filepath.Ext(file)) {
	case ".ts", ".mts", ".cts":
		return typescript
	}
	return tsx
}

// Parse parses TypeScript, TSX or JavaScript source. The caller must Close
// the returned tree.
func Parse(file string, content []byte) (*ts.Tree, error) {
	g := grammarFor(file)
	parser := g.parsers.Get().(*ts.Parser)
	defer func() {
		parser.Reset()
		g.parsers.Put(parser)
	}()

	tree := parser.Parse(content, nil)
	if tree == nil {
		return nil, fmt.Errorf("failed to parse %s", file)
	}
	return tree, nil
}

// ImportsQuery returns the imports query compiled for file's grammar.
func ImportsQuery(file string) (*ts.Query, error) {
	g := grammarFor(file)
	g.once.Do(func() {
		q, qerr := ts.NewQuery(g.lang, importsQuery)
		if qerr != nil {
			g.err = fmt.Errorf("compiling %s imports query: %w", g.name, qerr)
			return
		}
		g.imports = q
	})
	return g.imports, g.err
}
