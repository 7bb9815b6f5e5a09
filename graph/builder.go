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
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"bennypowers.dev/splitpack/fs"
	"bennypowers.dev/splitpack/resolve"
	"bennypowers.dev/splitpack/transform"
)

// Entry names a module the graph is rooted at.
type Entry struct {
	Name string
	Path string
}

// Builder walks the module graph from a set of entries, transforming every
// reachable file exactly once.
type Builder struct {
	fs       fs.FileSystem
	dir      string
	resolver *resolve.Resolver
	pipeline *transform.Pipeline
	logger   zerolog.Logger
	reserved []string
}

// NewBuilder creates a Builder for the project in dir.
func NewBuilder(fsys fs.FileSystem, dir string, resolver *resolve.Resolver, pipeline *transform.Pipeline) *Builder {
	return &Builder{
		fs:       fsys,
		dir:      dir,
		resolver: resolver,
		pipeline: pipeline,
		logger:   zerolog.Nop(),
	}
}

// WithLogger returns a copy of b that logs to logger.
func (b *Builder) WithLogger(logger zerolog.Logger) *Builder {
	c := *b
	c.logger = logger
	return &c
}

// WithReserved returns a copy of b whose split points avoid names, which
// belong to chunks created later such as cache group chunks.
func (b *Builder) WithReserved(names ...string) *Builder {
	c := *b
	c.reserved = slices.Clone(names)
	return &c
}

// walk holds the state of one Build call.
type walk struct {
	*Builder
	ctx      context.Context
	graph    *Graph
	visiting map[string]bool
	names    map[string]bool
	// importers counts edges per target. Targets on a cycle are still on
	// the stack when the back edge is seen, so counts are applied last.
	importers map[string]int
}

// Build transforms every module reachable from entries and returns the
// graph with roots and origins filled in. The first transform or
// resolution failure aborts the walk.
func (b *Builder) Build(ctx context.Context, entries []Entry) (*Graph, error) {
	start := time.Now()
	w := &walk{
		Builder:   b,
		ctx:       ctx,
		graph:     New(),
		visiting:  make(map[string]bool),
		names:     make(map[string]bool),
		importers: make(map[string]int),
	}

	for _, e := range entries {
		if w.names[e.Name] {
			return nil, fmt.Errorf("duplicate entry name %q", e.Name)
		}
		w.names[e.Name] = true
		w.graph.AddRoot(Root{Name: e.Name, Module: b.ID(e.Path), Entry: true})
	}
	for _, name := range b.reserved {
		w.names[name] = true
	}

	for _, e := range entries {
		if !b.fs.Exists(e.Path) {
			return nil, fmt.Errorf("entry %s: %s does not exist", e.Name, e.Path)
		}
		if _, err := w.visit(e.Path); err != nil {
			return nil, err
		}
	}

	for _, m := range w.graph.Order {
		m.Importers = w.importers[m.ID]
	}
	w.graph.ComputeOrigins()
	b.logger.Debug().
		Int("modules", len(w.graph.Order)).
		Int("roots", len(w.graph.Roots)).
		Dur("duration", time.Since(start)).
		Msg("Built module graph")
	return w.graph, nil
}

// ID returns the module ID for an absolute path.
func (b *Builder) ID(path string) string {
	rel, err := filepath.Rel(b.dir, path)
	if err != nil {
		rel = path
	}
	return filepath.ToSlash(rel)
}

// visit loads the module at path and everything it depends on, returning
// its ID. Modules already visited, or on the current path of a cycle,
// are not loaded again.
func (w *walk) visit(path string) (string, error) {
	id := w.ID(path)
	if w.visiting[id] {
		return id, nil
	}
	w.visiting[id] = true

	if err := w.ctx.Err(); err != nil {
		return "", err
	}

	source, err := w.fs.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", id, err)
	}

	m := &Module{
		ID:     id,
		Path:   path,
		Origin: FirstParty,
		Size:   int64(len(source)),
	}
	if resolve.IsThirdParty(path) {
		m.Origin = ThirdParty
	}

	in := transform.Input{
		Path:       path,
		ID:         id,
		Source:     source,
		ThirdParty: m.Origin == ThirdParty,
	}

	switch transform.Detect(path) {
	case transform.Script:
		err = w.script(m, in)
	case transform.Style:
		err = w.style(m, in)
	default:
		m.Result, err = w.pipeline.Transform(in)
	}
	if err != nil {
		return "", err
	}

	w.graph.Add(m)
	w.logger.Debug().
		Str("module", id).
		Str("origin", m.Origin.String()).
		Int64("bytes", m.Size).
		Int("deps", len(m.Deps)).
		Msg("Loaded module")
	return id, nil
}

// script transpiles first, so type-only imports are gone and JSX has
// become runtime requires, then follows the references left in the
// output.
func (w *walk) script(m *Module, in transform.Input) error {
	result, err := w.pipeline.Transform(in)
	if err != nil {
		return err
	}
	imports, err := ExtractImports(m.Path, result.Code)
	if err != nil {
		return fmt.Errorf("parsing %s: %w", m.ID, err)
	}

	type edge struct {
		specifier string
		async     bool
	}
	seen := make(map[edge]bool)
	for _, imp := range imports {
		e := edge{imp.Specifier, imp.IsDynamic()}
		if seen[e] {
			continue
		}
		seen[e] = true

		target, err := w.follow(m, imp.Specifier, imp.Specifier, e.async)
		if err != nil {
			return err
		}
		if e.async {
			w.addSplitPoint(target)
		}
	}

	result.Code = RewriteDynamicImports(result.Code, imports)
	m.Result = result
	return nil
}

// style follows @import and url() references. Assets are loaded before
// the stylesheet is transformed so their final URLs can be written into
// it.
func (w *walk) style(m *Module, in transform.Input) error {
	imports, urls := transform.References(in)

	in.URLs = make(map[string]string, len(urls))
	for _, ref := range urls {
		target, err := w.follow(m, ref, transform.ModuleRequest(ref), false)
		if err != nil {
			return err
		}
		if dep := w.graph.Module(target); dep != nil && dep.Result != nil {
			in.URLs[ref] = dep.Result.URL
		}
	}
	for _, ref := range imports {
		if _, err := w.follow(m, ref, transform.ModuleRequest(ref), false); err != nil {
			return err
		}
	}

	result, err := w.pipeline.Transform(in)
	if err != nil {
		return err
	}
	m.Result = result
	return nil
}

// follow resolves request from m, visits the target and records the edge.
func (w *walk) follow(m *Module, specifier, request string, async bool) (string, error) {
	resolved, err := w.resolver.Resolve(m.Path, request)
	if err != nil {
		return "", err
	}
	target, err := w.visit(resolved)
	if err != nil {
		return "", err
	}
	m.Deps = append(m.Deps, Dep{Specifier: specifier, Target: target, Async: async})
	w.importers[target]++
	return target, nil
}

// addSplitPoint registers the module as an async root, naming it after
// its file.
func (w *walk) addSplitPoint(id string) {
	if w.graph.RootIndex(id) >= 0 {
		return
	}
	name := w.uniqueName(SplitPointName(id))
	w.names[name] = true
	w.graph.AddRoot(Root{Name: name, Module: id})
}

func (w *walk) uniqueName(name string) string {
	if !w.names[name] {
		return name
	}
	for i := 2; ; i++ {
		candidate := name + "-" + strconv.Itoa(i)
		if !w.names[candidate] {
			return candidate
		}
	}
}

// SplitPointName derives a chunk name from a module ID: the file stem, or
// the directory name for index files.
func SplitPointName(id string) string {
	base := filepath.Base(filepath.FromSlash(id))
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if stem == "index" {
		if dir := filepath.Base(filepath.Dir(filepath.FromSlash(id))); dir != "." && dir != string(filepath.Separator) {
			stem = dir
		}
	}
	return stem
}
