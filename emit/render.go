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
// Package emit renders classified chunks into output files: one script per
// chunk wrapping its modules for the module runtime, one stylesheet per
// chunk that holds styles, and the asset files modules refer to.
package emit

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path"
	"slices"
	"strings"

	"bennypowers.dev/splitpack/chunk"
	"bennypowers.dev/splitpack/graph"
	"bennypowers.dev/splitpack/naming"
)

// Kind is the content type of an emitted file.
type Kind int

const (
	Script Kind = iota
	Style
	Asset
)

func (k Kind) String() string {
	return [...]string{"script", "style", "asset"}[k]
}

// File is one emitted file.
type File struct {
	// Filename is relative to the output directory, slash separated.
	Filename string
	// Chunk is the logical chunk name; empty for assets.
	Chunk string
	Kind  Kind
	Data  []byte
	// Map is the source map for a script, written next to it.
	Map []byte
}

// Chunk holds the files rendered for one chunk.
type Chunk struct {
	Name   string
	Entry  bool
	Script *File
	Style  *File // nil when the chunk has no styles
}

// Entrypoint lists the files a page loads for one entry, in load order.
type Entrypoint struct {
	Name    string
	Scripts []string
	Styles  []string
}

// Bundle is the rendered output of one build.
type Bundle struct {
	Chunks      []*Chunk
	Assets      []*File
	Entrypoints []Entrypoint
}

// Options configures rendering.
type Options struct {
	PublicPath string
	// SourceMap combines per-module source maps into one map per script.
	SourceMap bool
}

type renderer struct {
	res    *chunk.Result
	namer  *naming.Namer
	opts   Options
	chunks map[string]*Chunk
}

// Render names and renders every non-empty chunk. Stylesheets are hashed
// by their content, scripts by their rendered text. Entry scripts embed a
// manifest naming the chunks their split points load, so they are named
// after every other chunk.
func Render(res *chunk.Result, namer *naming.Namer, opts Options) (*Bundle, error) {
	if opts.PublicPath == "" {
		opts.PublicPath = "/"
	}
	if !strings.HasSuffix(opts.PublicPath, "/") {
		opts.PublicPath += "/"
	}
	r := &renderer{res: res, namer: namer, opts: opts, chunks: make(map[string]*Chunk)}
	b := &Bundle{}

	var emitted []*chunk.Chunk
	for _, c := range res.Chunks {
		if len(c.Modules) == 0 && !r.isEntry(c) {
			continue
		}
		emitted = append(emitted, c)
		out := &Chunk{Name: c.Name, Entry: r.isEntry(c)}
		r.chunks[c.Name] = out
		b.Chunks = append(b.Chunks, out)
	}

	for _, c := range emitted {
		if err := r.style(c); err != nil {
			return nil, err
		}
	}
	for _, c := range emitted {
		if r.isEntry(c) {
			continue
		}
		if err := r.script(c); err != nil {
			return nil, err
		}
	}
	for _, c := range emitted {
		if !r.isEntry(c) {
			continue
		}
		if err := r.entryScript(c); err != nil {
			return nil, err
		}
	}
	for _, c := range emitted {
		if !r.isEntry(c) {
			continue
		}
		if err := r.finishEntry(c); err != nil {
			return nil, err
		}
	}

	b.Assets = assets(res.Graph)
	b.Entrypoints = r.entrypoints()
	return b, nil
}

func (r *renderer) isEntry(c *chunk.Chunk) bool {
	return c.IsRoot() && r.res.Graph.Roots[c.Root].Entry
}

// style concatenates the CSS of the chunk's style modules.
func (r *renderer) style(c *chunk.Chunk) error {
	var css bytes.Buffer
	for _, m := range c.Modules {
		if m.Result == nil || len(m.Result.CSS) == 0 {
			continue
		}
		css.Write(m.Result.CSS)
		if !bytes.HasSuffix(m.Result.CSS, []byte("\n")) {
			css.WriteByte('\n')
		}
	}
	if css.Len() == 0 {
		return nil
	}
	filename, err := r.namer.Chunk(c.Name, ".css", css.Bytes())
	if err != nil {
		return err
	}
	r.chunks[c.Name].Style = &File{Filename: filename, Chunk: c.Name, Kind: Style, Data: css.Bytes()}
	return nil
}

func (r *renderer) script(c *chunk.Chunk) error {
	code, sections := r.render(c, nil)
	filename, err := r.namer.Chunk(c.Name, ".js", code)
	if err != nil {
		return err
	}
	file := &File{Filename: filename, Chunk: c.Name, Kind: Script, Data: code}
	if r.opts.SourceMap {
		if file.Map, err = indexMap(path.Base(filename), sections); err != nil {
			return err
		}
	}
	r.chunks[c.Name].Script = file
	return nil
}

// entryScript names the entry from a rendering whose manifest refers to
// other entry chunks by logical name, then renders it again with their
// filenames.
func (r *renderer) entryScript(c *chunk.Chunk) error {
	provisional, err := r.manifest(c, true)
	if err != nil {
		return err
	}
	code, _ := r.render(c, provisional)
	filename, err := r.namer.Chunk(c.Name, ".js", code)
	if err != nil {
		return err
	}
	r.chunks[c.Name].Script = &File{Filename: filename, Chunk: c.Name, Kind: Script}
	return nil
}

// finishEntry renders an entry script once every filename is known.
func (r *renderer) finishEntry(c *chunk.Chunk) error {
	manifest, err := r.manifest(c, false)
	if err != nil {
		return err
	}
	code, sections := r.render(c, manifest)
	file := r.chunks[c.Name].Script
	file.Data = code
	if r.opts.SourceMap {
		if file.Map, err = indexMap(path.Base(file.Filename), sections); err != nil {
			return err
		}
	}
	return nil
}

// render writes the chunk registration, prefixed by the runtime when a
// manifest is given. It returns the line offset of every module with a
// source map.
func (r *renderer) render(c *chunk.Chunk, manifest []byte) ([]byte, []section) {
	var buf bytes.Buffer
	var sections []section

	if manifest != nil {
		buf.WriteString(runtime)
		buf.WriteByte('(')
		buf.Write(manifest)
		buf.WriteString(");\n")
	}

	fmt.Fprintf(&buf, "%s.push([%s,{\n", queueExpr, quote(c.Name))
	for i, m := range c.Modules {
		if i > 0 {
			buf.WriteString(",\n")
		}
		fmt.Fprintf(&buf, "%s:[function (module, exports, require, __load) {\n", quote(m.ID))
		var code []byte
		if m.Result != nil {
			code = m.Result.Code
			if len(m.Result.Map) > 0 {
				sections = append(sections, section{
					Offset: offset{Line: bytes.Count(buf.Bytes(), []byte("\n"))},
					Map:    json.RawMessage(m.Result.Map),
				})
			}
		}
		buf.Write(code)
		if len(code) > 0 && !bytes.HasSuffix(code, []byte("\n")) {
			buf.WriteByte('\n')
		}
		specifiers, _ := json.Marshal(m.Specifiers())
		fmt.Fprintf(&buf, "},%s]", specifiers)
	}
	buf.WriteString("\n}")

	if manifest != nil {
		root := r.res.Graph.Roots[c.Root]
		var initial []string
		for _, req := range r.res.Requires[c.Root] {
			if req != c {
				initial = append(initial, req.Name)
			}
		}
		names, _ := json.Marshal(nonNil(initial))
		fmt.Fprintf(&buf, ",%s,%s", quote(root.Module), names)
	}
	buf.WriteString("]);\n")
	return buf.Bytes(), sections
}

// manifest builds the runtime table for an entry: every split point
// reachable from it, with the chunks it needs. When provisional is set,
// entry chunks are referred to by name rather than filename.
func (r *renderer) manifest(c *chunk.Chunk, provisional bool) ([]byte, error) {
	g := r.res.Graph
	m := runtimeManifest{
		PublicPath: r.opts.PublicPath,
		Chunks:     make(map[string]runtimeChunk),
		Async:      make(map[string][]string),
	}
	for _, i := range reachableSplitPoints(g, g.Roots[c.Root].Module) {
		names := []string{}
		for _, req := range r.res.Requires[i] {
			out := r.chunks[req.Name]
			if out == nil {
				continue
			}
			names = append(names, req.Name)
			entry := runtimeChunk{}
			if out.Script != nil && !(provisional && out.Entry) {
				entry.JS = out.Script.Filename
			} else {
				entry.JS = out.Name + ".js"
			}
			if out.Style != nil {
				entry.CSS = out.Style.Filename
			}
			m.Chunks[req.Name] = entry
		}
		m.Async[g.Roots[i].Module] = names
	}
	return json.Marshal(m)
}

// reachableSplitPoints returns the indices of async roots reachable from
// module id through any kind of edge, in root order.
func reachableSplitPoints(g *graph.Graph, id string) []int {
	seen := map[string]bool{id: true}
	queue := []string{id}
	for len(queue) > 0 {
		m := g.Module(queue[0])
		queue = queue[1:]
		if m == nil {
			continue
		}
		for _, d := range m.Deps {
			if !seen[d.Target] {
				seen[d.Target] = true
				queue = append(queue, d.Target)
			}
		}
	}

	var roots []int
	for i, root := range g.Roots {
		if root.Async() && seen[root.Module] {
			roots = append(roots, i)
		}
	}
	return roots
}

func (r *renderer) entrypoints() []Entrypoint {
	var eps []Entrypoint
	for i, root := range r.res.Graph.Roots {
		if !root.Entry {
			continue
		}
		ep := Entrypoint{Name: root.Name}
		for _, c := range r.res.Requires[i] {
			out := r.chunks[c.Name]
			if out == nil {
				continue
			}
			if out.Script != nil {
				ep.Scripts = append(ep.Scripts, out.Script.Filename)
			}
			if out.Style != nil {
				ep.Styles = append(ep.Styles, out.Style.Filename)
			}
		}
		eps = append(eps, ep)
	}
	return eps
}

// assets collects the files modules emitted, once per filename.
func assets(g *graph.Graph) []*File {
	seen := make(map[string]bool)
	var files []*File
	for _, m := range g.Order {
		if m.Result == nil || m.Result.Asset == nil || seen[m.Result.Asset.Filename] {
			continue
		}
		seen[m.Result.Asset.Filename] = true
		files = append(files, &File{Filename: m.Result.Asset.Filename, Kind: Asset, Data: m.Result.Asset.Data})
	}
	slices.SortFunc(files, func(a, b *File) int { return strings.Compare(a.Filename, b.Filename) })
	return files
}

// Files returns every emitted file: scripts and stylesheets in chunk order,
// then assets.
func (b *Bundle) Files() []*File {
	var files []*File
	for _, c := range b.Chunks {
		if c.Script != nil {
			files = append(files, c.Script)
		}
		if c.Style != nil {
			files = append(files, c.Style)
		}
	}
	return append(files, b.Assets...)
}

// Chunk returns the rendered chunk with the given name, or nil.
func (b *Bundle) Chunk(name string) *Chunk {
	for _, c := range b.Chunks {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// Output returns the contents of the output directory keyed by filename.
// Scripts with a source map get a sourceMappingURL comment and a .map
// file alongside.
func (b *Bundle) Output() map[string][]byte {
	out := make(map[string][]byte)
	for _, f := range b.Files() {
		data := f.Data
		if len(f.Map) > 0 {
			data = slices.Concat(data, []byte("//# sourceMappingURL="+path.Base(f.Filename)+".map\n"))
			out[f.Filename+".map"] = f.Map
		}
		out[f.Filename] = data
	}
	return out
}

func quote(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
