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
package output

import (
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"bennypowers.dev/splitpack/bundle"
	"bennypowers.dev/splitpack/check"
	"bennypowers.dev/splitpack/chunk"
)

// Chunk kinds reported by Plan.
const (
	KindEntry  = "entry"
	KindAsync  = "async"
	KindShared = "shared"
)

// Plan reports how modules were grouped into chunks.
type Plan struct {
	Chunks []ChunkInfo `json:"chunks" yaml:"chunks"`
	Roots  []RootInfo  `json:"roots" yaml:"roots"`
	Passes int         `json:"passes" yaml:"passes"`
	// Size is the raw size of every module in the graph.
	Size int64 `json:"size" yaml:"size"`
}

// ChunkInfo describes one chunk.
type ChunkInfo struct {
	Name    string   `json:"name" yaml:"name"`
	Kind    string   `json:"kind" yaml:"kind"`
	Initial bool     `json:"initial" yaml:"initial"`
	Groups  []string `json:"groups,omitempty" yaml:"groups,omitempty"`
	Size    int64    `json:"size" yaml:"size"`
	Modules []string `json:"modules" yaml:"modules"`
	Files   []string `json:"files,omitempty" yaml:"files,omitempty"`
}

// RootInfo lists the chunks a root needs, in load order.
type RootInfo struct {
	Name     string   `json:"name" yaml:"name"`
	Module   string   `json:"module" yaml:"module"`
	Entry    bool     `json:"entry" yaml:"entry"`
	Requires []string `json:"requires" yaml:"requires"`
}

// NewPlan summarizes res.
func NewPlan(res *chunk.Result) *Plan {
	p := &Plan{Passes: res.Passes, Size: res.Graph.Size()}
	for _, c := range res.Chunks {
		info := ChunkInfo{
			Name:    c.Name,
			Kind:    KindShared,
			Initial: res.Initial(c),
			Groups:  c.Groups,
			Size:    c.Size,
			Modules: make([]string, 0, len(c.Modules)),
		}
		if c.IsRoot() {
			info.Kind = KindAsync
			if res.Graph.Roots[c.Root].Entry {
				info.Kind = KindEntry
			}
		}
		for _, m := range c.Modules {
			info.Modules = append(info.Modules, m.ID)
		}
		p.Chunks = append(p.Chunks, info)
	}
	for i, r := range res.Graph.Roots {
		info := RootInfo{Name: r.Name, Module: r.Module, Entry: r.Entry, Requires: []string{}}
		for _, c := range res.Requires[i] {
			info.Requires = append(info.Requires, c.Name)
		}
		p.Roots = append(p.Roots, info)
	}
	return p
}

// Text implements Texter.
func (p *Plan) Text(w io.Writer) error {
	tw := table(w)
	fmt.Fprintln(tw, "CHUNK\tKIND\tMODULES\tSIZE\tFILES")
	for _, c := range p.Chunks {
		kind := c.Kind
		if c.Initial && kind != KindEntry {
			kind += " (initial)"
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n", c.Name, kind, len(c.Modules), Size(c.Size), strings.Join(c.Files, " "))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(w, "\n%d modules, %s\n", countModules(p.Chunks), Size(p.Size))
	for _, r := range p.Roots {
		fmt.Fprintf(w, "%s (%s) -> %s\n", r.Name, r.Module, strings.Join(r.Requires, ", "))
	}
	return nil
}

// Build reports a finished build.
type Build struct {
	Plan        `yaml:",inline"`
	Mode        string             `json:"mode" yaml:"mode"`
	Output      string             `json:"output" yaml:"output"`
	Files       []FileInfo         `json:"files" yaml:"files"`
	Diagnostics []check.Diagnostic `json:"diagnostics,omitempty" yaml:"diagnostics,omitempty"`
	Duration    string             `json:"duration" yaml:"duration"`
}

// FileInfo is one written file.
type FileInfo struct {
	Name string `json:"name" yaml:"name"`
	Size int64  `json:"size" yaml:"size"`
}

// NewBuild summarizes res, written to dir.
func NewBuild(res *bundle.Result, mode, dir string) *Build {
	b := &Build{
		Plan:        *NewPlan(res.Chunks),
		Mode:        mode,
		Output:      dir,
		Diagnostics: res.Diagnostics,
		Duration:    res.Duration.Round(time.Millisecond).String(),
	}
	for i := range b.Chunks {
		c := res.Bundle.Chunk(b.Chunks[i].Name)
		if c == nil {
			continue
		}
		if c.Script != nil {
			b.Chunks[i].Files = append(b.Chunks[i].Files, c.Script.Filename)
		}
		if c.Style != nil {
			b.Chunks[i].Files = append(b.Chunks[i].Files, c.Style.Filename)
		}
	}
	for name, data := range res.Files {
		b.Files = append(b.Files, FileInfo{Name: name, Size: int64(len(data))})
	}
	slices.SortFunc(b.Files, func(a, b FileInfo) int { return strings.Compare(a.Name, b.Name) })
	return b
}

// Text implements Texter.
func (b *Build) Text(w io.Writer) error {
	if err := b.Plan.Text(w); err != nil {
		return err
	}
	fmt.Fprintln(w)
	tw := table(w)
	for _, f := range b.Files {
		fmt.Fprintf(tw, "%s\t%s\n", f.Name, Size(f.Size))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	for _, d := range b.Diagnostics {
		fmt.Fprintln(w, d.String())
	}
	fmt.Fprintf(w, "\n%s build written to %s in %s\n", b.Mode, b.Output, b.Duration)
	return nil
}

// Size formats n bytes for reports.
func Size(n int64) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MiB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KiB", float64(n)/(1<<10))
	}
	return fmt.Sprintf("%d B", n)
}

func countModules(chunks []ChunkInfo) int {
	n := 0
	for _, c := range chunks {
		n += len(c.Modules)
	}
	return n
}
