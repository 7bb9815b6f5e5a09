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
package chunk

import (
	"cmp"
	"errors"
	"fmt"
	"slices"

	"bennypowers.dev/splitpack/graph"
)

// ErrAmbiguous marks a classification that left a module in no chunk or in
// more than one. It indicates a defect, not bad input.
var ErrAmbiguous = errors.New("ambiguous chunk assignment")

// Options tunes classification.
type Options struct {
	// MaxInitialRequests caps the number of chunk files an entry loads,
	// its own included. Zero means no cap.
	MaxInitialRequests int
}

// Chunk is a named set of modules emitted as one script file and, when it
// holds styles, one stylesheet.
type Chunk struct {
	Name string
	// Root is the index of the graph root the chunk belongs to, or -1 for
	// chunks created by cache groups.
	Root int
	// Groups lists the keys of the cache groups that contributed modules.
	Groups   []string
	Priority int
	MinSize  int64
	Modules  []*graph.Module
	Size     int64
}

// IsRoot reports whether the chunk is an entry or split-point chunk.
func (c *Chunk) IsRoot() bool {
	return c.Root >= 0
}

func (c *Chunk) add(m *graph.Module) {
	c.Modules = append(c.Modules, m)
	c.Size += m.Size
}

// Result is the final chunk assignment.
type Result struct {
	Graph *graph.Graph
	// Chunks lists root chunks in root order, then cache group chunks by name.
	Chunks []*Chunk
	// Assignment maps module IDs to their chunk.
	Assignment map[string]*Chunk
	// Requires lists, per root, the non-empty chunks that must be loaded
	// before the root module runs: shared chunks first, the root's own
	// chunk last. An entry always requires its own chunk.
	Requires [][]*Chunk
	// Passes counts assignment rounds, including the final one.
	Passes int
}

// Chunk returns the chunk with the given name, or nil.
func (r *Result) Chunk(name string) *Chunk {
	for _, c := range r.Chunks {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// Initial reports whether some entry requires c.
func (r *Result) Initial(c *Chunk) bool {
	for i, root := range r.Graph.Roots {
		if root.Entry && slices.Contains(r.Requires[i], c) {
			return true
		}
	}
	return false
}

// Classify assigns every module of g to exactly one chunk.
func Classify(g *graph.Graph, groups []CacheGroup, opts Options) (*Result, error) {
	if err := checkRoots(g); err != nil {
		return nil, err
	}

	pinned := make(map[string]bool)
	for pass := 1; ; pass++ {
		res := assign(g, groups, pinned)
		res.Passes = pass

		if undersized := res.undersized(); len(undersized) > 0 {
			for _, c := range undersized {
				pin(pinned, c)
			}
			continue
		}

		if c := res.overBudget(opts.MaxInitialRequests); c != nil {
			pin(pinned, c)
			continue
		}

		if err := res.verify(); err != nil {
			return nil, err
		}
		return res, nil
	}
}

func checkRoots(g *graph.Graph) error {
	seen := make(map[string]bool, len(g.Roots))
	for _, r := range g.Roots {
		if seen[r.Name] {
			return fmt.Errorf("%w: two roots named %q", ErrAmbiguous, r.Name)
		}
		seen[r.Name] = true
	}
	return nil
}

func pin(pinned map[string]bool, c *Chunk) {
	for _, m := range c.Modules {
		pinned[m.ID] = true
	}
}

// assign runs one round: pinned modules stay with their first root, the
// rest go through the cache groups.
func assign(g *graph.Graph, groups []CacheGroup, pinned map[string]bool) *Result {
	res := &Result{
		Graph:      g,
		Assignment: make(map[string]*Chunk, len(g.Modules)),
	}

	byName := make(map[string]*Chunk)
	for i, root := range g.Roots {
		c := &Chunk{Name: root.Name, Root: i}
		byName[root.Name] = c
		res.Chunks = append(res.Chunks, c)
	}

	var shared []*Chunk
	for _, m := range g.Order {
		if len(m.Origins) == 0 {
			continue
		}
		name := g.Roots[m.Origins[0]].Name
		var group *CacheGroup
		if !pinned[m.ID] {
			if i := selectGroup(g, groups, m); i >= 0 {
				group = &groups[i]
				name = group.ChunkName(m.ID)
			}
		}

		c, ok := byName[name]
		if !ok {
			c = &Chunk{Name: name, Root: -1}
			byName[name] = c
			shared = append(shared, c)
		}
		if group != nil && !c.IsRoot() {
			if !slices.Contains(c.Groups, group.Key) {
				if len(c.Groups) == 0 || group.Priority > c.Priority {
					c.Priority = group.Priority
				}
				c.Groups = append(c.Groups, group.Key)
			}
			c.MinSize = max(c.MinSize, group.MinSize)
		}
		c.add(m)
		res.Assignment[m.ID] = c
	}

	slices.SortFunc(shared, func(a, b *Chunk) int { return cmp.Compare(a.Name, b.Name) })
	res.Chunks = append(res.Chunks, shared...)
	res.Requires = requires(g, res)
	return res
}

// selectGroup returns the index of the winning cache group for m, or -1.
// Strict comparison keeps the first declared group on equal priority.
func selectGroup(g *graph.Graph, groups []CacheGroup, m *graph.Module) int {
	best := -1
	for i := range groups {
		group := &groups[i]
		if !group.Test.Match(m.ID) {
			continue
		}
		refs := 0
		for _, o := range m.Origins {
			if group.Scope.includes(g.Roots[o]) {
				refs++
			}
		}
		if refs < group.minChunks() {
			continue
		}
		if best < 0 || group.Priority > groups[best].Priority {
			best = i
		}
	}
	return best
}

func requires(g *graph.Graph, res *Result) [][]*Chunk {
	needed := make([]map[*Chunk]bool, len(g.Roots))
	for i := range needed {
		needed[i] = make(map[*Chunk]bool)
	}
	for _, m := range g.Order {
		c := res.Assignment[m.ID]
		if c == nil {
			continue
		}
		for _, o := range m.Origins {
			needed[o][c] = true
		}
	}

	out := make([][]*Chunk, len(g.Roots))
	for i, root := range g.Roots {
		own := res.Chunks[i]
		var list []*Chunk
		// Shared chunks, then other roots' chunks, each in result order.
		for _, c := range res.Chunks {
			if needed[i][c] && !c.IsRoot() {
				list = append(list, c)
			}
		}
		for _, c := range res.Chunks {
			if needed[i][c] && c.IsRoot() && c != own {
				list = append(list, c)
			}
		}
		if root.Entry || len(own.Modules) > 0 {
			list = append(list, own)
		}
		out[i] = list
	}
	return out
}

// undersized returns cache group chunks smaller than their minSize.
func (r *Result) undersized() []*Chunk {
	var out []*Chunk
	for _, c := range r.Chunks {
		if !c.IsRoot() && len(c.Groups) > 0 && c.Size < c.MinSize {
			out = append(out, c)
		}
	}
	return out
}

// overBudget returns the cache group chunk to dissolve for the first entry
// that loads more than limit chunks: lowest priority, then smallest, then
// first by name. It returns nil when every entry is within budget or no
// dissolvable chunk remains.
func (r *Result) overBudget(limit int) *Chunk {
	if limit <= 0 {
		return nil
	}
	for i, root := range r.Graph.Roots {
		if !root.Entry || len(r.Requires[i]) <= limit {
			continue
		}
		var candidates []*Chunk
		for _, c := range r.Requires[i] {
			if !c.IsRoot() {
				candidates = append(candidates, c)
			}
		}
		if len(candidates) == 0 {
			continue
		}
		slices.SortFunc(candidates, func(a, b *Chunk) int {
			return cmp.Or(
				cmp.Compare(a.Priority, b.Priority),
				cmp.Compare(a.Size, b.Size),
				cmp.Compare(a.Name, b.Name),
			)
		})
		return candidates[0]
	}
	return nil
}

// verify checks that every module sits in exactly one chunk.
func (r *Result) verify() error {
	count := make(map[string]int, len(r.Graph.Modules))
	for _, c := range r.Chunks {
		for _, m := range c.Modules {
			count[m.ID]++
		}
	}
	var errs []error
	for _, m := range r.Graph.Order {
		switch n := count[m.ID]; {
		case n == 0:
			errs = append(errs, fmt.Errorf("%w: module %s is in no chunk", ErrAmbiguous, m.ID))
		case n > 1:
			errs = append(errs, fmt.Errorf("%w: module %s is in %d chunks", ErrAmbiguous, m.ID, n))
		}
	}
	return errors.Join(errs...)
}
