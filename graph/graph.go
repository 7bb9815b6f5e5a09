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
// Package graph builds the module graph of a web application: every file
// reachable from the entry points, its dependencies, and the chunk roots
// (entries and dynamic-import split points) whose synchronous closure
// contains it.
package graph

import (
	"slices"

	"bennypowers.dev/splitpack/transform"
)

// Origin categorizes where a module comes from.
type Origin int

const (
	FirstParty Origin = iota
	ThirdParty
)

func (o Origin) String() string {
	if o == ThirdParty {
		return "third-party"
	}
	return "first-party"
}

// Dep is one reference from a module to another.
type Dep struct {
	Specifier string // as written in source (or produced by the transform)
	Target    string // module ID
	Async     bool   // dynamic import(); the target starts a split point
}

// Module is one resolved file in the graph.
type Module struct {
	// ID is the path relative to the project directory, slash separated.
	ID     string
	Path   string
	Origin Origin
	Size   int64
	Deps   []Dep
	Result *transform.Result

	// Importers counts edges into the module, cycles included.
	Importers int
	// Order is the module's position in the depth-first post-order.
	Order int
	// Origins holds the indices of the roots whose synchronous closure
	// contains the module, ascending.
	Origins []int
}

// RefCount is the number of distinct roots the module is reachable from.
func (m *Module) RefCount() int {
	return len(m.Origins)
}

// Specifiers maps each dependency specifier to its target module ID.
func (m *Module) Specifiers() map[string]string {
	deps := make(map[string]string, len(m.Deps))
	for _, d := range m.Deps {
		deps[d.Specifier] = d.Target
	}
	return deps
}

// Root is a chunk root: an entry point or a split point.
type Root struct {
	Name   string
	Module string
	Entry  bool
}

// Async reports whether the root is a dynamic-import split point.
func (r Root) Async() bool {
	return !r.Entry
}

// Graph is the module graph of one build.
type Graph struct {
	Modules map[string]*Module
	// Order lists modules in depth-first post-order: dependencies before
	// their importers.
	Order []*Module
	// Roots lists entries in configured order, then split points in
	// discovery order.
	Roots []Root
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{Modules: make(map[string]*Module)}
}

// Add appends m to the graph in post-order position.
func (g *Graph) Add(m *Module) {
	m.Order = len(g.Order)
	g.Modules[m.ID] = m
	g.Order = append(g.Order, m)
}

// Module returns the module with the given ID, or nil.
func (g *Graph) Module(id string) *Module {
	return g.Modules[id]
}

// AddRoot appends a root and returns its index. Async roots are deduplicated
// by module.
func (g *Graph) AddRoot(root Root) int {
	if root.Async() {
		for i, r := range g.Roots {
			if r.Async() && r.Module == root.Module {
				return i
			}
		}
	}
	g.Roots = append(g.Roots, root)
	return len(g.Roots) - 1
}

// RootIndex returns the index of the async root for module id, or -1.
func (g *Graph) RootIndex(id string) int {
	for i, r := range g.Roots {
		if r.Async() && r.Module == id {
			return i
		}
	}
	return -1
}

// Members returns the synchronous closure of root i in graph order.
func (g *Graph) Members(i int) []*Module {
	seen := make(map[string]bool)
	var walk func(id string)
	walk = func(id string) {
		if seen[id] {
			return
		}
		seen[id] = true
		m := g.Modules[id]
		if m == nil {
			return
		}
		for _, d := range m.Deps {
			if !d.Async {
				walk(d.Target)
			}
		}
	}
	walk(g.Roots[i].Module)

	members := make([]*Module, 0, len(seen))
	for _, m := range g.Order {
		if seen[m.ID] {
			members = append(members, m)
		}
	}
	return members
}

// ComputeOrigins fills Module.Origins from the roots.
func (g *Graph) ComputeOrigins() {
	for _, m := range g.Order {
		m.Origins = nil
	}
	for i := range g.Roots {
		for _, m := range g.Members(i) {
			if !slices.Contains(m.Origins, i) {
				m.Origins = append(m.Origins, i)
			}
		}
	}
}

// Size returns the summed raw size of all modules.
func (g *Graph) Size() int64 {
	var total int64
	for _, m := range g.Order {
		total += m.Size
	}
	return total
}
