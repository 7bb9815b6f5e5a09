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
// Package chunk partitions a module graph into output chunks.
//
// Every module starts in the chunk of the first root (entry or split point)
// that reaches it. Cache groups then pull matching modules into shared,
// named chunks: among the groups whose test matches, whose scope fits and
// whose minChunks threshold is met, the highest priority wins and the first
// declared wins a tie. Undersized group chunks and group chunks that push an
// entry past its request budget are dissolved and the assignment repeats.
package chunk

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"bennypowers.dev/splitpack/graph"
)

// Scope restricts which roots count toward a cache group's minChunks.
type Scope int

const (
	ScopeAsync Scope = iota
	ScopeInitial
	ScopeAll
)

// ParseScope parses "async", "initial" or "all". Empty means async.
func ParseScope(s string) (Scope, error) {
	switch strings.ToLower(s) {
	case "", "async":
		return ScopeAsync, nil
	case "initial":
		return ScopeInitial, nil
	case "all":
		return ScopeAll, nil
	}
	return 0, fmt.Errorf("unknown chunks scope %q", s)
}

func (s Scope) String() string {
	switch s {
	case ScopeInitial:
		return "initial"
	case ScopeAll:
		return "all"
	}
	return "async"
}

func (s Scope) includes(root graph.Root) bool {
	switch s {
	case ScopeInitial:
		return root.Entry
	case ScopeAsync:
		return root.Async()
	}
	return true
}

// Pattern is a cache group test. It is a doublestar glob matched against
// the module ID ("node_modules/react/index.js"), or a regular expression
// written between slashes ("/[\\/]node_modules[\\/]/") matched against the
// module ID with a leading slash. The empty pattern matches every module.
type Pattern struct {
	source string
	re     *regexp.Regexp
}

// ParsePattern compiles a cache group test.
func ParsePattern(s string) (Pattern, error) {
	if len(s) >= 2 && strings.HasPrefix(s, "/") && strings.HasSuffix(s, "/") {
		re, err := regexp.Compile(s[1 : len(s)-1])
		if err != nil {
			return Pattern{}, fmt.Errorf("invalid test %q: %w", s, err)
		}
		return Pattern{source: s, re: re}, nil
	}
	if !doublestar.ValidatePattern(s) {
		return Pattern{}, fmt.Errorf("invalid test %q", s)
	}
	return Pattern{source: s}, nil
}

// MustPattern is ParsePattern that panics on error.
func MustPattern(s string) Pattern {
	p, err := ParsePattern(s)
	if err != nil {
		panic(err)
	}
	return p
}

// Match reports whether the module ID satisfies the pattern.
func (p Pattern) Match(id string) bool {
	if p.source == "" {
		return true
	}
	if p.re != nil {
		return p.re.MatchString("/" + id)
	}
	ok, err := doublestar.Match(p.source, id)
	return err == nil && ok
}

func (p Pattern) String() string {
	return p.source
}

// MatchKind selects how a NameRule compares a package name.
type MatchKind int

const (
	MatchExact MatchKind = iota
	MatchPrefix
	MatchContains
	MatchGlob
)

// ParseMatchKind parses "exact", "prefix", "contains" or "glob".
func ParseMatchKind(s string) (MatchKind, error) {
	switch strings.ToLower(s) {
	case "exact", "":
		return MatchExact, nil
	case "prefix":
		return MatchPrefix, nil
	case "contains":
		return MatchContains, nil
	case "glob":
		return MatchGlob, nil
	}
	return 0, fmt.Errorf("unknown name rule match %q", s)
}

func (k MatchKind) String() string {
	return [...]string{"exact", "prefix", "contains", "glob"}[k]
}

// NameRule routes modules of matching packages to the chunk Name.
type NameRule struct {
	Kind  MatchKind
	Value string
	Name  string
}

// Matches reports whether the package name satisfies the rule.
func (r NameRule) Matches(pkg string) bool {
	switch r.Kind {
	case MatchPrefix:
		return strings.HasPrefix(pkg, r.Value)
	case MatchContains:
		return strings.Contains(pkg, r.Value)
	case MatchGlob:
		ok, err := doublestar.Match(r.Value, pkg)
		return err == nil && ok
	}
	return pkg == r.Value
}

// CacheGroup is one classification rule.
type CacheGroup struct {
	Key string
	// Test selects candidate modules.
	Test Pattern
	// Rules are tried in order against the module's package name; the
	// first match names the chunk. Without a package name or a matching
	// rule the chunk is named Fallback.
	Rules     []NameRule
	Fallback  string
	Priority  int
	MinChunks int
	MinSize   int64
	Scope     Scope
}

// ChunkName returns the chunk a module with the given ID joins through g.
func (g CacheGroup) ChunkName(id string) string {
	if len(g.Rules) == 0 {
		return g.Fallback
	}
	pkg, ok := PackageName(id)
	if !ok {
		return g.Fallback
	}
	for _, rule := range g.Rules {
		if rule.Matches(pkg) {
			return rule.Name
		}
	}
	return g.Fallback
}

// Names lists every chunk name groups can produce, in order, without
// duplicates.
func Names(groups []CacheGroup) []string {
	var names []string
	add := func(name string) {
		if name != "" && !slices.Contains(names, name) {
			names = append(names, name)
		}
	}
	for _, g := range groups {
		for _, rule := range g.Rules {
			add(rule.Name)
		}
		add(g.Fallback)
	}
	return names
}

// PackageName extracts the package directory following the first
// node_modules segment of id: "node_modules/@ant-design/icons/es/x.js"
// yields "@ant-design/icons". It reports false when id has no such segment
// or nothing follows it.
func PackageName(id string) (string, bool) {
	rest := id
	if !strings.HasPrefix(rest, "node_modules/") {
		i := strings.Index(rest, "/node_modules/")
		if i < 0 {
			return "", false
		}
		rest = rest[i+1:]
	}
	rest = strings.TrimPrefix(rest, "node_modules/")

	parts := strings.SplitN(rest, "/", 3)
	if parts[0] == "" {
		return "", false
	}
	if strings.HasPrefix(parts[0], "@") {
		if len(parts) < 2 || parts[1] == "" {
			return "", false
		}
		return parts[0] + "/" + parts[1], true
	}
	return parts[0], true
}

func (g CacheGroup) minChunks() int {
	return max(g.MinChunks, 1)
}
