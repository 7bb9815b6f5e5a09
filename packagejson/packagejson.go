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
// Package packagejson reads the package.json fields needed to locate the
// file a bare specifier refers to inside node_modules.
package packagejson

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"bennypowers.dev/splitpack/fs"
)

// ErrNotExported is wrapped by Export when the exports field hides a subpath.
var ErrNotExported = errors.New("not exported by package.json")

// DefaultConditions is the export condition priority for browser bundles.
var DefaultConditions = []string{"browser", "import", "module", "require", "default"}

// PackageJSON holds the package.json fields splitpack reads.
type PackageJSON struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	Main    string `json:"main,omitempty"`
	Module  string `json:"module,omitempty"`
	// Browser is either a string entry or a replacement map. Only the
	// string form is honoured.
	Browser any `json:"browser,omitempty"`
	Exports any `json:"exports,omitempty"`
}

// Parse decodes package.json bytes.
func Parse(data []byte) (*PackageJSON, error) {
	pkg := new(PackageJSON)
	if err := json.Unmarshal(data, pkg); err != nil {
		return nil, err
	}
	return pkg, nil
}

// ParseFile reads and decodes the package.json at path.
func ParseFile(fsys fs.FileSystem, path string) (*PackageJSON, error) {
	data, err := fsys.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// EntryPoint is the main file of a package without exports:
// string browser, module, main, then index.js.
func (pkg *PackageJSON) EntryPoint() string {
	browser, _ := pkg.Browser.(string)
	for _, candidate := range []string{browser, pkg.Module, pkg.Main} {
		if candidate != "" {
			return relative(candidate)
		}
	}
	return "index.js"
}

// Export maps a subpath ("." or "./sub") to a package-relative file path.
// Without an exports field every file is reachable. A nil conditions
// slice selects DefaultConditions.
func (pkg *PackageJSON) Export(subpath string, conditions []string) (string, error) {
	if conditions == nil {
		conditions = DefaultConditions
	}
	w := exportWalk{conditions: conditions}

	var (
		target string
		ok     bool
	)
	switch exports := pkg.Exports.(type) {
	case nil:
		if subpath == "." {
			return pkg.EntryPoint(), nil
		}
		return relative(subpath), nil
	case string:
		if subpath == "." {
			target, ok = relative(exports), true
		}
	case map[string]any:
		target, ok = w.subpath(exports, subpath)
	}
	if !ok {
		return "", fmt.Errorf("%q %w", subpath, ErrNotExported)
	}
	return target, nil
}

// exportWalk descends an exports value, choosing conditions in priority
// order and substituting a wildcard match into pattern targets.
type exportWalk struct {
	conditions []string
	match      string
	pattern    bool
}

func (w exportWalk) subpath(exports map[string]any, subpath string) (string, bool) {
	// A map with no "." keys is a condition map for the root.
	keyed := false
	for key := range exports {
		if strings.HasPrefix(key, ".") {
			keyed = true
			break
		}
	}
	if !keyed {
		if subpath != "." {
			return "", false
		}
		return w.pick(exports)
	}

	if value, ok := exports[subpath]; ok {
		return w.pick(value)
	}

	var best, prefix, suffix string
	for key := range exports {
		before, after, wild := strings.Cut(key, "*")
		if !wild || len(key) <= len(best) || len(subpath) < len(before)+len(after) {
			continue
		}
		if strings.HasPrefix(subpath, before) && strings.HasSuffix(subpath, after) {
			best, prefix, suffix = key, before, after
		}
	}
	if best == "" {
		return "", false
	}
	w.match, w.pattern = subpath[len(prefix):len(subpath)-len(suffix)], true
	return w.pick(exports[best])
}

func (w exportWalk) pick(value any) (string, bool) {
	switch v := value.(type) {
	case string:
		if w.pattern {
			v = strings.ReplaceAll(v, "*", w.match)
		}
		return relative(v), true
	case map[string]any:
		for _, cond := range w.conditions {
			if nested, ok := v[cond]; ok {
				if target, ok := w.pick(nested); ok {
					return target, true
				}
			}
		}
	case []any:
		for _, fallback := range v {
			if target, ok := w.pick(fallback); ok {
				return target, true
			}
		}
	}
	return "", false
}

func relative(p string) string {
	return strings.TrimPrefix(p, "./")
}
