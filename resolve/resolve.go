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
// Package resolve maps import specifiers to files on disk: alias prefixes,
// relative paths with extension probing and index files, and bare
// specifiers found in node_modules through package.json.
package resolve

import (
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"bennypowers.dev/splitpack/fs"
	"bennypowers.dev/splitpack/packagejson"
)

// DefaultExtensions are probed, in order, for specifiers without an extension.
var DefaultExtensions = []string{".ts", ".tsx", ".js", ".jsx"}

// Error reports an import target that could not be located.
type Error struct {
	Importer  string
	Specifier string
	Err       error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("cannot resolve %q from %s", e.Specifier, e.Importer)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

var errNotFound = errors.New("no such file")

type aliasEntry struct {
	prefix string
	target string
}

// Resolver resolves specifiers relative to an importing file.
// It is immutable; the With methods return modified copies.
type Resolver struct {
	fs         fs.FileSystem
	alias      []aliasEntry
	extensions []string
	conditions []string
	cache      packagejson.Cache
}

// New creates a Resolver with DefaultExtensions and no aliases.
func New(fsys fs.FileSystem) *Resolver {
	return &Resolver{
		fs:         fsys,
		extensions: DefaultExtensions,
		cache:      packagejson.NewMemoryCache(),
	}
}

func (r *Resolver) clone() *Resolver {
	c := *r
	return &c
}

// WithAlias returns a Resolver that rewrites specifiers equal to a key, or
// starting with key + "/", onto the mapped absolute path. Longer keys are
// tried first.
func (r *Resolver) WithAlias(alias map[string]string) *Resolver {
	c := r.clone()
	c.alias = make([]aliasEntry, 0, len(alias))
	for prefix, target := range alias {
		c.alias = append(c.alias, aliasEntry{prefix: strings.TrimSuffix(prefix, "/"), target: target})
	}
	slices.SortFunc(c.alias, func(a, b aliasEntry) int {
		if d := len(b.prefix) - len(a.prefix); d != 0 {
			return d
		}
		return strings.Compare(a.prefix, b.prefix)
	})
	return c
}

// WithExtensions returns a Resolver probing the given extensions.
func (r *Resolver) WithExtensions(extensions []string) *Resolver {
	c := r.clone()
	if len(extensions) > 0 {
		c.extensions = slices.Clone(extensions)
	}
	return c
}

// WithConditions returns a Resolver using the given export conditions.
func (r *Resolver) WithConditions(conditions []string) *Resolver {
	c := r.clone()
	c.conditions = slices.Clone(conditions)
	return c
}

// WithCache returns a Resolver sharing the given package.json cache.
func (r *Resolver) WithCache(cache packagejson.Cache) *Resolver {
	c := r.clone()
	c.cache = cache
	return c
}

// Resolve returns the absolute path of the file specifier refers to when
// imported from importer. Failures are returned as *Error.
func (r *Resolver) Resolve(importer, specifier string) (string, error) {
	resolved, err := r.resolve(importer, specifier)
	if err != nil {
		return "", &Error{Importer: importer, Specifier: specifier, Err: err}
	}
	return resolved, nil
}

func (r *Resolver) resolve(importer, specifier string) (string, error) {
	if specifier == "" {
		return "", errors.New("empty specifier")
	}

	if target, ok := r.applyAlias(specifier); ok {
		return r.resolveFile(target)
	}

	if isRelative(specifier) {
		return r.resolveFile(filepath.Join(filepath.Dir(importer), filepath.FromSlash(specifier)))
	}
	if filepath.IsAbs(specifier) {
		return r.resolveFile(filepath.Clean(specifier))
	}

	return r.resolveBare(filepath.Dir(importer), specifier)
}

func (r *Resolver) applyAlias(specifier string) (string, bool) {
	for _, a := range r.alias {
		if specifier == a.prefix {
			return a.target, true
		}
		if rest, ok := strings.CutPrefix(specifier, a.prefix+"/"); ok {
			return filepath.Join(a.target, filepath.FromSlash(rest)), true
		}
	}
	return "", false
}

// resolveBare walks up from dir looking for node_modules/<package>.
func (r *Resolver) resolveBare(dir, specifier string) (string, error) {
	pkgName := PackageName(specifier)
	subpath := "." + strings.TrimPrefix(specifier, pkgName)

	for {
		if filepath.Base(dir) != "node_modules" {
			pkgDir := filepath.Join(dir, "node_modules", filepath.FromSlash(pkgName))
			if stat, err := r.fs.Stat(pkgDir); err == nil && stat.IsDir() {
				return r.resolvePackage(pkgDir, subpath)
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("package %s not found in node_modules", pkgName)
		}
		dir = parent
	}
}

func (r *Resolver) resolvePackage(pkgDir, subpath string) (string, error) {
	pkgJSONPath := filepath.Join(pkgDir, "package.json")
	pkg, err := r.cache.GetOrLoad(pkgJSONPath, func() (*packagejson.PackageJSON, error) {
		if !r.fs.Exists(pkgJSONPath) {
			return &packagejson.PackageJSON{}, nil
		}
		return packagejson.ParseFile(r.fs, pkgJSONPath)
	})
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", pkgJSONPath, err)
	}

	target, err := pkg.Export(subpath, r.conditions)
	if err != nil {
		return "", fmt.Errorf("%s in %s: %w", subpath, pkgDir, err)
	}
	return r.resolveFile(filepath.Join(pkgDir, filepath.FromSlash(target)))
}

// resolveFile tries p itself, p with each extension, then p/index with
// each extension (plus index.js).
func (r *Resolver) resolveFile(p string) (string, error) {
	if r.isFile(p) {
		return p, nil
	}
	for _, ext := range r.extensions {
		if r.isFile(p + ext) {
			return p + ext, nil
		}
	}
	if stat, err := r.fs.Stat(p); err == nil && stat.IsDir() {
		for _, ext := range r.indexExtensions() {
			candidate := filepath.Join(p, "index"+ext)
			if r.isFile(candidate) {
				return candidate, nil
			}
		}
	}
	return "", fmt.Errorf("%s: %w", p, errNotFound)
}

func (r *Resolver) indexExtensions() []string {
	if slices.Contains(r.extensions, ".js") {
		return r.extensions
	}
	return append(slices.Clone(r.extensions), ".js")
}

func (r *Resolver) isFile(p string) bool {
	stat, err := r.fs.Stat(p)
	return err == nil && !stat.IsDir()
}

func isRelative(specifier string) bool {
	return specifier == "." || specifier == ".." ||
		strings.HasPrefix(specifier, "./") || strings.HasPrefix(specifier, "../")
}

// PackageName returns the package part of a bare specifier:
// "@scope/pkg/sub" becomes "@scope/pkg" and "pkg/sub" becomes "pkg".
func PackageName(specifier string) string {
	if strings.HasPrefix(specifier, "@") {
		parts := strings.SplitN(specifier, "/", 3)
		if len(parts) >= 2 {
			return path.Join(parts[0], parts[1])
		}
		return specifier
	}
	name, _, _ := strings.Cut(specifier, "/")
	return name
}

// IsThirdParty reports whether p lies inside a node_modules directory.
func IsThirdParty(p string) bool {
	p = filepath.ToSlash(p)
	return strings.Contains(p, "/node_modules/") || strings.HasPrefix(p, "node_modules/")
}
