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
package bundle

import (
	"fmt"
	"path/filepath"
	"slices"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/evanw/esbuild/pkg/api"
	"github.com/rs/zerolog"

	"bennypowers.dev/splitpack/chunk"
	"bennypowers.dev/splitpack/config"
	"bennypowers.dev/splitpack/fs"
	"bennypowers.dev/splitpack/graph"
	"bennypowers.dev/splitpack/naming"
	"bennypowers.dev/splitpack/packagejson"
	"bennypowers.dev/splitpack/resolve"
	"bennypowers.dev/splitpack/transform"
)

// Context holds the state of one build: the settings it runs with and
// the tables that must not outlive it, such as the namer's filename
// registry and the resolver's package.json cache. Create one per build.
type Context struct {
	Config   *config.Config
	FS       fs.FileSystem
	Logger   zerolog.Logger
	Namer    *naming.Namer
	Packages *packagejson.MemoryCache
	Pipeline *transform.Pipeline
	Resolver *resolve.Resolver
	Groups   []chunk.CacheGroup
	Entries  []graph.Entry
	Targets  []api.Engine
}

// NewContext prepares a build of cfg.
func NewContext(cfg *config.Config, fsys fs.FileSystem, logger zerolog.Logger) (*Context, error) {
	targets, err := transform.ParseTargets(cfg.Targets)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	groups, err := cfg.ChunkGroups()
	if err != nil {
		return nil, err
	}
	entries, err := cfg.Entries(fsys)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	namer := naming.New(cfg.Mode)
	pipeline := transform.New(transform.Options{
		Mode:        cfg.Mode,
		SourceMap:   cfg.SourceMaps(),
		InlineLimit: cfg.InlineLimit,
		ClassNames:  cfg.ClassNames,
		Targets:     targets,
		PublicPath:  cfg.PublicPath,
	}, namer)

	packages := packagejson.NewMemoryCache()
	resolver := resolve.New(fsys).WithCache(packages).WithAlias(cfg.AliasTable())
	if len(cfg.Extensions) > 0 {
		resolver = resolver.WithExtensions(cfg.Extensions)
	}
	if len(cfg.Conditions) > 0 {
		resolver = resolver.WithConditions(cfg.Conditions)
	}

	c := &Context{
		Config:   cfg,
		FS:       fsys,
		Logger:   logger,
		Namer:    namer,
		Packages: packages,
		Pipeline: pipeline,
		Resolver: resolver,
		Groups:   groups,
		Targets:  targets,
	}
	for _, e := range entries {
		c.Entries = append(c.Entries, graph.Entry{Name: e.Name, Path: e.Path})
	}
	return c, nil
}

// checkFiles lists the files matched by the checker include globs, sorted.
func (c *Context) checkFiles() ([]string, error) {
	root := fs.Sub(c.FS, c.Config.Dir)
	seen := make(map[string]bool)
	var files []string
	for _, pattern := range c.Config.CheckerInclude {
		matches, err := doublestar.Glob(root, filepath.ToSlash(pattern), doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("checker include %s: %w", pattern, err)
		}
		for _, m := range matches {
			if resolve.IsThirdParty(m) || seen[m] {
				continue
			}
			seen[m] = true
			files = append(files, c.Config.Abs(m))
		}
	}
	slices.Sort(files)
	return files, nil
}
