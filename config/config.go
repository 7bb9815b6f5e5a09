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
// Package config loads splitpack build settings.
//
// Settings come from an optional splitpack.{yaml,yml,json,toml} file in the
// project directory, read with viper, layered over defaults that mirror a
// typical React + antd webpack setup. Command-line flags are applied on top
// by the cmd packages.
package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/viper"

	"bennypowers.dev/splitpack/chunk"
	"bennypowers.dev/splitpack/fs"
	"bennypowers.dev/splitpack/naming"
)

// FileNames are probed, in order, when no config file is given.
var FileNames = []string{"splitpack.yaml", "splitpack.yml", "splitpack.json", "splitpack.toml"}

// Config holds the settings for one build. Relative paths are relative to Dir.
type Config struct {
	Dir                string             `mapstructure:"-"`
	File               string             `mapstructure:"-"`
	Mode               naming.Mode        `mapstructure:"mode"`
	Entry              map[string]string  `mapstructure:"entry"`
	Output             string             `mapstructure:"output"`
	PublicPath         string             `mapstructure:"publicPath"`
	Alias              map[string]string  `mapstructure:"alias"`
	Extensions         []string           `mapstructure:"extensions"`
	Conditions         []string           `mapstructure:"conditions"`
	InlineLimit        int64              `mapstructure:"inlineLimit"`
	MaxInitialRequests int                `mapstructure:"maxInitialRequests"`
	CacheGroups        []CacheGroupConfig `mapstructure:"cacheGroups"`
	ClassNames         string             `mapstructure:"classNames"`
	Targets            []string           `mapstructure:"targets"`
	Template           string             `mapstructure:"template"`
	Favicon            string             `mapstructure:"favicon"`
	SourceMap          *bool              `mapstructure:"sourceMap"`
	Compress           []string           `mapstructure:"compress"`
	Checker            string             `mapstructure:"checker"`
	CheckerInclude     []string           `mapstructure:"checkerInclude"`
	Concurrency        int                `mapstructure:"concurrency"`
}

// CacheGroupConfig is the serialized form of a chunk.CacheGroup.
type CacheGroupConfig struct {
	Key       string           `mapstructure:"key"`
	Test      string           `mapstructure:"test"`
	Name      string           `mapstructure:"name"`
	NameRules []NameRuleConfig `mapstructure:"nameRules"`
	Priority  int              `mapstructure:"priority"`
	MinChunks int              `mapstructure:"minChunks"`
	MinSize   int64            `mapstructure:"minSize"`
	Chunks    string           `mapstructure:"chunks"`
}

// NameRuleConfig is the serialized form of a chunk.NameRule.
type NameRuleConfig struct {
	Match string `mapstructure:"match"`
	Value string `mapstructure:"value"`
	Name  string `mapstructure:"name"`
}

// Entry is one resolved entry point.
type Entry struct {
	Name string
	Path string
}

// Default returns the built-in configuration. Mode follows NODE_ENV.
func Default() *Config {
	return &Config{
		Mode:       naming.ParseMode(os.Getenv("NODE_ENV")),
		Entry:      map[string]string{"app": "src/index.tsx"},
		Output:     "dist",
		PublicPath: "/",
		Alias:      map[string]string{"@": "src"},
		Extensions: []string{".ts", ".tsx", ".js", ".jsx"},
		// 8 KiB: smaller raster images become data URIs.
		InlineLimit:        8 * 1024,
		MaxInitialRequests: 5,
		CacheGroups: []CacheGroupConfig{
			{
				Key:       "common",
				Test:      "**/src/**",
				Name:      "common",
				Priority:  1,
				MinChunks: 1,
				MinSize:   0,
				Chunks:    "all",
			},
			{
				Key:  "vendors",
				Test: "**/node_modules/**",
				Name: "vendor",
				NameRules: []NameRuleConfig{
					{Match: "contains", Value: "react", Name: "react"},
					{Match: "contains", Value: "antd", Name: "antd"},
					{Match: "prefix", Value: "@ant-design/", Name: "antd"},
				},
				Priority:  10,
				MinChunks: 1,
				Chunks:    "all",
			},
		},
		ClassNames:     "hui-[name]-[local]--[hash:base64:5]",
		Targets:        []string{"chrome87", "firefox78", "safari14", "edge88"},
		Template:       "public/index.html",
		Favicon:        "public/favicon.ico",
		Checker:        "syntax",
		CheckerInclude: []string{"src/**/*.{ts,tsx}"},
	}
}

// replaceable lists keys whose configured value replaces the default
// instead of being merged into it.
var replaceable = []string{
	"entry", "alias", "extensions", "conditions", "cacheGroups",
	"targets", "compress", "checkerInclude",
}

// Load reads the config file (file, or the first of FileNames found in dir)
// over Default. A missing config file is not an error; a missing explicit
// file is.
func Load(fsys fs.FileSystem, dir, file string) (*Config, error) {
	cfg := Default()
	cfg.Dir = dir

	if file == "" {
		for _, name := range FileNames {
			if candidate := filepath.Join(dir, name); fsys.Exists(candidate) {
				file = candidate
				break
			}
		}
	} else if !filepath.IsAbs(file) {
		file = filepath.Join(dir, file)
	}

	if file != "" {
		if err := cfg.read(fsys, file); err != nil {
			return nil, err
		}
	}

	paths, err := LoadTSConfigPaths(fsys, dir)
	if err != nil {
		return nil, err
	}
	for prefix, target := range paths {
		if _, ok := cfg.Alias[prefix]; !ok {
			cfg.Alias[prefix] = target
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (cfg *Config) read(fsys fs.FileSystem, file string) error {
	data, err := fsys.ReadFile(file)
	if err != nil {
		return fmt.Errorf("reading config %s: %w", file, err)
	}

	v := viper.New()
	ext := strings.TrimPrefix(filepath.Ext(file), ".")
	if ext == "" {
		ext = "yaml"
	}
	v.SetConfigType(ext)
	if err := v.ReadConfig(bytes.NewReader(data)); err != nil {
		return fmt.Errorf("parsing config %s: %w", file, err)
	}

	for _, key := range replaceable {
		if v.IsSet(key) {
			cfg.clear(key)
		}
	}
	if err := v.Unmarshal(cfg); err != nil {
		return fmt.Errorf("decoding config %s: %w", file, err)
	}
	cfg.Mode = naming.ParseMode(string(cfg.Mode))
	cfg.File = file
	return nil
}

func (cfg *Config) clear(key string) {
	switch key {
	case "entry":
		cfg.Entry = nil
	case "alias":
		cfg.Alias = map[string]string{}
	case "extensions":
		cfg.Extensions = nil
	case "conditions":
		cfg.Conditions = nil
	case "cacheGroups":
		cfg.CacheGroups = nil
	case "targets":
		cfg.Targets = nil
	case "compress":
		cfg.Compress = nil
	case "checkerInclude":
		cfg.CheckerInclude = nil
	}
}

// Validate reports settings that cannot produce a build.
func (cfg *Config) Validate() error {
	if len(cfg.Entry) == 0 {
		return fmt.Errorf("config: no entry points")
	}
	if cfg.Output == "" {
		return fmt.Errorf("config: output directory is empty")
	}
	if cfg.InlineLimit < 0 {
		return fmt.Errorf("config: inlineLimit must not be negative")
	}
	for _, c := range cfg.Compress {
		if c != "gzip" && c != "zstd" {
			return fmt.Errorf("config: unknown compression %q", c)
		}
	}
	switch cfg.Checker {
	case "syntax", "tsc", "none", "":
	default:
		return fmt.Errorf("config: unknown checker %q", cfg.Checker)
	}
	if _, err := cfg.ChunkGroups(); err != nil {
		return err
	}
	return nil
}

// Abs returns p resolved against the project directory.
func (cfg *Config) Abs(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(cfg.Dir, filepath.FromSlash(p))
}

// OutputDir returns the absolute output directory.
func (cfg *Config) OutputDir() string {
	return cfg.Abs(cfg.Output)
}

// AliasTable returns the alias table with absolute targets.
func (cfg *Config) AliasTable() map[string]string {
	table := make(map[string]string, len(cfg.Alias))
	for prefix, target := range cfg.Alias {
		table[prefix] = cfg.Abs(target)
	}
	return table
}

// SourceMaps reports whether source maps are written: on in production
// unless disabled, off in development unless enabled.
func (cfg *Config) SourceMaps() bool {
	if cfg.SourceMap != nil {
		return *cfg.SourceMap
	}
	return cfg.Mode.IsProduction()
}

// Entries returns the entry points ordered by name. Entry values may be
// doublestar globs; each match becomes its own entry named
// "<key>-<file stem>".
func (cfg *Config) Entries(fsys fs.FileSystem) ([]Entry, error) {
	names := make([]string, 0, len(cfg.Entry))
	for name := range cfg.Entry {
		names = append(names, name)
	}
	slices.Sort(names)

	var entries []Entry
	for _, name := range names {
		pattern := filepath.ToSlash(cfg.Entry[name])
		if !hasMeta(pattern) {
			entries = append(entries, Entry{Name: name, Path: cfg.Abs(pattern)})
			continue
		}
		matches, err := doublestar.Glob(fs.Sub(fsys, cfg.Dir), strings.TrimPrefix(pattern, "./"), doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("entry %s: %w", name, err)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("entry %s: no files match %s", name, pattern)
		}
		slices.Sort(matches)
		for _, m := range matches {
			stem := strings.TrimSuffix(filepath.Base(m), filepath.Ext(m))
			entries = append(entries, Entry{Name: name + "-" + stem, Path: cfg.Abs(m)})
		}
	}
	return entries, nil
}

func hasMeta(p string) bool {
	return strings.ContainsAny(p, "*?[{")
}

// ChunkGroups converts CacheGroups into classifier rules.
func (cfg *Config) ChunkGroups() ([]chunk.CacheGroup, error) {
	groups := make([]chunk.CacheGroup, 0, len(cfg.CacheGroups))
	for i, gc := range cfg.CacheGroups {
		key := gc.Key
		if key == "" {
			key = fmt.Sprintf("group%d", i)
		}
		test, err := chunk.ParsePattern(gc.Test)
		if err != nil {
			return nil, fmt.Errorf("config: cache group %s: %w", key, err)
		}
		scope, err := chunk.ParseScope(gc.Chunks)
		if err != nil {
			return nil, fmt.Errorf("config: cache group %s: %w", key, err)
		}
		rules := make([]chunk.NameRule, 0, len(gc.NameRules))
		for _, rc := range gc.NameRules {
			kind, err := chunk.ParseMatchKind(rc.Match)
			if err != nil {
				return nil, fmt.Errorf("config: cache group %s: %w", key, err)
			}
			rules = append(rules, chunk.NameRule{Kind: kind, Value: rc.Value, Name: rc.Name})
		}
		fallback := gc.Name
		if fallback == "" {
			fallback = key
		}
		minChunks := gc.MinChunks
		if minChunks < 1 {
			minChunks = 1
		}
		groups = append(groups, chunk.CacheGroup{
			Key:       key,
			Test:      test,
			Rules:     rules,
			Fallback:  fallback,
			Priority:  gc.Priority,
			MinChunks: minChunks,
			MinSize:   gc.MinSize,
			Scope:     scope,
		})
	}
	return groups, nil
}
