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
package config

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/tidwall/jsonc"

	"bennypowers.dev/splitpack/fs"
)

// TSConfig is the subset of tsconfig.json splitpack reads.
type TSConfig struct {
	CompilerOptions struct {
		BaseURL string              `json:"baseUrl"`
		Paths   map[string][]string `json:"paths"`
	} `json:"compilerOptions"`
	Include []string `json:"include"`
	Exclude []string `json:"exclude"`
}

// ParseTSConfig parses tsconfig.json, which allows comments and trailing
// commas.
func ParseTSConfig(data []byte) (*TSConfig, error) {
	var tc TSConfig
	if err := json.Unmarshal(jsonc.ToJSON(data), &tc); err != nil {
		return nil, err
	}
	return &tc, nil
}

// LoadTSConfigPaths turns compilerOptions.paths in dir/tsconfig.json into
// alias entries. "@/*": ["src/*"] becomes "@" -> <dir>/<baseUrl>/src.
// Only the first target of each pattern is used. A missing tsconfig.json
// yields no aliases.
func LoadTSConfigPaths(fsys fs.FileSystem, dir string) (map[string]string, error) {
	path := filepath.Join(dir, "tsconfig.json")
	if !fsys.Exists(path) {
		return nil, nil
	}
	data, err := fsys.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	tc, err := ParseTSConfig(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	base := filepath.Join(dir, filepath.FromSlash(tc.CompilerOptions.BaseURL))
	aliases := make(map[string]string)
	for pattern, targets := range tc.CompilerOptions.Paths {
		if len(targets) == 0 {
			continue
		}
		target := targets[0]
		switch {
		case strings.HasSuffix(pattern, "/*") && strings.HasSuffix(target, "/*"):
			aliases[strings.TrimSuffix(pattern, "/*")] = filepath.Join(base, filepath.FromSlash(strings.TrimSuffix(target, "/*")))
		case !strings.Contains(pattern, "*") && !strings.Contains(target, "*"):
			aliases[pattern] = filepath.Join(base, filepath.FromSlash(target))
		}
	}
	return aliases, nil
}
