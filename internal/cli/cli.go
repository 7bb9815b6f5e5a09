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
// Package cli loads project configuration from the command-line flags
// shared by splitpack commands.
package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/viper"

	"bennypowers.dev/splitpack/bundle"
	"bennypowers.dev/splitpack/config"
	"bennypowers.dev/splitpack/fs"
	"bennypowers.dev/splitpack/internal/logger"
	"bennypowers.dev/splitpack/naming"
)

// LoadConfig loads the config of the project named by the "dir" flag and
// applies command-line overrides on top.
func LoadConfig(osfs fs.FileSystem) (*config.Config, error) {
	dir, err := filepath.Abs(viper.GetString("dir"))
	if err != nil {
		return nil, fmt.Errorf("invalid project directory: %w", err)
	}

	cfg, err := config.Load(osfs, dir, viper.GetString("config"))
	if err != nil {
		return nil, err
	}

	if viper.IsSet("mode") {
		switch mode := viper.GetString("mode"); mode {
		case string(naming.Development), string(naming.Production):
			cfg.Mode = naming.Mode(mode)
		default:
			return nil, fmt.Errorf("invalid mode %q: must be development or production", mode)
		}
	}
	if viper.IsSet("out-dir") {
		cfg.Output = viper.GetString("out-dir")
	}
	if viper.IsSet("public-path") {
		cfg.PublicPath = viper.GetString("public-path")
	}
	if viper.IsSet("checker") {
		cfg.Checker = viper.GetString("checker")
	}
	if viper.IsSet("compress") {
		cfg.Compress = viper.GetStringSlice("compress")
	}
	if viper.IsSet("source-map") {
		sourceMap := viper.GetBool("source-map")
		cfg.SourceMap = &sourceMap
	}
	if viper.IsSet("jobs") {
		cfg.Concurrency = viper.GetInt("jobs")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// NewContext loads the config and prepares a build with the logger the
// "verbose" flag selects.
func NewContext(osfs fs.FileSystem) (*bundle.Context, error) {
	cfg, err := LoadConfig(osfs)
	if err != nil {
		return nil, err
	}
	return bundle.NewContext(cfg, osfs, logger.Setup(viper.GetBool("verbose")))
}
