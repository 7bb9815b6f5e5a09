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
// Package version provides version information for the splitpack CLI.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
)

// Set at build time via ldflags.
var (
	Version   = "dev"
	GitCommit = "unknown"
	GitTag    = "unknown"
	BuildTime = "unknown"
	GitDirty  = "" // "dirty" for builds from a modified tree
)

// GetVersion returns the version string: the ldflags Version, else the
// module version, else one derived from the git tag and commit.
func GetVersion() string {
	if Version != "dev" {
		return Version
	}
	if info, ok := debug.ReadBuildInfo(); ok {
		if v := info.Main.Version; v != "(devel)" && v != "" {
			return v
		}
	}
	if GitTag == "unknown" || GitCommit == "unknown" {
		return "dev"
	}
	version := GitTag
	commit := GitCommit[:min(len(GitCommit), 7)]
	if commit != "" && !strings.HasSuffix(GitTag, commit) {
		version += "-" + commit
	}
	if GitDirty == "dirty" {
		version += "-dirty"
	}
	return version
}

// GetFullVersion returns the version with the esbuild version it
// transpiles with, and the commit when known.
func GetFullVersion() string {
	version := GetVersion()
	if esbuild := dependency("github.com/evanw/esbuild"); esbuild != "" {
		version = fmt.Sprintf("%s (esbuild %s)", version, esbuild)
	}
	if GitCommit != "unknown" {
		version = fmt.Sprintf("%s (commit: %s)", version, GitCommit)
	}
	return version
}

// GetBuildInfo returns the build details reported by "version --format json".
func GetBuildInfo() map[string]string {
	info := map[string]string{
		"version":   GetVersion(),
		"gitCommit": GitCommit,
		"gitTag":    GitTag,
		"buildTime": BuildTime,
		"gitDirty":  GitDirty,
		"go":        runtime.Version(),
	}
	if esbuild := dependency("github.com/evanw/esbuild"); esbuild != "" {
		info["esbuild"] = esbuild
	}
	return info
}

// dependency returns the version of module path linked into the binary.
func dependency(path string) string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	for _, dep := range info.Deps {
		if dep.Path == path {
			return dep.Version
		}
	}
	return ""
}
