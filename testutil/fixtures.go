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
// Package testutil provides fixture helpers for splitpack tests.
package testutil

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"bennypowers.dev/splitpack/internal/mapfs"
)

// FixturePath finds name under testdata/, looking upward from the package
// being tested so nested packages share the repository fixtures.
func FixturePath(t *testing.T, name string) string {
	t.Helper()
	for _, up := range []string{".", "..", filepath.Join("..", "..")} {
		candidate := filepath.Join(up, "testdata", name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	t.Fatalf("Fixture %s not found in any testdata directory", name)
	return ""
}

// NewFixtureFS copies the fixture directory into a MapFileSystem rooted at
// root, so builds can write output without touching testdata.
func NewFixtureFS(t *testing.T, fixtureDir, root string) *mapfs.MapFileSystem {
	t.Helper()
	src := FixturePath(t, fixtureDir)
	mfs := mapfs.New()
	err := filepath.WalkDir(src, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, p)
		if err != nil {
			return err
		}
		return mfs.WriteFile(filepath.Join(root, rel), data, 0644)
	})
	if err != nil {
		t.Fatalf("Loading fixture %s: %v", fixtureDir, err)
	}
	return mfs
}

// NewProjectFS returns a MapFileSystem holding files, keyed by path
// relative to root.
func NewProjectFS(t *testing.T, root string, files map[string]string) *mapfs.MapFileSystem {
	t.Helper()
	mfs := mapfs.New()
	for name, content := range files {
		if err := mfs.WriteFile(filepath.Join(root, name), []byte(content), 0644); err != nil {
			t.Fatalf("Writing %s: %v", name, err)
		}
	}
	return mfs
}

// LoadFixtureFile reads one file below testdata/.
func LoadFixtureFile(t *testing.T, name string) []byte {
	t.Helper()
	data, err := os.ReadFile(FixturePath(t, name))
	if err != nil {
		t.Fatalf("Reading fixture %s: %v", name, err)
	}
	return data
}
