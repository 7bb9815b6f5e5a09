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
package fs_test

import (
	iofs "io/fs"
	"slices"
	"testing"

	"github.com/bmatcuk/doublestar/v4"

	"bennypowers.dev/splitpack/fs"
	"bennypowers.dev/splitpack/internal/mapfs"
)

func TestSub(t *testing.T) {
	mfs := mapfs.New()
	mfs.AddFile("/project/src/index.tsx", "", 0644)
	mfs.AddFile("/project/src/pages/home.tsx", "", 0644)
	mfs.AddFile("/project/src/style.less", "", 0644)
	mfs.AddFile("/other/src/skip.tsx", "", 0644)

	sub := fs.Sub(mfs, "/project")

	t.Run("glob", func(t *testing.T) {
		matches, err := doublestar.Glob(sub, "src/**/*.tsx", doublestar.WithFilesOnly())
		if err != nil {
			t.Fatalf("Glob failed: %v", err)
		}
		slices.Sort(matches)
		want := []string{"src/index.tsx", "src/pages/home.tsx"}
		if !slices.Equal(matches, want) {
			t.Errorf("Glob = %v, want %v", matches, want)
		}
	})

	t.Run("walk", func(t *testing.T) {
		var files []string
		err := iofs.WalkDir(sub, ".", func(p string, d iofs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() {
				files = append(files, p)
			}
			return nil
		})
		if err != nil {
			t.Fatalf("WalkDir failed: %v", err)
		}
		if len(files) != 3 {
			t.Errorf("Expected 3 files, got %v", files)
		}
	})

	t.Run("invalid path", func(t *testing.T) {
		if _, err := sub.Open("../other/src/skip.tsx"); err == nil {
			t.Error("Expected an error for a path outside the root")
		}
	})
}

func TestRemoveAll(t *testing.T) {
	mfs := mapfs.New()
	mfs.AddFile("/project/dist/js/app.js", "", 0644)
	mfs.AddFile("/project/dist/index.html", "", 0644)
	mfs.AddFile("/project/distribution/keep.txt", "", 0644)

	if err := mfs.RemoveAll("/project/dist"); err != nil {
		t.Fatalf("RemoveAll failed: %v", err)
	}
	if got := mfs.Files("/project"); !slices.Equal(got, []string{"/project/distribution/keep.txt"}) {
		t.Errorf("Files = %v", got)
	}
	if err := mfs.RemoveAll("/project/missing"); err != nil {
		t.Errorf("Removing a missing path should succeed, got %v", err)
	}
}
