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
package emit_test

import (
	"testing"

	"bennypowers.dev/splitpack/emit"
	"bennypowers.dev/splitpack/internal/mapfs"
)

func TestWrite(t *testing.T) {
	mfs := mapfs.New()
	mfs.AddFile("/project/dist/js/stale.js", "old", 0644)
	mfs.AddFile("/project/src/index.ts", "keep", 0644)

	err := emit.Write(mfs, "/project/dist", map[string][]byte{
		"index.html":    []byte("<!doctype html>"),
		"js/app.js":     []byte("app"),
		"css/app.css":   []byte(".a{}"),
		"manifest.json": []byte("{}"),
	})
	if err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	if mfs.Exists("/project/dist/js/stale.js") {
		t.Error("stale output should be removed")
	}
	if !mfs.Exists("/project/src/index.ts") {
		t.Error("files outside the output directory must survive")
	}
	data, err := mfs.ReadFile("/project/dist/js/app.js")
	if err != nil || string(data) != "app" {
		t.Errorf("js/app.js = %q, %v", data, err)
	}
	if got := len(mfs.Files("/project/dist")); got != 4 {
		t.Errorf("Expected 4 files, got %d: %v", got, mfs.Files("/project/dist"))
	}
}

func TestWriteRejects(t *testing.T) {
	tests := []struct {
		name  string
		dir   string
		files map[string][]byte
	}{
		{"empty dir", "", map[string][]byte{"a.js": nil}},
		{"root dir", "/", map[string][]byte{"a.js": nil}},
		{"escaping name", "/project/dist", map[string][]byte{"../a.js": nil}},
		{"absolute name", "/project/dist", map[string][]byte{"/a.js": nil}},
		{"unclean name", "/project/dist", map[string][]byte{"js/../a.js": nil}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mfs := mapfs.New()
			mfs.AddFile("/project/dist/keep.js", "keep", 0644)
			if err := emit.Write(mfs, tt.dir, tt.files); err == nil {
				t.Fatal("Expected error")
			}
			if !mfs.Exists("/project/dist/keep.js") {
				t.Error("rejected write must not clean the output directory")
			}
		})
	}
}
