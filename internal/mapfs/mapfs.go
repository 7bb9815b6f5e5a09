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
// Package mapfs is an in-memory splitpack filesystem for tests.
package mapfs

import (
	"io/fs"
	"path"
	"slices"
	"strings"
	"sync"
	"testing/fstest"
	"time"
)

// modTime is stamped on every entry so listings are reproducible.
var modTime = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

// MapFileSystem keeps files in an fstest.MapFS keyed by unrooted,
// slash-separated paths. Parent directories are implied by file paths;
// MkdirAll records explicit directory entries.
type MapFileSystem struct {
	mu    sync.RWMutex
	files fstest.MapFS
}

// New returns an empty filesystem.
func New() *MapFileSystem {
	return &MapFileSystem{files: make(fstest.MapFS)}
}

// key turns an OS-style absolute or relative path into a MapFS key.
func key(p string) string {
	p = path.Clean("/" + strings.ReplaceAll(p, "\\", "/"))
	if p == "/" {
		return "."
	}
	return p[1:]
}

// AddFile stores content at p.
func (m *MapFileSystem) AddFile(p string, content string, mode fs.FileMode) {
	_ = m.WriteFile(p, []byte(content), mode)
}

// WriteFile implements fs.FileSystem. Writing below an existing file fails.
func (m *MapFileSystem) WriteFile(name string, data []byte, perm fs.FileMode) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := key(name)
	for dir := path.Dir(k); dir != "."; dir = path.Dir(dir) {
		if f, ok := m.files[dir]; ok && !f.Mode.IsDir() {
			return &fs.PathError{Op: "open", Path: name, Err: fs.ErrInvalid}
		}
	}
	m.files[k] = &fstest.MapFile{Data: slices.Clone(data), Mode: perm, ModTime: modTime}
	return nil
}

// ReadFile implements fs.FileSystem.
func (m *MapFileSystem) ReadFile(name string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return fs.ReadFile(m.files, key(name))
}

// MkdirAll implements fs.FileSystem.
func (m *MapFileSystem) MkdirAll(p string, perm fs.FileMode) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := key(p)
	if f, ok := m.files[k]; ok && !f.Mode.IsDir() {
		return &fs.PathError{Op: "mkdir", Path: p, Err: fs.ErrExist}
	}
	m.files[k] = &fstest.MapFile{Mode: fs.ModeDir | perm.Perm(), ModTime: modTime}
	return nil
}

// RemoveAll implements fs.FileSystem. Removing a missing path is not an error.
func (m *MapFileSystem) RemoveAll(p string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := key(p)
	for name := range m.files {
		if k == "." || name == k || strings.HasPrefix(name, k+"/") {
			delete(m.files, name)
		}
	}
	return nil
}

// Files returns the absolute paths of all regular files below dir, sorted.
func (m *MapFileSystem) Files(dir string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	k := key(dir)
	var out []string
	for name, f := range m.files {
		if f.Mode.IsDir() {
			continue
		}
		if k == "." || strings.HasPrefix(name, k+"/") {
			out = append(out, "/"+name)
		}
	}
	slices.Sort(out)
	return out
}

// Stat implements fs.FileSystem.
func (m *MapFileSystem) Stat(name string) (fs.FileInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return fs.Stat(m.files, key(name))
}

// Exists implements fs.FileSystem. Directories implied by files exist.
func (m *MapFileSystem) Exists(p string) bool {
	_, err := m.Stat(p)
	return err == nil
}

// ReadDir implements fs.FileSystem.
func (m *MapFileSystem) ReadDir(name string) ([]fs.DirEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return fs.ReadDir(m.files, key(name))
}

// Open implements fs.FileSystem.
func (m *MapFileSystem) Open(name string) (fs.File, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.files.Open(key(name))
}
