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
// Package fs is the filesystem seam between splitpack and the host. The
// bundler reads sources and writes output only through FileSystem, so
// tests can run whole builds against an in-memory tree.
package fs

import (
	"io/fs"
	"path"
	"path/filepath"
)

// FileSystem takes OS paths, normally absolute ones. Open makes every
// FileSystem an io/fs.FS for callers that pass full paths.
type FileSystem interface {
	ReadFile(name string) ([]byte, error)
	WriteFile(name string, data []byte, perm fs.FileMode) error
	ReadDir(name string) ([]fs.DirEntry, error)
	MkdirAll(path string, perm fs.FileMode) error
	RemoveAll(path string) error
	Stat(name string) (fs.FileInfo, error)
	Exists(path string) bool
	Open(name string) (fs.File, error)
}

// Sub views the tree below dir as an io/fs.FS, taking slash separated
// unrooted names. doublestar.Glob and fs.WalkDir both accept it.
func Sub(fsys FileSystem, dir string) fs.FS {
	return subFS{fsys: fsys, dir: dir}
}

type subFS struct {
	fsys FileSystem
	dir  string
}

var (
	_ fs.ReadDirFS = subFS{}
	_ fs.StatFS    = subFS{}
)

func (s subFS) join(op, name string) (string, error) {
	if !fs.ValidPath(name) {
		return "", &fs.PathError{Op: op, Path: name, Err: fs.ErrInvalid}
	}
	return filepath.Join(s.dir, filepath.FromSlash(path.Clean(name))), nil
}

func (s subFS) Open(name string) (fs.File, error) {
	p, err := s.join("open", name)
	if err != nil {
		return nil, err
	}
	return s.fsys.Open(p)
}

func (s subFS) ReadDir(name string) ([]fs.DirEntry, error) {
	p, err := s.join("readdir", name)
	if err != nil {
		return nil, err
	}
	return s.fsys.ReadDir(p)
}

func (s subFS) Stat(name string) (fs.FileInfo, error) {
	p, err := s.join("stat", name)
	if err != nil {
		return nil, err
	}
	return s.fsys.Stat(p)
}
