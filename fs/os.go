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
package fs

import (
	"io/fs"
	"os"
)

// OSFileSystem is the FileSystem backed by the host's disk.
type OSFileSystem struct{}

var _ FileSystem = (*OSFileSystem)(nil)

// NewOSFileSystem returns the host filesystem.
func NewOSFileSystem() *OSFileSystem { return &OSFileSystem{} }

func (*OSFileSystem) ReadFile(name string) ([]byte, error)       { return os.ReadFile(name) }
func (*OSFileSystem) ReadDir(name string) ([]fs.DirEntry, error) { return os.ReadDir(name) }
func (*OSFileSystem) Stat(name string) (fs.FileInfo, error)      { return os.Stat(name) }
func (*OSFileSystem) Open(name string) (fs.File, error)          { return os.Open(name) }
func (*OSFileSystem) RemoveAll(path string) error                { return os.RemoveAll(path) }

func (*OSFileSystem) WriteFile(name string, data []byte, perm fs.FileMode) error {
	return os.WriteFile(name, data, perm)
}

func (*OSFileSystem) MkdirAll(path string, perm fs.FileMode) error {
	return os.MkdirAll(path, perm)
}

// Exists reports whether path can be stat'ed.
func (*OSFileSystem) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
