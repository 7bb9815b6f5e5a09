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
package emit

import (
	"fmt"
	"maps"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"bennypowers.dev/splitpack/fs"
)

// Write replaces the contents of dir with files, keyed by slash separated
// path relative to dir. Callers assemble every file before calling Write,
// so a failed build never touches the previous output.
func Write(fsys fs.FileSystem, dir string, files map[string][]byte) error {
	clean := filepath.Clean(dir)
	if dir == "" || clean == filepath.Dir(clean) {
		return fmt.Errorf("refusing to clean output directory %q", dir)
	}

	for _, name := range slices.Sorted(maps.Keys(files)) {
		if err := validName(name); err != nil {
			return err
		}
	}

	if err := fsys.RemoveAll(clean); err != nil {
		return fmt.Errorf("cleaning %s: %w", clean, err)
	}
	for _, name := range slices.Sorted(maps.Keys(files)) {
		full := filepath.Join(clean, filepath.FromSlash(name))
		if err := fsys.MkdirAll(filepath.Dir(full), 0755); err != nil {
			return fmt.Errorf("creating directory for %s: %w", name, err)
		}
		if err := fsys.WriteFile(full, files[name], 0644); err != nil {
			return fmt.Errorf("writing %s: %w", name, err)
		}
	}
	return nil
}

func validName(name string) error {
	if name == "" || path.IsAbs(name) || name != path.Clean(name) ||
		name == ".." || strings.HasPrefix(name, "../") {
		return fmt.Errorf("invalid output file name %q", name)
	}
	return nil
}
