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

import "encoding/json"

// section places one module's source map inside a chunk's index map.
type section struct {
	Offset offset          `json:"offset"`
	Map    json.RawMessage `json:"map"`
}

type offset struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

type sourceMap struct {
	Version  int       `json:"version"`
	File     string    `json:"file"`
	Sections []section `json:"sections"`
}

// indexMap joins per-module maps into a version 3 index map. Modules
// always start at column zero of their own line.
func indexMap(file string, sections []section) ([]byte, error) {
	if sections == nil {
		sections = []section{}
	}
	return json.Marshal(sourceMap{Version: 3, File: file, Sections: sections})
}
