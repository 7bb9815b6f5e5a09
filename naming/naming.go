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
// Package naming assigns output filenames to chunks and assets.
//
// Development builds use stable names (js/app.js). Production builds embed
// the first eight hex characters of a blake3 digest of the content
// (js/app.1a2b3c4d.js). Assets are always named by a content hash alone,
// under assets/images/ for raster images and assets/ for everything else.
package naming

import (
	"encoding/hex"
	"fmt"
	"path"
	"strings"
	"sync"

	"github.com/zeebo/blake3"
)

// Mode selects development or production behaviour for a build.
type Mode string

const (
	Development Mode = "development"
	Production  Mode = "production"
)

// ParseMode maps an environment value to a Mode. Only "development"
// selects development; anything else, including "", is production.
func ParseMode(s string) Mode {
	if strings.EqualFold(strings.TrimSpace(s), string(Development)) {
		return Development
	}
	return Production
}

// IsProduction reports whether m is Production.
func (m Mode) IsProduction() bool {
	return m != Development
}

const (
	// ChunkHashLength is the number of hex characters in chunk filenames.
	ChunkHashLength = 8
	// AssetHashLength is the number of hex characters in asset filenames.
	AssetHashLength = 20
)

// Hash returns the hex encoded blake3 digest of data.
func Hash(data []byte) string {
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// CollisionError reports two distinct outputs mapped to one filename.
type CollisionError struct {
	Filename string
	First    string
	Second   string
}

func (e *CollisionError) Error() string {
	return fmt.Sprintf("output filename %s claimed by both %s and %s", e.Filename, e.First, e.Second)
}

// Namer hands out filenames for one build and guarantees no two distinct
// outputs share a name. It is safe for concurrent use.
type Namer struct {
	mode  Mode
	mu    sync.Mutex
	owner map[string]string
}

// New creates a Namer for the given mode.
func New(mode Mode) *Namer {
	return &Namer{mode: mode, owner: make(map[string]string)}
}

// Mode returns the mode the Namer was created with.
func (n *Namer) Mode() Mode {
	return n.mode
}

// Chunk names the output file of chunk name with extension ext (".js" or
// ".css"), hashing content in production.
func (n *Namer) Chunk(name, ext string, content []byte) (string, error) {
	dir := strings.TrimPrefix(ext, ".")
	file := name + ext
	if n.mode.IsProduction() {
		file = name + "." + Hash(content)[:ChunkHashLength] + ext
	}
	filename := path.Join(dir, file)
	return filename, n.claim(filename, "chunk "+name+ext)
}

// Asset names a static asset. Identical content always maps to the same
// file, so claiming it twice is not a collision.
func (n *Namer) Asset(raster bool, ext string, content []byte) (string, error) {
	sum := Hash(content)
	dir := "assets"
	if raster {
		dir = "assets/images"
	}
	filename := path.Join(dir, sum[:AssetHashLength]+strings.ToLower(ext))
	return filename, n.claim(filename, "asset "+sum)
}

// Reserve claims a fixed filename such as index.html for owner.
func (n *Namer) Reserve(filename, owner string) error {
	return n.claim(filename, owner)
}

func (n *Namer) claim(filename, owner string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if prev, ok := n.owner[filename]; ok && prev != owner {
		return &CollisionError{Filename: filename, First: prev, Second: owner}
	}
	n.owner[filename] = owner
	return nil
}

// Files returns the number of distinct filenames claimed so far.
func (n *Namer) Files() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.owner)
}
