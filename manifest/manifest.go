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
// Package manifest describes a build's emitted files: which scripts and
// stylesheets each entry loads, and which file each logical chunk or
// asset became.
package manifest

import (
	"crypto/sha512"
	"encoding/base64"
	"encoding/json"

	"bennypowers.dev/splitpack/emit"
	"bennypowers.dev/splitpack/graph"
)

// FileName is where the manifest is written in the output directory.
const FileName = "manifest.json"

// Manifest maps logical names to emitted files.
type Manifest struct {
	// Entrypoints lists, per entry, the files a page loads in order.
	Entrypoints map[string]Entrypoint `json:"entrypoints,omitempty"`

	// Files maps "<chunk>.js", "<chunk>.css" and asset module IDs to
	// emitted filenames.
	Files map[string]string `json:"files,omitempty"`

	// Integrity maps emitted scripts and stylesheets to their
	// subresource integrity values.
	Integrity map[string]string `json:"integrity,omitempty"`
}

// Entrypoint is the ordered file list of one entry.
type Entrypoint struct {
	Scripts []string `json:"js"`
	Styles  []string `json:"css,omitempty"`
}

// Parse parses JSON data into a Manifest.
func Parse(data []byte) (*Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// Build describes b as it will be written. Asset module IDs come from g.
func Build(b *emit.Bundle, g *graph.Graph) *Manifest {
	output := b.Output()
	m := &Manifest{
		Entrypoints: make(map[string]Entrypoint, len(b.Entrypoints)),
		Files:       make(map[string]string),
		Integrity:   make(map[string]string),
	}
	for _, ep := range b.Entrypoints {
		m.Entrypoints[ep.Name] = Entrypoint{Scripts: ep.Scripts, Styles: ep.Styles}
	}
	for _, c := range b.Chunks {
		if c.Script != nil {
			m.Files[c.Name+".js"] = c.Script.Filename
			m.Integrity[c.Script.Filename] = Integrity(output[c.Script.Filename])
		}
		if c.Style != nil {
			m.Files[c.Name+".css"] = c.Style.Filename
			m.Integrity[c.Style.Filename] = Integrity(output[c.Style.Filename])
		}
	}
	if g != nil {
		for _, mod := range g.Order {
			if mod.Result != nil && mod.Result.Asset != nil {
				m.Files[mod.ID] = mod.Result.Asset.Filename
			}
		}
	}
	return m
}

// Integrity returns the sha384 subresource integrity value of data.
func Integrity(data []byte) string {
	sum := sha512.Sum384(data)
	return "sha384-" + base64.StdEncoding.EncodeToString(sum[:])
}

// ToJSON converts the manifest to indented JSON.
// Returns an empty string if the manifest is nil or entirely empty.
func (m *Manifest) ToJSON() string {
	if m == nil || (len(m.Entrypoints) == 0 && len(m.Files) == 0) {
		return ""
	}

	bytes, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return ""
	}

	return string(bytes)
}
