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
// Package transform turns one source file into a module record: CommonJS
// code for scripts, scoped and lowered CSS for stylesheets, and data URIs
// or hashed files for assets.
package transform

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/evanw/esbuild/pkg/api"

	"bennypowers.dev/splitpack/naming"
)

// Kind is a file-type category with its own transform chain.
type Kind int

const (
	// Script covers TypeScript, JavaScript, JSX and JSON.
	Script Kind = iota
	// Style covers CSS and less.
	Style
	// Raster images are inlined below the size limit.
	Raster
	// File covers fonts, vector images and any other binary. Always emitted.
	File
)

func (k Kind) String() string {
	return [...]string{"script", "style", "raster", "file"}[k]
}

var kinds = map[string]Kind{
	".ts": Script, ".tsx": Script, ".js": Script, ".jsx": Script,
	".mjs": Script, ".cjs": Script, ".json": Script,
	".css": Style, ".less": Style,
	".bmp": Raster, ".gif": Raster, ".jpg": Raster, ".jpeg": Raster,
	".png": Raster, ".webp": Raster,
}

// Detect returns the Kind for a path by extension.
func Detect(path string) Kind {
	if k, ok := kinds[strings.ToLower(filepath.Ext(path))]; ok {
		return k
	}
	return File
}

// Error reports a file that could not be transformed.
type Error struct {
	Path    string
	Line    int
	Column  int
	Message string
}

func (e *Error) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d:%d: %s", e.Path, e.Line, e.Column, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// errorFromMessages converts esbuild errors into an *Error for the first
// one, noting how many more there were.
func errorFromMessages(path string, msgs []api.Message) *Error {
	first := msgs[0]
	e := &Error{Path: path, Message: first.Text}
	if first.Location != nil {
		e.Line = first.Location.Line
		e.Column = first.Location.Column + 1
	}
	if n := len(msgs) - 1; n > 0 {
		e.Message += fmt.Sprintf(" (and %d more)", n)
	}
	return e
}

// Options configures a Pipeline.
type Options struct {
	Mode        naming.Mode
	SourceMap   bool
	InlineLimit int64
	// ClassNames is the scoped class template, e.g.
	// "hui-[name]-[local]--[hash:base64:5]".
	ClassNames string
	Targets    []api.Engine
	PublicPath string
	// Define holds extra global replacements on top of process.env.
	Define map[string]string
}

// Input is one file to transform.
type Input struct {
	Path       string
	ID         string // project-relative path, used for hashes and source maps
	Source     []byte
	ThirdParty bool
	// URLs maps url() and @import references in a stylesheet to the
	// final URL of the referenced asset. Missing entries are left alone.
	URLs map[string]string
}

// Asset is a file emitted next to the chunks.
type Asset struct {
	Filename string
	Data     []byte
}

// Result is the transformed module.
type Result struct {
	Kind Kind
	// Code is the CommonJS body run by the module runtime.
	Code []byte
	// Map is the source map for Code, when source maps are enabled.
	Map []byte
	// CSS is the stylesheet contribution of a style module.
	CSS []byte
	// Classes maps local class names to scoped ones.
	Classes map[string]string
	// URL is where an asset is served from: a data URI or a path.
	URL string
	// Asset is set when the module emits a separate file.
	Asset *Asset
}

// Pipeline applies the transform chain for each Kind. It holds no
// per-file state and is safe for concurrent use.
type Pipeline struct {
	opts  Options
	namer *naming.Namer
}

// New creates a Pipeline. Assets are named through namer.
func New(opts Options, namer *naming.Namer) *Pipeline {
	if opts.ClassNames == "" {
		opts.ClassNames = DefaultClassNames
	}
	if opts.PublicPath == "" {
		opts.PublicPath = "/"
	}
	return &Pipeline{opts: opts, namer: namer}
}

// Transform runs the chain for the input's Kind.
func (p *Pipeline) Transform(in Input) (*Result, error) {
	switch Detect(in.Path) {
	case Script:
		return p.script(in)
	case Style:
		return p.style(in)
	case Raster:
		return p.asset(in, true)
	default:
		return p.asset(in, false)
	}
}

func (p *Pipeline) publicURL(filename string) string {
	return strings.TrimSuffix(p.opts.PublicPath, "/") + "/" + filename
}
