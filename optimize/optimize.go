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
// Package optimize minifies finished chunk files and writes precompressed
// copies of the output. Each file is minified on its own, so files are
// processed in parallel by a bounded worker pool.
package optimize

import (
	"context"
	"encoding/base64"
	"fmt"
	"runtime"
	"slices"
	"time"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"bennypowers.dev/splitpack/emit"
)

// Options configures Run.
type Options struct {
	Targets []api.Engine
	// SourceMap carries each script's map through minification.
	SourceMap bool
	// Concurrency bounds the worker pool. Zero means one worker per CPU.
	Concurrency int
	Logger      zerolog.Logger
}

// Error reports a chunk that failed to minify.
type Error struct {
	Chunk   string
	File    string
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("optimizing chunk %s (%s): %s", e.Chunk, e.File, e.Message)
}

// Run minifies every script and stylesheet in place. Assets are left
// alone. The first failure cancels the remaining work and is returned.
func Run(ctx context.Context, files []*emit.File, opts Options) error {
	limit := opts.Concurrency
	if limit <= 0 {
		limit = runtime.NumCPU()
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for _, f := range files {
		if f.Kind == emit.Asset {
			continue
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			start := time.Now()
			before := len(f.Data)
			if err := minify(f, opts); err != nil {
				return err
			}
			opts.Logger.Debug().
				Str("chunk", f.Chunk).
				Str("file", f.Filename).
				Int("bytes", len(f.Data)).
				Int("saved", before-len(f.Data)).
				Dur("duration", time.Since(start)).
				Msg("Minified")
			return nil
		})
	}
	return g.Wait()
}

func minify(f *emit.File, opts Options) error {
	source := f.Data
	loader := api.LoaderJS
	if f.Kind == emit.Style {
		loader = api.LoaderCSS
	}

	transform := api.TransformOptions{
		Loader:            loader,
		Target:            api.ESNext,
		Engines:           opts.Targets,
		MinifyWhitespace:  true,
		MinifyIdentifiers: true,
		MinifySyntax:      true,
		Sourcefile:        f.Filename,
		LegalComments:     api.LegalCommentsNone,
		LogLevel:          api.LogLevelSilent,
	}
	if f.Kind == emit.Script && opts.SourceMap {
		transform.Sourcemap = api.SourceMapExternal
		if len(f.Map) > 0 {
			// The input map is picked up from an inline comment.
			source = slices.Concat(source, []byte("\n//# sourceMappingURL=data:application/json;base64,"),
				[]byte(base64.StdEncoding.EncodeToString(f.Map)), []byte("\n"))
		}
	}

	result := api.Transform(string(source), transform)
	if len(result.Errors) > 0 {
		msg := result.Errors[0]
		text := msg.Text
		if msg.Location != nil {
			text = fmt.Sprintf("%d:%d: %s", msg.Location.Line, msg.Location.Column+1, text)
		}
		return &Error{Chunk: f.Chunk, File: f.Filename, Message: text}
	}

	f.Data = result.Code
	if transform.Sourcemap != api.SourceMapNone {
		f.Map = result.Map
	} else {
		f.Map = nil
	}
	return nil
}
