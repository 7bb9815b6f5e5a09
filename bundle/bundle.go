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
// Package bundle runs the whole pipeline: it builds the module graph,
// classifies it into chunks, renders and optimizes the chunks, and
// writes them with the HTML page and manifest to the output directory.
package bundle

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"bennypowers.dev/splitpack/check"
	"bennypowers.dev/splitpack/chunk"
	"bennypowers.dev/splitpack/emit"
	"bennypowers.dev/splitpack/graph"
	"bennypowers.dev/splitpack/inject"
	"bennypowers.dev/splitpack/manifest"
	"bennypowers.dev/splitpack/optimize"
)

// HTMLFile is the page written to the output directory.
const HTMLFile = "index.html"

// Result describes a finished build.
type Result struct {
	Graph       *graph.Graph
	Chunks      *chunk.Result
	Bundle      *emit.Bundle
	Manifest    *manifest.Manifest
	Files       map[string][]byte
	Diagnostics []check.Diagnostic
	Duration    time.Duration
}

// Plan builds the module graph and classifies it, without rendering.
func (c *Context) Plan(ctx context.Context) (*chunk.Result, error) {
	start := time.Now()
	g, err := graph.NewBuilder(c.FS, c.Config.Dir, c.Resolver, c.Pipeline).
		WithLogger(c.Logger).
		WithReserved(chunk.Names(c.Groups)...).
		Build(ctx, c.Entries)
	if err != nil {
		return nil, err
	}
	c.Logger.Debug().
		Int("modules", len(g.Modules)).
		Int("roots", len(g.Roots)).
		Int("packages", c.Packages.Len()).
		Int64("bytes", g.Size()).
		Dur("elapsed", time.Since(start)).
		Msg("Module graph built")

	res, err := chunk.Classify(g, c.Groups, chunk.Options{
		MaxInitialRequests: c.Config.MaxInitialRequests,
	})
	if err != nil {
		return nil, err
	}
	c.Logger.Debug().
		Int("chunks", len(res.Chunks)).
		Int("passes", res.Passes).
		Msg("Chunks classified")
	return res, nil
}

// Build runs the pipeline and writes the output directory. When the
// type checker reports errors the output is still written and the
// returned error is a *check.FailedError alongside the result.
func (c *Context) Build(ctx context.Context) (*Result, error) {
	start := time.Now()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	handle, err := c.startChecker(ctx)
	if err != nil {
		return nil, err
	}

	res, err := c.Plan(ctx)
	if err != nil {
		return nil, err
	}

	b, err := emit.Render(res, c.Namer, emit.Options{
		PublicPath: c.Config.PublicPath,
		SourceMap:  c.Config.SourceMaps(),
	})
	if err != nil {
		return nil, err
	}
	c.Logger.Debug().
		Int("chunks", len(b.Chunks)).
		Int("filenames", c.Namer.Files()).
		Msg("Chunks rendered")

	if c.Config.Mode.IsProduction() {
		err := optimize.Run(ctx, b.Files(), optimize.Options{
			Targets:     c.Targets,
			SourceMap:   c.Config.SourceMaps(),
			Concurrency: c.Config.Concurrency,
			Logger:      c.Logger,
		})
		if err != nil {
			return nil, err
		}
	}

	for _, name := range []string{HTMLFile, manifest.FileName} {
		if err := c.Namer.Reserve(name, "splitpack "+name); err != nil {
			return nil, err
		}
	}

	files := b.Output()
	if err := c.page(b, files); err != nil {
		return nil, err
	}

	m := manifest.Build(b, res.Graph)
	files[manifest.FileName] = []byte(m.ToJSON() + "\n")

	if c.Config.Mode.IsProduction() && len(c.Config.Compress) > 0 {
		formats := make([]optimize.Format, 0, len(c.Config.Compress))
		for _, name := range c.Config.Compress {
			f, err := optimize.ParseFormat(name)
			if err != nil {
				return nil, err
			}
			formats = append(formats, f)
		}
		sidecars, err := optimize.Precompress(files, formats)
		if err != nil {
			return nil, err
		}
		for name, data := range sidecars {
			files[name] = data
		}
	}

	out := c.Config.OutputDir()
	if filepath.Clean(out) == filepath.Clean(c.Config.Dir) {
		return nil, fmt.Errorf("output directory %s is the project directory", out)
	}
	if err := emit.Write(c.FS, out, files); err != nil {
		return nil, err
	}

	result := &Result{
		Graph:    res.Graph,
		Chunks:   res,
		Bundle:   b,
		Manifest: m,
		Files:    files,
	}

	diags, err := handle.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		c.Logger.Warn().Err(err).Str("checker", handle.Name()).Msg("Type checker did not run")
	} else if handle.Name() != "" {
		c.Logger.Debug().
			Str("checker", handle.Name()).
			Int("diagnostics", len(diags)).
			Dur("elapsed", handle.Duration()).
			Msg("Type checker finished")
	}
	result.Diagnostics = diags
	result.Duration = time.Since(start)
	for _, d := range diags {
		if d.Severity == check.Error {
			c.Logger.Error().Msg(d.String())
		} else {
			c.Logger.Warn().Msg(d.String())
		}
	}

	c.Logger.Info().
		Str("mode", string(c.Config.Mode)).
		Str("output", out).
		Int("modules", len(res.Graph.Modules)).
		Int("chunks", len(b.Chunks)).
		Int("files", len(files)).
		Dur("elapsed", result.Duration).
		Msg("Build complete")

	return result, check.Failed(diags)
}

func (c *Context) startChecker(ctx context.Context) (*check.Handle, error) {
	checker, err := check.New(c.Config.Checker, c.FS, c.Config.Dir)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if checker == nil {
		return check.Start(ctx, nil, nil), nil
	}
	files, err := c.checkFiles()
	if err != nil {
		return nil, err
	}
	c.Logger.Debug().Str("checker", checker.Name()).Int("files", len(files)).Msg("Type checker started")
	return check.Start(ctx, checker, files), nil
}

// page copies the favicon and renders the HTML template into files.
func (c *Context) page(b *emit.Bundle, files map[string][]byte) error {
	opts := inject.Options{PublicPath: c.Config.PublicPath}

	if c.Config.Favicon != "" {
		src := c.Config.Abs(c.Config.Favicon)
		if c.FS.Exists(src) {
			data, err := c.FS.ReadFile(src)
			if err != nil {
				return fmt.Errorf("reading favicon: %w", err)
			}
			opts.Favicon = filepath.Base(src)
			if err := c.Namer.Reserve(opts.Favicon, "favicon "+src); err != nil {
				return err
			}
			files[opts.Favicon] = data
		}
	}

	seen := make(map[string]bool)
	for _, ep := range b.Entrypoints {
		for _, s := range ep.Styles {
			if !seen[s] {
				seen[s] = true
				opts.Styles = append(opts.Styles, s)
			}
		}
		for _, s := range ep.Scripts {
			if !seen[s] {
				seen[s] = true
				opts.Scripts = append(opts.Scripts, s)
			}
		}
	}

	var template []byte
	var err error
	if c.Config.Template == "" {
		template = []byte(inject.DefaultTemplate)
	} else if template, err = inject.LoadTemplate(c.FS, c.Config.Abs(c.Config.Template)); err != nil {
		return err
	}
	doc, err := inject.Document(template, opts)
	if err != nil {
		return fmt.Errorf("rendering %s: %w", HTMLFile, err)
	}
	files[HTMLFile] = doc.HTML
	return nil
}
