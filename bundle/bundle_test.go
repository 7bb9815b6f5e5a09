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
package bundle_test

import (
	"context"
	"encoding/base64"
	"errors"
	"regexp"
	"slices"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"bennypowers.dev/splitpack/bundle"
	"bennypowers.dev/splitpack/check"
	"bennypowers.dev/splitpack/config"
	"bennypowers.dev/splitpack/internal/mapfs"
	"bennypowers.dev/splitpack/manifest"
	"bennypowers.dev/splitpack/naming"
	"bennypowers.dev/splitpack/resolve"
	"bennypowers.dev/splitpack/testutil"
	"bennypowers.dev/splitpack/transform"
)

const root = "/project"

func project() map[string]string {
	return map[string]string{
		"src/index.tsx": `import React from "react";
import { helper } from "./util";
import "./style.less";

export const App = () => <div className="app">{helper()}</div>;
export const about = () => import("./pages/About");
console.log(React.version);
`,
		"src/util.ts": `export const helper = () => filler.length;
export const filler = "` + strings.Repeat("splitpack ", 400) + `";
`,
		"src/style.less": `@brand: #1890ff;
.title { color: @brand; }
`,
		"src/pages/About/index.tsx": `export default function About() { return <h1>About</h1>; }`,

		"node_modules/react/package.json":       `{"name": "react", "main": "index.js"}`,
		"node_modules/react/index.js":           `module.exports = { version: "18.2.0" };`,
		"node_modules/react/jsx-runtime.js":     `exports.jsx = function () {}; exports.jsxs = exports.jsx;`,
		"node_modules/react/jsx-dev-runtime.js": `exports.jsxDEV = function () {};`,

		"public/index.html": `<!DOCTYPE html>
<html><head><title>splitpack</title></head><body><div id="root"></div></body></html>
`,
		"public/favicon.ico": "icon",
	}
}

func newContext(t *testing.T, mode naming.Mode, files map[string]string) (*bundle.Context, *mapfs.MapFileSystem) {
	t.Helper()
	mfs := testutil.NewProjectFS(t, root, files)
	cfg := config.Default()
	cfg.Dir = root
	cfg.Mode = mode
	cfg.Checker = "none"
	ctx, err := bundle.NewContext(cfg, mfs, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewContext failed: %v", err)
	}
	return ctx, mfs
}

func read(t *testing.T, mfs *mapfs.MapFileSystem, name string) string {
	t.Helper()
	data, err := mfs.ReadFile(root + "/dist/" + name)
	if err != nil {
		t.Fatalf("Expected %s in output: %v", name, err)
	}
	return string(data)
}

func TestPlan(t *testing.T) {
	c, _ := newContext(t, naming.Development, project())
	res, err := c.Plan(context.Background())
	if err != nil {
		t.Fatalf("Plan failed: %v", err)
	}

	if got := res.Assignment["node_modules/react/index.js"].Name; got != "react" {
		t.Errorf("react assigned to %s, want react", got)
	}
	if got := res.Assignment["src/util.ts"].Name; got != "common" {
		t.Errorf("util assigned to %s, want common", got)
	}
	if res.Chunk("About") == nil {
		t.Error("Expected a chunk for the About split point")
	}
}

func TestBuildDevelopment(t *testing.T) {
	c, mfs := newContext(t, naming.Development, project())
	res, err := c.Build(context.Background())
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	written := mfs.Files(root + "/dist")
	for _, name := range []string{"index.html", "manifest.json", "favicon.ico", "js/app.js", "js/react.js", "js/common.js", "css/common.css"} {
		if !slices.Contains(written, root+"/dist/"+name) {
			t.Errorf("Expected %s in output, got %v", name, written)
		}
	}
	if len(written) != len(res.Files) {
		t.Errorf("Wrote %d files, result lists %d", len(written), len(res.Files))
	}

	page := read(t, mfs, "index.html")
	for _, want := range []string{
		`<title>splitpack</title>`,
		`href="/favicon.ico"`,
		`href="/css/common.css"`,
		`src="/js/react.js"`,
		`src="/js/app.js"`,
	} {
		if !strings.Contains(page, want) {
			t.Errorf("index.html missing %s:\n%s", want, page)
		}
	}
	if strings.Index(page, "/js/react.js") > strings.Index(page, "/js/app.js") {
		t.Error("Shared chunks should load before the entry chunk")
	}

	m, err := manifest.Parse([]byte(read(t, mfs, manifest.FileName)))
	if err != nil {
		t.Fatalf("Parse manifest failed: %v", err)
	}
	ep, ok := m.Entrypoints["app"]
	if !ok {
		t.Fatal("Expected entrypoint app in manifest")
	}
	if ep.Scripts[len(ep.Scripts)-1] != "js/app.js" {
		t.Errorf("Entry chunk should load last, got %v", ep.Scripts)
	}
	if m.Files["react.js"] != "js/react.js" {
		t.Errorf("Files[react.js] = %q", m.Files["react.js"])
	}

	if got := read(t, mfs, "js/app.js"); !strings.Contains(got, "splitpackChunks") {
		t.Error("Entry chunk should carry the loader runtime")
	}
}

func TestBuildProduction(t *testing.T) {
	c, mfs := newContext(t, naming.Production, project())
	c.Config.Compress = []string{"gzip", "zstd"}

	res, err := c.Build(context.Background())
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	hashed := regexp.MustCompile(`^js/app\.[0-9a-f]{8}\.js$`)
	ep := res.Manifest.Entrypoints["app"]
	app := ep.Scripts[len(ep.Scripts)-1]
	if !hashed.MatchString(app) {
		t.Errorf("Entry filename %q is not content hashed", app)
	}
	if !strings.Contains(read(t, mfs, app), "//# sourceMappingURL=") {
		t.Error("Production scripts should reference their source map")
	}
	if _, ok := res.Files[app+".map"]; !ok {
		t.Errorf("Expected %s.map in output", app)
	}

	common := res.Manifest.Files["common.js"]
	for _, ext := range []string{".gz", ".zst"} {
		if _, ok := res.Files[common+ext]; !ok {
			t.Errorf("Expected precompressed %s%s", common, ext)
		}
	}

	for name, sri := range res.Manifest.Integrity {
		if want := manifest.Integrity(res.Files[name]); sri != want {
			t.Errorf("Integrity[%s] = %s, want %s", name, sri, want)
		}
	}
}

func TestBuildDeterministic(t *testing.T) {
	build := func() map[string]string {
		c, _ := newContext(t, naming.Production, project())
		res, err := c.Build(context.Background())
		if err != nil {
			t.Fatalf("Build failed: %v", err)
		}
		return res.Manifest.Files
	}
	first, second := build(), build()
	for name, file := range first {
		if second[name] != file {
			t.Errorf("%s named %s, then %s", name, file, second[name])
		}
	}
}

func TestBuildCheckerErrors(t *testing.T) {
	files := project()
	files["src/broken.ts"] = "export const = ;\n"
	c, mfs := newContext(t, naming.Development, files)
	c.Config.Checker = "syntax"

	res, err := c.Build(context.Background())
	var failed *check.FailedError
	if !errors.As(err, &failed) {
		t.Fatalf("Expected *check.FailedError, got %v", err)
	}
	if res == nil {
		t.Fatal("Expected a result alongside checker errors")
	}
	if !strings.HasSuffix(failed.Diagnostics[0].File, "src/broken.ts") {
		t.Errorf("Diagnostic file = %s", failed.Diagnostics[0].File)
	}
	if !mfs.Exists(root + "/dist/index.html") {
		t.Error("Output should be written despite checker errors")
	}
}

func TestBuildErrors(t *testing.T) {
	t.Run("unresolved import", func(t *testing.T) {
		files := project()
		files["src/util.ts"] = `import "./missing";` + "\nexport const helper = () => 1;\n"
		c, mfs := newContext(t, naming.Development, files)
		_, err := c.Build(context.Background())
		var rerr *resolve.Error
		if !errors.As(err, &rerr) {
			t.Fatalf("Expected *resolve.Error, got %v", err)
		}
		if rerr.Specifier != "./missing" {
			t.Errorf("Specifier = %q", rerr.Specifier)
		}
		if mfs.Exists(root + "/dist") {
			t.Error("Nothing should be written when the build fails")
		}
	})

	t.Run("malformed module", func(t *testing.T) {
		files := project()
		files["src/util.ts"] = "export const helper = () => => 1;\n"
		files["dist/stale.js"] = "stale"
		c, mfs := newContext(t, naming.Production, files)
		_, err := c.Build(context.Background())
		var terr *transform.Error
		if !errors.As(err, &terr) {
			t.Fatalf("Expected *transform.Error, got %v", err)
		}
		if terr.Path != root+"/src/util.ts" {
			t.Errorf("Error path = %s", terr.Path)
		}
		if !mfs.Exists(root + "/dist/stale.js") {
			t.Error("Previous output should be left alone when the build fails")
		}
		if mfs.Exists(root + "/dist/index.html") {
			t.Error("Nothing should be written when the build fails")
		}
	})

	t.Run("output is project dir", func(t *testing.T) {
		c, _ := newContext(t, naming.Development, project())
		c.Config.Output = "."
		if _, err := c.Build(context.Background()); err == nil {
			t.Fatal("Expected an error writing over the project directory")
		}
	})

	t.Run("canceled", func(t *testing.T) {
		c, _ := newContext(t, naming.Development, project())
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if _, err := c.Build(ctx); !errors.Is(err, context.Canceled) {
			t.Fatalf("Expected context.Canceled, got %v", err)
		}
	})
}

func TestDefaultTemplate(t *testing.T) {
	files := project()
	delete(files, "public/index.html")
	delete(files, "public/favicon.ico")
	c, mfs := newContext(t, naming.Development, files)
	if _, err := c.Build(context.Background()); err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	page := read(t, mfs, "index.html")
	if !strings.Contains(page, `<div id="root"></div>`) {
		t.Errorf("Expected the default template, got:\n%s", page)
	}
	if strings.Contains(page, "favicon") {
		t.Error("No favicon link without a favicon file")
	}
}

func TestBuildFixtureProject(t *testing.T) {
	t.Setenv("NODE_ENV", "development")
	mfs := testutil.NewFixtureFS(t, "project", root)
	cfg, err := config.Load(mfs, root, "")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	c, err := bundle.NewContext(cfg, mfs, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewContext failed: %v", err)
	}
	res, err := c.Build(context.Background())
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	for id, want := range map[string]string{
		"node_modules/react-dom/index.js":             "react",
		"node_modules/antd/lib/button/index.js":       "antd",
		"node_modules/@ant-design/icons/lib/index.js": "antd",
		"node_modules/lodash/lodash.js":               "vendor",
		"src/App.tsx":                                 "common",
	} {
		if got := res.Chunks.Assignment[id]; got == nil || got.Name != want {
			t.Errorf("%s assigned to %v, want %s", id, got, want)
		}
	}

	css := read(t, mfs, res.Manifest.Files["common.css"])
	logo := testutil.LoadFixtureFile(t, "project/src/assets/logo.png")
	if !strings.Contains(css, base64.StdEncoding.EncodeToString(logo)) {
		t.Error("The 8191-byte logo should be inlined as a data URI")
	}
	banner := res.Manifest.Files["src/assets/banner.png"]
	if !strings.HasPrefix(banner, "assets/images/") {
		t.Fatalf("The 8193-byte banner should be emitted, got %q", banner)
	}
	if !strings.Contains(css, "/"+banner) {
		t.Errorf("Stylesheet should reference %s", banner)
	}
	if _, ok := res.Manifest.Files["src/assets/logo.png"]; ok {
		t.Error("Inlined images should not be emitted")
	}
}
