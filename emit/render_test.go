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
package emit_test

import (
	"encoding/json"
	"regexp"
	"strings"
	"testing"

	"bennypowers.dev/splitpack/chunk"
	"bennypowers.dev/splitpack/emit"
	"bennypowers.dev/splitpack/graph"
	"bennypowers.dev/splitpack/naming"
	"bennypowers.dev/splitpack/transform"
)

type mod struct {
	id     string
	code   string
	css    string
	srcMap string
	deps   []string
	async  []string
	asset  *transform.Asset
}

// sources describes: app -> react, shared, app.less -> logo.png; app ~> page -> shared.
func sources() []mod {
	return []mod{
		{id: "node_modules/react/index.js", code: "module.exports = { v: 1 };\n"},
		{id: "src/shared.ts", code: "exports.shared = 1;\n", srcMap: `{"version":3,"sources":["src/shared.ts"],"mappings":"AAAA"}`},
		{id: "src/page.ts", code: "const s = require(\"./shared\");\n", deps: []string{"src/shared.ts"}},
		{id: "src/logo.png", code: "module.exports = \"/assets/images/logo.png\";\n", asset: &transform.Asset{Filename: "assets/images/logo.png", Data: []byte("png")}},
		{id: "src/app.less", code: "module.exports = {};\n", css: ".a { color: red; }\n", deps: []string{"src/logo.png"}},
		{
			id:    "src/app.tsx",
			code:  "require(\"react\");\nrequire(\"./shared\");\n__load(\"./page\");\n",
			deps:  []string{"node_modules/react/index.js", "src/shared.ts", "src/app.less"},
			async: []string{"src/page.ts"},
		},
	}
}

func newGraph(mods []mod) *graph.Graph {
	g := graph.New()
	for _, m := range mods {
		module := &graph.Module{
			ID:     m.id,
			Size:   int64(len(m.code)),
			Result: &transform.Result{Code: []byte(m.code), CSS: []byte(m.css), Asset: m.asset},
		}
		if m.srcMap != "" {
			module.Result.Map = []byte(m.srcMap)
		}
		for _, d := range m.deps {
			module.Deps = append(module.Deps, graph.Dep{Specifier: d, Target: d})
		}
		for _, d := range m.async {
			module.Deps = append(module.Deps, graph.Dep{Specifier: d, Target: d, Async: true})
		}
		g.Add(module)
	}
	g.AddRoot(graph.Root{Name: "app", Module: "src/app.tsx", Entry: true})
	g.AddRoot(graph.Root{Name: "page", Module: "src/page.ts"})
	g.ComputeOrigins()
	return g
}

func vendors() chunk.CacheGroup {
	return chunk.CacheGroup{
		Key:       "vendors",
		Test:      chunk.MustPattern("**/node_modules/**"),
		Fallback:  "vendor",
		Priority:  10,
		MinChunks: 1,
		Scope:     chunk.ScopeAll,
	}
}

func render(t *testing.T, mods []mod, mode naming.Mode, opts emit.Options, groups ...chunk.CacheGroup) *emit.Bundle {
	t.Helper()
	res, err := chunk.Classify(newGraph(mods), groups, chunk.Options{})
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	b, err := emit.Render(res, naming.New(mode), opts)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	return b
}

func TestRenderDevelopment(t *testing.T) {
	b := render(t, sources(), naming.Development, emit.Options{}, vendors())

	if len(b.Chunks) != 3 {
		t.Fatalf("Expected 3 chunks, got %d", len(b.Chunks))
	}

	t.Run("entrypoints", func(t *testing.T) {
		if len(b.Entrypoints) != 1 {
			t.Fatalf("Expected 1 entrypoint, got %d", len(b.Entrypoints))
		}
		ep := b.Entrypoints[0]
		if got := strings.Join(ep.Scripts, ","); got != "js/vendor.js,js/app.js" {
			t.Errorf("Scripts = %s", got)
		}
		if got := strings.Join(ep.Styles, ","); got != "css/app.css" {
			t.Errorf("Styles = %s", got)
		}
	})

	t.Run("entry script", func(t *testing.T) {
		app := string(b.Chunk("app").Script.Data)
		for _, want := range []string{
			"g.__splitpack = { configure: configure };",
			`"async":{"src/page.ts":["app","page"]}`,
			`"page":{"js":"js/page.js"}`,
			`"app":{"js":"js/app.js","css":"css/app.css"}`,
			`"src/shared.ts":[function (module, exports, require, __load) {`,
		} {
			if !strings.Contains(app, want) {
				t.Errorf("app script missing %s:\n%s", want, app)
			}
		}
		if !strings.HasSuffix(app, `,"src/app.tsx",["vendor"]]);`+"\n") {
			t.Errorf("app script should end with its entry registration:\n%s", app)
		}
	})

	t.Run("shared chunk", func(t *testing.T) {
		vendor := string(b.Chunk("vendor").Script.Data)
		if strings.Contains(vendor, "__splitpack") {
			t.Error("non-entry chunk should not carry the runtime")
		}
		if !strings.HasPrefix(vendor, `(self.splitpackChunks=self.splitpackChunks||[]).push(["vendor",{`) {
			t.Errorf("Unexpected vendor chunk:\n%s", vendor)
		}
		if !strings.Contains(vendor, "module.exports = { v: 1 };") {
			t.Errorf("vendor chunk missing react:\n%s", vendor)
		}
	})

	t.Run("stylesheet", func(t *testing.T) {
		style := b.Chunk("app").Style
		if style == nil || string(style.Data) != ".a { color: red; }\n" {
			t.Errorf("Unexpected stylesheet: %+v", style)
		}
		if b.Chunk("vendor").Style != nil {
			t.Error("vendor chunk should have no stylesheet")
		}
	})

	t.Run("assets", func(t *testing.T) {
		if len(b.Assets) != 1 || b.Assets[0].Filename != "assets/images/logo.png" {
			t.Errorf("Unexpected assets: %+v", b.Assets)
		}
	})
}

var hashed = regexp.MustCompile(`^js/(\w+)\.[0-9a-f]{8}\.js$`)

func filenames(b *emit.Bundle) map[string]string {
	out := make(map[string]string)
	for _, c := range b.Chunks {
		out[c.Name] = c.Script.Filename
	}
	return out
}

func TestRenderProductionHashes(t *testing.T) {
	first := filenames(render(t, sources(), naming.Production, emit.Options{}, vendors()))
	second := filenames(render(t, sources(), naming.Production, emit.Options{}, vendors()))

	for name, filename := range first {
		if !hashed.MatchString(filename) {
			t.Errorf("%s: %s is not a hashed name", name, filename)
		}
		if second[name] != filename {
			t.Errorf("%s: %s != %s across builds", name, filename, second[name])
		}
	}

	t.Run("vendor change", func(t *testing.T) {
		mods := sources()
		mods[0].code = "module.exports = { v: 2 };\n"
		changed := filenames(render(t, mods, naming.Production, emit.Options{}, vendors()))
		if changed["vendor"] == first["vendor"] {
			t.Error("vendor hash should change")
		}
		for _, name := range []string{"app", "page"} {
			if changed[name] != first[name] {
				t.Errorf("%s hash changed: %s -> %s", name, first[name], changed[name])
			}
		}
	})

	t.Run("split point change", func(t *testing.T) {
		mods := sources()
		mods[2].code = "const s = require(\"./shared\"); s;\n"
		changed := filenames(render(t, mods, naming.Production, emit.Options{}, vendors()))
		if changed["page"] == first["page"] {
			t.Error("page hash should change")
		}
		if changed["app"] == first["app"] {
			t.Error("app hash should change with the manifest")
		}
		if changed["vendor"] != first["vendor"] {
			t.Error("vendor hash should not change")
		}
	})
}

func TestRenderSkipsEmptySplitPoints(t *testing.T) {
	lazy := chunk.CacheGroup{
		Key:       "lazy",
		Test:      chunk.MustPattern("src/page.ts"),
		Fallback:  "lazy",
		Priority:  5,
		MinChunks: 1,
		Scope:     chunk.ScopeAsync,
	}
	b := render(t, sources(), naming.Development, emit.Options{}, vendors(), lazy)

	if b.Chunk("page") != nil {
		t.Error("empty split point chunk should not be emitted")
	}
	if b.Chunk("lazy") == nil {
		t.Fatal("expected lazy chunk")
	}
	app := string(b.Chunk("app").Script.Data)
	if !strings.Contains(app, `"async":{"src/page.ts":["lazy","app"]}`) {
		t.Errorf("manifest should load lazy and app chunks:\n%s", app)
	}
}

func TestRenderSourceMaps(t *testing.T) {
	b := render(t, sources(), naming.Development, emit.Options{SourceMap: true}, vendors())
	app := b.Chunk("app").Script

	var index struct {
		Version  int    `json:"version"`
		File     string `json:"file"`
		Sections []struct {
			Offset struct {
				Line   int `json:"line"`
				Column int `json:"column"`
			} `json:"offset"`
			Map json.RawMessage `json:"map"`
		} `json:"sections"`
	}
	if err := json.Unmarshal(app.Map, &index); err != nil {
		t.Fatalf("invalid index map: %v", err)
	}
	if index.Version != 3 || index.File != "app.js" {
		t.Errorf("Unexpected header: version %d file %s", index.Version, index.File)
	}
	if len(index.Sections) != 1 {
		t.Fatalf("Expected 1 section, got %d", len(index.Sections))
	}

	lines := strings.Split(string(app.Data), "\n")
	if got := lines[index.Sections[0].Offset.Line]; got != "exports.shared = 1;" {
		t.Errorf("section offset points at %q", got)
	}

	out := b.Output()
	if _, ok := out["js/app.js.map"]; !ok {
		t.Error("Output should contain js/app.js.map")
	}
	if !strings.HasSuffix(string(out["js/app.js"]), "//# sourceMappingURL=app.js.map\n") {
		t.Error("Output script should link its map")
	}
	if _, ok := out["js/vendor.js.map"]; !ok {
		t.Error("every script gets a map when source maps are on")
	}
}

func TestOutputWithoutSourceMaps(t *testing.T) {
	b := render(t, sources(), naming.Development, emit.Options{}, vendors())
	out := b.Output()
	for name, data := range out {
		if strings.HasSuffix(name, ".map") {
			t.Errorf("unexpected map %s", name)
		}
		if strings.Contains(string(data), "sourceMappingURL") {
			t.Errorf("%s links a source map", name)
		}
	}
	if len(out) != 5 {
		t.Errorf("Expected 5 files (3 scripts, 1 stylesheet, 1 asset), got %d", len(out))
	}
}
