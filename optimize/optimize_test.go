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
package optimize_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"

	"bennypowers.dev/splitpack/emit"
	"bennypowers.dev/splitpack/optimize"
)

const chunkScript = `(self.splitpackChunks=self.splitpackChunks||[]).push(["app",{
"src/index.ts":[function (module, exports, require, __load) {
  const someLongVariableName = require("./util");
  module.exports = someLongVariableName.value + 1;
},{"./util":"src/util.ts"}]
}]);
`

func TestRun(t *testing.T) {
	script := &emit.File{Filename: "js/app.js", Chunk: "app", Kind: emit.Script, Data: []byte(chunkScript)}
	style := &emit.File{Filename: "css/app.css", Chunk: "app", Kind: emit.Style, Data: []byte(".a {\n  color: red;\n}\n")}
	asset := &emit.File{Filename: "assets/x.woff", Kind: emit.Asset, Data: []byte("  keep  ")}

	err := optimize.Run(context.Background(), []*emit.File{script, style, asset}, optimize.Options{})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(script.Data) >= len(chunkScript) {
		t.Errorf("script not minified:\n%s", script.Data)
	}
	if strings.Contains(string(script.Data), "someLongVariableName") {
		t.Errorf("local identifiers should be renamed:\n%s", script.Data)
	}
	if !strings.Contains(string(script.Data), `"src/util.ts"`) {
		t.Errorf("module table lost:\n%s", script.Data)
	}
	if got := strings.TrimSpace(string(style.Data)); got != ".a{color:red}" {
		t.Errorf("style = %q", got)
	}
	if string(asset.Data) != "  keep  " {
		t.Error("assets must not be touched")
	}
	if script.Map != nil {
		t.Error("no map expected without SourceMap")
	}
}

func TestRunSourceMap(t *testing.T) {
	script := &emit.File{Filename: "js/app.js", Chunk: "app", Kind: emit.Script, Data: []byte(chunkScript)}
	err := optimize.Run(context.Background(), []*emit.File{script}, optimize.Options{SourceMap: true})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	var m struct {
		Version  int    `json:"version"`
		Mappings string `json:"mappings"`
	}
	if err := json.Unmarshal(script.Map, &m); err != nil {
		t.Fatalf("invalid source map: %v", err)
	}
	if m.Version != 3 || m.Mappings == "" {
		t.Errorf("Unexpected map: %s", script.Map)
	}
	if strings.Contains(string(script.Data), "sourceMappingURL") {
		t.Error("minified code should not link its map itself")
	}
}

func TestRunError(t *testing.T) {
	files := []*emit.File{
		{Filename: "js/ok.js", Chunk: "ok", Kind: emit.Script, Data: []byte("var a = 1;")},
		{Filename: "js/vendor.js", Chunk: "vendor", Kind: emit.Script, Data: []byte("function (")},
	}
	err := optimize.Run(context.Background(), files, optimize.Options{Concurrency: 1})

	var optErr *optimize.Error
	if !errors.As(err, &optErr) {
		t.Fatalf("Expected *optimize.Error, got %v", err)
	}
	if optErr.Chunk != "vendor" || optErr.File != "js/vendor.js" {
		t.Errorf("Unexpected error: %+v", optErr)
	}
	if !strings.Contains(err.Error(), "vendor") {
		t.Errorf("error should name the chunk: %v", err)
	}
}

func TestRunParallel(t *testing.T) {
	var files []*emit.File
	for i := range 20 {
		files = append(files, &emit.File{
			Filename: fmt.Sprintf("js/c%d.js", i),
			Chunk:    fmt.Sprintf("c%d", i),
			Kind:     emit.Script,
			Data:     []byte(chunkScript),
		})
	}
	if err := optimize.Run(context.Background(), files, optimize.Options{Concurrency: 4}); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	for _, f := range files {
		if bytes.Equal(f.Data, []byte(chunkScript)) {
			t.Errorf("%s not minified", f.Filename)
		}
	}
	if !bytes.Equal(files[0].Data, files[19].Data) {
		t.Error("identical input should minify identically")
	}
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	files := []*emit.File{{Filename: "js/a.js", Chunk: "a", Kind: emit.Script, Data: []byte("var a = 1;")}}
	if err := optimize.Run(ctx, files, optimize.Options{}); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestPrecompress(t *testing.T) {
	text := []byte(strings.Repeat("console.log('splitpack');\n", 200))
	files := map[string][]byte{
		"js/app.js":       text,
		"index.html":      text,
		"assets/logo.png": text,
		"tiny.css":        []byte("a"),
	}

	out, err := optimize.Precompress(files, []optimize.Format{optimize.Gzip, optimize.Zstd})
	if err != nil {
		t.Fatalf("Precompress failed: %v", err)
	}

	for _, name := range []string{"js/app.js.gz", "js/app.js.zst", "index.html.gz", "index.html.zst"} {
		if _, ok := out[name]; !ok {
			t.Errorf("missing %s", name)
		}
	}
	for _, name := range []string{"assets/logo.png.gz", "tiny.css.gz", "tiny.css.zst"} {
		if _, ok := out[name]; ok {
			t.Errorf("unexpected %s", name)
		}
	}

	t.Run("gzip round trip", func(t *testing.T) {
		r, err := gzip.NewReader(bytes.NewReader(out["js/app.js.gz"]))
		if err != nil {
			t.Fatalf("gzip.NewReader: %v", err)
		}
		got, err := io.ReadAll(r)
		if err != nil || !bytes.Equal(got, text) {
			t.Errorf("gzip round trip failed: %v", err)
		}
	})

	t.Run("zstd round trip", func(t *testing.T) {
		d, err := zstd.NewReader(nil)
		if err != nil {
			t.Fatalf("zstd.NewReader: %v", err)
		}
		defer d.Close()
		got, err := d.DecodeAll(out["js/app.js.zst"], nil)
		if err != nil || !bytes.Equal(got, text) {
			t.Errorf("zstd round trip failed: %v", err)
		}
	})
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    optimize.Format
		ext     string
		wantErr bool
	}{
		{"gzip", optimize.Gzip, ".gz", false},
		{"ZSTD", optimize.Zstd, ".zst", false},
		{"brotli", "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := optimize.ParseFormat(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseFormat(%q) error = %v", tt.in, err)
			}
			if got != tt.want || got.Extension() != tt.ext {
				t.Errorf("ParseFormat(%q) = %q (%q)", tt.in, got, got.Extension())
			}
		})
	}
}
