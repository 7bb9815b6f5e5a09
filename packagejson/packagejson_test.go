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
package packagejson_test

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"bennypowers.dev/splitpack/internal/mapfs"
	"bennypowers.dev/splitpack/packagejson"
)

func TestEntryPoint(t *testing.T) {
	tests := []struct {
		name string
		json string
		want string
	}{
		{"browser string wins", `{"browser":"dist/browser.js","module":"es/index.js","main":"lib/index.js"}`, "dist/browser.js"},
		{"browser map ignored", `{"browser":{"./a.js":false},"main":"lib/index.js"}`, "lib/index.js"},
		{"module before main", `{"module":"./es/index.js","main":"lib/index.js"}`, "es/index.js"},
		{"main only", `{"main":"./index.cjs"}`, "index.cjs"},
		{"nothing", `{"name":"bare"}`, "index.js"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pkg, err := packagejson.Parse([]byte(tt.json))
			if err != nil {
				t.Fatalf("Parse failed: %v", err)
			}
			if got := pkg.EntryPoint(); got != tt.want {
				t.Errorf("EntryPoint() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExport(t *testing.T) {
	pkg, err := packagejson.Parse([]byte(`{
		"name": "react",
		"exports": {
			".": {"react-server": "./server.js", "default": "./index.js"},
			"./jsx-runtime": "./jsx-runtime.js",
			"./icons/*": {"import": "./es/icons/*.js", "require": "./lib/icons/*.js"},
			"./icons/special/*": "./special/*.js",
			"./package.json": "./package.json"
		}
	}`))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	tests := []struct {
		subpath string
		want    string
	}{
		{".", "index.js"},
		{"./jsx-runtime", "jsx-runtime.js"},
		{"./icons/Star", "es/icons/Star.js"},
		{"./icons/special/Moon", "special/Moon.js"},
	}
	for _, tt := range tests {
		t.Run(tt.subpath, func(t *testing.T) {
			got, err := pkg.Export(tt.subpath, nil)
			if err != nil {
				t.Fatalf("Export(%q) failed: %v", tt.subpath, err)
			}
			if got != tt.want {
				t.Errorf("Export(%q) = %q, want %q", tt.subpath, got, tt.want)
			}
		})
	}

	if _, err := pkg.Export("./internal", nil); !errors.Is(err, packagejson.ErrNotExported) {
		t.Errorf("Expected ErrNotExported for unexported subpath, got %v", err)
	}
}

func TestExportConditions(t *testing.T) {
	pkg, err := packagejson.Parse([]byte(`{"exports":{"import":"./esm.js","require":"./cjs.js"}}`))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	got, err := pkg.Export(".", nil)
	if err != nil || got != "esm.js" {
		t.Errorf("default conditions: got %q, %v", got, err)
	}

	got, err = pkg.Export(".", []string{"require"})
	if err != nil || got != "cjs.js" {
		t.Errorf("require condition: got %q, %v", got, err)
	}

	if _, err := pkg.Export("./sub", nil); !errors.Is(err, packagejson.ErrNotExported) {
		t.Errorf("condition-only exports must not expose subpaths, got %v", err)
	}
}

func TestExportWithoutExportsField(t *testing.T) {
	pkg := &packagejson.PackageJSON{Name: "lodash", Main: "lodash.js"}

	if got, _ := pkg.Export(".", nil); got != "lodash.js" {
		t.Errorf("Expected main for root subpath, got %q", got)
	}
	if got, _ := pkg.Export("./debounce", nil); got != "debounce" {
		t.Errorf("Expected subpath passthrough, got %q", got)
	}
}

func TestParseFile(t *testing.T) {
	mfs := mapfs.New()
	mfs.AddFile("/project/node_modules/antd/package.json", `{"name":"antd","version":"5.0.0","module":"es/index.js"}`, 0644)

	pkg, err := packagejson.ParseFile(mfs, "/project/node_modules/antd/package.json")
	if err != nil {
		t.Fatalf("ParseFile failed: %v", err)
	}
	if pkg.Name != "antd" || pkg.Version != "5.0.0" {
		t.Errorf("Unexpected package: %+v", pkg)
	}

	if _, err := packagejson.ParseFile(mfs, "/project/node_modules/missing/package.json"); err == nil {
		t.Error("Expected error for missing file")
	}
}

func TestMemoryCacheGetOrLoad(t *testing.T) {
	cache := packagejson.NewMemoryCache()

	var loadCount atomic.Int32
	loader := func() (*packagejson.PackageJSON, error) {
		loadCount.Add(1)
		return &packagejson.PackageJSON{Name: "loaded"}, nil
	}

	for range 2 {
		pkg, err := cache.GetOrLoad("/path/to/package.json", loader)
		if err != nil {
			t.Fatalf("GetOrLoad failed: %v", err)
		}
		if pkg.Name != "loaded" {
			t.Errorf("Expected name 'loaded', got %q", pkg.Name)
		}
	}
	if loadCount.Load() != 1 {
		t.Errorf("Expected loader to be called once, called %d times", loadCount.Load())
	}

	if _, ok := cache.Get("/path/to/package.json"); !ok {
		t.Error("Expected cache hit after GetOrLoad")
	}
	if cache.Len() != 1 {
		t.Errorf("Len = %d, want 1", cache.Len())
	}
}

func TestMemoryCacheRemembersFailures(t *testing.T) {
	cache := packagejson.NewMemoryCache()

	var loadCount atomic.Int32
	loader := func() (*packagejson.PackageJSON, error) {
		loadCount.Add(1)
		return nil, errors.New("missing")
	}

	for range 3 {
		if _, err := cache.GetOrLoad("/missing/package.json", loader); err == nil {
			t.Fatal("Expected loader error")
		}
	}
	if loadCount.Load() != 1 {
		t.Errorf("Expected one load attempt, got %d", loadCount.Load())
	}
	if _, ok := cache.Get("/missing/package.json"); ok {
		t.Error("Failed loads must not be cached as packages")
	}
	if cache.Len() != 0 {
		t.Errorf("Len = %d, want 0", cache.Len())
	}
}

func TestMemoryCacheGetOrLoadConcurrent(t *testing.T) {
	cache := packagejson.NewMemoryCache()

	var loadCount atomic.Int32
	loader := func() (*packagejson.PackageJSON, error) {
		loadCount.Add(1)
		return &packagejson.PackageJSON{Name: "loaded"}, nil
	}

	var wg sync.WaitGroup
	for range 100 {
		wg.Go(func() {
			if _, err := cache.GetOrLoad("/same/path/package.json", loader); err != nil {
				t.Errorf("GetOrLoad failed: %v", err)
			}
		})
	}
	wg.Wait()

	if loadCount.Load() != 1 {
		t.Errorf("Expected loader to be called exactly once, called %d times", loadCount.Load())
	}
}
