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
package transform

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
)

var (
	urlRef    = regexp.MustCompile(`(?i)url\(\s*(?:"([^"]*)"|'([^']*)'|([^)"'\s]*))\s*\)`)
	importRef = regexp.MustCompile(`(?i)@import\s+(?:url\(\s*)?["']([^"']+)["']\s*\)?[^;]*;`)
)

// References lists the local @import and url() references of a stylesheet,
// in order of appearance, after less preprocessing.
func References(in Input) (imports, urls []string) {
	src := in.Source
	if isLess(in.Path) {
		src = preprocessLess(src)
	}
	for _, m := range importRef.FindAllSubmatch(src, -1) {
		if ref := string(m[1]); IsLocalRef(ref) {
			imports = append(imports, ref)
		}
	}
	// @import url("x") is an import, not an asset.
	rest := importRef.ReplaceAll(src, nil)
	seen := make(map[string]bool)
	for _, m := range urlRef.FindAllSubmatch(rest, -1) {
		ref := string(m[1]) + string(m[2]) + string(m[3])
		if IsLocalRef(ref) && !seen[ref] {
			seen[ref] = true
			urls = append(urls, ref)
		}
	}
	return imports, urls
}

// IsLocalRef reports whether a stylesheet reference points at a file the
// bundler must resolve, as opposed to a data URI, an absolute URL, a
// root-relative path or a fragment.
func IsLocalRef(ref string) bool {
	switch {
	case ref == "",
		strings.HasPrefix(ref, "data:"),
		strings.HasPrefix(ref, "#"),
		strings.HasPrefix(ref, "/"),
		strings.Contains(ref, "://"):
		return false
	}
	return true
}

// SplitRef separates the file part of a url() reference from a trailing
// query or fragment: "font.eot?#iefix" yields "font.eot", "?#iefix".
func SplitRef(ref string) (file, suffix string) {
	if i := strings.IndexAny(ref, "?#"); i >= 0 {
		return ref[:i], ref[i:]
	}
	return ref, ""
}

// ModuleRequest converts a stylesheet reference into a resolver specifier.
// "~pkg/x" refers to node_modules; anything else is relative to the sheet.
func ModuleRequest(ref string) string {
	file, _ := SplitRef(ref)
	if rest, ok := strings.CutPrefix(file, "~"); ok {
		return rest
	}
	if strings.HasPrefix(file, "./") || strings.HasPrefix(file, "../") {
		return file
	}
	return "./" + file
}

func isLess(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".less")
}

// style preprocesses less, drops local @imports (their modules are
// separate graph nodes), rewrites url() references, scopes first-party
// class names and lowers the result for the configured targets.
func (p *Pipeline) style(in Input) (*Result, error) {
	src := in.Source
	if isLess(in.Path) {
		src = preprocessLess(src)
	}

	src = importRef.ReplaceAllFunc(src, func(rule []byte) []byte {
		if IsLocalRef(string(importRef.FindSubmatch(rule)[1])) {
			return nil
		}
		return rule
	})

	src = urlRef.ReplaceAllFunc(src, func(ref []byte) []byte {
		m := urlRef.FindSubmatch(ref)
		raw := string(m[1]) + string(m[2]) + string(m[3])
		url, ok := in.URLs[raw]
		if !ok {
			return ref
		}
		_, suffix := SplitRef(raw)
		return fmt.Appendf(nil, `url("%s")`, url+suffix)
	})

	classes := map[string]string{}
	if !in.ThirdParty {
		src, classes = scopeClasses(src, in.ID, p.opts.ClassNames)
	}

	result := api.Transform(string(src), api.TransformOptions{
		Loader:     api.LoaderCSS,
		Engines:    p.opts.Targets,
		Sourcefile: in.ID,
		LogLevel:   api.LogLevelSilent,
	})
	if len(result.Errors) > 0 {
		return nil, errorFromMessages(in.Path, result.Errors)
	}

	exports, err := json.Marshal(classes)
	if err != nil {
		return nil, err
	}
	return &Result{
		Kind:    Style,
		Code:    fmt.Appendf(nil, "module.exports = %s;\n", exports),
		CSS:     result.Code,
		Classes: classes,
	}, nil
}
