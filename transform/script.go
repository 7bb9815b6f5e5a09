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
	"maps"
	"path/filepath"
	"strings"

	"github.com/evanw/esbuild/pkg/api"

	"bennypowers.dev/splitpack/naming"
)

func (p *Pipeline) loader(in Input) api.Loader {
	switch strings.ToLower(filepath.Ext(in.Path)) {
	case ".ts":
		return api.LoaderTS
	case ".tsx":
		return api.LoaderTSX
	case ".json":
		return api.LoaderJSON
	case ".js", ".jsx":
		if !in.ThirdParty {
			return api.LoaderJSX
		}
	}
	return api.LoaderJS
}

// define returns the global replacements: process.env.NODE_ENV becomes
// the mode string and any other process.env access an empty object.
func (p *Pipeline) define() map[string]string {
	mode, _ := json.Marshal(string(p.opts.Mode))
	define := map[string]string{
		"process.env.NODE_ENV": string(mode),
		"process.env":          "{}",
	}
	maps.Copy(define, p.opts.Define)
	return define
}

// script transpiles to CommonJS. Type errors are not reported here.
func (p *Pipeline) script(in Input) (*Result, error) {
	opts := api.TransformOptions{
		Loader:     p.loader(in),
		Format:     api.FormatCommonJS,
		Target:     api.ESNext,
		Engines:    p.opts.Targets,
		JSX:        api.JSXAutomatic,
		JSXDev:     p.opts.Mode == naming.Development && !in.ThirdParty,
		Define:     p.define(),
		Sourcefile: in.ID,
		LogLevel:   api.LogLevelSilent,
	}
	if p.opts.SourceMap {
		opts.Sourcemap = api.SourceMapExternal
		opts.SourcesContent = api.SourcesContentInclude
	}

	result := api.Transform(string(in.Source), opts)
	if len(result.Errors) > 0 {
		return nil, errorFromMessages(in.Path, result.Errors)
	}

	return &Result{
		Kind: Script,
		Code: result.Code,
		Map:  result.Map,
	}, nil
}
