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
	"fmt"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
)

var engines = map[string]api.EngineName{
	"chrome":  api.EngineChrome,
	"edge":    api.EngineEdge,
	"firefox": api.EngineFirefox,
	"ie":      api.EngineIE,
	"ios":     api.EngineIOS,
	"node":    api.EngineNode,
	"opera":   api.EngineOpera,
	"safari":  api.EngineSafari,
}

// ParseTargets converts browser targets such as "chrome87" or "safari14.1"
// into esbuild engines.
func ParseTargets(targets []string) ([]api.Engine, error) {
	out := make([]api.Engine, 0, len(targets))
	for _, t := range targets {
		t = strings.ToLower(strings.TrimSpace(t))
		i := strings.IndexFunc(t, func(r rune) bool { return r >= '0' && r <= '9' })
		if i <= 0 {
			return nil, fmt.Errorf("invalid target %q: want <browser><version>", t)
		}
		name, ok := engines[t[:i]]
		if !ok {
			return nil, fmt.Errorf("invalid target %q: unknown browser %q", t, t[:i])
		}
		out = append(out, api.Engine{Name: name, Version: t[i:]})
	}
	return out, nil
}
