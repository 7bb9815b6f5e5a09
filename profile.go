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
package main

import (
	"errors"
	"fmt"
	"os"
	"runtime/pprof"
)

// profiler writes a CPU profile for the duration of one command.
type profiler struct {
	out *os.File
}

func (p *profiler) start(path string) error {
	if path == "" {
		return nil
	}
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating CPU profile: %w", err)
	}
	if err := pprof.StartCPUProfile(out); err != nil {
		return errors.Join(fmt.Errorf("starting CPU profile: %w", err), out.Close())
	}
	p.out = out
	return nil
}

func (p *profiler) stop() error {
	if p.out == nil {
		return nil
	}
	pprof.StopCPUProfile()
	out := p.out
	p.out = nil
	if err := out.Close(); err != nil {
		return fmt.Errorf("closing CPU profile %s: %w", out.Name(), err)
	}
	return nil
}
