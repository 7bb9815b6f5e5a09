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
package packagejson

import "sync"

// Cache loads each package.json at most once per build.
type Cache interface {
	Get(path string) (*PackageJSON, bool)
	// GetOrLoad returns the cached result for path or runs loader. Only one
	// goroutine runs the loader for a path; the others wait for its result.
	GetOrLoad(path string, loader func() (*PackageJSON, error)) (*PackageJSON, error)
}

// load is one package.json read, successful or not.
type load struct {
	once sync.Once
	pkg  *PackageJSON
	err  error
}

// MemoryCache is a Cache backed by a map. Failed loads are remembered as
// well, so a directory without package.json is probed once.
type MemoryCache struct {
	mu    sync.Mutex
	loads map[string]*load
	pkgs  map[string]*PackageJSON
}

// NewMemoryCache returns an empty MemoryCache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		loads: make(map[string]*load),
		pkgs:  make(map[string]*PackageJSON),
	}
}

func (c *MemoryCache) entry(path string) *load {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.loads[path]
	if !ok {
		l = &load{}
		c.loads[path] = l
	}
	return l
}

// Get returns the package loaded from path, if a load succeeded.
func (c *MemoryCache) Get(path string) (*PackageJSON, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	pkg, ok := c.pkgs[path]
	return pkg, ok
}

// GetOrLoad implements Cache.
func (c *MemoryCache) GetOrLoad(path string, loader func() (*PackageJSON, error)) (*PackageJSON, error) {
	l := c.entry(path)
	l.once.Do(func() {
		l.pkg, l.err = loader()
		if l.err == nil {
			c.mu.Lock()
			c.pkgs[path] = l.pkg
			c.mu.Unlock()
		}
	})
	return l.pkg, l.err
}

// Len returns the number of packages loaded successfully.
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pkgs)
}
