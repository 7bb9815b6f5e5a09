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
package emit

// runtime is the module loader prepended to every entry chunk, called with
// the entry's manifest. Chunks register themselves by pushing
// [name, modules, entryID, initialChunks] onto self.splitpackChunks; the
// first runtime to start drains the queue and takes over push. Later
// entries on the same page only merge their manifest.
//
// A module is [factory, specifiers]: factory receives (module, exports,
// require, __load) and specifiers maps what the module asked for to
// module IDs. __load is the renamed dynamic import().
const runtime = `(function (manifest) {
  var g = self;
  if (g.__splitpack) {
    g.__splitpack.configure(manifest);
    return;
  }
  var has = Object.prototype.hasOwnProperty;
  var definitions = {};
  var cache = {};
  var installed = {};
  var requested = {};
  var waiting = {};
  var entries = [];
  var chunks = {};
  var roots = {};
  var publicPath = "/";

  function configure(m) {
    publicPath = m.publicPath;
    for (var name in m.chunks) chunks[name] = m.chunks[name];
    for (var id in m.async) roots[id] = m.async[id];
  }

  function require(id) {
    if (has.call(cache, id)) return cache[id].exports;
    var definition = definitions[id];
    if (!definition) throw new Error("splitpack: unknown module " + id);
    var module = (cache[id] = { exports: {} });
    var specifiers = definition[1];
    function target(spec) {
      return has.call(specifiers, spec) ? specifiers[spec] : spec;
    }
    definition[0].call(
      module.exports,
      module,
      module.exports,
      function (spec) { return require(target(spec)); },
      function (spec) { return load(target(spec)); }
    );
    return module.exports;
  }

  function load(id) {
    var names = roots[id] || [];
    return Promise.all(names.map(loadChunk)).then(function () {
      var exports = require(id);
      return exports && exports.__esModule ? exports : { default: exports };
    });
  }

  function loadChunk(name) {
    if (installed[name]) return Promise.resolve();
    if (!requested[name]) {
      var files = chunks[name] || {};
      requested[name] = new Promise(function (resolve, reject) {
        waiting[name] = resolve;
        if (files.css) {
          var link = document.createElement("link");
          link.rel = "stylesheet";
          link.href = publicPath + files.css;
          document.head.appendChild(link);
        }
        var script = document.createElement("script");
        script.src = publicPath + files.js;
        script.onerror = function () {
          delete requested[name];
          delete waiting[name];
          reject(new Error("splitpack: failed to load chunk " + name));
        };
        document.head.appendChild(script);
      });
    }
    return requested[name];
  }

  function install(item) {
    var name = item[0];
    var modules = item[1];
    for (var id in modules) {
      if (!has.call(definitions, id)) definitions[id] = modules[id];
    }
    installed[name] = true;
    if (item[2] != null && !requested[name]) {
      entries.push({ id: item[2], initial: item[3] || [] });
    }
    var resolve = waiting[name];
    if (resolve) {
      delete waiting[name];
      resolve();
    }
    run();
  }

  function run() {
    for (var i = 0; i < entries.length; i++) {
      var entry = entries[i];
      var ready = entry.initial.every(function (n) { return installed[n]; });
      if (ready) {
        entries.splice(i--, 1);
        require(entry.id);
      }
    }
  }

  g.__splitpack = { configure: configure };
  configure(manifest);
  var queue = (g.splitpackChunks = g.splitpackChunks || []);
  queue.forEach(install);
  queue.push = install;
})`

// queueExpr is the array chunks push themselves onto.
const queueExpr = "(self.splitpackChunks=self.splitpackChunks||[])"

// runtimeManifest is the per-entry table the runtime loads async chunks
// from.
type runtimeManifest struct {
	PublicPath string                  `json:"publicPath"`
	Chunks     map[string]runtimeChunk `json:"chunks"`
	Async      map[string][]string     `json:"async"`
}

type runtimeChunk struct {
	JS  string `json:"js"`
	CSS string `json:"css,omitempty"`
}
