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
// Package inject writes references to emitted chunks into an HTML
// document: a favicon link, one stylesheet link per CSS file and one
// deferred script per JavaScript file, appended to <head> in load order.
package inject

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	splitfs "bennypowers.dev/splitpack/fs"
)

// DefaultTemplate is used when the project has no HTML template.
const DefaultTemplate = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
</head>
<body>
<div id="root"></div>
</body>
</html>
`

// Options lists what to inject. Filenames are relative to the output
// directory and prefixed with PublicPath.
type Options struct {
	PublicPath string
	Favicon    string
	Styles     []string
	Scripts    []string
}

// Result reports what Document changed.
type Result struct {
	HTML     []byte
	Inserted int
	// Skipped counts references the template already had.
	Skipped int
}

// LoadTemplate reads the template at path, falling back to
// DefaultTemplate when it does not exist.
func LoadTemplate(fsys splitfs.FileSystem, path string) ([]byte, error) {
	if path == "" {
		return []byte(DefaultTemplate), nil
	}
	content, err := fsys.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return []byte(DefaultTemplate), nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading template: %w", err)
	}
	return content, nil
}

// Document parses template and appends the references in opts to its
// head. References already present are left alone.
func Document(template []byte, opts Options) (*Result, error) {
	doc, err := html.Parse(bytes.NewReader(template))
	if err != nil {
		return nil, fmt.Errorf("parsing template: %w", err)
	}
	head := find(doc, atom.Head)
	if head == nil {
		return nil, errors.New("could not find insertion point (no <head> tag)")
	}

	existing := references(head)
	result := &Result{}
	add := func(n *html.Node, url string) {
		if existing[url] {
			result.Skipped++
			return
		}
		existing[url] = true
		head.AppendChild(n)
		head.AppendChild(&html.Node{Type: html.TextNode, Data: "\n"})
		result.Inserted++
	}

	prefix := strings.TrimSuffix(opts.PublicPath, "/") + "/"
	if opts.Favicon != "" {
		url := prefix + opts.Favicon
		add(element(atom.Link, "rel", "icon", "href", url), url)
	}
	for _, file := range opts.Styles {
		url := prefix + file
		add(element(atom.Link, "rel", "stylesheet", "href", url), url)
	}
	for _, file := range opts.Scripts {
		url := prefix + file
		add(element(atom.Script, "defer", "", "src", url), url)
	}

	var buf bytes.Buffer
	if err := html.Render(&buf, doc); err != nil {
		return nil, fmt.Errorf("rendering document: %w", err)
	}
	buf.WriteByte('\n')
	result.HTML = buf.Bytes()
	return result, nil
}

func element(a atom.Atom, attrs ...string) *html.Node {
	n := &html.Node{Type: html.ElementNode, DataAtom: a, Data: a.String()}
	for i := 0; i+1 < len(attrs); i += 2 {
		n.Attr = append(n.Attr, html.Attribute{Key: attrs[i], Val: attrs[i+1]})
	}
	return n
}

func find(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := find(c, a); found != nil {
			return found
		}
	}
	return nil
}

// references collects the src and href values under n.
func references(n *html.Node) map[string]bool {
	refs := make(map[string]bool)
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			for _, attr := range n.Attr {
				if attr.Key == "src" || attr.Key == "href" {
					refs[attr.Val] = true
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return refs
}
