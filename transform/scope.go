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
	"bytes"
	"encoding/base64"
	"encoding/hex"
	"path"
	"regexp"
	"strconv"
	"strings"

	"github.com/zeebo/blake3"
)

// DefaultClassNames is the scoped class name template.
const DefaultClassNames = "hui-[name]-[local]--[hash:base64:5]"

var (
	hashToken   = regexp.MustCompile(`\[hash(?::(base64|hex))?(?::(\d+))?\]`)
	unsafeIdent = regexp.MustCompile(`[^A-Za-z0-9_-]+`)
)

// ScopedName expands template for one class. [name] is the file stem,
// [local] the original class and [hash:<base64|hex>:<n>] n characters of
// the blake3 digest of the project-relative path and the class.
func ScopedName(template, id, local string) string {
	stem := strings.TrimSuffix(path.Base(id), path.Ext(id))
	stem = unsafeIdent.ReplaceAllString(stem, "-")

	sum := blake3.Sum256([]byte(id + "\x00" + local))
	out := strings.NewReplacer("[name]", stem, "[local]", local).Replace(template)
	return hashToken.ReplaceAllStringFunc(out, func(tok string) string {
		m := hashToken.FindStringSubmatch(tok)
		var digest string
		if m[1] == "base64" {
			digest = base64.RawURLEncoding.EncodeToString(sum[:])
		} else {
			digest = hex.EncodeToString(sum[:])
		}
		n := 8
		if m[2] != "" {
			n, _ = strconv.Atoi(m[2])
		}
		return digest[:min(n, len(digest))]
	})
}

// scoper rewrites class selectors in rule preludes. Declarations,
// at-rule preludes, strings and comments are copied untouched.
type scoper struct {
	template string
	id       string
	classes  map[string]string
}

func scopeClasses(src []byte, id, template string) ([]byte, map[string]string) {
	s := &scoper{template: template, id: id, classes: make(map[string]string)}
	var out bytes.Buffer
	out.Grow(len(src) + len(src)/4)

	segStart := 0
	parens := 0
	for i := 0; i < len(src); i++ {
		switch c := src[i]; {
		case c == '"' || c == '\'':
			i = skipString(src, i) - 1
		case c == '/' && i+1 < len(src) && src[i+1] == '*':
			i = skipBlockComment(src, i) - 1
		case c == '(':
			parens++
		case c == ')':
			parens = max(parens-1, 0)
		case c == '{':
			seg := src[segStart:i]
			if bytes.HasPrefix(bytes.TrimSpace(stripComments(seg)), []byte("@")) {
				out.Write(seg)
			} else {
				out.Write(s.prelude(seg))
			}
			out.WriteByte('{')
			segStart = i + 1
			parens = 0
		case (c == ';' && parens == 0) || c == '}':
			out.Write(src[segStart : i+1])
			segStart = i + 1
			parens = 0
		}
	}
	out.Write(src[segStart:])
	return out.Bytes(), s.classes
}

func (s *scoper) name(local string) string {
	if scoped, ok := s.classes[local]; ok {
		return scoped
	}
	scoped := ScopedName(s.template, s.id, local)
	s.classes[local] = scoped
	return scoped
}

// prelude rewrites ".class" selectors, unwrapping :global(...) without
// scoping and :local(...) with scoping.
func (s *scoper) prelude(seg []byte) []byte {
	var out bytes.Buffer
	for i := 0; i < len(seg); i++ {
		c := seg[i]
		switch {
		case c == '"' || c == '\'':
			end := skipString(seg, i)
			out.Write(seg[i:end])
			i = end - 1
		case c == '/' && i+1 < len(seg) && seg[i+1] == '*':
			end := skipBlockComment(seg, i)
			out.Write(seg[i:end])
			i = end - 1
		case c == '[':
			end := bytes.IndexByte(seg[i:], ']')
			if end < 0 {
				out.Write(seg[i:])
				return out.Bytes()
			}
			out.Write(seg[i : i+end+1])
			i += end
		case c == ':' && hasPrefixFold(seg[i:], ":global("):
			open := i + len(":global")
			end := skipParens(seg, open)
			out.Write(bytes.TrimSpace(seg[open+1 : end-1]))
			i = end - 1
		case c == ':' && hasPrefixFold(seg[i:], ":local("):
			open := i + len(":local")
			end := skipParens(seg, open)
			out.Write(s.prelude(bytes.TrimSpace(seg[open+1 : end-1])))
			i = end - 1
		case c == '.' && i+1 < len(seg) && isIdentStart(seg[i+1]) && (i == 0 || !isDigit(seg[i-1])):
			j := i + 1
			for j < len(seg) && (isIdentChar(seg[j]) || seg[j] == '\\') {
				if seg[j] == '\\' {
					j++
				}
				j++
			}
			j = min(j, len(seg))
			out.WriteByte('.')
			out.WriteString(s.name(string(seg[i+1 : j])))
			i = j - 1
		default:
			out.WriteByte(c)
		}
	}
	return out.Bytes()
}

func stripComments(seg []byte) []byte {
	for {
		start := bytes.Index(seg, []byte("/*"))
		if start < 0 {
			return seg
		}
		end := skipBlockComment(seg, start)
		seg = append(append([]byte{}, seg[:start]...), seg[end:]...)
	}
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isIdentStart(c byte) bool {
	return c == '_' || c == '-' || c == '\\' || c >= 0x80 ||
		(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentChar(c byte) bool {
	return isIdentStart(c) || isDigit(c)
}
