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
	"regexp"
	"strings"
)

// preprocessLess handles the subset of less used by application styles:
// "//" line comments are removed and top-level "@name: value;" variables
// are substituted into the rest of the sheet, "@{name}" included. Nesting
// is left for the CSS lowering pass.
func preprocessLess(src []byte) []byte {
	src = stripLineComments(src)
	vars, rest := extractVariables(src)
	if len(vars) == 0 {
		return rest
	}
	return substituteVariables(rest, vars)
}

// stripLineComments removes "//" comments outside strings, block comments
// and url(...) arguments.
func stripLineComments(src []byte) []byte {
	var out bytes.Buffer
	out.Grow(len(src))
	for i := 0; i < len(src); i++ {
		c := src[i]
		switch {
		case c == '"' || c == '\'':
			end := skipString(src, i)
			out.Write(src[i:end])
			i = end - 1
		case c == '/' && i+1 < len(src) && src[i+1] == '*':
			end := skipBlockComment(src, i)
			out.Write(src[i:end])
			i = end - 1
		case c == '/' && i+1 < len(src) && src[i+1] == '/':
			for i < len(src) && src[i] != '\n' {
				i++
			}
			if i < len(src) {
				out.WriteByte('\n')
			}
		case hasPrefixFold(src[i:], "url("):
			end := skipParens(src, i+3)
			out.Write(src[i:end])
			i = end - 1
		default:
			out.WriteByte(c)
		}
	}
	return out.Bytes()
}

var variableDecl = regexp.MustCompile(`^@([A-Za-z_][\w-]*)\s*:\s*([^;{}]*);`)

// extractVariables removes top-level variable declarations and returns
// their values with earlier variables already substituted.
func extractVariables(src []byte) (map[string]string, []byte) {
	vars := make(map[string]string)
	var out bytes.Buffer
	depth := 0
	for i := 0; i < len(src); i++ {
		c := src[i]
		switch {
		case c == '"' || c == '\'':
			end := skipString(src, i)
			out.Write(src[i:end])
			i = end - 1
			continue
		case c == '/' && i+1 < len(src) && src[i+1] == '*':
			end := skipBlockComment(src, i)
			out.Write(src[i:end])
			i = end - 1
			continue
		case c == '{':
			depth++
		case c == '}':
			depth = max(depth-1, 0)
		case c == '@' && depth == 0:
			if m := variableDecl.FindSubmatchIndex(src[i:]); m != nil {
				name := string(src[i+m[2] : i+m[3]])
				value := strings.TrimSpace(string(src[i+m[4] : i+m[5]]))
				vars[name] = string(substituteVariables([]byte(value), vars))
				i += m[1] - 1
				continue
			}
		}
		out.WriteByte(c)
	}
	return vars, out.Bytes()
}

var variableRef = regexp.MustCompile(`@\{([A-Za-z_][\w-]*)\}|@([A-Za-z_][\w-]*)`)

// substituteVariables replaces references to known variables. Unknown
// names, such as at-rule keywords, are kept.
func substituteVariables(src []byte, vars map[string]string) []byte {
	return variableRef.ReplaceAllFunc(src, func(ref []byte) []byte {
		name := strings.Trim(string(ref[1:]), "{}")
		if value, ok := vars[name]; ok {
			return []byte(value)
		}
		return ref
	})
}

func skipString(src []byte, i int) int {
	quote := src[i]
	for j := i + 1; j < len(src); j++ {
		switch src[j] {
		case '\\':
			j++
		case quote, '\n':
			return j + 1
		}
	}
	return len(src)
}

func skipBlockComment(src []byte, i int) int {
	if end := bytes.Index(src[i+2:], []byte("*/")); end >= 0 {
		return i + 2 + end + 2
	}
	return len(src)
}

// skipParens returns the index just past the parenthesis matching the one
// at src[open].
func skipParens(src []byte, open int) int {
	depth := 0
	for j := open; j < len(src); j++ {
		switch src[j] {
		case '"', '\'':
			j = skipString(src, j) - 1
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return j + 1
			}
		}
	}
	return len(src)
}

func hasPrefixFold(b []byte, prefix string) bool {
	return len(b) >= len(prefix) && strings.EqualFold(string(b[:len(prefix)]), prefix)
}
