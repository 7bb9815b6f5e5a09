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
// Package output formats the reports printed by splitpack commands.
package output

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"bennypowers.dev/splitpack/fs"
)

// Formats lists the accepted values of a --format flag.
var Formats = []string{"text", "json", "yaml"}

// Texter is implemented by reports with a human-readable form.
type Texter interface {
	Text(w io.Writer) error
}

// ValidateFormat rejects formats other than Formats.
func ValidateFormat(format string) error {
	switch format {
	case "text", "json", "yaml":
		return nil
	}
	return fmt.Errorf("invalid format %q: must be one of text, json, yaml", format)
}

// Format renders v as text, JSON or YAML. v must implement Texter for
// the text format.
func Format(v any, format string) ([]byte, error) {
	var buf bytes.Buffer
	switch format {
	case "json":
		enc := json.NewEncoder(&buf)
		enc.SetIndent("", "  ")
		if err := enc.Encode(v); err != nil {
			return nil, err
		}
	case "yaml":
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return nil, err
		}
		if err := enc.Close(); err != nil {
			return nil, err
		}
	case "text":
		t, ok := v.(Texter)
		if !ok {
			return nil, fmt.Errorf("%T has no text form", v)
		}
		if err := t.Text(&buf); err != nil {
			return nil, err
		}
	default:
		return nil, ValidateFormat(format)
	}
	return buf.Bytes(), nil
}

// Print formats v and writes it to stdout, or to the file named by
// viper's "output" flag when set.
func Print(osfs fs.FileSystem, v any, format string) error {
	data, err := Format(v, format)
	if err != nil {
		return err
	}
	if outputPath := viper.GetString("output"); outputPath != "" {
		return osfs.WriteFile(outputPath, data, 0644)
	}
	_, err = os.Stdout.Write(data)
	return err
}

// table returns a tabwriter aligned for report columns.
func table(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
}
