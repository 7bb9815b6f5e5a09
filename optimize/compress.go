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
package optimize

import (
	"bytes"
	"fmt"
	"maps"
	"path"
	"slices"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// Format is a precompression encoding.
type Format string

const (
	Gzip Format = "gzip"
	Zstd Format = "zstd"
)

// Extension returns the sidecar suffix for the format.
func (f Format) Extension() string {
	switch f {
	case Gzip:
		return ".gz"
	case Zstd:
		return ".zst"
	}
	return ""
}

// ParseFormat parses a precompression format name.
func ParseFormat(name string) (Format, error) {
	switch Format(strings.ToLower(name)) {
	case Gzip:
		return Gzip, nil
	case Zstd:
		return Zstd, nil
	}
	return "", fmt.Errorf("unknown compression format: %q", name)
}

// compressible lists the extensions worth precompressing. Images and
// fonts are compressed already.
var compressible = map[string]bool{
	".js": true, ".css": true, ".html": true, ".json": true,
	".map": true, ".svg": true, ".txt": true,
}

// zstdEncoder is reused across calls; zstd.Encoder is safe for concurrent
// use with EncodeAll.
var zstdEncoder *zstd.Encoder

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedBestCompression))
	if err != nil {
		panic("optimize: zstd encoder initialization failed: " + err.Error())
	}
}

// Precompress returns a sidecar for every compressible file in files and
// every format, keyed by the file name plus the format's extension.
// Sidecars that would not be smaller than the original are skipped.
func Precompress(files map[string][]byte, formats []Format) (map[string][]byte, error) {
	out := make(map[string][]byte)
	for _, name := range slices.Sorted(maps.Keys(files)) {
		if !compressible[strings.ToLower(path.Ext(name))] {
			continue
		}
		data := files[name]
		for _, format := range formats {
			compressed, err := Compress(data, format)
			if err != nil {
				return nil, fmt.Errorf("compressing %s: %w", name, err)
			}
			if len(compressed) < len(data) {
				out[name+format.Extension()] = compressed
			}
		}
	}
	return out, nil
}

// Compress encodes data in the given format.
func Compress(data []byte, format Format) ([]byte, error) {
	switch format {
	case Gzip:
		var buf bytes.Buffer
		w, err := gzip.NewWriterLevel(&buf, gzip.BestCompression)
		if err != nil {
			return nil, err
		}
		if _, err := w.Write(data); err != nil {
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case Zstd:
		return zstdEncoder.EncodeAll(data, nil), nil
	}
	return nil, fmt.Errorf("unsupported compression format: %q", format)
}
