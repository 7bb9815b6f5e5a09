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
	"encoding/base64"
	"encoding/json"
	"fmt"
	"mime"
	"path/filepath"
	"strings"
)

// asset encodes an image or binary. Raster images smaller than the inline
// limit become data URIs; a raster image of exactly the limit, and every
// non-raster file, is emitted as a separate file.
func (p *Pipeline) asset(in Input, raster bool) (*Result, error) {
	kind := File
	if raster {
		kind = Raster
	}
	res := &Result{Kind: kind}

	if raster && Inline(int64(len(in.Source)), p.opts.InlineLimit) {
		res.URL = DataURI(in.Path, in.Source)
	} else {
		filename, err := p.namer.Asset(raster, filepath.Ext(in.Path), in.Source)
		if err != nil {
			return nil, err
		}
		res.URL = p.publicURL(filename)
		res.Asset = &Asset{Filename: filename, Data: in.Source}
	}

	url, err := json.Marshal(res.URL)
	if err != nil {
		return nil, err
	}
	res.Code = fmt.Appendf(nil, "module.exports = %s;\n", url)
	return res, nil
}

// Inline reports whether an asset of size bytes is embedded: strictly
// below limit.
func Inline(size, limit int64) bool {
	return size < limit
}

var rasterTypes = map[string]string{
	".bmp":  "image/bmp",
	".gif":  "image/gif",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
}

// DataURI returns a base64 data URI for data, typed by path's extension.
func DataURI(path string, data []byte) string {
	ext := strings.ToLower(filepath.Ext(path))
	typ, ok := rasterTypes[ext]
	if !ok {
		typ = mime.TypeByExtension(ext)
	}
	if typ == "" {
		typ = "application/octet-stream"
	}
	return "data:" + typ + ";base64," + base64.StdEncoding.EncodeToString(data)
}
