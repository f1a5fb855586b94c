/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package diagram decodes the raster images returned by the solver.
package diagram

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"strings"
)

// ErrDecode reports an image reference that could not be turned into pixels.
var ErrDecode = errors.New("diagram: image decode failed")

// Image is an immutable decoded diagram.
type Image struct {
	Img           image.Image
	Format        string
	Width, Height int
	// PixelsPerUnit is the solver calibration the image was rendered with.
	// Zero means the configured calibration applies.
	PixelsPerUnit float64
}

// Decode accepts either a data URL ("data:image/png;base64,...") or a bare
// base64 payload.
func Decode(ref string) (*Image, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, fmt.Errorf("%w: empty reference", ErrDecode)
	}
	payload := ref
	if strings.HasPrefix(ref, "data:") {
		meta, data, ok := strings.Cut(ref[len("data:"):], ",")
		if !ok {
			return nil, fmt.Errorf("%w: malformed data URL", ErrDecode)
		}
		if !strings.HasSuffix(meta, ";base64") {
			return nil, fmt.Errorf("%w: data URL is not base64 encoded", ErrDecode)
		}
		payload = data
	}
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return DecodeBytes(raw)
}

// DecodeBytes decodes an encoded PNG, JPEG or GIF.
func DecodeBytes(raw []byte) (*Image, error) {
	img, format, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	b := img.Bounds()
	if b.Empty() {
		return nil, fmt.Errorf("%w: empty image", ErrDecode)
	}
	return &Image{
		Img:    img,
		Format: format,
		Width:  b.Dx(),
		Height: b.Dy(),
	}, nil
}

// DataURL encodes PNG bytes as a data URL, the form the solver returns.
func DataURL(png []byte) string {
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png)
}
