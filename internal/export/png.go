/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package export

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"io"
	"math"
	"os"
	"path/filepath"

	xdraw "golang.org/x/image/draw"
)

// PNGOptions controls raster export.
//   - Scale: output magnification, 1 when zero.
//   - MaxWidth: when > 0, the result is shrunk (aspect kept) to fit this width.
type PNGOptions struct {
	Scale    float64
	MaxWidth int
}

// EncodePNG writes img to w after applying opt.
func EncodePNG(w io.Writer, img image.Image, opt PNGOptions) error {
	if img == nil {
		return fmt.Errorf("image is nil")
	}
	return png.Encode(w, resample(img, opt))
}

// ExportPNG writes img to path, creating parent directories as needed.
func ExportPNG(path string, img image.Image, opt PNGOptions) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	var buf bytes.Buffer
	if err := EncodePNG(&buf, img, opt); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}

func outputSize(b image.Rectangle, opt PNGOptions) (int, int) {
	s := opt.Scale
	if s <= 0 {
		s = 1
	}
	w := float64(b.Dx()) * s
	h := float64(b.Dy()) * s
	if opt.MaxWidth > 0 && w > float64(opt.MaxWidth) {
		h = h * float64(opt.MaxWidth) / w
		w = float64(opt.MaxWidth)
	}
	return max(1, int(math.Round(w))), max(1, int(math.Round(h)))
}

func resample(img image.Image, opt PNGOptions) image.Image {
	b := img.Bounds()
	if b.Empty() {
		return img
	}
	w, h := outputSize(b, opt)
	if w == b.Dx() && h == b.Dy() {
		return img
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	// nearest neighbour keeps reveal blocks crisp when enlarging
	var s xdraw.Scaler = xdraw.CatmullRom
	if w > b.Dx() {
		s = xdraw.NearestNeighbor
	}
	s.Scale(dst, dst.Bounds(), img, b, xdraw.Src, nil)
	return dst
}
