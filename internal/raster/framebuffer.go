/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package raster provides the width x height x RGBA drawing surfaces used by
// the diagram layers, plus the stroke, fill and text primitives the overlays
// draw with.
package raster

import (
	"image"
	"image/color"
	"image/draw"
	"math"
)

// Common surface colors.
var (
	White       = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	Transparent = color.RGBA{}
)

// Framebuffer is a mutable RGBA surface. It is not safe for concurrent use;
// exactly one producer writes to a surface at a time.
type Framebuffer struct {
	img *image.RGBA
}

// New allocates a transparent w x h surface. Non-positive sizes yield an empty surface.
func New(w, h int) *Framebuffer {
	f := &Framebuffer{}
	f.Resize(w, h)
	return f
}

// Resize reallocates the surface; previous content is discarded.
func (f *Framebuffer) Resize(w, h int) {
	if w < 0 {
		w = 0
	}
	if h < 0 {
		h = 0
	}
	f.img = image.NewRGBA(image.Rect(0, 0, w, h))
}

func (f *Framebuffer) Width() int              { return f.img.Rect.Dx() }
func (f *Framebuffer) Height() int             { return f.img.Rect.Dy() }
func (f *Framebuffer) Bounds() image.Rectangle { return f.img.Rect }

// RGBA exposes the backing image. Callers must not retain it across Resize.
func (f *Framebuffer) RGBA() *image.RGBA { return f.img }

// Clear fills the whole surface with c, replacing (not blending) existing pixels.
func (f *Framebuffer) Clear(c color.RGBA) {
	if c == Transparent {
		clear(f.img.Pix)
		return
	}
	draw.Draw(f.img, f.img.Rect, image.NewUniform(c), image.Point{}, draw.Src)
}

// At returns the pixel at (x, y); out-of-bounds reads are transparent.
func (f *Framebuffer) At(x, y int) color.RGBA {
	if !(image.Point{X: x, Y: y}).In(f.img.Rect) {
		return Transparent
	}
	return f.img.RGBAAt(x, y)
}

// PaintBlock paints source pixel (x, y) as a scale x scale block at
// (x*scale, y*scale). Every block covers at least one destination pixel, so
// downscaled reveals still land each source pixel somewhere.
func (f *Framebuffer) PaintBlock(x, y int, scale float64, c color.RGBA) {
	x0 := int(math.Floor(float64(x) * scale))
	y0 := int(math.Floor(float64(y) * scale))
	x1 := int(math.Floor(float64(x+1) * scale))
	y1 := int(math.Floor(float64(y+1) * scale))
	if x1 <= x0 {
		x1 = x0 + 1
	}
	if y1 <= y0 {
		y1 = y0 + 1
	}
	r := image.Rect(x0, y0, x1, y1).Intersect(f.img.Rect)
	for py := r.Min.Y; py < r.Max.Y; py++ {
		off := f.img.PixOffset(r.Min.X, py)
		for px := r.Min.X; px < r.Max.X; px++ {
			f.img.Pix[off+0] = c.R
			f.img.Pix[off+1] = c.G
			f.img.Pix[off+2] = c.B
			f.img.Pix[off+3] = c.A
			off += 4
		}
	}
}
