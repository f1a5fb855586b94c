/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package reveal paints a diagram onto a surface in randomized order, a
// bounded batch per frame, so the drawing appears to be sketched by hand.
package reveal

import (
	"image"
	"image/color"
	"math/rand/v2"
)

// DefaultThreshold is the alpha above which a pixel counts as visible.
const DefaultThreshold uint8 = 128

// DefaultFrames is the number of ticks a reveal takes regardless of size.
const DefaultFrames = 30

// Pixel is one visible source pixel.
type Pixel struct {
	X, Y  int
	Color color.RGBA
}

// ExtractOpaque returns the pixels of img whose alpha exceeds threshold, in
// row-major order relative to img's origin. Visible pixels are painted
// fully opaque, so only their RGB channels are kept.
func ExtractOpaque(img image.Image, threshold uint8) []Pixel {
	if img == nil {
		return nil
	}
	b := img.Bounds()
	nrgba, ok := img.(*image.NRGBA)
	out := make([]Pixel, 0, b.Dx()*b.Dy()/4)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			var c color.NRGBA
			if ok {
				c = nrgba.NRGBAAt(x, y)
			} else {
				c = color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			}
			if c.A <= threshold {
				continue
			}
			out = append(out, Pixel{
				X:     x - b.Min.X,
				Y:     y - b.Min.Y,
				Color: color.RGBA{R: c.R, G: c.G, B: c.B, A: 255},
			})
		}
	}
	return out
}

// Permute returns a uniformly random permutation of items drawn from rng
// (Fisher-Yates). The input is left untouched. A nil rng uses the global source.
func Permute[T any](items []T, rng *rand.Rand) []T {
	out := append([]T(nil), items...)
	shuffle := rand.Shuffle
	if rng != nil {
		shuffle = rng.Shuffle
	}
	shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}

// BatchSize is the number of pixels painted per tick for a reveal of total
// pixels spread over frames ticks.
func BatchSize(total, frames int) int {
	if frames <= 0 {
		frames = DefaultFrames
	}
	return max(1, total/frames)
}
