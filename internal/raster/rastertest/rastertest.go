/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package rastertest provides assertion helpers for framebuffers in tests.
package rastertest

import (
	"image"
	"image/color"

	"geosolve/internal/raster"
)

// CountDiffering reports how many pixels of f differ from c.
func CountDiffering(f *raster.Framebuffer, c color.RGBA) int {
	n := 0
	p := f.RGBA().Pix
	for i := 0; i+3 < len(p); i += 4 {
		if p[i] != c.R || p[i+1] != c.G || p[i+2] != c.B || p[i+3] != c.A {
			n++
		}
	}
	return n
}

// Snapshot returns an independent copy of the current surface.
func Snapshot(f *raster.Framebuffer) *image.RGBA {
	src := f.RGBA()
	cp := image.NewRGBA(src.Rect)
	copy(cp.Pix, src.Pix)
	return cp
}
