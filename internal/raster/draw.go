/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package raster

import (
	"image"
	"image/color"
	"math"

	"github.com/srwiley/rasterx"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"gonum.org/v1/gonum/spatial/r2"
)

// Stroke describes an outline.
type Stroke struct {
	Color color.RGBA
	Width float64
}

func (f *Framebuffer) scanner() *rasterx.ScannerGV {
	return rasterx.NewScannerGV(f.Width(), f.Height(), f.img, f.img.Rect)
}

func (f *Framebuffer) dasher(st Stroke) *rasterx.Dasher {
	d := rasterx.NewDasher(f.Width(), f.Height(), f.scanner())
	w := st.Width
	if w <= 0 {
		w = 1
	}
	d.SetStroke(fixed.Int26_6(w*64), 4*64, rasterx.RoundCap, rasterx.RoundCap, rasterx.RoundGap, rasterx.ArcClip, nil, 0)
	d.SetColor(st.Color)
	return d
}

// Line strokes the segment a-b with round caps.
func (f *Framebuffer) Line(a, b r2.Vec, st Stroke) {
	if f.Width() == 0 || f.Height() == 0 {
		return
	}
	if a == b {
		f.Disc(a, math.Max(st.Width, 1)/2, st.Color)
		return
	}
	d := f.dasher(st)
	d.Start(rasterx.ToFixedP(a.X, a.Y))
	d.Line(rasterx.ToFixedP(b.X, b.Y))
	d.Stop(false)
	d.Draw()
}

// DashedLine strokes a-b as alternating dash/gap runs starting with a dash.
func (f *Framebuffer) DashedLine(a, b r2.Vec, st Stroke, dash, gap float64) {
	length := r2.Norm(r2.Sub(b, a))
	if length == 0 || dash <= 0 {
		f.Line(a, b, st)
		return
	}
	if gap < 0 {
		gap = 0
	}
	dir := r2.Scale(1/length, r2.Sub(b, a))
	for t := 0.0; t < length; t += dash + gap {
		end := math.Min(t+dash, length)
		f.Line(r2.Add(a, r2.Scale(t, dir)), r2.Add(a, r2.Scale(end, dir)), st)
	}
}

// Circle strokes a circle outline. Non-positive radii draw nothing.
func (f *Framebuffer) Circle(c r2.Vec, r float64, st Stroke) {
	if r <= 0 || f.Width() == 0 || f.Height() == 0 {
		return
	}
	d := f.dasher(st)
	rasterx.AddCircle(c.X, c.Y, r, d)
	d.Draw()
}

// Disc fills a circle.
func (f *Framebuffer) Disc(c r2.Vec, r float64, fill color.RGBA) {
	if r <= 0 || f.Width() == 0 || f.Height() == 0 {
		return
	}
	fl := rasterx.NewFiller(f.Width(), f.Height(), f.scanner())
	fl.SetColor(fill)
	rasterx.AddCircle(c.X, c.Y, r, fl)
	fl.Draw()
}

// labelFace is the fixed bitmap face used for all overlay labels.
var labelFace font.Face = basicfont.Face7x13

// TextWidth returns the advance of s in the label face, in pixels.
func TextWidth(s string) int {
	return font.MeasureString(labelFace, s).Ceil()
}

// Text draws s with its baseline starting at (x, y).
func (f *Framebuffer) Text(x, y int, s string, c color.RGBA) {
	d := &font.Drawer{
		Dst:  f.img,
		Src:  image.NewUniform(c),
		Face: labelFace,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(s)
}

// TextCentered draws s centered horizontally and vertically on p.
func (f *Framebuffer) TextCentered(p r2.Vec, s string, c color.RGBA) {
	m := labelFace.Metrics()
	w := TextWidth(s)
	h := (m.Ascent + m.Descent).Ceil()
	x := int(math.Round(p.X)) - w/2
	y := int(math.Round(p.Y)) - h/2 + m.Ascent.Ceil()
	f.Text(x, y, s, c)
}
