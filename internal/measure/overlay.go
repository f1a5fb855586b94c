/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package measure

import (
	"fmt"
	"image/color"
	"log/slog"

	"gonum.org/v1/gonum/spatial/r2"

	applog "geosolve/internal/log"
	"geosolve/internal/raster"
	"geosolve/internal/units"
)

// Overlay styling.
var (
	MarkerFill   = color.RGBA{R: 0xf3, G: 0x9c, B: 0x12, A: 0xff}
	MarkerStroke = color.RGBA{R: 0xe6, G: 0x7e, B: 0x22, A: 0xff}
	LabelColor   = color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
)

const (
	markerRadius = 8.0
	strokeWidth  = 3.0
	dashLen      = 5.0
	labelOffset  = 20.0
)

// Overlay draws a Session onto a transparent surface stacked above the diagram.
type Overlay struct {
	Session
	Mapper units.Mapper

	surface *raster.Framebuffer
	log     *slog.Logger
}

func NewOverlay(surface *raster.Framebuffer, m units.Mapper) *Overlay {
	return &Overlay{Mapper: m, surface: surface, log: applog.WithComponent("measure")}
}

// Click records a picked point and redraws.
func (o *Overlay) Click(p r2.Vec, sc units.Scale) {
	o.Add(p)
	if d, ok := o.Distance(o.Mapper, sc); ok {
		o.log.Debug("distance measured", slog.Float64("units", d), slog.Float64("scale", sc.Float()))
	}
	o.Render(sc)
}

// Clear drops the session and blanks the surface.
func (o *Overlay) Clear() {
	o.Reset()
	o.surface.Clear(raster.Transparent)
}

// Label returns the distance label for the current session, or "" with fewer than two points.
func (o *Overlay) Label(sc units.Scale) string {
	d, ok := o.Distance(o.Mapper, sc)
	if !ok {
		return ""
	}
	return units.Format(d)
}

// Render redraws markers, the dashed segment and the distance label.
func (o *Overlay) Render(sc units.Scale) {
	o.surface.Clear(raster.Transparent)
	stroke := raster.Stroke{Color: MarkerStroke, Width: strokeWidth}
	for i, p := range o.points {
		o.surface.Disc(p, markerRadius, MarkerFill)
		o.surface.Circle(p, markerRadius, stroke)
		o.surface.TextCentered(p, fmt.Sprintf("P%d", i+1), LabelColor)
	}
	label := o.Label(sc)
	if label == "" {
		return
	}
	a, b := o.points[0], o.points[1]
	o.surface.DashedLine(a, b, raster.Stroke{Color: MarkerFill, Width: strokeWidth}, dashLen, dashLen)
	o.surface.TextCentered(LabelAnchor(a, b), label, MarkerFill)
}

// LabelAnchor is the segment midpoint pushed labelOffset pixels along the
// segment normal, preferring the side above the line.
func LabelAnchor(a, b r2.Vec) r2.Vec {
	mid := r2.Scale(0.5, r2.Add(a, b))
	d := r2.Sub(b, a)
	if d == (r2.Vec{}) {
		return r2.Add(mid, r2.Vec{Y: -labelOffset})
	}
	n := r2.Unit(r2.Vec{X: -d.Y, Y: d.X})
	if n.Y > 0 || (n.Y == 0 && n.X < 0) {
		n = r2.Scale(-1, n)
	}
	return r2.Add(mid, r2.Scale(labelOffset, n))
}
