/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package export writes the rendered diagram and its solved properties to
// PNG images and PDF worksheets.
package export

import (
	"image"

	"geosolve/internal/solver"
	"geosolve/internal/tool"
	"geosolve/internal/units"
)

// Sheet is everything an exporter needs from one solve.
type Sheet struct {
	Title      string
	Command    string
	Shape      string
	Properties []solver.Property
	Scale      units.Scale
	// Notes are free-form lines printed under the property table, such as a
	// measured distance or the compass readout.
	Notes   []string
	Diagram image.Image
}

// SheetFrom captures the current state of t. The diagram is the composited
// view, so measurements and committed circles appear as they do on screen.
func SheetFrom(t *tool.Tool, command string) Sheet {
	shape, props := t.Properties()
	s := Sheet{
		Title:      "GeoSolve worksheet",
		Command:    command,
		Shape:      shape,
		Properties: props,
		Scale:      t.Scale(),
		Diagram:    t.Composite(),
	}
	if l := t.DistanceLabel(); l != "" {
		s.Notes = append(s.Notes, "Measured: "+l)
	}
	if c := t.Circles(); len(c) > 0 {
		r := t.Mapper().ToUnits(c[len(c)-1].Radius, t.Scale())
		s.Notes = append(s.Notes, "Last compass circle: R "+units.Format(r))
	}
	return s
}
