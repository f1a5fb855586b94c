/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package measure implements the two-point measurement overlay.
package measure

import (
	"gonum.org/v1/gonum/spatial/r2"

	"geosolve/internal/units"
)

// MaxPoints is the session capacity; adding beyond it starts a new session.
const MaxPoints = 2

// Session holds at most two picked points in pixel space.
type Session struct {
	points []r2.Vec
}

// Add appends p. A third point discards the previous pair and leaves only p.
func (s *Session) Add(p r2.Vec) {
	if len(s.points) >= MaxPoints {
		s.points = s.points[:0]
	}
	s.points = append(s.points, p)
}

// Points returns a copy of the picked points in click order.
func (s *Session) Points() []r2.Vec { return append([]r2.Vec(nil), s.points...) }

// Len is the number of picked points, 0 to 2.
func (s *Session) Len() int { return len(s.points) }

// Reset empties the session.
func (s *Session) Reset() { s.points = s.points[:0] }

// PixelDistance is the Euclidean distance between the two points, if both exist.
func (s *Session) PixelDistance() (float64, bool) {
	if len(s.points) != MaxPoints {
		return 0, false
	}
	return r2.Norm(r2.Sub(s.points[1], s.points[0])), true
}

// Distance converts PixelDistance into units at scale sc.
func (s *Session) Distance(m units.Mapper, sc units.Scale) (float64, bool) {
	px, ok := s.PixelDistance()
	if !ok {
		return 0, false
	}
	return m.ToUnits(px, sc), true
}
