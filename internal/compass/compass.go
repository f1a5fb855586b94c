/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package compass simulates a mechanical compass: a press pins the center,
// dragging swings an arm whose length is the live radius, and releasing
// commits the circle to an append-only log redrawn under every later drag.
package compass

import (
	"fmt"
	"image/color"
	"log/slog"
	"math"

	"gonum.org/v1/gonum/spatial/r2"

	applog "geosolve/internal/log"
	"geosolve/internal/raster"
	"geosolve/internal/units"
)

// State of the pointer interaction.
type State int

const (
	Idle State = iota
	Dragging
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Dragging:
		return "dragging"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// DefaultEpsilon is the smallest radius, in pixels, committed on release.
const DefaultEpsilon = 0.5

// Circle is a committed construction.
type Circle struct {
	Center r2.Vec
	Radius float64
}

// Draft is the in-progress drag.
type Draft struct {
	Center  r2.Vec
	Pointer r2.Vec
}

// Radius is the distance from the pinned center to the pointer.
func (d Draft) Radius() float64 { return r2.Norm(r2.Sub(d.Pointer, d.Center)) }

// Palette.
var (
	CommittedStroke = color.RGBA{R: 0x2e, G: 0xcc, B: 0x71, A: 0xff}
	CommittedCenter = color.RGBA{R: 0x27, G: 0xae, B: 0x60, A: 0xff}
	LiveCenter      = color.RGBA{R: 0x2c, G: 0x3e, B: 0x50, A: 0xff}
	LiveStroke      = color.RGBA{R: 0x66, G: 0x7e, B: 0xea, A: 0xff}
	ArmStroke       = color.RGBA{R: 0xe7, G: 0x4c, B: 0x3c, A: 0xff}
	TipFill         = color.RGBA{R: 0xf3, G: 0x9c, B: 0x12, A: 0xff}
)

// ReadoutAnchor is the baseline origin of the live radius text.
var ReadoutAnchor = struct{ X, Y int }{10, 20}

// Simulator owns the circle log and the transient draft.
type Simulator struct {
	Mapper units.Mapper
	// Epsilon rejects releases closer than this to the center; DefaultEpsilon if zero.
	Epsilon float64
	// Background blanks the drawing layer.
	Background color.RGBA
	// OnCommit observes each committed circle.
	OnCommit func(Circle)

	surface *raster.Framebuffer
	state   State
	draft   Draft
	bias    float64
	circles []Circle
	log     *slog.Logger
}

// New returns an idle simulator drawing onto surface.
func New(surface *raster.Framebuffer, m units.Mapper) *Simulator {
	return &Simulator{
		Mapper:     m,
		Background: raster.Transparent,
		surface:    surface,
		log:        applog.WithComponent("compass"),
	}
}

// State reports whether a drag is in progress.
func (s *Simulator) State() State { return s.state }

// Draft returns the active drag, if any.
func (s *Simulator) Draft() (Draft, bool) { return s.draft, s.state == Dragging }

// Circles returns a copy of the committed log.
func (s *Simulator) Circles() []Circle { return append([]Circle(nil), s.circles...) }

// RotationBias returns the arm offset in degrees, within [0, 360).
func (s *Simulator) RotationBias() float64 { return s.bias }

// SetRotationBias sets the arm offset. It never affects radii.
func (s *Simulator) SetRotationBias(deg float64) {
	if math.IsNaN(deg) || math.IsInf(deg, 0) {
		return
	}
	deg = math.Mod(deg, 360)
	if deg < 0 {
		deg += 360
	}
	s.bias = deg
}

func (s *Simulator) epsilon() float64 {
	if s.Epsilon > 0 {
		return s.Epsilon
	}
	return DefaultEpsilon
}

// Press pins the center at p. Presses outside the surface or during a drag are ignored.
func (s *Simulator) Press(p r2.Vec) bool {
	if s.state == Dragging {
		return false
	}
	if p.X < 0 || p.Y < 0 || p.X >= float64(s.surface.Width()) || p.Y >= float64(s.surface.Height()) {
		return false
	}
	s.state = Dragging
	s.draft = Draft{Center: p, Pointer: p}
	return true
}

// Move updates the live pointer and redraws.
func (s *Simulator) Move(p r2.Vec, sc units.Scale) {
	if s.state != Dragging {
		return
	}
	s.draft.Pointer = p
	s.Render(sc)
}

// Release ends the drag at p and commits the circle unless its radius is
// below epsilon. It reports the circle and whether it was committed.
func (s *Simulator) Release(p r2.Vec, sc units.Scale) (Circle, bool) {
	if s.state != Dragging {
		return Circle{}, false
	}
	s.draft.Pointer = p
	c := Circle{Center: s.draft.Center, Radius: s.draft.Radius()}
	s.state = Idle
	s.draft = Draft{}
	committed := c.Radius >= s.epsilon()
	if committed {
		s.circles = append(s.circles, c)
		s.log.Debug("circle committed",
			slog.Float64("x", c.Center.X), slog.Float64("y", c.Center.Y),
			slog.Float64("radius_px", c.Radius),
			slog.Int("count", len(s.circles)))
		if s.OnCommit != nil {
			s.OnCommit(c)
		}
	} else {
		s.log.Debug("degenerate circle discarded", slog.Float64("radius_px", c.Radius))
	}
	s.Render(sc)
	return c, committed
}

// Leave treats the pointer leaving the surface as a release.
func (s *Simulator) Leave(p r2.Vec, sc units.Scale) (Circle, bool) { return s.Release(p, sc) }

// Cancel drops an active drag without committing.
func (s *Simulator) Cancel(sc units.Scale) {
	if s.state != Dragging {
		return
	}
	s.state = Idle
	s.draft = Draft{}
	s.Render(sc)
}

// Enter prepares the layer when compass mode becomes active: the surface is
// blanked and the committed log replayed so pixels match the logical state.
func (s *Simulator) Enter(sc units.Scale) { s.Render(sc) }

// Clear empties the log, drops any drag and blanks the surface.
func (s *Simulator) Clear() {
	s.circles = nil
	s.state = Idle
	s.draft = Draft{}
	s.surface.Clear(s.Background)
}

// ArmTip is where the pencil sits: the pointer rotated about the center by the bias.
func (s *Simulator) ArmTip() r2.Vec {
	return r2.Rotate(s.draft.Pointer, s.bias*math.Pi/180, s.draft.Center)
}

// Readout is the live radius label, or "" when idle.
func (s *Simulator) Readout(sc units.Scale) string {
	if s.state != Dragging {
		return ""
	}
	return "R: " + units.Format(s.Mapper.ToUnits(s.draft.Radius(), sc))
}

// Render redraws the layer from scratch.
func (s *Simulator) Render(sc units.Scale) {
	s.surface.Clear(s.Background)
	for _, c := range s.circles {
		s.surface.Circle(c.Center, c.Radius, raster.Stroke{Color: CommittedStroke, Width: 3})
		s.surface.Disc(c.Center, 4, CommittedCenter)
	}
	if s.state != Dragging {
		return
	}
	d := s.draft
	s.surface.Disc(d.Center, 5, LiveCenter)
	s.surface.Circle(d.Center, d.Radius(), raster.Stroke{Color: LiveStroke, Width: 3})
	tip := s.ArmTip()
	s.surface.Line(d.Center, tip, raster.Stroke{Color: ArmStroke, Width: 3})
	s.surface.Disc(tip, 6, TipFill)
	s.surface.Text(ReadoutAnchor.X, ReadoutAnchor.Y, s.Readout(sc), LiveStroke)
}
