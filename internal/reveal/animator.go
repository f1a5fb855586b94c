/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package reveal

import (
	"image"
	"image/color"
	"log/slog"
	"math"
	"math/rand/v2"

	"geosolve/internal/frame"
	applog "geosolve/internal/log"
	"geosolve/internal/raster"
	"geosolve/internal/units"
)

// Animator reveals one image at a time onto its surface. Starting a new
// reveal abandons the previous one; no pixel of a superseded sequence is
// painted after the restart.
type Animator struct {
	surface *raster.Framebuffer
	sched   *frame.Scheduler

	// Threshold is the visibility cutoff, DefaultThreshold if zero.
	Threshold uint8
	// Frames is the approximate tick count per reveal, DefaultFrames if zero.
	Frames int
	// Background fills the surface before painting.
	Background color.RGBA
	// Rand drives the permutation; nil uses the global source.
	Rand *rand.Rand
	// OnComplete runs on the scheduler goroutine after the last batch.
	OnComplete func()

	token   frame.Token
	painted int
	total   int
	log     *slog.Logger
}

// NewAnimator returns an animator painting onto surface with steps run by sched.
func NewAnimator(surface *raster.Framebuffer, sched *frame.Scheduler) *Animator {
	return &Animator{
		surface:    surface,
		sched:      sched,
		Background: raster.White,
		log:        applog.WithComponent("reveal"),
	}
}

// Start resizes the surface to the scaled image, blanks it and schedules the
// randomized paint. Any in-flight reveal is cancelled first.
func (a *Animator) Start(img image.Image, scale units.Scale) frame.Token {
	a.Cancel()

	threshold := a.Threshold
	if threshold == 0 {
		threshold = DefaultThreshold
	}
	order := Permute(ExtractOpaque(img, threshold), a.Rand)
	s := scale.Float()
	b := img.Bounds()
	a.surface.Resize(int(math.Ceil(float64(b.Dx())*s)), int(math.Ceil(float64(b.Dy())*s)))
	a.surface.Clear(a.Background)

	a.painted, a.total = 0, len(order)
	batch := BatchSize(len(order), a.Frames)

	var tok frame.Token
	next := 0
	tok = a.sched.Submit(func() bool {
		if tok != a.token {
			return true
		}
		end := min(next+batch, len(order))
		for _, p := range order[next:end] {
			a.surface.PaintBlock(p.X, p.Y, s, p.Color)
		}
		a.painted += end - next
		next = end
		if next < len(order) {
			return false
		}
		a.token = 0
		a.log.Debug("reveal complete", slog.Int("pixels", a.painted), slog.Float64("scale", s))
		if a.OnComplete != nil {
			a.OnComplete()
		}
		return true
	})
	a.token = tok
	a.log.Debug("reveal started",
		slog.Uint64("token", uint64(tok)),
		slog.Int("pixels", len(order)),
		slog.Int("batch", batch))
	return tok
}

// Cancel abandons the in-flight reveal, leaving already painted blocks in place.
func (a *Animator) Cancel() {
	if a.token == 0 {
		return
	}
	a.sched.Cancel(a.token)
	a.log.Debug("reveal cancelled", slog.Uint64("token", uint64(a.token)), slog.Int("painted", a.painted))
	a.token = 0
}

// Running reports whether a reveal is in flight.
func (a *Animator) Running() bool { return a.token != 0 }

// Progress returns painted and total block counts of the latest reveal.
func (a *Animator) Progress() (painted, total int) { return a.painted, a.total }
