/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package tool is the state container of the geometry diagram view. It owns
// the diagram, the zoom scale, the interaction mode and the three layers
// (image, measurement overlay, compass drawing), and routes pointer input to
// the component the current mode allows.
package tool

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"math/rand/v2"

	xdraw "golang.org/x/image/draw"
	"gonum.org/v1/gonum/spatial/r2"

	"geosolve/internal/compass"
	"geosolve/internal/diagram"
	"geosolve/internal/frame"
	applog "geosolve/internal/log"
	"geosolve/internal/measure"
	"geosolve/internal/raster"
	"geosolve/internal/reveal"
	"geosolve/internal/solver"
	"geosolve/internal/units"
)

// Solver resolves a geometry command. *solver.Client implements it.
type Solver interface {
	Solve(ctx context.Context, command string) (*solver.Result, error)
}

// Property is re-exported for hosts that only import tool.
type Property = solver.Property

// Options tune a Tool. Zero values fall back to the package defaults.
type Options struct {
	Mapper         units.Mapper
	Range          units.Range
	DefaultScale   units.Scale
	AlphaThreshold uint8
	RevealFrames   int
	CompassEpsilon float64
	Rand           *rand.Rand

	// OnRevealComplete fires after the last reveal batch, on the tick goroutine.
	OnRevealComplete func(shape string, pixels int)
	// OnCircle fires after each committed compass circle.
	OnCircle func(compass.Circle)
}

// Outcome is the result value of Submit. Errors never escape as panics or
// partial state; the host renders Outcome inline.
type Outcome struct {
	Command    string
	Shape      string
	Properties []Property
	// Err is solver.ErrBlankCommand or a *solver.RemoteError.
	Err error
	// Notice is a non-blocking remark, e.g. an undecodable diagram.
	Notice string
	// Revealing is true when a reveal was started.
	Revealing bool
}

// Blocking reports whether the host should prompt rather than show a result.
func (o Outcome) Blocking() bool { return errors.Is(o.Err, solver.ErrBlankCommand) }

// Tool is the per-view state. Methods must be called from the goroutine that
// drives the scheduler.
type Tool struct {
	solver Solver
	sched  *frame.Scheduler
	opts   Options
	log    *slog.Logger

	scale    units.Scale
	mode     Mode
	viewport Viewport

	image *diagram.Image
	shape string
	props []Property

	imageLayer   *raster.Framebuffer
	overlayLayer *raster.Framebuffer
	drawingLayer *raster.Framebuffer

	animator *reveal.Animator
	overlay  *measure.Overlay
	compass  *compass.Simulator
}

// New builds a Tool sized for the desktop viewport.
func New(s Solver, sched *frame.Scheduler, opts Options) *Tool {
	if opts.Range == (units.Range{}) {
		opts.Range = units.Range{Min: units.MinScale, Max: units.MaxScale}
	}
	if opts.DefaultScale == 0 {
		opts.DefaultScale = units.DefaultScale
	}
	if sched == nil {
		sched = &frame.Scheduler{}
	}
	t := &Tool{
		solver:       s,
		sched:        sched,
		opts:         opts,
		log:          applog.WithComponent("tool"),
		scale:        opts.DefaultScale,
		viewport:     DesktopViewport,
		imageLayer:   raster.New(DesktopViewport.Width, DesktopViewport.Height),
		overlayLayer: raster.New(DesktopViewport.Width, DesktopViewport.Height),
		drawingLayer: raster.New(DesktopViewport.Width, DesktopViewport.Height),
	}
	t.imageLayer.Clear(raster.White)

	t.animator = reveal.NewAnimator(t.imageLayer, sched)
	t.animator.Threshold = opts.AlphaThreshold
	t.animator.Frames = opts.RevealFrames
	t.animator.Rand = opts.Rand
	t.animator.OnComplete = t.revealComplete

	t.overlay = measure.NewOverlay(t.overlayLayer, opts.Mapper)

	t.compass = compass.New(t.drawingLayer, opts.Mapper)
	t.compass.Epsilon = opts.CompassEpsilon
	t.compass.OnCommit = opts.OnCircle
	return t
}

// Submit solves command and, when a diagram comes back, starts its reveal.
// Failures leave the current diagram and measurement untouched.
func (t *Tool) Submit(ctx context.Context, command string) Outcome {
	if t.solver == nil {
		return t.Apply(command, nil, &solver.RemoteError{Message: "no solver configured"})
	}
	res, err := t.solver.Solve(ctx, command)
	return t.Apply(command, res, err)
}

// Apply installs the result of a solve performed elsewhere, for hosts that
// call the solver off the scheduler goroutine. The Tool only switches to the
// new shape when its diagram decodes; otherwise the outcome carries the
// solver's answer and a Notice while the current diagram stays in place.
func (t *Tool) Apply(command string, res *solver.Result, err error) Outcome {
	out := Outcome{Command: command}
	l := applog.WithOperation(t.log, "submit")
	if err == nil && res == nil {
		err = &solver.RemoteError{Message: "empty solver result"}
	}
	if err != nil {
		out.Err = err
		if !out.Blocking() {
			l.Info("solve failed", slog.String("command", command), slog.Any("err", err))
		}
		return out
	}

	out.Shape, out.Properties = res.Shape, res.Properties
	if res.Image == "" {
		out.Notice = "no diagram returned"
		return out
	}
	img, err := diagram.Decode(res.Image)
	if err != nil {
		l.Warn("diagram not revealed", slog.String("shape", res.Shape), slog.Any("err", err))
		out.Notice = "diagram could not be displayed"
		return out
	}

	t.shape, t.props = res.Shape, res.Properties
	t.overlay.Clear()
	t.image = img
	t.calibrate()
	t.startReveal()
	out.Revealing = true
	return out
}

// Show reveals an already decoded diagram, bypassing the solver.
func (t *Tool) Show(shape string, props []Property, img *diagram.Image) {
	t.shape, t.props = shape, props
	t.overlay.Clear()
	t.image = img
	t.calibrate()
	if img != nil {
		t.startReveal()
	}
}

// calibrate points the measurement and compass readouts at the current
// diagram's calibration, falling back to the configured one.
func (t *Tool) calibrate() {
	m := t.mapper()
	t.overlay.Mapper = m
	t.compass.Mapper = m
}

func (t *Tool) mapper() units.Mapper {
	if t.image != nil && t.image.PixelsPerUnit > 0 {
		return units.Mapper{BasePixels: t.image.PixelsPerUnit}
	}
	return t.opts.Mapper
}

func (t *Tool) startReveal() {
	t.animator.Start(t.image.Img, t.scale)
	t.overlayLayer.Resize(t.imageLayer.Width(), t.imageLayer.Height())
	t.overlay.Clear()
}

func (t *Tool) revealComplete() {
	if t.mode == ModeMeasure {
		t.overlay.Render(t.scale)
	}
	painted, _ := t.animator.Progress()
	t.log.Debug("diagram revealed", slog.String("shape", t.shape), slog.Int("pixels", painted))
	if t.opts.OnRevealComplete != nil {
		t.opts.OnRevealComplete(t.shape, painted)
	}
}

// SetScale validates and applies a zoom factor. A change drops measurement
// points and restarts the reveal of the current diagram.
func (t *Tool) SetScale(v float64) error {
	s, err := t.opts.Range.Scale(v)
	if err != nil {
		return err
	}
	if s == t.scale {
		return nil
	}
	t.scale = s
	t.overlay.Clear()
	if t.image != nil {
		t.startReveal()
	}
	t.log.Debug("scale changed", slog.String("scale", s.Percent()))
	return nil
}

// SetMode switches the interaction. Leaving measure mode clears the
// measurement; entering compass mode blanks the drawing layer and replays
// committed circles.
func (t *Tool) SetMode(m Mode) {
	if m == t.mode {
		return
	}
	prev := t.mode
	t.mode = m
	if prev == ModeMeasure {
		t.overlay.Clear()
	}
	if prev == ModeCompass {
		t.compass.Cancel(t.scale)
	}
	if m == ModeCompass {
		t.compass.Enter(t.scale)
	}
	t.log.Debug("mode changed", slog.String("from", prev.String()), slog.String("to", m.String()))
}

// Click handles a tap on the diagram. Only measure mode accepts clicks.
func (t *Tool) Click(p r2.Vec) bool {
	if t.mode != ModeMeasure || !inside(t.imageLayer, p) {
		return false
	}
	t.overlay.Click(p, t.scale)
	return true
}

// PointerDown starts a compass drag.
func (t *Tool) PointerDown(p r2.Vec) bool {
	if t.mode != ModeCompass {
		return false
	}
	return t.compass.Press(p)
}

// PointerMove updates a compass drag.
func (t *Tool) PointerMove(p r2.Vec) {
	if t.mode == ModeCompass {
		t.compass.Move(p, t.scale)
	}
}

// PointerUp finishes a compass drag.
func (t *Tool) PointerUp(p r2.Vec) (compass.Circle, bool) {
	if t.mode != ModeCompass {
		return compass.Circle{}, false
	}
	return t.compass.Release(p, t.scale)
}

// PointerLeave is handled like PointerUp so a drag cannot get stuck.
func (t *Tool) PointerLeave(p r2.Vec) (compass.Circle, bool) {
	if t.mode != ModeCompass {
		return compass.Circle{}, false
	}
	return t.compass.Leave(p, t.scale)
}

// SetRotationBias turns the compass arm dial, in degrees.
func (t *Tool) SetRotationBias(deg float64) {
	t.compass.SetRotationBias(deg)
	if _, dragging := t.compass.Draft(); dragging {
		t.compass.Render(t.scale)
	}
}

// Resize adapts the layers to a viewport width. Crossing into a different
// canvas size resets all three layers: the reveal is cancelled, the
// measurement cleared and committed circles replayed. It reports whether a
// reset happened.
func (t *Tool) Resize(viewportWidth int) bool {
	vp := ViewportFor(viewportWidth)
	if vp == t.viewport {
		return false
	}
	t.viewport = vp
	t.resetLayers()
	t.log.Debug("viewport changed", slog.String("device", vp.Device.String()),
		slog.Int("width", vp.Width), slog.Int("height", vp.Height))
	return true
}

func (t *Tool) resetLayers() {
	t.animator.Cancel()
	t.compass.Cancel(t.scale)
	w, h := t.viewport.Width, t.viewport.Height
	t.imageLayer.Resize(w, h)
	t.imageLayer.Clear(raster.White)
	t.overlayLayer.Resize(w, h)
	t.overlay.Clear()
	t.drawingLayer.Resize(w, h)
	t.compass.Render(t.scale)
}

// Clear returns the tool to its initial state: no diagram, no measurement,
// an empty circle log, view mode and blank layers.
func (t *Tool) Clear() {
	t.image = nil
	t.calibrate()
	t.shape, t.props = "", nil
	t.mode = ModeView
	t.compass.Clear()
	t.resetLayers()
}

// Tick advances the scheduler by one frame.
func (t *Tool) Tick() int { return t.sched.Tick() }

// Dragging reports whether a compass drag is in progress.
func (t *Tool) Dragging() bool { return t.compass.State() == compass.Dragging }

// Busy reports whether a reveal is in flight.
func (t *Tool) Busy() bool { return t.animator.Running() }

// Properties exposes the solved shape and its properties, the only data the
// tool hands to its host.
func (t *Tool) Properties() (string, []Property) {
	return t.shape, append([]Property(nil), t.props...)
}

func (t *Tool) Scale() units.Scale        { return t.scale }
func (t *Tool) Mode() Mode                { return t.mode }
func (t *Tool) Viewport() Viewport        { return t.viewport }
func (t *Tool) Mapper() units.Mapper      { return t.mapper() }
func (t *Tool) Diagram() *diagram.Image   { return t.image }
func (t *Tool) Circles() []compass.Circle { return t.compass.Circles() }
func (t *Tool) MeasurePoints() []r2.Vec   { return t.overlay.Points() }

// Distance is the measured distance in units at the current scale.
func (t *Tool) Distance() (float64, bool) { return t.overlay.Distance(t.mapper(), t.scale) }

// DistanceLabel is the overlay label, "" until two points exist.
func (t *Tool) DistanceLabel() string { return t.overlay.Label(t.scale) }

// Readout is the live compass radius label, "" when not dragging.
func (t *Tool) Readout() string { return t.compass.Readout(t.scale) }

// RevealProgress reports painted and total blocks of the latest reveal.
func (t *Tool) RevealProgress() (painted, total int) { return t.animator.Progress() }

func (t *Tool) ImageLayer() *raster.Framebuffer   { return t.imageLayer }
func (t *Tool) OverlayLayer() *raster.Framebuffer { return t.overlayLayer }
func (t *Tool) DrawingLayer() *raster.Framebuffer { return t.drawingLayer }

// Describe summarises the view as "key: value" lines for crash reports.
func (t *Tool) Describe() []string {
	painted, total := t.RevealProgress()
	return []string{
		"shape: " + t.shape,
		"mode: " + t.mode.String(),
		"scale: " + t.scale.Percent(),
		fmt.Sprintf("viewport: %s %dx%d", t.viewport.Device, t.viewport.Width, t.viewport.Height),
		fmt.Sprintf("reveal: %d/%d", painted, total),
		fmt.Sprintf("measure points: %d", t.overlay.Len()),
		fmt.Sprintf("circles: %d", len(t.compass.Circles())),
	}
}

// Composite flattens the visible layers onto a white canvas: the diagram,
// then the measurement overlay, then the compass layer in compass mode.
func (t *Tool) Composite() *image.RGBA {
	bounds := t.imageLayer.Bounds()
	if t.mode == ModeCompass {
		bounds = bounds.Union(t.drawingLayer.Bounds())
	}
	dst := image.NewRGBA(bounds)
	xdraw.Draw(dst, bounds, image.NewUniform(raster.White), image.Point{}, xdraw.Src)
	xdraw.Draw(dst, t.imageLayer.Bounds(), t.imageLayer.RGBA(), image.Point{}, xdraw.Over)
	xdraw.Draw(dst, t.overlayLayer.Bounds(), t.overlayLayer.RGBA(), image.Point{}, xdraw.Over)
	if t.mode == ModeCompass {
		xdraw.Draw(dst, t.drawingLayer.Bounds(), t.drawingLayer.RGBA(), image.Point{}, xdraw.Over)
	}
	return dst
}

func inside(f *raster.Framebuffer, p r2.Vec) bool {
	return p.X >= 0 && p.Y >= 0 && p.X < float64(f.Width()) && p.Y < float64(f.Height())
}
