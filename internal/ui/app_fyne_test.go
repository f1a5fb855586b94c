//go:build fyne && cgo

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// These tests validate the Fyne-based UI components. They are gated behind the
// "fyne" build tag so CI (which is headless) does not need Fyne or a display.
// To run locally:
//
//	go test -tags fyne ./internal/ui
package ui

import (
	"image"
	"image/color"
	"testing"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/test"

	"geosolve/internal/diagram"
	"geosolve/internal/frame"
	"geosolve/internal/tool"
)

func newView(t *testing.T) (*DiagramView, *tool.Tool, *frame.Scheduler) {
	t.Helper()
	test.NewTempApp(t)
	sched := &frame.Scheduler{}
	tl := tool.New(nil, sched, tool.Options{})
	return NewDiagramView(tl), tl, sched
}

func mouse(x, y float32, b desktop.MouseButton) *desktop.MouseEvent {
	return &desktop.MouseEvent{PointEvent: fyne.PointEvent{Position: fyne.NewPos(x, y)}, Button: b}
}

func TestDiagramView_MinSizeFollowsViewport(t *testing.T) {
	v, tl, _ := newView(t)
	r := test.WidgetRenderer(v)
	if got := r.MinSize(); got != fyne.NewSize(800, 500) {
		t.Fatalf("MinSize = %v", got)
	}
	tl.Resize(400)
	if got := r.MinSize(); got != fyne.NewSize(300, 280) {
		t.Fatalf("mobile MinSize = %v", got)
	}
}

func TestDiagramView_TapsMeasure(t *testing.T) {
	v, tl, sched := newView(t)
	img := image.NewRGBA(image.Rect(0, 0, 200, 200))
	for i := range img.Pix {
		img.Pix[i] = 255
	}
	tl.Show("circle", nil, &diagram.Image{Img: img, Format: "png", Width: 200, Height: 200})
	sched.Drain(1000)

	changes := 0
	v.OnChange = func() { changes++ }

	test.TapAt(v, fyne.NewPos(10, 10))
	if len(tl.MeasurePoints()) != 0 {
		t.Fatal("taps outside measure mode must be ignored")
	}
	tl.SetMode(tool.ModeMeasure)
	test.TapAt(v, fyne.NewPos(10, 10))
	test.TapAt(v, fyne.NewPos(90, 10))
	if got := tl.DistanceLabel(); got != "2.00 units" {
		t.Fatalf("distance = %q", got)
	}
	if changes != 2 {
		t.Fatalf("OnChange fired %d times, want 2", changes)
	}
}

func TestDiagramView_CompassDrag(t *testing.T) {
	v, tl, _ := newView(t)
	tl.SetMode(tool.ModeCompass)

	v.MouseDown(mouse(100, 100, desktop.MouseButtonSecondary))
	if tl.Dragging() {
		t.Fatal("secondary button must not start a drag")
	}
	v.MouseDown(mouse(100, 100, desktop.MouseButtonPrimary))
	v.MouseMoved(mouse(130, 100, desktop.MouseButtonPrimary))
	if got := tl.Readout(); got != "R: 0.75 units" {
		t.Fatalf("readout = %q", got)
	}
	v.MouseUp(mouse(150, 100, desktop.MouseButtonPrimary))
	circles := tl.Circles()
	if len(circles) != 1 || circles[0].Radius != 50 {
		t.Fatalf("circles = %+v", circles)
	}

	v.MouseDown(mouse(200, 200, desktop.MouseButtonPrimary))
	v.MouseMoved(mouse(200, 260, desktop.MouseButtonPrimary))
	v.MouseOut()
	if tl.Dragging() || len(tl.Circles()) != 2 {
		t.Fatalf("leaving should commit: dragging=%v circles=%d", tl.Dragging(), len(tl.Circles()))
	}
}

func TestDiagramView_RefreshTracksComposite(t *testing.T) {
	v, tl, sched := newView(t)
	r := test.WidgetRenderer(v).(*diagramRenderer)
	img := image.NewRGBA(image.Rect(0, 0, 120, 90))
	img.SetRGBA(0, 0, color.RGBA{A: 255})
	tl.Show("triangle", nil, &diagram.Image{Img: img, Format: "png", Width: 120, Height: 90})
	sched.Drain(1000)
	v.Refresh()
	if got := r.img.Size(); got != fyne.NewSize(120, 90) {
		t.Fatalf("image size = %v", got)
	}
}
