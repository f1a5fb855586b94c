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

package ui

import (
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"
	"gonum.org/v1/gonum/spatial/r2"

	"geosolve/internal/tool"
)

// DiagramView shows the composited layers of a tool.Tool at 1:1 and routes
// pointer input to it: taps become measurement clicks, mouse press/move/release
// drive the compass.
type DiagramView struct {
	widget.BaseWidget
	tool *tool.Tool
	last r2.Vec

	// OnChange fires after an interaction changed visible tool state.
	OnChange func()
}

var (
	_ fyne.Tappable     = (*DiagramView)(nil)
	_ desktop.Mouseable = (*DiagramView)(nil)
	_ desktop.Hoverable = (*DiagramView)(nil)
)

func NewDiagramView(t *tool.Tool) *DiagramView {
	v := &DiagramView{tool: t}
	v.ExtendBaseWidget(v)
	return v
}

func (v *DiagramView) CreateRenderer() fyne.WidgetRenderer {
	bg := canvas.NewRectangle(color.RGBA{R: 236, G: 240, B: 241, A: 255})
	img := canvas.NewImageFromImage(v.tool.Composite())
	img.FillMode = canvas.ImageFillStretch
	img.ScaleMode = canvas.ImageScalePixels
	return &diagramRenderer{v: v, bg: bg, img: img, objects: []fyne.CanvasObject{bg, img}}
}

func toVec(p fyne.Position) r2.Vec { return r2.Vec{X: float64(p.X), Y: float64(p.Y)} }

func (v *DiagramView) changed() {
	v.Refresh()
	if v.OnChange != nil {
		v.OnChange()
	}
}

func (v *DiagramView) Tapped(e *fyne.PointEvent) {
	if v.tool.Click(toVec(e.Position)) {
		v.changed()
	}
}

func (v *DiagramView) MouseDown(e *desktop.MouseEvent) {
	if e.Button != desktop.MouseButtonPrimary {
		return
	}
	v.last = toVec(e.Position)
	if v.tool.PointerDown(v.last) {
		v.changed()
	}
}

func (v *DiagramView) MouseUp(e *desktop.MouseEvent) {
	v.last = toVec(e.Position)
	if !v.tool.Dragging() {
		return
	}
	v.tool.PointerUp(v.last)
	v.changed()
}

func (v *DiagramView) MouseIn(*desktop.MouseEvent) {}

func (v *DiagramView) MouseMoved(e *desktop.MouseEvent) {
	v.last = toVec(e.Position)
	if !v.tool.Dragging() {
		return
	}
	v.tool.PointerMove(v.last)
	v.changed()
}

// MouseOut ends a drag at the last known position.
func (v *DiagramView) MouseOut() {
	if !v.tool.Dragging() {
		return
	}
	v.tool.PointerLeave(v.last)
	v.changed()
}

type diagramRenderer struct {
	v       *DiagramView
	bg      *canvas.Rectangle
	img     *canvas.Image
	objects []fyne.CanvasObject
}

func (r *diagramRenderer) Destroy()                     {}
func (r *diagramRenderer) Objects() []fyne.CanvasObject { return r.objects }

func (r *diagramRenderer) MinSize() fyne.Size {
	vp := r.v.tool.Viewport()
	return fyne.NewSize(float32(vp.Width), float32(vp.Height))
}

// Layout pins the image to the top-left at one pixel per unit so pointer
// positions map straight onto layer coordinates.
func (r *diagramRenderer) Layout(size fyne.Size) {
	r.bg.Resize(size)
	r.bg.Move(fyne.NewPos(0, 0))
	b := r.img.Image.Bounds()
	r.img.Resize(fyne.NewSize(float32(b.Dx()), float32(b.Dy())))
	r.img.Move(fyne.NewPos(0, 0))
}

func (r *diagramRenderer) Refresh() {
	r.img.Image = r.v.tool.Composite()
	r.Layout(r.v.Size())
	canvas.Refresh(r.v)
}
