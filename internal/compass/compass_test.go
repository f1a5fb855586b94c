/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package compass

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r2"

	"geosolve/internal/raster"
	"geosolve/internal/raster/rastertest"
	"geosolve/internal/units"
)

func v(x, y float64) r2.Vec { return r2.Vec{X: x, Y: y} }

func newSim() (*Simulator, *raster.Framebuffer) {
	surf := raster.New(800, 500)
	return New(surf, units.Default), surf
}

func TestDragCommitsCircle(t *testing.T) {
	s, _ := newSim()
	var seen []Circle
	s.OnCommit = func(c Circle) { seen = append(seen, c) }

	require.True(t, s.Press(v(100, 100)))
	assert.Equal(t, Dragging, s.State())
	s.Move(v(130, 100), units.DefaultScale)
	s.Move(v(150, 100), units.DefaultScale)
	assert.Equal(t, "R: 1.25 units", s.Readout(units.DefaultScale))

	c, ok := s.Release(v(150, 100), units.DefaultScale)
	require.True(t, ok)
	assert.Equal(t, Circle{Center: v(100, 100), Radius: 50}, c)
	assert.Equal(t, []Circle{c}, s.Circles())
	assert.Equal(t, []Circle{c}, seen)
	assert.Equal(t, Idle, s.State())
	assert.Empty(t, s.Readout(units.DefaultScale))
}

func TestRadiusUsesReleasePosition(t *testing.T) {
	s, _ := newSim()
	s.Press(v(10, 10))
	s.Move(v(500, 10), units.DefaultScale)
	c, ok := s.Release(v(13, 14), units.DefaultScale)
	require.True(t, ok)
	assert.InDelta(t, 5, c.Radius, 1e-9)
}

func TestLogGrowsByOnePerDrag(t *testing.T) {
	s, _ := newSim()
	for i := 1; i <= 4; i++ {
		s.Press(v(200, 200))
		s.Release(v(200+float64(10*i), 200), units.DefaultScale)
		assert.Len(t, s.Circles(), i)
	}
}

func TestDegenerateReleaseDiscarded(t *testing.T) {
	s, surf := newSim()
	s.Press(v(50, 50))
	c, ok := s.Release(v(50.2, 50), units.DefaultScale)
	assert.False(t, ok)
	assert.InDelta(t, 0.2, c.Radius, 1e-9)
	assert.Empty(t, s.Circles())
	assert.Zero(t, rastertest.CountDiffering(surf, raster.Transparent))
}

func TestLeaveActsAsRelease(t *testing.T) {
	s, _ := newSim()
	s.Press(v(100, 100))
	s.Move(v(120, 100), units.DefaultScale)
	_, ok := s.Leave(v(140, 100), units.DefaultScale)
	require.True(t, ok)
	assert.Equal(t, Idle, s.State())
	assert.InDelta(t, 40, s.Circles()[0].Radius, 1e-9)
}

func TestIgnoredEvents(t *testing.T) {
	s, surf := newSim()
	s.Move(v(10, 10), units.DefaultScale)
	_, ok := s.Release(v(10, 10), units.DefaultScale)
	assert.False(t, ok, "release without press")
	assert.False(t, s.Press(v(-1, 10)), "press outside surface")
	assert.False(t, s.Press(v(800, 10)), "press on the far edge")
	assert.Zero(t, rastertest.CountDiffering(surf, raster.Transparent))

	require.True(t, s.Press(v(10, 10)))
	assert.False(t, s.Press(v(20, 20)), "second press during drag")
	d, ok := s.Draft()
	require.True(t, ok)
	assert.Equal(t, v(10, 10), d.Center)
}

func TestRotationBiasDoesNotChangeRadius(t *testing.T) {
	s, _ := newSim()
	s.SetRotationBias(90)
	s.Press(v(100, 100))
	s.Move(v(150, 100), units.DefaultScale)

	tip := s.ArmTip()
	assert.InDelta(t, 100, tip.X, 1e-9)
	assert.InDelta(t, 150, tip.Y, 1e-9)
	assert.Equal(t, "R: 1.25 units", s.Readout(units.DefaultScale))

	c, _ := s.Release(v(150, 100), units.DefaultScale)
	assert.InDelta(t, 50, c.Radius, 1e-9)
}

func TestSetRotationBiasNormalizes(t *testing.T) {
	s, _ := newSim()
	cases := []struct{ in, want float64 }{
		{0, 0}, {45, 45}, {360, 0}, {370, 10}, {-90, 270}, {720.5, 0.5},
	}
	for _, c := range cases {
		s.SetRotationBias(c.in)
		assert.InDelta(t, c.want, s.RotationBias(), 1e-9, "in=%v", c.in)
	}
	s.SetRotationBias(math.NaN())
	assert.InDelta(t, 0.5, s.RotationBias(), 1e-9, "NaN is ignored")
}

func TestReadoutFollowsScale(t *testing.T) {
	s, _ := newSim()
	s.Press(v(0, 0))
	s.Move(v(80, 0), units.DefaultScale)
	assert.Equal(t, "R: 2.00 units", s.Readout(units.DefaultScale))
	assert.Equal(t, "R: 1.00 units", s.Readout(units.MaxScale))
}

func TestRenderReplaysCommittedCircles(t *testing.T) {
	s, surf := newSim()
	s.Press(v(200, 200))
	s.Release(v(260, 200), units.DefaultScale)

	surf.Clear(raster.Transparent)
	s.Enter(units.DefaultScale)
	assert.NotZero(t, surf.At(260, 200).A, "circle outline replayed")
	assert.Equal(t, CommittedCenter, surf.At(200, 200), "center dot replayed")
}

func TestDraggingDrawsLiveLayer(t *testing.T) {
	s, surf := newSim()
	s.Press(v(300, 300))
	s.Move(v(350, 300), units.DefaultScale)
	assert.Equal(t, LiveCenter, surf.At(300, 296))
	assert.Equal(t, TipFill, surf.At(350, 300))
	assert.Positive(t, countInk(surf, 0, 0, 120, 30), "readout drawn")
}

func TestClearIsIdempotent(t *testing.T) {
	s, surf := newSim()
	s.Press(v(100, 100))
	s.Release(v(140, 100), units.DefaultScale)
	s.Press(v(300, 300))
	s.Move(v(310, 300), units.DefaultScale)

	for i := 0; i < 2; i++ {
		s.Clear()
		assert.Empty(t, s.Circles())
		assert.Equal(t, Idle, s.State())
		assert.Zero(t, rastertest.CountDiffering(surf, raster.Transparent))
	}
}

func TestCancelDropsDraft(t *testing.T) {
	s, surf := newSim()
	s.Press(v(100, 100))
	s.Move(v(140, 100), units.DefaultScale)
	s.Cancel(units.DefaultScale)
	assert.Equal(t, Idle, s.State())
	assert.Empty(t, s.Circles())
	assert.Zero(t, rastertest.CountDiffering(surf, raster.Transparent))
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "idle", Idle.String())
	assert.Equal(t, "dragging", Dragging.String())
	assert.Equal(t, "State(9)", State(9).String())
}

func countInk(f *raster.Framebuffer, x0, y0, x1, y1 int) int {
	n := 0
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			if f.At(x, y).A != 0 {
				n++
			}
		}
	}
	return n
}
