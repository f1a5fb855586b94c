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
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"geosolve/internal/frame"
	"geosolve/internal/raster"
	"geosolve/internal/raster/rastertest"
	"geosolve/internal/units"
)

var (
	red  = color.NRGBA{R: 255, A: 255}
	blue = color.NRGBA{B: 255, A: 255}
)

// fill returns a w x h image with rect painted in c, everything else transparent.
func fill(w, h int, rect image.Rectangle, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		for x := rect.Min.X; x < rect.Max.X; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func countColor(f *raster.Framebuffer, c color.RGBA) int {
	n := 0
	for y := 0; y < f.Height(); y++ {
		for x := 0; x < f.Width(); x++ {
			if f.At(x, y) == c {
				n++
			}
		}
	}
	return n
}

func TestExtractOpaqueThreshold(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 3, 1))
	img.SetNRGBA(0, 0, color.NRGBA{R: 10, A: 128})
	img.SetNRGBA(1, 0, color.NRGBA{G: 20, A: 129})
	img.SetNRGBA(2, 0, color.NRGBA{})

	px := ExtractOpaque(img, DefaultThreshold)
	require.Len(t, px, 1)
	assert.Equal(t, Pixel{X: 1, Y: 0, Color: color.RGBA{G: 20, A: 255}}, px[0])
}

func TestExtractOpaqueOffsetBounds(t *testing.T) {
	img := image.NewRGBA(image.Rect(5, 5, 7, 7))
	img.SetRGBA(6, 6, color.RGBA{B: 255, A: 255})
	px := ExtractOpaque(img, DefaultThreshold)
	require.Len(t, px, 1)
	assert.Equal(t, 1, px[0].X)
	assert.Equal(t, 1, px[0].Y)
	assert.Nil(t, ExtractOpaque(nil, 0))
}

func TestPermuteIsAPermutation(t *testing.T) {
	in := []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}
	out := Permute(in, rand.New(rand.NewPCG(1, 2)))
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, in, "input must not be reordered")
	sorted := slices.Clone(out)
	slices.Sort(sorted)
	assert.Equal(t, in, sorted)
}

func TestPermuteDeterministicForSeed(t *testing.T) {
	in := []int{1, 2, 3, 4, 5, 6, 7, 8}
	a := Permute(in, rand.New(rand.NewPCG(7, 7)))
	b := Permute(in, rand.New(rand.NewPCG(7, 7)))
	assert.Equal(t, a, b)
	assert.Empty(t, Permute([]int{}, nil))
}

func TestBatchSize(t *testing.T) {
	cases := []struct{ total, frames, want int }{
		{0, 30, 1},
		{10, 30, 1},
		{30, 30, 1},
		{61, 30, 2},
		{3000, 30, 100},
		{100, 0, 3},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, BatchSize(c.total, c.frames), "total=%d frames=%d", c.total, c.frames)
	}
}

func TestRevealPaintsEveryOpaquePixel(t *testing.T) {
	img := fill(40, 20, image.Rect(5, 5, 25, 15), red)
	surf := raster.New(1, 1)
	var sched frame.Scheduler
	a := NewAnimator(surf, &sched)
	a.Rand = rand.New(rand.NewPCG(3, 4))
	completed := 0
	a.OnComplete = func() { completed++ }

	a.Start(img, units.DefaultScale)
	assert.True(t, a.Running())
	ticks := sched.Drain(1000)

	painted, total := a.Progress()
	assert.Equal(t, 200, total)
	assert.Equal(t, total, painted)
	assert.Equal(t, 200, countColor(surf, color.RGBA{R: 255, A: 255}))
	assert.Equal(t, 1, completed)
	assert.False(t, a.Running())
	batch := BatchSize(total, DefaultFrames)
	assert.Equal(t, (total+batch-1)/batch, ticks)
	assert.Equal(t, 40, surf.Width())
}

func TestRevealScalesBlocks(t *testing.T) {
	img := fill(10, 10, image.Rect(0, 0, 2, 2), red)
	surf := raster.New(1, 1)
	var sched frame.Scheduler
	a := NewAnimator(surf, &sched)
	scale, err := units.NewScale(2)
	require.NoError(t, err)

	a.Start(img, scale)
	sched.Drain(100)

	assert.Equal(t, 20, surf.Width())
	assert.Equal(t, 16, countColor(surf, color.RGBA{R: 255, A: 255}))
}

func TestRevealRestartLeavesOnlyNewImage(t *testing.T) {
	imgA := fill(50, 50, image.Rect(0, 0, 50, 25), red)
	imgB := fill(50, 50, image.Rect(0, 25, 50, 50), blue)
	surf := raster.New(1, 1)
	var sched frame.Scheduler
	a := NewAnimator(surf, &sched)
	var done []string
	a.OnComplete = func() { done = append(done, "complete") }

	a.Start(imgA, units.DefaultScale)
	sched.Tick()
	sched.Tick()
	require.Positive(t, countColor(surf, color.RGBA{R: 255, A: 255}), "A should be partly painted")

	a.Start(imgB, units.DefaultScale)
	sched.Drain(1000)

	assert.Zero(t, countColor(surf, color.RGBA{R: 255, A: 255}), "no pixel of A may survive")
	assert.Equal(t, 1250, countColor(surf, color.RGBA{B: 255, A: 255}))
	assert.Equal(t, []string{"complete"}, done, "only B completes")
}

func TestRevealEmptyImageCompletes(t *testing.T) {
	surf := raster.New(1, 1)
	var sched frame.Scheduler
	a := NewAnimator(surf, &sched)
	completed := false
	a.OnComplete = func() { completed = true }
	a.Start(image.NewNRGBA(image.Rect(0, 0, 4, 4)), units.DefaultScale)
	sched.Drain(5)
	assert.True(t, completed)
	assert.Zero(t, rastertest.CountDiffering(surf, raster.White))
}

func TestCancelKeepsPaintedBlocks(t *testing.T) {
	img := fill(30, 30, image.Rect(0, 0, 30, 30), red)
	surf := raster.New(1, 1)
	var sched frame.Scheduler
	a := NewAnimator(surf, &sched)
	a.Start(img, units.DefaultScale)
	sched.Tick()
	a.Cancel()
	sched.Drain(100)
	painted, total := a.Progress()
	assert.Equal(t, BatchSize(total, DefaultFrames), painted)
	assert.True(t, sched.Idle())
}
