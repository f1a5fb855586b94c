/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package export

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gonum.org/v1/gonum/spatial/r2"

	"geosolve/internal/diagram"
	"geosolve/internal/frame"
	"geosolve/internal/solver"
	"geosolve/internal/tool"
)

func solidImage(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func sampleSheet() Sheet {
	return Sheet{
		Title:   "Test worksheet",
		Command: "triangle 3 4 5",
		Shape:   "triangle",
		Properties: []solver.Property{
			{Name: "sides", Value: []any{3.0, 4.0, 5.0}},
			{Name: "area", Value: 6.0},
		},
		Scale:   1,
		Notes:   []string{"Measured: 2.00 units"},
		Diagram: solidImage(120, 80, color.RGBA{R: 200, A: 255}),
	}
}

func decodeSize(t *testing.T, path string) image.Point {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	cfg, err := png.DecodeConfig(f)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	return image.Pt(cfg.Width, cfg.Height)
}

func TestEncodePNG_Sizes(t *testing.T) {
	img := solidImage(200, 100, color.RGBA{G: 255, A: 255})
	cases := []struct {
		name string
		opt  PNGOptions
		want image.Point
	}{
		{"native", PNGOptions{}, image.Pt(200, 100)},
		{"double", PNGOptions{Scale: 2}, image.Pt(400, 200)},
		{"max width", PNGOptions{MaxWidth: 50}, image.Pt(50, 25)},
		{"max width above size", PNGOptions{MaxWidth: 1000}, image.Pt(200, 100)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := EncodePNG(&buf, img, tc.opt); err != nil {
				t.Fatalf("encode: %v", err)
			}
			out, err := png.Decode(&buf)
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if got := out.Bounds().Size(); got != tc.want {
				t.Fatalf("size = %v, want %v", got, tc.want)
			}
			r, g, _, _ := out.At(out.Bounds().Dx()/2, out.Bounds().Dy()/2).RGBA()
			if r>>8 != 0 || g>>8 != 255 {
				t.Fatalf("center color changed: r=%d g=%d", r, g)
			}
		})
	}
}

func TestEncodePNG_NilImage(t *testing.T) {
	if err := EncodePNG(&bytes.Buffer{}, nil, PNGOptions{}); err == nil {
		t.Fatal("expected error for nil image")
	}
}

func TestExportPNG_CreatesParents(t *testing.T) {
	out := filepath.Join(t.TempDir(), "a", "b", "d.png")
	if err := ExportPNG(out, solidImage(10, 10, color.RGBA{A: 255}), PNGOptions{}); err != nil {
		t.Fatalf("export: %v", err)
	}
	if got := decodeSize(t, out); got != image.Pt(10, 10) {
		t.Fatalf("size = %v", got)
	}
}

func TestExportPDF_CreatesFile(t *testing.T) {
	out := filepath.Join(t.TempDir(), "sheet.pdf")
	if err := ExportPDF(sampleSheet(), out, PDFOptions{IncludeGuides: true, Author: "tests"}); err != nil {
		t.Fatalf("export: %v", err)
	}
	b, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !bytes.HasPrefix(b, []byte("%PDF")) {
		t.Fatalf("not a pdf: %q", b[:min(8, len(b))])
	}
}

func TestExportPDF_WithoutDiagramOrProperties(t *testing.T) {
	out := filepath.Join(t.TempDir(), "empty.pdf")
	if err := ExportPDF(Sheet{}, out, PDFOptions{}); err != nil {
		t.Fatalf("export: %v", err)
	}
	if fi, err := os.Stat(out); err != nil || fi.Size() == 0 {
		t.Fatalf("missing output: %v", err)
	}
}

func TestFitBox(t *testing.T) {
	w, h := fitBox(1000, 500, 500, 400)
	if w != 500 || h != 250 {
		t.Fatalf("wide: %v x %v", w, h)
	}
	w, h = fitBox(100, 800, 500, 400)
	if w != 50 || h != 400 {
		t.Fatalf("tall: %v x %v", w, h)
	}
	w, h = fitBox(100, 50, 500, 400)
	if w != 100 || h != 50 {
		t.Fatalf("small images are not enlarged: %v x %v", w, h)
	}
}

func TestPropertyTitle(t *testing.T) {
	for in, want := range map[string]string{"area": "Area", "side_lengths": "Side lengths", "": ""} {
		if got := propertyTitle(in); got != want {
			t.Errorf("propertyTitle(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestBatchExport_Presets(t *testing.T) {
	dir := t.TempDir()
	s := sampleSheet()

	paths, err := BatchExport(s, BatchOptions{Preset: PresetWeb, OutDir: filepath.Join(dir, "web")})
	if err != nil {
		t.Fatalf("web: %v", err)
	}
	if len(paths) != 1 || filepath.Base(paths[0]) != "triangle.png" {
		t.Fatalf("web paths = %v", paths)
	}

	paths, err = BatchExport(s, BatchOptions{Preset: PresetPrint, OutDir: filepath.Join(dir, "print"), Base: "sheet"})
	if err != nil {
		t.Fatalf("print: %v", err)
	}
	if len(paths) != 2 {
		t.Fatalf("print paths = %v", paths)
	}
	if got := decodeSize(t, filepath.Join(dir, "print", "sheet.png")); got != image.Pt(240, 160) {
		t.Fatalf("print png size = %v", got)
	}
	if _, err := os.Stat(filepath.Join(dir, "print", "sheet.pdf")); err != nil {
		t.Fatalf("print pdf: %v", err)
	}
}

func TestParsePreset(t *testing.T) {
	for in, want := range map[string]PresetName{"web": PresetWeb, " Print ": PresetPrint} {
		got, err := ParsePreset(in)
		if err != nil || got != want {
			t.Errorf("ParsePreset(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParsePreset("poster"); err == nil {
		t.Fatal("expected error for unknown preset")
	}
}

func TestBatchExport_Errors(t *testing.T) {
	dir := t.TempDir()
	if _, err := BatchExport(sampleSheet(), BatchOptions{Formats: []string{"svg"}, OutDir: dir}); err == nil || !strings.Contains(err.Error(), "unknown format") {
		t.Fatalf("expected unknown format error, got %v", err)
	}
	if _, err := BatchExport(Sheet{}, BatchOptions{Formats: []string{"png"}, OutDir: dir}); err == nil {
		t.Fatal("expected error exporting png without a diagram")
	}
}

func TestSheetFrom_Tool(t *testing.T) {
	sched := &frame.Scheduler{}
	tl := tool.New(nil, sched, tool.Options{})
	props := []solver.Property{{Name: "radius", Value: 7.0}}
	img := solidImage(200, 200, color.RGBA{B: 255, A: 255})
	tl.Show("circle", props, &diagram.Image{Img: img, Format: "png", Width: 200, Height: 200})
	sched.Drain(1000)

	tl.SetMode(tool.ModeMeasure)
	tl.Click(r2.Vec{X: 10, Y: 10})
	tl.Click(r2.Vec{X: 90, Y: 10})
	s := SheetFrom(tl, "circle 7")
	if s.Shape != "circle" || len(s.Properties) != 1 || s.Command != "circle 7" {
		t.Fatalf("unexpected sheet: %+v", s)
	}
	if len(s.Notes) != 1 || s.Notes[0] != "Measured: 2.00 units" {
		t.Fatalf("notes = %v", s.Notes)
	}
	if s.Diagram.Bounds().Dx() != 200 {
		t.Fatalf("diagram width = %d", s.Diagram.Bounds().Dx())
	}

	tl.SetMode(tool.ModeCompass)
	tl.PointerDown(r2.Vec{X: 100, Y: 100})
	tl.PointerUp(r2.Vec{X: 150, Y: 100})
	s = SheetFrom(tl, "circle 7")
	if len(s.Notes) != 1 || s.Notes[0] != "Last compass circle: R 1.25 units" {
		t.Fatalf("notes = %v", s.Notes)
	}
}
