/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/zalando/go-keyring"

	"geosolve/internal/config"
	"geosolve/internal/crash"
	"geosolve/internal/diagram"
	"geosolve/internal/solver"
)

type fakeSolver struct {
	mu       sync.Mutex
	commands []string
}

func (f *fakeSolver) handler(t *testing.T) http.Handler {
	img := image.NewNRGBA(image.Rect(0, 0, 200, 200))
	for i := 0; i < len(img.Pix); i += 4 {
		copy(img.Pix[i:], []byte{255, 0, 0, 255})
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode: %v", err)
	}
	dataURL := diagram.DataURL(buf.Bytes())

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Command string `json:"command"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		f.mu.Lock()
		f.commands = append(f.commands, req.Command)
		f.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		switch req.Command {
		case "circle 7":
			_, _ = w.Write([]byte(`{"shape":"circle","properties":{"radius":7,"area":153.94},"image":"` + dataURL + `"}`))
		default:
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"Unknown command"}`))
		}
	})
}

// setup isolates config, keyring and history and starts a fake solver.
func setup(t *testing.T) (*fakeSolver, string) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv(config.EnvConfigPath, filepath.Join(dir, "config.yaml"))
	t.Setenv(config.EnvHistoryDSN, filepath.Join(dir, "history.db"))
	t.Setenv(config.EnvTelemetryOptIn, "")
	t.Setenv(config.EnvLogLevel, "error")
	keyring.MockInit()
	f := &fakeSolver{}
	srv := httptest.NewServer(f.handler(t))
	t.Cleanup(srv.Close)
	return f, srv.URL
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd(&app{crash: &crash.Context{}})
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	setup(t)
	out, err := run(t, "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.HasPrefix(out, "GeoSolve ") {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestSolvePrintsProperties(t *testing.T) {
	_, url := setup(t)
	out, err := run(t, "--solver", url, "--no-history", "solve", "circle", "7")
	if err != nil {
		t.Fatalf("solve: %v", err)
	}
	for _, want := range []string{"shape: circle", "  radius: 7", "  area: 153.94"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Index(out, "radius") > strings.Index(out, "area") {
		t.Errorf("properties out of order:\n%s", out)
	}
}

func TestSolvePresetAndJSON(t *testing.T) {
	f, url := setup(t)
	out, err := run(t, "--solver", url, "--no-history", "solve", "--preset", "3", "--json")
	if err != nil {
		t.Fatalf("solve: %v", err)
	}
	if len(f.commands) != 1 || f.commands[0] != solver.Presets[2] {
		t.Fatalf("commands = %v", f.commands)
	}
	var got struct {
		Shape      string
		Properties map[string]float64
	}
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("json: %v\n%s", err, out)
	}
	if got.Shape != "circle" || got.Properties["radius"] != 7 {
		t.Fatalf("unexpected %+v", got)
	}
	if strings.Index(out, "radius") > strings.Index(out, "area") {
		t.Errorf("json properties out of order:\n%s", out)
	}
}

func TestSolveErrors(t *testing.T) {
	f, url := setup(t)
	if _, err := run(t, "--solver", url, "--no-history", "solve", "  "); !errors.Is(err, solver.ErrBlankCommand) {
		t.Fatalf("blank: got %v", err)
	}
	if len(f.commands) != 0 {
		t.Fatalf("blank command reached the solver: %v", f.commands)
	}
	_, err := run(t, "--solver", url, "--no-history", "solve", "hexagon")
	var re *solver.RemoteError
	if !errors.As(err, &re) || re.Message != "Unknown command" {
		t.Fatalf("remote: got %v", err)
	}
	if _, err := run(t, "--solver", url, "solve", "--preset", "9"); err == nil {
		t.Fatal("expected preset range error")
	}
	if _, err := run(t, "--solver", url, "solve", "--preset", "1", "circle"); err == nil {
		t.Fatal("expected error combining preset and command")
	}
}

func TestHistoryRecordsSolves(t *testing.T) {
	_, url := setup(t)
	if _, err := run(t, "--solver", url, "solve", "circle", "7"); err != nil {
		t.Fatalf("solve: %v", err)
	}
	_, _ = run(t, "--solver", url, "solve", "hexagon")

	out, err := run(t, "history")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 3 {
		t.Fatalf("want header and two entries, got:\n%s", out)
	}
	if !strings.Contains(lines[1], "hexagon") || !strings.Contains(lines[1], "error: Unknown command") {
		t.Errorf("newest entry first: %q", lines[1])
	}
	if !strings.Contains(lines[2], "circle 7") || !strings.Contains(lines[2], "circle") {
		t.Errorf("second entry: %q", lines[2])
	}

	if _, err := run(t, "--no-history", "history"); err == nil {
		t.Fatal("expected error when history is disabled")
	}
}

func TestRenderMeasureWritesPNGAndPDF(t *testing.T) {
	_, url := setup(t)
	dir := t.TempDir()
	pngPath := filepath.Join(dir, "out", "circle.png")
	pdfPath := filepath.Join(dir, "out", "circle.pdf")
	out, err := run(t, "--solver", url, "--no-history", "render", "circle", "7",
		"--measure", "100,100,180,100", "--out", pngPath, "--pdf", pdfPath)
	if err != nil {
		t.Fatalf("render: %v\n%s", err, out)
	}
	for _, want := range []string{"revealed 40000 pixels", "distance: 2.00 units", "wrote " + pngPath, "wrote " + pdfPath} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	img := readPNG(t, pngPath)
	if img.Bounds() != image.Rect(0, 0, 200, 200) {
		t.Fatalf("png bounds = %v", img.Bounds())
	}
	if r, g, b, _ := img.At(10, 190).RGBA(); r>>8 != 255 || g != 0 || b != 0 {
		t.Fatalf("diagram pixel not red: %d %d %d", r>>8, g>>8, b>>8)
	}
	if b, err := os.ReadFile(pdfPath); err != nil || !bytes.HasPrefix(b, []byte("%PDF")) {
		t.Fatalf("pdf not written: %v", err)
	}
}

func TestRenderCompass(t *testing.T) {
	_, url := setup(t)
	pngPath := filepath.Join(t.TempDir(), "compass.png")
	out, err := run(t, "--solver", url, "--no-history", "render", "--preset", "3",
		"--compass", "100,100,150,100", "--compass", "300,300,300.1,300", "--out", pngPath)
	if err != nil {
		t.Fatalf("render: %v\n%s", err, out)
	}
	if !strings.Contains(out, "compass: center (100,100) R 1.25 units") {
		t.Errorf("missing committed circle:\n%s", out)
	}
	if !strings.Contains(out, "compass: drag from (300,300) discarded") {
		t.Errorf("missing discarded drag:\n%s", out)
	}
	img := readPNG(t, pngPath)
	if img.Bounds() != image.Rect(0, 0, 800, 500) {
		t.Fatalf("compass view should cover the drawing layer, got %v", img.Bounds())
	}
	want := color.RGBAModel.Convert(img.At(100, 100)).(color.RGBA)
	if want == (color.RGBA{R: 255, A: 255}) {
		t.Fatalf("center dot missing at (100,100)")
	}
}

func TestRenderExportPresets(t *testing.T) {
	_, url := setup(t)
	dir := filepath.Join(t.TempDir(), "bundle")
	out, err := run(t, "--solver", url, "--no-history", "render", "circle", "7", "--export", "print", "--out-dir", dir)
	if err != nil {
		t.Fatalf("render: %v\n%s", err, out)
	}
	pdfPath := filepath.Join(dir, "circle.pdf")
	pngPath := filepath.Join(dir, "circle.png")
	for _, want := range []string{"wrote " + pdfPath, "wrote " + pngPath} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if b, err := os.ReadFile(pdfPath); err != nil || !bytes.HasPrefix(b, []byte("%PDF")) {
		t.Fatalf("pdf not written: %v", err)
	}
	if img := readPNG(t, pngPath); img.Bounds() != image.Rect(0, 0, 400, 400) {
		t.Fatalf("print png should be doubled, got %v", img.Bounds())
	}

	out, err = run(t, "--solver", url, "--no-history", "render", "circle", "7", "--export", "web", "--out-dir", dir)
	if err != nil {
		t.Fatalf("render web: %v\n%s", err, out)
	}
	if strings.Contains(out, ".pdf") || !strings.Contains(out, "wrote "+pngPath) {
		t.Errorf("web preset writes only the png:\n%s", out)
	}
	if img := readPNG(t, pngPath); img.Bounds() != image.Rect(0, 0, 200, 200) {
		t.Fatalf("web png bounds = %v", img.Bounds())
	}
}

func TestRenderArgumentErrors(t *testing.T) {
	_, url := setup(t)
	cases := [][]string{
		{"render", "circle", "7"},
		{"render", "circle", "7", "--out", "x.png", "--measure", "1,2,3"},
		{"render", "circle", "7", "--out", "x.png", "--compass", "a,b,c,d"},
		{"render", "circle", "7", "--out", "x.png", "--mode", "zoom"},
		{"render", "circle", "7", "--out", "x.png", "--scale", "5"},
		{"render", "circle", "7", "--export", "poster"},
		{"render", "circle", "7", "--export", "web", "--format", "svg", "--out-dir", t.TempDir()},
	}
	for _, args := range cases {
		if _, err := run(t, append([]string{"--solver", url, "--no-history"}, args...)...); err == nil {
			t.Errorf("expected error for %v", args)
		}
	}
}

func TestParseSegment(t *testing.T) {
	seg, ok, err := parseSegment(" 1, 2.5 ,3,4 ")
	if err != nil || !ok {
		t.Fatalf("parse: ok=%v err=%v", ok, err)
	}
	if seg[0].X != 1 || seg[0].Y != 2.5 || seg[1].X != 3 || seg[1].Y != 4 {
		t.Fatalf("seg = %v", seg)
	}
	if _, ok, err := parseSegment(""); ok || err != nil {
		t.Fatalf("empty: ok=%v err=%v", ok, err)
	}
}

func readPNG(t *testing.T, path string) image.Image {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	return img
}
