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
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/spatial/r2"

	"geosolve/internal/export"
	"geosolve/internal/frame"
	"geosolve/internal/tool"
	"geosolve/internal/units"
)

type renderFlags struct {
	preset   int
	scale    float64
	width    int
	rotation float64
	measure  string
	compass  []string
	mode     string
	out      string
	pdf      string
	maxWidth int
	exportAs string
	outDir   string
	formats  []string
}

func newRenderCmd(a *app) *cobra.Command {
	var f renderFlags
	cmd := &cobra.Command{
		Use:   "render [command...]",
		Short: "Solve, reveal and export the diagram without a window",
		Long: `render drives a whole session headless: the command is solved, the
diagram revealed to completion, optional measurement clicks and compass drags
are applied, and the composited view is written as PNG and/or PDF. --export
writes the web (PNG up to 800 px wide) or print (PDF and 2x PNG) bundle
named after the shape into --out-dir.`,
		Example: `  geosolve render circle 7 --measure 100,100,180,100 --out circle.png
  geosolve render --preset 1 --compass 150,150,190,150 --pdf triangle.pdf
  geosolve render circle 7 --export print --out-dir worksheets`,
		RunE: func(cmd *cobra.Command, args []string) error {
			command, err := commandFrom(args, f.preset)
			if err != nil {
				return err
			}
			if f.out == "" && f.pdf == "" && f.exportAs == "" {
				return fmt.Errorf("nothing to write: pass --out, --pdf or --export")
			}
			return a.render(cmd, command, f)
		},
	}
	fl := cmd.Flags()
	fl.IntVar(&f.preset, "preset", 0, "use preset command 1-3 instead of arguments")
	fl.Float64Var(&f.scale, "scale", 0, "diagram scale factor (default from config)")
	fl.IntVar(&f.width, "width", 0, "viewport width in pixels, selects the device layout")
	fl.Float64Var(&f.rotation, "rotation", 0, "compass arm rotation in degrees")
	fl.StringVar(&f.measure, "measure", "", "measure between two points: x1,y1,x2,y2")
	fl.StringArrayVar(&f.compass, "compass", nil, "draw a compass circle: cx,cy,px,py (repeatable)")
	fl.StringVar(&f.mode, "mode", "", "final mode for the exported view: view, measure or compass")
	fl.StringVarP(&f.out, "out", "o", "", "PNG output path")
	fl.StringVar(&f.pdf, "pdf", "", "PDF worksheet output path")
	fl.IntVar(&f.maxWidth, "max-width", 0, "shrink the PNG to at most this width")
	fl.StringVar(&f.exportAs, "export", "", "export preset: web or print")
	fl.StringVar(&f.outDir, "out-dir", ".", "directory for --export files")
	fl.StringSliceVar(&f.formats, "format", nil, "formats for --export (png, pdf); default from the preset")
	return cmd
}

func (a *app) render(cmd *cobra.Command, command string, f renderFlags) error {
	w := cmd.OutOrStdout()
	ctx := cmd.Context()
	a.crash.Command = command

	measure, hasMeasure, err := parseSegment(f.measure)
	if err != nil {
		return fmt.Errorf("--measure: %w", err)
	}
	var drags [][2]r2.Vec
	for _, s := range f.compass {
		d, _, err := parseSegment(s)
		if err != nil {
			return fmt.Errorf("--compass: %w", err)
		}
		drags = append(drags, d)
	}
	final, err := tool.ParseMode(f.mode)
	if err != nil {
		return err
	}
	var preset export.PresetName
	if f.exportAs != "" {
		if preset, err = export.ParsePreset(f.exportAs); err != nil {
			return err
		}
	}
	if f.mode == "" {
		switch {
		case len(drags) > 0:
			final = tool.ModeCompass
		case hasMeasure:
			final = tool.ModeMeasure
		}
	}

	store := a.openHistory(ctx)
	defer store.Close()

	sched := &frame.Scheduler{}
	tl := tool.New(a.client(), sched, tool.OptionsFrom(a.cfg.Diagram))
	a.crash.State = tl.Describe
	if f.width > 0 {
		tl.Resize(f.width)
	}
	if f.scale != 0 {
		if err := tl.SetScale(f.scale); err != nil {
			return err
		}
	}
	tl.SetRotationBias(f.rotation)

	start := time.Now()
	out := tl.Submit(ctx, command)
	a.record(ctx, store, out, time.Since(start))
	if out.Err != nil {
		return out.Err
	}
	ticks := sched.Drain(math.MaxInt32)
	printProperties(w, out.Shape, out.Properties)
	if out.Notice != "" {
		fmt.Fprintln(w, "note:", out.Notice)
	} else {
		painted, _ := tl.RevealProgress()
		fmt.Fprintf(w, "revealed %d pixels in %d frames at %s\n", painted, ticks, tl.Scale().Percent())
	}

	if hasMeasure {
		tl.SetMode(tool.ModeMeasure)
		if !tl.Click(measure[0]) || !tl.Click(measure[1]) {
			return fmt.Errorf("--measure: points must lie on the diagram")
		}
		fmt.Fprintln(w, "distance:", tl.DistanceLabel())
	}
	if len(drags) > 0 {
		tl.SetMode(tool.ModeCompass)
		for _, d := range drags {
			tl.PointerDown(d[0])
			tl.PointerMove(d[1])
			c, ok := tl.PointerUp(d[1])
			if !ok {
				fmt.Fprintf(w, "compass: drag from %s discarded\n", fmtVec(d[0]))
				continue
			}
			r := tl.Mapper().ToUnits(c.Radius, tl.Scale())
			fmt.Fprintf(w, "compass: center %s R %s\n", fmtVec(c.Center), units.Format(r))
		}
	}
	tl.SetMode(final)

	sheet := export.SheetFrom(tl, command)
	if f.out != "" {
		if err := export.ExportPNG(f.out, sheet.Diagram, export.PNGOptions{MaxWidth: f.maxWidth}); err != nil {
			return err
		}
		fmt.Fprintln(w, "wrote", f.out)
	}
	if f.pdf != "" {
		if err := export.ExportPDF(sheet, f.pdf, export.PDFOptions{IncludeGuides: true}); err != nil {
			return err
		}
		fmt.Fprintln(w, "wrote", f.pdf)
	}
	if preset != "" {
		paths, err := export.BatchExport(sheet, export.BatchOptions{Preset: preset, Formats: f.formats, OutDir: f.outDir})
		for _, p := range paths {
			fmt.Fprintln(w, "wrote", p)
		}
		if err != nil {
			return fmt.Errorf("export %s: %w", preset, err)
		}
	}
	return nil
}

// parseSegment reads "x1,y1,x2,y2". An empty string is not an error.
func parseSegment(s string) ([2]r2.Vec, bool, error) {
	var seg [2]r2.Vec
	s = strings.TrimSpace(s)
	if s == "" {
		return seg, false, nil
	}
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return seg, false, fmt.Errorf("want x1,y1,x2,y2, got %q", s)
	}
	var v [4]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return seg, false, fmt.Errorf("coordinate %d: %w", i+1, err)
		}
		v[i] = f
	}
	seg[0] = r2.Vec{X: v[0], Y: v[1]}
	seg[1] = r2.Vec{X: v[2], Y: v[3]}
	return seg, true, nil
}

func fmtVec(p r2.Vec) string { return fmt.Sprintf("(%g,%g)", p.X, p.Y) }
