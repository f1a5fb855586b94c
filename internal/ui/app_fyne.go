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
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"geosolve/internal/compass"
	"geosolve/internal/crash"
	"geosolve/internal/export"
	"geosolve/internal/frame"
	"geosolve/internal/history"
	applog "geosolve/internal/log"
	"geosolve/internal/solver"
	"geosolve/internal/telemetry"
	"geosolve/internal/tool"
	"geosolve/internal/version"
)

// Run opens the GeoSolve window and blocks until it is closed.
func Run(opts Options) error {
	l := applog.WithComponent("ui")
	l.Info("starting UI", slog.String("version", version.String()))

	cfg := opts.Config
	lastCommand := strings.TrimSpace(opts.Command)
	cc := &crash.Context{Command: lastCommand}
	defer crash.Recover(cc)

	client := solver.NewClient(cfg.Solver.BaseURL, opts.Token)
	client.SetTimeout(cfg.Solver.Timeout())
	client.SetInsecureTLS(cfg.Solver.TLSInsecure)

	fyneApp := app.NewWithID("geosolve")
	applyTheme(fyneApp, cfg.General.Theme)
	w := fyneApp.NewWindow("GeoSolve")
	prefs := fyneApp.Preferences()
	winW := max(prefs.IntWithFallback("window.width", 1180), 360)
	winH := max(prefs.IntWithFallback("window.height", 720), 480)
	w.Resize(fyne.NewSize(float32(winW), float32(winH)))

	status := widget.NewLabel("Ready")
	readout := widget.NewLabel("")
	shapeLabel := widget.NewLabelWithStyle("", fyne.TextAlignLeading, fyne.TextStyle{Bold: true})
	propsBox := container.NewVBox()

	sched := &frame.Scheduler{}
	var tl *tool.Tool
	topts := tool.OptionsFrom(cfg.Diagram)
	topts.OnRevealComplete = func(shape string, pixels int) {
		telemetry.Default().RevealComplete(shape, pixels, tl.Scale().Float())
		status.SetText(fmt.Sprintf("%s drawn", shape))
	}
	topts.OnCircle = func(compass.Circle) {
		telemetry.Default().CompassCommit(len(tl.Circles()))
	}
	tl = tool.New(client, sched, topts)
	view := NewDiagramView(tl)
	cc.State = tl.Describe
	cc.Snapshot = func() (string, error) {
		path := filepath.Join(os.TempDir(), fmt.Sprintf("geosolve-crash-%s.png", time.Now().Format("20060102-150405")))
		return path, export.ExportPNG(path, tl.Composite(), export.PNGOptions{})
	}

	entry := widget.NewEntry()
	entry.SetPlaceHolder(solver.Presets[0])
	entry.SetText(lastCommand)
	presets := widget.NewSelect(solver.Presets, func(s string) { entry.SetText(s) })
	presets.PlaceHolder = "Presets"

	var drawBtn *widget.Button
	updateControls := func() {
		switch tl.Mode() {
		case tool.ModeMeasure:
			if lbl := tl.DistanceLabel(); lbl != "" {
				readout.SetText("Distance: " + lbl)
			} else {
				readout.SetText("Click two points to measure")
			}
		case tool.ModeCompass:
			if r := tl.Readout(); r != "" {
				readout.SetText(r)
			} else {
				readout.SetText(fmt.Sprintf("Drag to draw a circle (%d drawn)", len(tl.Circles())))
			}
		default:
			readout.SetText("")
		}
		if tl.Busy() {
			drawBtn.Disable()
		} else {
			drawBtn.Enable()
		}
	}
	view.OnChange = updateControls

	showProperties := func(shape string, props []tool.Property) {
		shapeLabel.SetText(shape)
		propsBox.RemoveAll()
		for _, p := range props {
			propsBox.Add(widget.NewLabel(fmt.Sprintf("%s: %s", p.Name, p.Display())))
		}
		propsBox.Refresh()
	}

	submit := func() {
		cmd := entry.Text
		drawBtn.Disable()
		status.SetText("Solving...")
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), cfg.Solver.Timeout())
			defer cancel()
			start := time.Now()
			res, err := client.Solve(ctx, cmd)
			took := time.Since(start)
			fyne.Do(func() {
				out := tl.Apply(cmd, res, err)
				recordSolve(opts.History, out, took)
				lastCommand, cc.Command = out.Command, out.Command
				switch {
				case out.Blocking():
					dialog.ShowInformation("GeoSolve", "Please enter a geometry command.", w)
					status.SetText("Ready")
				case out.Err != nil:
					status.SetText("Error: " + out.Err.Error())
				default:
					showProperties(tl.Properties())
					if out.Notice != "" {
						status.SetText(out.Notice)
					} else {
						status.SetText("Drawing " + out.Shape + "...")
					}
				}
				view.Refresh()
				updateControls()
			})
		}()
	}
	entry.OnSubmitted = func(string) { submit() }
	drawBtn = widget.NewButtonWithIcon("Draw", theme.ConfirmIcon(), submit)

	clearBtn := widget.NewButtonWithIcon("Clear", theme.ContentClearIcon(), func() {
		tl.Clear()
		entry.SetText("")
		showProperties("", nil)
		status.SetText("Cleared")
		view.Refresh()
		updateControls()
	})

	modeGroup := widget.NewRadioGroup([]string{tool.ModeView.String(), tool.ModeMeasure.String(), tool.ModeCompass.String()}, nil)
	modeGroup.Horizontal = true
	modeGroup.Required = true
	modeGroup.OnChanged = func(s string) {
		m, err := tool.ParseMode(s)
		if err != nil {
			l.Warn("unknown mode", slog.String("mode", s))
			return
		}
		tl.SetMode(m)
		view.Refresh()
		updateControls()
	}
	modeGroup.SetSelected(tool.ModeView.String())

	rng := cfg.Diagram.Range()
	scaleLabel := widget.NewLabel("Scale " + tl.Scale().Percent())
	scaleSlider := widget.NewSlider(rng.Min.Float(), rng.Max.Float())
	scaleSlider.Step = 0.1
	scaleSlider.SetValue(tl.Scale().Float())
	scaleSlider.OnChanged = func(v float64) {
		if err := tl.SetScale(v); err != nil {
			status.SetText(err.Error())
			return
		}
		scaleLabel.SetText("Scale " + tl.Scale().Percent())
		view.Refresh()
		updateControls()
	}

	rotLabel := widget.NewLabel("Rotation 0°")
	rotSlider := widget.NewSlider(0, 360)
	rotSlider.Step = 1
	rotSlider.OnChanged = func(v float64) {
		tl.SetRotationBias(v)
		rotLabel.SetText(fmt.Sprintf("Rotation %.0f°", v))
		view.Refresh()
	}

	savePNG := func() {
		d := dialog.NewFileSave(func(wc fyne.URIWriteCloser, err error) {
			if err != nil || wc == nil {
				return
			}
			defer wc.Close()
			if err := export.EncodePNG(wc, tl.Composite(), export.PNGOptions{}); err != nil {
				dialog.ShowError(err, w)
				return
			}
			status.SetText("Saved " + wc.URI().Name())
		}, w)
		d.SetFileName(exportBase(tl) + ".png")
		d.Show()
	}
	savePDF := func() {
		d := dialog.NewFileSave(func(wc fyne.URIWriteCloser, err error) {
			if err != nil || wc == nil {
				return
			}
			path := wc.URI().Path()
			_ = wc.Close()
			if err := export.ExportPDF(export.SheetFrom(tl, lastCommand), path, export.PDFOptions{IncludeGuides: true}); err != nil {
				dialog.ShowError(err, w)
				return
			}
			status.SetText("Saved " + filepath.Base(path))
		}, w)
		d.SetFileName(exportBase(tl) + ".pdf")
		d.Show()
	}
	exportPreset := func(p export.PresetName) {
		dialog.NewFolderOpen(func(dir fyne.ListableURI, err error) {
			if err != nil || dir == nil {
				return
			}
			paths, err := export.BatchExport(export.SheetFrom(tl, lastCommand), export.BatchOptions{Preset: p, OutDir: dir.Path()})
			if err != nil {
				dialog.ShowError(err, w)
				return
			}
			status.SetText(fmt.Sprintf("Exported %d file(s) for %s", len(paths), p))
		}, w).Show()
	}
	showHistory := func() {
		if opts.History == nil {
			dialog.ShowInformation("History", "History is disabled.", w)
			return
		}
		entries, err := opts.History.Recent(context.Background(), 20)
		if err != nil {
			dialog.ShowError(err, w)
			return
		}
		list := widget.NewList(
			func() int { return len(entries) },
			func() fyne.CanvasObject { return widget.NewLabel("") },
			func(id widget.ListItemID, o fyne.CanvasObject) { o.(*widget.Label).SetText(historyLine(entries[id])) },
		)
		list.OnSelected = func(id widget.ListItemID) { entry.SetText(entries[id].Command) }
		d := dialog.NewCustom("Recent solves", "Close", list, w)
		d.Resize(fyne.NewSize(520, 360))
		d.Show()
	}

	controls := container.NewVBox(
		widget.NewLabelWithStyle("Command", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		entry,
		presets,
		container.NewGridWithColumns(2, drawBtn, clearBtn),
		widget.NewSeparator(),
		modeGroup,
		scaleLabel, scaleSlider,
		rotLabel, rotSlider,
		readout,
		widget.NewSeparator(),
		shapeLabel,
		propsBox,
	)

	stage := container.NewScroll(view)
	root := container.NewBorder(nil, status, container.NewVScroll(controls), nil, stage)
	w.SetContent(container.New(&viewportLayout{onWidth: func(width float32) {
		if tl.Resize(int(width)) {
			view.Refresh()
			updateControls()
		}
	}}, root))

	fileMenu := fyne.NewMenu("File",
		fyne.NewMenuItem("Save PNG...", savePNG),
		fyne.NewMenuItem("Save worksheet PDF...", savePDF),
		fyne.NewMenuItem("Export for web...", func() { exportPreset(export.PresetWeb) }),
		fyne.NewMenuItem("Export for print...", func() { exportPreset(export.PresetPrint) }),
		fyne.NewMenuItem("History...", showHistory),
	)
	aboutMenu := fyne.NewMenu("About", fyne.NewMenuItem("About GeoSolve", func() {
		dialog.ShowInformation("About", "GeoSolve "+version.String()+"\nLicensed under the Apache License, Version 2.0.", w)
	}))
	w.SetMainMenu(fyne.NewMainMenu(fileMenu, aboutMenu))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		err := sched.Run(ctx, cfg.Diagram.FrameInterval(), func(tick func()) {
			fyne.DoAndWait(func() {
				tick()
				view.Refresh()
				updateControls()
			})
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			l.Error("frame loop stopped", slog.Any("err", err))
		}
	}()

	w.SetCloseIntercept(func() {
		sz := w.Canvas().Size()
		prefs.SetInt("window.width", int(sz.Width))
		prefs.SetInt("window.height", int(sz.Height))
		cancel()
		w.Close()
	})

	if lastCommand != "" {
		submit()
	}
	updateControls()
	w.ShowAndRun()
	l.Info("UI closed")
	return nil
}

// viewportLayout reports the available width to the tool before stretching
// its children over the full size.
type viewportLayout struct {
	onWidth func(float32)
}

func (v *viewportLayout) Layout(objects []fyne.CanvasObject, size fyne.Size) {
	v.onWidth(size.Width)
	for _, o := range objects {
		o.Resize(size)
		o.Move(fyne.NewPos(0, 0))
	}
}

func (v *viewportLayout) MinSize(objects []fyne.CanvasObject) fyne.Size {
	var s fyne.Size
	for _, o := range objects {
		s = s.Max(o.MinSize())
	}
	return s
}

func applyTheme(a fyne.App, name string) {
	switch name {
	case "dark":
		a.Settings().SetTheme(theme.DarkTheme())
	case "light":
		a.Settings().SetTheme(theme.LightTheme())
	}
}

func exportBase(t *tool.Tool) string {
	if shape, _ := t.Properties(); shape != "" {
		return shape
	}
	return "diagram"
}

func historyLine(e history.Entry) string {
	res := e.Shape
	if !e.OK() {
		res = "error: " + e.Error
	}
	return fmt.Sprintf("%s  %s  ->  %s", e.At.Local().Format("01-02 15:04"), e.Command, res)
}

func recordSolve(store *history.Store, out tool.Outcome, took time.Duration) {
	if out.Blocking() {
		return
	}
	telemetry.Default().Solve(out.Shape, out.Err == nil, took)
	if store == nil {
		return
	}
	e := history.NewEntry(out.Command, out.Shape, out.Properties, out.Err, took)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if _, err := store.Record(ctx, e); err != nil {
			applog.WithComponent("ui").Warn("history record failed", slog.Any("err", err))
		}
	}()
}
