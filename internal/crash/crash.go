/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package crash turns an unrecovered panic into a report file, an optional
// snapshot of the diagram and, when enabled, a telemetry upload.
package crash

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"time"

	applog "geosolve/internal/log"
	"geosolve/internal/telemetry"
	"geosolve/internal/version"
)

// exitFn is used to allow testing of Recover without terminating the test process.
var exitFn = os.Exit

// Context describes what the process was doing when it crashed.
type Context struct {
	// Dir receives the report; the OS temp dir when empty.
	Dir string
	// Command is the last geometry command, if any.
	Command string
	// State, when set, returns key/value lines about the view
	// (mode, scale, circle count, reveal progress).
	State func() []string
	// Snapshot, when set, saves the current diagram and returns its path.
	Snapshot func() (string, error)
}

// report is what ends up in the crash file.
type report struct {
	panicVal any
	stack    []byte
	command  string
	state    []string
	snapshot string
}

// Recover captures a panic, saves a snapshot of the diagram when possible,
// writes a report file and exits with status 2.
//
// Usage: defer crash.Recover(cc)
func Recover(cc *Context) {
	r := recover()
	if r == nil {
		return
	}
	l := applog.WithComponent("crash")
	rep := report{panicVal: r, stack: debug.Stack()}
	l.Error("panic recovered", slog.Any("panic", r), slog.String("stack", string(rep.stack)))

	dir := os.TempDir()
	if cc != nil {
		rep.command = cc.Command
		if cc.Dir != "" {
			dir = cc.Dir
		}
		rep.state = collectState(cc, l)
		if cc.Snapshot != nil {
			if path, err := cc.Snapshot(); err != nil {
				l.Error("crash snapshot failed", slog.Any("err", err))
			} else {
				rep.snapshot = path
				l.Info("crash snapshot written", slog.String("path", path))
			}
		}
	}

	path, err := writeReport(dir, rep)
	if err != nil {
		l.Error("crash report not written", slog.Any("err", err))
	}
	fmt.Fprintf(os.Stderr, "A fatal error occurred. A crash report was saved to: %s\n", path)
	fmt.Fprintf(os.Stderr, "Version: %s\nOS/Arch: %s/%s\n", version.String(), runtime.GOOS, runtime.GOARCH)
	exitFn(2)
}

// collectState guards against the state hook itself panicking on a broken view.
func collectState(cc *Context, l *slog.Logger) (lines []string) {
	if cc.State == nil {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			l.Error("crash state hook panicked", slog.Any("panic", r))
			lines = nil
		}
	}()
	return cc.State()
}

func (r report) bytes() []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "GeoSolve Crash Report\n")
	fmt.Fprintf(&buf, "Timestamp: %s\n", time.Now().Format(time.RFC3339))
	fmt.Fprintf(&buf, "Version: %s\n", version.String())
	fmt.Fprintf(&buf, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	if r.command != "" {
		fmt.Fprintf(&buf, "Command: %s\n", r.command)
	}
	if r.snapshot != "" {
		fmt.Fprintf(&buf, "Snapshot: %s\n", r.snapshot)
	}
	if len(r.state) > 0 {
		fmt.Fprintf(&buf, "\nState:\n")
		for _, s := range r.state {
			fmt.Fprintf(&buf, "  %s\n", s)
		}
	}
	fmt.Fprintf(&buf, "\nPanic: %v\n\n", r.panicVal)
	fmt.Fprintf(&buf, "Stack:\n%s\n", r.stack)
	return buf.Bytes()
}

func writeReport(dir string, r report) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	stamp := time.Now().Format("20060102-150405")
	path := filepath.Join(dir, fmt.Sprintf("geosolve-crash-%s.log", stamp))
	body := r.bytes()
	if err := os.WriteFile(path, body, 0o644); err != nil {
		return path, err
	}
	// optionally upload the crash report (opt-in via env)
	telemetry.UploadCrash(body)
	return path, nil
}
