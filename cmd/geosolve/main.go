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
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"geosolve/internal/config"
	"geosolve/internal/crash"
	"geosolve/internal/history"
	applog "geosolve/internal/log"
	"geosolve/internal/solver"
	"geosolve/internal/telemetry"
	"geosolve/internal/tool"
	"geosolve/internal/version"
)

// app is the state shared by all subcommands once the root pre-run has
// loaded the configuration.
type app struct {
	cfg       config.AppConfig
	token     string
	solverURL string
	noHistory bool
	crash     *crash.Context
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "geosolve",
		Short: "Solve geometry commands and explore the resulting diagram",
		Long: `geosolve sends geometry commands such as "triangle 3 4 5" to a solver
service, reveals the returned diagram and lets you measure distances and
draw compass circles on it, either in the desktop UI or headless.`,
		Version:       version.String(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.load(cmd)
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			telemetry.Default().Flush(ctx)
		},
	}
	root.PersistentFlags().StringVar(&a.solverURL, "solver", "", "solver base URL (overrides config)")
	root.PersistentFlags().BoolVar(&a.noHistory, "no-history", false, "do not record solves")
	root.AddCommand(newVersionCmd(a), newSolveCmd(a), newRenderCmd(a), newHistoryCmd(a), newUICmd(a))
	return root
}

func (a *app) load(cmd *cobra.Command) error {
	cfg, tok, err := config.Load()
	applog.Init(cfg.Logging.LogOptions())
	l := applog.WithComponent("cli")
	if err != nil {
		l.Warn("config not loaded", slog.Any("err", err))
	}
	if a.solverURL != "" {
		cfg.Solver.BaseURL = a.solverURL
	}
	a.cfg, a.token = cfg, tok
	telemetry.NewDefault(telemetry.FromEnv().WithSettings(cfg.General.TelemetryOptIn, cfg.General.TelemetryURL))
	l.Debug("start", slog.String("cmd", cmd.Name()), slog.String("solver", cfg.Solver.BaseURL))
	return nil
}

func (a *app) client() *solver.Client {
	c := solver.NewClient(a.cfg.Solver.BaseURL, a.token)
	c.SetTimeout(a.cfg.Solver.Timeout())
	c.SetInsecureTLS(a.cfg.Solver.TLSInsecure)
	return c
}

// openHistory returns nil when recording is disabled or the store cannot be
// opened; history is never fatal for a solve.
func (a *app) openHistory(ctx context.Context) *history.Store {
	if a.noHistory || a.cfg.History.Disable {
		return nil
	}
	dsn, err := a.cfg.History.ResolvedDSN()
	if err == nil {
		var s *history.Store
		if s, err = history.Open(ctx, dsn); err == nil {
			return s
		}
	}
	applog.WithComponent("cli").Warn("history unavailable", slog.Any("err", err))
	return nil
}

func (a *app) record(ctx context.Context, store *history.Store, out tool.Outcome, took time.Duration) {
	if out.Blocking() {
		return
	}
	telemetry.Default().Solve(out.Shape, out.Err == nil, took)
	if store == nil {
		return
	}
	if _, err := store.Record(ctx, history.NewEntry(out.Command, out.Shape, out.Properties, out.Err, took)); err != nil {
		applog.WithComponent("cli").Warn("history record failed", slog.Any("err", err))
	}
}

func main() {
	a := &app{crash: &crash.Context{}}
	defer crash.Recover(a.crash)
	root := newRootCmd(a)
	err := root.Execute()
	telemetry.Default().Close()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
