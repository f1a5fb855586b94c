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
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"geosolve/internal/solver"
	"geosolve/internal/tool"
)

func newSolveCmd(a *app) *cobra.Command {
	var (
		preset int
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "solve [command...]",
		Short: "Solve a geometry command and print its properties",
		Example: `  geosolve solve triangle 3 4 5
  geosolve solve --preset 3 --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			command, err := commandFrom(args, preset)
			if err != nil {
				return err
			}
			a.crash.Command = command
			ctx := cmd.Context()
			store := a.openHistory(ctx)
			defer store.Close()

			start := time.Now()
			res, err := a.client().Solve(ctx, command)
			out := tool.Outcome{Command: command, Err: err}
			if err == nil {
				out.Shape, out.Properties = res.Shape, res.Properties
				if res.Image == "" {
					out.Notice = "no diagram returned"
				}
			}
			a.record(ctx, store, out, time.Since(start))
			if out.Err != nil {
				return out.Err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), out)
			}
			printProperties(cmd.OutOrStdout(), out.Shape, out.Properties)
			if out.Notice != "" {
				fmt.Fprintln(cmd.OutOrStdout(), "note:", out.Notice)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&preset, "preset", 0, fmt.Sprintf("use preset command 1-%d instead of arguments", len(solver.Presets)))
	cmd.Flags().BoolVar(&asJSON, "json", false, "print shape and properties as JSON")
	return cmd
}

// commandFrom joins args into a command, or picks the 1-based preset.
func commandFrom(args []string, preset int) (string, error) {
	if preset != 0 {
		if len(args) > 0 {
			return "", fmt.Errorf("--preset cannot be combined with a command")
		}
		if preset < 1 || preset > len(solver.Presets) {
			return "", fmt.Errorf("preset %d out of range 1-%d", preset, len(solver.Presets))
		}
		return solver.Presets[preset-1], nil
	}
	return strings.Join(args, " "), nil
}

func printProperties(w io.Writer, shape string, props []tool.Property) {
	fmt.Fprintln(w, "shape:", shape)
	for _, p := range props {
		fmt.Fprintf(w, "  %s: %s\n", p.Name, p.Display())
	}
}

func writeJSON(w io.Writer, out tool.Outcome) error {
	props, err := solver.MarshalProperties(out.Properties)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(struct {
		Command    string          `json:"command"`
		Shape      string          `json:"shape"`
		Properties json.RawMessage `json:"properties"`
	}{out.Command, out.Shape, props})
}
