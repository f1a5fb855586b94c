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
	"strings"

	"github.com/spf13/cobra"

	"geosolve/internal/ui"
)

func newUICmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "ui [command...]",
		Short: "Launch the desktop UI (build with -tags fyne)",
		RunE: func(cmd *cobra.Command, args []string) error {
			store := a.openHistory(cmd.Context())
			defer store.Close()
			return ui.Run(ui.Options{
				Config:  a.cfg,
				Token:   a.token,
				History: store,
				Command: strings.Join(args, " "),
			})
		},
	}
}
