/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package ui hosts the desktop front end. The Fyne implementation is only
// compiled with the "fyne" build tag; other builds get a stub Run.
package ui

import (
	"geosolve/internal/config"
	"geosolve/internal/history"
)

// Options carries what the host has already resolved before the window opens.
type Options struct {
	Config config.AppConfig
	Token  string
	// History may be nil when recording is disabled.
	History *history.Store
	// Command is pre-filled into the command entry.
	Command string
}
