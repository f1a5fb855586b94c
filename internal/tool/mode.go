/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package tool

import "fmt"

// Mode selects which interaction owns the pointer. Measurement and compass
// drawing are mutually exclusive by construction.
type Mode int

const (
	ModeView Mode = iota
	ModeMeasure
	ModeCompass
)

func (m Mode) String() string {
	switch m {
	case ModeView:
		return "view"
	case ModeMeasure:
		return "measure"
	case ModeCompass:
		return "compass"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode accepts the names produced by String.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "view", "":
		return ModeView, nil
	case "measure":
		return ModeMeasure, nil
	case "compass":
		return ModeCompass, nil
	}
	return ModeView, fmt.Errorf("unknown mode %q", s)
}
