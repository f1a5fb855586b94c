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

import (
	"geosolve/internal/config"
	"geosolve/internal/units"
)

// OptionsFrom maps the diagram section of the user configuration onto Options.
// Callbacks are left for the host to fill in.
func OptionsFrom(d config.DiagramConfig) Options {
	thr := d.AlphaThreshold
	if thr < 0 || thr > 255 {
		thr = 0
	}
	return Options{
		Mapper:         d.Mapper(),
		Range:          d.Range(),
		DefaultScale:   units.Scale(d.DefaultScale),
		AlphaThreshold: uint8(thr),
		RevealFrames:   d.RevealFrames,
		CompassEpsilon: d.CompassEpsilon,
	}
}
