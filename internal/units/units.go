/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package units converts between on-screen pixel lengths and the solver's
// semantic geometric units.
//
// The solver renders one unit as BaseUnitPixels pixels at 100% zoom; the
// user-adjustable Scale multiplies both the display size and the pixel to
// unit ratio.
package units

import (
	"errors"
	"fmt"
	"math"
)

// BaseUnitPixels is the solver's rendering convention: pixels per unit at scale 1.
const BaseUnitPixels = 40.0

// Zoom range offered by the scale slider.
const (
	MinScale     Scale = 0.5
	MaxScale     Scale = 2.0
	DefaultScale Scale = 1.0
	ScaleStep          = 0.1
)

// ErrInvalidScale is returned for non-positive, non-finite or out-of-range scale factors.
var ErrInvalidScale = errors.New("invalid scale factor")

// Scale is a positive zoom multiplier.
type Scale float64

// NewScale validates v against the default zoom range.
func NewScale(v float64) (Scale, error) {
	return Range{Min: MinScale, Max: MaxScale}.Scale(v)
}

// Range bounds the accepted scale factors.
type Range struct {
	Min, Max Scale
}

// Scale validates v against r.
func (r Range) Scale(v float64) (Scale, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return 0, fmt.Errorf("%w: %v", ErrInvalidScale, v)
	}
	if v < float64(r.Min) || v > float64(r.Max) {
		return 0, fmt.Errorf("%w: %v outside [%v, %v]", ErrInvalidScale, v, float64(r.Min), float64(r.Max))
	}
	return Scale(v), nil
}

// Float returns s as a float64.
func (s Scale) Float() float64 { return float64(s) }

// Percent renders the scale the way the zoom slider labels it, e.g. "150%".
func (s Scale) Percent() string { return fmt.Sprintf("%.0f%%", float64(s)*100) }

// Mapper converts pixel lengths using a calibrated pixels-per-unit base.
// The zero value uses BaseUnitPixels.
type Mapper struct {
	BasePixels float64
}

// Default is the mapper calibrated against the solver's 40 px per unit convention.
var Default = Mapper{BasePixels: BaseUnitPixels}

func (m Mapper) base() float64 {
	if m.BasePixels <= 0 {
		return BaseUnitPixels
	}
	return m.BasePixels
}

// UnitsPerPixel returns 1 / (base * s).
func (m Mapper) UnitsPerPixel(s Scale) float64 {
	return 1 / (m.base() * float64(s))
}

// PixelsPerUnit returns base * s.
func (m Mapper) PixelsPerUnit(s Scale) float64 {
	return m.base() * float64(s)
}

// ToUnits converts a pixel distance to semantic units at scale s.
func (m Mapper) ToUnits(px float64, s Scale) float64 {
	return px * m.UnitsPerPixel(s)
}

// ToPixels converts a semantic distance to pixels at scale s.
func (m Mapper) ToPixels(u float64, s Scale) float64 {
	return u * m.PixelsPerUnit(s)
}

// ToUnits converts with the default mapper.
func ToUnits(px float64, s Scale) float64 { return Default.ToUnits(px, s) }

// ToPixels converts with the default mapper.
func ToPixels(u float64, s Scale) float64 { return Default.ToPixels(u, s) }

// Format renders a semantic length with two decimals and the unit suffix.
func Format(u float64) string { return fmt.Sprintf("%.2f units", u) }
