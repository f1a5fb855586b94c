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

// Device is a viewport breakpoint class.
type Device int

const (
	Desktop Device = iota
	Tablet
	Mobile
)

func (d Device) String() string {
	switch d {
	case Desktop:
		return "desktop"
	case Tablet:
		return "tablet"
	case Mobile:
		return "mobile"
	default:
		return fmt.Sprintf("Device(%d)", int(d))
	}
}

// Breakpoints, inclusive upper bounds on viewport width.
const (
	MobileMaxWidth = 480
	TabletMaxWidth = 768
)

// Viewport is the canvas size chosen for a viewport width.
type Viewport struct {
	Device        Device
	Width, Height int
}

// DesktopViewport is the default canvas, also used before any resize.
var DesktopViewport = Viewport{Device: Desktop, Width: 800, Height: 500}

// ViewportFor maps a viewport width to its breakpoint canvas.
func ViewportFor(width int) Viewport {
	switch {
	case width <= MobileMaxWidth:
		return Viewport{Device: Mobile, Width: max(1, min(300, width-40)), Height: 280}
	case width <= TabletMaxWidth:
		return Viewport{Device: Tablet, Width: max(1, min(600, width-80)), Height: 350}
	default:
		return DesktopViewport
	}
}
