/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package export

import (
	"fmt"
	"path/filepath"
	"strings"
)

// PresetName represents a named export preset.
type PresetName string

const (
	PresetWeb   PresetName = "web"
	PresetPrint PresetName = "print"
)

// ParsePreset resolves a preset name as typed on the command line.
func ParsePreset(s string) (PresetName, error) {
	switch p := PresetName(strings.ToLower(strings.TrimSpace(s))); p {
	case PresetWeb, PresetPrint:
		return p, nil
	}
	return "", fmt.Errorf("unknown export preset %q (want web or print)", s)
}

// BatchOptions controls export of one sheet into several formats.
//
// Files are named <Base>.<ext> inside OutDir; Base defaults to the shape name,
// or "diagram" when there is none.
type BatchOptions struct {
	Preset        PresetName
	Formats       []string // allowed: pdf, png; empty means preset defaults
	OutDir        string
	Base          string
	IncludeGuides *bool // when set, overrides the preset's default for guides
}

// BatchExport writes s in every requested format and returns the written paths.
func BatchExport(s Sheet, opt BatchOptions) ([]string, error) {
	formats := opt.Formats
	if len(formats) == 0 {
		formats = presetDefaultFormats(opt.Preset)
	}
	guides := presetIncludeGuides(opt.Preset)
	if opt.IncludeGuides != nil {
		guides = *opt.IncludeGuides
	}
	base := opt.Base
	if base == "" {
		base = s.Shape
	}
	if base == "" {
		base = "diagram"
	}
	outDir := opt.OutDir
	if outDir == "" {
		outDir = "."
	}

	var written []string
	for _, f := range formats {
		f = strings.ToLower(strings.TrimSpace(f))
		out := filepath.Join(outDir, base+"."+f)
		switch f {
		case "pdf":
			if err := ExportPDF(s, out, PDFOptions{IncludeGuides: guides}); err != nil {
				return written, fmt.Errorf("pdf: %w", err)
			}
		case "png":
			if s.Diagram == nil {
				return written, fmt.Errorf("png: no diagram to export")
			}
			if err := ExportPNG(out, s.Diagram, presetPNGOptions(opt.Preset)); err != nil {
				return written, fmt.Errorf("png: %w", err)
			}
		default:
			return written, fmt.Errorf("unknown format: %s", f)
		}
		written = append(written, out)
	}
	return written, nil
}

func presetDefaultFormats(p PresetName) []string {
	switch p {
	case PresetPrint:
		return []string{"pdf", "png"}
	default:
		return []string{"png"}
	}
}

func presetIncludeGuides(p PresetName) bool {
	return p == PresetPrint
}

func presetPNGOptions(p PresetName) PNGOptions {
	switch p {
	case PresetPrint:
		return PNGOptions{Scale: 2}
	case PresetWeb:
		return PNGOptions{MaxWidth: 800}
	default:
		return PNGOptions{}
	}
}
