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
	"bytes"
	"fmt"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

// Page geometry in points, A4 portrait.
const (
	pageW   = 595.0
	pageH   = 842.0
	margin  = 36.0
	rowH    = 18.0
	nameCol = 160.0
)

// PDFOptions controls worksheet export.
//   - IncludeGuides: draw a hairline frame around the diagram.
//   - MaxDiagramHeight: vertical space reserved for the diagram, 400pt when zero.
type PDFOptions struct {
	IncludeGuides    bool
	MaxDiagramHeight float64
	Author           string
}

// ExportPDF writes a one-page worksheet for s to outPath: heading, command,
// the diagram scaled to the page width and the property table.
func ExportPDF(s Sheet, outPath string, opt PDFOptions) error {
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	pdf := gofpdf.NewCustom(&gofpdf.InitType{UnitStr: "pt", Size: gofpdf.SizeType{Wd: pageW, Ht: pageH}})
	title := s.Title
	if title == "" {
		title = "GeoSolve worksheet"
	}
	pdf.SetTitle(title, true)
	if opt.Author != "" {
		pdf.SetAuthor(opt.Author, true)
	}
	pdf.SetMargins(margin, margin, margin)
	pdf.SetAutoPageBreak(true, margin)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(0, 24, title, "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 11)
	if s.Command != "" {
		pdf.CellFormat(0, 16, "Command: "+s.Command, "", 1, "L", false, 0, "")
	}
	if s.Shape != "" {
		pdf.CellFormat(0, 16, "Shape: "+s.Shape, "", 1, "L", false, 0, "")
	}
	if s.Scale > 0 {
		pdf.CellFormat(0, 16, "Scale: "+s.Scale.Percent(), "", 1, "L", false, 0, "")
	}
	pdf.Ln(8)

	if s.Diagram != nil && !s.Diagram.Bounds().Empty() {
		if err := placeDiagram(pdf, s, opt); err != nil {
			return err
		}
	}

	writeProperties(pdf, s)

	if len(s.Notes) > 0 {
		pdf.Ln(8)
		pdf.SetFont("Helvetica", "I", 10)
		for _, n := range s.Notes {
			pdf.MultiCell(0, 14, n, "", "L", false)
		}
	}

	if err := pdf.Error(); err != nil {
		return fmt.Errorf("pdf: %w", err)
	}
	return pdf.OutputFileAndClose(outPath)
}

func placeDiagram(pdf *gofpdf.Fpdf, s Sheet, opt PDFOptions) error {
	var buf bytes.Buffer
	if err := png.Encode(&buf, s.Diagram); err != nil {
		return fmt.Errorf("encode diagram: %w", err)
	}
	maxH := opt.MaxDiagramHeight
	if maxH <= 0 {
		maxH = 400
	}
	b := s.Diagram.Bounds()
	w, h := fitBox(float64(b.Dx()), float64(b.Dy()), pageW-2*margin, maxH)

	imgOpt := gofpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader("diagram", imgOpt, &buf)
	x, y := margin+(pageW-2*margin-w)/2, pdf.GetY()
	pdf.ImageOptions("diagram", x, y, w, h, false, imgOpt, 0, "")
	if opt.IncludeGuides {
		pdf.SetDrawColor(200, 200, 200)
		pdf.SetLineWidth(0.5)
		pdf.Rect(x, y, w, h, "D")
	}
	pdf.SetY(y + h + 12)
	return nil
}

// fitBox scales (w,h) to fit inside (maxW,maxH) without enlarging.
func fitBox(w, h, maxW, maxH float64) (float64, float64) {
	if w <= 0 || h <= 0 {
		return 0, 0
	}
	f := min(1, maxW/w, maxH/h)
	return w * f, h * f
}

func writeProperties(pdf *gofpdf.Fpdf, s Sheet) {
	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(0, 18, "Properties", "", 1, "L", false, 0, "")
	if len(s.Properties) == 0 {
		pdf.SetFont("Helvetica", "I", 10)
		pdf.CellFormat(0, rowH, "none", "", 1, "L", false, 0, "")
		return
	}
	pdf.SetFillColor(240, 240, 240)
	pdf.SetDrawColor(180, 180, 180)
	pdf.SetLineWidth(0.5)
	for i, p := range s.Properties {
		pdf.SetFont("Helvetica", "B", 10)
		fill := i%2 == 0
		pdf.CellFormat(nameCol, rowH, propertyTitle(p.Name), "1", 0, "L", fill, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		pdf.CellFormat(pageW-2*margin-nameCol, rowH, p.Display(), "1", 1, "L", fill, 0, "")
	}
}

// propertyTitle turns "side_lengths" into "Side lengths".
func propertyTitle(name string) string {
	name = strings.TrimSpace(strings.ReplaceAll(name, "_", " "))
	if name == "" {
		return name
	}
	return strings.ToUpper(name[:1]) + name[1:]
}
