package export

import (
	"fmt"
	"io"

	"github.com/go-pdf/fpdf"

	"github.com/agentstation/renewals/pkg/errors"
)

// Column widths in millimetres, matching Header.
var pdfWidths = []float64{20, 30, 30, 50, 60}

const (
	pdfHeaderHeight = 8
	pdfRowHeight    = 7
)

// WritePDF renders rows as an A4 sheet under title. The column header
// repeats on every page.
func WritePDF(w io.Writer, title string, rows []PrintRow) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(title, true)
	pdf.SetAutoPageBreak(true, 15)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	first := true
	pdf.SetHeaderFunc(func() {
		if first {
			pdf.SetFont("Arial", "B", 14)
			pdf.CellFormat(190, 10, tr(title), "", 1, "C", false, 0, "")
			pdf.Ln(10)
			first = false
		}
		pdf.SetFont("Arial", "B", 9)
		pdf.SetFillColor(230, 230, 230)
		for i, h := range Header {
			ln := 0
			if i == len(Header)-1 {
				ln = 1
			}
			pdf.CellFormat(pdfWidths[i], pdfHeaderHeight, tr(h), "1", ln, "C", true, 0, "")
		}
		pdf.SetFont("Arial", "", 8)
	})

	pdf.AddPage()
	for _, row := range rows {
		cells := row.Cells()
		for i, c := range cells {
			ln := 0
			if i == len(cells)-1 {
				ln = 1
			}
			pdf.CellFormat(pdfWidths[i], pdfRowHeight, tr(c), "1", ln, "", false, 0, "")
		}
	}

	if err := pdf.Error(); err != nil {
		return errors.WrapIO("render", "pdf", err)
	}
	if err := pdf.Output(w); err != nil {
		return errors.WrapIO("write", "pdf", fmt.Errorf("output: %w", err))
	}
	return nil
}
