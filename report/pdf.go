package report

import (
	"bytes"
	"fmt"
	"io"
	"strconv"

	"github.com/jung-kurt/gofpdf"

	"placement-engine/models"
)

const (
	pdfMargin       = 15.0
	pdfContentWidth = 215.9 - 2*pdfMargin
	pdfLineHeight   = 7.0
)

// Sheet is the printable summary of one placement run
type Sheet struct {
	Title    string
	Subtitle string
	Result   models.PlacementResult
	PlotPNG  []byte
}

// WritePDF renders a one-page placement sheet: heading, fielder table,
// summary and the plot when one is given
func WritePDF(w io.Writer, sheet Sheet) error {
	pdf := gofpdf.New("P", "mm", "Letter", "")
	pdf.SetMargins(pdfMargin, pdfMargin, pdfMargin)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(pdfContentWidth, 10, sheet.Title, "", 1, "C", false, 0, "")
	if sheet.Subtitle != "" {
		pdf.SetFont("Arial", "", 10)
		pdf.CellFormat(pdfContentWidth, 6, sheet.Subtitle, "", 1, "C", false, 0, "")
	}
	pdf.Ln(4)

	res := sheet.Result
	headers := []string{"Zone", "X", "Y", "Caught", "Total"}
	widths := []float64{0.2, 0.2, 0.2, 0.2, 0.2}

	pdf.SetFont("Arial", "B", 10)
	pdf.SetFillColor(200, 200, 200)
	for i, h := range headers {
		pdf.CellFormat(widths[i]*pdfContentWidth, pdfLineHeight, h, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 10)
	for _, z := range models.AllZones {
		zr := res.Zone(z)
		x, y := "-", "-"
		if zr.Position.IsValid() {
			x = strconv.FormatFloat(zr.Position.X, 'f', 1, 64)
			y = strconv.FormatFloat(zr.Position.Y, 'f', 1, 64)
		}
		cells := []string{z.String(), x, y, strconv.Itoa(zr.Caught), strconv.Itoa(zr.Total)}
		for i, c := range cells {
			pdf.CellFormat(widths[i]*pdfContentWidth, pdfLineHeight, c, "1", 0, "C", false, 0, "")
		}
		pdf.Ln(-1)
	}
	pdf.Ln(3)

	summary := fmt.Sprintf("Mode: %s    Caught: %d of %d    Catch rate: %.1f%%",
		res.Mode, res.Summary.CaughtTotal, res.Summary.BallsTotal, res.Summary.CatchRate*100)
	if res.Mode == models.ModeMinDistance {
		summary += fmt.Sprintf("    Total distance: %.1f", res.TotalDistance)
	}
	pdf.MultiCell(pdfContentWidth, 6, summary, "", "L", false)
	pdf.Ln(4)

	if len(sheet.PlotPNG) > 0 {
		pdf.RegisterImageReader("placement", "PNG", bytes.NewReader(sheet.PlotPNG))
		size := pdfContentWidth * 0.8
		pdf.Image("placement", pdfMargin+(pdfContentWidth-size)/2, pdf.GetY(), size, size, false, "PNG", 0, "")
	}

	if err := pdf.Error(); err != nil {
		return fmt.Errorf("failed to build PDF: %w", err)
	}
	return pdf.Output(w)
}
