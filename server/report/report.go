package report

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"

	"github.com/kontiki/avisos/server/store"
)

var columnWidths = []float64{25, 55, 35, 35, 30}

var columnTitles = []string{"Vence", "Cliente", "Teléfono", "Serie", "Tipo"}

// Build renders the upcoming-expirations report: a title band, a dark column
// header bar and zebra-striped rows, one line per extinguisher ordered the
// way the rows come in (expiration ascending).
func Build(rows []store.UpcomingItem, dias int, generatedAt time.Time) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle("Vencimientos", true)
	pdf.AddPage()

	pdf.SetTextColor(239, 68, 68)
	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, "Kon-Tiki | Notificaciones")
	pdf.Ln(10)

	pdf.SetTextColor(51, 51, 51)
	pdf.SetFont("Helvetica", "", 10)
	pdf.Cell(0, 6, tr(fmt.Sprintf("Reporte de vencimientos (próx. %d días), generado el %s",
		dias, generatedAt.Format("02/01/2006 15:04"))))
	pdf.Ln(10)

	writeHeaderBar(pdf, tr)

	pdf.SetFont("Helvetica", "", 10)
	for i, row := range rows {
		if pdf.GetY() > 270 {
			pdf.AddPage()
			writeHeaderBar(pdf, tr)
			pdf.SetFont("Helvetica", "", 10)
		}

		if i%2 == 0 {
			pdf.SetFillColor(245, 245, 245)
		} else {
			pdf.SetFillColor(237, 237, 237)
		}
		pdf.SetTextColor(17, 17, 17)

		tipo := row.Tipo
		if tipo == "" {
			tipo = "-"
		}

		cells := []string{displayDate(row.Vencimiento), row.Nombre, row.Telefono, row.NroSerie, tipo}
		for j, val := range cells {
			pdf.CellFormat(columnWidths[j], 6, tr(clip(val, 32)), "", 0, "L", true, 0, "")
		}
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeHeaderBar(pdf *gofpdf.Fpdf, tr func(string) string) {
	pdf.SetFillColor(17, 17, 17)
	pdf.SetTextColor(255, 255, 255)
	pdf.SetFont("Helvetica", "B", 10)
	for i, title := range columnTitles {
		pdf.CellFormat(columnWidths[i], 7, tr(title), "", 0, "L", true, 0, "")
	}
	pdf.Ln(-1)
}

func displayDate(ymd string) string {
	if len(ymd) > 10 {
		ymd = ymd[:10]
	}

	t, err := time.Parse("2006-01-02", ymd)
	if err != nil {
		return ymd
	}
	return t.Format("02/01/2006")
}

func clip(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
