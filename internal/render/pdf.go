// Package render формирует PDF документ по KYC заявке.
package render

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/go-pdf/fpdf"
	"github.com/shaiso/kycdoc/internal/domain"
)

// PDFRenderer рисует документ заявки через go-pdf/fpdf.
//
// Вывод детерминирован для одной и той же заявки: в документе нет текущего
// времени, только данные заявки.
type PDFRenderer struct{}

// NewPDFRenderer создаёт PDFRenderer.
func NewPDFRenderer() *PDFRenderer {
	return &PDFRenderer{}
}

// Render возвращает PDF документ заявки.
func (r *PDFRenderer) Render(app *domain.Application) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(18, 18, 18)
	pdf.SetAutoPageBreak(true, 18)
	pdf.SetCreator("kycdoc", true)
	pdf.SetTitle("KYC Application "+app.ID.String(), true)
	pdf.SetCreationDate(app.SubmittedAt)
	pdf.SetModificationDate(app.SubmittedAt)
	pdf.SetCatalogSort(true)
	pdf.AddPage()

	// Встроенные шрифты fpdf работают в cp1252
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFont("Helvetica", "B", 20)
	pdf.CellFormat(0, 12, "KYC Application Document", "", 1, "C", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "", 12)
	pdf.CellFormat(0, 7, "Application ID: "+app.ID.String(), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "U", 12)
	pdf.CellFormat(0, 7, "Status: "+strings.ToUpper(string(app.Status)), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	section(pdf, "Personal Information")
	field(pdf, tr, "Full Name", app.FullName)
	field(pdf, tr, "Date of Birth", app.DateOfBirth.Format("2006-01-02"))
	field(pdf, tr, "Email", app.Email)
	field(pdf, tr, "Phone", app.Phone)
	field(pdf, tr, "Profession", app.Profession)
	field(pdf, tr, "Address", app.Address)
	pdf.Ln(4)

	section(pdf, "Identification")
	field(pdf, tr, "ID Type", app.IDType.Label())
	field(pdf, tr, "ID Number", app.IDNumber)
	pdf.Ln(4)

	section(pdf, "Summary")
	pdf.SetFont("Helvetica", "", 11)
	pdf.MultiCell(0, 6, tr(app.Summary), "", "J", false)
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, 6, "Submitted: "+app.SubmittedAt.UTC().Format("2006-01-02 15:04:05 MST"), "", 1, "L", false, 0, "")
	processed := "-"
	if app.ProcessedAt != nil {
		processed = app.ProcessedAt.UTC().Format("2006-01-02 15:04:05 MST")
	}
	pdf.CellFormat(0, 6, "Processed: "+processed, "", 1, "L", false, 0, "")
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "I", 9)
	pdf.SetTextColor(128, 128, 128)
	pdf.CellFormat(0, 5, "This document is generated automatically and contains verified information.", "", 1, "C", false, 0, "")

	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("output pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func section(pdf *fpdf.Fpdf, title string) {
	pdf.SetFont("Helvetica", "BU", 14)
	pdf.CellFormat(0, 8, title, "", 1, "L", false, 0, "")
	pdf.Ln(1)
}

func field(pdf *fpdf.Fpdf, tr func(string) string, label, value string) {
	pdf.SetFont("Helvetica", "", 11)
	pdf.MultiCell(0, 6, tr(label+": "+value), "", "L", false)
}
