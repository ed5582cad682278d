package render

import (
	"bytes"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/kycdoc/internal/domain"
)

func testApplication() *domain.Application {
	processed := time.Date(2024, 3, 2, 10, 0, 0, 0, time.UTC)
	return &domain.Application{
		ID:          uuid.MustParse("b6a9b1a4-5f0e-4c55-8f7f-0b6f1d2c3e4a"),
		FullName:    "José Müller",
		DateOfBirth: time.Date(1990, 6, 15, 0, 0, 0, 0, time.UTC),
		Email:       "jose@example.com",
		Phone:       "+49 30 123456",
		Profession:  "Engineer",
		Address:     "Unter den Linden 1, Berlin",
		IDNumber:    "X1234567",
		IDType:      domain.IDTypeNationalID,
		Status:      domain.ApplicationStatusApproved,
		Summary:     "Experienced engineer based in Berlin.",
		SubmittedAt: time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC),
		ProcessedAt: &processed,
	}
}

func TestPDFRenderer_Render(t *testing.T) {
	out, err := NewPDFRenderer().Render(testApplication())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.HasPrefix(out, []byte("%PDF-")) {
		t.Errorf("output is not a PDF: %q", out[:min(len(out), 16)])
	}
	if !bytes.Contains(out, []byte("%%EOF")) {
		t.Error("PDF trailer missing")
	}
}

func TestPDFRenderer_Render_Deterministic(t *testing.T) {
	app := testApplication()
	r := NewPDFRenderer()

	first, err := r.Render(app)
	if err != nil {
		t.Fatalf("first render: %v", err)
	}
	second, err := r.Render(app)
	if err != nil {
		t.Fatalf("second render: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Error("rendering the same application twice should produce identical output")
	}
}

func TestPDFRenderer_Render_NotProcessed(t *testing.T) {
	app := testApplication()
	app.ProcessedAt = nil
	app.Summary = ""

	if _, err := NewPDFRenderer().Render(app); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
