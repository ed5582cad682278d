// Package summary генерирует краткое описание заявителя при подаче заявки.
//
// GeminiGenerator обращается к Gemini API, StaticGenerator собирает текст
// из полей заявки без внешних вызовов. Fallback объединяет их: если модель
// недоступна, заявка всё равно принимается со статическим описанием.
package summary

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shaiso/kycdoc/internal/domain"
)

// Generator генерирует описание заявителя.
type Generator interface {
	Generate(ctx context.Context, app *domain.Application) (string, error)
}

// Prompt возвращает запрос к модели по данным заявки.
func Prompt(app *domain.Application) string {
	var b strings.Builder
	b.WriteString("Generate a concise professional summary from the following information:\n")
	fmt.Fprintf(&b, "Name: %s\n", app.FullName)
	fmt.Fprintf(&b, "Date of Birth: %s\n", app.DateOfBirth.Format("2006-01-02"))
	fmt.Fprintf(&b, "Profession: %s\n", app.Profession)
	fmt.Fprintf(&b, "Address: %s\n", app.Address)
	fmt.Fprintf(&b, "Email: %s\n", app.Email)
	fmt.Fprintf(&b, "Phone: %s\n", app.Phone)
	fmt.Fprintf(&b, "ID Type: %s\n", app.IDType)
	fmt.Fprintf(&b, "ID Number: %s\n", app.IDNumber)
	return b.String()
}

// StaticGenerator собирает описание из полей заявки.
type StaticGenerator struct{}

func (StaticGenerator) Generate(_ context.Context, app *domain.Application) (string, error) {
	return fmt.Sprintf(
		"%s, %s, born %s, resides at %s. Identified by %s %s. Contact: %s, %s.",
		app.FullName,
		app.Profession,
		app.DateOfBirth.Format("2 January 2006"),
		app.Address,
		strings.ToLower(app.IDType.Label()),
		app.IDNumber,
		app.Email,
		app.Phone,
	), nil
}

// Fallback использует Secondary, если Primary вернул ошибку.
type Fallback struct {
	Primary   Generator
	Secondary Generator
	Logger    *slog.Logger
}

func (f Fallback) Generate(ctx context.Context, app *domain.Application) (string, error) {
	text, err := f.Primary.Generate(ctx, app)
	if err == nil {
		return text, nil
	}

	logger := f.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Warn("summary generation failed, using fallback", "error", err)

	return f.Secondary.Generate(ctx, app)
}
