package domain

import (
	"time"

	"github.com/google/uuid"
)

// Application — KYC заявка клиента.
//
// Заявка создаётся в статусе pending. Администратор переводит её в approved
// или rejected; после approve воркер генерирует PDF документ и выставляет
// DocumentGenerated.
type Application struct {
	// ID — уникальный идентификатор заявки.
	ID uuid.UUID `json:"id"`

	FullName    string    `json:"fullName"`
	DateOfBirth time.Time `json:"dateOfBirth"`
	Email       string    `json:"email"`
	Phone       string    `json:"phone"`
	Profession  string    `json:"profession"`
	Address     string    `json:"address"`

	// IDNumber — номер документа, удостоверяющего личность.
	IDNumber string `json:"idNumber"`

	// IDType — тип документа.
	IDType IDType `json:"idType"`

	// Status — статус рассмотрения заявки.
	Status ApplicationStatus `json:"status"`

	// Summary — краткое описание заявителя, сгенерированное при подаче.
	Summary string `json:"summary"`

	// SubmittedAt — время подачи.
	SubmittedAt time.Time `json:"submittedAt"`

	// ProcessedAt — время последнего решения администратора.
	// Nil, пока заявка не рассмотрена.
	ProcessedAt *time.Time `json:"processedAt,omitempty"`

	// DocumentGenerated — документ сгенерирован и сохранён.
	DocumentGenerated bool `json:"documentGenerated"`

	// DocumentPath — locator сгенерированного документа (путь или gs:// URL).
	DocumentPath string `json:"documentPath,omitempty"`
}

// IsApproved возвращает true, если заявка одобрена.
func (a *Application) IsApproved() bool {
	return a.Status == ApplicationStatusApproved
}

// DocumentState возвращает состояние документа для опроса статуса.
func (a *Application) DocumentState() DocumentState {
	switch {
	case !a.IsApproved():
		return DocumentStateNotApproved
	case a.DocumentGenerated && a.DocumentPath != "":
		return DocumentStateComplete
	default:
		return DocumentStatePending
	}
}

// DocumentName возвращает детерминированное имя документа заявки.
// Повторная генерация перезаписывает тот же файл.
func DocumentName(id uuid.UUID) string {
	return "kyc-" + id.String() + ".pdf"
}

// Admin — администратор, рассматривающий заявки.
type Admin struct {
	ID           uuid.UUID `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}
