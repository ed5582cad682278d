package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shaiso/kycdoc/internal/domain"
)

// dateLayout — формат даты рождения в запросе.
const dateLayout = "2006-01-02"

var validate = newValidator()

// newValidator возвращает валидатор, который называет поля по их json тегам.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// decodeAndValidate читает JSON тело запроса и проверяет его теги validate.
func decodeAndValidate(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	if err := validate.Struct(v); err != nil {
		return validationMessage(err)
	}
	return nil
}

// validationMessage собирает сообщение из ошибок валидатора: "email: email, idType: oneof".
func validationMessage(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fe.Field()+": "+fe.Tag())
	}
	return errors.New("validation failed: " + strings.Join(parts, ", "))
}

// Application DTOs

// SubmitApplicationRequest — запрос на подачу заявки.
type SubmitApplicationRequest struct {
	FullName    string `json:"fullName" validate:"required,max=200"`
	DateOfBirth string `json:"dateOfBirth" validate:"required,datetime=2006-01-02"`
	Email       string `json:"email" validate:"required,email"`
	Phone       string `json:"phone" validate:"required,max=50"`
	Profession  string `json:"profession" validate:"required,max=200"`
	Address     string `json:"address" validate:"required,max=500"`
	IDNumber    string `json:"idNumber" validate:"required,max=100"`
	IDType      string `json:"idType" validate:"required,oneof=passport driving_license national_id"`
}

// ToDomain создаёт новую заявку в статусе pending.
func (r SubmitApplicationRequest) ToDomain(now time.Time) (*domain.Application, error) {
	dob, err := time.Parse(dateLayout, r.DateOfBirth)
	if err != nil {
		return nil, fmt.Errorf("invalid dateOfBirth: %w", err)
	}
	return &domain.Application{
		ID:          uuid.New(),
		FullName:    strings.TrimSpace(r.FullName),
		DateOfBirth: dob,
		Email:       strings.TrimSpace(r.Email),
		Phone:       strings.TrimSpace(r.Phone),
		Profession:  strings.TrimSpace(r.Profession),
		Address:     strings.TrimSpace(r.Address),
		IDNumber:    strings.TrimSpace(r.IDNumber),
		IDType:      domain.IDType(r.IDType),
		Status:      domain.ApplicationStatusPending,
		SubmittedAt: now.UTC(),
	}, nil
}

// SubmitApplicationResponse — ответ на подачу заявки.
type SubmitApplicationResponse struct {
	ApplicationID uuid.UUID `json:"applicationId"`
	Message       string    `json:"message"`
}

// DecisionResponse — ответ на approve/reject.
type DecisionResponse struct {
	Message     string              `json:"message"`
	Application *domain.Application `json:"application"`
}

// DocumentStatusResponse — состояние документа заявки.
type DocumentStatusResponse struct {
	ApplicationID uuid.UUID            `json:"applicationId"`
	State         domain.DocumentState `json:"state"`
	Locator       string               `json:"locator,omitempty"`
}

// DocumentStatusFromDomain конвертирует заявку в DocumentStatusResponse.
func DocumentStatusFromDomain(app *domain.Application) DocumentStatusResponse {
	resp := DocumentStatusResponse{
		ApplicationID: app.ID,
		State:         app.DocumentState(),
	}
	if resp.State == domain.DocumentStateComplete {
		resp.Locator = app.DocumentPath
	}
	return resp
}

// Auth DTOs

// LoginRequest — запрос на вход администратора.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse — токен администратора.
type LoginResponse struct {
	Token     string    `json:"token"`
	Username  string    `json:"username"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// HealthResponse — ответ /api/health.
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}
