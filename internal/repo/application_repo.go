package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shaiso/kycdoc/internal/domain"
)

// ApplicationRepo — репозиторий для работы с заявками.
type ApplicationRepo struct {
	pool *pgxpool.Pool
}

// NewApplicationRepo создаёт новый ApplicationRepo.
func NewApplicationRepo(pool *pgxpool.Pool) *ApplicationRepo {
	return &ApplicationRepo{pool: pool}
}

const applicationColumns = `
	id, full_name, date_of_birth, email, phone, profession, address,
	id_number, id_type, status, summary, submitted_at, processed_at,
	document_generated, document_path
`

// Create сохраняет новую заявку.
func (r *ApplicationRepo) Create(ctx context.Context, app *domain.Application) error {
	query := `
		INSERT INTO applications (id, full_name, date_of_birth, email, phone, profession,
		                          address, id_number, id_type, status, summary, submitted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err := r.pool.Exec(ctx, query,
		app.ID,
		app.FullName,
		app.DateOfBirth,
		app.Email,
		app.Phone,
		app.Profession,
		app.Address,
		app.IDNumber,
		string(app.IDType),
		string(app.Status),
		app.Summary,
		app.SubmittedAt,
	)
	if isUniqueViolation(err) {
		return ErrAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("insert application: %w", err)
	}
	return nil
}

// GetByID возвращает заявку по ID.
func (r *ApplicationRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Application, error) {
	query := `SELECT ` + applicationColumns + ` FROM applications WHERE id = $1`
	return scanApplication(r.pool.QueryRow(ctx, query, id))
}

// ApplicationFilter — параметры фильтрации заявок.
type ApplicationFilter struct {
	Status domain.ApplicationStatus
	Limit  int
	Offset int
}

// List возвращает заявки, новые первыми.
func (r *ApplicationRepo) List(ctx context.Context, filter ApplicationFilter) ([]domain.Application, error) {
	if filter.Limit <= 0 {
		filter.Limit = 100
	}

	query := `
		SELECT ` + applicationColumns + `
		FROM applications
		WHERE ($1::text IS NULL OR status = $1::application_status)
		ORDER BY submitted_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.pool.Query(ctx, query,
		nullString(string(filter.Status)),
		filter.Limit,
		filter.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list applications: %w", err)
	}
	return collectApplications(rows)
}

// SetStatus меняет статус заявки и выставляет processed_at.
// Возвращает обновлённую заявку или ErrNotFound.
func (r *ApplicationRepo) SetStatus(ctx context.Context, id uuid.UUID, status domain.ApplicationStatus, at time.Time) (*domain.Application, error) {
	query := `
		UPDATE applications
		SET status = $2::application_status, processed_at = $3
		WHERE id = $1
		RETURNING ` + applicationColumns
	return scanApplication(r.pool.QueryRow(ctx, query, id, string(status), at))
}

// MarkDocumentGenerated сохраняет locator документа и выставляет флаг генерации.
// Повторный вызов перезаписывает locator. Если заявка удалена или уже не
// одобрена, ничего не меняет и возвращает ErrNotFound.
func (r *ApplicationRepo) MarkDocumentGenerated(ctx context.Context, id uuid.UUID, locator string) error {
	query := `
		UPDATE applications
		SET document_generated = true, document_path = $2
		WHERE id = $1 AND status = 'approved'
	`
	result, err := r.pool.Exec(ctx, query, id, locator)
	if err != nil {
		return fmt.Errorf("mark document generated: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListAwaitingDocument возвращает одобренные заявки без документа,
// решение по которым принято раньше olderThan.
func (r *ApplicationRepo) ListAwaitingDocument(ctx context.Context, olderThan time.Time, limit int) ([]domain.Application, error) {
	query := `
		SELECT ` + applicationColumns + `
		FROM applications
		WHERE status = 'approved'
		  AND NOT document_generated
		  AND processed_at < $1
		ORDER BY processed_at ASC
		LIMIT $2
	`
	rows, err := r.pool.Query(ctx, query, olderThan, limit)
	if err != nil {
		return nil, fmt.Errorf("list awaiting document: %w", err)
	}
	return collectApplications(rows)
}

// --- Helpers ---

// scanApplication сканирует одну строку в Application.
func scanApplication(row pgx.Row) (*domain.Application, error) {
	var app domain.Application
	var documentPath *string

	err := row.Scan(
		&app.ID,
		&app.FullName,
		&app.DateOfBirth,
		&app.Email,
		&app.Phone,
		&app.Profession,
		&app.Address,
		&app.IDNumber,
		&app.IDType,
		&app.Status,
		&app.Summary,
		&app.SubmittedAt,
		&app.ProcessedAt,
		&app.DocumentGenerated,
		&documentPath,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan application: %w", err)
	}

	if documentPath != nil {
		app.DocumentPath = *documentPath
	}
	return &app, nil
}

func collectApplications(rows pgx.Rows) ([]domain.Application, error) {
	defer rows.Close()

	var apps []domain.Application
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, err
		}
		apps = append(apps, *app)
	}
	return apps, rows.Err()
}

// nullString возвращает nil для пустой строки (для NULL в БД).
func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
