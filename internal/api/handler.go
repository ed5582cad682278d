package api

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/kycdoc/internal/auth"
	"github.com/shaiso/kycdoc/internal/domain"
	"github.com/shaiso/kycdoc/internal/repo"
	"github.com/shaiso/kycdoc/internal/summary"
)

// ApplicationStore — операции над заявками, нужные API (реализуется *repo.ApplicationRepo).
type ApplicationStore interface {
	Create(ctx context.Context, app *domain.Application) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Application, error)
	List(ctx context.Context, filter repo.ApplicationFilter) ([]domain.Application, error)
	SetStatus(ctx context.Context, id uuid.UUID, status domain.ApplicationStatus, at time.Time) (*domain.Application, error)
}

// TaskPublisher ставит задачу генерации документа в очередь (реализуется *mq.Publisher).
type TaskPublisher interface {
	Publish(ctx context.Context, entityID string) error
}

// Authenticator — вход администратора и проверка токена (реализуется *auth.Service).
type Authenticator interface {
	Login(ctx context.Context, username, password string) (*auth.LoginResult, error)
	Verify(token string) (*auth.Claims, error)
}

// DocumentOpener открывает сохранённый документ по locator.
type DocumentOpener interface {
	Open(ctx context.Context, locator string) (io.ReadCloser, error)
}

// Handler — главный обработчик API с зависимостями.
type Handler struct {
	apps      ApplicationStore
	publisher TaskPublisher
	auth      Authenticator
	summaries summary.Generator
	documents DocumentOpener
	ready     func() error
	origins   []string
	timeout   time.Duration
	now       func() time.Time
	logger    *slog.Logger
}

// Config — конфигурация для создания Handler.
type Config struct {
	Applications ApplicationStore
	Publisher    TaskPublisher
	Auth         Authenticator
	Summaries    summary.Generator
	Documents    DocumentOpener

	// Ready — проверка готовности для /healthz (nil — всегда готов).
	Ready func() error

	// AllowedOrigins — разрешённые CORS origins (пусто — любые).
	AllowedOrigins []string

	// PublishTimeout — сколько ждать постановки задачи при одобрении (0 — без ограничения).
	PublishTimeout time.Duration

	Logger *slog.Logger
}

// NewHandler создаёт новый Handler.
func NewHandler(cfg Config) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	summaries := cfg.Summaries
	if summaries == nil {
		summaries = summary.StaticGenerator{}
	}
	return &Handler{
		apps:      cfg.Applications,
		publisher: cfg.Publisher,
		auth:      cfg.Auth,
		summaries: summaries,
		documents: cfg.Documents,
		ready:     cfg.Ready,
		origins:   cfg.AllowedOrigins,
		timeout:   cfg.PublishTimeout,
		now:       time.Now,
		logger:    logger,
	}
}
