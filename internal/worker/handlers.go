package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/shaiso/kycdoc/internal/domain"
	"github.com/shaiso/kycdoc/internal/mq"
	"github.com/shaiso/kycdoc/internal/repo"
	"github.com/shaiso/kycdoc/internal/telemetry"
)

// ApplicationStore — заявки, с которыми работает Generator.
type ApplicationStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Application, error)
	MarkDocumentGenerated(ctx context.Context, id uuid.UUID, locator string) error
}

// Renderer рисует документ заявки.
type Renderer interface {
	Render(app *domain.Application) ([]byte, error)
}

// DocumentStore сохраняет документ и возвращает его locator.
type DocumentStore interface {
	Put(ctx context.Context, name string, data []byte) (string, error)
}

// Generator — обработчик задачи генерации документа.
//
// Обработка идемпотентна: документ пишется под детерминированным именем
// с перезаписью, флаг и locator выставляются одним UPDATE. Повторная
// доставка той же задачи даёт тот же результат.
type Generator struct {
	apps     ApplicationStore
	renderer Renderer
	store    DocumentStore
	logger   *slog.Logger
}

// GeneratorConfig — конфигурация Generator.
type GeneratorConfig struct {
	Applications ApplicationStore
	Renderer     Renderer
	Store        DocumentStore
	Logger       *slog.Logger
}

// NewGenerator создаёт Generator.
func NewGenerator(cfg GeneratorConfig) *Generator {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{
		apps:     cfg.Applications,
		renderer: cfg.Renderer,
		store:    cfg.Store,
		logger:   logger.With("component", "generator"),
	}
}

// Handle генерирует документ для заявки из задачи.
//
// Возвращает nil (ack), если генерация выполнена или не нужна: заявка не
// найдена или не одобрена. Ошибка после проверки статуса возвращается
// наверх, и задача будет доставлена повторно.
func (g *Generator) Handle(ctx context.Context, task mq.Task) error {
	logger := telemetry.WithEntityID(g.logger, task.EntityID)

	id, err := uuid.Parse(task.EntityID)
	if err != nil {
		logger.Error("application not found: invalid id", "error", err)
		return nil
	}

	app, err := g.apps.GetByID(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		logger.Error("application not found")
		return nil
	}
	if err != nil {
		return fmt.Errorf("get application %s: %w", id, err)
	}

	if !app.IsApproved() {
		logger.Info("application is not approved, skipping document generation", "status", app.Status)
		return nil
	}

	logger.Info("processing document task")

	data, err := g.renderer.Render(app)
	if err != nil {
		return fmt.Errorf("render application %s: %w", id, err)
	}

	locator, err := g.store.Put(ctx, domain.DocumentName(id), data)
	if err != nil {
		return fmt.Errorf("store document for %s: %w", id, err)
	}

	err = g.apps.MarkDocumentGenerated(ctx, id, locator)
	if errors.Is(err, repo.ErrNotFound) {
		logger.Warn("application deleted or no longer approved during generation", "locator", locator)
		return nil
	}
	if err != nil {
		return fmt.Errorf("mark document generated for %s: %w", id, err)
	}

	documentsGenerated.Inc()
	logger.Info("document generated", "locator", locator, "size", len(data))
	return nil
}
