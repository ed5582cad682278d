package reconciler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/robfig/cron/v3"
	"github.com/shaiso/kycdoc/internal/domain"
)

const (
	// DefaultSchedule — расписание тиков по умолчанию.
	DefaultSchedule = "@every 1m"

	// DefaultGrace — сколько ждать после одобрения, прежде чем считать задачу потерянной.
	DefaultGrace = 2 * time.Minute

	defaultBatchSize = 100
)

// cronParser — парсер расписания: 5 полей или дескрипторы (@every, @hourly).
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

var republishedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "kycdoc_reconciler_republished_total",
	Help: "Total number of document tasks republished by the reconciler",
}, []string{"result"})

// Store — заявки, ожидающие документ (реализуется *repo.ApplicationRepo).
type Store interface {
	ListAwaitingDocument(ctx context.Context, olderThan time.Time, limit int) ([]domain.Application, error)
}

// Publisher ставит задачу генерации в очередь (реализуется *mq.Publisher).
type Publisher interface {
	Publish(ctx context.Context, entityID string) error
}

// Reconciler повторно публикует задачи для одобренных заявок без документа.
type Reconciler struct {
	apps      Store
	publisher Publisher
	schedule  cron.Schedule
	grace     time.Duration
	batchSize int
	now       func() time.Time
	logger    *slog.Logger

	mu   sync.Mutex
	cron *cron.Cron
}

// Config — конфигурация Reconciler.
type Config struct {
	Applications Store
	Publisher    Publisher

	// Schedule — cron-выражение или дескриптор (default: "@every 1m").
	Schedule string

	// Grace — минимальный возраст одобрения (default: 2m).
	Grace time.Duration

	// BatchSize — сколько заявок обрабатывать за тик (default: 100).
	BatchSize int

	Logger *slog.Logger
}

// New создаёт Reconciler. Возвращает ошибку, если расписание невалидно.
func New(cfg Config) (*Reconciler, error) {
	expr := cfg.Schedule
	if expr == "" {
		expr = DefaultSchedule
	}
	schedule, err := cronParser.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid reconciler schedule %q: %w", expr, err)
	}

	grace := cfg.Grace
	if grace <= 0 {
		grace = DefaultGrace
	}
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Reconciler{
		apps:      cfg.Applications,
		publisher: cfg.Publisher,
		schedule:  schedule,
		grace:     grace,
		batchSize: batchSize,
		now:       time.Now,
		logger:    logger.With("component", "reconciler"),
	}, nil
}

// Start запускает тики по расписанию. Тик не запускается, пока идёт предыдущий.
func (r *Reconciler) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cron != nil {
		return
	}

	cl := cronLogger{r.logger}
	c := cron.New(
		cron.WithParser(cronParser),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	c.Schedule(r.schedule, cron.FuncJob(func() {
		if _, err := r.Tick(ctx); err != nil {
			r.logger.Error("reconciler tick failed", "error", err)
		}
	}))
	c.Start()
	r.cron = c

	r.logger.Info("reconciler started", "grace", r.grace)
}

// Stop останавливает расписание и ждёт завершения текущего тика.
func (r *Reconciler) Stop() {
	r.mu.Lock()
	c := r.cron
	r.cron = nil
	r.mu.Unlock()

	if c == nil {
		return
	}
	<-c.Stop().Done()
	r.logger.Info("reconciler stopped")
}

// Tick выполняет один проход:
//
// 1. Находит одобренные заявки без документа, одобренные раньше now-grace
// 2. Публикует для каждой задачу генерации
//
// Ошибка публикации одной заявки не блокирует остальные. Возвращает
// число опубликованных задач. Дубликаты безопасны: обработка идемпотентна.
func (r *Reconciler) Tick(ctx context.Context) (int, error) {
	olderThan := r.now().Add(-r.grace)

	apps, err := r.apps.ListAwaitingDocument(ctx, olderThan, r.batchSize)
	if err != nil {
		return 0, fmt.Errorf("list applications awaiting document: %w", err)
	}
	if len(apps) == 0 {
		return 0, nil
	}

	var published int
	for i := range apps {
		id := apps[i].ID.String()
		if err := r.publisher.Publish(ctx, id); err != nil {
			republishedTotal.WithLabelValues("error").Inc()
			r.logger.Error("failed to republish document task",
				"entity_id", id,
				"error", err,
			)
			continue
		}
		republishedTotal.WithLabelValues("ok").Inc()
		published++
	}

	r.logger.Info("reconciler tick completed",
		"awaiting", len(apps),
		"republished", published,
	)
	return published, nil
}

// cronLogger пишет события cron в slog.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error(msg, append(keysAndValues, "error", err)...)
}
