package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shaiso/kycdoc/internal/mq"
)

// DefaultStartRetryDelay — пауза между попытками запустить consumer.
const DefaultStartRetryDelay = 5 * time.Second

// Consumer — подписка на очередь задач (реализуется *mq.Consumer).
type Consumer interface {
	Start(ctx context.Context, handler mq.Handler) error
	Stop()
}

// Worker — процесс генерации документов.
//
// Worker пытается запустить consumer до успеха: если брокер недоступен при
// старте, ошибка логируется и попытка повторяется через StartRetryDelay.
// В отличие от Connection.Connect, этот цикл не сдаётся никогда.
// После подписки всё остальное происходит в Consumer: задачи
// обрабатываются по одной, ack после успешной генерации.
type Worker struct {
	consumer        Consumer
	handler         mq.Handler
	startRetryDelay time.Duration
	logger          *slog.Logger

	started    atomic.Bool
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
	stopped    bool
	stoppedMu  sync.RWMutex
}

// Config — конфигурация Worker.
type Config struct {
	// Consumer — подписка на очередь задач.
	Consumer Consumer

	// Handler — обработчик задачи (обычно Generator.Handle).
	Handler mq.Handler

	// StartRetryDelay — пауза между попытками старта (default: 5s).
	StartRetryDelay time.Duration

	Logger *slog.Logger
}

// New создаёт новый Worker.
func New(cfg Config) *Worker {
	delay := cfg.StartRetryDelay
	if delay <= 0 {
		delay = DefaultStartRetryDelay
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Worker{
		consumer:        cfg.Consumer,
		handler:         cfg.Handler,
		startRetryDelay: delay,
		logger:          logger.With("component", "worker"),
	}
}

// Start запускает цикл старта consumer в фоне и сразу возвращает управление.
func (w *Worker) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	w.cancelFunc = cancel

	w.logger.Info("starting worker", "start_retry_delay", w.startRetryDelay)

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.startLoop(ctx)
	}()

	return nil
}

// Stop останавливает цикл старта и consumer, дожидаясь текущей задачи.
func (w *Worker) Stop() {
	w.stoppedMu.Lock()
	w.stopped = true
	w.stoppedMu.Unlock()

	w.logger.Info("stopping worker...")

	if w.cancelFunc != nil {
		w.cancelFunc()
	}

	// Ждём выхода из startLoop, чтобы consumer не стартовал после Stop
	w.wg.Wait()

	w.consumer.Stop()

	w.logger.Info("worker stopped")
}

// IsStopped проверяет, остановлен ли Worker.
func (w *Worker) IsStopped() bool {
	w.stoppedMu.RLock()
	defer w.stoppedMu.RUnlock()
	return w.stopped
}

// Ready возвращает nil, когда consumer подписан на очередь.
func (w *Worker) Ready() error {
	if w.IsStopped() {
		return ErrStopped
	}
	if !w.started.Load() {
		return ErrNotReady
	}
	return nil
}

// startLoop повторяет запуск consumer до успеха или отмены ctx.
func (w *Worker) startLoop(ctx context.Context) {
	for attempt := 1; ; attempt++ {
		err := w.consumer.Start(ctx, w.handler)
		if err == nil {
			w.started.Store(true)
			w.logger.Info("worker started, waiting for tasks", "attempt", attempt)
			return
		}

		if ctx.Err() != nil {
			return
		}

		startFailuresTotal.Inc()
		w.logger.Error("failed to start consumer, retrying",
			"attempt", attempt,
			"retry_in", w.startRetryDelay,
			"error", fmt.Errorf("%w: %w", ErrStartupFailed, err),
		)

		select {
		case <-ctx.Done():
			return
		case <-time.After(w.startRetryDelay):
		}
	}
}
