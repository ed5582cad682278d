// kycdoc-worker — генерирует PDF документы одобренных заявок.
//
// Worker:
//   - Получает задачи из RabbitMQ по одной (prefetch 1)
//   - Рендерит документ и сохраняет его в хранилище
//   - Отмечает заявку как обработанную
//   - Ошибки возвращают задачу в очередь
//
// Workers масштабируются горизонтально.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/shaiso/kycdoc/internal/config"
	"github.com/shaiso/kycdoc/internal/mq"
	"github.com/shaiso/kycdoc/internal/render"
	"github.com/shaiso/kycdoc/internal/repo"
	"github.com/shaiso/kycdoc/internal/storage"
	"github.com/shaiso/kycdoc/internal/telemetry"
	"github.com/shaiso/kycdoc/internal/worker"
)

func main() {
	cfg, err := config.Load(os.Getenv("KYCDOC_CONFIG"))
	if err != nil {
		telemetry.SetupLogger("info", "json").Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Инициализируем structured logging
	logger := telemetry.SetupLogger(cfg.Log.Level, cfg.Log.Format)
	logger.Info("starting kycdoc-worker")

	// graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	shutdownTracer, err := telemetry.InitTracer(ctx, telemetry.TracingConfig{
		Enabled:     cfg.Tracing.Enabled,
		Endpoint:    cfg.Tracing.Endpoint,
		ServiceName: cfg.Tracing.ServiceName + "-worker",
	})
	if err != nil {
		logger.Error("failed to init tracing", "error", err)
		os.Exit(1)
	}
	defer shutdownTracer(context.Background())

	// DB pool
	pool, err := repo.NewPool(ctx, cfg.Database.URL)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	logger.Info("database connected")

	if err := repo.Migrate(ctx, pool); err != nil {
		logger.Error("failed to apply migrations", "error", err)
		os.Exit(1)
	}

	documents, closeStore, err := storage.New(ctx, storage.Config{
		Driver: cfg.Storage.Driver,
		Dir:    cfg.Storage.Dir,
		Bucket: cfg.Storage.Bucket,
	})
	if err != nil {
		logger.Error("failed to open document storage", "error", err)
		os.Exit(1)
	}
	defer closeStore()

	// Счётчик повторных доставок: Redis общий для всех workers
	var counter mq.RedeliveryCounter
	if cfg.Worker.MaxRedeliveries > 0 && cfg.Redis.Addr != "" {
		rc, err := mq.NewRedisCounter(ctx, &redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}, 24*time.Hour)
		if err != nil {
			logger.Warn("redis not available, counting redeliveries in memory", "error", err)
		} else {
			defer rc.Close()
			counter = rc
		}
	}

	// RabbitMQ
	mqConn := mq.NewConnection(mq.Config{
		URL:             cfg.Broker.URL,
		ConnectAttempts: cfg.Broker.ConnectAttempts,
		RetryDelay:      cfg.Broker.RetryDelay,
		FailFast:        !cfg.Broker.WaitForConnection,
		Logger:          logger,
	})
	defer mqConn.Close()

	access := mq.NewAccessor(mqConn, mq.QueueSpec{
		Name:       cfg.Broker.Queue,
		DeadLetter: cfg.Worker.MaxRedeliveries > 0,
	})
	consumer := mq.NewConsumer(access, mq.ConsumerConfig{
		HandlerTimeout:  cfg.Worker.HandlerTimeout,
		MaxRedeliveries: cfg.Worker.MaxRedeliveries,
		Counter:         counter,
		Logger:          logger,
	})

	generator := worker.NewGenerator(worker.GeneratorConfig{
		Applications: repo.NewApplicationRepo(pool),
		Renderer:     render.NewPDFRenderer(),
		Store:        documents,
		Logger:       logger,
	})

	// Создаём worker
	w := worker.New(worker.Config{
		Consumer:        consumer,
		Handler:         generator.Handle,
		StartRetryDelay: cfg.Worker.StartRetryDelay,
		Logger:          logger,
	})

	// Запускаем worker: подписка повторяется, пока брокер не станет доступен
	if err := w.Start(ctx); err != nil {
		logger.Error("failed to start worker", "error", err)
		os.Exit(1)
	}
	logger.Info("worker started", "queue", access.Queue(), "dead_letter", access.Spec().DeadLetter)
	logger.Debug("queue topology\n" + mq.TopologyInfo(access.Spec()))

	// HTTP mux: /healthz + /metrics
	ready := func() error {
		if err := w.Ready(); err != nil {
			return err
		}
		if !mqConn.IsConnected() {
			return errors.New("broker " + mqConn.State().String())
		}
		return nil
	}

	go func() {
		logger.Info("listening", "addr", cfg.Worker.OpsAddr)
		if err := telemetry.Serve(ctx, cfg.Worker.OpsAddr, telemetry.NewOpsMux(ready)); err != nil {
			logger.Error("http server error", "error", err)
			cancel()
		}
	}()

	// Ожидаем сигнал завершения
	<-ctx.Done()

	// Останавливаем worker
	w.Stop()
	logger.Info("kycdoc-worker stopped")
}
