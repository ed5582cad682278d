// kycdoc-api — HTTP API приёма и модерации KYC заявок.
//
// API:
//   - Принимает заявки и генерирует описание заявителя
//   - Даёт администратору вход, список заявок и решения
//   - При одобрении ставит задачу генерации документа в RabbitMQ
//   - Отдаёт статус и сам PDF документ
//
// Конфигурация читается из KYCDOC_CONFIG (YAML) и переменных окружения.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/shaiso/kycdoc/internal/api"
	"github.com/shaiso/kycdoc/internal/auth"
	"github.com/shaiso/kycdoc/internal/config"
	"github.com/shaiso/kycdoc/internal/mq"
	"github.com/shaiso/kycdoc/internal/reconciler"
	"github.com/shaiso/kycdoc/internal/repo"
	"github.com/shaiso/kycdoc/internal/storage"
	"github.com/shaiso/kycdoc/internal/summary"
	"github.com/shaiso/kycdoc/internal/telemetry"
)

func main() {
	cfg, err := config.Load(os.Getenv("KYCDOC_CONFIG"))
	if err != nil {
		telemetry.SetupLogger("info", "json").Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Инициализируем structured logging
	logger := telemetry.SetupLogger(cfg.Log.Level, cfg.Log.Format)
	logger.Info("starting kycdoc-api")

	// graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	shutdownTracer, err := telemetry.InitTracer(ctx, telemetry.TracingConfig{
		Enabled:     cfg.Tracing.Enabled,
		Endpoint:    cfg.Tracing.Endpoint,
		ServiceName: cfg.Tracing.ServiceName + "-api",
	})
	if err != nil {
		logger.Error("failed to init tracing", "error", err)
		os.Exit(1)
	}
	defer shutdownTracer(context.Background())

	// Подключаемся к базе данных
	pool, err := repo.NewPool(ctx, cfg.Database.URL)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	logger.Info("connected to database")

	if err := repo.Migrate(ctx, pool); err != nil {
		logger.Error("failed to apply migrations", "error", err)
		os.Exit(1)
	}

	// Создаём репозитории
	appRepo := repo.NewApplicationRepo(pool)
	adminRepo := repo.NewAdminRepo(pool)

	// Аутентификация
	tokens, err := auth.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	if err != nil {
		logger.Error("failed to init token service", "error", err)
		os.Exit(1)
	}
	authService := auth.NewService(adminRepo, tokens, logger)
	if err := authService.EnsureAdmin(ctx, cfg.Auth.AdminUsername, cfg.Auth.AdminPassword); err != nil {
		logger.Error("failed to ensure admin", "error", err)
		os.Exit(1)
	}

	// Описание заявителя: Gemini с запасным статическим текстом
	var summaries summary.Generator = summary.StaticGenerator{}
	if cfg.Summary.GeminiAPIKey != "" {
		gemini, err := summary.NewGeminiGenerator(ctx, summary.GeminiConfig{
			APIKey:  cfg.Summary.GeminiAPIKey,
			Model:   cfg.Summary.Model,
			Timeout: cfg.Summary.Timeout,
			Logger:  logger,
		})
		if err != nil {
			logger.Warn("gemini unavailable, using static summaries", "error", err)
		} else {
			summaries = summary.Fallback{Primary: gemini, Secondary: summary.StaticGenerator{}, Logger: logger}
		}
	}

	// Хранилище документов
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

	// RabbitMQ: подключаемся в фоне, API доступно и без брокера
	mqConn := mq.NewConnection(mq.Config{
		URL:             cfg.Broker.URL,
		ConnectAttempts: cfg.Broker.ConnectAttempts,
		RetryDelay:      cfg.Broker.RetryDelay,
		FailFast:        !cfg.Broker.WaitForConnection,
		Logger:          logger,
	})
	defer mqConn.Close()

	go func() {
		if err := mqConn.Connect(ctx); err != nil {
			logger.Warn("RabbitMQ not available, approvals will be retried", "error", err)
			return
		}
		logger.Info("RabbitMQ connected")
	}()

	access := mq.NewAccessor(mqConn, mq.QueueSpec{
		Name:       cfg.Broker.Queue,
		DeadLetter: cfg.Worker.MaxRedeliveries > 0,
	})
	publisher := mq.NewPublisher(access, mq.PublisherConfig{
		Confirms: cfg.Broker.PublisherConfirms,
		Logger:   logger,
	})

	// Повторная публикация задач, потерянных при недоступном брокере
	if cfg.Reconciler.Enabled {
		rec, err := reconciler.New(reconciler.Config{
			Applications: appRepo,
			Publisher:    publisher,
			Schedule:     cfg.Reconciler.Schedule,
			Grace:        cfg.Reconciler.Grace,
			BatchSize:    cfg.Reconciler.BatchSize,
			Logger:       logger,
		})
		if err != nil {
			logger.Error("failed to create reconciler", "error", err)
			os.Exit(1)
		}
		rec.Start(ctx)
		defer rec.Stop()
	}

	// Создаём API handler
	handler := api.NewHandler(api.Config{
		Applications:   appRepo,
		Publisher:      publisher,
		Auth:           authService,
		Summaries:      summaries,
		Documents:      documents,
		Ready:          func() error { return pool.Ping(ctx) },
		AllowedOrigins: cfg.Server.AllowedOrigins,
		PublishTimeout: cfg.Server.PublishTimeout,
		Logger:         logger,
	})

	logger.Info("listening", "addr", cfg.Server.Addr, "queue", access.Queue())
	if err := telemetry.Serve(ctx, cfg.Server.Addr, handler.Routes()); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}

	logger.Info("kycdoc-api stopped")
}
