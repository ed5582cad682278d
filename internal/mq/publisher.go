package mq

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Publisher ставит задачи в очередь.
//
// Publisher не делает retry: ошибка возвращается вызывающему как ErrPublish,
// и тот решает, повторять ли постановку.
type Publisher struct {
	access   *Accessor
	logger   *slog.Logger
	confirms bool
	now      func() time.Time
}

// PublisherConfig — конфигурация Publisher.
type PublisherConfig struct {
	// Confirms — ждать publisher confirm от брокера.
	Confirms bool

	Logger *slog.Logger
}

// NewPublisher создаёт новый Publisher.
func NewPublisher(access *Accessor, cfg PublisherConfig) *Publisher {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Publisher{
		access:   access,
		logger:   logger.With("component", "mq.publisher"),
		confirms: cfg.Confirms,
		now:      time.Now,
	}
}

// Publish ставит в очередь задачу для сущности entityID.
//
// Сообщение публикуется как persistent и переживает рестарт брокера.
// Любая ошибка оборачивается в ErrPublish.
func (p *Publisher) Publish(ctx context.Context, entityID string) error {
	ctx, span := tracer.Start(ctx, "mq.publish",
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(
			attribute.String("messaging.destination.name", p.access.Queue()),
			attribute.String("kycdoc.entity_id", entityID),
		),
	)
	defer span.End()

	task := NewTask(entityID, p.now())

	if err := p.publish(ctx, task); err != nil {
		publishedTotal.WithLabelValues("error").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())

		p.logger.Error("failed to publish task",
			"queue", p.access.Queue(),
			"entity_id", entityID,
			"error", err,
		)
		return fmt.Errorf("%w: entity %s: %w", ErrPublish, entityID, err)
	}

	publishedTotal.WithLabelValues("ok").Inc()
	p.logger.Info("task published", "queue", p.access.Queue(), "entity_id", entityID)
	return nil
}

func (p *Publisher) publish(ctx context.Context, task Task) error {
	body, err := task.Marshal()
	if err != nil {
		return fmt.Errorf("marshal task: %w", err)
	}

	ch, err := p.access.Channel(ctx)
	if err != nil {
		return fmt.Errorf("get channel: %w", err)
	}
	defer ch.Close()

	var confirms chan amqp.Confirmation
	if p.confirms {
		if err := ch.Confirm(false); err != nil {
			return fmt.Errorf("enable confirms: %w", err)
		}
		confirms = ch.NotifyPublish(make(chan amqp.Confirmation, 1))
	}

	headers := amqp.Table{}
	injectTrace(ctx, headers)

	err = ch.PublishWithContext(
		ctx,
		"",               // default exchange
		p.access.Queue(), // routing key = имя очереди
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent, // сообщение переживёт рестарт RabbitMQ
			MessageId:    uuid.NewString(),
			Timestamp:    task.EnqueuedAt,
			Headers:      headers,
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish to %s: %w", p.access.Queue(), err)
	}

	if confirms == nil {
		return nil
	}

	select {
	case c, ok := <-confirms:
		if !ok {
			return fmt.Errorf("channel closed before confirm")
		}
		if !c.Ack {
			return ErrPublishNacked
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
