package mq

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Prefetch — не более одного неподтверждённого сообщения на consumer.
const Prefetch = 1

const defaultResubscribeDelay = 5 * time.Second

// Handler — функция обработки задачи.
// Возвращает error, если обработка не удалась (сообщение будет nack с requeue).
// Обработчик должен быть идемпотентным: после падения между обработкой и ack
// сообщение будет доставлено повторно.
type Handler func(ctx context.Context, task Task) error

// ConsumerConfig — конфигурация Consumer.
type ConsumerConfig struct {
	// Tag — consumer tag (пусто — сгенерирует брокер).
	Tag string

	// HandlerTimeout — таймаут одного вызова обработчика (0 — без таймаута).
	HandlerTimeout time.Duration

	// MaxRedeliveries — после скольких повторных доставок сообщение уходит
	// в dead letter (0 — всегда requeue).
	MaxRedeliveries int

	// Counter — счётчик повторных доставок (default: MemoryCounter).
	Counter RedeliveryCounter

	// ResubscribeDelay — пауза между попытками переподписки после разрыва (default: 5s).
	ResubscribeDelay time.Duration

	Logger *slog.Logger
}

// Consumer потребляет задачи из очереди по одной.
type Consumer struct {
	access           *Accessor
	logger           *slog.Logger
	tag              string
	handlerTimeout   time.Duration
	maxRedeliveries  int
	counter          RedeliveryCounter
	resubscribeDelay time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// subscription — канал и поток доставок одной подписки.
type subscription struct {
	ch         Channel
	deliveries <-chan amqp.Delivery
}

// NewConsumer создаёт новый Consumer.
func NewConsumer(access *Accessor, cfg ConsumerConfig) *Consumer {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	counter := cfg.Counter
	if counter == nil && cfg.MaxRedeliveries > 0 {
		counter = NewMemoryCounter()
	}

	delay := cfg.ResubscribeDelay
	if delay <= 0 {
		delay = defaultResubscribeDelay
	}

	return &Consumer{
		access:           access,
		logger:           logger.With("component", "mq.consumer"),
		tag:              cfg.Tag,
		handlerTimeout:   cfg.HandlerTimeout,
		maxRedeliveries:  cfg.MaxRedeliveries,
		counter:          counter,
		resubscribeDelay: delay,
	}
}

// Start подписывается на очередь и запускает цикл обработки в фоне.
//
// Возвращает ошибку, если подписку установить не удалось. После успешного
// старта разрыв соединения обрабатывается внутри: consumer переподписывается
// сам, как только Connection восстановит соединение.
func (c *Consumer) Start(ctx context.Context, handler Handler) error {
	c.mu.Lock()
	running := c.cancel != nil
	c.mu.Unlock()
	if running {
		return ErrConsumerRunning
	}

	sub, err := c.subscribe(ctx)
	if err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	c.mu.Lock()
	c.cancel = cancel
	c.done = done
	c.mu.Unlock()

	go c.run(runCtx, sub, handler, done)

	c.logger.Info("consumer started, waiting for tasks", "queue", c.access.Queue(), "prefetch", Prefetch)
	return nil
}

// Stop останавливает consumer и ждёт завершения текущей обработки.
func (c *Consumer) Stop() {
	c.mu.Lock()
	cancel, done := c.cancel, c.done
	c.cancel, c.done = nil, nil
	c.mu.Unlock()

	if cancel == nil {
		return
	}

	cancel()
	<-done
}

// subscribe открывает канал, выставляет prefetch и начинает потребление.
func (c *Consumer) subscribe(ctx context.Context) (*subscription, error) {
	ch, err := c.access.Channel(ctx)
	if err != nil {
		return nil, fmt.Errorf("get channel: %w", err)
	}

	if err := ch.Qos(Prefetch, 0, false); err != nil {
		ch.Close()
		return nil, fmt.Errorf("set qos: %w", err)
	}

	deliveries, err := ch.Consume(
		c.access.Queue(), // queue
		c.tag,            // consumer tag
		false,            // auto-ack (ack вручную после обработки)
		false,            // exclusive
		false,            // no-local
		false,            // no-wait
		nil,              // args
	)
	if err != nil {
		ch.Close()
		return nil, fmt.Errorf("consume: %w", err)
	}

	return &subscription{ch: ch, deliveries: deliveries}, nil
}

// run обрабатывает доставки и переподписывается после разрыва.
func (c *Consumer) run(ctx context.Context, sub *subscription, handler Handler, done chan struct{}) {
	defer close(done)

	for {
		c.process(ctx, sub.deliveries, handler)
		sub.ch.Close()

		if ctx.Err() != nil {
			c.logger.Info("consumer stopped", "queue", c.access.Queue())
			return
		}

		c.logger.Warn("deliveries channel closed, resubscribing", "queue", c.access.Queue())

		sub = c.resubscribe(ctx)
		if sub == nil {
			return
		}
	}
}

// resubscribe повторяет подписку до успеха или отмены ctx.
func (c *Consumer) resubscribe(ctx context.Context) *subscription {
	for {
		sub, err := c.subscribe(ctx)
		if err == nil {
			c.logger.Info("consumer resubscribed", "queue", c.access.Queue())
			return sub
		}
		if ctx.Err() != nil {
			return nil
		}

		c.logger.Error("failed to resubscribe",
			"queue", c.access.Queue(),
			"retry_in", c.resubscribeDelay,
			"error", err,
		)

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(c.resubscribeDelay):
		}
	}
}

// process — однопоточный цикл обработки. Доставки проходят через inbox
// ёмкостью Prefetch, поэтому в работе всегда не больше одной задачи.
func (c *Consumer) process(ctx context.Context, deliveries <-chan amqp.Delivery, handler Handler) {
	pumpCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	inbox := make(chan amqp.Delivery, Prefetch)
	go pump(pumpCtx, deliveries, inbox)

	for {
		select {
		case <-ctx.Done():
			return
		case raw, ok := <-inbox:
			if !ok {
				return
			}
			c.handle(ctx, raw, handler)
		}
	}
}

// pump перекладывает доставки брокера в inbox.
func pump(ctx context.Context, src <-chan amqp.Delivery, dst chan<- amqp.Delivery) {
	defer close(dst)
	for {
		select {
		case <-ctx.Done():
			return
		case d, ok := <-src:
			if !ok {
				return
			}
			select {
			case dst <- d:
			case <-ctx.Done():
				return
			}
		}
	}
}

// handle обрабатывает одно сообщение: ack при успехе, nack иначе.
func (c *Consumer) handle(ctx context.Context, raw amqp.Delivery, handler Handler) {
	ctx = extractTrace(ctx, raw.Headers)
	ctx, span := tracer.Start(ctx, "mq.consume",
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			attribute.String("messaging.destination.name", c.access.Queue()),
			attribute.String("messaging.message.id", raw.MessageId),
			attribute.Bool("kycdoc.redelivered", raw.Redelivered),
		),
	)
	defer span.End()

	task, err := ParseTask(raw.Body)
	if err != nil {
		c.logger.Error("failed to parse task",
			"queue", c.access.Queue(),
			"message_id", raw.MessageId,
			"error", err,
			"body", string(raw.Body),
		)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.reject(ctx, &Delivery{Raw: raw})
		return
	}

	d := &Delivery{Task: task, Raw: raw}
	span.SetAttributes(attribute.String("kycdoc.entity_id", task.EntityID))

	c.logger.Debug("received task",
		"queue", c.access.Queue(),
		"message_id", raw.MessageId,
		"entity_id", task.EntityID,
		"redelivered", raw.Redelivered,
	)

	if err := c.invoke(ctx, handler, task); err != nil {
		c.logger.Error("handler failed",
			"queue", c.access.Queue(),
			"message_id", raw.MessageId,
			"entity_id", task.EntityID,
			"error", err,
		)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.reject(ctx, d)
		return
	}

	if err := d.Ack(); err != nil {
		c.logger.Warn("ack failed", "entity_id", task.EntityID, "error", err)
		return
	}
	deliveriesTotal.WithLabelValues("ack").Inc()

	if c.maxRedeliveries > 0 {
		if err := c.counter.Reset(ctx, redeliveryKey(raw)); err != nil {
			c.logger.Debug("failed to reset redelivery counter", "error", err)
		}
	}
}

// invoke вызывает обработчик с таймаутом и перехватом паники.
func (c *Consumer) invoke(ctx context.Context, handler Handler, task Task) (err error) {
	if c.handlerTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.handlerTimeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()

	return handler(ctx, task)
}

// reject возвращает сообщение в очередь либо, если лимит повторов исчерпан,
// отклоняет его без requeue (в dead letter).
func (c *Consumer) reject(ctx context.Context, d *Delivery) {
	requeue := true

	if c.maxRedeliveries > 0 {
		key := redeliveryKey(d.Raw)
		n, err := c.counter.Incr(ctx, key)
		switch {
		case err != nil:
			c.logger.Warn("failed to count redelivery, requeueing", "error", err)
		case n > int64(c.maxRedeliveries):
			requeue = false
			if err := c.counter.Reset(ctx, key); err != nil {
				c.logger.Debug("failed to reset redelivery counter", "error", err)
			}
		}
	}

	if err := d.Nack(requeue); err != nil {
		c.logger.Warn("nack failed", "message_id", d.Raw.MessageId, "error", err)
		return
	}

	if requeue {
		deliveriesTotal.WithLabelValues("requeued").Inc()
		return
	}

	deliveriesTotal.WithLabelValues("dead_lettered").Inc()
	c.logger.Warn("message dead-lettered",
		"queue", c.access.Queue(),
		"message_id", d.Raw.MessageId,
		"max_redeliveries", c.maxRedeliveries,
	)
}
