package mq

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
)

// RedeliveryCounter считает неудачные обработки сообщения.
type RedeliveryCounter interface {
	// Incr увеличивает счётчик и возвращает новое значение.
	Incr(ctx context.Context, key string) (int64, error)

	// Reset удаляет счётчик.
	Reset(ctx context.Context, key string) error
}

// redeliveryKey возвращает ключ счётчика для доставки.
func redeliveryKey(d amqp.Delivery) string {
	if d.MessageId != "" {
		return d.MessageId
	}
	sum := sha256.Sum256(d.Body)
	return "body:" + hex.EncodeToString(sum[:])
}

// MemoryCounter — счётчик в памяти процесса. Подходит для одного экземпляра воркера.
type MemoryCounter struct {
	mu     sync.Mutex
	counts map[string]int64
}

// NewMemoryCounter создаёт MemoryCounter.
func NewMemoryCounter() *MemoryCounter {
	return &MemoryCounter{counts: make(map[string]int64)}
}

func (c *MemoryCounter) Incr(_ context.Context, key string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts[key]++
	return c.counts[key], nil
}

func (c *MemoryCounter) Reset(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.counts, key)
	return nil
}

// RedisCounter — счётчик в Redis, общий для всех экземпляров воркера.
type RedisCounter struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisCounter создаёт RedisCounter и проверяет доступность Redis.
func NewRedisCounter(ctx context.Context, opts *redis.Options, ttl time.Duration) (*RedisCounter, error) {
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	return &RedisCounter{client: client, prefix: "kycdoc:redelivery:", ttl: ttl}, nil
}

func (c *RedisCounter) Incr(ctx context.Context, key string) (int64, error) {
	k := c.prefix + key

	pipe := c.client.TxPipeline()
	incr := pipe.Incr(ctx, k)
	pipe.Expire(ctx, k, c.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("incr %s: %w", k, err)
	}
	return incr.Val(), nil
}

func (c *RedisCounter) Reset(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, c.prefix+key).Err(); err != nil {
		return fmt.Errorf("del %s: %w", c.prefix+key, err)
	}
	return nil
}

// Close закрывает клиент Redis.
func (c *RedisCounter) Close() error {
	return c.client.Close()
}
