package mq

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Task — единица работы в очереди: сущность и время постановки.
//
// Формат сообщения:
//
//	{"entityId": "<id>", "timestamp": "<RFC 3339>"}
type Task struct {
	// EntityID — идентификатор сущности, для которой нужен документ.
	EntityID string `json:"entityId"`

	// EnqueuedAt — время постановки в очередь.
	EnqueuedAt time.Time `json:"timestamp"`
}

// NewTask создаёт Task.
func NewTask(entityID string, now time.Time) Task {
	return Task{EntityID: entityID, EnqueuedAt: now.UTC()}
}

// Marshal сериализует Task в тело сообщения.
func (t Task) Marshal() ([]byte, error) {
	if strings.TrimSpace(t.EntityID) == "" {
		return nil, fmt.Errorf("%w: empty entityId", ErrMalformedTask)
	}
	return json.Marshal(t)
}

// ParseTask разбирает тело сообщения.
func ParseTask(body []byte) (Task, error) {
	var t Task
	if err := json.Unmarshal(body, &t); err != nil {
		return Task{}, fmt.Errorf("%w: %w", ErrMalformedTask, err)
	}
	if strings.TrimSpace(t.EntityID) == "" {
		return Task{}, fmt.Errorf("%w: empty entityId", ErrMalformedTask)
	}
	return t, nil
}

// Delivery — доставленное сообщение с методами ack/nack.
type Delivery struct {
	// Task — распарсенная задача.
	Task Task

	// Raw — сырое AMQP сообщение.
	Raw amqp.Delivery
}

// Ack подтверждает успешную обработку сообщения.
func (d *Delivery) Ack() error {
	return d.Raw.Ack(false)
}

// Nack отклоняет сообщение.
// requeue=true — вернуть в очередь, false — отправить в dead letter (или удалить).
func (d *Delivery) Nack(requeue bool) error {
	return d.Raw.Nack(false, requeue)
}
