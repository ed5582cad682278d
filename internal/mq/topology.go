package mq

import (
	"context"
	"fmt"
	"strings"

	amqp "github.com/rabbitmq/amqp091-go"
)

// DefaultQueue — очередь задач на генерацию документов.
const DefaultQueue = "pdf_generation_queue"

// QueueSpec описывает целевую очередь.
type QueueSpec struct {
	// Name — имя очереди.
	Name string

	// DeadLetter — объявить dead letter exchange и очередь для отклонённых сообщений.
	// Меняет аргументы основной очереди, поэтому включать можно только на новой очереди.
	DeadLetter bool
}

// DeadLetterExchange возвращает имя dead letter exchange для очереди.
func (q QueueSpec) DeadLetterExchange() string {
	return q.Name + ".dlx"
}

// DeadLetterQueue возвращает имя dead letter очереди.
func (q QueueSpec) DeadLetterQueue() string {
	return q.Name + ".dead"
}

func (q QueueSpec) args() amqp.Table {
	if !q.DeadLetter {
		return nil
	}
	return amqp.Table{
		"x-dead-letter-exchange": q.DeadLetterExchange(),
	}
}

// Accessor выдаёт свежий канал с гарантированно объявленной очередью.
//
// Каналы не переиспользуются: каждый вызов Channel открывает новый,
// вызывающий закрывает его сам.
type Accessor struct {
	conn  *Connection
	queue QueueSpec
}

// NewAccessor создаёт Accessor для очереди.
func NewAccessor(conn *Connection, queue QueueSpec) *Accessor {
	if queue.Name == "" {
		queue.Name = DefaultQueue
	}
	return &Accessor{conn: conn, queue: queue}
}

// Queue возвращает имя очереди.
func (a *Accessor) Queue() string {
	return a.queue.Name
}

// Spec возвращает описание очереди.
func (a *Accessor) Spec() QueueSpec {
	return a.queue
}

// Channel открывает канал через Connection и объявляет очередь.
func (a *Accessor) Channel(ctx context.Context) (Channel, error) {
	ch, err := a.conn.Channel(ctx)
	if err != nil {
		return nil, err
	}

	if err := DeclareQueue(ch, a.queue); err != nil {
		ch.Close()
		return nil, err
	}

	return ch, nil
}

// DeclareQueue идемпотентно объявляет durable очередь (и dead letter топологию, если включена).
func DeclareQueue(ch Channel, q QueueSpec) error {
	if q.DeadLetter {
		err := ch.ExchangeDeclare(
			q.DeadLetterExchange(), // name
			"fanout",               // type
			true,                   // durable
			false,                  // auto-deleted
			false,                  // internal
			false,                  // no-wait
			nil,                    // arguments
		)
		if err != nil {
			return fmt.Errorf("declare exchange %s: %w", q.DeadLetterExchange(), err)
		}

		if _, err := ch.QueueDeclare(q.DeadLetterQueue(), true, false, false, false, nil); err != nil {
			return fmt.Errorf("declare queue %s: %w", q.DeadLetterQueue(), err)
		}

		if err := ch.QueueBind(q.DeadLetterQueue(), "", q.DeadLetterExchange(), false, nil); err != nil {
			return fmt.Errorf("bind queue %s to %s: %w", q.DeadLetterQueue(), q.DeadLetterExchange(), err)
		}
	}

	_, err := ch.QueueDeclare(
		q.Name,   // name
		true,     // durable
		false,    // delete when unused
		false,    // exclusive
		false,    // no-wait
		q.args(), // arguments
	)
	if err != nil {
		return fmt.Errorf("declare queue %s: %w", q.Name, err)
	}

	return nil
}

// TopologyInfo возвращает описание топологии для логирования.
func TopologyInfo(q QueueSpec) string {
	var b strings.Builder
	b.WriteString("(default exchange)\n")
	fmt.Fprintf(&b, "└── %s [durable]\n", q.Name)
	b.WriteString("        Consumer: kycdoc-worker (prefetch 1)\n")
	if q.DeadLetter {
		fmt.Fprintf(&b, "%s (fanout)\n", q.DeadLetterExchange())
		fmt.Fprintf(&b, "└── %s [durable]\n", q.DeadLetterQueue())
		b.WriteString("        Manual processing\n")
	}
	return b.String()
}
