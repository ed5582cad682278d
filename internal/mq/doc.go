// Package mq предоставляет инфраструктуру асинхронной доставки задач через RabbitMQ.
//
// Структура:
//   - broker.go     — минимальные интерфейсы Conn/Channel и адаптер над amqp091-go
//   - connection.go — менеджер соединения (bounded connect, фоновый reconnect, shutdown)
//   - topology.go   — Accessor: свежий канал + идемпотентное объявление durable очереди
//   - message.go    — Task и формат сообщения {entityId, timestamp}
//   - publisher.go  — публикация задач (persistent, publisher confirms)
//   - consumer.go   — потребление с prefetch=1, ack/nack по результату обработчика
//   - redelivery.go — счётчики повторных доставок (память, Redis)
//   - metrics.go    — Prometheus метрики
//   - tracing.go    — передача trace context через AMQP headers
//
// Очередь:
//   - pdf_generation_queue (durable) — задачи на генерацию документа
//   - pdf_generation_queue.dead      — dead letter, только при max_redeliveries > 0
package mq
