// Package telemetry обеспечивает наблюдаемость системы.
//
// Включает:
//   - logging.go — structured logging через slog
//   - tracing.go — OpenTelemetry, экспорт по OTLP HTTP
//   - ops.go — /healthz и /metrics (Prometheus), graceful HTTP сервер
//
// Все сервисы используют единый формат логирования
// и экспортируют метрики на /metrics endpoint.
package telemetry
