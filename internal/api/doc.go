// Package api содержит HTTP API сервер.
//
// Структура:
//   - handler.go             — Handler с DI (хранилище заявок, publisher, auth, logger)
//   - routes.go              — регистрация маршрутов, CORS, трассировка
//   - middleware.go          — middleware (logging, metrics, recovery, auth)
//   - response.go            — унифицированные JSON-ответы и обработка ошибок
//   - dto.go                 — Data Transfer Objects (request/response) и валидация
//   - application_handler.go — обработчики для /applications
//   - auth_handler.go        — вход администратора и health
//
// Одобрение заявки ставит задачу генерации документа в очередь; состояние
// документа опрашивается через /document и /pdf.
package api
