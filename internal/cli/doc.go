// Package cli реализует инструмент командной строки kycdoc.
//
// # Обзор
//
// CLI — клиентская утилита для администратора KYC заявок.
// Работает через HTTP, не импортирует внутренние пакеты системы.
//
// # Ключевые компоненты
//
// ## Client
//
// HTTP-клиент для kycdoc API. Инкапсулирует все HTTP-запросы,
// парсинг ответов (DataResponse, ListResponse, ErrorResponse),
// Bearer токен и обработку ошибок (APIError).
//
//	client := cli.NewClient("http://localhost:3001", token)
//	apps, err := client.ListApplications(cli.ListApplicationsOpts{Status: "pending"})
//
// ## Output
//
// Форматирование вывода. Поддерживает два режима:
//   - Таблицы (text/tabwriter) — по умолчанию, статусы раскрашены fatih/color
//   - JSON — с флагом --json
//
// Данные выводятся в stdout, сообщения (Success/Warn/Error) — в stderr.
//
// ## Commands
//
//   - login: вход администратора, токен сохраняется в файл
//   - applications: list, show, approve, reject, status, download
package cli
