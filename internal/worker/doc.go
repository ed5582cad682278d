// Package worker реализует процесс генерации KYC-документов.
//
// # Архитектура
//
// Worker подписывается на очередь задач через mq.Consumer и передаёт каждую
// задачу в Generator:
//
//	┌──────────┐  Start (retry)  ┌─────────────┐   Task   ┌───────────┐
//	│  Worker  │────────────────►│ mq.Consumer │─────────►│ Generator │
//	└──────────┘                 └─────────────┘          └─────┬─────┘
//	                                                            │
//	                           ┌───────────────┬────────────────┤
//	                           ▼               ▼                ▼
//	                       repo (БД)      render (PDF)     storage (файл)
//
// # Запуск
//
// Если брокер недоступен при старте, Worker не завершается: ошибка
// логируется, и попытка подписки повторяется каждые StartRetryDelay.
//
// # Обработка задачи
//
//  1. Разбор идентификатора и загрузка заявки. Не найдена: ack без работы.
//  2. Заявка не одобрена: ack без работы.
//  3. Рендер PDF, запись в хранилище под именем kyc-<id>.pdf.
//  4. Отметка document_generated и locator в БД.
//
// Ошибка на шагах 3-4 возвращается в Consumer, задача уходит на повтор.
// Все шаги идемпотентны, поэтому повторная доставка безопасна.
package worker
