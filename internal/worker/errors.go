package worker

import "errors"

// Ошибки воркера.
var (
	// ErrStartupFailed — не удалось подписаться на очередь (попытка будет повторена).
	ErrStartupFailed = errors.New("consumer startup failed")

	// ErrNotReady — consumer ещё не подписан на очередь.
	ErrNotReady = errors.New("worker is not ready")

	// ErrStopped — воркер остановлен.
	ErrStopped = errors.New("worker stopped")
)
