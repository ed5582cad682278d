// Package storage хранит сгенерированные документы.
//
// Реализации:
//   - LocalStore — каталог на диске, атомарная перезапись через rename
//   - GCSStore — бакет Google Cloud Storage
//
// Locator, который возвращает Put, сохраняется в заявке и по нему же
// документ открывается для скачивания.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
)

// ErrNotFound — документ по locator не найден.
var ErrNotFound = errors.New("document not found")

// Store — хранилище документов.
type Store interface {
	// Put сохраняет документ под именем name, перезаписывая существующий.
	// Возвращает locator сохранённого документа.
	Put(ctx context.Context, name string, data []byte) (string, error)

	// Open открывает документ по locator.
	Open(ctx context.Context, locator string) (io.ReadCloser, error)
}

// Config — выбор и настройка хранилища.
type Config struct {
	// Driver — "local" (default) или "gcs".
	Driver string

	// Dir — каталог для local.
	Dir string

	// Bucket — бакет для gcs.
	Bucket string
}

// New создаёт хранилище по конфигурации. Возвращённый close освобождает ресурсы.
func New(ctx context.Context, cfg Config) (Store, func() error, error) {
	switch cfg.Driver {
	case "", "local":
		s, err := NewLocalStore(cfg.Dir)
		if err != nil {
			return nil, nil, err
		}
		return s, func() error { return nil }, nil
	case "gcs":
		s, err := NewGCSStore(ctx, cfg.Bucket)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}
