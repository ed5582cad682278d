package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// DefaultDir — каталог документов по умолчанию.
const DefaultDir = "pdfs"

// LocalStore хранит документы в каталоге на диске.
type LocalStore struct {
	dir string
}

// NewLocalStore создаёт каталог (если его нет) и возвращает LocalStore.
func NewLocalStore(dir string) (*LocalStore, error) {
	if dir == "" {
		dir = DefaultDir
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create dir %s: %w", dir, err)
	}
	return &LocalStore{dir: filepath.Clean(dir)}, nil
}

// Put записывает документ во временный файл и переименовывает его в name.
// Читатель никогда не видит частично записанный документ.
func (s *LocalStore) Put(_ context.Context, name string, data []byte) (string, error) {
	if name == "" || name != filepath.Base(name) {
		return "", fmt.Errorf("invalid document name %q", name)
	}

	tmp, err := os.CreateTemp(s.dir, "."+name+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op после успешного rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write %s: %w", tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return "", fmt.Errorf("sync %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", tmpName, err)
	}

	path := filepath.Join(s.dir, name)
	if err := os.Rename(tmpName, path); err != nil {
		return "", fmt.Errorf("rename to %s: %w", path, err)
	}
	// Rename устойчив к падению узла только после sync каталога
	if err := syncDir(s.dir); err != nil {
		return "", err
	}
	return filepath.ToSlash(path), nil
}

func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return fmt.Errorf("open dir %s: %w", dir, err)
	}
	defer d.Close()
	if err := d.Sync(); err != nil {
		return fmt.Errorf("sync dir %s: %w", dir, err)
	}
	return nil
}

// Open открывает документ. Locator должен указывать внутрь каталога хранилища.
func (s *LocalStore) Open(_ context.Context, locator string) (io.ReadCloser, error) {
	path := filepath.Clean(filepath.FromSlash(locator))
	if !s.contains(path) {
		return nil, fmt.Errorf("%w: %s is outside %s", ErrNotFound, locator, s.dir)
	}

	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, locator)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", locator, err)
	}
	return f, nil
}

func (s *LocalStore) contains(path string) bool {
	rel, err := filepath.Rel(s.dir, path)
	if err != nil {
		return false
	}
	return rel != "." && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
