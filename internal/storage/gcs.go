package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"cloud.google.com/go/storage"
)

// objectHandle — часть *storage.ObjectHandle, которой пользуется GCSStore.
type objectHandle interface {
	NewWriter(ctx context.Context) io.WriteCloser
	NewReader(ctx context.Context) (io.ReadCloser, error)
}

// bucketHandle возвращает объект бакета по имени.
type bucketHandle func(name string) objectHandle

// gcsObject адаптирует *storage.ObjectHandle к objectHandle.
type gcsObject struct {
	handle *storage.ObjectHandle
}

func (o gcsObject) NewWriter(ctx context.Context) io.WriteCloser {
	w := o.handle.NewWriter(ctx)
	w.ContentType = "application/pdf"
	return w
}

func (o gcsObject) NewReader(ctx context.Context) (io.ReadCloser, error) {
	r, err := o.handle.NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}

// GCSStore хранит документы в бакете Google Cloud Storage.
//
// Загрузка объекта в GCS атомарна: объект появляется целиком после Close.
type GCSStore struct {
	client *storage.Client
	bucket string
	object bucketHandle
}

// NewGCSStore создаёт клиента GCS (Application Default Credentials).
func NewGCSStore(ctx context.Context, bucket string) (*GCSStore, error) {
	if bucket == "" {
		return nil, errors.New("gcs bucket is required")
	}

	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create gcs client: %w", err)
	}

	b := client.Bucket(bucket)
	return &GCSStore{
		client: client,
		bucket: bucket,
		object: func(name string) objectHandle { return gcsObject{handle: b.Object(name)} },
	}, nil
}

// Put загружает документ в бакет. Locator: gs://<bucket>/<name>.
func (s *GCSStore) Put(ctx context.Context, name string, data []byte) (string, error) {
	w := s.object(name).NewWriter(ctx)
	if _, err := w.Write(data); err != nil {
		w.Close()
		return "", fmt.Errorf("write gs://%s/%s: %w", s.bucket, name, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("upload gs://%s/%s: %w", s.bucket, name, err)
	}
	return s.locator(name), nil
}

// Open открывает объект по locator.
func (s *GCSStore) Open(ctx context.Context, locator string) (io.ReadCloser, error) {
	prefix := "gs://" + s.bucket + "/"
	name, ok := strings.CutPrefix(locator, prefix)
	if !ok || name == "" {
		return nil, fmt.Errorf("%w: %s is not in bucket %s", ErrNotFound, locator, s.bucket)
	}

	r, err := s.object(name).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", locator, err)
	}
	return r, nil
}

// Close закрывает клиента GCS.
func (s *GCSStore) Close() error {
	if s.client == nil {
		return nil
	}
	return s.client.Close()
}

func (s *GCSStore) locator(name string) string {
	return "gs://" + s.bucket + "/" + name
}
