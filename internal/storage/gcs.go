// Package storage: сканы документов к броням в Google Cloud Storage.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"lending-service/internal/service"

	"cloud.google.com/go/storage"
	"go.uber.org/zap"
)

type GCSDocumentStore struct {
	client *storage.Client
	bucket string
	log    *zap.Logger
}

var _ service.DocumentStore = (*GCSDocumentStore)(nil)

// NewGCSDocumentStore использует Application Default Credentials
func NewGCSDocumentStore(ctx context.Context, bucket string, log *zap.Logger) (*GCSDocumentStore, error) {
	b := strings.TrimSpace(bucket)
	if b == "" {
		return nil, errors.New("gcs bucket is empty")
	}
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("storage.NewClient: %w", err)
	}
	log.Info("GCS document store ready", zap.String("bucket", b))
	return &GCSDocumentStore{client: client, bucket: b, log: log}, nil
}

func (s *GCSDocumentStore) Put(ctx context.Context, path, contentType string, r io.Reader, meta map[string]string) (int64, error) {
	obj := strings.TrimSpace(path)
	if obj == "" {
		return 0, errors.New("object path is empty")
	}

	w := s.client.Bucket(s.bucket).Object(obj).NewWriter(ctx)
	if ct := strings.TrimSpace(contentType); ct != "" {
		w.ContentType = ct
	}
	// файлы маленькие, один запрос без чанков
	w.ChunkSize = 0
	w.Metadata = map[string]string{
		"uploadedAt": time.Now().UTC().Format(time.RFC3339),
	}
	for k, v := range meta {
		w.Metadata[k] = v
	}

	n, err := io.Copy(w, r)
	if err != nil {
		_ = w.Close()
		return 0, err
	}
	if err := w.Close(); err != nil {
		return 0, err
	}
	return n, nil
}

func (s *GCSDocumentStore) Delete(ctx context.Context, path string) error {
	err := s.client.Bucket(s.bucket).Object(path).Delete(ctx)
	if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return err
	}
	return nil
}

func (s *GCSDocumentStore) Close() error {
	return s.client.Close()
}
