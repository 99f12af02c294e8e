// Package gcs provides a publish target backed by a Google Cloud Storage
// bucket prefix.
package gcs

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
)

// Config captures the bucket location of published units.
type Config struct {
	Bucket      string
	Prefix      string
	ContentType string
}

// Target writes published units as objects under Prefix.
type Target struct {
	client      *storage.Client
	bucket      string
	prefix      string
	contentType string
}

// New creates a GCS-backed target.
func New(client *storage.Client, cfg Config) (*Target, error) {
	if client == nil {
		return nil, fmt.Errorf("storage client is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}
	contentType := cfg.ContentType
	if contentType == "" {
		contentType = "text/markdown; charset=utf-8"
	}
	return &Target{
		client:      client,
		bucket:      cfg.Bucket,
		prefix:      strings.Trim(cfg.Prefix, "/"),
		contentType: contentType,
	}, nil
}

func (t *Target) object(name string) string {
	if t.prefix == "" {
		return name
	}
	return path.Join(t.prefix, name)
}

// Exists reports whether the object for name is present.
func (t *Target) Exists(ctx context.Context, name string) (bool, error) {
	if strings.TrimSpace(name) == "" {
		return false, fmt.Errorf("name is required")
	}
	_, err := t.client.Bucket(t.bucket).Object(t.object(name)).Attrs(ctx)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, storage.ErrObjectNotExist):
		return false, nil
	default:
		return false, fmt.Errorf("stat object: %w", err)
	}
}

// Write uploads data and returns a gs:// URI.
func (t *Target) Write(ctx context.Context, name string, data []byte) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", fmt.Errorf("name is required")
	}
	obj := t.object(name)
	writer := t.client.Bucket(t.bucket).Object(obj).NewWriter(ctx)
	writer.ContentType = t.contentType
	if _, err := writer.Write(data); err != nil {
		closeErr := writer.Close()
		if closeErr != nil {
			return "", fmt.Errorf("write object: %w (close writer: %v)", err, closeErr)
		}
		return "", fmt.Errorf("write object: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("close writer: %w", err)
	}
	return fmt.Sprintf("gs://%s/%s", t.bucket, obj), nil
}

// List returns unit names directly under the prefix.
func (t *Target) List(ctx context.Context) ([]string, error) {
	query := &storage.Query{Delimiter: "/"}
	if t.prefix != "" {
		query.Prefix = t.prefix + "/"
	}
	it := t.client.Bucket(t.bucket).Objects(ctx, query)
	var names []string
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list objects: %w", err)
		}
		if attrs.Name == "" {
			continue // synthetic directory entry
		}
		names = append(names, strings.TrimPrefix(attrs.Name, query.Prefix))
	}
	return names, nil
}

// Delete removes the object for name. Missing objects are not an error.
func (t *Target) Delete(ctx context.Context, name string) error {
	err := t.client.Bucket(t.bucket).Object(t.object(name)).Delete(ctx)
	if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("delete object: %w", err)
	}
	return nil
}
