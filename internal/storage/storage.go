// Package storage uploads generated assets to object storage and constructs
// their public URLs.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ObjectStore uploads bytes under a key and yields a public URL for it.
type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	PublicURL(key string) string
}

// HTTPStore talks to an S3-compatible bucket over its REST interface.
type HTTPStore struct {
	endpoint   string
	bucket     string
	apiKey     string
	publicBase string
	httpClient *http.Client
}

// NewHTTPStore creates a store for the given bucket endpoint. publicBase is
// the domain public URLs are constructed from.
func NewHTTPStore(endpoint, bucket, apiKey, publicBase string) *HTTPStore {
	return &HTTPStore{
		endpoint:   strings.TrimRight(endpoint, "/"),
		bucket:     bucket,
		apiKey:     apiKey,
		publicBase: strings.TrimRight(publicBase, "/"),
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

// Put uploads the object, overwriting any existing object under the key.
func (s *HTTPStore) Put(ctx context.Context, key string, data []byte, contentType string) error {
	uploadURL := fmt.Sprintf("%s/object/%s/%s", s.endpoint, s.bucket, key)

	req, err := http.NewRequestWithContext(ctx, "POST", uploadURL, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to create upload request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("x-upsert", "true")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to upload object: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("object upload failed (status %d): %s", resp.StatusCode, string(body))
	}

	return nil
}

// PublicURL constructs the public URL for a stored object.
func (s *HTTPStore) PublicURL(key string) string {
	return fmt.Sprintf("%s/object/public/%s/%s", s.publicBase, s.bucket, key)
}

// LocalStore writes objects to a local directory. Useful for development
// and tests.
type LocalStore struct {
	dir        string
	publicBase string
}

// NewLocalStore creates a store rooted at dir.
func NewLocalStore(dir, publicBase string) *LocalStore {
	return &LocalStore{dir: dir, publicBase: strings.TrimRight(publicBase, "/")}
}

// Put writes the object to disk under the key.
func (s *LocalStore) Put(ctx context.Context, key string, data []byte, contentType string) error {
	path := filepath.Join(s.dir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create storage directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write object: %w", err)
	}
	return nil
}

// PublicURL constructs a URL (or file path when no base is set) for the key.
func (s *LocalStore) PublicURL(key string) string {
	if s.publicBase == "" {
		return filepath.Join(s.dir, filepath.FromSlash(key))
	}
	return s.publicBase + "/" + key
}
