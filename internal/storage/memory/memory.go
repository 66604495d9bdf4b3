// Package memory provides an in-memory Storage used in tests and local runs.
package memory

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/sheetalMehta7/chillTube-backend/internal/storage"
)

// Storage keeps uploaded blobs in a map guarded by a mutex.
type Storage struct {
	mu      sync.RWMutex
	objects map[string][]byte
	baseURL string

	// FailPrefixes makes Upload fail for keys with any of these prefixes.
	// Tests use this to simulate an unavailable blob store.
	FailPrefixes []string
}

// New creates an empty in-memory storage. baseURL prefixes returned URLs.
func New(baseURL string) *Storage {
	return &Storage{
		objects: make(map[string][]byte),
		baseURL: baseURL,
	}
}

// Upload stores the blob in memory.
func (s *Storage) Upload(ctx context.Context, in *storage.UploadInput) (*storage.UploadResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range s.FailPrefixes {
		if strings.HasPrefix(in.Key, p) {
			return nil, fmt.Errorf("memory storage: upload %s: forced failure", in.Key)
		}
	}

	data, err := io.ReadAll(in.Data)
	if err != nil {
		return nil, fmt.Errorf("memory storage: read %s: %w", in.Key, err)
	}

	s.objects[in.Key] = data
	return &storage.UploadResult{
		Key: in.Key,
		URL: s.baseURL + "/" + in.Key,
	}, nil
}

// Delete removes the blob. Missing keys are ignored.
func (s *Storage) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	return nil
}

// Get returns the stored bytes for a key, for test assertions.
func (s *Storage) Get(key string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.objects[key]
	return data, ok
}

// Len reports the number of stored blobs.
func (s *Storage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}
