package memory

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/giftflow/giftflow/internal/storage"
)

// fileEntry holds an uploaded object in memory.
type fileEntry struct {
	ContentType string
	Data        []byte
}

// Storage implements storage.Storage using an in-memory map. Signed URLs
// are fake but stable, carrying the key and an expiry for assertions.
type Storage struct {
	mu      sync.RWMutex
	files   map[string]*fileEntry
	baseURL string
}

// New creates a new in-memory storage instance.
func New(baseURL string) *Storage {
	return &Storage{
		files:   make(map[string]*fileEntry),
		baseURL: baseURL,
	}
}

// Upload reads the object into memory.
func (s *Storage) Upload(_ context.Context, input *storage.UploadInput) error {
	data, err := io.ReadAll(input.Data)
	if err != nil {
		return fmt.Errorf("read upload: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.files[input.Key] = &fileEntry{
		ContentType: input.ContentType,
		Data:        data,
	}
	return nil
}

// SignedURL returns a URL embedding the key and expiry.
func (s *Storage) SignedURL(_ context.Context, key string, ttl time.Duration) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, exists := s.files[key]; !exists {
		return "", fmt.Errorf("file not found: %s", key)
	}
	expires := time.Now().Add(ttl).Unix()
	return fmt.Sprintf("%s/media/%s?expires=%d", s.baseURL, key, expires), nil
}

// Delete removes the object from memory.
func (s *Storage) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.files[key]; !exists {
		return fmt.Errorf("file not found: %s", key)
	}

	delete(s.files, key)
	return nil
}

// Get returns the stored bytes, for tests.
func (s *Storage) Get(key string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, exists := s.files[key]
	if !exists {
		return nil, false
	}
	return entry.Data, true
}
