package publisher

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// BlobStore is a keyed object store.
type BlobStore interface {
	Put(ctx context.Context, key, contentType string, data []byte) error
	PresignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
}

type MemoryBlobStore struct {
	mu      sync.RWMutex
	baseURL string
	objects map[string][]byte
}

func NewMemoryBlobStore(baseURL string) *MemoryBlobStore {
	return &MemoryBlobStore{baseURL: baseURL, objects: make(map[string][]byte)}
}

func (m *MemoryBlobStore) Put(_ context.Context, key, _ string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = append([]byte(nil), data...)
	return nil
}

func (m *MemoryBlobStore) PresignedURL(_ context.Context, key string, _ time.Duration) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, ok := m.objects[key]; !ok {
		return "", fmt.Errorf("object %s: %w", key, ErrContentNotFound)
	}
	return fmt.Sprintf("%s/%s", m.baseURL, key), nil
}

func (m *MemoryBlobStore) Object(key string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.objects[key]
	return data, ok
}
