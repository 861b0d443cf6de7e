package publisher

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ipfs/go-cid"
	mh "github.com/multiformats/go-multihash"
)

var ErrContentNotFound = errors.New("content not found")

// ContentStore writes to a content-addressed store and returns the content id.
type ContentStore interface {
	Add(ctx context.Context, name, mimeType string, data []byte) (string, error)
}

// ContentReader reads content back by id.
type ContentReader interface {
	Get(ctx context.Context, contentID string) ([]byte, error)
}

var rawPrefix = cid.Prefix{
	Version:  1,
	Codec:    cid.Raw,
	MhType:   mh.SHA2_256,
	MhLength: -1,
}

// ComputeCID returns the CIDv1 (raw, sha2-256) of data.
func ComputeCID(data []byte) (string, error) {
	c, err := rawPrefix.Sum(data)
	if err != nil {
		return "", fmt.Errorf("failed to hash content: %w", err)
	}
	return c.String(), nil
}

// ValidateCID checks that s parses as a cid and returns its canonical string form.
func ValidateCID(s string) (string, error) {
	c, err := cid.Decode(s)
	if err != nil {
		return "", fmt.Errorf("invalid content id %q: %w", s, err)
	}
	return c.String(), nil
}

// MemoryContentStore is a purely content-hash based store: identical bytes yield identical ids.
type MemoryContentStore struct {
	mu      sync.RWMutex
	content map[string][]byte
}

func NewMemoryContentStore() *MemoryContentStore {
	return &MemoryContentStore{content: make(map[string][]byte)}
}

func (m *MemoryContentStore) Add(_ context.Context, _ string, _ string, data []byte) (string, error) {
	id, err := ComputeCID(data)
	if err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.content[id] = append([]byte(nil), data...)
	return id, nil
}

func (m *MemoryContentStore) Get(_ context.Context, contentID string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.content[contentID]
	if !ok {
		return nil, ErrContentNotFound
	}
	return append([]byte(nil), data...), nil
}

func (m *MemoryContentStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.content)
}
