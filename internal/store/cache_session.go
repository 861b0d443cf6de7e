package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/realia-labs/realia/internal/store/model"
)

const (
	defaultSessionCacheSize = 4096
	sessionCacheTTL         = 5 * time.Minute
)

// CacheSessionStore is a wrapper around SessionStore which keeps recently seen sessions in memory.
// Every authenticated request resolves its session, so most lookups never reach the database.
type CacheSessionStore struct {
	delegate Session
	sessions *expirable.LRU[uuid.UUID, model.Session]
}

func NewCacheSessionStore(delegate Session, size int) Session {
	return &CacheSessionStore{
		delegate: delegate,
		sessions: expirable.NewLRU[uuid.UUID, model.Session](size, nil, sessionCacheTTL),
	}
}

func (c *CacheSessionStore) Create(ctx context.Context, session model.Session) (*model.Session, error) {
	created, err := c.delegate.Create(ctx, session)
	if err != nil {
		return nil, err
	}
	c.sessions.Add(created.ID, *created)
	return created, nil
}

func (c *CacheSessionStore) Get(ctx context.Context, id uuid.UUID) (*model.Session, error) {
	if session, found := c.sessions.Get(id); found {
		return &session, nil
	}

	session, err := c.delegate.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	c.sessions.Add(id, *session)

	return session, nil
}

func (c *CacheSessionStore) Revoke(ctx context.Context, id uuid.UUID) error {
	c.sessions.Remove(id)
	return c.delegate.Revoke(ctx, id)
}

func (c *CacheSessionStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	c.sessions.Purge()
	return c.delegate.DeleteExpired(ctx, now)
}
