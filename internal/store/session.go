package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/realia-labs/realia/internal/store/model"
	"gorm.io/gorm"
)

type Session interface {
	Create(ctx context.Context, session model.Session) (*model.Session, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Session, error)
	Revoke(ctx context.Context, id uuid.UUID) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type SessionStore struct {
	db *gorm.DB
}

var _ Session = (*SessionStore)(nil)

func NewSessionStore(db *gorm.DB) Session {
	return &SessionStore{db: db}
}

func (s *SessionStore) Create(ctx context.Context, session model.Session) (*model.Session, error) {
	if session.ID == uuid.Nil {
		session.ID = uuid.New()
	}
	if err := getDB(ctx, s.db).Create(&session).Error; err != nil {
		return nil, err
	}
	return &session, nil
}

func (s *SessionStore) Get(ctx context.Context, id uuid.UUID) (*model.Session, error) {
	var session model.Session
	if err := getDB(ctx, s.db).Where("id = ?", id).First(&session).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	return &session, nil
}

func (s *SessionStore) Revoke(ctx context.Context, id uuid.UUID) error {
	result := getDB(ctx, s.db).Model(&model.Session{}).
		Where("id = ? AND revoked_at IS NULL", id).
		Update("revoked_at", time.Now())
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrRecordNotFound
	}
	return nil
}

func (s *SessionStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result := getDB(ctx, s.db).Where("expires_at < ?", now).Delete(&model.Session{})
	return result.RowsAffected, result.Error
}
