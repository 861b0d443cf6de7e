package model

import (
	"time"

	"github.com/google/uuid"
)

// User is a wallet known to the service. Address is the lowercase 0x-prefixed hex form.
type User struct {
	Address   string `gorm:"primaryKey;column:address;type:VARCHAR;size:42"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Nonce is the one-time challenge a wallet signs to open a session.
type Nonce struct {
	Address   string `gorm:"primaryKey;column:address;type:VARCHAR;size:42"`
	Value     string `gorm:"column:value;type:VARCHAR;size:64;not null"`
	ExpiresAt time.Time
	CreatedAt time.Time
}

func (n Nonce) Expired(now time.Time) bool {
	return !now.Before(n.ExpiresAt)
}

type Session struct {
	ID        uuid.UUID `gorm:"primaryKey;type:uuid"`
	Address   string    `gorm:"column:address;type:VARCHAR;size:42;index;not null"`
	ExpiresAt time.Time
	RevokedAt *time.Time
	CreatedAt time.Time
}

func (s Session) Active(now time.Time) bool {
	return s.RevokedAt == nil && now.Before(s.ExpiresAt)
}
