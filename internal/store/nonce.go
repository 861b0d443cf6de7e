package store

import (
	"context"
	"errors"

	"github.com/realia-labs/realia/internal/store/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Nonce interface {
	// Put replaces any outstanding nonce of the address.
	Put(ctx context.Context, nonce model.Nonce) error
	// Consume returns the nonce of the address and deletes it.
	Consume(ctx context.Context, address string) (*model.Nonce, error)
}

type NonceStore struct {
	db *gorm.DB
}

var _ Nonce = (*NonceStore)(nil)

func NewNonceStore(db *gorm.DB) Nonce {
	return &NonceStore{db: db}
}

func (n *NonceStore) Put(ctx context.Context, nonce model.Nonce) error {
	return getDB(ctx, n.db).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "address"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "expires_at", "created_at"}),
	}).Create(&nonce).Error
}

func (n *NonceStore) Consume(ctx context.Context, address string) (*model.Nonce, error) {
	var nonce model.Nonce
	db := getDB(ctx, n.db)
	if err := db.Where("address = ?", address).First(&nonce).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}

	result := db.Where("address = ? AND value = ?", address, nonce.Value).Delete(&model.Nonce{})
	if result.Error != nil {
		return nil, result.Error
	}
	// somebody else consumed it in between
	if result.RowsAffected == 0 {
		return nil, ErrRecordNotFound
	}

	return &nonce, nil
}
