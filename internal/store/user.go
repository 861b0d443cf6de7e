package store

import (
	"context"
	"errors"

	"github.com/realia-labs/realia/internal/store/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type User interface {
	GetOrCreate(ctx context.Context, address string) (*model.User, error)
	Get(ctx context.Context, address string) (*model.User, error)
}

type UserStore struct {
	db *gorm.DB
}

var _ User = (*UserStore)(nil)

func NewUserStore(db *gorm.DB) User {
	return &UserStore{db: db}
}

// GetOrCreate registers the wallet on first sight.
func (u *UserStore) GetOrCreate(ctx context.Context, address string) (*model.User, error) {
	user := model.User{Address: address}
	if err := getDB(ctx, u.db).Clauses(clause.OnConflict{DoNothing: true}).Create(&user).Error; err != nil {
		return nil, err
	}
	return u.Get(ctx, address)
}

func (u *UserStore) Get(ctx context.Context, address string) (*model.User, error) {
	var user model.User
	if err := getDB(ctx, u.db).Where("address = ?", address).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	return &user, nil
}
