package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/realia-labs/realia/internal/store/model"
	"gorm.io/gorm"
)

type Image interface {
	Create(ctx context.Context, image model.Image) (*model.Image, error)
}

type ImageStore struct {
	db *gorm.DB
}

func NewImageStore(db *gorm.DB) Image {
	return &ImageStore{db: db}
}

func (i *ImageStore) Create(ctx context.Context, image model.Image) (*model.Image, error) {
	if image.ID == uuid.Nil {
		image.ID = uuid.New()
	}
	if err := getDB(ctx, i.db).Create(&image).Error; err != nil {
		return nil, err
	}

	return &image, nil
}
