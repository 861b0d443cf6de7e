package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/realia-labs/realia/internal/store/model"
	"gorm.io/gorm"
)

type Verification interface {
	Get(ctx context.Context, verificationID string) (*model.VerificationRecord, error)
	Create(ctx context.Context, record model.VerificationRecord) (*model.VerificationRecord, error)
}

type VerificationStore struct {
	db *gorm.DB
}

var _ Verification = (*VerificationStore)(nil)

func NewVerificationStore(db *gorm.DB) Verification {
	return &VerificationStore{db: db}
}

func (v *VerificationStore) Get(ctx context.Context, verificationID string) (*model.VerificationRecord, error) {
	var record model.VerificationRecord
	if err := getDB(ctx, v.db).Preload("Image").Where("verification_id = ?", verificationID).First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	return &record, nil
}

func (v *VerificationStore) Create(ctx context.Context, record model.VerificationRecord) (*model.VerificationRecord, error) {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	if err := getDB(ctx, v.db).Omit("Image").Create(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicateKey
		}
		return nil, err
	}
	return &record, nil
}
