package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/realia-labs/realia/internal/store/model"
	"gorm.io/gorm"
)

type Record interface {
	List(ctx context.Context, filter *RecordQueryFilter, opts *RecordQueryOptions) (model.AuthenticityRecordList, error)
	Get(ctx context.Context, tokenID string) (*model.AuthenticityRecord, error)
	Create(ctx context.Context, record model.AuthenticityRecord) (*model.AuthenticityRecord, error)
	Count(ctx context.Context, filter *RecordQueryFilter) (int64, error)
}

type RecordStore struct {
	db *gorm.DB
}

var _ Record = (*RecordStore)(nil)

func NewRecordStore(db *gorm.DB) Record {
	return &RecordStore{db: db}
}

func (r *RecordStore) List(ctx context.Context, filter *RecordQueryFilter, opts *RecordQueryOptions) (model.AuthenticityRecordList, error) {
	var records model.AuthenticityRecordList
	tx := getDB(ctx, r.db)

	if filter != nil {
		for _, fn := range filter.QueryFn {
			tx = fn(tx)
		}
	}

	if opts != nil {
		for _, fn := range opts.QueryFn {
			tx = fn(tx)
		}
	}

	if err := tx.Model(&records).Preload("Image").Find(&records).Error; err != nil {
		return nil, err
	}

	return records, nil
}

func (r *RecordStore) Count(ctx context.Context, filter *RecordQueryFilter) (int64, error) {
	var count int64
	tx := getDB(ctx, r.db).Model(&model.AuthenticityRecord{})
	if filter != nil {
		for _, fn := range filter.QueryFn {
			tx = fn(tx)
		}
	}
	if err := tx.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *RecordStore) Get(ctx context.Context, tokenID string) (*model.AuthenticityRecord, error) {
	var record model.AuthenticityRecord
	if err := getDB(ctx, r.db).Preload("Image").Where("token_id = ?", tokenID).First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	return &record, nil
}

// Create inserts the record. The image is expected to exist already.
func (r *RecordStore) Create(ctx context.Context, record model.AuthenticityRecord) (*model.AuthenticityRecord, error) {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	if err := getDB(ctx, r.db).Omit("Image").Create(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicateKey
		}
		return nil, err
	}
	return &record, nil
}
