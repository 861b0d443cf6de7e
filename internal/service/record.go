package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/realia-labs/realia/internal/store"
	"github.com/realia-labs/realia/internal/store/model"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

type ImageURLSigner interface {
	ImageURL(ctx context.Context, blobKey string, ttl time.Duration) (string, error)
}

type NftFilter struct {
	Owner  string
	Limit  int
	Offset int
}

type RecordService struct {
	store  store.Store
	signer ImageURLSigner
	ttl    time.Duration
}

func NewRecordService(store store.Store, signer ImageURLSigner, ttl time.Duration) *RecordService {
	return &RecordService{store: store, signer: signer, ttl: ttl}
}

// ListNfts returns a page of records, newest first, and the total matching the filter.
func (r *RecordService) ListNfts(ctx context.Context, filter NftFilter) (model.AuthenticityRecordList, int64, error) {
	storeFilter := store.NewRecordQueryFilter()
	if filter.Owner != "" {
		storeFilter = storeFilter.ByOwner(filter.Owner)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	opts := store.NewRecordQueryOptions().
		WithSortOrder(store.SortByCreatedTime).
		WithLimit(limit, offset)

	records, err := r.store.Record().List(ctx, storeFilter, opts)
	if err != nil {
		return nil, 0, err
	}

	total, err := r.store.Record().Count(ctx, storeFilter)
	if err != nil {
		return nil, 0, err
	}

	return records, total, nil
}

func (r *RecordService) GetNft(ctx context.Context, tokenID string) (*model.AuthenticityRecord, error) {
	record, err := r.store.Record().Get(ctx, tokenID)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, NewErrNftNotFound(tokenID)
		}
		return nil, err
	}
	return record, nil
}

// ImageURL presigns the blob of an image. An empty string means no url could be made.
func (r *RecordService) ImageURL(ctx context.Context, image model.Image) string {
	if r.signer == nil || image.BlobKey == "" {
		return ""
	}
	url, err := r.signer.ImageURL(ctx, image.BlobKey, r.ttl)
	if err != nil {
		zap.S().Named("record_service").Debugw("failed to presign image", "key", image.BlobKey, "error", err)
		return ""
	}
	return url
}
