package store

import (
	"gorm.io/gorm"
)

type BaseQuerier struct {
	QueryFn []func(tx *gorm.DB) *gorm.DB
}

type SortOrder int

const (
	Unsorted SortOrder = iota
	SortByCreatedTime
	SortByTokenID
)

type RecordQueryFilter BaseQuerier

func NewRecordQueryFilter() *RecordQueryFilter {
	return &RecordQueryFilter{QueryFn: make([]func(tx *gorm.DB) *gorm.DB, 0)}
}

func (qf *RecordQueryFilter) ByOwner(owner string) *RecordQueryFilter {
	qf.QueryFn = append(qf.QueryFn, func(tx *gorm.DB) *gorm.DB {
		return tx.Where("owner = ?", owner)
	})
	return qf
}

func (qf *RecordQueryFilter) ByTokenID(ids ...string) *RecordQueryFilter {
	qf.QueryFn = append(qf.QueryFn, func(tx *gorm.DB) *gorm.DB {
		return tx.Where("token_id IN ?", ids)
	})
	return qf
}

type RecordQueryOptions BaseQuerier

func NewRecordQueryOptions() *RecordQueryOptions {
	return &RecordQueryOptions{QueryFn: make([]func(tx *gorm.DB) *gorm.DB, 0)}
}

func (o *RecordQueryOptions) WithSortOrder(sort SortOrder) *RecordQueryOptions {
	o.QueryFn = append(o.QueryFn, func(tx *gorm.DB) *gorm.DB {
		switch sort {
		case SortByTokenID:
			return tx.Order("token_id")
		case SortByCreatedTime:
			return tx.Order("created_at DESC")
		default:
			return tx
		}
	})
	return o
}

func (o *RecordQueryOptions) WithLimit(limit, offset int) *RecordQueryOptions {
	o.QueryFn = append(o.QueryFn, func(tx *gorm.DB) *gorm.DB {
		if limit > 0 {
			tx = tx.Limit(limit)
		}
		if offset > 0 {
			tx = tx.Offset(offset)
		}
		return tx
	})
	return o
}
