package store

import (
	"context"
	"errors"
	"sync/atomic"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type contextKey int

const (
	transactionKey contextKey = iota
)

var (
	errNoTransaction = errors.New("transaction already ended")
	txCounter        atomic.Int64
)

// Tx is a gorm transaction carried by a context. Stores pick it up through getDB.
type Tx struct {
	id  int64
	tx  *gorm.DB
	log *zap.SugaredLogger
}

type transactor interface {
	NewTransactionContext(ctx context.Context) (context.Context, error)
}

// InTransaction runs fn in a transaction, committing when fn succeeds. Joining an outer
// transaction leaves the commit to its owner.
func InTransaction(ctx context.Context, s transactor, fn func(ctx context.Context) error) error {
	if _, nested := ctx.Value(transactionKey).(*Tx); nested {
		return fn(ctx)
	}

	txCtx, err := s.NewTransactionContext(ctx)
	if err != nil {
		return err
	}

	if err := fn(txCtx); err != nil {
		if _, rerr := Rollback(txCtx); rerr != nil {
			return errors.Join(err, rerr)
		}
		return err
	}

	_, err = Commit(txCtx)
	return err
}

func Commit(ctx context.Context) (context.Context, error) {
	tx, ok := ctx.Value(transactionKey).(*Tx)
	if !ok {
		return ctx, nil
	}
	return context.WithValue(ctx, transactionKey, nil), tx.end("commit", tx.tx.Commit)
}

func Rollback(ctx context.Context) (context.Context, error) {
	tx, ok := ctx.Value(transactionKey).(*Tx)
	if !ok {
		return ctx, nil
	}
	return context.WithValue(ctx, transactionKey, nil), tx.end("rollback", tx.tx.Rollback)
}

func FromContext(ctx context.Context) *gorm.DB {
	if tx, found := ctx.Value(transactionKey).(*Tx); found && tx.tx != nil {
		return tx.tx
	}
	return nil
}

func newTransactionContext(ctx context.Context, db *gorm.DB) (context.Context, error) {
	if _, found := ctx.Value(transactionKey).(*Tx); found {
		return ctx, nil
	}

	tx := db.Session(&gorm.Session{Context: ctx}).Begin()
	if tx.Error != nil {
		return ctx, tx.Error
	}

	return context.WithValue(ctx, transactionKey, &Tx{
		id:  txCounter.Add(1),
		tx:  tx,
		log: zap.S().Named("store"),
	}), nil
}

func (t *Tx) end(action string, fn func() *gorm.DB) error {
	if t.tx == nil {
		return errNoTransaction
	}
	if err := fn().Error; err != nil {
		t.log.Errorw("failed to end transaction", "tx", t.id, "action", action, "error", err)
		return err
	}
	t.tx = nil
	t.log.Debugw("transaction ended", "tx", t.id, "action", action)
	return nil
}
