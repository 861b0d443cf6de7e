package service

import (
	"context"
	"errors"

	"github.com/realia-labs/realia/internal/consensus"
	"github.com/realia-labs/realia/internal/store"
	"github.com/realia-labs/realia/internal/store/model"
)

type VerificationService struct {
	store     store.Store
	responses consensus.ResponseSource
}

func NewVerificationService(store store.Store, responses consensus.ResponseSource) *VerificationService {
	return &VerificationService{store: store, responses: responses}
}

func (v *VerificationService) GetVerification(ctx context.Context, id string) (*model.VerificationRecord, error) {
	record, err := v.store.Verification().Get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, NewErrVerificationNotFound(id)
		}
		return nil, err
	}
	return record, nil
}

// Responses reads the agent responses recorded on chain for id.
func (v *VerificationService) Responses(ctx context.Context, id string) ([]consensus.Response, error) {
	return v.responses.ResponsesByID(ctx, id)
}
