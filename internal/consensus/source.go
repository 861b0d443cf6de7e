package consensus

import (
	"context"

	"github.com/realia-labs/realia/internal/ledger"
)

type Response struct {
	Agent       string
	BlockNumber uint64
	TxHash      string
	Verified    *bool
}

// ResponseSource returns every agent response recorded so far for a verification id.
type ResponseSource interface {
	ResponsesByID(ctx context.Context, id string) ([]Response, error)
}

type SourceFunc func(ctx context.Context, id string) ([]Response, error)

func (f SourceFunc) ResponsesByID(ctx context.Context, id string) ([]Response, error) {
	return f(ctx, id)
}

type ledgerResponses interface {
	ResponsesByID(ctx context.Context, requestID string) ([]ledger.AgentResponse, error)
}

// FromLedger reads responses from the factory contract logs.
func FromLedger(l ledgerResponses) ResponseSource {
	return SourceFunc(func(ctx context.Context, id string) ([]Response, error) {
		raw, err := l.ResponsesByID(ctx, id)
		if err != nil {
			return nil, err
		}
		responses := make([]Response, 0, len(raw))
		for _, r := range raw {
			verified := r.Verified
			responses = append(responses, Response{
				Agent:       r.Agent,
				BlockNumber: r.BlockNumber,
				TxHash:      r.TxHash,
				Verified:    &verified,
			})
		}
		return responses, nil
	})
}
