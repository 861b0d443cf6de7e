package pipeline

import (
	"context"
	"errors"
	"net/http"

	api "github.com/realia-labs/realia/api/v1alpha1"
	"github.com/realia-labs/realia/internal/events"
	"github.com/realia-labs/realia/internal/publisher"
)

// Stream runs req and reports it on emitter, ending with exactly one terminal event.
func (o *Orchestrator) Stream(ctx context.Context, req Request, emitter *events.Emitter) (*Result, error) {
	result, err := o.Run(ctx, req, emitter)
	if err != nil {
		if terr := emitter.Fail(ToAPIError(err)); terr != nil {
			o.log.Debugw("terminal error event not delivered", "error", terr)
		}
		return nil, err
	}

	if terr := emitter.Complete(MintPayload(result)); terr != nil {
		o.log.Debugw("terminal complete event not delivered", "id", result.Outcome.ID, "error", terr)
	}
	return result, nil
}

// ToAPIError keeps only what the client may see.
func ToAPIError(err error) api.Error {
	var serr *StageError
	if errors.As(err, &serr) {
		return api.Error{Error: serr.Message, Status: serr.Status, Stage: string(serr.Stage)}
	}
	return api.Error{Error: "Internal server error", Status: http.StatusInternalServerError}
}

func MintPayload(result *Result) api.MintResult {
	payload := api.MintResult{
		TokenID:     result.Outcome.ID,
		TxHash:      result.Outcome.TxHash,
		ImageCID:    result.Media.ImageCID,
		MetadataCID: result.Media.MetadataCID,
		BlobKey:     result.Media.BlobKey,
		ImageURL:    result.ImageURL,
		TokenURI:    result.Media.TokenURI(),
	}
	if rec := result.Record; rec != nil {
		payload.Record = &api.Nft{
			TokenID:     rec.TokenID,
			Owner:       rec.Owner,
			Name:        result.Media.Metadata.Name,
			Description: result.Media.Metadata.Description,
			ImageCID:    result.Media.ImageCID,
			MetadataCID: result.Media.MetadataCID,
			TokenURI:    publisher.IPFSURI(result.Media.MetadataCID),
			ImageURL:    result.ImageURL,
			TxHash:      rec.TxHash,
			CreatedAt:   rec.CreatedAt,
		}
	}
	return payload
}

func VerifyPayload(result *Result) api.VerifyResponse {
	return api.VerifyResponse{VerificationID: result.Outcome.ID, TxHash: result.Outcome.TxHash}
}
