package mappers

import (
	"github.com/thoas/go-funk"

	api "github.com/realia-labs/realia/api/v1alpha1"
	"github.com/realia-labs/realia/internal/consensus"
	"github.com/realia-labs/realia/internal/publisher"
	"github.com/realia-labs/realia/internal/store/model"
)

// ImageURLFunc presigns the blob of an image. It returns an empty string when it cannot.
type ImageURLFunc func(image model.Image) string

func NftToApi(record model.AuthenticityRecord, imageURL ImageURLFunc) api.Nft {
	nft := api.Nft{
		TokenID:     record.TokenID,
		Owner:       record.Owner,
		ImageCID:    record.Image.ImageCID,
		MetadataCID: record.Image.MetadataCID,
		TokenURI:    publisher.IPFSURI(record.Image.MetadataCID),
		TxHash:      record.TxHash,
		CreatedAt:   record.CreatedAt,
	}
	if record.Image.Metadata != nil {
		nft.Name = record.Image.Metadata.Data.Name
		nft.Description = record.Image.Metadata.Data.Description
	}
	if imageURL != nil {
		nft.ImageURL = imageURL(record.Image)
	}
	return nft
}

func NftListToApi(records model.AuthenticityRecordList, total int64, imageURL ImageURLFunc) api.NftList {
	items := make([]api.Nft, 0, len(records))
	for _, r := range records {
		items = append(items, NftToApi(r, imageURL))
	}
	return api.NftList{Items: items, Total: total}
}

func ResponsesToApi(responses []consensus.Response) []api.AgentResponse {
	return funk.Map(responses, func(r consensus.Response) api.AgentResponse {
		return api.AgentResponse{
			Agent:       r.Agent,
			BlockNumber: r.BlockNumber,
			TxHash:      r.TxHash,
			Verified:    r.Verified,
		}
	}).([]api.AgentResponse)
}

// VerificationStatus is the verdict of the responses seen so far. Nothing here ever times out.
func VerificationStatus(responses []consensus.Response) api.VerificationStatus {
	if consensus.AnyTrue(responses) {
		return api.VerificationStatusVerified
	}
	return api.VerificationStatusPending
}

func VerificationToApi(record model.VerificationRecord, responses []consensus.Response, imageURL ImageURLFunc) api.Verification {
	v := api.Verification{
		VerificationID: record.VerificationID,
		Requester:      record.Requester,
		ImageCID:       record.Image.ImageCID,
		MetadataCID:    record.Image.MetadataCID,
		TxHash:         record.TxHash,
		CreatedAt:      record.CreatedAt,
		Responses:      ResponsesToApi(responses),
		Status:         VerificationStatus(responses),
	}
	if imageURL != nil {
		v.ImageURL = imageURL(record.Image)
	}
	return v
}
