package events

import "time"

// MintedEvent is published once a minted token has been persisted.
type MintedEvent struct {
	TokenID     string    `json:"token_id"`
	Owner       string    `json:"owner"`
	TxHash      string    `json:"tx_hash"`
	ImageCID    string    `json:"image_cid"`
	MetadataCID string    `json:"metadata_cid"`
	CreatedAt   time.Time `json:"created_at"`
}

// VerificationRequestedEvent is published once a verification request has been persisted.
type VerificationRequestedEvent struct {
	VerificationID string    `json:"verification_id"`
	Requester      string    `json:"requester"`
	TxHash         string    `json:"tx_hash"`
	ImageCID       string    `json:"image_cid"`
	CreatedAt      time.Time `json:"created_at"`
}

func (e MintedEvent) Subject() string { return e.TokenID }

func (e VerificationRequestedEvent) Subject() string { return e.VerificationID }
