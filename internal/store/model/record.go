package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Metadata is the token metadata document published next to the image.
type Metadata struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Image       string `json:"image"`
}

// Image references the published media of a record.
type Image struct {
	ID          uuid.UUID            `gorm:"primaryKey;type:uuid"`
	ImageCID    string               `gorm:"column:image_cid;not null"`
	MetadataCID string               `gorm:"column:metadata_cid;not null"`
	BlobKey     string               `gorm:"column:blob_key;not null"`
	MimeType    string               `gorm:"column:mime_type"`
	Metadata    *JSONField[Metadata] `gorm:"type:jsonb"`
	CreatedAt   time.Time
}

// AuthenticityRecord is a minted token.
type AuthenticityRecord struct {
	ID        uuid.UUID `gorm:"primaryKey;type:uuid"`
	TokenID   string    `gorm:"column:token_id;uniqueIndex;not null"`
	Owner     string    `gorm:"column:owner;type:VARCHAR;size:42;index;not null"`
	TxHash    string    `gorm:"column:tx_hash"`
	ImageID   uuid.UUID `gorm:"type:uuid;not null"`
	Image     Image     `gorm:"constraint:OnDelete:CASCADE;"`
	CreatedAt time.Time
}

func (AuthenticityRecord) TableName() string {
	return "nfts"
}

type AuthenticityRecordList []AuthenticityRecord

func (r AuthenticityRecord) String() string {
	val, _ := json.Marshal(r)
	return string(val)
}

// VerificationRecord is a submitted verification request.
type VerificationRecord struct {
	ID             uuid.UUID `gorm:"primaryKey;type:uuid"`
	VerificationID string    `gorm:"column:verification_id;uniqueIndex;not null"`
	Requester      string    `gorm:"column:requester;type:VARCHAR;size:42;index;not null"`
	TxHash         string    `gorm:"column:tx_hash"`
	ImageID        uuid.UUID `gorm:"type:uuid;not null"`
	Image          Image     `gorm:"constraint:OnDelete:CASCADE;"`
	CreatedAt      time.Time
}

func (VerificationRecord) TableName() string {
	return "verifications"
}
