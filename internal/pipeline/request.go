package pipeline

import (
	"strings"

	api "github.com/realia-labs/realia/api/v1alpha1"
	"github.com/realia-labs/realia/internal/auth"
	"github.com/realia-labs/realia/internal/handlers/validator"
)

// Request is one mint or verify submission. It lives for a single run and is never stored.
type Request struct {
	Kind     Kind
	Actor    string
	Image    []byte
	MimeType string
	Filename string
	Metadata *api.MintData
	// MetadataErr is set when the submitted data could not be decoded.
	MetadataErr error
}

func (r Request) validateFile(maxSize int64) *StageError {
	if len(r.Image) == 0 {
		return NewValidationError(StageValidatingFile, "No image file provided")
	}
	if maxSize > 0 && int64(len(r.Image)) > maxSize {
		return NewValidationError(StageValidatingFile, "Image exceeds the maximum size of %d bytes", maxSize)
	}

	v := validator.NewValidator()
	v.Register(validator.NewMintValidationRules()...)
	if err := v.Var(r.MimeType, "image_mime"); err != nil {
		return NewValidationError(StageValidatingFile, "Unsupported file type %q", r.MimeType)
	}
	return nil
}

func (r Request) validateData() *StageError {
	if r.MetadataErr != nil {
		return NewValidationError(StageValidatingData, "Validation failed: data is not valid JSON")
	}
	if r.Metadata == nil {
		return NewValidationError(StageValidatingData, "Validation failed: data is required")
	}

	v := validator.NewValidator()
	v.Register(validator.NewMintValidationRules()...)
	if err := v.Struct(r.Metadata); err != nil {
		return NewValidationError(StageValidatingData, "Validation failed: %s", err)
	}

	// an attached signature must come from the session wallet
	if r.Metadata.Signature != "" {
		if err := auth.VerifySignature(r.Actor, r.Metadata.Message, r.Metadata.Signature); err != nil {
			return NewValidationError(StageValidatingData, "Invalid signature")
		}
	}
	return nil
}

func (r Request) actor() string {
	return strings.ToLower(r.Actor)
}
