package mappers

import (
	"encoding/json"
	"net/http"
	"strings"

	api "github.com/realia-labs/realia/api/v1alpha1"
	"github.com/realia-labs/realia/internal/pipeline"
)

// UploadForm holds the parts of a mint or verify multipart body.
type UploadForm struct {
	Image       []byte
	Filename    string
	ContentType string
	Data        string
}

// MimeType prefers the declared part type and sniffs the bytes otherwise.
func (f UploadForm) MimeType() string {
	ct := strings.TrimSpace(strings.SplitN(f.ContentType, ";", 2)[0])
	if ct == "" || ct == "application/octet-stream" {
		if len(f.Image) == 0 {
			return ct
		}
		return strings.SplitN(http.DetectContentType(f.Image), ";", 2)[0]
	}
	return strings.ToLower(ct)
}

// MintData decodes the "data" part. A missing part gives nil without error.
func (f UploadForm) MintData() (*api.MintData, error) {
	if strings.TrimSpace(f.Data) == "" {
		return nil, nil
	}
	var data api.MintData
	if err := json.Unmarshal([]byte(f.Data), &data); err != nil {
		return nil, err
	}
	return &data, nil
}

func MintRequestFromForm(actor string, form UploadForm) pipeline.Request {
	data, err := form.MintData()
	return pipeline.Request{
		Kind:        pipeline.KindMint,
		Actor:       actor,
		Image:       form.Image,
		MimeType:    form.MimeType(),
		Filename:    form.Filename,
		Metadata:    data,
		MetadataErr: err,
	}
}

func VerifyRequestFromForm(actor string, form UploadForm) pipeline.Request {
	return pipeline.Request{
		Kind:     pipeline.KindVerify,
		Actor:    actor,
		Image:    form.Image,
		MimeType: form.MimeType(),
		Filename: form.Filename,
	}
}
