package publisher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"
)

const publicNetwork = "public"

// PinataStore pins content to IPFS through the Pinata v3 upload api.
type PinataStore struct {
	url        string
	jwt        string
	httpClient *http.Client
}

func NewPinataStore(url, jwt string, timeout time.Duration) *PinataStore {
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	return &PinataStore{
		url: strings.TrimSuffix(url, "/"),
		jwt: jwt,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type pinataResponse struct {
	Data struct {
		ID   string `json:"id"`
		CID  string `json:"cid"`
		Name string `json:"name"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (p *PinataStore) Add(ctx context.Context, name, mimeType string, data []byte) (string, error) {
	var body bytes.Buffer
	form := multipart.NewWriter(&body)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, name))
	header.Set("Content-Type", mimeType)
	part, err := form.CreatePart(header)
	if err != nil {
		return "", fmt.Errorf("failed to create form: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return "", fmt.Errorf("failed to write form: %w", err)
	}
	if err := form.WriteField("network", publicNetwork); err != nil {
		return "", fmt.Errorf("failed to write form: %w", err)
	}
	if err := form.Close(); err != nil {
		return "", fmt.Errorf("failed to close form: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url+"/v3/files", &body)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", form.FormDataContentType())
	httpReq.Header.Set("Authorization", "Bearer "+p.jwt)

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("failed to call pinata: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("pinata returned status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var pinResp pinataResponse
	if err := json.Unmarshal(bodyBytes, &pinResp); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	return ValidateCID(pinResp.Data.CID)
}
