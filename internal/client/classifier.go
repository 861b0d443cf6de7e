package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"
)

const aiVerdict = "ai"

// ClassifierClient asks the AI or Not service whether an image is AI generated.
type ClassifierClient struct {
	url        string
	apiKey     string
	httpClient *http.Client
}

func NewClassifierClient(url, apiKey string, timeout time.Duration) *ClassifierClient {
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	return &ClassifierClient{
		url:    url,
		apiKey: apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type ClassifierResponse struct {
	ID     string `json:"id"`
	Report struct {
		AIGenerated struct {
			Verdict string `json:"verdict"`
			AI      struct {
				Confidence float64 `json:"confidence"`
			} `json:"ai"`
		} `json:"ai_generated"`
	} `json:"report"`
}

// IsAIGenerated returns true when the service verdict is "ai".
func (c *ClassifierClient) IsAIGenerated(ctx context.Context, image []byte, mimeType string) (bool, error) {
	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	part, err := form.CreateFormFile("image", "image."+subtype(mimeType))
	if err != nil {
		return false, fmt.Errorf("failed to create form: %w", err)
	}
	if _, err := part.Write(image); err != nil {
		return false, fmt.Errorf("failed to write form: %w", err)
	}
	if err := form.Close(); err != nil {
		return false, fmt.Errorf("failed to close form: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, &body)
	if err != nil {
		return false, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", form.FormDataContentType())
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return false, fmt.Errorf("failed to call classifier service: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return false, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("classifier service returned status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var classResp ClassifierResponse
	if err := json.Unmarshal(bodyBytes, &classResp); err != nil {
		return false, fmt.Errorf("failed to decode response: %w", err)
	}

	return classResp.Report.AIGenerated.Verdict == aiVerdict, nil
}
