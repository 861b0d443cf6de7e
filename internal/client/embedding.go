package client

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// EmbeddingClient computes image feature vectors through the embedding service.
type EmbeddingClient struct {
	url        string
	httpClient *http.Client
}

func NewEmbeddingClient(url string, timeout time.Duration) *EmbeddingClient {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &EmbeddingClient{
		url: url,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type EmbeddingRequest struct {
	Image string `json:"image"`
}

type EmbeddingResponse struct {
	Embedding []float32 `json:"embedding"`
	Error     string    `json:"error,omitempty"`
}

func (c *EmbeddingClient) Embed(ctx context.Context, image []byte) ([]float32, error) {
	body, err := json.Marshal(EmbeddingRequest{Image: base64.StdEncoding.EncodeToString(image)})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to call embedding service: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("embedding service returned status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var embResp EmbeddingResponse
	if err := json.Unmarshal(bodyBytes, &embResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if len(embResp.Embedding) == 0 {
		return nil, fmt.Errorf("embedding service returned no vector: %s", embResp.Error)
	}

	return embResp.Embedding, nil
}
