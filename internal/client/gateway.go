package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const ipfsScheme = "ipfs://"

// GatewayClient reads content from an IPFS http gateway.
type GatewayClient struct {
	baseURL    string
	maxSize    int64
	httpClient *http.Client
}

func NewGatewayClient(baseURL string, maxSize int64, timeout time.Duration) *GatewayClient {
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	return &GatewayClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		maxSize: maxSize,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// URL maps an ipfs:// uri or a bare cid to its gateway location.
func (c *GatewayClient) URL(uri string) string {
	return fmt.Sprintf("%s/%s", c.baseURL, strings.TrimPrefix(uri, ipfsScheme))
}

func (c *GatewayClient) Fetch(ctx context.Context, uri string) ([]byte, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL(uri), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to call gateway: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gateway returned status %d for %s", resp.StatusCode, uri)
	}

	reader := io.Reader(resp.Body)
	if c.maxSize > 0 {
		reader = io.LimitReader(resp.Body, c.maxSize+1)
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if c.maxSize > 0 && int64(len(body)) > c.maxSize {
		return nil, fmt.Errorf("content %s exceeds %d bytes", uri, c.maxSize)
	}

	return body, nil
}

func subtype(mimeType string) string {
	if _, sub, ok := strings.Cut(mimeType, "/"); ok && sub != "" {
		return sub
	}
	return "bin"
}
