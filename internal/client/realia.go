package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"

	api "github.com/realia-labs/realia/api/v1alpha1"
	"github.com/realia-labs/realia/pkg/requestid"
)

const apiPrefix = "/api/v1"

// RealiaClient talks to the Realia API server.
type RealiaClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

func NewRealiaClient(baseURL, token string, httpClient *http.Client) *RealiaClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &RealiaClient{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		token:      token,
		httpClient: httpClient,
	}
}

// Image is a file to upload.
type Image struct {
	Filename string
	MimeType string
	Content  []byte
}

func (c *RealiaClient) Nonce(ctx context.Context, address string) (string, error) {
	var resp api.NonceResponse
	if err := c.doJSON(ctx, http.MethodPost, "/auth/nonce", api.NonceRequest{Address: address}, &resp); err != nil {
		return "", err
	}
	return resp.Nonce, nil
}

func (c *RealiaClient) Connect(ctx context.Context, req api.ConnectRequest) (*api.ConnectResponse, error) {
	var resp api.ConnectResponse
	if err := c.doJSON(ctx, http.MethodPost, "/auth/connect", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Mint uploads the image and returns the progress stream. The caller closes it.
func (c *RealiaClient) Mint(ctx context.Context, image Image, data api.MintData) (io.ReadCloser, error) {
	rawData, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal mint data: %w", err)
	}

	body, contentType, err := multipartBody(image, map[string]string{"data": string(rawData)})
	if err != nil {
		return nil, err
	}

	resp, err := c.do(ctx, http.MethodPost, "/mint", body, contentType)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK || !strings.HasPrefix(resp.Header.Get("Content-Type"), "text/event-stream") {
		defer func() {
			_ = resp.Body.Close()
		}()
		return nil, readError(resp)
	}

	return resp.Body, nil
}

func (c *RealiaClient) Verify(ctx context.Context, image Image) (*api.VerifyResponse, error) {
	body, contentType, err := multipartBody(image, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.do(ctx, http.MethodPost, "/verify", body, contentType)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, readError(resp)
	}

	var verifyResp api.VerifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&verifyResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &verifyResp, nil
}

// VerificationResponses returns the agent responses recorded for a verification id.
func (c *RealiaClient) VerificationResponses(ctx context.Context, verificationID string) ([]api.AgentResponse, error) {
	var list api.AgentResponseList
	path := fmt.Sprintf("/verifications/%s/responses", url.PathEscape(verificationID))
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &list); err != nil {
		return nil, err
	}
	return list.Responses, nil
}

// ListNfts returns a page of minted tokens. An empty owner lists every token.
func (c *RealiaClient) ListNfts(ctx context.Context, owner string, limit, offset int) (*api.NftList, error) {
	q := url.Values{}
	if owner != "" {
		q.Set("owner", owner)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if offset > 0 {
		q.Set("offset", strconv.Itoa(offset))
	}

	path := "/nfts"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var list api.NftList
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

func (c *RealiaClient) GetNft(ctx context.Context, tokenID string) (*api.Nft, error) {
	var nft api.Nft
	if err := c.doJSON(ctx, http.MethodGet, "/nfts/"+url.PathEscape(tokenID), nil, &nft); err != nil {
		return nil, err
	}
	return &nft, nil
}

func (c *RealiaClient) GetVerification(ctx context.Context, verificationID string) (*api.Verification, error) {
	var v api.Verification
	if err := c.doJSON(ctx, http.MethodGet, "/verifications/"+url.PathEscape(verificationID), nil, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

func (c *RealiaClient) doJSON(ctx context.Context, method, path string, in any, out any) error {
	var body io.Reader
	contentType := ""
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(raw)
		contentType = "application/json"
	}

	resp, err := c.do(ctx, method, path, body, contentType)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return readError(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func (c *RealiaClient) do(ctx context.Context, method, path string, body io.Reader, contentType string) (*http.Response, error) {
	httpReq, err := http.NewRequestWithContext(ctx, method, c.baseURL+apiPrefix+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	if c.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.token)
	}
	httpReq.Header.Set(requestid.Header, requestid.Generate())

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to call realia api: %w", err)
	}
	return resp, nil
}

// APIError is a non 2xx reply of the api.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("realia api returned status %d: %s", e.StatusCode, e.Message)
}

func readError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	var apiErr api.Error
	if err := json.Unmarshal(raw, &apiErr); err == nil && apiErr.Error != "" {
		return &APIError{StatusCode: resp.StatusCode, Message: apiErr.Error}
	}
	return &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(raw))}
}

func multipartBody(image Image, fields map[string]string) (io.Reader, string, error) {
	var body bytes.Buffer
	form := multipart.NewWriter(&body)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="image"; filename=%q`, image.Filename))
	header.Set("Content-Type", image.MimeType)
	part, err := form.CreatePart(header)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create form: %w", err)
	}
	if _, err := part.Write(image.Content); err != nil {
		return nil, "", fmt.Errorf("failed to write form: %w", err)
	}

	for name, value := range fields {
		if err := form.WriteField(name, value); err != nil {
			return nil, "", fmt.Errorf("failed to write form: %w", err)
		}
	}

	if err := form.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to close form: %w", err)
	}
	return &body, form.FormDataContentType(), nil
}
