// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultHTTPTimeout is the default timeout for embedding requests.
const DefaultHTTPTimeout = 30 * time.Second

// HTTPClient talks to a local embeddings service.
//
// # Description
//
// HTTPClient implements Provider against the Aleutian embeddings sidecar,
// which runs sentence-transformer models (MiniLM, BGE) and exposes a
// batch embedding endpoint. This is the default backend for survey rating
// because anchor calibration was done against sentence-transformer models.
//
// # Thread Safety
//
// HTTPClient is safe for concurrent use.
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
}

// NewHTTPClient creates a client for the embeddings service at baseURL.
//
// # Example
//
//	provider := embedding.NewHTTPClient("http://localhost:8000")
//	vec, err := provider.Embed(ctx, "Extremely interested")
func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: DefaultHTTPTimeout,
		},
		timeout: DefaultHTTPTimeout,
	}
}

// WithTimeout sets a custom timeout for embedding requests.
func (c *HTTPClient) WithTimeout(timeout time.Duration) *HTTPClient {
	c.timeout = timeout
	c.httpClient.Timeout = timeout
	return c
}

// batchEmbedRequest is the request body for the /batch_embed endpoint.
type batchEmbedRequest struct {
	Texts []string `json:"texts"`
}

// batchEmbedResponse is the response from the /batch_embed endpoint.
type batchEmbedResponse struct {
	ID        string      `json:"id"`
	Timestamp int64       `json:"timestamp"`
	Model     string      `json:"model"`
	Vectors   [][]float32 `json:"vectors"`
	Dim       int         `json:"dim"`
}

// healthResponse is the response from the /health endpoint.
type healthResponse struct {
	Status string `json:"status"`
	Model  string `json:"model"`
}

// Embed computes a vector embedding for a single text.
func (c *HTTPClient) Embed(ctx context.Context, text string) ([]float32, error) {
	if ctx == nil {
		return nil, ErrInvalidInput
	}
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: text is empty", ErrInvalidInput)
	}

	vectors, err := c.BatchEmbed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// BatchEmbed computes embeddings for multiple texts in one request.
//
// # Description
//
// Batching amortizes model and transport overhead. A survey pass embeds
// hundreds of persona responses, so the rater always goes through this
// path rather than per-text calls.
//
// # Outputs
//
//   - [][]float32: One vector per input text, in input order.
//   - error: ErrBackendUnavailable (wrapped) on transport failure.
func (c *HTTPClient) BatchEmbed(ctx context.Context, texts []string) ([][]float32, error) {
	if ctx == nil {
		return nil, ErrInvalidInput
	}
	if len(texts) == 0 {
		return nil, fmt.Errorf("%w: texts is empty", ErrInvalidInput)
	}

	bodyBytes, err := json.Marshal(batchEmbedRequest{Texts: texts})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := c.baseURL + "/batch_embed"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%w: status %d: %s", ErrBackendUnavailable, resp.StatusCode, string(body))
	}

	var embResp batchEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&embResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	if len(embResp.Vectors) != len(texts) {
		return nil, fmt.Errorf("%w: got %d vectors for %d texts", ErrEmptyResponse, len(embResp.Vectors), len(texts))
	}

	return embResp.Vectors, nil
}

// Health checks if the embeddings service is available.
//
// # Example
//
//	if err := client.Health(ctx); err != nil {
//	    log.Warn("embeddings service unavailable", "error", err)
//	}
func (c *HTTPClient) Health(ctx context.Context) error {
	if ctx == nil {
		return ErrInvalidInput
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%w: status %d: %s", ErrBackendUnavailable, resp.StatusCode, string(body))
	}

	var health healthResponse
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		return fmt.Errorf("decode health response: %w", err)
	}

	if health.Status != "ok" {
		return fmt.Errorf("%w: status %q", ErrBackendUnavailable, health.Status)
	}

	return nil
}

// BaseURL returns the configured base URL.
func (c *HTTPClient) BaseURL() string {
	return c.baseURL
}

var _ Provider = (*HTTPClient)(nil)
