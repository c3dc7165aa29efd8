// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package embedding is the fingerprint-provider boundary: an opaque
// text → fixed-length vector function backed by the OpenAI embeddings API,
// with an optional embedded cache in front of it.
package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"
)

// =============================================================================
// Provider Errors
// =============================================================================

var (
	// ErrProviderUnavailable marks a provider call that failed for transport
	// or server reasons. Transient; eligible for caller-level retry with
	// backoff. This module never retries internally.
	ErrProviderUnavailable = errors.New("embedding provider unavailable")

	// ErrRateLimited marks a provider 429. Transient; the caller owns backoff.
	ErrRateLimited = errors.New("embedding provider rate limited")
)

// Client is the fingerprint provider: an opaque text → vector function.
// Implementations must be safe for concurrent use.
type Client interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// =============================================================================
// OpenAI Wire Types
// =============================================================================

const defaultOpenAIEmbeddingsURL = "https://api.openai.com/v1/embeddings"

// defaultEmbeddingModel produces 1536-dimensional vectors, the system-wide
// fingerprint dimensionality.
const defaultEmbeddingModel = "text-embedding-3-small"

type openaiEmbeddingRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type openaiEmbeddingData struct {
	Index     int       `json:"index"`
	Embedding []float32 `json:"embedding"`
}

type openaiEmbeddingResponse struct {
	Data  []openaiEmbeddingData `json:"data"`
	Error *openaiError          `json:"error,omitempty"`
}

type openaiError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// =============================================================================
// Client Implementation
// =============================================================================

// OpenAIClient implements Client against the OpenAI embeddings REST API
// using raw net/http, without third-party SDKs.
//
// Thread Safety: OpenAIClient is safe for concurrent use.
type OpenAIClient struct {
	httpClient *http.Client
	apiKey     string
	model      string
	baseURL    string
}

// NewOpenAIClientWithConfig creates an OpenAIClient with explicit
// configuration. Useful for testing with mock servers or when configuration
// comes from a source other than environment variables.
func NewOpenAIClientWithConfig(apiKey, model, baseURL string) *OpenAIClient {
	return &OpenAIClient{
		httpClient: &http.Client{Timeout: 60 * time.Second},
		apiKey:     apiKey,
		model:      model,
		baseURL:    baseURL,
	}
}

// NewOpenAIClient creates a new OpenAIClient from environment variables.
//
// Description:
//
//	Reads OPENAI_API_KEY and EMBEDDING_MODEL from the environment.
//	Defaults to "text-embedding-3-small" if EMBEDDING_MODEL is not set.
//
// Outputs:
//   - *OpenAIClient: The configured client.
//   - error: Non-nil if OPENAI_API_KEY is missing.
func NewOpenAIClient() (*OpenAIClient, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	model := os.Getenv("EMBEDDING_MODEL")
	if apiKey == "" {
		slog.Warn("OpenAI API Key is empty. Embedding client will not function.")
		return nil, fmt.Errorf("embedding: API key is missing (OPENAI_API_KEY)")
	}
	if model == "" {
		model = defaultEmbeddingModel
		slog.Warn("EMBEDDING_MODEL not set, defaulting to " + defaultEmbeddingModel)
	}
	slog.Info("Initializing OpenAI embedding client", "model", model)
	return &OpenAIClient{
		httpClient: &http.Client{Timeout: 60 * time.Second},
		apiKey:     apiKey,
		model:      model,
		baseURL:    defaultOpenAIEmbeddingsURL,
	}, nil
}

// Model returns the embedding model name the client is configured with.
func (o *OpenAIClient) Model() string { return o.model }

// Embed implements Client against the OpenAI embeddings endpoint.
//
// # Outputs
//
//   - []float32: The fingerprint for text. Never empty on success.
//   - error: ErrRateLimited on 429; ErrProviderUnavailable on transport
//     failures and 5xx; a plain error on caller mistakes (4xx).
func (o *OpenAIClient) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, fmt.Errorf("embedding: input text is empty")
	}

	reqBody, err := json.Marshal(openaiEmbeddingRequest{
		Model: o.model,
		Input: text,
	})
	if err != nil {
		return nil, fmt.Errorf("embedding: marshaling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("embedding: creating HTTP request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+o.apiKey)

	slog.Debug("Requesting embedding", slog.String("model", o.model), slog.Int("input_chars", len(text)))

	resp, err := o.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("embedding: HTTP request failed: %v: %w", err, ErrProviderUnavailable)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("embedding: reading response: %v: %w", err, ErrProviderUnavailable)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("embedding: provider returned 429: %w", ErrRateLimited)
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("embedding: provider returned %d: %w", resp.StatusCode, ErrProviderUnavailable)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("embedding: provider returned %d: %s", resp.StatusCode, string(body))
	}

	var parsed openaiEmbeddingResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("embedding: decoding response: %w", err)
	}
	if parsed.Error != nil {
		return nil, fmt.Errorf("embedding: provider error: %s", parsed.Error.Message)
	}
	if len(parsed.Data) == 0 || len(parsed.Data[0].Embedding) == 0 {
		return nil, fmt.Errorf("embedding: provider returned no vector")
	}

	return parsed.Data[0].Embedding, nil
}
