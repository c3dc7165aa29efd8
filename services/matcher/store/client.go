// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package store is the candidate-store query-construction layer, backed by
// Weaviate. It is not a database implementation — it owns the query shapes
// the core issues (vector KNN with over-fetch, keyword + filters, batched
// id lookups, facet aggregations, point CRUD) and the decoding of loosely
// typed documents into validated records.
//
// Bandwidth discipline: fingerprints are 1536 floats per document and are
// excluded from every result unless a rerank explicitly asks for them.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-playground/validator/v10"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/fault"
	"github.com/weaviate/weaviate/entities/models"

	"github.com/AleutianAI/jobmatch/services/matcher"
)

// =============================================================================
// Class Names
// =============================================================================

const (
	// classJob holds job postings, vectorized with HNSW cosine.
	classJob = "Job"

	// classApplication holds user applications (no vector).
	classApplication = "JobApplication"

	// classProfile holds user profile fingerprints as the object vector.
	classProfile = "CandidateProfile"

	// classCheckpoint holds per-source ingestion cursors (no vector).
	classCheckpoint = "IngestCheckpoint"
)

// =============================================================================
// Store
// =============================================================================

// Config holds the Weaviate endpoint settings.
type Config struct {
	// Host is the Weaviate host:port, e.g. "localhost:8080".
	Host string

	// Scheme is "http" or "https".
	Scheme string
}

// Store wraps a Weaviate client with the query shapes the core issues.
//
// # Thread Safety
//
// Safe for concurrent use; every method builds its own query.
type Store struct {
	client   *weaviate.Client
	validate *validator.Validate
	logger   *slog.Logger
}

// New creates a Store for the given endpoint.
//
// # Inputs
//
//   - cfg: Endpoint settings. Host must not be empty; Scheme defaults to "http".
//   - logger: Logger for decode/cleanup diagnostics. May be nil.
//
// # Outputs
//
//   - *Store: The configured store.
//   - error: Non-nil if cfg.Host is empty.
func New(cfg Config, logger *slog.Logger) (*Store, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("store: host is missing")
	}
	if cfg.Scheme == "" {
		cfg.Scheme = "http"
	}
	if logger == nil {
		logger = slog.Default()
	}

	client := weaviate.New(weaviate.Config{
		Host:   cfg.Host,
		Scheme: cfg.Scheme,
	})

	slog.Info("Initializing candidate store", "host", cfg.Host, "scheme", cfg.Scheme)
	return &Store{
		client:   client,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   logger,
	}, nil
}

// EnsureSchema creates any missing classes with their expected mappings.
// Existing classes are left untouched; call once at startup.
func (s *Store) EnsureSchema(ctx context.Context) error {
	for _, class := range []*models.Class{jobClass(), applicationClass(), profileClass(), checkpointClass()} {
		exists, err := s.client.Schema().ClassExistenceChecker().WithClassName(class.Class).Do(ctx)
		if err != nil {
			return fmt.Errorf("store: checking class %s: %w", class.Class, wrapStoreErr(err))
		}
		if exists {
			continue
		}
		if err := s.client.Schema().ClassCreator().WithClass(class).Do(ctx); err != nil {
			return fmt.Errorf("store: creating class %s: %w", class.Class, wrapStoreErr(err))
		}
		s.logger.Info("created store class", slog.String("class", class.Class))
	}
	return nil
}

func jobClass() *models.Class {
	return &models.Class{
		Class:           classJob,
		Description:     "A job posting with its embedding fingerprint",
		Vectorizer:      "none",
		VectorIndexType: "hnsw",
		VectorIndexConfig: map[string]interface{}{
			"distance":       "cosine",
			"maxConnections": 32,
			"efConstruction": 100,
		},
		Properties: []*models.Property{
			{Name: "title", DataType: []string{"text"}, Tokenization: "word"},
			{Name: "company", DataType: []string{"text"}, Tokenization: "field"},
			{Name: "city", DataType: []string{"text"}, Tokenization: "field"},
			{Name: "country", DataType: []string{"text"}, Tokenization: "field"},
			{Name: "description", DataType: []string{"text"}, Tokenization: "word"},
			{Name: "url", DataType: []string{"text"}, Tokenization: "field"},
			{Name: "dateUploaded", DataType: []string{"date"}},
			{Name: "expirationDate", DataType: []string{"date"}},
			{Name: "contentHash", DataType: []string{"text"}, Tokenization: "field"},
		},
	}
}

func applicationClass() *models.Class {
	return &models.Class{
		Class:       classApplication,
		Description: "A user's application to a job",
		Vectorizer:  "none",
		Properties: []*models.Property{
			{Name: "userId", DataType: []string{"text"}, Tokenization: "field"},
			{Name: "jobId", DataType: []string{"text"}, Tokenization: "field"},
			{Name: "appliedDate", DataType: []string{"date"}},
		},
	}
}

func profileClass() *models.Class {
	return &models.Class{
		Class:       classProfile,
		Description: "A user's profile fingerprint",
		Vectorizer:  "none",
		Properties: []*models.Property{
			{Name: "userId", DataType: []string{"text"}, Tokenization: "field"},
			{Name: "dateCreated", DataType: []string{"date"}},
		},
	}
}

func checkpointClass() *models.Class {
	return &models.Class{
		Class:       classCheckpoint,
		Description: "Per-source ingestion cursor",
		Vectorizer:  "none",
		Properties: []*models.Property{
			{Name: "source", DataType: []string{"text"}, Tokenization: "field"},
			{Name: "lastSiteId", DataType: []string{"int"}},
			{Name: "updatedAt", DataType: []string{"date"}},
		},
	}
}

// =============================================================================
// Error Mapping
// =============================================================================

// wrapStoreErr maps a Weaviate client error onto the module's taxonomy.
// A 404 becomes ErrNotFound; everything else is a transient upstream failure.
func wrapStoreErr(err error) error {
	if err == nil {
		return nil
	}
	var clientErr *fault.WeaviateClientError
	if errors.As(err, &clientErr) && clientErr.StatusCode == 404 {
		return fmt.Errorf("%s: %w", clientErr.Msg, matcher.ErrNotFound)
	}
	return fmt.Errorf("%v: %w", err, matcher.ErrUpstreamUnavailable)
}

// errorsIsNotFound reports whether a wrapped store error is an absence.
func errorsIsNotFound(err error) bool {
	return errors.Is(err, matcher.ErrNotFound)
}

// graphQLErr folds GraphQL-level errors from a response into one error, or
// returns nil when the response is clean.
func graphQLErr(resp *models.GraphQLResponse) error {
	if resp == nil {
		return fmt.Errorf("store: empty response: %w", matcher.ErrUpstreamUnavailable)
	}
	if len(resp.Errors) == 0 {
		return nil
	}
	msgs := make([]string, 0, len(resp.Errors))
	for _, e := range resp.Errors {
		msgs = append(msgs, e.Message)
	}
	return fmt.Errorf("store: graphql errors: %v: %w", msgs, matcher.ErrUpstreamUnavailable)
}
