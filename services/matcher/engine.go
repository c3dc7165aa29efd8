// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package matcher implements the matching-and-ranking engine: it turns a
// profile fingerprint or keyword query into a ranked, deduplicated list of
// job matches, excluding jobs the user has already acted on.
//
// The engine is stateless per call. All persisted state lives behind the
// constructor-injected store interfaces, so the engine can be exercised
// against fakes in tests and against the Weaviate adapter in production.
package matcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// =============================================================================
// Tunables
// =============================================================================

const (
	// DefaultKeywordLimit caps the candidate page fetched for keyword search.
	// Full-corpus scoring in process is too expensive; 100 candidates is
	// plenty for a 15-item rerank.
	DefaultKeywordLimit = 100

	// DefaultRerankTopN is the fixed result size of FindByText after the
	// similarity rerank (or native-order truncation).
	DefaultRerankTopN = 15
)

// =============================================================================
// Store Interfaces (constructor-injected)
// =============================================================================

// JobSearcher is the slice of the candidate store the engine queries.
//
// SearchByVector returns up to limit nearest neighbours of vector, scored
// and ordered by the store (approximate). SearchByKeyword returns up to
// limit hits in store-native keyword relevance order; withFingerprint asks
// the store to include each hit's stored fingerprint for reranking.
type JobSearcher interface {
	SearchByVector(ctx context.Context, vector []float32, limit int) ([]MatchedJob, error)
	SearchByKeyword(ctx context.Context, req SearchRequest, withFingerprint bool, limit int) ([]KeywordHit, error)
}

// ProfileSource resolves a user's stored profile fingerprint.
// Returns ErrProfileNotFound when the user has no profile.
type ProfileSource interface {
	GetProfileFingerprint(ctx context.Context, userID string) ([]float32, error)
}

// AppliedJobsSource resolves the job ids a user has already applied to.
type AppliedJobsSource interface {
	AppliedJobIDs(ctx context.Context, userID string) ([]string, error)
}

// =============================================================================
// Match Engine
// =============================================================================

// Engine orchestrates fingerprinting, retrieval, exclusion, and ranking into
// top-K match operations.
//
// # Description
//
// Relevance ranking and deduplication-against-history are orthogonal concerns
// kept in separate calls: FindByVector ranks against an explicit exclusion
// set, FindByUser resolves the user's fingerprint and applied-set and then
// delegates. FindByText is hybrid — store-native keyword relevance with an
// optional in-memory similarity rerank on top.
//
// # Thread Safety
//
// Safe for concurrent use; each call owns its own query and result slice.
type Engine struct {
	jobs     JobSearcher
	profiles ProfileSource
	applied  AppliedJobsSource
	logger   *slog.Logger

	keywordLimit int
	rerankTopN   int
}

// EngineOption customizes an Engine.
type EngineOption func(*Engine)

// WithKeywordLimit overrides the keyword candidate page size.
func WithKeywordLimit(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.keywordLimit = n
		}
	}
}

// WithRerankTopN overrides the FindByText result size.
func WithRerankTopN(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.rerankTopN = n
		}
	}
}

// WithLogger sets the engine's logger. Nil is ignored.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewEngine creates a match engine over the given store slices.
//
// # Inputs
//
//   - jobs: Vector/keyword search access. Must not be nil.
//   - profiles: Profile fingerprint lookup. Must not be nil.
//   - applied: Applied-set lookup. Must not be nil.
//   - opts: Optional tunables.
//
// # Outputs
//
//   - *Engine: Ready-to-use engine. Never nil.
func NewEngine(jobs JobSearcher, profiles ProfileSource, applied AppliedJobsSource, opts ...EngineOption) *Engine {
	if jobs == nil || profiles == nil || applied == nil {
		panic("NewEngine: jobs, profiles, and applied must not be nil")
	}
	e := &Engine{
		jobs:         jobs,
		profiles:     profiles,
		applied:      applied,
		logger:       slog.Default(),
		keywordLimit: DefaultKeywordLimit,
		rerankTopN:   DefaultRerankTopN,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// FindByVector returns the topK jobs most similar to vector, with no id from
// excludeIDs present in the result.
//
// # Description
//
// Nearest-neighbour retrieval is approximate and exclusion happens after
// retrieval, so the engine over-fetches: it requests topK + len(excludeIDs)
// candidates so that after removing excluded ids at least topK remain
// whenever the corpus is large enough. If fewer survive, whatever is
// available is returned — a short result is not an error.
//
// # Outputs
//
//   - []MatchedJob: At most topK jobs, ordered by score descending; ties keep
//     store-native order. Never contains an excluded id.
//   - error: ErrInvalidInput for an empty/zero vector or topK < 1;
//     ErrUpstreamUnavailable if the candidate store cannot be reached.
func (e *Engine) FindByVector(ctx context.Context, vector []float32, topK int, excludeIDs []string) (results []MatchedJob, err error) {
	ctx, span := otel.Tracer(matcherTracerName).Start(ctx, "matcher.Engine.FindByVector",
		trace.WithAttributes(
			attribute.Int("top_k", topK),
			attribute.Int("exclude_count", len(excludeIDs)),
		),
	)
	defer span.End()

	start := time.Now()
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		recordMatchMetrics("find_by_vector", time.Since(start), err)
	}()

	if topK < 1 {
		return nil, fmt.Errorf("matcher: topK must be >= 1, got %d: %w", topK, ErrInvalidInput)
	}
	if isZeroVector(vector) {
		return nil, fmt.Errorf("matcher: query fingerprint is empty or zero: %w", ErrInvalidInput)
	}

	// Over-fetch so post-retrieval exclusion still leaves topK candidates.
	fetch := topK + len(excludeIDs)

	hits, err := e.jobs.SearchByVector(ctx, vector, fetch)
	if err != nil {
		return nil, fmt.Errorf("matcher: vector search: %w", err)
	}

	exclude := make(map[string]struct{}, len(excludeIDs))
	for _, id := range excludeIDs {
		exclude[id] = struct{}{}
	}

	results = make([]MatchedJob, 0, topK)
	for _, hit := range hits {
		if _, skip := exclude[hit.ID]; skip {
			continue
		}
		results = append(results, hit)
		if len(results) == topK {
			break
		}
	}

	// The store already orders by score, but the contract is ours to keep:
	// total order by (score desc, store-native order as tiebreak).
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	e.logger.Debug("vector match complete",
		slog.Int("requested", topK),
		slog.Int("fetched", len(hits)),
		slog.Int("returned", len(results)),
	)
	span.SetAttributes(attribute.Int("result_count", len(results)))
	return results, nil
}

// FindByUser returns the topK best matches for a user's stored profile
// fingerprint, excluding every job the user has already applied to.
//
// # Outputs
//
//   - []MatchedJob: As FindByVector.
//   - error: ErrProfileNotFound if the user has no stored fingerprint;
//     otherwise as FindByVector.
func (e *Engine) FindByUser(ctx context.Context, userID string, topK int) (results []MatchedJob, err error) {
	ctx, span := otel.Tracer(matcherTracerName).Start(ctx, "matcher.Engine.FindByUser",
		trace.WithAttributes(attribute.Int("top_k", topK)),
	)
	defer span.End()

	start := time.Now()
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		recordMatchMetrics("find_by_user", time.Since(start), err)
	}()

	if userID == "" {
		return nil, fmt.Errorf("matcher: userID must not be empty: %w", ErrInvalidInput)
	}

	fingerprint, err := e.profiles.GetProfileFingerprint(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("matcher: resolving profile fingerprint: %w", err)
	}

	appliedIDs, err := e.applied.AppliedJobIDs(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("matcher: resolving applied job ids: %w", err)
	}

	return e.FindByVector(ctx, fingerprint, topK, appliedIDs)
}

// FindByText searches jobs by title keyword and location, reranking by
// similarity to the user's fingerprint when one exists.
//
// # Description
//
// The store's keyword relevance and the platform's semantic relevance are
// different signals; only this layer can combine them per user. The store
// returns up to keywordLimit candidates in its native relevance order. If
// userID has a stored fingerprint, each candidate's stored fingerprint is
// scored with CosineSimilarity and the top rerankTopN are returned by
// similarity descending, ties keeping keyword order (stable). Without a
// fingerprint — including userID == "" for anonymous callers — the native
// order is truncated to the same N.
//
// # Outputs
//
//   - []BaseJob: At most rerankTopN jobs, fingerprints excluded.
//   - error: ErrUpstreamUnavailable if the store cannot be reached.
func (e *Engine) FindByText(ctx context.Context, req SearchRequest, userID string) (results []BaseJob, err error) {
	ctx, span := otel.Tracer(matcherTracerName).Start(ctx, "matcher.Engine.FindByText",
		trace.WithAttributes(
			attribute.String("country", req.Location.Country),
			attribute.Bool("anonymous", userID == ""),
		),
	)
	defer span.End()

	start := time.Now()
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		recordMatchMetrics("find_by_text", time.Since(start), err)
	}()

	var fingerprint []float32
	if userID != "" {
		fingerprint, err = e.profiles.GetProfileFingerprint(ctx, userID)
		if err != nil && !errors.Is(err, ErrProfileNotFound) {
			return nil, fmt.Errorf("matcher: resolving profile fingerprint: %w", err)
		}
		// No fingerprint is fine here: keyword order stands on its own.
		err = nil
	}
	rerank := len(fingerprint) > 0 && !isZeroVector(fingerprint)

	hits, err := e.jobs.SearchByKeyword(ctx, req, rerank, e.keywordLimit)
	if err != nil {
		return nil, fmt.Errorf("matcher: keyword search: %w", err)
	}
	if len(hits) == 0 {
		return nil, nil
	}

	if !rerank {
		n := e.rerankTopN
		if len(hits) < n {
			n = len(hits)
		}
		results = make([]BaseJob, 0, n)
		for _, hit := range hits[:n] {
			results = append(results, hit.Job)
		}
		return results, nil
	}

	// Secondary in-memory rerank on top of the store's primary keyword match.
	scores := make([]float64, len(hits))
	for i, hit := range hits {
		scores[i] = CosineSimilarity(fingerprint, hit.Fingerprint)
	}
	top := topNIndices(scores, e.rerankTopN)

	results = make([]BaseJob, 0, len(top))
	for _, idx := range top {
		results = append(results, hits[idx].Job)
	}

	e.logger.Debug("keyword match reranked",
		slog.Int("candidates", len(hits)),
		slog.Int("returned", len(results)),
	)
	span.SetAttributes(attribute.Int("result_count", len(results)))
	return results, nil
}
