// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package ingest embeds and upserts job postings in bulk. It consumes only
// the public fingerprint-provider and candidate-store layers; scraping and
// source APIs live upstream of it.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/AleutianAI/jobmatch/services/matcher"
	"github.com/AleutianAI/jobmatch/services/matcher/store"
)

// defaultConcurrency is the number of parallel embedding calls during a run.
// Bounds outstanding provider calls to respect upstream rate limits.
const defaultConcurrency = 10

// =============================================================================
// Inputs
// =============================================================================

// Posting is one raw job posting handed to the pipeline by a source adapter.
type Posting struct {
	SiteID         int64
	Title          string
	Company        string
	City           string
	Country        string
	Description    string
	URL            string
	DateUploaded   string // RFC 3339
	ExpirationDate string // RFC 3339 or YYYY-MM-DD
}

// Embedder is the fingerprint provider slice the pipeline needs.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// JobWriter is the candidate-store slice the pipeline writes through.
type JobWriter interface {
	UpsertJobs(ctx context.Context, jobs []matcher.Job) error
}

// CheckpointStore persists per-source resume cursors between runs.
type CheckpointStore interface {
	GetCheckpoint(ctx context.Context, source string) (store.Checkpoint, error)
	PutCheckpoint(ctx context.Context, cp store.Checkpoint) error
}

// =============================================================================
// Pipeline
// =============================================================================

// Pipeline embeds postings in parallel and upserts them in one batch.
//
// # Description
//
// Content-derived ids make runs idempotent: re-ingesting a posting
// overwrites it in place. Individual embedding failures skip that posting
// with a warning; only a dead provider or a failed batch write fails the run.
//
// # Thread Safety
//
// Safe for concurrent use; each Run owns its own state.
type Pipeline struct {
	embedder    Embedder
	writer      JobWriter
	concurrency int
	logger      *slog.Logger

	// now is injected for tests; defaults to time.Now.
	now func() time.Time
}

// NewPipeline creates an ingestion pipeline.
//
// # Inputs
//
//   - embedder: Fingerprint provider. Must not be nil.
//   - writer: Job upsert access. Must not be nil.
//   - concurrency: Parallel embedding calls. Pass 0 for the default (10).
//   - logger: May be nil.
func NewPipeline(embedder Embedder, writer JobWriter, concurrency int, logger *slog.Logger) *Pipeline {
	if embedder == nil || writer == nil {
		panic("NewPipeline: embedder and writer must not be nil")
	}
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		embedder:    embedder,
		writer:      writer,
		concurrency: concurrency,
		logger:      logger,
		now:         time.Now,
	}
}

// Run ingests postings: filter, embed in parallel, upsert in one batch.
//
// # Outputs
//
//   - int: How many postings were upserted.
//   - error: Non-nil if the context was cancelled or the batch write failed.
//     Per-posting embedding failures are logged and skipped, not returned.
func (p *Pipeline) Run(ctx context.Context, postings []Posting) (int, error) {
	if len(postings) == 0 {
		return 0, nil
	}

	eligible := make([]Posting, 0, len(postings))
	for _, posting := range postings {
		if reason := p.skipReason(posting); reason != "" {
			p.logger.Debug("skipping posting",
				slog.Int64("site_id", posting.SiteID),
				slog.String("reason", reason),
			)
			continue
		}
		eligible = append(eligible, posting)
	}
	if len(eligible) == 0 {
		return 0, nil
	}

	p.logger.Info("ingest run starting",
		slog.Int("postings", len(postings)),
		slog.Int("eligible", len(eligible)),
		slog.Int("concurrency", p.concurrency),
	)

	var (
		mu   sync.Mutex
		jobs []matcher.Job
	)

	g, gctx := errgroup.WithContext(ctx)
	sem := make(chan struct{}, p.concurrency)

	for _, posting := range eligible {
		pst := posting
		g.Go(func() error {
			sem <- struct{}{}
			defer func() { <-sem }()

			if err := gctx.Err(); err != nil {
				return err
			}

			fingerprint, err := p.embedder.Embed(gctx, embeddingInput(pst))
			if err != nil {
				p.logger.Warn("failed to embed posting",
					slog.Int64("site_id", pst.SiteID),
					slog.String("title", pst.Title),
					slog.String("error", err.Error()),
				)
				// Individual failure is not fatal.
				return nil
			}

			job := buildJob(pst, fingerprint)
			mu.Lock()
			jobs = append(jobs, job)
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return 0, fmt.Errorf("ingest: embedding postings: %w", err)
	}
	if len(jobs) == 0 {
		p.logger.Warn("ingest run produced no jobs", slog.Int("eligible", len(eligible)))
		return 0, nil
	}

	if err := p.writer.UpsertJobs(ctx, jobs); err != nil {
		return 0, fmt.Errorf("ingest: upserting jobs: %w", err)
	}

	p.logger.Info("ingest run complete",
		slog.Int("upserted", len(jobs)),
		slog.Int("skipped", len(postings)-len(jobs)),
	)
	return len(jobs), nil
}

// RunFrom ingests only postings newer than the source's stored cursor, then
// advances the cursor past the newest posting seen.
//
// # Description
//
// A source with no cursor yet starts from zero (full ingest). The cursor
// covers every posting the run looked at, ingested or skipped — a skipped
// posting was still seen and must not be re-fetched forever. The cursor only
// advances after a successful run, so a failed run is re-attempted from the
// same position.
func (p *Pipeline) RunFrom(ctx context.Context, checkpoints CheckpointStore, source string, postings []Posting) (int, error) {
	if source == "" {
		return 0, fmt.Errorf("ingest: source must not be empty: %w", matcher.ErrInvalidInput)
	}

	cp, err := checkpoints.GetCheckpoint(ctx, source)
	if err != nil && !errors.Is(err, matcher.ErrNotFound) {
		return 0, fmt.Errorf("ingest: reading checkpoint for %s: %w", source, err)
	}

	fresh := make([]Posting, 0, len(postings))
	maxSeen := cp.LastSiteID
	for _, posting := range postings {
		if posting.SiteID <= cp.LastSiteID {
			continue
		}
		if posting.SiteID > maxSeen {
			maxSeen = posting.SiteID
		}
		fresh = append(fresh, posting)
	}
	if len(fresh) == 0 {
		p.logger.Info("no postings past checkpoint",
			slog.String("source", source),
			slog.Int64("cursor", cp.LastSiteID),
		)
		return 0, nil
	}

	n, err := p.Run(ctx, fresh)
	if err != nil {
		return 0, err
	}

	if err := checkpoints.PutCheckpoint(ctx, store.Checkpoint{
		Source:     source,
		LastSiteID: maxSeen,
		UpdatedAt:  p.now().UTC(),
	}); err != nil {
		return n, fmt.Errorf("ingest: advancing checkpoint for %s: %w", source, err)
	}
	return n, nil
}

// skipReason returns why a posting is ineligible, or "" to keep it.
func (p *Pipeline) skipReason(posting Posting) string {
	if strings.TrimSpace(posting.Title) == "" || strings.TrimSpace(posting.Company) == "" {
		return "missing title or company"
	}
	if strings.TrimSpace(posting.Description) == "" {
		return "no meaningful description"
	}
	if strings.TrimSpace(posting.Country) == "" || strings.TrimSpace(posting.City) == "" {
		return "missing location"
	}
	if posting.URL == "" {
		return "missing url"
	}
	if exp, ok := parseExpiration(posting.ExpirationDate); ok && exp.Before(p.now()) {
		return "expired"
	}
	return ""
}

// parseExpiration accepts RFC 3339 or bare YYYY-MM-DD dates.
func parseExpiration(raw string) (time.Time, bool) {
	if raw == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, true
	}
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		// A date-only expiry means "valid through that day".
		return t.Add(24*time.Hour - time.Nanosecond), true
	}
	return time.Time{}, false
}

// embeddingInput is the text a posting is fingerprinted from: title plus
// full description, same as profile fingerprints are matched against.
func embeddingInput(posting Posting) string {
	return posting.Title + "\n" + posting.Description
}

// buildJob assembles the store document for a posting.
func buildJob(posting Posting, fingerprint []float32) matcher.Job {
	return matcher.Job{
		BaseJob: matcher.BaseJob{
			ID:      matcher.JobID(posting.Company, posting.Title, posting.URL),
			Title:   posting.Title,
			Company: posting.Company,
			Location: matcher.JobLocation{
				Country: posting.Country,
				City:    posting.City,
			},
			DateUploaded: normalizeDate(posting.DateUploaded),
		},
		Description:    posting.Description,
		URL:            posting.URL,
		ExpirationDate: normalizeDate(posting.ExpirationDate),
		Fingerprint:    fingerprint,
	}
}

// normalizeDate widens a bare YYYY-MM-DD into RFC 3339 for the store's date
// fields; anything else passes through untouched.
func normalizeDate(raw string) string {
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return t.UTC().Format(time.RFC3339)
	}
	return raw
}
