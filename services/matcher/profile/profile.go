// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package profile maintains user profile fingerprints: free-form profile text
// goes in, a stored fingerprint comes out. Text extraction from CV files is
// an upstream concern; this package starts at plain text.
package profile

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"

	"github.com/AleutianAI/jobmatch/services/matcher"
)

// profileTracerName is the OTel tracer name for profile operations.
const profileTracerName = "jobmatch.profile"

// Embedder is the fingerprint provider slice the service needs.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// FingerprintStore is the candidate-store slice holding profile fingerprints.
type FingerprintStore interface {
	PutProfileFingerprint(ctx context.Context, userID string, fingerprint []float32) error
	GetProfileFingerprint(ctx context.Context, userID string) ([]float32, error)
	DeleteProfile(ctx context.Context, userID string) error
}

// Service turns profile text into stored fingerprints.
//
// # Thread Safety
//
// Safe for concurrent use; all state lives in the injected dependencies.
type Service struct {
	embedder Embedder
	store    FingerprintStore
	logger   *slog.Logger
}

// NewService creates a profile service.
func NewService(embedder Embedder, store FingerprintStore, logger *slog.Logger) *Service {
	if embedder == nil || store == nil {
		panic("NewService: embedder and store must not be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{embedder: embedder, store: store, logger: logger}
}

// SetProfileFromText embeds text and stores it as userID's profile
// fingerprint, replacing any previous one.
//
// # Outputs
//
//   - error: ErrInvalidInput for an empty user id or blank text; provider
//     errors pass through unchanged so callers can distinguish rate limits
//     from outages.
func (s *Service) SetProfileFromText(ctx context.Context, userID, text string) (err error) {
	ctx, span := otel.Tracer(profileTracerName).Start(ctx, "profile.Service.SetProfileFromText")
	defer span.End()
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
	}()

	if userID == "" {
		return fmt.Errorf("profile: userID must not be empty: %w", matcher.ErrInvalidInput)
	}
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("profile: profile text must not be empty: %w", matcher.ErrInvalidInput)
	}

	fingerprint, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return fmt.Errorf("profile: embedding profile text: %w", err)
	}

	if err := s.store.PutProfileFingerprint(ctx, userID, fingerprint); err != nil {
		return fmt.Errorf("profile: storing fingerprint: %w", err)
	}

	s.logger.Info("profile fingerprint updated",
		slog.Int("dimensions", len(fingerprint)),
		slog.Int("text_chars", len(text)),
	)
	return nil
}

// GetFingerprint returns userID's stored fingerprint.
// Returns matcher.ErrProfileNotFound when none exists.
func (s *Service) GetFingerprint(ctx context.Context, userID string) ([]float32, error) {
	if userID == "" {
		return nil, fmt.Errorf("profile: userID must not be empty: %w", matcher.ErrInvalidInput)
	}
	return s.store.GetProfileFingerprint(ctx, userID)
}

// Delete removes userID's stored profile.
func (s *Service) Delete(ctx context.Context, userID string) error {
	if userID == "" {
		return fmt.Errorf("profile: userID must not be empty: %w", matcher.ErrInvalidInput)
	}
	return s.store.DeleteProfile(ctx, userID)
}
