// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/weaviate/weaviate/entities/models"

	"github.com/AleutianAI/jobmatch/services/matcher"
)

// profileIDNamespace is the fixed namespace for deriving a profile object id
// from an upstream user id (which is an opaque string, not a UUID).
var profileIDNamespace = uuid.MustParse("74cb46fc-e1bb-5d9e-9a64-2dbb0b0d1f2a")

// profileObjectID derives the deterministic store id for a user's profile.
// One profile per user: writing again overwrites in place.
func profileObjectID(userID string) string {
	return uuid.NewSHA1(profileIDNamespace, []byte(userID)).String()
}

// =============================================================================
// Profile Operations
// =============================================================================

// PutProfileFingerprint stores (or replaces) a user's profile fingerprint.
func (s *Store) PutProfileFingerprint(ctx context.Context, userID string, fingerprint []float32) error {
	if userID == "" {
		return fmt.Errorf("store: userID must not be empty: %w", matcher.ErrInvalidInput)
	}
	if len(fingerprint) == 0 {
		return fmt.Errorf("store: fingerprint must not be empty: %w", matcher.ErrInvalidInput)
	}

	obj := &models.Object{
		Class: classProfile,
		ID:    toUUID(profileObjectID(userID)),
		Properties: map[string]interface{}{
			"userId":      userID,
			"dateCreated": time.Now().UTC().Format(time.RFC3339),
		},
		Vector: fingerprint,
	}

	if _, err := s.client.Batch().ObjectsBatcher().WithObjects(obj).Do(ctx); err != nil {
		return fmt.Errorf("store: saving profile fingerprint: %w", wrapStoreErr(err))
	}
	s.logger.Debug("stored profile fingerprint", slog.Int("dimensions", len(fingerprint)))
	return nil
}

// GetProfileFingerprint returns a user's stored fingerprint.
// Returns ErrProfileNotFound when the user has no profile.
func (s *Store) GetProfileFingerprint(ctx context.Context, userID string) ([]float32, error) {
	if userID == "" {
		return nil, fmt.Errorf("store: userID must not be empty: %w", matcher.ErrInvalidInput)
	}

	objs, err := s.client.Data().ObjectsGetter().
		WithClassName(classProfile).
		WithID(profileObjectID(userID)).
		WithVector().
		Do(ctx)
	if err != nil {
		wrapped := wrapStoreErr(err)
		if errorsIsNotFound(wrapped) {
			return nil, fmt.Errorf("store: no profile for user: %w", matcher.ErrProfileNotFound)
		}
		return nil, fmt.Errorf("store: get profile fingerprint: %w", wrapped)
	}
	if len(objs) == 0 || len(objs[0].Vector) == 0 {
		return nil, fmt.Errorf("store: no profile for user: %w", matcher.ErrProfileNotFound)
	}
	return objs[0].Vector, nil
}

// DeleteProfile removes a user's stored profile.
func (s *Store) DeleteProfile(ctx context.Context, userID string) error {
	err := s.client.Data().Deleter().
		WithClassName(classProfile).
		WithID(profileObjectID(userID)).
		Do(ctx)
	if err != nil {
		return fmt.Errorf("store: delete profile: %w", wrapStoreErr(err))
	}
	return nil
}
