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
	"time"

	"github.com/google/uuid"

	"github.com/AleutianAI/jobmatch/services/matcher"
)

// =============================================================================
// Ingestion Checkpoints
// =============================================================================
//
// Ingestion resumes from the newest posting it has already seen per source
// site. The cursor lives next to the corpus: one small document per source,
// point-read before a run and point-written after.

// Checkpoint is a per-source ingestion cursor.
type Checkpoint struct {
	// Source names the posting source (e.g. a job-board hostname).
	Source string

	// LastSiteID is the highest source-native posting id already ingested.
	LastSiteID int64

	// UpdatedAt is when the cursor was last advanced.
	UpdatedAt time.Time
}

// checkpointIDNamespace derives deterministic checkpoint object ids from
// source names.
var checkpointIDNamespace = uuid.MustParse("2ab1f5c8-04c7-57c3-8f10-9e1b7a3d64e5")

func checkpointObjectID(source string) string {
	return uuid.NewSHA1(checkpointIDNamespace, []byte(source)).String()
}

// GetCheckpoint returns the ingestion cursor for a source.
// Returns ErrNotFound when the source has never been ingested.
func (s *Store) GetCheckpoint(ctx context.Context, source string) (Checkpoint, error) {
	if source == "" {
		return Checkpoint{}, fmt.Errorf("store: source must not be empty: %w", matcher.ErrInvalidInput)
	}

	objs, err := s.client.Data().ObjectsGetter().
		WithClassName(classCheckpoint).
		WithID(checkpointObjectID(source)).
		Do(ctx)
	if err != nil {
		return Checkpoint{}, fmt.Errorf("store: get checkpoint %s: %w", source, wrapStoreErr(err))
	}
	if len(objs) == 0 {
		return Checkpoint{}, fmt.Errorf("store: checkpoint %s: %w", source, matcher.ErrNotFound)
	}

	props, ok := objs[0].Properties.(map[string]interface{})
	if !ok {
		return Checkpoint{}, fmt.Errorf("store: checkpoint %s has no properties: %w", source, matcher.ErrUpstreamInconsistent)
	}

	lastID, _ := props["lastSiteId"].(float64)
	updated, _ := time.Parse(time.RFC3339, str(props, "updatedAt"))
	return Checkpoint{
		Source:     str(props, "source"),
		LastSiteID: int64(lastID),
		UpdatedAt:  updated,
	}, nil
}

// PutCheckpoint writes (or replaces) the ingestion cursor for a source.
func (s *Store) PutCheckpoint(ctx context.Context, cp Checkpoint) error {
	if cp.Source == "" {
		return fmt.Errorf("store: source must not be empty: %w", matcher.ErrInvalidInput)
	}
	if cp.UpdatedAt.IsZero() {
		cp.UpdatedAt = time.Now().UTC()
	}

	exists, err := s.client.Data().Checker().
		WithClassName(classCheckpoint).
		WithID(checkpointObjectID(cp.Source)).
		Do(ctx)
	if err != nil {
		return fmt.Errorf("store: checking checkpoint %s: %w", cp.Source, wrapStoreErr(err))
	}

	props := map[string]interface{}{
		"source":     cp.Source,
		"lastSiteId": cp.LastSiteID,
		"updatedAt":  cp.UpdatedAt.UTC().Format(time.RFC3339),
	}

	if exists {
		err = s.client.Data().Updater().
			WithClassName(classCheckpoint).
			WithID(checkpointObjectID(cp.Source)).
			WithProperties(props).
			Do(ctx)
	} else {
		_, err = s.client.Data().Creator().
			WithClassName(classCheckpoint).
			WithID(checkpointObjectID(cp.Source)).
			WithProperties(props).
			Do(ctx)
	}
	if err != nil {
		return fmt.Errorf("store: saving checkpoint %s: %w", cp.Source, wrapStoreErr(err))
	}
	return nil
}
