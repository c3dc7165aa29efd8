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

	"github.com/weaviate/weaviate-go-client/v5/weaviate/filters"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"

	"github.com/AleutianAI/jobmatch/services/matcher"
)

// applicationListLimit caps how many applications one user query returns.
// Matches the upstream page limit; nobody applies to a thousand jobs.
const applicationListLimit = 1000

// =============================================================================
// Application Operations
// =============================================================================

// PutApplication stores a new application document under its own id.
func (s *Store) PutApplication(ctx context.Context, app matcher.Application) error {
	if app.ID == "" || app.UserID == "" || app.JobID == "" {
		return fmt.Errorf("store: application is missing required fields: %w", matcher.ErrInvalidInput)
	}

	_, err := s.client.Data().Creator().
		WithClassName(classApplication).
		WithID(app.ID).
		WithProperties(map[string]interface{}{
			"userId":      app.UserID,
			"jobId":       app.JobID,
			"appliedDate": app.AppliedDate.UTC().Format(time.RFC3339),
		}).
		Do(ctx)
	if err != nil {
		return fmt.Errorf("store: saving application %s: %w", app.ID, wrapStoreErr(err))
	}
	return nil
}

// GetApplication retrieves one application by id.
// Returns ErrNotFound for an absent id.
func (s *Store) GetApplication(ctx context.Context, applicationID string) (matcher.Application, error) {
	objs, err := s.client.Data().ObjectsGetter().
		WithClassName(classApplication).
		WithID(applicationID).
		Do(ctx)
	if err != nil {
		return matcher.Application{}, fmt.Errorf("store: get application %s: %w", applicationID, wrapStoreErr(err))
	}
	if len(objs) == 0 {
		return matcher.Application{}, fmt.Errorf("store: application %s: %w", applicationID, matcher.ErrNotFound)
	}

	props, ok := objs[0].Properties.(map[string]interface{})
	if !ok {
		return matcher.Application{}, fmt.Errorf("store: application %s has no properties: %w", applicationID, matcher.ErrUpstreamInconsistent)
	}
	return decodeApplication(applicationID, props), nil
}

// DeleteApplication removes one application by id.
func (s *Store) DeleteApplication(ctx context.Context, applicationID string) error {
	err := s.client.Data().Deleter().
		WithClassName(classApplication).
		WithID(applicationID).
		Do(ctx)
	if err != nil {
		return fmt.Errorf("store: delete application %s: %w", applicationID, wrapStoreErr(err))
	}
	return nil
}

// ApplicationsByUser returns all of a user's applications, newest first.
func (s *Store) ApplicationsByUser(ctx context.Context, userID string) ([]matcher.Application, error) {
	where := filters.Where().
		WithPath([]string{"userId"}).
		WithOperator(filters.Equal).
		WithValueText(userID)

	resp, err := s.client.GraphQL().Get().
		WithClassName(classApplication).
		WithWhere(where).
		WithSort(graphql.Sort{Path: []string{"appliedDate"}, Order: graphql.Desc}).
		WithLimit(applicationListLimit).
		WithFields(
			graphql.Field{Name: "userId"},
			graphql.Field{Name: "jobId"},
			graphql.Field{Name: "appliedDate"},
			graphql.Field{Name: "_additional", Fields: []graphql.Field{{Name: "id"}}},
		).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("store: listing applications for user: %w", wrapStoreErr(err))
	}

	hits, err := getHits(resp, classApplication)
	if err != nil {
		return nil, err
	}

	apps := make([]matcher.Application, 0, len(hits))
	for _, hit := range hits {
		app := decodeApplication(str(additional(hit), "id"), hit)
		if app.ID == "" || app.JobID == "" {
			s.logger.Warn("dropping malformed application hit",
				slog.String("application_id", app.ID))
			continue
		}
		apps = append(apps, app)
	}
	return apps, nil
}

// AppliedJobIDs returns the job ids of every application the user holds.
// Used by the match engine as its exclusion set.
func (s *Store) AppliedJobIDs(ctx context.Context, userID string) ([]string, error) {
	apps, err := s.ApplicationsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(apps))
	for _, app := range apps {
		ids = append(ids, app.JobID)
	}
	return ids, nil
}

// HasApplication reports whether an application for (userID, jobID) exists.
// Point query, not a transactional constraint; see Reconciler.SaveApplication.
func (s *Store) HasApplication(ctx context.Context, userID, jobID string) (bool, error) {
	where := filters.Where().WithOperator(filters.And).WithOperands([]*filters.WhereBuilder{
		filters.Where().WithPath([]string{"userId"}).WithOperator(filters.Equal).WithValueText(userID),
		filters.Where().WithPath([]string{"jobId"}).WithOperator(filters.Equal).WithValueText(jobID),
	})

	resp, err := s.client.GraphQL().Get().
		WithClassName(classApplication).
		WithWhere(where).
		WithLimit(1).
		WithFields(graphql.Field{Name: "_additional", Fields: []graphql.Field{{Name: "id"}}}).
		Do(ctx)
	if err != nil {
		return false, fmt.Errorf("store: checking application existence: %w", wrapStoreErr(err))
	}

	hits, err := getHits(resp, classApplication)
	if err != nil {
		return false, err
	}
	return len(hits) > 0, nil
}

// decodeApplication builds an Application from a property map. The applied
// date parses leniently: a malformed date yields the zero time rather than a
// dropped application.
func decodeApplication(id string, props map[string]interface{}) matcher.Application {
	applied, _ := time.Parse(time.RFC3339, str(props, "appliedDate"))
	return matcher.Application{
		ID:          id,
		UserID:      str(props, "userId"),
		JobID:       str(props, "jobId"),
		AppliedDate: applied,
	}
}
