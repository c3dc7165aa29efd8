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
	"strings"

	"github.com/weaviate/weaviate-go-client/v5/weaviate/filters"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"

	"github.com/AleutianAI/jobmatch/services/matcher"
)

// baseJobFields are the public job properties requested by every job query.
// The fingerprint is deliberately absent; see the package comment.
func baseJobFields() []graphql.Field {
	return []graphql.Field{
		{Name: "title"},
		{Name: "company"},
		{Name: "city"},
		{Name: "country"},
		{Name: "dateUploaded"},
	}
}

// =============================================================================
// Vector Query
// =============================================================================

// SearchByVector returns up to limit nearest neighbours of vector, ordered by
// the store's cosine certainty descending. Certainty ([0,1]) is carried as
// the match score.
//
// Recall for small k is governed by the HNSW efConstruction setting in the
// class schema, not per query.
func (s *Store) SearchByVector(ctx context.Context, vector []float32, limit int) ([]matcher.MatchedJob, error) {
	nearVector := s.client.GraphQL().NearVectorArgBuilder().WithVector(vector)

	fields := append(baseJobFields(), graphql.Field{
		Name:   "_additional",
		Fields: []graphql.Field{{Name: "id"}, {Name: "certainty"}},
	})

	resp, err := s.client.GraphQL().Get().
		WithClassName(classJob).
		WithNearVector(nearVector).
		WithLimit(limit).
		WithFields(fields...).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("store: knn query: %w", wrapStoreErr(err))
	}

	hits, err := getHits(resp, classJob)
	if err != nil {
		return nil, err
	}

	matches := make([]matcher.MatchedJob, 0, len(hits))
	for _, hit := range hits {
		job, err := s.decodeBaseJob(hit)
		if err != nil {
			s.logger.Warn("dropping malformed knn hit", slog.String("error", err.Error()))
			continue
		}
		score, _ := additional(hit)["certainty"].(float64)
		matches = append(matches, matcher.MatchedJob{BaseJob: job, Score: score})
	}
	return matches, nil
}

// =============================================================================
// Keyword Query
// =============================================================================

// SearchByKeyword searches job titles with the store's BM25 keyword ranking
// plus exact-term location filters. With an empty query it matches everything
// that passes the filters. Results come back in store-native relevance order.
//
// withFingerprint additionally requests each hit's stored fingerprint so the
// caller can rerank; hits without a usable fingerprint keep a nil one.
func (s *Store) SearchByKeyword(ctx context.Context, req matcher.SearchRequest, withFingerprint bool, limit int) ([]matcher.KeywordHit, error) {
	builder := s.client.GraphQL().Get().
		WithClassName(classJob).
		WithLimit(limit)

	if q := strings.TrimSpace(req.Query); q != "" {
		builder = builder.WithBM25(s.client.GraphQL().Bm25ArgBuilder().
			WithQuery(q).
			WithProperties("title"))
	}

	if where := locationFilter(req.Location); where != nil {
		builder = builder.WithWhere(where)
	}

	additionalFields := []graphql.Field{{Name: "id"}}
	if withFingerprint {
		additionalFields = append(additionalFields, graphql.Field{Name: "vector"})
	}
	fields := append(baseJobFields(), graphql.Field{Name: "_additional", Fields: additionalFields})

	resp, err := builder.WithFields(fields...).Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("store: keyword query: %w", wrapStoreErr(err))
	}

	hits, err := getHits(resp, classJob)
	if err != nil {
		return nil, err
	}

	results := make([]matcher.KeywordHit, 0, len(hits))
	for _, hit := range hits {
		job, err := s.decodeBaseJob(hit)
		if err != nil {
			s.logger.Warn("dropping malformed keyword hit", slog.String("error", err.Error()))
			continue
		}
		kh := matcher.KeywordHit{Job: job}
		if withFingerprint {
			kh.Fingerprint = toFloat32Slice(additional(hit)["vector"])
		}
		results = append(results, kh)
	}
	return results, nil
}

// locationFilter builds the exact-term where clause for a location filter.
// Returns nil when no filter applies.
func locationFilter(loc matcher.LocationFilter) *filters.WhereBuilder {
	var operands []*filters.WhereBuilder
	if loc.City != "" {
		operands = append(operands, filters.Where().
			WithPath([]string{"city"}).
			WithOperator(filters.Equal).
			WithValueText(loc.City))
	}
	if loc.Country != "" {
		operands = append(operands, filters.Where().
			WithPath([]string{"country"}).
			WithOperator(filters.Equal).
			WithValueText(loc.Country))
	}

	switch len(operands) {
	case 0:
		return nil
	case 1:
		return operands[0]
	default:
		return filters.Where().WithOperator(filters.And).WithOperands(operands)
	}
}

// =============================================================================
// Batch Get
// =============================================================================

// GetJobsBatch returns the public fields of every existing job in ids using a
// single round trip — never N+1 point lookups. Ids with no matching document
// are simply absent from the result; the caller decides what absence means.
func (s *Store) GetJobsBatch(ctx context.Context, ids []string) ([]matcher.BaseJob, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	where := filters.Where().
		WithPath([]string{"id"}).
		WithOperator(filters.ContainsAny).
		WithValueText(ids...)

	fields := append(baseJobFields(), graphql.Field{
		Name:   "_additional",
		Fields: []graphql.Field{{Name: "id"}},
	})

	resp, err := s.client.GraphQL().Get().
		WithClassName(classJob).
		WithWhere(where).
		WithLimit(len(ids)).
		WithFields(fields...).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("store: batch get: %w", wrapStoreErr(err))
	}

	hits, err := getHits(resp, classJob)
	if err != nil {
		return nil, err
	}

	jobs := make([]matcher.BaseJob, 0, len(hits))
	for _, hit := range hits {
		job, err := s.decodeBaseJob(hit)
		if err != nil {
			s.logger.Warn("dropping malformed batch hit", slog.String("error", err.Error()))
			continue
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

// =============================================================================
// Point Operations
// =============================================================================

// GetJob retrieves one job by id, fingerprint excluded.
// Returns ErrNotFound for an absent id.
func (s *Store) GetJob(ctx context.Context, id string) (matcher.Job, error) {
	objs, err := s.client.Data().ObjectsGetter().
		WithClassName(classJob).
		WithID(id).
		Do(ctx)
	if err != nil {
		return matcher.Job{}, fmt.Errorf("store: get job %s: %w", id, wrapStoreErr(err))
	}
	if len(objs) == 0 {
		return matcher.Job{}, fmt.Errorf("store: job %s: %w", id, matcher.ErrNotFound)
	}

	props, ok := objs[0].Properties.(map[string]interface{})
	if !ok {
		return matcher.Job{}, fmt.Errorf("store: job %s has no properties: %w", id, matcher.ErrUpstreamInconsistent)
	}
	job, err := s.decodeJobProperties(id, props, nil)
	if err != nil {
		return matcher.Job{}, fmt.Errorf("%w: %w", err, matcher.ErrUpstreamInconsistent)
	}
	return job, nil
}

// UpsertJobs writes postings in one batch. Content-derived ids make this
// idempotent: re-ingesting the same posting overwrites it in place.
func (s *Store) UpsertJobs(ctx context.Context, jobs []matcher.Job) error {
	if len(jobs) == 0 {
		return nil
	}

	objects := make([]*models.Object, 0, len(jobs))
	for _, job := range jobs {
		objects = append(objects, &models.Object{
			Class: classJob,
			ID:    toUUID(job.ID),
			Properties: map[string]interface{}{
				"title":          job.Title,
				"company":        job.Company,
				"city":           job.Location.City,
				"country":        job.Location.Country,
				"description":    job.Description,
				"url":            job.URL,
				"dateUploaded":   job.DateUploaded,
				"expirationDate": job.ExpirationDate,
				"contentHash":    matcher.ContentHash(job.Company, job.Title, job.URL),
			},
			Vector: job.Fingerprint,
		})
	}

	if _, err := s.client.Batch().ObjectsBatcher().WithObjects(objects...).Do(ctx); err != nil {
		return fmt.Errorf("store: upserting %d jobs: %w", len(jobs), wrapStoreErr(err))
	}
	s.logger.Debug("upserted jobs", slog.Int("count", len(jobs)))
	return nil
}

// DeleteJob removes one job by id. Deleting an absent id returns ErrNotFound.
func (s *Store) DeleteJob(ctx context.Context, id string) error {
	err := s.client.Data().Deleter().
		WithClassName(classJob).
		WithID(id).
		Do(ctx)
	if err != nil {
		return fmt.Errorf("store: delete job %s: %w", id, wrapStoreErr(err))
	}
	return nil
}

// =============================================================================
// Facet Aggregations
// =============================================================================

// DistinctCountries returns every distinct posting country.
func (s *Store) DistinctCountries(ctx context.Context) ([]string, error) {
	resp, err := s.client.GraphQL().Aggregate().
		WithClassName(classJob).
		WithGroupBy("country").
		WithFields(graphql.Field{
			Name:   "groupedBy",
			Fields: []graphql.Field{{Name: "value"}},
		}).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("store: aggregating countries: %w", wrapStoreErr(err))
	}
	return aggGroups(resp, classJob)
}

// DistinctCities returns every distinct posting city within a country.
func (s *Store) DistinctCities(ctx context.Context, country string) ([]string, error) {
	if country == "" {
		return nil, fmt.Errorf("store: country must not be empty: %w", matcher.ErrInvalidInput)
	}

	where := filters.Where().
		WithPath([]string{"country"}).
		WithOperator(filters.Equal).
		WithValueText(country)

	resp, err := s.client.GraphQL().Aggregate().
		WithClassName(classJob).
		WithGroupBy("city").
		WithWhere(where).
		WithFields(graphql.Field{
			Name:   "groupedBy",
			Fields: []graphql.Field{{Name: "value"}},
		}).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("store: aggregating cities for %s: %w", country, wrapStoreErr(err))
	}
	return aggGroups(resp, classJob)
}
