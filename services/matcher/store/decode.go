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
	"fmt"

	"github.com/go-openapi/strfmt"
	"github.com/weaviate/weaviate/entities/models"

	"github.com/AleutianAI/jobmatch/services/matcher"
)

// toUUID converts a module-level id string into the store's id type.
func toUUID(id string) strfmt.UUID {
	return strfmt.UUID(id)
}

// =============================================================================
// GraphQL Response Decoding
// =============================================================================
//
// Weaviate answers GraphQL queries with untyped JSON trees. Everything below
// walks those trees into the typed records of the matcher package, validating
// at the boundary so partial documents never escape this package.

// getHits extracts the per-object maps for className from a Get response.
func getHits(resp *models.GraphQLResponse, className string) ([]map[string]interface{}, error) {
	if err := graphQLErr(resp); err != nil {
		return nil, err
	}
	get, ok := resp.Data["Get"].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("store: response missing Get section: %w", matcher.ErrUpstreamInconsistent)
	}
	raw, ok := get[className].([]interface{})
	if !ok {
		// A class with zero hits decodes as nil; that is a valid empty result.
		if get[className] == nil {
			return nil, nil
		}
		return nil, fmt.Errorf("store: malformed %s hits: %w", className, matcher.ErrUpstreamInconsistent)
	}

	hits := make([]map[string]interface{}, 0, len(raw))
	for _, r := range raw {
		m, ok := r.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("store: malformed %s hit: %w", className, matcher.ErrUpstreamInconsistent)
		}
		hits = append(hits, m)
	}
	return hits, nil
}

// aggGroups extracts the groupedBy values for className from an Aggregate
// response.
func aggGroups(resp *models.GraphQLResponse, className string) ([]string, error) {
	if err := graphQLErr(resp); err != nil {
		return nil, err
	}
	agg, ok := resp.Data["Aggregate"].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("store: response missing Aggregate section: %w", matcher.ErrUpstreamInconsistent)
	}
	raw, _ := agg[className].([]interface{})

	values := make([]string, 0, len(raw))
	for _, r := range raw {
		group, ok := r.(map[string]interface{})
		if !ok {
			continue
		}
		grouped, ok := group["groupedBy"].(map[string]interface{})
		if !ok {
			continue
		}
		if v, ok := grouped["value"].(string); ok && v != "" {
			values = append(values, v)
		}
	}
	return values, nil
}

// =============================================================================
// Field Accessors
// =============================================================================

func str(m map[string]interface{}, key string) string {
	v, _ := m[key].(string)
	return v
}

// additional returns the _additional metadata map of a hit, never nil.
func additional(m map[string]interface{}) map[string]interface{} {
	a, _ := m["_additional"].(map[string]interface{})
	if a == nil {
		return map[string]interface{}{}
	}
	return a
}

// toFloat32Slice converts a GraphQL vector ([]interface{} of float64) into a
// fingerprint. Returns nil for anything malformed.
func toFloat32Slice(v interface{}) []float32 {
	raw, ok := v.([]interface{})
	if !ok || len(raw) == 0 {
		return nil
	}
	out := make([]float32, 0, len(raw))
	for _, x := range raw {
		f, ok := x.(float64)
		if !ok {
			return nil
		}
		out = append(out, float32(f))
	}
	return out
}

// =============================================================================
// Record Decoding
// =============================================================================

// decodeBaseJob builds a validated BaseJob from a Get hit. Returns an error
// for documents missing required fields; callers drop those with a warning
// instead of propagating partial records.
func (s *Store) decodeBaseJob(hit map[string]interface{}) (matcher.BaseJob, error) {
	job := matcher.BaseJob{
		ID:      str(additional(hit), "id"),
		Title:   str(hit, "title"),
		Company: str(hit, "company"),
		Location: matcher.JobLocation{
			Country: str(hit, "country"),
			City:    str(hit, "city"),
		},
		DateUploaded: str(hit, "dateUploaded"),
	}
	if err := s.validate.Struct(job); err != nil {
		return matcher.BaseJob{}, fmt.Errorf("store: rejecting partial job document %q: %w", job.ID, err)
	}
	return job, nil
}

// decodeJobProperties builds a validated full Job from a point-read property
// map plus its object id and (optional) vector.
func (s *Store) decodeJobProperties(id string, props map[string]interface{}, vector []float32) (matcher.Job, error) {
	job := matcher.Job{
		BaseJob: matcher.BaseJob{
			ID:      id,
			Title:   str(props, "title"),
			Company: str(props, "company"),
			Location: matcher.JobLocation{
				Country: str(props, "country"),
				City:    str(props, "city"),
			},
			DateUploaded: str(props, "dateUploaded"),
		},
		Description:    str(props, "description"),
		URL:            str(props, "url"),
		ExpirationDate: str(props, "expirationDate"),
		Fingerprint:    vector,
	}
	if err := s.validate.Struct(job); err != nil {
		return matcher.Job{}, fmt.Errorf("store: rejecting partial job document %q: %w", id, err)
	}
	return job, nil
}
