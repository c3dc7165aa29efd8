// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package matcher

import "time"

// =============================================================================
// Domain Records
// =============================================================================
//
// The candidate store holds loosely-typed documents; everything that crosses
// the store boundary is decoded into these records and validated field by
// field. Partial documents are rejected at decode time, never propagated.

// JobLocation is the structured location of a posting.
type JobLocation struct {
	// Country is the posting's country (exact-match facet field).
	Country string `json:"country" validate:"required"`

	// City is the posting's city (exact-match facet field).
	City string `json:"city" validate:"required"`
}

// BaseJob is the public-facing subset of a job posting returned by keyword
// search, batch lookups, and application enrichment. It never carries the
// fingerprint — fingerprints are large and stay inside the store unless a
// rerank explicitly needs them.
type BaseJob struct {
	// ID is the content-derived job identifier (see JobID).
	ID string `json:"id" validate:"required"`

	// Title is the posting title.
	Title string `json:"job_title" validate:"required"`

	// Company is the posting company name.
	Company string `json:"company" validate:"required"`

	// Location is the structured posting location.
	Location JobLocation `json:"location"`

	// DateUploaded is the RFC 3339 upload timestamp as stored.
	DateUploaded string `json:"date_uploaded"`
}

// Job is the full posting document as held by the candidate store.
//
// The engine treats jobs as immutable snapshots per request: nothing in this
// module mutates a Job after it has been decoded or built.
type Job struct {
	BaseJob

	// Description is the full posting text (also the embedding input).
	Description string `json:"description" validate:"required"`

	// URL is the posting's source URL.
	URL string `json:"job_url" validate:"required"`

	// ExpirationDate is the posting's expiry date (YYYY-MM-DD), may be empty.
	ExpirationDate string `json:"expiration_date"`

	// Fingerprint is the posting's embedding vector. Optional: a nil or
	// all-zero fingerprint means "no fingerprint available".
	Fingerprint []float32 `json:"-"`
}

// MatchedJob is a BaseJob plus a relevance score. Created per query by the
// match engine, never persisted. Higher score = better match.
type MatchedJob struct {
	BaseJob

	// Score is the unit-less relevance of this job for the query fingerprint.
	Score float64 `json:"score"`
}

// KeywordHit is one keyword-search result in store-native relevance order.
// Fingerprint is populated only when the caller requested vectors for a
// secondary rerank; it is nil otherwise.
type KeywordHit struct {
	Job         BaseJob
	Fingerprint []float32
}

// Application links a user to a job they applied to. At most one active
// application may exist per (user, job) pair; see Reconciler.SaveApplication
// for the limits of that guarantee.
type Application struct {
	// ID is the application identifier (random v4 UUID).
	ID string `json:"application_id" validate:"required"`

	// UserID is the resolved user identifier. The module never sees raw
	// credentials; identity resolution happens upstream.
	UserID string `json:"user_id" validate:"required"`

	// JobID references the applied-to job.
	JobID string `json:"job_id" validate:"required"`

	// AppliedDate is when the application was recorded.
	AppliedDate time.Time `json:"applied_date"`
}

// EnrichedApplication is an Application joined with its job's public fields.
// Computed on demand, never persisted. If the join fails because the job is
// gone, the application itself is deleted as a compensating action and the
// entry is omitted.
type EnrichedApplication struct {
	BaseJob

	ApplicationID string    `json:"application_id"`
	AppliedDate   time.Time `json:"applied_date"`
}

// =============================================================================
// Search Request Types
// =============================================================================

// LocationFilter restricts keyword search to an exact city and/or country.
// Empty fields are not applied.
type LocationFilter struct {
	Country string `json:"country"`
	City    string `json:"city"`
}

// SearchRequest is a keyword search over job titles with optional location
// filters. An empty Query matches everything (filters only).
type SearchRequest struct {
	Query    string         `json:"query"`
	Location LocationFilter `json:"location"`
}
