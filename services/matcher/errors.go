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

import "errors"

// =============================================================================
// Error Taxonomy
// =============================================================================
//
// Every user-visible failure wraps exactly one of these sentinels so callers
// can classify with errors.Is and map to a transport status without parsing
// message text. Wrapping always adds a human-readable detail string; internal
// stack traces never cross the module boundary.
//
// Transient upstream errors (ErrUpstreamUnavailable) are NOT retried inside
// this module — retry policy belongs to the caller, where backoff does not
// hide latency from the user.

var (
	// ErrInvalidInput marks malformed or missing required input. Caller
	// error; retrying the identical call cannot succeed.
	ErrInvalidInput = errors.New("invalid input")

	// ErrProfileNotFound marks a user with no stored profile fingerprint.
	// Absence, not failure.
	ErrProfileNotFound = errors.New("profile not found")

	// ErrNotFound marks an absent document (job, application). Absence, not
	// failure.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyApplied marks a duplicate application for the same
	// (user, job) pair. Business-rule conflict.
	ErrAlreadyApplied = errors.New("already applied")

	// ErrNotAuthorized marks an ownership mismatch on a per-user resource.
	ErrNotAuthorized = errors.New("not authorized")

	// ErrUpstreamUnavailable marks a candidate-store call that could not be
	// completed. Transient; eligible for caller-level retry with backoff.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")

	// ErrUpstreamInconsistent marks an upstream answer that contradicts
	// itself (e.g., a batch get returning documents the id filter excluded).
	// Missing ids in a batch get are NOT this error — they are treated as
	// "job gone" and handled locally.
	ErrUpstreamInconsistent = errors.New("upstream inconsistent")
)
