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

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/google/uuid"
)

// =============================================================================
// Job Identity
// =============================================================================
//
// Job identifiers are derived from immutable posting content, not assigned
// sequentially. Re-ingesting the same posting always yields the same id, so
// upserts are idempotent and two ingestion runs cannot duplicate a posting.
//
// The candidate store requires RFC 4122 object ids, so the id is a version-5
// (SHA-1 based) UUID over a fixed namespace and the "company|title|url"
// string. Collisions are treated as impossible at this width; that is a
// design invariant, not an optimization target. The raw SHA-256 of the same
// string is stored alongside the document (ContentHash) for ingestion audits.

// jobIDNamespace is the fixed UUID namespace for content-derived job ids.
// Changing it changes every job id; never rotate it on a live corpus.
var jobIDNamespace = uuid.MustParse("6ba7b811-9dad-11d1-80b4-00c04fd430c8")

// JobID derives the stable job identifier from the posting's immutable
// identity triple. Pure function: identical inputs always yield the
// identical id.
func JobID(company, title, url string) string {
	return uuid.NewSHA1(jobIDNamespace, []byte(company+"|"+title+"|"+url)).String()
}

// ContentHash returns the hex SHA-256 of the posting's identity triple.
// Stored on the document so re-ingestion can be audited against the source.
func ContentHash(company, title, url string) string {
	sum := sha256.Sum256([]byte(company + "|" + title + "|" + url))
	return hex.EncodeToString(sum[:])
}
