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
	"testing"

	"github.com/google/uuid"
)

func TestJobID_Deterministic(t *testing.T) {
	a := JobID("Acme", "Go Developer", "https://jobs.example.com/1")
	b := JobID("Acme", "Go Developer", "https://jobs.example.com/1")
	if a != b {
		t.Errorf("same inputs produced different ids: %s != %s", a, b)
	}
}

func TestJobID_DiffersPerField(t *testing.T) {
	base := JobID("Acme", "Go Developer", "https://jobs.example.com/1")
	tests := []struct {
		name string
		id   string
	}{
		{"company", JobID("Globex", "Go Developer", "https://jobs.example.com/1")},
		{"title", JobID("Acme", "Rust Developer", "https://jobs.example.com/1")},
		{"url", JobID("Acme", "Go Developer", "https://jobs.example.com/2")},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.id == base {
				t.Errorf("changing %s did not change the id", tc.name)
			}
		})
	}
}

func TestJobID_IsValidUUID(t *testing.T) {
	id := JobID("Acme", "Go Developer", "https://jobs.example.com/1")
	parsed, err := uuid.Parse(id)
	if err != nil {
		t.Fatalf("JobID is not a valid UUID: %v", err)
	}
	if parsed.Version() != 5 {
		t.Errorf("JobID version = %d, want 5 (content-derived)", parsed.Version())
	}
}

func TestContentHash_Deterministic(t *testing.T) {
	a := ContentHash("Acme", "Go Developer", "https://jobs.example.com/1")
	b := ContentHash("Acme", "Go Developer", "https://jobs.example.com/1")
	if a != b {
		t.Errorf("same inputs produced different hashes: %s != %s", a, b)
	}
	if len(a) != 64 {
		t.Errorf("hash length = %d, want 64 hex chars", len(a))
	}
}

func TestContentHash_DiffersFromOtherPosting(t *testing.T) {
	a := ContentHash("Acme", "Go Developer", "https://jobs.example.com/1")
	b := ContentHash("Acme", "Go Developer", "https://jobs.example.com/2")
	if a == b {
		t.Error("distinct postings produced the same content hash")
	}
}
