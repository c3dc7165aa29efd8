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
	"context"
	"errors"
	"fmt"
	"testing"
)

// =============================================================================
// Fakes
// =============================================================================

type fakeJobSearcher struct {
	vectorHits  []MatchedJob
	keywordHits []KeywordHit
	vectorErr   error
	keywordErr  error

	lastVectorLimit  int
	lastKeywordLimit int
	lastWithVector   bool
}

func (f *fakeJobSearcher) SearchByVector(_ context.Context, _ []float32, limit int) ([]MatchedJob, error) {
	f.lastVectorLimit = limit
	if f.vectorErr != nil {
		return nil, f.vectorErr
	}
	if limit > len(f.vectorHits) {
		limit = len(f.vectorHits)
	}
	return f.vectorHits[:limit], nil
}

func (f *fakeJobSearcher) SearchByKeyword(_ context.Context, _ SearchRequest, withFingerprint bool, limit int) ([]KeywordHit, error) {
	f.lastKeywordLimit = limit
	f.lastWithVector = withFingerprint
	if f.keywordErr != nil {
		return nil, f.keywordErr
	}
	if limit > len(f.keywordHits) {
		limit = len(f.keywordHits)
	}
	return f.keywordHits[:limit], nil
}

type fakeProfiles struct {
	fingerprints map[string][]float32
	err          error
}

func (f *fakeProfiles) GetProfileFingerprint(_ context.Context, userID string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	vec, ok := f.fingerprints[userID]
	if !ok {
		return nil, fmt.Errorf("no profile for %s: %w", userID, ErrProfileNotFound)
	}
	return vec, nil
}

type fakeApplied struct {
	jobIDs map[string][]string
	err    error
}

func (f *fakeApplied) AppliedJobIDs(_ context.Context, userID string) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.jobIDs[userID], nil
}

// corpusOf builds n vector hits with strictly descending scores j1..jn.
func corpusOf(n int) []MatchedJob {
	hits := make([]MatchedJob, 0, n)
	for i := 0; i < n; i++ {
		hits = append(hits, MatchedJob{
			BaseJob: BaseJob{
				ID:       fmt.Sprintf("j%d", i+1),
				Title:    fmt.Sprintf("Job %d", i+1),
				Company:  "Acme",
				Location: JobLocation{Country: "Romania", City: "Cluj-Napoca"},
			},
			Score: 1.0 - float64(i)*0.01,
		})
	}
	return hits
}

func newTestEngine(jobs *fakeJobSearcher, profiles *fakeProfiles, applied *fakeApplied, opts ...EngineOption) *Engine {
	if profiles == nil {
		profiles = &fakeProfiles{}
	}
	if applied == nil {
		applied = &fakeApplied{}
	}
	return NewEngine(jobs, profiles, applied, opts...)
}

// =============================================================================
// FindByVector
// =============================================================================

func TestFindByVector_TopKFromLargerCorpus(t *testing.T) {
	jobs := &fakeJobSearcher{vectorHits: corpusOf(20)}
	engine := newTestEngine(jobs, nil, nil)

	results, err := engine.FindByVector(context.Background(), []float32{0.1, 0.2}, 5, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 5 {
		t.Fatalf("len(results) = %d, want 5", len(results))
	}
	for i := 1; i < len(results); i++ {
		if results[i-1].Score <= results[i].Score {
			t.Errorf("scores not strictly descending at %d: %f <= %f",
				i, results[i-1].Score, results[i].Score)
		}
	}
}

func TestFindByVector_NeverLeaksExcludedIDs(t *testing.T) {
	jobs := &fakeJobSearcher{vectorHits: corpusOf(20)}
	engine := newTestEngine(jobs, nil, nil)

	exclude := []string{"j1", "j2", "j5"}
	results, err := engine.FindByVector(context.Background(), []float32{0.1}, 5, exclude)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 5 {
		t.Fatalf("len(results) = %d, want 5", len(results))
	}
	excluded := map[string]bool{"j1": true, "j2": true, "j5": true}
	for _, r := range results {
		if excluded[r.ID] {
			t.Errorf("excluded id %s leaked into results", r.ID)
		}
	}
}

func TestFindByVector_OverFetchesForExclusion(t *testing.T) {
	jobs := &fakeJobSearcher{vectorHits: corpusOf(20)}
	engine := newTestEngine(jobs, nil, nil)

	_, err := engine.FindByVector(context.Background(), []float32{0.1}, 5, []string{"j1", "j2", "j3"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if jobs.lastVectorLimit != 8 {
		t.Errorf("store limit = %d, want topK+len(exclude) = 8", jobs.lastVectorLimit)
	}
}

func TestFindByVector_ShortCorpusReturnsWhatSurvives(t *testing.T) {
	jobs := &fakeJobSearcher{vectorHits: corpusOf(3)}
	engine := newTestEngine(jobs, nil, nil)

	results, err := engine.FindByVector(context.Background(), []float32{0.1}, 10, []string{"j2"})
	if err != nil {
		t.Fatalf("short result must not be an error, got: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("len(results) = %d, want 2", len(results))
	}
}

func TestFindByVector_InvalidInput(t *testing.T) {
	engine := newTestEngine(&fakeJobSearcher{}, nil, nil)

	tests := []struct {
		name   string
		vector []float32
		topK   int
	}{
		{"nil vector", nil, 5},
		{"empty vector", []float32{}, 5},
		{"zero vector", []float32{0, 0, 0}, 5},
		{"topK zero", []float32{0.1}, 0},
		{"topK negative", []float32{0.1}, -3},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := engine.FindByVector(context.Background(), tc.vector, tc.topK, nil)
			if !errors.Is(err, ErrInvalidInput) {
				t.Errorf("error = %v, want ErrInvalidInput", err)
			}
		})
	}
}

func TestFindByVector_UpstreamErrorPropagates(t *testing.T) {
	jobs := &fakeJobSearcher{vectorErr: fmt.Errorf("dial tcp: %w", ErrUpstreamUnavailable)}
	engine := newTestEngine(jobs, nil, nil)

	_, err := engine.FindByVector(context.Background(), []float32{0.1}, 5, nil)
	if !errors.Is(err, ErrUpstreamUnavailable) {
		t.Errorf("error = %v, want ErrUpstreamUnavailable", err)
	}
}

// =============================================================================
// FindByUser
// =============================================================================

func TestFindByUser_ExcludesAppliedJobs(t *testing.T) {
	// j1 and j2 are the top two nearest neighbours, and the user has
	// applied to both — they must never come back.
	jobs := &fakeJobSearcher{vectorHits: corpusOf(20)}
	profiles := &fakeProfiles{fingerprints: map[string][]float32{"u1": {0.5, 0.5}}}
	applied := &fakeApplied{jobIDs: map[string][]string{"u1": {"j1", "j2"}}}
	engine := newTestEngine(jobs, profiles, applied)

	results, err := engine.FindByUser(context.Background(), "u1", 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 5 {
		t.Fatalf("len(results) = %d, want 5", len(results))
	}
	for _, r := range results {
		if r.ID == "j1" || r.ID == "j2" {
			t.Errorf("applied job %s returned as a match", r.ID)
		}
	}
	if results[0].ID != "j3" {
		t.Errorf("top result = %s, want j3 (best non-applied neighbour)", results[0].ID)
	}
}

func TestFindByUser_NoProfile(t *testing.T) {
	engine := newTestEngine(&fakeJobSearcher{}, &fakeProfiles{}, &fakeApplied{})

	_, err := engine.FindByUser(context.Background(), "ghost", 5)
	if !errors.Is(err, ErrProfileNotFound) {
		t.Errorf("error = %v, want ErrProfileNotFound", err)
	}
}

func TestFindByUser_EmptyUserID(t *testing.T) {
	engine := newTestEngine(&fakeJobSearcher{}, nil, nil)

	_, err := engine.FindByUser(context.Background(), "", 5)
	if !errors.Is(err, ErrInvalidInput) {
		t.Errorf("error = %v, want ErrInvalidInput", err)
	}
}

// =============================================================================
// FindByText
// =============================================================================

func keywordCorpus(n int) []KeywordHit {
	hits := make([]KeywordHit, 0, n)
	for i := 0; i < n; i++ {
		hits = append(hits, KeywordHit{
			Job: BaseJob{
				ID:       fmt.Sprintf("k%d", i+1),
				Title:    fmt.Sprintf("Developer %d", i+1),
				Company:  "Acme",
				Location: JobLocation{Country: "Romania", City: "Bucharest"},
			},
		})
	}
	return hits
}

func TestFindByText_NoFingerprintKeepsNativeOrder(t *testing.T) {
	jobs := &fakeJobSearcher{keywordHits: keywordCorpus(40)}
	engine := newTestEngine(jobs, &fakeProfiles{}, nil)

	results, err := engine.FindByText(context.Background(),
		SearchRequest{Query: "developer", Location: LocationFilter{Country: "Romania"}}, "anonymous-less-user")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 15 {
		t.Fatalf("len(results) = %d, want 15", len(results))
	}
	for i, r := range results {
		want := fmt.Sprintf("k%d", i+1)
		if r.ID != want {
			t.Errorf("results[%d].ID = %s, want %s (store-native order)", i, r.ID, want)
		}
	}
	if jobs.lastWithVector {
		t.Error("store asked for fingerprints although no rerank was possible")
	}
}

func TestFindByText_AnonymousSkipsProfileLookup(t *testing.T) {
	jobs := &fakeJobSearcher{keywordHits: keywordCorpus(5)}
	profiles := &fakeProfiles{err: fmt.Errorf("must not be called: %w", ErrUpstreamUnavailable)}
	engine := newTestEngine(jobs, profiles, nil)

	results, err := engine.FindByText(context.Background(), SearchRequest{Query: "dev"}, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 5 {
		t.Fatalf("len(results) = %d, want 5", len(results))
	}
}

func TestFindByText_ReranksBySimilarity(t *testing.T) {
	// Keyword order is k1, k2, k3 — but k3's fingerprint points the same way
	// as the user's, so the rerank must put it first.
	hits := keywordCorpus(3)
	hits[0].Fingerprint = []float32{1, 0}
	hits[1].Fingerprint = []float32{0.5, 0.5}
	hits[2].Fingerprint = []float32{0, 1}

	jobs := &fakeJobSearcher{keywordHits: hits}
	profiles := &fakeProfiles{fingerprints: map[string][]float32{"u1": {0, 1}}}
	engine := newTestEngine(jobs, profiles, nil)

	results, err := engine.FindByText(context.Background(), SearchRequest{Query: "developer"}, "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !jobs.lastWithVector {
		t.Fatal("rerank did not request fingerprints from the store")
	}
	wantOrder := []string{"k3", "k2", "k1"}
	for i, want := range wantOrder {
		if results[i].ID != want {
			t.Errorf("results[%d].ID = %s, want %s", i, results[i].ID, want)
		}
	}
}

func TestFindByText_RerankTiesKeepKeywordOrder(t *testing.T) {
	hits := keywordCorpus(4)
	// Identical fingerprints: every similarity ties, so keyword order rules.
	for i := range hits {
		hits[i].Fingerprint = []float32{1, 1}
	}
	jobs := &fakeJobSearcher{keywordHits: hits}
	profiles := &fakeProfiles{fingerprints: map[string][]float32{"u1": {1, 1}}}
	engine := newTestEngine(jobs, profiles, nil, WithRerankTopN(3))

	results, err := engine.FindByText(context.Background(), SearchRequest{Query: "developer"}, "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	wantOrder := []string{"k1", "k2", "k3"}
	if len(results) != 3 {
		t.Fatalf("len(results) = %d, want 3", len(results))
	}
	for i, want := range wantOrder {
		if results[i].ID != want {
			t.Errorf("results[%d].ID = %s, want %s (stable tiebreak)", i, results[i].ID, want)
		}
	}
}

func TestFindByText_EmptyResult(t *testing.T) {
	engine := newTestEngine(&fakeJobSearcher{}, &fakeProfiles{}, nil)

	results, err := engine.FindByText(context.Background(), SearchRequest{Query: "nothing"}, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("len(results) = %d, want 0", len(results))
	}
}
