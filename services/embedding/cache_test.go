// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package embedding

import (
	"context"
	"fmt"
	"testing"
	"time"
)

// countingClient records how many provider calls got through the cache.
type countingClient struct {
	calls int
	vec   []float32
	err   error
}

func (c *countingClient) Embed(_ context.Context, _ string) ([]float32, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return c.vec, nil
}

func openTestCache(t *testing.T) *VectorCache {
	t.Helper()
	cache, err := OpenVectorCache(t.TempDir(), time.Hour, nil)
	if err != nil {
		t.Fatalf("opening cache: %v", err)
	}
	t.Cleanup(func() { _ = cache.Close() })
	return cache
}

func TestVectorCache_RoundTrip(t *testing.T) {
	cache := openTestCache(t)
	key := cacheKey("test-model", "some posting text")
	want := []float32{0.5, -0.25, 0.125}

	if err := cache.save(key, want); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := cache.load(key)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got[%d] = %f, want %f", i, got[i], want[i])
		}
	}
}

func TestVectorCache_MissIsNotAnError(t *testing.T) {
	cache := openTestCache(t)

	got, err := cache.load(cacheKey("test-model", "never stored"))
	if err != nil {
		t.Fatalf("miss must not be an error, got: %v", err)
	}
	if got != nil {
		t.Errorf("miss returned %v, want nil", got)
	}
}

func TestCacheKey_ModelIsPartOfKey(t *testing.T) {
	a := cacheKey("text-embedding-3-small", "same text")
	b := cacheKey("text-embedding-3-large", "same text")
	if a == b {
		t.Error("different models produced the same cache key")
	}
}

func TestCachedClient_HitSkipsProvider(t *testing.T) {
	cache := openTestCache(t)
	provider := &countingClient{vec: []float32{1, 2, 3}}
	client := NewCachedClient(provider, cache, "test-model", nil)

	first, err := client.Embed(context.Background(), "posting text")
	if err != nil {
		t.Fatalf("first embed: %v", err)
	}
	second, err := client.Embed(context.Background(), "posting text")
	if err != nil {
		t.Fatalf("second embed: %v", err)
	}

	if provider.calls != 1 {
		t.Errorf("provider calls = %d, want 1 (second call must hit the cache)", provider.calls)
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("cached vector differs at %d: %f != %f", i, first[i], second[i])
		}
	}
}

func TestCachedClient_DistinctTextsMiss(t *testing.T) {
	cache := openTestCache(t)
	provider := &countingClient{vec: []float32{1}}
	client := NewCachedClient(provider, cache, "test-model", nil)

	if _, err := client.Embed(context.Background(), "text one"); err != nil {
		t.Fatalf("embed: %v", err)
	}
	if _, err := client.Embed(context.Background(), "text two"); err != nil {
		t.Fatalf("embed: %v", err)
	}
	if provider.calls != 2 {
		t.Errorf("provider calls = %d, want 2", provider.calls)
	}
}

func TestCachedClient_ProviderErrorPropagates(t *testing.T) {
	cache := openTestCache(t)
	provider := &countingClient{err: fmt.Errorf("boom: %w", ErrProviderUnavailable)}
	client := NewCachedClient(provider, cache, "test-model", nil)

	if _, err := client.Embed(context.Background(), "text"); err == nil {
		t.Error("expected the provider error to propagate through the cache")
	}
}
