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

// =============================================================================
// Fingerprint Cache — BadgerDB Persistence
// =============================================================================
//
// Embedding calls are slow (~100-300ms) and billed per token, but a given
// text always produces the same vector for a given model. The cache persists
// vectors in BadgerDB between runs.
//
// Design choices:
//
//	1. BadgerDB (not the candidate store): cached vectors are service
//	   infrastructure, not user data. A point lookup of one pre-computed
//	   vector does not benefit from ANN indexing; BadgerDB is embedded —
//	   no network call, no availability dependency.
//
//	2. SHA-256(model|text) as the cache key: a model change produces a
//	   different key, automatically invalidating stale vectors. No explicit
//	   invalidation API is needed.
//
//	3. BadgerDB native TTL: expiry is enforced by Badger's GC, not by
//	   application code. Expired keys return ErrKeyNotFound, which the cache
//	   treats as a miss.
//
//	4. Cache failures are non-fatal: a broken cache degrades to direct
//	   provider calls with a warning, never to a failed Embed.
//
// Storage layout:
//
//	embed/vec/v1/{sha256(model|text)}  →  gob-encoded []float32

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	badger "github.com/dgraph-io/badger/v4"
)

// vectorCacheDefaultTTL is the default lifetime of a cached vector. Postings
// churn weekly; 7 days keeps the hot set warm without hoarding stale text.
const vectorCacheDefaultTTL = 7 * 24 * time.Hour

// vectorCacheKeyPrefix is prepended to the content hash to form the BadgerDB
// key. Versioned (v1) to allow future format changes without collision.
const vectorCacheKeyPrefix = "embed/vec/v1/"

// errCacheMiss distinguishes "key not found" (a normal miss) from a genuine
// storage error inside load.
var errCacheMiss = errors.New("cache miss")

// =============================================================================
// VectorCache
// =============================================================================

// VectorCache persists fingerprints in an embedded BadgerDB.
//
// # Thread Safety
//
// Safe for concurrent use. BadgerDB transactions are per-goroutine.
type VectorCache struct {
	db     *badger.DB
	ttl    time.Duration
	logger *slog.Logger
}

// OpenVectorCache opens (or creates) a vector cache at dir.
//
// # Inputs
//
//   - dir: Directory for the BadgerDB files. Created if absent.
//   - ttl: Lifetime for each cached entry. Pass 0 to use the default (7 days).
//   - logger: Logger for hit/miss diagnostics. May be nil.
//
// # Outputs
//
//   - *VectorCache: Ready-to-use cache. Caller must Close it.
//   - error: Non-nil if the directory cannot be opened.
func OpenVectorCache(dir string, ttl time.Duration, logger *slog.Logger) (*VectorCache, error) {
	if ttl <= 0 {
		ttl = vectorCacheDefaultTTL
	}
	if logger == nil {
		logger = slog.Default()
	}

	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("embedding: opening vector cache at %s: %w", dir, err)
	}

	logger.Info("vector cache opened", slog.String("dir", dir), slog.Duration("ttl", ttl))
	return &VectorCache{db: db, ttl: ttl, logger: logger}, nil
}

// Close releases the underlying BadgerDB.
func (c *VectorCache) Close() error {
	return c.db.Close()
}

// load retrieves a cached vector. Returns (nil, nil) on miss.
func (c *VectorCache) load(key string) ([]float32, error) {
	var raw []byte
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return errCacheMiss
		}
		if err != nil {
			return fmt.Errorf("get cache key: %w", err)
		}
		raw, err = item.ValueCopy(nil)
		if err != nil {
			return fmt.Errorf("copy value: %w", err)
		}
		return nil
	})

	if errors.Is(err, errCacheMiss) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("vector cache load: %w", err)
	}

	var vec []float32
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&vec); err != nil {
		return nil, fmt.Errorf("vector cache decode: %w", err)
	}
	return vec, nil
}

// save persists a vector with the cache TTL.
func (c *VectorCache) save(key string, vec []float32) error {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(vec); err != nil {
		return fmt.Errorf("vector cache encode: %w", err)
	}

	err := c.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry([]byte(key), buf.Bytes()).WithTTL(c.ttl)
		return txn.SetEntry(entry)
	})
	if err != nil {
		return fmt.Errorf("vector cache save: %w", err)
	}
	return nil
}

// cacheKey derives the BadgerDB key for (model, text).
func cacheKey(model, text string) string {
	sum := sha256.Sum256([]byte(model + "|" + text))
	return vectorCacheKeyPrefix + hex.EncodeToString(sum[:])
}

// =============================================================================
// CachedClient
// =============================================================================

// CachedClient wraps a Client with a VectorCache. Hits skip the provider
// entirely; misses call through and persist best-effort.
//
// # Thread Safety
//
// Safe for concurrent use when the wrapped client is.
type CachedClient struct {
	inner  Client
	cache  *VectorCache
	model  string
	logger *slog.Logger
}

// NewCachedClient wraps inner with cache. model must match the model inner
// embeds with — it is part of the cache key.
func NewCachedClient(inner Client, cache *VectorCache, model string, logger *slog.Logger) *CachedClient {
	if inner == nil || cache == nil {
		panic("NewCachedClient: inner and cache must not be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedClient{inner: inner, cache: cache, model: model, logger: logger}
}

// Embed implements Client with read-through caching.
func (c *CachedClient) Embed(ctx context.Context, text string) ([]float32, error) {
	key := cacheKey(c.model, text)

	vec, err := c.cache.load(key)
	if err != nil {
		c.logger.Warn("vector cache load failed, calling provider directly",
			slog.String("error", err.Error()),
		)
	} else if vec != nil {
		return vec, nil
	}

	vec, err = c.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	// Persistence failure is non-fatal: the vector is already in hand.
	if saveErr := c.cache.save(key, vec); saveErr != nil {
		c.logger.Warn("vector cache save failed",
			slog.String("error", saveErr.Error()),
		)
	}
	return vec, nil
}
