// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// vector_cache_dump inspects the embedding vector cache.
//
// The cache persists fingerprint vectors in BadgerDB between ingestion runs so
// re-ingested postings do not hit the embedding provider again. This tool
// opens the cache read-only and prints a human-readable summary: keys, TTL
// remaining, vector dimensions, and a short sample of each vector.
//
// Usage:
//
//	vector_cache_dump [--path /path/to/vector/cache]
//
// If --path is not given, reads JOBMATCH_CACHE_DIR from the environment.
//
// Exit codes:
//
//	0 — success (including "empty cache", which prints a message and exits 0)
//	1 — error opening or reading the database
package main

import (
	"bytes"
	"encoding/gob"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	badger "github.com/dgraph-io/badger/v4"
)

// vectorCacheKeyPrefix must match cache.go exactly.
const vectorCacheKeyPrefix = "embed/vec/v1/"

func main() {
	pathFlag := flag.String("path", "", "Path to the vector cache BadgerDB directory (overrides JOBMATCH_CACHE_DIR)")
	flag.Parse()

	dbPath := *pathFlag
	if dbPath == "" {
		dbPath = os.Getenv("JOBMATCH_CACHE_DIR")
	}
	if dbPath == "" {
		fmt.Fprintln(os.Stderr, "vector_cache_dump: no cache path (--path or JOBMATCH_CACHE_DIR)")
		os.Exit(1)
	}

	opts := badger.DefaultOptions(dbPath).WithLogger(nil).WithReadOnly(true)
	db, err := badger.Open(opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "vector_cache_dump: opening %s: %v\n", dbPath, err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	type entry struct {
		key       string
		dims      int
		sample    []float32
		expiresAt time.Time
	}
	var entries []entry

	err = db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(vectorCacheKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			raw, err := item.ValueCopy(nil)
			if err != nil {
				return fmt.Errorf("reading %s: %w", item.Key(), err)
			}
			var vec []float32
			if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&vec); err != nil {
				return fmt.Errorf("decoding %s: %w", item.Key(), err)
			}
			sample := vec
			if len(sample) > 4 {
				sample = sample[:4]
			}
			var expires time.Time
			if item.ExpiresAt() > 0 {
				expires = time.Unix(int64(item.ExpiresAt()), 0)
			}
			entries = append(entries, entry{
				key:       string(item.KeyCopy(nil)),
				dims:      len(vec),
				sample:    sample,
				expiresAt: expires,
			})
		}
		return nil
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "vector_cache_dump: %v\n", err)
		os.Exit(1)
	}

	if len(entries) == 0 {
		fmt.Printf("Vector cache at %s is empty.\n", dbPath)
		return
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].key < entries[j].key })

	fmt.Printf("Vector cache at %s: %d entries\n\n", dbPath, len(entries))
	now := time.Now()
	for _, e := range entries {
		ttl := "none"
		if !e.expiresAt.IsZero() {
			ttl = e.expiresAt.Sub(now).Round(time.Minute).String()
		}
		parts := make([]string, 0, len(e.sample))
		for _, v := range e.sample {
			parts = append(parts, fmt.Sprintf("%.4f", v))
		}
		fmt.Printf("  %s\n    dims=%d ttl=%s sample=[%s ...]\n",
			strings.TrimPrefix(e.key, vectorCacheKeyPrefix), e.dims, ttl, strings.Join(parts, ", "))
	}
}
