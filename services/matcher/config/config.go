// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config loads the module's configuration from YAML with environment
// overrides. Immutable after loading; safe for concurrent use.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// =============================================================================
// Configuration Types
// =============================================================================

// Config is the full module configuration.
//
// Thread Safety: Immutable after loading; safe for concurrent use.
type Config struct {
	// Store configures the candidate-store endpoint.
	Store StoreConfig `yaml:"store"`

	// Embedding configures the fingerprint provider and its cache.
	Embedding EmbeddingConfig `yaml:"embedding"`

	// Match configures the engine's tunables.
	Match MatchConfig `yaml:"match"`

	// Ingest configures the bulk ingestion pipeline.
	Ingest IngestConfig `yaml:"ingest"`
}

// StoreConfig locates the Weaviate candidate store.
type StoreConfig struct {
	// Host is the store's host:port.
	Host string `yaml:"host"`

	// Scheme is "http" or "https".
	Scheme string `yaml:"scheme"`
}

// EmbeddingConfig configures the fingerprint provider.
type EmbeddingConfig struct {
	// Model is the embedding model name. Its output dimensionality must
	// match Match.Dimensions.
	Model string `yaml:"model"`

	// CacheDir is the BadgerDB directory for the vector cache.
	// Empty disables caching.
	CacheDir string `yaml:"cache_dir"`

	// CacheTTL is the vector cache entry lifetime.
	CacheTTL time.Duration `yaml:"cache_ttl"`
}

// MatchConfig holds the engine's tunables.
type MatchConfig struct {
	// Dimensions is the system-wide fingerprint dimensionality.
	Dimensions int `yaml:"dimensions"`

	// RerankTopN is the FindByText result size.
	RerankTopN int `yaml:"rerank_top_n"`

	// KeywordLimit caps the keyword candidate page.
	KeywordLimit int `yaml:"keyword_limit"`
}

// IngestConfig holds the ingestion pipeline's tunables.
type IngestConfig struct {
	// Concurrency bounds parallel embedding calls per run.
	Concurrency int `yaml:"concurrency"`
}

// =============================================================================
// Defaults
// =============================================================================

const (
	// DefaultDimensions matches text-embedding-3-small output.
	DefaultDimensions = 1536

	// DefaultRerankTopN is the fixed FindByText result size.
	DefaultRerankTopN = 15

	// DefaultKeywordLimit is the keyword candidate page size.
	DefaultKeywordLimit = 100

	// DefaultIngestConcurrency bounds parallel embedding calls.
	DefaultIngestConcurrency = 10
)

// Default returns a Config with every field at its default.
func Default() Config {
	return Config{
		Store: StoreConfig{
			Host:   "localhost:8080",
			Scheme: "http",
		},
		Embedding: EmbeddingConfig{
			Model:    "text-embedding-3-small",
			CacheTTL: 7 * 24 * time.Hour,
		},
		Match: MatchConfig{
			Dimensions:   DefaultDimensions,
			RerankTopN:   DefaultRerankTopN,
			KeywordLimit: DefaultKeywordLimit,
		},
		Ingest: IngestConfig{
			Concurrency: DefaultIngestConcurrency,
		},
	}
}

// =============================================================================
// Loading
// =============================================================================

// Load reads configuration from path (optional) and applies environment
// overrides on top of the defaults.
//
// Description:
//
//	Precedence, lowest to highest: defaults, YAML file, environment.
//	An empty path skips the file layer entirely.
//
// Environment overrides:
//
//	JOBMATCH_STORE_HOST, JOBMATCH_STORE_SCHEME, JOBMATCH_EMBEDDING_MODEL,
//	JOBMATCH_CACHE_DIR, JOBMATCH_RERANK_TOP_N, JOBMATCH_KEYWORD_LIMIT,
//	JOBMATCH_INGEST_CONCURRENCY
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: reading %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parsing %s: %w", path, err)
		}
		slog.Info("loaded configuration file", "path", path)
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("JOBMATCH_STORE_HOST"); v != "" {
		cfg.Store.Host = v
	}
	if v := os.Getenv("JOBMATCH_STORE_SCHEME"); v != "" {
		cfg.Store.Scheme = v
	}
	if v := os.Getenv("JOBMATCH_EMBEDDING_MODEL"); v != "" {
		cfg.Embedding.Model = v
	}
	if v := os.Getenv("JOBMATCH_CACHE_DIR"); v != "" {
		cfg.Embedding.CacheDir = v
	}
	if v := os.Getenv("JOBMATCH_RERANK_TOP_N"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Match.RerankTopN = n
		}
	}
	if v := os.Getenv("JOBMATCH_KEYWORD_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Match.KeywordLimit = n
		}
	}
	if v := os.Getenv("JOBMATCH_INGEST_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Ingest.Concurrency = n
		}
	}
}

// Validate checks the configuration for values no component can run with.
func (c Config) Validate() error {
	if c.Store.Host == "" {
		return fmt.Errorf("config: store.host must not be empty")
	}
	if c.Store.Scheme != "http" && c.Store.Scheme != "https" {
		return fmt.Errorf("config: store.scheme must be http or https, got %q", c.Store.Scheme)
	}
	if c.Match.Dimensions < 1 {
		return fmt.Errorf("config: match.dimensions must be >= 1, got %d", c.Match.Dimensions)
	}
	if c.Match.RerankTopN < 1 {
		return fmt.Errorf("config: match.rerank_top_n must be >= 1, got %d", c.Match.RerankTopN)
	}
	if c.Match.KeywordLimit < c.Match.RerankTopN {
		return fmt.Errorf("config: match.keyword_limit (%d) must be >= match.rerank_top_n (%d)",
			c.Match.KeywordLimit, c.Match.RerankTopN)
	}
	if c.Ingest.Concurrency < 1 {
		return fmt.Errorf("config: ingest.concurrency must be >= 1, got %d", c.Ingest.Concurrency)
	}
	return nil
}
