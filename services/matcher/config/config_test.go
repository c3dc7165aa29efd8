// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Store.Host != "localhost:8080" || cfg.Store.Scheme != "http" {
		t.Errorf("store defaults = %+v", cfg.Store)
	}
	if cfg.Match.RerankTopN != DefaultRerankTopN {
		t.Errorf("rerank_top_n = %d, want %d", cfg.Match.RerankTopN, DefaultRerankTopN)
	}
	if cfg.Match.KeywordLimit != DefaultKeywordLimit {
		t.Errorf("keyword_limit = %d, want %d", cfg.Match.KeywordLimit, DefaultKeywordLimit)
	}
	if cfg.Ingest.Concurrency != DefaultIngestConcurrency {
		t.Errorf("concurrency = %d, want %d", cfg.Ingest.Concurrency, DefaultIngestConcurrency)
	}
}

func TestLoad_YAMLOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	raw := `
store:
  host: weaviate.internal:8080
  scheme: https
match:
  rerank_top_n: 20
  keyword_limit: 200
`
	if err := os.WriteFile(path, []byte(raw), 0o600); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Store.Host != "weaviate.internal:8080" || cfg.Store.Scheme != "https" {
		t.Errorf("store = %+v", cfg.Store)
	}
	if cfg.Match.RerankTopN != 20 || cfg.Match.KeywordLimit != 200 {
		t.Errorf("match = %+v", cfg.Match)
	}
	// Sections absent from the file keep their defaults.
	if cfg.Ingest.Concurrency != DefaultIngestConcurrency {
		t.Errorf("concurrency = %d, want default %d", cfg.Ingest.Concurrency, DefaultIngestConcurrency)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("store:\n  host: from-file:8080\n"), 0o600); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	t.Setenv("JOBMATCH_STORE_HOST", "from-env:8080")
	t.Setenv("JOBMATCH_RERANK_TOP_N", "25")
	t.Setenv("JOBMATCH_KEYWORD_LIMIT", "250")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Store.Host != "from-env:8080" {
		t.Errorf("host = %q, want env value", cfg.Store.Host)
	}
	if cfg.Match.RerankTopN != 25 || cfg.Match.KeywordLimit != 250 {
		t.Errorf("match = %+v", cfg.Match)
	}
}

func TestLoad_MissingFileFails(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("expected an error for a missing config file")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"defaults pass", func(c *Config) {}, true},
		{"empty host", func(c *Config) { c.Store.Host = "" }, false},
		{"bad scheme", func(c *Config) { c.Store.Scheme = "ftp" }, false},
		{"zero dimensions", func(c *Config) { c.Match.Dimensions = 0 }, false},
		{"zero rerank", func(c *Config) { c.Match.RerankTopN = 0 }, false},
		{"keyword limit below rerank", func(c *Config) {
			c.Match.KeywordLimit = 10
			c.Match.RerankTopN = 15
		}, false},
		{"zero concurrency", func(c *Config) { c.Ingest.Concurrency = 0 }, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.ok && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if !tc.ok && err == nil {
				t.Error("expected a validation error")
			}
		})
	}
}
