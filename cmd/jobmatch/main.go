// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command jobmatch runs match-engine operations against a live candidate
// store from the command line.
//
// Usage:
//
//	jobmatch -mode ensure-schema
//	jobmatch -mode match-user -user <user-id> [-top-k 10]
//	jobmatch -mode search -query "go developer" [-country Romania] [-city Cluj-Napoca] [-user <user-id>]
//	jobmatch -mode applications -user <user-id>
//	jobmatch -mode set-profile -user <user-id> -text "Senior Go engineer ..."
//	jobmatch -mode countries
//
// Configuration comes from -config (YAML) plus JOBMATCH_* environment
// overrides; see services/matcher/config. Results print as JSON on stdout.
//
// Exit codes:
//
//	0 — success
//	1 — configuration or operation failure
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/AleutianAI/jobmatch/services/embedding"
	"github.com/AleutianAI/jobmatch/services/matcher"
	"github.com/AleutianAI/jobmatch/services/matcher/applied"
	"github.com/AleutianAI/jobmatch/services/matcher/config"
	"github.com/AleutianAI/jobmatch/services/matcher/profile"
	"github.com/AleutianAI/jobmatch/services/matcher/store"
)

func main() {
	var (
		configPath = flag.String("config", "", "Path to YAML configuration (optional)")
		mode       = flag.String("mode", "", "Operation: ensure-schema, match-user, search, applications, set-profile, countries")
		userID     = flag.String("user", "", "User id for match-user, applications, and search rerank")
		topK       = flag.Int("top-k", 10, "Result count for match-user")
		query      = flag.String("query", "", "Title keyword query for search")
		text       = flag.String("text", "", "Profile text for set-profile")
		country    = flag.String("country", "", "Country filter for search")
		city       = flag.String("city", "", "City filter for search")
	)
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *configPath, *mode, *userID, *text, *topK, matcher.SearchRequest{
		Query: *query,
		Location: matcher.LocationFilter{
			Country: *country,
			City:    *city,
		},
	}, logger); err != nil {
		logger.Error("operation failed", slog.String("mode", *mode), slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath, mode, userID, text string, topK int, req matcher.SearchRequest, logger *slog.Logger) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	st, err := store.New(store.Config{Host: cfg.Store.Host, Scheme: cfg.Store.Scheme}, logger)
	if err != nil {
		return err
	}

	switch mode {
	case "ensure-schema":
		if err := st.EnsureSchema(ctx); err != nil {
			return err
		}
		logger.Info("schema is in place")
		return nil

	case "match-user":
		if userID == "" {
			return fmt.Errorf("match-user requires -user")
		}
		engine := matcher.NewEngine(st, st, st,
			matcher.WithKeywordLimit(cfg.Match.KeywordLimit),
			matcher.WithRerankTopN(cfg.Match.RerankTopN),
			matcher.WithLogger(logger),
		)
		matches, err := engine.FindByUser(ctx, userID, topK)
		if err != nil {
			return err
		}
		return printJSON(matches)

	case "search":
		engine := matcher.NewEngine(st, st, st,
			matcher.WithKeywordLimit(cfg.Match.KeywordLimit),
			matcher.WithRerankTopN(cfg.Match.RerankTopN),
			matcher.WithLogger(logger),
		)
		jobs, err := engine.FindByText(ctx, req, userID)
		if err != nil {
			return err
		}
		return printJSON(jobs)

	case "applications":
		if userID == "" {
			return fmt.Errorf("applications requires -user")
		}
		reconciler := applied.NewReconciler(st, st, logger)
		apps, err := reconciler.GetEnrichedApplications(ctx, userID)
		if err != nil {
			return err
		}
		return printJSON(apps)

	case "set-profile":
		if userID == "" || text == "" {
			return fmt.Errorf("set-profile requires -user and -text")
		}
		embedder, err := newEmbedder(cfg, logger)
		if err != nil {
			return err
		}
		return profile.NewService(embedder, st, logger).SetProfileFromText(ctx, userID, text)

	case "countries":
		countries, err := st.DistinctCountries(ctx)
		if err != nil {
			return err
		}
		return printJSON(countries)

	case "":
		return fmt.Errorf("missing -mode (ensure-schema, match-user, search, applications, set-profile, countries)")
	default:
		return fmt.Errorf("unknown mode %q", mode)
	}
}

// newEmbedder builds the fingerprint provider, wrapped with the BadgerDB
// vector cache when one is configured.
func newEmbedder(cfg config.Config, logger *slog.Logger) (embedding.Client, error) {
	client, err := embedding.NewOpenAIClient()
	if err != nil {
		return nil, err
	}
	if cfg.Embedding.CacheDir == "" {
		return client, nil
	}
	cache, err := embedding.OpenVectorCache(cfg.Embedding.CacheDir, cfg.Embedding.CacheTTL, logger)
	if err != nil {
		return nil, err
	}
	return embedding.NewCachedClient(client, cache, client.Model(), logger), nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
