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
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// matcherTracerName is the OTel tracer name for match-engine operations.
const matcherTracerName = "jobmatch.matcher"

// Package-level Prometheus metrics for match-engine operations.
// Auto-registered via promauto so no explicit registry wiring is needed.
var (
	// matchCallDuration measures the duration of public engine operations.
	//
	// Labels:
	//   - operation: "find_by_vector", "find_by_user", "find_by_text"
	//   - status: "success" or "error"
	matchCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "jobmatch",
			Subsystem: "match",
			Name:      "call_duration_seconds",
			Help:      "Duration of match engine operations in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
		[]string{"operation", "status"},
	)

	// matchCallsTotal counts public engine operations.
	//
	// Labels:
	//   - operation: "find_by_vector", "find_by_user", "find_by_text"
	//   - status: "success" or "error"
	matchCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "jobmatch",
			Subsystem: "match",
			Name:      "calls_total",
			Help:      "Total match engine operations.",
		},
		[]string{"operation", "status"},
	)

	// matchErrorsTotal counts engine errors by taxonomy kind.
	//
	// Labels:
	//   - operation: "find_by_vector", "find_by_user", "find_by_text"
	//   - kind: "invalid_input", "profile_not_found", "upstream", "unknown"
	matchErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "jobmatch",
			Subsystem: "match",
			Name:      "errors_total",
			Help:      "Total match engine errors by kind.",
		},
		[]string{"operation", "kind"},
	)
)

// classifyMatchError maps an engine error to a label-safe, low-cardinality
// taxonomy kind for Prometheus labels.
func classifyMatchError(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, ErrProfileNotFound):
		return "profile_not_found"
	case errors.Is(err, ErrUpstreamUnavailable), errors.Is(err, ErrUpstreamInconsistent):
		return "upstream"
	default:
		return "unknown"
	}
}

// recordMatchMetrics records duration, call count, and (if any) error kind
// for one public engine operation.
func recordMatchMetrics(operation string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
		matchErrorsTotal.WithLabelValues(operation, classifyMatchError(err)).Inc()
	}
	matchCallDuration.WithLabelValues(operation, status).Observe(duration.Seconds())
	matchCallsTotal.WithLabelValues(operation, status).Inc()
}
