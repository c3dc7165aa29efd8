// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package applied keeps a user's applied-jobs list consistent with the live
// job corpus. Reads are self-healing: an application whose job has vanished
// is deleted as a compensating action during enrichment, so callers never
// see orphaned applications and no separate sweep is needed.
package applied

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/AleutianAI/jobmatch/services/matcher"
)

// appliedTracerName is the OTel tracer name for reconciler operations.
const appliedTracerName = "jobmatch.applied"

// =============================================================================
// Store Interfaces (constructor-injected)
// =============================================================================

// ApplicationStore is the slice of the candidate store holding applications.
type ApplicationStore interface {
	PutApplication(ctx context.Context, app matcher.Application) error
	GetApplication(ctx context.Context, applicationID string) (matcher.Application, error)
	DeleteApplication(ctx context.Context, applicationID string) error
	// ApplicationsByUser returns all of a user's applications, newest first.
	ApplicationsByUser(ctx context.Context, userID string) ([]matcher.Application, error)
	HasApplication(ctx context.Context, userID, jobID string) (bool, error)
}

// JobBatchGetter performs the single-round-trip job lookup used for
// enrichment. Missing ids are absent from the result, never an error.
type JobBatchGetter interface {
	GetJobsBatch(ctx context.Context, ids []string) ([]matcher.BaseJob, error)
}

// =============================================================================
// Reconciler
// =============================================================================

// Reconciler manages a user's applications and reconciles them against the
// live job corpus on every enriched read.
//
// # Thread Safety
//
// Safe for concurrent use; all state lives in the injected stores.
type Reconciler struct {
	apps   ApplicationStore
	jobs   JobBatchGetter
	logger *slog.Logger

	// now is injected for tests; defaults to time.Now.
	now func() time.Time
}

// NewReconciler creates a Reconciler over the given store slices.
func NewReconciler(apps ApplicationStore, jobs JobBatchGetter, logger *slog.Logger) *Reconciler {
	if apps == nil || jobs == nil {
		panic("NewReconciler: apps and jobs must not be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{apps: apps, jobs: jobs, logger: logger, now: time.Now}
}

// SaveApplication records that userID applied to jobID.
//
// # Description
//
// The duplicate check is a point query followed by a write, not a stored
// uniqueness constraint. Two concurrent applies for the same (user, job) can
// both pass the check and both land; the "at most one active application"
// invariant is therefore best-effort under concurrency. Sequential duplicate
// applies are reliably rejected with ErrAlreadyApplied.
//
// # Outputs
//
//   - matcher.Application: The stored application with its generated id.
//   - error: ErrInvalidInput for empty ids; ErrAlreadyApplied on duplicate;
//     ErrUpstreamUnavailable if the store cannot be reached.
func (r *Reconciler) SaveApplication(ctx context.Context, userID, jobID string) (app matcher.Application, err error) {
	ctx, span := otel.Tracer(appliedTracerName).Start(ctx, "applied.Reconciler.SaveApplication")
	defer span.End()
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
	}()

	if userID == "" || jobID == "" {
		return matcher.Application{}, fmt.Errorf("applied: userID and jobID must not be empty: %w", matcher.ErrInvalidInput)
	}

	exists, err := r.apps.HasApplication(ctx, userID, jobID)
	if err != nil {
		return matcher.Application{}, fmt.Errorf("applied: checking for existing application: %w", err)
	}
	if exists {
		return matcher.Application{}, fmt.Errorf("applied: user already applied to job %s: %w", jobID, matcher.ErrAlreadyApplied)
	}

	app = matcher.Application{
		ID:          uuid.NewString(),
		UserID:      userID,
		JobID:       jobID,
		AppliedDate: r.now().UTC(),
	}
	if err := r.apps.PutApplication(ctx, app); err != nil {
		return matcher.Application{}, fmt.Errorf("applied: saving application: %w", err)
	}

	r.logger.Info("application saved",
		slog.String("application_id", app.ID),
		slog.String("job_id", jobID),
	)
	return app, nil
}

// GetEnrichedApplications returns the user's applications joined with each
// job's public fields, newest first.
//
// # Description
//
// One batched job lookup serves the whole list — never per-application
// lookups. An application whose job is missing from the batch result is
// orphaned: it is deleted as a compensating action and omitted from the
// returned list. Orphan deletes run on a cancellation-shielded context so an
// unwinding caller cannot leave a delete half-acknowledged.
//
// A missing job is "job gone", handled locally — it is never surfaced as an
// upstream failure.
func (r *Reconciler) GetEnrichedApplications(ctx context.Context, userID string) (enriched []matcher.EnrichedApplication, err error) {
	ctx, span := otel.Tracer(appliedTracerName).Start(ctx, "applied.Reconciler.GetEnrichedApplications")
	defer span.End()
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
	}()

	if userID == "" {
		return nil, fmt.Errorf("applied: userID must not be empty: %w", matcher.ErrInvalidInput)
	}

	apps, err := r.apps.ApplicationsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("applied: listing applications: %w", err)
	}
	if len(apps) == 0 {
		return nil, nil
	}

	jobIDs := make([]string, 0, len(apps))
	for _, app := range apps {
		jobIDs = append(jobIDs, app.JobID)
	}

	jobs, err := r.jobs.GetJobsBatch(ctx, jobIDs)
	if err != nil {
		return nil, fmt.Errorf("applied: batch job lookup: %w", err)
	}
	jobByID := make(map[string]matcher.BaseJob, len(jobs))
	for _, job := range jobs {
		jobByID[job.ID] = job
	}

	// Compensating deletes finish their acknowledgment even if the caller
	// cancels mid-read; in-flight writes are never abandoned halfway.
	cleanupCtx := context.WithoutCancel(ctx)

	enriched = make([]matcher.EnrichedApplication, 0, len(apps))
	orphans := 0
	for _, app := range apps {
		job, found := jobByID[app.JobID]
		if !found {
			orphans++
			if delErr := r.apps.DeleteApplication(cleanupCtx, app.ID); delErr != nil {
				// Cleanup is incidental to the read; a failed delete is
				// retried implicitly on the next read.
				r.logger.Warn("failed to delete orphaned application",
					slog.String("application_id", app.ID),
					slog.String("job_id", app.JobID),
					slog.String("error", delErr.Error()),
				)
			}
			continue
		}
		enriched = append(enriched, matcher.EnrichedApplication{
			BaseJob:       job,
			ApplicationID: app.ID,
			AppliedDate:   app.AppliedDate,
		})
	}

	if orphans > 0 {
		r.logger.Info("removed orphaned applications",
			slog.Int("count", orphans),
		)
	}
	span.SetAttributes(
		attribute.Int("applications", len(apps)),
		attribute.Int("orphans_removed", orphans),
	)
	return enriched, nil
}

// DeleteApplication removes one of the user's applications.
//
// # Outputs
//
//   - error: ErrNotFound if the application does not exist; ErrNotAuthorized
//     unless the stored user id matches userID.
func (r *Reconciler) DeleteApplication(ctx context.Context, applicationID, userID string) (err error) {
	ctx, span := otel.Tracer(appliedTracerName).Start(ctx, "applied.Reconciler.DeleteApplication")
	defer span.End()
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
	}()

	if applicationID == "" || userID == "" {
		return fmt.Errorf("applied: applicationID and userID must not be empty: %w", matcher.ErrInvalidInput)
	}

	app, err := r.apps.GetApplication(ctx, applicationID)
	if err != nil {
		return fmt.Errorf("applied: resolving application: %w", err)
	}
	if app.UserID != userID {
		return fmt.Errorf("applied: application %s does not belong to the caller: %w", applicationID, matcher.ErrNotAuthorized)
	}

	if err := r.apps.DeleteApplication(ctx, applicationID); err != nil {
		return fmt.Errorf("applied: deleting application: %w", err)
	}
	r.logger.Info("application deleted", slog.String("application_id", applicationID))
	return nil
}

// IsApplied reports whether userID holds an application for jobID. Public
// query; also the existence check SaveApplication uses internally.
func (r *Reconciler) IsApplied(ctx context.Context, userID, jobID string) (bool, error) {
	if userID == "" || jobID == "" {
		return false, fmt.Errorf("applied: userID and jobID must not be empty: %w", matcher.ErrInvalidInput)
	}
	return r.apps.HasApplication(ctx, userID, jobID)
}
