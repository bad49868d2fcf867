package store

import (
	"context"
	"time"

	"github.com/JakeFAU/jobingest/internal/jobs"
)

// RunStatus mirrors the scrape_runs.status column.
type RunStatus string

// Run statuses persisted in scrape_runs.status.
const (
	RunRunning RunStatus = "running"
	RunSuccess RunStatus = "success"
	// RunPartial marks a finished run in which at least one site failed.
	RunPartial RunStatus = "partial"
)

// StatusFor picks the final status for a run with siteErrors failures.
func StatusFor(siteErrors int) RunStatus {
	if siteErrors > 0 {
		return RunPartial
	}
	return RunSuccess
}

// SiteResult is one row of scrape_run_sites.
type SiteResult struct {
	Stats      jobs.SiteStats
	FinishedAt time.Time
	Duration   time.Duration
	// Error is nil unless the site failed.
	Error *string
}

// RunRepository persists run history.
type RunRepository interface {
	// StartRun inserts the run as running; repeating it is a no-op.
	StartRun(ctx context.Context, runID string, startedAt time.Time) error
	// RecordSite upserts the outcome of one site.
	RecordSite(ctx context.Context, runID string, result SiteResult) error
	// FinishRun marks the run finished with its totals.
	FinishRun(ctx context.Context, runID string, finishedAt time.Time, status RunStatus, inserted, siteErrors int) error
}
