package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/JakeFAU/jobingest/internal/store"
)

var _ store.RunRepository = (*RunStore)(nil)

// RunStore records run history in scrape_runs and scrape_run_sites. It
// shares the JobStore pool and never closes it.
type RunStore struct {
	pool pgxPool
}

// Runs returns a RunStore on the same pool as s.
func (s *JobStore) Runs() *RunStore {
	return &RunStore{pool: s.pool}
}

// EnsureSchema creates the run-history tables when missing.
func (r *RunStore) EnsureSchema(ctx context.Context) error {
	const query = `
CREATE TABLE IF NOT EXISTS scrape_runs (
	run_id text PRIMARY KEY,
	started_at timestamptz NOT NULL,
	finished_at timestamptz,
	status text NOT NULL,
	inserted integer NOT NULL DEFAULT 0,
	site_errors integer NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS scrape_run_sites (
	run_id text NOT NULL REFERENCES scrape_runs (run_id) ON DELETE CASCADE,
	site text NOT NULL,
	finished_at timestamptz NOT NULL,
	duration_ms bigint NOT NULL,
	cards integer NOT NULL,
	inserted integer NOT NULL,
	duplicates integer NOT NULL,
	untitled integer NOT NULL,
	insert_failures integer NOT NULL,
	card_errors integer NOT NULL,
	skipped boolean NOT NULL,
	error text,
	PRIMARY KEY (run_id, site)
);`
	if _, err := r.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("ensure run schema: %w", err)
	}
	return nil
}

// StartRun implements store.RunRepository.
func (r *RunStore) StartRun(ctx context.Context, runID string, startedAt time.Time) error {
	const query = `
INSERT INTO scrape_runs (run_id, started_at, status)
VALUES ($1, $2, $3)
ON CONFLICT (run_id) DO NOTHING`
	if _, err := r.pool.Exec(ctx, query, runID, startedAt.UTC(), string(store.RunRunning)); err != nil {
		return fmt.Errorf("insert scrape_runs: %w", err)
	}
	return nil
}

// RecordSite implements store.RunRepository.
func (r *RunStore) RecordSite(ctx context.Context, runID string, result store.SiteResult) error {
	const query = `
INSERT INTO scrape_run_sites (
	run_id, site, finished_at, duration_ms, cards, inserted, duplicates,
	untitled, insert_failures, card_errors, skipped, error
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
ON CONFLICT (run_id, site) DO UPDATE SET
	finished_at = EXCLUDED.finished_at,
	duration_ms = EXCLUDED.duration_ms,
	cards = EXCLUDED.cards,
	inserted = EXCLUDED.inserted,
	duplicates = EXCLUDED.duplicates,
	untitled = EXCLUDED.untitled,
	insert_failures = EXCLUDED.insert_failures,
	card_errors = EXCLUDED.card_errors,
	skipped = EXCLUDED.skipped,
	error = EXCLUDED.error`
	s := result.Stats
	_, err := r.pool.Exec(ctx, query,
		runID,
		s.Site,
		result.FinishedAt.UTC(),
		result.Duration.Milliseconds(),
		s.Cards,
		s.Inserted,
		s.Duplicates,
		s.Untitled,
		s.InsertFailures,
		s.CardErrors,
		s.Skipped,
		result.Error,
	)
	if err != nil {
		return fmt.Errorf("upsert scrape_run_sites: %w", err)
	}
	return nil
}

// FinishRun implements store.RunRepository.
func (r *RunStore) FinishRun(
	ctx context.Context,
	runID string,
	finishedAt time.Time,
	status store.RunStatus,
	inserted, siteErrors int,
) error {
	const query = `
UPDATE scrape_runs
SET finished_at = $2, status = $3, inserted = $4, site_errors = $5
WHERE run_id = $1`
	tag, err := r.pool.Exec(ctx, query, runID, finishedAt.UTC(), string(status), inserted, siteErrors)
	if err != nil {
		return fmt.Errorf("update scrape_runs: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update scrape_runs: run %s not found", runID)
	}
	return nil
}
