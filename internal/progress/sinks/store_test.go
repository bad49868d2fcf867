package sinks

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/JakeFAU/jobingest/internal/jobs"
	"github.com/JakeFAU/jobingest/internal/progress"
	"github.com/JakeFAU/jobingest/internal/store"
)

type fakeRunRepo struct {
	starts   []string
	sites    []store.SiteResult
	finishes []store.RunStatus
	totals   [][2]int
	err      error
}

func (f *fakeRunRepo) StartRun(_ context.Context, runID string, _ time.Time) error {
	if f.err != nil {
		return f.err
	}
	f.starts = append(f.starts, runID)
	return nil
}

func (f *fakeRunRepo) RecordSite(_ context.Context, _ string, result store.SiteResult) error {
	if f.err != nil {
		return f.err
	}
	f.sites = append(f.sites, result)
	return nil
}

func (f *fakeRunRepo) FinishRun(_ context.Context, _ string, _ time.Time, status store.RunStatus, inserted, siteErrors int) error {
	if f.err != nil {
		return f.err
	}
	f.finishes = append(f.finishes, status)
	f.totals = append(f.totals, [2]int{inserted, siteErrors})
	return nil
}

func runBatch(now time.Time) []progress.Event {
	return []progress.Event{
		{RunID: "run-1", TS: now, Stage: progress.StageRunStart},
		progress.SiteEvent("run-1", now.Add(time.Second), jobs.SiteStats{Site: "A", Cards: 3, Inserted: 1}, time.Second, nil),
		progress.SiteEvent("run-1", now.Add(2*time.Second), jobs.SiteStats{Site: "B"}, time.Second, errors.New("listing: invalid url")),
		{RunID: "run-1", TS: now.Add(3 * time.Second), Stage: progress.StageRunDone, Inserted: 1, SiteErrors: 1},
	}
}

// TestStoreSinkPersistsRun ensures every stage reaches the repository in order.
func TestStoreSinkPersistsRun(t *testing.T) {
	t.Parallel()

	repo := &fakeRunRepo{}
	sink := NewStoreSink(repo, nil)
	require.NoError(t, sink.Consume(context.Background(), runBatch(time.Now())))

	require.Equal(t, []string{"run-1"}, repo.starts)
	require.Len(t, repo.sites, 2)
	require.Nil(t, repo.sites[0].Error)
	require.Equal(t, 1, repo.sites[0].Stats.Inserted)
	require.NotNil(t, repo.sites[1].Error)
	require.Equal(t, "listing: invalid url", *repo.sites[1].Error)
	require.Equal(t, []store.RunStatus{store.RunPartial}, repo.finishes)
	require.Equal(t, [2]int{1, 1}, repo.totals[0])
	require.NoError(t, sink.Close(context.Background()))
}

// TestStoreSinkHandlesErrors surfaces repository failures to the hub.
func TestStoreSinkHandlesErrors(t *testing.T) {
	t.Parallel()

	repo := &fakeRunRepo{err: errors.New("db down")}
	err := NewStoreSink(repo, nil).Consume(context.Background(), runBatch(time.Now()))
	require.ErrorContains(t, err, "start run: db down")
}

func TestStoreSinkNilRepo(t *testing.T) {
	t.Parallel()

	require.NoError(t, NewStoreSink(nil, nil).Consume(context.Background(), runBatch(time.Now())))
}

func TestStatusFor(t *testing.T) {
	t.Parallel()

	require.Equal(t, store.RunSuccess, store.StatusFor(0))
	require.Equal(t, store.RunPartial, store.StatusFor(2))
}

func TestLogSinkWritesDebugEntries(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zap.DebugLevel)
	sink := NewLogSink(zap.New(core))
	require.NoError(t, sink.Consume(context.Background(), runBatch(time.Now())))
	require.NoError(t, sink.Close(context.Background()))

	entries := logs.FilterMessage("progress event").All()
	require.Len(t, entries, 4)
	site := entries[2].ContextMap()
	require.Equal(t, "B", site["site"])
	require.Equal(t, "listing: invalid url", site["note"])
	require.Equal(t, int64(1), entries[3].ContextMap()["site_errors"])
}
