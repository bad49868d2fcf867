// Package runner drives the per-site ingestion pipeline: fetch the listing,
// locate cards, extract, dedup and store.
package runner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/JakeFAU/jobingest/internal/dedup"
	"github.com/JakeFAU/jobingest/internal/extract"
	"github.com/JakeFAU/jobingest/internal/fetcher"
	"github.com/JakeFAU/jobingest/internal/jobs"
	"github.com/JakeFAU/jobingest/internal/metrics"
	"github.com/JakeFAU/jobingest/internal/politeness"
	"github.com/JakeFAU/jobingest/internal/progress"
	"github.com/JakeFAU/jobingest/internal/selector"
)

// ErrSitePanic marks a site run that was aborted by a recovered panic.
var ErrSitePanic = errors.New("site run panicked")

// cardPaceFactor scales the site delay into the pause between cards.
const cardPaceFactor = 0.5

// Deps bundles the collaborators a Runner needs.
type Deps struct {
	Fetcher   jobs.Fetcher
	Resolver  selector.Resolver
	Extractor *extract.Extractor
	Gate      *dedup.Gate
	Store     jobs.Store
	Clock     jobs.Clock
	IDs       jobs.IDGenerator
	Pauser    politeness.Pauser
	// Progress receives run and site milestones; nil discards them.
	Progress progress.Emitter
	Logger   *zap.Logger
}

// Config tunes a Runner.
type Config struct {
	// SiteConcurrency bounds how many sites run at once. Values below 1 mean 1.
	SiteConcurrency int
}

// Runner executes ingestion runs. It is safe to reuse across runs.
type Runner struct {
	deps Deps
	cfg  Config
	log  *zap.Logger
}

// New builds a Runner. Fetcher, Resolver, Extractor, Gate, Store and Clock
// are required.
func New(deps Deps, cfg Config) (*Runner, error) {
	switch {
	case deps.Fetcher == nil:
		return nil, errors.New("runner: fetcher is required")
	case deps.Resolver == nil:
		return nil, errors.New("runner: resolver is required")
	case deps.Extractor == nil:
		return nil, errors.New("runner: extractor is required")
	case deps.Gate == nil:
		return nil, errors.New("runner: dedup gate is required")
	case deps.Store == nil:
		return nil, errors.New("runner: store is required")
	case deps.Clock == nil:
		return nil, errors.New("runner: clock is required")
	}
	if deps.Pauser == nil {
		deps.Pauser = politeness.TimerPauser{}
	}
	if deps.Progress == nil {
		deps.Progress = progress.Nop{}
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if cfg.SiteConcurrency < 1 {
		cfg.SiteConcurrency = 1
	}
	return &Runner{deps: deps, cfg: cfg, log: deps.Logger.Named("runner")}, nil
}

// RunAll processes every site and returns the aggregate summary. It never
// fails as a whole: site failures are logged and counted.
func (r *Runner) RunAll(ctx context.Context, sites []jobs.SiteConfig) jobs.Summary {
	started := r.deps.Clock.Now()
	runID := r.newRunID()
	log := r.log.With(zap.String("run_id", runID))
	log.Info("run started",
		zap.Time("started_at", started),
		zap.Int("sites_configured", len(sites)),
		zap.Int("site_concurrency", r.cfg.SiteConcurrency),
	)
	r.emit(progress.Event{RunID: runID, TS: started, Stage: progress.StageRunStart})

	stats := make([]jobs.SiteStats, len(sites))
	errs := make([]error, len(sites))
	var g errgroup.Group
	g.SetLimit(r.cfg.SiteConcurrency)
	for i, site := range sites {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			siteStart := r.deps.Clock.Now()
			stats[i], errs[i] = r.runSiteSafely(ctx, site, log)
			done := r.deps.Clock.Now()
			r.emit(progress.SiteEvent(runID, done, stats[i], done.Sub(siteStart), errs[i]))
			return nil
		})
	}
	_ = g.Wait()

	summary := jobs.Summary{
		RunID:     runID,
		StartedAt: started,
		Sites:     make([]jobs.SiteStats, 0, len(sites)),
	}
	for i := range sites {
		if stats[i].Site == "" && errs[i] == nil {
			continue
		}
		summary.SitesProcessed++
		summary.Inserted += stats[i].Inserted
		if errs[i] != nil {
			summary.SiteErrors++
		}
		summary.Sites = append(summary.Sites, stats[i])
	}
	finished := r.deps.Clock.Now()
	summary.Duration = finished.Sub(started)
	metrics.ObserveRun(summary.Inserted, summary.SiteErrors, summary.Duration, finished)
	r.emit(progress.Event{
		RunID:      runID,
		TS:         finished,
		Stage:      progress.StageRunDone,
		Inserted:   summary.Inserted,
		SiteErrors: summary.SiteErrors,
		Dur:        summary.Duration,
	})

	log.Info("run finished",
		zap.Int("sites_processed", summary.SitesProcessed),
		zap.Int("inserted", summary.Inserted),
		zap.Int("site_errors", summary.SiteErrors),
		zap.Duration("duration", summary.Duration),
	)
	return summary
}

// emit stamps events in UTC. Runs without an ID are not reported.
func (r *Runner) emit(evt progress.Event) {
	if evt.RunID == "" {
		return
	}
	evt.TS = evt.TS.UTC()
	r.deps.Progress.Emit(evt)
}

func (r *Runner) newRunID() string {
	if r.deps.IDs == nil {
		return ""
	}
	id, err := r.deps.IDs.NewID()
	if err != nil {
		r.log.Warn("generate run id", zap.Error(err))
		return ""
	}
	return id
}

func (r *Runner) runSiteSafely(ctx context.Context, site jobs.SiteConfig, log *zap.Logger) (stats jobs.SiteStats, err error) {
	stats.Site = site.Name
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("%w: %v", ErrSitePanic, rec)
			log.Error("site run panicked", zap.String("site", site.Name), zap.Any("panic", rec))
		}
		if err != nil {
			metrics.ObserveSite(metrics.SiteError)
		}
	}()
	stats, err = r.runSite(ctx, site, log)
	if err != nil {
		log.Error("site failed", zap.String("site", site.Name), zap.Error(err))
	}
	return stats, err
}

// RunSite processes a single site. The returned error is a site-level
// failure: an invalid configuration or an unrecoverable listing fetch.
// A listing that cannot be loaded or holds no cards is skipped without error.
func (r *Runner) RunSite(ctx context.Context, site jobs.SiteConfig) (jobs.SiteStats, error) {
	return r.runSiteSafely(ctx, site, r.log)
}

func (r *Runner) runSite(ctx context.Context, site jobs.SiteConfig, log *zap.Logger) (jobs.SiteStats, error) {
	stats := jobs.SiteStats{Site: site.Name}
	log = log.With(zap.String("site", site.Name))
	if err := site.Validate(); err != nil {
		return stats, fmt.Errorf("invalid site config: %w", err)
	}
	log.Info("processing site", zap.String("url", site.ListURL))

	doc, err := r.deps.Fetcher.Fetch(ctx, site.ListURL, 0)
	if err != nil {
		if errors.Is(err, fetcher.ErrUnrecoverable) {
			return stats, fmt.Errorf("listing: %w", err)
		}
		stats.Skipped = true
		metrics.ObserveSite(metrics.SiteSkipped)
		log.Warn("listing unavailable; skipping site", zap.Error(err))
		return stats, nil
	}

	cards := r.deps.Resolver.LocateCards(doc, site.CardSelector, site.FallbackSelectors)
	if len(cards) == 0 {
		stats.Skipped = true
		metrics.ObserveSite(metrics.SiteSkipped)
		log.Warn("no job cards found; skipping site", zap.String("selector", site.CardSelector))
		return stats, nil
	}
	stats.Cards = len(cards)
	log.Info("job cards found", zap.Int("cards", len(cards)))

	pause := time.Duration(float64(site.Delay()) * cardPaceFactor)
	for i, card := range cards {
		if ctx.Err() != nil {
			log.Warn("run canceled; stopping site", zap.Int("card", i+1))
			break
		}
		attempted := r.processCardSafely(ctx, site, i, card, &stats, log)
		if attempted && i < len(cards)-1 {
			r.deps.Pauser.Pause(ctx, pause)
			metrics.ObservePolitenessWait(site.ListURL, pause)
		}
	}

	metrics.ObserveSite(metrics.SiteOK)
	log.Info("site done",
		zap.Int("inserted", stats.Inserted),
		zap.Int("duplicates", stats.Duplicates),
		zap.Int("untitled", stats.Untitled),
		zap.Int("insert_failures", stats.InsertFailures),
		zap.Int("card_errors", stats.CardErrors),
	)
	return stats, nil
}
