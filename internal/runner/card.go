package runner

import (
	"context"
	"errors"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/JakeFAU/jobingest/internal/extract"
	"github.com/JakeFAU/jobingest/internal/jobs"
	"github.com/JakeFAU/jobingest/internal/metrics"
)

// processCardSafely runs one card and reports whether it reached the store.
// Panics are contained to the card.
func (r *Runner) processCardSafely(
	ctx context.Context,
	site jobs.SiteConfig,
	index int,
	card *goquery.Selection,
	stats *jobs.SiteStats,
	log *zap.Logger,
) (attempted bool) {
	log = log.With(zap.Int("card", index+1))
	defer func() {
		if rec := recover(); rec != nil {
			stats.CardErrors++
			metrics.ObserveCard(site.Name, metrics.CardError)
			log.Error("card panicked", zap.Any("panic", rec), zap.Stack("stack"))
			attempted = false
		}
	}()
	return r.processCard(ctx, site, card, stats, log)
}

func (r *Runner) processCard(
	ctx context.Context,
	site jobs.SiteConfig,
	card *goquery.Selection,
	stats *jobs.SiteStats,
	log *zap.Logger,
) bool {
	link := extract.ResolveLink(card, site)
	if r.deps.Gate.Exists(ctx, link) {
		stats.Duplicates++
		metrics.ObserveCard(site.Name, metrics.CardDuplicate)
		log.Info("duplicate skipped", zap.String("url", link))
		return false
	}

	candidate, err := r.deps.Extractor.Extract(ctx, card, site, link)
	if err != nil {
		r.deps.Gate.Release(ctx, link)
		if errors.Is(err, extract.ErrMissingTitle) {
			stats.Untitled++
			metrics.ObserveCard(site.Name, metrics.CardUntitled)
			log.Warn("card has no title; skipping", zap.String("url", link))
			return false
		}
		stats.CardErrors++
		metrics.ObserveCard(site.Name, metrics.CardError)
		log.Error("card extraction failed", zap.String("url", link), zap.Error(err))
		return false
	}

	record := candidate.ToRecord(r.deps.Clock.Now())
	err = r.deps.Store.Insert(ctx, record)
	switch {
	case err == nil:
		stats.Inserted++
		metrics.ObserveCard(site.Name, metrics.CardInserted)
		log.Info("inserted",
			zap.String("title", record.Title),
			zap.String("company", record.Company),
			zap.String("url", link),
		)
	case errors.Is(err, jobs.ErrDuplicate):
		stats.Duplicates++
		metrics.ObserveCard(site.Name, metrics.CardDuplicate)
		log.Info("duplicate rejected by store", zap.String("url", link))
	default:
		r.deps.Gate.Release(ctx, link)
		stats.InsertFailures++
		metrics.ObserveCard(site.Name, metrics.CardInsertFailed)
		log.Error("insert failed", zap.String("title", record.Title), zap.String("url", link), zap.Error(err))
	}
	return true
}
