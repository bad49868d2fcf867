// Package dedup decides whether a candidate's source URL has already been
// ingested.
package dedup

import (
	"context"

	"go.uber.org/zap"
)

// ExistenceChecker is the slice of jobs.Store the gate needs.
type ExistenceChecker interface {
	ExistsBySourceURL(ctx context.Context, sourceURL string) (bool, error)
}

// Claimer coordinates concurrent workers or runs. Claim reports true when the
// caller is the first to claim sourceURL.
type Claimer interface {
	Claim(ctx context.Context, sourceURL string) (bool, error)
	Release(ctx context.Context, sourceURL string) error
}

// Gate answers "is this URL a duplicate?". It fails open: when the store or
// the claimer cannot answer, the URL is treated as new. The check and the
// later insert are not atomic; stores must reject duplicate inserts too.
type Gate struct {
	store   ExistenceChecker
	claimer Claimer
	logger  *zap.Logger
}

// Option configures a Gate.
type Option func(*Gate)

// WithClaimer adds a cross-worker claim step after the store lookup.
func WithClaimer(c Claimer) Option {
	return func(g *Gate) {
		g.claimer = c
	}
}

// NewGate builds a Gate backed by store.
func NewGate(store ExistenceChecker, logger *zap.Logger, opts ...Option) *Gate {
	if logger == nil {
		logger = zap.NewNop()
	}
	g := &Gate{store: store, logger: logger.Named("dedup")}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Exists reports whether sourceURL should be skipped. An empty URL is never a
// duplicate.
func (g *Gate) Exists(ctx context.Context, sourceURL string) bool {
	if sourceURL == "" {
		return false
	}
	found, err := g.store.ExistsBySourceURL(ctx, sourceURL)
	if err != nil {
		g.logger.Warn("duplicate check failed; treating as new",
			zap.String("url", sourceURL),
			zap.Error(err),
		)
		return false
	}
	if found {
		return true
	}
	if g.claimer == nil {
		return false
	}
	claimed, err := g.claimer.Claim(ctx, sourceURL)
	if err != nil {
		g.logger.Warn("claim failed; treating as new",
			zap.String("url", sourceURL),
			zap.Error(err),
		)
		return false
	}
	return !claimed
}

// Release drops a claim taken by Exists so a later run can retry the URL.
// It is a no-op without a claimer.
func (g *Gate) Release(ctx context.Context, sourceURL string) {
	if g.claimer == nil || sourceURL == "" {
		return
	}
	if err := g.claimer.Release(ctx, sourceURL); err != nil {
		g.logger.Warn("release claim failed", zap.String("url", sourceURL), zap.Error(err))
	}
}
