// Package selector locates job-card elements in a listing document.
package selector

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

// MinFallbackMatches is how many nodes a fallback candidate must match before
// it is trusted as a listing. A single match is usually an incidental wrapper.
const MinFallbackMatches = 2

// DefaultCandidates are the fallback patterns common to job boards and
// generic CMS listings, in priority order.
var DefaultCandidates = []string{
	"li.job_listing",
	"article.job_listing",
	".job-listing",
	".job_listing",
	"article.post",
	".job-card",
	".vaga-item",
	".job-item",
	".listing-item",
	"article",
}

// Resolver finds the card elements of a listing page.
type Resolver interface {
	LocateCards(doc *goquery.Document, configured string, fallbacks []string) []*goquery.Selection
}

// FallbackResolver tries the configured selector first and, when it matches
// nothing, falls back to candidate patterns that must match at least
// MinFallbackMatches nodes.
type FallbackResolver struct {
	logger     *zap.Logger
	candidates []string
	autoDetect bool
}

// Option configures a FallbackResolver.
type Option func(*FallbackResolver)

// WithCandidates replaces the built-in fallback list.
func WithCandidates(candidates []string) Option {
	return func(r *FallbackResolver) {
		r.candidates = append([]string(nil), candidates...)
	}
}

// WithAutoDetect toggles the fallback search. When disabled only the
// configured selector is used.
func WithAutoDetect(enabled bool) Option {
	return func(r *FallbackResolver) {
		r.autoDetect = enabled
	}
}

// NewFallbackResolver builds a resolver with the built-in candidates.
func NewFallbackResolver(logger *zap.Logger, opts ...Option) *FallbackResolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &FallbackResolver{
		logger:     logger.Named("selector"),
		candidates: DefaultCandidates,
		autoDetect: true,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// LocateCards returns the matched card nodes in document order, or nil when
// nothing qualifies.
func (r *FallbackResolver) LocateCards(doc *goquery.Document, configured string, fallbacks []string) []*goquery.Selection {
	if doc == nil {
		return nil
	}
	if cards := find(doc, configured); len(cards) > 0 {
		return cards
	}
	if !r.autoDetect {
		return nil
	}
	r.logger.Warn("configured selector matched no cards; trying fallbacks", zap.String("selector", configured))

	seen := map[string]struct{}{strings.TrimSpace(configured): {}}
	for _, candidate := range append(append([]string(nil), fallbacks...), r.candidates...) {
		candidate = strings.TrimSpace(candidate)
		if _, dup := seen[candidate]; dup {
			continue
		}
		seen[candidate] = struct{}{}
		cards := find(doc, candidate)
		if len(cards) >= MinFallbackMatches {
			r.logger.Info("auto-detected card selector",
				zap.String("selector", candidate),
				zap.Int("cards", len(cards)),
			)
			return cards
		}
	}
	return nil
}

// find matches sel against doc. An empty or unparsable selector matches
// nothing.
func find(doc *goquery.Document, sel string) []*goquery.Selection {
	if strings.TrimSpace(sel) == "" {
		return nil
	}
	matches := doc.Find(sel)
	if matches.Length() == 0 {
		return nil
	}
	cards := make([]*goquery.Selection, 0, matches.Length())
	matches.Each(func(_ int, s *goquery.Selection) {
		cards = append(cards, s)
	})
	return cards
}
