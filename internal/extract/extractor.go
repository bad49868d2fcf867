// Package extract turns a listing card, and optionally its detail page, into a
// jobs.Candidate.
package extract

import (
	"context"
	"errors"
	"fmt"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/JakeFAU/jobingest/internal/jobs"
	"github.com/JakeFAU/jobingest/internal/textnorm"
)

// ErrMissingTitle rejects a card whose title selector resolved to nothing.
var ErrMissingTitle = errors.New("card has no title")

// Extractor applies a site's field mapping to cards.
type Extractor struct {
	fetcher jobs.Fetcher
	logger  *zap.Logger
}

// New builds an Extractor. fetcher is only used for detail pages.
func New(fetcher jobs.Fetcher, logger *zap.Logger) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{fetcher: fetcher, logger: logger.Named("extract")}
}

// Extract builds a candidate from card. link is the already resolved source
// URL and may be empty. Missing fields become empty strings or defaults; only
// a missing title is an error. A failed detail fetch degrades to card-only
// data rather than failing the card.
func (e *Extractor) Extract(ctx context.Context, card *goquery.Selection, site jobs.SiteConfig, link string) (jobs.Candidate, error) {
	if card == nil {
		return jobs.Candidate{}, ErrMissingTitle
	}
	title := fieldText(card, site.FieldSelector(jobs.FieldTitle))
	if title == "" {
		return jobs.Candidate{}, ErrMissingTitle
	}

	candidate := jobs.Candidate{
		Site:        site.Name,
		Title:       title,
		Company:     fieldText(card, site.FieldSelector(jobs.FieldCompany)),
		Location:    fieldText(card, site.FieldSelector(jobs.FieldLocation)),
		Description: markupText(first(card, site.FieldSelector(jobs.FieldDescription))),
		SourceURL:   link,
	}
	if candidate.Company == "" {
		candidate.Company = jobs.UnknownCompany
	}
	if candidate.Location == "" {
		candidate.Location = site.Location()
	}

	scanText := card.Text()
	detailUsed := false
	if site.Detail.Enabled && link != "" && e.fetcher != nil {
		doc, err := e.fetcher.Fetch(ctx, link, site.Delay())
		switch {
		case err == nil:
			detailUsed = true
			if desc := doc.Find(site.Detail.DescriptionSelector()).First(); desc.Length() > 0 {
				candidate.Description = markupText(desc)
			}
			candidate.Requirements = Requirements(doc.Find(site.Detail.RequirementsSelector()).First())
			scanText = doc.Text()
		case ctx.Err() != nil:
			return jobs.Candidate{}, fmt.Errorf("detail %s: %w", link, ctx.Err())
		default:
			e.logger.Warn("detail page unavailable; using card data",
				zap.String("site", site.Name),
				zap.String("url", link),
				zap.Error(err),
			)
		}
	}
	if !detailUsed {
		candidate.Requirements = Requirements(card.Find("ul, ol").First())
	}
	if email, ok := textnorm.FirstEmail(scanText); ok {
		candidate.ContactEmail = email
	}
	return candidate, nil
}

func first(scope *goquery.Selection, sel string) *goquery.Selection {
	return scope.Find(sel).First()
}

func fieldText(scope *goquery.Selection, sel string) string {
	return textnorm.Clean(first(scope, sel).Text())
}

// markupText reads a long-form node from its inner HTML so nested markup
// (scripts, paragraph breaks) is handled by the sanitizer instead of being
// flattened by Text.
func markupText(sel *goquery.Selection) string {
	if sel.Length() == 0 {
		return ""
	}
	inner, err := sel.Html()
	if err != nil {
		return textnorm.Clean(sel.Text())
	}
	return textnorm.FromHTML(inner)
}
