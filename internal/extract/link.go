package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/JakeFAU/jobingest/internal/jobs"
)

// ResolveLink returns the absolute URL a card points at, or "" when the card
// has no usable anchor. The configured link selector is tried first, then the
// first <a> in the card.
func ResolveLink(card *goquery.Selection, site jobs.SiteConfig) string {
	if card == nil {
		return ""
	}
	anchor := card.Find(site.FieldSelector(jobs.FieldLink)).First()
	if anchor.Length() == 0 {
		anchor = card.Find("a").First()
	}
	href, ok := anchor.Attr("href")
	if !ok {
		return ""
	}
	return Absolutize(site.BaseURL, href)
}

// Absolutize joins a relative href onto baseURL by trimming the slashes at the
// seam. Absolute http(s) hrefs are returned unchanged and protocol-relative
// ones take the base scheme. Empty, fragment-only and javascript: hrefs yield
// "".
func Absolutize(baseURL, href string) string {
	href = strings.TrimSpace(href)
	lower := strings.ToLower(href)
	switch {
	case href == "", strings.HasPrefix(href, "#"), strings.HasPrefix(lower, "javascript:"):
		return ""
	case strings.HasPrefix(lower, "http://"), strings.HasPrefix(lower, "https://"):
		return href
	case strings.HasPrefix(href, "//"):
		scheme := "https"
		if i := strings.Index(baseURL, "://"); i > 0 {
			scheme = baseURL[:i]
		}
		return scheme + ":" + href
	}
	return strings.TrimRight(baseURL, "/") + "/" + strings.TrimLeft(href, "/")
}
