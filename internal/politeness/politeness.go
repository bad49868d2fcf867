// Package politeness holds the throttling policy shared by the fetcher and
// the site runner: per-host collector limit rules and the card pause.
package politeness

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/gobwas/glob"
	"github.com/gocolly/colly/v2"

	"github.com/JakeFAU/jobingest/internal/jobs"
)

// Pauser abstracts how callers wait between requests.
type Pauser interface {
	Pause(ctx context.Context, delay time.Duration)
}

// TimerPauser sleeps on a timer and returns early when ctx is done.
type TimerPauser struct{}

// Pause implements Pauser.
func (TimerPauser) Pause(ctx context.Context, delay time.Duration) {
	if delay <= 0 {
		return
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

// LimitRules returns one collector rule per site host. Each rule allows a
// single request in flight and holds its slot for the site's delay after the
// response, so consecutive requests to a host are spaced by that delay no
// matter which goroutine issues them. Hosts shared by several sites take the
// largest delay. The last rule is a catch-all for hosts only reached through
// detail links; it uses the largest configured delay.
func LimitRules(sites []jobs.SiteConfig) []*colly.LimitRule {
	delays := make(map[string]time.Duration)
	var hosts []string
	var fallback time.Duration
	for _, site := range sites {
		d := site.Delay()
		if d > fallback {
			fallback = d
		}
		for _, raw := range []string{site.ListURL, site.BaseURL} {
			host := HostOf(raw)
			if host == "" {
				continue
			}
			cur, seen := delays[host]
			if !seen {
				hosts = append(hosts, host)
			}
			if !seen || d > cur {
				delays[host] = d
			}
		}
	}

	rules := make([]*colly.LimitRule, 0, len(hosts)+1)
	for _, host := range hosts {
		rules = append(rules, &colly.LimitRule{
			DomainGlob:  glob.QuoteMeta(host),
			Parallelism: 1,
			Delay:       delays[host],
		})
	}
	return append(rules, &colly.LimitRule{DomainGlob: "*", Parallelism: 1, Delay: fallback})
}

// HostOf returns the lowercased host (with port, as the collector matches
// rules on it) of rawURL, or "" when rawURL has none.
func HostOf(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Host)
}
