// Package collyfetcher implements jobs.Fetcher using gocolly.
package collyfetcher

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/JakeFAU/jobingest/internal/fetcher"
	"github.com/JakeFAU/jobingest/internal/metrics"
	"github.com/JakeFAU/jobingest/internal/politeness"
)

// Default header values sent with every request.
const (
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
		"(KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36"
	DefaultAccept         = "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"
	DefaultAcceptLanguage = "pt-PT,pt;q=0.9,en;q=0.8"
	DefaultReferer        = "https://www.google.com/"
	DefaultTimeout        = 20 * time.Second
)

// Config controls collector behavior. Empty fields take the defaults above.
type Config struct {
	UserAgent      string
	Accept         string
	AcceptLanguage string
	Referer        string
	Timeout        time.Duration
	// Limits are registered on the shared collector backend in order; the
	// first rule matching a request host paces it.
	Limits []*colly.LimitRule
	// Pauser covers the part of a caller's delay that exceeds its host rule.
	Pauser politeness.Pauser
}

func (c Config) withDefaults() Config {
	if c.UserAgent == "" {
		c.UserAgent = DefaultUserAgent
	}
	if c.Accept == "" {
		c.Accept = DefaultAccept
	}
	if c.AcceptLanguage == "" {
		c.AcceptLanguage = DefaultAcceptLanguage
	}
	if c.Referer == "" {
		c.Referer = DefaultReferer
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.Pauser == nil {
		c.Pauser = politeness.TimerPauser{}
	}
	return c
}

// Fetcher implements jobs.Fetcher using the Colly collector.
type Fetcher struct {
	cfg           Config
	logger        *zap.Logger
	baseCollector *colly.Collector
}

type collectorHooks interface {
	OnRequest(colly.RequestCallback)
	OnResponse(colly.ResponseCallback)
	OnError(colly.ErrorCallback)
}

// page is what the collector hooks capture for a single visit.
type page struct {
	status      int
	contentType string
	body        []byte
	err         error
}

// New builds a Fetcher. A nil logger discards output.
func New(cfg Config, logger *zap.Logger) *Fetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg = cfg.withDefaults()
	logger = logger.Named("fetcher")
	c := colly.NewCollector(colly.Async(false))
	c.AllowURLRevisit = true
	c.IgnoreRobotsTxt = true
	// Clones share the backend, so the client and the limit rules are
	// configured once here.
	c.WithTransport(newHTTPTransport())
	c.SetRequestTimeout(cfg.Timeout)
	for _, rule := range cfg.Limits {
		if err := c.Limit(rule); err != nil {
			logger.Warn("invalid limit rule", zap.String("domain_glob", rule.DomainGlob), zap.Error(err))
		}
	}

	return &Fetcher{
		cfg:           cfg,
		logger:        logger,
		baseCollector: c,
	}
}

// Fetch issues a GET for rawURL and parses the decoded body. Spacing between
// requests to a host comes from the limit rule matching it; delay only adds
// a pre-request wait when it is longer than that rule's delay.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string, delay time.Duration) (*goquery.Document, error) {
	u, err := parseURL(rawURL)
	if err != nil {
		return nil, err
	}
	if extra := delay - f.ruleDelay(strings.ToLower(u.Host)); extra > 0 {
		f.cfg.Pauser.Pause(ctx, extra)
		metrics.ObservePolitenessWait(rawURL, extra)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("fetch %s canceled: %w", rawURL, err)
	}

	var result page
	collector := f.buildCollector(&result)
	start := time.Now()
	if err := f.runCollector(ctx, collector, rawURL, &result); err != nil {
		metrics.ObserveFetch(rawURL, false, 0)
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		fetchErr := &fetcher.FetchError{URL: rawURL, StatusCode: result.status, Err: err}
		f.logger.Warn("fetch failed",
			zap.String("url", rawURL),
			zap.Int("status", result.status),
			zap.Error(err),
		)
		return nil, fetchErr
	}
	metrics.ObserveFetch(rawURL, true, len(result.body))

	body, encodingName := decodeHTML(result.body, result.contentType)
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, &fetcher.FetchError{URL: rawURL, StatusCode: result.status, Err: fmt.Errorf("parse html: %w", err)}
	}
	f.logger.Debug("fetched page",
		zap.String("url", rawURL),
		zap.Int("status", result.status),
		zap.String("encoding", encodingName),
		zap.Duration("elapsed", time.Since(start)),
	)
	return doc, nil
}

// ruleDelay is the delay of the first rule matching host, mirroring how the
// collector backend picks one.
func (f *Fetcher) ruleDelay(host string) time.Duration {
	for _, rule := range f.cfg.Limits {
		if rule.Match(host) {
			return rule.Delay
		}
	}
	return 0
}

func (f *Fetcher) buildCollector(result *page) *colly.Collector {
	collector := f.baseCollector.Clone()
	collector.UserAgent = f.cfg.UserAgent
	f.configureCollectorHooks(collector, result)
	return collector
}

func (f *Fetcher) configureCollectorHooks(hooks collectorHooks, result *page) {
	hooks.OnRequest(func(r *colly.Request) {
		f.setHeaders(r)
	})

	hooks.OnResponse(func(r *colly.Response) {
		result.status = r.StatusCode
		if r.Headers != nil {
			result.contentType = r.Headers.Get("Content-Type")
		}
		result.body = append([]byte(nil), r.Body...)
	})

	hooks.OnError(func(r *colly.Response, err error) {
		if r != nil {
			result.status = r.StatusCode
		}
		result.err = err
	})
}

func (f *Fetcher) runCollector(ctx context.Context, collector *colly.Collector, rawURL string, result *page) error {
	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(rawURL)
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("colly fetch canceled: %w", ctx.Err())
	case err := <-done:
		if err != nil {
			return fmt.Errorf("colly visit failed: %w", err)
		}
		if result.err != nil {
			return fmt.Errorf("colly response failed: %w", result.err)
		}
		return nil
	}
}

func (f *Fetcher) setHeaders(r *colly.Request) {
	r.Headers.Set("User-Agent", f.cfg.UserAgent)
	r.Headers.Set("Accept", f.cfg.Accept)
	r.Headers.Set("Accept-Language", f.cfg.AcceptLanguage)
	r.Headers.Set("Referer", f.cfg.Referer)
}

func parseURL(rawURL string) (*url.URL, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", fetcher.ErrUnrecoverable, rawURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: %q: unsupported scheme", fetcher.ErrUnrecoverable, rawURL)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("%w: %q: missing host", fetcher.ErrUnrecoverable, rawURL)
	}
	return u, nil
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}
