// Package metrics exposes Prometheus collectors for ingestion runs. The
// process has no listener; collectors are flushed to a node-exporter textfile
// at the end of each run.
package metrics

import (
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	pagesFetchedTotal   *prometheus.CounterVec
	fetchBytesTotal     *prometheus.CounterVec
	cardsTotal          *prometheus.CounterVec
	siteRunsTotal       *prometheus.CounterVec
	politenessWait      *prometheus.HistogramVec
	lastRunTimestamp    prometheus.Gauge
	lastRunInserted     prometheus.Gauge
	lastRunSiteErrors   prometheus.Gauge
	lastRunDurationSecs prometheus.Gauge

	once sync.Once
)

// Card outcomes recorded by ObserveCard.
const (
	CardInserted     = "inserted"
	CardDuplicate    = "duplicate"
	CardUntitled     = "untitled"
	CardInsertFailed = "insert_failed"
	CardError        = "error"
)

// Site outcomes recorded by ObserveSite.
const (
	SiteOK      = "ok"
	SiteSkipped = "skipped"
	SiteError   = "error"
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		pagesFetchedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jobingest_pages_fetched_total",
				Help: "Pages fetched, labeled by site host and status.",
			},
			[]string{"site", "status"},
		)
		fetchBytesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jobingest_fetch_bytes_total",
				Help: "Bytes fetched, labeled by site host.",
			},
			[]string{"site"},
		)
		cardsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jobingest_cards_total",
				Help: "Job cards processed, labeled by site name and outcome.",
			},
			[]string{"site", "outcome"},
		)
		siteRunsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jobingest_site_runs_total",
				Help: "Site runs, labeled by outcome.",
			},
			[]string{"outcome"},
		)
		politenessWait = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "jobingest_politeness_wait_seconds",
				Help:    "Explicit politeness sleeps outside the collector limit rules, labeled by site host.",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"site"},
		)
		lastRunTimestamp = promauto.NewGauge(prometheus.GaugeOpts{
			Name: "jobingest_last_run_timestamp_seconds",
			Help: "Unix time the last run finished.",
		})
		lastRunInserted = promauto.NewGauge(prometheus.GaugeOpts{
			Name: "jobingest_last_run_inserted",
			Help: "Records inserted by the last run.",
		})
		lastRunSiteErrors = promauto.NewGauge(prometheus.GaugeOpts{
			Name: "jobingest_last_run_site_errors",
			Help: "Site-level errors in the last run.",
		})
		lastRunDurationSecs = promauto.NewGauge(prometheus.GaugeOpts{
			Name: "jobingest_last_run_duration_seconds",
			Help: "Wall time of the last run.",
		})
	})
}

// SanitizeSite sanitizes a URL to extract a lowercase hostname.
// It returns "unknown" if the URL is invalid.
func SanitizeSite(rawURL string) string {
	if !strings.HasPrefix(rawURL, "http") {
		rawURL = "http://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return strings.ToLower(u.Hostname())
}

// ObserveFetch records one fetch attempt.
func ObserveFetch(rawURL string, ok bool, bytesFetched int) {
	Init()
	site := SanitizeSite(rawURL)
	status := "ok"
	if !ok {
		status = "error"
	}
	pagesFetchedTotal.WithLabelValues(site, status).Inc()
	if bytesFetched > 0 {
		fetchBytesTotal.WithLabelValues(site).Add(float64(bytesFetched))
	}
}

// ObservePolitenessWait records an explicit politeness sleep: the pause
// between cards or a fetch delay longer than its host limit rule.
func ObservePolitenessWait(rawURL string, d time.Duration) {
	if d <= 0 {
		return
	}
	Init()
	politenessWait.WithLabelValues(SanitizeSite(rawURL)).Observe(d.Seconds())
}

// ObserveCard records the outcome of one card.
func ObserveCard(site, outcome string) {
	Init()
	cardsTotal.WithLabelValues(site, outcome).Inc()
}

// ObserveSite records the outcome of one site run.
func ObserveSite(outcome string) {
	Init()
	siteRunsTotal.WithLabelValues(outcome).Inc()
}

// ObserveRun records the aggregate result of a run.
func ObserveRun(inserted, siteErrors int, duration time.Duration, finished time.Time) {
	Init()
	lastRunInserted.Set(float64(inserted))
	lastRunSiteErrors.Set(float64(siteErrors))
	lastRunDurationSecs.Set(duration.Seconds())
	lastRunTimestamp.Set(float64(finished.Unix()))
}

// WriteTextfile dumps the default registry in text exposition format.
func WriteTextfile(path string) error {
	if strings.TrimSpace(path) == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, prometheus.DefaultGatherer); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
