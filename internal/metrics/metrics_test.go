package metrics

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeSite(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{"standard http", "http://angoemprego.com/vagas", "angoemprego.com"},
		{"standard https", "https://AngoVagas.net/path", "angovagas.net"},
		{"no scheme", "example.com/path", "example.com"},
		{"host with port", "example.com:8080", "example.com"},
		{"invalid url", "http://%", "unknown"},
		{"empty string", "", "unknown"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := SanitizeSite(tc.input); got != tc.expected {
				t.Errorf("SanitizeSite(%q) = %q; want %q", tc.input, got, tc.expected)
			}
		})
	}
}

func TestInit(t *testing.T) {
	// Call Init multiple times to test idempotency.
	Init()
	Init()

	if pagesFetchedTotal == nil || cardsTotal == nil || siteRunsTotal == nil || lastRunInserted == nil {
		t.Fatal("Init() did not initialize metrics collectors")
	}
}

func TestObserveCard(t *testing.T) {
	Init()
	before := testutil.ToFloat64(cardsTotal.WithLabelValues("Angola Test", CardInserted))
	ObserveCard("Angola Test", CardInserted)
	ObserveCard("Angola Test", CardInserted)
	after := testutil.ToFloat64(cardsTotal.WithLabelValues("Angola Test", CardInserted))
	assert.Equal(t, before+2, after)
}

func TestObserveFetch(t *testing.T) {
	Init()
	before := testutil.ToFloat64(pagesFetchedTotal.WithLabelValues("fetch.test", "error"))
	ObserveFetch("https://fetch.test/x", false, 0)
	assert.Equal(t, before+1, testutil.ToFloat64(pagesFetchedTotal.WithLabelValues("fetch.test", "error")))

	bytesBefore := testutil.ToFloat64(fetchBytesTotal.WithLabelValues("fetch.test"))
	ObserveFetch("https://fetch.test/y", true, 512)
	assert.Equal(t, bytesBefore+512, testutil.ToFloat64(fetchBytesTotal.WithLabelValues("fetch.test")))
}

func TestObserveRun(t *testing.T) {
	finished := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	ObserveRun(3, 1, 2*time.Second, finished)
	assert.InDelta(t, 3, testutil.ToFloat64(lastRunInserted), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(lastRunSiteErrors), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(lastRunDurationSecs), 0)
	assert.InDelta(t, float64(finished.Unix()), testutil.ToFloat64(lastRunTimestamp), 0)
}

func TestWriteTextfile(t *testing.T) {
	ObserveSite(SiteOK)
	path := filepath.Join(t.TempDir(), "jobingest.prom")
	require.NoError(t, WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "jobingest_site_runs_total")
}

func TestWriteTextfileEmptyPath(t *testing.T) {
	assert.NoError(t, WriteTextfile("  "))
}

// Fuzz test for SanitizeSite.
func FuzzSanitizeSite(f *testing.F) {
	testcases := []string{"http://example.com", "https://google.com", "ftp://example.com"}
	for _, tc := range testcases {
		f.Add(tc)
	}
	f.Fuzz(func(t *testing.T, orig string) {
		sanitized := SanitizeSite(orig)
		if sanitized == "" {
			t.Errorf("SanitizeSite(%q) returned an empty string", orig)
		}
	})
}
