package elastic

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/jobingest/internal/jobs"
)

type esRequest struct {
	Method string
	Path   string
	Query  string
	Body   string
}

type fakeES struct {
	mu       sync.Mutex
	requests []esRequest
	handler  func(w http.ResponseWriter, r esRequest)
}

func (f *fakeES) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	req := esRequest{Method: r.Method, Path: r.URL.Path, Query: r.URL.RawQuery, Body: string(body)}
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	w.Header().Set("X-Elastic-Product", "Elasticsearch")
	w.Header().Set("Content-Type", "application/json")
	f.handler(w, req)
}

func newStore(t *testing.T, handler func(w http.ResponseWriter, r esRequest)) (*JobStore, *fakeES) {
	t.Helper()
	fake := &fakeES{handler: handler}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	store, err := NewJobStore([]string{srv.URL}, "")
	require.NoError(t, err)
	return store, fake
}

func sampleRecord(sourceURL string) jobs.Record {
	return jobs.Candidate{Title: "Enfermeiro", SourceURL: sourceURL}.ToRecord(time.Unix(1700000000, 0))
}

func TestInsertUsesCreateWithHashedID(t *testing.T) {
	t.Parallel()

	store, fake := newStore(t, func(w http.ResponseWriter, _ esRequest) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"result":"created"}`))
	})

	require.NoError(t, store.Insert(context.Background(), sampleRecord("https://site.ao/vagas/1")))

	require.Len(t, fake.requests, 1)
	req := fake.requests[0]
	assert.Equal(t, http.MethodPut, req.Method)
	assert.True(t, strings.HasPrefix(req.Path, "/jobs/_doc/") || strings.HasPrefix(req.Path, "/jobs/_create/"), req.Path)
	assert.Contains(t, req.Path, store.hasher.Key("https://site.ao/vagas/1"))

	var doc map[string]any
	require.NoError(t, json.Unmarshal([]byte(req.Body), &doc))
	assert.Equal(t, "Enfermeiro", doc["title"])
	assert.Equal(t, "https://site.ao/vagas/1", doc["source_url"])
}

func TestInsertConflictIsDuplicate(t *testing.T) {
	t.Parallel()

	store, _ := newStore(t, func(w http.ResponseWriter, _ esRequest) {
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"error":{"type":"version_conflict_engine_exception"},"status":409}`))
	})

	err := store.Insert(context.Background(), sampleRecord("https://site.ao/vagas/1"))
	assert.ErrorIs(t, err, jobs.ErrDuplicate)
}

func TestInsertWithoutSourceURLLetsServerAssignID(t *testing.T) {
	t.Parallel()

	store, fake := newStore(t, func(w http.ResponseWriter, _ esRequest) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"result":"created"}`))
	})

	require.NoError(t, store.Insert(context.Background(), sampleRecord("")))
	require.Len(t, fake.requests, 1)
	assert.Equal(t, http.MethodPost, fake.requests[0].Method)
	assert.Equal(t, "/jobs/_doc", fake.requests[0].Path)
}

func TestInsertServerError(t *testing.T) {
	t.Parallel()

	store, _ := newStore(t, func(w http.ResponseWriter, _ esRequest) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"mapper_parsing_exception"}`))
	})

	err := store.Insert(context.Background(), sampleRecord("https://site.ao/vagas/1"))
	require.ErrorContains(t, err, "index error")
	assert.NotErrorIs(t, err, jobs.ErrDuplicate)
}

func TestExistsBySourceURL(t *testing.T) {
	t.Parallel()

	store, fake := newStore(t, func(w http.ResponseWriter, r esRequest) {
		if strings.Contains(r.Body, "https://site.ao/vagas/1") {
			_, _ = w.Write([]byte(`{"count":1}`))
			return
		}
		_, _ = w.Write([]byte(`{"count":0}`))
	})

	found, err := store.ExistsBySourceURL(context.Background(), "https://site.ao/vagas/1")
	require.NoError(t, err)
	assert.True(t, found)

	found, err = store.ExistsBySourceURL(context.Background(), "https://site.ao/vagas/2")
	require.NoError(t, err)
	assert.False(t, found)

	assert.Equal(t, "/jobs/_count", fake.requests[0].Path)
	assert.Contains(t, fake.requests[0].Body, `"term"`)
}

// termValues collects the exact-match clauses of a count request body.
func termValues(body string) (map[string]string, error) {
	var q struct {
		Query struct {
			Bool struct {
				Should             []map[string]map[string]string `json:"should"`
				MinimumShouldMatch int                            `json:"minimum_should_match"`
			} `json:"bool"`
		} `json:"query"`
	}
	if err := json.Unmarshal([]byte(body), &q); err != nil {
		return nil, err
	}
	if q.Query.Bool.MinimumShouldMatch != 1 {
		return nil, fmt.Errorf("minimum_should_match = %d", q.Query.Bool.MinimumShouldMatch)
	}
	terms := make(map[string]string)
	for _, clause := range q.Query.Bool.Should {
		for field, value := range clause["term"] {
			terms[field] = value
		}
	}
	return terms, nil
}

func TestExistsMatchesDynamicallyMappedIndex(t *testing.T) {
	t.Parallel()

	const stored = "https://site.ao/vagas/9"
	// Dynamic mapping: source_url is analyzed text, so only the keyword
	// subfield matches a whole URL.
	store, fake := newStore(t, func(w http.ResponseWriter, r esRequest) {
		if terms, err := termValues(r.Body); err == nil && terms["source_url.keyword"] == stored {
			_, _ = w.Write([]byte(`{"count":1}`))
			return
		}
		_, _ = w.Write([]byte(`{"count":0}`))
	})

	found, err := store.ExistsBySourceURL(context.Background(), stored)
	require.NoError(t, err)
	assert.True(t, found)

	terms, err := termValues(fake.requests[0].Body)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"source_url": stored, "source_url.keyword": stored}, terms)
}

func TestExistsMissingIndex(t *testing.T) {
	t.Parallel()

	store, _ := newStore(t, func(w http.ResponseWriter, _ esRequest) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":{"type":"index_not_found_exception"},"status":404}`))
	})

	found, err := store.ExistsBySourceURL(context.Background(), "https://site.ao/vagas/1")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestExistsServerError(t *testing.T) {
	t.Parallel()

	store, _ := newStore(t, func(w http.ResponseWriter, _ esRequest) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{}`))
	})

	_, err := store.ExistsBySourceURL(context.Background(), "https://site.ao/vagas/1")
	require.ErrorContains(t, err, "count error")
}

func TestEnsureIndexCreatesWhenMissing(t *testing.T) {
	t.Parallel()

	store, fake := newStore(t, func(w http.ResponseWriter, r esRequest) {
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(`{"acknowledged":true}`))
	})

	require.NoError(t, store.EnsureIndex(context.Background()))
	require.Len(t, fake.requests, 2)
	assert.Equal(t, http.MethodPut, fake.requests[1].Method)
	assert.Contains(t, fake.requests[1].Body, `"source_url"`)
}

func TestEnsureIndexExisting(t *testing.T) {
	t.Parallel()

	store, fake := newStore(t, func(w http.ResponseWriter, _ esRequest) {
		w.WriteHeader(http.StatusOK)
	})

	require.NoError(t, store.EnsureIndex(context.Background()))
	assert.Len(t, fake.requests, 1)
}
