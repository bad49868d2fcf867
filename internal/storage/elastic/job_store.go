// Package elastic stores job records in an Elasticsearch index.
package elastic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/JakeFAU/jobingest/internal/hash/sha256"
	"github.com/JakeFAU/jobingest/internal/jobs"
)

// DefaultIndex is used when no index name is configured.
const DefaultIndex = "jobs"

const indexMapping = `{
  "mappings": {
    "properties": {
      "title":             {"type": "text"},
      "company":           {"type": "text", "fields": {"raw": {"type": "keyword"}}},
      "location":          {"type": "keyword"},
      "description":       {"type": "text"},
      "requirements":      {"type": "text"},
      "application_email": {"type": "keyword"},
      "source_url":        {"type": "keyword"},
      "status":            {"type": "keyword"},
      "posted_at":         {"type": "date"}
    }
  }
}`

// JobStore implements jobs.Store over an Elasticsearch index. Documents with
// a source URL use its hash as _id and are created with op_type=create, so the
// index itself rejects duplicates.
type JobStore struct {
	client *elasticsearch.Client
	index  string
	hasher *sha256.Hasher
}

// NewJobStore connects to addresses and returns a store writing to index.
func NewJobStore(addresses []string, index string) (*JobStore, error) {
	client, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: addresses})
	if err != nil {
		return nil, fmt.Errorf("create es client: %w", err)
	}
	return NewJobStoreWithClient(client, index), nil
}

// NewJobStoreWithClient wraps an existing client.
func NewJobStoreWithClient(client *elasticsearch.Client, index string) *JobStore {
	if index == "" {
		index = DefaultIndex
	}
	return &JobStore{client: client, index: index, hasher: sha256.New()}
}

// EnsureIndex creates the index with a keyword mapping for source_url if it
// does not exist.
func (s *JobStore) EnsureIndex(ctx context.Context) error {
	res, err := s.client.Indices.Exists([]string{s.index}, s.client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("index exists: %w", err)
	}
	drain(res)
	if res.StatusCode == http.StatusOK {
		return nil
	}

	res, err = s.client.Indices.Create(
		s.index,
		s.client.Indices.Create.WithBody(strings.NewReader(indexMapping)),
		s.client.Indices.Create.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	defer drain(res)
	if res.IsError() {
		return fmt.Errorf("create index: %s", res.Status())
	}
	return nil
}

// ExistsBySourceURL implements jobs.Store.
func (s *JobStore) ExistsBySourceURL(ctx context.Context, sourceURL string) (bool, error) {
	// An index created by EnsureIndex maps source_url as keyword. One created
	// by dynamic mapping has it as analyzed text with an exact .keyword
	// subfield, so both are tried.
	query, err := json.Marshal(map[string]any{
		"query": map[string]any{
			"bool": map[string]any{
				"should": []any{
					map[string]any{"term": map[string]any{"source_url": sourceURL}},
					map[string]any{"term": map[string]any{"source_url.keyword": sourceURL}},
				},
				"minimum_should_match": 1,
			},
		},
	})
	if err != nil {
		return false, fmt.Errorf("marshal count query: %w", err)
	}
	req := esapi.CountRequest{
		Index: []string{s.index},
		Body:  bytes.NewReader(query),
	}
	res, err := req.Do(ctx, s.client)
	if err != nil {
		return false, fmt.Errorf("count request: %w", err)
	}
	defer drain(res)
	if res.StatusCode == http.StatusNotFound {
		return false, nil
	}
	if res.IsError() {
		return false, fmt.Errorf("count error: %s", res.Status())
	}
	var body struct {
		Count int64 `json:"count"`
	}
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return false, fmt.Errorf("decode count: %w", err)
	}
	return body.Count > 0, nil
}

// Insert implements jobs.Store.
func (s *JobStore) Insert(ctx context.Context, record jobs.Record) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	req := esapi.IndexRequest{
		Index:   s.index,
		Body:    bytes.NewReader(data),
		Refresh: "false",
	}
	if record.SourceURL != nil {
		req.DocumentID = s.hasher.Key(*record.SourceURL)
		req.OpType = "create"
	}

	res, err := req.Do(ctx, s.client)
	if err != nil {
		return fmt.Errorf("index request: %w", err)
	}
	defer drain(res)
	if res.StatusCode == http.StatusConflict {
		return jobs.ErrDuplicate
	}
	if res.IsError() {
		return fmt.Errorf("index error: %s", res.Status())
	}
	return nil
}

func drain(res *esapi.Response) {
	if res == nil || res.Body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, res.Body)
	_ = res.Body.Close()
}
