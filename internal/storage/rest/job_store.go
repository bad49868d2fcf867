package rest

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/JakeFAU/jobingest/internal/jobs"
)

// DefaultTable is the PostgREST resource holding job records.
const DefaultTable = "jobs"

// JobStore implements jobs.Store over a PostgREST table.
type JobStore struct {
	client *Client
	table  string
}

// NewJobStore wraps client. An empty table means DefaultTable.
func NewJobStore(client *Client, table string) *JobStore {
	if table == "" {
		table = DefaultTable
	}
	return &JobStore{client: client, table: table}
}

// ExistsBySourceURL implements jobs.Store.
func (s *JobStore) ExistsBySourceURL(ctx context.Context, sourceURL string) (bool, error) {
	rows, err := s.client.Select(ctx, s.table, map[string]string{"source_url": "eq." + sourceURL}, "id")
	if err != nil {
		return false, fmt.Errorf("lookup source_url: %w", err)
	}
	return len(rows) > 0, nil
}

// Insert implements jobs.Store. A 409 from a unique constraint on source_url
// is reported as jobs.ErrDuplicate.
func (s *JobStore) Insert(ctx context.Context, record jobs.Record) error {
	err := s.client.Insert(ctx, s.table, record)
	if err == nil {
		return nil
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusConflict {
		return jobs.ErrDuplicate
	}
	return fmt.Errorf("insert job: %w", err)
}
