// Package memory provides an in-process jobs.Store for tests and dry runs.
package memory

import (
	"context"
	"sync"

	"github.com/JakeFAU/jobingest/internal/jobs"
)

// JobStore keeps records in memory with the same source_url uniqueness rule
// as the real backends.
type JobStore struct {
	mu      sync.RWMutex
	records []jobs.Record
	bySrc   map[string]int
}

// NewJobStore constructs a JobStore, optionally seeded with known source URLs.
func NewJobStore(seedURLs ...string) *JobStore {
	s := &JobStore{bySrc: make(map[string]int)}
	for _, u := range seedURLs {
		src := u
		s.records = append(s.records, jobs.Record{SourceURL: &src, Status: jobs.StatusPending})
		s.bySrc[u] = len(s.records) - 1
	}
	return s
}

// ExistsBySourceURL implements jobs.Store.
func (s *JobStore) ExistsBySourceURL(_ context.Context, sourceURL string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.bySrc[sourceURL]
	return ok, nil
}

// Insert implements jobs.Store. Records without a source URL are never
// considered duplicates.
func (s *JobStore) Insert(_ context.Context, record jobs.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if record.SourceURL != nil {
		if _, exists := s.bySrc[*record.SourceURL]; exists {
			return jobs.ErrDuplicate
		}
		s.bySrc[*record.SourceURL] = len(s.records)
	}
	s.records = append(s.records, cloneRecord(record))
	return nil
}

// Records returns a copy of everything stored, in insertion order.
func (s *JobStore) Records() []jobs.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]jobs.Record, len(s.records))
	for i, r := range s.records {
		out[i] = cloneRecord(r)
	}
	return out
}

// Len returns the number of stored records.
func (s *JobStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

func cloneRecord(r jobs.Record) jobs.Record {
	r.Requirements = append([]string(nil), r.Requirements...)
	return r
}
