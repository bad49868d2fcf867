package jobs

import (
	"context"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// Store is the storage collaborator. Implementations return ErrDuplicate when
// a uniqueness constraint on source_url rejects an insert.
type Store interface {
	ExistsBySourceURL(ctx context.Context, sourceURL string) (bool, error)
	Insert(ctx context.Context, record Record) error
}

// Fetcher retrieves a page after waiting delay and parses it.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string, delay time.Duration) (*goquery.Document, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces run IDs.
type IDGenerator interface {
	NewID() (string, error)
}
