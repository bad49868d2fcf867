package jobs

import (
	"errors"
	"time"
)

// Status values persisted with each record.
const (
	StatusPending = "pending"
)

// UnknownCompany is stored when a card exposes no company name.
const UnknownCompany = "Empresa não informada"

// DefaultLocation is used when neither the card nor the site supplies a location.
const DefaultLocation = "Angola"

// ErrDuplicate is returned by stores when the source URL already exists.
var ErrDuplicate = errors.New("duplicate source url")

// Candidate is the transient result of extracting one card.
type Candidate struct {
	Site         string
	Title        string
	Company      string
	Location     string
	Description  string
	Requirements []string
	ContactEmail string
	SourceURL    string
}

// Record is the projection handed to the storage collaborator.
type Record struct {
	Title            string    `json:"title"`
	Company          string    `json:"company"`
	Location         string    `json:"location"`
	Description      string    `json:"description"`
	Requirements     []string  `json:"requirements"`
	ApplicationEmail *string   `json:"application_email"`
	SourceURL        *string   `json:"source_url"`
	Status           string    `json:"status"`
	PostedAt         time.Time `json:"posted_at"`
}

// ToRecord projects the candidate into a pending record stamped at now.
func (c Candidate) ToRecord(now time.Time) Record {
	reqs := c.Requirements
	if reqs == nil {
		reqs = []string{}
	}
	return Record{
		Title:            c.Title,
		Company:          orDefault(c.Company, UnknownCompany),
		Location:         orDefault(c.Location, DefaultLocation),
		Description:      c.Description,
		Requirements:     reqs,
		ApplicationEmail: nullable(c.ContactEmail),
		SourceURL:        nullable(c.SourceURL),
		Status:           StatusPending,
		PostedAt:         now.UTC(),
	}
}

// SiteStats counts what happened to one site during a run.
type SiteStats struct {
	Site           string `json:"site"`
	Cards          int    `json:"cards"`
	Inserted       int    `json:"inserted"`
	Duplicates     int    `json:"duplicates"`
	Untitled       int    `json:"untitled"`
	InsertFailures int    `json:"insert_failures"`
	CardErrors     int    `json:"card_errors"`
	Skipped        bool   `json:"skipped"`
}

// Summary aggregates a whole run.
type Summary struct {
	RunID          string        `json:"run_id"`
	StartedAt      time.Time     `json:"started_at"`
	Duration       time.Duration `json:"duration"`
	SitesProcessed int           `json:"sites_processed"`
	Inserted       int           `json:"inserted"`
	SiteErrors     int           `json:"site_errors"`
	Sites          []SiteStats   `json:"sites"`
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func nullable(v string) *string {
	if v == "" {
		return nil
	}
	s := v
	return &s
}
