package progress

import (
	"errors"
	"fmt"
	"time"

	"github.com/JakeFAU/jobingest/internal/jobs"
)

// Stage denotes the milestone an Event represents.
type Stage string

// Supported stages.
const (
	StageRunStart  Stage = "RUN_START"
	StageSiteDone  Stage = "SITE_DONE"
	StageSiteError Stage = "SITE_ERROR"
	StageRunDone   Stage = "RUN_DONE"
)

// Event is one run milestone.
type Event struct {
	RunID string
	// TS is the UTC timestamp recorded by the emitter.
	TS    time.Time
	Stage Stage
	// Site and Stats are set on SITE_* events.
	Site  string
	Stats jobs.SiteStats
	// Inserted and SiteErrors are run totals on RUN_DONE.
	Inserted   int
	SiteErrors int
	Dur        time.Duration
	// Note holds the failure text of SITE_ERROR events.
	Note string
}

// Validate performs coarse validation on Event payloads.
func (e Event) Validate() error {
	if e.RunID == "" {
		return errors.New("run id is required")
	}
	if e.TS.IsZero() {
		return errors.New("timestamp is required")
	}
	switch e.Stage {
	case StageRunStart, StageRunDone:
	case StageSiteDone, StageSiteError:
		if e.Site == "" {
			return fmt.Errorf("%s requires site", e.Stage)
		}
	default:
		return fmt.Errorf("unknown stage %q", e.Stage)
	}
	if e.Dur < 0 {
		return errors.New("duration must be >= 0")
	}
	return nil
}

// SiteEvent builds the completion event for one site; a non-nil err makes it
// a SITE_ERROR.
func SiteEvent(runID string, ts time.Time, stats jobs.SiteStats, dur time.Duration, err error) Event {
	evt := Event{
		RunID: runID,
		TS:    ts.UTC(),
		Stage: StageSiteDone,
		Site:  stats.Site,
		Stats: stats,
		Dur:   dur,
	}
	if err != nil {
		evt.Stage = StageSiteError
		evt.Note = err.Error()
	}
	return evt
}
