package sinks

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/JakeFAU/jobingest/internal/progress"
	"github.com/JakeFAU/jobingest/internal/store"
)

// StoreSink persists run history through a store.RunRepository.
type StoreSink struct {
	repo   store.RunRepository
	logger *zap.Logger
}

// NewStoreSink constructs a StoreSink for repo.
func NewStoreSink(repo store.RunRepository, logger *zap.Logger) *StoreSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StoreSink{repo: repo, logger: logger}
}

// Consume applies events in order and stops at the first repository error.
func (s *StoreSink) Consume(ctx context.Context, batch []progress.Event) error {
	if s == nil || s.repo == nil {
		return nil
	}
	for _, evt := range batch {
		if err := s.apply(ctx, evt); err != nil {
			return err
		}
	}
	return nil
}

func (s *StoreSink) apply(ctx context.Context, evt progress.Event) error {
	switch evt.Stage {
	case progress.StageRunStart:
		if err := s.repo.StartRun(ctx, evt.RunID, evt.TS); err != nil {
			return fmt.Errorf("start run: %w", err)
		}
	case progress.StageSiteDone, progress.StageSiteError:
		result := store.SiteResult{Stats: evt.Stats, FinishedAt: evt.TS, Duration: evt.Dur}
		if evt.Stage == progress.StageSiteError {
			note := evt.Note
			result.Error = &note
		}
		if err := s.repo.RecordSite(ctx, evt.RunID, result); err != nil {
			return fmt.Errorf("record site %s: %w", evt.Site, err)
		}
	case progress.StageRunDone:
		status := store.StatusFor(evt.SiteErrors)
		if err := s.repo.FinishRun(ctx, evt.RunID, evt.TS, status, evt.Inserted, evt.SiteErrors); err != nil {
			return fmt.Errorf("finish run: %w", err)
		}
	default:
		s.logger.Debug("ignoring progress stage", zap.String("stage", string(evt.Stage)))
	}
	return nil
}

// Close implements progress.Sink; it performs no action.
func (s *StoreSink) Close(context.Context) error {
	return nil
}
