package sinks

import (
	"context"

	"go.uber.org/zap"

	"github.com/JakeFAU/jobingest/internal/progress"
)

// LogSink writes each event as a debug entry.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink wires a zap logger to the sink interface.
func NewLogSink(logger *zap.Logger) *LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSink{logger: logger}
}

// Consume logs each event in the batch.
func (s *LogSink) Consume(_ context.Context, batch []progress.Event) error {
	for _, evt := range batch {
		fields := []zap.Field{
			zap.String("run_id", evt.RunID),
			zap.String("stage", string(evt.Stage)),
			zap.Time("ts", evt.TS),
			zap.Duration("dur", evt.Dur),
		}
		switch evt.Stage {
		case progress.StageSiteDone, progress.StageSiteError:
			fields = append(fields,
				zap.String("site", evt.Site),
				zap.Int("cards", evt.Stats.Cards),
				zap.Int("inserted", evt.Stats.Inserted),
				zap.Bool("skipped", evt.Stats.Skipped),
			)
		case progress.StageRunDone:
			fields = append(fields, zap.Int("inserted", evt.Inserted), zap.Int("site_errors", evt.SiteErrors))
		}
		if evt.Note != "" {
			fields = append(fields, zap.String("note", evt.Note))
		}
		s.logger.Debug("progress event", fields...)
	}
	return nil
}

// Close implements progress.Sink; it performs no action.
func (s *LogSink) Close(context.Context) error {
	return nil
}
