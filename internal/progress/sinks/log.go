// Package sinks provides progress.Sink implementations.
package sinks

import (
	"context"

	"go.uber.org/zap"

	"github.com/climbtrack/agescraper/internal/progress"
)

// LogSink emits structured logs for progress streams. It carries the
// per-cycle reporting users watch during a run.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink wires a Zap logger to the sink interface.
func NewLogSink(logger *zap.Logger) *LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSink{logger: logger}
}

// Consume logs each event in the batch using structured fields.
func (s *LogSink) Consume(_ context.Context, batch []progress.Event) error {
	for _, evt := range batch {
		fields := []zap.Field{
			zap.String("run_id", evt.RunUUID().String()),
			zap.String("federation", evt.Federation),
			zap.Int("cycle", evt.Cycle),
		}
		switch evt.Stage {
		case progress.StageCycle:
			fields = append(fields, zap.Int("scheduled", evt.Scheduled))
		case progress.StageCycleDone:
			fields = append(fields,
				zap.Int("scheduled", evt.Scheduled),
				zap.Int("resolved", evt.Resolved),
				zap.Int("removed", evt.Removed),
				zap.Duration("dur", evt.Dur),
			)
		case progress.StageFetchDone:
			fields = append(fields, zap.String("outcome", evt.Outcome), zap.Duration("dur", evt.Dur))
		case progress.StageRunDone, progress.StageRunError:
			fields = append(fields, zap.Duration("dur", evt.Dur))
		}
		if evt.Note != "" {
			fields = append(fields, zap.String("note", evt.Note))
		}
		s.logger.Info(string(evt.Stage), fields...)
	}
	return nil
}

// Close implements the Sink interface; it performs no action.
func (s *LogSink) Close(context.Context) error {
	return nil
}
