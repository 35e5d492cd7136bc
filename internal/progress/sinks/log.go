package sinks

import (
	"context"

	"go.uber.org/zap"

	"github.com/JakeFAU/jobsift/internal/progress"
)

// LogSink writes one structured line per event.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink returns a LogSink; nil means no-op.
func NewLogSink(logger *zap.Logger) *LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSink{logger: logger}
}

// Consume implements progress.Sink.
func (s *LogSink) Consume(_ context.Context, batch []progress.Event) error {
	for _, evt := range batch {
		fields := []zap.Field{
			zap.String("run_id", evt.RunID.String()),
			zap.String("stage", string(evt.Stage)),
		}
		if evt.Source != "" {
			fields = append(fields, zap.String("source", evt.Source))
		}
		if evt.Stage == progress.StageSourceDone || evt.Stage == progress.StageRunDone {
			fields = append(fields, zap.Int("records", evt.Records), zap.Duration("elapsed", evt.Dur))
		}
		if evt.Stage == progress.StageSourceError {
			fields = append(fields, zap.Duration("elapsed", evt.Dur), zap.String("error", evt.Note))
			s.logger.Warn("progress", fields...)
			continue
		}
		s.logger.Debug("progress", fields...)
	}
	return nil
}

// Close implements progress.Sink.
func (s *LogSink) Close(context.Context) error {
	return nil
}
