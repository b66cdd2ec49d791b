package progress

import (
	"context"

	"Draks/internal/domain/models"
	"Draks/pkg/logger"
)

// Sink receives job progress events. Publishing is best-effort: sink
// failures must not affect job processing.
type Sink interface {
	Publish(ctx context.Context, ev models.ProgressEvent)
}

// MultiSink fans one event out to every configured sink.
type MultiSink struct {
	sinks []Sink
}

// NewMultiSink builds a MultiSink; nil sinks are skipped.
func NewMultiSink(sinks ...Sink) *MultiSink {
	out := &MultiSink{}
	for _, s := range sinks {
		if s != nil {
			out.sinks = append(out.sinks, s)
		}
	}
	return out
}

func (m *MultiSink) Publish(ctx context.Context, ev models.ProgressEvent) {
	for _, s := range m.sinks {
		s.Publish(ctx, ev)
	}
}

// LogSink writes progress events to the application log.
type LogSink struct {
	log *logger.Logger
}

func NewLogSink(log *logger.Logger) *LogSink { return &LogSink{log: log} }

func (s *LogSink) Publish(_ context.Context, ev models.ProgressEvent) {
	fields := []logger.Field{
		logger.String("job_id", ev.JobID),
		logger.Int("done", ev.Done),
		logger.Int("failed", ev.Failed),
		logger.Int("total", ev.Total),
	}
	if ev.Finished {
		fields = append(fields, logger.Int64("duration_ms", ev.DurationMS))
		s.log.Info("batch job finished", fields...)
		return
	}
	s.log.Debug("batch job progress", fields...)
}
