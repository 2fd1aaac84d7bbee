package events

import (
	"context"

	"github.com/rs/zerolog"
)

// LogSink writes every event as a structured debug log line.
type LogSink struct {
	Logger zerolog.Logger
}

// NewLogSink returns a LogSink writing to l.
func NewLogSink(l zerolog.Logger) *LogSink { return &LogSink{Logger: l} }

// Publish implements Sink.
func (s *LogSink) Publish(_ context.Context, topic string, payload any) {
	s.Logger.Debug().
		Str("topic", topic).
		Interface("payload", payload).
		Msg("event")
}
