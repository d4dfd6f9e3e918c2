package tracing

import (
	"context"

	"github.com/rs/zerolog"
)

// PropagateToLogger adds the identity carried by the context to a zerolog logger
func PropagateToLogger(ctx context.Context, logger zerolog.Logger) zerolog.Logger {
	id := FromContext(ctx)

	if id.UserID != "" {
		logger = logger.With().Str("user_id", id.UserID).Logger()
	}
	if id.SessionID != "" {
		logger = logger.With().Str("session_id", id.SessionID).Logger()
	}
	if id.TraceID != "" {
		logger = logger.With().Str("trace_id", id.TraceID).Logger()
	}
	if id.MessageID != "" {
		logger = logger.With().Str("message_id", id.MessageID).Logger()
	}

	return logger
}
