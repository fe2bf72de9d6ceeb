package notify

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// LogSink records user notifications in the service log. Stands in for the
// delivery channels (email, push) that live in a separate system.
type LogSink struct {
	logger zerolog.Logger
}

func NewLogSink(logger zerolog.Logger) *LogSink {
	return &LogSink{
		logger: logger.With().Str("component", "notification_sink").Logger(),
	}
}

func (s *LogSink) Notify(ctx context.Context, userID uuid.UUID, title, message string, metadata map[string]interface{}) error {
	s.logger.Info().
		Str("user_id", userID.String()).
		Str("title", title).
		Str("message", message).
		Fields(metadata).
		Msg("User notification")
	return nil
}
