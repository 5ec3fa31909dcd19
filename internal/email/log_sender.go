package email

import (
	"context"

	"github.com/redmonkez12/go-auth-starter/internal/logging"
)

// LogSender writes messages to the log instead of sending them.
// Meant for local development where action links are copied from the console.
type LogSender struct {
	logger *logging.Logger
}

func NewLogSender(logger *logging.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) SendEmail(_ context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}

	s.logger.Info("email captured",
		"to", msg.To,
		"subject", msg.Subject,
		"tag", msg.Tag,
	)
	// Action links carry raw tokens, so the body only shows up at debug level
	s.logger.Debug("email body", "to", msg.To, "body", msg.HTMLBody)
	return nil
}
