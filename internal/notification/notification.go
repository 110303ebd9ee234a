package notification

import (
	"context"
	"errors"
	"log/slog"

	"github.com/resumekit/resume-auth/internal/logging"
)

// KindOTPVerification is the one-time code sent to confirm an email address.
const KindOTPVerification = "otp_verification"

// ErrNoDestination is returned for messages without a recipient.
var ErrNoDestination = errors.New("notification has no destination")

// Message is an outgoing email.
type Message struct {
	Kind        string
	Destination string
	Subject     string
	Body        string
}

// Notifier delivers messages. Implementations must be safe for concurrent use.
type Notifier interface {
	Send(ctx context.Context, message Message) error
}

// LoggerNotifier writes messages to the log instead of delivering them, so
// codes can be read during local development. Never use it in production.
type LoggerNotifier struct {
	logger *slog.Logger
}

func NewLoggerNotifier(logger *slog.Logger) *LoggerNotifier {
	return &LoggerNotifier{logger: logger}
}

func (n *LoggerNotifier) Send(_ context.Context, message Message) error {
	if message.Destination == "" {
		return ErrNoDestination
	}
	if n == nil || n.logger == nil {
		return nil
	}
	n.logger.Info("email not sent, logged instead",
		slog.String("kind", message.Kind),
		slog.String("to", logging.MaskEmail(message.Destination)),
		slog.String("subject", message.Subject),
		slog.String("body", message.Body),
	)
	return nil
}
