// Package notify hands outbound messages (verification codes, dispatch
// notices) to a delivery sink. Delivery is fire-and-forget: the core never
// blocks on or depends on delivery success, and failures are logged only.
package notify

import (
	"context"
	"log/slog"
)

// Message is a delivery request for an external channel.
type Message struct {
	Target  string `json:"target"` // email address of the recipient
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Notifier delivers messages. Implementations must be safe for concurrent use.
type Notifier interface {
	Send(ctx context.Context, msg Message)
}

// SlogNotifier writes deliveries to the log. It is the default sink for
// development and tests.
type SlogNotifier struct {
	logger *slog.Logger
}

func NewSlogNotifier(logger *slog.Logger) *SlogNotifier {
	return &SlogNotifier{logger: logger}
}

func (n *SlogNotifier) Send(ctx context.Context, msg Message) {
	n.logger.InfoContext(ctx, "notification",
		"target", msg.Target,
		"subject", msg.Subject,
		"body", msg.Body,
	)
}
