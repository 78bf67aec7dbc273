package port

import (
	"context"

	"x2beta/internal/domain"
)

// Notifier delivers pipeline events to a human-facing sink. Kind carries the
// event severity; payload is a small flat map rendered by the sink.
type Notifier interface {
	Send(ctx context.Context, kind domain.Severity, title string, payload map[string]string) error
}
