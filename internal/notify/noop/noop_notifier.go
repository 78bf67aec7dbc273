package noop

import (
	"context"
	"log"

	"x2beta/internal/domain"
	"x2beta/internal/port"
)

type noopNotifier struct{}

// NewNoopNotifier creates a Notifier that logs events instead of sending them.
func NewNoopNotifier() port.Notifier {
	return &noopNotifier{}
}

func (n *noopNotifier) Send(_ context.Context, kind domain.Severity, title string, payload map[string]string) error {
	log.Printf("[NOOP NOTIFY] %s: %s %v", kind, title, payload)
	return nil
}
