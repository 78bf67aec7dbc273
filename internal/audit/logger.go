package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"x2beta/internal/domain"
	"x2beta/internal/port"
)

// Logger buffers audit entries in-memory and batch-flushes them to the
// repository. Entries are flushed in emission order; the trail is
// append-only.
type Logger struct {
	repo       port.AuditRepository
	runID      uuid.UUID
	bufferSize int

	mu     sync.Mutex
	buffer []domain.AuditLogEntry
}

// NewLogger creates a buffered audit logger for one run. bufferSize <= 0
// falls back to 100.
func NewLogger(repo port.AuditRepository, runID uuid.UUID, bufferSize int) *Logger {
	if bufferSize <= 0 {
		bufferSize = 100
	}
	return &Logger{
		repo:       repo,
		runID:      runID,
		bufferSize: bufferSize,
		buffer:     make([]domain.AuditLogEntry, 0, bufferSize),
	}
}

// Log appends an entry to the buffer, flushing when the buffer fills.
// Details and metadata may be nil or any JSON-marshalable value.
func (l *Logger) Log(ctx context.Context, actor domain.Actor, action domain.AuditAction, entityType, entityID string, details, metadata any) {
	entry := domain.AuditLogEntry{
		RunID:      l.runID,
		Actor:      actor,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Details:    marshalJSON(details),
		Metadata:   marshalJSON(metadata),
		Timestamp:  time.Now().UTC(),
	}

	l.mu.Lock()
	l.buffer = append(l.buffer, entry)
	full := len(l.buffer) >= l.bufferSize
	l.mu.Unlock()

	if full {
		if err := l.Flush(ctx); err != nil {
			log.Printf("audit.Logger: flush failed: %v", err)
		}
	}
}

// System is shorthand for a system-actor entry without entity references.
func (l *Logger) System(ctx context.Context, action domain.AuditAction, details any) {
	l.Log(ctx, domain.ActorSystem, action, "", "", details, nil)
}

// Flush writes all buffered entries in order.
func (l *Logger) Flush(ctx context.Context) error {
	l.mu.Lock()
	if len(l.buffer) == 0 {
		l.mu.Unlock()
		return nil
	}
	pending := l.buffer
	l.buffer = make([]domain.AuditLogEntry, 0, l.bufferSize)
	l.mu.Unlock()

	if err := l.repo.CreateBatch(ctx, pending); err != nil {
		return fmt.Errorf("flushing %d audit entries: %w", len(pending), err)
	}
	return nil
}

func marshalJSON(v any) json.RawMessage {
	if v == nil {
		return json.RawMessage(`{}`)
	}
	if raw, ok := v.(json.RawMessage); ok {
		return raw
	}
	data, err := json.Marshal(v)
	if err != nil {
		return json.RawMessage(`{}`)
	}
	return data
}
