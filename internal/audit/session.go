package audit

import (
	"context"
	"sync"
	"time"

	"x2beta/internal/domain"
)

// OperationTiming aggregates wall-clock timings for one named operation.
type OperationTiming struct {
	Count int           `json:"count"`
	Total time.Duration `json:"total_ms"`
	Min   time.Duration `json:"min_ms"`
	Max   time.Duration `json:"max_ms"`
}

// Avg returns the mean duration, zero when no samples exist.
func (t *OperationTiming) Avg() time.Duration {
	if t.Count == 0 {
		return 0
	}
	return t.Total / time.Duration(t.Count)
}

// Session wraps a Logger with run-scoped lifecycle events and per-operation
// timing aggregation.
type Session struct {
	logger  *Logger
	started time.Time

	mu      sync.Mutex
	timings map[string]*OperationTiming
}

// NewSession starts an audit session, emitting a session-start event.
func NewSession(ctx context.Context, logger *Logger) *Session {
	s := &Session{
		logger:  logger,
		started: time.Now().UTC(),
		timings: make(map[string]*OperationTiming),
	}
	logger.System(ctx, domain.ActionSessionStarted, map[string]string{
		"started_at": s.started.Format(time.RFC3339Nano),
	})
	return s
}

// End emits the session-end event with total duration and the per-operation
// timing summary, then flushes the buffer.
func (s *Session) End(ctx context.Context) error {
	duration := time.Since(s.started)

	s.mu.Lock()
	summary := make(map[string]map[string]any, len(s.timings))
	for name, t := range s.timings {
		summary[name] = map[string]any{
			"count":    t.Count,
			"total_ms": t.Total.Milliseconds(),
			"min_ms":   t.Min.Milliseconds(),
			"max_ms":   t.Max.Milliseconds(),
			"avg_ms":   t.Avg().Milliseconds(),
		}
	}
	s.mu.Unlock()

	s.logger.System(ctx, domain.ActionSessionEnded, map[string]any{
		"duration_ms": duration.Milliseconds(),
		"operations":  summary,
	})
	return s.logger.Flush(ctx)
}

// record folds one sample into the named operation's aggregate.
func (s *Session) record(name string, d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.timings[name]
	if !ok {
		s.timings[name] = &OperationTiming{Count: 1, Total: d, Min: d, Max: d}
		return
	}
	t.Count++
	t.Total += d
	if d < t.Min {
		t.Min = d
	}
	if d > t.Max {
		t.Max = d
	}
}

// Operation runs fn between a START event and a COMPLETE or CRITICAL_ERROR
// event. The timing is recorded on every path, including error and panic.
func (s *Session) Operation(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	s.logger.Log(ctx, domain.ActorSystem, domain.ActionOperationStart, "operation", name, nil, nil)
	start := time.Now()

	var err error
	defer func() {
		d := time.Since(start)
		s.record(name, d)
		metrics := map[string]any{"duration_ms": d.Milliseconds()}
		if r := recover(); r != nil {
			metrics["panic"] = true
			s.logger.Log(ctx, domain.ActorSystem, domain.ActionOperationCritical, "operation", name, metrics, nil)
			panic(r)
		}
		if err != nil {
			metrics["error"] = err.Error()
			s.logger.Log(ctx, domain.ActorSystem, domain.ActionOperationCritical, "operation", name, metrics, nil)
			return
		}
		s.logger.Log(ctx, domain.ActorSystem, domain.ActionOperationComplete, "operation", name, metrics, nil)
	}()

	err = fn(ctx)
	return err
}

// Logger exposes the underlying buffered logger.
func (s *Session) Logger() *Logger {
	return s.logger
}
