package audit_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"x2beta/internal/audit"
	"x2beta/internal/domain"
)

type fakeAuditRepo struct {
	batches [][]domain.AuditLogEntry
}

func (r *fakeAuditRepo) CreateBatch(ctx context.Context, entries []domain.AuditLogEntry) error {
	batch := make([]domain.AuditLogEntry, len(entries))
	copy(batch, entries)
	r.batches = append(r.batches, batch)
	return nil
}

func (r *fakeAuditRepo) ListByRun(ctx context.Context, runID uuid.UUID) ([]domain.AuditLogEntry, error) {
	return r.all(), nil
}

func (r *fakeAuditRepo) all() []domain.AuditLogEntry {
	var out []domain.AuditLogEntry
	for _, b := range r.batches {
		out = append(out, b...)
	}
	return out
}

func TestLogger_BuffersAndFlushes(t *testing.T) {
	repo := &fakeAuditRepo{}
	runID := uuid.New()
	logger := audit.NewLogger(repo, runID, 3)
	ctx := context.Background()

	logger.System(ctx, domain.ActionSessionStarted, nil)
	logger.Log(ctx, domain.ActorUser, domain.ActionOperationStart, "report", "mtr.csv", map[string]string{"rows": "100"}, nil)
	assert.Empty(t, repo.batches)

	// Third entry fills the buffer and triggers the auto-flush.
	logger.System(ctx, domain.ActionSessionEnded, nil)
	require.Len(t, repo.batches, 1)
	require.Len(t, repo.batches[0], 3)

	entries := repo.all()
	assert.Equal(t, runID, entries[0].RunID)
	assert.Equal(t, domain.ActorSystem, entries[0].Actor)
	assert.Equal(t, domain.ActionSessionStarted, entries[0].Action)
	assert.Equal(t, "report", entries[1].EntityType)
	assert.JSONEq(t, `{"rows":"100"}`, string(entries[1].Details))
	assert.JSONEq(t, `{}`, string(entries[0].Details))

	// Nothing pending; a manual flush is a no-op.
	require.NoError(t, logger.Flush(ctx))
	assert.Len(t, repo.batches, 1)
}

func TestSession_OperationTimings(t *testing.T) {
	repo := &fakeAuditRepo{}
	logger := audit.NewLogger(repo, uuid.New(), 100)
	ctx := context.Background()

	s := audit.NewSession(ctx, logger)
	require.NoError(t, s.Operation(ctx, "ingest", func(ctx context.Context) error { return nil }))
	require.NoError(t, s.Operation(ctx, "ingest", func(ctx context.Context) error { return nil }))

	opErr := errors.New("no template")
	err := s.Operation(ctx, "export", func(ctx context.Context) error { return opErr })
	assert.ErrorIs(t, err, opErr)

	require.NoError(t, s.End(ctx))

	entries := repo.all()
	// Start, 2x(start+complete), start+critical, end.
	require.Len(t, entries, 8)
	assert.Equal(t, domain.ActionSessionStarted, entries[0].Action)
	assert.Equal(t, domain.ActionOperationStart, entries[1].Action)
	assert.Equal(t, domain.ActionOperationComplete, entries[2].Action)
	assert.Equal(t, domain.ActionOperationCritical, entries[6].Action)
	assert.Equal(t, domain.ActionSessionEnded, entries[7].Action)
	assert.Contains(t, string(entries[6].Details), "no template")
	assert.Contains(t, string(entries[7].Details), "ingest")
}
