package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"x2beta/internal/domain"
	"x2beta/internal/port"
)

type exceptionRepo struct {
	db *sqlx.DB
}

// NewExceptionRepo creates a new PostgreSQL-backed ExceptionRepository.
func NewExceptionRepo(db *sqlx.DB) port.ExceptionRepository {
	return &exceptionRepo{db: db}
}

func (r *exceptionRepo) CreateBatch(ctx context.Context, exceptions []domain.Exception) error {
	if len(exceptions) == 0 {
		return nil
	}
	_, err := r.db.NamedExecContext(ctx,
		`INSERT INTO exceptions
			(run_id, record_type, record_id, error_code, error_message, error_details, severity, created_at)
		 VALUES
			(:run_id, :record_type, :record_id, :error_code, :error_message, :error_details, :severity, :created_at)`,
		exceptions)
	if err != nil {
		return fmt.Errorf("exceptionRepo.CreateBatch: %w", err)
	}
	return nil
}

func (r *exceptionRepo) ListByRun(ctx context.Context, runID uuid.UUID) ([]domain.Exception, error) {
	var exceptions []domain.Exception
	err := r.db.SelectContext(ctx, &exceptions,
		`SELECT * FROM exceptions WHERE run_id = $1 ORDER BY created_at`, runID)
	if err != nil {
		return nil, fmt.Errorf("exceptionRepo.ListByRun: %w", err)
	}
	return exceptions, nil
}

func (r *exceptionRepo) CountByRun(ctx context.Context, runID uuid.UUID) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM exceptions WHERE run_id = $1`, runID)
	if err != nil {
		return 0, fmt.Errorf("exceptionRepo.CountByRun: %w", err)
	}
	return count, nil
}

type auditRepo struct {
	db *sqlx.DB
}

// NewAuditRepo creates a new PostgreSQL-backed AuditRepository.
func NewAuditRepo(db *sqlx.DB) port.AuditRepository {
	return &auditRepo{db: db}
}

func (r *auditRepo) CreateBatch(ctx context.Context, entries []domain.AuditLogEntry) error {
	if len(entries) == 0 {
		return nil
	}
	_, err := r.db.NamedExecContext(ctx,
		`INSERT INTO audit_logs
			(run_id, actor, action, entity_type, entity_id, details, metadata, timestamp)
		 VALUES
			(:run_id, :actor, :action, :entity_type, :entity_id, :details, :metadata, :timestamp)`,
		entries)
	if err != nil {
		return fmt.Errorf("auditRepo.CreateBatch: %w", err)
	}
	return nil
}

func (r *auditRepo) ListByRun(ctx context.Context, runID uuid.UUID) ([]domain.AuditLogEntry, error) {
	var entries []domain.AuditLogEntry
	err := r.db.SelectContext(ctx, &entries,
		`SELECT * FROM audit_logs WHERE run_id = $1 ORDER BY timestamp`, runID)
	if err != nil {
		return nil, fmt.Errorf("auditRepo.ListByRun: %w", err)
	}
	return entries, nil
}
