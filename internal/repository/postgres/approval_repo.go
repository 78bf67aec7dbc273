package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"x2beta/internal/domain"
	"x2beta/internal/port"
)

type approvalRepo struct {
	db *sqlx.DB
}

// NewApprovalRepo creates a new PostgreSQL-backed ApprovalRepository.
func NewApprovalRepo(db *sqlx.DB) port.ApprovalRepository {
	return &approvalRepo{db: db}
}

func (r *approvalRepo) Create(ctx context.Context, req *domain.ApprovalRequest) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO approval_queue
			(id, run_id, request_type, payload, status, suggested_value, priority, approver, notes, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		req.ID, req.RunID, req.Type, req.Payload, req.Status,
		req.SuggestedValue, req.Priority, req.Approver, req.Notes, req.CreatedAt)
	if err != nil {
		return fmt.Errorf("approvalRepo.Create: %w", err)
	}
	return nil
}

func (r *approvalRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.ApprovalRequest, error) {
	var req domain.ApprovalRequest
	err := r.db.GetContext(ctx, &req, `SELECT * FROM approval_queue WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("approvalRepo.GetByID: %w", err)
	}
	return &req, nil
}

func (r *approvalRepo) ListByStatus(ctx context.Context, status domain.ApprovalStatus) ([]domain.ApprovalRequest, error) {
	var reqs []domain.ApprovalRequest
	err := r.db.SelectContext(ctx, &reqs,
		`SELECT * FROM approval_queue WHERE status = $1 ORDER BY priority DESC, created_at`, status)
	if err != nil {
		return nil, fmt.Errorf("approvalRepo.ListByStatus: %w", err)
	}
	return reqs, nil
}

func (r *approvalRepo) ListByRun(ctx context.Context, runID uuid.UUID) ([]domain.ApprovalRequest, error) {
	var reqs []domain.ApprovalRequest
	err := r.db.SelectContext(ctx, &reqs,
		`SELECT * FROM approval_queue WHERE run_id = $1 ORDER BY created_at`, runID)
	if err != nil {
		return nil, fmt.Errorf("approvalRepo.ListByRun: %w", err)
	}
	return reqs, nil
}

// Decide finalizes a pending request. Requests already decided return
// domain.ErrApprovalDecided.
func (r *approvalRepo) Decide(ctx context.Context, id uuid.UUID, status domain.ApprovalStatus, approver, notes string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE approval_queue
		 SET status = $2, approver = $3, notes = $4, decided_at = $5
		 WHERE id = $1 AND status = 'pending'`,
		id, status, approver, notes, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("approvalRepo.Decide: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, gerr := r.GetByID(ctx, id); gerr != nil {
			return gerr
		}
		return domain.ErrApprovalDecided
	}
	return nil
}

func (r *approvalRepo) CountByRun(ctx context.Context, runID uuid.UUID) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM approval_queue WHERE run_id = $1`, runID)
	if err != nil {
		return 0, fmt.Errorf("approvalRepo.CountByRun: %w", err)
	}
	return count, nil
}
