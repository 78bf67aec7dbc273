package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"x2beta/internal/domain"
	"x2beta/internal/port"
)

type reportRepo struct {
	db *sqlx.DB
}

// NewReportRepo creates a new PostgreSQL-backed ReportRepository.
func NewReportRepo(db *sqlx.DB) port.ReportRepository {
	return &reportRepo{db: db}
}

func (r *reportRepo) Create(ctx context.Context, report *domain.RawReport) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO reports (id, run_id, report_type, file_path, content_hash, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		report.ID, report.RunID, report.ReportType, report.FilePath, report.ContentHash, report.CreatedAt)
	if err != nil {
		return fmt.Errorf("reportRepo.Create: %w", err)
	}
	return nil
}

func (r *reportRepo) ListByRun(ctx context.Context, runID uuid.UUID) ([]domain.RawReport, error) {
	var reports []domain.RawReport
	err := r.db.SelectContext(ctx, &reports,
		`SELECT * FROM reports WHERE run_id = $1 ORDER BY created_at`, runID)
	if err != nil {
		return nil, fmt.Errorf("reportRepo.ListByRun: %w", err)
	}
	return reports, nil
}
