package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"x2beta/internal/domain"
	"x2beta/internal/port"
)

type misRepo struct {
	db *sqlx.DB
}

// NewMISRepo creates a new PostgreSQL-backed MISRepository.
func NewMISRepo(db *sqlx.DB) port.MISRepository {
	return &misRepo{db: db}
}

// misRow flattens the metric groups into JSONB columns.
type misRow struct {
	domain.MISReport
	SalesJSON   json.RawMessage `db:"sales_metrics"`
	ExpenseJSON json.RawMessage `db:"expense_metrics"`
	GSTJSON     json.RawMessage `db:"gst_metrics"`
	ProfitJSON  json.RawMessage `db:"profitability_metrics"`
}

func (r *misRepo) Create(ctx context.Context, report *domain.MISReport) error {
	sales, err := json.Marshal(report.Sales)
	if err != nil {
		return fmt.Errorf("misRepo.Create marshal sales: %w", err)
	}
	expenses, err := json.Marshal(report.Expenses)
	if err != nil {
		return fmt.Errorf("misRepo.Create marshal expenses: %w", err)
	}
	gst, err := json.Marshal(report.GST)
	if err != nil {
		return fmt.Errorf("misRepo.Create marshal gst: %w", err)
	}
	profit, err := json.Marshal(report.Profitability)
	if err != nil {
		return fmt.Errorf("misRepo.Create marshal profitability: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO mis_reports
			(run_id, channel, gstin, month, sales_metrics, expense_metrics, gst_metrics,
			 profitability_metrics, data_quality_score, exception_count, approval_count, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		report.RunID, report.Channel, report.GSTIN, report.Month,
		sales, expenses, gst, profit,
		report.DataQualityScore, report.ExceptionCount, report.ApprovalCount, report.CreatedAt)
	if err != nil {
		return fmt.Errorf("misRepo.Create: %w", err)
	}
	return nil
}

func (r *misRepo) GetByRun(ctx context.Context, runID uuid.UUID) (*domain.MISReport, error) {
	return r.get(ctx, `SELECT * FROM mis_reports WHERE run_id = $1`, runID)
}

func (r *misRepo) GetByMonth(ctx context.Context, channel domain.Channel, gstin, month string) (*domain.MISReport, error) {
	return r.get(ctx,
		`SELECT * FROM mis_reports
		 WHERE channel = $1 AND gstin = $2 AND month = $3
		 ORDER BY created_at DESC LIMIT 1`,
		channel, gstin, month)
}

func (r *misRepo) get(ctx context.Context, query string, args ...any) (*domain.MISReport, error) {
	var row misRow
	err := r.db.GetContext(ctx, &row, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("misRepo.get: %w", err)
	}

	report := row.MISReport
	for _, pair := range []struct {
		raw json.RawMessage
		dst any
	}{
		{row.SalesJSON, &report.Sales},
		{row.ExpenseJSON, &report.Expenses},
		{row.GSTJSON, &report.GST},
		{row.ProfitJSON, &report.Profitability},
	} {
		if len(pair.raw) == 0 {
			continue
		}
		if err := json.Unmarshal(pair.raw, pair.dst); err != nil {
			return nil, fmt.Errorf("misRepo.get unmarshal metrics: %w", err)
		}
	}
	return &report, nil
}
