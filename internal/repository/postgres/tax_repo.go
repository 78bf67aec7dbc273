package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"x2beta/internal/domain"
	"x2beta/internal/port"
)

type taxRepo struct {
	db *sqlx.DB
}

// NewTaxRepo creates a new PostgreSQL-backed TaxRepository.
func NewTaxRepo(db *sqlx.DB) port.TaxRepository {
	return &taxRepo{db: db}
}

func (r *taxRepo) CreateBatch(ctx context.Context, rows []domain.TaxComputation) error {
	if len(rows) == 0 {
		return nil
	}
	_, err := r.db.NamedExecContext(ctx,
		`INSERT INTO tax_computations
			(run_id, channel, gstin, state_code, sku, taxable_value, shipping_value, cgst, sgst, igst, gst_rate)
		 VALUES
			(:run_id, :channel, :gstin, :state_code, :sku, :taxable_value, :shipping_value, :cgst, :sgst, :igst, :gst_rate)`,
		rows)
	if err != nil {
		return fmt.Errorf("taxRepo.CreateBatch: %w", err)
	}
	return nil
}

func (r *taxRepo) ListByRun(ctx context.Context, runID uuid.UUID) ([]domain.TaxComputation, error) {
	var rows []domain.TaxComputation
	err := r.db.SelectContext(ctx, &rows,
		`SELECT * FROM tax_computations WHERE run_id = $1 ORDER BY state_code, sku`, runID)
	if err != nil {
		return nil, fmt.Errorf("taxRepo.ListByRun: %w", err)
	}
	return rows, nil
}
