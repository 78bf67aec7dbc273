package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"x2beta/internal/domain"
	"x2beta/internal/port"
)

type pivotRepo struct {
	db *sqlx.DB
}

// NewPivotRepo creates a new PostgreSQL-backed PivotRepository.
func NewPivotRepo(db *sqlx.DB) port.PivotRepository {
	return &pivotRepo{db: db}
}

func (r *pivotRepo) CreateBatch(ctx context.Context, rows []domain.PivotSummary) error {
	if len(rows) == 0 {
		return nil
	}
	_, err := r.db.NamedExecContext(ctx,
		`INSERT INTO pivot_summaries
			(run_id, channel, gstin, month, gst_rate, ledger, fg, state_code,
			 total_quantity, total_taxable, total_cgst, total_sgst, total_igst,
			 invoice_no, is_return, record_count)
		 VALUES
			(:run_id, :channel, :gstin, :month, :gst_rate, :ledger, :fg, :state_code,
			 :total_quantity, :total_taxable, :total_cgst, :total_sgst, :total_igst,
			 :invoice_no, :is_return, :record_count)`,
		rows)
	if err != nil {
		return fmt.Errorf("pivotRepo.CreateBatch: %w", err)
	}
	return nil
}

func (r *pivotRepo) ListByRun(ctx context.Context, runID uuid.UUID) ([]domain.PivotSummary, error) {
	var rows []domain.PivotSummary
	err := r.db.SelectContext(ctx, &rows,
		`SELECT * FROM pivot_summaries WHERE run_id = $1 ORDER BY gst_rate, ledger, fg`, runID)
	if err != nil {
		return nil, fmt.Errorf("pivotRepo.ListByRun: %w", err)
	}
	return rows, nil
}

type batchRepo struct {
	db *sqlx.DB
}

// NewBatchRepo creates a new PostgreSQL-backed BatchRepository.
func NewBatchRepo(db *sqlx.DB) port.BatchRepository {
	return &batchRepo{db: db}
}

func (r *batchRepo) Create(ctx context.Context, batch *domain.BatchFile) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO batch_registry
			(run_id, channel, gstin, month, gst_rate, file_path, record_count, total_taxable, total_tax)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		batch.RunID, batch.Channel, batch.GSTIN, batch.Month, batch.GSTRate,
		batch.FilePath, batch.RecordCount, batch.TotalTaxable, batch.TotalTax)
	if err != nil {
		return fmt.Errorf("batchRepo.Create: %w", err)
	}
	return nil
}

func (r *batchRepo) ListByRun(ctx context.Context, runID uuid.UUID) ([]domain.BatchFile, error) {
	var batches []domain.BatchFile
	err := r.db.SelectContext(ctx, &batches,
		`SELECT * FROM batch_registry WHERE run_id = $1 ORDER BY gst_rate`, runID)
	if err != nil {
		return nil, fmt.Errorf("batchRepo.ListByRun: %w", err)
	}
	return batches, nil
}

type exportRepo struct {
	db *sqlx.DB
}

// NewExportRepo creates a new PostgreSQL-backed ExportRepository.
func NewExportRepo(db *sqlx.DB) port.ExportRepository {
	return &exportRepo{db: db}
}

func (r *exportRepo) Create(ctx context.Context, export *domain.TallyExport) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO tally_exports
			(run_id, channel, gstin, month, gst_rate, template_name, file_path,
			 file_size, record_count, total_taxable, total_tax, export_status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		export.RunID, export.Channel, export.GSTIN, export.Month, export.GSTRate,
		export.TemplateName, export.FilePath, export.FileSize, export.RecordCount,
		export.TotalTaxable, export.TotalTax, export.ExportStatus)
	if err != nil {
		return fmt.Errorf("exportRepo.Create: %w", err)
	}
	return nil
}

func (r *exportRepo) ListByRun(ctx context.Context, runID uuid.UUID) ([]domain.TallyExport, error) {
	var exports []domain.TallyExport
	err := r.db.SelectContext(ctx, &exports,
		`SELECT * FROM tally_exports WHERE run_id = $1 ORDER BY gst_rate`, runID)
	if err != nil {
		return nil, fmt.Errorf("exportRepo.ListByRun: %w", err)
	}
	return exports, nil
}
