package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"x2beta/internal/domain"
	"x2beta/internal/port"
)

type sellerInvoiceRepo struct {
	db *sqlx.DB
}

// NewSellerInvoiceRepo creates a new PostgreSQL-backed SellerInvoiceRepository.
func NewSellerInvoiceRepo(db *sqlx.DB) port.SellerInvoiceRepository {
	return &sellerInvoiceRepo{db: db}
}

func (r *sellerInvoiceRepo) CreateBatch(ctx context.Context, invoices []domain.SellerInvoice) error {
	if len(invoices) == 0 {
		return nil
	}
	_, err := r.db.NamedExecContext(ctx,
		`INSERT INTO seller_invoices
			(id, run_id, channel, gstin, vendor_gstin, invoice_no, invoice_date, expense_type,
			 taxable_value, gst_rate, cgst, sgst, igst, total_value, ledger_name, processing_status)
		 VALUES
			(:id, :run_id, :channel, :gstin, :vendor_gstin, :invoice_no, :invoice_date, :expense_type,
			 :taxable_value, :gst_rate, :cgst, :sgst, :igst, :total_value, :ledger_name, :processing_status)`,
		invoices)
	if err != nil {
		return fmt.Errorf("sellerInvoiceRepo.CreateBatch: %w", err)
	}
	return nil
}

func (r *sellerInvoiceRepo) ListByRun(ctx context.Context, runID uuid.UUID) ([]domain.SellerInvoice, error) {
	var invoices []domain.SellerInvoice
	err := r.db.SelectContext(ctx, &invoices,
		`SELECT * FROM seller_invoices WHERE run_id = $1 ORDER BY invoice_date, invoice_no`, runID)
	if err != nil {
		return nil, fmt.Errorf("sellerInvoiceRepo.ListByRun: %w", err)
	}
	return invoices, nil
}

func (r *sellerInvoiceRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.ProcessingStatus) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE seller_invoices SET processing_status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("sellerInvoiceRepo.UpdateStatus: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

type expenseExportRepo struct {
	db *sqlx.DB
}

// NewExpenseExportRepo creates a new PostgreSQL-backed ExpenseExportRepository.
func NewExpenseExportRepo(db *sqlx.DB) port.ExpenseExportRepository {
	return &expenseExportRepo{db: db}
}

func (r *expenseExportRepo) Create(ctx context.Context, export *domain.ExpenseExport) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO expense_exports
			(id, run_id, channel, gstin, month, expense_type, template_name, file_path,
			 file_size, record_count, total_taxable, total_tax, export_status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		export.ID, export.RunID, export.Channel, export.GSTIN, export.Month,
		export.ExpenseType, export.TemplateName, export.FilePath, export.FileSize,
		export.RecordCount, export.TotalTaxable, export.TotalTax, export.ExportStatus)
	if err != nil {
		return fmt.Errorf("expenseExportRepo.Create: %w", err)
	}
	return nil
}

func (r *expenseExportRepo) ListByRun(ctx context.Context, runID uuid.UUID) ([]domain.ExpenseExport, error) {
	var exports []domain.ExpenseExport
	err := r.db.SelectContext(ctx, &exports,
		`SELECT * FROM expense_exports WHERE run_id = $1 ORDER BY expense_type`, runID)
	if err != nil {
		return nil, fmt.Errorf("expenseExportRepo.ListByRun: %w", err)
	}
	return exports, nil
}
