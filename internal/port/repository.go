package port

import (
	"context"
	"time"

	"github.com/google/uuid"

	"x2beta/internal/domain"
)

// RunRepository persists pipeline runs.
type RunRepository interface {
	Create(ctx context.Context, run *domain.Run) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Run, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.RunStatus, finishedAt *time.Time) error
}

// ReportRepository persists ingested raw-report records.
type ReportRepository interface {
	Create(ctx context.Context, report *domain.RawReport) error
	ListByRun(ctx context.Context, runID uuid.UUID) ([]domain.RawReport, error)
}

// ItemMasterRepository stores SKU/ASIN to Final Goods mappings.
// Insert skips silently on a duplicate SKU or ASIN key.
type ItemMasterRepository interface {
	Insert(ctx context.Context, item *domain.ItemMaster) (inserted bool, err error)
	GetBySKU(ctx context.Context, sku string) (*domain.ItemMaster, error)
	GetByASIN(ctx context.Context, asin string) (*domain.ItemMaster, error)
	List(ctx context.Context) ([]domain.ItemMaster, error)
}

// LedgerMasterRepository stores (channel, state) to ledger-name mappings.
type LedgerMasterRepository interface {
	Insert(ctx context.Context, ledger *domain.LedgerMaster) (inserted bool, err error)
	Get(ctx context.Context, channel, stateCode string) (*domain.LedgerMaster, error)
	List(ctx context.Context) ([]domain.LedgerMaster, error)
}

// ApprovalRepository stores the approval queue.
type ApprovalRepository interface {
	Create(ctx context.Context, req *domain.ApprovalRequest) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.ApprovalRequest, error)
	ListByStatus(ctx context.Context, status domain.ApprovalStatus) ([]domain.ApprovalRequest, error)
	ListByRun(ctx context.Context, runID uuid.UUID) ([]domain.ApprovalRequest, error)
	Decide(ctx context.Context, id uuid.UUID, status domain.ApprovalStatus, approver, notes string) error
	CountByRun(ctx context.Context, runID uuid.UUID) (int, error)
}

// TaxRepository persists per-row tax computations.
type TaxRepository interface {
	CreateBatch(ctx context.Context, rows []domain.TaxComputation) error
	ListByRun(ctx context.Context, runID uuid.UUID) ([]domain.TaxComputation, error)
}

// InvoiceRegistry reserves generated invoice numbers. CreateBatch returns
// domain.ErrDuplicateKey when any number is already registered.
type InvoiceRegistry interface {
	CreateBatch(ctx context.Context, entries []domain.InvoiceRegistryEntry) error
	ListNumbers(ctx context.Context, channel domain.Channel, gstin, month string) ([]string, error)
	Exists(ctx context.Context, invoiceNo string) (bool, error)
}

// PivotRepository persists pivot summaries.
type PivotRepository interface {
	CreateBatch(ctx context.Context, rows []domain.PivotSummary) error
	ListByRun(ctx context.Context, runID uuid.UUID) ([]domain.PivotSummary, error)
}

// BatchRepository registers per-rate batch files.
type BatchRepository interface {
	Create(ctx context.Context, batch *domain.BatchFile) error
	ListByRun(ctx context.Context, runID uuid.UUID) ([]domain.BatchFile, error)
}

// ExportRepository registers rendered X2Beta workbooks.
type ExportRepository interface {
	Create(ctx context.Context, export *domain.TallyExport) error
	ListByRun(ctx context.Context, runID uuid.UUID) ([]domain.TallyExport, error)
}

// SellerInvoiceRepository persists parsed seller fee invoices.
type SellerInvoiceRepository interface {
	CreateBatch(ctx context.Context, invoices []domain.SellerInvoice) error
	ListByRun(ctx context.Context, runID uuid.UUID) ([]domain.SellerInvoice, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.ProcessingStatus) error
}

// ExpenseExportRepository registers rendered expense workbooks.
type ExpenseExportRepository interface {
	Create(ctx context.Context, export *domain.ExpenseExport) error
	ListByRun(ctx context.Context, runID uuid.UUID) ([]domain.ExpenseExport, error)
}

// ExceptionRepository stores detected defects. Writes arrive in batches.
type ExceptionRepository interface {
	CreateBatch(ctx context.Context, exceptions []domain.Exception) error
	ListByRun(ctx context.Context, runID uuid.UUID) ([]domain.Exception, error)
	CountByRun(ctx context.Context, runID uuid.UUID) (int, error)
}

// AuditRepository stores the append-only audit trail.
type AuditRepository interface {
	CreateBatch(ctx context.Context, entries []domain.AuditLogEntry) error
	ListByRun(ctx context.Context, runID uuid.UUID) ([]domain.AuditLogEntry, error)
}

// MISRepository stores generated MIS reports.
type MISRepository interface {
	Create(ctx context.Context, report *domain.MISReport) error
	GetByRun(ctx context.Context, runID uuid.UUID) (*domain.MISReport, error)
	GetByMonth(ctx context.Context, channel domain.Channel, gstin, month string) (*domain.MISReport, error)
}
