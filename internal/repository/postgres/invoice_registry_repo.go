package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"

	"x2beta/internal/domain"
	"x2beta/internal/port"
)

const uniqueViolation = "23505"

type invoiceRegistryRepo struct {
	db *sqlx.DB
}

// NewInvoiceRegistryRepo creates a new PostgreSQL-backed InvoiceRegistry.
func NewInvoiceRegistryRepo(db *sqlx.DB) port.InvoiceRegistry {
	return &invoiceRegistryRepo{db: db}
}

// CreateBatch reserves the generated numbers in one transaction. A unique
// violation on invoice_no rolls everything back and surfaces as
// domain.ErrDuplicateKey so the generator can reload and retry.
func (r *invoiceRegistryRepo) CreateBatch(ctx context.Context, entries []domain.InvoiceRegistryEntry) error {
	if len(entries) == 0 {
		return nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("invoiceRegistryRepo.CreateBatch begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.NamedExecContext(ctx,
		`INSERT INTO invoice_registry (run_id, channel, gstin, state_code, invoice_no, month)
		 VALUES (:run_id, :channel, :gstin, :state_code, :invoice_no, :month)`,
		entries)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return domain.ErrDuplicateKey
		}
		return fmt.Errorf("invoiceRegistryRepo.CreateBatch: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("invoiceRegistryRepo.CreateBatch commit: %w", err)
	}
	return nil
}

func (r *invoiceRegistryRepo) ListNumbers(ctx context.Context, channel domain.Channel, gstin, month string) ([]string, error) {
	var numbers []string
	err := r.db.SelectContext(ctx, &numbers,
		`SELECT invoice_no FROM invoice_registry
		 WHERE channel = $1 AND gstin = $2 AND month = $3
		 ORDER BY invoice_no`,
		channel, gstin, month)
	if err != nil {
		return nil, fmt.Errorf("invoiceRegistryRepo.ListNumbers: %w", err)
	}
	return numbers, nil
}

func (r *invoiceRegistryRepo) Exists(ctx context.Context, invoiceNo string) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists,
		`SELECT EXISTS (SELECT 1 FROM invoice_registry WHERE invoice_no = $1)`, invoiceNo)
	if err != nil {
		return false, fmt.Errorf("invoiceRegistryRepo.Exists: %w", err)
	}
	return exists, nil
}
