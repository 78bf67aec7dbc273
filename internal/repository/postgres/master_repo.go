package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"x2beta/internal/domain"
	"x2beta/internal/port"
)

type itemMasterRepo struct {
	db *sqlx.DB
}

// NewItemMasterRepo creates a new PostgreSQL-backed ItemMasterRepository.
func NewItemMasterRepo(db *sqlx.DB) port.ItemMasterRepository {
	return &itemMasterRepo{db: db}
}

// Insert adds an item mapping. Duplicate SKU or ASIN keys are skipped
// silently; the return value reports whether a row was written.
func (r *itemMasterRepo) Insert(ctx context.Context, item *domain.ItemMaster) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO item_master (id, sku, asin, item_code, fg, gst_rate, approved_by, approved_at)
		 VALUES ($1, NULLIF($2, ''), NULLIF($3, ''), $4, $5, $6, $7, $8)
		 ON CONFLICT DO NOTHING`,
		item.ID, item.SKU, item.ASIN, item.ItemCode, item.FG,
		item.GSTRateDefault, item.ApprovedBy, item.ApprovedAt)
	if err != nil {
		return false, fmt.Errorf("itemMasterRepo.Insert: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (r *itemMasterRepo) GetBySKU(ctx context.Context, sku string) (*domain.ItemMaster, error) {
	return r.getByKey(ctx, "sku", sku)
}

func (r *itemMasterRepo) GetByASIN(ctx context.Context, asin string) (*domain.ItemMaster, error) {
	return r.getByKey(ctx, "asin", asin)
}

// itemColumns coalesces the nullable sku/asin keys to empty strings.
const itemColumns = `id, COALESCE(sku, '') AS sku, COALESCE(asin, '') AS asin,
	item_code, fg, gst_rate, approved_by, approved_at`

func (r *itemMasterRepo) getByKey(ctx context.Context, column, value string) (*domain.ItemMaster, error) {
	var item domain.ItemMaster
	err := r.db.GetContext(ctx, &item,
		fmt.Sprintf(`SELECT %s FROM item_master WHERE %s = $1`, itemColumns, column), value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("itemMasterRepo.getByKey %s: %w", column, err)
	}
	return &item, nil
}

func (r *itemMasterRepo) List(ctx context.Context) ([]domain.ItemMaster, error) {
	var items []domain.ItemMaster
	err := r.db.SelectContext(ctx, &items,
		fmt.Sprintf(`SELECT %s FROM item_master ORDER BY fg, sku`, itemColumns))
	if err != nil {
		return nil, fmt.Errorf("itemMasterRepo.List: %w", err)
	}
	return items, nil
}

type ledgerMasterRepo struct {
	db *sqlx.DB
}

// NewLedgerMasterRepo creates a new PostgreSQL-backed LedgerMasterRepository.
func NewLedgerMasterRepo(db *sqlx.DB) port.LedgerMasterRepository {
	return &ledgerMasterRepo{db: db}
}

func (r *ledgerMasterRepo) Insert(ctx context.Context, ledger *domain.LedgerMaster) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO ledger_master (id, channel, state_code, ledger_name, approved_by, approved_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (channel, state_code) DO NOTHING`,
		ledger.ID, strings.ToLower(ledger.Channel), strings.ToUpper(ledger.StateCode),
		ledger.LedgerName, ledger.ApprovedBy, ledger.ApprovedAt)
	if err != nil {
		return false, fmt.Errorf("ledgerMasterRepo.Insert: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (r *ledgerMasterRepo) Get(ctx context.Context, channel, stateCode string) (*domain.LedgerMaster, error) {
	var ledger domain.LedgerMaster
	err := r.db.GetContext(ctx, &ledger,
		`SELECT * FROM ledger_master WHERE channel = $1 AND state_code = $2`,
		strings.ToLower(channel), strings.ToUpper(stateCode))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ledgerMasterRepo.Get: %w", err)
	}
	return &ledger, nil
}

func (r *ledgerMasterRepo) List(ctx context.Context) ([]domain.LedgerMaster, error) {
	var ledgers []domain.LedgerMaster
	err := r.db.SelectContext(ctx, &ledgers,
		`SELECT * FROM ledger_master ORDER BY channel, state_code`)
	if err != nil {
		return nil, fmt.Errorf("ledgerMasterRepo.List: %w", err)
	}
	return ledgers, nil
}
