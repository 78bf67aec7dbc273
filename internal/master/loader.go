package master

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"x2beta/internal/domain"
	"x2beta/internal/ingest"
	"x2beta/internal/port"
)

// Column aliases accepted by the bulk loaders. Master sheets come from
// several back offices, so header names drift.
var (
	itemSKUCols  = []string{"sku", "seller_sku", "item_sku", "sku_code"}
	itemASINCols = []string{"asin", "asin_code"}
	itemCodeCols = []string{"item_code", "code", "material_code"}
	itemFGCols   = []string{"fg", "final_good", "final_goods", "fg_name", "item_name"}
	itemRateCols = []string{"gst_rate", "rate", "tax_rate"}

	ledgerChannelCols = []string{"channel", "marketplace", "portal"}
	ledgerStateCols   = []string{"state_code", "state", "ship_state"}
	ledgerNameCols    = []string{"ledger_name", "ledger", "sales_ledger"}
)

// LoadResult summarizes a bulk load.
type LoadResult struct {
	Total    int
	Inserted int
	Skipped  int
}

// LoadItems reads an item master sheet (xlsx or csv) and inserts every row
// with at least one key and an FG name. Duplicates are skipped silently.
func LoadItems(ctx context.Context, repo port.ItemMasterRepository, name string, data []byte) (*LoadResult, error) {
	t, err := ingest.ReadTable(name, data)
	if err != nil {
		return nil, fmt.Errorf("reading item master %s: %w", name, err)
	}

	res := &LoadResult{}
	now := time.Now().UTC()
	for i := 0; i < t.Len(); i++ {
		sku, _ := t.First(i, itemSKUCols)
		asin, _ := t.First(i, itemASINCols)
		code, _ := t.First(i, itemCodeCols)
		fg, _ := t.First(i, itemFGCols)
		sku = strings.TrimSpace(sku)
		asin = strings.TrimSpace(asin)
		fg = strings.TrimSpace(fg)
		if fg == "" || (sku == "" && asin == "") {
			continue
		}
		res.Total++

		rate := defaultItemRate
		if raw, ok := t.First(i, itemRateCols); ok {
			if parsed, perr := parseRate(raw); perr == nil {
				rate = parsed
			} else {
				log.Printf("master: %s row %d: bad gst rate %q, using default", name, i+2, raw)
			}
		}

		inserted, err := repo.Insert(ctx, &domain.ItemMaster{
			ID:             uuid.New(),
			SKU:            sku,
			ASIN:           asin,
			ItemCode:       strings.TrimSpace(code),
			FG:             fg,
			GSTRateDefault: rate,
			ApprovedBy:     string(domain.ActorSystem),
			ApprovedAt:     &now,
		})
		if err != nil {
			return res, fmt.Errorf("inserting item %s/%s: %w", sku, asin, err)
		}
		if inserted {
			res.Inserted++
		} else {
			res.Skipped++
		}
	}
	return res, nil
}

// LoadLedgers reads a ledger master sheet and inserts every complete row.
// State values may be numeric codes, abbreviations or full names.
func LoadLedgers(ctx context.Context, repo port.LedgerMasterRepository, name string, data []byte) (*LoadResult, error) {
	t, err := ingest.ReadTable(name, data)
	if err != nil {
		return nil, fmt.Errorf("reading ledger master %s: %w", name, err)
	}

	res := &LoadResult{}
	now := time.Now().UTC()
	for i := 0; i < t.Len(); i++ {
		channel, _ := t.First(i, ledgerChannelCols)
		state, _ := t.First(i, ledgerStateCols)
		ledger, _ := t.First(i, ledgerNameCols)
		channel = strings.ToLower(strings.TrimSpace(channel))
		ledger = strings.TrimSpace(ledger)
		if channel == "" || strings.TrimSpace(state) == "" || ledger == "" {
			continue
		}
		res.Total++

		abbrev := strings.ToUpper(strings.TrimSpace(state))
		if norm, ok := domain.NormalizeState(state); ok {
			abbrev = norm
		}

		inserted, err := repo.Insert(ctx, &domain.LedgerMaster{
			ID:         uuid.New(),
			Channel:    channel,
			StateCode:  abbrev,
			LedgerName: ledger,
			ApprovedBy: string(domain.ActorSystem),
			ApprovedAt: &now,
		})
		if err != nil {
			return res, fmt.Errorf("inserting ledger %s/%s: %w", channel, abbrev, err)
		}
		if inserted {
			res.Inserted++
		} else {
			res.Skipped++
		}
	}
	return res, nil
}

// parseRate accepts "18", "18%", "0.18".
func parseRate(raw string) (decimal.Decimal, error) {
	raw = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(raw), "%"))
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, err
	}
	if d.GreaterThan(decimal.NewFromInt(1)) {
		d = d.Div(decimal.NewFromInt(100))
	}
	return d, nil
}
