package master

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"x2beta/internal/domain"
	"x2beta/internal/port"
)

// defaultItemRate is suggested on item approval requests for unmapped SKUs.
var defaultItemRate = decimal.NewFromFloat(0.18)

// ItemResolver resolves SKU/ASIN to Final Goods names, caching per run and
// fanning misses out to the approval queue. Lookup priority: SKU, then ASIN.
type ItemResolver struct {
	items     port.ItemMasterRepository
	approvals port.ApprovalRepository
	runID     uuid.UUID

	cache  map[string]string
	missed map[string]bool
}

// NewItemResolver creates a run-scoped item resolver.
func NewItemResolver(items port.ItemMasterRepository, approvals port.ApprovalRepository, runID uuid.UUID) *ItemResolver {
	return &ItemResolver{
		items:     items,
		approvals: approvals,
		runID:     runID,
		cache:     make(map[string]string),
		missed:    make(map[string]bool),
	}
}

// Resolve returns (fg, true) on a hit. On a miss it queues one approval
// request per distinct key and returns ("", false).
func (r *ItemResolver) Resolve(ctx context.Context, sku, asin string, estimatedValue decimal.Decimal) (string, bool, error) {
	key := cacheKey(sku, asin)
	if fg, ok := r.cache[key]; ok {
		return fg, fg != "", nil
	}

	if sku != "" {
		item, err := r.items.GetBySKU(ctx, sku)
		if err == nil {
			r.cache[key] = item.FG
			return item.FG, true, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return "", false, err
		}
	}
	if asin != "" {
		item, err := r.items.GetByASIN(ctx, asin)
		if err == nil {
			r.cache[key] = item.FG
			return item.FG, true, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return "", false, err
		}
	}

	r.cache[key] = ""
	if !r.missed[key] {
		r.missed[key] = true
		if err := r.queueMiss(ctx, sku, asin, estimatedValue); err != nil {
			return "", false, err
		}
	}
	return "", false, nil
}

func (r *ItemResolver) queueMiss(ctx context.Context, sku, asin string, estimatedValue decimal.Decimal) error {
	payload, err := json.Marshal(domain.ItemApprovalPayload{
		SKU:            sku,
		ASIN:           asin,
		SuggestedFG:    fmt.Sprintf("%s_FG", sku),
		GSTRate:        defaultItemRate,
		EstimatedValue: estimatedValue,
	})
	if err != nil {
		return fmt.Errorf("marshaling item payload: %w", err)
	}
	return r.approvals.Create(ctx, &domain.ApprovalRequest{
		ID:             uuid.New(),
		RunID:          r.runID,
		Type:           domain.ApprovalTypeItem,
		Payload:        payload,
		Status:         domain.ApprovalStatusPending,
		SuggestedValue: fmt.Sprintf("%s_FG", sku),
		Priority:       1,
		CreatedAt:      time.Now().UTC(),
	})
}

func cacheKey(sku, asin string) string {
	return sku + "\x00" + asin
}

// LedgerResolver resolves (channel, state) to ledger names with the same
// lifecycle as ItemResolver.
type LedgerResolver struct {
	ledgers   port.LedgerMasterRepository
	approvals port.ApprovalRepository
	runID     uuid.UUID
	channel   domain.Channel

	cache  map[string]string
	missed map[string]bool
}

// NewLedgerResolver creates a run-scoped ledger resolver.
func NewLedgerResolver(ledgers port.LedgerMasterRepository, approvals port.ApprovalRepository, runID uuid.UUID, channel domain.Channel) *LedgerResolver {
	return &LedgerResolver{
		ledgers:   ledgers,
		approvals: approvals,
		runID:     runID,
		channel:   channel,
		cache:     make(map[string]string),
		missed:    make(map[string]bool),
	}
}

// Resolve looks up (lower(channel), upper(state)).
func (r *LedgerResolver) Resolve(ctx context.Context, stateCode string) (string, bool, error) {
	key := strings.ToLower(string(r.channel)) + "\x00" + strings.ToUpper(stateCode)
	if name, ok := r.cache[key]; ok {
		return name, name != "", nil
	}

	ledger, err := r.ledgers.Get(ctx, string(r.channel), stateCode)
	if err == nil {
		r.cache[key] = ledger.LedgerName
		return ledger.LedgerName, true, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return "", false, err
	}

	r.cache[key] = ""
	if !r.missed[key] {
		r.missed[key] = true
		if err := r.queueMiss(ctx, stateCode); err != nil {
			return "", false, err
		}
	}
	return "", false, nil
}

// SuggestLedgerName builds the suggested ledger from the channel title and
// state abbreviation, e.g. "Amazon Sales - HR".
func SuggestLedgerName(channel domain.Channel, stateCode string) string {
	abbrev := strings.ToUpper(stateCode)
	if norm, ok := domain.NormalizeState(stateCode); ok {
		abbrev = norm
	}
	return fmt.Sprintf("%s Sales - %s", channel.Title(), abbrev)
}

func (r *LedgerResolver) queueMiss(ctx context.Context, stateCode string) error {
	suggested := SuggestLedgerName(r.channel, stateCode)
	payload, err := json.Marshal(domain.LedgerApprovalPayload{
		Channel:         strings.ToLower(string(r.channel)),
		StateCode:       strings.ToUpper(stateCode),
		SuggestedLedger: suggested,
	})
	if err != nil {
		return fmt.Errorf("marshaling ledger payload: %w", err)
	}
	return r.approvals.Create(ctx, &domain.ApprovalRequest{
		ID:             uuid.New(),
		RunID:          r.runID,
		Type:           domain.ApprovalTypeLedger,
		Payload:        payload,
		Status:         domain.ApprovalStatusPending,
		SuggestedValue: suggested,
		Priority:       1,
		CreatedAt:      time.Now().UTC(),
	})
}

// Coverage reports how much of a row set resolved.
type Coverage struct {
	TotalRows    int     `json:"total_rows"`
	MappedRows   int     `json:"mapped_rows"`
	Percent      float64 `json:"percent"`
	UnmappedRows int     `json:"unmapped_rows"`
}

// ResolveRows runs both resolvers over the row set, filling FG and Ledger
// in place, and returns the coverage summary. A row counts as mapped only
// when both lookups hit.
func ResolveRows(ctx context.Context, items *ItemResolver, ledgers *LedgerResolver, rows []domain.NormalizedRow) (Coverage, error) {
	cov := Coverage{TotalRows: len(rows)}
	for i := range rows {
		row := &rows[i]
		fg, itemOK, err := items.Resolve(ctx, row.SKU, row.ASIN, row.TaxableValue)
		if err != nil {
			return cov, err
		}
		ledger, ledgerOK, err := ledgers.Resolve(ctx, row.StateCode)
		if err != nil {
			return cov, err
		}
		row.FG = fg
		row.Ledger = ledger
		if itemOK && ledgerOK {
			cov.MappedRows++
		}
	}
	cov.UnmappedRows = cov.TotalRows - cov.MappedRows
	if cov.TotalRows > 0 {
		cov.Percent = float64(cov.MappedRows) / float64(cov.TotalRows) * 100
	}
	return cov, nil
}
