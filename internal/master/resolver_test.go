package master_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"x2beta/internal/domain"
	"x2beta/internal/master"
	"x2beta/internal/port"
)

type memItemRepo struct {
	bySKU  map[string]domain.ItemMaster
	byASIN map[string]domain.ItemMaster
}

func newMemItemRepo() *memItemRepo {
	return &memItemRepo{bySKU: map[string]domain.ItemMaster{}, byASIN: map[string]domain.ItemMaster{}}
}

func (r *memItemRepo) Insert(ctx context.Context, item *domain.ItemMaster) (bool, error) {
	if item.SKU != "" {
		if _, ok := r.bySKU[item.SKU]; ok {
			return false, nil
		}
	}
	if item.ASIN != "" {
		if _, ok := r.byASIN[item.ASIN]; ok {
			return false, nil
		}
	}
	if item.SKU != "" {
		r.bySKU[item.SKU] = *item
	}
	if item.ASIN != "" {
		r.byASIN[item.ASIN] = *item
	}
	return true, nil
}

func (r *memItemRepo) GetBySKU(ctx context.Context, sku string) (*domain.ItemMaster, error) {
	if item, ok := r.bySKU[sku]; ok {
		return &item, nil
	}
	return nil, domain.ErrNotFound
}

func (r *memItemRepo) GetByASIN(ctx context.Context, asin string) (*domain.ItemMaster, error) {
	if item, ok := r.byASIN[asin]; ok {
		return &item, nil
	}
	return nil, domain.ErrNotFound
}

func (r *memItemRepo) List(ctx context.Context) ([]domain.ItemMaster, error) {
	var out []domain.ItemMaster
	for _, item := range r.bySKU {
		out = append(out, item)
	}
	return out, nil
}

type memLedgerRepo struct {
	ledgers map[string]domain.LedgerMaster
}

func newMemLedgerRepo() *memLedgerRepo {
	return &memLedgerRepo{ledgers: map[string]domain.LedgerMaster{}}
}

func ledgerKey(channel, stateCode string) string {
	return channel + "/" + stateCode
}

func (r *memLedgerRepo) Insert(ctx context.Context, ledger *domain.LedgerMaster) (bool, error) {
	key := ledgerKey(ledger.Channel, ledger.StateCode)
	if _, ok := r.ledgers[key]; ok {
		return false, nil
	}
	r.ledgers[key] = *ledger
	return true, nil
}

func (r *memLedgerRepo) Get(ctx context.Context, channel, stateCode string) (*domain.LedgerMaster, error) {
	if ledger, ok := r.ledgers[ledgerKey(channel, stateCode)]; ok {
		return &ledger, nil
	}
	return nil, domain.ErrNotFound
}

func (r *memLedgerRepo) List(ctx context.Context) ([]domain.LedgerMaster, error) {
	var out []domain.LedgerMaster
	for _, ledger := range r.ledgers {
		out = append(out, ledger)
	}
	return out, nil
}

type captureApprovalRepo struct {
	created []domain.ApprovalRequest
}

func (r *captureApprovalRepo) Create(ctx context.Context, req *domain.ApprovalRequest) error {
	r.created = append(r.created, *req)
	return nil
}

func (r *captureApprovalRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.ApprovalRequest, error) {
	return nil, domain.ErrNotFound
}

func (r *captureApprovalRepo) ListByStatus(ctx context.Context, status domain.ApprovalStatus) ([]domain.ApprovalRequest, error) {
	return nil, nil
}

func (r *captureApprovalRepo) ListByRun(ctx context.Context, runID uuid.UUID) ([]domain.ApprovalRequest, error) {
	return r.created, nil
}

func (r *captureApprovalRepo) Decide(ctx context.Context, id uuid.UUID, status domain.ApprovalStatus, approver, notes string) error {
	return nil
}

func (r *captureApprovalRepo) CountByRun(ctx context.Context, runID uuid.UUID) (int, error) {
	return len(r.created), nil
}

var _ port.ItemMasterRepository = (*memItemRepo)(nil)
var _ port.LedgerMasterRepository = (*memLedgerRepo)(nil)
var _ port.ApprovalRepository = (*captureApprovalRepo)(nil)

func seedItem(t *testing.T, repo *memItemRepo, sku, asin, fg string) {
	t.Helper()
	_, err := repo.Insert(context.Background(), &domain.ItemMaster{
		ID: uuid.New(), SKU: sku, ASIN: asin, FG: fg,
		GSTRateDefault: decimal.NewFromFloat(0.18),
	})
	require.NoError(t, err)
}

func TestItemResolver_SKUBeforeASIN(t *testing.T) {
	items := newMemItemRepo()
	seedItem(t, items, "STD-001", "", "Chair_FG")
	seedItem(t, items, "", "B0TEST1234", "Table_FG")
	approvals := &captureApprovalRepo{}
	r := master.NewItemResolver(items, approvals, uuid.New())

	fg, ok, err := r.Resolve(context.Background(), "STD-001", "B0TEST1234", decimal.NewFromInt(500))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "Chair_FG", fg)

	fg, ok, err = r.Resolve(context.Background(), "UNKNOWN", "B0TEST1234", decimal.NewFromInt(500))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "Table_FG", fg)
	assert.Empty(t, approvals.created)
}

func TestItemResolver_MissQueuesOnce(t *testing.T) {
	items := newMemItemRepo()
	approvals := &captureApprovalRepo{}
	runID := uuid.New()
	r := master.NewItemResolver(items, approvals, runID)

	for i := 0; i < 3; i++ {
		fg, ok, err := r.Resolve(context.Background(), "MISSING-01", "", decimal.NewFromInt(750))
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Empty(t, fg)
	}

	require.Len(t, approvals.created, 1)
	req := approvals.created[0]
	assert.Equal(t, runID, req.RunID)
	assert.Equal(t, domain.ApprovalTypeItem, req.Type)
	assert.Equal(t, domain.ApprovalStatusPending, req.Status)
	assert.Equal(t, "MISSING-01_FG", req.SuggestedValue)

	var p domain.ItemApprovalPayload
	require.NoError(t, json.Unmarshal(req.Payload, &p))
	assert.Equal(t, "MISSING-01", p.SKU)
	assert.Equal(t, "MISSING-01_FG", p.SuggestedFG)
	assert.True(t, p.GSTRate.Equal(decimal.NewFromFloat(0.18)))
	assert.True(t, p.EstimatedValue.Equal(decimal.NewFromInt(750)))
}

func TestLedgerResolver_HitAndMiss(t *testing.T) {
	ledgers := newMemLedgerRepo()
	_, err := ledgers.Insert(context.Background(), &domain.LedgerMaster{
		ID: uuid.New(), Channel: "amazon_mtr", StateCode: "HR", LedgerName: "Amazon Sales - HR",
	})
	require.NoError(t, err)
	approvals := &captureApprovalRepo{}
	r := master.NewLedgerResolver(ledgers, approvals, uuid.New(), domain.ChannelAmazonMTR)

	name, ok, err := r.Resolve(context.Background(), "HR")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "Amazon Sales - HR", name)

	_, ok, err = r.Resolve(context.Background(), "KA")
	require.NoError(t, err)
	assert.False(t, ok)
	_, ok, err = r.Resolve(context.Background(), "KA")
	require.NoError(t, err)
	assert.False(t, ok)

	require.Len(t, approvals.created, 1)
	var p domain.LedgerApprovalPayload
	require.NoError(t, json.Unmarshal(approvals.created[0].Payload, &p))
	assert.Equal(t, "amazon_mtr", p.Channel)
	assert.Equal(t, "KA", p.StateCode)
	assert.Equal(t, "Amazon Sales - KA", p.SuggestedLedger)
}

func TestSuggestLedgerName(t *testing.T) {
	assert.Equal(t, "Amazon Sales - HR", master.SuggestLedgerName(domain.ChannelAmazonMTR, "Haryana"))
	assert.Equal(t, "Flipkart Sales - KA", master.SuggestLedgerName(domain.ChannelFlipkart, "ka"))
	assert.Equal(t, "Pepperfry Sales - XX", master.SuggestLedgerName(domain.ChannelPepperfry, "xx"))
}

func TestResolveRows_Coverage(t *testing.T) {
	items := newMemItemRepo()
	seedItem(t, items, "STD-001", "", "Chair_FG")
	ledgers := newMemLedgerRepo()
	_, err := ledgers.Insert(context.Background(), &domain.LedgerMaster{
		ID: uuid.New(), Channel: "amazon_mtr", StateCode: "HR", LedgerName: "Amazon Sales - HR",
	})
	require.NoError(t, err)

	approvals := &captureApprovalRepo{}
	runID := uuid.New()
	ir := master.NewItemResolver(items, approvals, runID)
	lr := master.NewLedgerResolver(ledgers, approvals, runID, domain.ChannelAmazonMTR)

	rows := []domain.NormalizedRow{
		{SKU: "STD-001", StateCode: "HR", TaxableValue: decimal.NewFromInt(1000)},
		{SKU: "STD-001", StateCode: "KA", TaxableValue: decimal.NewFromInt(500)},
		{SKU: "MISSING-01", StateCode: "HR", TaxableValue: decimal.NewFromInt(200)},
		{SKU: "STD-001", StateCode: "HR", TaxableValue: decimal.NewFromInt(300)},
	}

	cov, err := master.ResolveRows(context.Background(), ir, lr, rows)
	require.NoError(t, err)
	assert.Equal(t, 4, cov.TotalRows)
	assert.Equal(t, 2, cov.MappedRows)
	assert.Equal(t, 2, cov.UnmappedRows)
	assert.InDelta(t, 50.0, cov.Percent, 0.0001)

	assert.Equal(t, "Chair_FG", rows[0].FG)
	assert.Equal(t, "Amazon Sales - HR", rows[0].Ledger)
	assert.Empty(t, rows[1].Ledger)
	assert.Empty(t, rows[2].FG)
	assert.Equal(t, "Amazon Sales - HR", rows[3].Ledger)

	// One queued request per distinct miss.
	assert.Len(t, approvals.created, 2)
}
