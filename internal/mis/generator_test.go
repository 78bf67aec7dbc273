package mis_test

import (
	"bytes"
	"context"
	"encoding/csv"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"x2beta/internal/domain"
	"x2beta/internal/mis"
	"x2beta/internal/port"
)

type fakePivotRepo struct{ summaries []domain.PivotSummary }

func (r *fakePivotRepo) CreateBatch(ctx context.Context, rows []domain.PivotSummary) error {
	r.summaries = append(r.summaries, rows...)
	return nil
}

func (r *fakePivotRepo) ListByRun(ctx context.Context, runID uuid.UUID) ([]domain.PivotSummary, error) {
	return r.summaries, nil
}

type fakeInvoiceRepo struct{ invoices []domain.SellerInvoice }

func (r *fakeInvoiceRepo) CreateBatch(ctx context.Context, invoices []domain.SellerInvoice) error {
	r.invoices = append(r.invoices, invoices...)
	return nil
}

func (r *fakeInvoiceRepo) ListByRun(ctx context.Context, runID uuid.UUID) ([]domain.SellerInvoice, error) {
	return r.invoices, nil
}

func (r *fakeInvoiceRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.ProcessingStatus) error {
	return nil
}

type fakeCountRepo struct{ exceptions, approvals int }

func (r *fakeCountRepo) CreateBatch(ctx context.Context, exceptions []domain.Exception) error {
	return nil
}

func (r *fakeCountRepo) ListByRun(ctx context.Context, runID uuid.UUID) ([]domain.Exception, error) {
	return nil, nil
}

func (r *fakeCountRepo) CountByRun(ctx context.Context, runID uuid.UUID) (int, error) {
	return r.exceptions, nil
}

type fakeApprovalCounter struct{ count int }

func (r *fakeApprovalCounter) Create(ctx context.Context, req *domain.ApprovalRequest) error {
	return nil
}

func (r *fakeApprovalCounter) GetByID(ctx context.Context, id uuid.UUID) (*domain.ApprovalRequest, error) {
	return nil, domain.ErrNotFound
}

func (r *fakeApprovalCounter) ListByStatus(ctx context.Context, status domain.ApprovalStatus) ([]domain.ApprovalRequest, error) {
	return nil, nil
}

func (r *fakeApprovalCounter) ListByRun(ctx context.Context, runID uuid.UUID) ([]domain.ApprovalRequest, error) {
	return nil, nil
}

func (r *fakeApprovalCounter) Decide(ctx context.Context, id uuid.UUID, status domain.ApprovalStatus, approver, notes string) error {
	return nil
}

func (r *fakeApprovalCounter) CountByRun(ctx context.Context, runID uuid.UUID) (int, error) {
	return r.count, nil
}

type fakeMISRepo struct{ byMonth map[string]*domain.MISReport }

func newFakeMISRepo() *fakeMISRepo {
	return &fakeMISRepo{byMonth: map[string]*domain.MISReport{}}
}

func (r *fakeMISRepo) Create(ctx context.Context, report *domain.MISReport) error {
	cp := *report
	r.byMonth[report.Month] = &cp
	return nil
}

func (r *fakeMISRepo) GetByRun(ctx context.Context, runID uuid.UUID) (*domain.MISReport, error) {
	for _, rep := range r.byMonth {
		if rep.RunID == runID {
			return rep, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *fakeMISRepo) GetByMonth(ctx context.Context, channel domain.Channel, gstin, month string) (*domain.MISReport, error) {
	if rep, ok := r.byMonth[month]; ok {
		return rep, nil
	}
	return nil, domain.ErrNotFound
}

var _ port.PivotRepository = (*fakePivotRepo)(nil)
var _ port.SellerInvoiceRepository = (*fakeInvoiceRepo)(nil)
var _ port.ExceptionRepository = (*fakeCountRepo)(nil)
var _ port.ApprovalRepository = (*fakeApprovalCounter)(nil)
var _ port.MISRepository = (*fakeMISRepo)(nil)

func summary(taxable float64, cgst, sgst, igst float64, records, qty int, fg string, isReturn bool) domain.PivotSummary {
	return domain.PivotSummary{
		GSTRate:       decimal.NewFromFloat(0.18),
		FG:            fg,
		TotalQuantity: qty,
		TotalTaxable:  decimal.NewFromFloat(taxable),
		TotalCGST:     decimal.NewFromFloat(cgst),
		TotalSGST:     decimal.NewFromFloat(sgst),
		TotalIGST:     decimal.NewFromFloat(igst),
		IsReturn:      isReturn,
		RecordCount:   records,
	}
}

func fee(expenseType domain.ExpenseType, taxable, cgst, sgst, igst float64) domain.SellerInvoice {
	return domain.SellerInvoice{
		ID:           uuid.New(),
		ExpenseType:  expenseType,
		TaxableValue: decimal.NewFromFloat(taxable),
		CGST:         decimal.NewFromFloat(cgst),
		SGST:         decimal.NewFromFloat(sgst),
		IGST:         decimal.NewFromFloat(igst),
		InvoiceDate:  time.Date(2025, 4, 30, 0, 0, 0, 0, time.UTC),
	}
}

func newGenerator(pivots *fakePivotRepo, invoices *fakeInvoiceRepo, exc *fakeCountRepo, app *fakeApprovalCounter, reports *fakeMISRepo) *mis.Generator {
	return mis.NewGenerator(pivots, invoices, exc, app, reports)
}

func TestGenerate_Metrics(t *testing.T) {
	pivots := &fakePivotRepo{summaries: []domain.PivotSummary{
		summary(10000, 900, 900, 0, 80, 100, "Chair_FG", false),
		summary(5000, 0, 0, 900, 15, 20, "Table_FG", false),
		summary(-1000, -90, -90, 0, 5, -2, "Chair_FG", true),
	}}
	invoices := &fakeInvoiceRepo{invoices: []domain.SellerInvoice{
		fee(domain.ExpenseCommission, 2000, 180, 180, 0),
		fee(domain.ExpenseShippingFee, 500, 0, 0, 90),
		fee(domain.ExpenseOther, 300, 27, 27, 0),
	}}
	reports := newFakeMISRepo()
	g := newGenerator(pivots, invoices, &fakeCountRepo{exceptions: 3}, &fakeApprovalCounter{count: 2}, reports)

	report, err := g.Generate(context.Background(), uuid.New(), domain.ChannelAmazonMTR, "06ABCDE1234F1Z5", "2025-04")
	require.NoError(t, err)

	assert.True(t, report.Sales.TotalSales.Equal(decimal.NewFromInt(15000)), report.Sales.TotalSales.String())
	assert.True(t, report.Sales.TotalReturns.Equal(decimal.NewFromInt(1000)))
	assert.True(t, report.Sales.NetSales.Equal(decimal.NewFromInt(14000)))
	assert.Equal(t, 100, report.Sales.TotalTransactions)
	assert.Equal(t, 2, report.Sales.TotalSKUs)
	assert.Equal(t, 118, report.Sales.TotalQuantity)
	assert.True(t, report.Sales.AvgOrderValue.Equal(decimal.NewFromInt(140)))

	assert.True(t, report.Expenses.Commission.Equal(decimal.NewFromInt(2000)))
	assert.True(t, report.Expenses.Shipping.Equal(decimal.NewFromInt(500)))
	assert.True(t, report.Expenses.Other.Equal(decimal.NewFromInt(300)))
	assert.True(t, report.Expenses.TotalExpenses.Equal(decimal.NewFromInt(2800)))

	assert.True(t, report.GST.OutputCGST.Equal(decimal.NewFromInt(810)))
	assert.True(t, report.GST.OutputIGST.Equal(decimal.NewFromInt(900)))
	assert.True(t, report.GST.NetGSTOutput.Equal(decimal.NewFromInt(2520)))
	assert.True(t, report.GST.NetGSTInput.Equal(decimal.NewFromInt(504)))
	assert.True(t, report.GST.GSTLiability.Equal(decimal.NewFromInt(2016)))

	assert.True(t, report.Profitability.GrossProfit.Equal(decimal.NewFromInt(11200)))
	assert.True(t, report.Profitability.ProfitMargin.Equal(decimal.NewFromInt(80)))
	assert.True(t, report.Profitability.RevenuePerTxn.Equal(decimal.NewFromInt(140)))
	assert.True(t, report.Profitability.CostPerTxn.Equal(decimal.NewFromInt(28)))
	// 1000 / 15000 * 100 rounded.
	assert.Equal(t, "6.67", report.Profitability.ReturnRate.StringFixed(2))

	assert.Equal(t, 3, report.ExceptionCount)
	assert.Equal(t, 2, report.ApprovalCount)
	// 100 - 100*(3+2)/100.
	assert.True(t, report.DataQualityScore.Equal(decimal.NewFromInt(95)))

	persisted, err := reports.GetByMonth(context.Background(), domain.ChannelAmazonMTR, "06ABCDE1234F1Z5", "2025-04")
	require.NoError(t, err)
	assert.Equal(t, report.RunID, persisted.RunID)
}

func TestGenerate_EmptyRun(t *testing.T) {
	g := newGenerator(&fakePivotRepo{}, &fakeInvoiceRepo{}, &fakeCountRepo{}, &fakeApprovalCounter{}, newFakeMISRepo())
	report, err := g.Generate(context.Background(), uuid.New(), domain.ChannelFlipkart, "29AAAAA0000A1Z5", "2025-05")
	require.NoError(t, err)

	assert.True(t, report.Sales.NetSales.IsZero())
	assert.True(t, report.Sales.AvgOrderValue.IsZero())
	assert.True(t, report.Profitability.ProfitMargin.IsZero())
	assert.True(t, report.DataQualityScore.Equal(decimal.NewFromInt(100)))
}

func TestGrowthRate(t *testing.T) {
	assert.True(t, mis.GrowthRate(decimal.NewFromInt(100), decimal.NewFromInt(150)).Equal(decimal.NewFromInt(50)))
	assert.True(t, mis.GrowthRate(decimal.NewFromInt(200), decimal.NewFromInt(150)).Equal(decimal.NewFromInt(-25)))
	assert.True(t, mis.GrowthRate(decimal.Zero, decimal.NewFromInt(10)).Equal(decimal.NewFromInt(100)))
	assert.True(t, mis.GrowthRate(decimal.Zero, decimal.Zero).IsZero())
	assert.True(t, mis.GrowthRate(decimal.Zero, decimal.NewFromInt(-5)).IsZero())
}

func TestCompare(t *testing.T) {
	reports := newFakeMISRepo()
	older := &domain.MISReport{RunID: uuid.New(), Month: "2025-03"}
	older.Sales.NetSales = decimal.NewFromInt(10000)
	older.Expenses.TotalExpenses = decimal.NewFromInt(2000)
	older.Profitability.GrossProfit = decimal.NewFromInt(8000)
	older.GST.GSTLiability = decimal.NewFromInt(1800)
	require.NoError(t, reports.Create(context.Background(), older))

	newer := &domain.MISReport{RunID: uuid.New(), Month: "2025-04"}
	newer.Sales.NetSales = decimal.NewFromInt(12000)
	newer.Expenses.TotalExpenses = decimal.NewFromInt(1500)
	newer.Profitability.GrossProfit = decimal.NewFromInt(10500)
	newer.GST.GSTLiability = decimal.NewFromInt(2160)
	require.NoError(t, reports.Create(context.Background(), newer))

	g := newGenerator(&fakePivotRepo{}, &fakeInvoiceRepo{}, &fakeCountRepo{}, &fakeApprovalCounter{}, reports)
	cmp, err := g.Compare(context.Background(), domain.ChannelAmazonMTR, "06ABCDE1234F1Z5", "2025-03", "2025-04")
	require.NoError(t, err)

	assert.Equal(t, "2025-03", cmp.OldMonth)
	assert.True(t, cmp.SalesGrowth.Equal(decimal.NewFromInt(20)))
	assert.True(t, cmp.ExpenseGrowth.Equal(decimal.NewFromInt(-25)))
	assert.True(t, cmp.ProfitGrowth.Equal(decimal.NewFromFloat(31.25)))
	assert.True(t, cmp.GSTGrowth.Equal(decimal.NewFromInt(20)))

	_, err = g.Compare(context.Background(), domain.ChannelAmazonMTR, "06ABCDE1234F1Z5", "2024-03", "2025-04")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestExportCSV(t *testing.T) {
	r := &domain.MISReport{
		RunID: uuid.New(), Channel: domain.ChannelAmazonMTR,
		GSTIN: "06ABCDE1234F1Z5", Month: "2025-04",
		ExceptionCount: 3, ApprovalCount: 2,
		DataQualityScore: decimal.NewFromInt(95),
	}
	r.Sales.NetSales = decimal.NewFromFloat(14000)

	data, err := mis.ExportCSV(r)
	require.NoError(t, err)

	records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Len(t, records[1], len(records[0]))
	assert.Equal(t, "run_id", records[0][0])
	assert.Equal(t, "2025-04", records[1][3])
	assert.Equal(t, "14000.00", records[1][6])
	assert.Equal(t, "95.00", records[1][len(records[1])-1])
}

func TestExportExcel(t *testing.T) {
	r := &domain.MISReport{
		RunID: uuid.New(), Channel: domain.ChannelPepperfry,
		GSTIN: "06ABCDE1234F1Z5", Month: "2025-04",
		DataQualityScore: decimal.NewFromInt(100),
	}
	r.Sales.TotalSales = decimal.NewFromInt(5000)

	data, err := mis.ExportExcel(r)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()
	sheet := f.GetSheetName(0)

	a1, err := f.GetCellValue(sheet, "A1")
	require.NoError(t, err)
	assert.Equal(t, "Run", a1)
	b3, err := f.GetCellValue(sheet, "B3")
	require.NoError(t, err)
	assert.Equal(t, "Pepperfry", b3)
	b8, err := f.GetCellValue(sheet, "B8")
	require.NoError(t, err)
	assert.Equal(t, "5000.00", b8)
}
