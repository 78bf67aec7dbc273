package exception_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"x2beta/internal/domain"
	"x2beta/internal/exception"
)

type fakeExceptionRepo struct {
	batches [][]domain.Exception
}

func (r *fakeExceptionRepo) CreateBatch(ctx context.Context, exceptions []domain.Exception) error {
	r.batches = append(r.batches, exceptions)
	return nil
}

func (r *fakeExceptionRepo) ListByRun(ctx context.Context, runID uuid.UUID) ([]domain.Exception, error) {
	var out []domain.Exception
	for _, b := range r.batches {
		out = append(out, b...)
	}
	return out, nil
}

func (r *fakeExceptionRepo) CountByRun(ctx context.Context, runID uuid.UUID) (int, error) {
	n := 0
	for _, b := range r.batches {
		n += len(b)
	}
	return n, nil
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestRecorder_FlushesInBatches(t *testing.T) {
	repo := &fakeExceptionRepo{}
	r := exception.NewRecorder(repo, uuid.New(), 3)
	ctx := context.Background()

	for i := 0; i < 7; i++ {
		require.NoError(t, r.Record(ctx, domain.CodeNegativeAmount, "normalized_row", "r", "negative", nil))
	}
	// Two full batches auto-flushed, one remainder pending.
	assert.Len(t, repo.batches, 2)
	require.NoError(t, r.Flush(ctx))
	assert.Len(t, repo.batches, 3)
	assert.Len(t, repo.batches[2], 1)
	assert.Equal(t, 7, r.Total())

	// Idempotent when the buffer is empty.
	require.NoError(t, r.Flush(ctx))
	assert.Len(t, repo.batches, 3)
}

func TestRecorder_RemembersFirstCritical(t *testing.T) {
	r := exception.NewRecorder(&fakeExceptionRepo{}, uuid.New(), 100)
	ctx := context.Background()

	require.NoError(t, r.Record(ctx, domain.CodeNegativeAmount, "normalized_row", "a", "warn", nil))
	assert.Nil(t, r.Critical())

	require.NoError(t, r.Record(ctx, domain.CodeInvalidGSTRate, "normalized_row", "b", "first critical", nil))
	require.NoError(t, r.Record(ctx, domain.CodeMissingColumn, "report", "c", "second critical", nil))

	require.NotNil(t, r.Critical())
	assert.Equal(t, domain.CodeInvalidGSTRate, r.Critical().Code)
	assert.Equal(t, "b", r.Critical().RecordID)
}

func TestRecorder_StampsSeverityFromCatalog(t *testing.T) {
	repo := &fakeExceptionRepo{}
	r := exception.NewRecorder(repo, uuid.New(), 1)
	require.NoError(t, r.Record(context.Background(), domain.CodeMissingSKUMapping, "normalized_row", "x", "m", nil))
	require.Len(t, repo.batches, 1)
	assert.Equal(t, domain.SeverityError, repo.batches[0][0].Severity)
}

func TestDetectMapping(t *testing.T) {
	repo := &fakeExceptionRepo{}
	r := exception.NewRecorder(repo, uuid.New(), 1)
	rows := []domain.NormalizedRow{
		{OrderID: "o1", SKU: "S1", FG: "Widget", Ledger: "Amazon HR", StateCode: "HR"},
		{OrderID: "o2", SKU: "S2", Ledger: "Amazon HR", StateCode: "HR"},
		{OrderID: "o3", ASIN: "B0TEST", FG: "Widget", StateCode: "XX"},
	}
	require.NoError(t, exception.DetectMapping(context.Background(), r, rows))

	codes := recorded(repo)
	assert.Contains(t, codes, domain.CodeMissingSKUMapping)
	assert.Contains(t, codes, domain.CodeMissingLedger)
	assert.Contains(t, codes, domain.CodeInvalidStateCode)
	assert.Equal(t, 3, r.Total())
}

func TestDetectGST(t *testing.T) {
	repo := &fakeExceptionRepo{}
	r := exception.NewRecorder(repo, uuid.New(), 1)
	rows := []domain.NormalizedRow{
		{GSTRate: dec("0.18"), TaxableValue: dec("100"), CGST: dec("9"), SGST: dec("9")},
		{GSTRate: dec("0.17"), TaxableValue: dec("100")},
		{GSTRate: dec("0.18"), TaxableValue: dec("100"), IGST: dec("25")},
	}
	require.NoError(t, exception.DetectGST(context.Background(), r, rows))

	codes := recorded(repo)
	assert.Contains(t, codes, domain.CodeInvalidGSTRate)
	assert.Contains(t, codes, domain.CodeTaxMismatch)
	assert.Equal(t, 2, r.Total())
	require.NotNil(t, r.Critical())
	assert.Equal(t, domain.CodeInvalidGSTRate, r.Critical().Code)
}

func TestDetectInvoice(t *testing.T) {
	repo := &fakeExceptionRepo{}
	r := exception.NewRecorder(repo, uuid.New(), 1)
	now := time.Now().UTC()
	rows := []domain.NormalizedRow{
		{InvoiceNo: "AMZ-HR-04-0001", InvoiceDate: now},
		{InvoiceNo: "AMZ-HR-04-0001", InvoiceDate: now},
		{InvoiceNo: "FLIP-HR-04-0001", InvoiceDate: now},
		{InvoiceNo: "AMZ-HR-04-0002"},
	}
	require.NoError(t, exception.DetectInvoice(context.Background(), r, domain.ChannelAmazonMTR, rows))

	codes := recorded(repo)
	assert.Contains(t, codes, domain.CodeDuplicateInvoiceNo)
	assert.Contains(t, codes, domain.CodeInvoiceFormat)
	assert.Contains(t, codes, domain.CodeInvoiceDate)
}

func TestDetectDataQuality(t *testing.T) {
	repo := &fakeExceptionRepo{}
	r := exception.NewRecorder(repo, uuid.New(), 1)
	rows := []domain.NormalizedRow{
		{SKU: "S1", Quantity: 1, TaxableValue: dec("-5")},
		{SKU: "S2", Quantity: 0, TaxableValue: dec("5")},
		{Quantity: 1, TaxableValue: dec("5")},
		{SKU: "S3", Quantity: 2, TaxableValue: dec("-5"), IsReturn: true},
	}
	require.NoError(t, exception.DetectDataQuality(context.Background(), r, rows))

	codes := recorded(repo)
	assert.Contains(t, codes, domain.CodeNegativeAmount)
	assert.Contains(t, codes, domain.CodeBadQuantity)
	assert.Contains(t, codes, domain.CodeMissingValue)
	assert.Equal(t, 3, r.Total())
}

func TestDetectSchema(t *testing.T) {
	repo := &fakeExceptionRepo{}
	r := exception.NewRecorder(repo, uuid.New(), 1)
	require.NoError(t, exception.DetectSchema(context.Background(), r, "amazon_mtr", []string{"gstin", "quantity"}))
	assert.Equal(t, 2, r.Total())
	require.NotNil(t, r.Critical())
	assert.Equal(t, domain.CodeMissingColumn, r.Critical().Code)
}

func recorded(repo *fakeExceptionRepo) []domain.ErrorCode {
	var codes []domain.ErrorCode
	for _, b := range repo.batches {
		for _, e := range b {
			codes = append(codes, e.Code)
		}
	}
	return codes
}
