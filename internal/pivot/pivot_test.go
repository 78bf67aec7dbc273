package pivot_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"x2beta/internal/domain"
	"x2beta/internal/pivot"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func row(rate, taxable, cgst, sgst, igst string, ledger, fg string) domain.NormalizedRow {
	return domain.NormalizedRow{
		GSTRate:      dec(rate),
		TaxableValue: dec(taxable),
		CGST:         dec(cgst),
		SGST:         dec(sgst),
		IGST:         dec(igst),
		Ledger:       ledger,
		FG:           fg,
		Quantity:     1,
	}
}

func TestBuild_GroupsByRateLedgerFGReturn(t *testing.T) {
	rows := []domain.NormalizedRow{
		row("0.18", "100", "9", "9", "0", "Amazon HR", "Widget"),
		row("0.18", "200", "18", "18", "0", "Amazon HR", "Widget"),
		row("0.18", "50", "0", "0", "9", "Amazon DL", "Widget"),
		row("0.05", "100", "2.5", "2.5", "0", "Amazon HR", "Gadget"),
	}
	rows[0].IsReturn = false
	returns := row("0.18", "-100", "-9", "-9", "0", "Amazon HR", "Widget")
	returns.IsReturn = true
	rows = append(rows, returns)

	out := pivot.Build(uuid.New(), domain.ChannelAmazonMTR, "06ABCDE1234F1Z5", "2024-04", rows)
	require.Len(t, out, 4)

	// Sorted by rate first, then ledger, returns last.
	assert.True(t, out[0].GSTRate.Equal(dec("0.05")))
	assert.Equal(t, "Amazon DL", out[1].Ledger)
	assert.Equal(t, "Amazon HR", out[2].Ledger)
	assert.False(t, out[2].IsReturn)
	assert.True(t, out[3].IsReturn)

	merged := out[2]
	assert.True(t, merged.TotalTaxable.Equal(dec("300")), "taxable = %s", merged.TotalTaxable)
	assert.True(t, merged.TotalCGST.Equal(dec("27")))
	assert.Equal(t, 2, merged.RecordCount)
	assert.Equal(t, 2, merged.TotalQuantity)
}

func TestBuild_FlipkartSplitsByState(t *testing.T) {
	a := row("0.18", "100", "9", "9", "0", "Flipkart Sales", "Widget")
	a.StateCode = "HR"
	b := row("0.18", "100", "0", "0", "18", "Flipkart Sales", "Widget")
	b.StateCode = "KA"

	out := pivot.Build(uuid.New(), domain.ChannelFlipkart, "06ABCDE1234F1Z5", "2024-04", []domain.NormalizedRow{a, b})
	require.Len(t, out, 2)
	assert.Equal(t, "HR", out[0].StateCode)
	assert.Equal(t, "KA", out[1].StateCode)
}

func TestBuild_STRForcesIGSTOnly(t *testing.T) {
	a := row("0.18", "100", "9", "9", "0", "Amazon STR", "Widget")

	out := pivot.Build(uuid.New(), domain.ChannelAmazonSTR, "06ABCDE1234F1Z5", "2024-04", []domain.NormalizedRow{a})
	require.Len(t, out, 1)
	assert.True(t, out[0].TotalCGST.IsZero())
	assert.True(t, out[0].TotalSGST.IsZero())
}

func TestBuild_DropsZeroTaxableGroups(t *testing.T) {
	rows := []domain.NormalizedRow{
		row("0.18", "100", "9", "9", "0", "Amazon HR", "Widget"),
		row("0.18", "-100", "-9", "-9", "0", "Amazon HR", "Widget"),
	}
	out := pivot.Build(uuid.New(), domain.ChannelAmazonMTR, "06ABCDE1234F1Z5", "2024-04", rows)
	assert.Empty(t, out)
}

func TestBuild_PepperfryUsesNetQuantity(t *testing.T) {
	a := row("0.18", "800", "72", "72", "0", "Pepperfry HR", "Chair")
	a.Quantity = 10
	a.NetQty = 8

	out := pivot.Build(uuid.New(), domain.ChannelPepperfry, "06ABCDE1234F1Z5", "2024-04", []domain.NormalizedRow{a})
	require.Len(t, out, 1)
	assert.Equal(t, 8, out[0].TotalQuantity)
}

func TestBatchFileName(t *testing.T) {
	assert.Equal(t,
		"amazon_mtr_06ABGCS4796R1ZA_2025-08_18pct_batch.csv",
		pivot.BatchFileName(domain.ChannelAmazonMTR, "06ABGCS4796R1ZA", "2025-08", dec("0.18")))
	assert.Equal(t,
		"flipkart_06ABGCS4796R1ZA_2025-08_5pct_batch.csv",
		pivot.BatchFileName(domain.ChannelFlipkart, "06ABGCS4796R1ZA", "2025-08", dec("0.05")))
}

func TestSplitBatches_ConservesPivotTotals(t *testing.T) {
	dir := t.TempDir()
	rows := []domain.NormalizedRow{
		row("0.18", "100", "9", "9", "0", "Amazon HR", "Widget"),
		row("0.18", "50", "0", "0", "9", "Amazon DL", "Widget"),
		row("0.05", "100", "2.5", "2.5", "0", "Amazon HR", "Gadget"),
	}
	summaries := pivot.Build(uuid.New(), domain.ChannelAmazonMTR, "06ABCDE1234F1Z5", "2024-04", rows)
	require.Len(t, summaries, 3)

	batches, err := pivot.SplitBatches(dir, uuid.New(), domain.ChannelAmazonMTR, "06ABCDE1234F1Z5", "2024-04", summaries)
	require.NoError(t, err)
	require.Len(t, batches, 2)

	require.NoError(t, pivot.ValidateConservation(summaries, batches))

	for _, b := range batches {
		_, err := os.Stat(b.FilePath)
		assert.NoError(t, err)
		assert.Equal(t, dir, filepath.Dir(b.FilePath))
	}
}

func TestSplitBatches_EmptyPivotIsAnError(t *testing.T) {
	_, err := pivot.SplitBatches(t.TempDir(), uuid.New(), domain.ChannelAmazonMTR, "06ABCDE1234F1Z5", "2024-04", nil)
	assert.ErrorIs(t, err, domain.ErrNoBatchFiles)
}

func TestBatchCSV_RoundTrip(t *testing.T) {
	s := domain.PivotSummary{
		GSTIN:         "06ABCDE1234F1Z5",
		Month:         "2024-04",
		StateCode:     "HR",
		FG:            "Widget",
		Ledger:        "Amazon HR",
		InvoiceNo:     "AMZ-HR-04-0001",
		GSTRate:       dec("0.18"),
		TotalQuantity: 3,
		TotalTaxable:  dec("300.50"),
		TotalCGST:     dec("27.05"),
		TotalSGST:     dec("27.05"),
		RecordCount:   3,
	}
	data, err := pivot.MarshalBatchCSV([]domain.PivotSummary{s})
	require.NoError(t, err)

	back, err := pivot.UnmarshalBatchCSV(data)
	require.NoError(t, err)
	require.Len(t, back, 1)
	assert.Equal(t, s.InvoiceNo, back[0].InvoiceNo)
	assert.True(t, back[0].TotalTaxable.Equal(s.TotalTaxable))
	assert.True(t, back[0].GSTRate.Equal(s.GSTRate))
}

func TestValidateConservation_DetectsDrift(t *testing.T) {
	summaries := []domain.PivotSummary{{RecordCount: 1, TotalTaxable: dec("100"), TotalCGST: dec("9"), TotalSGST: dec("9")}}
	batches := []domain.BatchFile{{RecordCount: 1, TotalTaxable: dec("99"), TotalTax: dec("18")}}
	assert.Error(t, pivot.ValidateConservation(summaries, batches))

	batches[0].TotalTaxable = dec("100")
	assert.NoError(t, pivot.ValidateConservation(summaries, batches))

	batches[0].RecordCount = 2
	assert.Error(t, pivot.ValidateConservation(summaries, batches))
}
