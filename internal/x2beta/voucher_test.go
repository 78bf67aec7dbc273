package x2beta_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"x2beta/internal/domain"
	"x2beta/internal/x2beta"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func summary() domain.PivotSummary {
	return domain.PivotSummary{
		GSTIN:         "06ABCDE1234F1Z5",
		Month:         "2024-04",
		GSTRate:       dec("0.18"),
		Ledger:        "Amazon Haryana",
		FG:            "Widget",
		InvoiceNo:     "AMZ-HR-04-0001",
		TotalQuantity: 4,
		TotalTaxable:  dec("1000"),
		TotalCGST:     dec("90"),
		TotalSGST:     dec("90"),
		RecordCount:   4,
	}
}

func TestMapSalesVoucher_Intrastate(t *testing.T) {
	s := summary()
	v, err := x2beta.MapSalesVoucher(&s, 1)
	require.NoError(t, err)

	assert.Equal(t, "AMZ-HR-04-0001", v.VoucherNo)
	assert.Equal(t, domain.VoucherTypeSales, v.VoucherType)
	assert.Equal(t, "Output CGST @ 18%", v.CGSTLedger)
	assert.Equal(t, "Output SGST @ 18%", v.SGSTLedger)
	assert.Empty(t, v.IGSTLedger)
	assert.True(t, v.TotalAmount.Equal(dec("1180")), "total = %s", v.TotalAmount)
	assert.True(t, v.Rate.Equal(dec("250")))
	assert.True(t, v.Balanced())
	assert.Equal(t, "01-04-2024", v.Date.Format("02-01-2006"))
}

func TestMapSalesVoucher_Interstate(t *testing.T) {
	s := summary()
	s.TotalCGST = decimal.Zero
	s.TotalSGST = decimal.Zero
	s.TotalIGST = dec("180")

	v, err := x2beta.MapSalesVoucher(&s, 1)
	require.NoError(t, err)
	assert.Equal(t, "Output IGST @ 18%", v.IGSTLedger)
	assert.Empty(t, v.CGSTLedger)
	assert.True(t, v.TotalAmount.Equal(dec("1180")))
	assert.True(t, v.Balanced())
}

func TestMapSalesVoucher_SynthesizesVoucherNo(t *testing.T) {
	s := summary()
	s.InvoiceNo = ""
	v, err := x2beta.MapSalesVoucher(&s, 7)
	require.NoError(t, err)
	assert.Equal(t, "SL2024040007", v.VoucherNo)
}

func TestMapSalesVoucher_RejectsBadMonth(t *testing.T) {
	s := summary()
	s.Month = "April"
	_, err := x2beta.MapSalesVoucher(&s, 1)
	assert.ErrorIs(t, err, domain.ErrInvalidMonth)
}

func TestValidateVouchers_CatchesImbalance(t *testing.T) {
	s := summary()
	v, err := x2beta.MapSalesVoucher(&s, 1)
	require.NoError(t, err)
	require.NoError(t, x2beta.ValidateVouchers([]domain.X2BetaVoucher{v}))

	v.TotalAmount = v.TotalAmount.Add(dec("5"))
	assert.ErrorIs(t, x2beta.ValidateVouchers([]domain.X2BetaVoucher{v}), domain.ErrVoucherUnbalanced)
}

func TestOutputFileName(t *testing.T) {
	assert.Equal(t,
		"amazon_mtr_06ABGCS4796R1ZA_2025-08_18pct_x2beta.xlsx",
		x2beta.OutputFileName(domain.ChannelAmazonMTR, "06ABGCS4796R1ZA", "2025-08", dec("0.18")))
}

func TestRegistry_LookupDefaults(t *testing.T) {
	r := x2beta.NewRegistry(t.TempDir())
	info := r.Lookup("06ABCDE1234F1Z5")
	assert.Equal(t, "X2Beta Sales Template - 06ABCDE1234F1Z5.xlsx", info.FileName)
	assert.Equal(t, "Haryana", info.StateName)
}

func TestRegistry_ResolveMissingTemplate(t *testing.T) {
	r := x2beta.NewRegistry(t.TempDir())
	_, _, err := r.Resolve("06ABCDE1234F1Z5")
	assert.ErrorIs(t, err, domain.ErrTemplateMissing)
}

// writeTemplate builds a minimal sales template: title rows, header at row 4,
// and one stale data row that rendering must clear.
func writeTemplate(t *testing.T, dir string) string {
	t.Helper()
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetCellValue(sheet, "A1", "X2Beta Sales Voucher Import"))
	headers := []string{
		"Date", "Voucher No.", "Voucher Type", "Party Ledger", "Item Name",
		"Quantity", "Rate", "Taxable Amount",
		"CGST Ledger", "CGST Amount", "SGST Ledger", "SGST Amount",
		"IGST Ledger", "IGST Amount", "Total Amount", "Narration",
	}
	for i, h := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 4)
		require.NoError(t, err)
		require.NoError(t, f.SetCellValue(sheet, cell, h))
	}
	require.NoError(t, f.SetCellValue(sheet, "A5", "stale"))

	path := filepath.Join(dir, "template.xlsx")
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())
	return path
}

func TestRenderToFile_WritesVoucherRows(t *testing.T) {
	dir := t.TempDir()
	tmpl := writeTemplate(t, dir)

	s := summary()
	vouchers, err := x2beta.MapSalesVouchers([]domain.PivotSummary{s, s})
	require.NoError(t, err)

	path, size, err := x2beta.RenderToFile(dir, tmpl, domain.ChannelAmazonMTR, s.GSTIN, s.Month, s.GSTRate, vouchers)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "amazon_mtr_06ABCDE1234F1Z5_2024-04_18pct_x2beta.xlsx"), path)
	assert.Positive(t, size)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, x2beta.ValidateWorkbook(data, 2))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	sheet := f.GetSheetName(0)

	no, err := f.GetCellValue(sheet, "B5")
	require.NoError(t, err)
	assert.Equal(t, "AMZ-HR-04-0001", no)

	// The stale template row was cleared, not shifted below the vouchers.
	c, err := f.GetCellValue(sheet, "A7")
	require.NoError(t, err)
	assert.Empty(t, c)
}
