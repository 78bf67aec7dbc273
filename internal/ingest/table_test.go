package ingest_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"x2beta/internal/domain"
	"x2beta/internal/ingest"
)

func TestNormalizeHeader(t *testing.T) {
	assert.Equal(t, "ship_to_state", ingest.NormalizeHeader("Ship To State"))
	assert.Equal(t, "customer_s_delivery_state", ingest.NormalizeHeader("Customer's Delivery State"))
	assert.Equal(t, "gst_rate", ingest.NormalizeHeader("  GST Rate (%) "))
	assert.Equal(t, "sku", ingest.NormalizeHeader("SKU"))
}

func TestReadTable_CSV(t *testing.T) {
	csv := "Order Id,Seller SKU,Principal Amount\n" +
		"403-0001,STD-001,999.50\n" +
		"403-0002,STD-002\n" // short row

	table, err := ingest.ReadTable("mtr.csv", []byte(csv))
	require.NoError(t, err)

	assert.Equal(t, 2, table.Len())
	assert.Equal(t, "ascii", table.Encoding)
	assert.True(t, table.HasColumn("seller_sku"))
	assert.False(t, table.HasColumn("asin"))
	assert.Equal(t, "999.50", table.Cell(0, "principal_amount"))
	assert.Equal(t, "", table.Cell(1, "principal_amount"))

	v, present := table.First(0, []string{"sku", "seller_sku"})
	assert.True(t, present)
	assert.Equal(t, "STD-001", v)

	_, present = table.First(0, []string{"asin", "asin_code"})
	assert.False(t, present)
}

func TestReadTable_UnsupportedExtension(t *testing.T) {
	_, err := ingest.ReadTable("report.pdf", []byte("x"))
	assert.ErrorIs(t, err, domain.ErrUnsupportedInput)

	_, err = ingest.ReadTable("empty.csv", nil)
	assert.ErrorIs(t, err, domain.ErrUnsupportedInput)
}

func TestDetectEncoding(t *testing.T) {
	text, enc := ingest.DetectEncoding([]byte{0xEF, 0xBB, 0xBF, 'a', 'b'})
	assert.Equal(t, "utf-8-sig", enc)
	assert.Equal(t, "ab", string(text))

	_, enc = ingest.DetectEncoding([]byte("plain,csv\n1,2\n"))
	assert.Equal(t, "ascii", enc)

	_, enc = ingest.DetectEncoding([]byte("héllo")) // valid multibyte UTF-8
	assert.Equal(t, "utf-8", enc)

	// 0x93 is a smart quote in Windows-1252 and a control byte in Latin-1.
	text, enc = ingest.DetectEncoding([]byte{'a', 0x93, 'b'})
	assert.Equal(t, "windows-1252", enc)
	assert.Equal(t, "a“b", string(text))

	// 0xE9 alone is invalid UTF-8 and outside the 1252-only range.
	text, enc = ingest.DetectEncoding([]byte{'c', 0xE9, 'd'})
	assert.Equal(t, "latin-1", enc)
	assert.Equal(t, "céd", string(text))
}

func TestValidateTableSchema(t *testing.T) {
	csv := "Invoice Date,GST Rate,State Code,SKU\n2025-04-01,18,HR,STD-001\n"
	table, err := ingest.ReadTable("in.csv", []byte(csv))
	require.NoError(t, err)

	res := ingest.ValidateTableSchema(table, []string{"sku", "invoice_date"})
	assert.True(t, res.Valid)
	assert.Empty(t, res.Missing)

	res = ingest.ValidateTableSchema(table, []string{"taxable_value"})
	assert.False(t, res.Valid)
	assert.Equal(t, []string{"taxable_value"}, res.Missing)
}

func TestValidateSchema_ValueLevel(t *testing.T) {
	rows := []domain.NormalizedRow{
		{
			InvoiceDate:  time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC),
			SKU:          "STD-001",
			TaxableValue: decimal.NewFromInt(100),
			StateCode:    "HR",
		},
		{
			InvoiceDate:  time.Date(2025, 4, 2, 0, 0, 0, 0, time.UTC),
			SKU:          "STD-002",
			TaxableValue: decimal.NewFromInt(200),
			StateCode:    "KA",
		},
	}

	// No row carries a GST rate.
	res := ingest.ValidateSchema(rows, []string{"sku", "taxable_value"})
	assert.False(t, res.Valid)
	assert.Equal(t, []string{"gst_rate"}, res.Missing)

	rows[1].GSTRate = decimal.NewFromFloat(0.18)
	res = ingest.ValidateSchema(rows, []string{"sku", "taxable_value"})
	assert.True(t, res.Valid)
}

func TestWriteReadCSV_StableOrder(t *testing.T) {
	rows := []domain.NormalizedRow{
		{StateCode: "KA", OrderID: "B", SKU: "STD-002", TaxableValue: decimal.NewFromFloat(200.5),
			InvoiceDate: time.Date(2025, 4, 2, 0, 0, 0, 0, time.UTC), Quantity: 1,
			Channel: domain.ChannelAmazonMTR, GSTIN: "06ABCDE1234F1Z5", Month: "2025-04",
			GSTRate: decimal.NewFromFloat(0.18)},
		{StateCode: "HR", OrderID: "A", SKU: "STD-001", TaxableValue: decimal.NewFromFloat(100.25),
			InvoiceDate: time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC), Quantity: 2,
			Channel: domain.ChannelAmazonMTR, GSTIN: "06ABCDE1234F1Z5", Month: "2025-04",
			GSTRate: decimal.NewFromFloat(0.18), IsReturn: true},
	}
	ingest.SortRows(rows)
	assert.Equal(t, "HR", rows[0].StateCode)

	data, err := ingest.WriteCSV(rows)
	require.NoError(t, err)
	assert.Equal(t, ingest.BOM, data[:3])

	back, err := ingest.ReadCSV(data)
	require.NoError(t, err)
	require.Len(t, back, 2)
	assert.Equal(t, "A", back[0].OrderID)
	assert.True(t, back[0].TaxableValue.Equal(decimal.NewFromFloat(100.25)))
	assert.True(t, back[0].IsReturn)
	assert.Equal(t, rows[0].InvoiceDate, back[0].InvoiceDate)
}
