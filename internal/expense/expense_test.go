package expense_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"x2beta/internal/domain"
	"x2beta/internal/expense"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

type fakeExtractor struct {
	text string
}

func (f fakeExtractor) ExtractText(ctx context.Context, data []byte) (string, error) {
	return f.text, nil
}

const invoiceText = `Tax Invoice
Invoice No: FK-2024-00123
Invoice Date: 2024-04-30
Seller GSTIN 06ABCDE1234F1Z5
Vendor GSTIN 29AAICA3918J1ZE

Commission Fee       1000.00   1180.00
Shipping Fee          500.00    590.00
Closing Fee            20.00     23.60
`

func TestParse_PDFFeeLines(t *testing.T) {
	p := expense.NewParser(fakeExtractor{text: invoiceText})
	invoices, err := p.Parse(context.Background(), uuid.New(), domain.ChannelFlipkart, "06ABCDE1234F1Z5", "fees.pdf", nil)
	require.NoError(t, err)
	require.Len(t, invoices, 3)

	byType := map[domain.ExpenseType]domain.SellerInvoice{}
	for _, inv := range invoices {
		byType[inv.ExpenseType] = inv
		assert.Equal(t, "FK-2024-00123", inv.InvoiceNo)
		assert.Equal(t, "29AAICA3918J1ZE", inv.VendorGSTIN)
		assert.Equal(t, "2024-04-30", inv.InvoiceDate.Format("2006-01-02"))
		assert.Equal(t, domain.ProcessingStatusParsed, inv.Status)
		assert.True(t, inv.GSTRate.Equal(dec("0.18")), "rate = %s", inv.GSTRate)
	}

	comm := byType[domain.ExpenseCommission]
	assert.True(t, comm.TaxableValue.Equal(dec("1000")))
	assert.True(t, comm.TotalValue.Equal(dec("1180")))
}

func TestParse_SheetFeeLines(t *testing.T) {
	csv := "fee_type,taxable_value,total_value,invoice_no,vendor_gstin\n" +
		"Storage Fee,200,236,AMZ-001,29AAICA3918J1ZE\n" +
		"Sponsored Products Charge,300,354,AMZ-001,29AAICA3918J1ZE\n"
	p := expense.NewParser(fakeExtractor{})
	invoices, err := p.Parse(context.Background(), uuid.New(), domain.ChannelAmazonMTR, "06ABCDE1234F1Z5", "fees.csv", []byte(csv))
	require.NoError(t, err)
	require.Len(t, invoices, 2)
	assert.Equal(t, domain.ExpenseStorageFee, invoices[0].ExpenseType)
	assert.Equal(t, domain.ExpenseAdvertisingFee, invoices[1].ExpenseType)
}

func TestParse_RejectsUnknownExtension(t *testing.T) {
	p := expense.NewParser(fakeExtractor{})
	_, err := p.Parse(context.Background(), uuid.New(), domain.ChannelAmazonMTR, "06ABCDE1234F1Z5", "fees.docx", nil)
	assert.ErrorIs(t, err, domain.ErrUnsupportedInput)
}

func TestNormalizeExpenseType(t *testing.T) {
	assert.Equal(t, domain.ExpenseClosingFee, expense.NormalizeExpenseType("Closing Fee"))
	assert.Equal(t, domain.ExpenseShippingFee, expense.NormalizeExpenseType("Weight Handling Fee"))
	assert.Equal(t, domain.ExpenseFulfillmentFee, expense.NormalizeExpenseType("Pick & Pack Fee"))
	assert.Equal(t, domain.ExpenseOther, expense.NormalizeExpenseType("Mystery Charge"))
}

func baseInvoice() domain.SellerInvoice {
	return domain.SellerInvoice{
		ID:           uuid.New(),
		Channel:      domain.ChannelAmazonMTR,
		GSTIN:        "06ABCDE1234F1Z5",
		InvoiceNo:    "AMZ-001",
		ExpenseType:  domain.ExpenseCommission,
		TaxableValue: dec("1000"),
		GSTRate:      dec("0.18"),
		TotalValue:   dec("1180"),
	}
}

func TestMap_IntrastateVendorSplitsGST(t *testing.T) {
	m, err := expense.NewMapper(domain.ChannelAmazonMTR, "06ABCDE1234F1Z5", "2024-04")
	require.NoError(t, err)

	inv := baseInvoice()
	inv.VendorGSTIN = "06FGHIJ5678K1Z9" // same state as the company
	mapped := m.Map(inv)

	assert.Equal(t, "Amazon Commission", mapped.LedgerName)
	assert.Equal(t, "998599", mapped.HSN)
	assert.True(t, mapped.CGST.Equal(dec("90")))
	assert.True(t, mapped.SGST.Equal(dec("90")))
	assert.True(t, mapped.IGST.IsZero())
	assert.Equal(t, "EXPHR24040001", mapped.VoucherNo)
	assert.Equal(t, domain.ProcessingStatusMapped, mapped.Status)
}

func TestMap_AbsentVendorGSTINUsesIGST(t *testing.T) {
	m, err := expense.NewMapper(domain.ChannelAmazonMTR, "06ABCDE1234F1Z5", "2024-04")
	require.NoError(t, err)

	mapped := m.Map(baseInvoice())
	assert.True(t, mapped.CGST.IsZero())
	assert.True(t, mapped.SGST.IsZero())
	assert.True(t, mapped.IGST.Equal(dec("180")))
}

func TestMap_UnknownTypeFallsBackToOtherCharges(t *testing.T) {
	m, err := expense.NewMapper(domain.ChannelFlipkart, "06ABCDE1234F1Z5", "2024-04")
	require.NoError(t, err)

	inv := baseInvoice()
	inv.Channel = domain.ChannelFlipkart
	inv.ExpenseType = domain.ExpenseOther
	mapped := m.Map(inv)
	assert.Equal(t, "Flipkart Other Charges", mapped.LedgerName)
}

func TestMapAll_SequencesVoucherNumbers(t *testing.T) {
	m, err := expense.NewMapper(domain.ChannelAmazonMTR, "06ABCDE1234F1Z5", "2024-04")
	require.NoError(t, err)

	mapped := m.MapAll([]domain.SellerInvoice{baseInvoice(), baseInvoice(), baseInvoice()})
	require.Len(t, mapped, 3)
	assert.Equal(t, "EXPHR24040001", mapped[0].VoucherNo)
	assert.Equal(t, "EXPHR24040003", mapped[2].VoucherNo)
}

func TestExpandVoucherLines_GroupSumsToZero(t *testing.T) {
	m, err := expense.NewMapper(domain.ChannelAmazonMTR, "06ABCDE1234F1Z5", "2024-04")
	require.NoError(t, err)

	mapped := m.Map(baseInvoice())
	lines := expense.ExpandVoucherLines(&mapped)

	// Expense debit, IGST debit, payable credit.
	require.Len(t, lines, 3)
	assert.Equal(t, "Amazon Commission", lines[0].PartyLedger)
	assert.Equal(t, "Input IGST @ 18%", lines[1].PartyLedger)
	assert.Equal(t, "Amazon Payable", lines[2].PartyLedger)
	assert.True(t, lines[2].TotalAmount.Equal(dec("-1180")))
	require.NoError(t, expense.ValidateVoucherGroup(lines))
}

func TestExpandVoucherLines_IntrastateProducesFourLines(t *testing.T) {
	m, err := expense.NewMapper(domain.ChannelAmazonMTR, "06ABCDE1234F1Z5", "2024-04")
	require.NoError(t, err)

	inv := baseInvoice()
	inv.VendorGSTIN = "06FGHIJ5678K1Z9"
	mapped := m.Map(inv)
	lines := expense.ExpandVoucherLines(&mapped)
	require.Len(t, lines, 4)
	require.NoError(t, expense.ValidateVoucherGroup(lines))
}

func TestValidateVoucherGroup_DetectsImbalance(t *testing.T) {
	lines := []domain.X2BetaVoucher{
		{VoucherNo: "EXPHR24040001", TotalAmount: dec("100")},
		{VoucherNo: "EXPHR24040001", TotalAmount: dec("-99")},
	}
	assert.ErrorIs(t, expense.ValidateVoucherGroup(lines), domain.ErrVoucherUnbalanced)
}

func TestExpandAll_PropagatesGroupFailure(t *testing.T) {
	m, err := expense.NewMapper(domain.ChannelAmazonMTR, "06ABCDE1234F1Z5", "2024-04")
	require.NoError(t, err)

	good := m.Map(baseInvoice())
	bad := m.Map(baseInvoice())
	bad.TotalValue = bad.TotalValue.Add(dec("10"))

	_, err = expense.ExpandAll([]expense.MappedExpense{good, bad})
	assert.ErrorIs(t, err, domain.ErrVoucherUnbalanced)
}

func TestExportFileNames(t *testing.T) {
	at := time.Date(2025, 4, 30, 18, 4, 5, 0, time.UTC)
	assert.Equal(t, "amazon_mtr_expenses_06ABCDE1234F1Z5_2025-04_x2beta_20250430_180405.xlsx",
		expense.OutputFileName(domain.ChannelAmazonMTR, "06ABCDE1234F1Z5", "2025-04", at))
	assert.Equal(t, "amazon_mtr_combined_06ABCDE1234F1Z5_2025-04_x2beta_20250430_180405.xlsx",
		expense.CombinedFileName(domain.ChannelAmazonMTR, "06ABCDE1234F1Z5", "2025-04", at))
}
