package expense

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"x2beta/internal/domain"
)

// ledgerRule is one entry of the built-in (channel, expense type) catalog.
type ledgerRule struct {
	Ledger   string
	HSN      string
	InputGST bool
}

type ruleKey struct {
	Channel domain.Channel
	Type    domain.ExpenseType
}

// ledgerCatalog covers the standard marketplace fee types per channel.
// Anything not listed falls back to "{Channel} Other Charges".
var ledgerCatalog = map[ruleKey]ledgerRule{
	{domain.ChannelAmazonMTR, domain.ExpenseClosingFee}:       {"Amazon Closing Fee", "998599", true},
	{domain.ChannelAmazonMTR, domain.ExpenseShippingFee}:      {"Amazon Shipping Charges", "996812", true},
	{domain.ChannelAmazonMTR, domain.ExpenseCommission}:       {"Amazon Commission", "998599", true},
	{domain.ChannelAmazonMTR, domain.ExpenseFulfillmentFee}:   {"Amazon FBA Fees", "996812", true},
	{domain.ChannelAmazonMTR, domain.ExpenseStorageFee}:       {"Amazon Storage Fee", "996721", true},
	{domain.ChannelAmazonMTR, domain.ExpenseAdvertisingFee}:   {"Amazon Advertising", "998361", true},
	{domain.ChannelAmazonMTR, domain.ExpenseRefundProcessing}: {"Amazon Refund Processing Fee", "998599", true},
	{domain.ChannelAmazonMTR, domain.ExpensePaymentGateway}:   {"Amazon Payment Gateway Fee", "997158", true},

	{domain.ChannelAmazonSTR, domain.ExpenseClosingFee}:     {"Amazon Closing Fee", "998599", true},
	{domain.ChannelAmazonSTR, domain.ExpenseShippingFee}:    {"Amazon Shipping Charges", "996812", true},
	{domain.ChannelAmazonSTR, domain.ExpenseCommission}:     {"Amazon Commission", "998599", true},
	{domain.ChannelAmazonSTR, domain.ExpenseFulfillmentFee}: {"Amazon FBA Fees", "996812", true},

	{domain.ChannelFlipkart, domain.ExpenseClosingFee}:       {"Flipkart Closing Fee", "998599", true},
	{domain.ChannelFlipkart, domain.ExpenseShippingFee}:      {"Flipkart Shipping Charges", "996812", true},
	{domain.ChannelFlipkart, domain.ExpenseCommission}:       {"Flipkart Commission", "998599", true},
	{domain.ChannelFlipkart, domain.ExpenseFulfillmentFee}:   {"Flipkart Fulfillment Fee", "996812", true},
	{domain.ChannelFlipkart, domain.ExpenseStorageFee}:       {"Flipkart Storage Fee", "996721", true},
	{domain.ChannelFlipkart, domain.ExpenseAdvertisingFee}:   {"Flipkart Advertising", "998361", true},
	{domain.ChannelFlipkart, domain.ExpenseRefundProcessing}: {"Flipkart Return Processing Fee", "998599", true},
	{domain.ChannelFlipkart, domain.ExpensePaymentGateway}:   {"Flipkart Payment Gateway Fee", "997158", true},

	{domain.ChannelPepperfry, domain.ExpenseClosingFee}:     {"Pepperfry Closing Fee", "998599", true},
	{domain.ChannelPepperfry, domain.ExpenseShippingFee}:    {"Pepperfry Shipping Charges", "996812", true},
	{domain.ChannelPepperfry, domain.ExpenseCommission}:     {"Pepperfry Commission", "998599", true},
	{domain.ChannelPepperfry, domain.ExpenseStorageFee}:     {"Pepperfry Storage Fee", "996721", true},
	{domain.ChannelPepperfry, domain.ExpenseAdvertisingFee}: {"Pepperfry Advertising", "998361", true},
}

// MappedExpense is a seller invoice with its ledger resolution and voucher
// number attached.
type MappedExpense struct {
	domain.SellerInvoice
	Month     string // YYYY-MM
	HSN       string
	InputGST  bool
	VoucherNo string
}

// Mapper resolves ledgers, splits GST and assigns voucher numbers for one
// run's seller invoices.
type Mapper struct {
	channel      domain.Channel
	gstin        string
	companyState domain.StateInfo
	month        string // YYYY-MM
	seq          int
}

// NewMapper derives the company state from the GSTIN.
func NewMapper(channel domain.Channel, gstin, month string) (*Mapper, error) {
	state, ok := domain.StateByGSTIN(gstin)
	if !ok {
		return nil, fmt.Errorf("expense.NewMapper: gstin %q: %w", gstin, domain.ErrInvalidGSTIN)
	}
	if len(month) != 7 || month[4] != '-' {
		return nil, fmt.Errorf("expense.NewMapper: month %q: %w", month, domain.ErrInvalidMonth)
	}
	return &Mapper{channel: channel, gstin: gstin, companyState: state, month: month}, nil
}

// Map resolves one invoice. A vendor GSTIN in the company's state yields a
// CGST/SGST split; an absent or out-of-state vendor yields IGST.
func (m *Mapper) Map(inv domain.SellerInvoice) MappedExpense {
	rule, ok := ledgerCatalog[ruleKey{m.channel, inv.ExpenseType}]
	if !ok {
		rule = ledgerRule{Ledger: fmt.Sprintf("%s Other Charges", m.channel.Title()), InputGST: true}
	}

	gst := inv.TotalValue.Sub(inv.TaxableValue)
	if m.intrastate(inv.VendorGSTIN) {
		half := gst.Div(decimal.NewFromInt(2)).Round(2)
		inv.CGST = half
		inv.SGST = gst.Sub(half)
		inv.IGST = decimal.Zero
	} else {
		inv.CGST = decimal.Zero
		inv.SGST = decimal.Zero
		inv.IGST = gst.Round(2)
	}

	inv.LedgerName = rule.Ledger
	inv.Status = domain.ProcessingStatusMapped

	m.seq++
	return MappedExpense{
		SellerInvoice: inv,
		Month:         m.month,
		HSN:           rule.HSN,
		InputGST:      rule.InputGST,
		VoucherNo:     m.voucherNo(m.seq),
	}
}

// MapAll maps in input order.
func (m *Mapper) MapAll(invoices []domain.SellerInvoice) []MappedExpense {
	out := make([]MappedExpense, 0, len(invoices))
	for _, inv := range invoices {
		out = append(out, m.Map(inv))
	}
	return out
}

func (m *Mapper) intrastate(vendorGSTIN string) bool {
	if vendorGSTIN == "" {
		return false
	}
	vendor, ok := domain.StateByGSTIN(vendorGSTIN)
	if !ok {
		return false
	}
	return vendor.Abbrev == m.companyState.Abbrev
}

// voucherNo renders EXP{SS}{YY}{MM}{seq4}, SS being the company state.
func (m *Mapper) voucherNo(seq int) string {
	yy := m.month[2:4]
	mm := m.month[5:7]
	return fmt.Sprintf("EXP%s%s%s%04d", strings.ToUpper(m.companyState.Abbrev), yy, mm, seq)
}
