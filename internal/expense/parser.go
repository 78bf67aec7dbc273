package expense

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"x2beta/internal/domain"
	"x2beta/internal/ingest"
	"x2beta/internal/port"
)

// defaultExpenseRate applies when an invoice line carries no explicit rate.
var defaultExpenseRate = decimal.NewFromFloat(0.18)

var (
	invoiceNoRe = regexp.MustCompile(`(?i)invoice\s*(?:no|number|#)\s*[.:]*\s*([A-Z0-9][A-Z0-9/_-]+)`)
	dateRe      = regexp.MustCompile(`(?i)invoice\s*date\s*[.:]*\s*(\d{4}-\d{2}-\d{2}|\d{1,2}[-/]\d{1,2}[-/]\d{2,4}|\d{1,2}\s+[A-Za-z]{3,9}\s+\d{4})`)
	gstinRe     = regexp.MustCompile(`\b\d{2}[A-Z]{5}\d{4}[A-Z][1-9A-Z]Z[0-9A-Z]\b`)
	amountPat   = `[^\d\-\n]{0,40}?(-?[\d,]+(?:\.\d+)?)\s+(-?[\d,]+(?:\.\d+)?)`
)

// feePattern binds an expense bucket to its line-item regex. The regex
// captures taxable and total, in that order.
type feePattern struct {
	Type domain.ExpenseType
	re   *regexp.Regexp
}

var feePatterns = []feePattern{
	{domain.ExpenseClosingFee, regexp.MustCompile(`(?i)closing\s+fee` + amountPat)},
	{domain.ExpenseShippingFee, regexp.MustCompile(`(?i)(?:shipping|weight\s+handling)\s+fee` + amountPat)},
	{domain.ExpenseCommission, regexp.MustCompile(`(?i)commission(?:\s+fee)?` + amountPat)},
	{domain.ExpenseFulfillmentFee, regexp.MustCompile(`(?i)(?:fulfillment|fulfilment|pick\s*&?\s*pack)\s+fee` + amountPat)},
	{domain.ExpenseStorageFee, regexp.MustCompile(`(?i)storage\s+fee` + amountPat)},
	{domain.ExpenseAdvertisingFee, regexp.MustCompile(`(?i)(?:advertising|sponsored\s+products?)\s+(?:fee|charge)` + amountPat)},
	{domain.ExpenseRefundProcessing, regexp.MustCompile(`(?i)(?:refund|return)\s+processing\s+fee` + amountPat)},
	{domain.ExpensePaymentGateway, regexp.MustCompile(`(?i)payment\s+gateway\s+fee` + amountPat)},
}

var invoiceDateFormats = []string{
	"2006-01-02", "02-01-2006", "02/01/2006", "02-01-06", "02/01/06",
	"2 January 2006", "2 Jan 2006",
}

// Parser turns seller fee invoices (PDF or spreadsheet) into SellerInvoice
// rows, one per recognized fee line.
type Parser struct {
	extractor port.TextExtractor
}

// NewParser wires the PDF text extractor.
func NewParser(extractor port.TextExtractor) *Parser {
	return &Parser{extractor: extractor}
}

// Parse dispatches on the file extension.
func (p *Parser) Parse(ctx context.Context, runID uuid.UUID, channel domain.Channel, gstin, name string, data []byte) ([]domain.SellerInvoice, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf":
		text, err := p.extractor.ExtractText(ctx, data)
		if err != nil {
			return nil, fmt.Errorf("%s: %s: %w", domain.CodeExpenseParse, name, err)
		}
		return parseText(runID, channel, gstin, text)
	case ".csv", ".txt", ".xlsx", ".xls":
		return parseSheet(runID, channel, gstin, name, data)
	default:
		return nil, fmt.Errorf("%s: %s: %w", domain.CodeExpenseParse, name, domain.ErrUnsupportedInput)
	}
}

// parseText applies the regex families to extracted PDF text.
func parseText(runID uuid.UUID, channel domain.Channel, gstin, text string) ([]domain.SellerInvoice, error) {
	invoiceNo := ""
	if m := invoiceNoRe.FindStringSubmatch(text); m != nil {
		invoiceNo = m[1]
	}

	invoiceDate := time.Time{}
	if m := dateRe.FindStringSubmatch(text); m != nil {
		invoiceDate = parseInvoiceDate(m[1])
	}

	vendorGSTIN := ""
	for _, g := range gstinRe.FindAllString(text, -1) {
		if g != gstin {
			vendorGSTIN = g
			break
		}
	}

	var invoices []domain.SellerInvoice
	for _, fp := range feePatterns {
		for _, m := range fp.re.FindAllStringSubmatch(text, -1) {
			taxable, err1 := parseAmount(m[1])
			total, err2 := parseAmount(m[2])
			if err1 != nil || err2 != nil {
				continue
			}
			invoices = append(invoices, buildInvoice(runID, channel, gstin, vendorGSTIN, invoiceNo, invoiceDate, fp.Type, taxable, total))
		}
	}
	if len(invoices) == 0 {
		return nil, fmt.Errorf("%s: no fee lines recognized: %w", domain.CodeExpenseParse, domain.ErrUnsupportedInput)
	}
	return invoices, nil
}

var (
	sheetTypeCols    = []string{"expense_type", "fee_type", "charge_type", "description"}
	sheetTaxableCols = []string{"taxable_value", "taxable_amount", "amount"}
	sheetTotalCols   = []string{"total_value", "total_amount", "total"}
	sheetNoCols      = []string{"invoice_no", "invoice_number"}
	sheetDateCols    = []string{"invoice_date", "date"}
	sheetVendorCols  = []string{"vendor_gstin", "party_gstin", "seller_gstin"}
)

// parseSheet reads fee lines out of a spreadsheet export.
func parseSheet(runID uuid.UUID, channel domain.Channel, gstin, name string, data []byte) ([]domain.SellerInvoice, error) {
	t, err := ingest.ReadTable(name, data)
	if err != nil {
		return nil, fmt.Errorf("%s: %s: %w", domain.CodeExpenseParse, name, err)
	}

	var invoices []domain.SellerInvoice
	for i := 0; i < t.Len(); i++ {
		rawType, _ := t.First(i, sheetTypeCols)
		rawTaxable, _ := t.First(i, sheetTaxableCols)
		rawTotal, _ := t.First(i, sheetTotalCols)
		if strings.TrimSpace(rawType) == "" || rawTaxable == "" {
			continue
		}
		taxable, err1 := parseAmount(rawTaxable)
		if err1 != nil {
			continue
		}
		total := taxable
		if rawTotal != "" {
			if v, err2 := parseAmount(rawTotal); err2 == nil {
				total = v
			}
		}

		invoiceNo, _ := t.First(i, sheetNoCols)
		vendor, _ := t.First(i, sheetVendorCols)
		date := time.Time{}
		if raw, ok := t.First(i, sheetDateCols); ok {
			date = parseInvoiceDate(raw)
		}
		invoices = append(invoices, buildInvoice(runID, channel, gstin, vendor, invoiceNo, date, NormalizeExpenseType(rawType), taxable, total))
	}
	if len(invoices) == 0 {
		return nil, fmt.Errorf("%s: %s: no fee lines recognized: %w", domain.CodeExpenseParse, name, domain.ErrUnsupportedInput)
	}
	return invoices, nil
}

// buildInvoice derives the GST fields: GST = total - taxable, rate from the
// implied percentage when it lands on a valid slab, 18% otherwise.
func buildInvoice(runID uuid.UUID, channel domain.Channel, gstin, vendorGSTIN, invoiceNo string, date time.Time, typ domain.ExpenseType, taxable, total decimal.Decimal) domain.SellerInvoice {
	gst := total.Sub(taxable)
	rate := defaultExpenseRate
	if taxable.IsPositive() {
		implied := gst.Div(taxable).Round(2)
		if domain.ValidGSTRate(implied) {
			rate = implied
		}
	}
	return domain.SellerInvoice{
		ID:           uuid.New(),
		RunID:        runID,
		Channel:      channel,
		GSTIN:        gstin,
		VendorGSTIN:  vendorGSTIN,
		InvoiceNo:    invoiceNo,
		InvoiceDate:  date,
		ExpenseType:  typ,
		TaxableValue: taxable,
		GSTRate:      rate,
		TotalValue:   total,
		Status:       domain.ProcessingStatusParsed,
	}
}

// NormalizeExpenseType buckets a free-text fee description.
func NormalizeExpenseType(raw string) domain.ExpenseType {
	s := strings.ToLower(raw)
	switch {
	case strings.Contains(s, "closing"):
		return domain.ExpenseClosingFee
	case strings.Contains(s, "shipping"), strings.Contains(s, "weight"):
		return domain.ExpenseShippingFee
	case strings.Contains(s, "commission"):
		return domain.ExpenseCommission
	case strings.Contains(s, "fulfil"), strings.Contains(s, "pick"):
		return domain.ExpenseFulfillmentFee
	case strings.Contains(s, "storage"):
		return domain.ExpenseStorageFee
	case strings.Contains(s, "advertis"), strings.Contains(s, "sponsored"):
		return domain.ExpenseAdvertisingFee
	case strings.Contains(s, "refund"), strings.Contains(s, "return"):
		return domain.ExpenseRefundProcessing
	case strings.Contains(s, "gateway"):
		return domain.ExpensePaymentGateway
	default:
		return domain.ExpenseOther
	}
}

func parseAmount(raw string) (decimal.Decimal, error) {
	return decimal.NewFromString(strings.ReplaceAll(strings.TrimSpace(raw), ",", ""))
}

func parseInvoiceDate(raw string) time.Time {
	raw = strings.TrimSpace(raw)
	for _, layout := range invoiceDateFormats {
		if t, err := time.Parse(layout, raw); err == nil {
			return t
		}
	}
	return time.Time{}
}
