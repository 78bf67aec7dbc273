package ingest

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"x2beta/internal/domain"
)

// RunMeta is the run-scoped metadata injected into every normalized row.
type RunMeta struct {
	Channel domain.Channel
	GSTIN   string
	Month   string
}

// Result summarizes one normalization pass.
type Result struct {
	ReportType  string
	Encoding    string
	TotalRows   int
	EmittedRows int
	SkippedRows int
}

// Normalizer maps channel reports into the canonical row schema.
type Normalizer struct {
	meta RunMeta
}

// NewNormalizer creates a normalizer for one run.
func NewNormalizer(meta RunMeta) *Normalizer {
	return &Normalizer{meta: meta}
}

// Normalize reads the main input and, for pepperfry, an optional returns
// file, and emits canonical rows. Fails with INGEST_SCHEMA when a required
// canonical target has no present source column.
func (n *Normalizer) Normalize(name string, data []byte, returnsName string, returnsData []byte) ([]domain.NormalizedRow, *Result, error) {
	mapping, ok := MappingFor(n.meta.Channel)
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", domain.ErrUnknownChannel, n.meta.Channel)
	}

	table, err := ReadTable(name, data)
	if err != nil {
		return nil, nil, err
	}
	if err := n.checkRequired(mapping, table); err != nil {
		return nil, nil, err
	}

	result := &Result{ReportType: mapping.ReportType, Encoding: table.Encoding, TotalRows: table.Len()}

	rows := n.mapRows(mapping, table, false, result)

	if n.meta.Channel == domain.ChannelPepperfry && len(returnsData) > 0 {
		retTable, err := ReadTable(returnsName, returnsData)
		if err != nil {
			return nil, nil, fmt.Errorf("reading returns file: %w", err)
		}
		result.TotalRows += retTable.Len()
		rows = append(rows, n.mapRows(mapping, retTable, true, result)...)
	}

	result.EmittedRows = len(rows)
	result.SkippedRows = result.TotalRows - result.EmittedRows
	return rows, result, nil
}

// checkRequired enforces the INGEST_SCHEMA contract: every required target
// must have at least one candidate source present.
func (n *Normalizer) checkRequired(mapping ChannelMapping, table *Table) error {
	var missing []string
	for _, f := range mapping.Fields {
		if !f.Required {
			continue
		}
		found := false
		for _, src := range f.Sources {
			if table.HasColumn(src) {
				found = true
				break
			}
		}
		if !found {
			missing = append(missing, f.Target)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%s: no source column for %s: %w",
			domain.CodeIngestSchema, strings.Join(missing, ", "), domain.ErrMissingColumns)
	}
	return nil
}

func (n *Normalizer) mapRows(mapping ChannelMapping, table *Table, isReturns bool, result *Result) []domain.NormalizedRow {
	rows := make([]domain.NormalizedRow, 0, table.Len())
	for i := 0; i < table.Len(); i++ {
		values := make(map[string]string, len(mapping.Fields))
		for _, f := range mapping.Fields {
			v, _ := table.First(i, f.Sources)
			values[f.Target] = v
		}

		row := domain.NormalizedRow{
			Channel: n.meta.Channel,
			GSTIN:   n.meta.GSTIN,
			Month:   n.meta.Month,
		}
		row.InvoiceDate = parseDate(values["invoice_date"])
		row.Type = parseRowType(values["type"])
		row.OrderID = values["order_id"]
		row.SKU = values["sku"]
		row.ASIN = values["asin"]
		row.Quantity = parseInt(values["quantity"])
		row.TaxableValue = parseMoney(values["taxable_value"])
		row.ShippingValue = parseMoney(values["shipping_value"])
		row.GSTRate = parseRate(values["gst_rate"])
		row.StateCode = normalizeState(values["state_code"])
		row.SellerState = normalizeState(values["seller_state"])

		switch n.meta.Channel {
		case domain.ChannelAmazonMTR:
			// gst_rate is the sum of whichever component rates are present.
			row.GSTRate = sumRates(table, i, "igst_rate", "cgst_rate", "sgst_rate")
			if row.Type != domain.RowTypeShipment && row.Type != domain.RowTypeRefund {
				continue
			}
		case domain.ChannelAmazonSTR:
			// Interstate-only filter, applied only when both columns exist.
			if table.HasColumn("seller_state") && (table.HasColumn("ship_to_state") || table.HasColumn("ship_state")) {
				if row.SellerState != "" && row.SellerState == row.StateCode {
					continue
				}
			}
		case domain.ChannelPepperfry:
			// Reports may carry the return adjustment inline; a separate
			// returns file marks every row returned instead.
			row.TotalQty = parseInt(values["total_qty"])
			if row.TotalQty == 0 {
				row.TotalQty = row.Quantity
			}
			row.ReturnedQty = parseInt(values["returned_qty"])
			if isReturns {
				row.Type = domain.RowTypeReturn
				row.IsReturn = true
				if row.ReturnedQty == 0 {
					row.ReturnedQty = row.Quantity
				}
				row.Quantity = -row.Quantity
			}
		}

		rows = append(rows, row)
	}
	return rows
}

// sumRates adds whichever of the named rate columns exist for the row.
func sumRates(table *Table, row int, columns ...string) decimal.Decimal {
	total := decimal.Zero
	for _, c := range columns {
		if table.HasColumn(c) {
			total = total.Add(parseRate(table.Cell(row, c)))
		}
	}
	return total
}

var dateFormats = []string{
	"2006-01-02",
	"02-01-2006",
	"02/01/2006",
	"2006-01-02 15:04:05",
	"02-Jan-2006",
	"Jan 2, 2006",
	time.RFC3339,
}

func parseDate(v string) time.Time {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}
	}
	for _, f := range dateFormats {
		if t, err := time.Parse(f, v); err == nil {
			return t
		}
	}
	return time.Time{}
}

func parseRowType(v string) domain.RowType {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "refund":
		return domain.RowTypeRefund
	case "return", "freereplacement":
		return domain.RowTypeReturn
	case "", "shipment", "sale", "order":
		return domain.RowTypeShipment
	}
	return domain.RowType(strings.ToLower(strings.TrimSpace(v)))
}

func parseInt(v string) int {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	if i, err := strconv.Atoi(v); err == nil {
		return i
	}
	// Reports sometimes carry quantities as "2.0".
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		return int(f)
	}
	return 0
}

func parseMoney(v string) decimal.Decimal {
	v = strings.ReplaceAll(strings.TrimSpace(v), ",", "")
	if v == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// parseRate accepts "0.18", "18" and "18%" and returns the fractional rate.
func parseRate(v string) decimal.Decimal {
	v = strings.TrimSuffix(strings.TrimSpace(v), "%")
	d := parseMoney(v)
	if d.GreaterThan(decimal.NewFromInt(1)) {
		return d.Div(decimal.NewFromInt(100))
	}
	return d
}

// normalizeState maps state names or abbreviations to the canonical
// two-letter code, keeping the uppercased raw value for unknown states so
// the exception detector can flag it.
func normalizeState(v string) string {
	if v == "" {
		return ""
	}
	if abbrev, ok := domain.NormalizeState(v); ok {
		return abbrev
	}
	return strings.ToUpper(strings.TrimSpace(v))
}
