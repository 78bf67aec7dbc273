package ingest

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"sort"
	"strconv"
	"time"

	"x2beta/internal/domain"
)

// BOM is prepended to emitted CSVs for Excel compatibility on Windows.
var BOM = []byte{0xEF, 0xBB, 0xBF}

// normalizedColumns is the canonical column order of a normalized CSV.
var normalizedColumns = []string{
	"invoice_date",
	"type",
	"order_id",
	"sku",
	"asin",
	"quantity",
	"taxable_value",
	"shipping_value",
	"gst_rate",
	"state_code",
	"seller_state",
	"channel",
	"gstin",
	"month",
	"is_return",
	"total_qty",
	"returned_qty",
}

// SortRows orders rows on the stable key (state, date, order, sku) so
// re-ingesting the same input yields a byte-identical normalized CSV.
func SortRows(rows []domain.NormalizedRow) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := &rows[i], &rows[j]
		if a.StateCode != b.StateCode {
			return a.StateCode < b.StateCode
		}
		if !a.InvoiceDate.Equal(b.InvoiceDate) {
			return a.InvoiceDate.Before(b.InvoiceDate)
		}
		if a.OrderID != b.OrderID {
			return a.OrderID < b.OrderID
		}
		return a.SKU < b.SKU
	})
}

// WriteCSV renders rows as the canonical normalized CSV.
func WriteCSV(rows []domain.NormalizedRow) ([]byte, error) {
	var buf bytes.Buffer
	buf.Write(BOM)

	w := csv.NewWriter(&buf)
	if err := w.Write(normalizedColumns); err != nil {
		return nil, fmt.Errorf("writing header: %w", err)
	}
	for i := range rows {
		if err := w.Write(rowToRecord(&rows[i])); err != nil {
			return nil, fmt.Errorf("writing row %d: %w", i, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func rowToRecord(r *domain.NormalizedRow) []string {
	date := ""
	if !r.InvoiceDate.IsZero() {
		date = r.InvoiceDate.Format("2006-01-02")
	}
	return []string{
		date,
		string(r.Type),
		r.OrderID,
		r.SKU,
		r.ASIN,
		strconv.Itoa(r.Quantity),
		r.TaxableValue.StringFixed(2),
		r.ShippingValue.StringFixed(2),
		r.GSTRate.String(),
		r.StateCode,
		r.SellerState,
		string(r.Channel),
		r.GSTIN,
		r.Month,
		formatBool(r.IsReturn),
		strconv.Itoa(r.TotalQty),
		strconv.Itoa(r.ReturnedQty),
	}
}

func formatBool(v bool) string {
	if v {
		return "true"
	}
	return "false"
}

// ReadCSV parses a canonical normalized CSV back into rows.
func ReadCSV(data []byte) ([]domain.NormalizedRow, error) {
	table, err := readCSV(data)
	if err != nil {
		return nil, err
	}
	rows := make([]domain.NormalizedRow, 0, table.Len())
	for i := 0; i < table.Len(); i++ {
		var r domain.NormalizedRow
		if v := table.Cell(i, "invoice_date"); v != "" {
			r.InvoiceDate, _ = time.Parse("2006-01-02", v)
		}
		r.Type = domain.RowType(table.Cell(i, "type"))
		r.OrderID = table.Cell(i, "order_id")
		r.SKU = table.Cell(i, "sku")
		r.ASIN = table.Cell(i, "asin")
		r.Quantity = parseInt(table.Cell(i, "quantity"))
		r.TaxableValue = parseMoney(table.Cell(i, "taxable_value"))
		r.ShippingValue = parseMoney(table.Cell(i, "shipping_value"))
		r.GSTRate = parseRate(table.Cell(i, "gst_rate"))
		r.StateCode = table.Cell(i, "state_code")
		r.SellerState = table.Cell(i, "seller_state")
		r.Channel = domain.Channel(table.Cell(i, "channel"))
		r.GSTIN = table.Cell(i, "gstin")
		r.Month = table.Cell(i, "month")
		r.IsReturn = table.Cell(i, "is_return") == "true"
		r.TotalQty = parseInt(table.Cell(i, "total_qty"))
		r.ReturnedQty = parseInt(table.Cell(i, "returned_qty"))
		rows = append(rows, r)
	}
	return rows, nil
}
