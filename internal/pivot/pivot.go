package pivot

import (
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"x2beta/internal/domain"
)

// groupKey is the channel-specific dimension set. StateCode participates
// only for flipkart; IsReturn always separates returns from sales.
type groupKey struct {
	Rate     string
	Ledger   string
	FG       string
	State    string
	IsReturn bool
}

// Build aggregates tax-computed rows into pivot summaries. Measures are
// summed per group, rounded to 2 decimals, and groups with zero taxable
// value are dropped. Output order is deterministic: rate, state, ledger,
// fg, returns last.
func Build(runID uuid.UUID, channel domain.Channel, gstin, month string, rows []domain.NormalizedRow) []domain.PivotSummary {
	groups := make(map[groupKey]*domain.PivotSummary)
	order := make([]groupKey, 0)

	for i := range rows {
		row := &rows[i]
		key := groupKey{
			Rate:     row.GSTRate.String(),
			Ledger:   row.Ledger,
			FG:       row.FG,
			IsReturn: row.IsReturn,
		}
		if channel == domain.ChannelFlipkart {
			key.State = row.StateCode
		}

		g, ok := groups[key]
		if !ok {
			g = &domain.PivotSummary{
				RunID:     runID,
				Channel:   channel,
				GSTIN:     gstin,
				Month:     month,
				GSTRate:   row.GSTRate,
				Ledger:    row.Ledger,
				FG:        row.FG,
				StateCode: key.State,
				InvoiceNo: row.InvoiceNo,
				IsReturn:  row.IsReturn,
			}
			groups[key] = g
			order = append(order, key)
		}

		qty := row.Quantity
		if channel == domain.ChannelPepperfry && row.NetQty != 0 {
			qty = row.NetQty
		}
		g.TotalQuantity += qty
		g.TotalTaxable = g.TotalTaxable.Add(row.TaxableValue).Add(row.ShippingValue)
		g.TotalCGST = g.TotalCGST.Add(row.CGST)
		g.TotalSGST = g.TotalSGST.Add(row.SGST)
		g.TotalIGST = g.TotalIGST.Add(row.IGST)
		g.RecordCount++
	}

	out := make([]domain.PivotSummary, 0, len(order))
	for _, key := range order {
		g := groups[key]
		g.TotalTaxable = g.TotalTaxable.Round(2)
		g.TotalCGST = g.TotalCGST.Round(2)
		g.TotalSGST = g.TotalSGST.Round(2)
		g.TotalIGST = g.TotalIGST.Round(2)

		if channel == domain.ChannelAmazonSTR {
			// STR is IGST-only whatever the per-row split said.
			g.TotalCGST = decimal.Zero
			g.TotalSGST = decimal.Zero
		}
		if g.TotalTaxable.IsZero() {
			continue
		}
		out = append(out, *g)
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := &out[i], &out[j]
		if !a.GSTRate.Equal(b.GSTRate) {
			return a.GSTRate.LessThan(b.GSTRate)
		}
		if a.StateCode != b.StateCode {
			return a.StateCode < b.StateCode
		}
		if a.Ledger != b.Ledger {
			return a.Ledger < b.Ledger
		}
		if a.FG != b.FG {
			return a.FG < b.FG
		}
		return !a.IsReturn && b.IsReturn
	})
	return out
}
