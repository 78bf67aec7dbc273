package ingest

import "x2beta/internal/domain"

// semanticTriplet must be satisfiable regardless of what the caller lists
// as required.
var semanticTriplet = []string{"invoice_date", "gst_rate", "state_code"}

// SchemaResult is the outcome of a schema validation pass. Missing lists
// every absent field; validation never aborts on the first failure.
type SchemaResult struct {
	Valid   bool
	Missing []string
}

// ValidateTableSchema checks a raw input table: every required column and
// the semantic triplet must be present as columns. It returns the full list
// of missing fields instead of failing on the first one.
func ValidateTableSchema(t *Table, required []string) SchemaResult {
	var missing []string
	seen := make(map[string]bool, len(required)+len(semanticTriplet))
	for _, f := range append(append([]string{}, required...), semanticTriplet...) {
		if seen[f] {
			continue
		}
		seen[f] = true
		if !t.HasColumn(f) {
			missing = append(missing, f)
		}
	}
	return SchemaResult{Valid: len(missing) == 0, Missing: missing}
}

// ValidateSchema checks that every required field and the semantically
// required {invoice_date, gst_rate, state_code} triplet have a value on at
// least one row. Column-level absence is caught earlier by the mapping's
// required-source check; this pass catches value-level emptiness.
func ValidateSchema(rows []domain.NormalizedRow, required []string) SchemaResult {
	fields := make(map[string]bool, len(required)+len(semanticTriplet))
	for _, f := range required {
		fields[f] = false
	}
	for _, f := range semanticTriplet {
		fields[f] = false
	}

	for i := range rows {
		for f, seen := range fields {
			if seen {
				continue
			}
			if hasValue(&rows[i], f) {
				fields[f] = true
			}
		}
	}

	var missing []string
	// Deterministic order: required first, then the triplet.
	for _, f := range append(append([]string{}, required...), semanticTriplet...) {
		if seen, ok := fields[f]; ok && !seen {
			missing = append(missing, f)
			delete(fields, f)
		}
	}
	return SchemaResult{Valid: len(missing) == 0, Missing: missing}
}

func hasValue(r *domain.NormalizedRow, field string) bool {
	switch field {
	case "invoice_date":
		return !r.InvoiceDate.IsZero()
	case "type":
		return r.Type != ""
	case "order_id":
		return r.OrderID != ""
	case "sku":
		return r.SKU != ""
	case "asin":
		return r.ASIN != ""
	case "quantity":
		return r.Quantity != 0
	case "taxable_value":
		return !r.TaxableValue.IsZero()
	case "gst_rate":
		return !r.GSTRate.IsZero()
	case "state_code":
		return r.StateCode != ""
	case "channel":
		return r.Channel != ""
	case "gstin":
		return r.GSTIN != ""
	case "month":
		return r.Month != ""
	}
	return false
}
