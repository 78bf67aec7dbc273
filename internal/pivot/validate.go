package pivot

import (
	"fmt"

	"github.com/shopspring/decimal"

	"x2beta/internal/domain"
)

// ValidateConservation checks that the batch partition preserved the pivot:
// record counts match exactly, taxable and tax within the money tolerance.
func ValidateConservation(summaries []domain.PivotSummary, batches []domain.BatchFile) error {
	var (
		pivotCount, batchCount     int
		pivotTaxable, batchTaxable decimal.Decimal
		pivotTax, batchTax         decimal.Decimal
	)
	for i := range summaries {
		pivotCount += summaries[i].RecordCount
		pivotTaxable = pivotTaxable.Add(summaries[i].TotalTaxable)
		pivotTax = pivotTax.Add(summaries[i].TotalTax())
	}
	for i := range batches {
		batchCount += batches[i].RecordCount
		batchTaxable = batchTaxable.Add(batches[i].TotalTaxable)
		batchTax = batchTax.Add(batches[i].TotalTax)
	}

	if pivotCount != batchCount {
		return fmt.Errorf("pivot.ValidateConservation: record count %d != %d", pivotCount, batchCount)
	}
	if pivotTaxable.Sub(batchTaxable).Abs().GreaterThan(domain.Tolerance) {
		return fmt.Errorf("pivot.ValidateConservation: taxable %s != %s", pivotTaxable, batchTaxable)
	}
	if pivotTax.Sub(batchTax).Abs().GreaterThan(domain.Tolerance) {
		return fmt.Errorf("pivot.ValidateConservation: tax %s != %s", pivotTax, batchTax)
	}
	return nil
}
