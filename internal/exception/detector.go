// Package exception implements the detection passes and the batched
// exception writer.
package exception

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"x2beta/internal/domain"
	"x2beta/internal/invoice"
	"x2beta/internal/port"
)

// Recorder buffers exceptions and flushes them in fixed-size batches. The
// first critical exception is remembered so the controller can halt.
type Recorder struct {
	repo      port.ExceptionRepository
	runID     uuid.UUID
	batchSize int

	buffer   []domain.Exception
	total    int
	critical *domain.Exception
}

// NewRecorder creates a run-scoped recorder. batchSize <= 0 falls back
// to 100.
func NewRecorder(repo port.ExceptionRepository, runID uuid.UUID, batchSize int) *Recorder {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &Recorder{repo: repo, runID: runID, batchSize: batchSize}
}

// Record buffers one exception, stamping severity from the catalog.
func (r *Recorder) Record(ctx context.Context, code domain.ErrorCode, recordType, recordID, message string, details map[string]interface{}) error {
	var raw json.RawMessage
	if details != nil {
		b, err := json.Marshal(details)
		if err != nil {
			return fmt.Errorf("exception.Record: marshaling details: %w", err)
		}
		raw = b
	}
	exc := domain.Exception{
		RunID:      r.runID,
		RecordType: recordType,
		RecordID:   recordID,
		Code:       code,
		Message:    message,
		Details:    raw,
		Severity:   code.Info().Severity,
		CreatedAt:  time.Now().UTC(),
	}
	r.buffer = append(r.buffer, exc)
	r.total++
	if r.critical == nil && code.Critical() {
		c := exc
		r.critical = &c
	}
	if len(r.buffer) >= r.batchSize {
		return r.Flush(ctx)
	}
	return nil
}

// Flush writes the buffered batch.
func (r *Recorder) Flush(ctx context.Context) error {
	if len(r.buffer) == 0 {
		return nil
	}
	batch := r.buffer
	r.buffer = nil
	if err := r.repo.CreateBatch(ctx, batch); err != nil {
		return fmt.Errorf("exception.Flush: %w", err)
	}
	return nil
}

// Total counts every recorded exception, flushed or not.
func (r *Recorder) Total() int { return r.total }

// Critical returns the first critical exception, nil when none occurred.
func (r *Recorder) Critical() *domain.Exception { return r.critical }

// DetectMapping flags rows that failed item or ledger resolution.
func DetectMapping(ctx context.Context, r *Recorder, rows []domain.NormalizedRow) error {
	for i := range rows {
		row := &rows[i]
		id := rowID(row, i)
		if row.FG == "" {
			code := domain.CodeMissingSKUMapping
			if row.SKU == "" && row.ASIN != "" {
				code = domain.CodeMissingASINMapping
			}
			err := r.Record(ctx, code, "normalized_row", id,
				fmt.Sprintf("no item mapping for sku=%q asin=%q", row.SKU, row.ASIN),
				map[string]interface{}{"sku": row.SKU, "asin": row.ASIN})
			if err != nil {
				return err
			}
		}
		if row.Ledger == "" {
			err := r.Record(ctx, domain.CodeMissingLedger, "normalized_row", id,
				fmt.Sprintf("no ledger for channel=%s state=%q", row.Channel, row.StateCode),
				map[string]interface{}{"state_code": row.StateCode})
			if err != nil {
				return err
			}
		}
		if !domain.KnownStateAbbrev(row.StateCode) {
			if _, ok := domain.NormalizeState(row.StateCode); !ok {
				err := r.Record(ctx, domain.CodeInvalidStateCode, "normalized_row", id,
					fmt.Sprintf("state %q is not in the state table", row.StateCode), nil)
				if err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// DetectGST flags invalid rates, missing rates on taxable rows, and
// computed-vs-expected mismatches beyond tolerance.
func DetectGST(ctx context.Context, r *Recorder, rows []domain.NormalizedRow) error {
	for i := range rows {
		row := &rows[i]
		id := rowID(row, i)
		switch {
		case row.GSTRate.IsZero() && row.TaxableValue.IsPositive() && !row.CGST.Add(row.SGST).Add(row.IGST).IsZero():
			err := r.Record(ctx, domain.CodeMissingGSTRate, "normalized_row", id,
				"taxable row carries tax but no rate", nil)
			if err != nil {
				return err
			}
		case !domain.ValidGSTRate(row.GSTRate):
			err := r.Record(ctx, domain.CodeInvalidGSTRate, "normalized_row", id,
				fmt.Sprintf("gst rate %s outside the valid slab set", row.GSTRate),
				map[string]interface{}{"gst_rate": row.GSTRate.String()})
			if err != nil {
				return err
			}
		default:
			expected := row.TaxableValue.Add(row.ShippingValue).Mul(row.GSTRate)
			actual := row.CGST.Add(row.SGST).Add(row.IGST)
			if actual.Sub(expected).Abs().GreaterThan(domain.Tolerance) {
				err := r.Record(ctx, domain.CodeTaxMismatch, "normalized_row", id,
					fmt.Sprintf("computed tax %s, expected %s", actual.Round(2), expected.Round(2)),
					map[string]interface{}{"computed": actual.String(), "expected": expected.String()})
				if err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// DetectInvoice flags duplicate numbers, format mismatches and bad dates.
func DetectInvoice(ctx context.Context, r *Recorder, channel domain.Channel, rows []domain.NormalizedRow) error {
	seen := make(map[string]bool, len(rows))
	tomorrow := time.Now().UTC().Add(24 * time.Hour)
	for i := range rows {
		row := &rows[i]
		id := rowID(row, i)
		if row.InvoiceNo != "" {
			if seen[row.InvoiceNo] {
				err := r.Record(ctx, domain.CodeDuplicateInvoiceNo, "normalized_row", id,
					fmt.Sprintf("invoice number %s repeats within the run", row.InvoiceNo), nil)
				if err != nil {
					return err
				}
			}
			seen[row.InvoiceNo] = true
			if _, err := invoice.Parse(channel, row.InvoiceNo); err != nil {
				rerr := r.Record(ctx, domain.CodeInvoiceFormat, "normalized_row", id,
					fmt.Sprintf("invoice number %s does not match the channel pattern", row.InvoiceNo), nil)
				if rerr != nil {
					return rerr
				}
			}
		}
		if row.InvoiceDate.IsZero() || row.InvoiceDate.After(tomorrow) {
			err := r.Record(ctx, domain.CodeInvoiceDate, "normalized_row", id,
				fmt.Sprintf("invoice date %s is missing or in the future", row.InvoiceDate.Format("2006-01-02")), nil)
			if err != nil {
				return err
			}
		}
	}
	return nil
}

// DetectDataQuality flags negative amounts, bad quantities and missing
// required values.
func DetectDataQuality(ctx context.Context, r *Recorder, rows []domain.NormalizedRow) error {
	for i := range rows {
		row := &rows[i]
		id := rowID(row, i)
		if row.TaxableValue.IsNegative() && !row.IsReturn {
			err := r.Record(ctx, domain.CodeNegativeAmount, "normalized_row", id,
				fmt.Sprintf("taxable value %s is negative on a non-return row", row.TaxableValue), nil)
			if err != nil {
				return err
			}
		}
		if row.Quantity <= 0 && !row.IsReturn {
			err := r.Record(ctx, domain.CodeBadQuantity, "normalized_row", id,
				fmt.Sprintf("quantity %d on a non-return row", row.Quantity), nil)
			if err != nil {
				return err
			}
		}
		if row.SKU == "" && row.ASIN == "" {
			err := r.Record(ctx, domain.CodeMissingValue, "normalized_row", id,
				"row has neither sku nor asin", nil)
			if err != nil {
				return err
			}
		}
	}
	return nil
}

// DetectSchema records the missing columns found by the validation stage.
func DetectSchema(ctx context.Context, r *Recorder, reportType string, missing []string) error {
	for _, col := range missing {
		err := r.Record(ctx, domain.CodeMissingColumn, "report", reportType,
			fmt.Sprintf("required column %s is absent", col),
			map[string]interface{}{"column": col})
		if err != nil {
			return err
		}
	}
	return nil
}

// rowID prefers the order id, falling back to the positional index.
func rowID(row *domain.NormalizedRow, idx int) string {
	if row.OrderID != "" {
		return row.OrderID
	}
	return fmt.Sprintf("row-%d", idx)
}
