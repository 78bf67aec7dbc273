package pivot

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"x2beta/internal/domain"
)

var batchColumns = []string{
	"gstin", "month", "state_code", "fg", "ledger_name", "invoice_no",
	"gst_rate", "total_quantity", "total_taxable",
	"total_cgst", "total_sgst", "total_igst", "is_return",
}

// BatchFileName renders the per-rate partition file name, e.g.
// amazon_mtr_06ABGCS4796R1ZA_2025-08_18pct_batch.csv.
func BatchFileName(channel domain.Channel, gstin, month string, rate decimal.Decimal) string {
	return fmt.Sprintf("%s_%s_%s_%spct_batch.csv", channel, gstin, month, domain.RatePercent(rate))
}

// SplitBatches partitions the pivot by GST rate and writes one CSV per
// distinct rate under dir, returning the registry rows. Rates appear in the
// pivot's order.
func SplitBatches(dir string, runID uuid.UUID, channel domain.Channel, gstin, month string, summaries []domain.PivotSummary) ([]domain.BatchFile, error) {
	type bucket struct {
		rate decimal.Decimal
		rows []domain.PivotSummary
	}
	var buckets []*bucket
	byRate := make(map[string]*bucket)
	for _, s := range summaries {
		key := s.GSTRate.String()
		b, ok := byRate[key]
		if !ok {
			b = &bucket{rate: s.GSTRate}
			byRate[key] = b
			buckets = append(buckets, b)
		}
		b.rows = append(b.rows, s)
	}

	var files []domain.BatchFile
	for _, b := range buckets {
		name := BatchFileName(channel, gstin, month, b.rate)
		path := filepath.Join(dir, name)
		data, err := MarshalBatchCSV(b.rows)
		if err != nil {
			return nil, fmt.Errorf("pivot.SplitBatches: %s: %w", name, err)
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return nil, fmt.Errorf("pivot.SplitBatches: writing %s: %w", name, err)
		}

		bf := domain.BatchFile{
			RunID:    runID,
			Channel:  channel,
			GSTIN:    gstin,
			Month:    month,
			GSTRate:  b.rate,
			FilePath: path,
		}
		for i := range b.rows {
			bf.RecordCount += b.rows[i].RecordCount
			bf.TotalTaxable = bf.TotalTaxable.Add(b.rows[i].TotalTaxable)
			bf.TotalTax = bf.TotalTax.Add(b.rows[i].TotalTax())
		}
		bf.TotalTaxable = bf.TotalTaxable.Round(2)
		bf.TotalTax = bf.TotalTax.Round(2)
		files = append(files, bf)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%s: %w", domain.CodeBatchMissing, domain.ErrNoBatchFiles)
	}
	return files, nil
}

// MarshalBatchCSV renders pivot rows in the batch column order.
func MarshalBatchCSV(rows []domain.PivotSummary) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(batchColumns); err != nil {
		return nil, err
	}
	for i := range rows {
		r := &rows[i]
		rec := []string{
			r.GSTIN, r.Month, r.StateCode, r.FG, r.Ledger, r.InvoiceNo,
			r.GSTRate.String(),
			strconv.Itoa(r.TotalQuantity),
			r.TotalTaxable.StringFixed(2),
			r.TotalCGST.StringFixed(2),
			r.TotalSGST.StringFixed(2),
			r.TotalIGST.StringFixed(2),
			strconv.FormatBool(r.IsReturn),
		}
		if err := w.Write(rec); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

// UnmarshalBatchCSV is the inverse of MarshalBatchCSV. RecordCount is not
// carried in the file; each row reads back as one record.
func UnmarshalBatchCSV(data []byte) ([]domain.PivotSummary, error) {
	r := csv.NewReader(bytes.NewReader(data))
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("pivot.UnmarshalBatchCSV: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}
	idx := make(map[string]int, len(records[0]))
	for i, h := range records[0] {
		idx[h] = i
	}
	for _, col := range batchColumns {
		if _, ok := idx[col]; !ok {
			return nil, fmt.Errorf("pivot.UnmarshalBatchCSV: missing column %s: %w", col, domain.ErrMissingColumns)
		}
	}

	out := make([]domain.PivotSummary, 0, len(records)-1)
	for _, rec := range records[1:] {
		get := func(col string) string { return rec[idx[col]] }
		row := domain.PivotSummary{
			GSTIN:       get("gstin"),
			Month:       get("month"),
			StateCode:   get("state_code"),
			FG:          get("fg"),
			Ledger:      get("ledger_name"),
			InvoiceNo:   get("invoice_no"),
			RecordCount: 1,
		}
		var perr error
		if row.GSTRate, perr = decimal.NewFromString(get("gst_rate")); perr != nil {
			return nil, fmt.Errorf("pivot.UnmarshalBatchCSV: gst_rate %q: %w", get("gst_rate"), perr)
		}
		if row.TotalQuantity, perr = strconv.Atoi(get("total_quantity")); perr != nil {
			return nil, fmt.Errorf("pivot.UnmarshalBatchCSV: total_quantity %q: %w", get("total_quantity"), perr)
		}
		for col, dst := range map[string]*decimal.Decimal{
			"total_taxable": &row.TotalTaxable,
			"total_cgst":    &row.TotalCGST,
			"total_sgst":    &row.TotalSGST,
			"total_igst":    &row.TotalIGST,
		} {
			if *dst, perr = decimal.NewFromString(get(col)); perr != nil {
				return nil, fmt.Errorf("pivot.UnmarshalBatchCSV: %s %q: %w", col, get(col), perr)
			}
		}
		row.IsReturn = get("is_return") == "true"
		out = append(out, row)
	}
	return out, nil
}
