package x2beta

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"

	"x2beta/internal/domain"
)

// ValidateVouchers checks that every voucher balances before rendering.
func ValidateVouchers(vouchers []domain.X2BetaVoucher) error {
	for i := range vouchers {
		if !vouchers[i].Balanced() {
			return fmt.Errorf("x2beta.ValidateVouchers: voucher %s: %w",
				vouchers[i].VoucherNo, domain.ErrVoucherUnbalanced)
		}
	}
	return nil
}

// ValidateWorkbook re-opens a rendered workbook and checks the header row
// carries every template column and that the expected number of data rows
// was written.
func ValidateWorkbook(data []byte, expectedRows int) error {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("x2beta.ValidateWorkbook: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	rows, err := f.GetRows(sheet)
	if err != nil {
		return fmt.Errorf("x2beta.ValidateWorkbook: reading rows: %w", err)
	}

	if len(rows) < headerRow {
		return fmt.Errorf("x2beta.ValidateWorkbook: no header row: %w", domain.ErrMissingColumns)
	}
	present := make(map[string]bool, len(rows[headerRow-1]))
	for _, h := range rows[headerRow-1] {
		present[h] = true
	}
	for _, h := range voucherHeaders {
		if !present[h] {
			return fmt.Errorf("x2beta.ValidateWorkbook: missing header %q: %w", h, domain.ErrMissingColumns)
		}
	}

	got := 0
	for i := startRow - 1; i < len(rows); i++ {
		empty := true
		for _, cell := range rows[i] {
			if cell != "" {
				empty = false
				break
			}
		}
		if !empty {
			got++
		}
	}
	if got != expectedRows {
		return fmt.Errorf("x2beta.ValidateWorkbook: %d data rows, expected %d", got, expectedRows)
	}
	return nil
}
