package expense

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"x2beta/internal/domain"
	"x2beta/internal/x2beta"
)

// OutputFileName renders the expense export name. The timestamp keeps
// repeated runs within a month from clobbering each other.
func OutputFileName(channel domain.Channel, gstin, month string, at time.Time) string {
	return fmt.Sprintf("%s_expenses_%s_%s_x2beta_%s.xlsx",
		channel, gstin, month, at.Format("20060102_150405"))
}

// CombinedFileName names the merged sales-plus-expense workbook. Same
// shape as OutputFileName with the expenses token swapped for combined.
func CombinedFileName(channel domain.Channel, gstin, month string, at time.Time) string {
	return fmt.Sprintf("%s_combined_%s_%s_x2beta_%s.xlsx",
		channel, gstin, month, at.Format("20060102_150405"))
}

// RenderToFile renders the voucher lines against the template and writes
// the file under dir, returning path and size.
func RenderToFile(dir, templatePath string, channel domain.Channel, gstin, month string, at time.Time, lines []domain.X2BetaVoucher) (string, int64, error) {
	data, err := x2beta.Render(templatePath, lines)
	if err != nil {
		return "", 0, err
	}
	path := filepath.Join(dir, OutputFileName(channel, gstin, month, at))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", 0, fmt.Errorf("expense.RenderToFile: writing %s: %w", path, err)
	}
	return path, int64(len(data)), nil
}

// RenderCombined merges the run's sales vouchers with the expense lines
// into one workbook, sales first.
func RenderCombined(dir, templatePath string, channel domain.Channel, gstin, month string, at time.Time, sales, expenses []domain.X2BetaVoucher) (string, int64, error) {
	merged := make([]domain.X2BetaVoucher, 0, len(sales)+len(expenses))
	merged = append(merged, sales...)
	merged = append(merged, expenses...)

	data, err := x2beta.Render(templatePath, merged)
	if err != nil {
		return "", 0, err
	}
	path := filepath.Join(dir, CombinedFileName(channel, gstin, month, at))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", 0, fmt.Errorf("expense.RenderCombined: writing %s: %w", path, err)
	}
	return path, int64(len(data)), nil
}
