package x2beta

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"x2beta/internal/domain"
)

const (
	headerRow = 4
	startRow  = 5

	maxColWidth = 50

	moneyFormat = "#,##0.00"
	dateFormat  = "02-01-2006"
)

// voucherHeaders is the fixed template column order.
var voucherHeaders = []string{
	"Date", "Voucher No.", "Voucher Type", "Party Ledger", "Item Name",
	"Quantity", "Rate", "Taxable Amount",
	"CGST Ledger", "CGST Amount", "SGST Ledger", "SGST Amount",
	"IGST Ledger", "IGST Amount", "Total Amount", "Narration",
}

// OutputFileName renders the export file name, e.g.
// amazon_mtr_06ABGCS4796R1ZA_2025-08_18pct_x2beta.xlsx.
func OutputFileName(channel domain.Channel, gstin, month string, rate decimal.Decimal) string {
	return fmt.Sprintf("%s_%s_%s_%spct_x2beta.xlsx", channel, gstin, month, domain.RatePercent(rate))
}

// Render loads the template, clears any stale data rows below the header
// zone, writes the vouchers starting at row 5 and returns the workbook
// bytes.
func Render(templatePath string, vouchers []domain.X2BetaVoucher) ([]byte, error) {
	f, err := excelize.OpenFile(templatePath)
	if err != nil {
		return nil, fmt.Errorf("x2beta.Render: opening template: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, fmt.Errorf("x2beta.Render: template has no sheets: %w", domain.ErrTemplateMissing)
	}

	if err := clearDataRows(f, sheet); err != nil {
		return nil, err
	}

	moneyStyle, err := f.NewStyle(&excelize.Style{CustomNumFmt: strptr(moneyFormat)})
	if err != nil {
		return nil, fmt.Errorf("x2beta.Render: money style: %w", err)
	}

	widths := make([]int, len(voucherHeaders))
	for i, h := range voucherHeaders {
		widths[i] = len(h)
	}

	for i := range vouchers {
		v := &vouchers[i]
		row := startRow + i
		cells := []interface{}{
			v.Date.Format(dateFormat),
			v.VoucherNo,
			string(v.VoucherType),
			v.PartyLedger,
			v.ItemName,
			v.Quantity,
			moneyCell(v.Rate),
			moneyCell(v.TaxableAmount),
			v.CGSTLedger,
			gstCell(v.CGSTLedger, v.CGSTAmount),
			v.SGSTLedger,
			gstCell(v.SGSTLedger, v.SGSTAmount),
			v.IGSTLedger,
			gstCell(v.IGSTLedger, v.IGSTAmount),
			moneyCell(v.TotalAmount),
			v.Narration,
		}
		for col, val := range cells {
			cell, cerr := excelize.CoordinatesToCellName(col+1, row)
			if cerr != nil {
				return nil, fmt.Errorf("x2beta.Render: cell %d,%d: %w", col+1, row, cerr)
			}
			if err := f.SetCellValue(sheet, cell, val); err != nil {
				return nil, fmt.Errorf("x2beta.Render: writing %s: %w", cell, err)
			}
			if _, isMoney := val.(float64); isMoney {
				if err := f.SetCellStyle(sheet, cell, cell, moneyStyle); err != nil {
					return nil, fmt.Errorf("x2beta.Render: styling %s: %w", cell, err)
				}
			}
			if w := len(fmt.Sprint(val)); w > widths[col] {
				widths[col] = w
			}
		}
	}

	for col, w := range widths {
		name, cerr := excelize.ColumnNumberToName(col + 1)
		if cerr != nil {
			return nil, fmt.Errorf("x2beta.Render: column %d: %w", col+1, cerr)
		}
		width := w + 2
		if width > maxColWidth {
			width = maxColWidth
		}
		if err := f.SetColWidth(sheet, name, name, float64(width)); err != nil {
			return nil, fmt.Errorf("x2beta.Render: sizing %s: %w", name, err)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("x2beta.Render: serializing: %w", err)
	}
	return buf.Bytes(), nil
}

// RenderToFile renders and writes under dir, returning the path and size.
func RenderToFile(dir, templatePath string, channel domain.Channel, gstin, month string, rate decimal.Decimal, vouchers []domain.X2BetaVoucher) (string, int64, error) {
	data, err := Render(templatePath, vouchers)
	if err != nil {
		return "", 0, err
	}
	path := filepath.Join(dir, OutputFileName(channel, gstin, month, rate))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", 0, fmt.Errorf("x2beta.RenderToFile: writing %s: %w", path, err)
	}
	return path, int64(len(data)), nil
}

// clearDataRows removes every populated row below the header zone so a
// reused template never leaks stale vouchers.
func clearDataRows(f *excelize.File, sheet string) error {
	rows, err := f.GetRows(sheet)
	if err != nil {
		return fmt.Errorf("x2beta: reading template rows: %w", err)
	}
	for i := len(rows); i >= startRow; i-- {
		if err := f.RemoveRow(sheet, i); err != nil {
			return fmt.Errorf("x2beta: clearing row %d: %w", i, err)
		}
	}
	return nil
}

// moneyCell converts to float64 so excelize writes a numeric cell.
func moneyCell(d decimal.Decimal) interface{} {
	v, _ := d.Round(2).Float64()
	return v
}

// gstCell writes a blank when the ledger is unset, a number otherwise.
func gstCell(ledger string, amount decimal.Decimal) interface{} {
	if ledger == "" {
		return ""
	}
	return moneyCell(amount)
}

func strptr(s string) *string { return &s }
