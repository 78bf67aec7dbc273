package x2beta

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"x2beta/internal/domain"
)

// MapSalesVoucher turns one pivot row into a sales voucher. seq numbers the
// row within its batch and feeds the synthesized voucher number when the
// pivot carries no invoice number.
func MapSalesVoucher(s *domain.PivotSummary, seq int) (domain.X2BetaVoucher, error) {
	date, err := monthStart(s.Month)
	if err != nil {
		return domain.X2BetaVoucher{}, err
	}

	voucherNo := s.InvoiceNo
	if voucherNo == "" {
		voucherNo = fmt.Sprintf("SL%s%04d", strings.ReplaceAll(s.Month, "-", ""), seq)
	}

	qty := s.TotalQuantity
	divisor := qty
	if divisor < 1 {
		divisor = 1
	}

	v := domain.X2BetaVoucher{
		Date:          date,
		VoucherNo:     voucherNo,
		VoucherType:   domain.VoucherTypeSales,
		PartyLedger:   s.Ledger,
		ItemName:      s.FG,
		Quantity:      qty,
		Rate:          s.TotalTaxable.Div(decimal.NewFromInt(int64(divisor))).Round(2),
		TaxableAmount: s.TotalTaxable,
		Narration:     fmt.Sprintf("Sales - %s - %s", s.FG, s.Month),
	}

	pct := domain.RatePercent(s.GSTRate)
	switch {
	case s.TotalCGST.IsPositive():
		v.CGSTLedger = fmt.Sprintf("Output CGST @ %s%%", pct)
		v.CGSTAmount = s.TotalCGST
		v.SGSTLedger = fmt.Sprintf("Output SGST @ %s%%", pct)
		v.SGSTAmount = s.TotalSGST
	case s.TotalIGST.IsPositive():
		v.IGSTLedger = fmt.Sprintf("Output IGST @ %s%%", pct)
		v.IGSTAmount = s.TotalIGST
	}

	v.TotalAmount = v.TaxableAmount.Add(v.CGSTAmount).Add(v.SGSTAmount).Add(v.IGSTAmount)
	return v, nil
}

// MapSalesVouchers maps a whole batch, sequencing from 1.
func MapSalesVouchers(summaries []domain.PivotSummary) ([]domain.X2BetaVoucher, error) {
	out := make([]domain.X2BetaVoucher, 0, len(summaries))
	for i := range summaries {
		v, err := MapSalesVoucher(&summaries[i], i+1)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// monthStart parses YYYY-MM into the first day of that month.
func monthStart(month string) (time.Time, error) {
	t, err := time.Parse("2006-01", month)
	if err != nil {
		return time.Time{}, fmt.Errorf("x2beta: month %q: %w", month, domain.ErrInvalidMonth)
	}
	return t, nil
}
