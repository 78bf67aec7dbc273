package expense

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"x2beta/internal/domain"
)

// ExpandVoucherLines turns one mapped expense into its purchase voucher
// group: a debit to the expense ledger for the taxable value, a debit per
// nonzero input-GST component, and a credit to the channel payable ledger
// for the full invoice value. The group's total amounts sum to zero.
func ExpandVoucherLines(m *MappedExpense) []domain.X2BetaVoucher {
	date := m.InvoiceDate
	if date.IsZero() {
		if t, err := time.Parse("2006-01", m.Month); err == nil {
			date = t
		}
	}

	narration := fmt.Sprintf("Expense - %s - %s", m.ExpenseType, m.InvoiceNo)
	line := func(ledger string, amount decimal.Decimal) domain.X2BetaVoucher {
		return domain.X2BetaVoucher{
			Date:        date,
			VoucherNo:   m.VoucherNo,
			VoucherType: domain.VoucherTypePurchase,
			PartyLedger: ledger,
			ItemName:    m.HSN,
			TotalAmount: amount,
			Narration:   narration,
		}
	}

	lines := []domain.X2BetaVoucher{line(m.LedgerName, m.TaxableValue)}
	if m.InputGST {
		pct := domain.RatePercent(m.GSTRate)
		if m.CGST.IsPositive() {
			lines = append(lines, line(fmt.Sprintf("Input CGST @ %s%%", pct), m.CGST))
		}
		if m.SGST.IsPositive() {
			lines = append(lines, line(fmt.Sprintf("Input SGST @ %s%%", pct), m.SGST))
		}
		if m.IGST.IsPositive() {
			lines = append(lines, line(fmt.Sprintf("Input IGST @ %s%%", pct), m.IGST))
		}
	}
	lines = append(lines, line(fmt.Sprintf("%s Payable", m.Channel.Title()), m.TotalValue.Neg()))
	return lines
}

// ValidateVoucherGroup checks the balancing invariant: the signed total
// amounts of one voucher group must cancel out within tolerance.
func ValidateVoucherGroup(lines []domain.X2BetaVoucher) error {
	var sum decimal.Decimal
	for i := range lines {
		sum = sum.Add(lines[i].TotalAmount)
	}
	if sum.Abs().GreaterThan(domain.Tolerance) {
		no := ""
		if len(lines) > 0 {
			no = lines[0].VoucherNo
		}
		return fmt.Errorf("%s: voucher %s off by %s: %w",
			domain.CodeExpenseBalance, no, sum, domain.ErrVoucherUnbalanced)
	}
	return nil
}

// ExpandAll expands and validates every mapped expense, preserving order.
func ExpandAll(mapped []MappedExpense) ([]domain.X2BetaVoucher, error) {
	var out []domain.X2BetaVoucher
	for i := range mapped {
		lines := ExpandVoucherLines(&mapped[i])
		if err := ValidateVoucherGroup(lines); err != nil {
			return nil, err
		}
		out = append(out, lines...)
	}
	return out, nil
}
