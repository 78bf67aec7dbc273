// Package mis derives the management report for a run and exports it as
// CSV, Excel and a database row.
package mis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"x2beta/internal/domain"
	"x2beta/internal/port"
)

var hundred = decimal.NewFromInt(100)

// Generator assembles MIS reports from the run's persisted artifacts.
type Generator struct {
	pivots     port.PivotRepository
	invoices   port.SellerInvoiceRepository
	exceptions port.ExceptionRepository
	approvals  port.ApprovalRepository
	reports    port.MISRepository
}

// NewGenerator wires the source repositories.
func NewGenerator(pivots port.PivotRepository, invoices port.SellerInvoiceRepository, exceptions port.ExceptionRepository, approvals port.ApprovalRepository, reports port.MISRepository) *Generator {
	return &Generator{
		pivots:     pivots,
		invoices:   invoices,
		exceptions: exceptions,
		approvals:  approvals,
		reports:    reports,
	}
}

// Generate computes and persists the report for one run.
func (g *Generator) Generate(ctx context.Context, runID uuid.UUID, channel domain.Channel, gstin, month string) (*domain.MISReport, error) {
	summaries, err := g.pivots.ListByRun(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("mis.Generate: pivots: %w", err)
	}
	sellerInvoices, err := g.invoices.ListByRun(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("mis.Generate: seller invoices: %w", err)
	}
	exceptionCount, err := g.exceptions.CountByRun(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("mis.Generate: exceptions: %w", err)
	}
	approvalCount, err := g.approvals.CountByRun(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("mis.Generate: approvals: %w", err)
	}

	report := &domain.MISReport{
		RunID:          runID,
		Channel:        channel,
		GSTIN:          gstin,
		Month:          month,
		Sales:          salesMetrics(summaries),
		Expenses:       expenseMetrics(sellerInvoices),
		ExceptionCount: exceptionCount,
		ApprovalCount:  approvalCount,
		CreatedAt:      time.Now().UTC(),
	}
	report.GST = gstMetrics(summaries, sellerInvoices)
	report.Profitability = profitMetrics(&report.Sales, &report.Expenses)
	report.DataQualityScore = qualityScore(report.Sales.TotalTransactions, exceptionCount, approvalCount)

	if err := g.reports.Create(ctx, report); err != nil {
		return nil, fmt.Errorf("mis.Generate: persisting: %w", err)
	}
	return report, nil
}

func salesMetrics(summaries []domain.PivotSummary) domain.SalesMetrics {
	var m domain.SalesMetrics
	skus := make(map[string]bool)
	for i := range summaries {
		s := &summaries[i]
		amount := s.TotalTaxable
		if s.IsReturn {
			m.TotalReturns = m.TotalReturns.Add(amount.Abs())
		} else {
			m.TotalSales = m.TotalSales.Add(amount)
		}
		m.TotalTransactions += s.RecordCount
		m.TotalQuantity += s.TotalQuantity
		if s.FG != "" {
			skus[s.FG] = true
		}
	}
	m.TotalSKUs = len(skus)
	m.NetSales = m.TotalSales.Sub(m.TotalReturns)
	if m.TotalTransactions > 0 {
		m.AvgOrderValue = m.NetSales.Div(decimal.NewFromInt(int64(m.TotalTransactions))).Round(2)
	}
	return m
}

func expenseMetrics(invoices []domain.SellerInvoice) domain.ExpenseMetrics {
	var m domain.ExpenseMetrics
	for i := range invoices {
		inv := &invoices[i]
		v := inv.TaxableValue
		switch inv.ExpenseType {
		case domain.ExpenseCommission:
			m.Commission = m.Commission.Add(v)
		case domain.ExpenseShippingFee:
			m.Shipping = m.Shipping.Add(v)
		case domain.ExpenseFulfillmentFee:
			m.Fulfillment = m.Fulfillment.Add(v)
		case domain.ExpenseAdvertisingFee:
			m.Advertising = m.Advertising.Add(v)
		case domain.ExpenseStorageFee:
			m.Storage = m.Storage.Add(v)
		default:
			m.Other = m.Other.Add(v)
		}
		m.TotalExpenses = m.TotalExpenses.Add(v)
	}
	return m
}

func gstMetrics(summaries []domain.PivotSummary, invoices []domain.SellerInvoice) domain.GSTMetrics {
	var m domain.GSTMetrics
	for i := range summaries {
		s := &summaries[i]
		m.OutputCGST = m.OutputCGST.Add(s.TotalCGST)
		m.OutputSGST = m.OutputSGST.Add(s.TotalSGST)
		m.OutputIGST = m.OutputIGST.Add(s.TotalIGST)
	}
	for i := range invoices {
		inv := &invoices[i]
		m.InputCGST = m.InputCGST.Add(inv.CGST)
		m.InputSGST = m.InputSGST.Add(inv.SGST)
		m.InputIGST = m.InputIGST.Add(inv.IGST)
	}
	m.NetGSTOutput = m.OutputCGST.Add(m.OutputSGST).Add(m.OutputIGST)
	m.NetGSTInput = m.InputCGST.Add(m.InputSGST).Add(m.InputIGST)
	m.GSTLiability = m.NetGSTOutput.Sub(m.NetGSTInput)
	return m
}

func profitMetrics(sales *domain.SalesMetrics, expenses *domain.ExpenseMetrics) domain.ProfitMetrics {
	var m domain.ProfitMetrics
	m.GrossProfit = sales.NetSales.Sub(expenses.TotalExpenses)
	if !sales.NetSales.IsZero() {
		m.ProfitMargin = m.GrossProfit.Div(sales.NetSales).Mul(hundred).Round(2)
	}
	if sales.TotalTransactions > 0 {
		txns := decimal.NewFromInt(int64(sales.TotalTransactions))
		m.RevenuePerTxn = sales.NetSales.Div(txns).Round(2)
		m.CostPerTxn = expenses.TotalExpenses.Div(txns).Round(2)
	}
	if !sales.TotalSales.IsZero() {
		m.ReturnRate = sales.TotalReturns.Div(sales.TotalSales).Mul(hundred).Round(2)
	}
	return m
}

// qualityScore is 100 minus the defect ratio, floored at zero.
func qualityScore(totalRecords, exceptions, approvals int) decimal.Decimal {
	if totalRecords <= 0 {
		return hundred
	}
	defects := decimal.NewFromInt(int64(exceptions + approvals))
	score := hundred.Sub(defects.Mul(hundred).Div(decimal.NewFromInt(int64(totalRecords)))).Round(2)
	if score.IsNegative() {
		return decimal.Zero
	}
	return score
}

// GrowthRate is (new-old)/old*100, with old=0 mapping to 100 when new
// is positive and 0 otherwise.
func GrowthRate(oldValue, newValue decimal.Decimal) decimal.Decimal {
	if oldValue.IsZero() {
		if newValue.IsPositive() {
			return hundred
		}
		return decimal.Zero
	}
	return newValue.Sub(oldValue).Div(oldValue).Mul(hundred).Round(2)
}

// Comparison is the month-over-month growth view.
type Comparison struct {
	OldMonth      string          `json:"old_month"`
	NewMonth      string          `json:"new_month"`
	SalesGrowth   decimal.Decimal `json:"sales_growth"`
	ExpenseGrowth decimal.Decimal `json:"expense_growth"`
	ProfitGrowth  decimal.Decimal `json:"profit_growth"`
	GSTGrowth     decimal.Decimal `json:"gst_growth"`
}

// Compare builds growth rates between two persisted months.
func (g *Generator) Compare(ctx context.Context, channel domain.Channel, gstin, oldMonth, newMonth string) (*Comparison, error) {
	older, err := g.reports.GetByMonth(ctx, channel, gstin, oldMonth)
	if err != nil {
		return nil, fmt.Errorf("mis.Compare: %s: %w", oldMonth, err)
	}
	newer, err := g.reports.GetByMonth(ctx, channel, gstin, newMonth)
	if err != nil {
		return nil, fmt.Errorf("mis.Compare: %s: %w", newMonth, err)
	}
	return &Comparison{
		OldMonth:      oldMonth,
		NewMonth:      newMonth,
		SalesGrowth:   GrowthRate(older.Sales.NetSales, newer.Sales.NetSales),
		ExpenseGrowth: GrowthRate(older.Expenses.TotalExpenses, newer.Expenses.TotalExpenses),
		ProfitGrowth:  GrowthRate(older.Profitability.GrossProfit, newer.Profitability.GrossProfit),
		GSTGrowth:     GrowthRate(older.GST.GSTLiability, newer.GST.GSTLiability),
	}, nil
}
