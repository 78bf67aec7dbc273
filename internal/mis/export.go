package mis

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"

	"github.com/xuri/excelize/v2"

	"x2beta/internal/domain"
)

// csvColumns is the flat single-row CSV layout.
var csvColumns = []string{
	"run_id", "channel", "gstin", "month",
	"total_sales", "total_returns", "net_sales", "total_transactions",
	"total_skus", "total_quantity", "avg_order_value",
	"commission", "shipping", "fulfillment", "advertising", "storage",
	"other_expenses", "total_expenses",
	"net_gst_output", "net_gst_input", "gst_liability",
	"gross_profit", "profit_margin", "revenue_per_txn", "cost_per_txn", "return_rate",
	"exception_count", "approval_count", "data_quality_score",
}

// ExportCSV renders the report as one header line plus one data line.
func ExportCSV(r *domain.MISReport) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(csvColumns); err != nil {
		return nil, err
	}
	rec := []string{
		r.RunID.String(), string(r.Channel), r.GSTIN, r.Month,
		r.Sales.TotalSales.StringFixed(2),
		r.Sales.TotalReturns.StringFixed(2),
		r.Sales.NetSales.StringFixed(2),
		strconv.Itoa(r.Sales.TotalTransactions),
		strconv.Itoa(r.Sales.TotalSKUs),
		strconv.Itoa(r.Sales.TotalQuantity),
		r.Sales.AvgOrderValue.StringFixed(2),
		r.Expenses.Commission.StringFixed(2),
		r.Expenses.Shipping.StringFixed(2),
		r.Expenses.Fulfillment.StringFixed(2),
		r.Expenses.Advertising.StringFixed(2),
		r.Expenses.Storage.StringFixed(2),
		r.Expenses.Other.StringFixed(2),
		r.Expenses.TotalExpenses.StringFixed(2),
		r.GST.NetGSTOutput.StringFixed(2),
		r.GST.NetGSTInput.StringFixed(2),
		r.GST.GSTLiability.StringFixed(2),
		r.Profitability.GrossProfit.StringFixed(2),
		r.Profitability.ProfitMargin.StringFixed(2),
		r.Profitability.RevenuePerTxn.StringFixed(2),
		r.Profitability.CostPerTxn.StringFixed(2),
		r.Profitability.ReturnRate.StringFixed(2),
		strconv.Itoa(r.ExceptionCount),
		strconv.Itoa(r.ApprovalCount),
		r.DataQualityScore.StringFixed(2),
	}
	if err := w.Write(rec); err != nil {
		return nil, err
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

// ExportExcel renders the single-sheet summary with styled section headers.
func ExportExcel(r *domain.MISReport) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 12, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"4472C4"}},
	})
	if err != nil {
		return nil, fmt.Errorf("mis.ExportExcel: header style: %w", err)
	}

	row := 1
	writeSection := func(title string, pairs [][2]string) error {
		cell := fmt.Sprintf("A%d", row)
		if err := f.SetCellValue(sheet, cell, title); err != nil {
			return err
		}
		if err := f.SetCellStyle(sheet, cell, fmt.Sprintf("B%d", row), headerStyle); err != nil {
			return err
		}
		row++
		for _, p := range pairs {
			if err := f.SetCellValue(sheet, fmt.Sprintf("A%d", row), p[0]); err != nil {
				return err
			}
			if err := f.SetCellValue(sheet, fmt.Sprintf("B%d", row), p[1]); err != nil {
				return err
			}
			row++
		}
		row++
		return nil
	}

	sections := []struct {
		title string
		pairs [][2]string
	}{
		{"Run", [][2]string{
			{"Run ID", r.RunID.String()},
			{"Channel", r.Channel.Title()},
			{"GSTIN", r.GSTIN},
			{"Month", r.Month},
		}},
		{"Sales", [][2]string{
			{"Total Sales", r.Sales.TotalSales.StringFixed(2)},
			{"Total Returns", r.Sales.TotalReturns.StringFixed(2)},
			{"Net Sales", r.Sales.NetSales.StringFixed(2)},
			{"Transactions", strconv.Itoa(r.Sales.TotalTransactions)},
			{"Distinct SKUs", strconv.Itoa(r.Sales.TotalSKUs)},
			{"Quantity", strconv.Itoa(r.Sales.TotalQuantity)},
			{"Avg Order Value", r.Sales.AvgOrderValue.StringFixed(2)},
		}},
		{"Expenses", [][2]string{
			{"Commission", r.Expenses.Commission.StringFixed(2)},
			{"Shipping", r.Expenses.Shipping.StringFixed(2)},
			{"Fulfillment", r.Expenses.Fulfillment.StringFixed(2)},
			{"Advertising", r.Expenses.Advertising.StringFixed(2)},
			{"Storage", r.Expenses.Storage.StringFixed(2)},
			{"Other", r.Expenses.Other.StringFixed(2)},
			{"Total Expenses", r.Expenses.TotalExpenses.StringFixed(2)},
		}},
		{"GST", [][2]string{
			{"Output CGST", r.GST.OutputCGST.StringFixed(2)},
			{"Output SGST", r.GST.OutputSGST.StringFixed(2)},
			{"Output IGST", r.GST.OutputIGST.StringFixed(2)},
			{"Input CGST", r.GST.InputCGST.StringFixed(2)},
			{"Input SGST", r.GST.InputSGST.StringFixed(2)},
			{"Input IGST", r.GST.InputIGST.StringFixed(2)},
			{"GST Liability", r.GST.GSTLiability.StringFixed(2)},
		}},
		{"Profitability", [][2]string{
			{"Gross Profit", r.Profitability.GrossProfit.StringFixed(2)},
			{"Profit Margin %", r.Profitability.ProfitMargin.StringFixed(2)},
			{"Revenue / Txn", r.Profitability.RevenuePerTxn.StringFixed(2)},
			{"Cost / Txn", r.Profitability.CostPerTxn.StringFixed(2)},
			{"Return Rate %", r.Profitability.ReturnRate.StringFixed(2)},
		}},
		{"Data Quality", [][2]string{
			{"Exceptions", strconv.Itoa(r.ExceptionCount)},
			{"Approvals", strconv.Itoa(r.ApprovalCount)},
			{"Quality Score", r.DataQualityScore.StringFixed(2)},
		}},
	}
	for _, s := range sections {
		if err := writeSection(s.title, s.pairs); err != nil {
			return nil, fmt.Errorf("mis.ExportExcel: section %s: %w", s.title, err)
		}
	}

	if err := f.SetColWidth(sheet, "A", "A", 24); err != nil {
		return nil, err
	}
	if err := f.SetColWidth(sheet, "B", "B", 40); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("mis.ExportExcel: serializing: %w", err)
	}
	return buf.Bytes(), nil
}
