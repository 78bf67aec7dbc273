package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Run threads a single pipeline invocation through every stage. Created when
// the controller starts; immutable once Status is terminal.
type Run struct {
	ID         uuid.UUID  `db:"id" json:"id"`
	Channel    Channel    `db:"channel" json:"channel"`
	GSTIN      string     `db:"gstin" json:"gstin"`
	Month      string     `db:"month" json:"month"` // YYYY-MM
	Status     RunStatus  `db:"status" json:"status"`
	StartedAt  time.Time  `db:"started_at" json:"started_at"`
	FinishedAt *time.Time `db:"finished_at" json:"finished_at"`
}

// RawReport records one ingested input file.
type RawReport struct {
	ID          uuid.UUID `db:"id" json:"id"`
	RunID       uuid.UUID `db:"run_id" json:"run_id"`
	ReportType  string    `db:"report_type" json:"report_type"`
	FilePath    string    `db:"file_path" json:"file_path"`
	ContentHash string    `db:"content_hash" json:"content_hash"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// NormalizedRow is the canonical sales row every channel's report maps into.
// Later stages only add derived fields, never rewrite normalized ones.
type NormalizedRow struct {
	InvoiceDate   time.Time       `json:"invoice_date"`
	Type          RowType         `json:"type"`
	OrderID       string          `json:"order_id"`
	SKU           string          `json:"sku"`
	ASIN          string          `json:"asin"`
	Quantity      int             `json:"quantity"`
	TaxableValue  decimal.Decimal `json:"taxable_value"`
	ShippingValue decimal.Decimal `json:"shipping_value"`
	GSTRate       decimal.Decimal `json:"gst_rate"`
	StateCode     string          `json:"state_code"`
	SellerState   string          `json:"seller_state"`
	Channel       Channel         `json:"channel"`
	GSTIN         string          `json:"gstin"`
	Month         string          `json:"month"`
	IsReturn      bool            `json:"is_return"`
	TotalQty      int             `json:"total_qty"`
	ReturnedQty   int             `json:"returned_qty"`

	// Derived by later stages.
	FG        string          `json:"fg,omitempty"`
	Ledger    string          `json:"ledger_name,omitempty"`
	CGST      decimal.Decimal `json:"cgst"`
	SGST      decimal.Decimal `json:"sgst"`
	IGST      decimal.Decimal `json:"igst"`
	NetQty    int             `json:"net_qty,omitempty"`
	InvoiceNo string          `json:"invoice_no,omitempty"`
}

// ItemMaster maps a channel SKU/ASIN to a Final Goods name. At least one of
// SKU/ASIN is non-empty; each is an independent unique lookup key.
type ItemMaster struct {
	ID             uuid.UUID       `db:"id" json:"id"`
	SKU            string          `db:"sku" json:"sku"`
	ASIN           string          `db:"asin" json:"asin"`
	ItemCode       string          `db:"item_code" json:"item_code"`
	FG             string          `db:"fg" json:"fg"`
	GSTRateDefault decimal.Decimal `db:"gst_rate" json:"gst_rate"`
	ApprovedBy     string          `db:"approved_by" json:"approved_by"`
	ApprovedAt     *time.Time      `db:"approved_at" json:"approved_at"`
}

// LedgerMaster maps (channel, state) to the sales ledger name.
type LedgerMaster struct {
	ID         uuid.UUID  `db:"id" json:"id"`
	Channel    string     `db:"channel" json:"channel"`
	StateCode  string     `db:"state_code" json:"state_code"`
	LedgerName string     `db:"ledger_name" json:"ledger_name"`
	ApprovedBy string     `db:"approved_by" json:"approved_by"`
	ApprovedAt *time.Time `db:"approved_at" json:"approved_at"`
}

// ApprovalRequest queues a human (or rule-driven) master-data decision.
type ApprovalRequest struct {
	ID             uuid.UUID       `db:"id" json:"id"`
	RunID          uuid.UUID       `db:"run_id" json:"run_id"`
	Type           ApprovalType    `db:"request_type" json:"type"`
	Payload        json.RawMessage `db:"payload" json:"payload"`
	Status         ApprovalStatus  `db:"status" json:"status"`
	SuggestedValue string          `db:"suggested_value" json:"suggested_value"`
	Priority       int             `db:"priority" json:"priority"`
	Approver       string          `db:"approver" json:"approver"`
	Notes          string          `db:"notes" json:"notes"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
	DecidedAt      *time.Time      `db:"decided_at" json:"decided_at"`
}

// ItemApprovalPayload is the typed payload of an item approval request.
type ItemApprovalPayload struct {
	SKU            string          `json:"sku"`
	ASIN           string          `json:"asin"`
	ItemCode       string          `json:"item_code"`
	SuggestedFG    string          `json:"suggested_fg"`
	GSTRate        decimal.Decimal `json:"gst_rate"`
	EstimatedValue decimal.Decimal `json:"estimated_value"`
}

// LedgerApprovalPayload is the typed payload of a ledger approval request.
type LedgerApprovalPayload struct {
	Channel         string `json:"channel"`
	StateCode       string `json:"state_code"`
	SuggestedLedger string `json:"suggested_ledger"`
}

// GSTRateApprovalPayload proposes a rate override for a SKU.
type GSTRateApprovalPayload struct {
	SKU          string          `json:"sku"`
	CurrentRate  decimal.Decimal `json:"current_rate"`
	ProposedRate decimal.Decimal `json:"proposed_rate"`
	Reason       string          `json:"reason"`
}

// InvoiceApprovalPayload proposes an invoice-number override.
type InvoiceApprovalPayload struct {
	InvoiceNo    string `json:"invoice_no"`
	OverrideType string `json:"override_type"`
	Replacement  string `json:"replacement"`
}

// TaxComputation is the persisted per-row GST split. Exactly one of
// CGST+SGST or IGST is nonzero, or all three are zero for rate 0.
type TaxComputation struct {
	RunID         uuid.UUID       `db:"run_id" json:"run_id"`
	Channel       Channel         `db:"channel" json:"channel"`
	GSTIN         string          `db:"gstin" json:"gstin"`
	StateCode     string          `db:"state_code" json:"state_code"`
	SKU           string          `db:"sku" json:"sku"`
	TaxableValue  decimal.Decimal `db:"taxable_value" json:"taxable_value"`
	ShippingValue decimal.Decimal `db:"shipping_value" json:"shipping_value"`
	CGST          decimal.Decimal `db:"cgst" json:"cgst"`
	SGST          decimal.Decimal `db:"sgst" json:"sgst"`
	IGST          decimal.Decimal `db:"igst" json:"igst"`
	GSTRate       decimal.Decimal `db:"gst_rate" json:"gst_rate"`
}

// InvoiceRegistryEntry reserves a generated invoice number. InvoiceNo is
// globally unique across the registry.
type InvoiceRegistryEntry struct {
	RunID     uuid.UUID `db:"run_id" json:"run_id"`
	Channel   Channel   `db:"channel" json:"channel"`
	GSTIN     string    `db:"gstin" json:"gstin"`
	StateCode string    `db:"state_code" json:"state_code"`
	InvoiceNo string    `db:"invoice_no" json:"invoice_no"`
	Month     string    `db:"month" json:"month"`
}

// PivotSummary is one aggregated group of the pivot stage.
type PivotSummary struct {
	RunID         uuid.UUID       `db:"run_id" json:"run_id"`
	Channel       Channel         `db:"channel" json:"channel"`
	GSTIN         string          `db:"gstin" json:"gstin"`
	Month         string          `db:"month" json:"month"`
	GSTRate       decimal.Decimal `db:"gst_rate" json:"gst_rate"`
	Ledger        string          `db:"ledger" json:"ledger_name"`
	FG            string          `db:"fg" json:"fg"`
	StateCode     string          `db:"state_code" json:"state_code"`
	TotalQuantity int             `db:"total_quantity" json:"total_quantity"`
	TotalTaxable  decimal.Decimal `db:"total_taxable" json:"total_taxable"`
	TotalCGST     decimal.Decimal `db:"total_cgst" json:"total_cgst"`
	TotalSGST     decimal.Decimal `db:"total_sgst" json:"total_sgst"`
	TotalIGST     decimal.Decimal `db:"total_igst" json:"total_igst"`
	InvoiceNo     string          `db:"invoice_no" json:"invoice_no"`
	IsReturn      bool            `db:"is_return" json:"is_return"`
	RecordCount   int             `db:"record_count" json:"record_count"`
}

// TotalTax returns CGST+SGST+IGST.
func (p *PivotSummary) TotalTax() decimal.Decimal {
	return p.TotalCGST.Add(p.TotalSGST).Add(p.TotalIGST)
}

// TotalAmount returns taxable plus tax.
func (p *PivotSummary) TotalAmount() decimal.Decimal {
	return p.TotalTaxable.Add(p.TotalTax())
}

// BatchFile registers one per-GST-rate partition of the pivot output.
type BatchFile struct {
	RunID        uuid.UUID       `db:"run_id" json:"run_id"`
	Channel      Channel         `db:"channel" json:"channel"`
	GSTIN        string          `db:"gstin" json:"gstin"`
	Month        string          `db:"month" json:"month"`
	GSTRate      decimal.Decimal `db:"gst_rate" json:"gst_rate"`
	FilePath     string          `db:"file_path" json:"file_path"`
	RecordCount  int             `db:"record_count" json:"record_count"`
	TotalTaxable decimal.Decimal `db:"total_taxable" json:"total_taxable"`
	TotalTax     decimal.Decimal `db:"total_tax" json:"total_tax"`
}

// TallyExport registers one rendered X2Beta workbook.
type TallyExport struct {
	RunID        uuid.UUID       `db:"run_id" json:"run_id"`
	Channel      Channel         `db:"channel" json:"channel"`
	GSTIN        string          `db:"gstin" json:"gstin"`
	Month        string          `db:"month" json:"month"`
	GSTRate      decimal.Decimal `db:"gst_rate" json:"gst_rate"`
	TemplateName string          `db:"template_name" json:"template_name"`
	FilePath     string          `db:"file_path" json:"file_path"`
	FileSize     int64           `db:"file_size" json:"file_size"`
	RecordCount  int             `db:"record_count" json:"record_count"`
	TotalTaxable decimal.Decimal `db:"total_taxable" json:"total_taxable"`
	TotalTax     decimal.Decimal `db:"total_tax" json:"total_tax"`
	ExportStatus ExportStatus    `db:"export_status" json:"export_status"`
}

// SellerInvoice is a parsed channel fee invoice (expense sub-pipeline).
type SellerInvoice struct {
	ID           uuid.UUID        `db:"id" json:"id"`
	RunID        uuid.UUID        `db:"run_id" json:"run_id"`
	Channel      Channel          `db:"channel" json:"channel"`
	GSTIN        string           `db:"gstin" json:"gstin"`
	VendorGSTIN  string           `db:"vendor_gstin" json:"vendor_gstin"`
	InvoiceNo    string           `db:"invoice_no" json:"invoice_no"`
	InvoiceDate  time.Time        `db:"invoice_date" json:"invoice_date"`
	ExpenseType  ExpenseType      `db:"expense_type" json:"expense_type"`
	TaxableValue decimal.Decimal  `db:"taxable_value" json:"taxable_value"`
	GSTRate      decimal.Decimal  `db:"gst_rate" json:"gst_rate"`
	CGST         decimal.Decimal  `db:"cgst" json:"cgst"`
	SGST         decimal.Decimal  `db:"sgst" json:"sgst"`
	IGST         decimal.Decimal  `db:"igst" json:"igst"`
	TotalValue   decimal.Decimal  `db:"total_value" json:"total_value"`
	LedgerName   string           `db:"ledger_name" json:"ledger_name"`
	Status       ProcessingStatus `db:"processing_status" json:"processing_status"`
}

// GSTConsistent checks the sum-of-GST invariant at the 0.01 tolerance.
func (s *SellerInvoice) GSTConsistent() bool {
	gst := s.CGST.Add(s.SGST).Add(s.IGST)
	diff := s.TotalValue.Sub(s.TaxableValue).Sub(gst).Abs()
	return diff.LessThanOrEqual(Tolerance)
}

// ExpenseExport registers one rendered expense workbook.
type ExpenseExport struct {
	ID           uuid.UUID       `db:"id" json:"id"`
	RunID        uuid.UUID       `db:"run_id" json:"run_id"`
	Channel      Channel         `db:"channel" json:"channel"`
	GSTIN        string          `db:"gstin" json:"gstin"`
	Month        string          `db:"month" json:"month"`
	ExpenseType  string          `db:"expense_type" json:"expense_type"`
	TemplateName string          `db:"template_name" json:"template_name"`
	FilePath     string          `db:"file_path" json:"file_path"`
	FileSize     int64           `db:"file_size" json:"file_size"`
	RecordCount  int             `db:"record_count" json:"record_count"`
	TotalTaxable decimal.Decimal `db:"total_taxable" json:"total_taxable"`
	TotalTax     decimal.Decimal `db:"total_tax" json:"total_tax"`
	ExportStatus ExportStatus    `db:"export_status" json:"export_status"`
}

// X2BetaVoucher is one row of a rendered voucher file.
type X2BetaVoucher struct {
	Date          time.Time
	VoucherNo     string
	VoucherType   VoucherType
	PartyLedger   string
	ItemName      string
	Quantity      int
	Rate          decimal.Decimal
	TaxableAmount decimal.Decimal
	CGSTLedger    string
	CGSTAmount    decimal.Decimal
	SGSTLedger    string
	SGSTAmount    decimal.Decimal
	IGSTLedger    string
	IGSTAmount    decimal.Decimal
	TotalAmount   decimal.Decimal
	Narration     string
}

// Balanced checks the per-voucher invariant for a sales voucher:
// total == taxable + cgst + sgst + igst within tolerance.
func (v *X2BetaVoucher) Balanced() bool {
	sum := v.TaxableAmount.Add(v.CGSTAmount).Add(v.SGSTAmount).Add(v.IGSTAmount)
	return v.TotalAmount.Sub(sum).Abs().LessThanOrEqual(Tolerance)
}

// Exception is one detected defect, scoped to a run.
type Exception struct {
	RunID      uuid.UUID       `db:"run_id" json:"run_id"`
	RecordType string          `db:"record_type" json:"record_type"`
	RecordID   string          `db:"record_id" json:"record_id"`
	Code       ErrorCode       `db:"error_code" json:"error_code"`
	Message    string          `db:"error_message" json:"error_message"`
	Details    json.RawMessage `db:"error_details" json:"error_details"`
	Severity   Severity        `db:"severity" json:"severity"`
	CreatedAt  time.Time       `db:"created_at" json:"created_at"`
}

// AuditLogEntry is one append-only audit event.
type AuditLogEntry struct {
	RunID      uuid.UUID       `db:"run_id" json:"run_id"`
	Actor      Actor           `db:"actor" json:"actor"`
	Action     AuditAction     `db:"action" json:"action"`
	EntityType string          `db:"entity_type" json:"entity_type"`
	EntityID   string          `db:"entity_id" json:"entity_id"`
	Details    json.RawMessage `db:"details" json:"details"`
	Metadata   json.RawMessage `db:"metadata" json:"metadata"`
	Timestamp  time.Time       `db:"timestamp" json:"timestamp"`
}

// MISReport is the derived management view for one run.
type MISReport struct {
	RunID            uuid.UUID       `db:"run_id" json:"run_id"`
	Channel          Channel         `db:"channel" json:"channel"`
	GSTIN            string          `db:"gstin" json:"gstin"`
	Month            string          `db:"month" json:"month"`
	Sales            SalesMetrics    `db:"-" json:"sales_metrics"`
	Expenses         ExpenseMetrics  `db:"-" json:"expense_metrics"`
	GST              GSTMetrics      `db:"-" json:"gst_metrics"`
	Profitability    ProfitMetrics   `db:"-" json:"profitability_metrics"`
	DataQualityScore decimal.Decimal `db:"data_quality_score" json:"data_quality_score"`
	ExceptionCount   int             `db:"exception_count" json:"exception_count"`
	ApprovalCount    int             `db:"approval_count" json:"approval_count"`
	CreatedAt        time.Time       `db:"created_at" json:"created_at"`
}

// SalesMetrics aggregates the run's pivot summaries.
type SalesMetrics struct {
	TotalSales        decimal.Decimal `json:"total_sales"`
	TotalReturns      decimal.Decimal `json:"total_returns"`
	NetSales          decimal.Decimal `json:"net_sales"`
	TotalTransactions int             `json:"total_transactions"`
	TotalSKUs         int             `json:"total_skus"`
	TotalQuantity     int             `json:"total_quantity"`
	AvgOrderValue     decimal.Decimal `json:"avg_order_value"`
}

// ExpenseMetrics buckets seller-invoice totals by fee family.
type ExpenseMetrics struct {
	Commission    decimal.Decimal `json:"commission"`
	Shipping      decimal.Decimal `json:"shipping"`
	Fulfillment   decimal.Decimal `json:"fulfillment"`
	Advertising   decimal.Decimal `json:"advertising"`
	Storage       decimal.Decimal `json:"storage"`
	Other         decimal.Decimal `json:"other"`
	TotalExpenses decimal.Decimal `json:"total_expenses"`
}

// GSTMetrics nets output tax against input tax.
type GSTMetrics struct {
	OutputCGST   decimal.Decimal `json:"output_cgst"`
	OutputSGST   decimal.Decimal `json:"output_sgst"`
	OutputIGST   decimal.Decimal `json:"output_igst"`
	InputCGST    decimal.Decimal `json:"input_cgst"`
	InputSGST    decimal.Decimal `json:"input_sgst"`
	InputIGST    decimal.Decimal `json:"input_igst"`
	NetGSTOutput decimal.Decimal `json:"net_gst_output"`
	NetGSTInput  decimal.Decimal `json:"net_gst_input"`
	GSTLiability decimal.Decimal `json:"gst_liability"`
}

// ProfitMetrics derives profitability from sales and expense totals.
type ProfitMetrics struct {
	GrossProfit   decimal.Decimal `json:"gross_profit"`
	ProfitMargin  decimal.Decimal `json:"profit_margin"`
	RevenuePerTxn decimal.Decimal `json:"revenue_per_txn"`
	CostPerTxn    decimal.Decimal `json:"cost_per_txn"`
	ReturnRate    decimal.Decimal `json:"return_rate"`
}
