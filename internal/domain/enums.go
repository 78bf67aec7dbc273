package domain

// Channel identifies the e-commerce sales channel a report came from.
type Channel string

const (
	ChannelAmazonMTR Channel = "amazon_mtr"
	ChannelAmazonSTR Channel = "amazon_str"
	ChannelFlipkart  Channel = "flipkart"
	ChannelPepperfry Channel = "pepperfry"
)

// AllChannels lists every supported ingestion channel.
var AllChannels = []Channel{ChannelAmazonMTR, ChannelAmazonSTR, ChannelFlipkart, ChannelPepperfry}

// Valid reports whether c is a recognized channel.
func (c Channel) Valid() bool {
	switch c {
	case ChannelAmazonMTR, ChannelAmazonSTR, ChannelFlipkart, ChannelPepperfry:
		return true
	}
	return false
}

// Title returns the human-readable channel name used in ledger suggestions,
// e.g. "Amazon" for both MTR and STR reports.
func (c Channel) Title() string {
	switch c {
	case ChannelAmazonMTR, ChannelAmazonSTR:
		return "Amazon"
	case ChannelFlipkart:
		return "Flipkart"
	case ChannelPepperfry:
		return "Pepperfry"
	}
	return string(c)
}

// RunStatus represents the lifecycle of a pipeline run.
type RunStatus string

const (
	RunStatusRunning          RunStatus = "running"
	RunStatusSuccess          RunStatus = "success"
	RunStatusAwaitingApproval RunStatus = "awaiting_approval"
	RunStatusSummarized       RunStatus = "summarized"
	RunStatusExported         RunStatus = "exported"
	RunStatusFailed           RunStatus = "failed"

	// Stage-specific failure statuses.
	RunStatusIngestFailed    RunStatus = "ingest_failed"
	RunStatusSchemaFailed    RunStatus = "schema_failed"
	RunStatusTemplateMissing RunStatus = "tally_template_missing"
	RunStatusBatchMissing    RunStatus = "batch_missing"
)

// Terminal reports whether the run can no longer be mutated.
func (s RunStatus) Terminal() bool {
	return s != RunStatusRunning && s != RunStatusAwaitingApproval
}

// OK reports whether the driver should exit zero for this status.
func (s RunStatus) OK() bool {
	switch s {
	case RunStatusSuccess, RunStatusAwaitingApproval, RunStatusSummarized, RunStatusExported:
		return true
	}
	return false
}

// RowType classifies a normalized sales row.
type RowType string

const (
	RowTypeShipment RowType = "shipment"
	RowTypeRefund   RowType = "refund"
	RowTypeReturn   RowType = "return"
)

// ApprovalType identifies what kind of master-data decision is pending.
type ApprovalType string

const (
	ApprovalTypeItem    ApprovalType = "item"
	ApprovalTypeLedger  ApprovalType = "ledger"
	ApprovalTypeGSTRate ApprovalType = "gst_rate"
	ApprovalTypeInvoice ApprovalType = "invoice"
)

// ApprovalStatus is the decision state of an approval request.
type ApprovalStatus string

const (
	ApprovalStatusPending  ApprovalStatus = "pending"
	ApprovalStatusApproved ApprovalStatus = "approved"
	ApprovalStatusRejected ApprovalStatus = "rejected"
)

// Severity grades exceptions and notifications.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityError    Severity = "error"
	SeverityCritical Severity = "critical"
)

// Actor identifies who performed an audited action.
type Actor string

const (
	ActorSystem  Actor = "system"
	ActorUser    Actor = "user"
	ActorAgent   Actor = "agent"
	ActorFinance Actor = "finance"
	ActorAdmin   Actor = "admin"
)

// AuditAction enumerates the audit-log action vocabulary.
type AuditAction string

const (
	ActionRunStarted         AuditAction = "run_started"
	ActionRunFinished        AuditAction = "run_finished"
	ActionOperationStart     AuditAction = "operation_start"
	ActionOperationComplete  AuditAction = "operation_complete"
	ActionOperationCritical  AuditAction = "operation_critical_error"
	ActionReportIngested     AuditAction = "report_ingested"
	ActionEncodingResolved   AuditAction = "encoding_resolved"
	ActionSchemaValidated    AuditAction = "schema_validated"
	ActionSchemaRejected     AuditAction = "schema_rejected"
	ActionItemResolved       AuditAction = "item_resolved"
	ActionLedgerResolved     AuditAction = "ledger_resolved"
	ActionMappingCoverage    AuditAction = "mapping_coverage"
	ActionApprovalRequested  AuditAction = "approval_requested"
	ActionApprovalAutoOK     AuditAction = "approval_auto_approved"
	ActionApprovalDecided    AuditAction = "approval_decided"
	ActionTaxComputed        AuditAction = "tax_computed"
	ActionInvoicesAssigned   AuditAction = "invoices_assigned"
	ActionPivotBuilt         AuditAction = "pivot_built"
	ActionBatchesSplit       AuditAction = "batches_split"
	ActionExportRendered     AuditAction = "export_rendered"
	ActionExpenseParsed      AuditAction = "expense_parsed"
	ActionExpenseMapped      AuditAction = "expense_mapped"
	ActionExpenseExported    AuditAction = "expense_exported"
	ActionExceptionDetected  AuditAction = "exception_detected"
	ActionExceptionsFlushed  AuditAction = "exceptions_flushed"
	ActionMISGenerated       AuditAction = "mis_generated"
	ActionNotificationSent   AuditAction = "notification_sent"
	ActionFileUploaded       AuditAction = "file_uploaded"
	ActionFileDownloaded     AuditAction = "file_downloaded"
	ActionMasterImported     AuditAction = "master_imported"
	ActionRunCancelled       AuditAction = "run_cancelled"
	ActionStageSkipped       AuditAction = "stage_skipped"
	ActionRegistryPreloaded  AuditAction = "registry_preloaded"
	ActionDuplicateSkipped   AuditAction = "duplicate_skipped"
	ActionSessionStarted     AuditAction = "session_started"
	ActionSessionEnded       AuditAction = "session_ended"
	ActionCombinedWorkbook   AuditAction = "combined_workbook_built"
	ActionTemplateLoaded     AuditAction = "template_loaded"
	ActionCoverageBlocked    AuditAction = "coverage_blocked"
	ActionOverrideApplied    AuditAction = "override_applied"
)

// VoucherType distinguishes sales from purchase vouchers in X2Beta files.
type VoucherType string

const (
	VoucherTypeSales    VoucherType = "Sales"
	VoucherTypePurchase VoucherType = "Purchase"
)

// ExpenseType buckets seller fees for ledger mapping and MIS grouping.
type ExpenseType string

const (
	ExpenseClosingFee       ExpenseType = "closing_fee"
	ExpenseShippingFee      ExpenseType = "shipping_fee"
	ExpenseCommission       ExpenseType = "commission"
	ExpenseFulfillmentFee   ExpenseType = "fulfillment_fee"
	ExpenseStorageFee       ExpenseType = "storage_fee"
	ExpenseAdvertisingFee   ExpenseType = "advertising_fee"
	ExpenseRefundProcessing ExpenseType = "refund_processing_fee"
	ExpensePaymentGateway   ExpenseType = "payment_gateway_fee"
	ExpenseOther            ExpenseType = "other"
)

// ProcessingStatus tracks a seller invoice through the expense sub-pipeline.
type ProcessingStatus string

const (
	ProcessingStatusParsed   ProcessingStatus = "parsed"
	ProcessingStatusMapped   ProcessingStatus = "mapped"
	ProcessingStatusExported ProcessingStatus = "exported"
	ProcessingStatusFailed   ProcessingStatus = "failed"
)

// ExportStatus tracks an X2Beta export registry row.
type ExportStatus string

const (
	ExportStatusSuccess ExportStatus = "success"
	ExportStatusFailed  ExportStatus = "failed"
)
