package domain

// ErrorCode is a member of the closed pipeline error taxonomy. The category
// prefix groups codes by stage: MAP (item/ledger mapping), LED (ledgers),
// GST (tax), INV (invoice numbers), SCH (schema), EXP (expenses), DAT
// (data quality), SYS (system).
type ErrorCode string

const (
	CodeMissingSKUMapping  ErrorCode = "MAP-001"
	CodeMissingASINMapping ErrorCode = "MAP-002"
	CodeAmbiguousMapping   ErrorCode = "MAP-003"

	CodeMissingLedger    ErrorCode = "LED-001"
	CodeInvalidStateCode ErrorCode = "LED-002"

	CodeInvalidGSTRate    ErrorCode = "GST-001"
	CodeTaxMismatch       ErrorCode = "GST-002"
	CodeMissingGSTRate    ErrorCode = "GST-003"
	CodeInterstateUnknown ErrorCode = "GST-004"

	CodeDuplicateInvoiceNo ErrorCode = "INV-001"
	CodeInvoiceFormat      ErrorCode = "INV-002"
	CodeInvoiceDate        ErrorCode = "INV-003"

	CodeNegativeAmount ErrorCode = "DAT-001"
	CodeBadQuantity    ErrorCode = "DAT-002"
	CodeMissingValue   ErrorCode = "DAT-003"

	CodeMissingColumn ErrorCode = "SCH-001"
	CodeNonNumeric    ErrorCode = "SCH-002"
	CodeIngestSchema  ErrorCode = "INGEST_SCHEMA"

	CodeTemplateMissing ErrorCode = "EXP-001"
	CodeExpenseParse    ErrorCode = "EXP-002"
	CodeExpenseBalance  ErrorCode = "EXP-003"

	CodeBatchMissing ErrorCode = "BATCH-MISSING"
	CodeStorage      ErrorCode = "SYS-001"
	CodeDatabase     ErrorCode = "SYS-002"
	CodeInternal     ErrorCode = "SYS-003"
)

// CodeInfo carries the fixed attributes of an error code.
type CodeInfo struct {
	Title            string
	Severity         Severity
	AutoResolve      bool
	RequiresApproval bool
}

// ErrorCatalog is the closed taxonomy. Codes not in this table must not be
// written to the exceptions table.
var ErrorCatalog = map[ErrorCode]CodeInfo{
	CodeMissingSKUMapping:  {"Missing SKU mapping", SeverityError, false, true},
	CodeMissingASINMapping: {"Missing ASIN mapping", SeverityError, false, true},
	CodeAmbiguousMapping:   {"Ambiguous item mapping", SeverityWarning, false, true},

	CodeMissingLedger:    {"Missing ledger mapping", SeverityError, false, true},
	CodeInvalidStateCode: {"Invalid state code", SeverityError, false, false},

	CodeInvalidGSTRate:    {"Invalid GST rate", SeverityCritical, false, false},
	CodeTaxMismatch:       {"Computed tax does not match expected", SeverityError, false, false},
	CodeMissingGSTRate:    {"Missing GST rate on taxable row", SeverityError, false, true},
	CodeInterstateUnknown: {"Interstate determination failed", SeverityError, false, false},

	CodeDuplicateInvoiceNo: {"Duplicate invoice number", SeverityError, false, false},
	CodeInvoiceFormat:      {"Invoice number format mismatch", SeverityWarning, true, false},
	CodeInvoiceDate:        {"Invalid or future invoice date", SeverityWarning, false, false},

	CodeNegativeAmount: {"Negative amount", SeverityWarning, false, false},
	CodeBadQuantity:    {"Zero or negative quantity", SeverityWarning, false, false},
	CodeMissingValue:   {"Missing required column value", SeverityError, false, false},

	CodeMissingColumn: {"Missing required column", SeverityCritical, false, false},
	CodeNonNumeric:    {"Non-numeric value in numeric column", SeverityError, false, false},
	CodeIngestSchema:  {"Source schema unsatisfiable", SeverityCritical, false, false},

	CodeTemplateMissing: {"X2Beta template missing", SeverityCritical, false, false},
	CodeExpenseParse:    {"Seller invoice parse failed", SeverityError, false, false},
	CodeExpenseBalance:  {"Expense voucher does not balance", SeverityError, false, false},

	CodeBatchMissing: {"No batch files produced", SeverityCritical, false, false},
	CodeStorage:      {"Object store operation failed", SeverityError, false, false},
	CodeDatabase:     {"Database operation failed", SeverityCritical, false, false},
	CodeInternal:     {"Internal error", SeverityCritical, false, false},
}

// Info returns the catalog attributes for code, or a generic internal-error
// descriptor for codes outside the taxonomy.
func (c ErrorCode) Info() CodeInfo {
	if info, ok := ErrorCatalog[c]; ok {
		return info
	}
	return ErrorCatalog[CodeInternal]
}

// Critical reports whether the code halts the run.
func (c ErrorCode) Critical() bool {
	return c.Info().Severity == SeverityCritical
}
