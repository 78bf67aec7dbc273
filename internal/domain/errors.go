package domain

import "errors"

var (
	ErrNotFound          = errors.New("resource not found")
	ErrDuplicateKey      = errors.New("duplicate key")
	ErrUnknownChannel    = errors.New("unknown channel")
	ErrInvalidGSTIN      = errors.New("invalid GSTIN")
	ErrInvalidMonth      = errors.New("month must be formatted YYYY-MM")
	ErrInvalidGSTRate    = errors.New("gst rate outside the valid set")
	ErrUnknownStateCode  = errors.New("state code not in the 36-entry set")
	ErrTemplateMissing   = errors.New("x2beta template not found for gstin")
	ErrNoBatchFiles      = errors.New("no batch files for run")
	ErrRunTerminal       = errors.New("run already in terminal status")
	ErrApprovalDecided   = errors.New("approval request already decided")
	ErrUnmappedRows      = errors.New("unmapped rows block tax and invoice stages")
	ErrUploadFailed      = errors.New("object store upload failed")
	ErrUnsupportedInput  = errors.New("unsupported input file type")
	ErrMissingColumns    = errors.New("required columns missing")
	ErrVoucherUnbalanced = errors.New("voucher does not balance")
)
