package pipeline

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"x2beta/internal/approval"
	"x2beta/internal/domain"
	"x2beta/internal/exception"
	"x2beta/internal/expense"
	"x2beta/internal/ingest"
	"x2beta/internal/invoice"
	"x2beta/internal/master"
	"x2beta/internal/pivot"
	"x2beta/internal/port"
	"x2beta/internal/tax"
	"x2beta/internal/x2beta"
)

// requiredNormalizedFields feeds the value-level schema validator.
var requiredNormalizedFields = []string{"invoice_date", "gst_rate", "state_code", "taxable_value"}

// stageIngest reads, normalizes, validates and snapshots the input.
func (c *Controller) stageIngest(ctx context.Context, st *runState) domain.RunStatus {
	data, err := os.ReadFile(st.opts.InputPath)
	if err != nil {
		log.Printf("pipeline: reading %s: %v", st.opts.InputPath, err)
		return domain.RunStatusIngestFailed
	}
	var returnsData []byte
	if st.opts.ReturnsPath != "" {
		if returnsData, err = os.ReadFile(st.opts.ReturnsPath); err != nil {
			log.Printf("pipeline: reading returns %s: %v", st.opts.ReturnsPath, err)
			return domain.RunStatusIngestFailed
		}
	}

	normalizer := ingest.NewNormalizer(ingest.RunMeta{
		Channel: st.opts.Channel,
		GSTIN:   st.opts.GSTIN,
		Month:   st.opts.Month,
	})
	rows, result, err := normalizer.Normalize(filepath.Base(st.opts.InputPath), data, filepath.Base(st.opts.ReturnsPath), returnsData)
	if err != nil {
		log.Printf("pipeline: normalizing %s: %v", st.opts.InputPath, err)
		if rerr := st.recorder.Record(ctx, domain.CodeIngestSchema, "report", filepath.Base(st.opts.InputPath), err.Error(), nil); rerr != nil {
			log.Printf("pipeline: recording ingest exception: %v", rerr)
		}
		return domain.RunStatusIngestFailed
	}
	st.logger.System(ctx, domain.ActionEncodingResolved, map[string]string{
		"file":     filepath.Base(st.opts.InputPath),
		"encoding": result.Encoding,
	})

	schema := ingest.ValidateSchema(rows, requiredNormalizedFields)
	if !schema.Valid {
		st.logger.System(ctx, domain.ActionSchemaRejected, map[string]any{"missing": schema.Missing})
		if err := exception.DetectSchema(ctx, st.recorder, result.ReportType, schema.Missing); err != nil {
			log.Printf("pipeline: recording schema exceptions: %v", err)
		}
		return domain.RunStatusSchemaFailed
	}
	st.logger.System(ctx, domain.ActionSchemaValidated, map[string]any{"rows": len(rows)})

	ingest.SortRows(rows)
	csvData, err := ingest.WriteCSV(rows)
	if err != nil {
		log.Printf("pipeline: writing normalized csv: %v", err)
		return domain.RunStatusIngestFailed
	}

	hash := sha256.Sum256(csvData)
	key := fmt.Sprintf("%s/normalized/%s_%s_%s_normalized_%s.csv",
		st.run.ID, st.opts.Channel, st.opts.GSTIN, st.opts.Month, uuid.NewString())
	path := c.upload(ctx, st, key, csvData, "text/csv")

	report := &domain.RawReport{
		ID:          uuid.New(),
		RunID:       st.run.ID,
		ReportType:  result.ReportType,
		FilePath:    path,
		ContentHash: hex.EncodeToString(hash[:]),
		CreatedAt:   time.Now().UTC(),
	}
	if err := c.deps.Reports.Create(ctx, report); err != nil {
		log.Printf("pipeline: registering report: %v", err)
		return domain.RunStatusFailed
	}
	st.logger.Log(ctx, domain.ActorSystem, domain.ActionReportIngested, "report", report.ID.String(), map[string]any{
		"report_type": result.ReportType,
		"total_rows":  result.TotalRows,
		"emitted":     result.EmittedRows,
		"skipped":     result.SkippedRows,
	}, nil)

	st.rows = rows
	return domain.RunStatusRunning
}

// stageMapping resolves masters, runs the auto-approval pass and re-resolves
// so rows pick up auto-approved values within the same run.
func (c *Controller) stageMapping(ctx context.Context, st *runState) domain.RunStatus {
	if st.opts.ASINMapPath != "" {
		data, err := os.ReadFile(st.opts.ASINMapPath)
		if err != nil {
			log.Printf("pipeline: reading asin map %s: %v", st.opts.ASINMapPath, err)
			return domain.RunStatusFailed
		}
		res, err := master.LoadItems(ctx, c.deps.Items, filepath.Base(st.opts.ASINMapPath), data)
		if err != nil {
			log.Printf("pipeline: loading asin map: %v", err)
			return domain.RunStatusFailed
		}
		st.logger.System(ctx, domain.ActionMasterImported, map[string]any{
			"file":     filepath.Base(st.opts.ASINMapPath),
			"inserted": res.Inserted,
			"skipped":  res.Skipped,
		})
	}

	cov, err := c.resolveMasters(ctx, st)
	if err != nil {
		log.Printf("pipeline: master resolution: %v", err)
		return domain.RunStatusFailed
	}

	if cov.UnmappedRows > 0 {
		engine := approval.NewEngine(c.deps.Approvals, c.deps.Items, c.deps.Ledgers, c.deps.Notifier, c.cfg.Approval)
		approved, pending, err := engine.EvaluateRun(ctx, st.run.ID)
		if err != nil {
			log.Printf("pipeline: approval evaluation: %v", err)
			return domain.RunStatusFailed
		}
		st.logger.System(ctx, domain.ActionApprovalAutoOK, map[string]any{"approved": approved, "pending": pending})
		if approved > 0 {
			if cov, err = c.resolveMasters(ctx, st); err != nil {
				log.Printf("pipeline: master re-resolution: %v", err)
				return domain.RunStatusFailed
			}
		}
	}

	st.logger.System(ctx, domain.ActionMappingCoverage, map[string]any{
		"total":    cov.TotalRows,
		"mapped":   cov.MappedRows,
		"percent":  cov.Percent,
		"unmapped": cov.UnmappedRows,
	})
	st.unmapped = cov.UnmappedRows

	if cov.UnmappedRows > 0 && c.cfg.Approval.BlockOnUnmapped {
		st.logger.System(ctx, domain.ActionCoverageBlocked, map[string]any{"unmapped": cov.UnmappedRows})
		return domain.RunStatusAwaitingApproval
	}
	return domain.RunStatusRunning
}

func (c *Controller) resolveMasters(ctx context.Context, st *runState) (master.Coverage, error) {
	items := master.NewItemResolver(c.deps.Items, c.deps.Approvals, st.run.ID)
	ledgers := master.NewLedgerResolver(c.deps.Ledgers, c.deps.Approvals, st.run.ID, st.opts.Channel)
	return master.ResolveRows(ctx, items, ledgers, st.rows)
}

// stageTaxInvoice computes the GST split and assigns invoice numbers.
func (c *Controller) stageTaxInvoice(ctx context.Context, st *runState) domain.RunStatus {
	engine, err := tax.NewEngine(st.opts.Channel, st.opts.GSTIN, c.cfg.Pipeline.Workers)
	if err != nil {
		log.Printf("pipeline: tax engine: %v", err)
		return domain.RunStatusFailed
	}

	rowErrs, err := engine.ComputeAll(ctx, st.rows)
	if err != nil {
		log.Printf("pipeline: tax computation: %v", err)
		return domain.RunStatusFailed
	}
	for _, re := range rowErrs {
		rerr := st.recorder.Record(ctx, domain.CodeInvalidGSTRate, "normalized_row",
			fmt.Sprintf("row-%d", re.Index), re.Err.Error(), nil)
		if rerr != nil {
			log.Printf("pipeline: recording tax exception: %v", rerr)
		}
	}
	if crit := st.recorder.Critical(); crit != nil {
		return domain.RunStatusFailed
	}

	computations := make([]domain.TaxComputation, 0, len(st.rows))
	for i := range st.rows {
		computations = append(computations, tax.Computation(st.run.ID, &st.rows[i]))
	}
	if err := c.deps.Tax.CreateBatch(ctx, computations); err != nil {
		log.Printf("pipeline: persisting tax computations: %v", err)
		return domain.RunStatusFailed
	}
	st.logger.System(ctx, domain.ActionTaxComputed, map[string]any{
		"rows":          len(st.rows),
		"company_state": engine.CompanyState(),
	})

	numberer, err := invoice.NewNumberer(ctx, c.deps.Registry, st.opts.Channel, st.opts.GSTIN, st.opts.Month)
	if err != nil {
		log.Printf("pipeline: invoice numberer: %v", err)
		return domain.RunStatusFailed
	}
	st.logger.System(ctx, domain.ActionRegistryPreloaded, map[string]string{"month": st.opts.Month})
	if err := numberer.Assign(ctx, st.run.ID, st.rows); err != nil {
		log.Printf("pipeline: invoice assignment: %v", err)
		return domain.RunStatusFailed
	}
	st.logger.System(ctx, domain.ActionInvoicesAssigned, map[string]any{"rows": len(st.rows)})
	return domain.RunStatusRunning
}

// stagePivotBatch aggregates, splits per rate and validates conservation.
func (c *Controller) stagePivotBatch(ctx context.Context, st *runState) domain.RunStatus {
	st.summaries = pivot.Build(st.run.ID, st.opts.Channel, st.opts.GSTIN, st.opts.Month, st.rows)
	if err := c.deps.Pivots.CreateBatch(ctx, st.summaries); err != nil {
		log.Printf("pipeline: persisting pivot: %v", err)
		return domain.RunStatusFailed
	}
	st.logger.System(ctx, domain.ActionPivotBuilt, map[string]any{"groups": len(st.summaries)})

	dir := c.workDir(st)
	batches, err := pivot.SplitBatches(dir, st.run.ID, st.opts.Channel, st.opts.GSTIN, st.opts.Month, st.summaries)
	if err != nil {
		log.Printf("pipeline: batch split: %v", err)
		if rerr := st.recorder.Record(ctx, domain.CodeBatchMissing, "pivot", st.run.ID.String(), err.Error(), nil); rerr != nil {
			log.Printf("pipeline: recording batch exception: %v", rerr)
		}
		return domain.RunStatusBatchMissing
	}
	if err := pivot.ValidateConservation(st.summaries, batches); err != nil {
		log.Printf("pipeline: conservation: %v", err)
		return domain.RunStatusFailed
	}

	for i := range batches {
		b := &batches[i]
		if data, rerr := os.ReadFile(b.FilePath); rerr == nil {
			b.FilePath = c.upload(ctx, st, fmt.Sprintf("%s/batches/%s", st.run.ID, filepath.Base(b.FilePath)), data, "text/csv")
		}
		if err := c.deps.Batches.Create(ctx, b); err != nil {
			log.Printf("pipeline: registering batch: %v", err)
			return domain.RunStatusFailed
		}
	}
	st.batches = batches
	st.logger.System(ctx, domain.ActionBatchesSplit, map[string]any{"batches": len(batches)})
	return domain.RunStatusRunning
}

// stageTallyExport renders one X2Beta workbook per batch.
func (c *Controller) stageTallyExport(ctx context.Context, st *runState) domain.RunStatus {
	info, templatePath, err := c.deps.Templates.Resolve(st.opts.GSTIN)
	if err != nil {
		log.Printf("pipeline: template: %v", err)
		if rerr := st.recorder.Record(ctx, domain.CodeTemplateMissing, "template", info.FileName, err.Error(), nil); rerr != nil {
			log.Printf("pipeline: recording template exception: %v", rerr)
		}
		return domain.RunStatusTemplateMissing
	}
	st.logger.System(ctx, domain.ActionTemplateLoaded, map[string]string{"template": info.FileName})

	dir := c.workDir(st)
	for i := range st.batches {
		b := &st.batches[i]
		var rated []domain.PivotSummary
		for j := range st.summaries {
			if st.summaries[j].GSTRate.Equal(b.GSTRate) {
				rated = append(rated, st.summaries[j])
			}
		}

		vouchers, err := x2beta.MapSalesVouchers(rated)
		if err != nil {
			log.Printf("pipeline: voucher mapping: %v", err)
			return domain.RunStatusFailed
		}
		if err := x2beta.ValidateVouchers(vouchers); err != nil {
			log.Printf("pipeline: voucher validation: %v", err)
			return domain.RunStatusFailed
		}
		path, size, err := x2beta.RenderToFile(dir, templatePath, st.opts.Channel, st.opts.GSTIN, st.opts.Month, b.GSTRate, vouchers)
		if err != nil {
			log.Printf("pipeline: rendering: %v", err)
			return c.registerExport(ctx, st, b, info.FileName, "", 0, 0, domain.ExportStatusFailed)
		}
		if data, rerr := os.ReadFile(path); rerr == nil {
			if err := x2beta.ValidateWorkbook(data, len(vouchers)); err != nil {
				log.Printf("pipeline: workbook validation: %v", err)
				return domain.RunStatusFailed
			}
			path = c.upload(ctx, st, fmt.Sprintf("%s/exports/%s", st.run.ID, filepath.Base(path)), data, xlsxContentType)
		}
		if status := c.registerExport(ctx, st, b, info.FileName, path, size, len(vouchers), domain.ExportStatusSuccess); status != domain.RunStatusRunning {
			return status
		}
		st.sales = append(st.sales, vouchers...)
	}
	return domain.RunStatusRunning
}

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func (c *Controller) registerExport(ctx context.Context, st *runState, b *domain.BatchFile, templateName, path string, size int64, records int, status domain.ExportStatus) domain.RunStatus {
	export := &domain.TallyExport{
		RunID:        st.run.ID,
		Channel:      st.opts.Channel,
		GSTIN:        st.opts.GSTIN,
		Month:        st.opts.Month,
		GSTRate:      b.GSTRate,
		TemplateName: templateName,
		FilePath:     path,
		FileSize:     size,
		RecordCount:  records,
		TotalTaxable: b.TotalTaxable,
		TotalTax:     b.TotalTax,
		ExportStatus: status,
	}
	if err := c.deps.Exports.Create(ctx, export); err != nil {
		log.Printf("pipeline: registering export: %v", err)
		return domain.RunStatusFailed
	}
	st.logger.System(ctx, domain.ActionExportRendered, map[string]any{
		"rate":    b.GSTRate.String(),
		"status":  string(status),
		"records": records,
	})
	if status == domain.ExportStatusFailed {
		return domain.RunStatusFailed
	}
	return domain.RunStatusRunning
}

// stageExpense parses seller invoices, maps them and renders the expense
// workbook plus the combined workbook when sales vouchers exist.
func (c *Controller) stageExpense(ctx context.Context, st *runState) domain.RunStatus {
	if len(st.opts.SellerInvoicePaths) == 0 {
		st.logger.System(ctx, domain.ActionStageSkipped, map[string]string{"stage": "expense_processing", "reason": "no seller invoices"})
		return domain.RunStatusRunning
	}

	parser := expense.NewParser(c.deps.Extractor)
	mapper, err := expense.NewMapper(st.opts.Channel, st.opts.GSTIN, st.opts.Month)
	if err != nil {
		log.Printf("pipeline: expense mapper: %v", err)
		return domain.RunStatusFailed
	}

	var invoices []domain.SellerInvoice
	for _, path := range st.opts.SellerInvoicePaths {
		data, err := os.ReadFile(path)
		if err != nil {
			log.Printf("pipeline: reading %s: %v", path, err)
			return domain.RunStatusFailed
		}
		parsed, err := parser.Parse(ctx, st.run.ID, st.opts.Channel, st.opts.GSTIN, filepath.Base(path), data)
		if err != nil {
			log.Printf("pipeline: parsing %s: %v", path, err)
			if rerr := st.recorder.Record(ctx, domain.CodeExpenseParse, "seller_invoice", filepath.Base(path), err.Error(), nil); rerr != nil {
				log.Printf("pipeline: recording parse exception: %v", rerr)
			}
			continue
		}
		invoices = append(invoices, parsed...)
	}
	if len(invoices) == 0 {
		return domain.RunStatusRunning
	}
	st.logger.System(ctx, domain.ActionExpenseParsed, map[string]any{"invoices": len(invoices)})

	mapped := mapper.MapAll(invoices)
	persist := make([]domain.SellerInvoice, 0, len(mapped))
	for i := range mapped {
		persist = append(persist, mapped[i].SellerInvoice)
	}
	if err := c.deps.SellerInvoices.CreateBatch(ctx, persist); err != nil {
		log.Printf("pipeline: persisting seller invoices: %v", err)
		return domain.RunStatusFailed
	}
	st.logger.System(ctx, domain.ActionExpenseMapped, map[string]any{"invoices": len(mapped)})

	lines, err := expense.ExpandAll(mapped)
	if err != nil {
		log.Printf("pipeline: expense expansion: %v", err)
		if rerr := st.recorder.Record(ctx, domain.CodeExpenseBalance, "seller_invoice", st.run.ID.String(), err.Error(), nil); rerr != nil {
			log.Printf("pipeline: recording balance exception: %v", rerr)
		}
		return domain.RunStatusFailed
	}

	info, templatePath, err := c.deps.Templates.Resolve(st.opts.GSTIN)
	if err != nil {
		log.Printf("pipeline: expense template: %v", err)
		return domain.RunStatusTemplateMissing
	}

	dir := c.workDir(st)
	now := time.Now().UTC()
	path, size, err := expense.RenderToFile(dir, templatePath, st.opts.Channel, st.opts.GSTIN, st.opts.Month, now, lines)
	if err != nil {
		log.Printf("pipeline: expense rendering: %v", err)
		return domain.RunStatusFailed
	}
	if data, rerr := os.ReadFile(path); rerr == nil {
		path = c.upload(ctx, st, fmt.Sprintf("%s/exports/%s", st.run.ID, filepath.Base(path)), data, xlsxContentType)
	}

	totalTaxable, totalTax := persistTotals(persist)
	export := &domain.ExpenseExport{
		ID:           uuid.New(),
		RunID:        st.run.ID,
		Channel:      st.opts.Channel,
		GSTIN:        st.opts.GSTIN,
		Month:        st.opts.Month,
		ExpenseType:  "combined",
		TemplateName: info.FileName,
		FilePath:     path,
		FileSize:     size,
		RecordCount:  len(mapped),
		TotalTaxable: totalTaxable,
		TotalTax:     totalTax,
		ExportStatus: domain.ExportStatusSuccess,
	}
	if err := c.deps.ExpenseExports.Create(ctx, export); err != nil {
		log.Printf("pipeline: registering expense export: %v", err)
		return domain.RunStatusFailed
	}
	st.logger.System(ctx, domain.ActionExpenseExported, map[string]any{"lines": len(lines)})

	if len(st.sales) > 0 {
		combinedPath, _, err := expense.RenderCombined(dir, templatePath, st.opts.Channel, st.opts.GSTIN, st.opts.Month, now, st.sales, lines)
		if err != nil {
			log.Printf("pipeline: combined workbook: %v", err)
			return domain.RunStatusFailed
		}
		if data, rerr := os.ReadFile(combinedPath); rerr == nil {
			c.upload(ctx, st, fmt.Sprintf("%s/exports/%s", st.run.ID, filepath.Base(combinedPath)), data, xlsxContentType)
		}
		st.logger.System(ctx, domain.ActionCombinedWorkbook, map[string]string{"file": filepath.Base(combinedPath)})
	}

	st.expenses = mapped
	return domain.RunStatusRunning
}

// stageExceptions runs the detection passes over the enriched rows.
func (c *Controller) stageExceptions(ctx context.Context, st *runState) domain.RunStatus {
	passes := []func(context.Context, *exception.Recorder, []domain.NormalizedRow) error{
		exception.DetectMapping,
		exception.DetectGST,
		exception.DetectDataQuality,
	}
	for _, pass := range passes {
		if err := pass(ctx, st.recorder, st.rows); err != nil {
			log.Printf("pipeline: exception pass: %v", err)
			return domain.RunStatusFailed
		}
	}
	if err := exception.DetectInvoice(ctx, st.recorder, st.opts.Channel, st.rows); err != nil {
		log.Printf("pipeline: invoice pass: %v", err)
		return domain.RunStatusFailed
	}
	if err := st.recorder.Flush(ctx); err != nil {
		log.Printf("pipeline: flushing exceptions: %v", err)
		return domain.RunStatusFailed
	}
	st.logger.System(ctx, domain.ActionExceptionsFlushed, map[string]any{"total": st.recorder.Total()})

	if crit := st.recorder.Critical(); crit != nil {
		return domain.RunStatusFailed
	}
	return domain.RunStatusRunning
}

// stageMIS generates and persists the management report.
func (c *Controller) stageMIS(ctx context.Context, st *runState) domain.RunStatus {
	report, err := c.mis.Generate(ctx, st.run.ID, st.opts.Channel, st.opts.GSTIN, st.opts.Month)
	if err != nil {
		log.Printf("pipeline: mis generation: %v", err)
		return domain.RunStatusFailed
	}
	st.logger.System(ctx, domain.ActionMISGenerated, map[string]any{
		"quality_score": report.DataQualityScore.String(),
		"exceptions":    report.ExceptionCount,
		"approvals":     report.ApprovalCount,
	})
	return domain.RunStatusRunning
}

// workDir prepares the run's scratch directory.
func (c *Controller) workDir(st *runState) string {
	dir := filepath.Join(c.cfg.Pipeline.WorkDir, st.run.ID.String())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		log.Printf("pipeline: creating %s: %v", dir, err)
	}
	return dir
}

// upload pushes an artifact to the blob store, returning the stored path.
// On failure the local path semantics are preserved: the caller keeps the
// key as a logical reference and the failure is audited.
func (c *Controller) upload(ctx context.Context, st *runState, key string, data []byte, contentType string) string {
	out, err := c.deps.Storage.Upload(ctx, port.UploadInput{
		Bucket:      c.cfg.S3.Bucket,
		Key:         key,
		Body:        bytes.NewReader(data),
		ContentType: contentType,
	})
	if err != nil {
		log.Printf("pipeline: uploading %s: %v", key, err)
		if rerr := st.recorder.Record(ctx, domain.CodeStorage, "artifact", key, err.Error(), nil); rerr != nil {
			log.Printf("pipeline: recording storage exception: %v", rerr)
		}
		return key
	}
	st.logger.Log(ctx, domain.ActorSystem, domain.ActionFileUploaded, "artifact", key, nil, nil)
	return out.Path
}

func persistTotals(invoices []domain.SellerInvoice) (taxable, tax decimal.Decimal) {
	for i := range invoices {
		taxable = taxable.Add(invoices[i].TaxableValue)
		tax = tax.Add(invoices[i].CGST).Add(invoices[i].SGST).Add(invoices[i].IGST)
	}
	return taxable.Round(2), tax.Round(2)
}
