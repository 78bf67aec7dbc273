// Package pipeline implements the staged run controller. Stages execute
// sequentially; failures set a status instead of propagating, and the
// driver maps the final status to an exit code.
package pipeline

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"x2beta/internal/audit"
	"x2beta/internal/config"
	"x2beta/internal/domain"
	"x2beta/internal/exception"
	"x2beta/internal/expense"
	"x2beta/internal/port"
	"x2beta/internal/x2beta"
)

// StageToggles selects which stages run. Ingestion and schema validation
// always run; everything downstream is opt-in.
type StageToggles struct {
	Mapping           bool
	TaxInvoice        bool
	PivotBatch        bool
	TallyExport       bool
	ExpenseProcessing bool
	ExceptionHandling bool
	MISAudit          bool
}

// FullPipeline enables every stage.
func FullPipeline() StageToggles {
	return StageToggles{
		Mapping:           true,
		TaxInvoice:        true,
		PivotBatch:        true,
		TallyExport:       true,
		ExpenseProcessing: true,
		ExceptionHandling: true,
		MISAudit:          true,
	}
}

// Options parameterizes one run.
type Options struct {
	Channel            domain.Channel
	GSTIN              string
	Month              string // YYYY-MM
	InputPath          string
	ReturnsPath        string // pepperfry
	ASINMapPath        string // amazon_str
	SellerInvoicePaths []string
	Stages             StageToggles
}

// Deps carries the controller's collaborators.
type Deps struct {
	Runs           port.RunRepository
	Reports        port.ReportRepository
	Items          port.ItemMasterRepository
	Ledgers        port.LedgerMasterRepository
	Approvals      port.ApprovalRepository
	Tax            port.TaxRepository
	Registry       port.InvoiceRegistry
	Pivots         port.PivotRepository
	Batches        port.BatchRepository
	Exports        port.ExportRepository
	SellerInvoices port.SellerInvoiceRepository
	ExpenseExports port.ExpenseExportRepository
	Exceptions     port.ExceptionRepository
	Audit          port.AuditRepository
	MIS            port.MISRepository

	Storage   port.ObjectStorage
	Notifier  port.Notifier
	Extractor port.TextExtractor
	Templates *x2beta.Registry
}

// MISGenerator is implemented by the mis package; kept as an interface so
// the controller does not import it (mis already imports the same ports).
type MISGenerator interface {
	Generate(ctx context.Context, runID uuid.UUID, channel domain.Channel, gstin, month string) (*domain.MISReport, error)
}

// Controller executes runs.
type Controller struct {
	cfg  *config.Config
	deps Deps
	mis  MISGenerator
}

// NewController wires the controller.
func NewController(cfg *config.Config, deps Deps, mis MISGenerator) *Controller {
	return &Controller{cfg: cfg, deps: deps, mis: mis}
}

// runState carries per-run working data between stages.
type runState struct {
	run      *domain.Run
	opts     Options
	logger   *audit.Logger
	session  *audit.Session
	recorder *exception.Recorder

	rows      []domain.NormalizedRow
	unmapped  int
	summaries []domain.PivotSummary
	batches   []domain.BatchFile
	sales     []domain.X2BetaVoucher
	expenses  []expense.MappedExpense
}

// Execute runs the pipeline for opts and returns the run id plus its final
// status. The status, not the error, is the primary outcome; the error is
// non-nil only for infrastructure failures worth logging.
func (c *Controller) Execute(ctx context.Context, opts Options) (uuid.UUID, domain.RunStatus, error) {
	run := &domain.Run{
		ID:        uuid.New(),
		Channel:   opts.Channel,
		GSTIN:     opts.GSTIN,
		Month:     opts.Month,
		Status:    domain.RunStatusRunning,
		StartedAt: time.Now().UTC(),
	}
	if err := c.deps.Runs.Create(ctx, run); err != nil {
		return uuid.Nil, domain.RunStatusFailed, err
	}

	st := &runState{run: run, opts: opts}
	st.logger = audit.NewLogger(c.deps.Audit, run.ID, c.cfg.Pipeline.AuditBuffer)
	st.session = audit.NewSession(ctx, st.logger)
	st.recorder = exception.NewRecorder(c.deps.Exceptions, run.ID, c.cfg.Pipeline.ExceptionBatch)

	st.logger.System(ctx, domain.ActionRunStarted, map[string]string{
		"channel": string(opts.Channel),
		"gstin":   opts.GSTIN,
		"month":   opts.Month,
	})

	status := c.execute(ctx, st)

	// The final status is persisted on every exit path, cancellation
	// included.
	finishCtx := ctx
	if finishCtx.Err() != nil {
		var cancel context.CancelFunc
		finishCtx, cancel = context.WithTimeout(context.Background(), c.cfg.Pipeline.QueryTimeout)
		defer cancel()
	}
	if err := st.recorder.Flush(finishCtx); err != nil {
		log.Printf("pipeline: flushing exceptions for %s: %v", run.ID, err)
	}
	st.logger.System(finishCtx, domain.ActionRunFinished, map[string]string{"status": string(status)})
	if err := st.session.End(finishCtx); err != nil {
		log.Printf("pipeline: closing audit session for %s: %v", run.ID, err)
	}
	now := time.Now().UTC()
	var finishedAt *time.Time
	if status.Terminal() {
		finishedAt = &now
	}
	if err := c.deps.Runs.UpdateStatus(finishCtx, run.ID, status, finishedAt); err != nil {
		log.Printf("pipeline: persisting status %s for %s: %v", status, run.ID, err)
	}
	if !status.OK() {
		c.notifyFailure(finishCtx, st, status)
	}
	return run.ID, status, nil
}

// execute walks the stages, returning at the first terminal condition.
func (c *Controller) execute(ctx context.Context, st *runState) domain.RunStatus {
	stages := []struct {
		name    string
		enabled bool
		fn      func(context.Context, *runState) domain.RunStatus
	}{
		{"ingest", true, c.stageIngest},
		{"mapping", st.opts.Stages.Mapping, c.stageMapping},
		{"tax_invoice", st.opts.Stages.TaxInvoice, c.stageTaxInvoice},
		{"pivot_batch", st.opts.Stages.PivotBatch, c.stagePivotBatch},
		{"tally_export", st.opts.Stages.TallyExport, c.stageTallyExport},
		{"expense_processing", st.opts.Stages.ExpenseProcessing, c.stageExpense},
		{"exception_handling", st.opts.Stages.ExceptionHandling, c.stageExceptions},
		{"mis_audit", st.opts.Stages.MISAudit, c.stageMIS},
	}

	for _, stage := range stages {
		if err := ctx.Err(); err != nil {
			st.logger.System(ctx, domain.ActionRunCancelled, map[string]string{"stage": stage.name})
			return domain.RunStatusFailed
		}
		if !stage.enabled {
			st.logger.System(ctx, domain.ActionStageSkipped, map[string]string{"stage": stage.name})
			continue
		}

		status := domain.RunStatusRunning
		_ = st.session.Operation(ctx, stage.name, func(ctx context.Context) error {
			status = stage.fn(ctx, st)
			return nil
		})
		if status != domain.RunStatusRunning {
			return status
		}
		if crit := st.recorder.Critical(); crit != nil {
			st.logger.System(ctx, domain.ActionExceptionDetected, map[string]string{
				"code":  string(crit.Code),
				"stage": stage.name,
			})
			return domain.RunStatusFailed
		}
	}
	return domain.RunStatusSuccess
}

func (c *Controller) notifyFailure(ctx context.Context, st *runState, status domain.RunStatus) {
	err := c.deps.Notifier.Send(ctx, domain.SeverityError,
		"Pipeline run failed: "+string(status),
		map[string]string{
			"run_id":  st.run.ID.String(),
			"channel": string(st.opts.Channel),
			"gstin":   st.opts.GSTIN,
			"month":   st.opts.Month,
			"status":  string(status),
		})
	if err != nil {
		log.Printf("pipeline: failure notification for %s: %v", st.run.ID, err)
	}
}
