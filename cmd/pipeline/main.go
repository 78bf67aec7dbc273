// Command pipeline executes a batch conversion run for one channel, GSTIN,
// and month. The exit code reflects the run's final status: zero for
// completed or completed_with_exceptions, non-zero otherwise.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"x2beta/internal/config"
	"x2beta/internal/domain"
	"x2beta/internal/extract"
	"x2beta/internal/mis"
	"x2beta/internal/notify/noop"
	"x2beta/internal/notify/ses"
	"x2beta/internal/pipeline"
	"x2beta/internal/port"
	"x2beta/internal/repository/postgres"
	s3storage "x2beta/internal/storage/s3"
	"x2beta/internal/x2beta"
)

func main() {
	status, err := run()
	if err != nil {
		log.Printf("pipeline: %v", err)
	}
	if !status.OK() {
		os.Exit(1)
	}
}

func run() (domain.RunStatus, error) {
	var (
		agent          = flag.String("agent", "", "ingestion agent: amazon_mtr, amazon_str, flipkart, pepperfry")
		input          = flag.String("input", "", "path to the sales report (required)")
		returns        = flag.String("returns", "", "path to the returns report (pepperfry)")
		asinMap        = flag.String("asin-map", "", "path to the ASIN-to-SKU map (amazon_str)")
		channel        = flag.String("channel", "", "sales channel (required)")
		gstin          = flag.String("gstin", "", "company GSTIN (required)")
		month          = flag.String("month", "", "report month YYYY-MM (required)")
		enableMapping  = flag.Bool("enable-mapping", false, "run the item and ledger mapping stage")
		enableTax      = flag.Bool("enable-tax-invoice", false, "run the tax computation and invoice numbering stage")
		enablePivot    = flag.Bool("enable-pivot-batch", false, "run the pivot and batch splitting stage")
		enableTally    = flag.Bool("enable-tally-export", false, "run the X2Beta export stage")
		enableExpense  = flag.Bool("enable-expense-processing", false, "run the seller-invoice expense stage")
		sellerInvoices = flag.String("seller-invoices", "", "comma-separated seller invoice paths (expense stage)")
		enableExc      = flag.Bool("enable-exception-handling", false, "run exception detection")
		skipExc        = flag.Bool("skip-exception-handling", false, "skip exception detection")
		enableMIS      = flag.Bool("enable-mis-audit", false, "generate the MIS report and audit summary")
		fullPipeline   = flag.Bool("full-pipeline", false, "enable every stage")
	)
	flag.Parse()

	if *channel == "" && *agent != "" {
		*channel = *agent
	}
	ch := domain.Channel(*channel)
	if !ch.Valid() {
		return domain.RunStatusFailed, fmt.Errorf("invalid --channel %q", *channel)
	}
	if *input == "" || *gstin == "" || *month == "" {
		return domain.RunStatusFailed, fmt.Errorf("--input, --gstin and --month are required")
	}
	if *enableExc && *skipExc {
		return domain.RunStatusFailed, fmt.Errorf("--enable-exception-handling and --skip-exception-handling are mutually exclusive")
	}

	stages := pipeline.StageToggles{
		Mapping:           *enableMapping,
		TaxInvoice:        *enableTax,
		PivotBatch:        *enablePivot,
		TallyExport:       *enableTally,
		ExpenseProcessing: *enableExpense,
		ExceptionHandling: *enableExc,
		MISAudit:          *enableMIS,
	}
	if *fullPipeline {
		stages = pipeline.FullPipeline()
	}
	if *skipExc {
		stages.ExceptionHandling = false
	}

	cfg, err := config.Load()
	if err != nil {
		return domain.RunStatusFailed, fmt.Errorf("failed to load config: %w", err)
	}

	db, err := postgres.NewDB(&cfg.DB)
	if err != nil {
		return domain.RunStatusFailed, fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	storage, err := s3storage.NewS3Client(&cfg.S3)
	if err != nil {
		return domain.RunStatusFailed, fmt.Errorf("failed to initialize S3 client: %w", err)
	}

	var notifier port.Notifier
	switch cfg.Notify.Provider {
	case "ses":
		notifier, err = ses.NewSESNotifier(cfg.Notify.Region, cfg.Notify.FromAddress, cfg.Notify.ToAddress)
		if err != nil {
			return domain.RunStatusFailed, fmt.Errorf("failed to initialize SES notifier: %w", err)
		}
	default:
		notifier = noop.NewNoopNotifier()
	}

	deps := pipeline.Deps{
		Runs:           postgres.NewRunRepo(db),
		Reports:        postgres.NewReportRepo(db),
		Items:          postgres.NewItemMasterRepo(db),
		Ledgers:        postgres.NewLedgerMasterRepo(db),
		Approvals:      postgres.NewApprovalRepo(db),
		Tax:            postgres.NewTaxRepo(db),
		Registry:       postgres.NewInvoiceRegistryRepo(db),
		Pivots:         postgres.NewPivotRepo(db),
		Batches:        postgres.NewBatchRepo(db),
		Exports:        postgres.NewExportRepo(db),
		SellerInvoices: postgres.NewSellerInvoiceRepo(db),
		ExpenseExports: postgres.NewExpenseExportRepo(db),
		Exceptions:     postgres.NewExceptionRepo(db),
		Audit:          postgres.NewAuditRepo(db),
		MIS:            postgres.NewMISRepo(db),
		Storage:        storage,
		Notifier:       notifier,
		Extractor:      extract.NewPDFCPUExtractor(),
		Templates:      x2beta.NewRegistry(cfg.Pipeline.TemplateDir),
	}

	misGen := mis.NewGenerator(deps.Pivots, deps.SellerInvoices, deps.Exceptions, deps.Approvals, deps.MIS)
	controller := pipeline.NewController(cfg, deps, misGen)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	opts := pipeline.Options{
		Channel:     ch,
		GSTIN:       *gstin,
		Month:       *month,
		InputPath:   *input,
		ReturnsPath: *returns,
		ASINMapPath: *asinMap,
		Stages:      stages,
	}
	if *sellerInvoices != "" {
		for _, p := range strings.Split(*sellerInvoices, ",") {
			if p = strings.TrimSpace(p); p != "" {
				opts.SellerInvoicePaths = append(opts.SellerInvoicePaths, p)
			}
		}
	}

	runID, status, err := controller.Execute(ctx, opts)
	if err != nil {
		return status, err
	}
	log.Printf("pipeline: run %s finished with status %s", runID, status)
	return status, nil
}
