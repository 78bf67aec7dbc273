// Command server runs the approval console API.
package main

import (
	"fmt"
	"log"

	"x2beta/internal/approval"
	"x2beta/internal/config"
	"x2beta/internal/handler"
	"x2beta/internal/notify/noop"
	"x2beta/internal/notify/ses"
	"x2beta/internal/port"
	"x2beta/internal/repository/postgres"
	"x2beta/internal/router"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	db, err := postgres.NewDB(&cfg.DB)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	approvalRepo := postgres.NewApprovalRepo(db)
	itemRepo := postgres.NewItemMasterRepo(db)
	ledgerRepo := postgres.NewLedgerMasterRepo(db)
	runRepo := postgres.NewRunRepo(db)
	exceptionRepo := postgres.NewExceptionRepo(db)

	var notifier port.Notifier
	switch cfg.Notify.Provider {
	case "ses":
		notifier, err = ses.NewSESNotifier(cfg.Notify.Region, cfg.Notify.FromAddress, cfg.Notify.ToAddress)
		if err != nil {
			return fmt.Errorf("failed to initialize SES notifier: %w", err)
		}
	default:
		notifier = noop.NewNoopNotifier()
	}

	engine := approval.NewEngine(approvalRepo, itemRepo, ledgerRepo, notifier, cfg.Approval)

	approvalH := handler.NewApprovalHandler(engine, approvalRepo)
	runH := handler.NewRunHandler(runRepo, exceptionRepo)
	healthH := handler.NewHealthHandler(db)

	r := router.Setup(cfg.Auth, approvalH, runH, healthH)

	log.Printf("Server starting on %s", cfg.Server.Port)
	if err := r.Run(cfg.Server.Port); err != nil {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}
