// Command loadmasters bulk-loads item and ledger master files into the
// database. Existing entries are kept; only new rows are inserted.
// Usage: loadmasters [--items PATH] [--ledgers PATH]
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"x2beta/internal/config"
	"x2beta/internal/master"
	"x2beta/internal/repository/postgres"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	items := flag.String("items", "", "path to the item master file (csv or xlsx)")
	ledgers := flag.String("ledgers", "", "path to the ledger master file (csv or xlsx)")
	flag.Parse()

	if *items == "" && *ledgers == "" {
		return fmt.Errorf("at least one of --items or --ledgers is required")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	db, err := postgres.NewDB(&cfg.DB)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer func() { _ = db.Close() }()

	ctx := context.Background()

	if *items != "" {
		data, err := os.ReadFile(*items)
		if err != nil {
			return fmt.Errorf("reading item master: %w", err)
		}
		res, err := master.LoadItems(ctx, postgres.NewItemMasterRepo(db), filepath.Base(*items), data)
		if err != nil {
			return fmt.Errorf("loading item master: %w", err)
		}
		log.Printf("items: %d total, %d inserted, %d skipped", res.Total, res.Inserted, res.Skipped)
	}

	if *ledgers != "" {
		data, err := os.ReadFile(*ledgers)
		if err != nil {
			return fmt.Errorf("reading ledger master: %w", err)
		}
		res, err := master.LoadLedgers(ctx, postgres.NewLedgerMasterRepo(db), filepath.Base(*ledgers), data)
		if err != nil {
			return fmt.Errorf("loading ledger master: %w", err)
		}
		log.Printf("ledgers: %d total, %d inserted, %d skipped", res.Total, res.Inserted, res.Skipped)
	}

	return nil
}
