package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/mikidaniel85/warehouse-pbb/internal/application"
	"github.com/mikidaniel85/warehouse-pbb/internal/bootstrap"
	"github.com/mikidaniel85/warehouse-pbb/internal/config"
	"github.com/mikidaniel85/warehouse-pbb/internal/infrastructure/csvimport"
	"github.com/mikidaniel85/warehouse-pbb/pkg/logging"
)

// Loads a catalog CSV (description, internal_sku, manufacturer_sku) into the
// store. Rows whose internal SKU already exists are skipped.

var (
	file    = flag.String("file", "-", "CSV file to import, - for stdin")
	actor   = flag.String("as", "", "Email of the approved manager performing the import")
	timeout = flag.Duration("timeout", 10*time.Minute, "Overall time limit")
)

func main() {
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logging.New(logging.DefaultConfig("stock-ledger-import")).WithError(err).Error("Invalid configuration")
		os.Exit(1)
	}

	logConfig := logging.DefaultConfig("stock-ledger-import")
	logConfig.Level = logging.ParseLevel(cfg.LogLevel)
	logger := logging.New(logConfig)

	if *actor == "" {
		logger.Error("-as is required")
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	result, err := run(ctx, cfg, logger)
	if result != nil {
		logger.Info("Import finished",
			"created", result.Created,
			"skipped", result.Skipped,
			"invalid", result.Invalid,
		)
		for _, rowErr := range result.Errors {
			logger.Warn("Row rejected", "row", rowErr.Row, "error", rowErr.Message)
		}
	}
	if err != nil {
		logger.WithError(err).Error("Import failed")
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *logging.Logger) (*application.ImportResultDTO, error) {
	rows, err := readRows(*file)
	if err != nil {
		return nil, err
	}
	logger.Info("Read import file", "file", *file, "rows", len(rows))

	backend, err := bootstrap.Open(ctx, cfg, nil, logger)
	if err != nil {
		return nil, err
	}
	defer backend.Close(context.Background())

	auditor := application.NewAuditRecorder(backend.Repos.Audit, cfg.AuditBuffer, nil, logger)
	defer auditor.Close()

	services := application.NewServices(bootstrap.Dependencies(cfg, backend, auditor, nil, logger), nil)

	manager, err := services.Authorizer.Resolve(ctx, *actor)
	if err != nil {
		return nil, err
	}
	return services.Catalog.ImportItems(ctx, application.ImportItemsCommand{Actor: manager, Rows: rows})
}

func readRows(path string) ([]application.ImportRow, error) {
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", path, err)
		}
		defer f.Close()
		r = f
	}
	return csvimport.ReadRows(r)
}
