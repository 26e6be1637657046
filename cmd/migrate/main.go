package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"strings"
	"time"

	"github.com/mikidaniel85/warehouse-pbb/internal/application"
	"github.com/mikidaniel85/warehouse-pbb/internal/bootstrap"
	"github.com/mikidaniel85/warehouse-pbb/internal/config"
	"github.com/mikidaniel85/warehouse-pbb/internal/domain"
	"github.com/mikidaniel85/warehouse-pbb/pkg/logging"
)

// Prepares a database for the API: indexes, the sentinel warehouse, and
// optionally the first manager and a set of warehouses.

var (
	managerEmail = flag.String("manager", "", "Email to create or promote as an approved manager")
	warehouses   = flag.String("warehouses", "", "Comma separated warehouse names to create when missing")
	dryRun       = flag.Bool("dry-run", false, "Report what would change without writing")
	timeout      = flag.Duration("timeout", time.Minute, "Overall time limit")
)

var errMissingManager = errors.New("-warehouses requires -manager")

func main() {
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logging.New(logging.DefaultConfig("stock-ledger-migrate")).WithError(err).Error("Invalid configuration")
		os.Exit(1)
	}

	logConfig := logging.DefaultConfig("stock-ledger-migrate")
	logConfig.Level = logging.ParseLevel(cfg.LogLevel)
	logger := logging.New(logConfig)

	logger.Info("Starting migration",
		"backend", cfg.StoreBackend,
		"database", cfg.MongoDB.Database,
		"dryRun", *dryRun,
		"manager", *managerEmail,
		"warehouses", *warehouses,
	)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	if err := run(ctx, cfg, logger); err != nil {
		logger.WithError(err).Error("Migration failed")
		os.Exit(1)
	}
	logger.Info("Migration completed successfully")
}

func run(ctx context.Context, cfg *config.Config, logger *logging.Logger) error {
	backend, err := bootstrap.Open(ctx, cfg, nil, logger)
	if err != nil {
		return err
	}
	defer backend.Close(context.Background())

	names := splitNames(*warehouses)
	if *dryRun {
		return report(ctx, backend, names, logger)
	}

	if err := backend.EnsureIndexes(ctx); err != nil {
		return err
	}
	logger.Info("Indexes ensured")

	auditor := application.NewAuditRecorder(backend.Repos.Audit, cfg.AuditBuffer, nil, logger)
	defer auditor.Close()

	deps := bootstrap.Dependencies(cfg, backend, auditor, nil, logger)
	services := application.NewServices(deps, nil)

	sentinel, err := services.Warehouses.EnsureSentinel(ctx)
	if err != nil {
		return err
	}
	logger.Info("Sentinel warehouse ready", "id", sentinel.ID, "name", sentinel.Name)

	var actor domain.Actor
	if *managerEmail != "" {
		manager, err := services.Users.EnsureManager(ctx, *managerEmail)
		if err != nil {
			return err
		}
		actor = domain.Actor{Email: manager.Email, Role: domain.RoleManager}
		logger.Info("Manager ready", "email", manager.Email)
	}

	if len(names) == 0 {
		return nil
	}
	if actor.Email == "" {
		return errMissingManager
	}
	return createWarehouses(ctx, services.Warehouses, actor, names, logger)
}

func createWarehouses(ctx context.Context, svc *application.WarehouseService, actor domain.Actor, names []string, logger *logging.Logger) error {
	existing, err := svc.List(ctx)
	if err != nil {
		return err
	}
	have := make(map[string]bool, len(existing))
	for _, w := range existing {
		have[strings.ToLower(w.Name)] = true
	}

	for _, name := range names {
		if have[strings.ToLower(name)] {
			logger.Info("Warehouse exists", "name", name)
			continue
		}
		w, err := svc.Create(ctx, application.CreateWarehouseCommand{Actor: actor, Name: name})
		if err != nil {
			return err
		}
		have[strings.ToLower(w.Name)] = true
		logger.Info("Warehouse created", "id", w.ID, "name", w.Name)
	}
	return nil
}

func report(ctx context.Context, backend *bootstrap.Backend, names []string, logger *logging.Logger) error {
	list, err := backend.Repos.Warehouses.List(ctx)
	if err != nil {
		return err
	}
	sentinel := false
	have := make(map[string]bool, len(list))
	for _, w := range list {
		have[strings.ToLower(w.Name)] = true
		sentinel = sentinel || w.Sentinel
	}
	logger.Info("DRY RUN: sentinel warehouse", "present", sentinel)
	for _, name := range names {
		logger.Info("DRY RUN: warehouse", "name", name, "wouldCreate", !have[strings.ToLower(name)])
	}

	if *managerEmail != "" {
		user, err := backend.Repos.Users.FindByEmail(ctx, domain.NormalizeEmail(*managerEmail))
		if err != nil {
			logger.Info("DRY RUN: manager would be created", "email", *managerEmail, "lookup", err.Error())
		} else {
			logger.Info("DRY RUN: manager", "email", user.Email, "role", user.Role, "approved", user.Approved)
		}
	}
	return nil
}

func splitNames(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = domain.NormalizeComponent(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
