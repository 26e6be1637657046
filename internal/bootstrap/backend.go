// Package bootstrap opens the configured store and assembles the application
// dependencies shared by the binaries.
package bootstrap

import (
	"context"
	"fmt"

	"github.com/mikidaniel85/warehouse-pbb/internal/application"
	"github.com/mikidaniel85/warehouse-pbb/internal/config"
	"github.com/mikidaniel85/warehouse-pbb/internal/infrastructure/memory"
	mongoRepo "github.com/mikidaniel85/warehouse-pbb/internal/infrastructure/mongodb"
	"github.com/mikidaniel85/warehouse-pbb/pkg/cloudevents"
	"github.com/mikidaniel85/warehouse-pbb/pkg/logging"
	"github.com/mikidaniel85/warehouse-pbb/pkg/metrics"
	"github.com/mikidaniel85/warehouse-pbb/pkg/mongodb"
)

// Backend is an opened store.
type Backend struct {
	Name  string
	Repos application.Repositories

	health        func(ctx context.Context) error
	ensureIndexes func(ctx context.Context) error
	close         func(ctx context.Context) error
}

// Open connects the backend selected by cfg.StoreBackend. m may be nil.
func Open(ctx context.Context, cfg *config.Config, m *metrics.Metrics, logger *logging.Logger) (*Backend, error) {
	switch cfg.StoreBackend {
	case config.BackendMemory:
		return NewMemoryBackend(memory.NewStore()), nil
	case config.BackendMongoDB:
		client, err := mongodb.NewClient(ctx, cfg.MongoDB)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
		}
		logger.Info("Connected to MongoDB", "database", cfg.MongoDB.Database)

		store := mongoRepo.NewStore(client.Database(), cfg.ConflictRetries, m, logger)
		return &Backend{
			Name: config.BackendMongoDB,
			Repos: application.Repositories{
				Items:      store.Items(),
				Locations:  store.Locations(),
				Warehouses: store.Warehouses(),
				Requests:   store.Requests(),
				Users:      store.Users(),
				Audit:      store.Audit(),
				Outbox:     store.Outbox(),
				Tx:         store,
			},
			health:        store.HealthCheck,
			ensureIndexes: store.EnsureIndexes,
			close:         client.Close,
		}, nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}

// NewMemoryBackend wraps an in-memory store.
func NewMemoryBackend(store *memory.Store) *Backend {
	return &Backend{
		Name: config.BackendMemory,
		Repos: application.Repositories{
			Items:      store.Items(),
			Locations:  store.Locations(),
			Warehouses: store.Warehouses(),
			Requests:   store.Requests(),
			Users:      store.Users(),
			Audit:      store.Audit(),
			Outbox:     store.Outbox(),
			Tx:         store,
		},
		health:        store.HealthCheck,
		ensureIndexes: func(context.Context) error { return nil },
		close:         func(context.Context) error { return nil },
	}
}

// HealthCheck pings the store.
func (b *Backend) HealthCheck(ctx context.Context) error { return b.health(ctx) }

// EnsureIndexes creates the indexes the repositories rely on.
func (b *Backend) EnsureIndexes(ctx context.Context) error { return b.ensureIndexes(ctx) }

// Close disconnects from the store.
func (b *Backend) Close(ctx context.Context) error { return b.close(ctx) }

// Dependencies assembles the application dependencies on b. The caller owns
// auditor and closes it on shutdown.
func Dependencies(cfg *config.Config, b *Backend, auditor application.Auditor, m *metrics.Metrics, logger *logging.Logger) *application.Dependencies {
	policyConfig := application.DefaultPolicyConfig()
	policyConfig.Timeout = cfg.StoreTimeout
	if cfg.ReadRetryMaxElapse > 0 {
		policyConfig.ReadRetryMaxDelay = cfg.ReadRetryMaxElapse
	}

	return &application.Dependencies{
		Repos:             b.Repos,
		Policy:            application.NewStorePolicy(policyConfig, m, logger),
		Auditor:           auditor,
		Events:            cloudevents.NewEventFactory(cloudevents.SourceStockLedger),
		Metrics:           m,
		Logger:            logger,
		SentinelWarehouse: cfg.SentinelWarehouse,
	}
}
