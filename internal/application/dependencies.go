package application

import (
	"time"

	"github.com/google/uuid"

	"github.com/mikidaniel85/warehouse-pbb/internal/domain"
	"github.com/mikidaniel85/warehouse-pbb/pkg/cloudevents"
	"github.com/mikidaniel85/warehouse-pbb/pkg/logging"
	"github.com/mikidaniel85/warehouse-pbb/pkg/metrics"
	"github.com/mikidaniel85/warehouse-pbb/pkg/outbox"
)

// Repositories is the persistence a store backend provides.
type Repositories struct {
	Items      domain.ItemRepository
	Locations  domain.LocationRepository
	Warehouses domain.WarehouseRepository
	Requests   domain.RequestRepository
	Users      domain.UserRepository
	Audit      domain.AuditSink
	Outbox     outbox.Repository
	Tx         domain.TransactionRunner
}

// Dependencies are shared by every application service.
type Dependencies struct {
	Repos   Repositories
	Policy  *StorePolicy
	Auditor Auditor
	Events  *cloudevents.EventFactory
	Metrics *metrics.Metrics
	Logger  *logging.Logger

	// SentinelWarehouse is the name of the warehouse that receives the
	// stock of deleted warehouses.
	SentinelWarehouse string

	Clock domain.Clock
	NewID func() string
}

func (d *Dependencies) now() time.Time {
	if d.Clock != nil {
		return d.Clock()
	}
	return time.Now().UTC()
}

func (d *Dependencies) newID() string {
	if d.NewID != nil {
		return d.NewID()
	}
	return uuid.New().String()
}

func (d *Dependencies) sentinelName() string {
	if name := domain.NormalizeComponent(d.SentinelWarehouse); name != "" {
		return name
	}
	return domain.DefaultSentinelWarehouse
}

// Services groups the application services built on one set of dependencies.
type Services struct {
	Authorizer *Authorizer
	Catalog    *CatalogService
	Ledger     *LedgerService
	Requests   *RequestService
	Warehouses *WarehouseService
	Users      *UserService
	Search     *SearchService
	Activity   *ActivityService
}

// NewServices wires every service. recognizer may be nil.
func NewServices(deps *Dependencies, recognizer TextRecognizer) *Services {
	ledger := NewLedgerService(deps)
	return &Services{
		Authorizer: NewAuthorizer(deps.Repos.Users, deps.Policy),
		Catalog:    NewCatalogService(deps),
		Ledger:     ledger,
		Requests:   NewRequestService(deps),
		Warehouses: NewWarehouseService(deps, ledger),
		Users:      NewUserService(deps),
		Search:     NewSearchService(deps, recognizer),
		Activity:   NewActivityService(deps),
	}
}
