// Package mongodb implements the repositories on MongoDB. Ledger quantity
// changes are single-document atomic updates; multi-document units run in
// replica set transactions.
package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mikidaniel85/warehouse-pbb/internal/domain"
	"github.com/mikidaniel85/warehouse-pbb/pkg/logging"
	"github.com/mikidaniel85/warehouse-pbb/pkg/metrics"
	pkgmongo "github.com/mikidaniel85/warehouse-pbb/pkg/mongodb"
	outboxMongo "github.com/mikidaniel85/warehouse-pbb/pkg/outbox/mongodb"
)

// Collection names
const (
	ItemsCollection      = "items"
	LocationsCollection  = "locations"
	WarehousesCollection = "warehouses"
	RequestsCollection   = "requests"
	UsersCollection      = "users"
	AuditCollection      = "audit_logs"
)

// refVersionField is bumped on items and warehouses by every slot write that
// depends on them. It is never read back.
const refVersionField = "refVersion"

// DefaultConflictRetries bounds re-runs of a transaction aborted by a write conflict.
const DefaultConflictRetries = 5

// caseInsensitive is the collation of warehouse names.
var caseInsensitive = &options.Collation{Locale: "en", Strength: 2}

// Store owns the collections of one database.
type Store struct {
	client          *mongo.Client
	db              *mongo.Database
	instr           *pkgmongo.Instrumentation
	logger          *logging.Logger
	conflictRetries int
	now             func() time.Time

	outbox *outboxMongo.OutboxRepository
}

// NewStore creates a store on db. conflictRetries <= 0 selects the default.
func NewStore(db *mongo.Database, conflictRetries int, m *metrics.Metrics, logger *logging.Logger) *Store {
	if conflictRetries <= 0 {
		conflictRetries = DefaultConflictRetries
	}
	return &Store{
		client:          db.Client(),
		db:              db,
		instr:           pkgmongo.NewInstrumentation(db.Name(), m, logger),
		logger:          logger.WithComponent("mongodb-store"),
		conflictRetries: conflictRetries,
		now:             pkgmongo.Now,
		outbox:          outboxMongo.NewOutboxRepository(db),
	}
}

// Items returns the catalog repository.
func (s *Store) Items() *ItemRepository {
	return &ItemRepository{s: s, coll: s.db.Collection(ItemsCollection)}
}

// Locations returns the ledger repository.
func (s *Store) Locations() *LocationRepository {
	return &LocationRepository{s: s, coll: s.db.Collection(LocationsCollection)}
}

// Warehouses returns the warehouse repository.
func (s *Store) Warehouses() *WarehouseRepository {
	return &WarehouseRepository{s: s, coll: s.db.Collection(WarehousesCollection)}
}

// Requests returns the request repository.
func (s *Store) Requests() *RequestRepository {
	return &RequestRepository{s: s, coll: s.db.Collection(RequestsCollection)}
}

// Users returns the identity directory.
func (s *Store) Users() *UserRepository {
	return &UserRepository{s: s, coll: s.db.Collection(UsersCollection)}
}

// Audit returns the activity log.
func (s *Store) Audit() *AuditSink {
	return &AuditSink{s: s, coll: s.db.Collection(AuditCollection)}
}

// Outbox returns the transactional outbox.
func (s *Store) Outbox() *outboxMongo.OutboxRepository {
	return s.outbox
}

// HealthCheck pings the primary.
func (s *Store) HealthCheck(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

// RunInTransaction runs fn in a transaction, re-running it after transient
// write conflicts. Exhausted retries surface as domain.ErrConflict. A ctx
// that already carries a session joins that transaction.
func (s *Store) RunInTransaction(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	if mongo.SessionFromContext(ctx) != nil {
		return fn(ctx)
	}

	ctx, finish := s.instr.Transaction(ctx, name)
	err := pkgmongo.RunTransaction(ctx, s.client, s.conflictRetries,
		func(sessCtx mongo.SessionContext) error { return fn(sessCtx) },
		func(attempt int, err error) {
			s.instr.RecordRetry(name)
			s.logger.Warn("Retrying conflicted transaction", "transaction", name, "attempt", attempt, "error", err)
		},
	)
	finish(err)

	switch {
	case err == nil:
		return nil
	case errors.Is(err, pkgmongo.ErrTransactionConflict):
		return fmt.Errorf("%s: %w: %v", name, domain.ErrConflict, err)
	case isDomainError(err):
		return err
	default:
		return translate(name, err)
	}
}

// EnsureIndexes creates every index the repositories rely on.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	specs := map[string][]mongo.IndexModel{
		ItemsCollection: {
			{Keys: bson.D{{Key: "internalSku", Value: 1}}, Options: options.Index().SetUnique(true).SetName("uniq_internalSku")},
			{Keys: bson.D{{Key: "description", Value: 1}}, Options: options.Index().SetName("idx_description")},
		},
		LocationsCollection: {
			{Keys: bson.D{{Key: "itemId", Value: 1}}, Options: options.Index().SetName("idx_itemId")},
			{Keys: bson.D{{Key: "itemName", Value: 1}}, Options: options.Index().SetName("idx_itemName")},
			{Keys: bson.D{{Key: "warehouse", Value: 1}, {Key: "itemName", Value: 1}}, Options: options.Index().SetName("idx_warehouse_itemName")},
			{Keys: bson.D{{Key: "quantity", Value: 1}}, Options: options.Index().SetName("idx_quantity")},
		},
		WarehousesCollection: {
			{Keys: bson.D{{Key: "name", Value: 1}}, Options: options.Index().SetUnique(true).SetCollation(caseInsensitive).SetName("uniq_name_ci")},
		},
		RequestsCollection: {
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "createdAt", Value: -1}}, Options: options.Index().SetName("idx_status_createdAt")},
			{Keys: bson.D{{Key: "requester", Value: 1}, {Key: "createdAt", Value: -1}}, Options: options.Index().SetName("idx_requester_createdAt")},
		},
		UsersCollection: {
			{Keys: bson.D{{Key: "approved", Value: 1}}, Options: options.Index().SetName("idx_approved")},
		},
		AuditCollection: {
			{Keys: bson.D{{Key: "timestamp", Value: -1}}, Options: options.Index().SetName("idx_timestamp")},
		},
	}

	for collection, indexes := range specs {
		if _, err := s.db.Collection(collection).Indexes().CreateMany(ctx, indexes); err != nil {
			return fmt.Errorf("failed to create %s indexes: %w", collection, err)
		}
	}
	return s.outbox.EnsureIndexes(ctx)
}

var _ domain.TransactionRunner = (*Store)(nil)
