// Package memory is a process-local implementation of every repository. It is
// used by tests and by STORE_BACKEND=memory.
package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/mikidaniel85/warehouse-pbb/internal/domain"
	"github.com/mikidaniel85/warehouse-pbb/pkg/outbox"
)

type txKey struct{}

// Store holds all state behind one lock. A transaction holds the lock for
// its whole run and restores a snapshot when fn fails. Waiting for the lock
// honours the caller's context.
type Store struct {
	lock  chan struct{}
	state *state
	now   func() time.Time

	outbox *outbox.MemoryRepository
}

type state struct {
	items      map[string]*domain.Item
	locations  map[string]*domain.Location
	warehouses map[string]*domain.Warehouse
	requests   map[string]*domain.Request
	users      map[string]*domain.User
	audit      []*domain.AuditRecord
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		state: &state{
			items:      make(map[string]*domain.Item),
			locations:  make(map[string]*domain.Location),
			warehouses: make(map[string]*domain.Warehouse),
			requests:   make(map[string]*domain.Request),
			users:      make(map[string]*domain.User),
		},
		lock:   make(chan struct{}, 1),
		now:    func() time.Time { return time.Now().UTC() },
		outbox: outbox.NewMemoryRepository(),
	}
}

// Items returns the catalog repository.
func (s *Store) Items() *ItemRepository { return &ItemRepository{s: s} }

// Locations returns the ledger repository.
func (s *Store) Locations() *LocationRepository { return &LocationRepository{s: s} }

// Warehouses returns the warehouse repository.
func (s *Store) Warehouses() *WarehouseRepository { return &WarehouseRepository{s: s} }

// Requests returns the request repository.
func (s *Store) Requests() *RequestRepository { return &RequestRepository{s: s} }

// Users returns the identity directory.
func (s *Store) Users() *UserRepository { return &UserRepository{s: s} }

// Audit returns the activity log.
func (s *Store) Audit() *AuditSink { return &AuditSink{s: s} }

// Outbox returns the event outbox.
func (s *Store) Outbox() *outbox.MemoryRepository { return s.outbox }

// RunInTransaction runs fn with exclusive access to the store. Nested calls join the outer unit.
func (s *Store) RunInTransaction(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	if s.inTx(ctx) {
		return fn(ctx)
	}
	release, err := s.lockStore(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	defer release()

	snapshot := s.state.clone()
	if err := fn(context.WithValue(ctx, txKey{}, s)); err != nil {
		s.state = snapshot
		return err
	}
	return nil
}

// HealthCheck always succeeds.
func (s *Store) HealthCheck(context.Context) error { return nil }

func (s *Store) inTx(ctx context.Context) bool {
	owner, _ := ctx.Value(txKey{}).(*Store)
	return owner == s
}

// acquire locks the store unless ctx already runs inside one of its transactions.
func (s *Store) acquire(ctx context.Context) (func(), error) {
	if s.inTx(ctx) {
		return func() {}, nil
	}
	return s.lockStore(ctx)
}

func (s *Store) lockStore(ctx context.Context) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
	}
	select {
	case s.lock <- struct{}{}:
		return func() { <-s.lock }, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: waiting for lock: %w", domain.ErrStoreUnavailable, ctx.Err())
	}
}

func (st *state) clone() *state {
	cp := &state{
		items:      make(map[string]*domain.Item, len(st.items)),
		locations:  make(map[string]*domain.Location, len(st.locations)),
		warehouses: make(map[string]*domain.Warehouse, len(st.warehouses)),
		requests:   make(map[string]*domain.Request, len(st.requests)),
		users:      make(map[string]*domain.User, len(st.users)),
		audit:      append([]*domain.AuditRecord(nil), st.audit...),
	}
	for k, v := range st.items {
		c := *v
		cp.items[k] = &c
	}
	for k, v := range st.locations {
		c := *v
		cp.locations[k] = &c
	}
	for k, v := range st.warehouses {
		c := *v
		cp.warehouses[k] = &c
	}
	for k, v := range st.requests {
		c := *v
		cp.requests[k] = &c
	}
	for k, v := range st.users {
		c := *v
		cp.users[k] = &c
	}
	return cp
}

var _ domain.TransactionRunner = (*Store)(nil)
