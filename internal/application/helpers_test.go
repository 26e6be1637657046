package application

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mikidaniel85/warehouse-pbb/internal/domain"
	"github.com/mikidaniel85/warehouse-pbb/internal/infrastructure/memory"
	"github.com/mikidaniel85/warehouse-pbb/pkg/cloudevents"
	"github.com/mikidaniel85/warehouse-pbb/pkg/logging"
)

type recordedAudit struct {
	Actor  domain.Actor
	Action domain.AuditAction
	Detail string
}

type fakeAuditor struct {
	mu      sync.Mutex
	records []recordedAudit
}

func (f *fakeAuditor) Record(_ context.Context, actor domain.Actor, action domain.AuditAction, detail string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, recordedAudit{Actor: actor, Action: action, Detail: detail})
}

func (f *fakeAuditor) actions() []domain.AuditAction {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.AuditAction, 0, len(f.records))
	for _, r := range f.records {
		out = append(out, r.Action)
	}
	return out
}

var (
	manager = domain.Actor{Email: "boss@example.com", Role: domain.RoleManager}
	puller  = domain.Actor{Email: "picker@example.com", Role: domain.RolePuller}
)

type testEnv struct {
	store   *memory.Store
	deps    *Dependencies
	svc     *Services
	auditor *fakeAuditor
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := memory.NewStore()
	auditor := &fakeAuditor{}
	deps := &Dependencies{
		Repos: Repositories{
			Items:      store.Items(),
			Locations:  store.Locations(),
			Warehouses: store.Warehouses(),
			Requests:   store.Requests(),
			Users:      store.Users(),
			Audit:      store.Audit(),
			Outbox:     store.Outbox(),
			Tx:         store,
		},
		Policy:            NewStorePolicy(DefaultPolicyConfig(), nil, logging.NewNop()),
		Auditor:           auditor,
		Events:            cloudevents.NewEventFactory(cloudevents.SourceStockLedger),
		Logger:            logging.NewNop(),
		SentinelWarehouse: domain.DefaultSentinelWarehouse,
	}
	env := &testEnv{store: store, deps: deps, svc: NewServices(deps, nil), auditor: auditor}

	_, err := env.svc.Warehouses.EnsureSentinel(context.Background())
	require.NoError(t, err)
	return env
}

func (e *testEnv) warehouse(t *testing.T, name string) *WarehouseDTO {
	t.Helper()
	w, err := e.svc.Warehouses.Create(context.Background(), CreateWarehouseCommand{Actor: manager, Name: name})
	require.NoError(t, err)
	return w
}

func (e *testEnv) item(t *testing.T, description, sku string) *ItemDTO {
	t.Helper()
	item, err := e.svc.Catalog.CreateItem(context.Background(), CreateItemCommand{
		Actor:       manager,
		Description: description,
		InternalSKU: sku,
	})
	require.NoError(t, err)
	return item
}

func (e *testEnv) receive(t *testing.T, itemID, warehouse, row string, qty int) *LocationDTO {
	t.Helper()
	res, err := e.svc.Ledger.Receive(context.Background(), ReceiveCommand{
		Actor:     manager,
		ItemID:    itemID,
		Warehouse: warehouse,
		Row:       domain.Coordinate(row),
		Column:    "A",
		Floor:     "1",
		Quantity:  qty,
	})
	require.NoError(t, err)
	return res.Location
}

func (e *testEnv) request(t *testing.T, locationID string, qty int) *RequestDTO {
	t.Helper()
	req, err := e.svc.Requests.Create(context.Background(), CreateRequestCommand{
		Actor:      puller,
		LocationID: locationID,
		Quantity:   qty,
		Reason:     "line 3",
	})
	require.NoError(t, err)
	return req
}
