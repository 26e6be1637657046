package mongodb

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mikidaniel85/warehouse-pbb/internal/application"
	"github.com/mikidaniel85/warehouse-pbb/internal/domain"
	"github.com/mikidaniel85/warehouse-pbb/pkg/cloudevents"
	"github.com/mikidaniel85/warehouse-pbb/pkg/errors"
	"github.com/mikidaniel85/warehouse-pbb/pkg/logging"
)

var (
	boss   = domain.Actor{Email: "boss@example.com", Role: domain.RoleManager}
	picker = domain.Actor{Email: "picker@example.com", Role: domain.RolePuller}
)

// setupServices wires the application services over a fresh database.
func setupServices(t *testing.T) (*application.Services, context.Context) {
	t.Helper()
	store, ctx := setupStore(t)
	logger := logging.NewNop()

	auditor := application.NewAuditRecorder(store.Audit(), 16, nil, logger)
	t.Cleanup(auditor.Close)

	deps := &application.Dependencies{
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
		Policy:            application.NewStorePolicy(application.DefaultPolicyConfig(), nil, logger),
		Auditor:           auditor,
		Events:            cloudevents.NewEventFactory(cloudevents.SourceStockLedger),
		Logger:            logger,
		SentinelWarehouse: domain.DefaultSentinelWarehouse,
	}
	svc := application.NewServices(deps, nil)
	_, err := svc.Warehouses.EnsureSentinel(ctx)
	require.NoError(t, err)
	return svc, ctx
}

func stockedSlot(t *testing.T, svc *application.Services, ctx context.Context, qty int) *application.LocationDTO {
	t.Helper()
	_, err := svc.Warehouses.Create(ctx, application.CreateWarehouseCommand{Actor: boss, Name: "WH1"})
	require.NoError(t, err)
	item, err := svc.Catalog.CreateItem(ctx, application.CreateItemCommand{Actor: boss, Description: "Valve 12mm", InternalSKU: "V12"})
	require.NoError(t, err)

	res, err := svc.Ledger.Receive(ctx, application.ReceiveCommand{
		Actor: boss, ItemID: item.ID, Warehouse: "wh1", Row: "1", Column: "A", Floor: "2", Quantity: qty,
	})
	require.NoError(t, err)
	return res.Location
}

func pullRequest(t *testing.T, svc *application.Services, ctx context.Context, locationID string, qty int) *application.RequestDTO {
	t.Helper()
	req, err := svc.Requests.Create(ctx, application.CreateRequestCommand{Actor: picker, LocationID: locationID, Quantity: qty})
	require.NoError(t, err)
	return req
}

func TestServices_ConcurrentApprovalsClampAtZero(t *testing.T) {
	svc, ctx := setupServices(t)
	loc := stockedSlot(t, svc, ctx, 5)
	first := pullRequest(t, svc, ctx, loc.ID, 4)
	second := pullRequest(t, svc, ctx, loc.ID, 3)

	var wg sync.WaitGroup
	applied := make([]int, 2)
	for i, id := range []string{first.ID, second.ID} {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			approval, err := svc.Requests.Approve(ctx, application.DecideRequestCommand{Actor: boss, RequestID: id})
			if assert.NoError(t, err) {
				applied[i] = approval.Applied
			}
		}(i, id)
	}
	wg.Wait()

	assert.Equal(t, 5, applied[0]+applied[1])
	after, err := svc.Ledger.GetLocation(ctx, loc.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, after.Quantity)

	for _, id := range []string{first.ID, second.ID} {
		req, err := svc.Requests.Get(ctx, boss, id)
		require.NoError(t, err)
		assert.Equal(t, "approved", req.Status)
	}
}

func TestServices_ApproveMissingSlotStaysPending(t *testing.T) {
	svc, ctx := setupServices(t)
	loc := stockedSlot(t, svc, ctx, 5)
	req := pullRequest(t, svc, ctx, loc.ID, 2)

	_, err := svc.Ledger.Relocate(ctx, application.RelocateCommand{
		Actor: boss, LocationID: loc.ID, Warehouse: "WH1", Row: "9", Column: "A", Floor: "1",
	})
	require.NoError(t, err)

	_, err = svc.Requests.Approve(ctx, application.DecideRequestCommand{Actor: boss, RequestID: req.ID})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeTargetMissing))

	stored, err := svc.Requests.Get(ctx, boss, req.ID)
	require.NoError(t, err)
	assert.Equal(t, "pending", stored.Status)
}

func TestServices_ReceiveAndItemDeleteNeverLeaveDanglingSlots(t *testing.T) {
	svc, ctx := setupServices(t)
	stockedSlot(t, svc, ctx, 1)

	for i := 0; i < 10; i++ {
		spare, err := svc.Catalog.CreateItem(ctx, application.CreateItemCommand{
			Actor: boss, Description: "Hose 3m", InternalSKU: fmt.Sprintf("H3-%d", i),
		})
		require.NoError(t, err)

		var (
			wg        sync.WaitGroup
			deleteErr error
		)
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = svc.Ledger.Receive(ctx, application.ReceiveCommand{
				Actor: boss, ItemID: spare.ID, Warehouse: "WH1", Row: "2", Column: "A", Floor: "1", Quantity: 1,
			})
		}()
		go func() {
			defer wg.Done()
			deleteErr = svc.Catalog.DeleteItem(ctx, application.DeleteItemCommand{Actor: boss, ItemID: spare.ID})
		}()
		wg.Wait()

		slots, err := svc.Ledger.ListLocations(ctx, application.ListLocationsQuery{ItemID: spare.ID})
		require.NoError(t, err)
		_, itemErr := svc.Catalog.GetItem(ctx, spare.ID)
		if deleteErr == nil {
			assert.Empty(t, slots, "round %d: slot left for a deleted item", i)
			assert.True(t, errors.HasCode(itemErr, errors.CodeNotFound))
		} else if len(slots) > 0 {
			assert.NoError(t, itemErr, "round %d: stocked item must survive", i)
		}
	}
}
