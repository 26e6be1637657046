package application

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mikidaniel85/warehouse-pbb/internal/domain"
	"github.com/mikidaniel85/warehouse-pbb/pkg/cloudevents"
	"github.com/mikidaniel85/warehouse-pbb/pkg/errors"
)

func TestRequestService_ApproveDecrementsOnce(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.warehouse(t, "WH1")
	item := env.item(t, "Valve 12mm", "V12")
	loc := env.receive(t, item.ID, "WH1", "1", 5)
	req := env.request(t, loc.ID, 3)
	assert.Equal(t, "pending", req.Status)
	assert.Equal(t, "Valve 12mm", req.ItemName)

	approval, err := env.svc.Requests.Approve(ctx, DecideRequestCommand{Actor: manager, RequestID: req.ID})
	require.NoError(t, err)
	assert.Equal(t, 3, approval.Applied)
	assert.Equal(t, 0, approval.Shortfall)
	assert.Equal(t, 2, approval.Location.Quantity)
	assert.Equal(t, "approved", approval.Request.Status)
	assert.Equal(t, manager.Email, approval.Request.DecidedBy)
	require.NotNil(t, approval.Request.DecidedAt)

	_, err = env.svc.Requests.Approve(ctx, DecideRequestCommand{Actor: manager, RequestID: req.ID})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeInvalidState))
	assert.ErrorIs(t, err, domain.ErrInvalidState)

	after, err := env.svc.Ledger.GetLocation(ctx, loc.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, after.Quantity)
}

func TestRequestService_ApproveClampsAtZero(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.warehouse(t, "WH1")
	item := env.item(t, "Valve 12mm", "V12")
	loc := env.receive(t, item.ID, "WH1", "1", 2)
	req := env.request(t, loc.ID, 5)

	approval, err := env.svc.Requests.Approve(ctx, DecideRequestCommand{Actor: manager, RequestID: req.ID})
	require.NoError(t, err)
	assert.Equal(t, 2, approval.Applied)
	assert.Equal(t, 3, approval.Shortfall)
	assert.Equal(t, 0, approval.Location.Quantity)
	assert.Equal(t, "approved", approval.Request.Status)
	assert.Contains(t, env.auditor.records[len(env.auditor.records)-1].Detail, "short 3")
}

func TestRequestService_ConcurrentApprovalsNeverGoNegative(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.warehouse(t, "WH1")
	item := env.item(t, "Valve 12mm", "V12")
	loc := env.receive(t, item.ID, "WH1", "1", 5)
	first := env.request(t, loc.ID, 4)
	second := env.request(t, loc.ID, 3)

	var wg sync.WaitGroup
	applied := make([]int, 2)
	for i, id := range []string{first.ID, second.ID} {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			approval, err := env.svc.Requests.Approve(ctx, DecideRequestCommand{Actor: manager, RequestID: id})
			if assert.NoError(t, err) {
				applied[i] = approval.Applied
			}
		}(i, id)
	}
	wg.Wait()

	assert.Equal(t, 5, applied[0]+applied[1])
	after, err := env.svc.Ledger.GetLocation(ctx, loc.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, after.Quantity)

	for _, id := range []string{first.ID, second.ID} {
		req, err := env.svc.Requests.Get(ctx, manager, id)
		require.NoError(t, err)
		assert.Equal(t, "approved", req.Status)
	}
}

func TestRequestService_ApproveMissingSlotKeepsRequestPending(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.warehouse(t, "WH1")
	item := env.item(t, "Valve 12mm", "V12")
	loc := env.receive(t, item.ID, "WH1", "1", 5)
	req := env.request(t, loc.ID, 2)

	_, err := env.svc.Ledger.Relocate(ctx, RelocateCommand{
		Actor: manager, LocationID: loc.ID, Warehouse: "WH1", Row: "9", Column: "A", Floor: "1",
	})
	require.NoError(t, err)

	_, err = env.svc.Requests.Approve(ctx, DecideRequestCommand{Actor: manager, RequestID: req.ID})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeTargetMissing))
	assert.ErrorIs(t, err, domain.ErrTargetMissing)

	stored, err := env.svc.Requests.Get(ctx, manager, req.ID)
	require.NoError(t, err)
	assert.Equal(t, "pending", stored.Status)
	assert.Empty(t, stored.DecidedBy)
}

func TestRequestService_RejectLeavesStock(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.warehouse(t, "WH1")
	item := env.item(t, "Valve 12mm", "V12")
	loc := env.receive(t, item.ID, "WH1", "1", 5)
	req := env.request(t, loc.ID, 2)

	rejected, err := env.svc.Requests.Reject(ctx, DecideRequestCommand{Actor: manager, RequestID: req.ID})
	require.NoError(t, err)
	assert.Equal(t, "rejected", rejected.Status)

	_, err = env.svc.Requests.Approve(ctx, DecideRequestCommand{Actor: manager, RequestID: req.ID})
	assert.True(t, errors.HasCode(err, errors.CodeInvalidState))

	after, err := env.svc.Ledger.GetLocation(ctx, loc.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, after.Quantity)
}

func TestRequestService_PullerCannotDecide(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.warehouse(t, "WH1")
	item := env.item(t, "Valve 12mm", "V12")
	loc := env.receive(t, item.ID, "WH1", "1", 5)
	req := env.request(t, loc.ID, 2)

	_, err := env.svc.Requests.Approve(ctx, DecideRequestCommand{Actor: puller, RequestID: req.ID})
	assert.True(t, errors.HasCode(err, errors.CodeForbidden))
	_, err = env.svc.Requests.Reject(ctx, DecideRequestCommand{Actor: puller, RequestID: req.ID})
	assert.True(t, errors.HasCode(err, errors.CodeForbidden))
	_, err = env.svc.Requests.CountPending(ctx, puller)
	assert.True(t, errors.HasCode(err, errors.CodeForbidden))
}

func TestRequestService_CreateValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.svc.Requests.Create(ctx, CreateRequestCommand{Actor: puller, LocationID: "nowhere", Quantity: 1})
	assert.True(t, errors.HasCode(err, errors.CodeNotFound))

	_, err = env.svc.Requests.Create(ctx, CreateRequestCommand{Actor: puller, LocationID: "nowhere", Quantity: 0})
	assert.True(t, errors.HasCode(err, errors.CodeValidationError))

	_, err = env.svc.Requests.Create(ctx, CreateRequestCommand{LocationID: "nowhere", Quantity: 1})
	assert.True(t, errors.HasCode(err, errors.CodeUnauthorized))
}

func TestRequestService_ListScopesPullers(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.warehouse(t, "WH1")
	item := env.item(t, "Valve 12mm", "V12")
	loc := env.receive(t, item.ID, "WH1", "1", 5)
	mine := env.request(t, loc.ID, 1)

	other := domain.Actor{Email: "other@example.com", Role: domain.RolePuller}
	theirs, err := env.svc.Requests.Create(ctx, CreateRequestCommand{Actor: other, LocationID: loc.ID, Quantity: 2})
	require.NoError(t, err)

	own, err := env.svc.Requests.List(ctx, ListRequestsQuery{Actor: puller})
	require.NoError(t, err)
	require.Len(t, own, 1)
	assert.Equal(t, mine.ID, own[0].ID)

	_, err = env.svc.Requests.Get(ctx, puller, theirs.ID)
	assert.True(t, errors.HasCode(err, errors.CodeNotFound))

	all, err := env.svc.Requests.List(ctx, ListRequestsQuery{Actor: manager, Status: "pending"})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	count, err := env.svc.Requests.CountPending(ctx, manager)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count.Count)

	_, err = env.svc.Requests.List(ctx, ListRequestsQuery{Actor: manager, Status: "lost"})
	assert.True(t, errors.HasCode(err, errors.CodeValidationError))
}

func TestRequestService_ApproveWritesEvents(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.warehouse(t, "WH1")
	item := env.item(t, "Valve 12mm", "V12")
	loc := env.receive(t, item.ID, "WH1", "1", 5)
	req := env.request(t, loc.ID, 2)

	_, err := env.svc.Requests.Approve(ctx, DecideRequestCommand{Actor: manager, RequestID: req.ID})
	require.NoError(t, err)

	var types []string
	for _, ev := range env.store.Outbox().All() {
		types = append(types, ev.EventType)
	}
	assert.ElementsMatch(t, []string{
		cloudevents.StockReceived,
		cloudevents.RequestCreated,
		cloudevents.StockDecremented,
		cloudevents.RequestApproved,
	}, types)
}
