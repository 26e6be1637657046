package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mikidaniel85/warehouse-pbb/internal/domain"
)

func seedSlot(t *testing.T, s *Store, qty int) *domain.Location {
	t.Helper()
	item, err := domain.NewItem("item-a", "Valve 12mm", "V12", "", time.Now())
	require.NoError(t, err)
	require.NoError(t, s.Items().Create(context.Background(), item))

	slot, err := domain.NewLocation(item, domain.SlotAddress{Warehouse: "WH1", Row: "1", Column: "A", Floor: "2"}, time.Now())
	require.NoError(t, err)
	if qty > 0 {
		res, err := s.Locations().Receive(context.Background(), slot, qty)
		require.NoError(t, err)
		return res.Location
	}
	return slot
}

func TestLocationRepository_ReceiveCreatesThenIncrements(t *testing.T) {
	s := NewStore()
	slot := seedSlot(t, s, 0)
	ctx := context.Background()

	first, err := s.Locations().Receive(ctx, slot, 5)
	require.NoError(t, err)
	assert.True(t, first.Created)
	assert.Equal(t, 5, first.Location.Quantity)

	second, err := s.Locations().Receive(ctx, slot, 3)
	require.NoError(t, err)
	assert.False(t, second.Created)
	assert.Equal(t, 8, second.Location.Quantity)
}

func TestLocationRepository_ConcurrentReceivesSum(t *testing.T) {
	s := NewStore()
	slot := seedSlot(t, s, 0)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 1; i <= 50; i++ {
		wg.Add(1)
		go func(qty int) {
			defer wg.Done()
			_, err := s.Locations().Receive(ctx, slot, qty)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	loc, err := s.Locations().FindByID(ctx, slot.ID)
	require.NoError(t, err)
	assert.Equal(t, 50*51/2, loc.Quantity)
}

func TestLocationRepository_ConcurrentDecrementsClampAtZero(t *testing.T) {
	s := NewStore()
	slot := seedSlot(t, s, 100)
	ctx := context.Background()

	var wg sync.WaitGroup
	var mu sync.Mutex
	applied := 0
	for i := 0; i < 30; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := s.Locations().Decrement(ctx, slot.ID, 3)
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			applied += res.Applied
			mu.Unlock()
		}()
	}
	wg.Wait()

	loc, err := s.Locations().FindByID(ctx, slot.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, loc.Quantity)
	assert.Equal(t, 90, applied)

	res, err := s.Locations().Decrement(ctx, slot.ID, 25)
	require.NoError(t, err)
	assert.Equal(t, 10, res.Applied)
	assert.Equal(t, 15, res.Shortfall())
	assert.Equal(t, 0, res.Location.Quantity)
}

func TestLocationRepository_DecrementMissing(t *testing.T) {
	s := NewStore()
	_, err := s.Locations().Decrement(context.Background(), "nope", 1)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestLocationRepository_RenameCachedItem(t *testing.T) {
	s := NewStore()
	slot := seedSlot(t, s, 4)
	ctx := context.Background()

	legacy := &domain.Location{ID: "legacy", ItemName: "Valve 12mm", Warehouse: "WH2", Row: "1", Column: "A", Floor: "1"}
	_, err := s.Locations().Receive(ctx, legacy, 2)
	require.NoError(t, err)
	colocated := &domain.Location{ID: "legacy-colocated", ItemName: "Valve 12mm", Warehouse: "WH1", Row: "1", Column: "A", Floor: "2"}
	_, err = s.Locations().Receive(ctx, colocated, 3)
	require.NoError(t, err)
	other := &domain.Location{ID: "other", ItemName: "Cable", Warehouse: "WH2", Row: "1", Column: "B", Floor: "1"}
	_, err = s.Locations().Receive(ctx, other, 1)
	require.NoError(t, err)

	n, err := s.Locations().RenameCachedItem(ctx, "item-a", "Valve 12mm", "Valve 12 mm")
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	loc, err := s.Locations().FindByID(ctx, slot.ID)
	require.NoError(t, err)
	assert.Equal(t, "Valve 12 mm", loc.ItemName)
	assert.Equal(t, 7, loc.Quantity, "a legacy slot at the same address merges into the linked slot")

	_, err = s.Locations().FindByID(ctx, "legacy")
	assert.ErrorIs(t, err, domain.ErrLocationNotFound)
	repaired, err := s.Locations().FindByID(ctx, "WH2_1_A_1_item-a")
	require.NoError(t, err)
	assert.Equal(t, "Valve 12 mm", repaired.ItemName)
	assert.Equal(t, "item-a", repaired.ItemID)
	assert.Equal(t, 2, repaired.Quantity)

	// The next receipt at the repaired address lands on the same slot.
	item, err := s.Items().FindByID(ctx, "item-a")
	require.NoError(t, err)
	next, err := domain.NewLocation(item, repaired.Address(), time.Now())
	require.NoError(t, err)
	res, err := s.Locations().Receive(ctx, next, 1)
	require.NoError(t, err)
	assert.False(t, res.Created)
	assert.Equal(t, 3, res.Location.Quantity)

	untouched, err := s.Locations().FindByID(ctx, "other")
	require.NoError(t, err)
	assert.Equal(t, "Cable", untouched.ItemName)
}

func TestStore_TransactionRollsBack(t *testing.T) {
	s := NewStore()
	slot := seedSlot(t, s, 5)
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.RunInTransaction(ctx, "test", func(ctx context.Context) error {
		if _, err := s.Locations().Decrement(ctx, slot.ID, 5); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	loc, err := s.Locations().FindByID(ctx, slot.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, loc.Quantity)
}

func TestStore_CancelledContextIsUnavailable(t *testing.T) {
	s := NewStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Items().List(ctx)
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
	err = s.RunInTransaction(ctx, "test", func(context.Context) error { return nil })
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
}

func TestStore_WaitingForLockHonoursDeadline(t *testing.T) {
	s := NewStore()
	held := make(chan struct{})
	done := make(chan struct{})
	go func() {
		_ = s.RunInTransaction(context.Background(), "hold", func(context.Context) error {
			close(held)
			<-done
			return nil
		})
	}()
	<-held

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := s.Items().List(ctx)
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	err = s.RunInTransaction(ctx, "blocked", func(context.Context) error { return nil })
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)

	close(done)
	_, err = s.Items().List(context.Background())
	assert.NoError(t, err)
}

func TestRequestRepository_DecideOnlyFromPending(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	loc := seedSlot(t, s, 5)

	req, err := domain.NewRequest("r1", "u@example.com", loc, 2, "", time.Now())
	require.NoError(t, err)
	require.NoError(t, s.Requests().Create(ctx, req))

	approved := *req
	require.NoError(t, approved.Approve("m@example.com", time.Now()))
	require.NoError(t, s.Requests().Decide(ctx, &approved))

	rejected := *req
	require.NoError(t, rejected.Reject("m@example.com", time.Now()))
	assert.ErrorIs(t, s.Requests().Decide(ctx, &rejected), domain.ErrInvalidState)

	stored, err := s.Requests().FindByID(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, domain.RequestApproved, stored.Status)

	n, err := s.Requests().CountByStatus(ctx, domain.RequestPending)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestItemRepository_UniqueSKU(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	a, _ := domain.NewItem("a", "Valve", "V12", "", time.Now())
	b, _ := domain.NewItem("b", "Other", "V12", "", time.Now())
	require.NoError(t, s.Items().Create(ctx, a))
	assert.ErrorIs(t, s.Items().Create(ctx, b), domain.ErrConflict)

	b.InternalSKU = "V13"
	require.NoError(t, s.Items().Create(ctx, b))
	b.InternalSKU = "V12"
	assert.ErrorIs(t, s.Items().Update(ctx, b), domain.ErrDuplicateSKU)
}

func TestAuditSink_RecentNewestFirst(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	for _, id := range []string{"1", "2", "3"} {
		require.NoError(t, s.Audit().Append(ctx, &domain.AuditRecord{ID: id}))
	}

	recent, err := s.Audit().Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "3", recent[0].ID)
	assert.Equal(t, "2", recent[1].ID)
}
