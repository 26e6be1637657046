package memory

import (
	"context"
	"sort"
	"strings"

	"github.com/mikidaniel85/warehouse-pbb/internal/domain"
)

// ItemRepository is the in-memory catalog.
type ItemRepository struct{ s *Store }

var _ domain.ItemRepository = (*ItemRepository)(nil)

func (r *ItemRepository) Create(ctx context.Context, item *domain.Item) error {
	release, err := r.s.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	if _, exists := r.s.state.items[item.ID]; exists {
		return domain.ErrConflict
	}
	if r.skuTaken(item.InternalSKU, "") {
		return domain.ErrDuplicateSKU
	}
	c := *item
	r.s.state.items[item.ID] = &c
	return nil
}

func (r *ItemRepository) Update(ctx context.Context, item *domain.Item) error {
	release, err := r.s.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	if _, exists := r.s.state.items[item.ID]; !exists {
		return domain.ErrItemNotFound
	}
	if r.skuTaken(item.InternalSKU, item.ID) {
		return domain.ErrDuplicateSKU
	}
	c := *item
	r.s.state.items[item.ID] = &c
	return nil
}

func (r *ItemRepository) skuTaken(sku, exceptID string) bool {
	for id, existing := range r.s.state.items {
		if id != exceptID && existing.InternalSKU == sku {
			return true
		}
	}
	return false
}

func (r *ItemRepository) Delete(ctx context.Context, id string) error {
	release, err := r.s.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	if _, exists := r.s.state.items[id]; !exists {
		return domain.ErrItemNotFound
	}
	delete(r.s.state.items, id)
	return nil
}

func (r *ItemRepository) FindByID(ctx context.Context, id string) (*domain.Item, error) {
	release, err := r.s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	item, ok := r.s.state.items[id]
	if !ok {
		return nil, domain.ErrItemNotFound
	}
	c := *item
	return &c, nil
}

// Reference is FindByID; the store lock already orders it against Delete.
func (r *ItemRepository) Reference(ctx context.Context, id string) (*domain.Item, error) {
	return r.FindByID(ctx, id)
}

func (r *ItemRepository) FindBySKU(ctx context.Context, internalSKU string) (*domain.Item, error) {
	release, err := r.s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	for _, item := range r.s.state.items {
		if item.InternalSKU == internalSKU {
			c := *item
			return &c, nil
		}
	}
	return nil, domain.ErrItemNotFound
}

func (r *ItemRepository) List(ctx context.Context) ([]*domain.Item, error) {
	release, err := r.s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	out := make([]*domain.Item, 0, len(r.s.state.items))
	for _, item := range r.s.state.items {
		c := *item
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Description != out[j].Description {
			return out[i].Description < out[j].Description
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// LocationRepository is the in-memory ledger. Each call runs under the store mutex.
type LocationRepository struct{ s *Store }

var _ domain.LocationRepository = (*LocationRepository)(nil)

func (r *LocationRepository) Receive(ctx context.Context, slot *domain.Location, qty int) (*domain.ReceiptResult, error) {
	release, err := r.s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	now := r.s.now()
	existing, ok := r.s.state.locations[slot.ID]
	created := !ok
	if created {
		c := *slot
		c.Quantity = 0
		c.CreatedAt = now
		existing = &c
		r.s.state.locations[slot.ID] = existing
	}
	existing.Quantity += qty
	existing.UpdatedAt = now

	c := *existing
	return &domain.ReceiptResult{Location: &c, Received: qty, Created: created}, nil
}

func (r *LocationRepository) Decrement(ctx context.Context, locationID string, qty int) (*domain.DecrementResult, error) {
	release, err := r.s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	loc, ok := r.s.state.locations[locationID]
	if !ok {
		return nil, domain.ErrLocationNotFound
	}
	remaining, applied := domain.ClampedDecrement(loc.Quantity, qty)
	loc.Quantity = remaining
	loc.UpdatedAt = r.s.now()

	c := *loc
	return &domain.DecrementResult{Location: &c, Requested: qty, Applied: applied}, nil
}

func (r *LocationRepository) Remove(ctx context.Context, locationID string) (*domain.Location, error) {
	release, err := r.s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	loc, ok := r.s.state.locations[locationID]
	if !ok {
		return nil, domain.ErrLocationNotFound
	}
	delete(r.s.state.locations, locationID)
	return loc, nil
}

func (r *LocationRepository) RenameCachedItem(ctx context.Context, itemID, previousName, newName string) (int64, error) {
	release, err := r.s.acquire(ctx)
	if err != nil {
		return 0, err
	}
	defer release()

	var (
		touched int64
		legacy  []*domain.Location
	)
	now := r.s.now()
	for _, loc := range r.s.state.locations {
		switch {
		case loc.ItemID == itemID:
			loc.ItemName = newName
			loc.UpdatedAt = now
			touched++
		case loc.ItemID == "" && previousName != "" && loc.ItemName == previousName:
			legacy = append(legacy, loc)
		}
	}

	// Linked legacy slots move to the id-derived key, merging into a slot already there.
	for _, loc := range legacy {
		linked := loc.LinkedTo(itemID, newName)
		linked.UpdatedAt = now
		delete(r.s.state.locations, loc.ID)
		if existing, ok := r.s.state.locations[linked.ID]; ok {
			existing.Quantity += linked.Quantity
			existing.UpdatedAt = now
		} else {
			r.s.state.locations[linked.ID] = linked
		}
		touched++
	}
	return touched, nil
}

func (r *LocationRepository) FindByID(ctx context.Context, id string) (*domain.Location, error) {
	release, err := r.s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	loc, ok := r.s.state.locations[id]
	if !ok {
		return nil, domain.ErrLocationNotFound
	}
	c := *loc
	return &c, nil
}

func (r *LocationRepository) List(ctx context.Context, filter domain.LocationFilter) ([]*domain.Location, error) {
	release, err := r.s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	warehouse := domain.NormalizeComponent(filter.Warehouse)
	out := make([]*domain.Location, 0)
	for _, loc := range r.s.state.locations {
		if warehouse != "" && loc.Warehouse != warehouse {
			continue
		}
		if filter.ItemID != "" && loc.ItemID != filter.ItemID {
			continue
		}
		if filter.InStockOnly && loc.Quantity <= 0 {
			continue
		}
		c := *loc
		out = append(out, &c)
	}
	sortLocations(out)
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func sortLocations(locs []*domain.Location) {
	sort.Slice(locs, func(i, j int) bool {
		a, b := locs[i], locs[j]
		if a.Warehouse != b.Warehouse {
			return a.Warehouse < b.Warehouse
		}
		if a.ItemName != b.ItemName {
			return a.ItemName < b.ItemName
		}
		return a.ID < b.ID
	})
}

func (r *LocationRepository) CountByItem(ctx context.Context, itemID string) (int64, error) {
	release, err := r.s.acquire(ctx)
	if err != nil {
		return 0, err
	}
	defer release()

	var n int64
	for _, loc := range r.s.state.locations {
		if loc.ItemID == itemID {
			n++
		}
	}
	return n, nil
}

// WarehouseRepository is the in-memory warehouse list.
type WarehouseRepository struct{ s *Store }

var _ domain.WarehouseRepository = (*WarehouseRepository)(nil)

func (r *WarehouseRepository) nameTaken(name, exceptID string) bool {
	for id, w := range r.s.state.warehouses {
		if id != exceptID && strings.EqualFold(w.Name, name) {
			return true
		}
	}
	return false
}

func (r *WarehouseRepository) Create(ctx context.Context, warehouse *domain.Warehouse) error {
	release, err := r.s.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	if _, exists := r.s.state.warehouses[warehouse.ID]; exists || r.nameTaken(warehouse.Name, "") {
		return domain.ErrDuplicateWarehouse
	}
	c := *warehouse
	r.s.state.warehouses[warehouse.ID] = &c
	return nil
}

func (r *WarehouseRepository) Update(ctx context.Context, warehouse *domain.Warehouse) error {
	release, err := r.s.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	if _, exists := r.s.state.warehouses[warehouse.ID]; !exists {
		return domain.ErrWarehouseNotFound
	}
	if r.nameTaken(warehouse.Name, warehouse.ID) {
		return domain.ErrDuplicateWarehouse
	}
	c := *warehouse
	r.s.state.warehouses[warehouse.ID] = &c
	return nil
}

func (r *WarehouseRepository) Delete(ctx context.Context, id string) error {
	release, err := r.s.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	if _, exists := r.s.state.warehouses[id]; !exists {
		return domain.ErrWarehouseNotFound
	}
	delete(r.s.state.warehouses, id)
	return nil
}

func (r *WarehouseRepository) FindByID(ctx context.Context, id string) (*domain.Warehouse, error) {
	release, err := r.s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	w, ok := r.s.state.warehouses[id]
	if !ok {
		return nil, domain.ErrWarehouseNotFound
	}
	c := *w
	return &c, nil
}

func (r *WarehouseRepository) FindByName(ctx context.Context, name string) (*domain.Warehouse, error) {
	release, err := r.s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	name = domain.NormalizeComponent(name)
	for _, w := range r.s.state.warehouses {
		if strings.EqualFold(w.Name, name) {
			c := *w
			return &c, nil
		}
	}
	return nil, domain.ErrWarehouseNotFound
}

// ReferenceByName is FindByName; the store lock already orders it against Update and Delete.
func (r *WarehouseRepository) ReferenceByName(ctx context.Context, name string) (*domain.Warehouse, error) {
	return r.FindByName(ctx, name)
}

func (r *WarehouseRepository) List(ctx context.Context) ([]*domain.Warehouse, error) {
	release, err := r.s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	out := make([]*domain.Warehouse, 0, len(r.s.state.warehouses))
	for _, w := range r.s.state.warehouses {
		c := *w
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *WarehouseRepository) EnsureSentinel(ctx context.Context, sentinel *domain.Warehouse) (*domain.Warehouse, error) {
	release, err := r.s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	if existing, ok := r.s.state.warehouses[sentinel.ID]; ok {
		c := *existing
		return &c, nil
	}
	stored := *sentinel
	r.s.state.warehouses[sentinel.ID] = &stored
	c := stored
	return &c, nil
}

// RequestRepository is the in-memory request store.
type RequestRepository struct{ s *Store }

var _ domain.RequestRepository = (*RequestRepository)(nil)

func (r *RequestRepository) Create(ctx context.Context, request *domain.Request) error {
	release, err := r.s.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	if _, exists := r.s.state.requests[request.ID]; exists {
		return domain.ErrConflict
	}
	c := *request
	r.s.state.requests[request.ID] = &c
	return nil
}

func (r *RequestRepository) FindByID(ctx context.Context, id string) (*domain.Request, error) {
	release, err := r.s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	req, ok := r.s.state.requests[id]
	if !ok {
		return nil, domain.ErrRequestNotFound
	}
	c := *req
	return &c, nil
}

func (r *RequestRepository) List(ctx context.Context, filter domain.RequestFilter) ([]*domain.Request, error) {
	release, err := r.s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	out := make([]*domain.Request, 0)
	for _, req := range r.s.state.requests {
		if filter.Status != "" && req.Status != filter.Status {
			continue
		}
		if filter.Requester != "" && req.Requester != filter.Requester {
			continue
		}
		c := *req
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (r *RequestRepository) CountByStatus(ctx context.Context, status domain.RequestStatus) (int64, error) {
	release, err := r.s.acquire(ctx)
	if err != nil {
		return 0, err
	}
	defer release()

	var n int64
	for _, req := range r.s.state.requests {
		if req.Status == status {
			n++
		}
	}
	return n, nil
}

func (r *RequestRepository) Decide(ctx context.Context, request *domain.Request) error {
	release, err := r.s.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	stored, ok := r.s.state.requests[request.ID]
	if !ok {
		return domain.ErrRequestNotFound
	}
	if stored.Status != domain.RequestPending {
		return &domain.StateError{RequestID: stored.ID, Status: stored.Status}
	}
	c := *request
	r.s.state.requests[request.ID] = &c
	return nil
}

// UserRepository is the in-memory identity directory.
type UserRepository struct{ s *Store }

var _ domain.UserRepository = (*UserRepository)(nil)

func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	release, err := r.s.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	if _, exists := r.s.state.users[user.Email]; exists {
		return domain.ErrDuplicateUser
	}
	c := *user
	r.s.state.users[user.Email] = &c
	return nil
}

func (r *UserRepository) Update(ctx context.Context, user *domain.User) error {
	release, err := r.s.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	if _, exists := r.s.state.users[user.Email]; !exists {
		return domain.ErrUserNotFound
	}
	c := *user
	r.s.state.users[user.Email] = &c
	return nil
}

func (r *UserRepository) Delete(ctx context.Context, email string) error {
	release, err := r.s.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	if _, exists := r.s.state.users[email]; !exists {
		return domain.ErrUserNotFound
	}
	delete(r.s.state.users, email)
	return nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	release, err := r.s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	u, ok := r.s.state.users[domain.NormalizeEmail(email)]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	c := *u
	return &c, nil
}

func (r *UserRepository) List(ctx context.Context) ([]*domain.User, error) {
	release, err := r.s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	out := make([]*domain.User, 0, len(r.s.state.users))
	for _, u := range r.s.state.users {
		c := *u
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, nil
}

func (r *UserRepository) CountPending(ctx context.Context) (int64, error) {
	release, err := r.s.acquire(ctx)
	if err != nil {
		return 0, err
	}
	defer release()

	var n int64
	for _, u := range r.s.state.users {
		if !u.Approved {
			n++
		}
	}
	return n, nil
}

// AuditSink is the in-memory activity log.
type AuditSink struct{ s *Store }

var _ domain.AuditSink = (*AuditSink)(nil)

func (a *AuditSink) Append(ctx context.Context, record *domain.AuditRecord) error {
	release, err := a.s.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	c := *record
	a.s.state.audit = append(a.s.state.audit, &c)
	return nil
}

// Recent returns up to limit records, newest first.
func (a *AuditSink) Recent(ctx context.Context, limit int) ([]*domain.AuditRecord, error) {
	release, err := a.s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	n := len(a.s.state.audit)
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]*domain.AuditRecord, 0, limit)
	for i := n - 1; i >= 0 && len(out) < limit; i-- {
		c := *a.s.state.audit[i]
		out = append(out, &c)
	}
	return out, nil
}
