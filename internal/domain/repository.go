package domain

import (
	"context"
	"time"
)

// ItemRepository persists catalog entries. Create and Update fail with
// ErrDuplicateSKU when the internal SKU is taken by another item.
type ItemRepository interface {
	Create(ctx context.Context, item *Item) error
	Update(ctx context.Context, item *Item) error
	Delete(ctx context.Context, id string) error
	FindByID(ctx context.Context, id string) (*Item, error)
	// Reference returns the item and writes to its record inside the caller's
	// transaction, so a concurrent Delete of the same item conflicts with the
	// slot write that follows.
	Reference(ctx context.Context, id string) (*Item, error)
	FindBySKU(ctx context.Context, internalSKU string) (*Item, error)
	List(ctx context.Context) ([]*Item, error)
}

// LocationFilter narrows a location listing. Zero values match everything.
type LocationFilter struct {
	Warehouse   string
	ItemID      string
	InStockOnly bool
	Limit       int
}

// LocationRepository is the ledger. Every quantity change is a single atomic
// store update; there is no read-then-write path.
type LocationRepository interface {
	// Receive adds qty to slot.ID, creating the slot from the template when absent.
	Receive(ctx context.Context, slot *Location, qty int) (*ReceiptResult, error)
	// Decrement removes qty clamped at zero. ErrLocationNotFound when the slot is gone.
	Decrement(ctx context.Context, locationID string, qty int) (*DecrementResult, error)
	// Remove deletes a slot and returns it as it was at deletion.
	Remove(ctx context.Context, locationID string) (*Location, error)
	// RenameCachedItem rewrites the cached name of the item's slots and links
	// unlinked legacy slots still carrying previousName. Returns slots touched.
	RenameCachedItem(ctx context.Context, itemID, previousName, newName string) (int64, error)
	FindByID(ctx context.Context, id string) (*Location, error)
	List(ctx context.Context, filter LocationFilter) ([]*Location, error)
	CountByItem(ctx context.Context, itemID string) (int64, error)
}

// WarehouseRepository persists warehouses. Names are unique.
type WarehouseRepository interface {
	Create(ctx context.Context, warehouse *Warehouse) error
	Update(ctx context.Context, warehouse *Warehouse) error
	Delete(ctx context.Context, id string) error
	FindByID(ctx context.Context, id string) (*Warehouse, error)
	FindByName(ctx context.Context, name string) (*Warehouse, error)
	// ReferenceByName resolves a warehouse like FindByName and writes to its
	// record, so a concurrent rename or delete conflicts with the slot write.
	ReferenceByName(ctx context.Context, name string) (*Warehouse, error)
	List(ctx context.Context) ([]*Warehouse, error)
	// EnsureSentinel creates the sentinel record if it does not exist yet.
	EnsureSentinel(ctx context.Context, sentinel *Warehouse) (*Warehouse, error)
}

// RequestFilter narrows a request listing.
type RequestFilter struct {
	Status    RequestStatus
	Requester string
	Limit     int
}

// RequestRepository persists pull requests.
type RequestRepository interface {
	Create(ctx context.Context, request *Request) error
	FindByID(ctx context.Context, id string) (*Request, error)
	List(ctx context.Context, filter RequestFilter) ([]*Request, error)
	CountByStatus(ctx context.Context, status RequestStatus) (int64, error)
	// Decide stores a terminal transition only while the stored request is still
	// pending. A request decided concurrently yields ErrInvalidState.
	Decide(ctx context.Context, request *Request) error
}

// UserRepository is the identity directory.
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	Update(ctx context.Context, user *User) error
	Delete(ctx context.Context, email string) error
	FindByEmail(ctx context.Context, email string) (*User, error)
	List(ctx context.Context) ([]*User, error)
	CountPending(ctx context.Context) (int64, error)
}

// AuditSink is the append-only activity log.
type AuditSink interface {
	Append(ctx context.Context, record *AuditRecord) error
	Recent(ctx context.Context, limit int) ([]*AuditRecord, error)
}

// TransactionRunner runs fn as one atomic unit. Repository calls made with the
// context passed to fn take part in the unit; fn may be re-run after a
// transient conflict and must not keep state between runs.
type TransactionRunner interface {
	RunInTransaction(ctx context.Context, name string, fn func(ctx context.Context) error) error
}

// Clock returns the current time. Stores truncate to their own precision.
type Clock func() time.Time
