package domain

import (
	"strings"
	"time"
)

// DefaultSentinelWarehouse receives the stock of deleted warehouses.
const DefaultSentinelWarehouse = "unassigned"

// SentinelWarehouseID is the fixed id of the sentinel warehouse record.
const SentinelWarehouseID = "sentinel"

// Warehouse is a named group of locations. Locations refer to it by name.
type Warehouse struct {
	ID        string    `bson:"_id" json:"id"`
	Name      string    `bson:"name" json:"name"`
	Sentinel  bool      `bson:"sentinel,omitempty" json:"sentinel,omitempty"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// NewWarehouse validates name and creates a warehouse.
func NewWarehouse(id, name string, now time.Time) (*Warehouse, error) {
	name = NormalizeComponent(name)
	if name == "" {
		return nil, NewValidationError("name", "is required")
	}
	return &Warehouse{ID: id, Name: name, CreatedAt: now, UpdatedAt: now}, nil
}

// NewSentinelWarehouse creates the reserved placeholder warehouse.
func NewSentinelWarehouse(name string, now time.Time) *Warehouse {
	name = NormalizeComponent(name)
	if name == "" {
		name = DefaultSentinelWarehouse
	}
	return &Warehouse{ID: SentinelWarehouseID, Name: name, Sentinel: true, CreatedAt: now, UpdatedAt: now}
}

// Rename changes the warehouse name. The sentinel cannot be renamed.
func (w *Warehouse) Rename(name string, now time.Time) error {
	if w.Sentinel {
		return ErrSentinelWarehouse
	}
	name = NormalizeComponent(name)
	if name == "" {
		return NewValidationError("name", "is required")
	}
	w.Name = name
	w.UpdatedAt = now
	return nil
}

// IsReservedName reports whether name collides with the sentinel name.
func IsReservedName(name, sentinel string) bool {
	return strings.EqualFold(NormalizeComponent(name), NormalizeComponent(sentinel))
}
