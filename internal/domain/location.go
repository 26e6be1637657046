package domain

import (
	"time"
)

// Location is a ledger slot: one item at one physical position.
// ItemID is empty only for legacy records that predate item linking.
type Location struct {
	ID        string    `bson:"_id" json:"id"`
	ItemID    string    `bson:"itemId,omitempty" json:"itemId,omitempty"`
	ItemName  string    `bson:"itemName" json:"itemName"`
	Warehouse string    `bson:"warehouse" json:"warehouse"`
	Row       string    `bson:"row" json:"row"`
	Column    string    `bson:"column" json:"column"`
	Floor     string    `bson:"floor" json:"floor"`
	Quantity  int       `bson:"quantity" json:"quantity"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// NewLocation creates an empty slot for item at addr. Callers add stock with a receipt.
func NewLocation(item *Item, addr SlotAddress, now time.Time) (*Location, error) {
	if item == nil || item.ID == "" {
		return nil, NewValidationError("itemId", "is required")
	}
	if err := addr.Validate(); err != nil {
		return nil, err
	}
	n := addr.Normalize()
	return &Location{
		ID:        LocationKey(n, item.ID),
		ItemID:    item.ID,
		ItemName:  item.Description,
		Warehouse: n.Warehouse,
		Row:       n.Row,
		Column:    n.Column,
		Floor:     n.Floor,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Address returns the physical part of the slot.
func (l *Location) Address() SlotAddress {
	return SlotAddress{Warehouse: l.Warehouse, Row: l.Row, Column: l.Column, Floor: l.Floor}
}

// MovedTo returns a zero-quantity copy of the slot at addr, keyed for the same item.
// Legacy records without an item link keep their name but are keyed by it.
func (l *Location) MovedTo(addr SlotAddress, now time.Time) (*Location, error) {
	if err := addr.Validate(); err != nil {
		return nil, err
	}
	n := addr.Normalize()
	keyItem := l.ItemID
	if keyItem == "" {
		keyItem = l.ItemName
	}
	return &Location{
		ID:        LocationKey(n, keyItem),
		ItemID:    l.ItemID,
		ItemName:  l.ItemName,
		Warehouse: n.Warehouse,
		Row:       n.Row,
		Column:    n.Column,
		Floor:     n.Floor,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// LinkedTo returns a copy of a legacy slot linked to itemID and keyed the way
// a receipt of that item at the same address would be.
func (l *Location) LinkedTo(itemID, name string) *Location {
	c := *l
	c.ID = LocationKey(l.Address(), itemID)
	c.ItemID = itemID
	c.ItemName = name
	return &c
}

// ValidateQuantity requires a strictly positive movement quantity.
func ValidateQuantity(qty int) error {
	if qty <= 0 {
		return NewValidationError("quantity", "must be greater than 0")
	}
	return nil
}

// ClampedDecrement removes qty from current without going below zero and
// returns the new quantity and the amount actually removed.
func ClampedDecrement(current, qty int) (remaining, applied int) {
	if qty >= current {
		return 0, current
	}
	return current - qty, qty
}

// ReceiptResult is the outcome of a receive.
type ReceiptResult struct {
	Location *Location
	Received int
	Created  bool
}

// DecrementResult is the outcome of a clamped decrement.
type DecrementResult struct {
	Location  *Location
	Requested int
	Applied   int
}

// Shortfall is the part of the requested quantity that was not available.
func (r *DecrementResult) Shortfall() int {
	return r.Requested - r.Applied
}

// RelocationResult is the outcome of moving a slot.
type RelocationResult struct {
	From     string
	Location *Location
	Moved    int
	Merged   bool
}
