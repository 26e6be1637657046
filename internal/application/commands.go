package application

import "github.com/mikidaniel85/warehouse-pbb/internal/domain"

// CreateItemCommand adds a catalog entry
type CreateItemCommand struct {
	Actor           domain.Actor
	Description     string
	InternalSKU     string
	ManufacturerSKU string
}

// UpdateItemCommand edits a catalog entry. Nil fields are left unchanged.
type UpdateItemCommand struct {
	Actor           domain.Actor
	ItemID          string
	Description     *string
	InternalSKU     *string
	ManufacturerSKU *string
}

// DeleteItemCommand removes an unreferenced catalog entry
type DeleteItemCommand struct {
	Actor  domain.Actor
	ItemID string
}

// ImportRow is one (description, internalSku, manufacturerSku) tuple of a catalog import
type ImportRow struct {
	Description     string
	InternalSKU     string
	ManufacturerSKU string
}

// ImportItemsCommand creates catalog entries in bulk. Existing SKUs are skipped.
type ImportItemsCommand struct {
	Actor domain.Actor
	Rows  []ImportRow
}

// ReceiveCommand adds stock of an item into a slot
type ReceiveCommand struct {
	Actor     domain.Actor
	ItemID    string
	Warehouse string
	Row       domain.Coordinate
	Column    domain.Coordinate
	Floor     domain.Coordinate
	Quantity  int
}

// RelocateCommand moves a slot to another position
type RelocateCommand struct {
	Actor      domain.Actor
	LocationID string
	Warehouse  string
	Row        domain.Coordinate
	Column     domain.Coordinate
	Floor      domain.Coordinate
}

// ListLocationsQuery narrows a location listing
type ListLocationsQuery struct {
	Warehouse   string
	ItemID      string
	InStockOnly bool
	Limit       int
}

// CreateRequestCommand asks for quantity to be pulled from a location
type CreateRequestCommand struct {
	Actor      domain.Actor
	LocationID string
	Quantity   int
	Reason     string
}

// DecideRequestCommand approves or rejects a pending request
type DecideRequestCommand struct {
	Actor     domain.Actor
	RequestID string
}

// ListRequestsQuery lists requests. Pullers only ever see their own.
type ListRequestsQuery struct {
	Actor  domain.Actor
	Status string
	Limit  int
}

// CreateWarehouseCommand adds a warehouse
type CreateWarehouseCommand struct {
	Actor domain.Actor
	Name  string
}

// RenameWarehouseCommand renames a warehouse and moves its slots along
type RenameWarehouseCommand struct {
	Actor       domain.Actor
	WarehouseID string
	Name        string
}

// DeleteWarehouseCommand deletes a warehouse after moving its slots to the sentinel
type DeleteWarehouseCommand struct {
	Actor       domain.Actor
	WarehouseID string
}

// RegisterUserCommand creates an unapproved directory entry
type RegisterUserCommand struct {
	Email string
	Role  string
}

// UserCommand targets one directory entry
type UserCommand struct {
	Actor domain.Actor
	Email string
}

// ChangeRoleCommand sets the role of a user
type ChangeRoleCommand struct {
	Actor domain.Actor
	Email string
	Role  string
}

// SearchQuery is free text typed by a user or recognized from an image
type SearchQuery struct {
	Text string
}

// ImageSearchQuery is a captured image to recognize and search with
type ImageSearchQuery struct {
	Image       []byte
	ContentType string
}
