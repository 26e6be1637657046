package application

import "time"

// ItemDTO represents a catalog entry in responses
type ItemDTO struct {
	ID              string    `json:"id"`
	Description     string    `json:"description"`
	InternalSKU     string    `json:"internalSku"`
	ManufacturerSKU string    `json:"manufacturerSku,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// ItemUpdateDTO is the result of an item edit
type ItemUpdateDTO struct {
	Item             *ItemDTO `json:"item"`
	LocationsRenamed int64    `json:"locationsRenamed"`
}

// ImportRowErrorDTO reports a rejected import row. Row is 1-based.
type ImportRowErrorDTO struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

// ImportResultDTO summarizes a catalog import
type ImportResultDTO struct {
	Created int                 `json:"created"`
	Skipped int                 `json:"skipped"`
	Invalid int                 `json:"invalid"`
	Errors  []ImportRowErrorDTO `json:"errors,omitempty"`
}

// LocationDTO represents a ledger slot in responses
type LocationDTO struct {
	ID        string    `json:"id"`
	ItemID    string    `json:"itemId,omitempty"`
	ItemName  string    `json:"itemName"`
	Warehouse string    `json:"warehouse"`
	Row       string    `json:"row"`
	Column    string    `json:"column"`
	Floor     string    `json:"floor"`
	Quantity  int       `json:"quantity"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ReceiptDTO is the result of a receive
type ReceiptDTO struct {
	Location *LocationDTO `json:"location"`
	Received int          `json:"received"`
	Created  bool         `json:"created"`
}

// RelocationDTO is the result of a relocate
type RelocationDTO struct {
	FromLocationID string       `json:"fromLocationId"`
	Location       *LocationDTO `json:"location"`
	Moved          int          `json:"moved"`
	Merged         bool         `json:"merged"`
}

// SlotSuggestionDTO pre-fills a receipt with an existing slot of the item
type SlotSuggestionDTO struct {
	ItemID     string `json:"itemId"`
	LocationID string `json:"locationId,omitempty"`
	Warehouse  string `json:"warehouse,omitempty"`
	Row        string `json:"row,omitempty"`
	Column     string `json:"column,omitempty"`
	Floor      string `json:"floor,omitempty"`
	Found      bool   `json:"found"`
}

// RequestDTO represents a pull request in responses
type RequestDTO struct {
	ID         string     `json:"id"`
	Requester  string     `json:"requester"`
	ItemName   string     `json:"itemName"`
	LocationID string     `json:"locationId"`
	Quantity   int        `json:"quantity"`
	Reason     string     `json:"reason,omitempty"`
	Status     string     `json:"status"`
	DecidedBy  string     `json:"decidedBy,omitempty"`
	DecidedAt  *time.Time `json:"decidedAt,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
}

// ApprovalDTO is the result of an approval. Shortfall is the part of the
// requested quantity that was not in stock.
type ApprovalDTO struct {
	Request   *RequestDTO  `json:"request"`
	Location  *LocationDTO `json:"location"`
	Applied   int          `json:"applied"`
	Shortfall int          `json:"shortfall"`
}

// WarehouseDTO represents a warehouse in responses
type WarehouseDTO struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Sentinel  bool      `json:"sentinel,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// WarehouseChangeDTO is the result of a warehouse rename or delete
type WarehouseChangeDTO struct {
	Warehouse      *WarehouseDTO `json:"warehouse"`
	TargetName     string        `json:"targetName"`
	MovedLocations int           `json:"movedLocations"`
}

// UserDTO represents a directory entry in responses
type UserDTO struct {
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	Approved  bool      `json:"approved"`
	CreatedAt time.Time `json:"createdAt"`
}

// AuditRecordDTO represents an activity log entry
type AuditRecordDTO struct {
	Timestamp time.Time `json:"timestamp"`
	Actor     string    `json:"actor"`
	Role      string    `json:"role"`
	Action    string    `json:"action"`
	Detail    string    `json:"detail"`
}

// SearchResultDTO holds the matching slots and catalog entries
type SearchResultDTO struct {
	Query     string         `json:"query"`
	Tokens    []string       `json:"tokens"`
	Locations []*LocationDTO `json:"locations"`
	Items     []*ItemDTO     `json:"items"`
}

// CountDTO is a single counter
type CountDTO struct {
	Count int64 `json:"count"`
}
