package cloudevents

import (
	"time"
)

// Event types emitted by the stock ledger
const (
	StockReceived    = "wms.stock-ledger.stock-received"
	StockDecremented = "wms.stock-ledger.stock-decremented"
	StockRelocated   = "wms.stock-ledger.stock-relocated"
	RequestCreated   = "wms.stock-ledger.request-created"
	RequestApproved  = "wms.stock-ledger.request-approved"
	RequestRejected  = "wms.stock-ledger.request-rejected"
)

// SourceStockLedger is the CloudEvents source of every event this service emits.
const SourceStockLedger = "/wms/stock-ledger-service"

// WMSCloudEvent represents a CloudEvents v1.0 compliant event
type WMSCloudEvent struct {
	SpecVersion     string      `json:"specversion"`
	Type            string      `json:"type"`
	Source          string      `json:"source"`
	Subject         string      `json:"subject,omitempty"`
	ID              string      `json:"id"`
	Time            time.Time   `json:"time"`
	DataContentType string      `json:"datacontenttype"`
	Data            interface{} `json:"data"`

	CorrelationID string `json:"wmscorrelationid,omitempty"`
	Actor         string `json:"wmsactor,omitempty"`
}

// StockReceivedData is the payload of StockReceived
type StockReceivedData struct {
	LocationID  string `json:"locationId"`
	ItemID      string `json:"itemId"`
	Warehouse   string `json:"warehouse"`
	Quantity    int    `json:"quantity"`
	NewQuantity int    `json:"newQuantity"`
	Created     bool   `json:"created"`
}

// StockDecrementedData is the payload of StockDecremented
type StockDecrementedData struct {
	LocationID  string `json:"locationId"`
	RequestID   string `json:"requestId,omitempty"`
	Requested   int    `json:"requested"`
	Applied     int    `json:"applied"`
	NewQuantity int    `json:"newQuantity"`
}

// StockRelocatedData is the payload of StockRelocated
type StockRelocatedData struct {
	FromLocationID string `json:"fromLocationId"`
	ToLocationID   string `json:"toLocationId"`
	Quantity       int    `json:"quantity"`
	Merged         bool   `json:"merged"`
}

// RequestData is the payload of the pull request lifecycle events
type RequestData struct {
	RequestID  string `json:"requestId"`
	LocationID string `json:"locationId"`
	Requester  string `json:"requester"`
	Quantity   int    `json:"quantity"`
	Status     string `json:"status"`
	DecidedBy  string `json:"decidedBy,omitempty"`
}
