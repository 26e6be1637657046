package domain

import (
	"strings"
	"time"
)

// RequestStatus is the state of a pull request.
type RequestStatus string

const (
	RequestPending  RequestStatus = "pending"
	RequestApproved RequestStatus = "approved"
	RequestRejected RequestStatus = "rejected"
)

// IsValid checks if the status is known
func (s RequestStatus) IsValid() bool {
	switch s {
	case RequestPending, RequestApproved, RequestRejected:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether no further transition is allowed.
func (s RequestStatus) IsTerminal() bool {
	return s == RequestApproved || s == RequestRejected
}

// Request asks a manager to remove quantity from a location.
type Request struct {
	ID         string        `bson:"_id" json:"id"`
	Requester  string        `bson:"requester" json:"requester"`
	ItemName   string        `bson:"itemName" json:"itemName"`
	LocationID string        `bson:"locationId" json:"locationId"`
	Quantity   int           `bson:"quantity" json:"quantity"`
	Reason     string        `bson:"reason" json:"reason"`
	Status     RequestStatus `bson:"status" json:"status"`
	DecidedBy  string        `bson:"decidedBy,omitempty" json:"decidedBy,omitempty"`
	DecidedAt  *time.Time    `bson:"decidedAt,omitempty" json:"decidedAt,omitempty"`
	CreatedAt  time.Time     `bson:"createdAt" json:"createdAt"`
}

// NewRequest creates a pending request against location. Current stock is not checked.
func NewRequest(id, requester string, location *Location, qty int, reason string, now time.Time) (*Request, error) {
	requester = strings.TrimSpace(requester)
	if requester == "" {
		return nil, NewValidationError("requester", "is required")
	}
	if location == nil {
		return nil, NewValidationError("locationId", "is required")
	}
	if err := ValidateQuantity(qty); err != nil {
		return nil, err
	}
	return &Request{
		ID:         id,
		Requester:  requester,
		ItemName:   location.ItemName,
		LocationID: location.ID,
		Quantity:   qty,
		Reason:     strings.TrimSpace(reason),
		Status:     RequestPending,
		CreatedAt:  now,
	}, nil
}

// Approve moves a pending request to approved.
func (r *Request) Approve(by string, now time.Time) error {
	return r.decide(RequestApproved, by, now)
}

// Reject moves a pending request to rejected.
func (r *Request) Reject(by string, now time.Time) error {
	return r.decide(RequestRejected, by, now)
}

func (r *Request) decide(to RequestStatus, by string, now time.Time) error {
	if r.Status != RequestPending {
		return &StateError{RequestID: r.ID, Status: r.Status}
	}
	r.Status = to
	r.DecidedBy = by
	r.DecidedAt = &now
	return nil
}

// StateError reports a transition attempted on a terminal request. It matches ErrInvalidState.
type StateError struct {
	RequestID string
	Status    RequestStatus
}

func (e *StateError) Error() string {
	return "request " + e.RequestID + " is already " + string(e.Status)
}

func (e *StateError) Unwrap() error { return ErrInvalidState }
