package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pendingRequest(t *testing.T) *Request {
	t.Helper()
	loc := &Location{ID: "WH1_1_A_2_item-a", ItemName: "Valve 12mm", Quantity: 5}
	req, err := NewRequest("req-1", "puller@example.com", loc, 3, " test ", time.Now())
	require.NoError(t, err)
	return req
}

func TestNewRequest(t *testing.T) {
	req := pendingRequest(t)
	assert.Equal(t, RequestPending, req.Status)
	assert.Equal(t, "Valve 12mm", req.ItemName)
	assert.Equal(t, "test", req.Reason)

	loc := &Location{ID: "L", Quantity: 1}
	_, err := NewRequest("r", "u@example.com", loc, 0, "", time.Now())
	assert.ErrorIs(t, err, ErrValidation)

	_, err = NewRequest("r", " ", loc, 1, "", time.Now())
	assert.ErrorIs(t, err, ErrValidation)

	// Quantity above current stock is accepted at creation.
	_, err = NewRequest("r", "u@example.com", loc, 100, "", time.Now())
	assert.NoError(t, err)
}

func TestRequest_TransitionsExactlyOnce(t *testing.T) {
	req := pendingRequest(t)
	now := time.Now()

	require.NoError(t, req.Approve("manager@example.com", now))
	assert.Equal(t, RequestApproved, req.Status)
	assert.Equal(t, "manager@example.com", req.DecidedBy)
	require.NotNil(t, req.DecidedAt)

	err := req.Approve("manager@example.com", now)
	assert.ErrorIs(t, err, ErrInvalidState)
	err = req.Reject("manager@example.com", now)
	assert.ErrorIs(t, err, ErrInvalidState)
	assert.Equal(t, RequestApproved, req.Status)

	var stateErr *StateError
	require.ErrorAs(t, err, &stateErr)
	assert.Equal(t, RequestApproved, stateErr.Status)
}

func TestRequest_Reject(t *testing.T) {
	req := pendingRequest(t)
	require.NoError(t, req.Reject("manager@example.com", time.Now()))
	assert.Equal(t, RequestRejected, req.Status)
	assert.True(t, req.Status.IsTerminal())
	assert.ErrorIs(t, req.Approve("manager@example.com", time.Now()), ErrInvalidState)
}

func TestRequestStatus_IsValid(t *testing.T) {
	assert.True(t, RequestPending.IsValid())
	assert.False(t, RequestStatus("cancelled").IsValid())
	assert.False(t, RequestPending.IsTerminal())
}
