package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewItem(t *testing.T) {
	item, err := NewItem("id-1", "  Valve 12mm ", " V12 ", "", time.Now())
	require.NoError(t, err)
	assert.Equal(t, "Valve 12mm", item.Description)
	assert.Equal(t, "V12", item.InternalSKU)

	_, err = NewItem("id-1", "", "V12", "", time.Now())
	assert.ErrorIs(t, err, ErrValidation)
	_, err = NewItem("id-1", "Valve", " ", "", time.Now())
	assert.ErrorIs(t, err, ErrValidation)
}

func TestItem_Apply(t *testing.T) {
	item, err := NewItem("id-1", "Valve 12mm", "V12", "M-1", time.Now())
	require.NoError(t, err)

	name := "Valve 12 mm"
	previous, renamed, err := item.Apply(ItemChange{Description: &name}, time.Now())
	require.NoError(t, err)
	assert.True(t, renamed)
	assert.Equal(t, "Valve 12mm", previous)
	assert.Equal(t, "Valve 12 mm", item.Description)
	assert.Equal(t, "M-1", item.ManufacturerSKU)

	sku := "V12B"
	_, renamed, err = item.Apply(ItemChange{InternalSKU: &sku}, time.Now())
	require.NoError(t, err)
	assert.False(t, renamed)
	assert.Equal(t, "V12B", item.InternalSKU)

	empty := ""
	_, _, err = item.Apply(ItemChange{Description: &empty}, time.Now())
	assert.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, "Valve 12 mm", item.Description)
}

func TestParseRole(t *testing.T) {
	role, err := ParseRole(" Manager ")
	require.NoError(t, err)
	assert.Equal(t, RoleManager, role)

	_, err = ParseRole("admin")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestUser_Actor(t *testing.T) {
	user, err := NewUser(" Puller@Example.com ", RolePuller, time.Now())
	require.NoError(t, err)
	assert.Equal(t, "puller@example.com", user.Email)

	_, err = user.Actor()
	assert.ErrorIs(t, err, ErrUnauthorized)

	user.Approved = true
	actor, err := user.Actor()
	require.NoError(t, err)
	assert.False(t, actor.IsManager())

	_, err = NewUser("not-an-email", RolePuller, time.Now())
	assert.ErrorIs(t, err, ErrValidation)
}

func TestWarehouse_Sentinel(t *testing.T) {
	sentinel := NewSentinelWarehouse("", time.Now())
	assert.Equal(t, DefaultSentinelWarehouse, sentinel.Name)
	assert.ErrorIs(t, sentinel.Rename("other", time.Now()), ErrConflict)
	assert.True(t, IsReservedName(" Unassigned", sentinel.Name))

	wh, err := NewWarehouse("w1", "  Main  Hall ", time.Now())
	require.NoError(t, err)
	assert.Equal(t, "Main Hall", wh.Name)
	require.NoError(t, wh.Rename("North", time.Now()))
	assert.Equal(t, "North", wh.Name)
	assert.ErrorIs(t, wh.Rename(" ", time.Now()), ErrValidation)

	_, err = NewWarehouse("w2", "", time.Now())
	assert.ErrorIs(t, err, ErrValidation)
}
