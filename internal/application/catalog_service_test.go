package application

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mikidaniel85/warehouse-pbb/internal/domain"
	"github.com/mikidaniel85/warehouse-pbb/pkg/errors"
)

func ptr(s string) *string { return &s }

func TestCatalogService_CreateRejectsDuplicateSKU(t *testing.T) {
	env := newTestEnv(t)
	env.item(t, "Valve 12mm", "V12")

	_, err := env.svc.Catalog.CreateItem(context.Background(), CreateItemCommand{
		Actor: manager, Description: "Other valve", InternalSKU: "V12",
	})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeConflict))
	assert.ErrorIs(t, err, domain.ErrDuplicateSKU)
}

func TestCatalogService_CreateValidatesFields(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.svc.Catalog.CreateItem(context.Background(), CreateItemCommand{Actor: manager, InternalSKU: "V12"})
	require.Error(t, err)
	appErr, ok := errors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, errors.CodeValidationError, appErr.Code)
	assert.Contains(t, appErr.Details, "description")
}

func TestCatalogService_RenamePropagatesToSlots(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.warehouse(t, "WH1")
	item := env.item(t, "Valve 12mm", "V12")
	env.receive(t, item.ID, "WH1", "1", 5)
	env.receive(t, item.ID, "WH1", "2", 1)

	legacy := &domain.Location{
		ID:        "legacy-slot",
		ItemName:  "Valve 12mm",
		Warehouse: "WH1",
		Row:       "3",
		Column:    "A",
		Floor:     "1",
		CreatedAt: time.Now(),
	}
	_, err := env.store.Locations().Receive(ctx, legacy, 2)
	require.NoError(t, err)

	res, err := env.svc.Catalog.UpdateItem(ctx, UpdateItemCommand{
		Actor: manager, ItemID: item.ID, Description: ptr("Ball valve 12mm"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Ball valve 12mm", res.Item.Description)
	assert.Equal(t, int64(3), res.LocationsRenamed)

	locs, err := env.svc.Ledger.ListLocations(ctx, ListLocationsQuery{ItemID: item.ID})
	require.NoError(t, err)
	require.Len(t, locs, 3)
	for _, l := range locs {
		assert.Equal(t, "Ball valve 12mm", l.ItemName)
	}
}

func TestCatalogService_UpdateWithoutRenameLeavesSlots(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.warehouse(t, "WH1")
	item := env.item(t, "Valve 12mm", "V12")
	env.receive(t, item.ID, "WH1", "1", 5)

	res, err := env.svc.Catalog.UpdateItem(ctx, UpdateItemCommand{
		Actor: manager, ItemID: item.ID, ManufacturerSKU: ptr("MFR-9"),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(0), res.LocationsRenamed)
	assert.Equal(t, "MFR-9", res.Item.ManufacturerSKU)

	_, err = env.svc.Catalog.UpdateItem(ctx, UpdateItemCommand{
		Actor: manager, ItemID: item.ID, Description: ptr("  "),
	})
	assert.True(t, errors.HasCode(err, errors.CodeValidationError))
}

func TestCatalogService_DeleteReferencedItem(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.warehouse(t, "WH1")
	stocked := env.item(t, "Valve 12mm", "V12")
	unused := env.item(t, "Hose 3m", "H3")
	env.receive(t, stocked.ID, "WH1", "1", 5)

	err := env.svc.Catalog.DeleteItem(ctx, DeleteItemCommand{Actor: manager, ItemID: stocked.ID})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeConflict))
	assert.ErrorIs(t, err, domain.ErrItemReferenced)

	require.NoError(t, env.svc.Catalog.DeleteItem(ctx, DeleteItemCommand{Actor: manager, ItemID: unused.ID}))
	_, err = env.svc.Catalog.GetItem(ctx, unused.ID)
	assert.True(t, errors.HasCode(err, errors.CodeNotFound))

	_, err = env.svc.Catalog.GetItem(ctx, stocked.ID)
	assert.NoError(t, err)
}

func TestCatalogService_ImportSkipsDuplicates(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.item(t, "Valve 12mm", "V12")

	res, err := env.svc.Catalog.ImportItems(ctx, ImportItemsCommand{
		Actor: manager,
		Rows: []ImportRow{
			{Description: "Hose 3m", InternalSKU: "H3", ManufacturerSKU: "HX-3"},
			{Description: "Hose 3m again", InternalSKU: "H3"},
			{Description: "", InternalSKU: "X1"},
			{Description: "Valve copy", InternalSKU: "V12"},
			{Description: "Clamp", InternalSKU: "C1"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Created)
	assert.Equal(t, 2, res.Skipped)
	assert.Equal(t, 1, res.Invalid)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, 3, res.Errors[0].Row)

	items, err := env.svc.Catalog.ListItems(ctx)
	require.NoError(t, err)
	assert.Len(t, items, 3)
	assert.Equal(t, domain.ActionItemImport, env.auditor.actions()[len(env.auditor.actions())-1])
}

func TestCatalogService_PullerCannotEdit(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.svc.Catalog.CreateItem(ctx, CreateItemCommand{Actor: puller, Description: "x", InternalSKU: "y"})
	assert.True(t, errors.HasCode(err, errors.CodeForbidden))
	_, err = env.svc.Catalog.ImportItems(ctx, ImportItemsCommand{Actor: puller})
	assert.True(t, errors.HasCode(err, errors.CodeForbidden))
	err = env.svc.Catalog.DeleteItem(ctx, DeleteItemCommand{Actor: puller, ItemID: "x"})
	assert.True(t, errors.HasCode(err, errors.CodeForbidden))
}
