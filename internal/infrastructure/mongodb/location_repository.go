package mongodb

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mikidaniel85/warehouse-pbb/internal/domain"
	pkgmongo "github.com/mikidaniel85/warehouse-pbb/pkg/mongodb"
)

// LocationRepository is the ledger collection. Document ids are the derived slot keys.
type LocationRepository struct {
	s    *Store
	coll *mongo.Collection
}

var _ domain.LocationRepository = (*LocationRepository)(nil)

// Receive upserts the slot and increments its quantity in one update. The
// pre-image tells whether the slot was created. A duplicate key from a
// concurrent first receipt is retried once, by then the slot exists.
func (r *LocationRepository) Receive(ctx context.Context, slot *domain.Location, qty int) (*domain.ReceiptResult, error) {
	var result *domain.ReceiptResult
	err := r.s.instr.Observe(ctx, LocationsCollection, "receive", func(ctx context.Context) (int64, error) {
		var err error
		result, err = r.receive(ctx, slot, qty)
		if err != nil && pkgmongo.IsDuplicateKey(err) && mongo.SessionFromContext(ctx) == nil {
			result, err = r.receive(ctx, slot, qty)
		}
		return 1, err
	})
	if err != nil {
		return nil, translate("receive", err)
	}
	return result, nil
}

func (r *LocationRepository) receive(ctx context.Context, slot *domain.Location, qty int) (*domain.ReceiptResult, error) {
	now := r.s.now()
	onInsert := bson.M{
		"itemName":  slot.ItemName,
		"warehouse": slot.Warehouse,
		"row":       slot.Row,
		"column":    slot.Column,
		"floor":     slot.Floor,
		"createdAt": now,
	}
	if slot.ItemID != "" {
		onInsert["itemId"] = slot.ItemID
	}

	update := pkgmongo.IncrementStamped("quantity", qty)
	update["$set"] = bson.M{"updatedAt": now}
	update["$setOnInsert"] = onInsert

	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.Before)

	var before domain.Location
	err := r.coll.FindOneAndUpdate(ctx, bson.M{"_id": slot.ID}, update, opts).Decode(&before)
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		created := *slot
		created.Quantity = qty
		created.CreatedAt = now
		created.UpdatedAt = now
		return &domain.ReceiptResult{Location: &created, Received: qty, Created: true}, nil
	case err != nil:
		return nil, err
	}

	before.Quantity += qty
	before.UpdatedAt = now
	return &domain.ReceiptResult{Location: &before, Received: qty}, nil
}

// Decrement subtracts qty with a pipeline update clamped at zero, so the read
// and the write are one server-side operation.
func (r *LocationRepository) Decrement(ctx context.Context, locationID string, qty int) (*domain.DecrementResult, error) {
	now := r.s.now()
	update := mongo.Pipeline{
		{{Key: "$set", Value: bson.D{
			{Key: "quantity", Value: bson.D{{Key: "$max", Value: bson.A{
				0,
				bson.D{{Key: "$subtract", Value: bson.A{"$quantity", qty}}},
			}}}},
			{Key: "updatedAt", Value: now},
		}}},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.Before)

	var before domain.Location
	err := r.s.instr.Observe(ctx, LocationsCollection, "decrement", func(ctx context.Context) (int64, error) {
		return 1, r.coll.FindOneAndUpdate(ctx, bson.M{"_id": locationID}, update, opts).Decode(&before)
	})
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrLocationNotFound
	}
	if err != nil {
		return nil, translate("decrement", err)
	}

	remaining, applied := domain.ClampedDecrement(before.Quantity, qty)
	after := before
	after.Quantity = remaining
	after.UpdatedAt = now
	return &domain.DecrementResult{Location: &after, Requested: qty, Applied: applied}, nil
}

// Remove deletes the slot and returns its last state.
func (r *LocationRepository) Remove(ctx context.Context, locationID string) (*domain.Location, error) {
	var removed domain.Location
	err := r.s.instr.Observe(ctx, LocationsCollection, "remove", func(ctx context.Context) (int64, error) {
		return 1, r.coll.FindOneAndDelete(ctx, bson.M{"_id": locationID}).Decode(&removed)
	})
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrLocationNotFound
	}
	if err != nil {
		return nil, translate("remove", err)
	}
	return &removed, nil
}

// RenameCachedItem updates linked slots by id, then links unlinked slots that
// still carry the previous name. Call it inside a transaction so each legacy
// slot's move to its id-derived key is atomic.
func (r *LocationRepository) RenameCachedItem(ctx context.Context, itemID, previousName, newName string) (int64, error) {
	now := r.s.now()
	var touched int64

	err := r.s.instr.Observe(ctx, LocationsCollection, "renameCachedItem", func(ctx context.Context) (int64, error) {
		linked, err := r.coll.UpdateMany(ctx,
			bson.M{"itemId": itemID},
			bson.M{"$set": bson.M{"itemName": newName, "updatedAt": now}},
		)
		if err != nil {
			return 0, err
		}
		touched = linked.MatchedCount

		if previousName == "" {
			return touched, nil
		}
		n, err := r.linkLegacy(ctx, itemID, previousName, newName)
		touched += n
		return touched, err
	})
	if err != nil {
		return touched, translate("renameCachedItem", err)
	}
	return touched, nil
}

// linkLegacy re-keys each unlinked slot named previousName to the key a
// receipt of itemID at its address uses, merging into a slot already there.
func (r *LocationRepository) linkLegacy(ctx context.Context, itemID, previousName, newName string) (int64, error) {
	cursor, err := r.coll.Find(ctx, bson.M{
		"itemName": previousName,
		"$or": bson.A{
			bson.M{"itemId": bson.M{"$exists": false}},
			bson.M{"itemId": ""},
		},
	})
	if err != nil {
		return 0, err
	}
	var legacy []*domain.Location
	if err := cursor.All(ctx, &legacy); err != nil {
		return 0, err
	}

	var moved int64
	for _, loc := range legacy {
		if _, err := r.coll.DeleteOne(ctx, bson.M{"_id": loc.ID}); err != nil {
			return moved, err
		}
		if _, err := r.receive(ctx, loc.LinkedTo(itemID, newName), loc.Quantity); err != nil {
			return moved, err
		}
		moved++
	}
	return moved, nil
}

func (r *LocationRepository) FindByID(ctx context.Context, id string) (*domain.Location, error) {
	var loc domain.Location
	err := r.s.instr.Observe(ctx, LocationsCollection, "findById", func(ctx context.Context) (int64, error) {
		return 1, r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&loc)
	})
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrLocationNotFound
	}
	if err != nil {
		return nil, translate("findLocation", err)
	}
	return &loc, nil
}

func (r *LocationRepository) List(ctx context.Context, filter domain.LocationFilter) ([]*domain.Location, error) {
	query := bson.M{}
	if w := domain.NormalizeComponent(filter.Warehouse); w != "" {
		query["warehouse"] = w
	}
	if filter.ItemID != "" {
		query["itemId"] = filter.ItemID
	}
	if filter.InStockOnly {
		query["quantity"] = bson.M{"$gt": 0}
	}

	opts := options.Find().SetSort(bson.D{
		{Key: "warehouse", Value: 1},
		{Key: "itemName", Value: 1},
		{Key: "_id", Value: 1},
	})
	if filter.Limit > 0 {
		opts.SetLimit(int64(filter.Limit))
	}

	locations := make([]*domain.Location, 0)
	err := r.s.instr.Observe(ctx, LocationsCollection, "list", func(ctx context.Context) (int64, error) {
		cursor, err := r.coll.Find(ctx, query, opts)
		if err != nil {
			return 0, err
		}
		defer cursor.Close(ctx)
		err = cursor.All(ctx, &locations)
		return int64(len(locations)), err
	})
	if err != nil {
		return nil, translate("listLocations", err)
	}
	return locations, nil
}

func (r *LocationRepository) CountByItem(ctx context.Context, itemID string) (int64, error) {
	var n int64
	err := r.s.instr.Observe(ctx, LocationsCollection, "countByItem", func(ctx context.Context) (int64, error) {
		var err error
		n, err = r.coll.CountDocuments(ctx, bson.M{"itemId": itemID})
		return n, err
	})
	if err != nil {
		return 0, translate("countLocations", err)
	}
	return n, nil
}
