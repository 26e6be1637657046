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

// ItemRepository is the catalog collection. internalSku carries a unique index.
type ItemRepository struct {
	s    *Store
	coll *mongo.Collection
}

var _ domain.ItemRepository = (*ItemRepository)(nil)

func (r *ItemRepository) Create(ctx context.Context, item *domain.Item) error {
	err := r.s.instr.Observe(ctx, ItemsCollection, "insert", func(ctx context.Context) (int64, error) {
		_, err := r.coll.InsertOne(ctx, item)
		return 1, err
	})
	if pkgmongo.IsDuplicateKey(err) {
		return domain.ErrDuplicateSKU
	}
	return translate("createItem", err)
}

func (r *ItemRepository) Update(ctx context.Context, item *domain.Item) error {
	var matched int64
	err := r.s.instr.Observe(ctx, ItemsCollection, "replace", func(ctx context.Context) (int64, error) {
		res, err := r.coll.ReplaceOne(ctx, bson.M{"_id": item.ID}, item)
		if err != nil {
			return 0, err
		}
		matched = res.MatchedCount
		return res.ModifiedCount, nil
	})
	if pkgmongo.IsDuplicateKey(err) {
		return domain.ErrDuplicateSKU
	}
	if err != nil {
		return translate("updateItem", err)
	}
	if matched == 0 {
		return domain.ErrItemNotFound
	}
	return nil
}

func (r *ItemRepository) Delete(ctx context.Context, id string) error {
	var deleted int64
	err := r.s.instr.Observe(ctx, ItemsCollection, "delete", func(ctx context.Context) (int64, error) {
		res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
		if err != nil {
			return 0, err
		}
		deleted = res.DeletedCount
		return deleted, nil
	})
	if err != nil {
		return translate("deleteItem", err)
	}
	if deleted == 0 {
		return domain.ErrItemNotFound
	}
	return nil
}

func (r *ItemRepository) FindByID(ctx context.Context, id string) (*domain.Item, error) {
	return r.findOne(ctx, "findById", bson.M{"_id": id})
}

// Reference bumps refVersion on the item, putting the document in the
// enclosing transaction's write set. A concurrent delete of the item then
// aborts with a write conflict instead of leaving a dangling slot.
func (r *ItemRepository) Reference(ctx context.Context, id string) (*domain.Item, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var item domain.Item
	err := r.s.instr.Observe(ctx, ItemsCollection, "reference", func(ctx context.Context) (int64, error) {
		return 1, r.coll.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$inc": bson.M{refVersionField: 1}}, opts).Decode(&item)
	})
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrItemNotFound
	}
	if err != nil {
		return nil, translate("referenceItem", err)
	}
	return &item, nil
}

func (r *ItemRepository) FindBySKU(ctx context.Context, internalSKU string) (*domain.Item, error) {
	return r.findOne(ctx, "findBySku", bson.M{"internalSku": internalSKU})
}

func (r *ItemRepository) findOne(ctx context.Context, op string, filter bson.M) (*domain.Item, error) {
	var item domain.Item
	err := r.s.instr.Observe(ctx, ItemsCollection, op, func(ctx context.Context) (int64, error) {
		return 1, r.coll.FindOne(ctx, filter).Decode(&item)
	})
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrItemNotFound
	}
	if err != nil {
		return nil, translate(op, err)
	}
	return &item, nil
}

func (r *ItemRepository) List(ctx context.Context) ([]*domain.Item, error) {
	opts := options.Find().SetSort(bson.D{{Key: "description", Value: 1}, {Key: "_id", Value: 1}})

	items := make([]*domain.Item, 0)
	err := r.s.instr.Observe(ctx, ItemsCollection, "list", func(ctx context.Context) (int64, error) {
		cursor, err := r.coll.Find(ctx, bson.M{}, opts)
		if err != nil {
			return 0, err
		}
		defer cursor.Close(ctx)
		err = cursor.All(ctx, &items)
		return int64(len(items)), err
	})
	if err != nil {
		return nil, translate("listItems", err)
	}
	return items, nil
}
