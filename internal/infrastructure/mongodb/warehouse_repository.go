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

// WarehouseRepository is the warehouse collection. Names are unique ignoring case.
type WarehouseRepository struct {
	s    *Store
	coll *mongo.Collection
}

var _ domain.WarehouseRepository = (*WarehouseRepository)(nil)

func (r *WarehouseRepository) Create(ctx context.Context, warehouse *domain.Warehouse) error {
	err := r.s.instr.Observe(ctx, WarehousesCollection, "insert", func(ctx context.Context) (int64, error) {
		_, err := r.coll.InsertOne(ctx, warehouse)
		return 1, err
	})
	if pkgmongo.IsDuplicateKey(err) {
		return domain.ErrDuplicateWarehouse
	}
	return translate("createWarehouse", err)
}

func (r *WarehouseRepository) Update(ctx context.Context, warehouse *domain.Warehouse) error {
	var matched int64
	err := r.s.instr.Observe(ctx, WarehousesCollection, "replace", func(ctx context.Context) (int64, error) {
		res, err := r.coll.ReplaceOne(ctx, bson.M{"_id": warehouse.ID}, warehouse)
		if err != nil {
			return 0, err
		}
		matched = res.MatchedCount
		return res.ModifiedCount, nil
	})
	if pkgmongo.IsDuplicateKey(err) {
		return domain.ErrDuplicateWarehouse
	}
	if err != nil {
		return translate("updateWarehouse", err)
	}
	if matched == 0 {
		return domain.ErrWarehouseNotFound
	}
	return nil
}

func (r *WarehouseRepository) Delete(ctx context.Context, id string) error {
	var deleted int64
	err := r.s.instr.Observe(ctx, WarehousesCollection, "delete", func(ctx context.Context) (int64, error) {
		res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
		if err != nil {
			return 0, err
		}
		deleted = res.DeletedCount
		return deleted, nil
	})
	if err != nil {
		return translate("deleteWarehouse", err)
	}
	if deleted == 0 {
		return domain.ErrWarehouseNotFound
	}
	return nil
}

func (r *WarehouseRepository) FindByID(ctx context.Context, id string) (*domain.Warehouse, error) {
	return r.findOne(ctx, "findById", bson.M{"_id": id}, nil)
}

func (r *WarehouseRepository) FindByName(ctx context.Context, name string) (*domain.Warehouse, error) {
	opts := options.FindOne().SetCollation(caseInsensitive)
	return r.findOne(ctx, "findByName", bson.M{"name": domain.NormalizeComponent(name)}, opts)
}

// ReferenceByName resolves the warehouse and bumps its refVersion, so a
// rename or delete racing the enclosing transaction conflicts with it.
func (r *WarehouseRepository) ReferenceByName(ctx context.Context, name string) (*domain.Warehouse, error) {
	opts := options.FindOneAndUpdate().
		SetCollation(caseInsensitive).
		SetReturnDocument(options.After)

	var w domain.Warehouse
	err := r.s.instr.Observe(ctx, WarehousesCollection, "referenceByName", func(ctx context.Context) (int64, error) {
		return 1, r.coll.FindOneAndUpdate(ctx,
			bson.M{"name": domain.NormalizeComponent(name)},
			bson.M{"$inc": bson.M{refVersionField: 1}},
			opts,
		).Decode(&w)
	})
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrWarehouseNotFound
	}
	if err != nil {
		return nil, translate("referenceWarehouse", err)
	}
	return &w, nil
}

func (r *WarehouseRepository) findOne(ctx context.Context, op string, filter bson.M, opts *options.FindOneOptions) (*domain.Warehouse, error) {
	if opts == nil {
		opts = options.FindOne()
	}
	var w domain.Warehouse
	err := r.s.instr.Observe(ctx, WarehousesCollection, op, func(ctx context.Context) (int64, error) {
		return 1, r.coll.FindOne(ctx, filter, opts).Decode(&w)
	})
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrWarehouseNotFound
	}
	if err != nil {
		return nil, translate(op, err)
	}
	return &w, nil
}

func (r *WarehouseRepository) List(ctx context.Context) ([]*domain.Warehouse, error) {
	opts := options.Find().SetSort(pkgmongo.SortBy("name")).SetCollation(caseInsensitive)

	warehouses := make([]*domain.Warehouse, 0)
	err := r.s.instr.Observe(ctx, WarehousesCollection, "list", func(ctx context.Context) (int64, error) {
		cursor, err := r.coll.Find(ctx, bson.M{}, opts)
		if err != nil {
			return 0, err
		}
		defer cursor.Close(ctx)
		err = cursor.All(ctx, &warehouses)
		return int64(len(warehouses)), err
	})
	if err != nil {
		return nil, translate("listWarehouses", err)
	}
	return warehouses, nil
}

// EnsureSentinel inserts the sentinel only when no record with its id exists.
func (r *WarehouseRepository) EnsureSentinel(ctx context.Context, sentinel *domain.Warehouse) (*domain.Warehouse, error) {
	err := r.s.instr.Observe(ctx, WarehousesCollection, "ensureSentinel", func(ctx context.Context) (int64, error) {
		res, err := r.coll.UpdateOne(ctx,
			bson.M{"_id": sentinel.ID},
			bson.M{"$setOnInsert": bson.M{
				"name":      sentinel.Name,
				"sentinel":  true,
				"createdAt": sentinel.CreatedAt,
				"updatedAt": sentinel.UpdatedAt,
			}},
			options.Update().SetUpsert(true),
		)
		if err != nil {
			return 0, err
		}
		return res.UpsertedCount, nil
	})
	if pkgmongo.IsDuplicateKey(err) {
		return nil, domain.ErrDuplicateWarehouse
	}
	if err != nil {
		return nil, translate("ensureSentinel", err)
	}
	return r.FindByID(ctx, sentinel.ID)
}
