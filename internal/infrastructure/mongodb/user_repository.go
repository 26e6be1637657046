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

// UserRepository is the identity directory collection, keyed by email.
type UserRepository struct {
	s    *Store
	coll *mongo.Collection
}

var _ domain.UserRepository = (*UserRepository)(nil)

func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	err := r.s.instr.Observe(ctx, UsersCollection, "insert", func(ctx context.Context) (int64, error) {
		_, err := r.coll.InsertOne(ctx, user)
		return 1, err
	})
	if pkgmongo.IsDuplicateKey(err) {
		return domain.ErrDuplicateUser
	}
	return translate("createUser", err)
}

func (r *UserRepository) Update(ctx context.Context, user *domain.User) error {
	var matched int64
	err := r.s.instr.Observe(ctx, UsersCollection, "replace", func(ctx context.Context) (int64, error) {
		res, err := r.coll.ReplaceOne(ctx, bson.M{"_id": user.Email}, user)
		if err != nil {
			return 0, err
		}
		matched = res.MatchedCount
		return res.ModifiedCount, nil
	})
	if err != nil {
		return translate("updateUser", err)
	}
	if matched == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) Delete(ctx context.Context, email string) error {
	var deleted int64
	err := r.s.instr.Observe(ctx, UsersCollection, "delete", func(ctx context.Context) (int64, error) {
		res, err := r.coll.DeleteOne(ctx, bson.M{"_id": domain.NormalizeEmail(email)})
		if err != nil {
			return 0, err
		}
		deleted = res.DeletedCount
		return deleted, nil
	})
	if err != nil {
		return translate("deleteUser", err)
	}
	if deleted == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	var user domain.User
	err := r.s.instr.Observe(ctx, UsersCollection, "findByEmail", func(ctx context.Context) (int64, error) {
		return 1, r.coll.FindOne(ctx, bson.M{"_id": domain.NormalizeEmail(email)}).Decode(&user)
	})
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, translate("findUser", err)
	}
	return &user, nil
}

func (r *UserRepository) List(ctx context.Context) ([]*domain.User, error) {
	opts := options.Find().SetSort(pkgmongo.SortBy("_id"))

	users := make([]*domain.User, 0)
	err := r.s.instr.Observe(ctx, UsersCollection, "list", func(ctx context.Context) (int64, error) {
		cursor, err := r.coll.Find(ctx, bson.M{}, opts)
		if err != nil {
			return 0, err
		}
		defer cursor.Close(ctx)
		err = cursor.All(ctx, &users)
		return int64(len(users)), err
	})
	if err != nil {
		return nil, translate("listUsers", err)
	}
	return users, nil
}

func (r *UserRepository) CountPending(ctx context.Context) (int64, error) {
	var n int64
	err := r.s.instr.Observe(ctx, UsersCollection, "countPending", func(ctx context.Context) (int64, error) {
		var err error
		n, err = r.coll.CountDocuments(ctx, bson.M{"approved": false})
		return n, err
	})
	if err != nil {
		return 0, translate("countUsers", err)
	}
	return n, nil
}
