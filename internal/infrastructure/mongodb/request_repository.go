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

// RequestRepository is the pull request collection.
type RequestRepository struct {
	s    *Store
	coll *mongo.Collection
}

var _ domain.RequestRepository = (*RequestRepository)(nil)

func (r *RequestRepository) Create(ctx context.Context, request *domain.Request) error {
	err := r.s.instr.Observe(ctx, RequestsCollection, "insert", func(ctx context.Context) (int64, error) {
		_, err := r.coll.InsertOne(ctx, request)
		return 1, err
	})
	if pkgmongo.IsDuplicateKey(err) {
		return domain.ErrConflict
	}
	return translate("createRequest", err)
}

func (r *RequestRepository) FindByID(ctx context.Context, id string) (*domain.Request, error) {
	var req domain.Request
	err := r.s.instr.Observe(ctx, RequestsCollection, "findById", func(ctx context.Context) (int64, error) {
		return 1, r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&req)
	})
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrRequestNotFound
	}
	if err != nil {
		return nil, translate("findRequest", err)
	}
	return &req, nil
}

func (r *RequestRepository) List(ctx context.Context, filter domain.RequestFilter) ([]*domain.Request, error) {
	query := bson.M{}
	if filter.Status != "" {
		query["status"] = filter.Status
	}
	if filter.Requester != "" {
		query["requester"] = filter.Requester
	}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: 1}})
	if filter.Limit > 0 {
		opts.SetLimit(int64(filter.Limit))
	}

	requests := make([]*domain.Request, 0)
	err := r.s.instr.Observe(ctx, RequestsCollection, "list", func(ctx context.Context) (int64, error) {
		cursor, err := r.coll.Find(ctx, query, opts)
		if err != nil {
			return 0, err
		}
		defer cursor.Close(ctx)
		err = cursor.All(ctx, &requests)
		return int64(len(requests)), err
	})
	if err != nil {
		return nil, translate("listRequests", err)
	}
	return requests, nil
}

func (r *RequestRepository) CountByStatus(ctx context.Context, status domain.RequestStatus) (int64, error) {
	var n int64
	err := r.s.instr.Observe(ctx, RequestsCollection, "countByStatus", func(ctx context.Context) (int64, error) {
		var err error
		n, err = r.coll.CountDocuments(ctx, bson.M{"status": status})
		return n, err
	})
	if err != nil {
		return 0, translate("countRequests", err)
	}
	return n, nil
}

// Decide writes the transition with a filter on status pending, so at most one
// decision is ever stored for a request.
func (r *RequestRepository) Decide(ctx context.Context, request *domain.Request) error {
	var matched int64
	err := r.s.instr.Observe(ctx, RequestsCollection, "decide", func(ctx context.Context) (int64, error) {
		res, err := r.coll.UpdateOne(ctx,
			bson.M{"_id": request.ID, "status": domain.RequestPending},
			bson.M{"$set": bson.M{
				"status":    request.Status,
				"decidedBy": request.DecidedBy,
				"decidedAt": request.DecidedAt,
			}},
		)
		if err != nil {
			return 0, err
		}
		matched = res.MatchedCount
		return res.ModifiedCount, nil
	})
	if err != nil {
		return translate("decideRequest", err)
	}
	if matched == 1 {
		return nil
	}

	stored, err := r.FindByID(ctx, request.ID)
	if err != nil {
		return err
	}
	return &domain.StateError{RequestID: stored.ID, Status: stored.Status}
}
