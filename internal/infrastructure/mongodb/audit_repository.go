package mongodb

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mikidaniel85/warehouse-pbb/internal/domain"
	pkgmongo "github.com/mikidaniel85/warehouse-pbb/pkg/mongodb"
)

// AuditSink appends to the audit_logs collection. Records are never updated.
type AuditSink struct {
	s    *Store
	coll *mongo.Collection
}

var _ domain.AuditSink = (*AuditSink)(nil)

func (a *AuditSink) Append(ctx context.Context, record *domain.AuditRecord) error {
	err := a.s.instr.Observe(ctx, AuditCollection, "insert", func(ctx context.Context) (int64, error) {
		_, err := a.coll.InsertOne(ctx, record)
		return 1, err
	})
	return translate("appendAudit", err)
}

func (a *AuditSink) Recent(ctx context.Context, limit int) ([]*domain.AuditRecord, error) {
	opts := options.Find().SetSort(pkgmongo.SortBy("-timestamp"))
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	records := make([]*domain.AuditRecord, 0)
	err := a.s.instr.Observe(ctx, AuditCollection, "recent", func(ctx context.Context) (int64, error) {
		cursor, err := a.coll.Find(ctx, bson.M{}, opts)
		if err != nil {
			return 0, err
		}
		defer cursor.Close(ctx)
		err = cursor.All(ctx, &records)
		return int64(len(records)), err
	})
	if err != nil {
		return nil, translate("recentAudit", err)
	}
	return records, nil
}
