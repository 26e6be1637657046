package mongodb

import (
	"context"
	"errors"
	"time"

	"github.com/mikidaniel85/warehouse-pbb/pkg/logging"
	"github.com/mikidaniel85/warehouse-pbb/pkg/metrics"
	"go.mongodb.org/mongo-driver/mongo"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
)

// Instrumentation wraps individual store calls with a client span, prometheus
// metrics and a debug query log. A zero-value or nil Instrumentation is a no-op.
type Instrumentation struct {
	database string
	metrics  *metrics.Metrics
	logger   *logging.Logger
	tracer   trace.Tracer
}

// NewInstrumentation creates call instrumentation for one database.
func NewInstrumentation(database string, m *metrics.Metrics, logger *logging.Logger) *Instrumentation {
	return &Instrumentation{
		database: database,
		metrics:  m,
		logger:   logger,
		tracer:   otel.Tracer("mongodb"),
	}
}

// Observe runs fn as a named operation on collection. fn returns the number of
// documents it touched. mongo.ErrNoDocuments is not counted as a failure.
func (i *Instrumentation) Observe(ctx context.Context, collection, operation string, fn func(ctx context.Context) (int64, error)) error {
	if i == nil || i.tracer == nil {
		_, err := fn(ctx)
		return err
	}

	start := time.Now()
	ctx, span := i.tracer.Start(ctx, "mongodb."+operation,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			semconv.DBSystemMongoDB,
			semconv.DBNameKey.String(i.database),
			semconv.DBOperationKey.String(operation),
			attribute.String("db.collection", collection),
		),
	)
	defer span.End()

	affected, err := fn(ctx)
	duration := time.Since(start)
	success := err == nil || errors.Is(err, mongo.ErrNoDocuments)

	i.metrics.RecordMongoDBOperation(collection, operation, success, duration)
	if i.logger != nil {
		i.logger.DatabaseQuery(ctx, collection, operation, duration, success, affected)
	}

	if !success {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
		span.SetAttributes(attribute.Int64("db.rows_affected", affected))
	}
	return err
}

// Transaction starts a span covering a whole multi-document transaction.
func (i *Instrumentation) Transaction(ctx context.Context, name string) (context.Context, func(error)) {
	if i == nil || i.tracer == nil {
		return ctx, func(error) {}
	}

	ctx, span := i.tracer.Start(ctx, "mongodb.transaction",
		trace.WithAttributes(
			semconv.DBSystemMongoDB,
			semconv.DBNameKey.String(i.database),
			attribute.String("db.transaction", name),
		),
	)
	return ctx, func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}
		span.End()
	}
}

// RecordRetry counts one re-run of a conflicted transaction.
func (i *Instrumentation) RecordRetry(name string) {
	if i == nil {
		return
	}
	i.metrics.RecordTransactionRetry(name)
}
