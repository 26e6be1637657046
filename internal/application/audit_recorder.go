package application

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mikidaniel85/warehouse-pbb/internal/domain"
	"github.com/mikidaniel85/warehouse-pbb/pkg/logging"
	"github.com/mikidaniel85/warehouse-pbb/pkg/metrics"
)

// Auditor records one entry of the activity log per business mutation.
// Record never blocks and never fails the calling operation.
type Auditor interface {
	Record(ctx context.Context, actor domain.Actor, action domain.AuditAction, detail string)
}

// DefaultAuditBuffer is the number of records that may wait for the sink.
const DefaultAuditBuffer = 256

const auditWriteTimeout = 5 * time.Second

// AuditRecorder hands records to a background writer through a bounded
// queue. A full queue or a failed write is counted and logged, and is
// otherwise dropped.
type AuditRecorder struct {
	sink    domain.AuditSink
	metrics *metrics.Metrics
	logger  *logging.Logger
	now     func() time.Time

	mu     sync.RWMutex
	closed bool
	queue  chan *domain.AuditRecord
	done   chan struct{}
}

// NewAuditRecorder starts the writer goroutine. Close drains and stops it.
func NewAuditRecorder(sink domain.AuditSink, buffer int, m *metrics.Metrics, logger *logging.Logger) *AuditRecorder {
	if buffer <= 0 {
		buffer = DefaultAuditBuffer
	}
	r := &AuditRecorder{
		sink:    sink,
		metrics: m,
		logger:  logger.WithComponent("audit"),
		now:     func() time.Time { return time.Now().UTC() },
		queue:   make(chan *domain.AuditRecord, buffer),
		done:    make(chan struct{}),
	}
	go r.run()
	return r
}

// Record mirrors the entry to the structured log and queues it for the sink.
func (r *AuditRecorder) Record(ctx context.Context, actor domain.Actor, action domain.AuditAction, detail string) {
	record := &domain.AuditRecord{
		ID:        uuid.New().String(),
		Timestamp: r.now(),
		Actor:     actor.Email,
		Role:      actor.Role,
		Action:    action,
		Detail:    detail,
	}
	r.logger.Audit(ctx, string(action), actor.Email, string(actor.Role), detail)

	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		r.drop(record, "recorder closed")
		return
	}
	select {
	case r.queue <- record:
	default:
		r.drop(record, "queue full")
	}
}

func (r *AuditRecorder) drop(record *domain.AuditRecord, reason string) {
	r.metrics.RecordAuditDropped()
	r.logger.Warn("Audit record dropped", "reason", reason, "action", record.Action, "actor", record.Actor)
}

func (r *AuditRecorder) run() {
	defer close(r.done)
	for record := range r.queue {
		ctx, cancel := context.WithTimeout(context.Background(), auditWriteTimeout)
		if err := r.sink.Append(ctx, record); err != nil {
			r.metrics.RecordAuditFailure()
			r.logger.WithError(err).Error("Failed to write audit record",
				"action", record.Action,
				"actor", record.Actor,
			)
		}
		cancel()
	}
}

// Close stops accepting records and waits until queued ones are written.
func (r *AuditRecorder) Close() {
	r.mu.Lock()
	if !r.closed {
		r.closed = true
		close(r.queue)
	}
	r.mu.Unlock()
	<-r.done
}

var _ Auditor = (*AuditRecorder)(nil)
