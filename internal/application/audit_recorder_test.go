package application

import (
	"context"
	stderrors "errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mikidaniel85/warehouse-pbb/internal/domain"
	"github.com/mikidaniel85/warehouse-pbb/internal/infrastructure/memory"
	"github.com/mikidaniel85/warehouse-pbb/pkg/logging"
)

// blockingSink holds every Append until release is closed.
type blockingSink struct {
	release chan struct{}
	mu      sync.Mutex
	written []*domain.AuditRecord
	err     error
}

func (b *blockingSink) Append(_ context.Context, r *domain.AuditRecord) error {
	<-b.release
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return b.err
	}
	b.written = append(b.written, r)
	return nil
}

func (b *blockingSink) Recent(context.Context, int) ([]*domain.AuditRecord, error) {
	return nil, nil
}

func TestAuditRecorder_WritesToSink(t *testing.T) {
	store := memory.NewStore()
	rec := NewAuditRecorder(store.Audit(), 8, nil, logging.NewNop())

	rec.Record(context.Background(), manager, domain.ActionReceive, "received 5 x Valve")
	rec.Record(context.Background(), puller, domain.ActionRequestCreate, "requested 2 x Valve")
	rec.Close()

	records, err := store.Audit().Recent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, domain.ActionRequestCreate, records[0].Action)
	assert.Equal(t, puller.Email, records[0].Actor)
	assert.Equal(t, domain.RolePuller, records[0].Role)
	assert.NotEmpty(t, records[0].ID)
	assert.False(t, records[0].Timestamp.IsZero())
}

func TestAuditRecorder_DropsWhenQueueIsFull(t *testing.T) {
	sink := &blockingSink{release: make(chan struct{})}
	rec := NewAuditRecorder(sink, 1, nil, logging.NewNop())

	// One record may be held by the writer and one may wait in the queue;
	// the rest are dropped without blocking the caller.
	for i := 0; i < 10; i++ {
		rec.Record(context.Background(), manager, domain.ActionReceive, "x")
	}
	close(sink.release)
	rec.Close()

	sink.mu.Lock()
	defer sink.mu.Unlock()
	assert.GreaterOrEqual(t, len(sink.written), 1)
	assert.LessOrEqual(t, len(sink.written), 2)
}

func TestAuditRecorder_SinkFailureDoesNotPropagate(t *testing.T) {
	sink := &blockingSink{release: make(chan struct{}), err: stderrors.New("disk full")}
	close(sink.release)
	rec := NewAuditRecorder(sink, 4, nil, logging.NewNop())

	assert.NotPanics(t, func() {
		rec.Record(context.Background(), manager, domain.ActionItemCreate, "created")
	})
	rec.Close()
	assert.Empty(t, sink.written)
}

func TestAuditRecorder_RecordAfterCloseIsDropped(t *testing.T) {
	store := memory.NewStore()
	rec := NewAuditRecorder(store.Audit(), 4, nil, logging.NewNop())
	rec.Close()

	rec.Record(context.Background(), manager, domain.ActionItemCreate, "late")
	rec.Close()

	records, err := store.Audit().Recent(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, records)
}
