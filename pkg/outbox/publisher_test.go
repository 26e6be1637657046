package outbox

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mikidaniel85/warehouse-pbb/pkg/cloudevents"
	"github.com/mikidaniel85/warehouse-pbb/pkg/logging"
	testutil "github.com/mikidaniel85/warehouse-pbb/pkg/testing"
)

// recordingProducer records delivered event ids and rejects those listed in reject.
type recordingProducer struct {
	mu        sync.Mutex
	delivered []string
	reject    map[string]bool
}

func (p *recordingProducer) PublishEvent(ctx context.Context, topic string, event *cloudevents.WMSCloudEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.reject[event.ID] {
		return errors.New("broker unavailable")
	}
	p.delivered = append(p.delivered, event.ID)
	return nil
}

func (p *recordingProducer) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.delivered)
}

func newEvent(t *testing.T, factory *cloudevents.EventFactory, eventType string) *Event {
	t.Helper()
	ev, err := NewEvent("Location", "WH1_1_A_2_item-a", "wms.stock-ledger.events",
		factory.CreateEvent(context.Background(), eventType, "WH1_1_A_2_item-a", cloudevents.StockReceivedData{Quantity: 3}))
	require.NoError(t, err)
	return ev
}

func TestNewEvent_KeepsCloudEventIdentity(t *testing.T) {
	factory := cloudevents.NewEventFactory(cloudevents.SourceStockLedger)
	ev := newEvent(t, factory, cloudevents.StockReceived)
	assert.True(t, ev.Pending())
	assert.Equal(t, cloudevents.StockReceived, ev.EventType)

	ce, err := ev.CloudEvent()
	require.NoError(t, err)
	assert.Equal(t, ev.ID, ce.ID)
	assert.Equal(t, cloudevents.SourceStockLedger, ce.Source)

	ev.RetryCount = ev.MaxRetries
	assert.False(t, ev.Pending())
}

func TestPublisher_DeliversAndRetries(t *testing.T) {
	factory := cloudevents.NewEventFactory(cloudevents.SourceStockLedger)
	repo := NewMemoryRepository()
	good := newEvent(t, factory, cloudevents.StockReceived)
	bad := newEvent(t, factory, cloudevents.StockRelocated)
	require.NoError(t, repo.SaveAll(context.Background(), []*Event{good, bad}))

	producer := &recordingProducer{reject: map[string]bool{bad.ID: true}}
	pub := NewPublisher(repo, producer, logging.NewNop(), &PublisherConfig{PollInterval: 10 * time.Millisecond})
	require.NoError(t, pub.Start(context.Background()))
	assert.True(t, pub.IsRunning())
	assert.Error(t, pub.Start(context.Background()))

	testutil.AssertEventually(t, func() bool { return pub.Stats().Failed >= 2 }, 2*time.Second, "rejected event retried")
	pub.Stop()
	assert.False(t, pub.IsRunning())

	assert.Equal(t, 1, producer.count())
	assert.Equal(t, 1, pub.Stats().Published)

	stored := map[string]*Event{}
	for _, ev := range repo.All() {
		stored[ev.ID] = ev
	}
	assert.NotNil(t, stored[good.ID].PublishedAt)
	assert.Nil(t, stored[bad.ID].PublishedAt)
	assert.GreaterOrEqual(t, stored[bad.ID].RetryCount, 2)
	assert.Equal(t, "broker unavailable", stored[bad.ID].LastError)
}

func TestPublisher_StopsWithContext(t *testing.T) {
	pub := NewPublisher(NewMemoryRepository(), &recordingProducer{}, logging.NewNop(), &PublisherConfig{PollInterval: 10 * time.Millisecond})
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, pub.Start(ctx))
	cancel()

	testutil.AssertEventually(t, func() bool { return !pub.IsRunning() }, time.Second, "publisher exits with its context")
	pub.Stop()
	pub.Stop()
}
