package outbox

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/mikidaniel85/warehouse-pbb/pkg/cloudevents"
	"github.com/mikidaniel85/warehouse-pbb/pkg/logging"
)

// EventPublisher delivers a CloudEvent to a topic. *kafka.Producer implements it.
type EventPublisher interface {
	PublishEvent(ctx context.Context, topic string, event *cloudevents.WMSCloudEvent) error
}

// PublisherConfig configures a Publisher.
type PublisherConfig struct {
	PollInterval time.Duration
	BatchSize    int
}

// DefaultPublisherConfig polls every second for up to 100 events.
func DefaultPublisherConfig() *PublisherConfig {
	return &PublisherConfig{PollInterval: time.Second, BatchSize: 100}
}

// Stats counts delivery outcomes since the publisher was created.
type Stats struct {
	Published int
	Failed    int
}

// Publisher polls a Repository and hands pending events to the broker. An
// event whose delivery fails stays pending until its retries run out.
type Publisher struct {
	repo     Repository
	producer EventPublisher
	logger   *logging.Logger
	cfg      PublisherConfig

	mu      sync.Mutex
	running bool
	stop    chan struct{}
	done    chan struct{}
	stats   Stats
}

// NewPublisher creates a stopped publisher. A nil config selects the defaults.
func NewPublisher(repo Repository, producer EventPublisher, logger *logging.Logger, config *PublisherConfig) *Publisher {
	cfg := *DefaultPublisherConfig()
	if config != nil {
		if config.PollInterval > 0 {
			cfg.PollInterval = config.PollInterval
		}
		if config.BatchSize > 0 {
			cfg.BatchSize = config.BatchSize
		}
	}
	return &Publisher{
		repo:     repo,
		producer: producer,
		logger:   logger.WithComponent("outbox-publisher"),
		cfg:      cfg,
	}
}

// Start runs the polling loop until Stop is called or ctx ends.
func (p *Publisher) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return errors.New("outbox publisher already running")
	}
	p.running = true
	p.stop = make(chan struct{})
	p.done = make(chan struct{})
	go p.loop(ctx, p.stop, p.done)

	p.logger.Info("Outbox publisher started", "interval", p.cfg.PollInterval, "batchSize", p.cfg.BatchSize)
	return nil
}

// Stop ends the loop and waits for the batch in flight. It is a no-op on a
// stopped publisher.
func (p *Publisher) Stop() {
	p.mu.Lock()
	stop, done := p.stop, p.done
	p.stop = nil
	p.mu.Unlock()
	if stop == nil {
		return
	}
	close(stop)
	<-done

	s := p.Stats()
	p.logger.Info("Outbox publisher stopped", "published", s.Published, "failed", s.Failed)
}

// IsRunning reports whether the polling loop is alive.
func (p *Publisher) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// Stats returns the delivery counters.
func (p *Publisher) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats
}

func (p *Publisher) loop(ctx context.Context, stop <-chan struct{}, done chan<- struct{}) {
	defer func() {
		p.mu.Lock()
		p.running = false
		p.mu.Unlock()
		close(done)
	}()

	ticker := time.NewTicker(p.cfg.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			p.ProcessBatch(ctx)
		case <-stop:
			return
		case <-ctx.Done():
			return
		}
	}
}

// ProcessBatch delivers one batch of pending events and returns how many went out.
func (p *Publisher) ProcessBatch(ctx context.Context) int {
	events, err := p.repo.FindUnpublished(ctx, p.cfg.BatchSize)
	if err != nil {
		p.logger.WithError(err).Error("Failed to read outbox")
		return 0
	}

	delivered := 0
	for _, event := range events {
		err := p.deliver(ctx, event)
		p.record(err == nil)
		if err != nil {
			p.logger.WithError(err).Warn("Failed to publish outbox event",
				"eventId", event.ID, "eventType", event.EventType, "attempt", event.RetryCount+1)
			if err := p.repo.IncrementRetry(ctx, event.ID, err.Error()); err != nil {
				p.logger.WithError(err).Error("Failed to record outbox retry", "eventId", event.ID)
			}
			continue
		}
		delivered++
		if err := p.repo.MarkPublished(ctx, event.ID); err != nil {
			p.logger.WithError(err).Error("Failed to mark outbox event published", "eventId", event.ID)
		}
	}
	return delivered
}

func (p *Publisher) deliver(ctx context.Context, event *Event) error {
	ce, err := event.CloudEvent()
	if err != nil {
		return err
	}
	return p.producer.PublishEvent(ctx, event.Topic, ce)
}

func (p *Publisher) record(ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if ok {
		p.stats.Published++
	} else {
		p.stats.Failed++
	}
}
