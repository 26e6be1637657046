package outbox

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// Repository defines the interface for outbox event persistence
type Repository interface {
	// SaveAll saves events; implementations honour a transaction carried by ctx.
	SaveAll(ctx context.Context, events []*Event) error

	// FindUnpublished returns up to limit undelivered events that still have retries left, oldest first.
	FindUnpublished(ctx context.Context, limit int) ([]*Event, error)

	MarkPublished(ctx context.Context, eventID string) error

	// IncrementRetry increments the retry count and records the last error.
	IncrementRetry(ctx context.Context, eventID string, errorMsg string) error
}

// MemoryRepository is a Repository kept in process memory.
type MemoryRepository struct {
	mu     sync.Mutex
	events map[string]*Event
}

// NewMemoryRepository creates an empty in-memory outbox.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{events: make(map[string]*Event)}
}

// SaveAll stores copies of events.
func (r *MemoryRepository) SaveAll(ctx context.Context, events []*Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range events {
		cp := *e
		r.events[e.ID] = &cp
	}
	return nil
}

// FindUnpublished returns pending events ordered by creation time.
func (r *MemoryRepository) FindUnpublished(ctx context.Context, limit int) ([]*Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var pending []*Event
	for _, e := range r.events {
		if e.Pending() {
			cp := *e
			pending = append(pending, &cp)
		}
	}
	sort.Slice(pending, func(i, j int) bool { return pending[i].CreatedAt.Before(pending[j].CreatedAt) })
	if limit > 0 && len(pending) > limit {
		pending = pending[:limit]
	}
	return pending, nil
}

// MarkPublished stamps the event as delivered.
func (r *MemoryRepository) MarkPublished(ctx context.Context, eventID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.events[eventID]
	if !ok {
		return fmt.Errorf("event not found: %s", eventID)
	}
	now := time.Now().UTC()
	e.PublishedAt = &now
	return nil
}

// IncrementRetry records a failed delivery attempt.
func (r *MemoryRepository) IncrementRetry(ctx context.Context, eventID string, errorMsg string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.events[eventID]
	if !ok {
		return fmt.Errorf("event not found: %s", eventID)
	}
	e.RetryCount++
	e.LastError = errorMsg
	return nil
}

// All returns a snapshot of every stored event, oldest first.
func (r *MemoryRepository) All() []*Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Event, 0, len(r.events))
	for _, e := range r.events {
		cp := *e
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}
