// Package outbox keeps ledger events in the store, written in the same
// transaction as the change they describe, until a Publisher delivers them.
package outbox

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/mikidaniel85/warehouse-pbb/pkg/cloudevents"
)

// DefaultMaxRetries bounds delivery attempts per event.
const DefaultMaxRetries = 10

// Event is an encoded CloudEvent waiting for delivery. Its id is the CloudEvent id.
type Event struct {
	ID            string          `bson:"_id" json:"id"`
	AggregateID   string          `bson:"aggregateId" json:"aggregateId"`
	AggregateType string          `bson:"aggregateType" json:"aggregateType"`
	EventType     string          `bson:"eventType" json:"eventType"`
	Topic         string          `bson:"topic" json:"topic"`
	Payload       json.RawMessage `bson:"payload" json:"payload"`
	CreatedAt     time.Time       `bson:"createdAt" json:"createdAt"`
	PublishedAt   *time.Time      `bson:"publishedAt,omitempty" json:"publishedAt,omitempty"`
	RetryCount    int             `bson:"retryCount" json:"retryCount"`
	LastError     string          `bson:"lastError,omitempty" json:"lastError,omitempty"`
	MaxRetries    int             `bson:"maxRetries" json:"maxRetries"`
}

// NewEvent encodes ce for delivery to topic.
func NewEvent(aggregateType, aggregateID, topic string, ce *cloudevents.WMSCloudEvent) (*Event, error) {
	payload, err := json.Marshal(ce)
	if err != nil {
		return nil, fmt.Errorf("encode %s event: %w", ce.Type, err)
	}
	return &Event{
		ID:            ce.ID,
		AggregateID:   aggregateID,
		AggregateType: aggregateType,
		EventType:     ce.Type,
		Topic:         topic,
		Payload:       payload,
		CreatedAt:     ce.Time,
		MaxRetries:    DefaultMaxRetries,
	}, nil
}

// Pending reports whether the event is undelivered and has attempts left.
func (e *Event) Pending() bool {
	return e.PublishedAt == nil && e.RetryCount < e.MaxRetries
}

// CloudEvent decodes the payload.
func (e *Event) CloudEvent() (*cloudevents.WMSCloudEvent, error) {
	var ce cloudevents.WMSCloudEvent
	if err := json.Unmarshal(e.Payload, &ce); err != nil {
		return nil, fmt.Errorf("decode outbox event %s: %w", e.ID, err)
	}
	return &ce, nil
}
