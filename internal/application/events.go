package application

import (
	"context"
	"fmt"

	"github.com/mikidaniel85/warehouse-pbb/internal/domain"
	"github.com/mikidaniel85/warehouse-pbb/pkg/cloudevents"
	"github.com/mikidaniel85/warehouse-pbb/pkg/kafka"
	"github.com/mikidaniel85/warehouse-pbb/pkg/outbox"
)

// Aggregate types of outbox events
const (
	aggregateLocation = "Location"
	aggregateRequest  = "Request"
)

// emit writes events to the outbox with ctx, so inside a transaction they
// commit or roll back with the state change. Nothing is emitted without an
// outbox or an event factory.
func (d *Dependencies) emit(ctx context.Context, events ...*outbox.Event) error {
	if d.Repos.Outbox == nil || len(events) == 0 {
		return nil
	}
	if err := d.Repos.Outbox.SaveAll(ctx, events); err != nil {
		return fmt.Errorf("failed to save outbox events: %w", err)
	}
	return nil
}

func (d *Dependencies) event(ctx context.Context, aggregateType, aggregateID, eventType string, data interface{}) (*outbox.Event, error) {
	if d.Events == nil {
		return nil, nil
	}
	ce := d.Events.CreateEvent(ctx, eventType, aggregateID, data)
	return outbox.NewEvent(aggregateType, aggregateID, kafka.Topics.LedgerEvents, ce)
}

// emitEvent builds one event and writes it.
func (d *Dependencies) emitEvent(ctx context.Context, aggregateType, aggregateID, eventType string, data interface{}) error {
	ev, err := d.event(ctx, aggregateType, aggregateID, eventType, data)
	if err != nil {
		return fmt.Errorf("failed to build %s event: %w", eventType, err)
	}
	if ev == nil {
		return nil
	}
	return d.emit(ctx, ev)
}

func receivedEvent(r *domain.ReceiptResult) cloudevents.StockReceivedData {
	return cloudevents.StockReceivedData{
		LocationID:  r.Location.ID,
		ItemID:      r.Location.ItemID,
		Warehouse:   r.Location.Warehouse,
		Quantity:    r.Received,
		NewQuantity: r.Location.Quantity,
		Created:     r.Created,
	}
}

func decrementedEvent(requestID string, r *domain.DecrementResult) cloudevents.StockDecrementedData {
	return cloudevents.StockDecrementedData{
		LocationID:  r.Location.ID,
		RequestID:   requestID,
		Requested:   r.Requested,
		Applied:     r.Applied,
		NewQuantity: r.Location.Quantity,
	}
}

func relocatedEvent(r *domain.RelocationResult) cloudevents.StockRelocatedData {
	return cloudevents.StockRelocatedData{
		FromLocationID: r.From,
		ToLocationID:   r.Location.ID,
		Quantity:       r.Moved,
		Merged:         r.Merged,
	}
}

func requestEvent(req *domain.Request) cloudevents.RequestData {
	return cloudevents.RequestData{
		RequestID:  req.ID,
		LocationID: req.LocationID,
		Requester:  req.Requester,
		Quantity:   req.Quantity,
		Status:     string(req.Status),
		DecidedBy:  req.DecidedBy,
	}
}
