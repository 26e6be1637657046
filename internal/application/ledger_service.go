package application

import (
	"context"
	"fmt"

	"github.com/mikidaniel85/warehouse-pbb/internal/domain"
	"github.com/mikidaniel85/warehouse-pbb/pkg/cloudevents"
	"github.com/mikidaniel85/warehouse-pbb/pkg/logging"
)

// LedgerService moves stock between the outside world and ledger slots.
type LedgerService struct {
	deps   *Dependencies
	logger *logging.Logger
}

// NewLedgerService creates a LedgerService
func NewLedgerService(deps *Dependencies) *LedgerService {
	return &LedgerService{deps: deps, logger: deps.Logger.WithComponent("ledger")}
}

// Receive adds stock of an item into a slot, creating the slot on first receipt.
func (s *LedgerService) Receive(ctx context.Context, cmd ReceiveCommand) (*ReceiptDTO, error) {
	if err := requireManager(cmd.Actor, "receive"); err != nil {
		return nil, err
	}
	if err := domain.ValidateQuantity(cmd.Quantity); err != nil {
		return nil, toAppError(err)
	}
	addr := domain.NewSlotAddress(cmd.Warehouse, cmd.Row, cmd.Column, cmd.Floor)
	if err := addr.Validate(); err != nil {
		return nil, toAppError(err)
	}

	// The item and warehouse are referenced inside the transaction so a
	// concurrent delete of either cannot commit around the slot write.
	result, err := write(ctx, s.deps.Policy, "receive", func(ctx context.Context) (*domain.ReceiptResult, error) {
		var result *domain.ReceiptResult
		err := s.deps.Repos.Tx.RunInTransaction(ctx, "receive", func(ctx context.Context) error {
			item, err := s.deps.Repos.Items.Reference(ctx, cmd.ItemID)
			if err != nil {
				return withID(toAppError(err), "itemId", cmd.ItemID)
			}
			resolved, err := s.referenceWarehouse(ctx, addr)
			if err != nil {
				return err
			}
			slot, err := domain.NewLocation(item, resolved, s.deps.now())
			if err != nil {
				return err
			}
			r, err := s.deps.Repos.Locations.Receive(ctx, slot, cmd.Quantity)
			if err != nil {
				return err
			}
			result = r
			return s.deps.emitEvent(ctx, aggregateLocation, r.Location.ID, cloudevents.StockReceived, receivedEvent(r))
		})
		return result, err
	})
	if err != nil {
		s.deps.Metrics.RecordLedgerMutation("receive", cmd.Quantity, false)
		s.logger.Error("Failed to receive stock", "itemId", cmd.ItemID, "warehouse", addr.Warehouse, "quantity", cmd.Quantity, "error", err)
		return nil, toAppError(err)
	}

	s.deps.Metrics.RecordLedgerMutation("receive", cmd.Quantity, true)
	s.logger.LedgerMutation(ctx, "receive", result.Location.ID, cmd.Quantity, result.Location.Quantity)
	s.deps.Auditor.Record(ctx, cmd.Actor, domain.ActionReceive,
		fmt.Sprintf("received %d x %s into %s", cmd.Quantity, result.Location.ItemName, result.Location.ID))

	return &ReceiptDTO{Location: ToLocationDTO(result.Location), Received: result.Received, Created: result.Created}, nil
}

// Relocate moves a whole slot to another position, merging into an existing slot there.
func (s *LedgerService) Relocate(ctx context.Context, cmd RelocateCommand) (*RelocationDTO, error) {
	if err := requireManager(cmd.Actor, "relocate"); err != nil {
		return nil, err
	}
	addr := domain.NewSlotAddress(cmd.Warehouse, cmd.Row, cmd.Column, cmd.Floor)
	if err := addr.Validate(); err != nil {
		return nil, toAppError(err)
	}

	result, err := write(ctx, s.deps.Policy, "relocate", func(ctx context.Context) (*domain.RelocationResult, error) {
		var result *domain.RelocationResult
		err := s.deps.Repos.Tx.RunInTransaction(ctx, "relocate", func(ctx context.Context) error {
			resolved, err := s.referenceWarehouse(ctx, addr)
			if err != nil {
				return err
			}
			result, err = s.relocate(ctx, cmd.LocationID, resolved)
			return err
		})
		return result, err
	})
	if err != nil {
		s.deps.Metrics.RecordLedgerMutation("relocate", 0, false)
		s.logger.Error("Failed to relocate slot", "locationId", cmd.LocationID, "warehouse", addr.Warehouse, "error", err)
		return nil, withID(toAppError(err), "locationId", cmd.LocationID)
	}

	s.deps.Metrics.RecordLedgerMutation("relocate", result.Moved, true)
	if result.From != result.Location.ID {
		s.deps.Auditor.Record(ctx, cmd.Actor, domain.ActionRelocate,
			fmt.Sprintf("moved %d x %s from %s to %s", result.Moved, result.Location.ItemName, result.From, result.Location.ID))
	}
	return toRelocationDTO(result), nil
}

// relocate moves one slot in one transaction, joining the caller's when there
// is one: the source is removed and its quantity received at the target key.
// Moving a slot onto itself changes nothing.
func (s *LedgerService) relocate(ctx context.Context, locationID string, addr domain.SlotAddress) (*domain.RelocationResult, error) {
	var result *domain.RelocationResult
	err := s.deps.Repos.Tx.RunInTransaction(ctx, "relocate", func(ctx context.Context) error {
		src, err := s.deps.Repos.Locations.FindByID(ctx, locationID)
		if err != nil {
			return err
		}
		target, err := src.MovedTo(addr, s.deps.now())
		if err != nil {
			return err
		}
		if target.ID == src.ID {
			result = &domain.RelocationResult{From: src.ID, Location: src}
			return nil
		}

		removed, err := s.deps.Repos.Locations.Remove(ctx, src.ID)
		if err != nil {
			return err
		}
		receipt, err := s.deps.Repos.Locations.Receive(ctx, target, removed.Quantity)
		if err != nil {
			return err
		}
		result = &domain.RelocationResult{
			From:     removed.ID,
			Location: receipt.Location,
			Moved:    removed.Quantity,
			Merged:   !receipt.Created,
		}
		return s.deps.emitEvent(ctx, aggregateLocation, receipt.Location.ID, cloudevents.StockRelocated, relocatedEvent(result))
	})
	if err != nil {
		return nil, err
	}
	s.logger.LedgerMutation(ctx, "relocate", result.Location.ID, result.Moved, result.Location.Quantity)
	return result, nil
}

// referenceWarehouse replaces the warehouse component with the stored spelling
// of the warehouse name so keys do not depend on how a caller typed it.
func (s *LedgerService) referenceWarehouse(ctx context.Context, addr domain.SlotAddress) (domain.SlotAddress, error) {
	w, err := s.deps.Repos.Warehouses.ReferenceByName(ctx, addr.Warehouse)
	if err != nil {
		return addr, withID(toAppError(err), "warehouse", addr.Warehouse)
	}
	addr.Warehouse = w.Name
	return addr, nil
}

// GetLocation returns one slot by id
func (s *LedgerService) GetLocation(ctx context.Context, id string) (*LocationDTO, error) {
	loc, err := read(ctx, s.deps.Policy, "findLocation", func(ctx context.Context) (*domain.Location, error) {
		return s.deps.Repos.Locations.FindByID(ctx, id)
	})
	if err != nil {
		return nil, withID(toAppError(err), "locationId", id)
	}
	return ToLocationDTO(loc), nil
}

// ListLocations returns slots ordered by warehouse and item name
func (s *LedgerService) ListLocations(ctx context.Context, q ListLocationsQuery) ([]*LocationDTO, error) {
	locs, err := read(ctx, s.deps.Policy, "listLocations", func(ctx context.Context) ([]*domain.Location, error) {
		return s.deps.Repos.Locations.List(ctx, domain.LocationFilter{
			Warehouse:   q.Warehouse,
			ItemID:      q.ItemID,
			InStockOnly: q.InStockOnly,
			Limit:       q.Limit,
		})
	})
	if err != nil {
		s.logger.Error("Failed to list locations", "warehouse", q.Warehouse, "error", err)
		return nil, toAppError(err)
	}
	return ToLocationDTOs(locs), nil
}

// PullList returns the slots a puller can request from: everything in stock.
func (s *LedgerService) PullList(ctx context.Context, warehouse string) ([]*LocationDTO, error) {
	return s.ListLocations(ctx, ListLocationsQuery{Warehouse: warehouse, InStockOnly: true})
}

// SuggestSlot returns an existing slot of the item to pre-fill a new receipt.
// Found is false when the item is not stocked anywhere yet.
func (s *LedgerService) SuggestSlot(ctx context.Context, itemID string) (*SlotSuggestionDTO, error) {
	if _, err := read(ctx, s.deps.Policy, "findItem", func(ctx context.Context) (*domain.Item, error) {
		return s.deps.Repos.Items.FindByID(ctx, itemID)
	}); err != nil {
		return nil, withID(toAppError(err), "itemId", itemID)
	}

	locs, err := read(ctx, s.deps.Policy, "suggestSlot", func(ctx context.Context) ([]*domain.Location, error) {
		return s.deps.Repos.Locations.List(ctx, domain.LocationFilter{ItemID: itemID, Limit: 1})
	})
	if err != nil {
		return nil, toAppError(err)
	}
	if len(locs) == 0 {
		return &SlotSuggestionDTO{ItemID: itemID}, nil
	}
	loc := locs[0]
	return &SlotSuggestionDTO{
		ItemID:     itemID,
		LocationID: loc.ID,
		Warehouse:  loc.Warehouse,
		Row:        loc.Row,
		Column:     loc.Column,
		Floor:      loc.Floor,
		Found:      true,
	}, nil
}

func toRelocationDTO(r *domain.RelocationResult) *RelocationDTO {
	return &RelocationDTO{
		FromLocationID: r.From,
		Location:       ToLocationDTO(r.Location),
		Moved:          r.Moved,
		Merged:         r.Merged,
	}
}
