package application

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/mikidaniel85/warehouse-pbb/internal/domain"
	"github.com/mikidaniel85/warehouse-pbb/pkg/logging"
)

// WarehouseService manages warehouses. Slots refer to warehouses by name, so
// renaming or deleting a warehouse first moves its slots.
type WarehouseService struct {
	deps   *Dependencies
	ledger *LedgerService
	logger *logging.Logger
}

// NewWarehouseService creates a WarehouseService that moves slots through ledger.
func NewWarehouseService(deps *Dependencies, ledger *LedgerService) *WarehouseService {
	return &WarehouseService{deps: deps, ledger: ledger, logger: deps.Logger.WithComponent("warehouses")}
}

// EnsureSentinel creates the sentinel warehouse when it does not exist yet.
func (s *WarehouseService) EnsureSentinel(ctx context.Context) (*WarehouseDTO, error) {
	w, err := s.sentinel(ctx)
	if err != nil {
		s.logger.Error("Failed to ensure sentinel warehouse", "name", s.deps.sentinelName(), "error", err)
		return nil, toAppError(err)
	}
	return ToWarehouseDTO(w), nil
}

func (s *WarehouseService) sentinel(ctx context.Context) (*domain.Warehouse, error) {
	return write(ctx, s.deps.Policy, "ensureSentinel", func(ctx context.Context) (*domain.Warehouse, error) {
		return s.deps.Repos.Warehouses.EnsureSentinel(ctx, domain.NewSentinelWarehouse(s.deps.sentinelName(), s.deps.now()))
	})
}

// Create adds a warehouse. The sentinel name is reserved.
func (s *WarehouseService) Create(ctx context.Context, cmd CreateWarehouseCommand) (*WarehouseDTO, error) {
	if err := requireManager(cmd.Actor, "create warehouse"); err != nil {
		return nil, err
	}
	if domain.IsReservedName(cmd.Name, s.deps.sentinelName()) {
		return nil, toAppError(domain.NewValidationError("name", "is reserved"))
	}
	w, err := domain.NewWarehouse(s.deps.newID(), cmd.Name, s.deps.now())
	if err != nil {
		return nil, toAppError(err)
	}

	if err := s.deps.Policy.Write(ctx, "createWarehouse", func(ctx context.Context) error {
		return s.deps.Repos.Warehouses.Create(ctx, w)
	}); err != nil {
		s.logger.Error("Failed to create warehouse", "name", w.Name, "error", err)
		return nil, withID(toAppError(err), "name", w.Name)
	}

	s.deps.Auditor.Record(ctx, cmd.Actor, domain.ActionWarehouseCreate, "created warehouse "+w.Name)
	return ToWarehouseDTO(w), nil
}

// List returns all warehouses ordered by name, the sentinel included.
func (s *WarehouseService) List(ctx context.Context) ([]*WarehouseDTO, error) {
	ws, err := read(ctx, s.deps.Policy, "listWarehouses", func(ctx context.Context) ([]*domain.Warehouse, error) {
		return s.deps.Repos.Warehouses.List(ctx)
	})
	if err != nil {
		s.logger.Error("Failed to list warehouses", "error", err)
		return nil, toAppError(err)
	}
	out := make([]*WarehouseDTO, 0, len(ws))
	for _, w := range ws {
		out = append(out, ToWarehouseDTO(w))
	}
	return out, nil
}

// Rename moves every slot of the warehouse to the new name and then renames
// the record. An interrupted rename can be repeated; slots already moved are
// not touched again.
func (s *WarehouseService) Rename(ctx context.Context, cmd RenameWarehouseCommand) (*WarehouseChangeDTO, error) {
	if err := requireManager(cmd.Actor, "rename warehouse"); err != nil {
		return nil, err
	}
	w, err := s.find(ctx, cmd.WarehouseID)
	if err != nil {
		return nil, err
	}
	if w.Sentinel {
		return nil, withID(toAppError(domain.ErrSentinelWarehouse), "warehouseId", w.ID)
	}
	if domain.IsReservedName(cmd.Name, s.deps.sentinelName()) {
		return nil, toAppError(domain.NewValidationError("name", "is reserved"))
	}

	oldName := w.Name
	if err := w.Rename(cmd.Name, s.deps.now()); err != nil {
		return nil, toAppError(err)
	}
	if err := s.checkNameFree(ctx, w); err != nil {
		return nil, err
	}

	moved, err := s.moveSlots(ctx, oldName, w.Name)
	if err != nil {
		return nil, err
	}
	late, err := s.settle(ctx, "renameWarehouse", oldName, w.Name, func(ctx context.Context) error {
		return s.deps.Repos.Warehouses.Update(ctx, w)
	})
	moved += late
	if err != nil {
		s.logger.Error("Failed to rename warehouse", "warehouseId", w.ID, "name", w.Name, "movedLocations", moved, "error", err)
		return nil, withID(toAppError(err), "warehouseId", w.ID)
	}

	s.logger.Info("Renamed warehouse", "warehouseId", w.ID, "from", oldName, "to", w.Name, "movedLocations", moved)
	s.deps.Auditor.Record(ctx, cmd.Actor, domain.ActionWarehouseRename,
		fmt.Sprintf("renamed warehouse %s to %s, %d slots moved", oldName, w.Name, moved))
	return &WarehouseChangeDTO{Warehouse: ToWarehouseDTO(w), TargetName: w.Name, MovedLocations: moved}, nil
}

// Delete moves every slot of the warehouse into the sentinel warehouse at the
// same row, column and floor, then deletes the record.
func (s *WarehouseService) Delete(ctx context.Context, cmd DeleteWarehouseCommand) (*WarehouseChangeDTO, error) {
	if err := requireManager(cmd.Actor, "delete warehouse"); err != nil {
		return nil, err
	}
	w, err := s.find(ctx, cmd.WarehouseID)
	if err != nil {
		return nil, err
	}
	if w.Sentinel {
		return nil, withID(toAppError(domain.ErrSentinelWarehouse), "warehouseId", w.ID)
	}
	sentinel, err := s.sentinel(ctx)
	if err != nil {
		return nil, toAppError(err)
	}

	moved, err := s.moveSlots(ctx, w.Name, sentinel.Name)
	if err != nil {
		return nil, err
	}
	late, err := s.settle(ctx, "deleteWarehouse", w.Name, sentinel.Name, func(ctx context.Context) error {
		return s.deps.Repos.Warehouses.Delete(ctx, w.ID)
	})
	moved += late
	if err != nil {
		s.logger.Error("Failed to delete warehouse", "warehouseId", w.ID, "movedLocations", moved, "error", err)
		return nil, withID(toAppError(err), "warehouseId", w.ID)
	}

	s.logger.Info("Deleted warehouse", "warehouseId", w.ID, "name", w.Name, "movedLocations", moved)
	s.deps.Auditor.Record(ctx, cmd.Actor, domain.ActionWarehouseDelete,
		fmt.Sprintf("deleted warehouse %s, %d slots moved to %s", w.Name, moved, sentinel.Name))
	return &WarehouseChangeDTO{Warehouse: ToWarehouseDTO(w), TargetName: sentinel.Name, MovedLocations: moved}, nil
}

func (s *WarehouseService) find(ctx context.Context, id string) (*domain.Warehouse, error) {
	w, err := read(ctx, s.deps.Policy, "findWarehouse", func(ctx context.Context) (*domain.Warehouse, error) {
		return s.deps.Repos.Warehouses.FindByID(ctx, id)
	})
	if err != nil {
		return nil, withID(toAppError(err), "warehouseId", id)
	}
	return w, nil
}

func (s *WarehouseService) checkNameFree(ctx context.Context, w *domain.Warehouse) error {
	other, err := read(ctx, s.deps.Policy, "findWarehouse", func(ctx context.Context) (*domain.Warehouse, error) {
		return s.deps.Repos.Warehouses.FindByName(ctx, w.Name)
	})
	switch {
	case stderrors.Is(err, domain.ErrNotFound):
		return nil
	case err != nil:
		return toAppError(err)
	case other.ID != w.ID:
		return withID(toAppError(domain.ErrDuplicateWarehouse), "name", w.Name)
	}
	return nil
}

// settle applies the record change in one transaction together with moving
// any slot received under from after moveSlots listed it. Receipts reference
// the warehouse record, so each one either commits before and is moved here
// or fails to resolve the old name afterwards.
func (s *WarehouseService) settle(ctx context.Context, op, from, to string, apply func(ctx context.Context) error) (int, error) {
	var moved int
	err := s.deps.Policy.Write(ctx, op, func(ctx context.Context) error {
		return s.deps.Repos.Tx.RunInTransaction(ctx, op, func(ctx context.Context) error {
			moved = 0
			if err := apply(ctx); err != nil {
				return err
			}
			if from == to {
				return nil
			}
			locs, err := s.deps.Repos.Locations.List(ctx, domain.LocationFilter{Warehouse: from})
			if err != nil {
				return err
			}
			for _, loc := range locs {
				addr := loc.Address()
				addr.Warehouse = to
				if _, err := s.ledger.relocate(ctx, loc.ID, addr); err != nil {
					return err
				}
				moved++
			}
			return nil
		})
	})
	if moved > 0 {
		s.logger.Warn("Moved slots received during warehouse change", "from", from, "to", to, "moved", moved)
	}
	return moved, err
}

// moveSlots relocates every slot of warehouse from to warehouse to, one
// transaction per slot, and returns how many were moved.
func (s *WarehouseService) moveSlots(ctx context.Context, from, to string) (int, error) {
	if from == to {
		return 0, nil
	}
	locs, err := read(ctx, s.deps.Policy, "listLocations", func(ctx context.Context) ([]*domain.Location, error) {
		return s.deps.Repos.Locations.List(ctx, domain.LocationFilter{Warehouse: from})
	})
	if err != nil {
		return 0, toAppError(err)
	}

	moved := 0
	for _, loc := range locs {
		addr := loc.Address()
		addr.Warehouse = to
		_, err := write(ctx, s.deps.Policy, "moveSlot", func(ctx context.Context) (*domain.RelocationResult, error) {
			return s.ledger.relocate(ctx, loc.ID, addr)
		})
		if stderrors.Is(err, domain.ErrLocationNotFound) {
			continue
		}
		if err != nil {
			s.logger.Error("Failed to move slot", "locationId", loc.ID, "from", from, "to", to, "moved", moved, "error", err)
			return moved, withID(toAppError(err), "locationId", loc.ID)
		}
		moved++
	}
	return moved, nil
}
