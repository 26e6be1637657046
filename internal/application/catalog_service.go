package application

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/mikidaniel85/warehouse-pbb/internal/domain"
	"github.com/mikidaniel85/warehouse-pbb/pkg/logging"
)

// CatalogService manages catalog entries.
type CatalogService struct {
	deps   *Dependencies
	logger *logging.Logger
}

// NewCatalogService creates a CatalogService
func NewCatalogService(deps *Dependencies) *CatalogService {
	return &CatalogService{deps: deps, logger: deps.Logger.WithComponent("catalog")}
}

// CreateItem adds a catalog entry. The internal SKU must be unused.
func (s *CatalogService) CreateItem(ctx context.Context, cmd CreateItemCommand) (*ItemDTO, error) {
	if err := requireManager(cmd.Actor, "create item"); err != nil {
		return nil, err
	}
	item, err := domain.NewItem(s.deps.newID(), cmd.Description, cmd.InternalSKU, cmd.ManufacturerSKU, s.deps.now())
	if err != nil {
		return nil, toAppError(err)
	}

	if err := s.deps.Policy.Write(ctx, "createItem", func(ctx context.Context) error {
		return s.deps.Repos.Items.Create(ctx, item)
	}); err != nil {
		s.logger.Error("Failed to create item", "internalSku", item.InternalSKU, "error", err)
		return nil, withID(toAppError(err), "internalSku", item.InternalSKU)
	}

	s.logger.Info("Created item", "itemId", item.ID, "internalSku", item.InternalSKU)
	s.deps.Auditor.Record(ctx, cmd.Actor, domain.ActionItemCreate,
		fmt.Sprintf("created %s (%s)", item.Description, item.InternalSKU))
	return ToItemDTO(item), nil
}

// UpdateItem edits a catalog entry. A new description is copied onto every
// slot of the item in the same transaction, and legacy slots that still
// carry the old description are linked to the item.
func (s *CatalogService) UpdateItem(ctx context.Context, cmd UpdateItemCommand) (*ItemUpdateDTO, error) {
	if err := requireManager(cmd.Actor, "update item"); err != nil {
		return nil, err
	}
	change := domain.ItemChange{
		Description:     cmd.Description,
		InternalSKU:     cmd.InternalSKU,
		ManufacturerSKU: cmd.ManufacturerSKU,
	}

	var (
		item    *domain.Item
		prev    string
		renamed bool
		touched int64
	)
	err := s.deps.Policy.Write(ctx, "updateItem", func(ctx context.Context) error {
		return s.deps.Repos.Tx.RunInTransaction(ctx, "updateItem", func(ctx context.Context) error {
			current, err := s.deps.Repos.Items.FindByID(ctx, cmd.ItemID)
			if err != nil {
				return err
			}
			p, r, err := current.Apply(change, s.deps.now())
			if err != nil {
				return err
			}
			if err := s.deps.Repos.Items.Update(ctx, current); err != nil {
				return err
			}
			var n int64
			if r {
				if n, err = s.deps.Repos.Locations.RenameCachedItem(ctx, current.ID, p, current.Description); err != nil {
					return err
				}
			}
			item, prev, renamed, touched = current, p, r, n
			return nil
		})
	})
	if err != nil {
		s.logger.Error("Failed to update item", "itemId", cmd.ItemID, "error", err)
		return nil, withID(toAppError(err), "itemId", cmd.ItemID)
	}

	detail := fmt.Sprintf("updated %s (%s)", item.Description, item.InternalSKU)
	if renamed {
		detail = fmt.Sprintf("renamed %q to %q, %d slots updated", prev, item.Description, touched)
		s.logger.Info("Renamed item", "itemId", item.ID, "locations", touched)
	}
	s.deps.Auditor.Record(ctx, cmd.Actor, domain.ActionItemUpdate, detail)
	return &ItemUpdateDTO{Item: ToItemDTO(item), LocationsRenamed: touched}, nil
}

// DeleteItem removes a catalog entry. Items still referenced by a slot cannot be deleted.
func (s *CatalogService) DeleteItem(ctx context.Context, cmd DeleteItemCommand) error {
	if err := requireManager(cmd.Actor, "delete item"); err != nil {
		return err
	}

	var item *domain.Item
	err := s.deps.Policy.Write(ctx, "deleteItem", func(ctx context.Context) error {
		return s.deps.Repos.Tx.RunInTransaction(ctx, "deleteItem", func(ctx context.Context) error {
			current, err := s.deps.Repos.Items.FindByID(ctx, cmd.ItemID)
			if err != nil {
				return err
			}
			refs, err := s.deps.Repos.Locations.CountByItem(ctx, current.ID)
			if err != nil {
				return err
			}
			if refs > 0 {
				return domain.ErrItemReferenced
			}
			if err := s.deps.Repos.Items.Delete(ctx, current.ID); err != nil {
				return err
			}
			item = current
			return nil
		})
	})
	if err != nil {
		s.logger.Error("Failed to delete item", "itemId", cmd.ItemID, "error", err)
		return withID(toAppError(err), "itemId", cmd.ItemID)
	}

	s.deps.Auditor.Record(ctx, cmd.Actor, domain.ActionItemDelete,
		fmt.Sprintf("deleted %s (%s)", item.Description, item.InternalSKU))
	return nil
}

// GetItem returns one catalog entry
func (s *CatalogService) GetItem(ctx context.Context, id string) (*ItemDTO, error) {
	item, err := read(ctx, s.deps.Policy, "findItem", func(ctx context.Context) (*domain.Item, error) {
		return s.deps.Repos.Items.FindByID(ctx, id)
	})
	if err != nil {
		return nil, withID(toAppError(err), "itemId", id)
	}
	return ToItemDTO(item), nil
}

// ListItems returns the catalog ordered by description
func (s *CatalogService) ListItems(ctx context.Context) ([]*ItemDTO, error) {
	items, err := read(ctx, s.deps.Policy, "listItems", func(ctx context.Context) ([]*domain.Item, error) {
		return s.deps.Repos.Items.List(ctx)
	})
	if err != nil {
		s.logger.Error("Failed to list items", "error", err)
		return nil, toAppError(err)
	}
	return ToItemDTOs(items), nil
}

// ImportItems creates catalog entries in bulk. Rows whose internal SKU already
// exists, in the catalog or earlier in the batch, are skipped. Rows missing a
// description or SKU are reported and skipped. A store failure stops the
// import; rows created before it stay created.
func (s *CatalogService) ImportItems(ctx context.Context, cmd ImportItemsCommand) (*ImportResultDTO, error) {
	if err := requireManager(cmd.Actor, "import items"); err != nil {
		return nil, err
	}

	result := &ImportResultDTO{}
	seen := make(map[string]struct{}, len(cmd.Rows))
	for i, row := range cmd.Rows {
		item, err := domain.NewItem(s.deps.newID(), row.Description, row.InternalSKU, row.ManufacturerSKU, s.deps.now())
		if err != nil {
			result.Invalid++
			result.Errors = append(result.Errors, ImportRowErrorDTO{Row: i + 1, Message: err.Error()})
			continue
		}
		if _, dup := seen[item.InternalSKU]; dup {
			result.Skipped++
			continue
		}
		seen[item.InternalSKU] = struct{}{}

		err = s.deps.Policy.Write(ctx, "importItem", func(ctx context.Context) error {
			return s.deps.Repos.Items.Create(ctx, item)
		})
		switch {
		case err == nil:
			result.Created++
		case stderrors.Is(err, domain.ErrDuplicateSKU):
			result.Skipped++
		default:
			s.logger.Error("Catalog import aborted", "row", i+1, "created", result.Created, "error", err)
			return result, withID(toAppError(err), "internalSku", item.InternalSKU)
		}
	}

	s.logger.Info("Imported items", "created", result.Created, "skipped", result.Skipped, "invalid", result.Invalid)
	s.deps.Auditor.Record(ctx, cmd.Actor, domain.ActionItemImport,
		fmt.Sprintf("imported %d items, %d skipped, %d invalid", result.Created, result.Skipped, result.Invalid))
	return result, nil
}
