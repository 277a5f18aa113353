package service

import (
	"context"
	"fmt"
	"strings"

	"litewms/internal/models"
	"litewms/internal/store"
	"litewms/internal/util"

	"go.uber.org/zap"
)

// RegistryService administers warehouses and categories. Both are
// lookup registries for the ledger and cannot be deleted while items
// still reference them.
type RegistryService struct {
	store  *store.Store
	logger *zap.Logger
}

// NewRegistryService creates a new registry service
func NewRegistryService(st *store.Store) *RegistryService {
	return &RegistryService{store: st, logger: util.GetLogger()}
}

// CreateWarehouse creates a warehouse
func (r *RegistryService) CreateWarehouse(ctx context.Context, name string) (*models.Warehouse, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("warehouse name is required: %w", models.ErrValidation)
	}

	wh := &models.Warehouse{Name: name}
	if err := r.store.Queries().CreateWarehouse(ctx, wh); err != nil {
		return nil, err
	}
	r.logger.Info("Warehouse created", zap.Int64("id", wh.ID), zap.String("name", wh.Name))
	return wh, nil
}

// RenameWarehouse changes a warehouse name; identity stays the id
func (r *RegistryService) RenameWarehouse(ctx context.Context, id int64, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("warehouse name is required: %w", models.ErrValidation)
	}
	return r.store.Queries().RenameWarehouse(ctx, id, name)
}

// DeleteWarehouse removes a warehouse unless items still reference it
func (r *RegistryService) DeleteWarehouse(ctx context.Context, id int64) error {
	q := r.store.Queries()
	n, err := q.CountItemsByWarehouse(ctx, id)
	if err != nil {
		return err
	}
	if n > 0 {
		return fmt.Errorf("warehouse %d still holds %d items: %w", id, n, models.ErrConflict)
	}
	return q.DeleteWarehouse(ctx, id)
}

// GetWarehouse retrieves a warehouse
func (r *RegistryService) GetWarehouse(ctx context.Context, id int64) (*models.Warehouse, error) {
	return r.store.Queries().GetWarehouse(ctx, id)
}

// ListWarehouses retrieves all warehouses
func (r *RegistryService) ListWarehouses(ctx context.Context) ([]models.Warehouse, error) {
	return r.store.Queries().ListWarehouses(ctx)
}

// CreateCategory creates a category with its attribute schema
func (r *RegistryService) CreateCategory(ctx context.Context, name string, attrs models.AttributeList) (*models.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("category name is required: %w", models.ErrValidation)
	}
	if err := validateSchema(attrs); err != nil {
		return nil, err
	}

	cat := &models.Category{Name: name, Attributes: attrs}
	if err := r.store.Queries().CreateCategory(ctx, cat); err != nil {
		return nil, err
	}
	r.logger.Info("Category created", zap.Int64("id", cat.ID), zap.String("name", cat.Name))
	return cat, nil
}

// UpdateCategory replaces a category name and schema
func (r *RegistryService) UpdateCategory(ctx context.Context, id int64, name string, attrs models.AttributeList) (*models.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("category name is required: %w", models.ErrValidation)
	}
	if err := validateSchema(attrs); err != nil {
		return nil, err
	}

	cat := &models.Category{ID: id, Name: name, Attributes: attrs}
	if err := r.store.Queries().UpdateCategory(ctx, cat); err != nil {
		return nil, err
	}
	return cat, nil
}

// DeleteCategory removes a category unless items still reference it
func (r *RegistryService) DeleteCategory(ctx context.Context, id int64) error {
	q := r.store.Queries()
	n, err := q.CountItemsByCategory(ctx, id)
	if err != nil {
		return err
	}
	if n > 0 {
		return fmt.Errorf("category %d is used by %d items: %w", id, n, models.ErrConflict)
	}
	return q.DeleteCategory(ctx, id)
}

// GetCategory retrieves a category
func (r *RegistryService) GetCategory(ctx context.Context, id int64) (*models.Category, error) {
	return r.store.Queries().GetCategory(ctx, id)
}

// ListCategories retrieves all categories
func (r *RegistryService) ListCategories(ctx context.Context) ([]models.Category, error) {
	return r.store.Queries().ListCategories(ctx)
}

// ListItems retrieves all items in a warehouse
func (r *RegistryService) ListItems(ctx context.Context, warehouseID int64) ([]models.InventoryItem, error) {
	if _, err := r.store.Queries().GetWarehouse(ctx, warehouseID); err != nil {
		return nil, err
	}
	return r.store.Queries().ListItemsByWarehouse(ctx, warehouseID)
}

// GetItem retrieves one item
func (r *RegistryService) GetItem(ctx context.Context, id int64) (*models.InventoryItem, error) {
	return r.store.Queries().GetItem(ctx, id)
}

// validateSchema rejects blank or duplicated attribute names
func validateSchema(attrs models.AttributeList) error {
	seen := map[string]bool{}
	for _, def := range attrs {
		name := strings.TrimSpace(def.Name)
		if name == "" {
			return fmt.Errorf("attribute name is required: %w", models.ErrValidation)
		}
		if seen[name] {
			return fmt.Errorf("duplicate attribute %q: %w", name, models.ErrValidation)
		}
		seen[name] = true
	}
	return nil
}
