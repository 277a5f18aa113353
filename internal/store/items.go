package store

import (
	"context"
	"fmt"

	"litewms/internal/models"
	"litewms/internal/specs"
	"litewms/internal/util"

	"github.com/jmoiron/sqlx"
)

// GetItem retrieves an inventory item by ID
func (q *Queries) GetItem(ctx context.Context, id int64) (*models.InventoryItem, error) {
	var item models.InventoryItem
	err := sqlx.GetContext(ctx, q.ext, &item, "SELECT * FROM inventory_items WHERE id = $1", id)
	if err != nil {
		return nil, notFound(err, "item", id)
	}
	return &item, nil
}

// GetItemForUpdate retrieves an item holding a row lock until the
// surrounding transaction ends
func (q *Queries) GetItemForUpdate(ctx context.Context, id int64) (*models.InventoryItem, error) {
	var item models.InventoryItem
	err := sqlx.GetContext(ctx, q.ext, &item,
		"SELECT * FROM inventory_items WHERE id = $1 FOR UPDATE", id)
	if err != nil {
		return nil, notFound(err, "item", id)
	}
	return &item, nil
}

// FindItemBySpec finds the SKU matching the given attribute values in
// a warehouse+category, or nil when no candidate matches. Candidates
// are narrowed by SQL and matched spec-by-spec in Go, because SKU
// identity is set equality over keys, not byte equality of the JSON.
func (q *Queries) FindItemBySpec(ctx context.Context, warehouseID, categoryID int64, sp map[string]string) (*models.InventoryItem, error) {
	var candidates []models.InventoryItem
	err := sqlx.SelectContext(ctx, q.ext, &candidates,
		"SELECT * FROM inventory_items WHERE warehouse_id = $1 AND category_id = $2 ORDER BY id",
		warehouseID, categoryID)
	if err != nil {
		return nil, err
	}

	for i := range candidates {
		if specs.SameSpec(candidates[i].Specs, sp) {
			return &candidates[i], nil
		}
	}
	return nil, nil
}

// CreateItem inserts a new SKU
func (q *Queries) CreateItem(ctx context.Context, item *models.InventoryItem) error {
	if item.Quantity < 0 {
		return fmt.Errorf("item quantity %d is negative: %w", item.Quantity, models.ErrValidation)
	}
	err := sqlx.GetContext(ctx, q.ext, item, `
		INSERT INTO inventory_items (warehouse_id, category_id, specs, quantity)
		VALUES ($1, $2, $3, $4)
		RETURNING id, updated_at`,
		item.WarehouseID, item.CategoryID, item.Specs, item.Quantity)
	if err != nil {
		return err
	}
	util.ItemsCreatedTotal.Inc()
	return nil
}

// SetItemQuantity writes an item's absolute quantity
func (q *Queries) SetItemQuantity(ctx context.Context, id int64, quantity int) error {
	if quantity < 0 {
		return fmt.Errorf("quantity %d is negative: %w", quantity, models.ErrValidation)
	}
	res, err := q.ext.ExecContext(ctx,
		"UPDATE inventory_items SET quantity = $1, updated_at = NOW() WHERE id = $2",
		quantity, id)
	if err != nil {
		return err
	}
	return requireRow(res, "item", id)
}

// DeleteItem removes an item row. Callers must have recorded the
// adjust-to-zero transaction first.
func (q *Queries) DeleteItem(ctx context.Context, id int64) error {
	res, err := q.ext.ExecContext(ctx, "DELETE FROM inventory_items WHERE id = $1", id)
	if err != nil {
		return err
	}
	return requireRow(res, "item", id)
}

// ListItemsByWarehouse retrieves all items stocked in a warehouse
func (q *Queries) ListItemsByWarehouse(ctx context.Context, warehouseID int64) ([]models.InventoryItem, error) {
	var items []models.InventoryItem
	err := sqlx.SelectContext(ctx, q.ext, &items,
		"SELECT * FROM inventory_items WHERE warehouse_id = $1 ORDER BY id", warehouseID)
	return items, err
}

// CountItemsByWarehouse reports how many items reference a warehouse
func (q *Queries) CountItemsByWarehouse(ctx context.Context, warehouseID int64) (int, error) {
	var n int
	err := sqlx.GetContext(ctx, q.ext, &n,
		"SELECT COUNT(*) FROM inventory_items WHERE warehouse_id = $1", warehouseID)
	return n, err
}

// CountItemsByCategory reports how many items reference a category
func (q *Queries) CountItemsByCategory(ctx context.Context, categoryID int64) (int, error) {
	var n int
	err := sqlx.GetContext(ctx, q.ext, &n,
		"SELECT COUNT(*) FROM inventory_items WHERE category_id = $1", categoryID)
	return n, err
}

// GetItemsByIDs retrieves multiple items by IDs
func (q *Queries) GetItemsByIDs(ctx context.Context, ids []int64) ([]models.InventoryItem, error) {
	if len(ids) == 0 {
		return []models.InventoryItem{}, nil
	}

	query, args, err := sqlx.In("SELECT * FROM inventory_items WHERE id IN (?)", ids)
	if err != nil {
		return nil, err
	}
	query = q.ext.Rebind(query)

	var items []models.InventoryItem
	err = sqlx.SelectContext(ctx, q.ext, &items, query, args...)
	return items, err
}
