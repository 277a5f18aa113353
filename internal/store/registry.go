package store

import (
	"context"
	"fmt"

	"litewms/internal/models"

	"github.com/jmoiron/sqlx"
)

// GetWarehouse retrieves a warehouse by ID
func (q *Queries) GetWarehouse(ctx context.Context, id int64) (*models.Warehouse, error) {
	var wh models.Warehouse
	err := sqlx.GetContext(ctx, q.ext, &wh, "SELECT * FROM warehouses WHERE id = $1", id)
	if err != nil {
		return nil, notFound(err, "warehouse", id)
	}
	return &wh, nil
}

// ListWarehouses retrieves all warehouses
func (q *Queries) ListWarehouses(ctx context.Context) ([]models.Warehouse, error) {
	var whs []models.Warehouse
	err := sqlx.SelectContext(ctx, q.ext, &whs, "SELECT * FROM warehouses ORDER BY id")
	return whs, err
}

// CreateWarehouse creates a new warehouse
func (q *Queries) CreateWarehouse(ctx context.Context, wh *models.Warehouse) error {
	return sqlx.GetContext(ctx, q.ext, wh,
		"INSERT INTO warehouses (name) VALUES ($1) RETURNING id, name, created_at", wh.Name)
}

// RenameWarehouse updates a warehouse name
func (q *Queries) RenameWarehouse(ctx context.Context, id int64, name string) error {
	res, err := q.ext.ExecContext(ctx, "UPDATE warehouses SET name = $1 WHERE id = $2", name, id)
	if err != nil {
		return err
	}
	return requireRow(res, "warehouse", id)
}

// DeleteWarehouse removes a warehouse. The referenced-items guard
// lives in the registry service.
func (q *Queries) DeleteWarehouse(ctx context.Context, id int64) error {
	res, err := q.ext.ExecContext(ctx, "DELETE FROM warehouses WHERE id = $1", id)
	if err != nil {
		return err
	}
	return requireRow(res, "warehouse", id)
}

// GetCategory retrieves a category by ID
func (q *Queries) GetCategory(ctx context.Context, id int64) (*models.Category, error) {
	var cat models.Category
	err := sqlx.GetContext(ctx, q.ext, &cat, "SELECT * FROM categories WHERE id = $1", id)
	if err != nil {
		return nil, notFound(err, "category", id)
	}
	return &cat, nil
}

// GetCategoryByName retrieves a category by its unique name
func (q *Queries) GetCategoryByName(ctx context.Context, name string) (*models.Category, error) {
	var cat models.Category
	err := sqlx.GetContext(ctx, q.ext, &cat, "SELECT * FROM categories WHERE name = $1", name)
	if err != nil {
		return nil, notFound(err, "category", name)
	}
	return &cat, nil
}

// ListCategories retrieves all categories
func (q *Queries) ListCategories(ctx context.Context) ([]models.Category, error) {
	var cats []models.Category
	err := sqlx.SelectContext(ctx, q.ext, &cats, "SELECT * FROM categories ORDER BY id")
	return cats, err
}

// CreateCategory creates a new category with its attribute schema
func (q *Queries) CreateCategory(ctx context.Context, cat *models.Category) error {
	return sqlx.GetContext(ctx, q.ext, cat,
		"INSERT INTO categories (name, attributes) VALUES ($1, $2) RETURNING id, name, attributes, created_at",
		cat.Name, cat.Attributes)
}

// UpdateCategory updates a category name and schema
func (q *Queries) UpdateCategory(ctx context.Context, cat *models.Category) error {
	res, err := q.ext.ExecContext(ctx,
		"UPDATE categories SET name = $1, attributes = $2 WHERE id = $3",
		cat.Name, cat.Attributes, cat.ID)
	if err != nil {
		return err
	}
	return requireRow(res, "category", cat.ID)
}

// DeleteCategory removes a category. The referenced-items guard lives
// in the registry service.
func (q *Queries) DeleteCategory(ctx context.Context, id int64) error {
	res, err := q.ext.ExecContext(ctx, "DELETE FROM categories WHERE id = $1", id)
	if err != nil {
		return err
	}
	return requireRow(res, "category", id)
}

func requireRow(res interface{ RowsAffected() (int64, error) }, what string, id interface{}) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s %v: %w", what, id, models.ErrNotFound)
	}
	return nil
}
