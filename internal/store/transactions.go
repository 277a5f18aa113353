package store

import (
	"context"
	"database/sql"

	"litewms/internal/models"

	"github.com/jmoiron/sqlx"
)

// CreateTransaction appends a new ledger entry
func (q *Queries) CreateTransaction(ctx context.Context, txn *models.Transaction) error {
	return sqlx.GetContext(ctx, q.ext, txn, `
		INSERT INTO transactions
			(group_id, warehouse_id, related_warehouse_id, item_id, item_name_snapshot,
			 quantity, type, date, user_name, notes, reverts_transaction_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at`,
		txn.GroupID, txn.WarehouseID, txn.RelatedWarehouseID, txn.ItemID,
		txn.ItemNameSnapshot, txn.Quantity, txn.Type, txn.Date,
		txn.UserName, txn.Notes, txn.RevertsTransactionID)
}

// GetTransaction retrieves a ledger entry by ID
func (q *Queries) GetTransaction(ctx context.Context, id int64) (*models.Transaction, error) {
	var txn models.Transaction
	err := sqlx.GetContext(ctx, q.ext, &txn, "SELECT * FROM transactions WHERE id = $1", id)
	if err != nil {
		return nil, notFound(err, "transaction", id)
	}
	return &txn, nil
}

// GetTransactionsByGroup retrieves every entry of one logical commit.
// A transfer commit has two, everything else one.
func (q *Queries) GetTransactionsByGroup(ctx context.Context, groupID string) ([]models.Transaction, error) {
	var txns []models.Transaction
	err := sqlx.SelectContext(ctx, q.ext, &txns,
		"SELECT * FROM transactions WHERE group_id = $1 ORDER BY id", groupID)
	return txns, err
}

// FindRevertOf returns the entry that reverted transactionID, or nil
func (q *Queries) FindRevertOf(ctx context.Context, transactionID int64) (*models.Transaction, error) {
	var txn models.Transaction
	err := sqlx.GetContext(ctx, q.ext, &txn,
		"SELECT * FROM transactions WHERE reverts_transaction_id = $1", transactionID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &txn, nil
}

// ListTransactionsByWarehouse retrieves a warehouse's ledger history,
// newest first
func (q *Queries) ListTransactionsByWarehouse(ctx context.Context, warehouseID int64, limit int) ([]models.Transaction, error) {
	if limit <= 0 {
		limit = 100
	}
	var txns []models.Transaction
	err := sqlx.SelectContext(ctx, q.ext, &txns,
		"SELECT * FROM transactions WHERE warehouse_id = $1 ORDER BY date DESC, id DESC LIMIT $2",
		warehouseID, limit)
	return txns, err
}
