// Package ledger is the single entry point for every inventory
// mutation. Inbound, outbound, adjust and transfer all funnel into
// Commit with a declarative mutation list; Revert applies the exact
// arithmetic inverse of a prior commit. Each call runs inside one
// store transaction, so a failing step leaves quantities untouched.
package ledger

import (
	"context"
	"fmt"
	"time"

	"litewms/internal/models"
	"litewms/internal/snapshot"
	"litewms/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Tx is the unit-of-work surface the engine mutates. Item reads take
// row locks so pre-validated quantities cannot drift before apply.
type Tx interface {
	GetItemForUpdate(ctx context.Context, id int64) (*models.InventoryItem, error)
	FindItemBySpec(ctx context.Context, warehouseID, categoryID int64, sp map[string]string) (*models.InventoryItem, error)
	CreateItem(ctx context.Context, item *models.InventoryItem) error
	SetItemQuantity(ctx context.Context, id int64, quantity int) error

	GetCategory(ctx context.Context, id int64) (*models.Category, error)
	GetCategoryByName(ctx context.Context, name string) (*models.Category, error)

	GetTransaction(ctx context.Context, id int64) (*models.Transaction, error)
	GetTransactionsByGroup(ctx context.Context, groupID string) ([]models.Transaction, error)
	FindRevertOf(ctx context.Context, transactionID int64) (*models.Transaction, error)
	CreateTransaction(ctx context.Context, txn *models.Transaction) error
}

// Store opens unit-of-work transactions. RunInTx must be
// all-or-nothing: when fn returns an error nothing fn did is visible.
type Store interface {
	RunInTx(ctx context.Context, fn func(tx Tx) error) error
}

// Mutation is one item quantity change. Either ItemID names an
// existing item, or WarehouseID+CategoryID+Specs identify a SKU to
// find-or-create at quantity zero.
type Mutation struct {
	ItemID      int64
	WarehouseID int64
	CategoryID  int64
	Specs       map[string]string
	Delta       int
}

// Meta carries the transaction fields recorded verbatim
type Meta struct {
	Type               string
	WarehouseID        int64
	RelatedWarehouseID *int64
	Date               time.Time
	UserName           string
	Notes              string
}

// Result reports what a commit or revert changed
type Result struct {
	Transactions []*models.Transaction
	Items        []models.StockItemData
}

// Engine orchestrates inventory mutation and transaction creation
type Engine struct {
	store  Store
	logger *zap.Logger
}

// NewEngine creates a ledger engine over a store
func NewEngine(store Store) *Engine {
	return &Engine{store: store, logger: util.GetLogger()}
}

// resolved pairs a mutation with its target item and pre-mutation
// metadata for the snapshot.
type resolved struct {
	item  *models.InventoryItem
	entry snapshot.Entry
}

// Commit resolves every mutation, validates that no item would drop
// below zero, applies all deltas, and records the transaction. For
// TRANSFER it records the dual-entry pair: a negative entry at the
// source and a positive one at the target, sharing one group id and
// one snapshot payload.
func (e *Engine) Commit(ctx context.Context, mutations []Mutation, meta Meta) (*Result, error) {
	ctx, span := util.StartSpan(ctx, "Engine.Commit")
	defer span.End()

	if len(mutations) == 0 {
		return nil, fmt.Errorf("empty mutation list: %w", models.ErrValidation)
	}
	if _, err := snapshot.TypeForTx(meta.Type); err != nil {
		return nil, err
	}
	if meta.Type == models.TxTypeTransfer {
		if meta.RelatedWarehouseID == nil {
			return nil, fmt.Errorf("transfer needs a target warehouse: %w", models.ErrValidation)
		}
		if *meta.RelatedWarehouseID == meta.WarehouseID {
			return nil, fmt.Errorf("transfer source and target warehouse are the same: %w", models.ErrValidation)
		}
	}
	for _, m := range mutations {
		if m.Delta == 0 {
			return nil, fmt.Errorf("zero quantity delta: %w", models.ErrValidation)
		}
	}
	if meta.Date.IsZero() {
		meta.Date = time.Now()
	}

	start := time.Now()
	var result *Result
	err := e.store.RunInTx(ctx, func(tx Tx) error {
		res, err := e.commitTx(ctx, tx, mutations, meta)
		if err != nil {
			return err
		}
		result = res
		return nil
	})
	util.LedgerCommitLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		util.CommitsFailedTotal.WithLabelValues(meta.Type, util.FailureReason(err)).Inc()
		return nil, err
	}

	util.CommitsTotal.WithLabelValues(meta.Type).Inc()
	e.logger.Info("Ledger commit",
		zap.String("type", meta.Type),
		zap.Int64("warehouse_id", meta.WarehouseID),
		zap.Int("mutations", len(mutations)),
		zap.String("user", meta.UserName))
	return result, nil
}

func (e *Engine) commitTx(ctx context.Context, tx Tx, mutations []Mutation, meta Meta) (*Result, error) {
	resolvedList, err := e.resolveAll(ctx, tx, mutations, meta)
	if err != nil {
		return nil, err
	}

	applied, err := e.applyDeltas(ctx, tx, resolvedList)
	if err != nil {
		return nil, err
	}

	groupID := uuid.New().String()
	var txns []*models.Transaction

	if meta.Type == models.TxTypeTransfer {
		txns, err = e.recordTransfer(ctx, tx, resolvedList, meta, groupID)
	} else {
		txns, err = e.recordSingle(ctx, tx, resolvedList, meta, groupID)
	}
	if err != nil {
		return nil, err
	}

	return &Result{Transactions: txns, Items: applied}, nil
}

// resolveAll finds or creates the target item of every mutation and
// captures its pre-mutation category name and specs.
func (e *Engine) resolveAll(ctx context.Context, tx Tx, mutations []Mutation, meta Meta) ([]resolved, error) {
	catNames := map[int64]string{}
	categoryName := func(id int64) (string, error) {
		if name, ok := catNames[id]; ok {
			return name, nil
		}
		cat, err := tx.GetCategory(ctx, id)
		if err != nil {
			return "", err
		}
		catNames[id] = cat.Name
		return cat.Name, nil
	}

	out := make([]resolved, 0, len(mutations))
	for i, m := range mutations {
		var item *models.InventoryItem
		var err error

		switch {
		case m.ItemID != 0:
			item, err = tx.GetItemForUpdate(ctx, m.ItemID)
			if err != nil {
				return nil, fmt.Errorf("mutation %d: %w", i, err)
			}
		default:
			item, err = tx.FindItemBySpec(ctx, m.WarehouseID, m.CategoryID, m.Specs)
			if err != nil {
				return nil, fmt.Errorf("mutation %d: %w", i, err)
			}
			if item != nil {
				item, err = tx.GetItemForUpdate(ctx, item.ID)
				if err != nil {
					return nil, fmt.Errorf("mutation %d: %w", i, err)
				}
			}
			if item == nil {
				if m.Delta < 0 {
					return nil, fmt.Errorf("mutation %d: no such SKU to take stock from: %w", i, models.ErrInsufficientStock)
				}
				item = &models.InventoryItem{
					WarehouseID: m.WarehouseID,
					CategoryID:  m.CategoryID,
					Specs:       m.Specs,
					Quantity:    0,
				}
				if err := tx.CreateItem(ctx, item); err != nil {
					return nil, fmt.Errorf("mutation %d: %w", i, err)
				}
			}
		}

		if err := checkWarehouse(item, meta); err != nil {
			return nil, fmt.Errorf("mutation %d: %w", i, err)
		}

		name, err := categoryName(item.CategoryID)
		if err != nil {
			return nil, err
		}
		out = append(out, resolved{
			item: item,
			entry: snapshot.Entry{
				CategoryName: name,
				Specs:        item.Specs,
				Delta:        m.Delta,
			},
		})
	}
	return out, nil
}

func checkWarehouse(item *models.InventoryItem, meta Meta) error {
	if item.WarehouseID == meta.WarehouseID {
		return nil
	}
	if meta.Type == models.TxTypeTransfer && meta.RelatedWarehouseID != nil &&
		item.WarehouseID == *meta.RelatedWarehouseID {
		return nil
	}
	return fmt.Errorf("item %d belongs to warehouse %d: %w",
		item.ID, item.WarehouseID, models.ErrValidation)
}

// applyDeltas pre-validates every delta against the running quantity
// of its item, then writes the final quantities. Two mutations hitting
// the same item within one commit chain through the running value.
func (e *Engine) applyDeltas(ctx context.Context, tx Tx, list []resolved) ([]models.StockItemData, error) {
	final := map[int64]int{}
	order := []int64{}
	warehouses := map[int64]int64{}
	deltas := map[int64]int{}

	for _, r := range list {
		id := r.item.ID
		if _, seen := final[id]; !seen {
			final[id] = r.item.Quantity
			warehouses[id] = r.item.WarehouseID
			order = append(order, id)
		}
		next := final[id] + r.entry.Delta
		if next < 0 {
			util.InsufficientStockTotal.Inc()
			return nil, fmt.Errorf("item %d has %d, delta %d: %w",
				id, final[id], r.entry.Delta, models.ErrInsufficientStock)
		}
		final[id] = next
		deltas[id] += r.entry.Delta
	}

	applied := make([]models.StockItemData, 0, len(order))
	for _, id := range order {
		if err := tx.SetItemQuantity(ctx, id, final[id]); err != nil {
			return nil, err
		}
		applied = append(applied, models.StockItemData{
			ItemID:      id,
			WarehouseID: warehouses[id],
			Delta:       deltas[id],
			NewQuantity: final[id],
		})
	}
	return applied, nil
}

// recordSingle creates the one transaction of an IN/OUT/ADJUST commit
func (e *Engine) recordSingle(ctx context.Context, tx Tx, list []resolved, meta Meta, groupID string) ([]*models.Transaction, error) {
	entries := make([]snapshot.Entry, len(list))
	total := 0
	for i, r := range list {
		entries[i] = r.entry
		total += r.entry.Delta
	}

	payload, err := snapshot.Encode(meta.Type, entries)
	if err != nil {
		return nil, err
	}

	txn := &models.Transaction{
		GroupID:            groupID,
		WarehouseID:        meta.WarehouseID,
		RelatedWarehouseID: meta.RelatedWarehouseID,
		ItemID:             list[0].item.ID,
		ItemNameSnapshot:   payload,
		Quantity:           total,
		Type:               meta.Type,
		Date:               meta.Date,
		UserName:           meta.UserName,
		Notes:              meta.Notes,
	}
	if err := tx.CreateTransaction(ctx, txn); err != nil {
		return nil, err
	}
	return []*models.Transaction{txn}, nil
}

// recordTransfer creates the dual-entry pair. Both entries carry the
// identical snapshot payload built from the target-side quantities.
func (e *Engine) recordTransfer(ctx context.Context, tx Tx, list []resolved, meta Meta, groupID string) ([]*models.Transaction, error) {
	target := *meta.RelatedWarehouseID

	var sourceList, targetList []resolved
	sourceTotal, targetTotal := 0, 0
	for _, r := range list {
		switch {
		case r.item.WarehouseID == meta.WarehouseID && r.entry.Delta < 0:
			sourceList = append(sourceList, r)
			sourceTotal += r.entry.Delta
		case r.item.WarehouseID == target && r.entry.Delta > 0:
			targetList = append(targetList, r)
			targetTotal += r.entry.Delta
		default:
			return nil, fmt.Errorf("transfer mutation must decrease source or increase target: %w", models.ErrValidation)
		}
	}
	if len(sourceList) == 0 || len(targetList) == 0 || sourceTotal+targetTotal != 0 {
		return nil, fmt.Errorf("transfer sides do not balance (source %d, target %d): %w",
			sourceTotal, targetTotal, models.ErrValidation)
	}

	entries := make([]snapshot.Entry, len(targetList))
	for i, r := range targetList {
		entries[i] = r.entry
	}
	payload, err := snapshot.Encode(models.TxTypeTransfer, entries)
	if err != nil {
		return nil, err
	}

	sourceTxn := &models.Transaction{
		GroupID:            groupID,
		WarehouseID:        meta.WarehouseID,
		RelatedWarehouseID: &target,
		ItemID:             sourceList[0].item.ID,
		ItemNameSnapshot:   payload,
		Quantity:           sourceTotal,
		Type:               models.TxTypeTransfer,
		Date:               meta.Date,
		UserName:           meta.UserName,
		Notes:              meta.Notes,
	}
	targetTxn := &models.Transaction{
		GroupID:            groupID,
		WarehouseID:        target,
		RelatedWarehouseID: &meta.WarehouseID,
		ItemID:             targetList[0].item.ID,
		ItemNameSnapshot:   payload,
		Quantity:           targetTotal,
		Type:               models.TxTypeTransfer,
		Date:               meta.Date,
		UserName:           meta.UserName,
		Notes:              meta.Notes,
	}

	if err := tx.CreateTransaction(ctx, sourceTxn); err != nil {
		return nil, err
	}
	if err := tx.CreateTransaction(ctx, targetTxn); err != nil {
		return nil, err
	}
	return []*models.Transaction{sourceTxn, targetTxn}, nil
}
