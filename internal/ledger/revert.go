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

// Revert undoes a prior transaction by applying the inverse of every
// delta it recorded. A transaction can be reverted at most once, and a
// revert entry can never be reverted. For a TRANSFER both sides of the
// pair are undone in the same unit of work. The original records stay
// untouched: the revert is a new pair of append-only entries, each
// pointing at the record it undoes via reverts_transaction_id.
func (e *Engine) Revert(ctx context.Context, transactionID int64, user, notes string) (*Result, error) {
	ctx, span := util.StartSpan(ctx, "Engine.Revert")
	defer span.End()

	start := time.Now()
	var result *Result
	err := e.store.RunInTx(ctx, func(tx Tx) error {
		res, err := e.revertTx(ctx, tx, transactionID, user, notes)
		if err != nil {
			return err
		}
		result = res
		return nil
	})
	util.LedgerRevertLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		util.RevertsFailedTotal.WithLabelValues(util.FailureReason(err)).Inc()
		return nil, err
	}

	util.RevertsTotal.Inc()
	e.logger.Info("Ledger revert",
		zap.Int64("transaction_id", transactionID),
		zap.String("user", user))
	return result, nil
}

func (e *Engine) revertTx(ctx context.Context, tx Tx, transactionID int64, user, notes string) (*Result, error) {
	orig, err := tx.GetTransaction(ctx, transactionID)
	if err != nil {
		return nil, err
	}

	group, err := tx.GetTransactionsByGroup(ctx, orig.GroupID)
	if err != nil {
		return nil, err
	}

	// Pre-check the whole group so a transfer is never half-reverted.
	decoded := make([]*snapshot.Snapshot, len(group))
	for i := range group {
		snap, err := snapshot.Decode(group[i].ItemNameSnapshot)
		if err != nil {
			return nil, err
		}
		if snap.Legacy {
			return nil, fmt.Errorf("transaction %d has a legacy snapshot: %w",
				group[i].ID, models.ErrInvalidRevert)
		}
		if snap.IsRevert() || group[i].RevertsTransactionID != nil {
			return nil, fmt.Errorf("transaction %d is itself a revert: %w",
				group[i].ID, models.ErrInvalidRevert)
		}
		prior, err := tx.FindRevertOf(ctx, group[i].ID)
		if err != nil {
			return nil, err
		}
		if prior != nil {
			return nil, fmt.Errorf("transaction %d was already reverted by %d: %w",
				group[i].ID, prior.ID, models.ErrInvalidRevert)
		}
		decoded[i] = snap
	}

	// Resolve inverse mutations for every record in the group, then
	// apply them under the same pre-validate-then-apply rule as Commit.
	var all []resolved
	perRecord := make([][]snapshot.Entry, len(group))
	for i := range group {
		originals, err := decoded[i].Deltas(group[i].Quantity)
		if err != nil {
			return nil, err
		}
		inverse := make([]snapshot.Entry, len(originals))
		for j, entry := range originals {
			entry.Delta = -entry.Delta
			inverse[j] = entry

			item, err := e.resolveByEntry(ctx, tx, group[i].WarehouseID, entry)
			if err != nil {
				return nil, err
			}
			all = append(all, resolved{item: item, entry: entry})
		}
		perRecord[i] = inverse
	}

	applied, err := e.applyDeltas(ctx, tx, all)
	if err != nil {
		return nil, err
	}

	groupID := uuid.New().String()
	now := time.Now()
	txns := make([]*models.Transaction, 0, len(group))
	for i := range group {
		payload, err := snapshot.EncodeRevert(group[i].Type, decoded[i], perRecord[i])
		if err != nil {
			return nil, err
		}
		origID := group[i].ID
		txn := &models.Transaction{
			GroupID:              groupID,
			WarehouseID:          group[i].WarehouseID,
			RelatedWarehouseID:   group[i].RelatedWarehouseID,
			ItemID:               group[i].ItemID,
			ItemNameSnapshot:     payload,
			Quantity:             -group[i].Quantity,
			Type:                 group[i].Type,
			Date:                 now,
			UserName:             user,
			Notes:                notes,
			RevertsTransactionID: &origID,
		}
		if err := tx.CreateTransaction(ctx, txn); err != nil {
			return nil, err
		}
		txns = append(txns, txn)
	}

	return &Result{Transactions: txns, Items: applied}, nil
}

// resolveByEntry locates the current item behind a snapshot entry.
// When an inbound is reverted after the item was removed there is
// nothing to take stock from; when stock is being restored the SKU is
// re-created at zero, mirroring a transfer-in.
func (e *Engine) resolveByEntry(ctx context.Context, tx Tx, warehouseID int64, entry snapshot.Entry) (*models.InventoryItem, error) {
	cat, err := tx.GetCategoryByName(ctx, entry.CategoryName)
	if err != nil {
		return nil, err
	}

	item, err := tx.FindItemBySpec(ctx, warehouseID, cat.ID, entry.Specs)
	if err != nil {
		return nil, err
	}
	if item != nil {
		item, err = tx.GetItemForUpdate(ctx, item.ID)
		if err != nil {
			return nil, err
		}
		return item, nil
	}

	if entry.Delta < 0 {
		return nil, fmt.Errorf("item %s %v no longer exists: %w",
			entry.CategoryName, entry.Specs, models.ErrInsufficientStock)
	}
	item = &models.InventoryItem{
		WarehouseID: warehouseID,
		CategoryID:  cat.ID,
		Specs:       entry.Specs,
		Quantity:    0,
	}
	if err := tx.CreateItem(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}
