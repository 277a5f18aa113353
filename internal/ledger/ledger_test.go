package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"litewms/internal/models"
	"litewms/internal/snapshot"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fiberCat = &models.Category{ID: 1, Name: "Fiber", Attributes: models.AttributeList{
	{Name: "length", Options: []string{"3m", "5m", "10m"}},
}}

func newEngineWithStore(t *testing.T) (*Engine, *memStore) {
	t.Helper()
	st := newMemStore(fiberCat)
	return NewEngine(st), st
}

func meta(txType string, warehouseID int64) Meta {
	return Meta{
		Type:        txType,
		WarehouseID: warehouseID,
		Date:        time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC),
		UserName:    "alice",
		Notes:       "test",
	}
}

func TestCommitInboundCreatesAndMergesSKU(t *testing.T) {
	engine, st := newEngineWithStore(t)
	ctx := context.Background()

	byCategory := Mutation{
		WarehouseID: 1,
		CategoryID:  fiberCat.ID,
		Specs:       map[string]string{"length": "3m"},
		Delta:       10,
	}

	result, err := engine.Commit(ctx, []Mutation{byCategory}, meta(models.TxTypeIn, 1))
	require.NoError(t, err)
	require.Len(t, result.Transactions, 1)
	assert.Equal(t, 10, result.Transactions[0].Quantity)
	assert.Equal(t, models.TxTypeIn, result.Transactions[0].Type)
	assert.Equal(t, 1, st.itemCount())

	// identical specs again: merge into the same SKU, never a duplicate
	byCategory.Delta = 5
	_, err = engine.Commit(ctx, []Mutation{byCategory}, meta(models.TxTypeIn, 1))
	require.NoError(t, err)
	assert.Equal(t, 1, st.itemCount())
	assert.Equal(t, 15, st.item(1).Quantity)

	// different specs create a second SKU
	_, err = engine.Commit(ctx, []Mutation{{
		WarehouseID: 1,
		CategoryID:  fiberCat.ID,
		Specs:       map[string]string{"length": "5m"},
		Delta:       3,
	}}, meta(models.TxTypeIn, 1))
	require.NoError(t, err)
	assert.Equal(t, 2, st.itemCount())
}

func TestCommitOutboundScenario(t *testing.T) {
	engine, st := newEngineWithStore(t)
	ctx := context.Background()
	item := st.seedItem(1, fiberCat.ID, map[string]string{"length": "3m"}, 10)

	result, err := engine.Commit(ctx, []Mutation{{ItemID: item.ID, Delta: -4}},
		meta(models.TxTypeOut, 1))
	require.NoError(t, err)

	assert.Equal(t, 6, st.item(item.ID).Quantity)

	txn := result.Transactions[0]
	assert.Equal(t, -4, txn.Quantity)
	assert.Equal(t, models.TxTypeOut, txn.Type)
	assert.Equal(t, item.ID, txn.ItemID)

	snap, err := snapshot.Decode(txn.ItemNameSnapshot)
	require.NoError(t, err)
	assert.Equal(t, snapshot.TypeOutbound, snap.Type)
	require.Len(t, snap.Items, 1)
	assert.Equal(t, "Fiber", snap.Items[0].CategoryName)
	assert.Equal(t, map[string]string{"length": "3m"}, snap.Items[0].Specs)
	assert.Equal(t, 4, *snap.Items[0].Quantity)
	assert.Equal(t, 4, *snap.TotalQuantity)
}

func TestCommitInsufficientStockIsAtomic(t *testing.T) {
	engine, st := newEngineWithStore(t)
	ctx := context.Background()
	a := st.seedItem(1, fiberCat.ID, map[string]string{"length": "3m"}, 10)
	b := st.seedItem(1, fiberCat.ID, map[string]string{"length": "5m"}, 2)

	// second mutation fails validation, so the first must not apply
	_, err := engine.Commit(ctx, []Mutation{
		{ItemID: a.ID, Delta: -5},
		{ItemID: b.ID, Delta: -3},
	}, meta(models.TxTypeOut, 1))
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrInsufficientStock))

	assert.Equal(t, 10, st.item(a.ID).Quantity)
	assert.Equal(t, 2, st.item(b.ID).Quantity)
	assert.Equal(t, 0, st.txnCount())
}

func TestCommitOutboundOfMissingSKU(t *testing.T) {
	engine, _ := newEngineWithStore(t)

	_, err := engine.Commit(context.Background(), []Mutation{{
		WarehouseID: 1,
		CategoryID:  fiberCat.ID,
		Specs:       map[string]string{"length": "3m"},
		Delta:       -1,
	}}, meta(models.TxTypeOut, 1))
	assert.True(t, errors.Is(err, models.ErrInsufficientStock))
}

func TestCommitAdjust(t *testing.T) {
	engine, st := newEngineWithStore(t)
	ctx := context.Background()
	a := st.seedItem(1, fiberCat.ID, map[string]string{"length": "3m"}, 10)
	b := st.seedItem(1, fiberCat.ID, map[string]string{"length": "5m"}, 2)

	result, err := engine.Commit(ctx, []Mutation{
		{ItemID: a.ID, Delta: -4},
		{ItemID: b.ID, Delta: 7},
	}, meta(models.TxTypeAdjust, 1))
	require.NoError(t, err)

	assert.Equal(t, 6, st.item(a.ID).Quantity)
	assert.Equal(t, 9, st.item(b.ID).Quantity)

	txn := result.Transactions[0]
	assert.Equal(t, 3, txn.Quantity)

	snap, err := snapshot.Decode(txn.ItemNameSnapshot)
	require.NoError(t, err)
	assert.Equal(t, snapshot.TypeAdjust, snap.Type)
	assert.Equal(t, -4, *snap.Items[0].QuantityDiff)
	assert.Equal(t, 7, *snap.Items[1].QuantityDiff)
	assert.Equal(t, 3, *snap.TotalQuantityDiff)
}

func TestCommitValidation(t *testing.T) {
	engine, st := newEngineWithStore(t)
	ctx := context.Background()
	item := st.seedItem(1, fiberCat.ID, map[string]string{"length": "3m"}, 10)

	_, err := engine.Commit(ctx, nil, meta(models.TxTypeIn, 1))
	assert.True(t, errors.Is(err, models.ErrValidation))

	_, err = engine.Commit(ctx, []Mutation{{ItemID: item.ID, Delta: 0}}, meta(models.TxTypeIn, 1))
	assert.True(t, errors.Is(err, models.ErrValidation))

	_, err = engine.Commit(ctx, []Mutation{{ItemID: item.ID, Delta: 1}}, meta("BOGUS", 1))
	assert.True(t, errors.Is(err, models.ErrValidation))

	// transfer without a target warehouse
	_, err = engine.Commit(ctx, []Mutation{{ItemID: item.ID, Delta: -1}},
		meta(models.TxTypeTransfer, 1))
	assert.True(t, errors.Is(err, models.ErrValidation))

	// transfer back into the source warehouse
	_, err = engine.Commit(ctx, []Mutation{{ItemID: item.ID, Delta: -1}},
		transferMeta(1, 1))
	assert.True(t, errors.Is(err, models.ErrValidation))

	// item from another warehouse in a single-warehouse commit
	other := st.seedItem(2, fiberCat.ID, map[string]string{"length": "5m"}, 4)
	_, err = engine.Commit(ctx, []Mutation{{ItemID: other.ID, Delta: 1}}, meta(models.TxTypeIn, 1))
	assert.True(t, errors.Is(err, models.ErrValidation))
}

func transferMeta(source, target int64) Meta {
	m := meta(models.TxTypeTransfer, source)
	m.RelatedWarehouseID = &target
	return m
}

func TestCommitTransferDualEntry(t *testing.T) {
	engine, st := newEngineWithStore(t)
	ctx := context.Background()
	src := st.seedItem(1, fiberCat.ID, map[string]string{"length": "3m"}, 10)

	result, err := engine.Commit(ctx, []Mutation{
		{ItemID: src.ID, Delta: -4},
		{WarehouseID: 2, CategoryID: fiberCat.ID, Specs: map[string]string{"length": "3m"}, Delta: 4},
	}, transferMeta(1, 2))
	require.NoError(t, err)

	// quantity conservation across the pair
	assert.Equal(t, 6, st.item(src.ID).Quantity)
	target := st.item(2)
	require.NotNil(t, target)
	assert.Equal(t, int64(2), target.WarehouseID)
	assert.Equal(t, 4, target.Quantity)

	require.Len(t, result.Transactions, 2)
	out, in := result.Transactions[0], result.Transactions[1]

	assert.Equal(t, -4, out.Quantity)
	assert.Equal(t, int64(1), out.WarehouseID)
	require.NotNil(t, out.RelatedWarehouseID)
	assert.Equal(t, int64(2), *out.RelatedWarehouseID)

	assert.Equal(t, 4, in.Quantity)
	assert.Equal(t, int64(2), in.WarehouseID)
	require.NotNil(t, in.RelatedWarehouseID)
	assert.Equal(t, int64(1), *in.RelatedWarehouseID)

	assert.Equal(t, out.GroupID, in.GroupID)
	assert.Equal(t, out.ItemNameSnapshot, in.ItemNameSnapshot)
	assert.Equal(t, out.Date, in.Date)
	assert.Equal(t, out.UserName, in.UserName)

	snap, err := snapshot.Decode(out.ItemNameSnapshot)
	require.NoError(t, err)
	assert.Equal(t, snapshot.TypeTransfer, snap.Type)
	assert.Equal(t, 4, *snap.TotalQuantity)
}

func TestCommitTransferMergesAtTarget(t *testing.T) {
	engine, st := newEngineWithStore(t)
	ctx := context.Background()
	src := st.seedItem(1, fiberCat.ID, map[string]string{"length": "3m"}, 10)
	dst := st.seedItem(2, fiberCat.ID, map[string]string{"length": "3m"}, 1)

	_, err := engine.Commit(ctx, []Mutation{
		{ItemID: src.ID, Delta: -4},
		{WarehouseID: 2, CategoryID: fiberCat.ID, Specs: map[string]string{"length": "3m"}, Delta: 4},
	}, transferMeta(1, 2))
	require.NoError(t, err)

	assert.Equal(t, 2, st.itemCount())
	assert.Equal(t, 5, st.item(dst.ID).Quantity)
}

func TestCommitTransferUnbalanced(t *testing.T) {
	engine, st := newEngineWithStore(t)
	ctx := context.Background()
	src := st.seedItem(1, fiberCat.ID, map[string]string{"length": "3m"}, 10)

	_, err := engine.Commit(ctx, []Mutation{
		{ItemID: src.ID, Delta: -4},
		{WarehouseID: 2, CategoryID: fiberCat.ID, Specs: map[string]string{"length": "3m"}, Delta: 3},
	}, transferMeta(1, 2))
	assert.True(t, errors.Is(err, models.ErrValidation))
	assert.Equal(t, 10, st.item(src.ID).Quantity)
}

func TestRevertOutbound(t *testing.T) {
	engine, st := newEngineWithStore(t)
	ctx := context.Background()
	item := st.seedItem(1, fiberCat.ID, map[string]string{"length": "3m"}, 10)

	committed, err := engine.Commit(ctx, []Mutation{{ItemID: item.ID, Delta: -4}},
		meta(models.TxTypeOut, 1))
	require.NoError(t, err)
	assert.Equal(t, 6, st.item(item.ID).Quantity)

	result, err := engine.Revert(ctx, committed.Transactions[0].ID, "bob", "mistake")
	require.NoError(t, err)

	// revert inversion: back to the pre-commit quantity
	assert.Equal(t, 10, st.item(item.ID).Quantity)

	txn := result.Transactions[0]
	assert.Equal(t, 4, txn.Quantity)
	assert.Equal(t, models.TxTypeOut, txn.Type)
	require.NotNil(t, txn.RevertsTransactionID)
	assert.Equal(t, committed.Transactions[0].ID, *txn.RevertsTransactionID)
	assert.Equal(t, "bob", txn.UserName)

	snap, err := snapshot.Decode(txn.ItemNameSnapshot)
	require.NoError(t, err)
	assert.Equal(t, "MULTI_ITEM_REVERT_OUT", snap.Type)
	assert.True(t, snap.Reverted)
	require.Len(t, snap.OriginalItems, 1)
	assert.Equal(t, 4, *snap.OriginalItems[0].Quantity)
	require.Len(t, snap.Items, 1)
	assert.Equal(t, 4, *snap.Items[0].QuantityDiff)
}

func TestRevertRefusals(t *testing.T) {
	engine, st := newEngineWithStore(t)
	ctx := context.Background()
	item := st.seedItem(1, fiberCat.ID, map[string]string{"length": "3m"}, 10)

	committed, err := engine.Commit(ctx, []Mutation{{ItemID: item.ID, Delta: -4}},
		meta(models.TxTypeOut, 1))
	require.NoError(t, err)
	origID := committed.Transactions[0].ID

	reverted, err := engine.Revert(ctx, origID, "bob", "")
	require.NoError(t, err)

	// reverting the same transaction twice always fails
	_, err = engine.Revert(ctx, origID, "bob", "")
	assert.True(t, errors.Is(err, models.ErrInvalidRevert))
	assert.Equal(t, 10, st.item(item.ID).Quantity)

	// revert(revert(T)) always fails
	_, err = engine.Revert(ctx, reverted.Transactions[0].ID, "bob", "")
	assert.True(t, errors.Is(err, models.ErrInvalidRevert))

	// unknown transaction
	_, err = engine.Revert(ctx, 9999, "bob", "")
	assert.True(t, errors.Is(err, models.ErrNotFound))
}

func TestRevertInboundBlockedByConsumedStock(t *testing.T) {
	engine, st := newEngineWithStore(t)
	ctx := context.Background()

	committed, err := engine.Commit(ctx, []Mutation{{
		WarehouseID: 1,
		CategoryID:  fiberCat.ID,
		Specs:       map[string]string{"length": "3m"},
		Delta:       10,
	}}, meta(models.TxTypeIn, 1))
	require.NoError(t, err)

	// consume most of the received stock elsewhere
	_, err = engine.Commit(ctx, []Mutation{{ItemID: 1, Delta: -8}}, meta(models.TxTypeOut, 1))
	require.NoError(t, err)

	_, err = engine.Revert(ctx, committed.Transactions[0].ID, "bob", "")
	assert.True(t, errors.Is(err, models.ErrInsufficientStock))
	assert.Equal(t, 2, st.item(1).Quantity)
}

func TestRevertTransferBothSides(t *testing.T) {
	engine, st := newEngineWithStore(t)
	ctx := context.Background()
	src := st.seedItem(1, fiberCat.ID, map[string]string{"length": "3m"}, 10)

	committed, err := engine.Commit(ctx, []Mutation{
		{ItemID: src.ID, Delta: -4},
		{WarehouseID: 2, CategoryID: fiberCat.ID, Specs: map[string]string{"length": "3m"}, Delta: 4},
	}, transferMeta(1, 2))
	require.NoError(t, err)

	total := st.item(1).Quantity + st.item(2).Quantity
	assert.Equal(t, 10, total)

	// reverting either side undoes the whole pair
	result, err := engine.Revert(ctx, committed.Transactions[1].ID, "bob", "")
	require.NoError(t, err)

	assert.Equal(t, 10, st.item(src.ID).Quantity)
	assert.Equal(t, 0, st.item(2).Quantity)
	require.Len(t, result.Transactions, 2)
	assert.Equal(t, 4, result.Transactions[0].Quantity)
	assert.Equal(t, -4, result.Transactions[1].Quantity)

	// the pair counts as reverted as a whole
	_, err = engine.Revert(ctx, committed.Transactions[0].ID, "bob", "")
	assert.True(t, errors.Is(err, models.ErrInvalidRevert))
}

func TestRevertRecreatesRemovedItem(t *testing.T) {
	engine, st := newEngineWithStore(t)
	ctx := context.Background()
	item := st.seedItem(1, fiberCat.ID, map[string]string{"length": "3m"}, 4)

	committed, err := engine.Commit(ctx, []Mutation{{ItemID: item.ID, Delta: -4}},
		meta(models.TxTypeOut, 1))
	require.NoError(t, err)

	st.deleteItem(item.ID)

	result, err := engine.Revert(ctx, committed.Transactions[0].ID, "bob", "")
	require.NoError(t, err)
	require.Len(t, result.Items, 1)

	restored := st.item(result.Items[0].ItemID)
	require.NotNil(t, restored)
	assert.Equal(t, 4, restored.Quantity)
	assert.Equal(t, models.SpecMap{"length": "3m"}, restored.Specs)
}
