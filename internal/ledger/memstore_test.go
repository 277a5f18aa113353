package ledger

import (
	"context"
	"fmt"
	"sort"

	"litewms/internal/models"
)

// memStore is an in-memory ledger.Store for engine tests. RunInTx
// works on a deep copy and swaps it in only on success, mirroring the
// all-or-nothing contract of the database store.
type memStore struct {
	state *memState
}

type memState struct {
	items      map[int64]*models.InventoryItem
	categories map[int64]*models.Category
	txns       map[int64]*models.Transaction
	nextItemID int64
	nextTxnID  int64
}

func newMemStore(categories ...*models.Category) *memStore {
	st := &memState{
		items:      map[int64]*models.InventoryItem{},
		categories: map[int64]*models.Category{},
		txns:       map[int64]*models.Transaction{},
		nextItemID: 1,
		nextTxnID:  1,
	}
	for _, c := range categories {
		st.categories[c.ID] = c
	}
	return &memStore{state: st}
}

func (m *memStore) RunInTx(_ context.Context, fn func(tx Tx) error) error {
	work := m.state.clone()
	if err := fn(&memTx{s: work}); err != nil {
		return err
	}
	m.state = work
	return nil
}

// seedItem adds an item outside any ledger transaction
func (m *memStore) seedItem(warehouseID, categoryID int64, sp map[string]string, qty int) *models.InventoryItem {
	item := &models.InventoryItem{
		ID:          m.state.nextItemID,
		WarehouseID: warehouseID,
		CategoryID:  categoryID,
		Specs:       sp,
		Quantity:    qty,
	}
	m.state.nextItemID++
	m.state.items[item.ID] = item
	return item
}

func (m *memStore) item(id int64) *models.InventoryItem {
	return m.state.items[id]
}

func (m *memStore) deleteItem(id int64) {
	delete(m.state.items, id)
}

func (m *memStore) itemCount() int {
	return len(m.state.items)
}

func (m *memStore) txnCount() int {
	return len(m.state.txns)
}

func (s *memState) clone() *memState {
	out := &memState{
		items:      make(map[int64]*models.InventoryItem, len(s.items)),
		categories: s.categories,
		txns:       make(map[int64]*models.Transaction, len(s.txns)),
		nextItemID: s.nextItemID,
		nextTxnID:  s.nextTxnID,
	}
	for id, item := range s.items {
		out.items[id] = copyItem(item)
	}
	for id, txn := range s.txns {
		out.txns[id] = copyTxn(txn)
	}
	return out
}

func copyItem(item *models.InventoryItem) *models.InventoryItem {
	cp := *item
	cp.Specs = make(map[string]string, len(item.Specs))
	for k, v := range item.Specs {
		cp.Specs[k] = v
	}
	return &cp
}

func copyTxn(txn *models.Transaction) *models.Transaction {
	cp := *txn
	if txn.RelatedWarehouseID != nil {
		v := *txn.RelatedWarehouseID
		cp.RelatedWarehouseID = &v
	}
	if txn.RevertsTransactionID != nil {
		v := *txn.RevertsTransactionID
		cp.RevertsTransactionID = &v
	}
	return &cp
}

type memTx struct {
	s *memState
}

func (t *memTx) GetItemForUpdate(_ context.Context, id int64) (*models.InventoryItem, error) {
	item, ok := t.s.items[id]
	if !ok {
		return nil, fmt.Errorf("item %d: %w", id, models.ErrNotFound)
	}
	return copyItem(item), nil
}

func (t *memTx) FindItemBySpec(_ context.Context, warehouseID, categoryID int64, sp map[string]string) (*models.InventoryItem, error) {
	ids := make([]int64, 0, len(t.s.items))
	for id := range t.s.items {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		item := t.s.items[id]
		if item.WarehouseID == warehouseID && item.CategoryID == categoryID && sameSpec(item.Specs, sp) {
			return copyItem(item), nil
		}
	}
	return nil, nil
}

func sameSpec(a, b map[string]string) bool {
	if len(a) != len(b) {
		return false
	}
	for k, av := range a {
		if bv, ok := b[k]; !ok || av != bv {
			return false
		}
	}
	return true
}

func (t *memTx) CreateItem(_ context.Context, item *models.InventoryItem) error {
	if item.Quantity < 0 {
		return fmt.Errorf("negative quantity: %w", models.ErrValidation)
	}
	item.ID = t.s.nextItemID
	t.s.nextItemID++
	t.s.items[item.ID] = copyItem(item)
	return nil
}

func (t *memTx) SetItemQuantity(_ context.Context, id int64, quantity int) error {
	item, ok := t.s.items[id]
	if !ok {
		return fmt.Errorf("item %d: %w", id, models.ErrNotFound)
	}
	if quantity < 0 {
		return fmt.Errorf("negative quantity: %w", models.ErrValidation)
	}
	item.Quantity = quantity
	return nil
}

func (t *memTx) GetCategory(_ context.Context, id int64) (*models.Category, error) {
	cat, ok := t.s.categories[id]
	if !ok {
		return nil, fmt.Errorf("category %d: %w", id, models.ErrNotFound)
	}
	return cat, nil
}

func (t *memTx) GetCategoryByName(_ context.Context, name string) (*models.Category, error) {
	for _, cat := range t.s.categories {
		if cat.Name == name {
			return cat, nil
		}
	}
	return nil, fmt.Errorf("category %q: %w", name, models.ErrNotFound)
}

func (t *memTx) GetTransaction(_ context.Context, id int64) (*models.Transaction, error) {
	txn, ok := t.s.txns[id]
	if !ok {
		return nil, fmt.Errorf("transaction %d: %w", id, models.ErrNotFound)
	}
	return copyTxn(txn), nil
}

func (t *memTx) GetTransactionsByGroup(_ context.Context, groupID string) ([]models.Transaction, error) {
	ids := make([]int64, 0, len(t.s.txns))
	for id, txn := range t.s.txns {
		if txn.GroupID == groupID {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	out := make([]models.Transaction, 0, len(ids))
	for _, id := range ids {
		out = append(out, *copyTxn(t.s.txns[id]))
	}
	return out, nil
}

func (t *memTx) FindRevertOf(_ context.Context, transactionID int64) (*models.Transaction, error) {
	for _, txn := range t.s.txns {
		if txn.RevertsTransactionID != nil && *txn.RevertsTransactionID == transactionID {
			return copyTxn(txn), nil
		}
	}
	return nil, nil
}

func (t *memTx) CreateTransaction(_ context.Context, txn *models.Transaction) error {
	txn.ID = t.s.nextTxnID
	t.s.nextTxnID++
	t.s.txns[txn.ID] = copyTxn(txn)
	return nil
}
