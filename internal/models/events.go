package models

import "time"

// Event types published to the stock audit stream
const (
	EventTypeStockCommitted = "STOCK_COMMITTED"
	EventTypeStockReverted  = "STOCK_REVERTED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// StockItemData describes one affected item inside an event
type StockItemData struct {
	ItemID      int64  `json:"item_id"`
	WarehouseID int64  `json:"warehouse_id"`
	Delta       int    `json:"delta"`
	NewQuantity int    `json:"new_quantity"`
}

// StockCommittedEvent published after a ledger commit succeeds
type StockCommittedEvent struct {
	BaseEvent
	TransactionIDs []int64         `json:"transaction_ids"`
	GroupID        string          `json:"group_id"`
	WarehouseID    int64           `json:"warehouse_id"`
	TxType         string          `json:"tx_type"`
	UserName       string          `json:"user"`
	Items          []StockItemData `json:"items"`
}

// StockRevertedEvent published after a revert succeeds
type StockRevertedEvent struct {
	BaseEvent
	TransactionIDs []int64         `json:"transaction_ids"`
	RevertedIDs    []int64         `json:"reverted_ids"`
	WarehouseID    int64           `json:"warehouse_id"`
	UserName       string          `json:"user"`
	Items          []StockItemData `json:"items"`
}
