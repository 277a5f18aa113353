package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Warehouse is a physical stock location
type Warehouse struct {
	ID        int64     `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// AttributeDefinition describes one attribute of a category schema.
// An empty Options list means any free-text value is accepted.
type AttributeDefinition struct {
	Name    string   `json:"name"`
	Options []string `json:"options"`
}

// AttributeList is the category schema stored as a JSON column
type AttributeList []AttributeDefinition

func (a AttributeList) Value() (driver.Value, error) {
	if a == nil {
		return "[]", nil
	}
	return json.Marshal(a)
}

func (a *AttributeList) Scan(src interface{}) error {
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, a)
	case string:
		return json.Unmarshal([]byte(v), a)
	case nil:
		*a = nil
		return nil
	}
	return fmt.Errorf("cannot scan %T into AttributeList", src)
}

// Category groups items and defines the attribute schema for them
type Category struct {
	ID         int64         `db:"id" json:"id"`
	Name       string        `db:"name" json:"name"`
	Attributes AttributeList `db:"attributes" json:"attributes"`
	CreatedAt  time.Time     `db:"created_at" json:"created_at"`
}

// SpecMap holds an item's attribute values, stored as a JSON column
type SpecMap map[string]string

func (s SpecMap) Value() (driver.Value, error) {
	if s == nil {
		return "{}", nil
	}
	return json.Marshal(s)
}

func (s *SpecMap) Scan(src interface{}) error {
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, s)
	case string:
		return json.Unmarshal([]byte(v), s)
	case nil:
		*s = nil
		return nil
	}
	return fmt.Errorf("cannot scan %T into SpecMap", src)
}

// InventoryItem is one SKU: a warehouse+category+specs identity with a
// non-negative quantity. Quantity changes only through the ledger.
type InventoryItem struct {
	ID          int64     `db:"id" json:"id"`
	WarehouseID int64     `db:"warehouse_id" json:"warehouse_id"`
	CategoryID  int64     `db:"category_id" json:"category_id"`
	Specs       SpecMap   `db:"specs" json:"specs"`
	Quantity    int       `db:"quantity" json:"quantity"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// Transaction types
const (
	TxTypeIn       = "IN"
	TxTypeOut      = "OUT"
	TxTypeAdjust   = "ADJUST"
	TxTypeTransfer = "TRANSFER"
)

// Transaction is one append-only ledger entry. Quantity is signed:
// positive increases stock at WarehouseID, negative decreases it.
// A TRANSFER always produces two entries sharing a GroupID, one per
// side. A revert entry carries RevertsTransactionID pointing at the
// entry it undoes; entries are never edited after creation.
type Transaction struct {
	ID                   int64      `db:"id" json:"id"`
	GroupID              string     `db:"group_id" json:"group_id"`
	WarehouseID          int64      `db:"warehouse_id" json:"warehouse_id"`
	RelatedWarehouseID   *int64     `db:"related_warehouse_id" json:"related_warehouse_id,omitempty"`
	ItemID               int64      `db:"item_id" json:"item_id"`
	ItemNameSnapshot     string     `db:"item_name_snapshot" json:"item_name_snapshot"`
	Quantity             int        `db:"quantity" json:"quantity"`
	Type                 string     `db:"type" json:"type"`
	Date                 time.Time  `db:"date" json:"date"`
	UserName             string     `db:"user_name" json:"user"`
	Notes                string     `db:"notes" json:"notes"`
	RevertsTransactionID *int64     `db:"reverts_transaction_id" json:"reverts_transaction_id,omitempty"`
	CreatedAt            time.Time  `db:"created_at" json:"created_at"`
}
