// Package snapshot encodes and decodes the multi-item payload stored
// in a transaction's item_name_snapshot column. The payload is the
// authoritative record of which items a transaction touched; the
// transaction's item_id column only names one representative item.
package snapshot

import (
	"encoding/json"
	"fmt"
	"strings"

	"litewms/internal/models"
)

// Snapshot type tags
const (
	TypeInbound  = "MULTI_ITEM_INBOUND"
	TypeOutbound = "MULTI_ITEM_OUTBOUND"
	TypeAdjust   = "MULTI_ITEM_ADJUST"
	TypeTransfer = "MULTI_ITEM_TRANSFER"

	revertPrefix = "MULTI_ITEM_REVERT_"
)

// Item is one affected item inside a snapshot. IN/OUT/TRANSFER
// snapshots carry Quantity (always non-negative, the sign lives on the
// transaction record); ADJUST and revert snapshots carry the signed
// QuantityDiff instead.
type Item struct {
	CategoryName string            `json:"category_name"`
	Specs        map[string]string `json:"specs"`
	Quantity     *int              `json:"quantity,omitempty"`
	QuantityDiff *int              `json:"quantity_diff,omitempty"`
}

// Snapshot is the decoded item_name_snapshot payload
type Snapshot struct {
	Type              string `json:"type"`
	Items             []Item `json:"items"`
	OriginalItems     []Item `json:"original_items,omitempty"`
	TotalQuantity     *int   `json:"total_quantity,omitempty"`
	TotalQuantityDiff *int   `json:"total_quantity_diff,omitempty"`
	Reverted          bool   `json:"reverted,omitempty"`

	// Legacy marks payloads recovered from the old single-item string
	// format. Display only, never usable for quantity math.
	Legacy bool `json:"-"`
}

// Entry is one item mutation to encode: a signed delta plus the
// pre-mutation item metadata.
type Entry struct {
	CategoryName string
	Specs        map[string]string
	Delta        int
}

// TypeForTx maps a transaction type to its snapshot type tag
func TypeForTx(txType string) (string, error) {
	switch txType {
	case models.TxTypeIn:
		return TypeInbound, nil
	case models.TxTypeOut:
		return TypeOutbound, nil
	case models.TxTypeAdjust:
		return TypeAdjust, nil
	case models.TxTypeTransfer:
		return TypeTransfer, nil
	}
	return "", fmt.Errorf("unknown transaction type %q: %w", txType, models.ErrValidation)
}

// RevertTypeForTx returns the snapshot type tag of a revert of txType
func RevertTypeForTx(txType string) string {
	return revertPrefix + txType
}

// IsRevert reports whether the snapshot records a revert entry
func (s *Snapshot) IsRevert() bool {
	return s.Reverted || strings.HasPrefix(s.Type, revertPrefix)
}

// Encode builds the snapshot payload for a commit. Entries carry
// signed deltas; IN/OUT/TRANSFER payloads store absolute quantities
// and their sum, ADJUST stores the signed diffs and their sum.
func Encode(txType string, entries []Entry) (string, error) {
	snapType, err := TypeForTx(txType)
	if err != nil {
		return "", err
	}

	snap := Snapshot{Type: snapType, Items: make([]Item, 0, len(entries))}

	if txType == models.TxTypeAdjust {
		total := 0
		for _, e := range entries {
			d := e.Delta
			snap.Items = append(snap.Items, Item{
				CategoryName: e.CategoryName,
				Specs:        e.Specs,
				QuantityDiff: intPtr(d),
			})
			total += d
		}
		snap.TotalQuantityDiff = intPtr(total)
	} else {
		total := 0
		for _, e := range entries {
			q := e.Delta
			if q < 0 {
				q = -q
			}
			snap.Items = append(snap.Items, Item{
				CategoryName: e.CategoryName,
				Specs:        e.Specs,
				Quantity:     intPtr(q),
			})
			total += q
		}
		snap.TotalQuantity = intPtr(total)
	}

	raw, err := json.Marshal(snap)
	if err != nil {
		return "", fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	return string(raw), nil
}

// EncodeRevert builds the payload of a revert entry: the original item
// list verbatim, plus the sign-inverted deltas as quantity_diff items.
func EncodeRevert(origTxType string, original *Snapshot, inverse []Entry) (string, error) {
	snap := Snapshot{
		Type:          RevertTypeForTx(origTxType),
		OriginalItems: original.Items,
		Items:         make([]Item, 0, len(inverse)),
		Reverted:      true,
	}

	total := 0
	for _, e := range inverse {
		d := e.Delta
		snap.Items = append(snap.Items, Item{
			CategoryName: e.CategoryName,
			Specs:        e.Specs,
			QuantityDiff: intPtr(d),
		})
		total += d
	}
	snap.TotalQuantityDiff = intPtr(total)

	raw, err := json.Marshal(snap)
	if err != nil {
		return "", fmt.Errorf("failed to marshal revert snapshot: %w", err)
	}
	return string(raw), nil
}

// Decode parses an item_name_snapshot value. Falls back to the legacy
// "<category_name> - <json specs>" single-item string, and finally to
// treating the whole value as an opaque category name.
func Decode(raw string) (*Snapshot, error) {
	var snap Snapshot
	if err := json.Unmarshal([]byte(raw), &snap); err == nil && snap.Type != "" {
		return &snap, nil
	}

	if idx := strings.Index(raw, " - "); idx > 0 {
		var sp map[string]string
		if err := json.Unmarshal([]byte(raw[idx+3:]), &sp); err == nil {
			return &Snapshot{
				Legacy: true,
				Items:  []Item{{CategoryName: raw[:idx], Specs: sp}},
			}, nil
		}
	}

	return &Snapshot{
		Legacy: true,
		Items:  []Item{{CategoryName: raw}},
	}, nil
}

// Deltas recovers the signed per-item deltas of a committed snapshot.
// txQuantity is the owning transaction's signed quantity; for TRANSFER
// its sign tells which side of the pair this snapshot belongs to.
// Revert and legacy snapshots carry no recoverable deltas.
func (s *Snapshot) Deltas(txQuantity int) ([]Entry, error) {
	if s.Legacy {
		return nil, fmt.Errorf("legacy snapshot has no deltas: %w", models.ErrValidation)
	}
	if s.IsRevert() {
		return nil, fmt.Errorf("revert snapshot has no deltas: %w", models.ErrInvalidRevert)
	}

	sign := 1
	switch s.Type {
	case TypeInbound:
	case TypeOutbound:
		sign = -1
	case TypeTransfer:
		if txQuantity < 0 {
			sign = -1
		}
	case TypeAdjust:
		sign = 0
	default:
		return nil, fmt.Errorf("unknown snapshot type %q: %w", s.Type, models.ErrValidation)
	}

	entries := make([]Entry, 0, len(s.Items))
	for i, it := range s.Items {
		var d int
		switch {
		case sign == 0:
			if it.QuantityDiff == nil {
				return nil, fmt.Errorf("adjust snapshot item %d misses quantity_diff: %w", i, models.ErrValidation)
			}
			d = *it.QuantityDiff
		default:
			if it.Quantity == nil {
				return nil, fmt.Errorf("snapshot item %d misses quantity: %w", i, models.ErrValidation)
			}
			d = sign * *it.Quantity
		}
		entries = append(entries, Entry{
			CategoryName: it.CategoryName,
			Specs:        it.Specs,
			Delta:        d,
		})
	}
	return entries, nil
}

func intPtr(v int) *int { return &v }
