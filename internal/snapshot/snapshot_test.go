package snapshot

import (
	"encoding/json"
	"errors"
	"testing"

	"litewms/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	entries := []Entry{
		{CategoryName: "Fiber", Specs: map[string]string{"length": "3m"}, Delta: 4},
		{CategoryName: "Fiber", Specs: map[string]string{"length": "5m"}, Delta: 2},
	}

	cases := []struct {
		txType    string
		snapType  string
		sign      int
		wantTotal int
	}{
		{models.TxTypeIn, TypeInbound, 1, 6},
		{models.TxTypeOut, TypeOutbound, -1, 6},
		{models.TxTypeTransfer, TypeTransfer, 1, 6},
	}

	for _, tc := range cases {
		t.Run(tc.txType, func(t *testing.T) {
			in := make([]Entry, len(entries))
			copy(in, entries)
			for i := range in {
				in[i].Delta *= tc.sign
			}

			raw, err := Encode(tc.txType, in)
			require.NoError(t, err)

			snap, err := Decode(raw)
			require.NoError(t, err)
			assert.Equal(t, tc.snapType, snap.Type)
			assert.False(t, snap.Legacy)
			assert.False(t, snap.IsRevert())
			require.NotNil(t, snap.TotalQuantity)
			assert.Equal(t, tc.wantTotal, *snap.TotalQuantity)
			require.Len(t, snap.Items, 2)
			assert.Equal(t, 4, *snap.Items[0].Quantity)
			assert.Equal(t, map[string]string{"length": "3m"}, snap.Items[0].Specs)

			got, err := snap.Deltas(tc.sign * tc.wantTotal)
			require.NoError(t, err)
			assert.Equal(t, in, got)
		})
	}
}

func TestEncodeDecodeAdjust(t *testing.T) {
	entries := []Entry{
		{CategoryName: "Fiber", Specs: map[string]string{"length": "3m"}, Delta: -4},
		{CategoryName: "Splitter", Specs: map[string]string{"ratio": "1:8"}, Delta: 7},
	}

	raw, err := Encode(models.TxTypeAdjust, entries)
	require.NoError(t, err)

	snap, err := Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, TypeAdjust, snap.Type)
	require.NotNil(t, snap.TotalQuantityDiff)
	assert.Equal(t, 3, *snap.TotalQuantityDiff)
	require.Len(t, snap.Items, 2)
	assert.Equal(t, -4, *snap.Items[0].QuantityDiff)
	assert.Nil(t, snap.Items[0].Quantity)

	got, err := snap.Deltas(3)
	require.NoError(t, err)
	assert.Equal(t, entries, got)
}

func TestTransferSideSign(t *testing.T) {
	raw, err := Encode(models.TxTypeTransfer, []Entry{
		{CategoryName: "Fiber", Specs: map[string]string{"length": "3m"}, Delta: -5},
	})
	require.NoError(t, err)

	snap, err := Decode(raw)
	require.NoError(t, err)

	// source side: transaction quantity negative
	src, err := snap.Deltas(-5)
	require.NoError(t, err)
	assert.Equal(t, -5, src[0].Delta)

	// target side: identical payload, positive transaction quantity
	dst, err := snap.Deltas(5)
	require.NoError(t, err)
	assert.Equal(t, 5, dst[0].Delta)
}

func TestEncodeRevert(t *testing.T) {
	raw, err := Encode(models.TxTypeOut, []Entry{
		{CategoryName: "Fiber", Specs: map[string]string{"length": "3m"}, Delta: -4},
	})
	require.NoError(t, err)
	orig, err := Decode(raw)
	require.NoError(t, err)

	revRaw, err := EncodeRevert(models.TxTypeOut, orig, []Entry{
		{CategoryName: "Fiber", Specs: map[string]string{"length": "3m"}, Delta: 4},
	})
	require.NoError(t, err)

	rev, err := Decode(revRaw)
	require.NoError(t, err)
	assert.Equal(t, "MULTI_ITEM_REVERT_OUT", rev.Type)
	assert.True(t, rev.Reverted)
	assert.True(t, rev.IsRevert())
	require.Len(t, rev.OriginalItems, 1)
	assert.Equal(t, 4, *rev.OriginalItems[0].Quantity)
	require.Len(t, rev.Items, 1)
	assert.Equal(t, 4, *rev.Items[0].QuantityDiff)
	require.NotNil(t, rev.TotalQuantityDiff)
	assert.Equal(t, 4, *rev.TotalQuantityDiff)

	_, err = rev.Deltas(4)
	assert.True(t, errors.Is(err, models.ErrInvalidRevert))
}

func TestDecodeLegacyString(t *testing.T) {
	snap, err := Decode(`Fiber - {"length":"3m","color":"blue"}`)
	require.NoError(t, err)
	assert.True(t, snap.Legacy)
	require.Len(t, snap.Items, 1)
	assert.Equal(t, "Fiber", snap.Items[0].CategoryName)
	assert.Equal(t, map[string]string{"length": "3m", "color": "blue"}, snap.Items[0].Specs)

	_, err = snap.Deltas(1)
	assert.True(t, errors.Is(err, models.ErrValidation))
}

func TestDecodeOpaqueFallback(t *testing.T) {
	snap, err := Decode("Fiber Patch Cord")
	require.NoError(t, err)
	assert.True(t, snap.Legacy)
	require.Len(t, snap.Items, 1)
	assert.Equal(t, "Fiber Patch Cord", snap.Items[0].CategoryName)
	assert.Nil(t, snap.Items[0].Specs)
}

func TestWireShapeMatchesContract(t *testing.T) {
	raw, err := Encode(models.TxTypeOut, []Entry{
		{CategoryName: "Fiber", Specs: map[string]string{"length": "3m"}, Delta: -4},
	})
	require.NoError(t, err)

	var wire map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(raw), &wire))
	assert.Equal(t, "MULTI_ITEM_OUTBOUND", wire["type"])
	assert.Equal(t, float64(4), wire["total_quantity"])
	items := wire["items"].([]interface{})
	first := items[0].(map[string]interface{})
	assert.Equal(t, "Fiber", first["category_name"])
	assert.Equal(t, float64(4), first["quantity"])
	_, hasDiff := first["quantity_diff"]
	assert.False(t, hasDiff)
}
