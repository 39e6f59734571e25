package inventory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_SetStock_And_GetStock(t *testing.T) {
	store := NewMemoryStore()
	store.SetStock(StockInfo{ProductID: "eggs", Total: 100, TrackInventory: true})
	store.SetStock(StockInfo{ProductID: "milk", Total: 200, TrackInventory: true})

	stocks, err := store.GetStock(context.Background(), []string{"eggs", "milk", "unknown"})
	require.NoError(t, err)

	// Should return only existing products
	assert.Len(t, stocks, 2)

	stockMap := make(map[string]StockInfo)
	for _, s := range stocks {
		stockMap[s.ProductID] = s
	}
	assert.Equal(t, 100, stockMap["eggs"].Available())
	assert.Equal(t, 200, stockMap["milk"].Total)
}

func TestMemoryStore_Reserve(t *testing.T) {
	store := NewMemoryStore()
	store.SetStock(StockInfo{ProductID: "eggs", Total: 10, TrackInventory: true})

	require.NoError(t, store.Reserve("eggs", 4))

	stocks, err := store.GetStock(context.Background(), []string{"eggs"})
	require.NoError(t, err)
	assert.Equal(t, 6, stocks[0].Available())

	require.NoError(t, store.Reserve("eggs", -10))
	stocks, _ = store.GetStock(context.Background(), []string{"eggs"})
	assert.Equal(t, 0, stocks[0].Reserved, "releasing never goes below zero")

	assert.ErrorIs(t, store.Reserve("unknown", 1), ErrProductNotFound)
}

func TestMemoryStore_Delete(t *testing.T) {
	store := NewMemoryStore()
	store.SetStock(StockInfo{ProductID: "eggs", Total: 10})
	store.Delete("eggs")

	stocks, err := store.GetStock(context.Background(), []string{"eggs"})
	require.NoError(t, err)
	assert.Empty(t, stocks)
}

func TestStockInfo_Available(t *testing.T) {
	assert.Equal(t, 7, StockInfo{Total: 10, Reserved: 3}.Available())
	assert.Equal(t, 0, StockInfo{Total: 2, Reserved: 5}.Available())
}
