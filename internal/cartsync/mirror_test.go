package cartsync

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/brandonecarr/amosmiller-sub002/internal/domain"
	"github.com/brandonecarr/amosmiller-sub002/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reopen(t *testing.T, s storage.DeviceStorage) *Session {
	t.Helper()
	return Open(context.Background(), Options{Storage: s, Logger: quietLogger(), NewID: sequentialIDs()})
}

func TestMirror_RestoresAfterReload(t *testing.T) {
	f := newFixture(t, nil)
	f.session.AddItem(eggs(2))
	f.session.AddItem(beef(1))
	pickup := domain.FulfillmentPickup
	f.session.SetFulfillment(domain.FulfillmentPatch{Type: &pickup, LocationID: ptr("market")})

	restored := reopen(t, f.storage)

	assert.Equal(t, f.session.Items(), restored.Items())
	assert.Equal(t, "market", restored.Fulfillment().LocationID)
}

func TestMirror_WritesEveryChangeImmediately(t *testing.T) {
	f := newFixture(t, nil)
	f.session.AddItem(eggs(2))

	raw, ok, err := f.storage.Get(DefaultItemsKey)
	require.NoError(t, err)
	require.True(t, ok)

	var stored []domain.LineItem
	require.NoError(t, json.Unmarshal([]byte(raw), &stored))
	require.Len(t, stored, 1)
	assert.Equal(t, 2, stored[0].Quantity)

	f.session.UpdateQuantity(stored[0].ID, 5)
	raw, _, _ = f.storage.Get(DefaultItemsKey)
	assert.Contains(t, raw, `"quantity":5`)
}

func TestMirror_CorruptItemsYieldEmptyCart(t *testing.T) {
	s := storage.NewMemory()
	require.NoError(t, s.Set(DefaultItemsKey, `{not json`))
	require.NoError(t, s.Set(DefaultFulfillmentKey, `{"type":"delivery","zoneId":"z1"}`))

	var session *Session
	require.NotPanics(t, func() { session = reopen(t, s) })

	assert.Empty(t, session.Items())
	assert.Equal(t, domain.FulfillmentDelivery, session.Fulfillment().Type, "a corrupt items key does not cost the fulfillment")
}

func TestMirror_CorruptFulfillmentKeepsItems(t *testing.T) {
	s := storage.NewMemory()
	require.NoError(t, s.Set(DefaultItemsKey, `[{"id":"x","productId":"eggs","quantity":2}]`))
	require.NoError(t, s.Set(DefaultFulfillmentKey, `["wrong shape"]`))

	session := reopen(t, s)

	require.Len(t, session.Items(), 1)
	assert.Equal(t, domain.Fulfillment{}, session.Fulfillment())
}

func TestMirror_RepairsForeignData(t *testing.T) {
	s := storage.NewMemory()
	require.NoError(t, s.Set(DefaultItemsKey, `[
		{"productId":"eggs","quantity":2},
		{"id":"b","productId":"eggs","quantity":1},
		{"id":"c","productId":"beef","quantity":0}
	]`))

	session := reopen(t, s)

	items := session.Items()
	require.Len(t, items, 1)
	assert.Equal(t, 3, items[0].Quantity)
	assert.Equal(t, "line-1", items[0].ID)
}

func TestMirror_NullItems(t *testing.T) {
	s := storage.NewMemory()
	require.NoError(t, s.Set(DefaultItemsKey, `null`))

	session := reopen(t, s)
	assert.NotNil(t, session.Items())
	assert.Empty(t, session.Items())
}

func TestMirror_WriteFailureKeepsMemoryState(t *testing.T) {
	f := newFixture(t, func(o *Options) {
		o.Storage = failingStorage{storage.NewMemory()}
	})

	f.session.AddItem(eggs(2))

	require.Len(t, f.session.Items(), 1)
	assert.Equal(t, 2, f.session.ItemCount())
}

func TestMirror_CustomKeys(t *testing.T) {
	f := newFixture(t, func(o *Options) {
		o.ItemsKey = "pos-items"
		o.FulfillmentKey = "pos-fulfillment"
	})
	f.session.AddItem(eggs(1))

	_, ok, _ := f.storage.Get("pos-items")
	assert.True(t, ok)
	_, ok, _ = f.storage.Get(DefaultItemsKey)
	assert.False(t, ok)
}
