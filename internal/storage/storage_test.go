package storage

import (
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exerciseStorage(t *testing.T, s DeviceStorage) {
	t.Helper()

	_, ok, err := s.Get("cart-items")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set("cart-items", `[{"id":"1"}]`))
	require.NoError(t, s.Set("cart-fulfillment", `{"type":"pickup"}`))

	v, ok, err := s.Get("cart-items")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `[{"id":"1"}]`, v)

	require.NoError(t, s.Set("cart-items", `[]`))
	v, _, err = s.Get("cart-items")
	require.NoError(t, err)
	assert.Equal(t, `[]`, v)

	v, _, err = s.Get("cart-fulfillment")
	require.NoError(t, err)
	assert.Equal(t, `{"type":"pickup"}`, v)
}

func TestMemory(t *testing.T) {
	exerciseStorage(t, NewMemory())
}

func TestSQLite_InMemory(t *testing.T) {
	s, err := OpenSQLite(":memory:")
	require.NoError(t, err)
	defer s.Close()

	exerciseStorage(t, s)
}

func TestSQLite_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "device.db")

	s, err := OpenSQLite(path)
	require.NoError(t, err)
	require.NoError(t, s.Set("cart-items", `[{"id":"abc"}]`))
	require.NoError(t, s.Close())

	reopened, err := OpenSQLite(path)
	require.NoError(t, err)
	defer reopened.Close()

	v, ok, err := reopened.Get("cart-items")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `[{"id":"abc"}]`, v)
}

func TestRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	exerciseStorage(t, NewRedis(client, "pos-1"))

	raw, err := mr.Get("device:pos-1:cart-fulfillment")
	require.NoError(t, err)
	assert.Equal(t, `{"type":"pickup"}`, raw)
}

func TestRedis_DevicesAreIsolated(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	a := NewRedis(client, "pos-1")
	b := NewRedis(client, "pos-2")
	require.NoError(t, a.Set("cart-items", "a"))

	_, ok, err := b.Get("cart-items")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedis_ServerDown(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	s := NewRedis(client, "pos-1")
	mr.Close()

	_, _, err := s.Get("cart-items")
	require.ErrorContains(t, err, "redis get failed")
	require.ErrorContains(t, s.Set("cart-items", "x"), "redis set failed")
}
