package remote

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/brandonecarr/amosmiller-sub002/internal/domain"
	cartapi "github.com/brandonecarr/amosmiller-sub002/internal/http"
	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryRecords struct {
	m     sync.Mutex
	carts map[string]domain.Snapshot
}

func (r *memoryRecords) Load(_ context.Context, userID string) (domain.Snapshot, error) {
	r.m.Lock()
	defer r.m.Unlock()
	cart, ok := r.carts[userID]
	if !ok {
		return domain.Snapshot{Items: []domain.LineItem{}}, nil
	}
	return cart.Clone(), nil
}

func (r *memoryRecords) Save(_ context.Context, userID string, cart domain.Snapshot) error {
	r.m.Lock()
	defer r.m.Unlock()
	r.carts[userID] = cart.Clone()
	return nil
}

func (r *memoryRecords) Merge(ctx context.Context, userID string, local domain.Snapshot) (domain.Snapshot, error) {
	remote, _ := r.Load(ctx, userID)
	merged := domain.Snapshot{Items: append(local.Items, remote.Items...), Fulfillment: local.Fulfillment}
	return merged, r.Save(ctx, userID, merged)
}

func (r *memoryRecords) Clear(_ context.Context, userID string) error {
	r.m.Lock()
	defer r.m.Unlock()
	delete(r.carts, userID)
	return nil
}

type stubChecker struct {
	invalid []domain.InventoryWarning
}

func (s stubChecker) CheckAvailability(context.Context, []domain.LineItem) ([]domain.InventoryWarning, error) {
	return s.invalid, nil
}

func setupServer(t *testing.T, checker cartapi.AvailabilityChecker) (*Client, *memoryRecords) {
	t.Helper()
	records := &memoryRecords{carts: make(map[string]domain.Snapshot)}
	srv := httptest.NewServer(cartapi.NewRouter(cartapi.RouterConfig{
		Records:        records,
		Stock:          checker,
		RequestTimeout: 5 * time.Second,
	}))
	t.Cleanup(srv.Close)

	return NewClient(Config{BaseURL: srv.URL + "/", Timeout: 2 * time.Second}), records
}

func TestClient_SaveLoadClear(t *testing.T) {
	client, records := setupServer(t, stubChecker{})
	ctx := context.Background()

	cart := domain.Snapshot{
		Items:       []domain.LineItem{{ID: "l1", ProductID: "eggs", Quantity: 2, BasePrice: 6.5}},
		Fulfillment: domain.Fulfillment{Type: domain.FulfillmentDelivery, ZoneID: "north"},
	}
	require.NoError(t, client.Save(ctx, "user 1", cart))
	assert.Contains(t, records.carts, "user 1", "user ids are path-escaped")

	loaded, err := client.Load(ctx, "user 1")
	require.NoError(t, err)
	assert.Equal(t, cart, loaded)

	require.NoError(t, client.Clear(ctx, "user 1"))
	loaded, err = client.Load(ctx, "user 1")
	require.NoError(t, err)
	assert.Empty(t, loaded.Items)
}

func TestClient_Merge(t *testing.T) {
	client, records := setupServer(t, stubChecker{})
	records.carts["u1"] = domain.Snapshot{Items: []domain.LineItem{{ID: "r1", ProductID: "milk", Quantity: 1}}}

	merged, err := client.Merge(context.Background(), "u1", domain.Snapshot{
		Items: []domain.LineItem{{ID: "l1", ProductID: "eggs", Quantity: 1}},
	})
	require.NoError(t, err)
	require.Len(t, merged.Items, 2)
	assert.Equal(t, "eggs", merged.Items[0].ProductID)
}

func TestClient_CheckAvailability(t *testing.T) {
	want := []domain.InventoryWarning{{ProductID: "eggs", Name: "Eggs", Requested: 4, Available: 1}}
	client, _ := setupServer(t, stubChecker{invalid: want})

	got, err := client.CheckAvailability(context.Background(), []domain.LineItem{{ProductID: "eggs", Quantity: 4}})
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestClient_ValidationErrorIsStatusError(t *testing.T) {
	client, _ := setupServer(t, stubChecker{})

	err := client.Save(context.Background(), "u1", domain.Snapshot{
		Fulfillment: domain.Fulfillment{Type: "drone"},
	})

	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusBadRequest, se.StatusCode)
	assert.Equal(t, "invalid_fulfillment", se.Code)
}

func TestClient_BreakerOpensOnServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := NewClient(Config{BaseURL: srv.URL, OpenFor: time.Minute})
	for i := 0; i < tripAfter; i++ {
		_, err := client.Load(context.Background(), "u1")
		var se *StatusError
		require.ErrorAs(t, err, &se)
	}

	_, err := client.Load(context.Background(), "u1")
	assert.True(t, errors.Is(err, gobreaker.ErrOpenState))
	assert.Equal(t, int32(tripAfter), calls.Load(), "an open breaker does not reach the server")
}

func TestClient_ClientErrorsDoNotTripBreaker(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	client := NewClient(Config{BaseURL: srv.URL})
	for i := 0; i < tripAfter*2; i++ {
		_ = client.Clear(context.Background(), "u1")
	}

	assert.Equal(t, int32(tripAfter*2), calls.Load())
}

func TestClient_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer srv.Close()

	client := NewClient(Config{BaseURL: srv.URL, Timeout: 50 * time.Millisecond})

	_, err := client.Load(context.Background(), "u1")
	require.Error(t, err)
}
