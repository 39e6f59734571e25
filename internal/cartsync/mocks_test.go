package cartsync

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/brandonecarr/amosmiller-sub002/internal/clock"
	"github.com/brandonecarr/amosmiller-sub002/internal/domain"
	"github.com/brandonecarr/amosmiller-sub002/internal/storage"
	log "github.com/sirupsen/logrus"
)

type saveCall struct {
	userID string
	cart   domain.Snapshot
}

type mockRecords struct {
	m sync.Mutex

	saves  []saveCall
	loads  []string
	merges []saveCall
	clears []string

	loadResult  domain.Snapshot
	mergeResult *domain.Snapshot // nil echoes the local cart back

	saveErr  error
	loadErr  error
	mergeErr error
	clearErr error

	mergeEntered chan struct{}
	mergeRelease chan struct{}
	saveEntered  chan struct{}
	saveRelease  chan struct{}

	// whether each Merge and Load call carried a deadline
	mergeDeadlines []bool
	loadDeadlines  []bool
}

func (m *mockRecords) Save(_ context.Context, userID string, cart domain.Snapshot) error {
	if m.saveEntered != nil {
		m.saveEntered <- struct{}{}
	}
	if m.saveRelease != nil {
		<-m.saveRelease
	}
	m.m.Lock()
	defer m.m.Unlock()
	m.saves = append(m.saves, saveCall{userID, cart})
	return m.saveErr
}

func (m *mockRecords) Load(ctx context.Context, userID string) (domain.Snapshot, error) {
	m.m.Lock()
	defer m.m.Unlock()
	m.loads = append(m.loads, userID)
	_, hasDeadline := ctx.Deadline()
	m.loadDeadlines = append(m.loadDeadlines, hasDeadline)
	if m.loadErr != nil {
		return domain.Snapshot{}, m.loadErr
	}
	return m.loadResult.Clone(), nil
}

func (m *mockRecords) Merge(ctx context.Context, userID string, local domain.Snapshot) (domain.Snapshot, error) {
	if m.mergeEntered != nil {
		m.mergeEntered <- struct{}{}
	}
	if m.mergeRelease != nil {
		<-m.mergeRelease
	}
	m.m.Lock()
	defer m.m.Unlock()
	m.merges = append(m.merges, saveCall{userID, local})
	_, hasDeadline := ctx.Deadline()
	m.mergeDeadlines = append(m.mergeDeadlines, hasDeadline)
	if m.mergeErr != nil {
		return domain.Snapshot{}, m.mergeErr
	}
	if m.mergeResult != nil {
		return m.mergeResult.Clone(), nil
	}
	return local, nil
}

func (m *mockRecords) Clear(_ context.Context, userID string) error {
	m.m.Lock()
	defer m.m.Unlock()
	m.clears = append(m.clears, userID)
	return m.clearErr
}

func (m *mockRecords) saveCount() int {
	m.m.Lock()
	defer m.m.Unlock()
	return len(m.saves)
}

func (m *mockRecords) lastSave() saveCall {
	m.m.Lock()
	defer m.m.Unlock()
	return m.saves[len(m.saves)-1]
}

func (m *mockRecords) clearCount() int {
	m.m.Lock()
	defer m.m.Unlock()
	return len(m.clears)
}

type mockStock struct {
	m       sync.Mutex
	invalid []domain.InventoryWarning
	err     error
	calls   [][]domain.LineItem
}

func (m *mockStock) CheckAvailability(_ context.Context, items []domain.LineItem) ([]domain.InventoryWarning, error) {
	m.m.Lock()
	defer m.m.Unlock()
	m.calls = append(m.calls, items)
	if m.err != nil {
		return nil, m.err
	}
	return append([]domain.InventoryWarning(nil), m.invalid...), nil
}

func (m *mockStock) callCount() int {
	m.m.Lock()
	defer m.m.Unlock()
	return len(m.calls)
}

// failingStorage refuses every write, as a full browser quota would.
type failingStorage struct {
	*storage.Memory
}

func (failingStorage) Set(string, string) error {
	return errors.New("quota exceeded")
}

func quietLogger() log.FieldLogger {
	l := log.New()
	l.SetOutput(io.Discard)
	return l
}

func sequentialIDs() func() string {
	var m sync.Mutex
	n := 0
	return func() string {
		m.Lock()
		defer m.Unlock()
		n++
		return fmt.Sprintf("line-%d", n)
	}
}

type fixture struct {
	session *Session
	clock   *clock.Fake
	records *mockRecords
	stock   *mockStock
	storage *storage.Memory
}

func newFixture(t *testing.T, tweak func(*Options)) *fixture {
	t.Helper()
	f := &fixture{
		clock:   clock.NewFake(time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)),
		records: &mockRecords{},
		stock:   &mockStock{},
		storage: storage.NewMemory(),
	}
	opts := Options{
		Storage: f.storage,
		Records: f.records,
		Stock:   f.stock,
		Clock:   f.clock,
		Logger:  quietLogger(),
		NewID:   sequentialIDs(),
	}
	if tweak != nil {
		tweak(&opts)
	}
	f.session = Open(context.Background(), opts)
	return f
}

func ptr[T any](v T) *T { return &v }

func eggs(qty int) domain.LineItem {
	return domain.LineItem{
		ProductID:   "eggs",
		PricingType: domain.PricingFixed,
		BasePrice:   6.50,
		Quantity:    qty,
		Name:        "Pastured Eggs",
		Slug:        "pastured-eggs",
	}
}

func beef(qty int) domain.LineItem {
	return domain.LineItem{
		ProductID:       "ground-beef",
		PricingType:     domain.PricingWeight,
		BasePrice:       9.00,
		WeightUnit:      "lb",
		EstimatedWeight: ptr(1.0),
		Quantity:        qty,
		Name:            "Ground Beef",
		Slug:            "ground-beef",
	}
}
