// Package cartsync keeps a shopper's cart in memory, mirrors it to device
// storage on every change, replicates it to a per-user remote record once the
// shopper signs in, and repairs it against live stock on request.
//
// The cart is local-first: mutations apply immediately and never fail, remote
// replication is debounced and eventually consistent, and every remote failure
// ends up in SyncError instead of being returned to the caller.
package cartsync

import (
	"context"
	"sync"
	"time"

	"github.com/brandonecarr/amosmiller-sub002/internal/clock"
	"github.com/brandonecarr/amosmiller-sub002/internal/debounce"
	"github.com/brandonecarr/amosmiller-sub002/internal/domain"
	"github.com/brandonecarr/amosmiller-sub002/internal/storage"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

const (
	DefaultItemsKey       = "cart-items"
	DefaultFulfillmentKey = "cart-fulfillment"
	DefaultSyncDelay      = time.Second
	DefaultCallTimeout    = 10 * time.Second
)

// RecordService is the remote per-user cart record. How Merge combines the
// two sides is up to the service; the session adopts whatever it returns.
type RecordService interface {
	Save(ctx context.Context, userID string, cart domain.Snapshot) error
	Load(ctx context.Context, userID string) (domain.Snapshot, error)
	Merge(ctx context.Context, userID string, local domain.Snapshot) (domain.Snapshot, error)
	Clear(ctx context.Context, userID string) error
}

// StockChecker returns the lines whose requested quantity exceeds live stock.
type StockChecker interface {
	CheckAvailability(ctx context.Context, items []domain.LineItem) ([]domain.InventoryWarning, error)
}

type Options struct {
	// Storage defaults to an in-memory store.
	Storage storage.DeviceStorage
	// Records and Stock are optional; without them the session stays local.
	Records RecordService
	Stock   StockChecker

	// UserID is set when the shopper is already signed in at startup.
	UserID string

	ItemsKey       string
	FulfillmentKey string
	SyncDelay      time.Duration
	CallTimeout    time.Duration

	Clock  clock.Clock
	Logger log.FieldLogger
	NewID  func() string
}

func (o *Options) setDefaults() {
	if o.Storage == nil {
		o.Storage = storage.NewMemory()
	}
	if o.ItemsKey == "" {
		o.ItemsKey = DefaultItemsKey
	}
	if o.FulfillmentKey == "" {
		o.FulfillmentKey = DefaultFulfillmentKey
	}
	if o.SyncDelay <= 0 {
		o.SyncDelay = DefaultSyncDelay
	}
	if o.CallTimeout <= 0 {
		o.CallTimeout = DefaultCallTimeout
	}
	if o.Clock == nil {
		o.Clock = clock.Real()
	}
	if o.Logger == nil {
		o.Logger = log.StandardLogger()
	}
	if o.NewID == nil {
		o.NewID = uuid.NewString
	}
}

type SyncState int

const (
	StateAnonymous SyncState = iota
	StateAttaching
	StateSynced
)

func (s SyncState) String() string {
	switch s {
	case StateAnonymous:
		return "anonymous"
	case StateAttaching:
		return "attaching"
	case StateSynced:
		return "synced"
	}
	return "unknown"
}

// Session is one shopper's cart. Create it with Open and release it with
// Close. All methods are safe for concurrent use.
type Session struct {
	opts   Options
	log    log.FieldLogger
	mirror mirror
	push   *debounce.Debouncer

	mu          sync.Mutex
	items       []domain.LineItem
	fulfillment domain.Fulfillment
	warnings    []domain.InventoryWarning
	userID      string
	state       SyncState
	epoch       uint64 // incremented on every user change; stale async results compare against it
	inflight    int
	syncErr     string
	closed      bool // no new pushes are armed
	drained     bool // no new background calls start
	// heldDuringAttach records a change made while Merge was in flight; its
	// push waits for the merge outcome.
	heldDuringAttach bool
	listeners        map[int]func(domain.Snapshot)
	nextListen       int

	bg sync.WaitGroup
}

// Open restores the cart from device storage. When opts.UserID is set and the
// restored cart is empty, the remote record is pulled once and adopted.
func Open(ctx context.Context, opts Options) *Session {
	opts.setDefaults()
	s := &Session{
		opts:      opts,
		log:       opts.Logger,
		items:     []domain.LineItem{},
		listeners: make(map[int]func(domain.Snapshot)),
	}
	s.mirror = mirror{
		store:          opts.Storage,
		itemsKey:       opts.ItemsKey,
		fulfillmentKey: opts.FulfillmentKey,
		log:            opts.Logger,
		newID:          opts.NewID,
	}
	s.push = debounce.New(opts.Clock, opts.SyncDelay, func() {
		s.pushSnapshot(context.Background())
	})

	s.items, s.fulfillment = s.mirror.load()

	if opts.UserID != "" {
		s.userID = opts.UserID
		s.state = StateSynced
		if len(s.items) == 0 {
			s.pull(ctx)
		}
	}
	return s
}

// Close pushes any pending change and waits for background remote calls.
func (s *Session) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	s.push.Flush()

	s.mu.Lock()
	s.drained = true
	s.mu.Unlock()

	s.bg.Wait()
}

func (s *Session) Items() []domain.LineItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.CloneItems(s.items)
}

func (s *Session) Fulfillment() domain.Fulfillment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fulfillment.Clone()
}

func (s *Session) Snapshot() domain.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) ItemCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.ItemCount(s.items)
}

func (s *Session) Subtotal() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.Subtotal(s.items)
}

func (s *Session) HasCoopItems() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.HasCoopItems(s.items)
}

func (s *Session) Warnings() []domain.InventoryWarning {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.InventoryWarning(nil), s.warnings...)
}

func (s *Session) UserID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userID
}

func (s *Session) State() SyncState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// IsSyncing reports whether a remote call is in flight. It is informational
// and never blocks mutations.
func (s *Session) IsSyncing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inflight > 0
}

// HasPendingSync reports whether a debounced push is waiting to fire.
func (s *Session) HasPendingSync() bool {
	return s.push.Pending()
}

// SyncError is the message of the most recent failed remote call, or "".
func (s *Session) SyncError() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.syncErr
}

// Subscribe registers fn to receive the cart after every change. fn runs on
// the goroutine that made the change and must not block.
func (s *Session) Subscribe(fn func(domain.Snapshot)) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextListen
	s.nextListen++
	s.listeners[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}

func (s *Session) snapshotLocked() domain.Snapshot {
	return domain.Snapshot{
		Items:       domain.CloneItems(s.items),
		Fulfillment: s.fulfillment.Clone(),
	}
}

type change int

const (
	changedItems change = 1 << iota
	changedFulfillment
)

// changedLocked mirrors what changed to device storage, arms the remote push
// when a user is attached, and returns the listener calls to make once the
// lock is released.
func (s *Session) changedLocked(what change) func() {
	if what&changedItems != 0 {
		s.mirror.saveItems(s.items)
	}
	if what&changedFulfillment != 0 {
		s.mirror.saveFulfillment(s.fulfillment)
	}
	switch {
	case s.userID == "" || s.opts.Records == nil || s.closed:
	case s.state == StateAttaching:
		s.heldDuringAttach = true
	default:
		s.push.Trigger()
	}
	return s.notifierLocked()
}

func (s *Session) notifierLocked() func() {
	if len(s.listeners) == 0 {
		return func() {}
	}
	snap := s.snapshotLocked()
	fns := make([]func(domain.Snapshot), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	return func() {
		for _, fn := range fns {
			fn(snap)
		}
	}
}
