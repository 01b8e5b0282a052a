package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/sbilibin2017/gw-transactions/internal/logger"
	"github.com/sbilibin2017/gw-transactions/internal/models"
)

const (
	// DefaultUndoGrace is how long a requested delete can still be undone.
	DefaultUndoGrace = 5 * time.Second

	tempIDPrefix = "tmp-"
)

var (
	// ErrRecordBusy is returned when a record is still pending or about to be deleted.
	ErrRecordBusy = errors.New("transaction is busy")
	// ErrDisposed is returned by operations on a disposed store.
	ErrDisposed = errors.New("store is disposed")
)

// Transport is the collection the store reads from and writes to.
type Transport interface {
	FetchPage(ctx context.Context, page int) (models.Page, error)
	Create(ctx context.Context, patch models.TransactionPatch) (models.Transaction, error)
	Update(ctx context.Context, id string, patch models.TransactionPatch) (models.Transaction, error)
	Delete(ctx context.Context, id string) error
}

// Invalidator is implemented by transports that cache pages.
type Invalidator interface {
	InvalidateAll()
}

// CategoryResolver maps a category name onto a category. New transactions accept unknown
// names, updates must name a known one.
type CategoryResolver interface {
	Resolve(name *string) (models.Category, error)
	ResolveOrDefault(name *string) models.Category
}

// State is the coarse lifecycle of the store.
type State int

const (
	StateIdle State = iota
	StateLoadingInitial
	StateReady
	StateLoadingMore
	StateMutating
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoadingInitial:
		return "loading-initial"
	case StateReady:
		return "ready"
	case StateLoadingMore:
		return "loading-more"
	case StateMutating:
		return "mutating"
	}
	return "unknown"
}

type loadKind int

const (
	loadNone loadKind = iota
	loadInitial
	loadMore
)

// Option configures a Store.
type Option func(*Store)

// WithClock sets the time source used for dates and undo timers.
func WithClock(clock clockwork.Clock) Option {
	return func(s *Store) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithUndoGrace sets how long deletes wait before reaching the transport.
func WithUndoGrace(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.grace = d
		}
	}
}

// WithDeleteHook registers fn to be called once a deferred delete settles.
// err is nil when the record was removed.
func WithDeleteHook(fn func(id string, err error)) Option {
	return func(s *Store) {
		s.onDelete = fn
	}
}

type pendingDelete struct {
	slot     *Slot
	deadline time.Time
}

// Store holds the paginated transaction list and applies mutations optimistically.
type Store struct {
	transport  Transport
	categories CategoryResolver
	clock      clockwork.Clock
	grace      time.Duration
	onDelete   func(id string, err error)
	locks      *idLocks

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu         sync.Mutex
	records    []Record
	page       int
	hasMore    bool
	loaded     bool
	loading    loadKind
	generation uint64
	mutations  int
	lastErr    string
	deletes    map[string]*pendingDelete
	deleting   map[string]struct{}
	disposed   bool
}

// New creates an empty store. Call Refresh to load the first page.
func New(transport Transport, categories CategoryResolver, opts ...Option) *Store {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Store{
		transport:  transport,
		categories: categories,
		clock:      clockwork.NewRealClock(),
		grace:      DefaultUndoGrace,
		locks:      newIDLocks(),
		ctx:        ctx,
		cancel:     cancel,
		deletes:    make(map[string]*pendingDelete),
		deleting:   make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Refresh discards the collection and loads page 0 again.
func (s *Store) Refresh(ctx context.Context) error {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return ErrDisposed
	}
	s.generation++
	gen := s.generation
	s.loading = loadInitial
	s.records = nil
	s.page = 0
	s.hasMore = false
	s.mu.Unlock()

	if inv, ok := s.transport.(Invalidator); ok {
		inv.InvalidateAll()
	}

	page, err := s.transport.FetchPage(ctx, 0)

	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.generation {
		return nil
	}
	s.loading = loadNone
	s.loaded = true
	if err != nil {
		s.records = nil
		s.hasMore = false
		s.setErrLocked("refresh", err)
		return err
	}

	s.records = mergePage(nil, page.Items, s.hiddenLocked())
	s.hasMore = page.HasMore
	s.lastErr = ""
	return nil
}

// LoadMore fetches the next page and merges it into the collection.
// It is a no-op when there is nothing more to load or a load is already running.
func (s *Store) LoadMore(ctx context.Context) error {
	s.mu.Lock()
	if s.disposed || !s.hasMore || s.loading != loadNone {
		s.mu.Unlock()
		return nil
	}
	s.loading = loadMore
	gen := s.generation
	next := s.page + 1
	s.mu.Unlock()

	page, err := s.transport.FetchPage(ctx, next)

	s.mu.Lock()
	defer s.mu.Unlock()

	// superseded by a refresh which owns the loading flag now
	if gen != s.generation {
		return nil
	}
	s.loading = loadNone
	if err != nil {
		s.setErrLocked("load more", err)
		return err
	}

	s.records = mergePage(s.records, page.Items, s.hiddenLocked())
	s.page = next
	s.hasMore = page.HasMore
	s.lastErr = ""
	return nil
}

// Add inserts a pending record immediately and replaces it with the server's copy once
// created. On failure the pending record is removed and patch can be resubmitted as is.
func (s *Store) Add(ctx context.Context, patch models.TransactionPatch) (models.Transaction, error) {
	if err := patch.ValidateCreate(); err != nil {
		return models.Transaction{}, s.fail("add", err)
	}
	category := s.categories.ResolveOrDefault(patch.Category)

	date := models.DateOf(s.clock.Now())
	if patch.Date != nil {
		date = *patch.Date
	}
	patch.Date = &date

	temp := models.Transaction{
		ID:          tempIDPrefix + uuid.NewString(),
		Date:        date,
		Description: strings.TrimSpace(*patch.Description),
		Amount:      *patch.Amount,
		Category:    category,
	}

	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return models.Transaction{}, ErrDisposed
	}
	s.records = insertPending(s.records, temp)
	s.mutations++
	s.mu.Unlock()

	tx, err := s.transport.Create(ctx, patch)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.mutations--
	if err != nil {
		s.records = removeRecord(s.records, temp.ID)
		s.setErrLocked("add", err)
		return models.Transaction{}, err
	}

	s.records = confirmPending(s.records, temp.ID, tx)
	s.lastErr = ""
	logger.Log.Debugw("transaction added", "id", tx.ID)
	return tx, nil
}

// Update sends patch to the transport and applies the confirmed result.
func (s *Store) Update(ctx context.Context, id string, patch models.TransactionPatch) (models.Transaction, error) {
	if err := patch.ValidateUpdate(); err != nil {
		return models.Transaction{}, s.fail("update", err)
	}
	if patch.Category != nil {
		if _, err := s.categories.Resolve(patch.Category); err != nil {
			return models.Transaction{}, s.fail("update", err)
		}
	}

	unlock := s.locks.Lock(id)
	defer unlock()

	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return models.Transaction{}, ErrDisposed
	}
	idx := indexOf(s.records, id)
	if idx < 0 {
		s.mu.Unlock()
		return models.Transaction{}, s.fail("update", fmt.Errorf("%w: %s", models.ErrNotFound, id))
	}
	if s.records[idx].Status != StatusConfirmed {
		s.mu.Unlock()
		return models.Transaction{}, s.fail("update", ErrRecordBusy)
	}
	s.mutations++
	s.mu.Unlock()

	tx, err := s.transport.Update(ctx, id, patch)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.mutations--
	if err != nil {
		s.setErrLocked("update", err)
		return models.Transaction{}, err
	}

	s.records, _ = replaceRecord(s.records, tx)
	s.lastErr = ""
	return tx, nil
}

// Delete hides the record and schedules its removal after the undo grace period.
func (s *Store) Delete(_ context.Context, id string) error {
	return s.RequestDelete(id)
}

// Dispose cancels pending deletes and background work. The store cannot be used afterwards.
func (s *Store) Dispose() {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return
	}
	s.disposed = true
	for id, pd := range s.deletes {
		pd.slot.Cancel()
		s.records, _ = restoreVisible(s.records, id)
		delete(s.deletes, id)
	}
	s.mu.Unlock()

	s.cancel()
	s.wg.Wait()

	if inv, ok := s.transport.(Invalidator); ok {
		inv.InvalidateAll()
	}
}

// Records returns a snapshot of every record, pending ones included.
func (s *Store) Records() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneRecords(s.records)
}

// Transactions returns the visible list in display order.
func (s *Store) Transactions() []models.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.Transaction, 0, len(s.records))
	for _, r := range s.records {
		if r.Visible() {
			out = append(out, r.Transaction)
		}
	}
	return out
}

func (s *Store) HasMore() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hasMore
}

// Loading reports whether a page fetch is in flight.
func (s *Store) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading != loadNone
}

// Page returns the index of the last loaded page.
func (s *Store) Page() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.page
}

// Err returns the message of the most recent failure, or "" after a success.
func (s *Store) Err() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case s.loading == loadInitial:
		return StateLoadingInitial
	case s.loading == loadMore:
		return StateLoadingMore
	case s.mutations > 0 || len(s.deleting) > 0:
		return StateMutating
	case !s.loaded:
		return StateIdle
	}
	return StateReady
}

func (s *Store) fail(op string, err error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setErrLocked(op, err)
	return err
}

func (s *Store) setErrLocked(op string, err error) {
	s.lastErr = err.Error()
	logger.Log.Warnw("transaction store operation failed", "op", op, "error", err)
}

// hiddenLocked lists ids that must stay out of view when pages are merged.
func (s *Store) hiddenLocked() map[string]time.Time {
	hidden := make(map[string]time.Time, len(s.deletes)+len(s.deleting))
	for id, pd := range s.deletes {
		hidden[id] = pd.deadline
	}
	for id := range s.deleting {
		if _, ok := hidden[id]; !ok {
			hidden[id] = time.Time{}
		}
	}
	return hidden
}
