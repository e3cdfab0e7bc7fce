package catalogstate

import (
	"context"
	"sync"
	"time"

	"github.com/asaskevich/EventBus"
	"go.uber.org/zap"

	"github.com/talkincode/plantcatalog/internal/domain"
	"github.com/talkincode/plantcatalog/internal/query"
	"github.com/talkincode/plantcatalog/internal/schema"
)

// Topic is the EventBus topic every new State is published on
const Topic = "catalog:state"

// DefaultDebounce is the quiet period before typed search text is committed
const DefaultDebounce = 300 * time.Millisecond

// API is the part of the catalog REST API the store uses
type API interface {
	List(ctx context.Context, p query.Params) ([]domain.Plant, error)
	Categories(ctx context.Context) ([]string, error)
	Create(ctx context.Context, patch schema.Patch) (domain.Plant, error)
	Update(ctx context.Context, id string, patch schema.Patch) (domain.Plant, error)
	Delete(ctx context.Context, id string) error
}

type Option func(*Store)

// WithDebounce overrides DefaultDebounce
func WithDebounce(d time.Duration) Option {
	return func(s *Store) { s.debounce = d }
}

func WithLogger(log *zap.Logger) Option {
	return func(s *Store) { s.log = log }
}

// WithBus publishes on an existing bus instead of a private one
func WithBus(bus EventBus.Bus) Option {
	return func(s *Store) { s.bus = bus }
}

// Store is the catalog state container. Its methods are safe to call from
// any goroutine. List requests are never cancelled; a response is applied
// only if no newer request was issued after it.
type Store struct {
	api      API
	bus      EventBus.Bus
	log      *zap.Logger
	debounce time.Duration

	mu          sync.Mutex
	state       State
	lastToken   uint64
	searchTimer *time.Timer
	searchGen   uint64
	closed      bool
	// pending counts requests in flight plus an armed debounce timer. The
	// timer adds work from its own goroutine, so it lives under mu.
	pending int
	idle    *sync.Cond

	ctx    context.Context
	cancel context.CancelFunc
}

func New(api API, opts ...Option) *Store {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Store{
		api:      api,
		debounce: DefaultDebounce,
		log:      zap.L(),
		state:    Initial(),
		ctx:      ctx,
		cancel:   cancel,
	}
	s.idle = sync.NewCond(&s.mu)
	for _, o := range opts {
		o(s)
	}
	if s.bus == nil {
		s.bus = EventBus.New()
	}
	return s
}

// State returns the current snapshot
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Subscribe calls fn with every new State. Each delivery runs on its own
// goroutine, so fn may call Store methods or unsubscribe, but must not call
// Wait. Deliveries may overlap and arrive out of order; compare Version to
// drop stale ones. The bus tells handlers apart by function identity, so
// subscribe distinct functions.
func (s *Store) Subscribe(fn func(State)) (unsubscribe func(), err error) {
	if err := s.bus.SubscribeAsync(Topic, fn, false); err != nil {
		return nil, err
	}
	return func() { _ = s.bus.Unsubscribe(Topic, fn) }, nil
}

// apply runs the reducer; callers hold mu
func (s *Store) apply(a Action) State {
	s.state = Reduce(s.state, a)
	s.state.Version++
	return s.state
}

func (s *Store) doneLocked() {
	s.pending--
	if s.pending == 0 {
		s.idle.Broadcast()
	}
}

func (s *Store) done() {
	s.mu.Lock()
	s.doneLocked()
	s.mu.Unlock()
}

func (s *Store) publish(st State) {
	s.bus.Publish(Topic, st)
}

// Dispatch applies a and publishes the result
func (s *Store) Dispatch(a Action) State {
	s.mu.Lock()
	st := s.apply(a)
	s.mu.Unlock()
	s.publish(st)
	return st
}

// fetchLocked issues a list request for the current filters. The caller
// holds mu and must publish the returned state after unlocking.
func (s *Store) fetchLocked() State {
	s.lastToken++
	token := s.lastToken
	params := s.state.Filters
	st := s.apply(FetchStarted{Token: token})

	s.pending++
	go func() {
		defer s.done()
		plants, err := s.api.List(s.ctx, params)
		if err != nil {
			s.log.Error("list plants failed", zap.Error(err))
			s.Dispatch(FetchFailed{Token: token, Err: err})
			return
		}
		s.Dispatch(FetchSucceeded{Token: token, Plants: plants})
	}()
	return st
}

// changeFilters applies a filter action and fetches only when the
// committed filters actually changed
func (s *Store) changeFilters(a Action) {
	s.mu.Lock()
	before := s.state.Filters
	st := s.apply(a)
	fetched := false
	if !before.Equal(st.Filters) {
		st = s.fetchLocked()
		fetched = true
	}
	s.mu.Unlock()
	s.publish(st)
	if !fetched {
		s.log.Debug("filters unchanged, no fetch")
	}
}

func (s *Store) loadCategories() {
	s.mu.Lock()
	s.pending++
	s.mu.Unlock()
	go func() {
		defer s.done()
		cats, err := s.api.Categories(s.ctx)
		if err != nil {
			s.log.Error("load categories failed", zap.Error(err))
			s.Dispatch(Failed{Err: err})
			return
		}
		s.Dispatch(CategoriesLoaded{Categories: cats})
	}()
}

// Refresh re-fetches plants and categories. It is the manual retry after a
// failure.
func (s *Store) Refresh() {
	s.mu.Lock()
	st := s.fetchLocked()
	s.mu.Unlock()
	s.publish(st)
	s.loadCategories()
}

// SetSearch records typed text. The search filter is committed, and a
// fetch issued, once no further text arrived for the debounce period.
func (s *Store) SetSearch(text string) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	st := s.apply(SetSearchInput{Text: text})
	s.searchGen++
	gen := s.searchGen
	// a stopped timer hands its count to the new one; a fired one
	// releases its own
	if s.searchTimer == nil || !s.searchTimer.Stop() {
		s.pending++
	}
	s.searchTimer = time.AfterFunc(s.debounce, func() { s.commitSearch(gen) })
	s.mu.Unlock()
	s.publish(st)
}

func (s *Store) commitSearch(gen uint64) {
	defer s.done()
	s.mu.Lock()
	if s.closed || gen != s.searchGen {
		s.mu.Unlock()
		return
	}
	s.searchTimer = nil
	s.mu.Unlock()
	s.changeFilters(CommitSearch{})
}

// stopSearchLocked disarms the debounce timer. A timer that already fired
// finds its generation stale and releases its own count.
func (s *Store) stopSearchLocked() {
	s.searchGen++
	if s.searchTimer == nil {
		return
	}
	if s.searchTimer.Stop() {
		s.doneLocked()
	}
	s.searchTimer = nil
}

// FlushSearch commits pending search text immediately
func (s *Store) FlushSearch() {
	s.mu.Lock()
	s.stopSearchLocked()
	s.mu.Unlock()
	s.changeFilters(CommitSearch{})
}

func (s *Store) SetCategory(category string) {
	s.changeFilters(SetCategory{Category: category})
}

func (s *Store) SetPriceRange(min, max *float64) {
	s.changeFilters(SetPriceRange{Min: min, Max: max})
}

func (s *Store) SetAvailableOnly(only bool) {
	s.changeFilters(SetAvailability{AvailableOnly: only})
}

func (s *Store) ResetFilters() {
	s.mu.Lock()
	s.stopSearchLocked()
	s.mu.Unlock()
	s.changeFilters(ResetFilters{})
}

// Create posts a new plant and prepends it to the held list
func (s *Store) Create(ctx context.Context, patch schema.Patch) (domain.Plant, error) {
	p, err := s.api.Create(ctx, patch)
	if err != nil {
		s.Dispatch(Failed{Err: err})
		return domain.Plant{}, err
	}
	s.Dispatch(PlantCreated{Plant: p})
	s.loadCategories()
	return p, nil
}

// Update saves changes and replaces the held copy
func (s *Store) Update(ctx context.Context, id string, patch schema.Patch) (domain.Plant, error) {
	p, err := s.api.Update(ctx, id, patch)
	if err != nil {
		s.Dispatch(Failed{Err: err})
		return domain.Plant{}, err
	}
	s.Dispatch(PlantUpdated{Plant: p})
	s.loadCategories()
	return p, nil
}

// Delete removes a plant and drops it from the held list
func (s *Store) Delete(ctx context.Context, id string) error {
	if err := s.api.Delete(ctx, id); err != nil {
		s.Dispatch(Failed{Err: err})
		return err
	}
	s.Dispatch(PlantDeleted{ID: id})
	s.loadCategories()
	return nil
}

func (s *Store) waitIdle() {
	s.mu.Lock()
	for s.pending > 0 {
		s.idle.Wait()
	}
	s.mu.Unlock()
}

// Wait blocks until every request issued so far, including a debounced
// search, has been applied and delivered to subscribers
func (s *Store) Wait() {
	s.waitIdle()
	s.bus.WaitAsync()
}

// Close stops the debounce timer and abandons outstanding requests
func (s *Store) Close() {
	s.mu.Lock()
	s.closed = true
	s.stopSearchLocked()
	s.mu.Unlock()
	s.cancel()
	s.waitIdle()
}
