package rate

import (
	"context"
	"errors"
	"fxsync/internal/adapters"
	"fxsync/internal/domain"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	DefaultCurrency domain.CurrencyCode = "USD"

	defaultFetchTimeout = 5 * time.Second
	defaultEventBuffer  = 16
)

// Recorder receives engine metrics.
type Recorder interface {
	CycleStarted()
	CycleFinished(status domain.EngineStatus, took time.Duration)
	FetchFailed(source domain.FetchSource, kind domain.ErrorKind)
	EventDropped()
}

type noopRecorder struct{}

func (noopRecorder) CycleStarted() {}

func (noopRecorder) CycleFinished(domain.EngineStatus, time.Duration) {}

func (noopRecorder) FetchFailed(domain.FetchSource, domain.ErrorKind) {}

func (noopRecorder) EventDropped() {}

type Option func(*Engine)

func WithStalenessPolicy(p StalenessPolicy) Option {
	return func(e *Engine) { e.policy = p }
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithFetchTimeout bounds each remote fetch of a refresh cycle.
func WithFetchTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.fetchTimeout = d
		}
	}
}

// WithEventBuffer sets how many error events may wait for the consumer.
func WithEventBuffer(size int) Option {
	return func(e *Engine) {
		if size > 0 {
			e.eventBuffer = size
		}
	}
}

func WithMetrics(r Recorder) Option {
	return func(e *Engine) {
		if r != nil {
			e.metrics = r
		}
	}
}

func WithDefaultCurrency(code domain.CurrencyCode) Option {
	return func(e *Engine) {
		if code != "" {
			e.selected = code
		}
	}
}

func WithAmount(amount float64) Option {
	return func(e *Engine) { e.amount = amount }
}

// Engine keeps the currency tables in sync with a remote source and serves conversions from them.
// All state is guarded by mu; callers only ever see copies.
type Engine struct {
	cache        adapters.RateCache
	source       adapters.RateSource
	policy       StalenessPolicy
	now          func() time.Time
	fetchTimeout time.Duration
	eventBuffer  int
	metrics      Recorder

	events chan domain.ErrorEvent

	mu          sync.Mutex
	loaded      bool
	started     bool
	status      domain.EngineStatus
	names       domain.NameTable
	rates       domain.RateTable
	lastRefresh *time.Time
	selected    domain.CurrencyCode
	amount      float64
	results     domain.ConversionResult
	lastErr     *domain.ErrorKind
	inflight    chan struct{} // closed when the running cycle ends, nil between cycles
	subs        map[int]chan domain.EngineState
	nextSubID   int
}

func NewEngine(cache adapters.RateCache, source adapters.RateSource, opts ...Option) *Engine {
	e := &Engine{
		cache:        cache,
		source:       source,
		policy:       NewStalenessPolicy(DefaultMaxAge),
		now:          time.Now,
		fetchTimeout: defaultFetchTimeout,
		eventBuffer:  defaultEventBuffer,
		metrics:      noopRecorder{},
		status:       domain.StatusIdle,
		names:        domain.NameTable{},
		rates:        domain.RateTable{},
		selected:     DefaultCurrency,
		results:      domain.ConversionResult{},
		subs:         make(map[int]chan domain.EngineState),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.events = make(chan domain.ErrorEvent, e.eventBuffer)
	return e
}

// Start loads the cached tables, publishes a first result and checks staleness in the background.
// Only the first call has an effect.
func (e *Engine) Start(ctx context.Context) {
	e.mu.Lock()
	if e.started {
		e.mu.Unlock()
		return
	}
	e.started = true
	e.mu.Unlock()

	e.ensureLoaded(ctx)

	e.mu.Lock()
	if e.inflight == nil {
		e.status = domain.StatusReady
	}
	e.publishLocked()
	e.mu.Unlock()

	go func() {
		if err := e.RefreshIfNeeded(ctx); err != nil {
			logrus.WithError(err).Debug("Initial refresh check interrupted")
		}
	}()
}

// RefreshIfNeeded refreshes the tables when one of them is empty or they are stale.
// A call made while a cycle is running joins that cycle. It returns once the cycle is over,
// or with ctx.Err() if ctx ends first; the cycle itself is not canceled.
// Fetch failures are reported through State and Events, never as the returned error.
func (e *Engine) RefreshIfNeeded(ctx context.Context) error {
	e.ensureLoaded(ctx)

	e.mu.Lock()

	if done := e.inflight; done != nil {
		e.mu.Unlock()
		return wait(ctx, done)
	}

	if len(e.names) > 0 && len(e.rates) > 0 && !e.policy.IsStale(e.lastRefresh, e.now()) {
		e.results = Convert(e.rates, e.names, e.selected, e.amount)
		e.status = domain.StatusReady
		e.publishLocked()
		e.mu.Unlock()
		return nil
	}

	done := make(chan struct{})
	e.inflight = done
	needNames := len(e.names) == 0
	e.status = domain.StatusRefreshing
	e.publishLocked()
	e.mu.Unlock()

	go e.runCycle(context.WithoutCancel(ctx), needNames, done)
	return wait(ctx, done)
}

// SetAmount changes the amount to convert and recomputes the result from the in-memory tables.
func (e *Engine) SetAmount(amount float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.amount = amount
	e.results = Convert(e.rates, e.names, e.selected, e.amount)
	e.publishLocked()
}

// SetSelectedCurrency changes the currency the amount is given in and recomputes the result.
func (e *Engine) SetSelectedCurrency(code string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.selected = domain.NormalizeCode(code)
	e.results = Convert(e.rates, e.names, e.selected, e.amount)
	e.publishLocked()
}

func (e *Engine) State() domain.EngineState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

func (e *Engine) Names() domain.NameTable {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.names.Clone()
}

// Subscribe returns a channel holding the latest state snapshot. A slow reader only misses
// intermediate snapshots, never the latest one. The returned func unsubscribes and closes the channel.
func (e *Engine) Subscribe() (<-chan domain.EngineState, func()) {
	ch := make(chan domain.EngineState, 1)

	e.mu.Lock()
	id := e.nextSubID
	e.nextSubID++
	e.subs[id] = ch
	ch <- e.snapshotLocked()
	e.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			e.mu.Lock()
			delete(e.subs, id)
			close(ch)
			e.mu.Unlock()
		})
	}
}

// Events delivers one error event per failed fetch. It is meant for a single consumer.
// Delivery is best-effort beyond the buffer size set by WithEventBuffer (sync.event_buffer):
// an event that finds the buffer full is dropped, logged at error level and counted by the
// Recorder's EventDropped.
func (e *Engine) Events() <-chan domain.ErrorEvent {
	return e.events
}

type fetchResult[T any] struct {
	table T
	err   error
}

func (e *Engine) runCycle(ctx context.Context, needNames bool, done chan struct{}) {
	defer close(done)

	cycleID := uuid.NewString()
	log := logrus.WithField("cycle", cycleID)
	started := time.Now()
	e.metrics.CycleStarted()
	log.WithField("fetch_names", needNames).Info("Refresh cycle started")

	// names and rates are independent, a failure of one does not stop the other
	var (
		wg    sync.WaitGroup
		names fetchResult[domain.NameTable]
		rates fetchResult[domain.RateTable]
	)
	if needNames {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fetchCtx, cancel := context.WithTimeout(ctx, e.fetchTimeout)
			defer cancel()
			names.table, names.err = e.source.FetchCurrencyNames(fetchCtx)
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		fetchCtx, cancel := context.WithTimeout(ctx, e.fetchTimeout)
		defer cancel()
		rates.table, rates.err = e.source.FetchRates(fetchCtx)
	}()
	wg.Wait()

	if needNames {
		if names.err != nil {
			e.emit(log, domain.SourceNames, names.err)
		} else if err := e.cache.SaveNames(ctx, names.table); err != nil {
			log.WithError(err).Warn("Failed to persist currency names")
		}
	}
	if rates.err == nil {
		if err := e.cache.SaveRates(ctx, rates.table); err != nil {
			log.WithError(err).Warn("Failed to persist currency rates")
		}
	}

	e.mu.Lock()
	if needNames && names.err == nil {
		e.names = names.table.Clone()
	}
	if rates.err != nil {
		kind := domain.KindOf(rates.err)
		e.lastErr = &kind
		e.status = domain.StatusFailed
	} else {
		e.rates = rates.table.Clone()
		if !needNames || names.err == nil {
			refreshedAt := e.now()
			e.lastRefresh = &refreshedAt
		}
		e.lastErr = nil
		e.results = Convert(e.rates, e.names, e.selected, e.amount)
		e.status = domain.StatusReady
	}
	e.inflight = nil
	status := e.status
	e.publishLocked()
	e.mu.Unlock()

	if rates.err != nil {
		e.emit(log, domain.SourceRates, rates.err)
	}

	took := time.Since(started)
	e.metrics.CycleFinished(status, took)
	log.WithFields(logrus.Fields{"status": status, "took": took}).Info("Refresh cycle finished")
}

func (e *Engine) emit(log *logrus.Entry, source domain.FetchSource, err error) {
	kind := domain.KindOf(err)
	e.metrics.FetchFailed(source, kind)
	log = log.WithError(err).WithFields(logrus.Fields{"source": source, "kind": kind})
	log.Error("Remote fetch failed")

	ev := domain.ErrorEvent{Source: source, Kind: kind, Err: err, At: e.now()}
	select {
	case e.events <- ev:
	default:
		e.metrics.EventDropped()
		log.Error("Error event buffer is full, event not delivered")
	}
}

// ensureLoaded reads the cached tables until one read of both succeeds. The store is read
// without holding mu; a cached table only fills an in-memory table that is still empty, so a
// table committed by a cycle in the meantime is kept.
func (e *Engine) ensureLoaded(ctx context.Context) {
	e.mu.Lock()
	loaded := e.loaded
	e.mu.Unlock()
	if loaded {
		return
	}

	names, namesErr := e.cache.LoadNames(ctx)
	rates, ratesErr := e.cache.LoadRates(ctx)

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.loaded {
		return
	}
	if len(e.names) == 0 && len(names) > 0 {
		e.names = names
	}
	if len(e.rates) == 0 && len(rates) > 0 {
		e.rates = rates
	}
	e.results = Convert(e.rates, e.names, e.selected, e.amount)

	log := logrus.WithFields(logrus.Fields{"names": len(e.names), "rates": len(e.rates)})
	if namesErr != nil || ratesErr != nil {
		log.WithError(errors.Join(namesErr, ratesErr)).Warn("Cached currency tables unavailable, will read again on next refresh")
		return
	}
	e.loaded = true
	log.Info("Loaded cached currency tables")
}

func (e *Engine) snapshotLocked() domain.EngineState {
	st := domain.EngineState{
		Status:           e.status,
		IsLoading:        e.inflight != nil,
		Results:          slices.Clone(e.results),
		SelectedCurrency: e.selected,
		Amount:           e.amount,
	}
	if st.Results == nil {
		st.Results = domain.ConversionResult{}
	}
	if e.lastErr != nil {
		kind := *e.lastErr
		st.LastError = &kind
	}
	if e.lastRefresh != nil {
		t := *e.lastRefresh
		st.LastRefresh = &t
	}
	return st
}

// publishLocked replaces whatever snapshot a subscriber has not read yet with the current one.
func (e *Engine) publishLocked() {
	if len(e.subs) == 0 {
		return
	}
	for _, ch := range e.subs {
		select {
		case <-ch:
		default:
		}
		ch <- e.snapshotLocked()
	}
}

func wait(ctx context.Context, done <-chan struct{}) error {
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
