package orchestrator

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
	"unicode/utf8"
)

// FetchFunc performs the actual lookup for a normalized query. The context
// is the cancellation token: it is cancelled when the request is superseded
// by a newer query or when Cancel is called. Implementations must propagate
// the context into the underlying transport.
type FetchFunc[R any] func(ctx context.Context, query string) (R, error)

// Callbacks are the lifecycle notifications delivered to the caller.
// All fields are optional.
type Callbacks[R any] struct {
	// OnStart fires before a fetch begins. Not fired for cache-only hits.
	OnStart func(query string)

	// OnSuccess fires once per completed attempt that passes the sequence
	// guard. Cache hits are reported with fromCache=true; a refresh fetch
	// triggered by RefreshOnCache reports a second success with
	// fromCache=false.
	OnSuccess func(query string, result R, fromCache bool)

	// OnError fires when a fetch fails for a reason other than
	// cancellation and the sequence guard passes.
	OnError func(query string, err error)

	// OnFinally fires exactly once per dispatched attempt, after the
	// in-flight slot is cleared, on both success and failure paths. It is
	// not fired for inputs skipped by gating or deduplication.
	OnFinally func(query string)
}

// State is a read-only snapshot of the orchestrator.
type State[R any] struct {
	LatestText         string
	LastCompletedQuery string
	LastResult         R
	InFlightQuery      string
	IsInFlight         bool
	CacheSize          int
}

// Orchestrator coordinates debounced, deduplicated, cached lookups with at
// most one fetch in flight. Safe for concurrent use; one mutex guards all
// state and callbacks are invoked outside the lock.
type Orchestrator[R any] struct {
	fetch    FetchFunc[R]
	cb       Callbacks[R]
	logger   *slog.Logger
	cacheCap int

	mu             sync.Mutex
	opts           Options
	latestText     string
	lastDispatched string
	lastCompleted  string
	lastResult     R
	inFlight       string
	cancelFetch    context.CancelFunc
	timer          *time.Timer
	timerGen       uint64
	seq            uint64
	cache          *queryCache[R]
}

// New creates an orchestrator around the injected fetch function, which
// must be non-nil. One orchestrator should be created per input surface.
func New[R any](fetch FetchFunc[R], opts ...Option[R]) *Orchestrator[R] {
	o := &Orchestrator[R]{
		fetch:  fetch,
		opts:   DefaultOptions(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	o.cache = newQueryCache[R](o.cacheCap)
	return o
}

// SetText records the latest input text and (re)arms the debounce timer.
// Input whose normalized form is shorter than MinLength, equal to the last
// dispatched or in-flight query, or within one trailing rune of the last
// dispatched query is ignored without any callback.
func (o *Orchestrator[R]) SetText(text string) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.latestText = text
	query := Normalize(text)
	if utf8.RuneCountInString(query) < o.opts.MinLength {
		return
	}
	if o.shouldSkipLocked(query) {
		return
	}
	o.armTimerLocked(text)
}

// RunImmediate cancels any pending debounce timer and dispatches
// synchronously, for explicit user actions such as Enter. It still obeys
// the length gate, the near-duplicate filter and in-flight deduplication.
// An empty text argument reuses the latest recorded text.
func (o *Orchestrator[R]) RunImmediate(text string) {
	o.mu.Lock()
	if text == "" {
		text = o.latestText
	} else {
		o.latestText = text
	}
	o.stopTimerLocked()

	query := Normalize(text)
	if utf8.RuneCountInString(query) < o.opts.MinLength {
		o.mu.Unlock()
		return
	}
	if o.shouldSkipLocked(query) {
		o.mu.Unlock()
		return
	}
	o.mu.Unlock()

	o.run(text)
}

// Cancel clears any pending debounce timer, signals the cancellation token
// of the in-flight fetch if any, and clears in-flight bookkeeping. The
// cancellation-induced fetch error is swallowed, never reported via
// OnError.
func (o *Orchestrator[R]) Cancel() {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.stopTimerLocked()
	if o.cancelFetch != nil {
		o.cancelFetch()
		o.cancelFetch = nil
	}
	o.inFlight = ""
}

// Close releases the orchestrator when its input surface is torn down.
// Equivalent to Cancel; the instance holds no other resources.
func (o *Orchestrator[R]) Close() {
	o.Cancel()
}

// GetState returns a snapshot of the orchestrator state.
func (o *Orchestrator[R]) GetState() State[R] {
	o.mu.Lock()
	defer o.mu.Unlock()

	return State[R]{
		LatestText:         o.latestText,
		LastCompletedQuery: o.lastCompleted,
		LastResult:         o.lastResult,
		InFlightQuery:      o.inFlight,
		IsInFlight:         o.inFlight != "",
		CacheSize:          o.cache.len(),
	}
}

// SetOptions merges a partial option set into the live options. Changes
// apply to subsequent scheduling and cache reads; an already armed timer
// keeps its original delay.
func (o *Orchestrator[R]) SetOptions(patch OptionPatch) {
	o.mu.Lock()
	defer o.mu.Unlock()
	patch.Apply(&o.opts)
}

// ClearCache empties the result cache.
func (o *Orchestrator[R]) ClearCache() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.cache.purge()
}

// shouldSkipLocked applies the duplicate and near-duplicate gates.
func (o *Orchestrator[R]) shouldSkipLocked(query string) bool {
	if o.inFlight != "" && query == o.inFlight {
		o.logger.Debug("skip: query already in flight", slog.String("query", query))
		return true
	}
	if query == o.lastDispatched {
		o.logger.Debug("skip: duplicate of last query", slog.String("query", query))
		return true
	}
	if o.lastDispatched != "" && nearDuplicate(query, o.lastDispatched) {
		o.logger.Debug("skip: not enough change",
			slog.String("query", query),
			slog.String("last", o.lastDispatched))
		return true
	}
	return false
}

// armTimerLocked (re)arms the debounce timer for text, which has already
// passed the gates. The text is captured here rather than read at fire
// time, so input the gates reject later cannot displace it. The generation
// counter makes a stale AfterFunc that already fired past Stop abandon
// itself.
func (o *Orchestrator[R]) armTimerLocked(text string) {
	if o.timer != nil {
		o.timer.Stop()
	}
	o.timerGen++
	gen := o.timerGen
	o.timer = time.AfterFunc(o.opts.Debounce, func() {
		o.mu.Lock()
		if gen != o.timerGen {
			o.mu.Unlock()
			return
		}
		o.timer = nil
		o.mu.Unlock()
		o.run(text)
	})
}

func (o *Orchestrator[R]) stopTimerLocked() {
	if o.timer != nil {
		o.timer.Stop()
		o.timer = nil
	}
	o.timerGen++
}

// run re-validates the query, consults the cache, supersedes any other
// in-flight fetch and dispatches a new one.
func (o *Orchestrator[R]) run(text string) {
	query := Normalize(text)

	o.mu.Lock()
	opts := o.opts
	if utf8.RuneCountInString(query) < opts.MinLength {
		o.mu.Unlock()
		return
	}
	if o.inFlight == query {
		o.mu.Unlock()
		return
	}

	if opts.UseCache {
		if result, ok := o.cache.get(query, opts.CacheTTL); ok {
			o.lastDispatched = query
			o.lastCompleted = query
			o.lastResult = result
			cb := o.cb
			o.mu.Unlock()

			o.logger.Debug("cache hit", slog.String("query", query))
			if cb.OnSuccess != nil {
				cb.OnSuccess(query, result, true)
			}
			if !opts.RefreshOnCache {
				return
			}

			o.mu.Lock()
			if o.inFlight == query {
				o.mu.Unlock()
				return
			}
		}
	}

	// Supersede: signal the previous token strictly before the new fetch
	// begins.
	if o.cancelFetch != nil {
		o.cancelFetch()
		o.cancelFetch = nil
		o.inFlight = ""
	}

	o.seq++
	seq := o.seq
	ctx, cancel := context.WithCancel(context.Background())
	o.cancelFetch = cancel
	o.inFlight = query
	o.lastDispatched = query
	cb := o.cb
	o.mu.Unlock()

	o.logger.Debug("dispatching fetch",
		slog.String("query", query),
		slog.Uint64("seq", seq))
	if cb.OnStart != nil {
		cb.OnStart(query)
	}

	go o.resolve(ctx, cancel, query, seq)
}

// resolve waits for the fetch outcome and applies the sequence guard: only
// the attempt whose captured sequence still equals the current counter may
// mutate state or fire success/error callbacks.
func (o *Orchestrator[R]) resolve(ctx context.Context, cancel context.CancelFunc, query string, seq uint64) {
	result, err := o.fetch(ctx, query)
	cancel()

	o.mu.Lock()
	if seq != o.seq {
		cb := o.cb
		o.mu.Unlock()

		o.logger.Debug("discarding superseded response",
			slog.String("query", query),
			slog.Uint64("seq", seq))
		if cb.OnFinally != nil {
			cb.OnFinally(query)
		}
		return
	}

	if o.inFlight == query {
		o.inFlight = ""
	}
	o.cancelFetch = nil
	cb := o.cb

	if err != nil {
		o.mu.Unlock()

		if isCancellation(err) {
			o.logger.Debug("fetch cancelled", slog.String("query", query))
		} else {
			o.logger.Debug("fetch failed",
				slog.String("query", query),
				slog.String("error", err.Error()))
			if cb.OnError != nil {
				cb.OnError(query, err)
			}
		}
		if cb.OnFinally != nil {
			cb.OnFinally(query)
		}
		return
	}

	o.lastCompleted = query
	o.lastResult = result
	if o.opts.UseCache {
		o.cache.put(query, result)
	}
	o.mu.Unlock()

	if cb.OnSuccess != nil {
		cb.OnSuccess(query, result, false)
	}
	if cb.OnFinally != nil {
		cb.OnFinally(query)
	}
}

// isCancellation reports whether a fetch error was caused by the
// cancellation token. Deadline errors are transport errors, not
// cancellations.
func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled)
}
