package orchestrator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeFetch records every dispatched query and delegates to an optional
// scripted function. When fn is nil it resolves immediately with
// "<query> results".
type fakeFetch struct {
	mu    sync.Mutex
	calls []string
	fn    func(ctx context.Context, query string) (string, error)
}

func (f *fakeFetch) fetch(ctx context.Context, query string) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, query)
	fn := f.fn
	f.mu.Unlock()

	if fn == nil {
		return query + " results", nil
	}
	return fn(ctx, query)
}

func (f *fakeFetch) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

type successEvent struct {
	query     string
	result    string
	fromCache bool
}

type errorEvent struct {
	query string
	err   error
}

// events collects callback invocations and exposes channels for tests to
// wait on specific lifecycle points.
type events struct {
	mu        sync.Mutex
	starts    []string
	successes []successEvent
	errors    []errorEvent
	finals    []string

	successCh chan successEvent
	errorCh   chan errorEvent
	finallyCh chan string
}

func newEvents() *events {
	return &events{
		successCh: make(chan successEvent, 16),
		errorCh:   make(chan errorEvent, 16),
		finallyCh: make(chan string, 16),
	}
}

func (e *events) callbacks() Callbacks[string] {
	return Callbacks[string]{
		OnStart: func(query string) {
			e.mu.Lock()
			e.starts = append(e.starts, query)
			e.mu.Unlock()
		},
		OnSuccess: func(query, result string, fromCache bool) {
			ev := successEvent{query: query, result: result, fromCache: fromCache}
			e.mu.Lock()
			e.successes = append(e.successes, ev)
			e.mu.Unlock()
			e.successCh <- ev
		},
		OnError: func(query string, err error) {
			ev := errorEvent{query: query, err: err}
			e.mu.Lock()
			e.errors = append(e.errors, ev)
			e.mu.Unlock()
			e.errorCh <- ev
		},
		OnFinally: func(query string) {
			e.mu.Lock()
			e.finals = append(e.finals, query)
			e.mu.Unlock()
			e.finallyCh <- query
		},
	}
}

func (e *events) successEvents() []successEvent {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]successEvent(nil), e.successes...)
}

func (e *events) errorEvents() []errorEvent {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]errorEvent(nil), e.errors...)
}

func (e *events) finallyEvents() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.finals...)
}

func waitSuccess(t *testing.T, e *events) successEvent {
	t.Helper()
	select {
	case ev := <-e.successCh:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for OnSuccess")
		return successEvent{}
	}
}

func waitFinally(t *testing.T, e *events) string {
	t.Helper()
	select {
	case q := <-e.finallyCh:
		return q
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for OnFinally")
		return ""
	}
}

func ptr[T any](v T) *T { return &v }

func shortOptions() Options {
	opts := DefaultOptions()
	opts.Debounce = 30 * time.Millisecond
	return opts
}

func TestOrchestrator_ShortInput_NeverFetches(t *testing.T) {
	// Given: default minimum length of 3
	fake := &fakeFetch{}
	ev := newEvents()
	o := New(fake.fetch, WithOptions[string](shortOptions()), WithCallbacks(ev.callbacks()))
	defer o.Close()

	// When: input below the length gate arrives
	o.SetText("hi")
	o.SetText("  hi  ") // still 2 runes after normalization
	o.SetText("a")

	time.Sleep(100 * time.Millisecond)

	// Then: no fetch and no callbacks
	assert.Empty(t, fake.Calls())
	assert.Empty(t, ev.successEvents())
	assert.Empty(t, ev.finallyEvents())
}

func TestOrchestrator_DebounceBurst_SingleFetch(t *testing.T) {
	// Given: a 60ms debounce window
	fake := &fakeFetch{}
	ev := newEvents()
	opts := DefaultOptions()
	opts.Debounce = 60 * time.Millisecond
	o := New(fake.fetch, WithOptions[string](opts), WithCallbacks(ev.callbacks()))
	defer o.Close()

	// When: the same text arrives twice within the window
	o.SetText("explain react hooks")
	time.Sleep(20 * time.Millisecond)
	o.SetText("explain react hooks")

	// Then: exactly one fetch fires for the pair
	got := waitSuccess(t, ev)
	assert.Equal(t, "explain react hooks", got.query)
	assert.False(t, got.fromCache)

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, []string{"explain react hooks"}, fake.Calls())
}

func TestOrchestrator_BurstLastWriteWins(t *testing.T) {
	// Given: a 60ms debounce window
	fake := &fakeFetch{}
	ev := newEvents()
	opts := DefaultOptions()
	opts.Debounce = 60 * time.Millisecond
	o := New(fake.fetch, WithOptions[string](opts), WithCallbacks(ev.callbacks()))
	defer o.Close()

	// When: a second, different text arrives before the window elapses
	o.SetText("explain react")
	time.Sleep(20 * time.Millisecond)
	o.SetText("explain react hooks")

	// Then: only the latest text is ever fetched
	got := waitSuccess(t, ev)
	assert.Equal(t, "explain react hooks", got.query)

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, []string{"explain react hooks"}, fake.Calls())
}

func TestOrchestrator_SupersededFetchCancelledBeforeNext(t *testing.T) {
	// Given: a fetch for "foo" that blocks on its cancellation token
	fooCtx := make(chan context.Context, 1)
	fooEntered := make(chan struct{})
	fooCancelledFirst := make(chan bool, 1)

	fake := &fakeFetch{}
	fake.fn = func(ctx context.Context, query string) (string, error) {
		switch query {
		case "foo":
			fooCtx <- ctx
			close(fooEntered)
			<-ctx.Done()
			return "", ctx.Err()
		default:
			prev := <-fooCtx
			fooCancelledFirst <- prev.Err() != nil
			return query + " results", nil
		}
	}

	ev := newEvents()
	o := New(fake.fetch, WithOptions[string](shortOptions()), WithCallbacks(ev.callbacks()))
	defer o.Close()

	o.RunImmediate("foo")
	select {
	case <-fooEntered:
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for first fetch to start")
	}

	// When: a different query arrives while "foo" is in flight
	o.SetText("bar")

	// Then: foo's token is signalled strictly before bar's fetch begins
	got := waitSuccess(t, ev)
	require.Equal(t, "bar", got.query)

	select {
	case cancelled := <-fooCancelledFirst:
		assert.True(t, cancelled, "previous token must be cancelled before the new fetch runs")
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for cancellation check")
	}

	// The cancelled fetch is swallowed: OnFinally only, never OnError.
	waitFinally(t, ev)
	waitFinally(t, ev)
	assert.Empty(t, ev.errorEvents())
	for _, s := range ev.successEvents() {
		assert.Equal(t, "bar", s.query)
	}
}

func TestOrchestrator_CacheHit_NoFetch(t *testing.T) {
	// Given: "explain react hooks" already fetched and cached
	fake := &fakeFetch{}
	ev := newEvents()
	o := New(fake.fetch, WithOptions[string](shortOptions()), WithCallbacks(ev.callbacks()))
	defer o.Close()

	o.RunImmediate("explain react hooks")
	waitSuccess(t, ev)
	o.RunImmediate("quantum computing")
	waitSuccess(t, ev)

	// When: the cached query is typed again within the TTL
	o.SetText("explain react hooks")

	// Then: the hit is served from cache with no third fetch
	got := waitSuccess(t, ev)
	assert.Equal(t, "explain react hooks", got.query)
	assert.True(t, got.fromCache)
	assert.Equal(t, "explain react hooks results", got.result)

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, []string{"explain react hooks", "quantum computing"}, fake.Calls())
}

func TestOrchestrator_CacheExpiry_Refetches(t *testing.T) {
	// Given: a 40ms cache TTL
	fake := &fakeFetch{}
	ev := newEvents()
	opts := shortOptions()
	opts.CacheTTL = 40 * time.Millisecond
	o := New(fake.fetch, WithOptions[string](opts), WithCallbacks(ev.callbacks()))
	defer o.Close()

	o.RunImmediate("explain react hooks")
	waitSuccess(t, ev)
	o.RunImmediate("quantum computing")
	waitSuccess(t, ev)

	// When: the TTL elapses before the query repeats
	time.Sleep(80 * time.Millisecond)
	o.SetText("explain react hooks")

	// Then: a real fetch happens again
	got := waitSuccess(t, ev)
	assert.Equal(t, "explain react hooks", got.query)
	assert.False(t, got.fromCache)
	assert.Len(t, fake.Calls(), 3)
}

func TestOrchestrator_RefreshOnCache_TwoSuccesses(t *testing.T) {
	// Given: refresh-on-cache enabled and a cached query
	fake := &fakeFetch{}
	ev := newEvents()
	opts := shortOptions()
	opts.RefreshOnCache = true
	o := New(fake.fetch, WithOptions[string](opts), WithCallbacks(ev.callbacks()))
	defer o.Close()

	o.RunImmediate("explain react hooks")
	waitSuccess(t, ev)
	o.RunImmediate("quantum computing")
	waitSuccess(t, ev)

	// When: the cached query repeats
	o.SetText("explain react hooks")

	// Then: the cache hit is reported first, then the fresh result
	first := waitSuccess(t, ev)
	second := waitSuccess(t, ev)
	assert.True(t, first.fromCache)
	assert.False(t, second.fromCache)
	assert.Equal(t, "explain react hooks", first.query)
	assert.Equal(t, "explain react hooks", second.query)
	assert.Len(t, fake.Calls(), 3)
}

func TestOrchestrator_MinLengthAndDebounce(t *testing.T) {
	// Given: minLength=5, debounce=400ms
	fake := &fakeFetch{}
	ev := newEvents()
	opts := DefaultOptions()
	opts.MinLength = 5
	opts.Debounce = 400 * time.Millisecond
	o := New(fake.fetch, WithOptions[string](opts), WithCallbacks(ev.callbacks()))
	defer o.Close()

	// When: a too-short text then a real query arrive
	o.SetText("hi")
	o.SetText("explain react hooks")

	// Then: after the window, exactly one fetch fires
	got := waitSuccess(t, ev)
	assert.Equal(t, "explain react hooks", got.query)
	assert.Equal(t, "explain react hooks results", got.result)
	assert.Equal(t, []string{"explain react hooks"}, fake.Calls())
}

func TestOrchestrator_StaleResponseDiscarded(t *testing.T) {
	// Given: an uncancellable transport where "foo" takes 500ms and "bar"
	// takes 50ms
	fake := &fakeFetch{}
	fake.fn = func(ctx context.Context, query string) (string, error) {
		if query == "foo" {
			time.Sleep(500 * time.Millisecond) // ignores the token
			return "foo results", nil
		}
		time.Sleep(50 * time.Millisecond)
		return "bar results", nil
	}

	ev := newEvents()
	o := New(fake.fetch, WithOptions[string](shortOptions()), WithCallbacks(ev.callbacks()))
	defer o.Close()

	o.RunImmediate("foo")
	time.Sleep(100 * time.Millisecond)

	// When: "bar" supersedes "foo" and resolves first
	o.SetText("bar")
	got := waitSuccess(t, ev)
	require.Equal(t, "bar", got.query)

	// Then: even after foo's response lands, it never surfaces
	time.Sleep(600 * time.Millisecond)

	for _, s := range ev.successEvents() {
		assert.Equal(t, "bar", s.query, "superseded response must not fire OnSuccess")
	}
	state := o.GetState()
	assert.Equal(t, "bar results", state.LastResult)
	assert.Equal(t, "bar", state.LastCompletedQuery)

	// Both attempts were dispatched, so both fire OnFinally.
	assert.ElementsMatch(t, []string{"foo", "bar"}, ev.finallyEvents())
}

func TestOrchestrator_RunImmediate_BypassesDebounce(t *testing.T) {
	// Given: a debounce window far longer than the test
	fake := &fakeFetch{}
	ev := newEvents()
	opts := DefaultOptions()
	opts.Debounce = 10 * time.Second
	o := New(fake.fetch, WithOptions[string](opts), WithCallbacks(ev.callbacks()))
	defer o.Close()

	// When: RunImmediate is invoked
	o.RunImmediate("quantum computing")

	// Then: OnStart has already fired synchronously and the fetch resolves
	// without waiting for the debounce window
	ev.mu.Lock()
	starts := append([]string(nil), ev.starts...)
	ev.mu.Unlock()
	assert.Equal(t, []string{"quantum computing"}, starts)

	got := waitSuccess(t, ev)
	assert.Equal(t, "quantum computing", got.query)
	assert.Equal(t, []string{"quantum computing"}, fake.Calls())
}

func TestOrchestrator_TransportError_SurfacesViaOnError(t *testing.T) {
	// Given: a fetch that fails with a non-cancellation error
	boom := errors.New("recall service unavailable")
	fake := &fakeFetch{}
	fake.fn = func(ctx context.Context, query string) (string, error) {
		return "", boom
	}

	ev := newEvents()
	o := New(fake.fetch, WithOptions[string](shortOptions()), WithCallbacks(ev.callbacks()))
	defer o.Close()

	// When: a query dispatches
	o.RunImmediate("explain react hooks")

	// Then: OnError and OnFinally fire, OnSuccess does not
	select {
	case got := <-ev.errorCh:
		assert.Equal(t, "explain react hooks", got.query)
		assert.ErrorIs(t, got.err, boom)
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for OnError")
	}
	waitFinally(t, ev)
	assert.Empty(t, ev.successEvents())
	assert.False(t, o.GetState().IsInFlight)
}

func TestOrchestrator_Cancel_SwallowsCancellation(t *testing.T) {
	// Given: a fetch blocked on its cancellation token
	entered := make(chan struct{})
	fake := &fakeFetch{}
	fake.fn = func(ctx context.Context, query string) (string, error) {
		close(entered)
		<-ctx.Done()
		return "", ctx.Err()
	}

	ev := newEvents()
	o := New(fake.fetch, WithOptions[string](shortOptions()), WithCallbacks(ev.callbacks()))

	o.RunImmediate("explain react hooks")
	select {
	case <-entered:
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for fetch to start")
	}

	// When: the caller cancels
	o.Cancel()

	// Then: bookkeeping clears, OnFinally fires, OnError never does
	assert.False(t, o.GetState().IsInFlight)
	waitFinally(t, ev)
	assert.Empty(t, ev.errorEvents())
	assert.Empty(t, ev.successEvents())
}

func TestOrchestrator_Cancel_ClearsPendingTimer(t *testing.T) {
	// Given: a pending debounce timer
	fake := &fakeFetch{}
	ev := newEvents()
	opts := DefaultOptions()
	opts.Debounce = 50 * time.Millisecond
	o := New(fake.fetch, WithOptions[string](opts), WithCallbacks(ev.callbacks()))

	o.SetText("explain react hooks")

	// When: cancelled before the timer fires
	o.Cancel()

	// Then: nothing dispatches
	time.Sleep(120 * time.Millisecond)
	assert.Empty(t, fake.Calls())
	assert.Empty(t, ev.finallyEvents())
}

func TestOrchestrator_DuplicateWhileInFlight_Skipped(t *testing.T) {
	// Given: a fetch for "explain react" held open
	entered := make(chan struct{})
	release := make(chan struct{})
	fake := &fakeFetch{}
	fake.fn = func(ctx context.Context, query string) (string, error) {
		close(entered)
		<-release
		return query + " results", nil
	}

	ev := newEvents()
	o := New(fake.fetch, WithOptions[string](shortOptions()), WithCallbacks(ev.callbacks()))
	defer o.Close()

	o.RunImmediate("explain react")
	select {
	case <-entered:
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for fetch to start")
	}

	// When: the same query arrives again while in flight
	o.RunImmediate("explain react")
	o.SetText("explain react")

	// Then: it is a silent no-op; one fetch, one success, one finally
	close(release)
	waitSuccess(t, ev)
	waitFinally(t, ev)

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, []string{"explain react"}, fake.Calls())
	assert.Len(t, ev.successEvents(), 1)
	assert.Len(t, ev.finallyEvents(), 1)
}

func TestOrchestrator_NearDuplicate_Skipped(t *testing.T) {
	// Given: "explain react" was just dispatched
	fake := &fakeFetch{}
	ev := newEvents()
	o := New(fake.fetch, WithOptions[string](shortOptions()), WithCallbacks(ev.callbacks()))
	defer o.Close()

	o.RunImmediate("explain react")
	waitSuccess(t, ev)

	// When: the user keeps typing or deleting a single trailing rune
	o.SetText("explain reactt")
	o.SetText("explain reac")
	o.SetText("Explain   React") // normalizes to the exact duplicate

	// Then: nothing new dispatches
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, []string{"explain react"}, fake.Calls())

	// But a genuinely different query does dispatch.
	o.SetText("explain react hooks")
	got := waitSuccess(t, ev)
	assert.Equal(t, "explain react hooks", got.query)
}

func TestOrchestrator_SkippedDuplicate_KeepsPendingText(t *testing.T) {
	// Given: "explain react" completed and "foo bar" waiting on the timer
	fake := &fakeFetch{}
	ev := newEvents()
	o := New(fake.fetch, WithOptions[string](shortOptions()), WithCallbacks(ev.callbacks()))
	defer o.Close()

	o.RunImmediate("explain react")
	waitSuccess(t, ev)

	o.SetText("foo bar")

	// When: a skipped duplicate of the completed query arrives before the
	// timer fires
	o.SetText("explain react")

	// Then: the accepted text still dispatches; the duplicate stays silent
	got := waitSuccess(t, ev)
	assert.Equal(t, "foo bar", got.query)
	assert.False(t, got.fromCache)

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, []string{"explain react", "foo bar"}, fake.Calls())
	for _, s := range ev.successEvents() {
		assert.False(t, s.fromCache, "skipped duplicate must not be served from cache")
	}
}

func TestOrchestrator_SkippedShortInput_KeepsPendingText(t *testing.T) {
	// Given: "foo bar" waiting on the timer
	fake := &fakeFetch{}
	ev := newEvents()
	o := New(fake.fetch, WithOptions[string](shortOptions()), WithCallbacks(ev.callbacks()))
	defer o.Close()

	o.SetText("foo bar")

	// When: input below the length gate arrives before the timer fires
	o.SetText("hi")

	// Then: the accepted text still dispatches
	got := waitSuccess(t, ev)
	assert.Equal(t, "foo bar", got.query)
	assert.Equal(t, []string{"foo bar"}, fake.Calls())
}

func TestOrchestrator_SetOptions_AppliesAtRuntime(t *testing.T) {
	// Given: default options
	fake := &fakeFetch{}
	ev := newEvents()
	o := New(fake.fetch, WithOptions[string](shortOptions()), WithCallbacks(ev.callbacks()))
	defer o.Close()

	// When: the minimum length is raised
	o.SetOptions(OptionPatch{MinLength: ptr(15)})
	o.SetText("hello there")

	// Then: previously valid input is now gated
	time.Sleep(100 * time.Millisecond)
	assert.Empty(t, fake.Calls())

	// And lowering it again lets the same input through.
	o.SetOptions(OptionPatch{MinLength: ptr(3)})
	o.SetText("hello there")
	got := waitSuccess(t, ev)
	assert.Equal(t, "hello there", got.query)
}

func TestOrchestrator_DisableCache_SkipsMemoization(t *testing.T) {
	// Given: caching disabled at runtime
	fake := &fakeFetch{}
	ev := newEvents()
	o := New(fake.fetch, WithOptions[string](shortOptions()), WithCallbacks(ev.callbacks()))
	defer o.Close()

	o.SetOptions(OptionPatch{UseCache: ptr(false)})

	o.RunImmediate("explain react hooks")
	waitSuccess(t, ev)
	o.RunImmediate("quantum computing")
	waitSuccess(t, ev)

	// When: a previously fetched query repeats
	o.SetText("explain react hooks")

	// Then: it fetches again instead of serving from cache
	got := waitSuccess(t, ev)
	assert.False(t, got.fromCache)
	assert.Len(t, fake.Calls(), 3)
	assert.Equal(t, 0, o.GetState().CacheSize)
}

func TestOrchestrator_WithCacheCapacity_BoundsCache(t *testing.T) {
	// Given: a cache bounded to a single query
	fake := &fakeFetch{}
	ev := newEvents()
	o := New(fake.fetch,
		WithOptions[string](shortOptions()),
		WithCallbacks(ev.callbacks()),
		WithCacheCapacity[string](1))
	defer o.Close()

	// When: two distinct queries complete
	o.RunImmediate("explain react hooks")
	waitSuccess(t, ev)
	o.RunImmediate("quantum computing")
	waitSuccess(t, ev)

	// Then: only the most recent result stays memoized
	assert.Equal(t, 1, o.GetState().CacheSize)
}

func TestOrchestrator_GetState_Snapshot(t *testing.T) {
	fake := &fakeFetch{}
	ev := newEvents()
	o := New(fake.fetch, WithOptions[string](shortOptions()), WithCallbacks(ev.callbacks()))
	defer o.Close()

	o.RunImmediate("Explain   React Hooks")
	waitSuccess(t, ev)
	waitFinally(t, ev)

	state := o.GetState()
	assert.Equal(t, "Explain   React Hooks", state.LatestText)
	assert.Equal(t, "explain react hooks", state.LastCompletedQuery)
	assert.Equal(t, "explain react hooks results", state.LastResult)
	assert.False(t, state.IsInFlight)
	assert.Empty(t, state.InFlightQuery)
	assert.Equal(t, 1, state.CacheSize)

	o.ClearCache()
	assert.Equal(t, 0, o.GetState().CacheSize)
}
