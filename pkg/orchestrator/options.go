package orchestrator

import (
	"log/slog"
	"time"
)

// Default option values.
const (
	// DefaultMinLength is the minimum normalized query length, in runes,
	// below which input is ignored.
	DefaultMinLength = 3

	// DefaultDebounce is the trailing-edge debounce window for SetText.
	DefaultDebounce = 75 * time.Millisecond

	// DefaultCacheTTL is how long a cached result is served before a
	// repeated query triggers a live fetch again.
	DefaultCacheTTL = 60 * time.Second

	// DefaultCacheCapacity bounds the number of memoized queries.
	DefaultCacheCapacity = 256
)

// Options controls orchestrator behavior. All fields can be changed at
// runtime via SetOptions without reconstructing the instance.
type Options struct {
	// MinLength is the minimum normalized query length in runes.
	MinLength int

	// Debounce is how long input must settle before a query dispatches.
	Debounce time.Duration

	// CacheTTL is the maximum age of a cache entry on read. Entries older
	// than this are treated as absent.
	CacheTTL time.Duration

	// UseCache enables the result cache for both reads and writes.
	UseCache bool

	// RefreshOnCache issues a live fetch even after a cache hit; the hit
	// is still reported first with fromCache=true.
	RefreshOnCache bool
}

// DefaultOptions returns the default option set. Callers customizing
// options should start from here rather than the zero value.
func DefaultOptions() Options {
	return Options{
		MinLength: DefaultMinLength,
		Debounce:  DefaultDebounce,
		CacheTTL:  DefaultCacheTTL,
		UseCache:  true,
	}
}

// OptionPatch is a partial option set for runtime reconfiguration.
// Nil fields keep their current value.
type OptionPatch struct {
	MinLength      *int
	Debounce       *time.Duration
	CacheTTL       *time.Duration
	UseCache       *bool
	RefreshOnCache *bool
}

// Apply merges the patch into opts. Nil fields are left untouched.
func (p OptionPatch) Apply(opts *Options) {
	if p.MinLength != nil {
		opts.MinLength = *p.MinLength
	}
	if p.Debounce != nil {
		opts.Debounce = *p.Debounce
	}
	if p.CacheTTL != nil {
		opts.CacheTTL = *p.CacheTTL
	}
	if p.UseCache != nil {
		opts.UseCache = *p.UseCache
	}
	if p.RefreshOnCache != nil {
		opts.RefreshOnCache = *p.RefreshOnCache
	}
}

// Option configures an Orchestrator at construction time.
type Option[R any] func(*Orchestrator[R])

// WithOptions sets the initial option set. Use DefaultOptions as the base.
func WithOptions[R any](opts Options) Option[R] {
	return func(o *Orchestrator[R]) {
		o.opts = opts
	}
}

// WithCallbacks sets the lifecycle callbacks. All callbacks are optional;
// nil callbacks are simply not invoked.
func WithCallbacks[R any](cb Callbacks[R]) Option[R] {
	return func(o *Orchestrator[R]) {
		o.cb = cb
	}
}

// WithLogger sets the structured logger. Defaults to slog.Default().
func WithLogger[R any](logger *slog.Logger) Option[R] {
	return func(o *Orchestrator[R]) {
		o.logger = logger
	}
}

// WithCacheCapacity bounds the number of cached queries.
func WithCacheCapacity[R any](n int) Option[R] {
	return func(o *Orchestrator[R]) {
		o.cacheCap = n
	}
}
