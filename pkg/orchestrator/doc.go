// Package orchestrator coordinates asynchronous lookups against a remote
// recall service driven by high-frequency text input.
//
// It turns a noisy stream of keystroke events into a small, correct set of
// network calls: bursts are debounced into one trailing trigger, queries
// that barely differ from the last dispatched one are suppressed, results
// are memoized with a TTL bound, at most one request is in flight per
// instance, and a sequence guard discards responses superseded by a later
// request so completion order can never corrupt displayed results.
//
// The orchestrator never talks to the network itself. The caller injects a
// FetchFunc; the context passed to it is the cancellation token and is
// cancelled when the request is superseded or Cancel is called. Each
// instance is independent and owns all of its state, so one orchestrator
// per input surface is the intended usage.
package orchestrator
