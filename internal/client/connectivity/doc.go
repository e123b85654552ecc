// Package connectivity decides whether the API is reachable.
//
// The host's own signal (an interface that is up with a routable address)
// is cheap but optimistic. A negative answer is trusted as is; a positive
// one is confirmed with an active probe bounded by a short timeout. Probe
// results are reused for a debounce window and concurrent callers share a
// single probe.
//
// Transitions are announced to subscribers as Online and Offline events.
// After going back online, Reconnecting reports true for a short banner
// window so the front-end can show a "reconnected, syncing" state.
package connectivity
