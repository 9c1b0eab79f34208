// Package querycache implements the client-side query cache: per-key entries
// with in-flight de-duplication, generation-token discard of superseded
// fetches, registration-order synchronous subscriber notification, and
// tag-driven invalidation with retained loaders.
//
// # Entry lifecycle
//
// An entry is created on first Fetch or Subscribe and moves through
// Idle → Loading → Ready/Error. A failed refresh keeps the previous value as
// stale-but-displayable data; callers decide whether to show it with an error
// badge or block. When the last subscriber goes away the entry is dropped and
// its value parked in a short-TTL grace store (sturdyc), so navigating back
// re-serves the last value without a network call. Tag invalidation purges
// grace copies, so a back-navigation can never resurrect invalidated data.
//
// # Ordering
//
// Per key, at most one fetch is committed per generation: starting a new
// generation (an invalidation-driven refetch) supersedes whatever is still in
// flight, and the superseded result is discarded when it lands. Concurrent
// identical fetches attach to the in-flight request instead of duplicating it.
//
// # See Also
//
// The cache package defines the key model; the articlesync package builds the
// typed article client on top of this store.
package querycache
