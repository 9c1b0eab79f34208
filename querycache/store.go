package querycache

import (
	"context"
	"sync"

	"github.com/puzpuzpuz/xsync/v3"
	"github.com/rs/zerolog"
	"github.com/viccon/sturdyc"

	"github.com/goliatone/go-article-sync/cache"
)

// Store is the process-wide query cache. It maps cache keys to entries,
// de-duplicates concurrent identical fetches, discards results of superseded
// fetches via generation tokens, and fans invalidation out through the tag
// index. All updates to an entry's status+value+version triple are applied
// under the entry lock, so readers never observe a partial update.
type Store struct {
	logger  zerolog.Logger
	entries *xsync.MapOf[string, *entry]
	tags    *tagIndex
	grace   *sturdyc.Client[any]

	// outstanding background refetches, so teardown and tests can drain them
	wg sync.WaitGroup
}

type subscription struct {
	id uint64
	fn cache.Subscriber
}

type entry struct {
	key cache.Key

	mu         sync.Mutex
	status     cache.Status
	value      any
	hasValue   bool
	err        error
	version    uint64
	generation uint64
	inflight   chan struct{}
	stale      bool
	loader     cache.Loader
	subs       []subscription
	nextSubID  uint64
	refs       int
}

// New creates a query cache store with the provided configuration.
func New(cfg Config, opts ...Option) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &Store{
		logger:  zerolog.Nop(),
		entries: xsync.NewMapOf[string, *entry](),
		tags:    newTagIndex(),
		grace:   newGraceStore(cfg),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Read returns the current snapshot for a key. A key that was dropped after
// its last unsubscribe but is still inside the grace window reads as Ready
// with the retained value; anything else unknown reads as Idle.
func (s *Store) Read(key cache.Key) cache.Snapshot {
	if e, ok := s.entries.Load(key.String()); ok {
		e.mu.Lock()
		snap := e.snapshotLocked()
		e.mu.Unlock()
		return snap
	}
	if v, ok := s.grace.Get(key.String()); ok {
		return cache.Snapshot{Value: v, Status: cache.StatusReady, Version: 1}
	}
	return cache.Snapshot{Status: cache.StatusIdle}
}

// Subscribe registers a callback for a key and returns an unsubscribe handle.
// Callbacks fire synchronously, in registration order, whenever the entry
// starts loading or settles. When the last subscriber for a key unsubscribes
// the entry is dropped and its value parked in the grace store.
func (s *Store) Subscribe(key cache.Key, fn cache.Subscriber) func() {
	e := s.ensureEntry(key)

	e.mu.Lock()
	e.nextSubID++
	id := e.nextSubID
	e.subs = append(e.subs, subscription{id: id, fn: fn})
	e.refs++
	e.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { s.unsubscribe(e, id) })
	}
}

func (s *Store) unsubscribe(e *entry, id uint64) {
	e.mu.Lock()
	for i, sub := range e.subs {
		if sub.id == id {
			e.subs = append(e.subs[:i], e.subs[i+1:]...)
			break
		}
	}
	e.refs--
	drop := e.refs <= 0
	park := drop && e.status == cache.StatusReady && e.hasValue && !e.stale
	value := e.value
	e.mu.Unlock()

	if !drop {
		return
	}
	if park {
		s.grace.Set(e.key.String(), value)
	}
	s.entries.Delete(e.key.String())
}

// Fetch resolves the value for a key. A fresh Ready entry is returned without
// a network call; if a fetch for the key is already in flight the caller
// attaches to it instead of starting a duplicate; otherwise the loader runs
// in the calling goroutine. The loader and tags are retained so invalidation
// can trigger refetches later.
func (s *Store) Fetch(ctx context.Context, key cache.Key, loader cache.Loader, tags ...string) (cache.Snapshot, error) {
	e := s.ensureEntry(key)

	e.mu.Lock()
	e.loader = loader
	if len(tags) > 0 {
		s.tags.Link(key, tags)
	}

	if e.status == cache.StatusReady && !e.stale {
		snap := e.snapshotLocked()
		e.mu.Unlock()
		return snap, nil
	}

	// Attach to an in-flight fetch rather than starting a duplicate.
	if e.inflight != nil {
		for e.inflight != nil {
			ch := e.inflight
			e.mu.Unlock()
			<-ch
			e.mu.Lock()
		}
		snap := e.snapshotLocked()
		e.mu.Unlock()
		return snap, snap.Err
	}

	gen, ch := s.beginFetchLocked(e)
	loading := e.snapshotLocked()
	subs := e.subscribersLocked()
	e.mu.Unlock()
	notify(subs, loading)

	s.run(ctx, e, gen, ch, loader)

	e.mu.Lock()
	snap := e.snapshotLocked()
	e.mu.Unlock()
	return snap, snap.Err
}

// Invalidate marks every entry registered under any of the given tags stale
// and schedules a refetch with the loader most recently used for that key.
// Detached entries inside the grace window are purged instead, so a
// back-navigation can never resurrect invalidated data. Invalidating a tag
// with no registered keys is a no-op.
func (s *Store) Invalidate(tags ...string) {
	keys := s.tags.Collect(tags)
	if len(keys) == 0 {
		return
	}
	s.logger.Debug().Strs("tags", tags).Int("keys", len(keys)).Msg("invalidating cache entries")

	for _, key := range keys {
		ks := key.String()
		s.grace.Delete(ks)

		e, ok := s.entries.Load(ks)
		if !ok {
			// Nothing live and nothing graced: the association is dead.
			s.tags.Unlink(key)
			continue
		}
		s.refetchEntry(e)
	}
}

// refetchEntry starts a background refetch for a live entry. Entries without
// a retained loader are only marked stale; the next Fetch repairs them.
func (s *Store) refetchEntry(e *entry) {
	e.mu.Lock()
	e.stale = true
	loader := e.loader
	if loader == nil {
		e.mu.Unlock()
		return
	}
	gen, ch := s.beginFetchLocked(e)
	loading := e.snapshotLocked()
	subs := e.subscribersLocked()
	e.mu.Unlock()
	notify(subs, loading)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.run(context.Background(), e, gen, ch, loader)
	}()
}

// Mutate applies a local transformation to a cached value, bumping the
// version and notifying subscribers. It is the write-through path used by
// optimistic updates. Returns false when the key holds no value to transform.
func (s *Store) Mutate(key cache.Key, fn func(old any) any) bool {
	ks := key.String()

	if e, ok := s.entries.Load(ks); ok {
		e.mu.Lock()
		if !e.hasValue {
			e.mu.Unlock()
			return false
		}
		e.value = fn(e.value)
		e.version++
		snap := e.snapshotLocked()
		subs := e.subscribersLocked()
		e.mu.Unlock()
		notify(subs, snap)
		return true
	}

	if v, ok := s.grace.Get(ks); ok {
		s.grace.Set(ks, fn(v))
		return true
	}
	return false
}

// MutateTag applies a local transformation to every value registered under a
// tag. Returns the number of entries transformed.
func (s *Store) MutateTag(tag string, fn func(old any) any) int {
	var n int
	for _, key := range s.tags.Collect([]string{tag}) {
		if s.Mutate(key, fn) {
			n++
		}
	}
	return n
}

// Keys returns the distinct keys currently registered under a tag.
func (s *Store) Keys(tag string) []cache.Key {
	return s.tags.Collect([]string{tag})
}

// Purge clears every entry registered under the given tags without
// refetching: values are dropped, grace copies deleted, and subscribers told
// the entry is back to Idle. Used at teardown to remove session-dependent
// state.
func (s *Store) Purge(tags ...string) {
	for _, key := range s.tags.Collect(tags) {
		ks := key.String()
		s.grace.Delete(ks)

		e, ok := s.entries.Load(ks)
		if !ok {
			s.tags.Unlink(key)
			continue
		}

		e.mu.Lock()
		e.generation++ // discard any in-flight result
		e.status = cache.StatusIdle
		e.value = nil
		e.hasValue = false
		e.err = nil
		e.stale = false
		snap := e.snapshotLocked()
		subs := e.subscribersLocked()
		e.mu.Unlock()
		notify(subs, snap)
	}
}

// Wait blocks until all background refetches spawned by invalidation have
// settled. Intended for teardown and tests.
func (s *Store) Wait() {
	s.wg.Wait()
}

func (s *Store) ensureEntry(key cache.Key) *entry {
	ks := key.String()
	if e, ok := s.entries.Load(ks); ok {
		return e
	}

	fresh := &entry{key: key, status: cache.StatusIdle}
	if v, ok := s.grace.Get(ks); ok {
		fresh.status = cache.StatusReady
		fresh.value = v
		fresh.hasValue = true
		fresh.version = 1
	}
	e, _ := s.entries.LoadOrStore(ks, fresh)
	return e
}

// beginFetchLocked starts a new fetch generation. The caller must hold e.mu.
// Starting a new generation supersedes any fetch still in flight: the old
// result will be discarded when it lands.
func (s *Store) beginFetchLocked(e *entry) (uint64, chan struct{}) {
	e.generation++
	ch := make(chan struct{})
	e.inflight = ch
	e.status = cache.StatusLoading
	e.err = nil
	return e.generation, ch
}

// run executes the loader and commits the result, unless the fetch was
// superseded while in flight, in which case the result is discarded.
func (s *Store) run(ctx context.Context, e *entry, gen uint64, ch chan struct{}, loader cache.Loader) {
	value, err := loader(ctx)

	e.mu.Lock()
	if e.inflight == ch {
		e.inflight = nil
	}
	if gen != e.generation {
		// Superseded while in flight: only the latest generation commits.
		e.mu.Unlock()
		close(ch)
		s.logger.Debug().Str("key", e.key.String()).Uint64("generation", gen).Msg("discarding superseded fetch result")
		return
	}

	if err != nil {
		// Keep the previous value as stale-but-displayable data.
		e.status = cache.StatusError
		e.err = err
	} else {
		e.status = cache.StatusReady
		e.value = value
		e.hasValue = true
		e.err = nil
		e.version++
		e.stale = false
	}
	snap := e.snapshotLocked()
	subs := e.subscribersLocked()
	e.mu.Unlock()
	close(ch)
	notify(subs, snap)
}

func (e *entry) snapshotLocked() cache.Snapshot {
	return cache.Snapshot{
		Value:   e.value,
		Status:  e.status,
		Version: e.version,
		Err:     e.err,
	}
}

func (e *entry) subscribersLocked() []cache.Subscriber {
	if len(e.subs) == 0 {
		return nil
	}
	fns := make([]cache.Subscriber, len(e.subs))
	for i, sub := range e.subs {
		fns[i] = sub.fn
	}
	return fns
}

func notify(subs []cache.Subscriber, snap cache.Snapshot) {
	for _, fn := range subs {
		fn(snap)
	}
}
