package querycache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goliatone/go-article-sync/cache"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := New(DefaultConfig())
	if err != nil {
		t.Fatalf("New() returned error: %v", err)
	}
	return s
}

func waitUntil(t *testing.T, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not met within deadline")
}

func staticLoader(value any) cache.Loader {
	return func(ctx context.Context) (any, error) {
		return value, nil
	}
}

func countingLoader(value any, calls *int32) cache.Loader {
	return func(ctx context.Context) (any, error) {
		atomic.AddInt32(calls, 1)
		return value, nil
	}
}

func TestStore_FetchCachesValue(t *testing.T) {
	s := newTestStore(t)
	key := cache.Key{Kind: "article", Signature: "some-slug"}

	var calls int32
	loader := countingLoader("payload", &calls)

	snap, err := s.Fetch(context.Background(), key, loader)
	if err != nil {
		t.Fatalf("Fetch() returned error: %v", err)
	}
	if snap.Status != cache.StatusReady {
		t.Errorf("status = %v, want ready", snap.Status)
	}
	if snap.Value != "payload" {
		t.Errorf("value = %v, want payload", snap.Value)
	}
	if snap.Version != 1 {
		t.Errorf("version = %d, want 1", snap.Version)
	}

	// A second fetch for a Ready key must not hit the loader.
	if _, err := s.Fetch(context.Background(), key, loader); err != nil {
		t.Fatalf("Fetch() returned error: %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("loader calls = %d, want 1", got)
	}
}

func TestStore_DeduplicatesConcurrentFetches(t *testing.T) {
	s := newTestStore(t)
	key := cache.Key{Kind: "article-list", Signature: "0::5"}

	var calls int32
	started := make(chan struct{})
	release := make(chan struct{})
	loader := func(ctx context.Context) (any, error) {
		atomic.AddInt32(&calls, 1)
		close(started)
		<-release
		return "shared", nil
	}

	var wg sync.WaitGroup
	results := make([]cache.Snapshot, 2)
	wg.Add(1)
	go func() {
		defer wg.Done()
		results[0], _ = s.Fetch(context.Background(), key, loader)
	}()

	<-started
	wg.Add(1)
	go func() {
		defer wg.Done()
		results[1], _ = s.Fetch(context.Background(), key, loader)
	}()

	// Give the second fetch a moment to attach before releasing the loader.
	time.Sleep(10 * time.Millisecond)
	close(release)
	wg.Wait()

	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("loader calls = %d, want 1 (concurrent fetches must share)", got)
	}
	for i, snap := range results {
		if snap.Value != "shared" || snap.Status != cache.StatusReady {
			t.Errorf("result[%d] = %+v, want shared/ready", i, snap)
		}
	}
}

func TestStore_GenerationDiscardsSupersededResult(t *testing.T) {
	s := newTestStore(t)
	key := cache.Key{Kind: "article-list", Signature: "0::5"}

	var calls int32
	firstStarted := make(chan struct{})
	releaseFirst := make(chan struct{})
	loader := func(ctx context.Context) (any, error) {
		if atomic.AddInt32(&calls, 1) == 1 {
			close(firstStarted)
			<-releaseFirst
			return "first", nil
		}
		return "second", nil
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.Fetch(context.Background(), key, loader, "article-list")
	}()
	<-firstStarted

	// Supersede the in-flight fetch. The refetch commits "second" immediately.
	s.Invalidate("article-list")
	waitUntil(t, func() bool { return s.Read(key).Value == "second" })

	// Now let the superseded first fetch land; its result must be discarded.
	close(releaseFirst)
	<-done
	s.Wait()

	snap := s.Read(key)
	if snap.Value != "second" {
		t.Fatalf("value = %v, want second (superseded result must not commit)", snap.Value)
	}
	if snap.Status != cache.StatusReady {
		t.Errorf("status = %v, want ready", snap.Status)
	}
}

func TestStore_ErrorRetainsStaleValue(t *testing.T) {
	s := newTestStore(t)
	key := cache.Key{Kind: "article", Signature: "some-slug"}

	var calls int32
	loader := func(ctx context.Context) (any, error) {
		if atomic.AddInt32(&calls, 1) == 1 {
			return "good", nil
		}
		return nil, errors.New("boom")
	}

	if _, err := s.Fetch(context.Background(), key, loader, "article:some-slug"); err != nil {
		t.Fatalf("Fetch() returned error: %v", err)
	}

	s.Invalidate("article:some-slug")
	s.Wait()

	snap := s.Read(key)
	if snap.Status != cache.StatusError {
		t.Fatalf("status = %v, want error", snap.Status)
	}
	if snap.Err == nil {
		t.Error("snapshot error should be set after failed refresh")
	}
	if snap.Value != "good" {
		t.Errorf("value = %v, want stale value retained", snap.Value)
	}
	if snap.Version != 1 {
		t.Errorf("version = %d, want 1 (failed refresh must not bump version)", snap.Version)
	}
}

func TestStore_SubscribersNotifiedInRegistrationOrder(t *testing.T) {
	s := newTestStore(t)
	key := cache.Key{Kind: "article", Signature: "some-slug"}

	var mu sync.Mutex
	var order []int
	for i := 1; i <= 3; i++ {
		i := i
		unsub := s.Subscribe(key, func(snap cache.Snapshot) {
			if snap.Status == cache.StatusReady {
				mu.Lock()
				order = append(order, i)
				mu.Unlock()
			}
		})
		defer unsub()
	}

	if _, err := s.Fetch(context.Background(), key, staticLoader("v")); err != nil {
		t.Fatalf("Fetch() returned error: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(order) != 3 || order[0] != 1 || order[1] != 2 || order[2] != 3 {
		t.Errorf("notification order = %v, want [1 2 3]", order)
	}
}

func TestStore_InvalidateUnknownTagIsNoop(t *testing.T) {
	s := newTestStore(t)
	// Must not panic, spawn work, or touch anything.
	s.Invalidate("article:never-registered")
	s.Wait()
}

func TestStore_GraceServesBackNavigation(t *testing.T) {
	s := newTestStore(t)
	key := cache.Key{Kind: "article", Signature: "some-slug"}

	unsub := s.Subscribe(key, func(cache.Snapshot) {})
	var calls int32
	if _, err := s.Fetch(context.Background(), key, countingLoader("kept", &calls)); err != nil {
		t.Fatalf("Fetch() returned error: %v", err)
	}

	// Last subscriber leaves; the value is parked in the grace store.
	unsub()

	poison := func(ctx context.Context) (any, error) {
		t.Error("loader must not run for a grace-served fetch")
		return nil, errors.New("unexpected")
	}
	snap, err := s.Fetch(context.Background(), key, poison)
	if err != nil {
		t.Fatalf("Fetch() returned error: %v", err)
	}
	if snap.Value != "kept" || snap.Status != cache.StatusReady {
		t.Errorf("snapshot = %+v, want kept/ready from grace store", snap)
	}
}

func TestStore_InvalidatePurgesGraceCopies(t *testing.T) {
	s := newTestStore(t)
	key := cache.Key{Kind: "article", Signature: "some-slug"}

	unsub := s.Subscribe(key, func(cache.Snapshot) {})
	if _, err := s.Fetch(context.Background(), key, staticLoader("old"), "article:some-slug"); err != nil {
		t.Fatalf("Fetch() returned error: %v", err)
	}
	unsub()

	s.Invalidate("article:some-slug")
	s.Wait()

	var calls int32
	snap, err := s.Fetch(context.Background(), key, countingLoader("new", &calls))
	if err != nil {
		t.Fatalf("Fetch() returned error: %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("loader calls = %d, want 1 (grace copy must not survive invalidation)", got)
	}
	if snap.Value != "new" {
		t.Errorf("value = %v, want new", snap.Value)
	}
}

func TestStore_TagFanOutDoesNotTouchUnrelatedKeys(t *testing.T) {
	s := newTestStore(t)
	keyA := cache.Key{Kind: "article", Signature: "article-a"}
	keyB := cache.Key{Kind: "article", Signature: "article-b"}
	keyList := cache.Key{Kind: "article-list", Signature: "0::5"}

	var callsA, callsB, callsList int32
	ctx := context.Background()
	s.Fetch(ctx, keyA, countingLoader("a", &callsA), "article:article-a", "article-list")
	s.Fetch(ctx, keyB, countingLoader("b", &callsB), "article:article-b", "article-list")
	s.Fetch(ctx, keyList, countingLoader("list", &callsList), "article-list")

	// Updating article A fans out to A's tag and the collection tag.
	s.Invalidate("article:article-a", "article-list")
	s.Wait()

	if got := atomic.LoadInt32(&callsA); got != 2 {
		t.Errorf("loader A calls = %d, want 2", got)
	}
	if got := atomic.LoadInt32(&callsList); got != 2 {
		t.Errorf("list loader calls = %d, want 2", got)
	}
	// B carries the collection tag too, so it refetches with the list; a
	// targeted invalidation of only A's tag must leave B alone.
	before := atomic.LoadInt32(&callsB)
	s.Invalidate("article:article-a")
	s.Wait()
	if got := atomic.LoadInt32(&callsB); got != before {
		t.Errorf("loader B calls = %d, want %d (unrelated article must not refetch)", got, before)
	}
}

func TestStore_MutateNotifiesAndBumpsVersion(t *testing.T) {
	s := newTestStore(t)
	key := cache.Key{Kind: "article", Signature: "some-slug"}

	var got cache.Snapshot
	var notified int
	unsub := s.Subscribe(key, func(snap cache.Snapshot) {
		notified++
		got = snap
	})
	defer unsub()

	if _, err := s.Fetch(context.Background(), key, staticLoader(10)); err != nil {
		t.Fatalf("Fetch() returned error: %v", err)
	}
	before := s.Read(key).Version

	if ok := s.Mutate(key, func(old any) any { return old.(int) + 1 }); !ok {
		t.Fatal("Mutate() = false, want true")
	}

	if got.Value != 11 {
		t.Errorf("subscriber saw value %v, want 11", got.Value)
	}
	if got.Version != before+1 {
		t.Errorf("version = %d, want %d", got.Version, before+1)
	}
}

func TestStore_MutateWithoutValueIsRejected(t *testing.T) {
	s := newTestStore(t)
	key := cache.Key{Kind: "article", Signature: "missing"}

	if ok := s.Mutate(key, func(old any) any { return old }); ok {
		t.Error("Mutate() on an absent entry should return false")
	}
}

func TestStore_PurgeResetsEntries(t *testing.T) {
	s := newTestStore(t)
	key := cache.Key{Kind: "current-user", Signature: ""}

	var last cache.Snapshot
	unsub := s.Subscribe(key, func(snap cache.Snapshot) { last = snap })
	defer unsub()

	if _, err := s.Fetch(context.Background(), key, staticLoader("profile"), "current-user"); err != nil {
		t.Fatalf("Fetch() returned error: %v", err)
	}

	s.Purge("current-user")

	if last.Status != cache.StatusIdle || last.Value != nil {
		t.Errorf("snapshot after purge = %+v, want idle with no value", last)
	}
	if snap := s.Read(key); snap.Status != cache.StatusIdle || snap.Value != nil {
		t.Errorf("Read() after purge = %+v, want idle with no value", snap)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "defaults are valid", mutate: func(c *Config) {}, wantErr: false},
		{name: "zero capacity", mutate: func(c *Config) { c.GraceCapacity = 0 }, wantErr: true},
		{name: "zero shards", mutate: func(c *Config) { c.GraceShards = 0 }, wantErr: true},
		{name: "zero ttl", mutate: func(c *Config) { c.GraceTTL = 0 }, wantErr: true},
		{name: "eviction percentage too high", mutate: func(c *Config) { c.GraceEvictionPercentage = 101 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
