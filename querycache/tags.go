package querycache

import (
	"sort"
	"sync"

	"github.com/goliatone/go-article-sync/cache"
)

// tagIndex maps semantic tags to the cache keys that depend on them. It is
// pure bookkeeping: no network calls originate here, only refetch triggers
// driven by the store. Keys are tracked by their canonical string form so the
// index never owns entry payloads.
type tagIndex struct {
	mu    sync.Mutex
	byTag map[string]map[string]struct{}
	byKey map[string][]string
	keys  map[string]cache.Key
}

func newTagIndex() *tagIndex {
	return &tagIndex{
		byTag: make(map[string]map[string]struct{}),
		byKey: make(map[string][]string),
		keys:  make(map[string]cache.Key),
	}
}

// Link registers a key under each tag. Linking is idempotent.
func (t *tagIndex) Link(key cache.Key, tags []string) {
	ks := key.String()

	t.mu.Lock()
	defer t.mu.Unlock()

	t.keys[ks] = key
	for _, tag := range tags {
		set, ok := t.byTag[tag]
		if !ok {
			set = make(map[string]struct{})
			t.byTag[tag] = set
		}
		if _, linked := set[ks]; linked {
			continue
		}
		set[ks] = struct{}{}
		t.byKey[ks] = append(t.byKey[ks], tag)
	}
}

// Unlink removes all tag associations for a key.
func (t *tagIndex) Unlink(key cache.Key) {
	ks := key.String()

	t.mu.Lock()
	defer t.mu.Unlock()

	for _, tag := range t.byKey[ks] {
		if set, ok := t.byTag[tag]; ok {
			delete(set, ks)
			if len(set) == 0 {
				delete(t.byTag, tag)
			}
		}
	}
	delete(t.byKey, ks)
	delete(t.keys, ks)
}

// Collect returns the distinct keys registered under any of the given tags,
// in a deterministic order.
func (t *tagIndex) Collect(tags []string) []cache.Key {
	t.mu.Lock()
	defer t.mu.Unlock()

	seen := make(map[string]struct{})
	for _, tag := range tags {
		for ks := range t.byTag[tag] {
			seen[ks] = struct{}{}
		}
	}
	if len(seen) == 0 {
		return nil
	}

	ordered := make([]string, 0, len(seen))
	for ks := range seen {
		ordered = append(ordered, ks)
	}
	sort.Strings(ordered)

	keys := make([]cache.Key, 0, len(ordered))
	for _, ks := range ordered {
		keys = append(keys, t.keys[ks])
	}
	return keys
}
