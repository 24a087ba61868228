// Package querycache implements the three caches spec.md §4.2 groups under
// "Cache Subsystem": a two-tier result cache, a plan cache, and a subquery
// cache, plus the invalidation manager that ties them to graph_version and
// schema_version.
//
// Grounded on the teacher's pkg/cache/query_cache.go (container/list LRU
// with TTL, hit/miss counters) for the warm L2 tier and the plan cache;
// the hot L1 tier instead uses dgraph-io/ristretto/v2, whose admission
// policy and OnEvict hook are a better fit for "hot" promotion than a
// second hand-rolled LRU would be.
package querycache

import (
	"container/list"
	"sync"
	"time"
)

// lruTier is a generic container/list-backed LRU with TTL, the same shape
// as the teacher's QueryCache but parameterized over the stored value so
// plan cache, L2 result cache, and subquery cache can all reuse it.
type lruTier[V any] struct {
	mu sync.Mutex

	maxEntries int
	ttl        time.Duration

	ll    *list.List
	items map[uint64]*list.Element

	hits   uint64
	misses uint64
}

type lruEntry[V any] struct {
	key       uint64
	value     V
	expiresAt time.Time
	accesses  uint64
}

func newLRUTier[V any](maxEntries int, ttl time.Duration) *lruTier[V] {
	if maxEntries <= 0 {
		maxEntries = 1000
	}
	return &lruTier[V]{
		maxEntries: maxEntries,
		ttl:        ttl,
		ll:         list.New(),
		items:      make(map[uint64]*list.Element, maxEntries),
	}
}

// get returns the stored value and its running access count, moving the
// entry to the front of the LRU list.
func (t *lruTier[V]) get(key uint64) (V, uint64, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	elem, ok := t.items[key]
	if !ok {
		t.misses++
		var zero V
		return zero, 0, false
	}
	entry := elem.Value.(*lruEntry[V])
	if t.ttl > 0 && time.Now().After(entry.expiresAt) {
		t.removeElement(elem)
		t.misses++
		var zero V
		return zero, 0, false
	}
	entry.accesses++
	t.ll.MoveToFront(elem)
	t.hits++
	return entry.value, entry.accesses, true
}

// put inserts or updates an entry, evicting the least-recently-used entry
// if the tier is at capacity. Returns the evicted key/value when an
// eviction occurred, so callers can demote it to a colder tier.
func (t *lruTier[V]) put(key uint64, value V) (evictedKey uint64, evicted V, didEvict bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if elem, ok := t.items[key]; ok {
		entry := elem.Value.(*lruEntry[V])
		entry.value = value
		if t.ttl > 0 {
			entry.expiresAt = time.Now().Add(t.ttl)
		}
		t.ll.MoveToFront(elem)
		return 0, evicted, false
	}

	if t.ll.Len() >= t.maxEntries {
		back := t.ll.Back()
		if back != nil {
			ev := back.Value.(*lruEntry[V])
			evictedKey, evicted, didEvict = ev.key, ev.value, true
			t.removeElement(back)
		}
	}

	entry := &lruEntry[V]{key: key, value: value}
	if t.ttl > 0 {
		entry.expiresAt = time.Now().Add(t.ttl)
	}
	elem := t.ll.PushFront(entry)
	t.items[key] = elem
	return evictedKey, evicted, didEvict
}

func (t *lruTier[V]) remove(key uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if elem, ok := t.items[key]; ok {
		t.removeElement(elem)
	}
}

func (t *lruTier[V]) removeElement(elem *list.Element) {
	t.ll.Remove(elem)
	entry := elem.Value.(*lruEntry[V])
	delete(t.items, entry.key)
}

func (t *lruTier[V]) len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.ll.Len()
}

// removeWhere deletes every entry for which pred returns true. Used by the
// invalidation manager's version-gated cleanup.
func (t *lruTier[V]) removeWhere(pred func(key uint64, value V) bool) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	var removed int
	for e := t.ll.Front(); e != nil; {
		next := e.Next()
		entry := e.Value.(*lruEntry[V])
		if pred(entry.key, entry.value) {
			t.removeElement(e)
			removed++
		}
		e = next
	}
	return removed
}

func (t *lruTier[V]) stats() (hits, misses uint64, size int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.hits, t.misses, t.ll.Len()
}
