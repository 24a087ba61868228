package querycache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLRUTierEvictsLeastRecentlyUsed(t *testing.T) {
	tier := newLRUTier[string](2, 0)
	tier.put(1, "a")
	tier.put(2, "b")
	tier.get(1) // touch 1 so 2 becomes LRU
	evictedKey, evicted, didEvict := tier.put(3, "c")
	assert.True(t, didEvict)
	assert.Equal(t, uint64(2), evictedKey)
	assert.Equal(t, "b", evicted)

	_, _, ok := tier.get(2)
	assert.False(t, ok)
	v, _, ok := tier.get(1)
	assert.True(t, ok)
	assert.Equal(t, "a", v)
}

func TestLRUTierTTLExpiry(t *testing.T) {
	tier := newLRUTier[string](10, time.Millisecond)
	tier.put(1, "a")
	time.Sleep(5 * time.Millisecond)
	_, _, ok := tier.get(1)
	assert.False(t, ok)
}

func TestLRUTierRemoveWhere(t *testing.T) {
	tier := newLRUTier[int](10, 0)
	tier.put(1, 10)
	tier.put(2, 20)
	tier.put(3, 30)
	removed := tier.removeWhere(func(_ uint64, v int) bool { return v >= 20 })
	assert.Equal(t, 2, removed)
	assert.Equal(t, 1, tier.len())
}

func TestQueryCacheKeyHashChangesWithGraphVersion(t *testing.T) {
	k1 := QueryCacheKey{QueryHash: 42, GraphVersion: 1}
	k2 := QueryCacheKey{QueryHash: 42, GraphVersion: 2}
	assert.NotEqual(t, k1.Hash(), k2.Hash())
}

func TestQueryCacheKeyHashStableRegardlessOfParameterOrder(t *testing.T) {
	k1 := QueryCacheKey{QueryHash: 1, Parameters: map[string]string{"a": "1", "b": "2"}}
	k2 := QueryCacheKey{QueryHash: 1, Parameters: map[string]string{"b": "2", "a": "1"}}
	assert.Equal(t, k1.Hash(), k2.Hash())
}

func TestPlanCacheKeyHashStableRegardlessOfHintOrder(t *testing.T) {
	k1 := PlanCacheKey{QueryHash: 1, Hints: []string{"useIndex", "noSort"}}
	k2 := PlanCacheKey{QueryHash: 1, Hints: []string{"noSort", "useIndex"}}
	assert.Equal(t, k1.Hash(), k2.Hash())
}

func TestPlanCacheInvalidatesBelowSchemaVersion(t *testing.T) {
	pc := NewPlanCache(10)
	oldKey := PlanCacheKey{QueryHash: 1, SchemaVersion: 1}
	newKey := PlanCacheKey{QueryHash: 2, SchemaVersion: 5}
	pc.Put(oldKey, &PlanEntry{SchemaVersion: 1})
	pc.Put(newKey, &PlanEntry{SchemaVersion: 5})

	removed := pc.InvalidateBelowSchemaVersion(3)
	assert.Equal(t, 1, removed)

	_, ok := pc.Get(oldKey)
	assert.False(t, ok)
	_, ok = pc.Get(newKey)
	assert.True(t, ok)
}

func TestResultCachePutThenGetRoundTrips(t *testing.T) {
	rc, err := NewResultCache(TierLimits{MaxEntries: 100, MaxBytes: 1 << 20}, TierLimits{MaxEntries: 100})
	require.NoError(t, err)
	defer rc.Close()

	key := QueryCacheKey{QueryHash: 1, GraphVersion: 1}
	rc.Put(key, &ResultEntry{Result: "rows"}, 64)

	require.Eventually(t, func() bool {
		entry, ok := rc.Get(key)
		return ok && entry.Result == "rows"
	}, time.Second, 5*time.Millisecond)
}

func TestResultCacheOversizedEntryGoesDirectlyToL2(t *testing.T) {
	rc, err := NewResultCache(TierLimits{MaxEntries: 100, MaxBytes: 128}, TierLimits{MaxEntries: 100})
	require.NoError(t, err)
	defer rc.Close()

	key := QueryCacheKey{QueryHash: 2, GraphVersion: 1}
	rc.Put(key, &ResultEntry{Result: "big"}, 4096)

	entry, ok := rc.Get(key)
	require.True(t, ok)
	assert.Equal(t, "L2", entry.Metadata.Level)
}

func TestResultCachePromotesAfterThreeL2Accesses(t *testing.T) {
	rc, err := NewResultCache(TierLimits{MaxEntries: 100, MaxBytes: 128}, TierLimits{MaxEntries: 100})
	require.NoError(t, err)
	defer rc.Close()

	key := QueryCacheKey{QueryHash: 3, GraphVersion: 1}
	rc.Put(key, &ResultEntry{Result: "warm"}, 4096) // oversized -> lands in L2 directly

	entry, ok := rc.Get(key) // access 1
	require.True(t, ok)
	assert.Equal(t, "L2", entry.Metadata.Level)

	_, ok = rc.Get(key) // access 2
	require.True(t, ok)

	entry, ok = rc.Get(key) // access 3 -> promotion
	require.True(t, ok)

	require.Eventually(t, func() bool {
		e, ok := rc.Get(key)
		return ok && e.Metadata.Level == "L1"
	}, time.Second, 5*time.Millisecond)
	_ = entry
}

func TestResultCacheInvalidateBelowGraphVersionDropsStaleKeys(t *testing.T) {
	rc, err := NewResultCache(TierLimits{MaxEntries: 100, MaxBytes: 1 << 20}, TierLimits{MaxEntries: 100})
	require.NoError(t, err)
	defer rc.Close()

	staleKey := QueryCacheKey{QueryHash: 1, GraphVersion: 1}
	freshKey := QueryCacheKey{QueryHash: 2, GraphVersion: 5}
	rc.Put(staleKey, &ResultEntry{Result: "old"}, 64)
	rc.Put(freshKey, &ResultEntry{Result: "new"}, 64)

	require.Eventually(t, func() bool {
		_, ok1 := rc.Get(staleKey)
		_, ok2 := rc.Get(freshKey)
		return ok1 && ok2
	}, time.Second, 5*time.Millisecond)

	removed := rc.InvalidateBelowGraphVersion(3)
	assert.Equal(t, 1, removed)

	_, ok := rc.Get(staleKey)
	assert.False(t, ok)
	_, ok = rc.Get(freshKey)
	assert.True(t, ok)
}

func TestSubqueryCacheExistsAnswersWithoutFullKey(t *testing.T) {
	sc := NewSubqueryCache(10)
	subqueryHash := uint64(777)
	key := QueryCacheKey{QueryHash: subqueryHash, Parameters: map[string]string{"id": "42"}, GraphVersion: 1}
	sc.Put(subqueryHash, key, SubqueryResult{Kind: SubqueryBoolean, Boolean: true}, 5.0)

	result, ok := sc.Exists(subqueryHash, 1)
	require.True(t, ok)
	assert.True(t, result.Boolean)

	_, ok = sc.Exists(subqueryHash, 2) // different graph version, no longer fresh
	assert.False(t, ok)
}

func TestSubqueryCacheEvictsLowestScoringEntryWhenFull(t *testing.T) {
	sc := NewSubqueryCache(2)
	sc.Put(1, QueryCacheKey{QueryHash: 1, GraphVersion: 1}, SubqueryResult{Kind: SubqueryBoolean}, 1.0)
	sc.Put(2, QueryCacheKey{QueryHash: 2, GraphVersion: 1}, SubqueryResult{Kind: SubqueryBoolean}, 1000.0)

	// Access the high-complexity entry repeatedly to raise its hit rate and
	// recency so the low-complexity entry is the one evicted.
	highKey := QueryCacheKey{QueryHash: 2, GraphVersion: 1}
	sc.Get(2, highKey)
	sc.Get(2, highKey)

	sc.Put(3, QueryCacheKey{QueryHash: 3, GraphVersion: 1}, SubqueryResult{Kind: SubqueryBoolean}, 1.0)
	assert.Equal(t, 2, sc.Len())

	_, stillThere := sc.Exists(2, 1)
	assert.True(t, stillThere)
}

func TestSubqueryCacheInvalidateBelowGraphVersion(t *testing.T) {
	sc := NewSubqueryCache(10)
	sc.Put(1, QueryCacheKey{QueryHash: 1, GraphVersion: 1}, SubqueryResult{Kind: SubqueryBoolean}, 1.0)
	sc.Put(2, QueryCacheKey{QueryHash: 2, GraphVersion: 5}, SubqueryResult{Kind: SubqueryBoolean}, 1.0)

	removed := sc.InvalidateBelowGraphVersion(3)
	assert.Equal(t, 1, removed)
	assert.Equal(t, 1, sc.Len())
}

func TestInvalidationManagerDropsResultsAndSubqueriesOnGraphMutation(t *testing.T) {
	rc, err := NewResultCache(TierLimits{MaxEntries: 100, MaxBytes: 1 << 20}, TierLimits{MaxEntries: 100})
	require.NoError(t, err)
	defer rc.Close()
	pc := NewPlanCache(10)
	sc := NewSubqueryCache(10)

	staleResultKey := QueryCacheKey{QueryHash: 1, GraphVersion: 1}
	rc.Put(staleResultKey, &ResultEntry{Result: "old"}, 64)
	sc.Put(9, QueryCacheKey{QueryHash: 9, GraphVersion: 1}, SubqueryResult{Kind: SubqueryBoolean}, 1.0)

	require.Eventually(t, func() bool {
		_, ok := rc.Get(staleResultKey)
		return ok
	}, time.Second, 5*time.Millisecond)

	mgr := NewInvalidationManager(rc, pc, sc)
	resultsDropped, subqueriesDropped := mgr.OnGraphMutation(2)
	assert.Equal(t, 1, resultsDropped)
	assert.Equal(t, 1, subqueriesDropped)
	assert.Equal(t, uint64(2), mgr.GraphVersion())

	resultsDropped, subqueriesDropped = mgr.OnGraphMutation(1) // lower version is a no-op
	assert.Equal(t, 0, resultsDropped)
	assert.Equal(t, 0, subqueriesDropped)
}

func TestInvalidationManagerDropsPlansOnSchemaChange(t *testing.T) {
	rc, err := NewResultCache(TierLimits{MaxEntries: 100, MaxBytes: 1 << 20}, TierLimits{MaxEntries: 100})
	require.NoError(t, err)
	defer rc.Close()
	pc := NewPlanCache(10)
	sc := NewSubqueryCache(10)

	pc.Put(PlanCacheKey{QueryHash: 1, SchemaVersion: 1}, &PlanEntry{SchemaVersion: 1})

	mgr := NewInvalidationManager(rc, pc, sc)
	plansDropped := mgr.OnSchemaChange(2)
	assert.Equal(t, 1, plansDropped)
	assert.Equal(t, uint64(2), mgr.SchemaVersion())
	assert.Equal(t, 0, pc.Len())
}

func TestHashQueryTextIsDeterministic(t *testing.T) {
	assert.Equal(t, HashQueryText("MATCH (n) RETURN n"), HashQueryText("MATCH (n) RETURN n"))
	assert.NotEqual(t, HashQueryText("MATCH (n) RETURN n"), HashQueryText("MATCH (m) RETURN m"))
}
