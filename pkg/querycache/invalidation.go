package querycache

import "sync"

// InvalidationManager ties graph_version and schema_version bumps to the
// three caches (spec.md §4.2 "Invalidation policy"): a write that advances
// graph_version invalidates result-cache and subquery-cache entries below
// that version; a DDL statement that advances schema_version additionally
// drops the plan cache wholesale. There is no invalidation by tag and no
// memory-pressure eviction; the clear_cache procedure empties the three
// caches by calling them directly.
type InvalidationManager struct {
	mu sync.Mutex

	results    *ResultCache
	plans      *PlanCache
	subqueries *SubqueryCache

	graphVersion  uint64
	schemaVersion uint64
}

func NewInvalidationManager(results *ResultCache, plans *PlanCache, subqueries *SubqueryCache) *InvalidationManager {
	return &InvalidationManager{results: results, plans: plans, subqueries: subqueries}
}

// OnGraphMutation is called after a committed write bumps the graph's
// version counter. It drops stale result and subquery entries; plans are
// untouched since a plan's validity depends on schema, not data.
func (m *InvalidationManager) OnGraphMutation(newGraphVersion uint64) (resultsDropped, subqueriesDropped int) {
	m.mu.Lock()
	if newGraphVersion <= m.graphVersion {
		m.mu.Unlock()
		return 0, 0
	}
	m.graphVersion = newGraphVersion
	m.mu.Unlock()

	if m.results != nil {
		resultsDropped = m.results.InvalidateBelowGraphVersion(newGraphVersion)
	}
	if m.subqueries != nil {
		subqueriesDropped = m.subqueries.InvalidateBelowGraphVersion(newGraphVersion)
	}
	return resultsDropped, subqueriesDropped
}

// OnSchemaChange is called after a committed DDL statement bumps the
// schema's version counter. Every cached plan compiled against an older
// schema is dropped outright, since a stale plan can reference a since-
// dropped label, property index, or constraint.
func (m *InvalidationManager) OnSchemaChange(newSchemaVersion uint64) (plansDropped int) {
	m.mu.Lock()
	if newSchemaVersion <= m.schemaVersion {
		m.mu.Unlock()
		return 0
	}
	m.schemaVersion = newSchemaVersion
	m.mu.Unlock()

	if m.plans != nil {
		plansDropped = m.plans.InvalidateBelowSchemaVersion(newSchemaVersion)
	}
	return plansDropped
}

// GraphVersion and SchemaVersion report the last version this manager
// observed, for callers that want to compose a fresh cache key without
// re-querying the catalog/storage layer.
func (m *InvalidationManager) GraphVersion() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.graphVersion
}

func (m *InvalidationManager) SchemaVersion() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.schemaVersion
}
