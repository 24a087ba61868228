package storagemgr

import (
	"sync"

	"github.com/nornic/gqlcore/pkg/graphcache"
	"github.com/nornic/gqlcore/pkg/value"
)

// IndexSet holds one (label, property) -> value -> node id secondary index
// per graph, rebuilt from the graph cache whenever it's saved. Nothing
// outside this package reads it: the planner's statistics are computed
// from the graph cache, and no system procedure reports its Stats.
type IndexSet struct {
	mu sync.RWMutex
	// byLabelProp[label][property][encodedValue] -> node ids
	byLabelProp map[string]map[string]map[string][]string
	lookups     uint64
	hits        uint64
}

func newIndexSet() *IndexSet {
	return &IndexSet{byLabelProp: make(map[string]map[string]map[string][]string)}
}

func (ix *IndexSet) rebuild(nodes []*value.Node) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.byLabelProp = make(map[string]map[string]map[string][]string)
	for _, n := range nodes {
		for _, label := range n.Labels {
			props, ok := ix.byLabelProp[label]
			if !ok {
				props = make(map[string]map[string][]string)
				ix.byLabelProp[label] = props
			}
			for prop, v := range n.Properties {
				vals, ok := props[prop]
				if !ok {
					vals = make(map[string][]string)
					props[prop] = vals
				}
				key := string(value.Encode(nil, v))
				vals[key] = append(vals[key], n.ID)
			}
		}
	}
}

// Lookup returns node ids matching label.property == v, and whether an
// index existed for that (label, property) pair at all (a miss here means
// the planner should fall back to a full label scan, not that zero nodes
// matched).
func (ix *IndexSet) Lookup(label, prop string, v value.Value) ([]string, bool) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.lookups++

	props, ok := ix.byLabelProp[label]
	if !ok {
		return nil, false
	}
	vals, ok := props[prop]
	if !ok {
		return nil, false
	}
	ix.hits++

	key := string(value.Encode(nil, v))
	return vals[key], true
}

// Cardinality returns the number of distinct values indexed for
// (label, property), used by the cost model's selectivity estimate.
func (ix *IndexSet) Cardinality(label, prop string) int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	if props, ok := ix.byLabelProp[label]; ok {
		if vals, ok := props[prop]; ok {
			return len(vals)
		}
	}
	return 0
}

// Stats reports cumulative lookup/hit counts.
func (ix *IndexSet) Stats() (lookups, hits uint64) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.lookups, ix.hits
}

func (m *Manager) rebuildIndexes(graphID string, c *graphcache.Cache) {
	m.indexMu.Lock()
	ix, ok := m.indexes[graphID]
	if !ok {
		ix = newIndexSet()
		m.indexes[graphID] = ix
	}
	m.indexMu.Unlock()
	ix.rebuild(c.AllNodes())
}

// Index returns the property index set for graphID, creating an empty one
// if the graph hasn't been saved yet.
func (m *Manager) Index(graphID string) *IndexSet {
	m.indexMu.Lock()
	defer m.indexMu.Unlock()
	ix, ok := m.indexes[graphID]
	if !ok {
		ix = newIndexSet()
		m.indexes[graphID] = ix
	}
	return ix
}
