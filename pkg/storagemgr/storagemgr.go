// Package storagemgr is the storage manager (spec.md §4.7): it owns the
// storage driver, opens one set of node/edge/metadata trees per graph on
// first use, and serializes graphcache.Cache contents to and from them
// using value.Encode/Decode. It also tracks a simple per-graph property
// index used by the planner's cost estimates.
//
// Grounded on the teacher's pkg/storage/badger_transaction.go (per-entity
// tree naming, lazy open) and pkg/storage/mimir_loader.go (bulk save/load
// of a whole graph's nodes+edges in one pass).
package storagemgr

import (
	"context"
	"sort"
	"sync"

	"github.com/nornic/gqlcore/pkg/errs"
	"github.com/nornic/gqlcore/pkg/graphcache"
	"github.com/nornic/gqlcore/pkg/storagedriver"
	"github.com/nornic/gqlcore/pkg/value"
)

// Manager lazily opens one graphcache.Cache per graph, backed by two trees
// in the underlying driver: nodes_<graphID> and edges_<graphID>. Nothing
// writes a metadata_<graphID> tree; DeleteGraph drops it along with the
// other two.
type Manager struct {
	driver storagedriver.Driver

	mu     sync.Mutex
	graphs map[string]*graphcache.Cache

	indexMu sync.RWMutex
	indexes map[string]*IndexSet // graphID -> property indexes
}

func New(driver storagedriver.Driver) *Manager {
	return &Manager{
		driver:  driver,
		graphs:  make(map[string]*graphcache.Cache),
		indexes: make(map[string]*IndexSet),
	}
}

func nodesTree(graphID string) string    { return "nodes_" + graphID }
func edgesTree(graphID string) string    { return "edges_" + graphID }
func metadataTree(graphID string) string { return "metadata_" + graphID }

// GetGraph returns the in-memory cache for graphID, loading it from the
// underlying trees on first access.
func (m *Manager) GetGraph(graphID string) (*graphcache.Cache, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if c, ok := m.graphs[graphID]; ok {
		return c, nil
	}

	c := graphcache.New(graphID)
	if err := m.loadGraph(graphID, c); err != nil {
		return nil, err
	}
	m.graphs[graphID] = c
	m.indexMu.Lock()
	if _, ok := m.indexes[graphID]; !ok {
		m.indexes[graphID] = newIndexSet()
	}
	m.indexMu.Unlock()
	return c, nil
}

func (m *Manager) loadGraph(graphID string, c *graphcache.Cache) error {
	nodes, err := m.driver.Tree(nodesTree(graphID))
	if err != nil {
		return errs.Persistence("open nodes tree for %q: %v", graphID, err)
	}
	edges, err := m.driver.Tree(edgesTree(graphID))
	if err != nil {
		return errs.Persistence("open edges tree for %q: %v", graphID, err)
	}

	var loadErr error
	_ = nodes.Iterate(nil, func(_, val []byte) bool {
		v, _, err := value.Decode(val)
		if err != nil {
			loadErr = errs.Persistence("decode node in graph %q: %v", graphID, err)
			return false
		}
		n, ok := v.AsNode()
		if !ok {
			loadErr = errs.Persistence("corrupt node record in graph %q", graphID)
			return false
		}
		if err := c.AddNode(n); err != nil {
			loadErr = err
			return false
		}
		return true
	})
	if loadErr != nil {
		return loadErr
	}

	_ = edges.Iterate(nil, func(_, val []byte) bool {
		v, _, err := value.Decode(val)
		if err != nil {
			loadErr = errs.Persistence("decode edge in graph %q: %v", graphID, err)
			return false
		}
		e, ok := v.AsEdge()
		if !ok {
			loadErr = errs.Persistence("corrupt edge record in graph %q", graphID)
			return false
		}
		if err := c.AddEdge(e); err != nil {
			loadErr = err
			return false
		}
		return true
	})
	return loadErr
}

// SaveGraph persists the entire in-memory cache for graphID to its trees,
// overwriting whatever was there. Called by the coordinator after a
// transaction commits (spec.md §4.5); this implementation keeps mutations
// durable by re-writing the whole graph rather than diffing, which is
// simple and, for the embedded single-writer use case spec.md targets,
// fast enough.
func (m *Manager) SaveGraph(graphID string) error {
	m.mu.Lock()
	c, ok := m.graphs[graphID]
	m.mu.Unlock()
	if !ok {
		return errs.Runtime("graph %q is not loaded", graphID)
	}

	nodesT, err := m.driver.Tree(nodesTree(graphID))
	if err != nil {
		return errs.Persistence("open nodes tree for %q: %v", graphID, err)
	}
	edgesT, err := m.driver.Tree(edgesTree(graphID))
	if err != nil {
		return errs.Persistence("open edges tree for %q: %v", graphID, err)
	}

	for _, n := range c.AllNodes() {
		buf := value.Encode(nil, value.NodeValue(*n))
		if err := nodesT.Set([]byte(n.ID), buf); err != nil {
			return errs.Persistence("persist node %q: %v", n.ID, err)
		}
	}
	for _, e := range c.AllEdges() {
		buf := value.Encode(nil, value.EdgeValue(*e))
		if err := edgesT.Set([]byte(e.ID), buf); err != nil {
			return errs.Persistence("persist edge %q: %v", e.ID, err)
		}
	}
	// Delete stored keys whose node/edge is gone from the cache, so a reload
	// does not bring deleted entities back.
	for i, t := range []storagedriver.Tree{nodesT, edgesT} {
		var stale [][]byte
		_ = t.Iterate(nil, func(k, _ []byte) bool {
			if (i == 0 && c.GetNode(string(k)) == nil) || (i == 1 && c.GetEdge(string(k)) == nil) {
				stale = append(stale, append([]byte(nil), k...))
			}
			return true
		})
		for _, k := range stale {
			if err := t.Delete(k); err != nil {
				return errs.Persistence("delete stale key %q in graph %q: %v", k, graphID, err)
			}
		}
	}
	m.rebuildIndexes(graphID, c)
	return m.driver.Flush(context.Background())
}

// DeleteGraph drops every tree belonging to graphID and forgets its cache.
func (m *Manager) DeleteGraph(graphID string) error {
	m.mu.Lock()
	delete(m.graphs, graphID)
	m.mu.Unlock()
	m.indexMu.Lock()
	delete(m.indexes, graphID)
	m.indexMu.Unlock()

	for _, name := range []string{nodesTree(graphID), edgesTree(graphID), metadataTree(graphID)} {
		if err := m.driver.DropTree(name); err != nil {
			return errs.Persistence("drop tree %q: %v", name, err)
		}
	}
	return nil
}

// ListGraphs returns every graph id with an open nodes_ tree.
func (m *Manager) ListGraphs() ([]string, error) {
	names, err := m.driver.ListTrees()
	if err != nil {
		return nil, errs.Persistence("list trees: %v", err)
	}
	var ids []string
	for _, n := range names {
		if id, ok := trimPrefix(n, "nodes_"); ok {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func trimPrefix(s, prefix string) (string, bool) {
	if len(s) <= len(prefix) || s[:len(prefix)] != prefix {
		return "", false
	}
	return s[len(prefix):], true
}

// Close flushes and releases the underlying driver.
func (m *Manager) Close() error {
	return m.driver.Close()
}
