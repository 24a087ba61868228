// Package graphcache implements the in-memory per-graph representation
// spec.md §3/§4.1 calls the "graph cache": nodes and edges keyed by id,
// plus label and endpoint indices for scan/expand operators. It enforces
// the structural invariants (edge endpoints exist, ids unique per graph,
// deleting a node with incident edges fails unless detached) directly —
// callers (the DML executors) never bypass it to mutate maps themselves.
package graphcache

import (
	"sync"

	"github.com/nornic/gqlcore/pkg/errs"
	"github.com/nornic/gqlcore/pkg/value"
)

// Cache is one graph's nodes, edges, and derived indices. A Cache is safe
// for concurrent reads; writers must hold the caller's per-graph lock
// (spec.md §5 assigns that to the transaction manager, not to Cache
// itself — Cache stays a plain data structure plus invariant checks).
type Cache struct {
	mu sync.RWMutex

	GraphPath string

	nodes map[string]*value.Node
	edges map[string]*value.Edge

	labelIndex    map[string]map[string]struct{} // label -> node ids
	outgoingIndex map[string]map[string]struct{} // node id -> edge ids (from)
	incomingIndex map[string]map[string]struct{} // node id -> edge ids (to)

	// version is bumped by +1 on every forward mutation and by -1 on every
	// Undo* counterpart (spec §3 graph_version, scoped per-graph here;
	// storagemgr aggregates a db-wide counter too). ROLLBACK's undo closures
	// call the Undo* variants exclusively, so a transaction's forward
	// mutations and their undos cancel out exactly, leaving graph_version at
	// its pre-transaction value (spec.md §14(a)).
	version uint64
}

// New creates an empty graph cache for the given graph path.
func New(graphPath string) *Cache {
	return &Cache{
		GraphPath:     graphPath,
		nodes:         make(map[string]*value.Node),
		edges:         make(map[string]*value.Edge),
		labelIndex:    make(map[string]map[string]struct{}),
		outgoingIndex: make(map[string]map[string]struct{}),
		incomingIndex: make(map[string]map[string]struct{}),
	}
}

// Version returns the number of mutations applied so far.
func (c *Cache) Version() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.version
}

// bumpVersion applies delta (+1 forward, -1 undo; see the version field
// comment) to the version counter. Caller must hold c.mu.
func (c *Cache) bumpVersion(delta int64) {
	c.version = uint64(int64(c.version) + delta)
}

// AddNode inserts a node. Returns CatalogError-shaped duplicate via
// errs.Runtime if the id is already taken — node ids are unique per graph,
// not globally (spec.md §3).
func (c *Cache) AddNode(n *value.Node) error {
	return c.addNode(n, 1)
}

// UndoAddNode re-applies an insert as part of undoing a DELETE. Every
// forward mutation bumps graph_version by +1 regardless of kind; every
// Undo* method bumps it by -1, so a rolled-back transaction's forward
// mutations and their undos net to exactly graph_version's pre-transaction
// value (spec.md §14(a)).
func (c *Cache) UndoAddNode(n *value.Node) error {
	return c.addNode(n, -1)
}

func (c *Cache) addNode(n *value.Node, delta int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.nodes[n.ID]; exists {
		return errs.RuntimeConstruct(n.ID, "node id already exists in graph %s", c.GraphPath)
	}
	cp := cloneNode(n)
	c.nodes[cp.ID] = cp
	for _, l := range cp.Labels {
		c.indexLabel(l, cp.ID)
	}
	c.bumpVersion(delta)
	return nil
}

// GetNode returns a copy of the node, or nil if absent.
func (c *Cache) GetNode(id string) *value.Node {
	c.mu.RLock()
	defer c.mu.RUnlock()
	n, ok := c.nodes[id]
	if !ok {
		return nil
	}
	return cloneNode(n)
}

// UpdateNode replaces the stored node wholesale (used by SET/REMOVE once
// the executor has computed the new property map and label set).
func (c *Cache) UpdateNode(n *value.Node) (*value.Node, error) {
	return c.updateNode(n, 1)
}

// UndoUpdateNode restores a node's prior state; see UndoAddNode.
func (c *Cache) UndoUpdateNode(n *value.Node) (*value.Node, error) {
	return c.updateNode(n, -1)
}

func (c *Cache) updateNode(n *value.Node, delta int64) (*value.Node, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	old, ok := c.nodes[n.ID]
	if !ok {
		return nil, errs.RuntimeConstruct(n.ID, "node not found")
	}
	oldCopy := cloneNode(old)
	for _, l := range old.Labels {
		c.unindexLabel(l, n.ID)
	}
	cp := cloneNode(n)
	c.nodes[n.ID] = cp
	for _, l := range cp.Labels {
		c.indexLabel(l, cp.ID)
	}
	c.bumpVersion(delta)
	return oldCopy, nil
}

// DeleteNode removes a node. Fails with RuntimeError if incident edges
// exist and detach is false; with detach=true the caller (DELETE executor)
// is expected to have already removed incident edges within the same
// transaction — DeleteNode itself only ever checks, never cascades, so the
// undo log stays accurate hop-by-hop.
func (c *Cache) DeleteNode(id string, detach bool) (*value.Node, error) {
	return c.deleteNode(id, detach, 1)
}

// UndoDeleteNode reverts an INSERT; see UndoAddNode.
func (c *Cache) UndoDeleteNode(id string, detach bool) (*value.Node, error) {
	return c.deleteNode(id, detach, -1)
}

func (c *Cache) deleteNode(id string, detach bool, delta int64) (*value.Node, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	n, ok := c.nodes[id]
	if !ok {
		return nil, errs.RuntimeConstruct(id, "node not found")
	}
	if !detach {
		if len(c.outgoingIndex[id])+len(c.incomingIndex[id]) > 0 {
			return nil, errs.RuntimeConstruct(id, "cannot delete node with incident edges; use DETACH DELETE")
		}
	}
	cp := cloneNode(n)
	for _, l := range n.Labels {
		c.unindexLabel(l, id)
	}
	delete(c.nodes, id)
	c.bumpVersion(delta)
	return cp, nil
}

// NodesByLabel returns copies of every node carrying the given label.
func (c *Cache) NodesByLabel(label string) []*value.Node {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ids := c.labelIndex[label]
	out := make([]*value.Node, 0, len(ids))
	for id := range ids {
		out = append(out, cloneNode(c.nodes[id]))
	}
	return out
}

// AllNodes returns a copy of every node in the graph.
func (c *Cache) AllNodes() []*value.Node {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*value.Node, 0, len(c.nodes))
	for _, n := range c.nodes {
		out = append(out, cloneNode(n))
	}
	return out
}

// NodeCount/EdgeCount back the planner's Statistics.
func (c *Cache) NodeCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.nodes)
}

func (c *Cache) EdgeCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.edges)
}

// AddEdge inserts an edge; both endpoints must already exist in this graph
// (spec.md §3 invariant). Multi-edges between the same endpoints are
// permitted and distinguished by id.
func (c *Cache) AddEdge(e *value.Edge) error {
	return c.addEdge(e, 1)
}

// UndoAddEdge re-applies an insert as part of undoing a DELETE; see
// UndoAddNode.
func (c *Cache) UndoAddEdge(e *value.Edge) error {
	return c.addEdge(e, -1)
}

func (c *Cache) addEdge(e *value.Edge, delta int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.edges[e.ID]; exists {
		return errs.RuntimeConstruct(e.ID, "edge id already exists in graph %s", c.GraphPath)
	}
	if _, ok := c.nodes[e.From]; !ok {
		return errs.RuntimeConstruct(e.From, "edge start node not found")
	}
	if _, ok := c.nodes[e.To]; !ok {
		return errs.RuntimeConstruct(e.To, "edge end node not found")
	}
	cp := cloneEdge(e)
	c.edges[cp.ID] = cp
	c.indexEdge(cp)
	c.bumpVersion(delta)
	return nil
}

func (c *Cache) GetEdge(id string) *value.Edge {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.edges[id]
	if !ok {
		return nil
	}
	return cloneEdge(e)
}

func (c *Cache) UpdateEdge(e *value.Edge) (*value.Edge, error) {
	return c.updateEdge(e, 1)
}

// UndoUpdateEdge restores an edge's prior state; see UndoAddNode.
func (c *Cache) UndoUpdateEdge(e *value.Edge) (*value.Edge, error) {
	return c.updateEdge(e, -1)
}

func (c *Cache) updateEdge(e *value.Edge, delta int64) (*value.Edge, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	old, ok := c.edges[e.ID]
	if !ok {
		return nil, errs.RuntimeConstruct(e.ID, "edge not found")
	}
	oldCopy := cloneEdge(old)
	cp := cloneEdge(e)
	cp.From = old.From
	cp.To = old.To
	cp.Label = old.Label
	c.edges[e.ID] = cp
	c.bumpVersion(delta)
	return oldCopy, nil
}

// DeleteEdge removes an edge by id.
func (c *Cache) DeleteEdge(id string) (*value.Edge, error) {
	return c.deleteEdge(id, 1)
}

// UndoDeleteEdge reverts an INSERT; see UndoAddNode.
func (c *Cache) UndoDeleteEdge(id string) (*value.Edge, error) {
	return c.deleteEdge(id, -1)
}

func (c *Cache) deleteEdge(id string, delta int64) (*value.Edge, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.edges[id]
	if !ok {
		return nil, errs.RuntimeConstruct(id, "edge not found")
	}
	cp := cloneEdge(e)
	c.unindexEdge(e)
	delete(c.edges, id)
	c.bumpVersion(delta)
	return cp, nil
}

// IncidentEdges returns every edge touching id, used by DETACH DELETE.
func (c *Cache) IncidentEdges(id string) []*value.Edge {
	c.mu.RLock()
	defer c.mu.RUnlock()
	seen := make(map[string]struct{})
	out := make([]*value.Edge, 0)
	for eid := range c.outgoingIndex[id] {
		if _, ok := seen[eid]; !ok {
			seen[eid] = struct{}{}
			out = append(out, cloneEdge(c.edges[eid]))
		}
	}
	for eid := range c.incomingIndex[id] {
		if _, ok := seen[eid]; !ok {
			seen[eid] = struct{}{}
			out = append(out, cloneEdge(c.edges[eid]))
		}
	}
	return out
}

// OutgoingEdges/IncomingEdges back Expand operators.
func (c *Cache) OutgoingEdges(id string) []*value.Edge {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*value.Edge, 0, len(c.outgoingIndex[id]))
	for eid := range c.outgoingIndex[id] {
		out = append(out, cloneEdge(c.edges[eid]))
	}
	return out
}

func (c *Cache) IncomingEdges(id string) []*value.Edge {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*value.Edge, 0, len(c.incomingIndex[id]))
	for eid := range c.incomingIndex[id] {
		out = append(out, cloneEdge(c.edges[eid]))
	}
	return out
}

func (c *Cache) Degree(id string) (in, out int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.incomingIndex[id]), len(c.outgoingIndex[id])
}

func (c *Cache) AllEdges() []*value.Edge {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*value.Edge, 0, len(c.edges))
	for _, e := range c.edges {
		out = append(out, cloneEdge(e))
	}
	return out
}

// --- index bookkeeping (caller must hold c.mu) ---

func (c *Cache) indexLabel(label, nodeID string) {
	set, ok := c.labelIndex[label]
	if !ok {
		set = make(map[string]struct{})
		c.labelIndex[label] = set
	}
	set[nodeID] = struct{}{}
}

func (c *Cache) unindexLabel(label, nodeID string) {
	if set, ok := c.labelIndex[label]; ok {
		delete(set, nodeID)
		if len(set) == 0 {
			delete(c.labelIndex, label)
		}
	}
}

func (c *Cache) indexEdge(e *value.Edge) {
	if c.outgoingIndex[e.From] == nil {
		c.outgoingIndex[e.From] = make(map[string]struct{})
	}
	c.outgoingIndex[e.From][e.ID] = struct{}{}
	if c.incomingIndex[e.To] == nil {
		c.incomingIndex[e.To] = make(map[string]struct{})
	}
	c.incomingIndex[e.To][e.ID] = struct{}{}
}

func (c *Cache) unindexEdge(e *value.Edge) {
	if set, ok := c.outgoingIndex[e.From]; ok {
		delete(set, e.ID)
	}
	if set, ok := c.incomingIndex[e.To]; ok {
		delete(set, e.ID)
	}
}

func cloneNode(n *value.Node) *value.Node {
	if n == nil {
		return nil
	}
	labels := append([]string(nil), n.Labels...)
	props := make(map[string]value.Value, len(n.Properties))
	for k, v := range n.Properties {
		props[k] = v
	}
	return &value.Node{ID: n.ID, Labels: labels, Properties: props}
}

func cloneEdge(e *value.Edge) *value.Edge {
	if e == nil {
		return nil
	}
	props := make(map[string]value.Value, len(e.Properties))
	for k, v := range e.Properties {
		props[k] = v
	}
	return &value.Edge{ID: e.ID, Label: e.Label, From: e.From, To: e.To, Properties: props}
}
