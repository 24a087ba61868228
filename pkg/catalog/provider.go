package catalog

import (
	"encoding/json"
	"sort"
	"sync"

	"github.com/nornic/gqlcore/pkg/errs"
	"github.com/nornic/gqlcore/pkg/storagedriver"
)

// provider is a generic CRUD + list store for one catalog entity kind,
// persisted as one JSON blob per record under key
// "catalog_provider_<kind>_<name>" (spec.md §6's storage layout). An
// in-memory mirror backs reads so catalog lookups never hit disk on the
// hot path; writes go through to the tree immediately (DDL is rare and
// synchronous by design).
type provider[T any] struct {
	mu   sync.RWMutex
	tree storagedriver.Tree
	kind string

	records map[string]T
}

func newProvider[T any](tree storagedriver.Tree, kind string) *provider[T] {
	p := &provider[T]{tree: tree, kind: kind, records: make(map[string]T)}
	p.loadAll()
	return p
}

func (p *provider[T]) key(name string) []byte {
	return []byte("catalog_provider_" + p.kind + "_" + name)
}

func (p *provider[T]) loadAll() {
	prefix := []byte("catalog_provider_" + p.kind + "_")
	_ = p.tree.Iterate(prefix, func(key, val []byte) bool {
		name := string(key[len(prefix):])
		var rec T
		if err := json.Unmarshal(val, &rec); err == nil {
			p.records[name] = rec
		}
		return true
	})
}

func (p *provider[T]) create(name string, rec T) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, exists := p.records[name]; exists {
		return errs.Duplicate(p.kind, name)
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return errs.Persistence("marshal %s %q: %v", p.kind, name, err)
	}
	if err := p.tree.Set(p.key(name), data); err != nil {
		return errs.Persistence("persist %s %q: %v", p.kind, name, err)
	}
	p.records[name] = rec
	return nil
}

func (p *provider[T]) update(name string, rec T) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, exists := p.records[name]; !exists {
		return errs.Catalog("%s %q not found", p.kind, name)
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return errs.Persistence("marshal %s %q: %v", p.kind, name, err)
	}
	if err := p.tree.Set(p.key(name), data); err != nil {
		return errs.Persistence("persist %s %q: %v", p.kind, name, err)
	}
	p.records[name] = rec
	return nil
}

func (p *provider[T]) drop(name string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, exists := p.records[name]; !exists {
		return errs.Catalog("%s %q not found", p.kind, name)
	}
	if err := p.tree.Delete(p.key(name)); err != nil {
		return errs.Persistence("delete %s %q: %v", p.kind, name, err)
	}
	delete(p.records, name)
	return nil
}

func (p *provider[T]) get(name string) (T, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	rec, ok := p.records[name]
	if !ok {
		var zero T
		return zero, errs.Catalog("%s %q not found", p.kind, name)
	}
	return rec, nil
}

func (p *provider[T]) list() []T {
	p.mu.RLock()
	defer p.mu.RUnlock()
	names := make([]string, 0, len(p.records))
	for n := range p.records {
		names = append(names, n)
	}
	sort.Strings(names)
	out := make([]T, 0, len(names))
	for _, n := range names {
		out = append(out, p.records[n])
	}
	return out
}
