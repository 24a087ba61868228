package storagedriver

import (
	"bytes"
	"context"
	"sort"
	"sync"
)

// MemoryDriver is an in-process Driver backed by sorted Go maps. It is used
// by the tests; it implements the same interface
// as BadgerDriver so storagemgr code never branches on which is in use.
type MemoryDriver struct {
	mu    sync.RWMutex
	trees map[string]*memoryTree
}

// NewMemoryDriver creates an empty in-memory driver.
func NewMemoryDriver() *MemoryDriver {
	return &MemoryDriver{trees: make(map[string]*memoryTree)}
}

func (d *MemoryDriver) Tree(name string) (Tree, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	t, ok := d.trees[name]
	if !ok {
		t = &memoryTree{data: make(map[string][]byte)}
		d.trees[name] = t
	}
	return t, nil
}

func (d *MemoryDriver) ListTrees() ([]string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	names := make([]string, 0, len(d.trees))
	for n := range d.trees {
		names = append(names, n)
	}
	sort.Strings(names)
	return names, nil
}

func (d *MemoryDriver) DropTree(name string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.trees, name)
	return nil
}

func (d *MemoryDriver) Flush(ctx context.Context) error { return nil }
func (d *MemoryDriver) Close() error                    { return nil }

type memoryTree struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func (t *memoryTree) Get(key []byte) ([]byte, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	v, ok := t.data[string(key)]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (t *memoryTree) Set(key, value []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	v := make([]byte, len(value))
	copy(v, value)
	t.data[string(key)] = v
	return nil
}

func (t *memoryTree) Delete(key []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.data, string(key))
	return nil
}

func (t *memoryTree) Iterate(prefix []byte, fn func(key, value []byte) bool) error {
	t.mu.RLock()
	keys := make([]string, 0, len(t.data))
	for k := range t.data {
		if bytes.HasPrefix([]byte(k), prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	snapshot := make(map[string][]byte, len(keys))
	for _, k := range keys {
		snapshot[k] = t.data[k]
	}
	t.mu.RUnlock()

	for _, k := range keys {
		if !fn([]byte(k), snapshot[k]) {
			break
		}
	}
	return nil
}

func (t *memoryTree) Count(prefix []byte) (int64, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var n int64
	for k := range t.data {
		if bytes.HasPrefix([]byte(k), prefix) {
			n++
		}
	}
	return n, nil
}
