// Package storagedriver defines the keyed byte-tree abstraction gqlcore's
// storage manager persists to, plus two implementations: an on-disk badger
// backend and an in-memory one for tests.
//
// This is deliberately the narrowest interface that the storage manager
// needs (spec.md §1 treats the storage driver as an external collaborator):
// named "trees" of byte keys to byte values, with ordered iteration and an
// atomic flush. Nothing above this layer knows badger exists.
package storagedriver

import "context"

// ErrNotFound is returned by Get when the key is absent. Deleting an absent
// key is not an error.
var ErrNotFound = driverNotFound{}

type driverNotFound struct{}

func (driverNotFound) Error() string { return "storagedriver: key not found" }

// Driver is a pluggable key-value tree store. Each named Tree is an
// independent ordered keyspace (the storage manager opens one Tree per
// graph per node/edge/metadata, plus shared "catalog" and "auth" trees).
type Driver interface {
	// Tree opens (creating if absent) the named byte tree.
	Tree(name string) (Tree, error)

	// ListTrees enumerates the tree names present in the store. The badger
	// backend derives them from stored keys, so it omits trees with no keys.
	ListTrees() ([]string, error)

	// DropTree removes a tree and all its keys.
	DropTree(name string) error

	// Flush forces any buffered writes to stable storage.
	Flush(ctx context.Context) error

	// Close releases underlying resources.
	Close() error
}

// Tree is one named keyspace of ordered byte keys.
type Tree interface {
	Get(key []byte) ([]byte, error)
	Set(key, value []byte) error
	Delete(key []byte) error

	// Iterate calls fn for every key with the given prefix, in ascending
	// key order, until fn returns false or all matching keys are visited.
	Iterate(prefix []byte, fn func(key, value []byte) bool) error

	// Count returns the number of keys with the given prefix.
	Count(prefix []byte) (int64, error)
}
