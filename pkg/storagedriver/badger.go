package storagedriver

import (
	"bytes"
	"context"
	"fmt"
	"log"

	"github.com/dgraph-io/badger/v4"
)

// BadgerDriver persists trees inside a single BadgerDB instance, namespacing
// each Tree under a `<name>\x00` key prefix — the same single-byte/short
// prefix convention the teacher's BadgerEngine uses for nodes/edges/indices,
// generalized from a fixed set of prefixes to an arbitrary tree name.
type BadgerDriver struct {
	db     *badger.DB
	closed bool
}

// BadgerDriverOptions configures the on-disk driver.
type BadgerDriverOptions struct {
	DataDir    string
	InMemory   bool
	SyncWrites bool
	Logger     badger.Logger
}

// NewBadgerDriver opens (creating if absent) a badger-backed Driver.
func NewBadgerDriver(opts BadgerDriverOptions) (*BadgerDriver, error) {
	bopts := badger.DefaultOptions(opts.DataDir)
	bopts = bopts.WithInMemory(opts.InMemory)
	bopts = bopts.WithSyncWrites(opts.SyncWrites)
	if opts.Logger != nil {
		bopts = bopts.WithLogger(opts.Logger)
	} else {
		bopts = bopts.WithLogger(nil)
	}

	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("storagedriver: open badger at %s: %w", opts.DataDir, err)
	}
	return &BadgerDriver{db: db}, nil
}

func treePrefix(name string) []byte {
	p := make([]byte, 0, len(name)+1)
	p = append(p, []byte(name)...)
	p = append(p, 0x00)
	return p
}

func (d *BadgerDriver) Tree(name string) (Tree, error) {
	if d.closed {
		return nil, fmt.Errorf("storagedriver: driver closed")
	}
	return &badgerTree{db: d.db, prefix: treePrefix(name)}, nil
}

func (d *BadgerDriver) ListTrees() ([]string, error) {
	seen := map[string]struct{}{}
	err := d.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			key := it.Item().KeyCopy(nil)
			idx := bytes.IndexByte(key, 0x00)
			if idx < 0 {
				continue
			}
			seen[string(key[:idx])] = struct{}{}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("storagedriver: list trees: %w", err)
	}
	names := make([]string, 0, len(seen))
	for n := range seen {
		names = append(names, n)
	}
	return names, nil
}

func (d *BadgerDriver) DropTree(name string) error {
	prefix := treePrefix(name)
	return d.db.Update(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		var toDelete [][]byte
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			toDelete = append(toDelete, it.Item().KeyCopy(nil))
		}
		for _, k := range toDelete {
			if err := txn.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
}

func (d *BadgerDriver) Flush(ctx context.Context) error {
	return d.db.Sync()
}

func (d *BadgerDriver) Close() error {
	if d.closed {
		return nil
	}
	d.closed = true
	if err := d.db.Close(); err != nil {
		log.Printf("storagedriver: error closing badger: %v", err)
		return err
	}
	return nil
}

type badgerTree struct {
	db     *badger.DB
	prefix []byte
}

func (t *badgerTree) fullKey(key []byte) []byte {
	full := make([]byte, 0, len(t.prefix)+len(key))
	full = append(full, t.prefix...)
	full = append(full, key...)
	return full
}

func (t *badgerTree) Get(key []byte) ([]byte, error) {
	var out []byte
	err := t.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(t.fullKey(key))
		if err == badger.ErrKeyNotFound {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			out = append([]byte(nil), val...)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (t *badgerTree) Set(key, value []byte) error {
	return t.db.Update(func(txn *badger.Txn) error {
		return txn.Set(t.fullKey(key), value)
	})
}

func (t *badgerTree) Delete(key []byte) error {
	return t.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(t.fullKey(key))
	})
}

func (t *badgerTree) Iterate(prefix []byte, fn func(key, value []byte) bool) error {
	full := t.fullKey(prefix)
	return t.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = full
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(full); it.ValidForPrefix(full); it.Next() {
			item := it.Item()
			key := item.KeyCopy(nil)[len(t.prefix):]
			var cont bool
			err := item.Value(func(val []byte) error {
				cont = fn(key, val)
				return nil
			})
			if err != nil {
				return err
			}
			if !cont {
				break
			}
		}
		return nil
	})
}

func (t *badgerTree) Count(prefix []byte) (int64, error) {
	full := t.fullKey(prefix)
	var n int64
	err := t.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = full
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(full); it.ValidForPrefix(full); it.Next() {
			n++
		}
		return nil
	})
	return n, err
}
