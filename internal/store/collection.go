package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	badger "github.com/dgraph-io/badger/v4"
)

// Collection stores values of type T under one key kind.
type Collection[T any] struct {
	db   *DB
	kind string
}

// NewCollection returns the collection of kind in db.
func NewCollection[T any](db *DB, kind string) *Collection[T] {
	return &Collection[T]{db: db, kind: kind}
}

// Save stores v under id, replacing any previous value.
func (c *Collection[T]) Save(_ context.Context, id string, v *T) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s %s: %w", c.kind, id, err)
	}

	return c.db.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key(c.kind, id), data)
	})
}

// Get returns the value stored under id, or ErrNotFound.
func (c *Collection[T]) Get(_ context.Context, id string) (*T, error) {
	var out T
	err := c.db.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key(c.kind, id))
		if err != nil {
			return err
		}
		return item.Value(func(v []byte) error {
			return json.Unmarshal(v, &out)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("%s %s: %w", c.kind, id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load %s %s: %w", c.kind, id, err)
	}
	return &out, nil
}

// Delete removes id. Deleting a missing id is not an error.
func (c *Collection[T]) Delete(_ context.Context, id string) error {
	return c.db.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(key(c.kind, id))
	})
}

// List returns every value of the collection in key order.
func (c *Collection[T]) List(ctx context.Context) ([]*T, error) {
	prefix := key(c.kind, "")
	var out []*T

	err := c.db.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			item := it.Item()
			var v T
			if err := item.Value(func(b []byte) error {
				return json.NewDecoder(bytes.NewReader(b)).Decode(&v)
			}); err != nil {
				return fmt.Errorf("failed to decode %s: %w", item.Key(), err)
			}
			out = append(out, &v)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
