package badger

import (
	"context"
	"errors"

	"github.com/dgraph-io/badger/v4"
	"github.com/sievework/prospector/storage"
)

// DedupIndex implements storage.DedupIndex for BadgerDB. The index is
// append-only: hashes are committed, never removed.
type DedupIndex struct {
	backend *Backend
}

var _ storage.DedupIndex = (*DedupIndex)(nil)

// NewDedupIndex creates a new DedupIndex.
func NewDedupIndex(backend *Backend) (*DedupIndex, error) {
	return &DedupIndex{
		backend: backend,
	}, nil
}

// Close releases resources. DedupIndex has no resources to release.
func (d *DedupIndex) Close() error {
	return nil
}

// Contains reports whether the hash was previously committed.
func (d *DedupIndex) Contains(ctx context.Context, hash string) (bool, error) {
	var found bool
	err := d.backend.WithTx(func(tx *badger.Txn) error {
		_, err := tx.Get(makeDedupKey(hash))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return nil
			}
			return err
		}
		found = true
		return nil
	}, false)
	return found, err
}

// Commit adds the hash to the index. BadgerDB transactions give the
// check-and-set atomicity: when two chains race on the same hash, one commit
// conflicts and is treated as already present. Idempotent.
func (d *DedupIndex) Commit(ctx context.Context, hash string) error {
	err := d.backend.WithTx(func(tx *badger.Txn) error {
		key := makeDedupKey(hash)

		if _, err := tx.Get(key); err == nil {
			return nil // already committed
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		if err := tx.Set(key, nil); err != nil {
			return err
		}
		return tx.Commit()
	}, true)

	if errors.Is(err, badger.ErrConflict) {
		return nil
	}
	return err
}
