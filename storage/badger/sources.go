package badger

import (
	"context"
	"errors"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/sievework/prospector/core"
	"github.com/sievework/prospector/storage"
)

// SourceRepository implements storage.SourceRepository for BadgerDB.
type SourceRepository struct {
	backend *Backend
}

var _ storage.SourceRepository = (*SourceRepository)(nil)

// NewSourceRepository creates a new SourceRepository.
func NewSourceRepository(backend *Backend) (*SourceRepository, error) {
	return &SourceRepository{
		backend: backend,
	}, nil
}

// Close releases resources. SourceRepository has no resources to release.
func (r *SourceRepository) Close() error {
	return nil
}

// PutSource inserts or replaces a source.
func (r *SourceRepository) PutSource(ctx context.Context, source *core.Source) error {
	if err := core.ValidateSource(source); err != nil {
		return err
	}

	return r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeSourceKey(source.ID)

		// Preserve InsertedAt across replacements
		old, err := readSource(tx, key)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		if old != nil {
			source.InsertedAt = old.InsertedAt
		} else if source.InsertedAt.IsZero() {
			source.InsertedAt = now
		}
		source.UpdatedAt = now

		if err := tx.Set(key, storage.MarshalSource(source)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// GetSource retrieves a source by ID.
func (r *SourceRepository) GetSource(ctx context.Context, id string) (*core.Source, error) {
	var source *core.Source
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		source, err = readSource(tx, makeSourceKey(id))
		return err
	}, false)
	if err != nil {
		return nil, err
	}
	if source == nil {
		return nil, storage.ErrNotFound
	}
	return source, nil
}

// ListSources retrieves every registered source, ordered by ID.
func (r *SourceRepository) ListSources(ctx context.Context) ([]*core.Source, error) {
	var sources []*core.Source

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(sourcePrefix + ":")
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var source *core.Source
			err := iter.Item().Value(func(val []byte) error {
				var err error
				source, err = storage.UnmarshalSource(val)
				return err
			})
			if err != nil {
				return err
			}
			sources = append(sources, source)
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}

	return sources, nil
}

// DeleteSource removes a source by ID.
func (r *SourceRepository) DeleteSource(ctx context.Context, id string) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeSourceKey(id)

		if _, err := tx.Get(key); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return storage.ErrNotFound
			}
			return err
		}
		if err := tx.Delete(key); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// readSource reads and unmarshals a source inside a transaction.
// Returns (nil, nil) when the key does not exist.
func readSource(tx *badger.Txn, key []byte) (*core.Source, error) {
	item, err := tx.Get(key)
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, err
	}

	var source *core.Source
	err = item.Value(func(val []byte) error {
		var err error
		source, err = storage.UnmarshalSource(val)
		return err
	})
	return source, err
}
