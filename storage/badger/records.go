package badger

import (
	"context"
	"errors"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/sievework/prospector/core"
	"github.com/sievework/prospector/storage"
)

// RecordRepository implements storage.RecordRepository for BadgerDB.
// Records are keyed by content hash; conflicting inserts are rejected so the
// no-two-records-share-a-hash invariant holds at the storage boundary too.
type RecordRepository struct {
	backend *Backend
}

var _ storage.RecordRepository = (*RecordRepository)(nil)

// NewRecordRepository creates a new RecordRepository.
func NewRecordRepository(backend *Backend) (*RecordRepository, error) {
	return &RecordRepository{
		backend: backend,
	}, nil
}

// Close releases resources. RecordRepository has no resources to release.
func (r *RecordRepository) Close() error {
	return nil
}

// AddRecord persists a record keyed by its content hash.
func (r *RecordRepository) AddRecord(ctx context.Context, record *core.EnrichedRecord) error {
	if err := core.ValidateCandidate(&record.Candidate); err != nil {
		return err
	}
	if record.ContentHash == "" {
		record.ContentHash = core.ContentHash(record.Title, record.Link)
	}

	return r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeRecordKey(record.ContentHash)

		if _, err := tx.Get(key); err == nil {
			return storage.ErrDuplicateKey
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		record.InsertedAt = time.Now().UTC()

		if err := tx.Set(key, storage.MarshalRecord(record)); err != nil {
			return err
		}

		// Insertion-time index for newest-first listing
		timeKey := makeRecordTimeKey(record.InsertedAt.UnixMicro(), record.ContentHash)
		if err := tx.Set(timeKey, []byte(record.ContentHash)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// UpdateRecord replaces an existing record in place, keeping its insertion
// time and position in the listing index.
func (r *RecordRepository) UpdateRecord(ctx context.Context, record *core.EnrichedRecord) error {
	if err := core.ValidateCandidate(&record.Candidate); err != nil {
		return err
	}
	if record.ContentHash == "" {
		return storage.ErrNotFound
	}

	return r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeRecordKey(record.ContentHash)

		if _, err := tx.Get(key); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return storage.ErrNotFound
			}
			return err
		}

		if err := tx.Set(key, storage.MarshalRecord(record)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// GetRecord retrieves a record by content hash.
func (r *RecordRepository) GetRecord(ctx context.Context, hash string) (*core.EnrichedRecord, error) {
	var record *core.EnrichedRecord
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeRecordKey(hash))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return storage.ErrNotFound
			}
			return err
		}
		return item.Value(func(val []byte) error {
			var err error
			record, err = storage.UnmarshalRecord(val)
			return err
		})
	}, false)
	if err != nil {
		return nil, err
	}
	return record, nil
}

// ListRecords retrieves up to limit records, most recently inserted first.
func (r *RecordRepository) ListRecords(ctx context.Context, limit int) ([]*core.EnrichedRecord, error) {
	var hashes []string

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(recordTimePrefix + ":")
		opts.Reverse = true
		iter := tx.NewIterator(opts)
		defer iter.Close()

		// Reverse iteration must seek past the last key in the prefix range.
		seek := append([]byte(recordTimePrefix+":"), 0xff)
		for iter.Seek(seek); iter.Valid(); iter.Next() {
			if limit > 0 && len(hashes) >= limit {
				break
			}
			err := iter.Item().Value(func(val []byte) error {
				hashes = append(hashes, string(val))
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}

	records := make([]*core.EnrichedRecord, 0, len(hashes))
	for _, hash := range hashes {
		record, err := r.GetRecord(ctx, hash)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, nil
}
