package storage

import (
	"context"

	"github.com/sievework/prospector/core"
)

// SourceRepository persists the source registry: one entry per configured
// source, including the rolling metrics the scheduler maintains.
// Implementations must be thread-safe and support concurrent access.
type SourceRepository interface {
	// PutSource inserts or replaces a source. Sets InsertedAt on first write
	// and UpdatedAt on every write.
	PutSource(ctx context.Context, source *core.Source) error

	// GetSource retrieves a source by ID.
	// Returns ErrNotFound if the source doesn't exist.
	GetSource(ctx context.Context, id string) (*core.Source, error)

	// ListSources retrieves every registered source, ordered by ID.
	ListSources(ctx context.Context) ([]*core.Source, error)

	// DeleteSource removes a source by ID.
	// Returns ErrNotFound if the source doesn't exist.
	DeleteSource(ctx context.Context, id string) error

	// Close closes the repository and releases resources.
	Close() error
}

// DedupIndex is the append-only membership set of committed content hashes.
// Contains must be O(1); Commit must be an atomic check-and-set so that two
// concurrent chains cannot both commit the same hash.
type DedupIndex interface {
	// Contains reports whether the hash was previously committed.
	Contains(ctx context.Context, hash string) (bool, error)

	// Commit adds the hash to the index. Idempotent: committing an already
	// present hash is a no-op and returns no error.
	Commit(ctx context.Context, hash string) error

	// Close closes the index and releases resources.
	Close() error
}

// RecordRepository is the sink for enriched records. Records are keyed by
// content hash; inserting a hash that already exists is rejected.
type RecordRepository interface {
	// AddRecord persists a record keyed by its content hash.
	// Returns ErrDuplicateKey if a record with the same hash exists.
	AddRecord(ctx context.Context, record *core.EnrichedRecord) error

	// UpdateRecord replaces an existing record in place.
	// Returns ErrNotFound if no record exists for the hash.
	UpdateRecord(ctx context.Context, record *core.EnrichedRecord) error

	// GetRecord retrieves a record by content hash.
	// Returns ErrNotFound if no record exists for the hash.
	GetRecord(ctx context.Context, hash string) (*core.EnrichedRecord, error)

	// ListRecords retrieves up to limit records, most recently inserted
	// first. A limit <= 0 returns all records.
	ListRecords(ctx context.Context, limit int) ([]*core.EnrichedRecord, error)

	// Close closes the repository and releases resources.
	Close() error
}
