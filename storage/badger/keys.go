package badger

import "fmt"

// Key prefixes for different data types
const (
	sourcePrefix     = "src"
	dedupPrefix      = "dedup"
	recordPrefix     = "rec"
	recordTimePrefix = "rect"
)

// makeSourceKey generates a key for a source by ID.
func makeSourceKey(id string) []byte {
	return []byte(fmt.Sprintf("%s:%s", sourcePrefix, id))
}

// makeDedupKey generates a membership key for a committed content hash.
func makeDedupKey(hash string) []byte {
	return []byte(fmt.Sprintf("%s:%s", dedupPrefix, hash))
}

// makeRecordKey generates a key for an enriched record by content hash.
func makeRecordKey(hash string) []byte {
	return []byte(fmt.Sprintf("%s:%s", recordPrefix, hash))
}

// makeRecordTimeKey generates a composite key for the insertion-time index.
// Format: prefix:unixmicro:hash, so a reverse scan yields newest first.
func makeRecordTimeKey(unixMicro int64, hash string) []byte {
	return []byte(fmt.Sprintf("%s:%020d:%s", recordTimePrefix, unixMicro, hash))
}
