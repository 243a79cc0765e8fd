// Package backfill re-runs the enrichment pipeline over records already in
// the store. It exists for the day a new stage or provider is configured:
// records that settled below the confidence threshold get another pass
// without waiting for their source to surface them again.
//
// The package supports batch processing, progress tracking, and retry with
// exponential backoff for transient storage failures.
package backfill
