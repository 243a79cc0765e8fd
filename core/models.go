package core

import (
	"fmt"
	"time"
)

// Protocol identifies how candidates are retrieved from a source.
type Protocol int

const (
	// ProtocolRSS polls an RSS or Atom feed.
	ProtocolRSS Protocol = iota + 1
	// ProtocolSearchQuery runs a search API query.
	ProtocolSearchQuery
	// ProtocolAdminURL fetches a single admin-submitted URL.
	ProtocolAdminURL
	// ProtocolUserSubmission fetches a single user-submitted URL.
	ProtocolUserSubmission
)

// String returns the canonical lowercase name for the protocol.
func (p Protocol) String() string {
	switch p {
	case ProtocolRSS:
		return "rss"
	case ProtocolSearchQuery:
		return "search_query"
	case ProtocolAdminURL:
		return "admin_url"
	case ProtocolUserSubmission:
		return "user_submission"
	default:
		return fmt.Sprintf("protocol(%d)", int(p))
	}
}

// ParseProtocol converts a canonical protocol name back to a Protocol.
func ParseProtocol(s string) (Protocol, error) {
	switch s {
	case "rss":
		return ProtocolRSS, nil
	case "search_query":
		return ProtocolSearchQuery, nil
	case "admin_url":
		return ProtocolAdminURL, nil
	case "user_submission":
		return ProtocolUserSubmission, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidProtocol, s)
	}
}

// Submission returns true for the single-candidate channels that bypass the
// scheduler and run at elevated priority.
func (p Protocol) Submission() bool {
	return p == ProtocolAdminURL || p == ProtocolUserSubmission
}

// Source is a configured origin of candidate records plus the rolling
// performance metrics the scheduler maintains for it.
//
// The metric fields (Priority, CurrentInterval, the EMAs, the counters and
// Suspended) are mutated only by the scheduler after each fetch attempt;
// everything else is operator configuration.
type Source struct {
	ID       string
	Protocol Protocol
	Endpoint string

	// DomainKeywords and GeoKeywords gate RSS candidates: an item must match
	// at least one keyword from each set before it enters the pipeline.
	DomainKeywords []string
	GeoKeywords    []string

	// BaseInterval is the operator-configured polling interval. The scheduler
	// adapts CurrentInterval around it, clamped to the global bounds.
	BaseInterval    time.Duration
	CurrentInterval time.Duration

	// Priority is the scheduler's health and value estimate in [0,1].
	Priority float64

	SuccessCount        int64
	FailureCount        int64
	ConsecutiveFailures int

	// QualityEMA tracks the mean relevance score of accepted items;
	// ProductivityEMA tracks items collected per successful fetch.
	QualityEMA      float64
	ProductivityEMA float64

	LastCheckedAt time.Time
	Suspended     bool

	InsertedAt time.Time
	UpdatedAt  time.Time
}

// Observations returns the number of fetch attempts recorded for the source.
func (s *Source) Observations() int64 {
	return s.SuccessCount + s.FailureCount
}

// Candidate is a raw item extracted from a source. It exists only within one
// pipeline pass; nothing persists it unless it survives dedup and relevance
// scoring.
type Candidate struct {
	SourceID    string
	Title       string
	RawBody     string
	Link        string
	FetchedAt   time.Time
	ContentHash string
}

// Structured field names filled in by the enrichment stages.
const (
	FieldOrganization = "organization"
	FieldAmount       = "amount"
	FieldCurrency     = "currency"
	FieldDeadline     = "deadline"
	FieldLocation     = "location"
	FieldCategory     = "category"
	FieldContact      = "contact"
	FieldSummary      = "summary"
)

// FieldValue is a single extracted field with the confidence the filling
// stage assigned and the name of that stage.
type FieldValue struct {
	Value      string
	Confidence float64
	Stage      string
}

// ProviderRef records one LLM call made on behalf of a record, for
// provenance.
type ProviderRef struct {
	Provider     string
	TaskType     string
	FallbackUsed bool
}

// EnrichedRecord is a validated candidate with extracted structured fields.
// It is owned by the pipeline until handed to the record repository, which
// then owns persistence.
type EnrichedRecord struct {
	Candidate

	RelevanceScore float64
	Fields         map[string]FieldValue
	StagesApplied  []string
	// Confidence is the mean confidence across filled fields.
	Confidence float64
	Provenance []ProviderRef

	InsertedAt time.Time
}

// Field returns the value and confidence for a named field; ok is false when
// the field has not been filled.
func (r *EnrichedRecord) Field(name string) (FieldValue, bool) {
	fv, ok := r.Fields[name]
	return fv, ok
}

// SetField records a field value, keeping the higher-confidence value when
// the field was already filled.
func (r *EnrichedRecord) SetField(name string, fv FieldValue) {
	if r.Fields == nil {
		r.Fields = make(map[string]FieldValue)
	}
	if old, ok := r.Fields[name]; ok && old.Confidence >= fv.Confidence {
		return
	}
	r.Fields[name] = fv
}

// HasSignal reports whether the record carries at least one funding or date
// signal, the minimum payload worth persisting alongside title and link.
func (r *EnrichedRecord) HasSignal() bool {
	if fv, ok := r.Fields[FieldAmount]; ok && fv.Value != "" {
		return true
	}
	if fv, ok := r.Fields[FieldDeadline]; ok && fv.Value != "" {
		return true
	}
	return false
}

// DropReason explains why a candidate did not become a persisted record.
// These are expected filtering outcomes, not errors.
type DropReason int

const (
	// DropNone means the candidate was accepted.
	DropNone DropReason = iota
	// DropDuplicate means the content hash was already committed.
	DropDuplicate
	// DropLowRelevance means the rule-based score fell below the cutoff.
	DropLowRelevance
	// DropInsufficientSignal means mandatory fields were still missing after
	// all enrichment stages ran.
	DropInsufficientSignal
	// DropEnrichmentFailed means a stage failed terminally for this record.
	DropEnrichmentFailed
	// DropInvalid means the candidate failed structural validation before
	// any scoring or enrichment took place.
	DropInvalid
)

// String returns the event-facing name of the drop reason.
func (d DropReason) String() string {
	switch d {
	case DropNone:
		return "accepted"
	case DropDuplicate:
		return "duplicate"
	case DropLowRelevance:
		return "low_relevance"
	case DropInsufficientSignal:
		return "insufficient_signal"
	case DropEnrichmentFailed:
		return "enrichment_failed"
	case DropInvalid:
		return "invalid"
	default:
		return fmt.Sprintf("drop(%d)", int(d))
	}
}

// Disposition is the explicit outcome of one candidate's pass through the
// pipeline: either an accepted record or a drop reason. Expected filtering
// outcomes never travel as error values.
type Disposition struct {
	Record *EnrichedRecord
	Reason Reason
}

// Reason aliases DropReason for readability at call sites.
type Reason = DropReason

// Accepted wraps a surviving record.
func Accepted(record *EnrichedRecord) Disposition {
	return Disposition{Record: record, Reason: DropNone}
}

// Dropped wraps a drop reason.
func Dropped(reason DropReason) Disposition {
	return Disposition{Reason: reason}
}

// IsAccepted reports whether the candidate survived.
func (d Disposition) IsAccepted() bool {
	return d.Reason == DropNone && d.Record != nil
}

// EventStatus classifies a completed source chain.
type EventStatus string

const (
	// EventSuccess means the fetch succeeded, whatever the per-item outcomes.
	EventSuccess EventStatus = "success"
	// EventFailure means the fetch failed or the chain deadline expired.
	EventFailure EventStatus = "failure"
	// EventSuspended means the source was skipped because it is suspended.
	EventSuspended EventStatus = "suspended"
)

// PipelineEvent summarizes one completed source chain for the notification
// collaborator. Per-record drops are aggregated here rather than surfaced as
// errors.
type PipelineEvent struct {
	ID            string
	SourceID      string
	Status        EventStatus
	ItemsFound    int
	ItemsAccepted int
	Dropped       map[string]int
	Errors        []string
	StartedAt     time.Time
	Duration      time.Duration
}
