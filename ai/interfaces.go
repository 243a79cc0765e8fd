package ai

import "context"

// LLMBackend is a single LLM provider. Implementations must be thread-safe
// for concurrent use.
type LLMBackend interface {
	// Name returns the provider identifier used by the routing table and the
	// usage stats.
	Name() string

	// Complete runs one chat completion. The returned response carries the
	// provider's reported token usage, or an estimate when the provider does
	// not report usage. Returns an error if the call fails; the router
	// decides whether a fallback attempt follows.
	Complete(ctx context.Context, messages []Message, opts *Options) (*Response, error)
}
