package mock

import (
	"context"
	"sync"

	"github.com/sievework/prospector/ai"
)

// MockBackend is a test double for ai.LLMBackend.
// It allows custom behavior injection via function fields.
type MockBackend struct {
	name string

	// CompleteFunc is called by Complete if set.
	// If nil, a canned response echoing the last message is returned.
	CompleteFunc func(ctx context.Context, messages []ai.Message, opts *ai.Options) (*ai.Response, error)

	mu        sync.Mutex
	callCount int
}

var _ ai.LLMBackend = (*MockBackend)(nil)

// NewMockBackend creates a mock backend with the given provider name.
// Note: Returns concrete type to allow test assertions.
func NewMockBackend(name string) *MockBackend {
	return &MockBackend{name: name}
}

// Name returns the provider identifier.
func (m *MockBackend) Name() string {
	return m.name
}

// Complete returns the injected behavior, or a canned response.
func (m *MockBackend) Complete(ctx context.Context, messages []ai.Message, opts *ai.Options) (*ai.Response, error) {
	m.mu.Lock()
	m.callCount++
	m.mu.Unlock()

	if m.CompleteFunc != nil {
		return m.CompleteFunc(ctx, messages, opts)
	}

	last := ""
	if len(messages) > 0 {
		last = messages[len(messages)-1].Content
	}
	return &ai.Response{
		Content:   "mock: " + last,
		Provider:  m.name,
		TokensIn:  ai.EstimateTokens(last),
		TokensOut: 8,
	}, nil
}

// CallCount returns the number of times Complete was called.
func (m *MockBackend) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// Reset clears the call count and custom function.
func (m *MockBackend) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callCount = 0
	m.CompleteFunc = nil
}
