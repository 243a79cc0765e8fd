package ai_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sievework/prospector/ai"
	"github.com/sievework/prospector/ai/mock"
	"github.com/sievework/prospector/core"
	"github.com/sievework/prospector/ratelimit"
)

func newTestRouter(t *testing.T, cheap, premium *mock.MockBackend, opts ...ai.RouterOption) *ai.Router {
	t.Helper()

	base := []ai.RouterOption{
		ai.WithBackend(cheap),
		ai.WithBackend(premium),
		ai.WithRoute(ai.TaskClassification, cheap.Name(), premium.Name()),
		ai.WithRoute(ai.TaskCritical, premium.Name(), cheap.Name()),
		ai.WithCostTable(ai.CostTable{
			cheap.Name():   {InputPer1K: 0.1, OutputPer1K: 0.2},
			premium.Name(): {InputPer1K: 2.5, OutputPer1K: 10.0},
		}),
	}

	router, err := ai.NewRouter(append(base, opts...)...)
	require.NoError(t, err)
	return router
}

func TestRouterRoutesToPrimary(t *testing.T) {
	cheap := mock.NewMockBackend("cheap")
	premium := mock.NewMockBackend("premium")
	router := newTestRouter(t, cheap, premium)

	response, err := router.Complete(context.Background(), ai.TaskClassification,
		[]ai.Message{{Role: ai.RoleUser, Content: "classify this"}}, nil)
	require.NoError(t, err)

	assert.Equal(t, "cheap", response.Provider)
	assert.False(t, response.FallbackUsed)
	assert.Equal(t, 1, cheap.CallCount())
	assert.Equal(t, 0, premium.CallCount())
	assert.Positive(t, response.Cost)
}

func TestRouterFallbackOnPrimaryFailure(t *testing.T) {
	cheap := mock.NewMockBackend("cheap")
	cheap.CompleteFunc = func(ctx context.Context, messages []ai.Message, opts *ai.Options) (*ai.Response, error) {
		return nil, errors.New("connection refused")
	}
	premium := mock.NewMockBackend("premium")
	router := newTestRouter(t, cheap, premium)

	response, err := router.Complete(context.Background(), ai.TaskClassification,
		[]ai.Message{{Role: ai.RoleUser, Content: "classify this"}}, nil)
	require.NoError(t, err)

	assert.Equal(t, "premium", response.Provider)
	assert.True(t, response.FallbackUsed)

	// Both providers' stats updated exactly once each
	snapshot := router.UsageSnapshot()
	require.Len(t, snapshot, 2)
	assert.Equal(t, "cheap", snapshot[0].Provider)
	assert.Equal(t, int64(1), snapshot[0].TotalRequests)
	assert.Equal(t, int64(1), snapshot[0].Failures)
	assert.Equal(t, "premium", snapshot[1].Provider)
	assert.Equal(t, int64(1), snapshot[1].TotalRequests)
	assert.Equal(t, int64(1), snapshot[1].Successes)
}

func TestRouterSingleFallbackOnly(t *testing.T) {
	boom := func(ctx context.Context, messages []ai.Message, opts *ai.Options) (*ai.Response, error) {
		return nil, errors.New("down")
	}
	cheap := mock.NewMockBackend("cheap")
	cheap.CompleteFunc = boom
	premium := mock.NewMockBackend("premium")
	premium.CompleteFunc = boom
	router := newTestRouter(t, cheap, premium)

	_, err := router.Complete(context.Background(), ai.TaskClassification,
		[]ai.Message{{Role: ai.RoleUser, Content: "classify this"}}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrProviderUnavailable)

	// Exactly one attempt against each provider, never more
	assert.Equal(t, 1, cheap.CallCount())
	assert.Equal(t, 1, premium.CallCount())
}

func TestRouterNoRoute(t *testing.T) {
	cheap := mock.NewMockBackend("cheap")
	premium := mock.NewMockBackend("premium")
	router := newTestRouter(t, cheap, premium)

	_, err := router.Complete(context.Background(), ai.TaskSummarization,
		[]ai.Message{{Role: ai.RoleUser, Content: "summarize"}}, nil)
	assert.ErrorIs(t, err, ai.ErrNoRoute)
}

func TestRouterEmptyMessages(t *testing.T) {
	cheap := mock.NewMockBackend("cheap")
	premium := mock.NewMockBackend("premium")
	router := newTestRouter(t, cheap, premium)

	_, err := router.Complete(context.Background(), ai.TaskClassification, nil, nil)
	assert.ErrorIs(t, err, ai.ErrEmptyMessages)
}

func TestRouterValidatesRoutes(t *testing.T) {
	cheap := mock.NewMockBackend("cheap")

	_, err := ai.NewRouter(
		ai.WithBackend(cheap),
		ai.WithRoute(ai.TaskClassification, "missing", ""),
	)
	assert.ErrorIs(t, err, ai.ErrUnknownProvider)

	_, err = ai.NewRouter()
	assert.ErrorIs(t, err, ai.ErrBackendRequired)
}

func TestRouterCostAccounting(t *testing.T) {
	cheap := mock.NewMockBackend("cheap")
	cheap.CompleteFunc = func(ctx context.Context, messages []ai.Message, opts *ai.Options) (*ai.Response, error) {
		return &ai.Response{Content: "ok", TokensIn: 1000, TokensOut: 500}, nil
	}
	premium := mock.NewMockBackend("premium")
	router := newTestRouter(t, cheap, premium)

	response, err := router.Complete(context.Background(), ai.TaskClassification,
		[]ai.Message{{Role: ai.RoleUser, Content: "classify"}}, nil)
	require.NoError(t, err)

	// 1000 in at 0.1/1K + 500 out at 0.2/1K
	assert.InDelta(t, 0.2, response.Cost, 1e-9)

	snapshot := router.UsageSnapshot()
	require.Len(t, snapshot, 1)
	assert.Equal(t, int64(1000), snapshot[0].TokensIn)
	assert.Equal(t, int64(500), snapshot[0].TokensOut)
	assert.InDelta(t, 0.2, snapshot[0].CostEstimate, 1e-9)
}

func TestRouterRateLimited(t *testing.T) {
	cheap := mock.NewMockBackend("cheap")
	premium := mock.NewMockBackend("premium")
	limiter := ratelimit.NewLimiter(nil)

	router := newTestRouter(t, cheap, premium,
		ai.WithRateLimit(limiter, 1, time.Hour))

	// First call consumes the cheap provider's budget
	_, err := router.Complete(context.Background(), ai.TaskClassification,
		[]ai.Message{{Role: ai.RoleUser, Content: "one"}}, nil)
	require.NoError(t, err)

	// Second call: primary denied by the limiter, fallback serves it
	response, err := router.Complete(context.Background(), ai.TaskClassification,
		[]ai.Message{{Role: ai.RoleUser, Content: "two"}}, nil)
	require.NoError(t, err)
	assert.True(t, response.FallbackUsed)
	assert.Equal(t, "premium", response.Provider)
	assert.Equal(t, 1, cheap.CallCount(), "denied attempt must not reach the backend")
}
