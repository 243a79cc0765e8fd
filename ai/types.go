package ai

import "time"

// TaskType classifies an LLM call for provider routing.
type TaskType string

const (
	// TaskClassification is bulk relevance and category classification.
	TaskClassification TaskType = "classification"
	// TaskFieldExtraction is structured field extraction from page text.
	TaskFieldExtraction TaskType = "field_extraction"
	// TaskSummarization produces short record summaries.
	TaskSummarization TaskType = "summarization"
	// TaskCritical is reserved for calls where answer quality dominates
	// cost, routed to the premium provider.
	TaskCritical TaskType = "critical"
)

// Role identifies the author of a message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn of a completion request.
type Message struct {
	Role    Role
	Content string
}

// Options holds optional per-call parameters.
type Options struct {
	// Temperature defaults to 0; enrichment wants deterministic output.
	Temperature float64
	// MaxTokens caps the completion length. 0 means provider default.
	MaxTokens int
	// JSONMode asks the provider for a JSON object response where supported.
	JSONMode bool
}

// Response is a completed LLM call with its accounting.
type Response struct {
	Content  string
	Provider string

	TokensIn  int
	TokensOut int
	// Cost is the estimate at the provider's published rate, in USD.
	Cost    float64
	Latency time.Duration

	// FallbackUsed is set when the primary provider failed and this response
	// came from the designated alternate.
	FallbackUsed bool
}

// CostRate is a provider model's published price per 1000 tokens, in USD.
type CostRate struct {
	InputPer1K  float64
	OutputPer1K float64
}

// CostTable maps provider names to their published rates.
type CostTable map[string]CostRate

// Cost computes the estimate for one call under the table. Unknown providers
// cost zero.
func (t CostTable) Cost(provider string, tokensIn, tokensOut int) float64 {
	rate, ok := t[provider]
	if !ok {
		return 0
	}
	return float64(tokensIn)/1000*rate.InputPer1K + float64(tokensOut)/1000*rate.OutputPer1K
}

// ProviderUsageStats accumulates per-provider accounting across calls.
type ProviderUsageStats struct {
	Provider      string
	TotalRequests int64
	Successes     int64
	Failures      int64
	TokensIn      int64
	TokensOut     int64
	CostEstimate  float64
	// RollingLatencyMs is an exponential moving average of call latency.
	RollingLatencyMs float64
}

// EstimateTokens approximates the token count of text when the provider does
// not report usage. Four characters per token is the usual rough cut.
func EstimateTokens(text string) int {
	n := len(text) / 4
	if n == 0 && len(text) > 0 {
		n = 1
	}
	return n
}
