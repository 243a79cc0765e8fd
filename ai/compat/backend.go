package compat

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/sievework/prospector/ai"
)

// Backend implements ai.LLMBackend against any OpenAI-compatible endpoint.
type Backend struct {
	name   string
	client llms.Model
	logger *slog.Logger
}

// Config holds settings for an OpenAI-compatible backend.
type Config struct {
	// Name is the provider identifier used by the routing table.
	Name string

	// Host is the base URL of the API, e.g. "http://localhost:11434/v1".
	Host string

	// Model is the model identifier, e.g. "qwen2.5:3b".
	Model string

	// Token is the API token. Local services that don't authenticate accept
	// any value; "none" is used when empty.
	Token string
}

// Validate checks the configuration, normalizing the host to the /v1 form
// most OpenAI-compatible APIs require.
func (c *Config) Validate() error {
	if c.Name == "" {
		return errors.New("compat config: Name is required")
	}
	if c.Host == "" {
		return errors.New("compat config: Host is required")
	}
	if c.Model == "" {
		return errors.New("compat config: Model is required")
	}
	if !strings.HasSuffix(c.Host, "/v1") {
		c.Host = strings.TrimSuffix(c.Host, "/") + "/v1"
	}
	if c.Token == "" {
		c.Token = "none"
	}
	return nil
}

// New creates a backend for an OpenAI-compatible endpoint.
//
// Returns ai.LLMBackend interface to enforce abstraction.
func New(config *Config) (ai.LLMBackend, error) {
	return newBackend(config)
}

// newBackend is an internal constructor that returns the concrete type.
func newBackend(config *Config) (*Backend, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	client, err := openai.New(
		openai.WithBaseURL(config.Host),
		openai.WithToken(config.Token),
		openai.WithModel(config.Model),
	)
	if err != nil {
		return nil, err
	}

	return &Backend{
		name:   config.Name,
		client: client,
		logger: slog.Default().With("component", "compat-backend", "provider", config.Name),
	}, nil
}

// Name returns the provider identifier.
func (b *Backend) Name() string {
	return b.name
}

// Complete runs one chat completion against the compatible endpoint.
func (b *Backend) Complete(ctx context.Context, messages []ai.Message, opts *ai.Options) (*ai.Response, error) {
	if opts == nil {
		opts = &ai.Options{}
	}

	content := make([]llms.MessageContent, 0, len(messages))
	promptLen := 0
	for _, message := range messages {
		content = append(content, llms.MessageContent{
			Role:  chatRole(message.Role),
			Parts: []llms.ContentPart{llms.TextPart(message.Content)},
		})
		promptLen += len(message.Content)
	}

	callOpts := []llms.CallOption{llms.WithTemperature(opts.Temperature)}
	if opts.MaxTokens > 0 {
		callOpts = append(callOpts, llms.WithMaxTokens(opts.MaxTokens))
	}
	if opts.JSONMode {
		callOpts = append(callOpts, llms.WithJSONMode())
	}

	response, err := b.client.GenerateContent(ctx, content, callOpts...)
	if err != nil {
		b.logger.Error("failed to generate content", "err", err)
		return nil, err
	}
	if len(response.Choices) < 1 {
		b.logger.Debug("no choices returned from model")
		return &ai.Response{Provider: b.name}, nil
	}

	choice := response.Choices[0]
	tokensIn, tokensOut := usageFromGenerationInfo(choice.GenerationInfo)
	if tokensIn == 0 {
		tokensIn = promptLen / 4
		if tokensIn == 0 && promptLen > 0 {
			tokensIn = 1
		}
	}
	if tokensOut == 0 {
		tokensOut = ai.EstimateTokens(choice.Content)
	}

	return &ai.Response{
		Content:   stripCodeFences(choice.Content),
		Provider:  b.name,
		TokensIn:  tokensIn,
		TokensOut: tokensOut,
	}, nil
}

func chatRole(role ai.Role) llms.ChatMessageType {
	switch role {
	case ai.RoleSystem:
		return llms.ChatMessageTypeSystem
	case ai.RoleAssistant:
		return llms.ChatMessageTypeAI
	default:
		return llms.ChatMessageTypeHuman
	}
}

// usageFromGenerationInfo pulls token counts out of the provider-specific
// generation info, which langchaingo types as map[string]any.
func usageFromGenerationInfo(info map[string]any) (tokensIn, tokensOut int) {
	return intFromInfo(info, "PromptTokens"), intFromInfo(info, "CompletionTokens")
}

func intFromInfo(info map[string]any, key string) int {
	if info == nil {
		return 0
	}
	switch v := info[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}

// Smaller models wrap JSON responses in markdown fences even in JSON mode.
func stripCodeFences(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}
