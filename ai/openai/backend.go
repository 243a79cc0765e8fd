package openai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	"github.com/sievework/prospector/ai"
)

// Backend implements ai.LLMBackend against the OpenAI platform.
type Backend struct {
	name   string
	model  string
	client openai.Client
	logger *slog.Logger
}

// Config holds settings for the OpenAI backend.
type Config struct {
	// Name is the provider identifier used by the routing table.
	Name string

	// APIKey authenticates against the platform.
	APIKey string

	// Model is the model identifier, e.g. "gpt-4o-mini".
	Model string
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.Name == "" {
		return errors.New("openai config: Name is required")
	}
	if c.APIKey == "" {
		return errors.New("openai config: APIKey is required")
	}
	if c.Model == "" {
		return errors.New("openai config: Model is required")
	}
	return nil
}

// New creates a backend for the OpenAI platform.
//
// Returns ai.LLMBackend interface to enforce abstraction.
func New(config *Config) (ai.LLMBackend, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &Backend{
		name:   config.Name,
		model:  config.Model,
		client: openai.NewClient(option.WithAPIKey(config.APIKey)),
		logger: slog.Default().With("component", "openai-backend", "provider", config.Name),
	}, nil
}

// Name returns the provider identifier.
func (b *Backend) Name() string {
	return b.name
}

// Complete runs one chat completion against the OpenAI platform.
func (b *Backend) Complete(ctx context.Context, messages []ai.Message, opts *ai.Options) (*ai.Response, error) {
	if opts == nil {
		opts = &ai.Options{}
	}

	params := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(b.model),
		Messages:    chatMessages(messages),
		Temperature: openai.Float(opts.Temperature),
	}
	if opts.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(opts.MaxTokens))
	}
	if opts.JSONMode {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &openai.ResponseFormatJSONObjectParam{},
		}
	}

	response, err := b.client.Chat.Completions.New(ctx, params)
	if err != nil {
		b.logger.Error("chat completion failed", "err", err)
		return nil, fmt.Errorf("openai request failed: %w", err)
	}
	if len(response.Choices) == 0 {
		return nil, fmt.Errorf("no response from openai")
	}

	return &ai.Response{
		Content:   response.Choices[0].Message.Content,
		Provider:  b.name,
		TokensIn:  int(response.Usage.PromptTokens),
		TokensOut: int(response.Usage.CompletionTokens),
	}, nil
}

func chatMessages(messages []ai.Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, message := range messages {
		switch message.Role {
		case ai.RoleSystem:
			out = append(out, openai.SystemMessage(message.Content))
		case ai.RoleAssistant:
			out = append(out, openai.AssistantMessage(message.Content))
		default:
			out = append(out, openai.UserMessage(message.Content))
		}
	}
	return out
}
