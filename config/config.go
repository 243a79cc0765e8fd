// Copyright 2026 Sievework
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sievework/prospector/ai"
	"github.com/sievework/prospector/core"
)

// Environment variables that override file values. Secrets should come from
// the environment; the file is safe to commit without them.
const (
	dbPathEnv         = "PROSPECTOR_DB_PATH"
	telegramTokenEnv  = "PROSPECTOR_TELEGRAM_TOKEN"
	telegramChatIDEnv = "PROSPECTOR_TELEGRAM_CHAT_ID"
	openaiAPIKeyEnv   = "PROSPECTOR_OPENAI_API_KEY"
)

// Duration is a time.Duration that unmarshals from YAML strings like "15m".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the standard-library representation.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config is the full operator-facing configuration.
type Config struct {
	Storage       StorageConfig       `yaml:"storage"`
	Pipeline      PipelineConfig      `yaml:"pipeline"`
	Providers     ProvidersConfig     `yaml:"providers"`
	Notifications NotificationsConfig `yaml:"notifications"`
	Sources       []SourceConfig      `yaml:"sources"`
}

// StorageConfig locates the on-disk database.
type StorageConfig struct {
	Path string `yaml:"path"`
}

// PipelineConfig holds the tuning knobs for collection and enrichment.
type PipelineConfig struct {
	// RelevanceCutoff is the minimum score a candidate needs to survive
	// filtering. Scores fall in [0,1].
	RelevanceCutoff float64 `yaml:"relevanceCutoff"`

	// CrawlBudget caps deep-crawl page fetches per collection run.
	CrawlBudget int `yaml:"crawlBudget"`

	// SearchQueriesPerHour caps targeted search calls during enrichment.
	SearchQueriesPerHour int    `yaml:"searchQueriesPerHour"`
	SearchEndpoint       string `yaml:"searchEndpoint"`

	// ChainTimeout bounds one source's full fetch-to-store chain.
	ChainTimeout Duration `yaml:"chainTimeout"`

	PoolSize int `yaml:"poolSize"`

	// HostCallsPerMinute caps outbound fetches per remote host.
	HostCallsPerMinute int `yaml:"hostCallsPerMinute"`

	// ProviderCallsPerMinute caps LLM calls per provider.
	ProviderCallsPerMinute int `yaml:"providerCallsPerMinute"`
}

// ProvidersConfig declares LLM backends, task routing, and published rates.
type ProvidersConfig struct {
	Compat []CompatProvider `yaml:"compat"`
	OpenAI []OpenAIProvider `yaml:"openai"`

	// Routes maps a task type name to its primary and fallback provider.
	Routes map[string]RouteConfig `yaml:"routes"`

	// Costs maps a provider name to its per-1K-token rates in USD.
	Costs map[string]CostConfig `yaml:"costs"`
}

// CompatProvider configures an OpenAI-compatible endpoint such as a local
// Ollama or vLLM instance.
type CompatProvider struct {
	Name  string `yaml:"name"`
	Host  string `yaml:"host"`
	Model string `yaml:"model"`
	Token string `yaml:"token"`
}

// OpenAIProvider configures a platform backend. The API key is taken from
// the environment when not set in the file.
type OpenAIProvider struct {
	Name   string `yaml:"name"`
	Model  string `yaml:"model"`
	APIKey string `yaml:"apiKey"`
}

// RouteConfig names the providers for one task type.
type RouteConfig struct {
	Primary  string `yaml:"primary"`
	Fallback string `yaml:"fallback"`
}

// CostConfig is a provider's published per-1K-token pricing.
type CostConfig struct {
	InputPer1K  float64 `yaml:"inputPer1k"`
	OutputPer1K float64 `yaml:"outputPer1k"`
}

// NotificationsConfig configures outbound operator notifications.
type NotificationsConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
}

// TelegramConfig holds bot credentials. Empty token disables notifications.
type TelegramConfig struct {
	BotToken string `yaml:"botToken"`
	ChatID   int64  `yaml:"chatId"`
}

// SourceConfig declares one recurring source.
type SourceConfig struct {
	ID             string   `yaml:"id"`
	Protocol       string   `yaml:"protocol"`
	Endpoint       string   `yaml:"endpoint"`
	DomainKeywords []string `yaml:"domainKeywords"`
	GeoKeywords    []string `yaml:"geoKeywords"`
	BaseInterval   Duration `yaml:"baseInterval"`
}

// Default returns the configuration used when the file omits a value.
func Default() Config {
	return Config{
		Storage: StorageConfig{
			Path: "./prospector-data",
		},
		Pipeline: PipelineConfig{
			RelevanceCutoff:        0.3,
			CrawlBudget:            5,
			SearchQueriesPerHour:   30,
			ChainTimeout:           Duration(2 * time.Minute),
			PoolSize:               4,
			HostCallsPerMinute:     30,
			ProviderCallsPerMinute: 60,
		},
	}
}

// Load reads the YAML file at path, layers it over the defaults, applies
// environment overrides, and validates the result. Validation failures wrap
// core.ErrFatalConfig: a bad config never half-starts the pipeline.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("%w: reading %s: %w", core.ErrFatalConfig, path, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return nil, fmt.Errorf("%w: parsing %s: %w", core.ErrFatalConfig, path, err)
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(dbPathEnv); v != "" {
		c.Storage.Path = v
	}
	if v := os.Getenv(telegramTokenEnv); v != "" {
		c.Notifications.Telegram.BotToken = v
	}
	if v := os.Getenv(telegramChatIDEnv); v != "" {
		var id int64
		if _, err := fmt.Sscanf(v, "%d", &id); err == nil {
			c.Notifications.Telegram.ChatID = id
		}
	}
	if v := os.Getenv(openaiAPIKeyEnv); v != "" {
		for i := range c.Providers.OpenAI {
			if c.Providers.OpenAI[i].APIKey == "" {
				c.Providers.OpenAI[i].APIKey = v
			}
		}
	}
}

// Validate checks every section. All failures wrap core.ErrFatalConfig.
func (c *Config) Validate() error {
	if c.Storage.Path == "" {
		return fmt.Errorf("%w: storage path is required", core.ErrFatalConfig)
	}
	if c.Pipeline.RelevanceCutoff < 0 || c.Pipeline.RelevanceCutoff > 1 {
		return fmt.Errorf("%w: relevance cutoff %.2f outside [0,1]", core.ErrFatalConfig, c.Pipeline.RelevanceCutoff)
	}
	if c.Pipeline.CrawlBudget < 0 {
		return fmt.Errorf("%w: crawl budget cannot be negative", core.ErrFatalConfig)
	}
	if c.Pipeline.SearchQueriesPerHour < 0 {
		return fmt.Errorf("%w: search queries per hour cannot be negative", core.ErrFatalConfig)
	}
	if c.Pipeline.PoolSize < 1 {
		return fmt.Errorf("%w: pool size must be at least 1", core.ErrFatalConfig)
	}
	if c.Pipeline.ChainTimeout <= 0 {
		return fmt.Errorf("%w: chain timeout must be positive", core.ErrFatalConfig)
	}

	if err := c.validateProviders(); err != nil {
		return err
	}

	for i, sc := range c.Sources {
		source, err := sc.Source()
		if err != nil {
			return fmt.Errorf("%w: source %d: %w", core.ErrFatalConfig, i, err)
		}
		if err := core.ValidateSource(source); err != nil {
			return fmt.Errorf("%w: source %q: %w", core.ErrFatalConfig, sc.ID, err)
		}
	}

	return nil
}

func (c *Config) validateProviders() error {
	known := make(map[string]bool)
	for _, p := range c.Providers.Compat {
		if p.Name == "" || p.Host == "" || p.Model == "" {
			return fmt.Errorf("%w: compat provider needs name, host, and model", core.ErrFatalConfig)
		}
		if known[p.Name] {
			return fmt.Errorf("%w: duplicate provider %q", core.ErrFatalConfig, p.Name)
		}
		known[p.Name] = true
	}
	for _, p := range c.Providers.OpenAI {
		if p.Name == "" || p.Model == "" {
			return fmt.Errorf("%w: openai provider needs name and model", core.ErrFatalConfig)
		}
		if known[p.Name] {
			return fmt.Errorf("%w: duplicate provider %q", core.ErrFatalConfig, p.Name)
		}
		known[p.Name] = true
	}

	for task, route := range c.Providers.Routes {
		if !validTask(task) {
			return fmt.Errorf("%w: unknown task type %q in routes", core.ErrFatalConfig, task)
		}
		if !known[route.Primary] {
			return fmt.Errorf("%w: route for %q names unknown primary %q", core.ErrFatalConfig, task, route.Primary)
		}
		if route.Fallback != "" && !known[route.Fallback] {
			return fmt.Errorf("%w: route for %q names unknown fallback %q", core.ErrFatalConfig, task, route.Fallback)
		}
	}

	for provider := range c.Providers.Costs {
		if !known[provider] {
			return fmt.Errorf("%w: cost entry for unknown provider %q", core.ErrFatalConfig, provider)
		}
	}

	return nil
}

func validTask(name string) bool {
	switch ai.TaskType(name) {
	case ai.TaskClassification, ai.TaskFieldExtraction, ai.TaskSummarization, ai.TaskCritical:
		return true
	}
	return false
}

// CostTable converts the cost section to the router's representation.
func (c *Config) CostTable() ai.CostTable {
	table := make(ai.CostTable, len(c.Providers.Costs))
	for provider, cost := range c.Providers.Costs {
		table[provider] = ai.CostRate{InputPer1K: cost.InputPer1K, OutputPer1K: cost.OutputPer1K}
	}
	return table
}

// Source converts one source declaration to the domain model.
func (sc *SourceConfig) Source() (*core.Source, error) {
	protocol, err := core.ParseProtocol(sc.Protocol)
	if err != nil {
		return nil, err
	}
	return &core.Source{
		ID:             sc.ID,
		Protocol:       protocol,
		Endpoint:       sc.Endpoint,
		DomainKeywords: sc.DomainKeywords,
		GeoKeywords:    sc.GeoKeywords,
		BaseInterval:   sc.BaseInterval.Std(),
	}, nil
}

// SourceList converts every declared source. Validate must have passed.
func (c *Config) SourceList() ([]*core.Source, error) {
	sources := make([]*core.Source, 0, len(c.Sources))
	for _, sc := range c.Sources {
		source, err := sc.Source()
		if err != nil {
			return nil, err
		}
		sources = append(sources, source)
	}
	return sources, nil
}
