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


package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/sievework/prospector/ai"
	"github.com/sievework/prospector/ai/compat"
	"github.com/sievework/prospector/ai/openai"
	"github.com/sievework/prospector/backfill"
	"github.com/sievework/prospector/config"
	"github.com/sievework/prospector/core"
	"github.com/sievework/prospector/enrich"
	"github.com/sievework/prospector/fetch"
	"github.com/sievework/prospector/ingestion"
	"github.com/sievework/prospector/notify"
	"github.com/sievework/prospector/ratelimit"
	"github.com/sievework/prospector/relevance"
	"github.com/sievework/prospector/schedule"
	"github.com/sievework/prospector/storage"
	badgerstore "github.com/sievework/prospector/storage/badger"
)

func main() {
	// A missing .env is fine; secrets may come from the real environment.
	_ = godotenv.Load()

	app := &cli.App{
		Name:  "prospector",
		Usage: "Adaptive multi-source collection and enrichment pipeline for funding opportunities",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to YAML configuration file",
				EnvVars: []string{"PROSPECTOR_CONFIG"},
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "run",
				Usage:  "Run the collection loop until interrupted",
				Action: runCommand,
			},
			{
				Name:   "once",
				Usage:  "Process every due source a single time and exit",
				Action: onceCommand,
			},
			{
				Name:   "submit",
				Usage:  "Submit a single URL for immediate processing",
				Action: submitCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "url",
						Usage:    "URL to fetch and process",
						Required: true,
					},
					&cli.BoolFlag{
						Name:  "user",
						Usage: "Treat as a user submission instead of an admin one",
					},
					&cli.StringSliceFlag{
						Name:  "domain-keyword",
						Usage: "Domain keyword gate (repeatable)",
					},
					&cli.StringSliceFlag{
						Name:  "geo-keyword",
						Usage: "Geographic keyword gate (repeatable)",
					},
				},
			},
			{
				Name:  "sources",
				Usage: "Inspect and manage registered sources",
				Subcommands: []*cli.Command{
					{
						Name:   "list",
						Usage:  "List every registered source with its health",
						Action: sourcesListCommand,
					},
					{
						Name:   "add",
						Usage:  "Register a new recurring source",
						Action: sourcesAddCommand,
						Flags: []cli.Flag{
							&cli.StringFlag{
								Name:     "id",
								Usage:    "Unique source identifier",
								Required: true,
							},
							&cli.StringFlag{
								Name:     "protocol",
								Usage:    "Source protocol (rss, search_query)",
								Required: true,
							},
							&cli.StringFlag{
								Name:     "endpoint",
								Usage:    "Feed URL or search query endpoint",
								Required: true,
							},
							&cli.StringSliceFlag{
								Name:  "domain-keyword",
								Usage: "Domain keyword gate (repeatable)",
							},
							&cli.StringSliceFlag{
								Name:  "geo-keyword",
								Usage: "Geographic keyword gate (repeatable)",
							},
							&cli.DurationFlag{
								Name:  "interval",
								Usage: "Base polling interval",
								Value: 30 * time.Minute,
							},
						},
					},
					{
						Name:   "reactivate",
						Usage:  "Clear a suspended source's failure state",
						Action: sourcesReactivateCommand,
						Flags: []cli.Flag{
							&cli.StringFlag{
								Name:     "id",
								Usage:    "Source identifier",
								Required: true,
							},
						},
					},
				},
			},
			{
				Name:   "stats",
				Usage:  "Show aggregate source health and record counts",
				Action: statsCommand,
			},
			{
				Name:   "reenrich",
				Usage:  "Re-run enrichment over stored low-confidence records",
				Action: reenrichCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of records to process in each batch",
						Value: 100,
					},
					&cli.Float64Flag{
						Name:  "ceiling",
						Usage: "Only records below this confidence are re-enriched",
						Value: enrich.DefaultConfidenceThreshold,
					},
				},
			},
			{
				Name:   "records",
				Usage:  "List recently stored records",
				Action: recordsCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum records to show",
						Value: 20,
					},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// pipeline bundles everything a command needs, plus the cleanup to run when
// it finishes.
type pipeline struct {
	cfg         *config.Config
	coordinator *ingestion.Coordinator
	scheduler   *schedule.AdaptiveScheduler
	router      *ai.Router
	enricher    *enrich.Pipeline
	sources     storage.SourceRepository
	records     storage.RecordRepository
	backend     *badgerstore.Backend
	close       func()
}

func buildPipeline(c *cli.Context) (*pipeline, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}

	backend, err := badgerstore.OpenBackend(cfg.Storage.Path, false)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sources, err := badgerstore.NewSourceRepository(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}
	dedup, err := badgerstore.NewDedupIndex(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}
	records, err := badgerstore.NewRecordRepository(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}

	clock := core.SystemClock()
	limiter := ratelimit.NewLimiter(clock)

	router, err := buildRouter(cfg, limiter)
	if err != nil {
		backend.Close()
		return nil, err
	}

	fetcher, err := fetch.NewDispatcher(
		fetch.WithLimiter(limiter),
		fetch.WithHostBudget(cfg.Pipeline.HostCallsPerMinute, time.Minute),
	)
	if err != nil {
		backend.Close()
		return nil, err
	}

	enricher, err := buildEnricher(cfg, router)
	if err != nil {
		backend.Close()
		return nil, err
	}

	scheduler, err := schedule.NewScheduler(sources, schedule.WithClock(clock))
	if err != nil {
		backend.Close()
		return nil, err
	}

	notifier := notify.Noop()
	if token := cfg.Notifications.Telegram.BotToken; token != "" {
		tn, tnErr := notify.NewTelegramNotifier(token, cfg.Notifications.Telegram.ChatID)
		if tnErr != nil {
			slog.Warn("telegram notifier disabled", "err", tnErr)
		} else {
			notifier = tn
		}
	}

	pctx := &ingestion.PipelineContext{
		Sources: sources,
		Dedup:   dedup,
		Records: records,
		Limiter: limiter,
		Router:  router,
	}

	coordinator, err := ingestion.NewCoordinator(
		pctx,
		scheduler,
		fetcher,
		relevance.NewScorer(cfg.Pipeline.RelevanceCutoff),
		enricher,
		ingestion.WithPoolSize(cfg.Pipeline.PoolSize),
		ingestion.WithChainTimeout(cfg.Pipeline.ChainTimeout.Std()),
		ingestion.WithNotifier(notifier),
	)
	if err != nil {
		backend.Close()
		return nil, err
	}

	return &pipeline{
		cfg:         cfg,
		coordinator: coordinator,
		scheduler:   scheduler,
		router:      router,
		enricher:    enricher,
		sources:     sources,
		records:     records,
		backend:     backend,
		close: func() {
			coordinator.Release()
			backend.Close()
		},
	}, nil
}

// buildRouter assembles the LLM routing layer. A config with no providers
// yields a nil router and a rules-only pipeline.
func buildRouter(cfg *config.Config, limiter *ratelimit.Limiter) (*ai.Router, error) {
	if len(cfg.Providers.Compat) == 0 && len(cfg.Providers.OpenAI) == 0 {
		return nil, nil
	}

	opts := []ai.RouterOption{
		ai.WithCostTable(cfg.CostTable()),
		ai.WithRateLimit(limiter, cfg.Pipeline.ProviderCallsPerMinute, time.Minute),
	}

	for _, p := range cfg.Providers.Compat {
		backend, err := compat.New(&compat.Config{
			Name:  p.Name,
			Host:  p.Host,
			Model: p.Model,
			Token: p.Token,
		})
		if err != nil {
			return nil, fmt.Errorf("provider %s: %w", p.Name, err)
		}
		opts = append(opts, ai.WithBackend(backend))
	}

	for _, p := range cfg.Providers.OpenAI {
		backend, err := openai.New(&openai.Config{
			Name:   p.Name,
			APIKey: p.APIKey,
			Model:  p.Model,
		})
		if err != nil {
			return nil, fmt.Errorf("provider %s: %w", p.Name, err)
		}
		opts = append(opts, ai.WithBackend(backend))
	}

	for task, route := range cfg.Providers.Routes {
		opts = append(opts, ai.WithRoute(ai.TaskType(task), route.Primary, route.Fallback))
	}

	return ai.NewRouter(opts...)
}

// buildEnricher assembles the staged enrichment pipeline. LLM-backed stages
// are only wired when a router exists.
func buildEnricher(cfg *config.Config, router *ai.Router) (*enrich.Pipeline, error) {
	opts := []enrich.Option{
		enrich.WithStage(enrich.NewBaseExtraction()),
	}

	if router != nil {
		client := &http.Client{Timeout: 30 * time.Second}

		crawl, err := enrich.NewDeepCrawl(router, client, cfg.Pipeline.CrawlBudget)
		if err != nil {
			return nil, err
		}
		opts = append(opts, enrich.WithStage(crawl))

		if cfg.Pipeline.SearchEndpoint != "" {
			search, err := enrich.NewSearchEnrichment(router, client,
				cfg.Pipeline.SearchEndpoint, cfg.Pipeline.SearchQueriesPerHour)
			if err != nil {
				return nil, err
			}
			opts = append(opts, enrich.WithStage(search))
		}
	}

	return enrich.NewPipeline(opts...)
}

// seedSources registers configured sources that the database doesn't know
// yet. Existing sources keep their accumulated health state.
func seedSources(ctx context.Context, p *pipeline) error {
	declared, err := p.cfg.SourceList()
	if err != nil {
		return err
	}

	for _, source := range declared {
		_, getErr := p.sources.GetSource(ctx, source.ID)
		if getErr == nil {
			continue
		}
		if !errors.Is(getErr, storage.ErrNotFound) {
			return getErr
		}
		if putErr := p.sources.PutSource(ctx, source); putErr != nil {
			return putErr
		}
		slog.Info("registered source", "id", source.ID, "protocol", source.Protocol.String())
	}
	return nil
}

func runCommand(c *cli.Context) error {
	p, err := buildPipeline(c)
	if err != nil {
		return err
	}
	defer p.close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := seedSources(ctx, p); err != nil {
		return fmt.Errorf("failed to seed sources: %w", err)
	}
	if err := p.scheduler.Load(ctx); err != nil {
		return fmt.Errorf("failed to load scheduler: %w", err)
	}

	slog.Info("collection loop starting", "sources", p.scheduler.Len())

	if err := p.coordinator.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	printUsage(p.router)
	return nil
}

func onceCommand(c *cli.Context) error {
	p, err := buildPipeline(c)
	if err != nil {
		return err
	}
	defer p.close()

	ctx := context.Background()
	if err := seedSources(ctx, p); err != nil {
		return fmt.Errorf("failed to seed sources: %w", err)
	}
	if err := p.scheduler.Load(ctx); err != nil {
		return fmt.Errorf("failed to load scheduler: %w", err)
	}

	events, err := p.coordinator.RunOnce(ctx)
	if err != nil {
		return err
	}

	for _, event := range events {
		printEvent(event)
	}
	printUsage(p.router)
	return nil
}

func submitCommand(c *cli.Context) error {
	p, err := buildPipeline(c)
	if err != nil {
		return err
	}
	defer p.close()

	protocol := core.ProtocolAdminURL
	if c.Bool("user") {
		protocol = core.ProtocolUserSubmission
	}

	source := &core.Source{
		ID:             "submission-" + fmt.Sprintf("%d", time.Now().UnixMilli()),
		Protocol:       protocol,
		Endpoint:       c.String("url"),
		DomainKeywords: c.StringSlice("domain-keyword"),
		GeoKeywords:    c.StringSlice("geo-keyword"),
	}

	event, err := p.coordinator.Submit(context.Background(), source)
	if err != nil {
		return fmt.Errorf("submission failed: %w", err)
	}

	printEvent(event)
	printUsage(p.router)
	return nil
}

func sourcesListCommand(c *cli.Context) error {
	p, err := buildPipeline(c)
	if err != nil {
		return err
	}
	defer p.close()

	sources, err := p.sources.ListSources(context.Background())
	if err != nil {
		return err
	}

	if len(sources) == 0 {
		fmt.Println("no sources registered")
		return nil
	}

	for _, s := range sources {
		state := "active"
		if s.Suspended {
			state = "suspended"
		}
		fmt.Printf("%s  %s  %s  priority=%.2f  interval=%s  ok=%d fail=%d streak=%d\n",
			s.ID, s.Protocol.String(), state,
			s.Priority, s.CurrentInterval,
			s.SuccessCount, s.FailureCount, s.ConsecutiveFailures)
	}
	return nil
}

func sourcesAddCommand(c *cli.Context) error {
	p, err := buildPipeline(c)
	if err != nil {
		return err
	}
	defer p.close()

	protocol, err := core.ParseProtocol(c.String("protocol"))
	if err != nil {
		return err
	}
	if protocol.Submission() {
		return fmt.Errorf("%w: submissions are one-shot, use the submit command", core.ErrInvalidProtocol)
	}

	source := &core.Source{
		ID:             c.String("id"),
		Protocol:       protocol,
		Endpoint:       c.String("endpoint"),
		DomainKeywords: c.StringSlice("domain-keyword"),
		GeoKeywords:    c.StringSlice("geo-keyword"),
		BaseInterval:   c.Duration("interval"),
	}
	if err := core.ValidateSource(source); err != nil {
		return err
	}

	if err := p.sources.PutSource(context.Background(), source); err != nil {
		return err
	}
	fmt.Printf("registered %s (%s)\n", source.ID, source.Protocol.String())
	return nil
}

func sourcesReactivateCommand(c *cli.Context) error {
	p, err := buildPipeline(c)
	if err != nil {
		return err
	}
	defer p.close()

	ctx := context.Background()
	if err := p.scheduler.Load(ctx); err != nil {
		return err
	}

	source, err := p.scheduler.Reactivate(ctx, c.String("id"))
	if err != nil {
		return err
	}
	fmt.Printf("reactivated %s, next interval %s\n", source.ID, source.CurrentInterval)
	return nil
}

func statsCommand(c *cli.Context) error {
	p, err := buildPipeline(c)
	if err != nil {
		return err
	}
	defer p.close()

	ctx := context.Background()
	sources, err := p.sources.ListSources(ctx)
	if err != nil {
		return err
	}
	records, err := p.records.ListRecords(ctx, 0)
	if err != nil {
		return err
	}

	var suspended int
	var successes, failures int64
	for _, s := range sources {
		if s.Suspended {
			suspended++
		}
		successes += s.SuccessCount
		failures += s.FailureCount
	}

	fmt.Printf("sources: %d (%d suspended)\n", len(sources), suspended)
	fmt.Printf("fetches: %d ok, %d failed\n", successes, failures)
	fmt.Printf("records: %d stored\n", len(records))

	var meanConfidence float64
	for _, r := range records {
		meanConfidence += r.Confidence
	}
	if len(records) > 0 {
		fmt.Printf("mean confidence: %.2f\n", meanConfidence/float64(len(records)))
	}
	printUsage(p.router)
	return nil
}

func reenrichCommand(c *cli.Context) error {
	p, err := buildPipeline(c)
	if err != nil {
		return err
	}
	defer p.close()

	backfillConfig := backfill.DefaultConfig()
	backfillConfig.BatchSize = c.Int("batch-size")
	backfillConfig.ConfidenceCeiling = c.Float64("ceiling")
	if backfillConfig.BatchSize <= 0 {
		return fmt.Errorf("batch-size must be greater than 0")
	}

	runner := backfill.NewReenricher(p.records, p.enricher, backfillConfig, os.Stderr)
	result, err := runner.Run(context.Background())
	if err != nil {
		return err
	}

	fmt.Printf("examined=%d updated=%d unchanged=%d\n", result.Examined, result.Updated, result.Unchanged)
	printUsage(p.router)
	return nil
}

func recordsCommand(c *cli.Context) error {
	p, err := buildPipeline(c)
	if err != nil {
		return err
	}
	defer p.close()

	records, err := p.records.ListRecords(context.Background(), c.Int("limit"))
	if err != nil {
		return err
	}

	if len(records) == 0 {
		fmt.Println("no records stored")
		return nil
	}

	for _, r := range records {
		fmt.Printf("%s  score=%.2f confidence=%.2f  %s\n", r.ContentHash, r.RelevanceScore, r.Confidence, r.Title)
		for name, fv := range r.Fields {
			fmt.Printf("    %s: %s (%.1f)\n", name, fv.Value, fv.Confidence)
		}
	}
	return nil
}

func printEvent(event *core.PipelineEvent) {
	fmt.Printf("%s  %s  found=%d accepted=%d duration=%s\n",
		event.SourceID, event.Status, event.ItemsFound, event.ItemsAccepted, event.Duration.Round(time.Millisecond))
	for reason, count := range event.Dropped {
		fmt.Printf("    dropped %s: %d\n", reason, count)
	}
	for _, msg := range event.Errors {
		fmt.Printf("    error: %s\n", msg)
	}
}

func printUsage(router *ai.Router) {
	if router == nil {
		return
	}
	for _, stats := range router.UsageSnapshot() {
		fmt.Fprintf(os.Stderr, "provider %s: requests=%d ok=%d fail=%d tokens=%d/%d cost=$%.4f latency=%.0fms\n",
			stats.Provider, stats.TotalRequests, stats.Successes, stats.Failures,
			stats.TokensIn, stats.TokensOut, stats.CostEstimate, stats.RollingLatencyMs)
	}
}

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
