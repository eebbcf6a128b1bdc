// Package app wires configured components for the binaries.
package app

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"

	"github.com/agenthands/reviewgraph/internal/config"
	"github.com/agenthands/reviewgraph/internal/core"
	"github.com/agenthands/reviewgraph/internal/core/community"
	"github.com/agenthands/reviewgraph/internal/core/enrich"
	"github.com/agenthands/reviewgraph/internal/driver"
	"github.com/agenthands/reviewgraph/internal/fetch"
	"github.com/agenthands/reviewgraph/internal/llm"
	"github.com/agenthands/reviewgraph/internal/logger"
	"github.com/agenthands/reviewgraph/internal/memory"
	"github.com/agenthands/reviewgraph/internal/store"
	"github.com/agenthands/reviewgraph/internal/store/arango"
	"github.com/agenthands/reviewgraph/internal/store/memgraph"
	"github.com/agenthands/reviewgraph/internal/tools"
)

// LoadConfig reads .env, the TOML file at path when present, then environment overrides.
func LoadConfig(path string) (*config.Config, error) {
	_ = godotenv.Load()

	cfg, err := config.LoadOrDefault(path)
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// OpenStore connects to the configured graph backend.
func OpenStore(ctx context.Context, cfg *config.Config, log *logger.Logger) (store.Store, error) {
	switch strings.ToLower(cfg.Graph.Backend) {
	case "memgraph":
		d, err := driver.NewMemgraphDriver(ctx, cfg.Memgraph.URI, cfg.Memgraph.User, cfg.Memgraph.Password, log)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to memgraph: %w", err)
		}
		return memgraph.New(d, log), nil
	case "arango":
		st, err := arango.Connect(ctx, cfg.Arango, log)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to arangodb: %w", err)
		}
		return st, nil
	default:
		return nil, fmt.Errorf("%w: %q", config.ErrUnknownBackend, cfg.Graph.Backend)
	}
}

// OpenMemory returns the configured session store. Redis is pinged up front.
func OpenMemory(ctx context.Context, cfg config.MemoryConfig, log *logger.Logger) (memory.Store, error) {
	if strings.ToLower(cfg.Backend) != "redis" {
		return memory.NewInMemory(cfg.Limit), nil
	}
	client := redis.NewClient(&redis.Options{Addr: cfg.RedisURL, Password: cfg.Password, DB: cfg.DB})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.RedisURL, err)
	}
	log.Info("session memory in redis", "addr", cfg.RedisURL)
	return memory.NewRedis(client,
		memory.WithTTL(cfg.TTL.Duration),
		memory.WithKeyPrefix(cfg.KeyPrefix),
		memory.WithLimit(cfg.Limit),
	), nil
}

// NewEnricher returns nil when embedding is disabled or the provider cannot embed.
func NewEnricher(st store.EmbeddingStore, embedder llm.BatchEmbedder, cfg config.EmbeddingConfig, log *logger.Logger) *enrich.Enricher {
	if !cfg.Enabled || embedder == nil {
		return nil
	}
	return enrich.New(st, embedder, enrich.Options{
		BatchSize: cfg.BatchSize,
		Delay:     cfg.Delay.Duration,
		MaxTokens: cfg.MaxTokens,
	}, log)
}

func NewFetcher(cfg config.DataConfig, log *logger.Logger) *fetch.Fetcher {
	return fetch.NewFetcher(&http.Client{Timeout: 30 * time.Minute}, cfg.Dir, cfg.MetaURLBase, log)
}

func NewPipeline(cfg *config.Config, st store.Store, fetcher core.CategoryFetcher, enricher *enrich.Enricher, log *logger.Logger) *core.Pipeline {
	return core.NewPipeline(st, fetcher, enricher, cfg.Ingest.BatchSize, core.Options{
		ReviewSampleSize: cfg.Data.ReviewSampleSize,
		MetaSampleSize:   cfg.Data.MetaSampleSize,
		CategoryDelay:    cfg.Ingest.CategoryDelay.Duration,
	}, log)
}

// NewRegistry builds the agent tools with the configured community algorithm.
func NewRegistry(cfg *config.Config, st store.Store, llmClient llm.LLMClient, embedder llm.EmbedderClient, log *logger.Logger) (*tools.Registry, error) {
	detector, err := community.ByName(cfg.Community.Algorithm)
	if err != nil {
		return nil, err
	}
	return tools.NewDefaultRegistry(tools.Deps{
		Store:    st,
		LLM:      llmClient,
		Embedder: embedder,
		Detector: detector,
		Query:    cfg.Query,
		Prompts:  cfg.Translation,
		Log:      log,
	}), nil
}
