package main

import (
	"context"
	"flag"
	"os"

	"github.com/agenthands/reviewgraph/internal/agent"
	"github.com/agenthands/reviewgraph/internal/app"
	"github.com/agenthands/reviewgraph/internal/card"
	"github.com/agenthands/reviewgraph/internal/llm"
	"github.com/agenthands/reviewgraph/internal/logger"
	"github.com/agenthands/reviewgraph/internal/server"
)

func main() {
	cfgPath := flag.String("config", envOr("CONFIG_PATH", "config/config.toml"), "path to the TOML config file")
	flag.Parse()

	cfg, err := app.LoadConfig(*cfgPath)
	if err != nil {
		os.Stderr.WriteString("failed to load configuration: " + err.Error() + "\n")
		os.Exit(1)
	}

	log, err := logger.New(cfg.Log.Mode)
	if err != nil {
		os.Stderr.WriteString("failed to create logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer log.Sync()

	ctx := context.Background()

	st, err := app.OpenStore(ctx, cfg, log)
	if err != nil {
		log.Fatal("failed to open graph store", "backend", cfg.Graph.Backend, "error", err)
	}
	defer st.Close(ctx)

	llmClient, embedder, err := llm.NewClient(ctx, cfg.LLM, log)
	if err != nil {
		log.Fatal("failed to initialize llm client", "provider", cfg.LLM.Provider, "error", err)
	}

	mem, err := app.OpenMemory(ctx, cfg.Memory, log)
	if err != nil {
		log.Fatal("failed to open session memory", "error", err)
	}

	registry, err := app.NewRegistry(cfg, st, llmClient, embedder, log)
	if err != nil {
		log.Fatal("failed to build tools", "algorithm", cfg.Community.Algorithm, "error", err)
	}

	caller, ok := llmClient.(llm.ToolCaller)
	if !ok {
		log.Warn("provider has no tool calling, questions are routed by keyword", "provider", cfg.LLM.Provider)
	}
	a := agent.New(caller, registry, mem, agent.Options{
		SystemPrompt: cfg.Agent.SystemPrompt,
		MaxSteps:     cfg.Agent.MaxSteps,
	}, log)

	vision, ok := llmClient.(llm.VisionClient)
	if !ok {
		log.Warn("provider cannot read images, image product cards are disabled", "provider", cfg.LLM.Provider)
	}
	cards := card.NewGenerator(vision, llmClient, embedder, st, cfg.Card, cfg.Query.SimilarityThreshold, log)

	srv := server.NewServer(a, registry, st, log).WithCards(cards, cfg.Card.MaxImageBytes)
	r := srv.SetupRouter()

	log.Info("starting server", "port", cfg.Server.Port, "backend", cfg.Graph.Backend, "tools", len(registry.List()))
	if err := r.Run(":" + cfg.Server.Port); err != nil {
		log.Fatal("server stopped", "error", err)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
