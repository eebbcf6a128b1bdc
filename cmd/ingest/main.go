package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/agenthands/reviewgraph/internal/app"
	"github.com/agenthands/reviewgraph/internal/config"
	"github.com/agenthands/reviewgraph/internal/core/model"
	"github.com/agenthands/reviewgraph/internal/fetch"
	"github.com/agenthands/reviewgraph/internal/llm"
	"github.com/agenthands/reviewgraph/internal/logger"
	"github.com/agenthands/reviewgraph/internal/store"
	"github.com/agenthands/reviewgraph/internal/tools"
)

const usage = `usage: ingest [-config path] <command> [flags]

commands:
  discover   scrape the dataset index into the manifest file
  fetch      download and extract the files of the manifest categories
  ingest     fetch, map, load and embed the manifest categories
  enrich     embed stored products and reviews that lack an embedding
  ask        answer a question with the keyword router
  stats      print node counts
`

func main() {
	cfgPath := flag.String("config", "config/config.toml", "path to the TOML config file")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := app.LoadConfig(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	log, err := logger.New(cfg.Log.Mode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd, args := flag.Arg(0), flag.Args()[1:]
	switch cmd {
	case "discover":
		err = discover(ctx, cfg, log)
	case "fetch":
		err = fetchFiles(ctx, cfg, log, args)
	case "ingest":
		err = ingest(ctx, cfg, log, args)
	case "enrich":
		err = enrichAll(ctx, cfg, log, args)
	case "ask":
		err = ask(ctx, cfg, log, args)
	case "stats":
		err = stats(ctx, cfg, log)
	default:
		flag.Usage()
		os.Exit(2)
	}
	if err != nil {
		log.Error("command failed", "command", cmd, "error", err)
		os.Exit(1)
	}
}

func discover(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
	f := app.NewFetcher(cfg.Data, log)
	manifest, err := f.DiscoverManifest(ctx, cfg.Data.IndexURL)
	if err != nil {
		return err
	}
	if err := manifest.Write(cfg.Data.Manifest); err != nil {
		return err
	}
	log.Info("manifest written", "path", cfg.Data.Manifest, "categories", len(manifest))
	return nil
}

// manifestFor reads the manifest, keeping only the named categories when any are given.
func manifestFor(cfg *config.Config, fs *flag.FlagSet) (fetch.Manifest, error) {
	manifest, err := fetch.ParseManifest(cfg.Data.Manifest)
	if err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		want := make(map[string]bool)
		for _, c := range fs.Args() {
			want[c] = true
		}
		var picked fetch.Manifest
		for _, e := range manifest {
			if want[e.Category] {
				picked = append(picked, e)
			}
		}
		manifest = picked
	}
	if len(manifest) == 0 {
		return nil, errors.New("no categories to process")
	}
	return manifest, nil
}

func fetchFiles(ctx context.Context, cfg *config.Config, log *logger.Logger, args []string) error {
	fs := flag.NewFlagSet("fetch", flag.ExitOnError)
	limit := fs.Int("limit", cfg.Ingest.CategoryLimit, "process at most this many categories (0 = all)")
	_ = fs.Parse(args)

	manifest, err := manifestFor(cfg, fs)
	if err != nil {
		return err
	}
	f := app.NewFetcher(cfg.Data, log)
	for _, e := range manifest.Limit(*limit) {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		files := f.FetchCategory(ctx, e.Category, e.URL)
		log.Info("fetched", "category", e.Category, "reviews", files.Reviews, "metadata", files.Metadata)
	}
	return nil
}

func ingest(ctx context.Context, cfg *config.Config, log *logger.Logger, args []string) error {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	limit := fs.Int("limit", cfg.Ingest.CategoryLimit, "process at most this many categories (0 = all)")
	noEmbed := fs.Bool("no-embed", false, "skip the embedding step")
	_ = fs.Parse(args)

	manifest, err := manifestFor(cfg, fs)
	if err != nil {
		return err
	}

	st, err := app.OpenStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer st.Close(ctx)
	if err := st.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}

	embedCfg := cfg.Embedding
	if *noEmbed {
		embedCfg.Enabled = false
	}
	var embedder llm.BatchEmbedder
	if embedCfg.Enabled {
		if _, embedder, err = llm.NewClient(ctx, cfg.LLM, log); err != nil {
			return err
		}
		if embedder == nil {
			log.Warn("provider has no embeddings, skipping enrichment", "provider", cfg.LLM.Provider)
		}
	}

	p := app.NewPipeline(cfg, st, app.NewFetcher(cfg.Data, log), app.NewEnricher(st, embedder, embedCfg, log), log)
	reports := p.ProcessAll(ctx, manifest.Limit(*limit))

	skipped := 0
	for _, r := range reports {
		if r.Skipped {
			skipped++
		}
	}
	log.Info("ingestion finished", "categories", len(reports), "skipped", skipped)
	return printStats(ctx, st)
}

func enrichAll(ctx context.Context, cfg *config.Config, log *logger.Logger, args []string) error {
	fs := flag.NewFlagSet("enrich", flag.ExitOnError)
	category := fs.String("category", "", "only documents of this main category")
	_ = fs.Parse(args)

	st, err := app.OpenStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer st.Close(ctx)

	_, embedder, err := llm.NewClient(ctx, cfg.LLM, log)
	if err != nil {
		return err
	}
	embedCfg := cfg.Embedding
	embedCfg.Enabled = true
	enricher := app.NewEnricher(st, embedder, embedCfg, log)
	if enricher == nil {
		return fmt.Errorf("provider %s cannot embed", cfg.LLM.Provider)
	}
	for _, c := range []model.Collection{model.Products, model.Reviews} {
		res := enricher.Run(ctx, c, *category)
		fmt.Printf("%s: embedded %d, failed %d, skipped %d\n", c.Name, res.Embedded, res.Failed, res.Skipped)
	}
	return nil
}

func ask(ctx context.Context, cfg *config.Config, log *logger.Logger, args []string) error {
	question := strings.TrimSpace(strings.Join(args, " "))
	if question == "" {
		return errors.New("ask needs a question")
	}

	st, err := app.OpenStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer st.Close(ctx)

	llmClient, embedder, err := llm.NewClient(ctx, cfg.LLM, log)
	if err != nil {
		return err
	}
	registry, err := app.NewRegistry(cfg, st, llmClient, embedder, log)
	if err != nil {
		return err
	}
	router := tools.NewRouter(registry)
	log.Debug("routing question", "tool", router.Route(question))

	answer, err := router.Answer(ctx, question)
	if err != nil {
		return err
	}
	fmt.Println(answer)
	return nil
}

func stats(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
	st, err := app.OpenStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer st.Close(ctx)
	return printStats(ctx, st)
}

func printStats(ctx context.Context, st store.Store) error {
	for _, c := range append(append([]model.Collection{}, model.NodeCollections...), model.EdgeCollections...) {
		n, err := st.Count(ctx, c)
		if err != nil {
			return fmt.Errorf("failed to count %s: %w", c.Name, err)
		}
		fmt.Printf("%-18s %d\n", c.Name, n)
	}
	return nil
}
