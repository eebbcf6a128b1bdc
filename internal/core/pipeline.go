package core

import (
	"context"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/agenthands/reviewgraph/internal/core/enrich"
	"github.com/agenthands/reviewgraph/internal/core/loader"
	"github.com/agenthands/reviewgraph/internal/core/mapper"
	"github.com/agenthands/reviewgraph/internal/core/model"
	"github.com/agenthands/reviewgraph/internal/fetch"
	"github.com/agenthands/reviewgraph/internal/logger"
	"github.com/agenthands/reviewgraph/internal/records"
	"github.com/agenthands/reviewgraph/internal/store"
)

// CategoryFetcher makes the raw files of a category available locally.
type CategoryFetcher interface {
	FetchCategory(ctx context.Context, category, reviewURL string) fetch.Files
}

type Options struct {
	ReviewSampleSize int
	MetaSampleSize   int
	CategoryDelay    time.Duration
}

// Report summarizes one category run.
type Report struct {
	RunID           string
	Category        string
	Skipped         bool
	Reviews         int
	Products        int
	Users           int
	Categories      int
	ProductsSkipped int
	ReviewsSkipped  int
	Malformed       int
	Written         map[string]int64
	Edges           int
	EdgesDropped    map[string]int
	EdgesDuplicate  map[string]int
	Embedded        int
}

// Pipeline runs fetch, map, load and enrich for each category, one at a time.
type Pipeline struct {
	store    store.Store
	fetcher  CategoryFetcher
	records  *records.Loader
	mapper   *mapper.Mapper
	loader   *loader.Loader
	enricher *enrich.Enricher
	opts     Options
	log      *logger.Logger
}

// NewPipeline wires the stages. enricher may be nil, which skips embedding.
func NewPipeline(st store.Store, fetcher CategoryFetcher, enricher *enrich.Enricher, batchSize int, opts Options, log *logger.Logger) *Pipeline {
	return &Pipeline{
		store:    st,
		fetcher:  fetcher,
		records:  records.NewLoader(log),
		mapper:   mapper.New(st, log),
		loader:   loader.New(st, batchSize, log),
		enricher: enricher,
		opts:     opts,
		log:      log,
	}
}

func (p *Pipeline) EnsureSchema(ctx context.Context) error {
	return p.store.EnsureSchema(ctx)
}

// ProcessCategory ingests one category. Failures inside a stage are logged and
// reflected in the report; the category is skipped only when it has no reviews.
func (p *Pipeline) ProcessCategory(ctx context.Context, entry fetch.Entry) Report {
	rep := Report{
		RunID:          uuid.New().String(),
		Category:       entry.Category,
		Written:        make(map[string]int64),
		EdgesDropped:   map[string]int{},
		EdgesDuplicate: map[string]int{},
	}
	log := p.log.With("category", entry.Category, "run_id", rep.RunID)
	log.Info("processing category")

	files := p.fetcher.FetchCategory(ctx, entry.Category, entry.URL)
	if files.Reviews == "" {
		log.Warn("no review file, skipping category")
		rep.Skipped = true
		return rep
	}

	reviewRecs, stats, err := p.records.Load(files.Reviews, p.opts.ReviewSampleSize)
	if err != nil {
		log.Error("failed to load reviews", "error", err)
	}
	rep.Malformed += stats.Malformed
	if len(reviewRecs) == 0 {
		log.Warn("no reviews loaded, skipping category")
		rep.Skipped = true
		return rep
	}

	var metaRecs []records.Record
	if files.Metadata != "" {
		var metaStats records.Stats
		metaRecs, metaStats, err = p.records.Load(files.Metadata, p.opts.MetaSampleSize)
		if err != nil {
			log.Error("failed to load metadata", "error", err)
		}
		rep.Malformed += metaStats.Malformed
	}

	nodes := p.mapper.MapNodes(metaRecs, reviewRecs)
	rep.Products, rep.Reviews = len(nodes.Products), len(nodes.Reviews)
	rep.Users, rep.Categories = len(nodes.Users), len(nodes.Categories)
	rep.ProductsSkipped, rep.ReviewsSkipped = nodes.ProductsSkipped, nodes.ReviewsSkipped

	for _, batch := range []struct {
		coll model.Collection
		docs []model.Document
	}{
		{model.Products, model.Documents(nodes.Products)},
		{model.Reviews, model.Documents(nodes.Reviews)},
		{model.Users, model.Documents(nodes.Users)},
		{model.Categories, model.Documents(nodes.Categories)},
	} {
		rep.Written[batch.coll.Name] = p.loader.Load(ctx, batch.coll, batch.docs).Written
	}

	edges := p.mapper.MapEdges(ctx, nodes.Products, nodes.Reviews)
	rep.Edges = edges.Total()
	for name, n := range edges.Dropped {
		rep.EdgesDropped[name] = n
	}
	for name, n := range edges.Duplicates {
		rep.EdgesDuplicate[name] = n
	}
	for _, c := range model.EdgeCollections {
		rep.Written[c.Name] = p.loader.Load(ctx, c, model.Documents(edges.ByKind[c.Name])).Written
	}

	if p.enricher != nil {
		for _, cat := range mainCategories(nodes.Products) {
			rep.Embedded += p.enricher.Run(ctx, model.Products, cat).Embedded
			rep.Embedded += p.enricher.Run(ctx, model.Reviews, cat).Embedded
		}
		// products without a main category and their reviews
		rep.Embedded += p.enricher.Run(ctx, model.Products, "").Embedded
		rep.Embedded += p.enricher.Run(ctx, model.Reviews, "").Embedded
	}

	log.Info("category processed",
		"products", rep.Products, "reviews", rep.Reviews, "users", rep.Users,
		"categories", rep.Categories, "edges", rep.Edges, "embedded", rep.Embedded)
	return rep
}

// ProcessAll runs the manifest in order, pausing between categories.
func (p *Pipeline) ProcessAll(ctx context.Context, manifest fetch.Manifest) []Report {
	limit := rate.Inf
	if p.opts.CategoryDelay > 0 {
		limit = rate.Every(p.opts.CategoryDelay)
	}
	pace := rate.NewLimiter(limit, 1)

	reports := make([]Report, 0, len(manifest))
	for _, entry := range manifest {
		if err := pace.Wait(ctx); err != nil {
			p.log.Warn("run stopped", "error", err, "processed", len(reports))
			break
		}
		reports = append(reports, p.ProcessCategory(ctx, entry))
	}
	return reports
}

// mainCategories lists the distinct main categories of a batch in first-seen order.
func mainCategories(products []model.Product) []string {
	seen := make(map[string]bool)
	var out []string
	for _, p := range products {
		if p.MainCategory == "" || seen[p.MainCategory] {
			continue
		}
		seen[p.MainCategory] = true
		out = append(out, p.MainCategory)
	}
	return out
}
