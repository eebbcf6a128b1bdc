package enrich

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/agenthands/reviewgraph/internal/core/model"
	"github.com/agenthands/reviewgraph/internal/llm"
	"github.com/agenthands/reviewgraph/internal/logger"
	"github.com/agenthands/reviewgraph/internal/store"
)

const DefaultBatchSize = 25

type Options struct {
	BatchSize int
	Delay     time.Duration
	MaxTokens int
}

type Result struct {
	Embedded int
	Failed   int
	Skipped  int
	Batches  int
}

// Enricher backfills embeddings for documents that do not have one yet.
type Enricher struct {
	store     store.EmbeddingStore
	embedder  llm.BatchEmbedder
	batchSize int
	limiter   *rate.Limiter
	truncate  *Truncator
	log       *logger.Logger
}

func New(st store.EmbeddingStore, embedder llm.BatchEmbedder, opts Options, log *logger.Logger) *Enricher {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	limit := rate.Inf
	if opts.Delay > 0 {
		limit = rate.Every(opts.Delay)
	}
	return &Enricher{
		store:     st,
		embedder:  embedder,
		batchSize: opts.BatchSize,
		limiter:   rate.NewLimiter(limit, 1),
		truncate:  NewTruncator(opts.MaxTokens, log),
		log:       log,
	}
}

// Run embeds every document of collection lacking an embedding, optionally limited
// to one main category. Failed batches are logged and excluded for the rest of the
// run; they are not retried.
func (e *Enricher) Run(ctx context.Context, collection model.Collection, category string) Result {
	var res Result
	var exclude []string
	log := e.log.With("collection", collection.Name, "category", category)

	for {
		candidates, err := e.store.MissingEmbeddings(ctx, collection, category, exclude, e.batchSize)
		if err != nil {
			log.Error("failed to fetch documents without embeddings", "error", err)
			break
		}
		if len(candidates) == 0 {
			break
		}
		if err := e.limiter.Wait(ctx); err != nil {
			log.Warn("enrichment stopped", "error", err)
			break
		}
		res.Batches++

		keys := make([]string, 0, len(candidates))
		texts := make([]string, 0, len(candidates))
		for _, c := range candidates {
			if c.Text == "" {
				res.Skipped++
				exclude = append(exclude, c.Key)
				continue
			}
			keys = append(keys, c.Key)
			texts = append(texts, e.truncate.Truncate(c.Text))
		}
		if len(keys) == 0 {
			continue
		}

		vectors, err := e.embedder.EmbedBatch(ctx, texts)
		if err == nil && len(vectors) != len(keys) {
			err = fmt.Errorf("embedding count mismatch: sent %d texts, got %d vectors", len(keys), len(vectors))
		}
		if err != nil {
			log.Error("embedding batch failed", "size", len(keys), "error", err)
			res.Failed += len(keys)
			exclude = append(exclude, keys...)
			continue
		}

		byKey := make(map[string][]float32, len(keys))
		for i, k := range keys {
			byKey[k] = vectors[i]
		}
		if err := e.store.SetEmbeddings(ctx, collection, byKey); err != nil {
			log.Error("failed to store embeddings", "size", len(keys), "error", err)
			res.Failed += len(keys)
			exclude = append(exclude, keys...)
			continue
		}
		res.Embedded += len(keys)
		log.Debug("embedded batch", "size", len(keys), "total", res.Embedded)
	}

	log.Info("enrichment finished", "embedded", res.Embedded, "failed", res.Failed, "skipped", res.Skipped, "batches", res.Batches)
	return res
}
