package store

import (
	"context"
	"errors"

	"github.com/agenthands/reviewgraph/internal/core/model"
)

var ErrNotFound = errors.New("not found")

// ImportResult is what a bulk upsert reports.
type ImportResult struct {
	Created int64
	Updated int64
	Errors  int64
}

// Writer upserts documents by key.
type Writer interface {
	Import(ctx context.Context, collection model.Collection, docs []model.Document) (ImportResult, error)
}

// KeyChecker reports which of the given keys exist in a collection.
type KeyChecker interface {
	ExistingKeys(ctx context.Context, collection model.Collection, keys []string) (map[string]bool, error)
}

// EmbeddingCandidate is a document still lacking an embedding.
type EmbeddingCandidate struct {
	Key  string
	Text string
}

type EmbeddingStore interface {
	// MissingEmbeddings returns up to limit documents of collection without an embedding,
	// filtered by main category when category is not empty, skipping keys in exclude.
	MissingEmbeddings(ctx context.Context, collection model.Collection, category string, exclude []string, limit int) ([]EmbeddingCandidate, error)
	SetEmbeddings(ctx context.Context, collection model.Collection, vectors map[string][]float32) error
}

// Reader answers the queries behind the agent tools.
type Reader interface {
	Stats(ctx context.Context) (model.Stats, error)
	ProductByKey(ctx context.Context, key string) (model.Product, error)
	ReviewsForProduct(ctx context.Context, key string, limit int) ([]model.Review, error)
	RatingDistribution(ctx context.Context, key string) ([]model.RatingBucket, error)
	SimilarProducts(ctx context.Context, vector []float32, threshold float64, limit int) ([]model.ScoredProduct, error)
	RelatedProducts(ctx context.Context, key string, limit int) (model.Related, error)
	PopularProducts(ctx context.Context, category string, limit int) ([]model.Product, error)
	BestRatedProducts(ctx context.Context, category string, minReviews, limit int) ([]model.Product, error)
	CoReviewPairs(ctx context.Context, limit int) ([]model.CoReview, error)
}

// QueryRunner executes generated read-only queries.
type QueryRunner interface {
	// QueryLanguage is "AQL" or "Cypher".
	QueryLanguage() string
	Schema(ctx context.Context) (string, error)
	RawQuery(ctx context.Context, query string) ([]map[string]any, error)
}

// Store is a complete graph backend.
type Store interface {
	Writer
	KeyChecker
	EmbeddingStore
	Reader
	QueryRunner
	EnsureSchema(ctx context.Context) error
	Count(ctx context.Context, collection model.Collection) (int64, error)
	Close(ctx context.Context) error
}
