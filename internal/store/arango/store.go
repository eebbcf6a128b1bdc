package arango

import (
	"context"
	"encoding/json"
	"fmt"

	driver "github.com/arangodb/go-driver"

	"github.com/agenthands/reviewgraph/internal/config"
	"github.com/agenthands/reviewgraph/internal/core/model"
	"github.com/agenthands/reviewgraph/internal/logger"
	"github.com/agenthands/reviewgraph/internal/store"
)

// Store keeps the review graph in ArangoDB document and edge collections.
type Store struct {
	db    backend
	graph string
	log   *logger.Logger
}

// Connect opens the configured database, creating it when missing.
func Connect(ctx context.Context, cfg config.ArangoConfig, log *logger.Logger) (*Store, error) {
	db, err := openDatabase(ctx, cfg)
	if err != nil {
		return nil, err
	}
	log.Info("connected to arango", "url", cfg.URL, "database", cfg.Database)
	return newStore(&dbBackend{db: db}, cfg.Graph, log), nil
}

func newStore(b backend, graph string, log *logger.Logger) *Store {
	if graph == "" {
		graph = "AmazonReviews"
	}
	return &Store{db: b, graph: graph, log: log}
}

func (s *Store) QueryLanguage() string { return "AQL" }

func (s *Store) Close(ctx context.Context) error { return nil }

// EnsureSchema creates collections, indexes and the named graph if they are missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	for _, c := range model.NodeCollections {
		if err := s.db.ensureCollection(ctx, c.Name, false); err != nil {
			return fmt.Errorf("failed to create collection %s: %w", c.Name, err)
		}
	}
	var defs []driver.EdgeDefinition
	for _, c := range model.EdgeCollections {
		if err := s.db.ensureCollection(ctx, c.Name, true); err != nil {
			return fmt.Errorf("failed to create edge collection %s: %w", c.Name, err)
		}
		defs = append(defs, driver.EdgeDefinition{Collection: c.Name, From: []string{c.From}, To: []string{c.To}})
	}
	for _, c := range model.NodeCollections {
		for _, fields := range persistentIndexes[c.Name] {
			if err := s.db.ensurePersistentIndex(ctx, c.Name, fields); err != nil {
				s.log.Warn("failed to create index", "collection", c.Name, "fields", fields, "error", err)
			}
		}
	}
	if err := s.db.ensureGraph(ctx, s.graph, defs); err != nil {
		return fmt.Errorf("failed to create graph %s: %w", s.graph, err)
	}
	return nil
}

func (s *Store) Import(ctx context.Context, c model.Collection, docs []model.Document) (store.ImportResult, error) {
	if len(docs) == 0 {
		return store.ImportResult{}, nil
	}
	stats, err := s.db.importDocuments(ctx, c.Name, docs)
	if err != nil {
		return store.ImportResult{}, fmt.Errorf("failed to import %s: %w", c.Name, err)
	}
	return store.ImportResult{Created: stats.Created, Updated: stats.Updated, Errors: stats.Errors}, nil
}

func (s *Store) ExistingKeys(ctx context.Context, c model.Collection, keys []string) (map[string]bool, error) {
	out := make(map[string]bool, len(keys))
	if len(keys) == 0 {
		return out, nil
	}
	var found []string
	if err := s.queryInto(ctx, existingKeysQuery, map[string]interface{}{"@coll": c.Name, "keys": keys}, &found); err != nil {
		return nil, fmt.Errorf("failed to look up %s keys: %w", c.Name, err)
	}
	for _, k := range found {
		out[k] = true
	}
	return out, nil
}

func (s *Store) Count(ctx context.Context, c model.Collection) (int64, error) {
	var counts []int64
	if err := s.queryInto(ctx, countQuery, map[string]interface{}{"@coll": c.Name}, &counts); err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", c.Name, err)
	}
	if len(counts) == 0 {
		return 0, nil
	}
	return counts[0], nil
}

func (s *Store) MissingEmbeddings(ctx context.Context, c model.Collection, category string, exclude []string, limit int) ([]store.EmbeddingCandidate, error) {
	if exclude == nil {
		exclude = []string{}
	}
	bind := map[string]interface{}{"category": category, "exclude": exclude, "limit": limit}

	var out []store.EmbeddingCandidate
	switch c.Name {
	case model.Products.Name:
		var products []model.Product
		if err := s.queryInto(ctx, missingProductEmbeddingsQuery, bind, &products); err != nil {
			return nil, fmt.Errorf("failed to find products without embeddings: %w", err)
		}
		for _, p := range products {
			out = append(out, store.EmbeddingCandidate{Key: p.Key, Text: p.EmbeddingText()})
		}
	case model.Reviews.Name:
		var reviews []model.Review
		if err := s.queryInto(ctx, missingReviewEmbeddingsQuery, bind, &reviews); err != nil {
			return nil, fmt.Errorf("failed to find reviews without embeddings: %w", err)
		}
		for _, r := range reviews {
			out = append(out, store.EmbeddingCandidate{Key: r.Key, Text: r.EmbeddingText()})
		}
	default:
		return nil, fmt.Errorf("collection %s has no embeddings", c.Name)
	}
	return out, nil
}

func (s *Store) SetEmbeddings(ctx context.Context, c model.Collection, vectors map[string][]float32) error {
	if len(vectors) == 0 {
		return nil
	}
	rows := make([]map[string]interface{}, 0, len(vectors))
	for k, v := range vectors {
		rows = append(rows, map[string]interface{}{"key": k, "embedding": v})
	}
	if _, err := s.db.query(ctx, setEmbeddingsQuery, map[string]interface{}{"@coll": c.Name, "rows": rows}); err != nil {
		return fmt.Errorf("failed to store %s embeddings: %w", c.Name, err)
	}
	return nil
}

// queryInto runs aql and decodes every result row into the slice pointed to by out.
func (s *Store) queryInto(ctx context.Context, aql string, bind map[string]interface{}, out interface{}) error {
	docs, err := s.db.query(ctx, aql, bind)
	if err != nil {
		return err
	}
	data, err := json.Marshal(docs)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}
