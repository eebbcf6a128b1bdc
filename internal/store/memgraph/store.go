package memgraph

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/agenthands/reviewgraph/internal/core/model"
	"github.com/agenthands/reviewgraph/internal/driver"
	"github.com/agenthands/reviewgraph/internal/logger"
	"github.com/agenthands/reviewgraph/internal/store"
)

// Store keeps the review graph in Memgraph. Document keys live in the "key" property.
type Store struct {
	driver driver.GraphDriver
	log    *logger.Logger
}

func New(d driver.GraphDriver, log *logger.Logger) *Store {
	return &Store{driver: d, log: log}
}

func (s *Store) EnsureSchema(ctx context.Context) error {
	return s.driver.BuildIndices(ctx)
}

func (s *Store) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}

func (s *Store) QueryLanguage() string { return "Cypher" }

func (s *Store) Import(ctx context.Context, c model.Collection, docs []model.Document) (store.ImportResult, error) {
	if len(docs) == 0 {
		return store.ImportResult{}, nil
	}

	rows := make([]map[string]any, 0, len(docs))
	var query string
	if c.Edge {
		from, _ := model.Lookup(c.From)
		to, _ := model.Lookup(c.To)
		query = driver.UpsertEdgesQuery(from.Label, to.Label, c.Label)
		for _, d := range docs {
			e, ok := d.(model.Edge)
			if !ok {
				return store.ImportResult{}, fmt.Errorf("collection %s expects edges, got %T", c.Name, d)
			}
			_, fromKey := model.SplitID(e.From)
			_, toKey := model.SplitID(e.To)
			rows = append(rows, map[string]any{"key": e.Key, "from": fromKey, "to": toKey})
		}
	} else {
		query = driver.UpsertNodesQuery(c.Label)
		for _, d := range docs {
			props, err := toProps(d)
			if err != nil {
				return store.ImportResult{}, err
			}
			rows = append(rows, map[string]any{"key": d.DocKey(), "props": props})
		}
	}

	res, err := s.driver.ExecuteQuery(ctx, query, map[string]any{"rows": rows})
	if err != nil {
		return store.ImportResult{}, fmt.Errorf("failed to import %s: %w", c.Name, err)
	}

	var created, total int64
	if len(res.Records) > 0 {
		created = asInt64(get(res.Records[0], "created"))
		total = asInt64(get(res.Records[0], "total"))
	}
	out := store.ImportResult{Created: created, Updated: total - created}
	// edge rows whose endpoints vanished are not matched and not written
	if missing := int64(len(rows)) - total; missing > 0 {
		out.Errors = missing
	}
	return out, nil
}

func (s *Store) ExistingKeys(ctx context.Context, c model.Collection, keys []string) (map[string]bool, error) {
	out := make(map[string]bool, len(keys))
	if len(keys) == 0 {
		return out, nil
	}
	res, err := s.driver.ExecuteQuery(ctx, driver.ExistingKeysQuery(c.Label), map[string]any{"keys": keys})
	if err != nil {
		return nil, fmt.Errorf("failed to look up %s keys: %w", c.Name, err)
	}
	for _, rec := range res.Records {
		if k, ok := get(rec, "key").(string); ok {
			out[k] = true
		}
	}
	return out, nil
}

func (s *Store) Count(ctx context.Context, c model.Collection) (int64, error) {
	query := driver.CountNodesQuery(c.Label)
	if c.Edge {
		query = driver.CountEdgesQuery(c.Label)
	}
	res, err := s.driver.ExecuteQuery(ctx, query, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", c.Name, err)
	}
	if len(res.Records) == 0 {
		return 0, nil
	}
	return asInt64(get(res.Records[0], "count")), nil
}

func (s *Store) MissingEmbeddings(ctx context.Context, c model.Collection, category string, exclude []string, limit int) ([]store.EmbeddingCandidate, error) {
	var query string
	switch c.Name {
	case model.Products.Name:
		query = driver.MissingProductEmbeddingsQuery
	case model.Reviews.Name:
		query = driver.MissingReviewEmbeddingsQuery
	default:
		return nil, fmt.Errorf("collection %s has no embeddings", c.Name)
	}
	if exclude == nil {
		exclude = []string{}
	}

	res, err := s.driver.ExecuteQuery(ctx, query, map[string]any{
		"category": category,
		"exclude":  exclude,
		"limit":    int64(limit),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to find %s without embeddings: %w", c.Name, err)
	}

	out := make([]store.EmbeddingCandidate, 0, len(res.Records))
	for _, rec := range res.Records {
		key, _ := get(rec, "key").(string)
		var text string
		if c.Name == model.Products.Name {
			text = model.Product{Title: str(get(rec, "title")), FeaturesText: str(get(rec, "features_text")), Description: str(get(rec, "description"))}.EmbeddingText()
		} else {
			text = model.Review{Title: str(get(rec, "title")), Text: str(get(rec, "text"))}.EmbeddingText()
		}
		out = append(out, store.EmbeddingCandidate{Key: key, Text: text})
	}
	return out, nil
}

func (s *Store) SetEmbeddings(ctx context.Context, c model.Collection, vectors map[string][]float32) error {
	if len(vectors) == 0 {
		return nil
	}
	rows := make([]map[string]any, 0, len(vectors))
	for k, v := range vectors {
		rows = append(rows, map[string]any{"key": k, "embedding": toFloat64s(v)})
	}
	if _, err := s.driver.ExecuteQuery(ctx, driver.SetEmbeddingsQuery(c.Label), map[string]any{"rows": rows}); err != nil {
		return fmt.Errorf("failed to store %s embeddings: %w", c.Name, err)
	}
	return nil
}

// toProps flattens a document into node properties keyed by its JSON field names.
func toProps(d model.Document) (map[string]any, error) {
	data, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", d.DocKey(), err)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var props map[string]any
	if err := dec.Decode(&props); err != nil {
		return nil, err
	}
	for k, v := range props {
		props[k] = normalize(v)
	}
	delete(props, "_key")
	delete(props, "embedding")
	return props, nil
}

// normalize turns json.Number into int64 or float64 so the bolt encoder sends numbers.
func normalize(v any) any {
	switch t := v.(type) {
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return n
		}
		f, _ := t.Float64()
		return f
	case []any:
		for i := range t {
			t[i] = normalize(t[i])
		}
		return t
	case map[string]any:
		for k := range t {
			t[k] = normalize(t[k])
		}
		return t
	default:
		return v
	}
}

// fromProps decodes node properties into a document struct.
func fromProps(props map[string]any, out any) error {
	copied := make(map[string]any, len(props)+1)
	for k, v := range props {
		copied[k] = v
	}
	copied["_key"] = props["key"]
	data, err := json.Marshal(copied)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}

func get(rec *neo4j.Record, key string) any {
	v, _ := rec.Get(key)
	return v
}

func str(v any) string {
	s, _ := v.(string)
	return s
}

func asInt64(v any) int64 {
	switch t := v.(type) {
	case int64:
		return t
	case int:
		return int64(t)
	case float64:
		return int64(t)
	default:
		return 0
	}
}

func toFloat64s(v []float32) []float64 {
	out := make([]float64, len(v))
	for i, f := range v {
		out[i] = float64(f)
	}
	return out
}
