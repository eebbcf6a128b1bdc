package memgraph

import (
	"context"
	"fmt"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/agenthands/reviewgraph/internal/core/model"
	"github.com/agenthands/reviewgraph/internal/driver"
	"github.com/agenthands/reviewgraph/internal/store"
)

func (s *Store) Stats(ctx context.Context) (model.Stats, error) {
	var st model.Stats
	for _, item := range []struct {
		coll model.Collection
		dst  *int64
	}{
		{model.Products, &st.Products},
		{model.Reviews, &st.Reviews},
		{model.Users, &st.Users},
		{model.Categories, &st.Categories},
	} {
		n, err := s.Count(ctx, item.coll)
		if err != nil {
			return st, err
		}
		*item.dst = n
	}
	return st, nil
}

func (s *Store) ProductByKey(ctx context.Context, key string) (model.Product, error) {
	products, err := s.products(ctx, driver.GetProductQuery, map[string]any{"key": key})
	if err != nil {
		return model.Product{}, err
	}
	if len(products) == 0 {
		return model.Product{}, fmt.Errorf("product %s: %w", key, store.ErrNotFound)
	}
	return products[0], nil
}

func (s *Store) ReviewsForProduct(ctx context.Context, key string, limit int) ([]model.Review, error) {
	res, err := s.driver.ExecuteQuery(ctx, driver.GetReviewsForProductQuery, map[string]any{"key": key, "limit": int64(limit)})
	if err != nil {
		return nil, fmt.Errorf("failed to get reviews for %s: %w", key, err)
	}
	out := make([]model.Review, 0, len(res.Records))
	for _, rec := range res.Records {
		var r model.Review
		if err := decodeProps(rec, &r); err != nil {
			return nil, err
		}
		r.Embedding = nil
		out = append(out, r)
	}
	return out, nil
}

func (s *Store) RatingDistribution(ctx context.Context, key string) ([]model.RatingBucket, error) {
	res, err := s.driver.ExecuteQuery(ctx, driver.RatingDistributionQuery, map[string]any{"key": key})
	if err != nil {
		return nil, fmt.Errorf("failed to get rating distribution for %s: %w", key, err)
	}
	out := make([]model.RatingBucket, 0, len(res.Records))
	for _, rec := range res.Records {
		out = append(out, model.RatingBucket{
			Rating: int(asInt64(get(rec, "rating"))),
			Count:  asInt64(get(rec, "count")),
		})
	}
	return out, nil
}

// SimilarProducts ranks stored embeddings client-side.
func (s *Store) SimilarProducts(ctx context.Context, vector []float32, threshold float64, limit int) ([]model.ScoredProduct, error) {
	res, err := s.driver.ExecuteQuery(ctx, driver.ProductEmbeddingsQuery, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to load product embeddings: %w", err)
	}
	candidates := make([]model.Product, 0, len(res.Records))
	for _, rec := range res.Records {
		var p model.Product
		if err := decodeProps(rec, &p); err != nil {
			s.log.Warn("skipping undecodable product", "error", err)
			continue
		}
		candidates = append(candidates, p)
	}
	return store.RankBySimilarity(vector, candidates, threshold, limit), nil
}

func (s *Store) RelatedProducts(ctx context.Context, key string, limit int) (model.Related, error) {
	p, err := s.ProductByKey(ctx, key)
	if err != nil {
		return model.Related{}, err
	}
	variants, err := s.products(ctx, driver.GetVariantsQuery, map[string]any{"key": key})
	if err != nil {
		return model.Related{}, err
	}
	similar, err := s.products(ctx, driver.GetNearestPricedQuery, map[string]any{"key": key, "limit": int64(limit)})
	if err != nil {
		return model.Related{}, err
	}
	return model.Related{Product: p, Variants: variants, Similar: similar}, nil
}

func (s *Store) PopularProducts(ctx context.Context, category string, limit int) ([]model.Product, error) {
	return s.products(ctx, driver.PopularProductsQuery, map[string]any{"category": category, "limit": int64(limit)})
}

func (s *Store) BestRatedProducts(ctx context.Context, category string, minReviews, limit int) ([]model.Product, error) {
	return s.products(ctx, driver.BestRatedProductsQuery, map[string]any{
		"category":    category,
		"min_reviews": int64(minReviews),
		"limit":       int64(limit),
	})
}

func (s *Store) CoReviewPairs(ctx context.Context, limit int) ([]model.CoReview, error) {
	res, err := s.driver.ExecuteQuery(ctx, driver.CoReviewPairsQuery, map[string]any{"limit": int64(limit)})
	if err != nil {
		return nil, fmt.Errorf("failed to find co-reviewed products: %w", err)
	}
	out := make([]model.CoReview, 0, len(res.Records))
	for _, rec := range res.Records {
		out = append(out, model.CoReview{
			A:      str(get(rec, "a")),
			B:      str(get(rec, "b")),
			Weight: int(asInt64(get(rec, "weight"))),
		})
	}
	return out, nil
}

func (s *Store) Schema(ctx context.Context) (string, error) {
	counts := make(map[string]int64)
	for _, c := range append(append([]model.Collection{}, model.NodeCollections...), model.EdgeCollections...) {
		n, err := s.Count(ctx, c)
		if err != nil {
			return "", err
		}
		counts[c.Name] = n
	}
	return store.DescribeSchema(s.QueryLanguage(), "key", counts), nil
}

// RawQuery runs a generated query. Nodes and relationships are returned as their properties.
func (s *Store) RawQuery(ctx context.Context, query string) ([]map[string]any, error) {
	res, err := s.driver.ExecuteQuery(ctx, query, nil)
	if err != nil {
		return nil, err
	}
	out := make([]map[string]any, 0, len(res.Records))
	for _, rec := range res.Records {
		row := make(map[string]any, len(rec.Keys))
		for i, k := range rec.Keys {
			row[k] = plain(rec.Values[i])
		}
		out = append(out, row)
	}
	return out, nil
}

func (s *Store) products(ctx context.Context, query string, params map[string]any) ([]model.Product, error) {
	res, err := s.driver.ExecuteQuery(ctx, query, params)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	out := make([]model.Product, 0, len(res.Records))
	for _, rec := range res.Records {
		var p model.Product
		if err := decodeProps(rec, &p); err != nil {
			return nil, err
		}
		p.Embedding = nil
		out = append(out, p)
	}
	return out, nil
}

func decodeProps(rec *neo4j.Record, out any) error {
	props, ok := get(rec, "props").(map[string]any)
	if !ok {
		return fmt.Errorf("record has no props column")
	}
	return fromProps(props, out)
}

func plain(v any) any {
	switch t := v.(type) {
	case neo4j.Node:
		props := make(map[string]any, len(t.Props)+1)
		for k, val := range t.Props {
			if k == "embedding" {
				continue
			}
			props[k] = val
		}
		props["labels"] = strings.Join(t.Labels, ",")
		return props
	case neo4j.Relationship:
		return map[string]any{"type": t.Type, "props": t.Props}
	case []any:
		out := make([]any, len(t))
		for i := range t {
			out[i] = plain(t[i])
		}
		return out
	default:
		return v
	}
}
