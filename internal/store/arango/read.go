package arango

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/agenthands/reviewgraph/internal/core/model"
	"github.com/agenthands/reviewgraph/internal/store"
)

func (s *Store) Stats(ctx context.Context) (model.Stats, error) {
	var st model.Stats
	var err error
	if st.Products, err = s.Count(ctx, model.Products); err != nil {
		return st, err
	}
	if st.Reviews, err = s.Count(ctx, model.Reviews); err != nil {
		return st, err
	}
	if st.Users, err = s.Count(ctx, model.Users); err != nil {
		return st, err
	}
	if st.Categories, err = s.Count(ctx, model.Categories); err != nil {
		return st, err
	}
	return st, nil
}

func (s *Store) ProductByKey(ctx context.Context, key string) (model.Product, error) {
	var products []model.Product
	if err := s.queryInto(ctx, productByKeyQuery, map[string]interface{}{"key": key}, &products); err != nil {
		return model.Product{}, fmt.Errorf("failed to get product %s: %w", key, err)
	}
	if len(products) == 0 {
		return model.Product{}, fmt.Errorf("product %s: %w", key, store.ErrNotFound)
	}
	return products[0], nil
}

func (s *Store) ReviewsForProduct(ctx context.Context, key string, limit int) ([]model.Review, error) {
	var reviews []model.Review
	if err := s.queryInto(ctx, reviewsForProductQuery, map[string]interface{}{"key": key, "limit": limit}, &reviews); err != nil {
		return nil, fmt.Errorf("failed to get reviews for %s: %w", key, err)
	}
	return reviews, nil
}

func (s *Store) RatingDistribution(ctx context.Context, key string) ([]model.RatingBucket, error) {
	var buckets []model.RatingBucket
	if err := s.queryInto(ctx, ratingDistributionQuery, map[string]interface{}{"key": key}, &buckets); err != nil {
		return nil, fmt.Errorf("failed to get rating distribution for %s: %w", key, err)
	}
	return buckets, nil
}

func (s *Store) SimilarProducts(ctx context.Context, vector []float32, threshold float64, limit int) ([]model.ScoredProduct, error) {
	var scored []model.ScoredProduct
	bind := map[string]interface{}{"vector": vector, "threshold": threshold, "limit": limit}
	if err := s.queryInto(ctx, similarProductsQuery, bind, &scored); err != nil {
		return nil, fmt.Errorf("failed to search similar products: %w", err)
	}
	return scored, nil
}

func (s *Store) RelatedProducts(ctx context.Context, key string, limit int) (model.Related, error) {
	p, err := s.ProductByKey(ctx, key)
	if err != nil {
		return model.Related{}, err
	}
	rel := model.Related{Product: p}
	if err := s.queryInto(ctx, variantsQuery, map[string]interface{}{"key": key}, &rel.Variants); err != nil {
		return model.Related{}, fmt.Errorf("failed to get variants of %s: %w", key, err)
	}
	if err := s.queryInto(ctx, nearestPricedQuery, map[string]interface{}{"key": key, "limit": limit}, &rel.Similar); err != nil {
		return model.Related{}, fmt.Errorf("failed to get products similar to %s: %w", key, err)
	}
	return rel, nil
}

func (s *Store) PopularProducts(ctx context.Context, category string, limit int) ([]model.Product, error) {
	var products []model.Product
	if err := s.queryInto(ctx, popularProductsQuery, map[string]interface{}{"category": category, "limit": limit}, &products); err != nil {
		return nil, fmt.Errorf("failed to get popular products: %w", err)
	}
	return products, nil
}

func (s *Store) BestRatedProducts(ctx context.Context, category string, minReviews, limit int) ([]model.Product, error) {
	var products []model.Product
	bind := map[string]interface{}{"category": category, "min_reviews": minReviews, "limit": limit}
	if err := s.queryInto(ctx, bestRatedProductsQuery, bind, &products); err != nil {
		return nil, fmt.Errorf("failed to get best rated products: %w", err)
	}
	return products, nil
}

func (s *Store) CoReviewPairs(ctx context.Context, limit int) ([]model.CoReview, error) {
	var pairs []model.CoReview
	if err := s.queryInto(ctx, coReviewPairsQuery, map[string]interface{}{"limit": limit}, &pairs); err != nil {
		return nil, fmt.Errorf("failed to find co-reviewed products: %w", err)
	}
	return pairs, nil
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
	return store.DescribeSchema(s.QueryLanguage(), "_key", counts), nil
}

// RawQuery runs a generated AQL query. Non-object rows are wrapped as {"value": row}.
func (s *Store) RawQuery(ctx context.Context, query string) ([]map[string]any, error) {
	docs, err := s.db.query(ctx, query, nil)
	if err != nil {
		return nil, err
	}
	out := make([]map[string]any, 0, len(docs))
	for _, d := range docs {
		var v any
		if err := json.Unmarshal(d, &v); err != nil {
			return nil, err
		}
		row, ok := v.(map[string]any)
		if !ok {
			row = map[string]any{"value": v}
		}
		delete(row, "embedding")
		out = append(out, row)
	}
	return out, nil
}
