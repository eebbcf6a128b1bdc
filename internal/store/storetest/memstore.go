// Package storetest provides an in-memory store.Store for tests.
package storetest

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/agenthands/reviewgraph/internal/core/model"
	"github.com/agenthands/reviewgraph/internal/store"
)

// MemStore keeps every collection in maps. Failing collections can be set
// through ImportErr to exercise error paths.
type MemStore struct {
	mu         sync.Mutex
	Products   map[string]model.Product
	Reviews    map[string]model.Review
	Users      map[string]model.User
	Categories map[string]model.Category
	Edges      map[string]map[string]model.Edge

	ImportErr   map[string]error
	QueryResult []map[string]any
	QueryErr    error
	Queries     []string
	SchemaReady bool
}

var _ store.Store = (*MemStore)(nil)

func New() *MemStore {
	m := &MemStore{
		Products:   make(map[string]model.Product),
		Reviews:    make(map[string]model.Review),
		Users:      make(map[string]model.User),
		Categories: make(map[string]model.Category),
		Edges:      make(map[string]map[string]model.Edge),
		ImportErr:  make(map[string]error),
	}
	for _, c := range model.EdgeCollections {
		m.Edges[c.Name] = make(map[string]model.Edge)
	}
	return m
}

func (m *MemStore) EnsureSchema(ctx context.Context) error {
	m.SchemaReady = true
	return nil
}

func (m *MemStore) Close(ctx context.Context) error { return nil }

func (m *MemStore) Import(ctx context.Context, c model.Collection, docs []model.Document) (store.ImportResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.ImportErr[c.Name]; err != nil {
		return store.ImportResult{}, err
	}
	var res store.ImportResult
	for _, d := range docs {
		existed := m.has(c, d.DocKey())
		switch v := d.(type) {
		case model.Product:
			m.Products[v.Key] = v
		case model.Review:
			m.Reviews[v.Key] = v
		case model.User:
			m.Users[v.Key] = v
		case model.Category:
			m.Categories[v.Key] = v
		case model.Edge:
			m.Edges[c.Name][v.Key] = v
		default:
			res.Errors++
			continue
		}
		if existed {
			res.Updated++
		} else {
			res.Created++
		}
	}
	return res, nil
}

func (m *MemStore) has(c model.Collection, key string) bool {
	var ok bool
	switch c.Name {
	case model.Products.Name:
		_, ok = m.Products[key]
	case model.Reviews.Name:
		_, ok = m.Reviews[key]
	case model.Users.Name:
		_, ok = m.Users[key]
	case model.Categories.Name:
		_, ok = m.Categories[key]
	default:
		_, ok = m.Edges[c.Name][key]
	}
	return ok
}

func (m *MemStore) ExistingKeys(ctx context.Context, c model.Collection, keys []string) (map[string]bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]bool)
	for _, k := range keys {
		if m.has(c, k) {
			out[k] = true
		}
	}
	return out, nil
}

func (m *MemStore) Count(ctx context.Context, c model.Collection) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch c.Name {
	case model.Products.Name:
		return int64(len(m.Products)), nil
	case model.Reviews.Name:
		return int64(len(m.Reviews)), nil
	case model.Users.Name:
		return int64(len(m.Users)), nil
	case model.Categories.Name:
		return int64(len(m.Categories)), nil
	}
	return int64(len(m.Edges[c.Name])), nil
}

func (m *MemStore) MissingEmbeddings(ctx context.Context, c model.Collection, category string, exclude []string, limit int) ([]store.EmbeddingCandidate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	skip := make(map[string]bool, len(exclude))
	for _, k := range exclude {
		skip[k] = true
	}
	var out []store.EmbeddingCandidate
	switch c.Name {
	case model.Products.Name:
		for _, p := range sortedProducts(m.Products) {
			if skip[p.Key] || p.Embedding != nil || (category != "" && p.MainCategory != category) {
				continue
			}
			out = append(out, store.EmbeddingCandidate{Key: p.Key, Text: p.EmbeddingText()})
		}
	case model.Reviews.Name:
		for _, k := range sortedKeys(m.Reviews) {
			r := m.Reviews[k]
			if skip[k] || r.Embedding != nil {
				continue
			}
			if category != "" && m.Products[r.ProductRef()].MainCategory != category {
				continue
			}
			out = append(out, store.EmbeddingCandidate{Key: k, Text: r.EmbeddingText()})
		}
	default:
		return nil, fmt.Errorf("collection %s has no embeddings", c.Name)
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemStore) SetEmbeddings(ctx context.Context, c model.Collection, vectors map[string][]float32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, v := range vectors {
		switch c.Name {
		case model.Products.Name:
			if p, ok := m.Products[k]; ok {
				p.Embedding = v
				m.Products[k] = p
			}
		case model.Reviews.Name:
			if r, ok := m.Reviews[k]; ok {
				r.Embedding = v
				m.Reviews[k] = r
			}
		}
	}
	return nil
}

func (m *MemStore) Stats(ctx context.Context) (model.Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return model.Stats{
		Products:   int64(len(m.Products)),
		Reviews:    int64(len(m.Reviews)),
		Users:      int64(len(m.Users)),
		Categories: int64(len(m.Categories)),
	}, nil
}

func (m *MemStore) ProductByKey(ctx context.Context, key string) (model.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.Products[key]
	if !ok {
		return model.Product{}, store.ErrNotFound
	}
	p.Embedding = nil
	return p, nil
}

func (m *MemStore) ReviewsForProduct(ctx context.Context, key string, limit int) ([]model.Review, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Review
	for _, k := range sortedKeys(m.Reviews) {
		r := m.Reviews[k]
		if r.ProductRef() == key || r.ASIN == key {
			r.Embedding = nil
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].HelpfulVotes > out[j].HelpfulVotes })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemStore) RatingDistribution(ctx context.Context, key string) ([]model.RatingBucket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := make(map[int]int64)
	for _, r := range m.Reviews {
		if r.ProductRef() == key || r.ASIN == key {
			counts[int(r.Rating)]++
		}
	}
	var out []model.RatingBucket
	for rating, n := range counts {
		out = append(out, model.RatingBucket{Rating: rating, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Rating > out[j].Rating })
	return out, nil
}

func (m *MemStore) SimilarProducts(ctx context.Context, vector []float32, threshold float64, limit int) ([]model.ScoredProduct, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return store.RankBySimilarity(vector, sortedProducts(m.Products), threshold, limit), nil
}

func (m *MemStore) RelatedProducts(ctx context.Context, key string, limit int) (model.Related, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.Products[key]
	if !ok {
		return model.Related{}, store.ErrNotFound
	}
	p.Embedding = nil
	rel := model.Related{Product: p}
	for _, o := range sortedProducts(m.Products) {
		if o.Key == p.Key {
			continue
		}
		o.Embedding = nil
		if o.ParentASIN == p.Key || (p.ParentASIN != "" && o.Key == p.ParentASIN) {
			rel.Variants = append(rel.Variants, o)
		} else if o.MainCategory == p.MainCategory {
			rel.Similar = append(rel.Similar, o)
		}
	}
	sort.SliceStable(rel.Similar, func(i, j int) bool {
		return abs(rel.Similar[i].Price-p.Price) < abs(rel.Similar[j].Price-p.Price)
	})
	if limit > 0 && len(rel.Similar) > limit {
		rel.Similar = rel.Similar[:limit]
	}
	if limit > 0 && len(rel.Variants) > limit {
		rel.Variants = rel.Variants[:limit]
	}
	return rel, nil
}

func (m *MemStore) PopularProducts(ctx context.Context, category string, limit int) ([]model.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.inCategory(category)
	sort.SliceStable(out, func(i, j int) bool { return out[i].RatingCount > out[j].RatingCount })
	return head(out, limit), nil
}

func (m *MemStore) BestRatedProducts(ctx context.Context, category string, minReviews, limit int) ([]model.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Product
	for _, p := range m.inCategory(category) {
		if p.RatingCount >= minReviews {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].AverageRating > out[j].AverageRating })
	return head(out, limit), nil
}

func (m *MemStore) CoReviewPairs(ctx context.Context, limit int) ([]model.CoReview, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	byUser := make(map[string][]string)
	for _, k := range sortedKeys(m.Reviews) {
		r := m.Reviews[k]
		byUser[r.UserID] = appendUnique(byUser[r.UserID], r.ProductRef())
	}
	weights := make(map[[2]string]int)
	for _, products := range byUser {
		for i := range products {
			for j := i + 1; j < len(products); j++ {
				a, b := products[i], products[j]
				if a > b {
					a, b = b, a
				}
				weights[[2]string{a, b}]++
			}
		}
	}
	var out []model.CoReview
	for pair, w := range weights {
		out = append(out, model.CoReview{A: pair[0], B: pair[1], Weight: w})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Weight != out[j].Weight {
			return out[i].Weight > out[j].Weight
		}
		return out[i].A+out[i].B < out[j].A+out[j].B
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemStore) QueryLanguage() string { return "AQL" }

func (m *MemStore) Schema(ctx context.Context) (string, error) {
	stats, _ := m.Stats(ctx)
	return store.DescribeSchema(m.QueryLanguage(), "_key", map[string]int64{
		model.Products.Name:   stats.Products,
		model.Reviews.Name:    stats.Reviews,
		model.Users.Name:      stats.Users,
		model.Categories.Name: stats.Categories,
	}), nil
}

func (m *MemStore) RawQuery(ctx context.Context, query string) ([]map[string]any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Queries = append(m.Queries, query)
	return m.QueryResult, m.QueryErr
}

func (m *MemStore) inCategory(category string) []model.Product {
	var out []model.Product
	for _, p := range sortedProducts(m.Products) {
		if category != "" && !strings.Contains(strings.ToLower(p.MainCategory), strings.ToLower(category)) {
			continue
		}
		p.Embedding = nil
		out = append(out, p)
	}
	return out
}

func sortedProducts(products map[string]model.Product) []model.Product {
	out := make([]model.Product, 0, len(products))
	for _, k := range sortedKeys(products) {
		out = append(out, products[k])
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func head(products []model.Product, limit int) []model.Product {
	if limit > 0 && len(products) > limit {
		return products[:limit]
	}
	return products
}

func appendUnique(list []string, v string) []string {
	for _, x := range list {
		if x == v {
			return list
		}
	}
	return append(list, v)
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
