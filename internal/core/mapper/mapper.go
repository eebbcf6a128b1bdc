package mapper

import (
	"context"

	"github.com/agenthands/reviewgraph/internal/core/keys"
	"github.com/agenthands/reviewgraph/internal/core/model"
	"github.com/agenthands/reviewgraph/internal/logger"
	"github.com/agenthands/reviewgraph/internal/records"
	"github.com/agenthands/reviewgraph/internal/store"
)

// Nodes is the node output of one batch.
type Nodes struct {
	Products        []model.Product
	Reviews         []model.Review
	Users           []model.User
	Categories      []model.Category
	ProductsSkipped int
	ReviewsSkipped  int
}

// Edges is the edge output of one batch, grouped by edge collection name.
type Edges struct {
	ByKind map[string][]model.Edge
	// Dropped counts edges with an endpoint missing from the store.
	Dropped map[string]int
	// Duplicates counts repeated pairs collapsed into one edge.
	Duplicates map[string]int
}

func (e Edges) Total() int {
	n := 0
	for _, edges := range e.ByKind {
		n += len(edges)
	}
	return n
}

type Mapper struct {
	keys store.KeyChecker
	log  *logger.Logger
}

func New(keys store.KeyChecker, log *logger.Logger) *Mapper {
	return &Mapper{keys: keys, log: log}
}

// MapNodes maps metadata and review records of one batch.
func (m *Mapper) MapNodes(meta, reviews []records.Record) Nodes {
	var n Nodes
	n.Products, n.ProductsSkipped = MapProducts(meta)
	n.Reviews, n.ReviewsSkipped = MapReviews(reviews)
	n.Users = ExtractUsers(n.Reviews)
	n.Categories = ExtractCategories(n.Products)

	m.log.Info("mapped nodes",
		"products", len(n.Products), "products_skipped", n.ProductsSkipped,
		"reviews", len(n.Reviews), "reviews_skipped", n.ReviewsSkipped,
		"users", len(n.Users), "categories", len(n.Categories))
	return n
}

type pair struct {
	from string
	to   string
}

// MapEdges builds the edges of a batch whose nodes are already stored. An edge is
// emitted only when the store confirms both endpoints exist.
func (m *Mapper) MapEdges(ctx context.Context, products []model.Product, reviews []model.Review) Edges {
	var hasReview, writtenBy, belongs, variant []pair

	for _, r := range reviews {
		if ref := r.ProductRef(); ref != "" {
			hasReview = append(hasReview, pair{from: ref, to: r.Key})
		}
		writtenBy = append(writtenBy, pair{from: r.Key, to: r.UserID})
	}
	for _, p := range products {
		if cat := keys.Sanitize(p.MainCategory, false); cat != "" {
			belongs = append(belongs, pair{from: p.Key, to: cat})
		}
		if p.ParentASIN != "" && p.ParentASIN != p.Key {
			variant = append(variant, pair{from: p.Key, to: p.ParentASIN})
		}
	}

	out := Edges{ByKind: make(map[string][]model.Edge), Dropped: make(map[string]int), Duplicates: make(map[string]int)}
	for _, kind := range []struct {
		coll  model.Collection
		pairs []pair
	}{
		{model.HasReview, hasReview},
		{model.WrittenBy, writtenBy},
		{model.BelongsToCategory, belongs},
		{model.VariantOf, variant},
	} {
		edges, dropped, duplicates := m.verify(ctx, kind.coll, kind.pairs)
		out.ByKind[kind.coll.Name] = edges
		if dropped > 0 {
			out.Dropped[kind.coll.Name] = dropped
		}
		if duplicates > 0 {
			out.Duplicates[kind.coll.Name] = duplicates
		}
	}

	m.log.Info("mapped edges",
		"has_review", len(out.ByKind[model.HasReview.Name]),
		"written_by", len(out.ByKind[model.WrittenBy.Name]),
		"belongs_to_category", len(out.ByKind[model.BelongsToCategory.Name]),
		"variant_of", len(out.ByKind[model.VariantOf.Name]),
		"dropped", out.Dropped,
		"duplicates", out.Duplicates)
	return out
}

// verify keeps the pairs whose endpoints both exist, once per edge key. It reports
// how many pairs were dropped for a missing endpoint and how many were repeats.
func (m *Mapper) verify(ctx context.Context, kind model.Collection, pairs []pair) (edges []model.Edge, dropped, duplicates int) {
	if len(pairs) == 0 {
		return nil, 0, 0
	}
	fromColl, _ := model.Lookup(kind.From)
	toColl, _ := model.Lookup(kind.To)

	fromKeys := make([]string, 0, len(pairs))
	toKeys := make([]string, 0, len(pairs))
	for _, p := range pairs {
		fromKeys = append(fromKeys, p.from)
		toKeys = append(toKeys, p.to)
	}

	var fromExisting, toExisting map[string]bool
	var err error
	if fromColl.Name == toColl.Name {
		fromExisting, err = m.keys.ExistingKeys(ctx, fromColl, unique(append(fromKeys, toKeys...)))
		toExisting = fromExisting
	} else {
		fromExisting, err = m.keys.ExistingKeys(ctx, fromColl, unique(fromKeys))
		if err == nil {
			toExisting, err = m.keys.ExistingKeys(ctx, toColl, unique(toKeys))
		}
	}
	if err != nil {
		m.log.Error("endpoint lookup failed, skipping edges", "edge", kind.Name, "error", err)
		return nil, len(pairs), 0
	}

	seen := make(map[string]bool)
	for _, p := range pairs {
		if !fromExisting[p.from] || !toExisting[p.to] {
			dropped++
			continue
		}
		key := keys.EdgeKey(p.from, p.to)
		if seen[key] {
			duplicates++
			continue
		}
		seen[key] = true
		edges = append(edges, model.Edge{
			Key:  key,
			From: model.DocID(fromColl.Name, p.from),
			To:   model.DocID(toColl.Name, p.to),
		})
	}
	return edges, dropped, duplicates
}

func unique(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
