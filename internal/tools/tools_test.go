package tools_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agenthands/reviewgraph/internal/config"
	"github.com/agenthands/reviewgraph/internal/core/mapper"
	"github.com/agenthands/reviewgraph/internal/core/model"
	"github.com/agenthands/reviewgraph/internal/logger"
	"github.com/agenthands/reviewgraph/internal/records"
	"github.com/agenthands/reviewgraph/internal/store/storetest"
	"github.com/agenthands/reviewgraph/internal/tools"
)

type MockEmbedder struct {
	Vector []float32
	Err    error
	Texts  []string
}

func (m *MockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	m.Texts = append(m.Texts, text)
	return m.Vector, m.Err
}

type MockLLM struct {
	ResponseQueue []string
}

func (m *MockLLM) Generate(ctx context.Context, prompt string) (string, error) {
	if len(m.ResponseQueue) == 0 {
		return "", errors.New("no response queued")
	}
	resp := m.ResponseQueue[0]
	m.ResponseQueue = m.ResponseQueue[1:]
	return resp, nil
}

type MockDetector struct {
	Groups [][]string
	Nodes  []string
}

func (m *MockDetector) Detect(nodes []string, edges []model.CoReview) ([][]string, error) {
	m.Nodes = nodes
	return m.Groups, nil
}

func seeded() *storetest.MemStore {
	st := storetest.New()
	st.Products["B000000001"] = model.Product{Key: "B000000001", Title: "Rose Moisturizer", MainCategory: "All_Beauty",
		Price: 12, AverageRating: 4.6, RatingCount: 300, Embedding: []float32{1, 0}}
	st.Products["B000000002"] = model.Product{Key: "B000000002", Title: "Night Cream", MainCategory: "All_Beauty",
		Price: 15, AverageRating: 4.1, RatingCount: 40, Embedding: []float32{0.8, 0.6}}
	st.Products["B000000003"] = model.Product{Key: "B000000003", Title: "Hammer", MainCategory: "Tools",
		Price: 20, AverageRating: 4.9, RatingCount: 2, Embedding: []float32{0, 1}}
	st.Products["V000000001"] = model.Product{Key: "V000000001", ParentASIN: "B000000001", Title: "Rose Moisturizer 2oz",
		MainCategory: "All_Beauty", Price: 8}
	st.Reviews["r1"] = model.Review{Key: "r1", ASIN: "B000000001", ParentASIN: "B000000001", UserID: "U1",
		Rating: 5, Title: "Love it", Text: "Soft skin", HelpfulVotes: 3, VerifiedPurchase: true}
	st.Reviews["r2"] = model.Review{Key: "r2", ASIN: "B000000001", ParentASIN: "B000000001", UserID: "U2",
		Rating: 2, Title: "Meh", Text: "Greasy", HelpfulVotes: 9}
	st.Reviews["r3"] = model.Review{Key: "r3", ASIN: "B000000002", ParentASIN: "B000000002", UserID: "U1",
		Rating: 4, Title: "Nice", Text: "Good at night"}
	st.Reviews["r4"] = model.Review{Key: "r4", ASIN: "B000000002", ParentASIN: "B000000002", UserID: "U2",
		Rating: 5, Title: "Great", Text: "Works"}
	return st
}

func TestClassify(t *testing.T) {
	cases := []struct {
		question string
		want     tools.Intent
	}{
		{"What's the most popular beauty product?", tools.IntentPopular},
		{"best selling items", tools.IntentPopular},
		{"products similar to B000000001", tools.IntentRelated},
		{"Find products similar to moisturizer", tools.IntentRelated},
		{"What are the reviews for product B088SZDGXG?", tools.IntentReviews},
		{"show customer purchase patterns", tools.IntentCommunities},
		{"I am looking for a moisturizer", tools.IntentDescribe},
		{"how big is the graph", tools.IntentStats},
		{"Tell me about products with the highest ratings", tools.IntentStats},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, tools.Classify(c.question), c.question)
	}
	assert.Equal(t, "communities", tools.IntentCommunities.String())
}

func TestExtractASIN(t *testing.T) {
	assert.Equal(t, "B088SZDGXG", tools.ExtractASIN("reviews for B088SZDGXG please"))
	assert.Equal(t, "", tools.ExtractASIN("reviews for b088szdgxg"))
	assert.Equal(t, "ABCDEFGHIJ", tools.ExtractASIN("ABCDEFGHIJKLMN"))
}

func TestParseArgs(t *testing.T) {
	assert.Equal(t, tools.Args{Query: "moisturizer"}, tools.ParseArgs(" moisturizer "))
	assert.Equal(t, tools.Args{Query: "x", MinReviews: 3}, tools.ParseArgs(`{"query":"x","min_reviews":3}`))
	assert.Equal(t, tools.Args{Query: "{broken"}, tools.ParseArgs("{broken"))
}

func TestRegistry(t *testing.T) {
	st := seeded()
	r := tools.NewRegistry(tools.NewProductReviews(st), tools.NewBestRated(st, 0))
	r.Register(tools.NewProductReviews(st))

	require.Len(t, r.List(), 2)
	assert.Equal(t, "get_reviews_for_product", r.List()[0].Name())
	specs := r.Specs()
	assert.Equal(t, "get_best_rated_products", specs[1].Name)
	assert.Equal(t, "object", specs[1].Parameters["type"])

	_, err := r.Call(context.Background(), "nope", "")
	assert.ErrorIs(t, err, tools.ErrUnknownTool)
}

func TestDescriptionSearch(t *testing.T) {
	st := seeded()
	emb := &MockEmbedder{Vector: []float32{1, 0}}
	tool := tools.NewDescriptionSearch(emb, st, 0.7, 5)

	out, err := tool.Call(context.Background(), `{"query":"moisturizer"}`)
	require.NoError(t, err)
	assert.Equal(t, []string{"moisturizer"}, emb.Texts)
	assert.Contains(t, out, "1. Rose Moisturizer\n")
	assert.Contains(t, out, "2. Night Cream\n")
	assert.NotContains(t, out, "Hammer")
	assert.Contains(t, out, "Price: $12.00")

	emb.Vector = []float32{-1, 0}
	out, err = tool.Call(context.Background(), "nothing like it")
	require.NoError(t, err)
	assert.Equal(t, tools.NoProductsFound, out)

	emb.Err = errors.New("quota")
	_, err = tool.Call(context.Background(), "x")
	assert.Error(t, err)
}

func TestProductReviews(t *testing.T) {
	st := seeded()
	tool := tools.NewProductReviews(st)

	out, err := tool.Call(context.Background(), "What are the reviews for B000000001?")
	require.NoError(t, err)
	assert.Contains(t, out, "Reviews for Rose Moisturizer (ASIN: B000000001):")
	// most helpful first
	assert.Contains(t, out, "1. Meh - 2.0/5.0 stars")
	assert.Contains(t, out, "2. Love it - 5.0/5.0 stars\n   Soft skin\n   (Verified Purchase)\n   Helpful votes: 3")

	out, err = tool.Call(context.Background(), "B000000009")
	require.NoError(t, err)
	assert.Equal(t, "No reviews found for product with ASIN B000000009.", out)

	st.Reviews["r9"] = model.Review{Key: "r9", ASIN: "B000000009", Rating: 3, Title: "Orphan"}
	out, err = tool.Call(context.Background(), `{"asin":"B000000009"}`)
	require.NoError(t, err)
	assert.Contains(t, out, "Reviews for Unknown Product (ASIN: B000000009)")
}

func TestReviewSummary(t *testing.T) {
	st := seeded()
	tool := tools.NewReviewSummary(st)

	out, err := tool.Call(context.Background(), "B000000001")
	require.NoError(t, err)
	assert.Contains(t, out, "Review summary for Rose Moisturizer (ASIN: B000000001)")
	assert.Contains(t, out, "Rating distribution (2 reviews):\n   5 stars: 1\n   2 stars: 1\n")
	assert.Contains(t, out, "Most helpful reviews:\n1. Meh")

	out, err = tool.Call(context.Background(), "B0000000ZZ")
	require.NoError(t, err)
	assert.Equal(t, "Could not find product with ASIN B0000000ZZ.", out)
}

func TestNetwork_Popular(t *testing.T) {
	out, err := tools.NewNetwork(seeded(), nil, tools.NetworkOptions{PopularLimit: 2}).Call(context.Background(), "most popular")
	require.NoError(t, err)
	assert.Contains(t, out, "Most popular products based on number of reviews:")
	assert.Contains(t, out, "1. Rose Moisturizer\n   Total reviews: 300")
	assert.Contains(t, out, "2. Night Cream")
	assert.NotContains(t, out, "3.")
}

func TestNetwork_Related(t *testing.T) {
	tool := tools.NewNetwork(seeded(), nil, tools.NetworkOptions{})

	out, err := tool.Call(context.Background(), "products related to B000000001")
	require.NoError(t, err)
	assert.Contains(t, out, "Analysis for product: Rose Moisturizer")
	assert.Contains(t, out, "Product variants:\n1. Rose Moisturizer 2oz")
	assert.Contains(t, out, "Similar products by price and category:\n1. Night Cream")
	assert.NotContains(t, out, "Hammer")

	out, err = tool.Call(context.Background(), "similar products please")
	require.NoError(t, err)
	assert.Equal(t, tools.AskForASIN, out)

	out, err = tool.Call(context.Background(), "similar to B00000000X")
	require.NoError(t, err)
	assert.Equal(t, "Could not find product with ASIN B00000000X.", out)
}

func TestNetwork_CommunitiesAndStats(t *testing.T) {
	tool := tools.NewNetwork(seeded(), nil, tools.NetworkOptions{})

	out, err := tool.Call(context.Background(), "customer purchase patterns")
	require.NoError(t, err)
	assert.Contains(t, out, "Found 1 groups of products reviewed by the same customers")
	assert.Contains(t, out, "- Rose Moisturizer (ASIN: B000000001)")
	assert.Contains(t, out, "- Night Cream (ASIN: B000000002)")

	out, err = tool.Call(context.Background(), "overview")
	require.NoError(t, err)
	assert.Contains(t, out, "- Total Products: 4\n- Total Reviews: 4\n- Total Users: 0\n- Total Categories: 0")
}

func TestBestRated(t *testing.T) {
	tool := tools.NewBestRated(seeded(), 5)

	out, err := tool.Call(context.Background(), "")
	require.NoError(t, err)
	assert.Contains(t, out, "1. Rose Moisturizer")
	assert.NotContains(t, out, "Hammer")

	out, err = tool.Call(context.Background(), `{"category":"tools","min_reviews":1}`)
	require.NoError(t, err)
	assert.Contains(t, out, `Best rated products in "tools" (at least 1 ratings)`)
	assert.Contains(t, out, "1. Hammer")

	out, err = tool.Call(context.Background(), `{"category":"all beauty"}`)
	require.NoError(t, err)
	assert.Contains(t, out, "1. Rose Moisturizer")
	assert.Contains(t, out, "2. Night Cream")

	out, err = tool.Call(context.Background(), "garden")
	require.NoError(t, err)
	assert.Equal(t, "No products with at least 5 ratings found.", out)
}

func TestGraphQuery(t *testing.T) {
	st := seeded()
	st.QueryResult = []map[string]any{{"title": "Rose Moisturizer", "price": 12}}
	mockLLM := &MockLLM{ResponseQueue: []string{
		`{"query": "FOR p IN Products FILTER p.price < 13 RETURN {title: p.title, price: p.price}"}`,
		`{"answer": "Rose Moisturizer costs $12."}`,
	}}
	reg := tools.NewDefaultRegistry(tools.Deps{
		Store: st, LLM: mockLLM, Query: config.Default().Query, Prompts: config.Default().Translation, Log: logger.Nop(),
	})

	out, err := reg.Call(context.Background(), "text_to_query_to_text", "Find products under $13")
	require.NoError(t, err)
	assert.Equal(t, "Rose Moisturizer costs $12.", out)
	require.Len(t, st.Queries, 1)
}

func TestDefaultRegistry_OptionalTools(t *testing.T) {
	reg := tools.NewDefaultRegistry(tools.Deps{Store: seeded(), Query: config.Default().Query, Log: logger.Nop()})
	var names []string
	for _, tl := range reg.List() {
		names = append(names, tl.Name())
	}
	assert.Equal(t, []string{"get_reviews_for_product", "analyze_product_network", "get_best_rated_products", "get_product_reviews_summary"}, names)

	reg = tools.NewDefaultRegistry(tools.Deps{Store: seeded(), LLM: &MockLLM{}, Embedder: &MockEmbedder{}, Query: config.Default().Query, Log: logger.Nop()})
	assert.Len(t, reg.List(), 6)
	assert.Equal(t, "get_product_by_description", reg.List()[0].Name())
}

func TestDefaultRegistry_ConfiguredDetector(t *testing.T) {
	det := &MockDetector{Groups: [][]string{{"B000000002"}}}
	reg := tools.NewDefaultRegistry(tools.Deps{Store: seeded(), Detector: det, Query: config.Default().Query, Log: logger.Nop()})

	out, err := reg.Call(context.Background(), "analyze_product_network", "customer purchase patterns")
	require.NoError(t, err)
	assert.NotEmpty(t, det.Nodes)
	assert.Contains(t, out, "Found 1 groups")
	assert.Contains(t, out, "- Night Cream (ASIN: B000000002)")
	assert.NotContains(t, out, "Rose Moisturizer")
}

func TestRouter(t *testing.T) {
	st := seeded()
	full := tools.NewDefaultRegistry(tools.Deps{Store: st, LLM: &MockLLM{}, Embedder: &MockEmbedder{Vector: []float32{1, 0}}, Query: config.Default().Query, Log: logger.Nop()})
	router := tools.NewRouter(full)

	assert.Equal(t, "get_product_by_description", router.Route("I'm looking for a face cream"))
	assert.Equal(t, "get_reviews_for_product", router.Route("reviews of B000000001"))
	assert.Equal(t, "text_to_query_to_text", router.Route("what do reviews say about cream"))
	assert.Equal(t, "analyze_product_network", router.Route("most popular items"))
	assert.Equal(t, "analyze_product_network", router.Route("hello"))

	bare := tools.NewRouter(tools.NewDefaultRegistry(tools.Deps{Store: st, Query: config.Default().Query, Log: logger.Nop()}))
	assert.Equal(t, "analyze_product_network", bare.Route("recommend a face cream"))

	out, err := router.Answer(context.Background(), "What are the reviews for product B000000002?")
	require.NoError(t, err)
	assert.Contains(t, out, "Reviews for Night Cream (ASIN: B000000002)")
}

// ISBN-10 style ids start with a digit and are stored with the "a" key prefix.
func TestTools_DigitLeadingASIN(t *testing.T) {
	st := storetest.New()
	products, _ := mapper.MapProducts([]records.Record{
		{"parent_asin": "0123456789", "title": "Go in Practice", "main_category": "Books", "price": json.Number("30")},
		{"parent_asin": "0987654321", "title": "Graph Databases", "main_category": "Books", "price": json.Number("35")},
	})
	reviews, _ := mapper.MapReviews([]records.Record{
		{"asin": "0123456789", "parent_asin": "0123456789", "user_id": "U1", "rating": json.Number("5"),
			"title": "Clear", "text": "Good examples", "timestamp": json.Number("1600000000000")},
	})
	for _, p := range products {
		st.Products[p.Key] = p
	}
	for _, r := range reviews {
		st.Reviews[r.Key] = r
	}
	require.Contains(t, st.Products, "a0123456789")

	out, err := tools.NewProductReviews(st).Call(context.Background(), "reviews for 0123456789")
	require.NoError(t, err)
	assert.Contains(t, out, "Go in Practice")
	assert.Contains(t, out, "Good examples")

	network := tools.NewNetwork(st, nil, tools.NetworkOptions{})
	out, err = network.Call(context.Background(), "products related to 0123456789")
	require.NoError(t, err)
	assert.Contains(t, out, "Analysis for product: Go in Practice")
	assert.Contains(t, out, "Graph Databases")
}
