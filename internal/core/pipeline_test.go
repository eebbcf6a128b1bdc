package core_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agenthands/reviewgraph/internal/core"
	"github.com/agenthands/reviewgraph/internal/core/enrich"
	"github.com/agenthands/reviewgraph/internal/core/model"
	"github.com/agenthands/reviewgraph/internal/fetch"
	"github.com/agenthands/reviewgraph/internal/logger"
	"github.com/agenthands/reviewgraph/internal/store/storetest"
)

var beautyMeta = []string{
	`{"parent_asin":"B000000001","title":"Shampoo","main_category":"All Beauty","price":"9.99","average_rating":4.2,"rating_number":10,"categories":["Hair","Shampoo"]}`,
	`{"parent_asin":"B000000002","title":"Conditioner","main_category":"All Beauty","average_rating":3.9,"rating_number":3}`,
	`not json`,
}

var beautyReviews = []string{
	`{"asin":"B000000001","parent_asin":"B000000001","user_id":"U1","rating":5,"title":"Great","text":"Clean hair","timestamp":1600000000000}`,
	`{"asin":"B000000002","parent_asin":"B000000002","user_id":"U1","rating":4,"title":"Fine","text":"Soft","timestamp":1600000000001}`,
	`{"asin":"B000000001","parent_asin":"B000000001","user_id":"U2","rating":2,"text":"Itchy","timestamp":1600000000002}`,
	`{"asin":"B000000009","parent_asin":"B000000009","user_id":"U3","rating":1,"text":"orphan","timestamp":1600000000003}`,
	`{"asin":"","user_id":"U4"}`,
}

func TestProcessCategory_LoadsGraph(t *testing.T) {
	st := storetest.New()
	fetcher := newFetcher(t)
	fetcher.Reviews["All_Beauty"] = beautyReviews
	fetcher.Metadata["All_Beauty"] = beautyMeta

	embedder := &MockEmbedder{}
	enricher := enrich.New(st, embedder, enrich.Options{BatchSize: 2}, logger.Nop())
	p := core.NewPipeline(st, fetcher, enricher, 2, core.Options{ReviewSampleSize: 1000, MetaSampleSize: 500}, logger.Nop())

	rep := p.ProcessCategory(context.Background(), fetch.Entry{Category: "All_Beauty", URL: "http://example/All_Beauty.jsonl.gz"})

	assert.False(t, rep.Skipped)
	assert.NotEmpty(t, rep.RunID)
	assert.Equal(t, 2, rep.Products)
	assert.Equal(t, 4, rep.Reviews)
	assert.Equal(t, 1, rep.ReviewsSkipped)
	assert.Equal(t, 1, rep.Malformed)
	assert.Equal(t, 3, rep.Users)

	assert.Len(t, st.Products, 2)
	assert.Len(t, st.Reviews, 4)
	assert.Len(t, st.Users, 3)
	assert.NotEmpty(t, st.Categories)

	// the orphan review has no product so its HAS_REVIEW edge is dropped
	assert.Len(t, st.Edges[model.HasReview.Name], 3)
	assert.Len(t, st.Edges[model.WrittenBy.Name], 4)
	assert.Equal(t, 1, rep.EdgesDropped[model.HasReview.Name])

	for _, prod := range st.Products {
		assert.NotNil(t, prod.Embedding, prod.Key)
	}
	// the orphan review matches no category and is picked up by the unfiltered pass
	for _, r := range st.Reviews {
		assert.NotNil(t, r.Embedding, r.Key)
	}
	assert.NotNil(t, st.Reviews[keyOf(t, st, "orphan")].Embedding)
	assert.Equal(t, 6, rep.Embedded)
}

func TestProcessCategory_EmbedsUncategorizedProducts(t *testing.T) {
	st := storetest.New()
	fetcher := newFetcher(t)
	fetcher.Reviews["Misc"] = []string{
		`{"asin":"B000000005","parent_asin":"B000000005","user_id":"U1","rating":4,"title":"Works","text":"Does the job","timestamp":1600000000000}`,
	}
	fetcher.Metadata["Misc"] = []string{
		`{"parent_asin":"B000000005","title":"Mystery Gadget","price":"5.00"}`,
	}

	enricher := enrich.New(st, &MockEmbedder{}, enrich.Options{BatchSize: 10}, logger.Nop())
	p := core.NewPipeline(st, fetcher, enricher, 10, core.Options{}, logger.Nop())

	rep := p.ProcessCategory(context.Background(), fetch.Entry{Category: "Misc"})
	require.Len(t, st.Products, 1)
	assert.Empty(t, st.Products["B000000005"].MainCategory)
	assert.NotNil(t, st.Products["B000000005"].Embedding)
	require.Len(t, st.Reviews, 1)
	for _, r := range st.Reviews {
		assert.NotNil(t, r.Embedding)
	}
	assert.Equal(t, 2, rep.Embedded)
}

func keyOf(t *testing.T, st *storetest.MemStore, text string) string {
	t.Helper()
	for k, r := range st.Reviews {
		if r.Text == text {
			return k
		}
	}
	t.Fatalf("no review with text %q", text)
	return ""
}

func TestProcessCategory_Idempotent(t *testing.T) {
	st := storetest.New()
	fetcher := newFetcher(t)
	fetcher.Reviews["All_Beauty"] = beautyReviews
	fetcher.Metadata["All_Beauty"] = beautyMeta
	p := core.NewPipeline(st, fetcher, nil, 100, core.Options{}, logger.Nop())

	entry := fetch.Entry{Category: "All_Beauty"}
	p.ProcessCategory(context.Background(), entry)
	p.ProcessCategory(context.Background(), entry)

	assert.Len(t, st.Products, 2)
	assert.Len(t, st.Reviews, 4)
	assert.Len(t, st.Edges[model.WrittenBy.Name], 4)
}

func TestProcessCategory_SkipsWithoutReviews(t *testing.T) {
	st := storetest.New()
	fetcher := newFetcher(t)
	fetcher.Metadata["Books"] = beautyMeta
	p := core.NewPipeline(st, fetcher, nil, 100, core.Options{}, logger.Nop())

	rep := p.ProcessCategory(context.Background(), fetch.Entry{Category: "Books"})
	assert.True(t, rep.Skipped)
	assert.Empty(t, st.Products)

	fetcher.Reviews["Empty"] = []string{"", "   "}
	rep = p.ProcessCategory(context.Background(), fetch.Entry{Category: "Empty"})
	assert.True(t, rep.Skipped)
}

func TestProcessCategory_ReviewsWithoutMetadata(t *testing.T) {
	st := storetest.New()
	fetcher := newFetcher(t)
	fetcher.Reviews["Toys"] = beautyReviews[:2]
	p := core.NewPipeline(st, fetcher, nil, 100, core.Options{}, logger.Nop())

	rep := p.ProcessCategory(context.Background(), fetch.Entry{Category: "Toys"})
	assert.False(t, rep.Skipped)
	assert.Equal(t, 0, rep.Products)
	assert.Len(t, st.Reviews, 2)
	assert.Equal(t, 2, rep.EdgesDropped[model.HasReview.Name])
}

func TestProcessCategory_FailedCollectionContinues(t *testing.T) {
	st := storetest.New()
	st.ImportErr[model.Users.Name] = errors.New("users unavailable")
	fetcher := newFetcher(t)
	fetcher.Reviews["All_Beauty"] = beautyReviews
	fetcher.Metadata["All_Beauty"] = beautyMeta
	p := core.NewPipeline(st, fetcher, nil, 100, core.Options{}, logger.Nop())

	rep := p.ProcessCategory(context.Background(), fetch.Entry{Category: "All_Beauty"})

	assert.Equal(t, int64(0), rep.Written[model.Users.Name])
	assert.Len(t, st.Reviews, 4)
	assert.Empty(t, st.Edges[model.WrittenBy.Name])
	assert.Len(t, st.Edges[model.HasReview.Name], 3)
}

func TestProcessCategory_SampleSize(t *testing.T) {
	st := storetest.New()
	fetcher := newFetcher(t)
	fetcher.Reviews["All_Beauty"] = beautyReviews
	p := core.NewPipeline(st, fetcher, nil, 100, core.Options{ReviewSampleSize: 2}, logger.Nop())

	rep := p.ProcessCategory(context.Background(), fetch.Entry{Category: "All_Beauty"})
	assert.Equal(t, 2, rep.Reviews)
}

func TestProcessAll_SequentialWithDelay(t *testing.T) {
	st := storetest.New()
	fetcher := newFetcher(t)
	fetcher.Reviews["A"] = beautyReviews[:1]
	fetcher.Reviews["B"] = beautyReviews[1:2]
	p := core.NewPipeline(st, fetcher, nil, 100, core.Options{CategoryDelay: 20 * time.Millisecond}, logger.Nop())

	start := time.Now()
	reports := p.ProcessAll(context.Background(), fetch.Manifest{{Category: "A"}, {Category: "missing"}, {Category: "B"}})

	require.Len(t, reports, 3)
	assert.Equal(t, []string{"A", "missing", "B"}, fetcher.Calls)
	assert.True(t, reports[1].Skipped)
	assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
	assert.Len(t, st.Reviews, 2)
}

func TestProcessAll_StopsOnCancel(t *testing.T) {
	st := storetest.New()
	fetcher := newFetcher(t)
	p := core.NewPipeline(st, fetcher, nil, 100, core.Options{CategoryDelay: time.Hour}, logger.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	reports := p.ProcessAll(ctx, fetch.Manifest{{Category: "A"}, {Category: "B"}})
	assert.Len(t, reports, 0)
}
