package mapper

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agenthands/reviewgraph/internal/core/model"
	"github.com/agenthands/reviewgraph/internal/logger"
	"github.com/agenthands/reviewgraph/internal/records"
)

// MockKeyChecker answers existence lookups from a fixed set per collection.
type MockKeyChecker struct {
	Existing map[string]map[string]bool
	Err      map[string]error
	Calls    []string
}

func (m *MockKeyChecker) ExistingKeys(ctx context.Context, c model.Collection, keys []string) (map[string]bool, error) {
	m.Calls = append(m.Calls, c.Name)
	if err := m.Err[c.Name]; err != nil {
		return nil, err
	}
	out := make(map[string]bool)
	for _, k := range keys {
		if m.Existing[c.Name][k] {
			out[k] = true
		}
	}
	return out, nil
}

func decode(t *testing.T, lines ...string) []records.Record {
	t.Helper()
	var out []records.Record
	for _, line := range lines {
		var r records.Record
		dec := json.NewDecoder(strings.NewReader(line))
		dec.UseNumber()
		require.NoError(t, dec.Decode(&r))
		out = append(out, r)
	}
	return out
}

func set(keys ...string) map[string]bool {
	m := make(map[string]bool)
	for _, k := range keys {
		m[k] = true
	}
	return m
}

func TestMapProducts_Defaults(t *testing.T) {
	recs := decode(t, `{"parent_asin":"B000111222","title":"Kettle"}`)

	products, skipped := MapProducts(recs)
	require.Len(t, products, 1)
	assert.Equal(t, 0, skipped)

	p := products[0]
	assert.Equal(t, "B000111222", p.Key)
	assert.Equal(t, "", p.Description)
	assert.Equal(t, []string{}, p.Features)
	assert.Equal(t, 0.0, p.Price)
	assert.Equal(t, []string{}, p.Images)
}

func TestMapProducts_Fields(t *testing.T) {
	recs := decode(t,
		`{"parent_asin":"B01","title":" Lamp ","description":["Bright","", "warm"],"features":["LED",null,"Dimmable"],
		  "main_category":"Home & Kitchen","price":"19.99","average_rating":4.5,"rating_number":"120",
		  "store":"Acme","images":[{"large":"l1"},{"large":"l2"},{"thumb":"t"},{"large":"l3"},{"large":"l4"}],
		  "categories":[["Home","Lighting"],["Deals"]],"details":{"Color":"White"},"bought_together":null}`,
		`{"parent_asin":"","title":"no id"}`,
		`{"title":"missing id"}`,
		`{"parent_asin":"B02","description":"single string","price":"None","categories":["Electronics","Cables"]}`,
	)

	products, skipped := MapProducts(recs)
	require.Len(t, products, 2)
	assert.Equal(t, 2, skipped)

	p := products[0]
	assert.Equal(t, "Lamp", p.Title)
	assert.Equal(t, "Bright warm", p.Description)
	assert.Equal(t, []string{"LED", "Dimmable"}, p.Features)
	assert.Equal(t, "LED Dimmable", p.FeaturesText)
	assert.Equal(t, "Home___Kitchen", p.MainCategory)
	assert.Equal(t, 19.99, p.Price)
	assert.Equal(t, 4.5, p.AverageRating)
	assert.Equal(t, 120, p.RatingCount)
	assert.Equal(t, []string{"l1", "l2", "l3"}, p.Images)
	assert.Equal(t, [][]string{{"Home", "Lighting"}, {"Deals"}}, p.Categories)
	assert.Equal(t, "White", p.Details["Color"])
	assert.Equal(t, []string{}, p.BoughtTogether)

	q := products[1]
	assert.Equal(t, "single string", q.Description)
	assert.Equal(t, 0.0, q.Price)
	assert.Equal(t, [][]string{{"Electronics", "Cables"}}, q.Categories)
}

func TestMapProducts_VariantKeepsParent(t *testing.T) {
	recs := decode(t, `{"parent_asin":"P1","asin":"V1"}`, `{"parent_asin":"P1","asin":"P1"}`)

	products, _ := MapProducts(recs)
	require.Len(t, products, 2)
	assert.Equal(t, "V1", products[0].Key)
	assert.Equal(t, "P1", products[0].ParentASIN)
	assert.Equal(t, "P1", products[1].Key)
}

func TestMapProducts_Idempotent(t *testing.T) {
	recs := decode(t, `{"parent_asin":"B0 1/x","main_category":"Books"}`)
	a, _ := MapProducts(recs)
	b, _ := MapProducts(recs)
	assert.Equal(t, a, b)
	assert.Equal(t, "B0_1_x", a[0].Key)
}

func TestMapReviews(t *testing.T) {
	recs := decode(t,
		`{"asin":"B000111222","user_id":"U1","sort_timestamp":42,"rating":5,"title":"Great","text":"Works",
		  "helpful_vote":3,"verified_purchase":true,"images":[{"large_image_url":"i1"},{"small_image_url":"s"}],"parent_asin":"P9"}`,
		`{"asin":"B2","user_id":"U2","sort_timestamp":"not a number"}`,
		`{"asin":"B3"}`,
		`{"user_id":"U4"}`,
	)

	reviews, skipped := MapReviews(recs)
	require.Len(t, reviews, 2)
	assert.Equal(t, 2, skipped)

	r := reviews[0]
	assert.Equal(t, "B000111222_U1_42", r.Key)
	assert.Equal(t, "P9", r.ParentASIN)
	assert.Equal(t, 5.0, r.Rating)
	assert.Equal(t, 3, r.HelpfulVotes)
	assert.True(t, r.VerifiedPurchase)
	assert.Equal(t, []string{"i1"}, r.Images)
	assert.Equal(t, "P9", r.ProductRef())

	assert.Equal(t, int64(0), reviews[1].Timestamp)
	assert.Equal(t, "B2_U2_0", reviews[1].Key)
}

func TestExtractUsers_CountsPerBatch(t *testing.T) {
	users := ExtractUsers([]model.Review{
		{Key: "r1", UserID: "U1", OriginalUserID: "u-1"},
		{Key: "r2", UserID: "U2"},
		{Key: "r3", UserID: "U1"},
	})
	require.Len(t, users, 2)
	assert.Equal(t, model.User{Key: "U1", OriginalID: "u-1", ReviewCount: 2}, users[0])
	assert.Equal(t, 1, users[1].ReviewCount)
}

func TestExtractCategories(t *testing.T) {
	cats := ExtractCategories([]model.Product{
		{MainCategory: "All Beauty", Categories: [][]string{{"Beauty", "Skin Care"}}},
		{MainCategory: "All Beauty", Categories: [][]string{{"Skin Care", "Face"}}},
		{MainCategory: ""},
	})

	assert.Equal(t, []model.Category{
		{Key: "All_Beauty", Name: "All Beauty", Level: 0},
		{Key: "Beauty", Name: "Beauty", Level: 1},
		{Key: "Skin_Care", Name: "Skin Care", Level: 2},
		{Key: "Face", Name: "Face", Level: 2},
	}, cats)
}

func TestMapEdges_OnlyVerifiedEndpoints(t *testing.T) {
	checker := &MockKeyChecker{Existing: map[string]map[string]bool{
		"Products":   set("P1", "V1"),
		"Reviews":    set("R1", "R2"),
		"Users":      set("U1"),
		"Categories": set("Books"),
	}}
	m := New(checker, logger.Nop())

	products := []model.Product{
		{Key: "P1", ParentASIN: "P1", MainCategory: "Books"},
		{Key: "V1", ParentASIN: "P1", MainCategory: "Missing Cat"},
		{Key: "V2", ParentASIN: "P1"},
	}
	reviews := []model.Review{
		{Key: "R1", ASIN: "P1", UserID: "U1"},
		{Key: "R2", ASIN: "X", UserID: "U2"},
	}

	edges := m.MapEdges(context.Background(), products, reviews)

	assert.Equal(t, []model.Edge{{Key: "P1_R1", From: "Products/P1", To: "Reviews/R1"}}, edges.ByKind["HasReview"])
	assert.Equal(t, []model.Edge{{Key: "R1_U1", From: "Reviews/R1", To: "Users/U1"}}, edges.ByKind["WrittenBy"])
	assert.Equal(t, []model.Edge{{Key: "P1_Books", From: "Products/P1", To: "Categories/Books"}}, edges.ByKind["BelongsToCategory"])
	// P1 -> P1 is suppressed, V2 is not stored
	assert.Equal(t, []model.Edge{{Key: "V1_P1", From: "Products/V1", To: "Products/P1"}}, edges.ByKind["VariantOf"])

	assert.Equal(t, 1, edges.Dropped["HasReview"])
	assert.Equal(t, 1, edges.Dropped["WrittenBy"])
	assert.Equal(t, 1, edges.Dropped["BelongsToCategory"])
	assert.Equal(t, 1, edges.Dropped["VariantOf"])
	assert.Empty(t, edges.Duplicates)
	assert.Equal(t, 4, edges.Total())
}

func TestMapEdges_DuplicatesCountedApart(t *testing.T) {
	checker := &MockKeyChecker{Existing: map[string]map[string]bool{
		"Products": set("P1"),
		"Reviews":  set("R1"),
		"Users":    set("U1"),
	}}
	m := New(checker, logger.Nop())

	reviews := []model.Review{
		{Key: "R1", ASIN: "P1", UserID: "U1"},
		{Key: "R1", ASIN: "P1", UserID: "U1"},
		{Key: "R1", ASIN: "P1", UserID: "U1"},
		{Key: "R9", ASIN: "P1", UserID: "U1"},
	}
	edges := m.MapEdges(context.Background(), nil, reviews)

	assert.Len(t, edges.ByKind["HasReview"], 1)
	assert.Len(t, edges.ByKind["WrittenBy"], 1)
	assert.Equal(t, 2, edges.Duplicates["HasReview"])
	assert.Equal(t, 2, edges.Duplicates["WrittenBy"])
	assert.Equal(t, 1, edges.Dropped["HasReview"])
	assert.Equal(t, 1, edges.Dropped["WrittenBy"])
}

func TestMapEdges_LookupFailureYieldsNoEdges(t *testing.T) {
	checker := &MockKeyChecker{
		Existing: map[string]map[string]bool{"Reviews": set("R1"), "Products": set("P1"), "Users": set("U1")},
		Err:      map[string]error{"Users": errors.New("connection reset")},
	}
	m := New(checker, logger.Nop())

	edges := m.MapEdges(context.Background(), nil, []model.Review{{Key: "R1", ASIN: "P1", UserID: "U1"}})

	assert.Empty(t, edges.ByKind["WrittenBy"])
	assert.Equal(t, 1, edges.Dropped["WrittenBy"])
	assert.Len(t, edges.ByKind["HasReview"], 1)
}

func TestMapNodes(t *testing.T) {
	m := New(&MockKeyChecker{}, logger.Nop())
	n := m.MapNodes(
		decode(t, `{"parent_asin":"P1","main_category":"Books"}`),
		decode(t, `{"asin":"P1","user_id":"U1"}`, `{"asin":"P1"}`),
	)
	assert.Len(t, n.Products, 1)
	assert.Len(t, n.Reviews, 1)
	assert.Equal(t, 1, n.ReviewsSkipped)
	assert.Len(t, n.Users, 1)
	assert.Len(t, n.Categories, 1)
}
