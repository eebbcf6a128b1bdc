package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/agenthands/reviewgraph/internal/store"
)

const bestRatedLimit = 10

// BestRated lists the highest rated products with enough ratings to be meaningful.
type BestRated struct {
	reader     store.Reader
	minReviews int
}

func NewBestRated(reader store.Reader, minReviews int) *BestRated {
	if minReviews <= 0 {
		minReviews = 5
	}
	return &BestRated{reader: reader, minReviews: minReviews}
}

func (t *BestRated) Name() string { return "get_best_rated_products" }

func (t *BestRated) Description() string {
	return "Lists the highest rated products, optionally within a category, ignoring products with few ratings."
}

func (t *BestRated) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"category":    map[string]any{"type": "string", "description": "Optional main category name or part of it"},
			"min_reviews": map[string]any{"type": "integer", "description": "Minimum number of ratings (default 5)"},
		},
	}
}

func (t *BestRated) Call(ctx context.Context, input string) (string, error) {
	a := ParseArgs(input)
	category := a.Category
	if category == "" && !strings.HasPrefix(strings.TrimSpace(input), "{") {
		category = a.Query
	}
	minReviews := a.MinReviews
	if minReviews <= 0 {
		minReviews = t.minReviews
	}

	products, err := t.reader.BestRatedProducts(ctx, categoryFilter(category), minReviews, bestRatedLimit)
	if err != nil {
		return "", fmt.Errorf("failed to get best rated products: %w", err)
	}
	if len(products) == 0 {
		return fmt.Sprintf("No products with at least %d ratings found.", minReviews), nil
	}

	var b strings.Builder
	if category != "" {
		fmt.Fprintf(&b, "Best rated products in %q (at least %d ratings):\n\n", category, minReviews)
	} else {
		fmt.Fprintf(&b, "Best rated products (at least %d ratings):\n\n", minReviews)
	}
	for i, p := range products {
		fmt.Fprintf(&b, "%d. %s\n", i+1, title(p.Title))
		fmt.Fprintf(&b, "   Rating: %.1f/5.0 from %d ratings\n", p.AverageRating, p.RatingCount)
		fmt.Fprintf(&b, "   Price: %s\n", price(p.Price))
		fmt.Fprintf(&b, "   ASIN: %s\n\n", p.Key)
	}
	return b.String(), nil
}

// categoryFilter matches the stored form of main categories, where spaces are underscores.
func categoryFilter(category string) string {
	return strings.ReplaceAll(strings.TrimSpace(category), " ", "_")
}
