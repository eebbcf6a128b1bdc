package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/agenthands/reviewgraph/internal/llm"
	"github.com/agenthands/reviewgraph/internal/store"
)

const NoProductsFound = "No products found matching your description."

// DescriptionSearch finds products whose embedding is close to the query text.
type DescriptionSearch struct {
	embedder  llm.EmbedderClient
	reader    store.Reader
	threshold float64
	topK      int
}

func NewDescriptionSearch(embedder llm.EmbedderClient, reader store.Reader, threshold float64, topK int) *DescriptionSearch {
	return &DescriptionSearch{embedder: embedder, reader: reader, threshold: threshold, topK: topK}
}

func (t *DescriptionSearch) Name() string { return "get_product_by_description" }

func (t *DescriptionSearch) Description() string {
	return "Finds products matching a free-text description by comparing it with product titles, features and descriptions."
}

func (t *DescriptionSearch) Parameters() map[string]any {
	return queryParameters("Description of the product the user is looking for")
}

func (t *DescriptionSearch) Call(ctx context.Context, input string) (string, error) {
	query := ParseArgs(input).Query
	if query == "" {
		return NoProductsFound, nil
	}
	vector, err := t.embedder.Embed(ctx, query)
	if err != nil {
		return "", fmt.Errorf("failed to embed description: %w", err)
	}
	matches, err := t.reader.SimilarProducts(ctx, vector, t.threshold, t.topK)
	if err != nil {
		return "", fmt.Errorf("failed to search products: %w", err)
	}
	if len(matches) == 0 {
		return NoProductsFound, nil
	}

	var b strings.Builder
	b.WriteString("Here are products that match your description:\n\n")
	for i, m := range matches {
		fmt.Fprintf(&b, "%d. %s\n", i+1, m.Product.Title)
		fmt.Fprintf(&b, "   Price: %s\n", price(m.Product.Price))
		fmt.Fprintf(&b, "   Rating: %.1f/5.0\n", m.Product.AverageRating)
		fmt.Fprintf(&b, "   ASIN: %s\n", m.Product.Key)
		fmt.Fprintf(&b, "   Match: %.2f\n\n", m.Score)
	}
	return b.String(), nil
}

func price(p float64) string {
	if p <= 0 {
		return "n/a"
	}
	return fmt.Sprintf("$%.2f", p)
}

func title(t string) string {
	if t == "" {
		return UnknownProduct
	}
	return t
}
