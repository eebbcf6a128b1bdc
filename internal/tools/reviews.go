package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/agenthands/reviewgraph/internal/core/keys"
	"github.com/agenthands/reviewgraph/internal/core/model"
	"github.com/agenthands/reviewgraph/internal/store"
)

const UnknownProduct = "Unknown Product"

const reviewLimit = 5

// productKey resolves the product a tool is asked about: an explicit asin
// argument, an ASIN inside the text, or the text itself, sanitized the way
// product keys are stored.
func productKey(a Args) string {
	if a.ASIN != "" {
		return keys.Sanitize(strings.TrimSpace(a.ASIN), false)
	}
	if asin := ExtractASIN(a.Query); asin != "" {
		return keys.Sanitize(asin, false)
	}
	return keys.Sanitize(strings.TrimSpace(a.Query), false)
}

// productTitle returns UnknownProduct when the product is not stored.
func productTitle(ctx context.Context, reader store.Reader, key string) (string, error) {
	p, err := reader.ProductByKey(ctx, key)
	if errors.Is(err, store.ErrNotFound) {
		return UnknownProduct, nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get product %s: %w", key, err)
	}
	return title(p.Title), nil
}

func writeReviews(b *strings.Builder, reviews []model.Review) {
	for i, r := range reviews {
		fmt.Fprintf(b, "%d. %s - %.1f/5.0 stars\n", i+1, r.Title, r.Rating)
		fmt.Fprintf(b, "   %s\n", r.Text)
		if r.VerifiedPurchase {
			b.WriteString("   (Verified Purchase)\n")
		}
		fmt.Fprintf(b, "   Helpful votes: %d\n\n", r.HelpfulVotes)
	}
}

// ProductReviews lists the most helpful reviews of one product.
type ProductReviews struct {
	reader store.Reader
}

func NewProductReviews(reader store.Reader) *ProductReviews {
	return &ProductReviews{reader: reader}
}

func (t *ProductReviews) Name() string { return "get_reviews_for_product" }

func (t *ProductReviews) Description() string {
	return "Retrieves the most helpful reviews for a product identified by its ASIN."
}

func (t *ProductReviews) Parameters() map[string]any {
	return queryParameters("The product ASIN, or text containing it")
}

func (t *ProductReviews) Call(ctx context.Context, input string) (string, error) {
	key := productKey(ParseArgs(input))
	if key == "" {
		return AskForASIN, nil
	}
	reviews, err := t.reader.ReviewsForProduct(ctx, key, reviewLimit)
	if err != nil {
		return "", fmt.Errorf("failed to get reviews for %s: %w", key, err)
	}
	if len(reviews) == 0 {
		return fmt.Sprintf("No reviews found for product with ASIN %s.", key), nil
	}
	name, err := productTitle(ctx, t.reader, key)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Reviews for %s (ASIN: %s):\n\n", name, key)
	writeReviews(&b, reviews)
	return b.String(), nil
}

// ReviewSummary reports a product's rating distribution next to its top reviews.
type ReviewSummary struct {
	reader store.Reader
}

func NewReviewSummary(reader store.Reader) *ReviewSummary {
	return &ReviewSummary{reader: reader}
}

func (t *ReviewSummary) Name() string { return "get_product_reviews_summary" }

func (t *ReviewSummary) Description() string {
	return "Summarizes the reviews of a product by ASIN: how many reviews gave each star rating, plus the most helpful reviews."
}

func (t *ReviewSummary) Parameters() map[string]any {
	return queryParameters("The product ASIN, or text containing it")
}

func (t *ReviewSummary) Call(ctx context.Context, input string) (string, error) {
	key := productKey(ParseArgs(input))
	if key == "" {
		return AskForASIN, nil
	}
	p, err := t.reader.ProductByKey(ctx, key)
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Sprintf("Could not find product with ASIN %s.", key), nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get product %s: %w", key, err)
	}
	buckets, err := t.reader.RatingDistribution(ctx, key)
	if err != nil {
		return "", fmt.Errorf("failed to get rating distribution for %s: %w", key, err)
	}
	reviews, err := t.reader.ReviewsForProduct(ctx, key, reviewLimit)
	if err != nil {
		return "", fmt.Errorf("failed to get reviews for %s: %w", key, err)
	}

	var total int64
	for _, bkt := range buckets {
		total += bkt.Count
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Review summary for %s (ASIN: %s)\n", title(p.Title), key)
	fmt.Fprintf(&b, "Average rating: %.1f/5.0 from %d ratings\n\n", p.AverageRating, p.RatingCount)
	if total == 0 {
		b.WriteString("No reviews in the graph yet.\n")
		return b.String(), nil
	}
	fmt.Fprintf(&b, "Rating distribution (%d reviews):\n", total)
	for _, bkt := range buckets {
		fmt.Fprintf(&b, "   %d stars: %d\n", bkt.Rating, bkt.Count)
	}
	b.WriteString("\nMost helpful reviews:\n")
	writeReviews(&b, reviews)
	return b.String(), nil
}
