package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/agenthands/reviewgraph/internal/core/community"
	"github.com/agenthands/reviewgraph/internal/core/keys"
	"github.com/agenthands/reviewgraph/internal/store"
)

const AskForASIN = "To find similar products, please provide a valid ASIN (10-character Amazon product ID)."

const (
	coReviewPairLimit = 500
	communityLimit    = 5
	communityTitles   = 5
)

type NetworkOptions struct {
	PopularLimit int
	RelatedLimit int
}

// Network answers popularity, relatedness, community and size questions about the graph.
type Network struct {
	reader   store.Reader
	detector community.Detector
	opts     NetworkOptions
}

func NewNetwork(reader store.Reader, detector community.Detector, opts NetworkOptions) *Network {
	if opts.PopularLimit <= 0 {
		opts.PopularLimit = 5
	}
	if opts.RelatedLimit <= 0 {
		opts.RelatedLimit = 3
	}
	if detector == nil {
		detector = community.NewDetector()
	}
	return &Network{reader: reader, detector: detector, opts: opts}
}

func (t *Network) Name() string { return "analyze_product_network" }

func (t *Network) Description() string {
	return "Analyzes the product network: most popular products, products related to an ASIN, " +
		"groups of products reviewed by the same customers, and overall graph statistics."
}

func (t *Network) Parameters() map[string]any {
	return queryParameters("The analysis request, e.g. 'most popular products' or 'products similar to B0XXXXXXXX'")
}

func (t *Network) Call(ctx context.Context, input string) (string, error) {
	query := ParseArgs(input).Query
	switch Classify(query) {
	case IntentPopular:
		return t.popular(ctx)
	case IntentRelated:
		return t.related(ctx, ExtractASIN(query))
	case IntentCommunities:
		return t.communities(ctx)
	default:
		return t.stats(ctx)
	}
}

func (t *Network) popular(ctx context.Context) (string, error) {
	products, err := t.reader.PopularProducts(ctx, "", t.opts.PopularLimit)
	if err != nil {
		return "", err
	}
	if len(products) == 0 {
		return "No products in the graph yet.", nil
	}
	var b strings.Builder
	b.WriteString("Most popular products based on number of reviews:\n\n")
	for i, p := range products {
		fmt.Fprintf(&b, "%d. %s\n", i+1, title(p.Title))
		fmt.Fprintf(&b, "   Total reviews: %d\n", p.RatingCount)
		fmt.Fprintf(&b, "   Average rating: %.1f/5.0\n", p.AverageRating)
		fmt.Fprintf(&b, "   ASIN: %s\n\n", p.Key)
	}
	return b.String(), nil
}

func (t *Network) related(ctx context.Context, asin string) (string, error) {
	if asin == "" {
		return AskForASIN, nil
	}
	rel, err := t.reader.RelatedProducts(ctx, keys.Sanitize(asin, false), t.opts.RelatedLimit)
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Sprintf("Could not find product with ASIN %s.", asin), nil
	}
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Analysis for product: %s\n\n", title(rel.Product.Title))
	if len(rel.Variants) > 0 {
		b.WriteString("Product variants:\n")
		for i, v := range rel.Variants {
			fmt.Fprintf(&b, "%d. %s\n   Price: %s\n   ASIN: %s\n\n", i+1, title(v.Title), price(v.Price), v.Key)
		}
	}
	if len(rel.Similar) > 0 {
		b.WriteString("Similar products by price and category:\n")
		for i, s := range rel.Similar {
			fmt.Fprintf(&b, "%d. %s\n   Price: %s\n   ASIN: %s\n\n", i+1, title(s.Title), price(s.Price), s.Key)
		}
	}
	if len(rel.Variants) == 0 && len(rel.Similar) == 0 {
		b.WriteString("No variants or similar products found.\n")
	}
	return b.String(), nil
}

func (t *Network) communities(ctx context.Context) (string, error) {
	pairs, err := t.reader.CoReviewPairs(ctx, coReviewPairLimit)
	if err != nil {
		return "", err
	}
	groups, err := t.detector.Detect(community.Nodes(pairs), pairs)
	if err != nil {
		return "", fmt.Errorf("failed to detect communities: %w", err)
	}
	if len(groups) == 0 {
		return "No customer purchase patterns found: no products share reviewers yet.", nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d groups of products reviewed by the same customers:\n\n", len(groups))
	for i, g := range groups {
		if i == communityLimit {
			break
		}
		fmt.Fprintf(&b, "%d. %d products\n", i+1, len(g))
		for j, key := range g {
			if j == communityTitles {
				fmt.Fprintf(&b, "   ... and %d more\n", len(g)-communityTitles)
				break
			}
			name, err := productTitle(ctx, t.reader, key)
			if err != nil {
				name = UnknownProduct
			}
			fmt.Fprintf(&b, "   - %s (ASIN: %s)\n", name, key)
		}
		b.WriteString("\n")
	}
	return b.String(), nil
}

func (t *Network) stats(ctx context.Context) (string, error) {
	s, err := t.reader.Stats(ctx)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(`Graph Analytics Summary:

- Total Products: %d
- Total Reviews: %d
- Total Users: %d
- Total Categories: %d

To get more specific analytics, try asking about:
- Popular or best-selling products
- Similar or related products (with an ASIN)
- Customer purchase patterns
`, s.Products, s.Reviews, s.Users, s.Categories), nil
}
