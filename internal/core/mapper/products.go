package mapper

import (
	"strings"

	"github.com/agenthands/reviewgraph/internal/core/keys"
	"github.com/agenthands/reviewgraph/internal/core/model"
	"github.com/agenthands/reviewgraph/internal/records"
)

const maxProductImages = 3

// MapProducts turns metadata records into products. Records without a usable
// parent_asin are skipped and counted.
func MapProducts(recs []records.Record) ([]model.Product, int) {
	products := make([]model.Product, 0, len(recs))
	skipped := 0

	for _, rec := range recs {
		rawParent := asString(rec["parent_asin"])
		parent := keys.Sanitize(rawParent, false)
		if parent == "" {
			skipped++
			continue
		}

		key := parent
		originalID := rawParent
		if rawASIN := asString(rec["asin"]); rawASIN != "" && rawASIN != rawParent {
			if k := keys.Sanitize(rawASIN, false); k != "" {
				key = k
				originalID = rawASIN
			}
		}

		features := textList(rec["features"])
		products = append(products, model.Product{
			Key:            key,
			OriginalID:     originalID,
			ParentASIN:     parent,
			Title:          strings.TrimSpace(asString(rec["title"])),
			Description:    strings.Join(textList(rec["description"]), " "),
			Features:       features,
			FeaturesText:   strings.Join(features, " "),
			MainCategory:   keys.Sanitize(asString(rec["main_category"]), true),
			Categories:     categoryPaths(rec["categories"]),
			Price:          asFloat(rec["price"]),
			AverageRating:  asFloat(rec["average_rating"]),
			RatingCount:    asInt(rec["rating_number"]),
			Store:          strings.TrimSpace(asString(rec["store"])),
			Images:         imageURLs(rec["images"], "large", maxProductImages),
			Details:        asMap(rec["details"]),
			BoughtTogether: textList(rec["bought_together"]),
		})
	}

	return products, skipped
}

// ExtractCategories derives category nodes from products: the main category at
// level 0 and each nested path label at its position + 1. The first occurrence of
// a label wins.
func ExtractCategories(products []model.Product) []model.Category {
	var out []model.Category
	seen := make(map[string]bool)

	add := func(label string, level int) {
		if label == "" || seen[label] {
			return
		}
		key := keys.Sanitize(label, false)
		if key == "" {
			return
		}
		seen[label] = true
		out = append(out, model.Category{Key: key, Name: label, Level: level})
	}

	for _, p := range products {
		add(p.MainCategory, 0)
		for _, path := range p.Categories {
			for i, label := range path {
				add(label, i+1)
			}
		}
	}
	return out
}
