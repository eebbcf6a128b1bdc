package store

import (
	"fmt"
	"strings"

	"github.com/agenthands/reviewgraph/internal/core/model"
)

var nodeFields = map[string][]string{
	model.Products.Name: {"title", "description", "features", "features_text", "main_category", "categories",
		"price", "average_rating", "rating_count", "store", "images", "parent_asin", "original_id", "embedding"},
	model.Reviews.Name:    {"asin", "parent_asin", "user_id", "rating", "title", "text", "timestamp", "helpful_votes", "verified_purchase", "images", "embedding"},
	model.Users.Name:      {"original_user_id", "review_count"},
	model.Categories.Name: {"name", "level"},
}

// DescribeSchema renders the graph layout for query generation. keyField is the
// property holding document keys in the backend ("_key" or "key").
func DescribeSchema(language, keyField string, counts map[string]int64) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Query language: %s\n", language)
	b.WriteString("Nodes:\n")
	for _, c := range model.NodeCollections {
		name := c.Name
		if language == "Cypher" {
			name = ":" + c.Label
		}
		fmt.Fprintf(&b, "- %s (%d) fields: %s, %s\n", name, counts[c.Name], keyField, strings.Join(nodeFields[c.Name], ", "))
	}
	b.WriteString("Edges:\n")
	for _, c := range model.EdgeCollections {
		from, _ := model.Lookup(c.From)
		to, _ := model.Lookup(c.To)
		if language == "Cypher" {
			fmt.Fprintf(&b, "- (:%s)-[:%s]->(:%s) (%d)\n", from.Label, c.Label, to.Label, counts[c.Name])
		} else {
			fmt.Fprintf(&b, "- %s: %s -> %s (%d)\n", c.Name, from.Name, to.Name, counts[c.Name])
		}
	}
	return b.String()
}
