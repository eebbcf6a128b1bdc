package model

import "strings"

// Edge connects two documents. From and To are full document ids ("Products/B01").
type Edge struct {
	Key  string `json:"_key"`
	From string `json:"_from"`
	To   string `json:"_to"`
}

func (e Edge) DocKey() string { return e.Key }

// DocID joins a collection name and key into a document id.
func DocID(collection, key string) string {
	return collection + "/" + key
}

// SplitID is the inverse of DocID.
func SplitID(id string) (collection, key string) {
	collection, key, ok := strings.Cut(id, "/")
	if !ok {
		return "", id
	}
	return collection, key
}

// Collection describes how a document kind is stored in each backend.
type Collection struct {
	Name  string
	Label string
	Edge  bool
	From  string
	To    string
}

var (
	Products   = Collection{Name: "Products", Label: "Product"}
	Reviews    = Collection{Name: "Reviews", Label: "Review"}
	Users      = Collection{Name: "Users", Label: "User"}
	Categories = Collection{Name: "Categories", Label: "Category"}

	HasReview         = Collection{Name: "HasReview", Label: "HAS_REVIEW", Edge: true, From: "Products", To: "Reviews"}
	WrittenBy         = Collection{Name: "WrittenBy", Label: "WRITTEN_BY", Edge: true, From: "Reviews", To: "Users"}
	BelongsToCategory = Collection{Name: "BelongsToCategory", Label: "BELONGS_TO_CATEGORY", Edge: true, From: "Products", To: "Categories"}
	VariantOf         = Collection{Name: "VariantOf", Label: "VARIANT_OF", Edge: true, From: "Products", To: "Products"}
)

var NodeCollections = []Collection{Products, Reviews, Users, Categories}

var EdgeCollections = []Collection{HasReview, WrittenBy, BelongsToCategory, VariantOf}

// Lookup finds a collection by name.
func Lookup(name string) (Collection, bool) {
	for _, c := range NodeCollections {
		if c.Name == name {
			return c, true
		}
	}
	for _, c := range EdgeCollections {
		if c.Name == name {
			return c, true
		}
	}
	return Collection{}, false
}

func joinNonEmpty(parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, " ")
}
