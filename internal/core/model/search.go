package model

// ScoredProduct is a product returned by similarity search.
type ScoredProduct struct {
	Product Product `json:"product"`
	Score   float64 `json:"score"`
}

// Stats counts the nodes of each kind.
type Stats struct {
	Products   int64 `json:"products"`
	Reviews    int64 `json:"reviews"`
	Users      int64 `json:"users"`
	Categories int64 `json:"categories"`
}

type RatingBucket struct {
	Rating int   `json:"rating"`
	Count  int64 `json:"count"`
}

// Related groups a product's variants and its nearest-priced category peers.
type Related struct {
	Product  Product   `json:"product"`
	Variants []Product `json:"variants"`
	Similar  []Product `json:"similar"`
}

// CoReview links two products reviewed by the same users.
type CoReview struct {
	A      string `json:"a"`
	B      string `json:"b"`
	Weight int    `json:"weight"`
}
