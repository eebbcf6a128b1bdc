// Package card builds product cards from an image or a text prompt, grounded in the product graph.
package card

import (
	"encoding/json"
	"fmt"
)

// DefaultImageMessage is sent with an uploaded image when the user adds no text.
const DefaultImageMessage = "Create a comprehensive product card for this image, including accurate information about features, pricing, and alternatives."

const reviewsURL = "https://www.amazon.com/product-reviews/"

type Alternative struct {
	Name      string  `json:"name"`
	ProductID string  `json:"product_id"`
	Score     float64 `json:"score"`
}

type Prices struct {
	Min float64 `json:"min"`
	Avg float64 `json:"avg"`
}

type Card struct {
	ProductName      string        `json:"product_name"`
	Score            float64       `json:"score"`
	ImageURL         string        `json:"image_url"`
	GeneralReview    string        `json:"general_review"`
	AmazonReviewsRef []string      `json:"amazon_reviews_ref"`
	Alternatives     []Alternative `json:"alternatives"`
	Prices           Prices        `json:"prices"`
	ProductID        string        `json:"product_id"`
	Category         string        `json:"category"`
}

// ErrorCard is returned to clients in place of a card when generation fails.
func ErrorCard(err error) Card {
	return Card{
		ProductName:      "Error",
		GeneralReview:    fmt.Sprintf("Failed to process the request: %v", err),
		AmazonReviewsRef: []string{},
		Alternatives:     []Alternative{},
		Category:         "error",
	}
}

// Seed is the chat context stored for a session after its card is built.
func (c Card) Seed() string {
	data, _ := json.Marshal(c)
	return "Here is the product card we are discussing. Answer follow-up questions about this product.\n" + string(data)
}

func (c *Card) normalize() {
	if c.AmazonReviewsRef == nil {
		c.AmazonReviewsRef = []string{}
	}
	if c.Alternatives == nil {
		c.Alternatives = []Alternative{}
	}
	c.Score = clamp(c.Score)
	for i := range c.Alternatives {
		c.Alternatives[i].Score = clamp(c.Alternatives[i].Score)
	}
}

func clamp(score float64) float64 {
	switch {
	case score < 0:
		return 0
	case score > 5:
		return 5
	}
	return score
}
