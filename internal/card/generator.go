package card

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/agenthands/reviewgraph/internal/config"
	"github.com/agenthands/reviewgraph/internal/core/model"
	"github.com/agenthands/reviewgraph/internal/llm"
	"github.com/agenthands/reviewgraph/internal/logger"
	"github.com/agenthands/reviewgraph/internal/store"
)

var (
	ErrNoVision    = errors.New("llm provider cannot read images")
	ErrEmptyPrompt = errors.New("prompt is required")
	ErrUnknown     = errors.New("could not identify a product")
)

// identification is what the vision model reports about an image.
type identification struct {
	ProductName string `json:"product_name"`
	Category    string `json:"category"`
	Description string `json:"description"`
}

type reviewContext struct {
	Rating float64 `json:"rating"`
	Title  string  `json:"title"`
	Text   string  `json:"text"`
}

type productContext struct {
	ASIN          string   `json:"asin"`
	Title         string   `json:"title"`
	Description   string   `json:"description,omitempty"`
	Features      []string `json:"features,omitempty"`
	Category      string   `json:"category,omitempty"`
	Price         float64  `json:"price,omitempty"`
	AverageRating float64  `json:"average_rating"`
	RatingCount   int      `json:"rating_count"`
}

type promptContext struct {
	Identified   identification   `json:"identified"`
	Product      *productContext  `json:"product,omitempty"`
	Reviews      []reviewContext  `json:"reviews,omitempty"`
	Alternatives []productContext `json:"alternatives,omitempty"`
}

// Generator identifies a product, looks it up in the graph and asks the LLM to
// write the card. Graph facts override what the LLM returns.
type Generator struct {
	vision    llm.VisionClient
	llm       llm.LLMClient
	embedder  llm.EmbedderClient
	reader    store.Reader
	cfg       config.CardConfig
	threshold float64
	log       *logger.Logger
}

// NewGenerator builds a generator. vision and embedder may be nil: without
// vision images are rejected, without an embedder cards are not grounded.
func NewGenerator(vision llm.VisionClient, llmClient llm.LLMClient, embedder llm.EmbedderClient, reader store.Reader, cfg config.CardConfig, threshold float64, log *logger.Logger) *Generator {
	if cfg.Alternatives <= 0 {
		cfg.Alternatives = 3
	}
	if cfg.ReviewLimit <= 0 {
		cfg.ReviewLimit = 5
	}
	return &Generator{
		vision:    vision,
		llm:       llmClient,
		embedder:  embedder,
		reader:    reader,
		cfg:       cfg,
		threshold: threshold,
		log:       log,
	}
}

// FromImage builds a card for the product shown in img.
func (g *Generator) FromImage(ctx context.Context, message string, img llm.ImageInput) (Card, error) {
	if g.vision == nil {
		return Card{}, ErrNoVision
	}
	message = strings.TrimSpace(message)
	if message == "" {
		message = DefaultImageMessage
	}
	reply, err := g.vision.GenerateWithImages(ctx, fmt.Sprintf(g.cfg.IdentifyPrompt, message), []llm.ImageInput{img})
	if err != nil {
		return Card{}, fmt.Errorf("failed to read image: %w", err)
	}
	id, err := llm.DecodeReply[identification](reply)
	if err != nil {
		return Card{}, err
	}
	if strings.TrimSpace(id.ProductName) == "" {
		return Card{}, ErrUnknown
	}
	g.log.Info("identified product in image", "product", id.ProductName, "bytes", len(img.Data))
	return g.build(ctx, message, id)
}

// FromText builds a card for the product a prompt describes.
func (g *Generator) FromText(ctx context.Context, prompt string) (Card, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return Card{}, ErrEmptyPrompt
	}
	return g.build(ctx, prompt, identification{ProductName: prompt})
}

func (g *Generator) build(ctx context.Context, request string, id identification) (Card, error) {
	pc := promptContext{Identified: id}

	matches := g.match(ctx, id)
	var product *model.Product
	var related model.Related
	if len(matches) > 0 {
		product = &matches[0].Product
		pc.Product = describe(*product)
		for _, m := range matches[1:] {
			pc.Alternatives = append(pc.Alternatives, *describe(m.Product))
		}

		reviews, err := g.reader.ReviewsForProduct(ctx, product.Key, g.cfg.ReviewLimit)
		if err != nil {
			g.log.Warn("failed to load reviews for card", "asin", product.Key, "error", err)
		}
		for _, r := range reviews {
			pc.Reviews = append(pc.Reviews, reviewContext{Rating: r.Rating, Title: r.Title, Text: r.Text})
		}

		related, err = g.reader.RelatedProducts(ctx, product.Key, g.cfg.Alternatives)
		if err != nil {
			g.log.Warn("failed to load related products for card", "asin", product.Key, "error", err)
		}
		if len(pc.Alternatives) == 0 {
			for _, s := range related.Similar {
				pc.Alternatives = append(pc.Alternatives, *describe(s))
			}
		}
	}

	c, err := g.write(ctx, request, pc)
	if err != nil {
		return Card{}, err
	}
	if c.ProductName == "" {
		c.ProductName = id.ProductName
	}
	if c.Category == "" {
		c.Category = id.Category
	}
	if product != nil {
		g.overlay(&c, *product, related, pc.Alternatives)
	}
	c.normalize()
	return c, nil
}

// match finds the graph products closest to the identified one. Lookup
// failures leave the card ungrounded.
func (g *Generator) match(ctx context.Context, id identification) []model.ScoredProduct {
	if g.embedder == nil || g.reader == nil {
		return nil
	}
	text := strings.TrimSpace(id.ProductName + " " + id.Description)
	vector, err := g.embedder.Embed(ctx, text)
	if err != nil {
		g.log.Warn("failed to embed product for card", "error", err)
		return nil
	}
	matches, err := g.reader.SimilarProducts(ctx, vector, g.threshold, g.cfg.Alternatives+1)
	if err != nil {
		g.log.Warn("failed to search products for card", "error", err)
		return nil
	}
	return matches
}

func (g *Generator) write(ctx context.Context, request string, pc promptContext) (Card, error) {
	if g.llm == nil {
		return Card{}, nil
	}
	data, err := json.Marshal(pc)
	if err != nil {
		return Card{}, fmt.Errorf("failed to encode card context: %w", err)
	}
	reply, err := g.llm.Generate(ctx, fmt.Sprintf(g.cfg.CardPrompt, request, string(data)))
	if err != nil {
		return Card{}, fmt.Errorf("failed to generate card: %w", err)
	}
	return llm.DecodeReply[Card](reply)
}

func (g *Generator) overlay(c *Card, p model.Product, related model.Related, alternatives []productContext) {
	c.ProductID = p.Key
	if p.Title != "" {
		c.ProductName = p.Title
	}
	if p.AverageRating > 0 {
		c.Score = p.AverageRating
	}
	if len(p.Images) > 0 {
		c.ImageURL = p.Images[0]
	}
	if p.MainCategory != "" {
		c.Category = strings.ReplaceAll(p.MainCategory, "_", " ")
	}
	if c.GeneralReview == "" {
		c.GeneralReview = p.Description
	}
	c.AmazonReviewsRef = []string{reviewsURL + publicASIN(p)}

	if len(alternatives) > 0 {
		c.Alternatives = c.Alternatives[:0]
		for _, a := range alternatives {
			c.Alternatives = append(c.Alternatives, Alternative{Name: a.Title, ProductID: a.ASIN, Score: a.AverageRating})
		}
	}
	if prices, ok := priceRange(append([]model.Product{p}, related.Variants...)); ok {
		c.Prices = prices
	}
}

func describe(p model.Product) *productContext {
	return &productContext{
		ASIN:          p.Key,
		Title:         p.Title,
		Description:   p.Description,
		Features:      p.Features,
		Category:      p.MainCategory,
		Price:         p.Price,
		AverageRating: p.AverageRating,
		RatingCount:   p.RatingCount,
	}
}

// priceRange summarizes the known prices of a product and its variants.
func priceRange(products []model.Product) (Prices, bool) {
	var out Prices
	var sum float64
	var n int
	for _, p := range products {
		if p.Price <= 0 {
			continue
		}
		if n == 0 || p.Price < out.Min {
			out.Min = p.Price
		}
		sum += p.Price
		n++
	}
	if n == 0 {
		return Prices{}, false
	}
	out.Avg = sum / float64(n)
	return out, true
}

// publicASIN is the id Amazon knows the product by, before key sanitizing.
func publicASIN(p model.Product) string {
	if p.OriginalID != "" {
		return p.OriginalID
	}
	return p.Key
}
