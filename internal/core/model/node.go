package model

// Document is anything stored under a graph-store key.
type Document interface {
	DocKey() string
}

type Product struct {
	Key            string         `json:"_key"`
	OriginalID     string         `json:"original_id"`
	ParentASIN     string         `json:"parent_asin"`
	Title          string         `json:"title"`
	Description    string         `json:"description"`
	Features       []string       `json:"features"`
	FeaturesText   string         `json:"features_text"`
	MainCategory   string         `json:"main_category"`
	Categories     [][]string     `json:"categories,omitempty"`
	Price          float64        `json:"price"`
	AverageRating  float64        `json:"average_rating"`
	RatingCount    int            `json:"rating_count"`
	Store          string         `json:"store"`
	Images         []string       `json:"images"`
	Details        map[string]any `json:"details,omitempty"`
	BoughtTogether []string       `json:"bought_together,omitempty"`
	Embedding      []float32      `json:"embedding,omitempty"`
}

func (p Product) DocKey() string { return p.Key }

// EmbeddingText is the text embedded for similarity search.
func (p Product) EmbeddingText() string {
	return joinNonEmpty(p.Title, p.FeaturesText, p.Description)
}

type Review struct {
	Key              string    `json:"_key"`
	ASIN             string    `json:"asin"`
	ParentASIN       string    `json:"parent_asin"`
	UserID           string    `json:"user_id"`
	OriginalASIN     string    `json:"original_asin"`
	OriginalUserID   string    `json:"original_user_id"`
	Rating           float64   `json:"rating"`
	Title            string    `json:"title"`
	Text             string    `json:"text"`
	Timestamp        int64     `json:"timestamp"`
	HelpfulVotes     int       `json:"helpful_votes"`
	VerifiedPurchase bool      `json:"verified_purchase"`
	Images           []string  `json:"images"`
	Embedding        []float32 `json:"embedding,omitempty"`
}

func (r Review) DocKey() string { return r.Key }

// ProductRef is the product key a review attaches to.
func (r Review) ProductRef() string {
	if r.ParentASIN != "" {
		return r.ParentASIN
	}
	return r.ASIN
}

func (r Review) EmbeddingText() string {
	return joinNonEmpty(r.Title, r.Text)
}

type User struct {
	Key         string `json:"_key"`
	OriginalID  string `json:"original_user_id"`
	ReviewCount int    `json:"review_count"`
}

func (u User) DocKey() string { return u.Key }

type Category struct {
	Key   string `json:"_key"`
	Name  string `json:"name"`
	Level int    `json:"level"`
}

func (c Category) DocKey() string { return c.Key }

// Documents widens a typed slice for the bulk loader.
func Documents[T Document](items []T) []Document {
	out := make([]Document, len(items))
	for i, item := range items {
		out[i] = item
	}
	return out
}
