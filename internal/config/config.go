package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

var ErrUnknownBackend = errors.New("unknown graph backend")

// Duration decodes TOML strings such as "5s" or "250ms".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(text), err)
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

type LLMConfig struct {
	Provider       string `toml:"provider"`
	Model          string `toml:"model"`
	EmbeddingModel string `toml:"embedding_model"`
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
}

type GraphConfig struct {
	// Backend is "arango" or "memgraph".
	Backend string `toml:"backend"`
}

type ArangoConfig struct {
	URL      string `toml:"url"`
	Database string `toml:"database"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	Graph    string `toml:"graph"`
}

type MemgraphConfig struct {
	URI      string `toml:"uri"`
	User     string `toml:"user"`
	Password string `toml:"password"`
}

type DataConfig struct {
	Dir              string `toml:"dir"`
	Manifest         string `toml:"manifest"`
	IndexURL         string `toml:"index_url"`
	MetaURLBase      string `toml:"meta_url_base"`
	ReviewSampleSize int    `toml:"review_sample_size"`
	MetaSampleSize   int    `toml:"meta_sample_size"`
}

type IngestConfig struct {
	BatchSize     int      `toml:"batch_size"`
	CategoryDelay Duration `toml:"category_delay"`
	// CategoryLimit caps how many manifest entries a run processes. Zero means all.
	CategoryLimit int `toml:"category_limit"`
}

type EmbeddingConfig struct {
	Enabled   bool     `toml:"enabled"`
	BatchSize int      `toml:"batch_size"`
	Delay     Duration `toml:"delay"`
	MaxTokens int      `toml:"max_tokens"`
}

type QueryConfig struct {
	SimilarityThreshold float64 `toml:"similarity_threshold"`
	TopK                int     `toml:"top_k"`
	RelatedLimit        int     `toml:"related_limit"`
	PopularLimit        int     `toml:"popular_limit"`
	MinReviews          int     `toml:"min_reviews"`
	ChunkSize           int     `toml:"chunk_size"`
}

type TranslationPrompts struct {
	Query  string `toml:"query"`
	Answer string `toml:"answer"`
	Merge  string `toml:"merge"`
}

type AgentConfig struct {
	SystemPrompt string `toml:"system_prompt"`
	MaxSteps     int    `toml:"max_steps"`
}

// CardConfig drives product cards built from an uploaded image or a text prompt.
type CardConfig struct {
	IdentifyPrompt string `toml:"identify_prompt"`
	CardPrompt     string `toml:"card_prompt"`
	MaxImageBytes  int64  `toml:"max_image_bytes"`
	Alternatives   int    `toml:"alternatives"`
	ReviewLimit    int    `toml:"review_limit"`
}

type CommunityConfig struct {
	// Algorithm is "label_propagation" or "components".
	Algorithm string `toml:"algorithm"`
}

type MemoryConfig struct {
	Backend   string   `toml:"backend"`
	RedisURL  string   `toml:"redis_url"`
	Password  string   `toml:"password"`
	DB        int      `toml:"db"`
	TTL       Duration `toml:"ttl"`
	KeyPrefix string   `toml:"key_prefix"`
	Limit     int      `toml:"limit"`
}

type ServerConfig struct {
	Port string `toml:"port"`
}

type LogConfig struct {
	Mode string `toml:"mode"`
}

type Config struct {
	LLM         LLMConfig          `toml:"llm"`
	Graph       GraphConfig        `toml:"graph"`
	Arango      ArangoConfig       `toml:"arango"`
	Memgraph    MemgraphConfig     `toml:"memgraph"`
	Data        DataConfig         `toml:"data"`
	Ingest      IngestConfig       `toml:"ingest"`
	Embedding   EmbeddingConfig    `toml:"embedding"`
	Query       QueryConfig        `toml:"query"`
	Translation TranslationPrompts `toml:"translation"`
	Agent       AgentConfig        `toml:"agent"`
	Card        CardConfig         `toml:"card"`
	Community   CommunityConfig    `toml:"community"`
	Memory      MemoryConfig       `toml:"memory"`
	Server      ServerConfig       `toml:"server"`
	Log         LogConfig          `toml:"log"`
}

// Default returns a configuration usable without any file.
func Default() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider:       "openai",
			Model:          "gpt-4o-mini",
			EmbeddingModel: "text-embedding-3-small",
		},
		Graph: GraphConfig{Backend: "arango"},
		Arango: ArangoConfig{
			URL:      "http://localhost:8529",
			Database: "_system",
			User:     "root",
			Graph:    "AmazonReviews",
		},
		Memgraph: MemgraphConfig{URI: "bolt://localhost:7687"},
		Data: DataConfig{
			Dir:              "data",
			Manifest:         "data/amazon_review_urls.txt",
			IndexURL:         "https://mcauleylab.ucsd.edu/public_datasets/data/amazon_2023/raw/review_categories/",
			MetaURLBase:      "https://mcauleylab.ucsd.edu/public_datasets/data/amazon_2023/raw/meta_categories/meta_",
			ReviewSampleSize: 1000,
			MetaSampleSize:   500,
		},
		Ingest: IngestConfig{
			BatchSize:     100,
			CategoryDelay: Duration{5 * time.Second},
		},
		Embedding: EmbeddingConfig{
			Enabled:   true,
			BatchSize: 25,
			Delay:     Duration{time.Second},
			MaxTokens: 8191,
		},
		Query: QueryConfig{
			SimilarityThreshold: 0.7,
			TopK:                5,
			RelatedLimit:        3,
			PopularLimit:        5,
			MinReviews:          5,
			ChunkSize:           20,
		},
		Translation: TranslationPrompts{
			Query:  defaultQueryPrompt,
			Answer: defaultAnswerPrompt,
			Merge:  defaultMergePrompt,
		},
		Agent: AgentConfig{
			SystemPrompt: defaultSystemPrompt,
			MaxSteps:     5,
		},
		Card: CardConfig{
			IdentifyPrompt: defaultIdentifyPrompt,
			CardPrompt:     defaultCardPrompt,
			MaxImageBytes:  10 << 20,
			Alternatives:   3,
			ReviewLimit:    5,
		},
		Community: CommunityConfig{Algorithm: "label_propagation"},
		Memory: MemoryConfig{
			Backend:   "memory",
			RedisURL:  "localhost:6379",
			TTL:       Duration{24 * time.Hour},
			KeyPrefix: "reviewgraph:chat:",
			Limit:     20,
		},
		Server: ServerConfig{Port: "8080"},
		Log:    LogConfig{Mode: "dev"},
	}
}

// Load reads a TOML file on top of Default. Keys missing from the file keep their defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
	}

	cfg := Default()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse TOML: %w", err)
	}

	return cfg, nil
}

// LoadOrDefault loads path when it exists and falls back to Default otherwise.
func LoadOrDefault(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return Load(path)
}

// ApplyEnv overrides file values with environment variables.
func (c *Config) ApplyEnv() {
	setString(&c.LLM.Provider, "LLM_PROVIDER")
	setString(&c.LLM.Model, "LLM_MODEL")
	setString(&c.LLM.EmbeddingModel, "LLM_EMBEDDING_MODEL")
	setString(&c.LLM.APIKey, "OPENAI_API_KEY")
	setString(&c.LLM.APIKey, "LLM_API_KEY")
	setString(&c.LLM.BaseURL, "LLM_BASE_URL")

	setString(&c.Graph.Backend, "GRAPH_BACKEND")
	setString(&c.Arango.URL, "ARANGO_URL")
	setString(&c.Arango.Database, "ARANGO_DATABASE")
	setString(&c.Arango.User, "ARANGO_USER")
	setString(&c.Arango.Password, "ARANGO_PASSWORD")
	setString(&c.Memgraph.URI, "MEMGRAPH_URI")
	setString(&c.Memgraph.User, "MEMGRAPH_USER")
	setString(&c.Memgraph.Password, "MEMGRAPH_PASSWORD")

	setString(&c.Data.Dir, "DATA_DIR")
	setString(&c.Data.Manifest, "DATA_MANIFEST")
	setInt(&c.Data.ReviewSampleSize, "REVIEW_SAMPLE_SIZE")
	setInt(&c.Data.MetaSampleSize, "META_SAMPLE_SIZE")

	if v := os.Getenv("REDIS_URL"); v != "" {
		c.Memory.RedisURL = v
		c.Memory.Backend = "redis"
	}
	setString(&c.Memory.Password, "REDIS_PASSWORD")

	setString(&c.Server.Port, "PORT")
	setString(&c.Log.Mode, "LOG_MODE")
}

// Validate rejects settings the pipeline cannot run with.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Graph.Backend) {
	case "arango", "memgraph":
	default:
		return fmt.Errorf("%w: %q", ErrUnknownBackend, c.Graph.Backend)
	}
	if c.Ingest.BatchSize <= 0 {
		return fmt.Errorf("ingest.batch_size must be positive, got %d", c.Ingest.BatchSize)
	}
	if c.Embedding.BatchSize <= 0 {
		return fmt.Errorf("embedding.batch_size must be positive, got %d", c.Embedding.BatchSize)
	}
	if c.Query.SimilarityThreshold < -1 || c.Query.SimilarityThreshold > 1 {
		return fmt.Errorf("query.similarity_threshold must be within [-1, 1], got %v", c.Query.SimilarityThreshold)
	}
	if c.Query.TopK <= 0 {
		return fmt.Errorf("query.top_k must be positive, got %d", c.Query.TopK)
	}
	switch strings.ToLower(c.Community.Algorithm) {
	case "label_propagation", "components":
	default:
		return fmt.Errorf("community.algorithm must be label_propagation or components, got %q", c.Community.Algorithm)
	}
	if c.Card.MaxImageBytes <= 0 {
		return fmt.Errorf("card.max_image_bytes must be positive, got %d", c.Card.MaxImageBytes)
	}
	switch strings.ToLower(c.Memory.Backend) {
	case "memory", "redis":
	default:
		return fmt.Errorf("memory.backend must be memory or redis, got %q", c.Memory.Backend)
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}
