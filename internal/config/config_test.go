package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_CarriesPipelineConstants(t *testing.T) {
	cfg := Default()

	assert.Equal(t, 100, cfg.Ingest.BatchSize)
	assert.Equal(t, 5*time.Second, cfg.Ingest.CategoryDelay.Duration)
	assert.Equal(t, 25, cfg.Embedding.BatchSize)
	assert.Equal(t, 0.7, cfg.Query.SimilarityThreshold)
	assert.Equal(t, 5, cfg.Query.TopK)
	assert.Equal(t, 1000, cfg.Data.ReviewSampleSize)
	assert.Equal(t, 500, cfg.Data.MetaSampleSize)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_OverlaysFileOnDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[graph]
backend = "memgraph"

[ingest]
batch_size = 50
category_delay = "250ms"

[query]
similarity_threshold = 0.8
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "memgraph", cfg.Graph.Backend)
	assert.Equal(t, 50, cfg.Ingest.BatchSize)
	assert.Equal(t, 250*time.Millisecond, cfg.Ingest.CategoryDelay.Duration)
	assert.Equal(t, 0.8, cfg.Query.SimilarityThreshold)
	// untouched sections keep defaults
	assert.Equal(t, 25, cfg.Embedding.BatchSize)
	assert.Equal(t, 5, cfg.Query.TopK)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.toml")
	require.NoError(t, os.WriteFile(path, []byte("[ingest]\ncategory_delay = \"soon\"\n"), 0o644))
	_, err = Load(path)
	assert.Error(t, err)
}

func TestLoadOrDefault_MissingFile(t *testing.T) {
	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	assert.Equal(t, "arango", cfg.Graph.Backend)
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "gemini")
	t.Setenv("OPENAI_API_KEY", "from-openai")
	t.Setenv("LLM_API_KEY", "from-llm")
	t.Setenv("GRAPH_BACKEND", "memgraph")
	t.Setenv("REDIS_URL", "redis:6379")
	t.Setenv("REVIEW_SAMPLE_SIZE", "42")
	t.Setenv("META_SAMPLE_SIZE", "not-a-number")

	cfg := Default()
	cfg.ApplyEnv()

	assert.Equal(t, "gemini", cfg.LLM.Provider)
	assert.Equal(t, "from-llm", cfg.LLM.APIKey)
	assert.Equal(t, "memgraph", cfg.Graph.Backend)
	assert.Equal(t, "redis", cfg.Memory.Backend)
	assert.Equal(t, "redis:6379", cfg.Memory.RedisURL)
	assert.Equal(t, 42, cfg.Data.ReviewSampleSize)
	assert.Equal(t, 500, cfg.Data.MetaSampleSize)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Graph.Backend = "sqlite"
	assert.ErrorIs(t, cfg.Validate(), ErrUnknownBackend)

	cfg = Default()
	cfg.Ingest.BatchSize = 0
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Query.SimilarityThreshold = 1.5
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Memory.Backend = "disk"
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Community.Algorithm = "louvain"
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Card.MaxImageBytes = 0
	assert.Error(t, cfg.Validate())
}

func TestLoad_CommunityAndCard(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[community]
algorithm = "components"

[card]
alternatives = 2
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "components", cfg.Community.Algorithm)
	assert.Equal(t, 2, cfg.Card.Alternatives)
	assert.Equal(t, int64(10<<20), cfg.Card.MaxImageBytes)
	assert.NotEmpty(t, cfg.Card.CardPrompt)
	assert.NoError(t, cfg.Validate())
}
