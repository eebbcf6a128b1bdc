package core_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/agenthands/reviewgraph/internal/fetch"
)

// MockFetcher writes fixed review and metadata lines into a temp dir.
type MockFetcher struct {
	Dir      string
	Reviews  map[string][]string
	Metadata map[string][]string
	Calls    []string
}

func (m *MockFetcher) FetchCategory(ctx context.Context, category, reviewURL string) fetch.Files {
	m.Calls = append(m.Calls, category)
	var files fetch.Files
	if lines, ok := m.Reviews[category]; ok {
		files.Reviews = m.write(category+".jsonl", lines)
	}
	if lines, ok := m.Metadata[category]; ok {
		files.Metadata = m.write("meta_"+category+".jsonl", lines)
	}
	return files
}

func (m *MockFetcher) write(name string, lines []string) string {
	path := filepath.Join(m.Dir, name)
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644); err != nil {
		return ""
	}
	return path
}

// MockEmbedder returns a constant vector per text.
type MockEmbedder struct {
	Calls int
	Err   error
}

func (m *MockEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	m.Calls++
	if m.Err != nil {
		return nil, m.Err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0, 0}
	}
	return out, nil
}

func (m *MockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := m.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func newFetcher(t *testing.T) *MockFetcher {
	t.Helper()
	dir := t.TempDir()
	require.DirExists(t, dir)
	return &MockFetcher{Dir: dir, Reviews: map[string][]string{}, Metadata: map[string][]string{}}
}
