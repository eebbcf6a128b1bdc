package enrich

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/agenthands/reviewgraph/internal/core/model"
	"github.com/agenthands/reviewgraph/internal/logger"
	"github.com/agenthands/reviewgraph/internal/store"
)

// MockEmbeddingStore serves candidates from Docs and marks them embedded on SetEmbeddings.
type MockEmbeddingStore struct {
	Docs     []store.EmbeddingCandidate
	Stored   map[string][]float32
	SetErr   error
	FetchErr error
	Fetches  int
	Category string
}

func (m *MockEmbeddingStore) MissingEmbeddings(ctx context.Context, c model.Collection, category string, exclude []string, limit int) ([]store.EmbeddingCandidate, error) {
	m.Fetches++
	m.Category = category
	if m.FetchErr != nil {
		return nil, m.FetchErr
	}
	skip := make(map[string]bool)
	for _, k := range exclude {
		skip[k] = true
	}
	var out []store.EmbeddingCandidate
	for _, d := range m.Docs {
		if len(out) >= limit {
			break
		}
		if skip[d.Key] || m.Stored[d.Key] != nil {
			continue
		}
		out = append(out, d)
	}
	return out, nil
}

func (m *MockEmbeddingStore) SetEmbeddings(ctx context.Context, c model.Collection, vectors map[string][]float32) error {
	if m.SetErr != nil {
		return m.SetErr
	}
	if m.Stored == nil {
		m.Stored = make(map[string][]float32)
	}
	for k, v := range vectors {
		m.Stored[k] = v
	}
	return nil
}

// MockEmbedder returns one vector per text, failing when a text contains FailOn.
type MockEmbedder struct {
	FailOn   string
	Short    bool
	Requests [][]string
}

func (m *MockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return []float32{float32(len(text))}, nil
}

func (m *MockEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	m.Requests = append(m.Requests, texts)
	out := make([][]float32, 0, len(texts))
	for _, t := range texts {
		if m.FailOn != "" && strings.Contains(t, m.FailOn) {
			return nil, errors.New("rate limited")
		}
		out = append(out, []float32{float32(len(t)), 1})
	}
	if m.Short {
		return out[:len(out)-1], nil
	}
	return out, nil
}

func docs(n int, text string) []store.EmbeddingCandidate {
	out := make([]store.EmbeddingCandidate, n)
	for i := range out {
		out[i] = store.EmbeddingCandidate{Key: "k" + string(rune('A'+i)), Text: text}
	}
	return out
}

func TestRun_EmbedsInBatches(t *testing.T) {
	st := &MockEmbeddingStore{Docs: docs(7, "title text")}
	emb := &MockEmbedder{}
	e := New(st, emb, Options{BatchSize: 3}, logger.Nop())

	res := e.Run(context.Background(), model.Products, "Books")

	assert.Equal(t, 7, res.Embedded)
	assert.Equal(t, 3, res.Batches)
	assert.Len(t, st.Stored, 7)
	assert.Equal(t, []int{3, 3, 1}, []int{len(emb.Requests[0]), len(emb.Requests[1]), len(emb.Requests[2])})
	assert.Equal(t, "Books", st.Category)
}

func TestRun_FailedBatchIsExcludedNotRetried(t *testing.T) {
	candidates := []store.EmbeddingCandidate{
		{Key: "a", Text: "ok"},
		{Key: "b", Text: "poison"},
		{Key: "c", Text: "ok"},
		{Key: "d", Text: "ok"},
	}
	st := &MockEmbeddingStore{Docs: candidates}
	emb := &MockEmbedder{FailOn: "poison"}
	e := New(st, emb, Options{BatchSize: 2}, logger.Nop())

	res := e.Run(context.Background(), model.Reviews, "")

	assert.Equal(t, 2, res.Failed)
	assert.Equal(t, 2, res.Embedded)
	assert.Contains(t, st.Stored, "c")
	assert.NotContains(t, st.Stored, "a")
	assert.Len(t, emb.Requests, 2)
}

func TestRun_EmptyTextSkipped(t *testing.T) {
	st := &MockEmbeddingStore{Docs: []store.EmbeddingCandidate{{Key: "a", Text: ""}, {Key: "b", Text: "x"}}}
	res := New(st, &MockEmbedder{}, Options{BatchSize: 5}, logger.Nop()).Run(context.Background(), model.Products, "")

	assert.Equal(t, 1, res.Skipped)
	assert.Equal(t, 1, res.Embedded)
}

func TestRun_LengthMismatchCountsAsFailure(t *testing.T) {
	st := &MockEmbeddingStore{Docs: docs(2, "x")}
	res := New(st, &MockEmbedder{Short: true}, Options{BatchSize: 5}, logger.Nop()).Run(context.Background(), model.Products, "")

	assert.Equal(t, 2, res.Failed)
	assert.Empty(t, st.Stored)
}

func TestRun_WriteBackFailure(t *testing.T) {
	st := &MockEmbeddingStore{Docs: docs(3, "x"), SetErr: errors.New("timeout")}
	res := New(st, &MockEmbedder{}, Options{BatchSize: 5}, logger.Nop()).Run(context.Background(), model.Products, "")

	assert.Equal(t, 3, res.Failed)
	assert.Equal(t, 1, res.Batches)
}

func TestRun_FetchError(t *testing.T) {
	st := &MockEmbeddingStore{FetchErr: errors.New("down")}
	res := New(st, &MockEmbedder{}, Options{}, logger.Nop()).Run(context.Background(), model.Products, "")
	assert.Equal(t, Result{}, res)
	assert.Equal(t, 1, st.Fetches)
}

func TestTruncator_Disabled(t *testing.T) {
	tr := NewTruncator(0, logger.Nop())
	long := strings.Repeat("word ", 1000)
	assert.Equal(t, long, tr.Truncate(long))
}

func TestTruncator_CharacterFallback(t *testing.T) {
	tr := &Truncator{maxTokens: 2}
	assert.Equal(t, "abcdefgh", tr.Truncate("abcdefghijkl"))
	assert.Equal(t, "abc", tr.Truncate("abc"))
}
