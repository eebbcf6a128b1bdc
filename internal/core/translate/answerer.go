package translate

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/agenthands/reviewgraph/internal/config"
	"github.com/agenthands/reviewgraph/internal/core/model"
	"github.com/agenthands/reviewgraph/internal/llm"
	"github.com/agenthands/reviewgraph/internal/logger"
)

const DefaultChunkSize = 20

const NoResults = "No matching data was found in the product graph."

// Answerer phrases query rows as prose. Large results are answered per chunk
// and the partial answers merged.
type Answerer struct {
	LLM       llm.LLMClient
	Prompts   config.TranslationPrompts
	ChunkSize int
	log       *logger.Logger
}

func NewAnswerer(llmClient llm.LLMClient, prompts config.TranslationPrompts, chunkSize int, log *logger.Logger) *Answerer {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &Answerer{LLM: llmClient, Prompts: prompts, ChunkSize: chunkSize, log: log}
}

func (a *Answerer) Answer(ctx context.Context, question string, rows []map[string]any) (string, error) {
	if len(rows) == 0 {
		return NoResults, nil
	}
	if len(rows) <= a.ChunkSize {
		return a.answerChunk(ctx, question, rows)
	}

	var partials []string
	for i := 0; i < len(rows); i += a.ChunkSize {
		end := i + a.ChunkSize
		if end > len(rows) {
			end = len(rows)
		}
		part, err := a.answerChunk(ctx, question, rows[i:end])
		if err != nil {
			a.log.Warn("chunk answer failed", "offset", i, "error", err)
			continue
		}
		partials = append(partials, part)
	}
	if len(partials) == 0 {
		return "", fmt.Errorf("failed to answer any of %d result chunks", (len(rows)+a.ChunkSize-1)/a.ChunkSize)
	}
	if len(partials) == 1 {
		return partials[0], nil
	}
	return a.merge(ctx, question, partials)
}

func (a *Answerer) answerChunk(ctx context.Context, question string, rows []map[string]any) (string, error) {
	data, err := json.Marshal(rows)
	if err != nil {
		return "", fmt.Errorf("failed to encode results: %w", err)
	}
	return a.generate(ctx, fmt.Sprintf(a.Prompts.Answer, question, string(data)))
}

func (a *Answerer) merge(ctx context.Context, question string, partials []string) (string, error) {
	var b strings.Builder
	for i, p := range partials {
		fmt.Fprintf(&b, "%d. %s\n", i+1, p)
	}
	return a.generate(ctx, fmt.Sprintf(a.Prompts.Merge, question, b.String()))
}

func (a *Answerer) generate(ctx context.Context, prompt string) (string, error) {
	response, err := a.LLM.Generate(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("failed to generate answer: %w", err)
	}
	result, err := llm.DecodeReply[model.GeneratedAnswer](response)
	if err == nil && result.Answer != "" {
		return result.Answer, nil
	}
	// plain-text replies are used as they are
	return strings.TrimSpace(response), nil
}
