package translate

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/agenthands/reviewgraph/internal/config"
	"github.com/agenthands/reviewgraph/internal/core/model"
	"github.com/agenthands/reviewgraph/internal/llm"
	"github.com/agenthands/reviewgraph/internal/logger"
	"github.com/agenthands/reviewgraph/internal/store"
)

var ErrUnsafeQuery = errors.New("generated query is not read-only")

var (
	literalPattern = regexp.MustCompile(`"(?:[^"\\]|\\.)*"|'(?:[^'\\]|\\.)*'|` + "`[^`]*`")
	writePattern   = regexp.MustCompile(`(?i)\b(CREATE|MERGE|DELETE|DETACH|SET|REMOVE|INSERT|UPDATE|REPLACE|UPSERT|DROP|CALL)\b`)
	fencePattern   = regexp.MustCompile("(?s)^```[a-zA-Z]*\\s*(.*?)\\s*```$")
)

// Translator turns a question into a read-only query for the configured backend.
type Translator struct {
	LLM     llm.LLMClient
	Runner  store.QueryRunner
	Prompts config.TranslationPrompts
	log     *logger.Logger
}

func NewTranslator(llmClient llm.LLMClient, runner store.QueryRunner, prompts config.TranslationPrompts, log *logger.Logger) *Translator {
	return &Translator{
		LLM:     llmClient,
		Runner:  runner,
		Prompts: prompts,
		log:     log,
	}
}

// Generate asks the LLM for a query and checks that it only reads.
func (t *Translator) Generate(ctx context.Context, question string) (string, error) {
	schema, err := t.Runner.Schema(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to describe schema: %w", err)
	}

	prompt := fmt.Sprintf(t.Prompts.Query, t.Runner.QueryLanguage(), schema, question)
	response, err := t.LLM.Generate(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("failed to generate query: %w", err)
	}

	result, err := llm.DecodeReply[model.GeneratedQuery](response)
	if err != nil {
		return "", fmt.Errorf("failed to parse generated query: %w", err)
	}

	query := CleanQuery(result.Query)
	if query == "" {
		return "", fmt.Errorf("failed to generate query: empty query")
	}
	if err := CheckReadOnly(query); err != nil {
		return "", err
	}
	return query, nil
}

// Run generates a query and executes it.
func (t *Translator) Run(ctx context.Context, question string) (string, []map[string]any, error) {
	query, err := t.Generate(ctx, question)
	if err != nil {
		return "", nil, err
	}
	t.log.Debug("running generated query", "language", t.Runner.QueryLanguage(), "query", query)

	rows, err := t.Runner.RawQuery(ctx, query)
	if err != nil {
		return query, nil, fmt.Errorf("failed to run generated query: %w", err)
	}
	return query, rows, nil
}

// CleanQuery strips markdown fences and a trailing semicolon.
func CleanQuery(query string) string {
	query = strings.TrimSpace(query)
	if m := fencePattern.FindStringSubmatch(query); m != nil {
		query = m[1]
	}
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(query), ";"))
}

// CheckReadOnly rejects queries containing write clauses or procedure calls outside string literals.
func CheckReadOnly(query string) error {
	stripped := literalPattern.ReplaceAllString(query, `""`)
	if m := writePattern.FindString(stripped); m != "" {
		return fmt.Errorf("%w: contains %s", ErrUnsafeQuery, strings.ToUpper(m))
	}
	return nil
}
