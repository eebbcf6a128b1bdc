package tools

import (
	"context"
	"fmt"

	"github.com/agenthands/reviewgraph/internal/core/translate"
	"github.com/agenthands/reviewgraph/internal/logger"
)

// GraphQuery answers free-form questions by generating and running a read-only query.
type GraphQuery struct {
	translator *translate.Translator
	answerer   *translate.Answerer
	log        *logger.Logger
}

func NewGraphQuery(translator *translate.Translator, answerer *translate.Answerer, log *logger.Logger) *GraphQuery {
	return &GraphQuery{translator: translator, answerer: answerer, log: log}
}

func (t *GraphQuery) Name() string { return "text_to_query_to_text" }

func (t *GraphQuery) Description() string {
	return "Translates a natural language question into a graph query, runs it and answers in natural language. " +
		"Use this for complex searches and relationships in the product graph."
}

func (t *GraphQuery) Parameters() map[string]any {
	return queryParameters("The question to answer from the product graph")
}

func (t *GraphQuery) Call(ctx context.Context, input string) (string, error) {
	question := ParseArgs(input).Query
	query, rows, err := t.translator.Run(ctx, question)
	if err != nil {
		return "", err
	}
	t.log.Info("generated query answered", "query", query, "rows", len(rows))

	answer, err := t.answerer.Answer(ctx, question, rows)
	if err != nil {
		return "", fmt.Errorf("failed to answer from query results: %w", err)
	}
	return answer, nil
}
