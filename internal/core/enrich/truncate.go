package enrich

import (
	"github.com/pkoukk/tiktoken-go"

	"github.com/agenthands/reviewgraph/internal/logger"
)

const encodingName = "cl100k_base"

// Truncator caps text at a token budget before it is sent for embedding.
type Truncator struct {
	maxTokens int
	enc       *tiktoken.Tiktoken
}

// NewTruncator loads the tokenizer when maxTokens > 0. If the encoding is
// unavailable it falls back to an estimate of four characters per token.
func NewTruncator(maxTokens int, log *logger.Logger) *Truncator {
	t := &Truncator{maxTokens: maxTokens}
	if maxTokens <= 0 {
		return t
	}
	enc, err := tiktoken.GetEncoding(encodingName)
	if err != nil {
		log.Warn("tokenizer unavailable, using character estimate", "encoding", encodingName, "error", err)
		return t
	}
	t.enc = enc
	return t
}

func (t *Truncator) Truncate(text string) string {
	if t == nil || t.maxTokens <= 0 {
		return text
	}
	if t.enc == nil {
		runes := []rune(text)
		if limit := t.maxTokens * 4; len(runes) > limit {
			return string(runes[:limit])
		}
		return text
	}
	tokens := t.enc.Encode(text, nil, nil)
	if len(tokens) <= t.maxTokens {
		return text
	}
	return t.enc.Decode(tokens[:t.maxTokens])
}
