package tools

import (
	"github.com/agenthands/reviewgraph/internal/config"
	"github.com/agenthands/reviewgraph/internal/core/community"
	"github.com/agenthands/reviewgraph/internal/core/translate"
	"github.com/agenthands/reviewgraph/internal/llm"
	"github.com/agenthands/reviewgraph/internal/logger"
	"github.com/agenthands/reviewgraph/internal/store"
)

type Deps struct {
	Store    store.Store
	LLM      llm.LLMClient
	Embedder llm.EmbedderClient
	// Detector groups co-reviewed products. Nil selects label propagation.
	Detector community.Detector
	Query    config.QueryConfig
	Prompts  config.TranslationPrompts
	Log      *logger.Logger
}

// NewDefaultRegistry registers every tool the dependencies allow. Description
// search needs an embedder and generated queries need an LLM.
func NewDefaultRegistry(d Deps) *Registry {
	r := NewRegistry()
	if d.Embedder != nil {
		r.Register(NewDescriptionSearch(d.Embedder, d.Store, d.Query.SimilarityThreshold, d.Query.TopK))
	}
	r.Register(NewProductReviews(d.Store))
	r.Register(NewNetwork(d.Store, d.Detector, NetworkOptions{
		PopularLimit: d.Query.PopularLimit,
		RelatedLimit: d.Query.RelatedLimit,
	}))
	if d.LLM != nil {
		r.Register(NewGraphQuery(
			translate.NewTranslator(d.LLM, d.Store, d.Prompts, d.Log),
			translate.NewAnswerer(d.LLM, d.Prompts, d.Query.ChunkSize, d.Log),
			d.Log,
		))
	}
	r.Register(NewBestRated(d.Store, d.Query.MinReviews))
	r.Register(NewReviewSummary(d.Store))
	return r
}
