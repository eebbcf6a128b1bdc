package tools

import (
	"context"
)

const (
	descriptionTool = "get_product_by_description"
	reviewsTool     = "get_reviews_for_product"
	networkTool     = "analyze_product_network"
	queryTool       = "text_to_query_to_text"
)

// Router answers a question without a tool-calling model by classifying it
// and calling one tool.
type Router struct {
	registry *Registry
}

func NewRouter(registry *Registry) *Router {
	return &Router{registry: registry}
}

// Route names the tool a question goes to.
func (r *Router) Route(question string) string {
	switch Classify(question) {
	case IntentDescribe:
		if r.has(descriptionTool) {
			return descriptionTool
		}
		return r.fallback()
	case IntentReviews:
		if ExtractASIN(question) != "" {
			return reviewsTool
		}
		return r.fallback()
	default:
		return networkTool
	}
}

func (r *Router) Answer(ctx context.Context, question string) (string, error) {
	return r.registry.Call(ctx, r.Route(question), question)
}

// fallback prefers generated queries and ends at graph statistics.
func (r *Router) fallback() string {
	if r.has(queryTool) {
		return queryTool
	}
	return networkTool
}

func (r *Router) has(name string) bool {
	_, ok := r.registry.Get(name)
	return ok
}
