package community

import (
	"errors"
	"fmt"
	"strings"

	"github.com/agenthands/reviewgraph/internal/core/model"
)

var ErrUnknownAlgorithm = errors.New("unknown community algorithm")

type Detector interface {
	Detect(nodes []string, edges []model.CoReview) ([][]string, error)
}

// NewDetector returns the default detector.
func NewDetector() Detector {
	return NewLabelPropagationDetector()
}

// ByName returns the detector for a configured algorithm name. Empty selects the default.
func ByName(name string) (Detector, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "label_propagation", "lpa":
		return NewLabelPropagationDetector(), nil
	case "components":
		return &ComponentDetector{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, name)
	}
}

// Nodes lists the distinct endpoints of the pairs in first-seen order.
func Nodes(edges []model.CoReview) []string {
	seen := make(map[string]bool)
	var out []string
	for _, e := range edges {
		for _, k := range []string{e.A, e.B} {
			if k != "" && !seen[k] {
				seen[k] = true
				out = append(out, k)
			}
		}
	}
	return out
}

// ComponentDetector treats every connected component as one community.
type ComponentDetector struct{}

func (d *ComponentDetector) Detect(nodes []string, edges []model.CoReview) ([][]string, error) {
	adj := buildAdjacency(nodes, edges)

	visited := make(map[string]bool)
	clusters := make(map[string][]string)
	for _, n := range nodes {
		if visited[n] {
			continue
		}
		var component []string
		d.dfs(n, adj, visited, &component)
		clusters[n] = component
	}
	return collect(clusters), nil
}

func (d *ComponentDetector) dfs(u string, adj map[string]map[string]int, visited map[string]bool, component *[]string) {
	visited[u] = true
	*component = append(*component, u)
	for v := range adj[u] {
		if !visited[v] {
			d.dfs(v, adj, visited, component)
		}
	}
}
