package community

import (
	"sort"

	"github.com/agenthands/reviewgraph/internal/core/model"
)

// LabelPropagationDetector groups products with the label propagation algorithm.
type LabelPropagationDetector struct {
	MaxIterations int
}

func NewLabelPropagationDetector() *LabelPropagationDetector {
	return &LabelPropagationDetector{
		MaxIterations: 20,
	}
}

func (d *LabelPropagationDetector) Detect(nodes []string, edges []model.CoReview) ([][]string, error) {
	if len(nodes) == 0 {
		return nil, nil
	}

	adj := buildAdjacency(nodes, edges)

	// every node starts in its own community
	labels := make(map[string]string, len(nodes))
	for _, n := range nodes {
		labels[n] = n
	}

	for iter := 0; iter < d.MaxIterations; iter++ {
		changeCount := 0

		for _, u := range nodes {
			neighbors := adj[u]
			if len(neighbors) == 0 {
				continue
			}

			labelWeights := make(map[string]int)
			maxWeight := 0
			for v, weight := range neighbors {
				label := labels[v]
				labelWeights[label] += weight
				if labelWeights[label] > maxWeight {
					maxWeight = labelWeights[label]
				}
			}

			var candidates []string
			for label, w := range labelWeights {
				if w == maxWeight {
					candidates = append(candidates, label)
				}
			}
			// ties go to the lexicographically largest label so runs are repeatable
			sort.Strings(candidates)
			best := candidates[len(candidates)-1]

			if labels[u] != best {
				labels[u] = best
				changeCount++
			}
		}

		if changeCount == 0 {
			break
		}
	}

	clusters := make(map[string][]string)
	for _, n := range nodes {
		clusters[labels[n]] = append(clusters[labels[n]], n)
	}
	return collect(clusters), nil
}

// buildAdjacency turns co-review pairs into an undirected weighted graph over nodes.
// Pairs touching unknown nodes are ignored.
func buildAdjacency(nodes []string, edges []model.CoReview) map[string]map[string]int {
	adj := make(map[string]map[string]int, len(nodes))
	for _, n := range nodes {
		adj[n] = make(map[string]int)
	}
	for _, e := range edges {
		if e.A == e.B {
			continue
		}
		if _, ok := adj[e.A]; !ok {
			continue
		}
		if _, ok := adj[e.B]; !ok {
			continue
		}
		w := e.Weight
		if w <= 0 {
			w = 1
		}
		adj[e.A][e.B] += w
		adj[e.B][e.A] += w
	}
	return adj
}

// collect drops singletons and orders communities largest first.
func collect(clusters map[string][]string) [][]string {
	var communities [][]string
	for _, members := range clusters {
		if len(members) < 2 {
			continue
		}
		sort.Strings(members)
		communities = append(communities, members)
	}
	sort.Slice(communities, func(i, j int) bool {
		if len(communities[i]) != len(communities[j]) {
			return len(communities[i]) > len(communities[j])
		}
		return communities[i][0] < communities[j][0]
	})
	return communities
}
