package ml

import (
	"sort"

	"gonum.org/v1/gonum/floats"
)

// FeatureStats describes one feature's contribution to the fitted tree.
type FeatureStats struct {
	Name            string  `json:"name"`
	ImportanceScore float64 `json:"importance_score"`
	SplitCount      int     `json:"split_count"`
}

// FeatureImportances returns the normalized total Gini decrease contributed
// by each feature, indexed like the training columns. A tree that never
// splits yields all zeros.
func (dt *DecisionTree) FeatureImportances() []float64 {
	importances := make([]float64, dt.NumFeatures)
	for _, node := range dt.Nodes {
		if node.IsLeaf {
			continue
		}
		left := dt.Nodes[node.LeftChild]
		right := dt.Nodes[node.RightChild]
		decrease := float64(node.Samples)*node.Impurity -
			float64(left.Samples)*left.Impurity -
			float64(right.Samples)*right.Impurity
		importances[node.FeatureIdx] += decrease
	}

	if total := floats.Sum(importances); total > 0 {
		floats.Scale(1/total, importances)
	}
	return importances
}

// RankFeatures pairs importances with names, most important first. Names
// must be in training column order.
func (dt *DecisionTree) RankFeatures(names []string) []FeatureStats {
	importances := dt.FeatureImportances()
	splits := make([]int, dt.NumFeatures)
	for _, node := range dt.Nodes {
		if !node.IsLeaf {
			splits[node.FeatureIdx]++
		}
	}

	stats := make([]FeatureStats, 0, len(names))
	for i, name := range names {
		if i >= len(importances) {
			break
		}
		stats = append(stats, FeatureStats{
			Name:            name,
			ImportanceScore: importances[i],
			SplitCount:      splits[i],
		})
	}

	sort.SliceStable(stats, func(a, b int) bool {
		return stats[a].ImportanceScore > stats[b].ImportanceScore
	})
	return stats
}
