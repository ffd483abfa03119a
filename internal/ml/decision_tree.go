package ml

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/floats"
)

// ErrNotFitted is returned when a tree is used before Fit.
var ErrNotFitted = errors.New("model not trained")

// TreeParams controls tree growth.
type TreeParams struct {
	// MaxDepth limits depth; 0 grows until leaves are pure.
	MaxDepth int `json:"max_depth"`
	// MinSamplesSplit is the smallest node that may be split (at least 2).
	MinSamplesSplit int `json:"min_samples_split"`
	// Seed drives the order in which candidate features are examined.
	Seed int64 `json:"seed"`
}

// DefaultTreeParams returns an unbounded tree with seed 42.
func DefaultTreeParams() TreeParams {
	return TreeParams{MinSamplesSplit: 2, Seed: 42}
}

// DecisionTree is a CART classifier using Gini impurity. Nodes are stored in
// pre-order; node 0 is the root.
type DecisionTree struct {
	Params      TreeParams `json:"params"`
	Classes     []string   `json:"classes"`
	NumFeatures int        `json:"n_features"`
	Nodes       []TreeNode `json:"nodes"`
}

// TreeNode is either a split (Leaf false) or a leaf. Counts holds the
// training class counts reaching the node, indexed like Classes.
type TreeNode struct {
	FeatureIdx int       `json:"feature_idx"`
	Threshold  float64   `json:"threshold"`
	LeftChild  int       `json:"left_child"`
	RightChild int       `json:"right_child"`
	Counts     []float64 `json:"counts"`
	Samples    int       `json:"samples"`
	Impurity   float64   `json:"impurity"`
	IsLeaf     bool      `json:"is_leaf"`
}

// NewDecisionTree creates an unfitted tree.
func NewDecisionTree(params TreeParams) *DecisionTree {
	if params.MinSamplesSplit < 2 {
		params.MinSamplesSplit = 2
	}
	if params.MaxDepth < 0 {
		params.MaxDepth = 0
	}
	return &DecisionTree{Params: params}
}

// Fit grows the tree on features and labels. Classes are sorted so that the
// probability vector layout does not depend on row order.
func (dt *DecisionTree) Fit(features [][]float64, labels []string) error {
	if len(features) == 0 || len(labels) == 0 {
		return errors.New("features or labels empty")
	}
	if len(features) != len(labels) {
		return fmt.Errorf("features and labels size mismatch: %d != %d", len(features), len(labels))
	}
	width := len(features[0])
	if width == 0 {
		return errors.New("rows have no features")
	}
	for i, row := range features {
		if len(row) != width {
			return fmt.Errorf("row %d has %d features, expected %d", i, len(row), width)
		}
		for j, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("row %d feature %d is not finite", i, j)
			}
		}
	}

	classes := uniqueSorted(labels)
	classIdx := make(map[string]int, len(classes))
	for i, c := range classes {
		classIdx[c] = i
	}
	y := make([]int, len(labels))
	for i, label := range labels {
		y[i] = classIdx[label]
	}

	dt.Classes = classes
	dt.NumFeatures = width
	dt.Nodes = nil

	idx := make([]int, len(features))
	for i := range idx {
		idx[i] = i
	}
	rng := rand.New(rand.NewSource(dt.Params.Seed))
	dt.grow(features, y, idx, 0, rng)
	return nil
}

// grow appends the subtree for idx and returns its root position.
func (dt *DecisionTree) grow(features [][]float64, y []int, idx []int, depth int, rng *rand.Rand) int {
	counts := classCounts(y, idx, len(dt.Classes))
	id := len(dt.Nodes)
	dt.Nodes = append(dt.Nodes, TreeNode{
		FeatureIdx: -1,
		LeftChild:  -1,
		RightChild: -1,
		Counts:     counts,
		Samples:    len(idx),
		Impurity:   gini(counts, float64(len(idx))),
		IsLeaf:     true,
	})

	if dt.Nodes[id].Impurity == 0 || len(idx) < dt.Params.MinSamplesSplit {
		return id
	}
	if dt.Params.MaxDepth > 0 && depth >= dt.Params.MaxDepth {
		return id
	}

	feature, threshold, ok := dt.findBestSplit(features, y, idx, counts, rng)
	if !ok {
		return id
	}

	leftIdx, rightIdx := splitIndices(features, idx, feature, threshold)
	left := dt.grow(features, y, leftIdx, depth+1, rng)
	right := dt.grow(features, y, rightIdx, depth+1, rng)

	node := &dt.Nodes[id]
	node.FeatureIdx = feature
	node.Threshold = threshold
	node.LeftChild = left
	node.RightChild = right
	node.IsLeaf = false
	return id
}

// findBestSplit scans every feature, in a seeded random order, for the
// threshold with the lowest weighted child impurity. The first candidate
// wins ties.
func (dt *DecisionTree) findBestSplit(features [][]float64, y []int, idx []int, parent []float64, rng *rand.Rand) (int, float64, bool) {
	n := float64(len(idx))
	bestFeature := -1
	bestThreshold := 0.0
	bestImpurity := math.Inf(1)

	order := make([]int, len(idx))
	left := make([]float64, len(parent))
	right := make([]float64, len(parent))

	for _, f := range rng.Perm(dt.NumFeatures) {
		copy(order, idx)
		sort.SliceStable(order, func(a, b int) bool {
			return features[order[a]][f] < features[order[b]][f]
		})

		for i := range left {
			left[i] = 0
		}
		copy(right, parent)

		for i := 0; i < len(order)-1; i++ {
			c := y[order[i]]
			left[c]++
			right[c]--

			v, next := features[order[i]][f], features[order[i+1]][f]
			if next <= v {
				continue
			}

			nl := float64(i + 1)
			nr := n - nl
			impurity := (nl*gini(left, nl) + nr*gini(right, nr)) / n
			if impurity < bestImpurity {
				bestImpurity = impurity
				bestFeature = f
				bestThreshold = midpoint(v, next)
			}
		}
	}

	if bestFeature == -1 {
		return -1, 0, false
	}
	return bestFeature, bestThreshold, true
}

// PredictProba returns the class distribution of the leaf reached by x,
// indexed like Classes.
func (dt *DecisionTree) PredictProba(x []float64) ([]float64, error) {
	leaf, err := dt.leaf(x)
	if err != nil {
		return nil, err
	}
	proba := make([]float64, len(leaf.Counts))
	copy(proba, leaf.Counts)
	floats.Scale(1/floats.Sum(proba), proba)
	return proba, nil
}

// Predict returns the most probable class and its probability. Ties go to
// the class that sorts first.
func (dt *DecisionTree) Predict(x []float64) (string, float64, error) {
	proba, err := dt.PredictProba(x)
	if err != nil {
		return "", 0, err
	}
	best := floats.MaxIdx(proba)
	return dt.Classes[best], proba[best], nil
}

func (dt *DecisionTree) leaf(x []float64) (*TreeNode, error) {
	if len(dt.Nodes) == 0 {
		return nil, ErrNotFitted
	}
	if len(x) != dt.NumFeatures {
		return nil, fmt.Errorf("expected %d features, got %d", dt.NumFeatures, len(x))
	}
	for i, v := range x {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("feature %d is not finite", i)
		}
	}

	idx := 0
	for steps := 0; steps <= len(dt.Nodes); steps++ {
		node := &dt.Nodes[idx]
		if node.IsLeaf {
			return node, nil
		}
		if x[node.FeatureIdx] <= node.Threshold {
			idx = node.LeftChild
		} else {
			idx = node.RightChild
		}
		if idx < 0 || idx >= len(dt.Nodes) {
			return nil, errors.New("invalid tree state")
		}
	}
	return nil, errors.New("invalid tree state: cycle detected")
}

// Depth returns the length of the longest root-to-leaf path.
func (dt *DecisionTree) Depth() int {
	if len(dt.Nodes) == 0 {
		return 0
	}
	var walk func(idx int) int
	walk = func(idx int) int {
		node := dt.Nodes[idx]
		if node.IsLeaf {
			return 0
		}
		return 1 + max(walk(node.LeftChild), walk(node.RightChild))
	}
	return walk(0)
}

// Validate checks the structural integrity of a tree, typically one that
// was just deserialized.
func (dt *DecisionTree) Validate() error {
	if len(dt.Nodes) == 0 {
		return ErrNotFitted
	}
	if len(dt.Classes) == 0 {
		return errors.New("tree has no classes")
	}
	if dt.NumFeatures <= 0 {
		return errors.New("tree has no features")
	}
	for i, node := range dt.Nodes {
		if len(node.Counts) != len(dt.Classes) {
			return fmt.Errorf("node %d: %d class counts for %d classes", i, len(node.Counts), len(dt.Classes))
		}
		for c, v := range node.Counts {
			if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("node %d: invalid count %v for class %s", i, v, dt.Classes[c])
			}
		}
		if node.IsLeaf {
			if floats.Sum(node.Counts) <= 0 {
				return fmt.Errorf("node %d: empty leaf", i)
			}
			continue
		}
		if node.FeatureIdx < 0 || node.FeatureIdx >= dt.NumFeatures {
			return fmt.Errorf("node %d: feature index %d out of range", i, node.FeatureIdx)
		}
		// Pre-order layout: children always come after their parent.
		if node.LeftChild <= i || node.LeftChild >= len(dt.Nodes) ||
			node.RightChild <= i || node.RightChild >= len(dt.Nodes) {
			return fmt.Errorf("node %d: invalid children %d/%d", i, node.LeftChild, node.RightChild)
		}
	}
	return nil
}

func splitIndices(features [][]float64, idx []int, feature int, threshold float64) ([]int, []int) {
	left := make([]int, 0, len(idx))
	right := make([]int, 0, len(idx))
	for _, i := range idx {
		if features[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	return left, right
}

func classCounts(y []int, idx []int, k int) []float64 {
	counts := make([]float64, k)
	for _, i := range idx {
		counts[y[i]]++
	}
	return counts
}

func gini(counts []float64, total float64) float64 {
	if total == 0 {
		return 0
	}
	impurity := 1.0
	for _, c := range counts {
		p := c / total
		impurity -= p * p
	}
	if impurity < 1e-12 {
		return 0
	}
	return impurity
}

// midpoint keeps the threshold strictly below hi even when the halfway
// value rounds up to it.
func midpoint(lo, hi float64) float64 {
	m := lo + (hi-lo)/2
	if m >= hi {
		return lo
	}
	return m
}

func uniqueSorted(labels []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, l := range labels {
		if !seen[l] {
			seen[l] = true
			out = append(out, l)
		}
	}
	sort.Strings(out)
	return out
}
