package ml

import (
	"errors"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// RegressionTree is a CART tree stored as a flat node slice. Node 0 is the root.
type RegressionTree struct {
	Nodes []TreeNode `json:"nodes"`

	maxDepth       int
	minSamplesLeaf int
}

type TreeNode struct {
	FeatureIdx int     `json:"feature_idx"`
	Threshold  float64 `json:"threshold,omitempty"`
	LeftChild  int     `json:"left_child,omitempty"`
	RightChild int     `json:"right_child,omitempty"`
	Value      float64 `json:"value"`
	IsLeaf     bool    `json:"is_leaf,omitempty"`
}

// NewRegressionTree returns an untrained tree. maxDepth <= 0 grows until leaves are pure.
func NewRegressionTree(maxDepth, minSamplesLeaf int) *RegressionTree {
	if minSamplesLeaf <= 0 {
		minSamplesLeaf = 1
	}
	return &RegressionTree{maxDepth: maxDepth, minSamplesLeaf: minSamplesLeaf}
}

func (t *RegressionTree) Fit(features [][]float64, targets []float64) error {
	if err := checkTrainingSet(features, targets); err != nil {
		return err
	}
	indices := make([]int, len(features))
	for i := range indices {
		indices[i] = i
	}
	return t.fitIndices(features, targets, indices)
}

// fitIndices trains on the rows named by indices, which may repeat (bootstrap samples).
func (t *RegressionTree) fitIndices(features [][]float64, targets []float64, indices []int) error {
	if len(indices) == 0 {
		return errors.New("no training rows")
	}
	if t.minSamplesLeaf <= 0 {
		t.minSamplesLeaf = 1
	}
	t.Nodes = t.buildNode(features, targets, indices, 0)
	return nil
}

func (t *RegressionTree) Predict(features []float64) (float64, error) {
	if len(t.Nodes) == 0 {
		return 0, errors.New("model not trained")
	}
	idx := 0
	for {
		node := t.Nodes[idx]
		if node.IsLeaf {
			return node.Value, nil
		}
		if node.FeatureIdx < 0 || node.FeatureIdx >= len(features) {
			return 0, errors.New("feature index out of range")
		}
		if features[node.FeatureIdx] <= node.Threshold {
			idx = node.LeftChild
		} else {
			idx = node.RightChild
		}
		if idx <= 0 || idx >= len(t.Nodes) {
			return 0, errors.New("invalid tree state")
		}
	}
}

func (t *RegressionTree) buildNode(features [][]float64, targets []float64, indices []int, depth int) []TreeNode {
	values := make([]float64, len(indices))
	for i, idx := range indices {
		values[i] = targets[idx]
	}
	leaf := []TreeNode{{FeatureIdx: -1, Value: stat.Mean(values, nil), IsLeaf: true}}

	if t.maxDepth > 0 && depth >= t.maxDepth {
		return leaf
	}
	if len(indices) < 2*t.minSamplesLeaf || isConstant(values) {
		return leaf
	}

	bestFeature, threshold, ok := findBestSplit(features, targets, indices, t.minSamplesLeaf)
	if !ok {
		return leaf
	}

	leftIdx, rightIdx := partition(features, indices, bestFeature, threshold)
	if len(leftIdx) == 0 || len(rightIdx) == 0 {
		return leaf
	}

	leftNodes := t.buildNode(features, targets, leftIdx, depth+1)
	rightNodes := t.buildNode(features, targets, rightIdx, depth+1)

	root := TreeNode{
		FeatureIdx: bestFeature,
		Threshold:  threshold,
		LeftChild:  1,
		RightChild: 1 + len(leftNodes),
		Value:      leaf[0].Value,
	}

	nodes := make([]TreeNode, 0, 1+len(leftNodes)+len(rightNodes))
	nodes = append(nodes, root)
	nodes = append(nodes, shiftChildren(leftNodes, 1)...)
	nodes = append(nodes, shiftChildren(rightNodes, 1+len(leftNodes))...)
	return nodes
}

// findBestSplit picks the feature/threshold that minimises the summed squared error of
// the two children. Maximising sumL²/nL + sumR²/nR is equivalent and needs only prefix sums.
func findBestSplit(features [][]float64, targets []float64, indices []int, minLeaf int) (int, float64, bool) {
	n := len(indices)
	values := make([]float64, n)
	for i, idx := range indices {
		values[i] = targets[idx]
	}
	total := floats.Sum(values)
	parentScore := total * total / float64(n)

	bestFeature := -1
	bestThreshold := 0.0
	bestScore := parentScore

	sorted := make([]int, n)
	featureCount := len(features[indices[0]])
	for featureIdx := 0; featureIdx < featureCount; featureIdx++ {
		copy(sorted, indices)
		sort.SliceStable(sorted, func(a, b int) bool {
			return features[sorted[a]][featureIdx] < features[sorted[b]][featureIdx]
		})

		leftSum := 0.0
		for k := 1; k < n; k++ {
			leftSum += targets[sorted[k-1]]
			prev := features[sorted[k-1]][featureIdx]
			next := features[sorted[k]][featureIdx]
			if prev == next {
				continue
			}
			if k < minLeaf || n-k < minLeaf {
				continue
			}
			rightSum := total - leftSum
			score := leftSum*leftSum/float64(k) + rightSum*rightSum/float64(n-k)
			if score > bestScore+1e-9*abs(bestScore) {
				bestScore = score
				bestFeature = featureIdx
				bestThreshold = prev/2 + next/2
				if bestThreshold == next {
					bestThreshold = prev
				}
			}
		}
	}
	if bestFeature == -1 {
		return -1, 0, false
	}
	return bestFeature, bestThreshold, true
}

func partition(features [][]float64, indices []int, featureIdx int, threshold float64) ([]int, []int) {
	left := make([]int, 0, len(indices)/2)
	right := make([]int, 0, len(indices)/2)
	for _, idx := range indices {
		if features[idx][featureIdx] <= threshold {
			left = append(left, idx)
		} else {
			right = append(right, idx)
		}
	}
	return left, right
}

// shiftChildren rebases child pointers of a subtree that is placed at offset.
func shiftChildren(nodes []TreeNode, offset int) []TreeNode {
	for i := range nodes {
		if nodes[i].IsLeaf {
			continue
		}
		nodes[i].LeftChild += offset
		nodes[i].RightChild += offset
	}
	return nodes
}

func isConstant(values []float64) bool {
	if len(values) == 0 {
		return true
	}
	return floats.Min(values) == floats.Max(values)
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func checkTrainingSet(features [][]float64, targets []float64) error {
	if len(features) == 0 || len(targets) == 0 {
		return errors.New("features or targets empty")
	}
	if len(features) != len(targets) {
		return errors.New("features and targets size mismatch")
	}
	width := len(features[0])
	if width == 0 {
		return errors.New("features have no columns")
	}
	for _, row := range features {
		if len(row) != width {
			return errors.New("ragged feature matrix")
		}
	}
	return nil
}
