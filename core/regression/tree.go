package regression

import (
	"errors"
	"fmt"
	"sort"

	"gonum.org/v1/gonum/floats"
)

const leaf = -1

// treeNode is one node of a flattened regression tree. Leaves carry
// Feature == -1. Children are always stored after their parent.
type treeNode struct {
	Feature   int     `json:"f"`
	Threshold float64 `json:"t,omitempty"`
	Left      int     `json:"l,omitempty"`
	Right     int     `json:"r,omitempty"`
	Value     float64 `json:"v"`
}

// Tree is a binary CART regression tree. Samples with x[Feature] <= Threshold
// go left.
type Tree struct {
	Nodes []treeNode `json:"nodes"`
}

func (t *Tree) predict(x []float64) float64 {
	i := 0
	for {
		n := t.Nodes[i]
		if n.Feature == leaf {
			return n.Value
		}
		if x[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
}

// validate checks that every path terminates inside the node slice and only
// reads features below width.
func (t *Tree) validate(width int) error {
	if len(t.Nodes) == 0 {
		return errors.New("empty tree")
	}
	for i, n := range t.Nodes {
		if n.Feature == leaf {
			continue
		}
		if n.Feature < 0 || n.Feature >= width {
			return fmt.Errorf("node %d: feature %d out of range", i, n.Feature)
		}
		if n.Left <= i || n.Right <= i || n.Left >= len(t.Nodes) || n.Right >= len(t.Nodes) {
			return fmt.Errorf("node %d: invalid children %d/%d", i, n.Left, n.Right)
		}
	}
	return nil
}

// treeBuilder grows a tree greedily on the residuals of the given rows.
type treeBuilder struct {
	x        [][]float64
	target   []float64
	features []int
	maxDepth int
	minLeaf  int
	nodes    []treeNode
}

func (b *treeBuilder) build(rows []int) Tree {
	b.nodes = b.nodes[:0]
	b.grow(rows, 0)
	return Tree{Nodes: append([]treeNode(nil), b.nodes...)}
}

func (b *treeBuilder) grow(rows []int, depth int) int {
	pos := len(b.nodes)
	b.nodes = append(b.nodes, treeNode{Feature: leaf, Value: b.mean(rows)})
	if depth >= b.maxDepth || len(rows) < 2*b.minLeaf {
		return pos
	}
	feat, thr, ok := b.bestSplit(rows)
	if !ok {
		return pos
	}
	left := make([]int, 0, len(rows))
	right := make([]int, 0, len(rows))
	for _, r := range rows {
		if b.x[r][feat] <= thr {
			left = append(left, r)
		} else {
			right = append(right, r)
		}
	}
	if len(left) == 0 || len(right) == 0 {
		return pos
	}
	l := b.grow(left, depth+1)
	r := b.grow(right, depth+1)
	b.nodes[pos] = treeNode{Feature: feat, Threshold: thr, Left: l, Right: r, Value: b.nodes[pos].Value}
	return pos
}

func (b *treeBuilder) mean(rows []int) float64 {
	vals := make([]float64, len(rows))
	for i, r := range rows {
		vals[i] = b.target[r]
	}
	return floats.Sum(vals) / float64(len(vals))
}

// bestSplit maximises the reduction of squared error over the candidate
// features. Thresholds sit halfway between consecutive distinct values.
func (b *treeBuilder) bestSplit(rows []int) (feature int, threshold float64, ok bool) {
	n := len(rows)
	sorted := make([]int, n)
	var total float64
	for _, r := range rows {
		total += b.target[r]
	}
	parent := total * total / float64(n)
	bestGain := 1e-12

	for _, f := range b.features {
		copy(sorted, rows)
		sort.Slice(sorted, func(i, j int) bool { return b.x[sorted[i]][f] < b.x[sorted[j]][f] })
		var leftSum float64
		for k := 1; k < n; k++ {
			leftSum += b.target[sorted[k-1]]
			lo, hi := b.x[sorted[k-1]][f], b.x[sorted[k]][f]
			if lo == hi || k < b.minLeaf || n-k < b.minLeaf {
				continue
			}
			rightSum := total - leftSum
			gain := leftSum*leftSum/float64(k) + rightSum*rightSum/float64(n-k) - parent
			if gain > bestGain {
				bestGain = gain
				feature = f
				threshold = lo + (hi-lo)/2
				ok = true
			}
		}
	}
	return feature, threshold, ok
}
