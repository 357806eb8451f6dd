package predictor

import (
	"errors"
	"fmt"
)

// ForestModel is a random forest classifier. The class probabilities are the
// mean of the per-tree leaf distributions.
type ForestModel struct {
	Trees []Tree `yaml:"trees"`
}

// Tree is a decision tree stored as a flat node list with node 0 as root.
type Tree struct {
	Nodes []Node `yaml:"nodes"`
}

// Node is a split node when Left >= 0 and a leaf otherwise. Samples with
// x[Feature] <= Threshold go left. Leaf values are class weights and are
// normalized to probabilities at load time.
type Node struct {
	Feature   int       `yaml:"feature"`
	Threshold float64   `yaml:"threshold"`
	Left      int       `yaml:"left"`
	Right     int       `yaml:"right"`
	Value     []float64 `yaml:"value,omitempty"`
}

func (n Node) leaf() bool { return n.Left < 0 }

func (m *ForestModel) validate(features, classes int) error {
	if len(m.Trees) == 0 {
		return errors.New("forest has no trees")
	}
	for ti := range m.Trees {
		nodes := m.Trees[ti].Nodes
		if len(nodes) == 0 {
			return fmt.Errorf("tree %d has no nodes", ti)
		}
		for ni := range nodes {
			n := &nodes[ni]
			if n.leaf() {
				if err := normalizeLeaf(n, classes); err != nil {
					return fmt.Errorf("tree %d node %d: %w", ti, ni, err)
				}
				continue
			}
			// Children always follow their parent, which rules out cycles.
			if n.Left <= ni || n.Right <= ni || n.Left >= len(nodes) || n.Right >= len(nodes) {
				return fmt.Errorf("tree %d node %d has invalid children %d/%d", ti, ni, n.Left, n.Right)
			}
			if n.Feature < 0 || n.Feature >= features {
				return fmt.Errorf("tree %d node %d splits on unknown feature %d", ti, ni, n.Feature)
			}
			if !finite(n.Threshold) {
				return fmt.Errorf("tree %d node %d has a non-finite threshold", ti, ni)
			}
		}
	}
	return nil
}

func normalizeLeaf(n *Node, classes int) error {
	if len(n.Value) != classes {
		return fmt.Errorf("leaf has %d values, want %d", len(n.Value), classes)
	}
	var sum float64
	for _, v := range n.Value {
		if v < 0 || !finite(v) {
			return errors.New("leaf has a negative or non-finite value")
		}
		sum += v
	}
	if sum == 0 {
		return errors.New("leaf values sum to zero")
	}
	probs := make([]float64, classes)
	for i, v := range n.Value {
		probs[i] = v / sum
	}
	n.Value = probs
	return nil
}

func (m *ForestModel) predictProba(x []float64) ([]float64, error) {
	var probs []float64
	for ti := range m.Trees {
		leaf := m.Trees[ti].walk(x)
		if probs == nil {
			probs = make([]float64, len(leaf))
		}
		for i, p := range leaf {
			probs[i] += p
		}
	}
	for i := range probs {
		probs[i] /= float64(len(m.Trees))
	}
	return probs, nil
}

func (t *Tree) walk(x []float64) []float64 {
	n := t.Nodes[0]
	for !n.leaf() {
		if x[n.Feature] <= n.Threshold {
			n = t.Nodes[n.Left]
		} else {
			n = t.Nodes[n.Right]
		}
	}
	return n.Value
}
