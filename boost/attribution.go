package boost

import (
	"gonum.org/v1/gonum/mat"

	"github.com/tabforge/gbtune/pkg/errors"
)

// Attribution is an additive per-row per-feature decomposition of the raw
// model score: for every row, Baseline + sum(Values[row, :]) equals the
// ensemble's raw output before any link transform.
type Attribution struct {
	Values   *mat.Dense // rows x features
	Baseline float64    // expected raw score over the training distribution
}

// Attribute decomposes each row's raw score into per-feature contributions.
//
// Within one tree the row's root-to-leaf path is walked and, at every
// split, the change in the subtree's coverage-weighted expected output is
// credited to the split feature. The per-tree credits telescope to
// (leaf value - root mean), so summing over trees gives exact additivity
// with Baseline = init score + sum of root means.
func (m *Model) Attribute(x mat.Matrix) (*Attribution, error) {
	n, cols := x.Dims()
	if cols != m.NumFeatures {
		return nil, errors.NewDimensionError("Model.Attribute", m.NumFeatures, cols, 1)
	}

	baseline := m.InitScore
	for ti := range m.Trees {
		if len(m.Trees[ti].Nodes) > 0 {
			baseline += m.Trees[ti].Nodes[0].Mean
		}
	}

	values := mat.NewDense(n, cols, nil)
	row := make([]float64, cols)
	contrib := make([]float64, cols)
	for i := 0; i < n; i++ {
		mat.Row(row, i, x)
		for j := range contrib {
			contrib[j] = 0
		}
		for ti := range m.Trees {
			attributePath(&m.Trees[ti], row, contrib)
		}
		values.SetRow(i, contrib)
	}

	return &Attribution{Values: values, Baseline: baseline}, nil
}

// attributePath walks the sample's path and accumulates per-feature
// expected-value deltas into contrib.
func attributePath(tree *Tree, x []float64, contrib []float64) {
	if len(tree.Nodes) == 0 {
		return
	}
	at := 0
	for {
		node := &tree.Nodes[at]
		if node.Leaf {
			return
		}
		next := node.Right
		if x[node.Feature] <= node.Threshold {
			next = node.Left
		}
		contrib[node.Feature] += tree.Nodes[next].Mean - node.Mean
		at = next
	}
}
