package boost

import (
	"gonum.org/v1/gonum/mat"

	"github.com/tabforge/gbtune/core/parallel"
	"github.com/tabforge/gbtune/pkg/errors"
)

// Model is a fitted boosted-tree ensemble. Beyond prediction it exposes
// the hyperparameters it was trained with and split-gain importances.
type Model struct {
	Trees       []Tree
	InitScore   float64
	Objective   Objective
	NumFeatures int
	Params      Params
}

// Train is the package entry point: validate, build a trainer, fit.
func Train(params Params, x *mat.Dense, y []float64) (*Model, error) {
	trainer, err := NewTrainer(params)
	if err != nil {
		return nil, err
	}
	return trainer.Fit(x, y)
}

// Predict returns the raw ensemble score per row: the init score plus the
// sum of tree outputs. For the binary objective this is the log-odds.
func (m *Model) Predict(x mat.Matrix) ([]float64, error) {
	n, cols := x.Dims()
	if cols != m.NumFeatures {
		return nil, errors.NewDimensionError("Model.Predict", m.NumFeatures, cols, 1)
	}
	out := make([]float64, n)
	parallel.Parallelize(n, func(start, end int) {
		row := make([]float64, cols)
		for i := start; i < end; i++ {
			mat.Row(row, i, x)
			score := m.InitScore
			for ti := range m.Trees {
				score += m.Trees[ti].Predict(row)
			}
			out[i] = score
		}
	})
	return out, nil
}

// PredictProba maps raw scores through the sigmoid link. Only valid for
// the binary objective.
func (m *Model) PredictProba(x mat.Matrix) ([]float64, error) {
	if m.Objective != ObjectiveBinary {
		return nil, errors.NewValueError("Model.PredictProba", "objective is not binary classification")
	}
	raw, err := m.Predict(x)
	if err != nil {
		return nil, err
	}
	for i, v := range raw {
		raw[i] = sigmoid(v)
	}
	return raw, nil
}

// FeatureImportance returns the total split gain accumulated per feature.
func (m *Model) FeatureImportance() []float64 {
	importance := make([]float64, m.NumFeatures)
	for ti := range m.Trees {
		for ni := range m.Trees[ti].Nodes {
			node := &m.Trees[ti].Nodes[ni]
			if !node.Leaf && node.Feature >= 0 {
				importance[node.Feature] += node.Gain
			}
		}
	}
	return importance
}
