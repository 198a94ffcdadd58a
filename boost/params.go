// Package boost implements gradient-boosted decision trees for regression
// and binary classification.
//
// The trainer grows depth-capped trees with exact greedy split search on
// second-order gradient statistics: leaf values are -G/(H+lambda) with the
// learning rate folded in, split gain is the standard XGBoost/LightGBM
// formula, and both row subsampling per round and feature sampling per
// split are supported. Training is fully deterministic for a fixed seed.
package boost

import (
	"github.com/tabforge/gbtune/pkg/errors"
)

// Objective selects the loss being minimized.
type Objective string

const (
	// ObjectiveRegression minimizes squared error; predictions are raw scores.
	ObjectiveRegression Objective = "regression"
	// ObjectiveBinary minimizes logistic loss; raw scores are log-odds.
	ObjectiveBinary Objective = "binary"
)

// Params holds the hyperparameters of a boosted-tree model. Any field may
// be fixed up front or overridden per grid point via Merge.
type Params struct {
	TreeCount         int     `json:"tree_count"`
	MaxDepth          int     `json:"max_depth"`
	MinLeafSamples    int     `json:"min_leaf_samples"`
	LearningRate      float64 `json:"learning_rate"`
	SubsampleFraction float64 `json:"subsample_fraction"`
	FeatureFraction   float64 `json:"feature_fraction"`
	MinSplitGain      float64 `json:"min_split_gain"`
	Lambda            float64 `json:"l2_regularization"`

	Objective Objective `json:"objective"`
	Seed      uint64    `json:"seed"`
}

// DefaultParams returns a conservative baseline configuration.
func DefaultParams() Params {
	return Params{
		TreeCount:         100,
		MaxDepth:          6,
		MinLeafSamples:    20,
		LearningRate:      0.1,
		SubsampleFraction: 1.0,
		FeatureFraction:   1.0,
		MinSplitGain:      0.0,
		Lambda:            0.0,
		Objective:         ObjectiveRegression,
	}
}

// Validate reports the first configuration error, before any training starts.
func (p Params) Validate() error {
	switch {
	case p.TreeCount < 1:
		return errors.NewValidationError("tree_count", "must be at least 1", p.TreeCount)
	case p.MaxDepth < 1:
		return errors.NewValidationError("max_depth", "must be at least 1", p.MaxDepth)
	case p.MinLeafSamples < 1:
		return errors.NewValidationError("min_leaf_samples", "must be at least 1", p.MinLeafSamples)
	case p.LearningRate <= 0 || p.LearningRate > 1:
		return errors.NewValidationError("learning_rate", "must be in (0, 1]", p.LearningRate)
	case p.SubsampleFraction <= 0 || p.SubsampleFraction > 1:
		return errors.NewValidationError("subsample_fraction", "must be in (0, 1]", p.SubsampleFraction)
	case p.FeatureFraction <= 0 || p.FeatureFraction > 1:
		return errors.NewValidationError("feature_fraction", "must be in (0, 1]", p.FeatureFraction)
	case p.MinSplitGain < 0:
		return errors.NewValidationError("min_split_gain", "must be non-negative", p.MinSplitGain)
	case p.Lambda < 0:
		return errors.NewValidationError("l2_regularization", "must be non-negative", p.Lambda)
	}
	switch p.Objective {
	case ObjectiveRegression, ObjectiveBinary:
	default:
		return errors.NewValidationError("objective", "must be regression or binary", string(p.Objective))
	}
	return nil
}

// Hyperparameter names recognized by Merge, in canonical order.
var TunableNames = []string{
	"tree_count",
	"max_depth",
	"min_leaf_samples",
	"learning_rate",
	"subsample_fraction",
	"feature_fraction",
	"min_split_gain",
	"l2_regularization",
}

// Merge returns a copy of p with the named hyperparameters overridden.
// Integer-valued parameters are rounded from their float representation.
func (p Params) Merge(values map[string]float64) (Params, error) {
	merged := p
	for name, v := range values {
		switch name {
		case "tree_count":
			merged.TreeCount = roundInt(v)
		case "max_depth":
			merged.MaxDepth = roundInt(v)
		case "min_leaf_samples":
			merged.MinLeafSamples = roundInt(v)
		case "learning_rate":
			merged.LearningRate = v
		case "subsample_fraction":
			merged.SubsampleFraction = v
		case "feature_fraction":
			merged.FeatureFraction = v
		case "min_split_gain":
			merged.MinSplitGain = v
		case "l2_regularization":
			merged.Lambda = v
		default:
			return Params{}, errors.NewValidationError("hyperparameter", "unknown name", name)
		}
	}
	return merged, nil
}

func roundInt(v float64) int {
	if v < 0 {
		return int(v - 0.5)
	}
	return int(v + 0.5)
}
