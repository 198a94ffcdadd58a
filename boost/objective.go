package boost

import (
	"math"

	"github.com/tabforge/gbtune/pkg/errors"
)

// objectiveFunction supplies per-sample gradient statistics for training.
type objectiveFunction interface {
	// Gradient is the first derivative of the loss w.r.t. the raw score.
	Gradient(prediction, target float64) float64

	// Hessian is the second derivative of the loss w.r.t. the raw score.
	Hessian(prediction, target float64) float64

	// Loss is the per-sample loss at the given raw score.
	Loss(prediction, target float64) float64

	// InitScore is the constant raw score the ensemble starts from.
	InitScore(targets []float64) float64

	// Name identifies the objective.
	Name() string
}

func objectiveFor(obj Objective) (objectiveFunction, error) {
	switch obj {
	case ObjectiveRegression:
		return &squaredErrorObjective{}, nil
	case ObjectiveBinary:
		return &logisticObjective{}, nil
	default:
		return nil, errors.NewValidationError("objective", "unknown objective", string(obj))
	}
}

// squaredErrorObjective minimizes 0.5*(pred-target)^2.
type squaredErrorObjective struct{}

func (o *squaredErrorObjective) Gradient(prediction, target float64) float64 {
	return prediction - target
}

func (o *squaredErrorObjective) Hessian(prediction, target float64) float64 {
	return 1.0
}

func (o *squaredErrorObjective) Loss(prediction, target float64) float64 {
	diff := prediction - target
	return 0.5 * diff * diff
}

func (o *squaredErrorObjective) InitScore(targets []float64) float64 {
	if len(targets) == 0 {
		return 0.0
	}
	sum := 0.0
	for _, t := range targets {
		sum += t
	}
	return sum / float64(len(targets))
}

func (o *squaredErrorObjective) Name() string { return string(ObjectiveRegression) }

// logisticObjective minimizes log-loss; raw scores are log-odds and
// probabilities are obtained through the sigmoid link.
type logisticObjective struct{}

func (o *logisticObjective) Gradient(prediction, target float64) float64 {
	return sigmoid(prediction) - target
}

func (o *logisticObjective) Hessian(prediction, target float64) float64 {
	p := sigmoid(prediction)
	// Floor keeps leaf values finite when a node is pure.
	return math.Max(p*(1-p), 1e-16)
}

func (o *logisticObjective) Loss(prediction, target float64) float64 {
	p := clampProb(sigmoid(prediction))
	if target > 0.5 {
		return -math.Log(p)
	}
	return -math.Log(1 - p)
}

func (o *logisticObjective) InitScore(targets []float64) float64 {
	if len(targets) == 0 {
		return 0.0
	}
	sum := 0.0
	for _, t := range targets {
		sum += t
	}
	p := clampProb(sum / float64(len(targets)))
	return math.Log(p / (1 - p))
}

func (o *logisticObjective) Name() string { return string(ObjectiveBinary) }

func sigmoid(x float64) float64 {
	if x >= 0 {
		return 1.0 / (1.0 + math.Exp(-x))
	}
	e := math.Exp(x)
	return e / (1.0 + e)
}

func clampProb(p float64) float64 {
	const eps = 1e-15
	if p < eps {
		return eps
	}
	if p > 1-eps {
		return 1 - eps
	}
	return p
}
