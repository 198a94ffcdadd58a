// Package tune implements cross-validated hyperparameter search for
// boosted-tree models: grid generation, the parallel (grid point, fold)
// search loop, aggregation of out-of-fold metrics, and selection plus
// final refit of the winning configuration.
package tune

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
	"gonum.org/v1/gonum/stat/samplemv"

	"github.com/tabforge/gbtune/boost"
	"github.com/tabforge/gbtune/pkg/errors"
)

// Point is one hyperparameter assignment, keyed by the canonical
// hyperparameter names understood by boost.Params.Merge.
type Point map[string]float64

// Grid is a finite set of hyperparameter points in generation order.
// Names fixes the column order used for tables and artifacts.
type Grid struct {
	Names  []string
	Points []Point
}

// Bounds describes the sampled range of one tunable hyperparameter.
// Integer dimensions are rounded after sampling.
type Bounds struct {
	Name    string
	Min     float64
	Max     float64
	Integer bool
}

// LatinHypercube generates a space-filling grid over the given bounds.
// Each dimension is divided into `samples` strata and every stratum is hit
// exactly once, which spreads points more evenly through the joint space
// than independent uniform draws. Deterministic for a fixed seed.
func LatinHypercube(bounds []Bounds, samples int, seed uint64) (Grid, error) {
	if len(bounds) == 0 {
		return Grid{}, errors.NewValidationError("bounds", "at least one tunable hyperparameter is required", len(bounds))
	}
	if samples < 1 {
		return Grid{}, errors.NewValidationError("samples", "must be at least 1", samples)
	}
	for _, b := range bounds {
		if !(b.Min < b.Max) {
			return Grid{}, errors.NewValidationError(b.Name, "bounds must satisfy min < max", [2]float64{b.Min, b.Max})
		}
	}

	src := rand.NewPCG(seed, seed)
	quantilers := make([]distuv.Quantiler, len(bounds))
	for i, b := range bounds {
		quantilers[i] = distuv.Uniform{Min: b.Min, Max: b.Max}
	}
	batch := mat.NewDense(samples, len(bounds), nil)
	samplemv.LatinHyper{Q: quantilers, Src: src}.Sample(batch)

	names := make([]string, len(bounds))
	for i, b := range bounds {
		names[i] = b.Name
	}

	points := make([]Point, samples)
	for s := 0; s < samples; s++ {
		p := make(Point, len(bounds))
		for i, b := range bounds {
			v := batch.At(s, i)
			if b.Integer {
				v = math.Round(v)
			}
			p[b.Name] = v
		}
		points[s] = p
	}
	return Grid{Names: names, Points: points}, nil
}

// Explicit wraps a caller-supplied point list into a Grid, deriving the
// name order from the union of keys in first appearance order.
func Explicit(points []Point) (Grid, error) {
	if len(points) == 0 {
		return Grid{}, errors.NewEmptyGridError(0, 0)
	}
	seen := make(map[string]bool)
	var names []string
	for _, p := range points {
		for _, name := range boost.TunableNames {
			if _, ok := p[name]; ok && !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
		for name := range p {
			if !seen[name] {
				return Grid{}, errors.NewValidationError("hyperparameter", "unknown name", name)
			}
		}
	}
	return Grid{Names: names, Points: points}, nil
}
