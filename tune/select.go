package tune

import (
	"math"

	"github.com/tabforge/gbtune/boost"
	"github.com/tabforge/gbtune/dataset"
	"github.com/tabforge/gbtune/eval"
	"github.com/tabforge/gbtune/pkg/errors"
	"github.com/tabforge/gbtune/recipe"
)

// Summary aggregates one grid point's held-out metrics across its
// surviving folds.
type Summary struct {
	PointIndex int
	Point      Point

	// Folds is the number of folds that produced metrics for this point.
	Folds int

	Mean   map[string]float64
	StdErr map[string]float64
}

// Aggregate reduces the trial table to one summary per grid point, in
// generation order. Failed folds are excluded from the statistics, and a
// point where every fold failed is omitted entirely.
func (t *Table) Aggregate() []Summary {
	byPoint := make(map[int][]Trial)
	for _, trial := range t.Trials {
		if trial.Err != nil {
			continue
		}
		byPoint[trial.PointIndex] = append(byPoint[trial.PointIndex], trial)
	}

	var out []Summary
	for pointIdx := range t.Grid.Points {
		trials := byPoint[pointIdx]
		if len(trials) == 0 {
			continue
		}
		s := Summary{
			PointIndex: pointIdx,
			Point:      t.Grid.Points[pointIdx],
			Folds:      len(trials),
			Mean:       make(map[string]float64),
			StdErr:     make(map[string]float64),
		}
		for name := range trials[0].Metrics {
			var sum float64
			for _, trial := range trials {
				sum += trial.Metrics[name]
			}
			mean := sum / float64(len(trials))
			s.Mean[name] = mean

			// 標準誤差 = 標本標準偏差 / sqrt(折り数)
			if len(trials) > 1 {
				var sq float64
				for _, trial := range trials {
					d := trial.Metrics[name] - mean
					sq += d * d
				}
				s.StdErr[name] = math.Sqrt(sq/float64(len(trials)-1)) / math.Sqrt(float64(len(trials)))
			} else {
				s.StdErr[name] = 0
			}
		}
		out = append(out, s)
	}
	return out
}

// Direction controls whether a selection metric is minimized or
// maximized. The zero value infers the direction from the metric name.
type Direction int

const (
	// Auto minimizes error-type metrics and maximizes score-type ones,
	// per eval.LowerIsBetter.
	Auto Direction = iota
	Minimize
	Maximize
)

// SelectBest picks the summary with the best mean value of the given
// metric. Exact ties keep the earlier point in generation order.
func SelectBest(summaries []Summary, metric string, dir Direction) (Summary, error) {
	lower := dir == Minimize
	if dir == Auto {
		lower = eval.LowerIsBetter(metric)
	}
	bestIdx := -1
	var bestVal float64
	for i, s := range summaries {
		v, ok := s.Mean[metric]
		if !ok {
			continue
		}
		if bestIdx < 0 || (lower && v < bestVal) || (!lower && v > bestVal) {
			bestIdx = i
			bestVal = v
		}
	}
	if bestIdx < 0 {
		return Summary{}, errors.NewValueError("SelectBest", "no summary carries metric "+metric)
	}
	return summaries[bestIdx], nil
}

// Fitted is the final artifact of a search: the winning hyperparameters
// refitted on the full training partition, together with the recipe that
// produced its feature matrix.
type Fitted struct {
	Model  *boost.Model
	Recipe *recipe.Recipe
	Params boost.Params
}

// Finalize refits the selected point on every training row. The recipe
// comes fresh from the factory, so its statistics are recaptured from the
// full training partition rather than reused from any fold.
func Finalize(ds *dataset.Dataset, trainRows []int, cfg Config, best Point) (*Fitted, error) {
	params, err := cfg.Base.Merge(best)
	if err != nil {
		return nil, err
	}
	rec := cfg.Recipe()
	if err := rec.Fit(ds, trainRows); err != nil {
		return nil, err
	}
	x, y, err := rec.Apply(ds, trainRows)
	if err != nil {
		return nil, err
	}
	model, err := boost.Train(params, x, y)
	if err != nil {
		return nil, err
	}
	return &Fitted{Model: model, Recipe: rec, Params: params}, nil
}
