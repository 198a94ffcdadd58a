package tune

import (
	"github.com/tabforge/gbtune/boost"
	"github.com/tabforge/gbtune/core/parallel"
	"github.com/tabforge/gbtune/dataset"
	"github.com/tabforge/gbtune/eval"
	"github.com/tabforge/gbtune/pkg/errors"
	"github.com/tabforge/gbtune/recipe"
)

// Config drives one cross-validated search run.
type Config struct {
	// Base supplies the hyperparameters not covered by the grid. Each
	// trial trains with Base merged with one grid point.
	Base boost.Params

	Grid Grid

	// Splits are the cross-validation folds over the training partition.
	// Trial metrics are computed on each fold's held-out rows.
	Splits []dataset.Split

	// Recipe returns a fresh unfitted recipe. A new instance is fitted
	// per fold so that no held-out statistics leak between folds.
	Recipe func() *recipe.Recipe

	// Metrics to record per trial, by eval metric name.
	Metrics []string

	// Workers bounds the number of concurrent trials. <= 0 means one
	// worker per CPU.
	Workers int
}

// Trial is the outcome of training one grid point on one fold. A failed
// trial carries the error and no metrics; the search continues past it.
type Trial struct {
	PointIndex int
	Fold       int
	Point      Point

	Metrics map[string]float64
	Err     error
}

// Meta records the provenance a search table needs to be reproducible.
type Meta struct {
	Seed               uint64
	Folds              int
	DatasetFingerprint uint64
}

// Table holds every trial of a search run in (point, fold) order.
type Table struct {
	Grid   Grid
	Trials []Trial
	Meta   Meta
}

func (c *Config) validate() error {
	if len(c.Grid.Points) == 0 {
		return errors.NewEmptyGridError(0, 0)
	}
	if len(c.Splits) == 0 {
		return errors.NewValidationError("splits", "at least one fold is required", len(c.Splits))
	}
	if c.Recipe == nil {
		return errors.NewValidationError("recipe", "a recipe factory is required", nil)
	}
	if len(c.Metrics) == 0 {
		return errors.NewValidationError("metrics", "at least one metric is required", len(c.Metrics))
	}
	return nil
}

// Search trains every (grid point, fold) pair and collects held-out
// metrics. Trials run concurrently; each one fits a fresh recipe on its
// fold's training rows only. Individual trial failures are recorded in
// the table rather than aborting the run, but a run where every point
// failed on every fold returns EmptyGridError.
func Search(ds *dataset.Dataset, cfg Config) (*Table, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	folds := len(cfg.Splits)
	table := &Table{
		Grid:   cfg.Grid,
		Trials: make([]Trial, len(cfg.Grid.Points)*folds),
		Meta: Meta{
			Seed:               cfg.Base.Seed,
			Folds:              folds,
			DatasetFingerprint: ds.Fingerprint(),
		},
	}

	parallel.ForEach(len(table.Trials), cfg.Workers, func(u int) {
		pointIdx := u / folds
		fold := u % folds
		point := cfg.Grid.Points[pointIdx]

		trial := Trial{PointIndex: pointIdx, Fold: fold, Point: point}
		metrics, err := runTrial(ds, cfg, point, cfg.Splits[fold])
		if err != nil {
			trial.Err = errors.NewTrainingError(pointIdx, fold, err)
		} else {
			trial.Metrics = metrics
		}
		table.Trials[u] = trial
	})

	failed := 0
	for _, t := range table.Trials {
		if t.Err != nil {
			failed++
		}
	}
	if failed == len(table.Trials) {
		return nil, errors.NewEmptyGridError(len(cfg.Grid.Points), failed)
	}
	return table, nil
}

func runTrial(ds *dataset.Dataset, cfg Config, point Point, split dataset.Split) (map[string]float64, error) {
	params, err := cfg.Base.Merge(point)
	if err != nil {
		return nil, err
	}

	rec := cfg.Recipe()
	if err := rec.Fit(ds, split.Train); err != nil {
		return nil, err
	}
	xTrain, yTrain, err := rec.Apply(ds, split.Train)
	if err != nil {
		return nil, err
	}
	model, err := boost.Train(params, xTrain, yTrain)
	if err != nil {
		return nil, err
	}

	xTest, yTest, err := rec.Apply(ds, split.Test)
	if err != nil {
		return nil, err
	}
	var preds []float64
	if params.Objective == boost.ObjectiveBinary {
		preds, err = model.PredictProba(xTest)
	} else {
		preds, err = model.Predict(xTest)
	}
	if err != nil {
		return nil, err
	}

	metrics := make(map[string]float64, len(cfg.Metrics))
	for _, name := range cfg.Metrics {
		v, err := eval.Compute(name, yTest, preds)
		if err != nil {
			return nil, err
		}
		metrics[name] = v
	}
	return metrics, nil
}
