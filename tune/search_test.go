package tune

import (
	"math/rand/v2"
	"testing"

	"github.com/tabforge/gbtune/boost"
	"github.com/tabforge/gbtune/dataset"
	"github.com/tabforge/gbtune/eval"
	gberrors "github.com/tabforge/gbtune/pkg/errors"
	"github.com/tabforge/gbtune/recipe"
)

// regressionData builds a numeric dataset where x1 carries the signal and
// x2 is pure noise.
func regressionData(t *testing.T, n int, seed uint64) *dataset.Dataset {
	t.Helper()
	r := rand.New(rand.NewPCG(seed, seed))
	x1 := make([]float64, n)
	x2 := make([]float64, n)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		x1[i] = r.Float64() * 10
		x2[i] = r.Float64()
		y[i] = 3*x1[i] + r.NormFloat64()*0.3
	}
	ds, err := dataset.New([]dataset.Column{
		{Name: "x1", Kind: dataset.Numeric, Floats: x1},
		{Name: "x2", Kind: dataset.Numeric, Floats: x2},
		{Name: "y", Kind: dataset.Numeric, Floats: y},
	})
	if err != nil {
		t.Fatalf("dataset.New failed: %v", err)
	}
	return ds
}

func searchConfig(t *testing.T, grid Grid, splits []dataset.Split) Config {
	t.Helper()
	base := boost.DefaultParams()
	base.TreeCount = 20
	base.MaxDepth = 3
	base.MinLeafSamples = 5
	base.Seed = 1234
	return Config{
		Base:    base,
		Grid:    grid,
		Splits:  splits,
		Recipe:  func() *recipe.Recipe { return recipe.New("y") },
		Metrics: []string{eval.MetricRMSE, eval.MetricMAE},
		Workers: 4,
	}
}

func TestSearchFullRun(t *testing.T) {
	// 345 rows split 75/25, then 25 grid points over 5 folds of the
	// training partition: 125 trials, 25 aggregated summaries.
	ds := regressionData(t, 345, 99)
	holdout, err := dataset.TrainTest(ds, 0.75, 1234)
	if err != nil {
		t.Fatalf("TrainTest failed: %v", err)
	}
	if len(holdout.Train) != 259 {
		t.Fatalf("expected 259 training rows, got %d", len(holdout.Train))
	}
	splits, err := dataset.KFold(holdout.Train, 5, 1234)
	if err != nil {
		t.Fatalf("KFold failed: %v", err)
	}

	grid, err := LatinHypercube([]Bounds{
		{Name: "learning_rate", Min: 0.05, Max: 0.3},
		{Name: "tree_count", Min: 10, Max: 30, Integer: true},
	}, 25, 1234)
	if err != nil {
		t.Fatalf("LatinHypercube failed: %v", err)
	}

	table, err := Search(ds, searchConfig(t, grid, splits))
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(table.Trials) != 125 {
		t.Fatalf("expected 125 trials, got %d", len(table.Trials))
	}
	if table.Meta.Folds != 5 || table.Meta.Seed != 1234 {
		t.Errorf("unexpected meta: %+v", table.Meta)
	}
	if table.Meta.DatasetFingerprint != ds.Fingerprint() {
		t.Error("meta fingerprint does not match the dataset")
	}

	for u, trial := range table.Trials {
		if trial.Err != nil {
			t.Fatalf("trial %d failed: %v", u, trial.Err)
		}
		if trial.PointIndex != u/5 || trial.Fold != u%5 {
			t.Errorf("trial %d has point %d fold %d", u, trial.PointIndex, trial.Fold)
		}
		if _, ok := trial.Metrics[eval.MetricRMSE]; !ok {
			t.Errorf("trial %d is missing rmse", u)
		}
	}

	summaries := table.Aggregate()
	if len(summaries) != 25 {
		t.Fatalf("expected 25 summaries, got %d", len(summaries))
	}
	for _, s := range summaries {
		if s.Folds != 5 {
			t.Errorf("point %d aggregated %d folds, want 5", s.PointIndex, s.Folds)
		}
		if s.Mean[eval.MetricRMSE] <= 0 {
			t.Errorf("point %d has non-positive mean rmse", s.PointIndex)
		}
		if s.StdErr[eval.MetricRMSE] < 0 {
			t.Errorf("point %d has negative stderr", s.PointIndex)
		}
	}

	best, err := SelectBest(summaries, eval.MetricRMSE, Auto)
	if err != nil {
		t.Fatalf("SelectBest failed: %v", err)
	}
	for _, s := range summaries {
		if s.Mean[eval.MetricRMSE] < best.Mean[eval.MetricRMSE] {
			t.Errorf("point %d beats the selected point", s.PointIndex)
		}
	}
}

func TestSearchDeterminism(t *testing.T) {
	ds := regressionData(t, 120, 7)
	splits, err := dataset.KFold(ds.Indices(), 3, 55)
	if err != nil {
		t.Fatalf("KFold failed: %v", err)
	}
	grid, err := Explicit([]Point{
		{"learning_rate": 0.1, "tree_count": 15},
		{"learning_rate": 0.2, "tree_count": 10},
	})
	if err != nil {
		t.Fatalf("Explicit failed: %v", err)
	}

	run := func() []Trial {
		table, err := Search(ds, searchConfig(t, grid, splits))
		if err != nil {
			t.Fatalf("Search failed: %v", err)
		}
		return table.Trials
	}
	a, b := run(), run()
	for i := range a {
		for name, v := range a[i].Metrics {
			if b[i].Metrics[name] != v {
				t.Errorf("trial %d metric %s differs across runs: %v vs %v", i, name, v, b[i].Metrics[name])
			}
		}
	}
}

func TestSearchAllTrialsFail(t *testing.T) {
	ds := regressionData(t, 60, 3)
	splits, err := dataset.KFold(ds.Indices(), 3, 1)
	if err != nil {
		t.Fatalf("KFold failed: %v", err)
	}
	cfg := searchConfig(t, Grid{
		Names:  []string{"learning_rate"},
		Points: []Point{{"learning_rate": -0.5}},
	}, splits)

	_, err = Search(ds, cfg)
	var ege *gberrors.EmptyGridError
	if !gberrors.As(err, &ege) {
		t.Fatalf("expected EmptyGridError, got %v", err)
	}
	if ege.Requested != 1 || ege.Failed != 3 {
		t.Errorf("unexpected counts: %+v", ege)
	}
}

func TestSearchRecordsTrainingError(t *testing.T) {
	// One bad point among good ones: the run succeeds and the bad point's
	// trials carry TrainingError with its location.
	ds := regressionData(t, 60, 3)
	splits, err := dataset.KFold(ds.Indices(), 3, 1)
	if err != nil {
		t.Fatalf("KFold failed: %v", err)
	}
	cfg := searchConfig(t, Grid{
		Names: []string{"learning_rate"},
		Points: []Point{
			{"learning_rate": 0.1},
			{"learning_rate": -0.5},
		},
	}, splits)

	table, err := Search(ds, cfg)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	for u := 3; u < 6; u++ {
		var te *gberrors.TrainingError
		if !gberrors.As(table.Trials[u].Err, &te) {
			t.Fatalf("trial %d: expected TrainingError, got %v", u, table.Trials[u].Err)
		}
		if te.Point != 1 || te.Fold != u-3 {
			t.Errorf("trial %d reports point %d fold %d", u, te.Point, te.Fold)
		}
	}

	summaries := table.Aggregate()
	if len(summaries) != 1 || summaries[0].PointIndex != 0 {
		t.Errorf("expected only point 0 to survive aggregation, got %+v", summaries)
	}
}

func TestSearchValidation(t *testing.T) {
	ds := regressionData(t, 30, 1)
	splits, err := dataset.KFold(ds.Indices(), 3, 1)
	if err != nil {
		t.Fatalf("KFold failed: %v", err)
	}
	grid, err := Explicit([]Point{{"learning_rate": 0.1}})
	if err != nil {
		t.Fatalf("Explicit failed: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty grid", func(c *Config) { c.Grid = Grid{} }},
		{"no splits", func(c *Config) { c.Splits = nil }},
		{"no recipe factory", func(c *Config) { c.Recipe = nil }},
		{"no metrics", func(c *Config) { c.Metrics = nil }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := searchConfig(t, grid, splits)
			tt.mutate(&cfg)
			if _, err := Search(ds, cfg); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}
