package tune

import (
	"testing"

	"github.com/tabforge/gbtune/boost"
	"github.com/tabforge/gbtune/dataset"
	"github.com/tabforge/gbtune/eval"
)

func TestAggregateExcludesFailedFolds(t *testing.T) {
	grid := Grid{Names: []string{"learning_rate"}, Points: []Point{{"learning_rate": 0.1}}}
	table := &Table{
		Grid: grid,
		Trials: []Trial{
			{PointIndex: 0, Fold: 0, Metrics: map[string]float64{"rmse": 1.0}},
			{PointIndex: 0, Fold: 1, Err: errMock},
			{PointIndex: 0, Fold: 2, Metrics: map[string]float64{"rmse": 3.0}},
		},
	}
	summaries := table.Aggregate()
	if len(summaries) != 1 {
		t.Fatalf("expected 1 summary, got %d", len(summaries))
	}
	s := summaries[0]
	if s.Folds != 2 {
		t.Errorf("Folds = %d, want 2", s.Folds)
	}
	if s.Mean["rmse"] != 2.0 {
		t.Errorf("Mean = %v, want 2.0", s.Mean["rmse"])
	}
	// sample stddev of {1,3} is sqrt(2); stderr = sqrt(2)/sqrt(2) = 1
	if diff := s.StdErr["rmse"] - 1.0; diff > 1e-12 || diff < -1e-12 {
		t.Errorf("StdErr = %v, want 1.0", s.StdErr["rmse"])
	}
}

func TestAggregateSingleFoldStdErr(t *testing.T) {
	grid := Grid{Names: []string{"learning_rate"}, Points: []Point{{"learning_rate": 0.1}}}
	table := &Table{
		Grid:   grid,
		Trials: []Trial{{PointIndex: 0, Fold: 0, Metrics: map[string]float64{"mae": 0.5}}},
	}
	s := table.Aggregate()[0]
	if s.StdErr["mae"] != 0 {
		t.Errorf("single-fold stderr = %v, want 0", s.StdErr["mae"])
	}
}

var errMock = &mockError{}

type mockError struct{}

func (*mockError) Error() string { return "mock failure" }

func TestSelectBest(t *testing.T) {
	summaries := []Summary{
		{PointIndex: 0, Mean: map[string]float64{"rmse": 2.0, "auc": 0.80}},
		{PointIndex: 1, Mean: map[string]float64{"rmse": 1.5, "auc": 0.90}},
		{PointIndex: 2, Mean: map[string]float64{"rmse": 1.8, "auc": 0.90}},
	}

	tests := []struct {
		name      string
		metric    string
		dir       Direction
		wantPoint int
	}{
		{"error metric is minimized", "rmse", Auto, 1},
		{"score metric is maximized, tie keeps earlier point", "auc", Auto, 1},
		{"explicit minimize", "auc", Minimize, 0},
		{"explicit maximize", "rmse", Maximize, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			best, err := SelectBest(summaries, tt.metric, tt.dir)
			if err != nil {
				t.Fatalf("SelectBest failed: %v", err)
			}
			if best.PointIndex != tt.wantPoint {
				t.Errorf("selected point %d, want %d", best.PointIndex, tt.wantPoint)
			}
		})
	}
}

func TestSelectBestMissingMetric(t *testing.T) {
	summaries := []Summary{{PointIndex: 0, Mean: map[string]float64{"rmse": 1.0}}}
	if _, err := SelectBest(summaries, "log_loss", Auto); err == nil {
		t.Error("expected error for metric absent from every summary")
	}
}

func TestFinalize(t *testing.T) {
	ds := regressionData(t, 150, 11)
	splits, err := dataset.KFold(ds.Indices(), 3, 2)
	if err != nil {
		t.Fatalf("KFold failed: %v", err)
	}
	grid, err := Explicit([]Point{{"learning_rate": 0.15, "tree_count": 12}})
	if err != nil {
		t.Fatalf("Explicit failed: %v", err)
	}
	cfg := searchConfig(t, grid, splits)

	fitted, err := Finalize(ds, ds.Indices(), cfg, grid.Points[0])
	if err != nil {
		t.Fatalf("Finalize failed: %v", err)
	}
	if !fitted.Recipe.IsFitted() {
		t.Error("finalized recipe is not fitted")
	}
	if fitted.Params.LearningRate != 0.15 || fitted.Params.TreeCount != 12 {
		t.Errorf("selected point not merged into params: %+v", fitted.Params)
	}
	if fitted.Params.Objective != boost.ObjectiveRegression {
		t.Errorf("unexpected objective: %v", fitted.Params.Objective)
	}

	// The refit model should predict the training partition well.
	report, err := eval.Evaluate(fitted.Model, fitted.Recipe, ds, ds.Indices(), eval.Options{})
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if report.Metrics[eval.MetricR2] < 0.9 {
		t.Errorf("refit R2 = %v, want >= 0.9", report.Metrics[eval.MetricR2])
	}
}
