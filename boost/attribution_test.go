package boost

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestAttributionAdditivity(t *testing.T) {
	tests := []struct {
		name      string
		objective Objective
	}{
		{"regression", ObjectiveRegression},
		{"binary", ObjectiveBinary},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x, raw := stepData(120, 21)
			y := raw
			if tt.objective == ObjectiveBinary {
				y = make([]float64, len(raw))
				for i, v := range raw {
					if v > 5 {
						y[i] = 1
					}
				}
			}

			params := DefaultParams()
			params.Objective = tt.objective
			params.TreeCount = 25
			params.MaxDepth = 4
			params.MinLeafSamples = 4
			params.LearningRate = 0.2
			params.Seed = 5

			model, err := Train(params, x, y)
			if err != nil {
				t.Fatal(err)
			}

			attr, err := model.Attribute(x)
			if err != nil {
				t.Fatalf("Attribute() error = %v", err)
			}
			preds, err := model.Predict(x)
			if err != nil {
				t.Fatal(err)
			}

			rows, cols := attr.Values.Dims()
			if rows != 120 || cols != 2 {
				t.Fatalf("attribution matrix is %dx%d, want 120x2", rows, cols)
			}

			// Baseline + per-feature contributions reproduce the raw score.
			for i := 0; i < rows; i++ {
				sum := attr.Baseline
				for j := 0; j < cols; j++ {
					sum += attr.Values.At(i, j)
				}
				tol := 1e-6 * math.Max(1, math.Abs(preds[i]))
				if math.Abs(sum-preds[i]) > tol {
					t.Fatalf("row %d: baseline+sum = %v, raw score = %v", i, sum, preds[i])
				}
			}
		})
	}
}

func TestAttributionDimensionMismatch(t *testing.T) {
	x, y := stepData(40, 22)
	params := DefaultParams()
	params.TreeCount = 2
	params.MinLeafSamples = 5
	model, err := Train(params, x, y)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := model.Attribute(mat.NewDense(2, 7, nil)); err == nil {
		t.Error("expected dimension error")
	}
}

func TestAttributionCreditsSignalFeature(t *testing.T) {
	x, y := stepData(200, 23)
	params := DefaultParams()
	params.TreeCount = 15
	params.MaxDepth = 3
	params.MinLeafSamples = 5
	params.Seed = 9

	model, err := Train(params, x, y)
	if err != nil {
		t.Fatal(err)
	}
	attr, err := model.Attribute(x)
	if err != nil {
		t.Fatal(err)
	}

	rows, _ := attr.Values.Dims()
	var meanAbs0, meanAbs1 float64
	for i := 0; i < rows; i++ {
		meanAbs0 += math.Abs(attr.Values.At(i, 0))
		meanAbs1 += math.Abs(attr.Values.At(i, 1))
	}
	if meanAbs0 <= meanAbs1 {
		t.Errorf("signal feature mean |attribution| %v should exceed noise feature %v", meanAbs0, meanAbs1)
	}
}
