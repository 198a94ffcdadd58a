package boost

import (
	"math"
	"math/rand/v2"
	"testing"

	"gonum.org/v1/gonum/mat"
)

// stepData builds a dataset where y depends on a threshold of feature 0
// and feature 1 is pure noise.
func stepData(n int, seed uint64) (*mat.Dense, []float64) {
	r := rand.New(rand.NewPCG(seed, seed))
	x := mat.NewDense(n, 2, nil)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		v := r.Float64() * 10
		noise := r.Float64()
		x.Set(i, 0, v)
		x.Set(i, 1, noise)
		if v > 5 {
			y[i] = 10
		} else {
			y[i] = 2
		}
	}
	return x, y
}

func TestTrainRegression(t *testing.T) {
	x, y := stepData(200, 1)
	params := DefaultParams()
	params.TreeCount = 30
	params.MaxDepth = 3
	params.MinLeafSamples = 5
	params.LearningRate = 0.3
	params.Seed = 7

	model, err := Train(params, x, y)
	if err != nil {
		t.Fatalf("Train() error = %v", err)
	}

	preds, err := model.Predict(x)
	if err != nil {
		t.Fatalf("Predict() error = %v", err)
	}
	var sse float64
	for i := range y {
		diff := preds[i] - y[i]
		sse += diff * diff
	}
	rmse := math.Sqrt(sse / float64(len(y)))
	if rmse > 0.5 {
		t.Errorf("training RMSE = %v, expected a step function to be learned almost exactly", rmse)
	}
}

func TestTrainBinary(t *testing.T) {
	x, raw := stepData(200, 2)
	y := make([]float64, len(raw))
	for i, v := range raw {
		if v > 5 {
			y[i] = 1
		}
	}

	params := DefaultParams()
	params.Objective = ObjectiveBinary
	params.TreeCount = 40
	params.MaxDepth = 3
	params.MinLeafSamples = 5
	params.LearningRate = 0.3
	params.Seed = 7

	model, err := Train(params, x, y)
	if err != nil {
		t.Fatalf("Train() error = %v", err)
	}

	probs, err := model.PredictProba(x)
	if err != nil {
		t.Fatalf("PredictProba() error = %v", err)
	}
	correct := 0
	for i := range y {
		pred := 0.0
		if probs[i] >= 0.5 {
			pred = 1
		}
		if pred == y[i] {
			correct++
		}
	}
	if acc := float64(correct) / float64(len(y)); acc < 0.97 {
		t.Errorf("training accuracy = %v, want >= 0.97 on a separable problem", acc)
	}
}

func TestTrainBinaryRejectsNonBinaryTargets(t *testing.T) {
	x := mat.NewDense(4, 1, []float64{1, 2, 3, 4})
	params := DefaultParams()
	params.Objective = ObjectiveBinary
	if _, err := Train(params, x, []float64{0, 1, 2, 1}); err == nil {
		t.Error("expected error for non-binary targets")
	}
}

func TestTrainDeterminism(t *testing.T) {
	x, y := stepData(150, 3)
	params := DefaultParams()
	params.TreeCount = 10
	params.MaxDepth = 4
	params.MinLeafSamples = 3
	params.SubsampleFraction = 0.8
	params.FeatureFraction = 0.5
	params.Seed = 99

	a, err := Train(params, x, y)
	if err != nil {
		t.Fatal(err)
	}
	b, err := Train(params, x, y)
	if err != nil {
		t.Fatal(err)
	}

	predsA, err := a.Predict(x)
	if err != nil {
		t.Fatal(err)
	}
	predsB, err := b.Predict(x)
	if err != nil {
		t.Fatal(err)
	}
	for i := range predsA {
		if predsA[i] != predsB[i] {
			t.Fatalf("same seed produced different predictions at row %d: %v != %v", i, predsA[i], predsB[i])
		}
	}
}

func TestMinLeafSamplesRespected(t *testing.T) {
	x, y := stepData(100, 4)
	params := DefaultParams()
	params.TreeCount = 5
	params.MaxDepth = 6
	params.MinLeafSamples = 10
	params.Seed = 1

	model, err := Train(params, x, y)
	if err != nil {
		t.Fatal(err)
	}
	for ti := range model.Trees {
		for _, node := range model.Trees[ti].Nodes {
			if node.Leaf && node.Count < params.MinLeafSamples {
				t.Fatalf("leaf with %d rows violates min_leaf_samples=%d", node.Count, params.MinLeafSamples)
			}
		}
	}
}

func TestPredictDimensionMismatch(t *testing.T) {
	x, y := stepData(50, 5)
	params := DefaultParams()
	params.TreeCount = 2
	params.MinLeafSamples = 5
	model, err := Train(params, x, y)
	if err != nil {
		t.Fatal(err)
	}
	wrong := mat.NewDense(3, 5, nil)
	if _, err := model.Predict(wrong); err == nil {
		t.Error("expected dimension error for mismatched feature count")
	}
}

func TestPredictProbaRequiresBinary(t *testing.T) {
	x, y := stepData(50, 6)
	params := DefaultParams()
	params.TreeCount = 2
	params.MinLeafSamples = 5
	model, err := Train(params, x, y)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := model.PredictProba(x); err == nil {
		t.Error("PredictProba must fail for the regression objective")
	}
}

func TestFeatureImportanceIgnoresNoise(t *testing.T) {
	x, y := stepData(300, 8)
	params := DefaultParams()
	params.TreeCount = 20
	params.MaxDepth = 3
	params.MinLeafSamples = 5
	params.Seed = 2

	model, err := Train(params, x, y)
	if err != nil {
		t.Fatal(err)
	}
	imp := model.FeatureImportance()
	if imp[0] <= imp[1] {
		t.Errorf("signal feature importance %v should dominate noise feature %v", imp[0], imp[1])
	}
}
