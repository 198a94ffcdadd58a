package tune

import (
	"testing"

	gberrors "github.com/tabforge/gbtune/pkg/errors"
)

func TestLatinHypercube(t *testing.T) {
	bounds := []Bounds{
		{Name: "learning_rate", Min: 0.01, Max: 0.3},
		{Name: "tree_count", Min: 10, Max: 200, Integer: true},
		{Name: "max_depth", Min: 2, Max: 8, Integer: true},
	}

	grid, err := LatinHypercube(bounds, 25, 42)
	if err != nil {
		t.Fatalf("LatinHypercube failed: %v", err)
	}
	if len(grid.Points) != 25 {
		t.Errorf("expected 25 points, got %d", len(grid.Points))
	}
	if len(grid.Names) != 3 || grid.Names[0] != "learning_rate" {
		t.Errorf("unexpected name order: %v", grid.Names)
	}

	for i, p := range grid.Points {
		if len(p) != 3 {
			t.Fatalf("point %d has %d dimensions", i, len(p))
		}
		if p["learning_rate"] < 0.01 || p["learning_rate"] > 0.3 {
			t.Errorf("point %d: learning_rate %v out of bounds", i, p["learning_rate"])
		}
		tc := p["tree_count"]
		if tc != float64(int(tc)) {
			t.Errorf("point %d: tree_count %v is not an integer", i, tc)
		}
		if tc < 10 || tc > 200 {
			t.Errorf("point %d: tree_count %v out of bounds", i, tc)
		}
	}
}

func TestLatinHypercubeStratification(t *testing.T) {
	// With n samples each dimension must hit each of the n equal strata
	// exactly once.
	const samples = 10
	grid, err := LatinHypercube([]Bounds{{Name: "learning_rate", Min: 0, Max: 1}}, samples, 7)
	if err != nil {
		t.Fatalf("LatinHypercube failed: %v", err)
	}
	hit := make([]bool, samples)
	for _, p := range grid.Points {
		stratum := int(p["learning_rate"] * samples)
		if stratum == samples {
			stratum = samples - 1
		}
		if hit[stratum] {
			t.Errorf("stratum %d hit twice", stratum)
		}
		hit[stratum] = true
	}
}

func TestLatinHypercubeDeterminism(t *testing.T) {
	bounds := []Bounds{
		{Name: "learning_rate", Min: 0.01, Max: 0.3},
		{Name: "l2_regularization", Min: 0, Max: 10},
	}
	a, err := LatinHypercube(bounds, 8, 123)
	if err != nil {
		t.Fatalf("LatinHypercube failed: %v", err)
	}
	b, err := LatinHypercube(bounds, 8, 123)
	if err != nil {
		t.Fatalf("LatinHypercube failed: %v", err)
	}
	for i := range a.Points {
		for name, v := range a.Points[i] {
			if b.Points[i][name] != v {
				t.Errorf("point %d %s differs across identical seeds: %v vs %v", i, name, v, b.Points[i][name])
			}
		}
	}

	c, err := LatinHypercube(bounds, 8, 124)
	if err != nil {
		t.Fatalf("LatinHypercube failed: %v", err)
	}
	same := true
	for i := range a.Points {
		for name, v := range a.Points[i] {
			if c.Points[i][name] != v {
				same = false
			}
		}
	}
	if same {
		t.Error("different seeds produced identical grids")
	}
}

func TestLatinHypercubeValidation(t *testing.T) {
	tests := []struct {
		name    string
		bounds  []Bounds
		samples int
	}{
		{"no bounds", nil, 5},
		{"zero samples", []Bounds{{Name: "learning_rate", Min: 0, Max: 1}}, 0},
		{"inverted bounds", []Bounds{{Name: "learning_rate", Min: 1, Max: 0}}, 5},
		{"degenerate bounds", []Bounds{{Name: "learning_rate", Min: 0.1, Max: 0.1}}, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := LatinHypercube(tt.bounds, tt.samples, 1); err == nil {
				t.Error("expected validation error, got nil")
			}
		})
	}
}

func TestExplicit(t *testing.T) {
	grid, err := Explicit([]Point{
		{"tree_count": 50, "learning_rate": 0.1},
		{"tree_count": 100, "learning_rate": 0.05},
	})
	if err != nil {
		t.Fatalf("Explicit failed: %v", err)
	}
	if len(grid.Points) != 2 {
		t.Errorf("expected 2 points, got %d", len(grid.Points))
	}
	// Names follow the canonical tunable order.
	want := []string{"tree_count", "learning_rate"}
	if len(grid.Names) != len(want) {
		t.Fatalf("unexpected names: %v", grid.Names)
	}
	for i, name := range want {
		if grid.Names[i] != name {
			t.Errorf("names[%d] = %q, want %q", i, grid.Names[i], name)
		}
	}
}

func TestExplicitUnknownName(t *testing.T) {
	if _, err := Explicit([]Point{{"num_leaves": 31}}); err == nil {
		t.Error("expected error for unknown hyperparameter name")
	}
}

func TestExplicitEmpty(t *testing.T) {
	_, err := Explicit(nil)
	var ege *gberrors.EmptyGridError
	if !gberrors.As(err, &ege) {
		t.Errorf("expected EmptyGridError, got %v", err)
	}
}
