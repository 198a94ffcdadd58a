package eval

import (
	"testing"
)

func TestConfusion(t *testing.T) {
	yTrue := []float64{1, 1, 0, 0, 1, 0}
	yProb := []float64{0.9, 0.3, 0.6, 0.2, 0.7, 0.4}

	cm, err := Confusion(yTrue, yProb, 0.5)
	if err != nil {
		t.Fatalf("Confusion failed: %v", err)
	}
	if cm.TP != 2 || cm.FP != 1 || cm.FN != 1 || cm.TN != 2 {
		t.Errorf("unexpected matrix: TP=%d FP=%d FN=%d TN=%d", cm.TP, cm.FP, cm.FN, cm.TN)
	}
	if !almostEqual(cm.Accuracy(), 4.0/6.0) {
		t.Errorf("Accuracy = %v, want %v", cm.Accuracy(), 4.0/6.0)
	}
	if !almostEqual(cm.Precision(), 2.0/3.0) {
		t.Errorf("Precision = %v, want %v", cm.Precision(), 2.0/3.0)
	}
	if !almostEqual(cm.Recall(), 2.0/3.0) {
		t.Errorf("Recall = %v, want %v", cm.Recall(), 2.0/3.0)
	}
}

func TestROCCurve(t *testing.T) {
	yTrue := []float64{0, 0, 1, 1}
	yProb := []float64{0.1, 0.4, 0.35, 0.8}

	points, err := ROCCurve(yTrue, yProb)
	if err != nil {
		t.Fatalf("ROCCurve failed: %v", err)
	}

	// Leading origin point plus one point per distinct score.
	if len(points) != 5 {
		t.Fatalf("expected 5 points, got %d", len(points))
	}
	if points[0].FPR != 0 || points[0].TPR != 0 {
		t.Errorf("curve does not start at the origin: %+v", points[0])
	}
	last := points[len(points)-1]
	if last.FPR != 1 || last.TPR != 1 {
		t.Errorf("curve does not end at (1,1): %+v", last)
	}

	// FPR and TPR are monotonically non-decreasing along the curve.
	for i := 1; i < len(points); i++ {
		if points[i].FPR < points[i-1].FPR || points[i].TPR < points[i-1].TPR {
			t.Errorf("curve not monotone at %d: %+v -> %+v", i, points[i-1], points[i])
		}
	}
}

func TestROCCurveSingleClass(t *testing.T) {
	if _, err := ROCCurve([]float64{1, 1}, []float64{0.2, 0.8}); err == nil {
		t.Error("expected error when only one class is present")
	}
}

func TestPRCurve(t *testing.T) {
	yTrue := []float64{1, 0, 1}
	yProb := []float64{0.8, 0.6, 0.4}

	points, err := PRCurve(yTrue, yProb)
	if err != nil {
		t.Fatalf("PRCurve failed: %v", err)
	}
	if len(points) != 3 {
		t.Fatalf("expected 3 points, got %d", len(points))
	}
	if !almostEqual(points[0].Precision, 1) || !almostEqual(points[0].Recall, 0.5) {
		t.Errorf("first point = %+v", points[0])
	}
	last := points[len(points)-1]
	if !almostEqual(last.Recall, 1) || !almostEqual(last.Precision, 2.0/3.0) {
		t.Errorf("last point = %+v", last)
	}
}

func TestCalibration(t *testing.T) {
	yTrue := []float64{0, 0, 0, 1, 0, 1, 1, 1}
	yProb := []float64{0.1, 0.2, 0.3, 0.4, 0.6, 0.7, 0.8, 0.9}

	buckets, err := Calibration(yTrue, yProb, 4)
	if err != nil {
		t.Fatalf("Calibration failed: %v", err)
	}
	if len(buckets) != 4 {
		t.Fatalf("expected 4 buckets, got %d", len(buckets))
	}

	total := 0
	for i, b := range buckets {
		total += b.Count
		if b.Count != 2 {
			t.Errorf("bucket %d count = %d, want 2", i, b.Count)
		}
		if i > 0 && b.MeanPredicted < buckets[i-1].MeanPredicted {
			t.Errorf("bucket means not ascending at %d", i)
		}
	}
	if total != len(yTrue) {
		t.Errorf("buckets cover %d rows, want %d", total, len(yTrue))
	}
	if !almostEqual(buckets[0].ObservedRate, 0) {
		t.Errorf("lowest bucket observed rate = %v, want 0", buckets[0].ObservedRate)
	}
	if !almostEqual(buckets[3].ObservedRate, 1) {
		t.Errorf("highest bucket observed rate = %v, want 1", buckets[3].ObservedRate)
	}
}

func TestCalibrationUnevenBuckets(t *testing.T) {
	yTrue := []float64{0, 1, 0, 1, 0}
	yProb := []float64{0.1, 0.9, 0.3, 0.7, 0.5}

	buckets, err := Calibration(yTrue, yProb, 2)
	if err != nil {
		t.Fatalf("Calibration failed: %v", err)
	}
	// 5 rows over 2 buckets: sizes 3 and 2, larger first.
	if buckets[0].Count != 3 || buckets[1].Count != 2 {
		t.Errorf("bucket sizes = %d, %d, want 3, 2", buckets[0].Count, buckets[1].Count)
	}
}

func TestCalibrationValidation(t *testing.T) {
	yTrue := []float64{0, 1, 0}
	yProb := []float64{0.1, 0.9, 0.3}
	if _, err := Calibration(yTrue, yProb, 1); err == nil {
		t.Error("expected error for fewer than 2 buckets")
	}
	if _, err := Calibration(yTrue, yProb, 4); err == nil {
		t.Error("expected error for more buckets than rows")
	}
}
