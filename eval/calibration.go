package eval

import (
	"sort"

	"github.com/tabforge/gbtune/pkg/errors"
)

// CalibrationBucket は予測確率で等分した1グループの観測と予測の平均
type CalibrationBucket struct {
	Count        int
	MeanPredicted float64
	ObservedRate  float64
}

// Calibration は行を予測確率の昇順に並べてbuckets個の等サイズグループへ
// 分け、各グループの平均予測確率と観測陽性率を報告する。
// 予測が校正されていればこの2つは近い値になる。
func Calibration(yTrue, yProb []float64, buckets int) ([]CalibrationBucket, error) {
	if err := validatePair("Calibration", yTrue, yProb); err != nil {
		return nil, err
	}
	if err := validateBinary("Calibration", yTrue); err != nil {
		return nil, err
	}
	if buckets < 2 {
		return nil, errors.NewValidationError("buckets", "must be at least 2", buckets)
	}
	if buckets > len(yTrue) {
		return nil, errors.NewValidationError("buckets", "must not exceed the number of rows", buckets)
	}

	idx := make([]int, len(yProb))
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool { return yProb[idx[a]] < yProb[idx[b]] })

	// グループサイズの差は高々1（先頭側が大きい）
	n := len(idx)
	base := n / buckets
	remainder := n % buckets

	out := make([]CalibrationBucket, buckets)
	at := 0
	for b := 0; b < buckets; b++ {
		size := base
		if b < remainder {
			size++
		}
		var sumProb, sumTrue float64
		for _, i := range idx[at : at+size] {
			sumProb += yProb[i]
			sumTrue += yTrue[i]
		}
		out[b] = CalibrationBucket{
			Count:        size,
			MeanPredicted: sumProb / float64(size),
			ObservedRate:  sumTrue / float64(size),
		}
		at += size
	}
	return out, nil
}
