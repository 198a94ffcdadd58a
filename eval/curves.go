package eval

import (
	"sort"

	"github.com/tabforge/gbtune/pkg/errors"
)

// ROCPoint はROC曲線上の1点
type ROCPoint struct {
	Threshold float64
	FPR       float64
	TPR       float64
}

// PRPoint はPR曲線上の1点
type PRPoint struct {
	Threshold float64
	Recall    float64
	Precision float64
}

// ConfusionMatrix はしきい値で2値化した予測の混同行列と派生指標
type ConfusionMatrix struct {
	Threshold float64
	TP, FP    int
	FN, TN    int
}

// Accuracy は混同行列から正解率を返す
func (c *ConfusionMatrix) Accuracy() float64 {
	total := c.TP + c.FP + c.FN + c.TN
	if total == 0 {
		return 0
	}
	return float64(c.TP+c.TN) / float64(total)
}

// Precision は適合率を返す。陽性予測が無い場合は警告の上で0。
func (c *ConfusionMatrix) Precision() float64 {
	if c.TP+c.FP == 0 {
		errors.Warn(errors.NewUndefinedMetricWarning("precision", "no positive predictions", 0))
		return 0
	}
	return float64(c.TP) / float64(c.TP+c.FP)
}

// Recall は再現率を返す。陽性サンプルが無い場合は警告の上で0。
func (c *ConfusionMatrix) Recall() float64 {
	if c.TP+c.FN == 0 {
		errors.Warn(errors.NewUndefinedMetricWarning("recall", "no positive samples", 0))
		return 0
	}
	return float64(c.TP) / float64(c.TP+c.FN)
}

// Confusion はしきい値で2値化した混同行列を計算する
func Confusion(yTrue, yProb []float64, threshold float64) (*ConfusionMatrix, error) {
	if err := validatePair("Confusion", yTrue, yProb); err != nil {
		return nil, err
	}
	if err := validateBinary("Confusion", yTrue); err != nil {
		return nil, err
	}
	cm := &ConfusionMatrix{Threshold: threshold}
	for i := range yTrue {
		predPos := yProb[i] >= threshold
		actualPos := yTrue[i] > 0.5
		switch {
		case predPos && actualPos:
			cm.TP++
		case predPos && !actualPos:
			cm.FP++
		case !predPos && actualPos:
			cm.FN++
		default:
			cm.TN++
		}
	}
	return cm, nil
}

// ROCCurve は観測された各スコアをしきい値としてROC曲線を計算する。
// 点列はしきい値の降順（原点側から終点へ）で返される。
func ROCCurve(yTrue, yProb []float64) ([]ROCPoint, error) {
	if err := validatePair("ROCCurve", yTrue, yProb); err != nil {
		return nil, err
	}
	if err := validateBinary("ROCCurve", yTrue); err != nil {
		return nil, err
	}
	nPos, nNeg := classCounts(yTrue)
	if nPos == 0 || nNeg == 0 {
		return nil, errors.NewValueError("ROCCurve", "both classes must be present")
	}

	idx := sortedByScoreDesc(yProb)
	points := []ROCPoint{{Threshold: 1, FPR: 0, TPR: 0}}
	var tp, fp int
	for i := 0; i < len(idx); {
		j := i
		for j < len(idx) && yProb[idx[j]] == yProb[idx[i]] {
			if yTrue[idx[j]] > 0.5 {
				tp++
			} else {
				fp++
			}
			j++
		}
		points = append(points, ROCPoint{
			Threshold: yProb[idx[i]],
			FPR:       float64(fp) / float64(nNeg),
			TPR:       float64(tp) / float64(nPos),
		})
		i = j
	}
	return points, nil
}

// PRCurve は観測された各スコアをしきい値としてPR曲線を計算する。
// 点列はしきい値の降順で返される。
func PRCurve(yTrue, yProb []float64) ([]PRPoint, error) {
	if err := validatePair("PRCurve", yTrue, yProb); err != nil {
		return nil, err
	}
	if err := validateBinary("PRCurve", yTrue); err != nil {
		return nil, err
	}
	nPos, _ := classCounts(yTrue)
	if nPos == 0 {
		return nil, errors.NewValueError("PRCurve", "no positive samples")
	}

	idx := sortedByScoreDesc(yProb)
	var points []PRPoint
	var tp, fp int
	for i := 0; i < len(idx); {
		j := i
		for j < len(idx) && yProb[idx[j]] == yProb[idx[i]] {
			if yTrue[idx[j]] > 0.5 {
				tp++
			} else {
				fp++
			}
			j++
		}
		points = append(points, PRPoint{
			Threshold: yProb[idx[i]],
			Recall:    float64(tp) / float64(nPos),
			Precision: float64(tp) / float64(tp+fp),
		})
		i = j
	}
	return points, nil
}

func sortedByScoreDesc(scores []float64) []int {
	idx := make([]int, len(scores))
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool { return scores[idx[a]] > scores[idx[b]] })
	return idx
}
