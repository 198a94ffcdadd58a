// Package eval は選択済みモデルの評価を提供します。
// スカラー指標（回帰: RMSE/R²など、分類: 正解率/AUC/PR-AUC/対数損失）、
// ROC/PR曲線、混同行列、キャリブレーション表、および加法的な
// 特徴量寄与の要約を計算します。
package eval

import (
	"math"
	"sort"

	"github.com/tabforge/gbtune/pkg/errors"
)

// 指標名。分類指標のyPredは予測確率を前提とする。
const (
	MetricMSE      = "mse"
	MetricRMSE     = "rmse"
	MetricMAE      = "mae"
	MetricR2       = "r2"
	MetricAccuracy = "accuracy"
	MetricLogLoss  = "log_loss"
	MetricAUC      = "auc"
	MetricPRAUC    = "pr_auc"
)

// Compute は指標名で計算をディスパッチする。未知の指標はValueError。
func Compute(name string, yTrue, yPred []float64) (float64, error) {
	switch name {
	case MetricMSE:
		return MSE(yTrue, yPred)
	case MetricRMSE:
		return RMSE(yTrue, yPred)
	case MetricMAE:
		return MAE(yTrue, yPred)
	case MetricR2:
		return R2Score(yTrue, yPred)
	case MetricAccuracy:
		return Accuracy(yTrue, yPred, 0.5)
	case MetricLogLoss:
		return LogLoss(yTrue, yPred)
	case MetricAUC:
		return AUC(yTrue, yPred)
	case MetricPRAUC:
		return PRAUC(yTrue, yPred)
	default:
		return 0, errors.NewValueError("Compute", "unknown metric: "+name)
	}
}

// LowerIsBetter は指標が誤差型（小さいほど良い）かどうかを返す
func LowerIsBetter(name string) bool {
	switch name {
	case MetricMSE, MetricRMSE, MetricMAE, MetricLogLoss:
		return true
	}
	return false
}

func validatePair(op string, yTrue, yPred []float64) error {
	if len(yTrue) == 0 {
		return errors.NewValueError(op, "empty vector")
	}
	if len(yPred) != len(yTrue) {
		return errors.NewDimensionError(op, len(yTrue), len(yPred), 0)
	}
	return nil
}

// MSE は平均二乗誤差（Mean Squared Error）を計算する
func MSE(yTrue, yPred []float64) (float64, error) {
	if err := validatePair("MSE", yTrue, yPred); err != nil {
		return 0, err
	}
	var sum float64
	for i := range yTrue {
		diff := yTrue[i] - yPred[i]
		sum += diff * diff
	}
	return sum / float64(len(yTrue)), nil
}

// RMSE は平方根平均二乗誤差（Root Mean Squared Error）を計算する
func RMSE(yTrue, yPred []float64) (float64, error) {
	mse, err := MSE(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return math.Sqrt(mse), nil
}

// MAE は平均絶対誤差（Mean Absolute Error）を計算する
func MAE(yTrue, yPred []float64) (float64, error) {
	if err := validatePair("MAE", yTrue, yPred); err != nil {
		return 0, err
	}
	var sum float64
	for i := range yTrue {
		sum += math.Abs(yTrue[i] - yPred[i])
	}
	return sum / float64(len(yTrue)), nil
}

// R2Score は決定係数（R²）を計算する
func R2Score(yTrue, yPred []float64) (float64, error) {
	if err := validatePair("R2Score", yTrue, yPred); err != nil {
		return 0, err
	}
	var yMean float64
	for _, v := range yTrue {
		yMean += v
	}
	yMean /= float64(len(yTrue))

	var tss, rss float64
	for i := range yTrue {
		tss += (yTrue[i] - yMean) * (yTrue[i] - yMean)
		rss += (yTrue[i] - yPred[i]) * (yTrue[i] - yPred[i])
	}
	// 全変動が0の場合（すべてのyTrueが同じ値）
	if tss == 0 {
		return 0, errors.Newf("R2Score: total sum of squares is zero (no variance in yTrue)")
	}
	return 1 - rss/tss, nil
}

// Accuracy は確率をしきい値で2値化した正解率を計算する
func Accuracy(yTrue, yProb []float64, threshold float64) (float64, error) {
	if err := validatePair("Accuracy", yTrue, yProb); err != nil {
		return 0, err
	}
	if err := validateBinary("Accuracy", yTrue); err != nil {
		return 0, err
	}
	correct := 0
	for i := range yTrue {
		pred := 0.0
		if yProb[i] >= threshold {
			pred = 1
		}
		if pred == yTrue[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(yTrue)), nil
}

// LogLoss は対数損失（クロスエントロピー）を計算する
func LogLoss(yTrue, yProb []float64) (float64, error) {
	if err := validatePair("LogLoss", yTrue, yProb); err != nil {
		return 0, err
	}
	if err := validateBinary("LogLoss", yTrue); err != nil {
		return 0, err
	}
	const eps = 1e-15
	var sum float64
	for i := range yTrue {
		p := math.Min(math.Max(yProb[i], eps), 1-eps)
		if yTrue[i] > 0.5 {
			sum -= math.Log(p)
		} else {
			sum -= math.Log(1 - p)
		}
	}
	return sum / float64(len(yTrue)), nil
}

// AUC はROC曲線下面積を計算する。
// 同順位はランク平均で処理する。片方のクラスしか存在しない場合は
// 指標が定義できないため、警告の上で0.5を返す。
func AUC(yTrue, yProb []float64) (float64, error) {
	if err := validatePair("AUC", yTrue, yProb); err != nil {
		return 0, err
	}
	if err := validateBinary("AUC", yTrue); err != nil {
		return 0, err
	}

	nPos, nNeg := classCounts(yTrue)
	if nPos == 0 || nNeg == 0 {
		errors.Warn(errors.NewUndefinedMetricWarning("auc", "only one class present", 0.5))
		return 0.5, nil
	}

	// スコア昇順のランク（同順位は平均ランク）から
	// Mann-Whitney統計量としてAUCを求める
	idx := make([]int, len(yProb))
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool { return yProb[idx[a]] < yProb[idx[b]] })

	ranks := make([]float64, len(yProb))
	for i := 0; i < len(idx); {
		j := i
		for j < len(idx) && yProb[idx[j]] == yProb[idx[i]] {
			j++
		}
		// i..j-1 が同順位ブロック
		avgRank := float64(i+j-1)/2 + 1
		for k := i; k < j; k++ {
			ranks[idx[k]] = avgRank
		}
		i = j
	}

	var rankSum float64
	for i := range yTrue {
		if yTrue[i] > 0.5 {
			rankSum += ranks[i]
		}
	}
	p := float64(nPos)
	n := float64(nNeg)
	return (rankSum - p*(p+1)/2) / (p * n), nil
}

// PRAUC は平均適合率（average precision）としてPR曲線下面積を計算する。
// 陽性が存在しない場合は警告の上で0を返す。
func PRAUC(yTrue, yProb []float64) (float64, error) {
	if err := validatePair("PRAUC", yTrue, yProb); err != nil {
		return 0, err
	}
	if err := validateBinary("PRAUC", yTrue); err != nil {
		return 0, err
	}

	nPos, _ := classCounts(yTrue)
	if nPos == 0 {
		errors.Warn(errors.NewUndefinedMetricWarning("pr_auc", "no positive samples", 0))
		return 0, nil
	}

	idx := make([]int, len(yProb))
	for i := range idx {
		idx[i] = i
	}
	// スコア降順
	sort.Slice(idx, func(a, b int) bool { return yProb[idx[a]] > yProb[idx[b]] })

	var tp, fp int
	var ap, prevRecall float64
	for i := 0; i < len(idx); {
		// 同一スコアはまとめて処理する
		j := i
		for j < len(idx) && yProb[idx[j]] == yProb[idx[i]] {
			if yTrue[idx[j]] > 0.5 {
				tp++
			} else {
				fp++
			}
			j++
		}
		recall := float64(tp) / float64(nPos)
		precision := float64(tp) / float64(tp+fp)
		ap += (recall - prevRecall) * precision
		prevRecall = recall
		i = j
	}
	return ap, nil
}

func validateBinary(op string, yTrue []float64) error {
	for _, v := range yTrue {
		if v != 0 && v != 1 {
			return errors.NewValueError(op, "labels must be binary 0/1")
		}
	}
	return nil
}

func classCounts(yTrue []float64) (pos, neg int) {
	for _, v := range yTrue {
		if v > 0.5 {
			pos++
		} else {
			neg++
		}
	}
	return pos, neg
}
