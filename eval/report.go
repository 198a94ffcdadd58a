package eval

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/tabforge/gbtune/boost"
	"github.com/tabforge/gbtune/dataset"
	"github.com/tabforge/gbtune/pkg/errors"
	"github.com/tabforge/gbtune/recipe"
)

// Options は評価の設定。ゼロ値は目的に応じた既定値に解決される。
type Options struct {
	// Metrics は計算するスカラー指標。空の場合は目的別の既定セット。
	Metrics []string
	// Threshold は混同行列の確率しきい値（既定0.5）
	Threshold float64
	// CalibrationBuckets はキャリブレーション表のグループ数（既定4）
	CalibrationBuckets int
}

// Report は保留パーティション上の評価結果。
// 分類の場合のみ混同行列・曲線・キャリブレーション表が埋まる。
type Report struct {
	Objective boost.Objective

	Metrics map[string]float64

	// Predictions は回帰では生スコア、分類では予測確率
	Predictions []float64
	Actuals     []float64

	Confusion   *ConfusionMatrix
	ROC         []ROCPoint
	PR          []PRPoint
	Calibration []CalibrationBucket
}

// DefaultMetrics は目的別の既定指標セットを返す
func DefaultMetrics(obj boost.Objective) []string {
	if obj == boost.ObjectiveBinary {
		return []string{MetricAccuracy, MetricLogLoss, MetricAUC, MetricPRAUC}
	}
	return []string{MetricRMSE, MetricMAE, MetricR2}
}

// Evaluate は学習済みモデルを保留パーティションの行で評価する。
// レシピはfit済みでなければならない（統計量の再計算は起こらない）。
func Evaluate(model *boost.Model, rec *recipe.Recipe, ds *dataset.Dataset, rows []int, opts Options) (*Report, error) {
	x, y, err := rec.Apply(ds, rows)
	if err != nil {
		return nil, err
	}
	if y == nil {
		return nil, errors.NewValueError("Evaluate", "recipe has no label column")
	}

	report := &Report{
		Objective: model.Objective,
		Metrics:   make(map[string]float64),
		Actuals:   y,
	}

	if model.Objective == boost.ObjectiveBinary {
		report.Predictions, err = model.PredictProba(x)
	} else {
		report.Predictions, err = model.Predict(x)
	}
	if err != nil {
		return nil, err
	}

	names := opts.Metrics
	if len(names) == 0 {
		names = DefaultMetrics(model.Objective)
	}
	for _, name := range names {
		v, err := Compute(name, y, report.Predictions)
		if err != nil {
			return nil, errors.Wrapf(err, "metric %s", name)
		}
		report.Metrics[name] = v
	}

	if model.Objective == boost.ObjectiveBinary {
		threshold := opts.Threshold
		if threshold == 0 {
			threshold = 0.5
		}
		buckets := opts.CalibrationBuckets
		if buckets == 0 {
			buckets = 4
		}

		if report.Confusion, err = Confusion(y, report.Predictions, threshold); err != nil {
			return nil, err
		}
		if report.ROC, err = ROCCurve(y, report.Predictions); err != nil {
			return nil, err
		}
		if report.PR, err = PRCurve(y, report.Predictions); err != nil {
			return nil, err
		}
		if report.Calibration, err = Calibration(y, report.Predictions, buckets); err != nil {
			return nil, err
		}
	}
	return report, nil
}

// Explanation は行×特徴量の加法的寄与分解とその要約
type Explanation struct {
	FeatureNames []string
	Values       *mat.Dense
	Baseline     float64

	// MeanAbs は特徴量ごとの平均絶対寄与（要約ランキング用）
	MeanAbs []float64
	// Ranking はMeanAbsの降順の特徴量インデックス
	Ranking []int
}

// Explain は各行の生スコアを特徴量ごとの寄与へ分解する。
// 各行について baseline + Σ寄与 = 生スコア が成り立つ。
func Explain(model *boost.Model, rec *recipe.Recipe, ds *dataset.Dataset, rows []int) (*Explanation, error) {
	x, _, err := rec.Apply(ds, rows)
	if err != nil {
		return nil, err
	}
	attr, err := model.Attribute(x)
	if err != nil {
		return nil, err
	}

	n, m := attr.Values.Dims()
	meanAbs := make([]float64, m)
	for j := 0; j < m; j++ {
		var sum float64
		for i := 0; i < n; i++ {
			sum += math.Abs(attr.Values.At(i, j))
		}
		meanAbs[j] = sum / float64(n)
	}
	ranking := make([]int, m)
	for i := range ranking {
		ranking[i] = i
	}
	sort.SliceStable(ranking, func(a, b int) bool { return meanAbs[ranking[a]] > meanAbs[ranking[b]] })

	return &Explanation{
		FeatureNames: rec.FeatureNames(),
		Values:       attr.Values,
		Baseline:     attr.Baseline,
		MeanAbs:      meanAbs,
		Ranking:      ranking,
	}, nil
}
