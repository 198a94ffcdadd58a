// Package recipe は宣言的な特徴量変換パイプラインを提供します。
//
// Recipeは順序付きのステップ列（順序カテゴリのスコア化、ダミー変数化、
// 最頻値/平均値補完）を保持し、Fitで学習パーティションの行のみから
// 統計量（平均、最頻値、カテゴリ水準）を捕捉します。Applyは捕捉済みの
// 統計量だけを使って任意のパーティションを数値特徴量行列へ変換します。
// Applyが対象データから統計量を再計算することはありません（リーク防止の不変条件）。
package recipe

import (
	"gonum.org/v1/gonum/mat"

	"github.com/tabforge/gbtune/dataset"
	"github.com/tabforge/gbtune/pkg/errors"
)

// Step は単一の変換ステップ。FitApplyは学習データで統計量を捕捉してから
// フレームを変換し、Applyは捕捉済み統計量のみで変換する。
type Step interface {
	// Name はステップ名（ログ・エラー用）
	Name() string

	// FitApply は統計量を学習し、フレームを変換する（Fit時のみ呼ばれる）
	FitApply(f *Frame) error

	// Apply は学習済み統計量でフレームを変換する
	Apply(f *Frame) error
}

// Recipe は未学習(unfit)と学習済み(fit)の2状態を持つ変換パイプライン。
// unfit→fitの遷移はFitによって一度だけ起こり、以後Applyがレシピを
// 変更することはない。
type Recipe struct {
	steps []Step
	label string

	fitted       bool
	featureNames []string
	labelLevels  []string // カテゴリ目的変数の水準（ソート済、[1]が陽性クラス）
}

// New は目的変数列名とステップ列からレシピを作成する。
// labelが空の場合、レシピは特徴量のみを生成する（Applyのラベルはnil）。
func New(label string, steps ...Step) *Recipe {
	return &Recipe{steps: steps, label: label}
}

// IsFitted はFit済みかどうかを返す
func (r *Recipe) IsFitted() bool { return r.fitted }

// FeatureNames はFitで確定した特徴量列の順序を返す
func (r *Recipe) FeatureNames() []string {
	names := make([]string, len(r.featureNames))
	copy(names, r.featureNames)
	return names
}

// PositiveLabel はカテゴリ目的変数の陽性クラス水準を返す。
// 数値目的変数の場合は空文字列。
func (r *Recipe) PositiveLabel() string {
	if len(r.labelLevels) == 2 {
		return r.labelLevels[1]
	}
	return ""
}

// Fit は学習パーティションの行のみを使って全ステップの統計量を捕捉する。
// 二度目の呼び出しはValueErrorになる。
func (r *Recipe) Fit(d *dataset.Dataset, rows []int) error {
	if r.fitted {
		return errors.NewValueError("Recipe.Fit", "recipe is already fitted")
	}
	if len(rows) == 0 {
		return errors.ErrEmptyData
	}

	f, err := newFrame(d, rows, r.label)
	if err != nil {
		return err
	}
	for _, step := range r.steps {
		if err := step.FitApply(f); err != nil {
			return errors.Wrapf(err, "step %s", step.Name())
		}
	}
	names, err := f.featureOrder()
	if err != nil {
		return err
	}
	r.featureNames = names

	if r.label != "" {
		col, err := d.Column(r.label)
		if err != nil {
			return err
		}
		if col.Kind == dataset.Categorical {
			levels := distinctSorted(col, rows)
			if len(levels) != 2 {
				return errors.NewValueError("Recipe.Fit", "categorical label must have exactly two levels")
			}
			r.labelLevels = levels
		}
	}

	r.fitted = true
	return nil
}

// Apply は学習済み統計量のみを使って行集合を特徴量行列へ変換する。
// 目的変数が設定されていればラベルベクトルも返す。
// Fit前の呼び出しはNotFittedError。
func (r *Recipe) Apply(d *dataset.Dataset, rows []int) (*mat.Dense, []float64, error) {
	if !r.fitted {
		return nil, nil, errors.NewNotFittedError("Recipe", "Apply")
	}
	if len(rows) == 0 {
		return nil, nil, errors.ErrEmptyData
	}

	f, err := newFrame(d, rows, r.label)
	if err != nil {
		return nil, nil, err
	}
	for _, step := range r.steps {
		if err := step.Apply(f); err != nil {
			return nil, nil, errors.Wrapf(err, "step %s", step.Name())
		}
	}

	// 列順はFit時に確定したものを再利用する
	x := mat.NewDense(len(rows), len(r.featureNames), nil)
	for j, name := range r.featureNames {
		vals, ok := f.numeric[name]
		if !ok {
			return nil, nil, errors.NewMissingColumnError("Recipe.Apply", name)
		}
		for i := range rows {
			x.Set(i, j, vals[i])
		}
	}

	if r.label == "" {
		return x, nil, nil
	}
	y, err := r.labelVector(d, rows)
	if err != nil {
		return nil, nil, err
	}
	return x, y, nil
}

func (r *Recipe) labelVector(d *dataset.Dataset, rows []int) ([]float64, error) {
	col, err := d.Column(r.label)
	if err != nil {
		return nil, err
	}
	y := make([]float64, len(rows))
	if col.Kind == dataset.Numeric {
		for i, row := range rows {
			y[i] = col.Floats[row]
		}
		return y, nil
	}
	for i, row := range rows {
		switch col.Strings[row] {
		case r.labelLevels[1]:
			y[i] = 1
		case r.labelLevels[0]:
			y[i] = 0
		default:
			return nil, errors.NewValueError("Recipe.Apply",
				"label level not seen during fit: "+col.Strings[row])
		}
	}
	return y, nil
}

func distinctSorted(col *dataset.Column, rows []int) []string {
	seen := make(map[string]bool)
	var levels []string
	for _, row := range rows {
		v := col.Strings[row]
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		levels = append(levels, v)
	}
	sortStrings(levels)
	return levels
}
