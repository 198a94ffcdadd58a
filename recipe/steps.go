package recipe

import (
	"math"
	"sort"

	"github.com/tabforge/gbtune/pkg/errors"
)

// ImputeMean は数値列の欠損(NaN)を学習データの平均値で補完するステップ
type ImputeMean struct {
	Columns []string

	means map[string]float64
}

// Name はステップ名を返す
func (s *ImputeMean) Name() string { return "impute_mean" }

// FitApply は各列の平均値（欠損を除く）を捕捉し、欠損を補完する
func (s *ImputeMean) FitApply(f *Frame) error {
	s.means = make(map[string]float64, len(s.Columns))
	for _, name := range s.Columns {
		vals, ok := f.numeric[name]
		if !ok {
			if _, isStr := f.strings[name]; isStr {
				return errors.NewValueError("impute_mean", "column is not numeric: "+name)
			}
			return errors.NewMissingColumnError("impute_mean", name)
		}
		var sum float64
		n := 0
		for _, v := range vals {
			if !math.IsNaN(v) {
				sum += v
				n++
			}
		}
		if n == 0 {
			return errors.NewValueError("impute_mean", "column has no observed values: "+name)
		}
		s.means[name] = sum / float64(n)
	}
	return s.Apply(f)
}

// Apply は捕捉済みの平均値で欠損を補完する
func (s *ImputeMean) Apply(f *Frame) error {
	if s.means == nil {
		return errors.NewNotFittedError("impute_mean", "Apply")
	}
	for _, name := range s.Columns {
		vals, ok := f.numeric[name]
		if !ok {
			return errors.NewMissingColumnError("impute_mean", name)
		}
		mean := s.means[name]
		for i, v := range vals {
			if math.IsNaN(v) {
				vals[i] = mean
			}
		}
	}
	return nil
}

// ImputeMode はカテゴリ列の欠損を学習データの最頻値で補完するステップ。
// 最頻値が複数ある場合は辞書順で最小の水準を採用する（決定性のため）。
type ImputeMode struct {
	Columns []string

	modes map[string]string
}

// Name はステップ名を返す
func (s *ImputeMode) Name() string { return "impute_mode" }

// FitApply は各列の最頻値（欠損を除く）を捕捉し、欠損を補完する
func (s *ImputeMode) FitApply(f *Frame) error {
	s.modes = make(map[string]string, len(s.Columns))
	for _, name := range s.Columns {
		vals, ok := f.strings[name]
		if !ok {
			if _, isNum := f.numeric[name]; isNum {
				return errors.NewValueError("impute_mode", "column is not categorical: "+name)
			}
			return errors.NewMissingColumnError("impute_mode", name)
		}
		counts := make(map[string]int)
		for _, v := range vals {
			if v != "" {
				counts[v]++
			}
		}
		if len(counts) == 0 {
			return errors.NewValueError("impute_mode", "column has no observed values: "+name)
		}
		best := ""
		bestCount := -1
		for v, c := range counts {
			if c > bestCount || (c == bestCount && v < best) {
				best, bestCount = v, c
			}
		}
		s.modes[name] = best
	}
	return s.Apply(f)
}

// Apply は捕捉済みの最頻値で欠損を補完する
func (s *ImputeMode) Apply(f *Frame) error {
	if s.modes == nil {
		return errors.NewNotFittedError("impute_mode", "Apply")
	}
	for _, name := range s.Columns {
		vals, ok := f.strings[name]
		if !ok {
			return errors.NewMissingColumnError("impute_mode", name)
		}
		mode := s.modes[name]
		for i, v := range vals {
			if v == "" {
				vals[i] = mode
			}
		}
	}
	return nil
}

// Ordinal は順序付きカテゴリ列を0..N-1の整数スコアへ変換するステップ。
// 水準の順序はセマンティクスなので、Levelsとして宣言する。
type Ordinal struct {
	Column string
	Levels []string // 順序どおりの水準列

	scores map[string]float64
}

// Name はステップ名を返す
func (s *Ordinal) Name() string { return "ordinal" }

// FitApply は宣言された順序からスコア表を構築し、列を数値化する。
// 学習データに宣言外の水準が含まれる場合は構成エラー。
func (s *Ordinal) FitApply(f *Frame) error {
	if len(s.Levels) == 0 {
		return errors.NewValueError("ordinal", "no levels declared for column "+s.Column)
	}
	vals, ok := f.strings[s.Column]
	if !ok {
		if _, isNum := f.numeric[s.Column]; isNum {
			return errors.NewValueError("ordinal", "column is not categorical: "+s.Column)
		}
		return errors.NewMissingColumnError("ordinal", s.Column)
	}

	s.scores = make(map[string]float64, len(s.Levels))
	for i, level := range s.Levels {
		s.scores[level] = float64(i)
	}
	for _, v := range vals {
		if v == "" {
			continue
		}
		if _, ok := s.scores[v]; !ok {
			return errors.NewValueError("ordinal",
				"training level not in declared ordering: "+v)
		}
	}
	return s.Apply(f)
}

// Apply は捕捉済みのスコア表で列を数値化する。
// fit時に存在しなかった水準は警告の上で-1にマップされる（欠損も-1）。
func (s *Ordinal) Apply(f *Frame) error {
	if s.scores == nil {
		return errors.NewNotFittedError("ordinal", "Apply")
	}
	vals, ok := f.strings[s.Column]
	if !ok {
		return errors.NewMissingColumnError("ordinal", s.Column)
	}

	out := make([]float64, f.len())
	for i, v := range vals {
		if v == "" {
			out[i] = -1
			continue
		}
		score, ok := s.scores[v]
		if !ok {
			errors.Warn(errors.NewUnseenCategoryWarning(s.Column, v, f.rows[i]))
			out[i] = -1
			continue
		}
		out[i] = score
	}
	f.replaceWithNumeric(s.Column, out)
	return nil
}

// Dummy はカテゴリ列をL-1個のインジケータ列へ変換するステップ。
// 水準は学習データからソート順で捕捉され、先頭の水準が参照水準として
// 除外される。fit時に存在しなかった水準は警告の上で全ゼロ行になる。
type Dummy struct {
	Columns []string

	levels map[string][]string
}

// Name はステップ名を返す
func (s *Dummy) Name() string { return "dummy" }

// FitApply は各列の水準集合を捕捉し、インジケータ列へ展開する
func (s *Dummy) FitApply(f *Frame) error {
	s.levels = make(map[string][]string, len(s.Columns))
	for _, name := range s.Columns {
		vals, ok := f.strings[name]
		if !ok {
			if _, isNum := f.numeric[name]; isNum {
				return errors.NewValueError("dummy", "column is not categorical: "+name)
			}
			return errors.NewMissingColumnError("dummy", name)
		}
		seen := make(map[string]bool)
		var levels []string
		for _, v := range vals {
			if v == "" || seen[v] {
				continue
			}
			seen[v] = true
			levels = append(levels, v)
		}
		if len(levels) == 0 {
			return errors.NewValueError("dummy", "column has no observed levels: "+name)
		}
		sort.Strings(levels)
		s.levels[name] = levels
	}
	return s.Apply(f)
}

// Apply は捕捉済みの水準集合でインジケータ列へ展開する
func (s *Dummy) Apply(f *Frame) error {
	if s.levels == nil {
		return errors.NewNotFittedError("dummy", "Apply")
	}
	for _, name := range s.Columns {
		vals, ok := f.strings[name]
		if !ok {
			return errors.NewMissingColumnError("dummy", name)
		}
		levels := s.levels[name]
		known := make(map[string]int, len(levels))
		for i, level := range levels {
			known[level] = i
		}

		// 参照水準levels[0]は列を持たない（全ゼロで表現される）
		indicator := levels[1:]
		newNames := make([]string, len(indicator))
		cols := make([][]float64, len(indicator))
		for j, level := range indicator {
			newNames[j] = name + "_" + level
			cols[j] = make([]float64, f.len())
		}

		for i, v := range vals {
			if v == "" {
				continue // 補完されなかった欠損は全ゼロ
			}
			pos, ok := known[v]
			if !ok {
				errors.Warn(errors.NewUnseenCategoryWarning(name, v, f.rows[i]))
				continue // 未知水準は全ゼロ
			}
			if pos > 0 {
				cols[pos-1][i] = 1
			}
		}
		f.expand(name, newNames, cols)
	}
	return nil
}
