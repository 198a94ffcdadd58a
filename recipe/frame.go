package recipe

import (
	"sort"

	"github.com/tabforge/gbtune/dataset"
	"github.com/tabforge/gbtune/pkg/errors"
)

// Frame はステップが順に変換していく作業用の列集合。
// Datasetの選択行のコピーとして構築され、Datasetそのものは変更しない。
type Frame struct {
	rows  []int    // 元Datasetの行番号（警告メッセージ用）
	order []string // 現在の特徴量列の順序
	// 列は数値か文字列のどちらか一方に存在する
	numeric map[string][]float64
	strings map[string][]string
}

// newFrame はDatasetの選択行からフレームを構築する。label列は除外される。
func newFrame(d *dataset.Dataset, rows []int, label string) (*Frame, error) {
	f := &Frame{
		rows:    rows,
		numeric: make(map[string][]float64),
		strings: make(map[string][]string),
	}
	for _, name := range d.ColumnNames() {
		if name == label {
			continue
		}
		col, err := d.Column(name)
		if err != nil {
			return nil, err
		}
		f.order = append(f.order, name)
		if col.Kind == dataset.Numeric {
			vals := make([]float64, len(rows))
			for i, row := range rows {
				vals[i] = col.Floats[row]
			}
			f.numeric[name] = vals
		} else {
			vals := make([]string, len(rows))
			for i, row := range rows {
				vals[i] = col.Strings[row]
			}
			f.strings[name] = vals
		}
	}
	return f, nil
}

func (f *Frame) len() int { return len(f.rows) }

// replaceWithNumeric は文字列列を数値列へ置き換える（順序は維持）
func (f *Frame) replaceWithNumeric(name string, vals []float64) {
	delete(f.strings, name)
	f.numeric[name] = vals
}

// expand は1つの列を複数の数値列へ展開する（元の位置に挿入）
func (f *Frame) expand(name string, newNames []string, cols [][]float64) {
	delete(f.strings, name)
	delete(f.numeric, name)
	for i, n := range newNames {
		f.numeric[n] = cols[i]
	}

	order := make([]string, 0, len(f.order)+len(newNames)-1)
	for _, n := range f.order {
		if n == name {
			order = append(order, newNames...)
			continue
		}
		order = append(order, n)
	}
	f.order = order
}

// featureOrder は最終的な特徴量列の順序を返す。
// 文字列のまま残った列はステップで処理されていないためエラーになる。
func (f *Frame) featureOrder() ([]string, error) {
	for _, name := range f.order {
		if _, ok := f.strings[name]; ok {
			return nil, errors.NewValueError("Recipe.Fit",
				"categorical column not handled by any step: "+name)
		}
	}
	names := make([]string, len(f.order))
	copy(names, f.order)
	return names, nil
}

func sortStrings(s []string) { sort.Strings(s) }
