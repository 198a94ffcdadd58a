// Package dataset は区切りテキストファイルをメモリ上の表形式データとして読み込み、
// 学習/検証分割とK-fold交差検証の分割を提供します。
//
// Datasetは読み込み後は不変であり、行インデックスのスライスを通じて
// 部分集合を参照します。欠損値は読み込み時に単一の表現
// （数値列はNaN、カテゴリ列は空文字列）へ正規化されます。
package dataset

import (
	"math"
	"strconv"

	"github.com/cespare/xxhash/v2"

	"github.com/tabforge/gbtune/pkg/errors"
)

// ColumnKind は列のセマンティクス型を表す
type ColumnKind int

const (
	// Numeric は数値列（欠損はNaN）
	Numeric ColumnKind = iota
	// Categorical はカテゴリ列（欠損は空文字列）
	Categorical
)

func (k ColumnKind) String() string {
	if k == Numeric {
		return "numeric"
	}
	return "categorical"
}

// Column は単一列のセルを保持する。KindがNumericの場合はFloatsを、
// Categoricalの場合はStringsを使用する。
type Column struct {
	Name    string
	Kind    ColumnKind
	Floats  []float64
	Strings []string
}

// IsMissing は行iのセルが欠損かどうかを返す
func (c *Column) IsMissing(i int) bool {
	if c.Kind == Numeric {
		return math.IsNaN(c.Floats[i])
	}
	return c.Strings[i] == ""
}

// Dataset は固定スキーマのレコード列。全列の長さは一致する（不変条件）。
type Dataset struct {
	cols  []Column
	index map[string]int
	rows  int
}

// New は列からDatasetを構築する。列長の不一致はDimensionErrorになる。
func New(cols []Column) (*Dataset, error) {
	if len(cols) == 0 {
		return nil, errors.ErrEmptyData
	}
	rows := cellCount(&cols[0])
	index := make(map[string]int, len(cols))
	for i := range cols {
		if n := cellCount(&cols[i]); n != rows {
			return nil, errors.NewDimensionError("dataset.New", rows, n, 0)
		}
		index[cols[i].Name] = i
	}
	return &Dataset{cols: cols, index: index, rows: rows}, nil
}

func cellCount(c *Column) int {
	if c.Kind == Numeric {
		return len(c.Floats)
	}
	return len(c.Strings)
}

// NumRows は行数を返す
func (d *Dataset) NumRows() int { return d.rows }

// NumColumns は列数を返す
func (d *Dataset) NumColumns() int { return len(d.cols) }

// ColumnNames は宣言順の列名を返す
func (d *Dataset) ColumnNames() []string {
	names := make([]string, len(d.cols))
	for i := range d.cols {
		names[i] = d.cols[i].Name
	}
	return names
}

// HasColumn は列が存在するかどうかを返す
func (d *Dataset) HasColumn(name string) bool {
	_, ok := d.index[name]
	return ok
}

// Column は名前で列を引く。存在しない場合はMissingColumnError。
func (d *Dataset) Column(name string) (*Column, error) {
	i, ok := d.index[name]
	if !ok {
		return nil, errors.NewMissingColumnError("Dataset.Column", name)
	}
	return &d.cols[i], nil
}

// Indices は全行のインデックス列 0..n-1 を返す
func (d *Dataset) Indices() []int {
	idx := make([]int, d.rows)
	for i := range idx {
		idx[i] = i
	}
	return idx
}

// Fingerprint はスキーマと全セル内容のxxhashダイジェストを返す。
// シードと合わせて成果物に記録することで、同一の(シード, データ)から
// 同一の分割・探索が再現されたことを検証できる。
func (d *Dataset) Fingerprint() uint64 {
	h := xxhash.New()
	for i := range d.cols {
		c := &d.cols[i]
		_, _ = h.WriteString(c.Name)
		_, _ = h.Write([]byte{0})
		if c.Kind == Numeric {
			for _, v := range c.Floats {
				_, _ = h.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
				_, _ = h.Write([]byte{0})
			}
		} else {
			for _, s := range c.Strings {
				_, _ = h.WriteString(s)
				_, _ = h.Write([]byte{0})
			}
		}
	}
	return h.Sum64()
}
