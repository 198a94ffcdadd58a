package dataset

import (
	"encoding/csv"
	"io"
	"math"
	"os"
	"strconv"

	"github.com/tabforge/gbtune/pkg/errors"
)

// Options は読み込みの設定
type Options struct {
	// Columns は宣言する列名。ファイル側にヘッダ行がない前提で、
	// 各行のフィールド数はlen(Columns)と一致しなければならない。
	Columns []string

	// MissingTokens は欠損値を表すセンチネル（例: "", "NA", "?"）。
	// 読み込み時に単一の欠損表現へ正規化される。
	MissingTokens []string

	// Comma はフィールド区切り文字。ゼロ値はカンマ。
	Comma rune

	// HasHeader がtrueの場合、先頭行を読み飛ばす
	HasHeader bool
}

// Load はパスの区切りファイルをDatasetとして読み込む。
//
// 列の型は推論される: 欠損を除く全セルがfloat64として解釈できる列はNumeric、
// それ以外はCategorical。行のフィールド数がlen(opts.Columns)と一致しない場合は
// FormatErrorを返し、部分的なDatasetは返さない。
func Load(path string, opts Options) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	defer f.Close()
	return Read(f, path, opts)
}

// Read はLoadの本体。pathはエラーメッセージ用。
func Read(r io.Reader, path string, opts Options) (*Dataset, error) {
	if len(opts.Columns) == 0 {
		return nil, errors.NewValidationError("columns", "at least one column name is required", opts.Columns)
	}

	cr := csv.NewReader(r)
	if opts.Comma != 0 {
		cr.Comma = opts.Comma
	}
	// 行幅の検証は自前で行い、FormatErrorに行番号を載せる
	cr.FieldsPerRecord = -1

	missing := make(map[string]bool, len(opts.MissingTokens)+1)
	missing[""] = true
	for _, tok := range opts.MissingTokens {
		missing[tok] = true
	}

	var cells [][]string
	line := 0
	if opts.HasHeader {
		if _, err := cr.Read(); err != nil && err != io.EOF {
			return nil, errors.Wrapf(err, "read header of %s", path)
		}
		line++
	}
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, "read %s", path)
		}
		line++
		if len(record) != len(opts.Columns) {
			return nil, errors.NewFormatError(path, line, len(opts.Columns), len(record))
		}
		cells = append(cells, record)
	}
	if len(cells) == 0 {
		return nil, errors.ErrEmptyData
	}

	cols := make([]Column, len(opts.Columns))
	for j, name := range opts.Columns {
		cols[j] = buildColumn(name, j, cells, missing)
	}
	return New(cols)
}

// buildColumn は1列分のセルから型を推論して列を構築する
func buildColumn(name string, j int, cells [][]string, missing map[string]bool) Column {
	numeric := true
	for i := range cells {
		v := cells[i][j]
		if missing[v] {
			continue
		}
		if _, err := strconv.ParseFloat(v, 64); err != nil {
			numeric = false
			break
		}
	}

	if numeric {
		floats := make([]float64, len(cells))
		for i := range cells {
			v := cells[i][j]
			if missing[v] {
				floats[i] = math.NaN()
				continue
			}
			floats[i], _ = strconv.ParseFloat(v, 64)
		}
		return Column{Name: name, Kind: Numeric, Floats: floats}
	}

	strs := make([]string, len(cells))
	for i := range cells {
		v := cells[i][j]
		if missing[v] {
			strs[i] = ""
			continue
		}
		strs[i] = v
	}
	return Column{Name: name, Kind: Categorical, Strings: strs}
}
