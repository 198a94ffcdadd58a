// Package report は探索と評価の結果をファイル成果物として書き出します。
//
// 表形式の成果物（試行表、集計表、曲線、キャリブレーション表、寄与行列）は
// CSVとして、実行メタデータはJSONとして出力されます。CSVはオプションで
// gzip圧縮できます。曲線と特徴量重要度のプロットはPNGとして出力されます。
package report

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/klauspost/compress/gzip"

	"github.com/tabforge/gbtune/boost"
	"github.com/tabforge/gbtune/eval"
	"github.com/tabforge/gbtune/pkg/errors"
	"github.com/tabforge/gbtune/tune"
)

// Writer は単一の出力ディレクトリに成果物を書き出す。
type Writer struct {
	dir      string
	compress bool
}

// NewWriter は出力ディレクトリを作成してWriterを返す。
// compressが真の場合、CSV成果物はgzip圧縮され拡張子.gzが付く。
func NewWriter(dir string, compress bool) (*Writer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "report: create output directory")
	}
	return &Writer{dir: dir, compress: compress}, nil
}

// Dir は出力ディレクトリを返す
func (w *Writer) Dir() string { return w.dir }

type gzipFile struct {
	gz *gzip.Writer
	f  *os.File
}

func (g *gzipFile) Write(p []byte) (int, error) { return g.gz.Write(p) }

func (g *gzipFile) Close() error {
	if err := g.gz.Close(); err != nil {
		g.f.Close()
		return err
	}
	return g.f.Close()
}

func (w *Writer) create(name string) (io.WriteCloser, string, error) {
	if w.compress {
		name += ".gz"
	}
	path := filepath.Join(w.dir, name)
	f, err := os.Create(path)
	if err != nil {
		return nil, "", errors.Wrapf(err, "report: create %s", name)
	}
	if w.compress {
		return &gzipFile{gz: gzip.NewWriter(f), f: f}, path, nil
	}
	return f, path, nil
}

func (w *Writer) writeCSV(name string, rows [][]string) (string, error) {
	out, path, err := w.create(name)
	if err != nil {
		return "", err
	}
	cw := csv.NewWriter(out)
	if err := cw.WriteAll(rows); err != nil {
		out.Close()
		return "", errors.Wrapf(err, "report: write %s", name)
	}
	if err := out.Close(); err != nil {
		return "", errors.Wrapf(err, "report: close %s", name)
	}
	return path, nil
}

func ftoa(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// SearchTrials はフォールドごとの試行表をtrials.csvへ書き出す。
// 列はグリッド点番号、フォールド番号、各ハイパーパラメータ、各指標、
// 失敗した試行のエラーメッセージ。
func (w *Writer) SearchTrials(table *tune.Table, metrics []string) (string, error) {
	header := []string{"point", "fold"}
	header = append(header, table.Grid.Names...)
	header = append(header, metrics...)
	header = append(header, "error")

	rows := [][]string{header}
	for _, trial := range table.Trials {
		row := []string{strconv.Itoa(trial.PointIndex), strconv.Itoa(trial.Fold)}
		for _, name := range table.Grid.Names {
			row = append(row, ftoa(trial.Point[name]))
		}
		for _, name := range metrics {
			if trial.Err != nil {
				row = append(row, "")
				continue
			}
			row = append(row, ftoa(trial.Metrics[name]))
		}
		if trial.Err != nil {
			row = append(row, trial.Err.Error())
		} else {
			row = append(row, "")
		}
		rows = append(rows, row)
	}
	return w.writeCSV("trials.csv", rows)
}

// SearchSummary はグリッド点ごとの集計表をsummary.csvへ書き出す。
// 指標ごとに平均と標準誤差の列が並ぶ。
func (w *Writer) SearchSummary(grid tune.Grid, summaries []tune.Summary, metrics []string) (string, error) {
	header := []string{"point", "folds"}
	header = append(header, grid.Names...)
	for _, name := range metrics {
		header = append(header, "mean_"+name, "stderr_"+name)
	}

	rows := [][]string{header}
	for _, s := range summaries {
		row := []string{strconv.Itoa(s.PointIndex), strconv.Itoa(s.Folds)}
		for _, name := range grid.Names {
			row = append(row, ftoa(s.Point[name]))
		}
		for _, name := range metrics {
			row = append(row, ftoa(s.Mean[name]), ftoa(s.StdErr[name]))
		}
		rows = append(rows, row)
	}
	return w.writeCSV("summary.csv", rows)
}

// Curves は評価レポートの曲線成果物を書き出す。
// 分類レポートのみroc.csv、pr.csv、calibration.csvが生成される。
func (w *Writer) Curves(r *eval.Report) ([]string, error) {
	var paths []string

	if r.ROC != nil {
		rows := [][]string{{"threshold", "fpr", "tpr"}}
		for _, p := range r.ROC {
			rows = append(rows, []string{ftoa(p.Threshold), ftoa(p.FPR), ftoa(p.TPR)})
		}
		path, err := w.writeCSV("roc.csv", rows)
		if err != nil {
			return nil, err
		}
		paths = append(paths, path)
	}

	if r.PR != nil {
		rows := [][]string{{"threshold", "recall", "precision"}}
		for _, p := range r.PR {
			rows = append(rows, []string{ftoa(p.Threshold), ftoa(p.Recall), ftoa(p.Precision)})
		}
		path, err := w.writeCSV("pr.csv", rows)
		if err != nil {
			return nil, err
		}
		paths = append(paths, path)
	}

	if r.Calibration != nil {
		rows := [][]string{{"count", "mean_predicted", "observed_rate"}}
		for _, b := range r.Calibration {
			rows = append(rows, []string{strconv.Itoa(b.Count), ftoa(b.MeanPredicted), ftoa(b.ObservedRate)})
		}
		path, err := w.writeCSV("calibration.csv", rows)
		if err != nil {
			return nil, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// Attributions は行×特徴量の寄与行列をattributions.csvへ書き出す。
// 先頭列はベースライン（全行で同一）。
func (w *Writer) Attributions(exp *eval.Explanation) (string, error) {
	header := append([]string{"baseline"}, exp.FeatureNames...)
	rows := [][]string{header}
	n, m := exp.Values.Dims()
	for i := 0; i < n; i++ {
		row := []string{ftoa(exp.Baseline)}
		for j := 0; j < m; j++ {
			row = append(row, ftoa(exp.Values.At(i, j)))
		}
		rows = append(rows, row)
	}
	return w.writeCSV("attributions.csv", rows)
}

// RunInfo は実行の再現に必要なメタデータと最終結果。
type RunInfo struct {
	Seed               uint64             `json:"seed"`
	DatasetFingerprint uint64             `json:"dataset_fingerprint"`
	Folds              int                `json:"folds"`
	SelectionMetric    string             `json:"selection_metric"`
	PositiveLabel      string             `json:"positive_label,omitempty"`
	Params             boost.Params       `json:"params"`
	HoldoutMetrics     map[string]float64 `json:"holdout_metrics"`
}

// WriteRunInfo は実行メタデータをrun.jsonへ書き出す（圧縮なし）。
func (w *Writer) WriteRunInfo(info RunInfo) (string, error) {
	path := filepath.Join(w.dir, "run.json")
	data, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return "", errors.Wrap(err, "report: marshal run info")
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return "", errors.Wrap(err, "report: write run.json")
	}
	return path, nil
}
