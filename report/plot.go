package report

import (
	"image/color"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/tabforge/gbtune/eval"
	"github.com/tabforge/gbtune/pkg/errors"
)

const plotSize = 5 * vg.Inch

func (w *Writer) savePlot(p *plot.Plot, name string) (string, error) {
	path := filepath.Join(w.dir, name)
	if err := p.Save(plotSize, plotSize, path); err != nil {
		return "", errors.Wrapf(err, "report: save %s", name)
	}
	return path, nil
}

// diagonal は(0,0)-(1,1)の参照線
func diagonal() *plotter.Line {
	line, _ := plotter.NewLine(plotter.XYs{{X: 0, Y: 0}, {X: 1, Y: 1}})
	line.LineStyle.Color = color.Gray{Y: 160}
	line.LineStyle.Dashes = []vg.Length{vg.Points(4), vg.Points(4)}
	return line
}

// ROCPlot はROC曲線をroc.pngへ描画する。ランダム分類器の対角線を併記する。
func (w *Writer) ROCPlot(points []eval.ROCPoint) (string, error) {
	p := plot.New()
	p.Title.Text = "ROC curve"
	p.X.Label.Text = "false positive rate"
	p.Y.Label.Text = "true positive rate"
	p.X.Min, p.X.Max = 0, 1
	p.Y.Min, p.Y.Max = 0, 1

	xys := make(plotter.XYs, len(points))
	for i, pt := range points {
		xys[i] = plotter.XY{X: pt.FPR, Y: pt.TPR}
	}
	line, err := plotter.NewLine(xys)
	if err != nil {
		return "", errors.Wrap(err, "report: roc line")
	}
	p.Add(diagonal(), line)
	return w.savePlot(p, "roc.png")
}

// PRPlot はPR曲線をpr.pngへ描画する
func (w *Writer) PRPlot(points []eval.PRPoint) (string, error) {
	p := plot.New()
	p.Title.Text = "Precision-Recall curve"
	p.X.Label.Text = "recall"
	p.Y.Label.Text = "precision"
	p.X.Min, p.X.Max = 0, 1
	p.Y.Min, p.Y.Max = 0, 1

	xys := make(plotter.XYs, len(points))
	for i, pt := range points {
		xys[i] = plotter.XY{X: pt.Recall, Y: pt.Precision}
	}
	line, err := plotter.NewLine(xys)
	if err != nil {
		return "", errors.Wrap(err, "report: pr line")
	}
	p.Add(line)
	return w.savePlot(p, "pr.png")
}

// CalibrationPlot は平均予測確率に対する観測陽性率をcalibration.pngへ描画する。
// 完全に校正された予測は対角線上に乗る。
func (w *Writer) CalibrationPlot(buckets []eval.CalibrationBucket) (string, error) {
	p := plot.New()
	p.Title.Text = "Calibration"
	p.X.Label.Text = "mean predicted probability"
	p.Y.Label.Text = "observed positive rate"
	p.X.Min, p.X.Max = 0, 1
	p.Y.Min, p.Y.Max = 0, 1

	xys := make(plotter.XYs, len(buckets))
	for i, b := range buckets {
		xys[i] = plotter.XY{X: b.MeanPredicted, Y: b.ObservedRate}
	}
	line, pts, err := plotter.NewLinePoints(xys)
	if err != nil {
		return "", errors.Wrap(err, "report: calibration line")
	}
	p.Add(diagonal(), line, pts)
	return w.savePlot(p, "calibration.png")
}

// PredictedObservedPlot は回帰の予測値対観測値の散布図を
// predicted_observed.pngへ描画する。完全な予測は対角線上に乗る。
func (w *Writer) PredictedObservedPlot(r *eval.Report) (string, error) {
	p := plot.New()
	p.Title.Text = "Predicted vs observed"
	p.X.Label.Text = "observed"
	p.Y.Label.Text = "predicted"

	xys := make(plotter.XYs, len(r.Predictions))
	for i := range r.Predictions {
		xys[i] = plotter.XY{X: r.Actuals[i], Y: r.Predictions[i]}
	}
	scatter, err := plotter.NewScatter(xys)
	if err != nil {
		return "", errors.Wrap(err, "report: predicted-observed scatter")
	}
	scatter.GlyphStyle.Radius = vg.Points(2)

	lo, hi := xys[0].X, xys[0].X
	for _, pt := range xys {
		lo = min(lo, min(pt.X, pt.Y))
		hi = max(hi, max(pt.X, pt.Y))
	}
	ident, _ := plotter.NewLine(plotter.XYs{{X: lo, Y: lo}, {X: hi, Y: hi}})
	ident.LineStyle.Color = color.Gray{Y: 160}
	ident.LineStyle.Dashes = []vg.Length{vg.Points(4), vg.Points(4)}

	p.Add(ident, scatter)
	return w.savePlot(p, "predicted_observed.png")
}

// ImportancePlot は特徴量の平均絶対寄与をimportance.pngへ棒グラフとして描画する
func (w *Writer) ImportancePlot(exp *eval.Explanation) (string, error) {
	p := plot.New()
	p.Title.Text = "Feature importance"
	p.Y.Label.Text = "mean |contribution|"

	values := make(plotter.Values, len(exp.Ranking))
	names := make([]string, len(exp.Ranking))
	for i, j := range exp.Ranking {
		values[i] = exp.MeanAbs[j]
		names[i] = exp.FeatureNames[j]
	}
	bars, err := plotter.NewBarChart(values, vg.Points(24))
	if err != nil {
		return "", errors.Wrap(err, "report: importance bars")
	}
	p.Add(bars)
	p.NominalX(names...)
	return w.savePlot(p, "importance.png")
}
