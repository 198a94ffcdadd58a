package pipeline

import (
	"log/slog"

	"github.com/tabforge/gbtune/boost"
	"github.com/tabforge/gbtune/dataset"
	"github.com/tabforge/gbtune/eval"
	"github.com/tabforge/gbtune/report"
	"github.com/tabforge/gbtune/tune"
)

// Result は1回の実行の全出力
type Result struct {
	Dataset *dataset.Dataset
	Holdout dataset.Split

	Table     *tune.Table
	Summaries []tune.Summary
	Best      tune.Summary
	Fitted    *tune.Fitted

	Report      *eval.Report
	Explanation *eval.Explanation

	// Artifacts は書き出された成果物ファイルのパス
	Artifacts []string
}

// Run は設定に従って全工程を実行する。
// 各工程の進行はslogの既定ロガーへ出力される。
func Run(cfg *Config) (*Result, error) {
	ds, err := loadData(cfg)
	if err != nil {
		return nil, err
	}
	slog.Info("dataset loaded",
		"path", cfg.Data.Path,
		"rows", ds.NumRows(),
		"columns", ds.NumColumns(),
		"fingerprint", ds.Fingerprint())

	holdout, err := dataset.TrainTest(ds, cfg.Split.Proportion, cfg.Model.Seed)
	if err != nil {
		return nil, err
	}
	splits, err := foldSplits(cfg, ds, holdout.Train)
	if err != nil {
		return nil, err
	}
	slog.Info("partitions created",
		"train", len(holdout.Train),
		"holdout", len(holdout.Test),
		"folds", len(splits),
		"stratified", cfg.Split.Stratified)

	grid, err := cfg.buildGrid()
	if err != nil {
		return nil, err
	}
	searchCfg := tune.Config{
		Base:    cfg.Model,
		Grid:    grid,
		Splits:  splits,
		Recipe:  cfg.buildRecipe(),
		Metrics: cfg.Search.Metrics,
		Workers: cfg.Search.Workers,
	}
	slog.Info("search started",
		"points", len(grid.Points),
		"folds", len(splits),
		"trials", len(grid.Points)*len(splits))

	table, err := tune.Search(ds, searchCfg)
	if err != nil {
		return nil, err
	}
	failed := 0
	for _, trial := range table.Trials {
		if trial.Err != nil {
			failed++
		}
	}
	if failed > 0 {
		slog.Warn("search finished with failed trials", "failed", failed, "total", len(table.Trials))
	}

	summaries := table.Aggregate()
	best, err := tune.SelectBest(summaries, cfg.Search.Metric, cfg.selectionDirection())
	if err != nil {
		return nil, err
	}
	slog.Info("best point selected",
		"point", best.PointIndex,
		"metric", cfg.Search.Metric,
		"mean", best.Mean[cfg.Search.Metric],
		"stderr", best.StdErr[cfg.Search.Metric])

	fitted, err := tune.Finalize(ds, holdout.Train, searchCfg, best.Point)
	if err != nil {
		return nil, err
	}
	slog.Info("final model refitted", "train_rows", len(holdout.Train), "trees", len(fitted.Model.Trees))

	holdoutReport, err := eval.Evaluate(fitted.Model, fitted.Recipe, ds, holdout.Test, eval.Options{
		Metrics:            cfg.Eval.Metrics,
		Threshold:          cfg.Eval.Threshold,
		CalibrationBuckets: cfg.Eval.CalibrationBuckets,
	})
	if err != nil {
		return nil, err
	}
	for name, v := range holdoutReport.Metrics {
		slog.Info("holdout metric", "metric", name, "value", v)
	}

	explainRows := holdout.Test
	if cfg.Eval.ExplainRows > 0 && cfg.Eval.ExplainRows < len(explainRows) {
		explainRows = explainRows[:cfg.Eval.ExplainRows]
	}
	explanation, err := eval.Explain(fitted.Model, fitted.Recipe, ds, explainRows)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Dataset:     ds,
		Holdout:     holdout,
		Table:       table,
		Summaries:   summaries,
		Best:        best,
		Fitted:      fitted,
		Report:      holdoutReport,
		Explanation: explanation,
	}
	if result.Artifacts, err = writeArtifacts(cfg, result); err != nil {
		return nil, err
	}
	slog.Info("run complete", "artifacts", len(result.Artifacts), "dir", cfg.Output.Dir)
	return result, nil
}

func loadData(cfg *Config) (*dataset.Dataset, error) {
	opts := dataset.Options{
		Columns:       cfg.Data.Columns,
		MissingTokens: cfg.Data.MissingTokens,
		HasHeader:     cfg.Data.HasHeader,
	}
	if cfg.Data.Delimiter != "" {
		opts.Comma = rune(cfg.Data.Delimiter[0])
	}
	return dataset.Load(cfg.Data.Path, opts)
}

func foldSplits(cfg *Config, ds *dataset.Dataset, trainRows []int) ([]dataset.Split, error) {
	if cfg.Split.Stratified {
		return dataset.StratifiedKFold(ds, trainRows, cfg.Data.Label, cfg.Split.Folds, cfg.Model.Seed)
	}
	return dataset.KFold(trainRows, cfg.Split.Folds, cfg.Model.Seed)
}

func writeArtifacts(cfg *Config, result *Result) ([]string, error) {
	w, err := report.NewWriter(cfg.Output.Dir, cfg.Output.Compress)
	if err != nil {
		return nil, err
	}
	var paths []string

	path, err := w.SearchTrials(result.Table, cfg.Search.Metrics)
	if err != nil {
		return nil, err
	}
	paths = append(paths, path)

	if path, err = w.SearchSummary(result.Table.Grid, result.Summaries, cfg.Search.Metrics); err != nil {
		return nil, err
	}
	paths = append(paths, path)

	curvePaths, err := w.Curves(result.Report)
	if err != nil {
		return nil, err
	}
	paths = append(paths, curvePaths...)

	if path, err = w.Attributions(result.Explanation); err != nil {
		return nil, err
	}
	paths = append(paths, path)

	if path, err = w.WriteRunInfo(report.RunInfo{
		Seed:               cfg.Model.Seed,
		DatasetFingerprint: result.Table.Meta.DatasetFingerprint,
		Folds:              result.Table.Meta.Folds,
		SelectionMetric:    cfg.Search.Metric,
		PositiveLabel:      result.Fitted.Recipe.PositiveLabel(),
		Params:             result.Fitted.Params,
		HoldoutMetrics:     result.Report.Metrics,
	}); err != nil {
		return nil, err
	}
	paths = append(paths, path)

	if cfg.Output.Plots {
		plotPaths, err := writePlots(w, result)
		if err != nil {
			return nil, err
		}
		paths = append(paths, plotPaths...)
	}
	return paths, nil
}

func writePlots(w *report.Writer, result *Result) ([]string, error) {
	var paths []string
	if result.Report.ROC != nil {
		path, err := w.ROCPlot(result.Report.ROC)
		if err != nil {
			return nil, err
		}
		paths = append(paths, path)
	}
	if result.Report.PR != nil {
		path, err := w.PRPlot(result.Report.PR)
		if err != nil {
			return nil, err
		}
		paths = append(paths, path)
	}
	if result.Report.Calibration != nil {
		path, err := w.CalibrationPlot(result.Report.Calibration)
		if err != nil {
			return nil, err
		}
		paths = append(paths, path)
	}
	if result.Report.Objective == boost.ObjectiveRegression {
		path, err := w.PredictedObservedPlot(result.Report)
		if err != nil {
			return nil, err
		}
		paths = append(paths, path)
	}
	path, err := w.ImportancePlot(result.Explanation)
	if err != nil {
		return nil, err
	}
	return append(paths, path), nil
}
