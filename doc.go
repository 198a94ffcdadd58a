// Package gbtune is a training and tuning pipeline for gradient-boosted
// tree models on tabular data.
//
// The pipeline covers the full supervised workflow: loading delimited
// data with type inference, deterministic train/holdout and K-fold
// splitting (optionally stratified), leak-free feature preparation via
// recipes, cross-validated hyperparameter search over explicit or
// space-filling grids, selection and refit of the winning configuration,
// holdout evaluation with curves and calibration, and additive
// per-feature attribution of predictions.
//
// # Packages
//
//   - dataset: delimited loading, typed columns, splits and folds
//   - recipe: fit-once feature transformation (impute, ordinal, dummy)
//   - boost: the gradient-boosted tree trainer and model
//   - tune: grid generation, parallel CV search, selection, refit
//   - eval: metrics, curves, calibration, attribution summaries
//   - report: CSV/JSON artifacts and PNG plots
//   - pipeline: config-driven orchestration of the whole run
//
// The command line entry point lives in cmd/gbtune:
//
//	gbtune run --config pipeline.yaml
//
// Every stage is deterministic for a fixed seed; run artifacts record the
// seed and a dataset fingerprint so results can be reproduced exactly.
package gbtune
