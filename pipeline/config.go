// Package pipeline は設定ファイル一枚から学習・探索・評価の全工程を
// 実行するオーケストレーション層です。
//
// 工程は次の順に進みます: データ読み込み、学習/保留分割、交差検証分割、
// グリッド生成、並列探索、集計と選択、全学習データでの再学習、
// 保留データでの評価と寄与分解、成果物の書き出し。
package pipeline

import (
	"os"

	"sigs.k8s.io/yaml"

	"github.com/tabforge/gbtune/boost"
	"github.com/tabforge/gbtune/eval"
	"github.com/tabforge/gbtune/pkg/errors"
	"github.com/tabforge/gbtune/recipe"
	"github.com/tabforge/gbtune/tune"
)

// Config は1回の実行の全設定。YAMLファイルから読み込まれる。
type Config struct {
	Data   DataConfig   `json:"data"`
	Split  SplitConfig  `json:"split"`
	Recipe RecipeConfig `json:"recipe"`
	Model  boost.Params `json:"model"`
	Search SearchConfig `json:"search"`
	Eval   EvalConfig   `json:"eval"`
	Output OutputConfig `json:"output"`
}

// DataConfig はデータソースの設定
type DataConfig struct {
	// Path は区切りテキストファイルのパス
	Path string `json:"path"`
	// Columns は宣言する列名（ファイル側ヘッダの有無はHasHeaderで指定）
	Columns []string `json:"columns"`
	// Label は目的変数の列名
	Label string `json:"label"`
	// MissingTokens は欠損値センチネル
	MissingTokens []string `json:"missing_tokens,omitempty"`
	// Delimiter は区切り文字（1文字、既定はカンマ）
	Delimiter string `json:"delimiter,omitempty"`
	HasHeader bool   `json:"has_header,omitempty"`
}

// SplitConfig は分割の設定
type SplitConfig struct {
	// Proportion は学習パーティションの比率（0と1の間、既定0.75）
	Proportion float64 `json:"proportion,omitempty"`
	// Folds は交差検証の分割数（既定5）
	Folds int `json:"folds,omitempty"`
	// Stratified がtrueの場合、目的変数で層化したK-fold分割を使う
	Stratified bool `json:"stratified,omitempty"`
}

// RecipeConfig は特徴量変換ステップの設定。ステップは
// 補完、順序エンコード、ダミー変数化の順で適用される。
type RecipeConfig struct {
	ImputeMean []string        `json:"impute_mean,omitempty"`
	ImputeMode []string        `json:"impute_mode,omitempty"`
	Ordinal    []OrdinalConfig `json:"ordinal,omitempty"`
	Dummy      []string        `json:"dummy,omitempty"`
}

// OrdinalConfig は1列の順序エンコード設定
type OrdinalConfig struct {
	Column string   `json:"column"`
	Levels []string `json:"levels"`
}

// SearchConfig はハイパーパラメータ探索の設定。
// PointsとBoundsは排他で、Pointsがあれば明示グリッド、
// Boundsがあればラテン超方格サンプリング。
type SearchConfig struct {
	// Metric は選択に使う指標（既定: 回帰rmse、分類log_loss）
	Metric string `json:"metric,omitempty"`
	// Direction は選択方向（minimize/maximize、空なら指標から自動判定）
	Direction string `json:"direction,omitempty"`
	// Metrics は試行ごとに記録する指標（Metricは自動的に含まれる）
	Metrics []string `json:"metrics,omitempty"`

	Points []tune.Point  `json:"points,omitempty"`
	Bounds []BoundConfig `json:"bounds,omitempty"`
	// Samples はラテン超方格のサンプル数（Bounds使用時必須）
	Samples int `json:"samples,omitempty"`

	// Workers は並列実行する試行数の上限（既定: CPU数）
	Workers int `json:"workers,omitempty"`
}

// BoundConfig は1ハイパーパラメータのサンプリング範囲
type BoundConfig struct {
	Name    string  `json:"name"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Integer bool    `json:"integer,omitempty"`
}

// EvalConfig は保留データ評価の設定
type EvalConfig struct {
	// Metrics は保留データで計算する指標（既定: 目的別セット）
	Metrics []string `json:"metrics,omitempty"`
	// Threshold は混同行列のしきい値（既定0.5）
	Threshold float64 `json:"threshold,omitempty"`
	// CalibrationBuckets はキャリブレーション表のグループ数（既定4）
	CalibrationBuckets int `json:"calibration_buckets,omitempty"`
	// ExplainRows は寄与分解する保留行数の上限（0は全行）
	ExplainRows int `json:"explain_rows,omitempty"`
}

// OutputConfig は成果物の出力設定
type OutputConfig struct {
	// Dir は出力ディレクトリ（既定 "artifacts"）
	Dir string `json:"dir,omitempty"`
	// Compress がtrueの場合、CSV成果物をgzip圧縮する
	Compress bool `json:"compress,omitempty"`
	// Plots がtrueの場合、PNGプロットも生成する
	Plots bool `json:"plots,omitempty"`
	// LogLevel はログレベル（debug/info/warn/error、既定info）
	LogLevel string `json:"log_level,omitempty"`
}

// LoadConfig はYAMLファイルから設定を読み込み、既定値を適用して検証する
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read config %s", path)
	}
	return ParseConfig(data)
}

// ParseConfig はYAMLバイト列から設定を読み込む
func ParseConfig(data []byte) (*Config, error) {
	cfg := &Config{Model: boost.DefaultParams()}
	if err := yaml.UnmarshalStrict(data, cfg); err != nil {
		return nil, errors.Wrap(err, "parse config")
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Split.Proportion == 0 {
		c.Split.Proportion = 0.75
	}
	if c.Split.Folds == 0 {
		c.Split.Folds = 5
	}
	if c.Search.Metric == "" {
		if c.Model.Objective == boost.ObjectiveBinary {
			c.Search.Metric = eval.MetricLogLoss
		} else {
			c.Search.Metric = eval.MetricRMSE
		}
	}
	if !containsString(c.Search.Metrics, c.Search.Metric) {
		c.Search.Metrics = append([]string{c.Search.Metric}, c.Search.Metrics...)
	}
	if c.Output.Dir == "" {
		c.Output.Dir = "artifacts"
	}
	if c.Output.LogLevel == "" {
		c.Output.LogLevel = "info"
	}
}

// Validate は設定の静的検証を行う。データ依存の検証（列の存在など）は
// 実行時に行われる。
func (c *Config) Validate() error {
	if c.Data.Path == "" {
		return errors.NewValidationError("data.path", "is required", c.Data.Path)
	}
	if len(c.Data.Columns) == 0 {
		return errors.NewValidationError("data.columns", "at least one column is required", c.Data.Columns)
	}
	if c.Data.Label == "" {
		return errors.NewValidationError("data.label", "is required", c.Data.Label)
	}
	if !containsString(c.Data.Columns, c.Data.Label) {
		return errors.NewValidationError("data.label", "must be one of data.columns", c.Data.Label)
	}
	if len(c.Data.Delimiter) > 1 {
		return errors.NewValidationError("data.delimiter", "must be a single character", c.Data.Delimiter)
	}
	if c.Split.Proportion <= 0 || c.Split.Proportion >= 1 {
		return errors.NewValidationError("split.proportion", "must be in (0, 1)", c.Split.Proportion)
	}
	if c.Split.Folds < 2 {
		return errors.NewValidationError("split.folds", "must be at least 2", c.Split.Folds)
	}

	switch c.Search.Direction {
	case "", "minimize", "maximize":
	default:
		return errors.NewValidationError("search.direction", "must be minimize or maximize", c.Search.Direction)
	}

	hasPoints := len(c.Search.Points) > 0
	hasBounds := len(c.Search.Bounds) > 0
	if hasPoints == hasBounds {
		return errors.NewValidationError("search", "exactly one of points or bounds is required", nil)
	}
	if hasBounds && c.Search.Samples < 1 {
		return errors.NewValidationError("search.samples", "must be at least 1 when bounds are used", c.Search.Samples)
	}
	return c.Model.Validate()
}

// selectionDirection は設定の選択方向を解決する
func (c *Config) selectionDirection() tune.Direction {
	switch c.Search.Direction {
	case "minimize":
		return tune.Minimize
	case "maximize":
		return tune.Maximize
	}
	return tune.Auto
}

// buildGrid は設定からグリッドを生成する
func (c *Config) buildGrid() (tune.Grid, error) {
	if len(c.Search.Points) > 0 {
		return tune.Explicit(c.Search.Points)
	}
	bounds := make([]tune.Bounds, len(c.Search.Bounds))
	for i, b := range c.Search.Bounds {
		bounds[i] = tune.Bounds{Name: b.Name, Min: b.Min, Max: b.Max, Integer: b.Integer}
	}
	return tune.LatinHypercube(bounds, c.Search.Samples, c.Model.Seed)
}

// buildRecipe は設定から未学習レシピを作る工場関数を返す
func (c *Config) buildRecipe() func() *recipe.Recipe {
	rc := c.Recipe
	label := c.Data.Label
	return func() *recipe.Recipe {
		var steps []recipe.Step
		if len(rc.ImputeMean) > 0 {
			steps = append(steps, &recipe.ImputeMean{Columns: rc.ImputeMean})
		}
		if len(rc.ImputeMode) > 0 {
			steps = append(steps, &recipe.ImputeMode{Columns: rc.ImputeMode})
		}
		for _, o := range rc.Ordinal {
			steps = append(steps, &recipe.Ordinal{Column: o.Column, Levels: o.Levels})
		}
		if len(rc.Dummy) > 0 {
			steps = append(steps, &recipe.Dummy{Columns: rc.Dummy})
		}
		return recipe.New(label, steps...)
	}
}

func containsString(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
