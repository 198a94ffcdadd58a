// Command gbtune runs the full training pipeline from a YAML config:
// load, split, cross-validated hyperparameter search, refit, holdout
// evaluation and artifact export.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tabforge/gbtune/pipeline"
	"github.com/tabforge/gbtune/pkg/log"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "gbtune",
		Short:         "Train and tune gradient-boosted tree models on tabular data",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newRunCmd())
	return root
}

func newRunCmd() *cobra.Command {
	var (
		configPath string
		outputDir  string
		logLevel   string
		seed       uint64
		plots      bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Execute a pipeline run described by a config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := pipeline.LoadConfig(configPath)
			if err != nil {
				return err
			}
			// Flag overrides beat the config file.
			if cmd.Flags().Changed("output") {
				cfg.Output.Dir = outputDir
			}
			if cmd.Flags().Changed("log-level") {
				cfg.Output.LogLevel = logLevel
			}
			if cmd.Flags().Changed("seed") {
				cfg.Model.Seed = seed
			}
			if cmd.Flags().Changed("plots") {
				cfg.Output.Plots = plots
			}

			log.SetupLogger(cfg.Output.LogLevel)
			log.InstallWarnSink(os.Stderr)

			_, err = pipeline.Run(cfg)
			return err
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to the YAML config file (required)")
	cmd.Flags().StringVarP(&outputDir, "output", "o", "", "override the artifact output directory")
	cmd.Flags().StringVar(&logLevel, "log-level", "", "override the log level (debug|info|warn|error)")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "override the run seed")
	cmd.Flags().BoolVar(&plots, "plots", false, "override plot generation")
	_ = cmd.MarkFlagRequired("config")
	return cmd
}
