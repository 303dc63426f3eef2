package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/colearn-ml/colearn-examples/internal/covid"
	"github.com/colearn-ml/colearn-examples/internal/fraud"
)

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func newSplitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "split",
		Short: "Split a dataset into per-learner shards",
	}
	cmd.AddCommand(newSplitCovidCmd())
	cmd.AddCommand(newSplitFraudCmd())
	return cmd
}

func newSplitCovidCmd() *cobra.Command {
	var (
		dataDir   string
		synthetic int
	)
	cmd := &cobra.Command{
		Use:   "covid",
		Short: "Split the covid X-ray feature matrices",
		Long: `Loads covid.mat, normal.mat and pneumonia.mat, holds out a global
test set, min-max scales and PCA-reduces the features, and writes one shard
per learner.

Example:
  colearn split covid --data ~/datasets/covid --n-learners 3`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := dataDir
			if dir == "" {
				dir = cfg.CovidDataDir()
			}
			c := cfg.Covid
			f := cmd.Flags()
			var err error
			if f.Changed("n-learners") {
				if c.NLearners, err = f.GetInt("n-learners"); err != nil {
					return err
				}
				c.DataSplit = nil
			}
			if f.Changed("seed") {
				if c.ShuffleSeed, err = f.GetInt64("seed"); err != nil {
					return err
				}
			}
			if f.Changed("test-ratio") {
				if c.GlobalTestRatio, err = f.GetFloat64("test-ratio"); err != nil {
					return err
				}
			}
			if f.Changed("components") {
				if c.NComponents, err = f.GetInt("components"); err != nil {
					return err
				}
			}
			if f.Changed("output") {
				if c.OutputFolder, err = f.GetString("output"); err != nil {
					return err
				}
			}
			if f.Changed("test-output") {
				if c.TestOutputFolder, err = f.GetString("test-output"); err != nil {
					return err
				}
			}
			if synthetic > 0 {
				logger.Info("writing synthetic covid data", zap.String("dir", dir), zap.Int("rows_per_class", synthetic))
				if err := covid.WriteSynthetic(dir, synthetic, 2*c.NComponents, c.ShuffleSeed); err != nil {
					return err
				}
			}

			ctx, cancel := signalContext(cmd.Context())
			defer cancel()
			dirs, err := covid.SplitToFolders(ctx, covid.SplitOptions{
				DataDir:          dir,
				ShuffleSeed:      c.ShuffleSeed,
				DataSplit:        c.DataSplit,
				NLearners:        c.NLearners,
				OutputFolder:     c.OutputFolder,
				TestOutputFolder: c.TestOutputFolder,
				TestRatio:        c.GlobalTestRatio,
				NComponents:      c.NComponents,
				Logger:           logger,
			})
			if err != nil {
				return err
			}
			printDirs(cmd, dirs)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&dataDir, "data", "", "Directory holding the .mat files (default: $COLEARN_DATA_DIR/covid)")
	f.IntVar(&synthetic, "synthetic", 0, "Write this many synthetic rows per class into --data first")
	f.Int("n-learners", 0, "Number of learners")
	f.Int64("seed", 0, "Shuffle seed")
	f.Float64("test-ratio", 0, "Global test share per class")
	f.Int("components", 0, "Number of PCA components")
	f.String("output", "", "Learner shard root")
	f.String("test-output", "", "Global test shard directory")
	return cmd
}

func newSplitFraudCmd() *cobra.Command {
	var (
		dataDir   string
		synthetic int
		noCache   bool
	)
	cmd := &cobra.Command{
		Use:   "fraud",
		Short: "Preprocess and split the IEEE fraud-detection tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := dataDir
			if dir == "" {
				dir = cfg.FraudDataDir()
			}
			c := cfg.Fraud
			f := cmd.Flags()
			var err error
			if f.Changed("n-learners") {
				if c.NLearners, err = f.GetInt("n-learners"); err != nil {
					return err
				}
				c.DataSplit = nil
			}
			if f.Changed("test-ratio") {
				if c.TestRatio, err = f.GetFloat64("test-ratio"); err != nil {
					return err
				}
			}
			if f.Changed("output") {
				if c.OutputFolder, err = f.GetString("output"); err != nil {
					return err
				}
			}
			if noCache {
				c.UseCache = false
			}
			if synthetic > 0 {
				logger.Info("writing synthetic fraud data", zap.String("dir", dir), zap.Int("rows", synthetic))
				if err := fraud.WriteSynthetic(dir, synthetic, c.ShuffleSeed); err != nil {
					return err
				}
			}

			ctx, cancel := signalContext(cmd.Context())
			defer cancel()
			dirs, err := fraud.SplitToFolders(ctx, fraud.OptionsFromConfig(c, dir, logger))
			if err != nil {
				return err
			}
			printDirs(cmd, dirs)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&dataDir, "data", "", "Directory holding the CSV files (default: $COLEARN_DATA_DIR/ieee-fraud-detection)")
	f.IntVar(&synthetic, "synthetic", 0, "Write this many synthetic transactions into --data first")
	f.BoolVar(&noCache, "no-cache", false, "Ignore and do not write the preprocessing cache")
	f.Int("n-learners", 0, "Number of learners")
	f.Float64("test-ratio", 0, "Share of rows held out as a global test set")
	f.String("output", "", "Learner shard root")
	return cmd
}

func printDirs(cmd *cobra.Command, dirs []string) {
	for _, d := range dirs {
		fmt.Fprintln(cmd.OutOrStdout(), d)
	}
}
