package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/colearn-ml/colearn-examples/internal/runner"
)

const defaultCatalog = "examples/catalog.yaml"

func newExamplesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "examples",
		Short: "Run and check the example programs",
	}
	cmd.PersistentFlags().String("catalog", "", "Example catalog (default: examples.catalog from config, else "+defaultCatalog+")")
	cmd.AddCommand(newExamplesRunCmd())
	cmd.AddCommand(newExamplesCheckCmd())
	return cmd
}

func loadCatalog(cmd *cobra.Command) (*runner.Catalog, error) {
	path, err := cmd.Flags().GetString("catalog")
	if err != nil {
		return nil, err
	}
	if path == "" {
		path = cfg.Examples.Catalog
	}
	if path == "" {
		path = defaultCatalog
	}
	return runner.LoadCatalog(path, cfg.Env())
}

func newExamplesRunCmd() *cobra.Command {
	var only []string
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the catalog's examples in test mode",
		Long: `Runs every example in the catalog one after another with
COLEARN_EXAMPLES_TEST=1, failing if any example fails or times out.

Example:
  colearn examples run --only covid_xray`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog, err := loadCatalog(cmd)
			if err != nil {
				return err
			}

			examples := catalog.Examples
			if len(only) > 0 {
				examples = examples[:0:0]
				for _, name := range only {
					ex, ok := catalog.Find(name)
					if !ok {
						return fmt.Errorf("unknown example %q", name)
					}
					examples = append(examples, ex)
				}
			}

			r := &runner.Runner{
				Timeout: cfg.Examples.Timeout,
				Env:     cfg.Env(),
				Ignored: append(append([]string(nil), catalog.Ignored...), cfg.Examples.Ignored...),
				Logger:  logger,
			}
			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			logger.Info("running examples", zap.Int("count", len(examples)))
			results, runErr := r.RunAll(ctx, examples)

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, res := range results {
				status := "ok"
				switch {
				case res.Skipped:
					status = "skipped"
				case res.TimedOut:
					status = "timeout"
				case res.Err != nil:
					status = fmt.Sprintf("failed (exit %d)", res.ExitCode)
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\n", res.Name, status, res.Duration.Round(time.Millisecond))
			}
			if err := tw.Flush(); err != nil {
				return errors.Join(runErr, err)
			}
			return runErr
		},
	}
	cmd.Flags().StringSliceVar(&only, "only", nil, "Run only these examples")
	return cmd
}

func newExamplesCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check [examples-dir]",
		Short: "Report example programs missing from the catalog",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog, err := loadCatalog(cmd)
			if err != nil {
				return err
			}
			dir := "examples"
			if len(args) == 1 {
				dir = args[0]
			}
			missing, err := runner.CheckAllIncluded(dir, catalog)
			if err != nil {
				return err
			}
			for _, m := range missing {
				fmt.Fprintln(cmd.OutOrStdout(), filepath.ToSlash(m))
			}
			if len(missing) > 0 {
				return fmt.Errorf("%d example(s) missing from the catalog", len(missing))
			}
			return nil
		},
	}
}
