// Command colearn prepares learner datasets for the colearn examples and
// runs the example programs.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/colearn-ml/colearn-examples/internal/config"
	"github.com/colearn-ml/colearn-examples/internal/logging"
)

const version = "v0.1.0"

var (
	// Global flags
	verbose    bool
	configPath string

	cfg    *config.Config
	logger *zap.Logger
)

// newRootCmd builds the command tree.
func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "colearn",
		Short: "Prepare colearn example datasets and run the examples",
		Long: `colearn splits public datasets into per-learner shards for
collective-learning experiments and runs the example programs.

Dataset roots come from the config file and the COLEARN_DATA_DIR,
TFDS_DATA_DIR and PYTORCH_DATA_DIR environment variables.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "version" {
				return nil
			}

			loaded, err := config.Load(configPath)
			if err != nil {
				return err
			}
			cfg = loaded
			if verbose {
				cfg.Logging.Verbose = true
			}

			logger, err = logging.New(cfg.Logging)
			if err != nil {
				return err
			}
			logger.Debug("configuration loaded",
				zap.String("data_dir", cfg.DataDir),
				zap.String("config", configPath))
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if logger != nil {
				_ = logger.Sync()
			}
		},
	}

	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: ./"+config.DefaultConfigFile+" if present)")

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "colearn %s\n", version)
		},
	})
	root.AddCommand(newSplitCmd())
	root.AddCommand(newInspectCmd())
	root.AddCommand(newExamplesCmd())
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
