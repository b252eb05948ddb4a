package main

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/probelab/redscan/internal/config"
	"github.com/probelab/redscan/internal/logging"
)

var (
	configFile string
	verbose    bool

	cfg    *config.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "redscan",
	Short: "redscan - adversarial test suite generation for AI systems",
	Long: `redscan generates adversarial test datasets for AI systems and
schedules scan jobs against them.

Datasets are content-addressed: generating the same suite twice yields
the same dataset id and a single stored copy.`,
	PersistentPreRunE: loadConfig,
	SilenceUsage:      true,
	SilenceErrors:     true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (default $HOME/.redscan/redscan.yaml)")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "enable debug logging")

	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(pluginsCmd)
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command with signal handling.
func Execute(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	return rootCmd.ExecuteContext(ctx)
}

func loadConfig(cmd *cobra.Command, args []string) error {
	path := configFile
	if path == "" {
		path = config.DefaultConfigPath(config.DefaultHomeDir())
	}

	loader := config.NewLoader(config.NewValidator())
	loaded, err := loader.LoadWithDefaults(path)
	if err != nil {
		return err
	}
	cfg = loaded

	if verbose {
		cfg.Logging.Level = "debug"
	}
	logger = logging.New(cfg.Logging)
	return nil
}
