// Command optd searches compression parameters for time-series datasets. It
// runs as a daemon (serve) or one-shot against a local file (optimize).
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/GoSim-25-26J-441/compression-optimizer/pkg/config"
	"github.com/GoSim-25-26J-441/compression-optimizer/pkg/logger"
)

var (
	configPath string
	logLevel   string
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "optd",
		Short:         "Compression parameter optimiser",
		Long:          `Grid-search swing-door compression parameters against a remote compression service and report the combination that compresses hardest.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to YAML config (defaults apply when empty)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override log level (debug, info, warn, error)")

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newOptimizeCmd())
	rootCmd.AddCommand(newSpaceCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// loadConfig reads the config file, applies flag overrides and installs the
// default logger.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	// logs go to stderr so optimize output stays parseable
	logger.SetDefault(logger.NewWithFormat(cfg.LogFormat, cfg.LogLevel, os.Stderr))
	return cfg, nil
}
