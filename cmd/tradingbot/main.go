// tradingbot - a paper trading engine that buys and sells on price signals
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/simaogato/tradingbot-backend/internal/config"
	"github.com/simaogato/tradingbot-backend/internal/logger"
)

var (
	version    = "0.1.0"
	configPath string
	logLevel   string
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "tradingbot",
		Short: "Paper trading engine",
		Long: `tradingbot evaluates a price strategy for a set of symbols, executes
simulated buys and sells against a cash balance and reports profit and loss.`,
		SilenceUsage: true,
	}

	// Flags
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to a YAML or JSON config file (defaults to TRADINGBOT_CONFIG)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override the configured log level")

	// Subcommands
	rootCmd.AddCommand(versionCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(tradeCmd())
	rootCmd.AddCommand(reportCmd())
	rootCmd.AddCommand(tradesCmd())
	rootCmd.AddCommand(priceCmd())

	return rootCmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "tradingbot version %s\n", version)
		},
	}
}

// setup loads the configuration and builds the logger. Logs go to stderr so
// command output on stdout stays machine readable.
func setup() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	log, err := logger.New(cfg.Log.Level, cfg.Log.Format, os.Stderr)
	if err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
