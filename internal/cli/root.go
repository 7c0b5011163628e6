// Package cli implements the unfiltered command line.
package cli

import (
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/xiaot623/unfiltered/internal/config"
)

var (
	// Version is set at build time via ldflags
	Version = "dev"

	// Global flags
	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "unfiltered",
	Short: "Assistant run orchestrator for the Unfiltered productivity coach",
	Long: `unfiltered drives assistant runs against an OpenAI-compatible gateway.

It creates threads, posts messages, runs the coaching assistant and answers
its tool calls locally: daily insights, decision analysis and monthly
progress assessment.

Set UNFILTERED_MODE=MOCK to run without a gateway.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (.yaml or .toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.Version = Version
	rootCmd.SetVersionTemplate("unfiltered {{.Version}}\n")
}

// loadConfig reads and validates the configuration.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newLogger builds the stderr logger. --verbose forces debug.
func newLogger(level string) *slog.Logger {
	lvl := parseLevel(level)
	if verbose {
		lvl = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}
