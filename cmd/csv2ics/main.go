package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"csv2ics/internal/columns"
	"csv2ics/internal/config"
	"csv2ics/internal/convert"
	"csv2ics/internal/decode"
	"csv2ics/internal/ics"
	appLog "csv2ics/internal/log"
)

var Version = "dev"

// Exit codes, one per fatal cause.
const (
	exitOK = iota
	exitFailure
	exitNotFound
	exitDecode
	exitColumns
	exitEmpty
)

// globalFlags are shared by every command.
type globalFlags struct {
	configPath string
	logLevel   string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(exitCode(err))
	}
}

func newRootCmd() *cobra.Command {
	var g globalFlags

	rootCmd := convertCmd(&g)
	rootCmd.Version = Version
	rootCmd.SilenceUsage = true
	rootCmd.SilenceErrors = true
	rootCmd.PersistentFlags().StringVarP(&g.configPath, "config", "c", "", "Path to YAML config (created with defaults if missing)")
	rootCmd.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "Log level: debug, info, warn, error (overrides config)")

	rootCmd.AddCommand(inspectCmd(&g))
	rootCmd.AddCommand(serveCmd(&g))

	return rootCmd
}

// loadConfig reads the config and applies the log level.
func loadConfig(g *globalFlags) (*config.Config, error) {
	cfg, err := config.Load(g.configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if g.logLevel != "" {
		cfg.LogLevel = g.logLevel
	}
	appLog.SetLevel(appLog.ParseLevel(cfg.LogLevel))
	return cfg, nil
}

func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, convert.ErrInputNotFound):
		return exitNotFound
	case errors.Is(err, decode.ErrDecode):
		return exitDecode
	case errors.Is(err, columns.ErrResolution):
		return exitColumns
	case errors.Is(err, ics.ErrEmptyResult):
		return exitEmpty
	default:
		return exitFailure
	}
}
