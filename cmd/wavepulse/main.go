package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"wavepulse/internal/config"
	"wavepulse/internal/logging"
)

var version = "0.1.0"

type globalFlags struct {
	cfgFile  string
	model    string
	provider string
	logLevel string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}
	rootCmd := &cobra.Command{
		Use:   "wavepulse",
		Short: "Multi-agent assistant for WaveMaker React Native apps",
		Long: `WavePulse answers questions about a running WaveMaker React Native app,
the runtime and codegen libraries it is built on, and edits their source files.
Run "wavepulse serve" for the dashboard API or "wavepulse ask" for one question.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&flags.cfgFile, "config", "", "config file (default is $HOME/.config/wavepulse/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&flags.model, "model", "", "model to use")
	rootCmd.PersistentFlags().StringVar(&flags.provider, "provider", "", "model provider (gemini or ollama)")
	rootCmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "log level (debug, info, warn, error)")

	rootCmd.AddCommand(
		newServeCmd(flags),
		newAskCmd(flags),
		newRouteCmd(flags),
		newEditCmd(flags),
		&cobra.Command{
			Use:   "version",
			Short: "Print the version number",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "wavepulse version %s\n", version)
			},
		},
	)
	return rootCmd
}

// loadConfig loads the configuration, applies flag overrides and sets up
// logging. needModel skips model credential checks when false.
func loadConfig(flags *globalFlags, needModel bool) (*config.Config, error) {
	cfg, err := config.Load(flags.cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	cfg.Version = version
	if flags.model != "" {
		cfg.Model.Name = flags.model
	}
	if flags.provider != "" {
		cfg.Model.Provider = flags.provider
	}
	if flags.logLevel != "" {
		cfg.Logging.Level = flags.logLevel
	}

	lvl := logging.ParseLevel(cfg.Logging.Level)
	if cfg.Logging.Dir != "" {
		if err := logging.EnableFileLogging(cfg.Logging.Dir, lvl); err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
	} else {
		logging.Configure(lvl, os.Stderr)
	}

	if needModel {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

func configPath(flags *globalFlags) string {
	if flags.cfgFile != "" {
		return flags.cfgFile
	}
	return config.GetConfigPath()
}
