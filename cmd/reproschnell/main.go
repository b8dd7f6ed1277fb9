package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/codefionn/reproschnell/internal/config"
	"github.com/codefionn/reproschnell/internal/logger"
)

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configPath string
	envFile    string
	logLevel   string
	logPath    string
}

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	flags := &globalFlags{}
	root := &cobra.Command{
		Use:           "reproschnell",
		Short:         "Reproduce Android bug reports with an LLM in the loop",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", config.GetConfigPath(), "path to the JSON config file")
	pf.StringVar(&flags.envFile, "env-file", ".env", "dotenv file with provider API keys")
	pf.StringVar(&flags.logLevel, "log-level", "", "log level (debug, info, warn, error, none)")
	pf.StringVar(&flags.logPath, "log-path", "", "log file path, '-' for stderr")

	root.AddCommand(
		runCmd(flags),
		resultsCmd(flags),
	)
	return root
}

// setup loads the env file and config and installs the global logger.
// The returned func closes the logger.
func setup(flags *globalFlags) (*config.Config, func(), error) {
	if flags.envFile != "" {
		if err := godotenv.Load(flags.envFile); err != nil && !os.IsNotExist(err) {
			return nil, nil, fmt.Errorf("failed to load env file %s: %w", flags.envFile, err)
		}
	}

	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	if flags.logLevel != "" {
		cfg.LogLevel = flags.logLevel
	}
	if flags.logPath != "" {
		cfg.LogPath = flags.logPath
	}

	if err := logger.Init(logger.ParseLevel(cfg.LogLevel), cfg.LogPath); err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	slog.SetDefault(slog.New(logger.NewSlogHandler(logger.Global())))
	logger.Info("Main: config loaded from %s", flags.configPath)

	cleanup := func() {
		if err := logger.Global().Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to close logger: %v\n", err)
		}
	}
	return cfg, cleanup, nil
}
