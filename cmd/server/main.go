package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"safeharbour/internal/platform/config"
	"safeharbour/internal/platform/logger"
)

const programName = "safeharbour"

type configKey struct{}

func configFrom(ctx context.Context) config.Config {
	cfg, _ := ctx.Value(configKey{}).(config.Config)
	return cfg
}

func newLogger(cfg config.Config) *slog.Logger {
	l := logger.New(cfg.Log.Level, cfg.Log.Format).With("component", programName)
	slog.SetDefault(l)
	return l
}

func newRootCommand() *cobra.Command {
	var configFile string
	rootCmd := &cobra.Command{
		Use:           programName,
		Short:         "Pseudonymous case handling with committee approvals and statutory deadlines",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "path to config file")

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load(configFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		cmd.SetContext(context.WithValue(cmd.Context(), configKey{}, cfg))
		return nil
	}

	rootCmd.AddCommand(serveCommand())
	rootCmd.AddCommand(workerCommand())
	rootCmd.AddCommand(migrateCommand())
	rootCmd.AddCommand(uinCommand())
	rootCmd.AddCommand(keygenCommand())
	rootCmd.AddCommand(identityCommand())
	rootCmd.AddCommand(committeeCommand())
	rootCmd.AddCommand(alertsCommand())
	rootCmd.AddCommand(tokenCommand())
	return rootCmd
}

func main() {
	if err := newRootCommand().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
