package cli

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"tc-auditor-service/internal/config"
	"tc-auditor-service/internal/logging"
)

// Execute runs the CLI.
func Execute() error {
	return newRootCmd().Execute()
}

type rootOptions struct {
	configPath string
	port       string
}

func newRootCmd() *cobra.Command {
	envConfig := os.Getenv("CONFIG_PATH")
	if envConfig == "" {
		envConfig = "config/config.yaml"
	}

	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:          "tc-auditor",
		Short:        "Daily T&C Auditor puzzle service",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return err
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.port, "port", "", "port to listen on (overrides config and PORT)")
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", envConfig, "path to YAML config")
	cmd.AddCommand(
		newStartCmd(opts),
		newMigrateCmd(opts),
		newSeedCmd(opts),
		newValidateCmd(opts),
		newScoreCmd(opts),
		newTokenCmd(opts),
	)
	return cmd
}

// load reads the config and builds the process logger from it.
func (o *rootOptions) load() (config.Config, *slog.Logger, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return cfg, nil, err
	}
	if o.port != "" {
		cfg.Server.Port = o.port
	}
	logger := logging.New(logging.Options{
		Level:      cfg.Logging.Level,
		File:       cfg.Logging.File,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
	})
	if cfg.Source == "" {
		logger.Warn("config file not found, using defaults", "path", o.configPath)
	}
	return cfg, logger, nil
}
