package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/compozy/catalog/pkg/config"
	"github.com/compozy/catalog/pkg/logger"
)

const (
	defaultConfigFile = "catalog.yaml"
	defaultEnvFile    = ".env"
)

func RootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "catalog",
		Short:         "Validate, ingest and serve software catalog entities",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return SetupGlobalConfig(cmd)
		},
	}
	flags := root.PersistentFlags()
	flags.String("config", defaultConfigFile, "Path to the YAML configuration file")
	flags.String("env-file", defaultEnvFile, "Path to a .env file loaded before configuration")
	flags.String("log-level", "info", "Log level (debug, info, warn, error, disabled)")
	flags.Bool("log-json", false, "Output logs in JSON format")
	flags.Bool("log-source", false, "Include source location in logs")

	root.AddCommand(
		ValidateCmd(),
		IngestCmd(),
		ServeCmd(),
		VersionCmd(),
	)
	return root
}

// SetupGlobalConfig loads the env file and configuration, initializes the
// logger and stores both in the command context.
func SetupGlobalConfig(cmd *cobra.Command) error {
	if _, err := loadEnvFile(cmd); err != nil {
		return err
	}
	configFile, err := cmd.Flags().GetString("config")
	if err != nil {
		return fmt.Errorf("failed to get config flag: %w", err)
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	flags := make(map[string]any)
	extractCLIFlags(cmd, flags)
	cfg, err := config.NewService().Load(ctx, config.NewYAMLProvider(configFile), config.NewCLIProvider(flags))
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := logger.SetupLogger(cfg.Log.Level, cfg.Log.JSON, cfg.Log.Source); err != nil {
		return fmt.Errorf("failed to setup logger: %w", err)
	}
	ctx = config.ContextWithConfig(ctx, cfg)
	ctx = logger.ContextWithLogger(ctx, logger.GetDefault())
	cmd.SetContext(ctx)
	return nil
}
