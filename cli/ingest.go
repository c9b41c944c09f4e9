package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/compozy/catalog/engine/catalog"
	"github.com/compozy/catalog/engine/ingest"
	"github.com/compozy/catalog/pkg/config"
	"github.com/compozy/catalog/pkg/logger"
)

func IngestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Ingest catalog descriptor files into the entity store",
		Long: `Discover descriptor files under the ingestion root, process every entity
and write the accepted ones to the configured store. With --watch the command
keeps running and re-ingests whenever a descriptor changes.`,
		Args: cobra.NoArgs,
		RunE: runIngest,
	}
	addIngestFlags(cmd)
	addStoreFlags(cmd)
	addOutputFlag(cmd)
	cmd.Flags().Bool("watch", false, "Re-ingest when descriptor files change")
	return cmd
}

func runIngest(cmd *cobra.Command, _ []string) error {
	format, err := outputFormat(cmd)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	log := logger.FromContext(ctx)
	cfg := config.FromContext(ctx)
	store, err := catalog.Open(ctx, &cfg.Store)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Warn("Failed to close entity store", "error", err)
		}
	}()
	ingester := newIngester(cfg, store)
	result, runErr := ingester.Run(ctx)
	if err := writeReport(cmd.OutOrStdout(), format, newReport(result)); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	if !ingester.Config().WatchEnabled {
		if runErr != nil {
			return runErr
		}
		if len(result.Errors) > 0 {
			return ErrInvalidEntities
		}
		return nil
	}
	if runErr != nil {
		log.Error("Initial ingestion failed", "error", runErr)
	}
	return watchAndReport(ctx, cmd, ingester, format)
}

func watchAndReport(ctx context.Context, cmd *cobra.Command, ingester *ingest.Ingester, format string) error {
	log := logger.FromContext(ctx)
	watcher := ingest.NewWatcher(ingester, ingest.WithRunHook(func(result *ingest.Result, _ error) {
		if err := writeReport(cmd.OutOrStdout(), format, newReport(result)); err != nil {
			log.Warn("Failed to write report", "error", err)
		}
	}))
	log.Info("Watching for descriptor changes", "root", ingester.Root())
	return watcher.Run(ctx)
}

func addStoreFlags(cmd *cobra.Command) {
	cmd.Flags().String("store-driver", "", "Entity store driver (memory, redis)")
	cmd.Flags().String("redis-url", "", "Redis connection URL for the redis driver")
	cmd.Flags().String("store-prefix", "", "Key prefix used by the redis driver")
}
