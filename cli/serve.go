package cli

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/compozy/catalog/engine/catalog"
	"github.com/compozy/catalog/engine/infra/monitoring"
	"github.com/compozy/catalog/engine/infra/server"
	"github.com/compozy/catalog/engine/processor"
	"github.com/compozy/catalog/pkg/config"
	"github.com/compozy/catalog/pkg/logger"
)

func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "serve",
		Aliases: []string{"server", "start"},
		Short:   "Start the catalog HTTP API",
		Long: `Serve the entity API backed by the configured store. With --ingest the
descriptor files under the ingestion root are loaded before the server starts,
and --watch keeps them in sync while it runs.`,
		Args: cobra.NoArgs,
		RunE: runServe,
	}
	cmd.Flags().String("host", "", "Host interface to bind")
	cmd.Flags().Int("port", 0, "Port to listen on")
	cmd.Flags().Bool("metrics", true, "Expose Prometheus metrics on /metrics")
	cmd.Flags().Bool("ingest", false, "Ingest descriptor files before serving")
	cmd.Flags().Bool("watch", false, "Re-ingest when descriptor files change (implies --ingest)")
	addIngestFlags(cmd)
	addStoreFlags(cmd)
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	doIngest, err := cmd.Flags().GetBool("ingest")
	if err != nil {
		return fmt.Errorf("failed to get ingest flag: %w", err)
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	log := logger.FromContext(ctx)
	cfg := config.FromContext(ctx)
	if cfg.Log.Level != string(logger.DebugLevel) {
		gin.SetMode(gin.ReleaseMode)
	}

	mon := monitoring.NewServiceWithFallback(ctx, cfg.Server.MetricsEnabled)
	mon.SetAsGlobal()
	store, err := catalog.Open(ctx, &cfg.Store)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Warn("Failed to close entity store", "error", err)
		}
	}()

	pipeline := processor.DefaultPipeline()
	srv := server.NewServer(ctx, &cfg.Server, store, pipeline, mon)
	g, gctx := errgroup.WithContext(ctx)
	ingester := newIngester(cfg, store)
	watch := ingester.Config().WatchEnabled
	if doIngest || watch {
		result, err := ingester.Run(gctx)
		if err != nil {
			return fmt.Errorf("initial ingestion failed: %w", err)
		}
		log.Info("Initial ingestion finished",
			"entities_stored", result.EntitiesStored,
			"entities_pruned", result.EntitiesPruned,
			"errors", len(result.Errors))
		if watch {
			g.Go(func() error {
				return watchAndReport(gctx, cmd, ingester, OutputFormatText)
			})
		}
	}
	g.Go(func() error {
		return srv.Run(gctx)
	})
	return g.Wait()
}
