package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/compozy/catalog/engine/catalog"
	"github.com/compozy/catalog/engine/ingest"
	"github.com/compozy/catalog/engine/processor"
	"github.com/compozy/catalog/pkg/config"
	"github.com/compozy/catalog/pkg/logger"
)

// ErrInvalidEntities is returned when a run finished with rejected entities.
var ErrInvalidEntities = errors.New("catalog contains invalid entities")

// ValidateCmd checks every descriptor under the ingestion root without
// storing anything.
func ValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate catalog descriptor files",
		Long: `Discover descriptor files, run every entity through the processing
pipeline and report the ones no built-in kind accepts. Nothing is stored.`,
		Args: cobra.NoArgs,
		RunE: runValidate,
	}
	addIngestFlags(cmd)
	addOutputFlag(cmd)
	return cmd
}

func runValidate(cmd *cobra.Command, _ []string) error {
	format, err := outputFormat(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	cfg := config.FromContext(ctx)
	ingester := newIngester(cfg, catalog.NewMemoryStore())
	result, runErr := ingester.Validate(ctx)
	if err := writeReport(cmd.OutOrStdout(), format, newReport(result)); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	if runErr != nil {
		return runErr
	}
	if len(result.Errors) > 0 {
		logger.FromContext(ctx).Debug("Validation finished with failures", "failures", len(result.Errors))
		return ErrInvalidEntities
	}
	return nil
}

func addIngestFlags(cmd *cobra.Command) {
	cmd.Flags().String("root", "", "Directory scanned for descriptor files")
	cmd.Flags().StringSlice("include", nil, "Glob patterns of descriptor files (relative to root)")
	cmd.Flags().StringSlice("exclude", nil, "Glob patterns to skip (relative to root)")
	cmd.Flags().Bool("strict", false, "Abort on the first invalid entity")
	cmd.Flags().Int("workers", 0, "Number of entities processed concurrently")
}

func newIngester(cfg *config.Config, store catalog.Store) *ingest.Ingester {
	return ingest.New(cfg.Ingest.Root, ingest.FromAppConfig(&cfg.Ingest), processor.DefaultPipeline(), store)
}
