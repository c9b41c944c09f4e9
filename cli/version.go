package cli

import (
	"fmt"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/compozy/catalog/pkg/version"
)

func VersionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			format, err := outputFormat(cmd)
			if err != nil {
				return err
			}
			info := version.Get()
			if format == OutputFormatJSON {
				data, err := json.Marshal(info)
				if err != nil {
					return fmt.Errorf("failed to encode version: %w", err)
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "catalog %s (commit %s, built %s)\n",
				info.Version, info.CommitHash, info.BuildDate)
			return err
		},
	}
	addOutputFlag(cmd)
	return cmd
}
