package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/regions-cli/internal/export"
	"github.com/sells-group/regions-cli/internal/region"
)

var exportOut string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export stored regions and load runs to an XLSX workbook",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		regions, err := st.ListRegions(ctx, region.Filter{})
		if err != nil {
			return eris.Wrap(err, "export")
		}
		runs, err := st.ListRuns(ctx, 100)
		if err != nil {
			return eris.Wrap(err, "export")
		}

		if err := export.WriteXLSX(exportOut, regions, runs); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Exported %d regions to %s\n", len(regions), exportOut)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportOut, "out", "regions.xlsx", "output workbook path")
	rootCmd.AddCommand(exportCmd)
}
