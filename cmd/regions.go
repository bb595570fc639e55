package main

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/regions-cli/internal/region"
)

var regionsCmd = &cobra.Command{
	Use:   "regions",
	Short: "Query stored NUTS regions",
}

var regionsGetCmd = &cobra.Command{
	Use:   "get <NUTS_ID>",
	Short: "Show the records stored for one NUTS_ID",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		regions, err := st.GetRegions(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "regions get")
		}
		if len(regions) == 0 {
			fmt.Fprintf(cmd.ErrOrStderr(), "No region found for %s.\n", args[0])
			return nil
		}

		output, _ := cmd.Flags().GetString("output")
		return writeRegions(cmd.OutOrStdout(), regions, output)
	},
}

var regionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored regions",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		country, _ := cmd.Flags().GetString("country")
		level, _ := cmd.Flags().GetInt("level")
		output, _ := cmd.Flags().GetString("output")

		filter := region.Filter{CountryCode: strings.ToUpper(strings.TrimSpace(country))}
		if level >= 0 {
			filter.Level = &level
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		regions, err := st.ListRegions(ctx, filter)
		if err != nil {
			return eris.Wrap(err, "regions list")
		}
		if len(regions) == 0 {
			fmt.Fprintln(cmd.ErrOrStderr(), "No regions found.")
			return nil
		}
		return writeRegions(cmd.OutOrStdout(), regions, output)
	},
}

func init() {
	regionsCmd.PersistentFlags().StringP("output", "o", "table", "output format: table, json, or yaml")
	regionsListCmd.Flags().String("country", "", "filter by CNTR_CODE")
	regionsListCmd.Flags().Int("level", -1, "filter by LEVL_CODE (0-3)")

	regionsCmd.AddCommand(regionsGetCmd)
	regionsCmd.AddCommand(regionsListCmd)
	rootCmd.AddCommand(regionsCmd)
}
