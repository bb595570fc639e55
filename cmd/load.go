package main

import (
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sells-group/regions-cli/internal/etl"
	"github.com/sells-group/regions-cli/internal/region"
)

var (
	loadFile         string
	loadWithGeometry bool
)

var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Load a NUTS dataset and save its regions",
	Long: `Reads every feature of a NUTS boundary dataset and upserts one region record per
NUTS_ID in a single transaction. Re-running a load is safe: unchanged records are
skipped and changed ones are updated in place.

The dataset defaults to source.path; --file overrides it. GeoJSON, shapefile, and
zipped GISCO distributions are accepted.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("store"); err != nil {
			return err
		}

		path := loadFile
		if path == "" {
			if err := cfg.Validate("source"); err != nil {
				return err
			}
			path = cfg.Source.Path
		}

		opts := etl.Options{
			Path:         path,
			WithGeometry: geometryEnabled(cmd, loadWithGeometry, cfg.Load.WithGeometry),
			Store:        cfg.Store,
		}

		res, err := etl.Run(ctx, opts, region.Open)
		if err != nil {
			if errors.Is(err, etl.ErrStoreInit) {
				fmt.Fprintln(cmd.ErrOrStderr(), "Database initialization failed; nothing was saved.")
			}
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(),
			"Saved %d regions from %s (inserted %d, updated %d, unchanged %d, duplicates %d)\n",
			res.Saved.Total(), res.Source,
			res.Saved.Inserted, res.Saved.Updated, res.Saved.Unchanged, res.Saved.Duplicates,
		)
		return nil
	},
}

// geometryEnabled lets an explicit --with-geometry, true or false, override
// load.with_geometry.
func geometryEnabled(cmd *cobra.Command, flag, fromConfig bool) bool {
	if cmd.Flags().Changed("with-geometry") {
		return flag
	}
	return fromConfig
}

func init() {
	loadCmd.Flags().StringVar(&loadFile, "file", "", "dataset path (default from source.path)")
	loadCmd.Flags().BoolVar(&loadWithGeometry, "with-geometry", false, "store boundaries as EWKB (default from load.with_geometry)")
	rootCmd.AddCommand(loadCmd)
}
