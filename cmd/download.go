package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/regions-cli/internal/nuts"
)

var downloadURL string

var downloadCmd = &cobra.Command{
	Use:   "download",
	Short: "Download a NUTS distribution from GISCO",
	Long: `Fetches a NUTS boundary dataset into source.temp_dir. Zipped distributions are
extracted. An already downloaded file is reused. Pass the printed path to
'regions-cli load --file'.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		url := downloadURL
		if url == "" {
			url = cfg.Source.URL
		}
		if url == "" {
			url = nuts.DefaultURL
		}

		path, err := nuts.Download(ctx, url, cfg.Source.TempDir)
		if err != nil {
			return eris.Wrap(err, "download")
		}

		zap.L().Info("dataset ready", zap.String("path", path))
		fmt.Fprintln(cmd.OutOrStdout(), path)
		return nil
	},
}

func init() {
	downloadCmd.Flags().StringVar(&downloadURL, "url", "", "dataset URL (default from source.url)")
	rootCmd.AddCommand(downloadCmd)
}
