package main

import (
	"github.com/spf13/cobra"

	"github.com/jackzampolin/reportcheck/internal/output"
	"github.com/jackzampolin/reportcheck/internal/report"
	"github.com/jackzampolin/reportcheck/internal/svcctx"
)

var fetchImageDir string

var fetchCmd = &cobra.Command{
	Use:   "fetch <reports.json|reports.csv>",
	Short: "Download report screenshots",
	Long: `Download each report's image_url to <image-dir>/<index>.jpg.
Screenshots already on disk are skipped; transient failures are retried.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cleanup, err := setup(cmd, setupOptions{})
		if err != nil {
			return err
		}
		defer cleanup()
		svc := svcctx.ServicesFrom(ctx)

		reports, err := report.Load(args[0])
		if err != nil {
			return err
		}
		dir := fetchImageDir
		if dir == "" {
			dir = svc.Home.Resolve(svc.Config.Get().Storage.ImageDir)
		}

		fetcher := report.NewFetcher(report.FetcherConfig{Dir: dir, Logger: svc.Logger})
		_, failed := fetcher.DownloadAll(ctx, reports)
		return output.Print(map[string]any{
			"dir":        dir,
			"reports":    len(reports),
			"downloaded": len(reports) - failed,
			"failed":     failed,
		})
	},
}

func init() {
	fetchCmd.Flags().StringVar(&fetchImageDir, "image-dir", "", "screenshot directory (default: storage.image_dir)")
	rootCmd.AddCommand(fetchCmd)
}
