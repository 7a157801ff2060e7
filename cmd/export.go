package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/mromano1/equity-atlas/internal/equity"
	"github.com/mromano1/equity-atlas/internal/export"
)

var (
	exportRunID   string
	exportFormats string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export stored county results to csv/geojson/shapefile/xlsx",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		var counties []equity.County
		if exportRunID != "" {
			counties, err = env.Store.ListCounties(ctx, exportRunID)
		} else {
			counties, err = env.Store.LatestCounties(ctx)
		}
		if err != nil {
			return eris.Wrap(err, "load counties")
		}
		if len(counties) == 0 {
			return eris.New("no county results to export; run the pipeline first")
		}

		formatsFlag := exportFormats
		if formatsFlag == "" {
			formatsFlag = cfg.Export.Formats
		}
		formats, err := export.ParseFormats(formatsFlag)
		if err != nil {
			return err
		}

		results := export.Export(counties, cfg.Export.Dir, cfg.Export.BaseName, formats)
		for _, r := range results {
			if r.Err != nil {
				cmd.Printf("FAILED %-10s %v\n", r.Format, r.Err)
			} else {
				cmd.Printf("wrote  %-10s %s\n", r.Format, r.Path)
			}
		}
		return export.FirstError(results)
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportRunID, "run", "", "run ID to export (default latest complete run)")
	exportCmd.Flags().StringVar(&exportFormats, "formats", "", "comma-separated formats (default all)")
	rootCmd.AddCommand(exportCmd)
}
