package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/mromano1/equity-atlas/internal/tiger"
)

var tractsCmd = &cobra.Command{
	Use:   "tracts",
	Short: "Download TIGER/Line tract boundaries and cache them in the store",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		year := cfg.Census.Year
		stateFIPS := cfg.Census.StateFIPS

		product := tiger.TractProduct()
		url := tiger.DownloadURL(product, year, stateFIPS)
		if cfg.Tiger.UseFTP {
			url = tiger.FTPMirrorURL(product, year, stateFIPS)
		}

		shpPath, err := tiger.Download(ctx, env.Fetcher, url, cfg.Tiger.CacheDir)
		if err != nil {
			return eris.Wrap(err, "download boundaries")
		}
		boundaries, err := tiger.ParseTracts(shpPath)
		if err != nil {
			return eris.Wrap(err, "parse boundaries")
		}
		if err := env.Store.SaveBoundaries(ctx, year, boundaries); err != nil {
			return eris.Wrap(err, "save boundaries")
		}

		p := message.NewPrinter(language.English)
		p.Fprintf(cmd.OutOrStdout(), "Loaded %d tract boundaries for state %s (TIGER %d)\n",
			len(boundaries), stateFIPS, year)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(tractsCmd)
}
