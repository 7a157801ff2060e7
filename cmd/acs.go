package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var acsCmd = &cobra.Command{
	Use:   "acs",
	Short: "Fetch ACS tract poverty statistics and cache them in the store",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		year := cfg.Census.Year
		stateFIPS := cfg.Census.StateFIPS

		records, err := env.ACS.TractPoverty(ctx, year, stateFIPS)
		if err != nil {
			return eris.Wrap(err, "fetch ACS tracts")
		}
		if err := env.Store.SaveTracts(ctx, year, stateFIPS, records); err != nil {
			return eris.Wrap(err, "save tracts")
		}

		var population int64
		for _, r := range records {
			population += r.Population
		}

		p := message.NewPrinter(language.English)
		p.Fprintf(cmd.OutOrStdout(), "Fetched %d tracts for state %s (%d ACS), total population %d\n",
			len(records), stateFIPS, year, population)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(acsCmd)
}
