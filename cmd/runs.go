package main

import (
	"github.com/spf13/cobra"

	"github.com/mromano1/equity-atlas/internal/store"
)

var runsStatus string

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List pipeline runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		runs, err := env.Store.ListRuns(ctx, store.RunFilter{Status: store.RunStatus(runsStatus)})
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			cmd.Println("no runs")
			return nil
		}

		for _, r := range runs {
			counties := 0
			if r.Summary != nil {
				counties = r.Summary.Counties
			}
			cmd.Printf("%s  %s  %d/%s  %-8s  counties=%d\n",
				r.ID, r.CreatedAt.Format("2006-01-02 15:04"), r.Year, r.StateFIPS, r.Status, counties)
		}
		return nil
	},
}

func init() {
	runsCmd.Flags().StringVar(&runsStatus, "status", "", "filter by status (running|complete|failed)")
	rootCmd.AddCommand(runsCmd)
}
