package main

import (
	"io"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/mromano1/equity-atlas/internal/pipeline"
)

var (
	runRefresh   bool
	runSkipMap   bool
	runSkipFiles bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full pipeline: fetch, join, dissolve, render, export",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		result, err := env.Pipeline.Run(ctx, pipeline.Options{
			Refresh:   runRefresh,
			SkipMap:   runSkipMap,
			SkipFiles: runSkipFiles,
		})
		if err != nil {
			return err
		}

		printRunSummary(cmd.OutOrStdout(), result)
		return nil
	},
}

func printRunSummary(w io.Writer, result *pipeline.Result) {
	p := message.NewPrinter(language.English)
	s := result.Summary
	p.Fprintf(w, "Run %s complete\n", result.RunID)
	p.Fprintf(w, "  tracts:     %d (matched %d, unmatched %d records / %d boundaries)\n",
		s.Tracts, s.Matched, s.UnmatchedRecords, s.UnmatchedBoundaries)
	p.Fprintf(w, "  counties:   %d\n", s.Counties)
	for _, c := range result.Counties {
		p.Fprintf(w, "    %s  %-24s pop %11d  poverty %5.1f%%\n",
			c.GEOID, c.Name, c.Population, c.PovertyRate)
	}
	for _, path := range s.Outputs {
		p.Fprintf(w, "  wrote %s\n", path)
	}
}

func init() {
	runCmd.Flags().BoolVar(&runRefresh, "refresh", false, "refetch inputs even when cached")
	runCmd.Flags().BoolVar(&runSkipMap, "skip-map", false, "skip choropleth rendering")
	runCmd.Flags().BoolVar(&runSkipFiles, "skip-files", false, "skip geodata exports")
	rootCmd.AddCommand(runCmd)
}
