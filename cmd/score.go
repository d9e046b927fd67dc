package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/mobilitylabs/ridewash/internal/metrics"
	"github.com/mobilitylabs/ridewash/internal/model"
	"github.com/mobilitylabs/ridewash/internal/pipeline"
)

var (
	scoreClean     string
	scoreCorrupted string
	scoreCleaned   string
	scoreJSON      string
)

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Score a cleaning run against ground truth",
	Long: `Compares the cleaned CSV against the clean ground truth and the
corrupted input, reporting per-column and overall precision/recall/F1 of the
repairs.

Example:
  ridewash score --clean clean.csv --corrupted corrupted.csv --cleaned cleaned.csv`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		var clean, corrupted, cleaned []model.RideRecord

		g, _ := errgroup.WithContext(cmd.Context())
		g.Go(func() (err error) {
			clean, err = pipeline.ReadRecords(scoreClean)
			return eris.Wrap(err, "score: read clean")
		})
		g.Go(func() (err error) {
			corrupted, err = pipeline.ReadRecords(scoreCorrupted)
			return eris.Wrap(err, "score: read corrupted")
		})
		g.Go(func() (err error) {
			cleaned, err = pipeline.ReadRecords(scoreCleaned)
			return eris.Wrap(err, "score: read cleaned")
		})
		if err := g.Wait(); err != nil {
			return err
		}

		report, err := metrics.Evaluate(clean, corrupted, cleaned)
		if err != nil {
			return eris.Wrap(err, "score: evaluate")
		}

		printReport(report)

		if scoreJSON != "" {
			if err := pipeline.WriteJSON(scoreJSON, report); err != nil {
				return eris.Wrap(err, "score: write json")
			}
		}
		return nil
	},
}

func printReport(report *metrics.Report) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "COLUMN\tPRECISION\tRECALL\tF1")
	for _, c := range report.Columns {
		fmt.Fprintf(w, "%s\t%.3f\t%.3f\t%.3f\n", c.Column, c.Precision, c.Recall, c.F1)
	}
	fmt.Fprintf(w, "overall\t%.3f\t%.3f\t%.3f\n", report.Precision, report.Recall, report.F1)
	_ = w.Flush()
}

func init() {
	scoreCmd.Flags().StringVar(&scoreClean, "clean", "", "clean ground-truth CSV (required)")
	scoreCmd.Flags().StringVar(&scoreCorrupted, "corrupted", "", "corrupted input CSV (required)")
	scoreCmd.Flags().StringVar(&scoreCleaned, "cleaned", "", "cleaned output CSV (required)")
	scoreCmd.Flags().StringVar(&scoreJSON, "json", "", "optional JSON report output path")
	_ = scoreCmd.MarkFlagRequired("clean")
	_ = scoreCmd.MarkFlagRequired("corrupted")
	_ = scoreCmd.MarkFlagRequired("cleaned")
	rootCmd.AddCommand(scoreCmd)
}
