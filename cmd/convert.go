package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mobilitylabs/ridewash/internal/pipeline"
)

var (
	convertInput  string
	convertOutput string
)

var convertCmd = &cobra.Command{
	Use:   "convert",
	Short: "Convert a JSON results file to CSV in canonical column order",
	RunE: func(cmd *cobra.Command, _ []string) error {
		recs, err := pipeline.ReadRecordsJSON(convertInput)
		if err != nil {
			return eris.Wrap(err, "convert: read input")
		}
		if err := pipeline.WriteRecords(convertOutput, recs, nil); err != nil {
			return eris.Wrap(err, "convert: write output")
		}
		zap.L().Info("converted", zap.Int("rows", len(recs)), zap.String("output", convertOutput))
		return nil
	},
}

func init() {
	convertCmd.Flags().StringVar(&convertInput, "input", "", "JSON records file (required)")
	convertCmd.Flags().StringVar(&convertOutput, "output", "", "CSV output path (required)")
	_ = convertCmd.MarkFlagRequired("input")
	_ = convertCmd.MarkFlagRequired("output")
	rootCmd.AddCommand(convertCmd)
}
