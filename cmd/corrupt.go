package main

import (
	"math/rand"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mobilitylabs/ridewash/internal/corrupt"
	"github.com/mobilitylabs/ridewash/internal/pipeline"
)

var (
	corruptInput    string
	corruptOutput   string
	corruptManifest string
	corruptRate     float64
	corruptMaxEmpty float64
	corruptSeed     int64
)

var corruptCmd = &cobra.Command{
	Use:   "corrupt",
	Short: "Inject synthetic errors into a clean ride CSV",
	Long: `Reads a clean ride CSV and writes a corrupted copy with the same row
count and column set. Each eligible field is an independent Bernoulli trial
against the error rate; a per-column pass additionally clears up to the
max-empty fraction of non-identifier cells.

Examples:
  # Default 15% error rate, reproducible with a fixed seed
  ridewash corrupt --input clean.csv --output corrupted.csv --seed 42

  # Heavier corruption with a manifest for scoring
  ridewash corrupt --input clean.csv --output corrupted.csv --rate 0.65 --manifest manifest.json`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		rate := corruptRate
		if !cmd.Flags().Changed("rate") {
			rate = cfg.Corrupt.Rate
		}
		maxEmpty := corruptMaxEmpty
		if !cmd.Flags().Changed("max-empty") {
			maxEmpty = cfg.Corrupt.MaxEmpty
		}
		seed := corruptSeed
		if !cmd.Flags().Changed("seed") {
			seed = cfg.Corrupt.Seed
		}
		if seed == 0 {
			seed = time.Now().UnixNano()
		}

		recs, err := pipeline.ReadRecords(corruptInput)
		if err != nil {
			return eris.Wrap(err, "corrupt: read input")
		}
		zap.L().Info("read clean table", zap.Int("rows", len(recs)), zap.Int64("seed", seed))

		gen := corrupt.NewGenerator(rate, maxEmpty, rand.New(rand.NewSource(seed)))
		corrupted, manifests := gen.CorruptTable(recs)

		if err := pipeline.WriteRecords(corruptOutput, corrupted, nil); err != nil {
			return eris.Wrap(err, "corrupt: write output")
		}

		if corruptManifest != "" {
			if err := pipeline.WriteJSON(corruptManifest, manifests); err != nil {
				return eris.Wrap(err, "corrupt: write manifest")
			}
		}

		return nil
	},
}

func init() {
	corruptCmd.Flags().StringVar(&corruptInput, "input", "", "clean input CSV (required)")
	corruptCmd.Flags().StringVar(&corruptOutput, "output", "", "corrupted output CSV (required)")
	corruptCmd.Flags().StringVar(&corruptManifest, "manifest", "", "optional JSON manifest of fired rules per row")
	corruptCmd.Flags().Float64Var(&corruptRate, "rate", 0.15, "per-field error probability")
	corruptCmd.Flags().Float64Var(&corruptMaxEmpty, "max-empty", 0.03, "max fraction of cells cleared per column")
	corruptCmd.Flags().Int64Var(&corruptSeed, "seed", 0, "random seed (0 = time-based)")
	_ = corruptCmd.MarkFlagRequired("input")
	_ = corruptCmd.MarkFlagRequired("output")
	rootCmd.AddCommand(corruptCmd)
}
