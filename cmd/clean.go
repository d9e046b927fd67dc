package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mobilitylabs/ridewash/internal/model"
	"github.com/mobilitylabs/ridewash/internal/pipeline"
	"github.com/mobilitylabs/ridewash/internal/prompt"
	"github.com/mobilitylabs/ridewash/internal/station"
	"github.com/mobilitylabs/ridewash/internal/store"
	"github.com/mobilitylabs/ridewash/pkg/llm"
)

var (
	cleanInput     string
	cleanReference string
	cleanOutput    string
	cleanResults   string
	cleanVariant   string
	cleanLimit     int
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Repair a corrupted ride CSV through the cleaning model",
	Long: `Sends each corrupted row to the cleaning model as a text prompt, parses
the JSON reply, and validates every field against the ride schema. Fields the
model gets wrong fall back to their corrupted values; each output row carries
a repair outcome tag (repaired, partial, unrepairable).

The reference CSV (clean data) builds the station metadata directory used by
the metadata prompt variant and for filling cleared station fields.

Examples:
  # Rule-annotated prompt against a local Ollama server
  ridewash clean --input corrupted.csv --reference clean.csv --output cleaned.csv

  # Few-shot variant, first 100 rows only
  ridewash clean --input corrupted.csv --reference clean.csv --output cleaned.csv --variant fewshot --limit 100`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		variant := cleanVariant
		if !cmd.Flags().Changed("variant") {
			variant = cfg.Clean.Variant
		}
		opts, err := prompt.VariantOptions(variant)
		if err != nil {
			return err
		}

		rows, err := pipeline.ReadRecords(cleanInput)
		if err != nil {
			return eris.Wrap(err, "clean: read input")
		}

		limit := cleanLimit
		if !cmd.Flags().Changed("limit") {
			limit = cfg.Clean.Limit
		}
		if limit > 0 && limit < len(rows) {
			rows = rows[:limit]
		}
		zap.L().Info("read corrupted table", zap.Int("rows", len(rows)), zap.String("variant", variant))

		var dir *station.Directory
		if cleanReference != "" {
			ref, err := pipeline.ReadRecords(cleanReference)
			if err != nil {
				return eris.Wrap(err, "clean: read reference")
			}
			dir = station.BuildDirectory(ref)
		}

		// Base URL and model name only configure the local OpenAI-compatible
		// backend; the Anthropic SDK takes the model from each request.
		var clientOpts []llm.Option
		if cfg.Model.Provider == llm.ProviderOpenAI {
			clientOpts = append(clientOpts,
				llm.WithBaseURL(cfg.Model.BaseURL),
				llm.WithModel(cfg.Model.Name),
			)
		}
		client, err := llm.New(cfg.Model.Provider, cfg.Model.Key, clientOpts...)
		if err != nil {
			return eris.Wrap(err, "clean: init model client")
		}

		st, err := store.Open(cfg.Store)
		if err != nil {
			return eris.Wrap(err, "clean: open store")
		}
		defer st.Close()
		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "clean: migrate store")
		}

		run, err := st.CreateRun(ctx, variant, cfg.Model.Name, cleanInput)
		if err != nil {
			return eris.Wrap(err, "clean: create run")
		}

		cleaner := pipeline.NewCleaner(client, dir, opts, cfg.Model)
		cleaner.CheckpointEvery = cfg.Clean.CheckpointEvery
		cleaner.CheckpointDir = cfg.Clean.CheckpointDir

		result, err := cleaner.Run(ctx, rows)
		if err != nil {
			_ = st.CompleteRun(ctx, run.ID, model.RunStatusFailed, nil)
			return eris.Wrap(err, "clean: run pipeline")
		}

		if err := st.SaveOutcomes(ctx, run.ID, result.Outcomes); err != nil {
			return eris.Wrap(err, "clean: save outcomes")
		}
		if err := st.CompleteRun(ctx, run.ID, model.RunStatusComplete, &result.Summary); err != nil {
			return eris.Wrap(err, "clean: complete run")
		}

		if err := pipeline.WriteRecords(cleanOutput, result.Records, result.Outcomes); err != nil {
			return eris.Wrap(err, "clean: write output")
		}
		if cleanResults != "" {
			if err := pipeline.WriteJSON(cleanResults, result); err != nil {
				return eris.Wrap(err, "clean: write results")
			}
		}

		return nil
	},
}

func init() {
	cleanCmd.Flags().StringVar(&cleanInput, "input", "", "corrupted input CSV (required)")
	cleanCmd.Flags().StringVar(&cleanReference, "reference", "", "clean reference CSV for the station directory")
	cleanCmd.Flags().StringVar(&cleanOutput, "output", "", "cleaned output CSV (required)")
	cleanCmd.Flags().StringVar(&cleanResults, "results", "", "optional JSON results file (records + outcomes)")
	cleanCmd.Flags().StringVar(&cleanVariant, "variant", prompt.VariantRules, "prompt variant: bare, rules, metadata, fewshot")
	cleanCmd.Flags().IntVar(&cleanLimit, "limit", 0, "process at most N rows (0 = all)")
	_ = cleanCmd.MarkFlagRequired("input")
	_ = cleanCmd.MarkFlagRequired("output")
	rootCmd.AddCommand(cleanCmd)
}
