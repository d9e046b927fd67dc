// Package pipeline drives corrupted rows through prompt rendering, the
// model call, and validation, one row at a time in source order.
package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/mobilitylabs/ridewash/internal/config"
	"github.com/mobilitylabs/ridewash/internal/model"
	"github.com/mobilitylabs/ridewash/internal/prompt"
	"github.com/mobilitylabs/ridewash/internal/repair"
	"github.com/mobilitylabs/ridewash/internal/station"
	"github.com/mobilitylabs/ridewash/pkg/llm"
)

// Cleaner runs the repair pipeline over a corrupted table.
type Cleaner struct {
	client  llm.Client
	dir     *station.Directory
	opts    prompt.Options
	model   config.ModelConfig
	limiter *rate.Limiter

	// CheckpointEvery > 0 writes a JSON checkpoint of accumulated rows
	// every N rows into CheckpointDir.
	CheckpointEvery int
	CheckpointDir   string
}

// NewCleaner creates a Cleaner. dir may be nil when no station reference
// table is available; metadata prompt blocks and gap filling are skipped.
func NewCleaner(client llm.Client, dir *station.Directory, opts prompt.Options, modelCfg config.ModelConfig) *Cleaner {
	rps := modelCfg.RatePerSec
	if rps <= 0 {
		rps = 1
	}
	return &Cleaner{
		client:  client,
		dir:     dir,
		opts:    opts,
		model:   modelCfg,
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
	}
}

// Result accumulates the cleaned table and per-row outcomes. Records is
// always row-aligned with the input.
type Result struct {
	Records  []model.RideRecord `json:"records"`
	Outcomes []model.RowOutcome `json:"outcomes"`
	Summary  model.RunSummary   `json:"summary"`
}

// Run processes every row sequentially: match stations, render the prompt,
// call the model, validate the reply. A failed call or unparseable reply
// never aborts the run; the row keeps its corrupted values and is tagged.
func (c *Cleaner) Run(ctx context.Context, rows []model.RideRecord) (*Result, error) {
	start := time.Now()
	res := &Result{
		Records:  make([]model.RideRecord, 0, len(rows)),
		Outcomes: make([]model.RowOutcome, 0, len(rows)),
	}

	for i, row := range rows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		rec, outcome := c.cleanRow(ctx, row, i)
		res.Records = append(res.Records, rec)
		res.Outcomes = append(res.Outcomes, outcome)

		if c.CheckpointEvery > 0 && (i+1)%c.CheckpointEvery == 0 {
			path := filepath.Join(c.CheckpointDir, fmt.Sprintf("cleaned_checkpoint_%d.json", i+1))
			if err := WriteJSON(path, res.Records); err != nil {
				zap.L().Warn("pipeline: checkpoint write failed", zap.String("path", path), zap.Error(err))
			}
		}
	}

	res.Summary = model.RunSummary{
		Rows:       len(res.Records),
		DurationMS: time.Since(start).Milliseconds(),
	}
	for _, o := range res.Outcomes {
		switch o.Outcome {
		case model.OutcomeRepaired:
			res.Summary.Repaired++
		case model.OutcomePartial:
			res.Summary.Partial++
		case model.OutcomeUnrepairable:
			res.Summary.Unrepairable++
		}
	}

	zap.L().Info("cleaning run complete",
		zap.Int("rows", res.Summary.Rows),
		zap.Int("repaired", res.Summary.Repaired),
		zap.Int("partial", res.Summary.Partial),
		zap.Int("unrepairable", res.Summary.Unrepairable),
		zap.Int64("duration_ms", res.Summary.DurationMS),
	)
	return res, nil
}

// cleanRow repairs a single row. Every failure path returns the corrupted
// row (station-filled where possible) with an unrepairable tag.
func (c *Cleaner) cleanRow(ctx context.Context, row model.RideRecord, index int) (model.RideRecord, model.RowOutcome) {
	var startMatch, endMatch *station.Station
	if c.dir != nil {
		startMatch = c.dir.Match(row.StartStationName, row.StartStationID, row.StartLat, row.StartLng)
		endMatch = c.dir.Match(row.EndStationName, row.EndStationID, row.EndLat, row.EndLng)
	}

	text, err := c.complete(ctx, prompt.Render(row, startMatch, endMatch, c.opts))
	if err != nil {
		zap.L().Warn("pipeline: model call failed",
			zap.Int("row", index),
			zap.Error(err),
		)
		repair.FillFromStation(&row, startMatch, endMatch)
		return row, model.RowOutcome{
			Row:     index,
			Outcome: model.OutcomeUnrepairable,
			Err:     err.Error(),
		}
	}

	result := repair.Repair(text, row)
	repair.FillFromStation(&result.Record, startMatch, endMatch)

	zap.L().Debug("pipeline: row processed",
		zap.Int("row", index),
		zap.String("outcome", string(result.Outcome)),
		zap.Strings("failed_fields", result.FailedFields),
	)

	return result.Record, model.RowOutcome{
		Row:          index,
		Outcome:      result.Outcome,
		FailedFields: result.FailedFields,
		Err:          result.ParseErr,
	}
}

// complete performs one rate-limited model call, retrying per configuration
// with exponential backoff.
func (c *Cleaner) complete(ctx context.Context, userPrompt string) (string, error) {
	req := llm.ChatCompletionRequest{
		Model: c.model.Name,
		Messages: []llm.Message{
			{Role: "system", Content: prompt.SystemPrompt},
			{Role: "user", Content: userPrompt},
		},
	}
	if c.model.Temperature > 0 {
		t := c.model.Temperature
		req.Temperature = &t
	}
	if c.model.MaxTokens > 0 {
		mt := c.model.MaxTokens
		req.MaxTokens = &mt
	}

	var lastErr error
	backoff := 500 * time.Millisecond
	attempts := c.model.Retries + 1
	for attempt := 0; attempt < attempts; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", err
		}

		resp, err := c.client.ChatCompletion(ctx, req)
		if err == nil {
			return resp.Text(), nil
		}
		lastErr = err

		if attempt < attempts-1 {
			zap.L().Warn("pipeline: model call failed, retrying",
				zap.Int("attempt", attempt+1),
				zap.Error(err),
			)
			timer := time.NewTimer(backoff)
			select {
			case <-ctx.Done():
				timer.Stop()
				return "", ctx.Err()
			case <-timer.C:
			}
			backoff *= 2
		}
	}
	return "", lastErr
}
