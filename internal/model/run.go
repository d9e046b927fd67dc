package model

import "time"

// RunStatus represents the state of a cleaning run.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// Run is one execution of the cleaning pipeline.
type Run struct {
	ID        string      `json:"id"`
	Variant   string      `json:"variant"`
	Model     string      `json:"model"`
	Source    string      `json:"source"`
	Status    RunStatus   `json:"status"`
	Summary   *RunSummary `json:"summary,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// RunSummary aggregates per-row outcomes for a finished run.
type RunSummary struct {
	Rows         int   `json:"rows"`
	Repaired     int   `json:"repaired"`
	Partial      int   `json:"partial"`
	Unrepairable int   `json:"unrepairable"`
	DurationMS   int64 `json:"duration_ms"`
}

// RowOutcome records the repair result for one row of a run.
type RowOutcome struct {
	Row          int      `json:"row"`
	Outcome      Outcome  `json:"outcome"`
	FailedFields []string `json:"failed_fields,omitempty"`
	Err          string   `json:"error,omitempty"`
}
