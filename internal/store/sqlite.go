package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/mobilitylabs/ridewash/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	variant    TEXT NOT NULL,
	model      TEXT NOT NULL,
	source     TEXT NOT NULL,
	status     TEXT NOT NULL DEFAULT 'running',
	summary    TEXT,
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS row_outcomes (
	run_id        TEXT NOT NULL REFERENCES runs(id),
	row_index     INTEGER NOT NULL,
	outcome       TEXT NOT NULL,
	failed_fields TEXT,
	error         TEXT,
	PRIMARY KEY (run_id, row_index)
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_row_outcomes_run_id ON row_outcomes(run_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateRun(ctx context.Context, variant, modelName, source string) (*model.Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, variant, model, source, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, variant, modelName, source, string(model.RunStatusRunning), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert run")
	}

	return &model.Run{
		ID:        id,
		Variant:   variant,
		Model:     modelName,
		Source:    source,
		Status:    model.RunStatusRunning,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *SQLiteStore) CompleteRun(ctx context.Context, runID string, status model.RunStatus, summary *model.RunSummary) error {
	var summaryJSON []byte
	if summary != nil {
		var err error
		summaryJSON, err = json.Marshal(summary)
		if err != nil {
			return eris.Wrap(err, "sqlite: marshal summary")
		}
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, summary = ?, updated_at = ? WHERE id = ?`,
		string(status), string(summaryJSON), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: complete run %s", runID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return eris.Errorf("sqlite: run %s not found", runID)
	}
	return nil
}

func (s *SQLiteStore) SaveOutcomes(ctx context.Context, runID string, outcomes []model.RowOutcome) error {
	if len(outcomes) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR REPLACE INTO row_outcomes (run_id, row_index, outcome, failed_fields, error) VALUES (?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare outcome insert")
	}
	defer stmt.Close()

	for _, o := range outcomes {
		var failedJSON []byte
		if len(o.FailedFields) > 0 {
			failedJSON, err = json.Marshal(o.FailedFields)
			if err != nil {
				return eris.Wrap(err, "sqlite: marshal failed fields")
			}
		}
		if _, err := stmt.ExecContext(ctx, runID, o.Row, string(o.Outcome), string(failedJSON), o.Err); err != nil {
			return eris.Wrapf(err, "sqlite: insert outcome row %d", o.Row)
		}
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit outcomes")
}

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, variant, model, source, status, summary, created_at, updated_at FROM runs WHERE id = ?`,
		runID,
	)

	var r model.Run
	var status string
	var summaryJSON sql.NullString
	if err := row.Scan(&r.ID, &r.Variant, &r.Model, &r.Source, &status, &summaryJSON, &r.CreatedAt, &r.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, eris.Errorf("sqlite: run %s not found", runID)
		}
		return nil, eris.Wrapf(err, "sqlite: get run %s", runID)
	}
	r.Status = model.RunStatus(status)

	if summaryJSON.Valid && summaryJSON.String != "" {
		var summary model.RunSummary
		if err := json.Unmarshal([]byte(summaryJSON.String), &summary); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal summary")
		}
		r.Summary = &summary
	}

	return &r, nil
}

func (s *SQLiteStore) ListOutcomes(ctx context.Context, runID string) ([]model.RowOutcome, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT row_index, outcome, failed_fields, error FROM row_outcomes WHERE run_id = ? ORDER BY row_index`,
		runID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list outcomes %s", runID)
	}
	defer rows.Close()

	var outcomes []model.RowOutcome
	for rows.Next() {
		var o model.RowOutcome
		var outcome string
		var failedJSON, errText sql.NullString
		if err := rows.Scan(&o.Row, &outcome, &failedJSON, &errText); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan outcome")
		}
		o.Outcome = model.Outcome(outcome)
		if failedJSON.Valid && failedJSON.String != "" {
			if err := json.Unmarshal([]byte(failedJSON.String), &o.FailedFields); err != nil {
				return nil, eris.Wrap(err, "sqlite: unmarshal failed fields")
			}
		}
		o.Err = errText.String
		outcomes = append(outcomes, o)
	}
	return outcomes, eris.Wrap(rows.Err(), "sqlite: iterate outcomes")
}
