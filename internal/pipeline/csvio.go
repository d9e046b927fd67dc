package pipeline

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"os"

	"github.com/rotisserie/eris"

	"github.com/mobilitylabs/ridewash/internal/model"
)

// OutcomeColumn is the optional extra output column carrying the per-row
// repair outcome tag.
const OutcomeColumn = "repair_outcome"

// ReadRecords reads a ride CSV with the canonical header.
func ReadRecords(path string) ([]model.RideRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "csv: open %s", path)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, eris.Wrapf(err, "csv: read header %s", path)
	}
	if err := checkHeader(header); err != nil {
		return nil, err
	}

	var recs []model.RideRecord
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrapf(err, "csv: read row %d", len(recs)+1)
		}
		rec, err := model.FromFields(row)
		if err != nil {
			return nil, eris.Wrapf(err, "csv: row %d", len(recs)+1)
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

func checkHeader(header []string) error {
	if len(header) != len(model.Columns) {
		return eris.Errorf("csv: expected %d columns, got %d", len(model.Columns), len(header))
	}
	for i, col := range model.Columns {
		if header[i] != col {
			return eris.Errorf("csv: column %d is %q, want %q", i, header[i], col)
		}
	}
	return nil
}

// WriteRecords writes a ride CSV with the canonical header. When outcomes is
// non-nil it must be row-aligned with recs, and an extra outcome column is
// appended.
func WriteRecords(path string, recs []model.RideRecord, outcomes []model.RowOutcome) error {
	if outcomes != nil && len(outcomes) != len(recs) {
		return eris.Errorf("csv: %d outcomes for %d records", len(outcomes), len(recs))
	}

	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "csv: create %s", path)
	}
	defer f.Close()

	w := csv.NewWriter(f)

	header := append([]string(nil), model.Columns...)
	if outcomes != nil {
		header = append(header, OutcomeColumn)
	}
	if err := w.Write(header); err != nil {
		return eris.Wrap(err, "csv: write header")
	}

	for i, rec := range recs {
		row := rec.Fields()
		if outcomes != nil {
			row = append(row, string(outcomes[i].Outcome))
		}
		if err := w.Write(row); err != nil {
			return eris.Wrapf(err, "csv: write row %d", i)
		}
	}

	w.Flush()
	return eris.Wrap(w.Error(), "csv: flush")
}

// WriteJSON marshals v to path with indentation. Used for corruption
// manifests, checkpoints, and final cleaning results.
func WriteJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return eris.Wrapf(err, "json: marshal %s", path)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrapf(err, "json: write %s", path)
	}
	return nil
}

// ReadRecordsJSON reads a JSON array of ride records, as written by the
// cleaning checkpoints and results files.
func ReadRecordsJSON(path string) ([]model.RideRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "json: read %s", path)
	}
	var recs []model.RideRecord
	if err := json.Unmarshal(data, &recs); err != nil {
		return nil, eris.Wrapf(err, "json: unmarshal %s", path)
	}
	return recs, nil
}
