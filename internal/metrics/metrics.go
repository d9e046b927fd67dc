// Package metrics scores a cleaning run against ground truth: per-column
// and overall precision/recall/F1 of repairs.
package metrics

import (
	"github.com/rotisserie/eris"

	"github.com/mobilitylabs/ridewash/internal/model"
)

// ColumnMetrics holds repair quality scores for one column.
type ColumnMetrics struct {
	Column    string  `json:"column"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1_score"`
}

// Report holds per-column and aggregate repair quality scores.
type Report struct {
	Columns   []ColumnMetrics `json:"columns"`
	Precision float64         `json:"precision"`
	Recall    float64         `json:"recall"`
	F1        float64         `json:"f1_score"`
}

// Evaluate compares the cleaned table against ground truth. A repair is any
// cell the cleaner changed; a correct repair is a changed cell that now
// matches ground truth. Precision = correct repairs / repairs, recall =
// correct repairs / injected errors.
func Evaluate(clean, corrupted, cleaned []model.RideRecord) (*Report, error) {
	if len(clean) != len(corrupted) || len(clean) != len(cleaned) {
		return nil, eris.Errorf("metrics: mismatched row counts: clean=%d corrupted=%d cleaned=%d",
			len(clean), len(corrupted), len(cleaned))
	}

	report := &Report{}
	var totalCorrect, totalRepairs, totalErrors int

	for _, col := range model.Columns {
		var correct, repairs, errors int
		for i := range clean {
			truth := clean[i].Get(col)
			input := corrupted[i].Get(col)
			output := cleaned[i].Get(col)

			if input != truth {
				errors++
			}
			if input != output {
				repairs++
			}
			if input != truth && output == truth {
				correct++
			}
		}

		precision := ratio(correct, repairs)
		recall := ratio(correct, errors)
		report.Columns = append(report.Columns, ColumnMetrics{
			Column:    col,
			Precision: precision,
			Recall:    recall,
			F1:        f1(precision, recall),
		})

		totalCorrect += correct
		totalRepairs += repairs
		totalErrors += errors
	}

	report.Precision = ratio(totalCorrect, totalRepairs)
	report.Recall = ratio(totalCorrect, totalErrors)
	report.F1 = f1(report.Precision, report.Recall)
	return report, nil
}

func ratio(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}

func f1(precision, recall float64) float64 {
	if precision+recall == 0 {
		return 0
	}
	return 2 * precision * recall / (precision + recall)
}
