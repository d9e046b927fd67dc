package corrupt

import (
	"go.uber.org/zap"

	"github.com/mobilitylabs/ridewash/internal/model"
)

// Manifest records which rules fired on which columns of one row. It is
// evaluation metadata only; the model-facing path never reads it.
type Manifest struct {
	Row    int               `json:"row"`
	Fields map[string][]Rule `json:"fields,omitempty"`
}

// Corrupted reports whether any rule fired on the row.
func (m Manifest) Corrupted() bool {
	return len(m.Fields) > 0
}

func (m *Manifest) add(col string, rules []Rule) {
	if len(rules) == 0 {
		return
	}
	if m.Fields == nil {
		m.Fields = make(map[string][]Rule)
	}
	m.Fields[col] = append(m.Fields[col], rules...)
}

// emptiableColumns are the columns eligible for the per-column null-out
// pass. Identifier columns are never emptied so every row stays addressable.
var emptiableColumns = []string{
	model.ColRideableType, model.ColStartedAt, model.ColEndedAt,
	model.ColStartStationName, model.ColEndStationName,
	model.ColStartLat, model.ColStartLng, model.ColEndLat, model.ColEndLng,
	model.ColMemberCasual,
}

// CorruptRow applies the per-field rules to a single row. Each eligible
// field is an independent Bernoulli trial, so a row may pick up zero, one,
// or many corruptions.
func (g *Generator) CorruptRow(rec model.RideRecord, index int) (model.RideRecord, Manifest) {
	m := Manifest{Row: index}

	var fired []Rule
	rec.RideID, fired = g.CorruptRideID(rec.RideID)
	m.add(model.ColRideID, fired)

	rec.RideableType, fired = g.CorruptRideableType(rec.RideableType)
	m.add(model.ColRideableType, fired)

	var start, end string
	start, end, fired = g.CorruptTimestamps(rec.StartedAt, rec.EndedAt)
	if start != rec.StartedAt {
		m.add(model.ColStartedAt, fired)
	}
	if end != rec.EndedAt {
		m.add(model.ColEndedAt, fired)
	}
	rec.StartedAt, rec.EndedAt = start, end

	var name, id string
	var nameFired, idFired []Rule
	name, id, nameFired, idFired = g.CorruptStation(rec.StartStationName, rec.StartStationID)
	rec.StartStationName, rec.StartStationID = name, id
	m.add(model.ColStartStationName, nameFired)
	m.add(model.ColStartStationID, idFired)

	name, id, nameFired, idFired = g.CorruptStation(rec.EndStationName, rec.EndStationID)
	rec.EndStationName, rec.EndStationID = name, id
	m.add(model.ColEndStationName, nameFired)
	m.add(model.ColEndStationID, idFired)

	// Coordinate drift replaces the pair, so the rule lands on both columns.
	var lat, lng string
	lat, lng, fired = g.CorruptCoordinates(rec.StartLat, rec.StartLng, rec.StartStationName, rec.StartStationID)
	rec.StartLat, rec.StartLng = lat, lng
	m.add(model.ColStartLat, fired)
	m.add(model.ColStartLng, fired)

	lat, lng, fired = g.CorruptCoordinates(rec.EndLat, rec.EndLng, rec.EndStationName, rec.EndStationID)
	rec.EndLat, rec.EndLng = lat, lng
	m.add(model.ColEndLat, fired)
	m.add(model.ColEndLng, fired)

	rec.MemberCasual, fired = g.CorruptMemberType(rec.MemberCasual)
	m.add(model.ColMemberCasual, fired)

	return rec, m
}

// CorruptTable corrupts a full table: a null-out pass first clears up to
// maxEmpty of each eligible column, then every row goes through CorruptRow.
// Row count and column set are always preserved.
func (g *Generator) CorruptTable(recs []model.RideRecord) ([]model.RideRecord, []Manifest) {
	out := make([]model.RideRecord, len(recs))
	copy(out, recs)
	manifests := make([]Manifest, len(recs))
	for i := range manifests {
		manifests[i] = Manifest{Row: i}
	}

	numEmpty := int(float64(len(recs)) * g.maxEmpty)
	if numEmpty > len(recs) {
		numEmpty = len(recs)
	}
	for _, col := range emptiableColumns {
		for _, idx := range g.rng.Perm(len(out))[:numEmpty] {
			if out[idx].Get(col) == "" {
				continue
			}
			out[idx].Set(col, "")
			manifests[idx].add(col, []Rule{RuleEmptied})
		}
	}

	corrupted := 0
	for i := range out {
		rec, m := g.CorruptRow(out[i], i)
		out[i] = rec
		for col, rules := range m.Fields {
			manifests[i].add(col, rules)
		}
		if manifests[i].Corrupted() {
			corrupted++
		}
	}

	zap.L().Info("corrupted table",
		zap.Int("rows", len(out)),
		zap.Int("rows_with_errors", corrupted),
		zap.Float64("error_rate", g.rate),
		zap.Float64("max_empty", g.maxEmpty),
	)
	return out, manifests
}
