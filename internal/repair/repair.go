// Package repair parses the cleaning model's reply and validates every
// field against the ride record schema, falling back to the pre-model
// corrupted value for anything the reply got wrong.
package repair

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/agext/levenshtein"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/mobilitylabs/ridewash/internal/model"
	"github.com/mobilitylabs/ridewash/internal/station"
)

var (
	errNoObject  = eris.New("repair: reply contains no JSON object")
	errMalformed = eris.New("repair: reply JSON is malformed")
)

func errUnexpectedField(key string) error {
	return eris.Errorf("repair: unexpected field %q in reply", key)
}

func errMissingField(col string) error {
	return eris.Errorf("repair: reply missing field %q", col)
}

// enumMaxDistance is the maximum edit distance at which a categorical value
// is snapped to its nearest enum member ("membr" -> "member").
const enumMaxDistance = 2

// keyAliases maps the model boundary's alternate key spellings back to the
// canonical column names. Model replies occasionally echo the start_at /
// end_at names shown in the incorrect few-shot examples.
var keyAliases = map[string]string{
	"start_at": model.ColStartedAt,
	"end_at":   model.ColEndedAt,
}

// Result is the outcome of repairing one model reply.
type Result struct {
	Record       model.RideRecord
	Outcome      model.Outcome
	FailedFields []string
	ParseErr     string
}

// Repair parses the raw model reply, validates each field, and substitutes
// the fallback (corrupted) value for any field that fails. A reply that does
// not parse, misses a required field, or carries unexpected fields is
// unrepairable and the fallback row is returned whole.
func Repair(reply string, fallback model.RideRecord) Result {
	fields, err := parseReply(reply)
	if err != nil {
		return Result{
			Record:       fallback,
			Outcome:      model.OutcomeUnrepairable,
			FailedFields: append([]string(nil), model.Columns...),
			ParseErr:     err.Error(),
		}
	}

	var out model.RideRecord
	var failed []string
	for _, col := range model.Columns {
		v, ok := normalizeField(col, fields[col])
		if !ok {
			failed = append(failed, col)
			out.Set(col, fallback.Get(col))
			continue
		}
		out.Set(col, v)
	}

	// started_at < ended_at is a pair constraint; a violation invalidates
	// both timestamps since either could be the wrong one.
	if !contains(failed, model.ColStartedAt) && !contains(failed, model.ColEndedAt) {
		start, _ := time.Parse(model.TimeLayout, out.StartedAt)
		end, _ := time.Parse(model.TimeLayout, out.EndedAt)
		if !start.Before(end) {
			failed = append(failed, model.ColStartedAt, model.ColEndedAt)
			out.StartedAt = fallback.StartedAt
			out.EndedAt = fallback.EndedAt
		}
	}

	switch {
	case len(failed) == 0:
		return Result{Record: out, Outcome: model.OutcomeRepaired}
	case len(failed) == len(model.Columns):
		return Result{Record: out, Outcome: model.OutcomeUnrepairable, FailedFields: failed}
	default:
		return Result{Record: out, Outcome: model.OutcomePartial, FailedFields: failed}
	}
}

// parseReply extracts the JSON object from the reply text and returns the
// field set keyed by canonical column name. Missing or unexpected keys are
// errors.
func parseReply(reply string) (map[string]string, error) {
	cleaned := CleanJSON(reply)
	if cleaned == "" {
		return nil, errNoObject
	}

	dec := json.NewDecoder(strings.NewReader(cleaned))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, errMalformed
	}

	known := make(map[string]bool, len(model.Columns))
	for _, col := range model.Columns {
		known[col] = true
	}

	fields := make(map[string]string, len(raw))
	for k, v := range raw {
		col := k
		if alias, ok := keyAliases[k]; ok {
			col = alias
		}
		if !known[col] {
			return nil, errUnexpectedField(k)
		}
		if _, dup := fields[col]; dup {
			return nil, errUnexpectedField(k)
		}
		fields[col] = stringify(v)
	}

	for _, col := range model.Columns {
		if _, ok := fields[col]; !ok {
			return nil, errMissingField(col)
		}
	}
	return fields, nil
}

// normalizeField coerces one field value into domain-valid form. The bool
// result is false when the value cannot be made valid.
func normalizeField(col, v string) (string, bool) {
	switch col {
	case model.ColRideID:
		return normalizeRideID(v)
	case model.ColRideableType:
		return nearestEnum(v, model.RideableTypes)
	case model.ColMemberCasual:
		return nearestEnum(v, model.MemberTypes)
	case model.ColStartedAt, model.ColEndedAt:
		return normalizeTimestamp(v)
	case model.ColStartStationID, model.ColEndStationID:
		return normalizeStationID(v)
	case model.ColStartLat, model.ColStartLng, model.ColEndLat, model.ColEndLng:
		return normalizeCoordinate(v)
	case model.ColStartStationName, model.ColEndStationName:
		return normalizeStationName(v)
	}
	return "", false
}

// normalizeRideID strips all whitespace and uppercases. Valid iff the result
// is non-empty and purely alphanumeric.
func normalizeRideID(v string) (string, bool) {
	var b strings.Builder
	for _, c := range v {
		if unicode.IsSpace(c) {
			continue
		}
		b.WriteRune(unicode.ToUpper(c))
	}
	id := b.String()
	if id == "" {
		return "", false
	}
	for _, c := range id {
		if !unicode.IsLetter(c) && !unicode.IsDigit(c) {
			return "", false
		}
	}
	return id, true
}

// nearestEnum case-normalizes the value and snaps it to the closest enum
// member within the allowed edit distance.
func nearestEnum(v string, valid []string) (string, bool) {
	n := strings.ToLower(strings.TrimSpace(v))
	if n == "" {
		return "", false
	}
	for _, e := range valid {
		if n == e {
			return e, true
		}
	}
	best, bestDist := "", enumMaxDistance+1
	for _, e := range valid {
		if d := levenshtein.Distance(n, e, nil); d < bestDist {
			best, bestDist = e, d
		}
	}
	if best == "" {
		return "", false
	}
	return best, true
}

// normalizeTimestamp requires the canonical layout and the valid date range.
func normalizeTimestamp(v string) (string, bool) {
	t, err := time.Parse(model.TimeLayout, strings.TrimSpace(v))
	if err != nil {
		return "", false
	}
	if t.Before(model.ValidStart) || t.After(model.ValidEnd) {
		return "", false
	}
	return t.Format(model.TimeLayout), true
}

// normalizeStationID coerces to an integer, truncating any decimal remainder.
func normalizeStationID(v string) (string, bool) {
	s := strings.TrimSpace(v)
	if s == "" {
		return "", false
	}
	if n, err := strconv.Atoi(s); err == nil {
		return strconv.Itoa(n), true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return "", false
	}
	return strconv.Itoa(int(f)), true
}

// normalizeCoordinate accepts anything parseable as a float; no range check.
func normalizeCoordinate(v string) (string, bool) {
	s := strings.TrimSpace(v)
	if s == "" {
		return "", false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return "", false
	}
	return strconv.FormatFloat(f, 'f', -1, 64), true
}

// normalizeStationName collapses interior whitespace runs to single spaces.
func normalizeStationName(v string) (string, bool) {
	name := strings.Join(strings.Fields(v), " ")
	if name == "" {
		return "", false
	}
	return name, true
}

// FillFromStation fills any still-empty station or coordinate fields of a
// row from directory matches, so no field reaches the output empty when
// reference metadata exists for it.
func FillFromStation(rec *model.RideRecord, start, end *station.Station) {
	if start != nil {
		fillSide(rec, start,
			model.ColStartStationName, model.ColStartStationID, model.ColStartLat, model.ColStartLng)
	}
	if end != nil {
		fillSide(rec, end,
			model.ColEndStationName, model.ColEndStationID, model.ColEndLat, model.ColEndLng)
	}
}

func fillSide(rec *model.RideRecord, s *station.Station, nameCol, idCol, latCol, lngCol string) {
	if rec.Get(nameCol) == "" {
		rec.Set(nameCol, s.Name)
	}
	if rec.Get(idCol) == "" {
		rec.Set(idCol, station.NormalizeID(s.ID))
	}
	if rec.Get(latCol) == "" {
		rec.Set(latCol, strconv.FormatFloat(s.Lat, 'f', -1, 64))
	}
	if rec.Get(lngCol) == "" {
		rec.Set(lngCol, strconv.FormatFloat(s.Lng, 'f', -1, 64))
	}
}

// CleanJSON extracts a JSON object from text that may contain markdown code
// fences or prose wrapping.
func CleanJSON(text string) string {
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "```json") {
		text = strings.TrimPrefix(text, "```json")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	} else if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return ""
	}
	return strings.TrimSpace(text[start : end+1])
}

// stringify renders a decoded JSON value as text. Nulls become empty
// strings, which fail every field check downstream.
func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			zap.L().Debug("repair: unstringifiable reply value", zap.Error(err))
			return ""
		}
		return string(b)
	}
}

func contains(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}
