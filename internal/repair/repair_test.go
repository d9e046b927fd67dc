package repair

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mobilitylabs/ridewash/internal/model"
	"github.com/mobilitylabs/ridewash/internal/station"
)

func fallbackRow() model.RideRecord {
	return model.RideRecord{
		RideID:           "bbc2 9137 6e29c9a1",
		RideableType:     "electric bike",
		StartedAt:        "2024-01-10 161307",
		EndedAt:          "2024-01-10 16:17:08",
		StartStationName: "Virginia  Square  Metro",
		StartStationID:   "31024.0",
		EndStationName:   "Washington Blvd & 10th St N",
		EndStationID:     "31026.0",
		StartLat:         "38.882723927",
		StartLng:         "-77.103165865",
		EndLat:           "38.881044",
		EndLng:           "-77.107449",
		MemberCasual:     "membr",
	}
}

const goodReply = `{
	"ride_id": "bbc2 9137 6e29c9a1",
	"rideable_type": "electric_bike",
	"started_at": "2024-01-10 16:13:07",
	"ended_at": "2024-01-10 16:17:08",
	"start_station_name": "Virginia Square Metro",
	"start_station_id": "31024.0",
	"end_station_name": "Washington Blvd & 10th St N",
	"end_station_id": 31026,
	"start_lat": 38.882723927,
	"start_lng": -77.103165865,
	"end_lat": 38.881044,
	"end_lng": -77.107449,
	"member_casual": "membr"
}`

func TestRepair_FullRepair(t *testing.T) {
	t.Parallel()

	res := Repair(goodReply, fallbackRow())

	assert.Equal(t, model.OutcomeRepaired, res.Outcome)
	assert.Empty(t, res.FailedFields)

	assert.Equal(t, "BBC291376E29C9A1", res.Record.RideID)
	assert.Equal(t, "electric_bike", res.Record.RideableType)
	assert.Equal(t, "2024-01-10 16:13:07", res.Record.StartedAt)
	assert.Equal(t, "2024-01-10 16:17:08", res.Record.EndedAt)
	assert.Equal(t, "Virginia Square Metro", res.Record.StartStationName)
	assert.Equal(t, "31024", res.Record.StartStationID)
	assert.Equal(t, "31026", res.Record.EndStationID)
	assert.Equal(t, "38.882723927", res.Record.StartLat)
	assert.Equal(t, "member", res.Record.MemberCasual)
}

func TestRepair_FencedReply(t *testing.T) {
	t.Parallel()

	res := Repair("Here is the cleaned row:\n```json\n"+goodReply+"\n```\nHope that helps!", fallbackRow())
	assert.Equal(t, model.OutcomeRepaired, res.Outcome)
	assert.Equal(t, "BBC291376E29C9A1", res.Record.RideID)
}

func TestRepair_AliasKeys(t *testing.T) {
	t.Parallel()

	reply := `{
		"ride_id": "BBC291376E29C9A1",
		"rideable_type": "classic_bike",
		"start_at": "2024-01-10 16:13:07",
		"end_at": "2024-01-10 16:17:08",
		"start_station_name": "Virginia Square Metro",
		"start_station_id": "31024",
		"end_station_name": "Washington Blvd & 10th St N",
		"end_station_id": "31026",
		"start_lat": 38.882723927,
		"start_lng": -77.103165865,
		"end_lat": 38.881044,
		"end_lng": -77.107449,
		"member_casual": "member"
	}`

	res := Repair(reply, fallbackRow())
	assert.Equal(t, model.OutcomeRepaired, res.Outcome)
	assert.Equal(t, "2024-01-10 16:13:07", res.Record.StartedAt)
	assert.Equal(t, "2024-01-10 16:17:08", res.Record.EndedAt)
}

func TestRepair_MissingField(t *testing.T) {
	t.Parallel()

	reply := `{"ride_id": "BBC291376E29C9A1", "rideable_type": "classic_bike"}`
	fallback := fallbackRow()

	res := Repair(reply, fallback)
	assert.Equal(t, model.OutcomeUnrepairable, res.Outcome)
	assert.Equal(t, fallback, res.Record)
	assert.Len(t, res.FailedFields, len(model.Columns))
	assert.Contains(t, res.ParseErr, "missing field")
}

func TestRepair_UnexpectedField(t *testing.T) {
	t.Parallel()

	reply := goodReply[:len(goodReply)-2] + `,
	"confidence": 0.95
}`
	fallback := fallbackRow()

	res := Repair(reply, fallback)
	assert.Equal(t, model.OutcomeUnrepairable, res.Outcome)
	assert.Equal(t, fallback, res.Record)
	assert.Contains(t, res.ParseErr, "unexpected field")
}

func TestRepair_NoJSON(t *testing.T) {
	t.Parallel()

	fallback := fallbackRow()
	res := Repair("I cannot clean this row, sorry.", fallback)
	assert.Equal(t, model.OutcomeUnrepairable, res.Outcome)
	assert.Equal(t, fallback, res.Record)
	assert.Contains(t, res.ParseErr, "no JSON object")
}

func TestRepair_PartialFallback(t *testing.T) {
	t.Parallel()

	// Timestamp outside the export range and a null coordinate: both fields
	// keep their corrupted values, everything else is repaired.
	reply := `{
		"ride_id": "BBC291376E29C9A1",
		"rideable_type": "classic_bike",
		"started_at": "2023-06-10 16:13:07",
		"ended_at": "2024-01-10 16:17:08",
		"start_station_name": "Virginia Square Metro",
		"start_station_id": "31024",
		"end_station_name": "Washington Blvd & 10th St N",
		"end_station_id": "31026",
		"start_lat": 38.882723927,
		"start_lng": -77.103165865,
		"end_lat": null,
		"end_lng": -77.107449,
		"member_casual": "member"
	}`
	fallback := fallbackRow()

	res := Repair(reply, fallback)
	assert.Equal(t, model.OutcomePartial, res.Outcome)
	assert.ElementsMatch(t, []string{model.ColStartedAt, model.ColEndLat}, res.FailedFields)
	assert.Equal(t, fallback.StartedAt, res.Record.StartedAt)
	assert.Equal(t, fallback.EndLat, res.Record.EndLat)
	assert.Equal(t, "BBC291376E29C9A1", res.Record.RideID)
}

func TestRepair_InvertedTimestamps(t *testing.T) {
	t.Parallel()

	reply := `{
		"ride_id": "BBC291376E29C9A1",
		"rideable_type": "classic_bike",
		"started_at": "2024-01-10 16:17:08",
		"ended_at": "2024-01-10 16:13:07",
		"start_station_name": "Virginia Square Metro",
		"start_station_id": "31024",
		"end_station_name": "Washington Blvd & 10th St N",
		"end_station_id": "31026",
		"start_lat": 38.882723927,
		"start_lng": -77.103165865,
		"end_lat": 38.881044,
		"end_lng": -77.107449,
		"member_casual": "member"
	}`
	fallback := fallbackRow()

	res := Repair(reply, fallback)
	assert.Equal(t, model.OutcomePartial, res.Outcome)
	assert.ElementsMatch(t, []string{model.ColStartedAt, model.ColEndedAt}, res.FailedFields)
	assert.Equal(t, fallback.StartedAt, res.Record.StartedAt)
	assert.Equal(t, fallback.EndedAt, res.Record.EndedAt)
}

func TestRepair_IdempotentOnValidRow(t *testing.T) {
	t.Parallel()

	res := Repair(goodReply, fallbackRow())
	require.Equal(t, model.OutcomeRepaired, res.Outcome)

	again := Repair(goodReply, res.Record)
	assert.Equal(t, model.OutcomeRepaired, again.Outcome)
	assert.Equal(t, res.Record, again.Record)
}

func TestNormalizeRideID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"bbc2 9137 6e29c9a1", "BBC291376E29C9A1", true},
		{"62 4E A0 EB B9 2C 5C D9", "624EA0EBB92C5CD9", true},
		{"Fa443eB033BaeC9c", "FA443EB033BAEC9C", true},
		{"BBC2-9137", "", false},
		{"   ", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := normalizeRideID(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestNearestEnum(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in    string
		valid []string
		want  string
		ok    bool
	}{
		{"member", model.MemberTypes, "member", true},
		{"MEMBER", model.MemberTypes, "member", true},
		{"membr", model.MemberTypes, "member", true},
		{"causual", model.MemberTypes, "casual", true},
		{"Members", model.MemberTypes, "member", true},
		{"subscriber", model.MemberTypes, "", false},
		{"classic_bike", model.RideableTypes, "classic_bike", true},
		{"clasic_bike", model.RideableTypes, "classic_bike", true},
		{"classic bike", model.RideableTypes, "classic_bike", true},
		{"electrc_bike", model.RideableTypes, "electric_bike", true},
		{"scooter", model.RideableTypes, "", false},
		{"", model.MemberTypes, "", false},
	}
	for _, tt := range tests {
		got, ok := nearestEnum(tt.in, tt.valid)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestNormalizeTimestamp(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"2024-01-19 20:24:21", "2024-01-19 20:24:21", true},
		{" 2024-01-19 20:24:21 ", "2024-01-19 20:24:21", true},
		{"2024-02-01 23:59:59", "2024-02-01 23:59:59", true},
		{"2024-01-01 00:00:00", "2024-01-01 00:00:00", true},
		{"2023-12-31 23:59:59", "", false},
		{"2024-02-02 00:00:00", "", false},
		{"2024/01/19 20:24:21", "", false},
		{"2024-01-19 202421", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := normalizeTimestamp(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestNormalizeStationID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"31024", "31024", true},
		{"31024.0", "31024", true},
		{"31024.9", "31024", true},
		{" 31024 ", "31024", true},
		{"abc", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := normalizeStationID(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestNormalizeStationName(t *testing.T) {
	t.Parallel()

	got, ok := normalizeStationName("Virginia  Square  Metro  /  Monroe  St")
	require.True(t, ok)
	assert.Equal(t, "Virginia Square Metro / Monroe St", got)

	_, ok = normalizeStationName("   ")
	assert.False(t, ok)
}

func TestCleanJSON(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"bare object", `{"a": 1}`, `{"a": 1}`},
		{"json fence", "```json\n{\"a\": 1}\n```", `{"a": 1}`},
		{"plain fence", "```\n{\"a\": 1}\n```", `{"a": 1}`},
		{"prose wrapping", "Sure thing:\n{\"a\": 1}\nDone.", `{"a": 1}`},
		{"no object", "no json here", ""},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, CleanJSON(tt.in))
		})
	}
}

func TestFillFromStation(t *testing.T) {
	t.Parallel()

	rec := fallbackRow()
	rec.StartStationName = ""
	rec.StartLat = ""
	rec.EndStationID = ""

	start := &station.Station{Name: "Virginia Square Metro", ID: "31024.0", Lat: 38.882724, Lng: -77.103166}
	end := &station.Station{Name: "Washington Blvd & 10th St N", ID: "31026", Lat: 38.881044, Lng: -77.107449}

	FillFromStation(&rec, start, end)

	assert.Equal(t, "Virginia Square Metro", rec.StartStationName)
	assert.Equal(t, "38.882724", rec.StartLat)
	assert.Equal(t, "31026", rec.EndStationID)
	// Non-empty fields are left alone.
	assert.Equal(t, "31024.0", rec.StartStationID)

	// Nil matches are a no-op.
	rec2 := fallbackRow()
	rec2.EndLat = ""
	FillFromStation(&rec2, nil, nil)
	assert.Equal(t, "", rec2.EndLat)
}
