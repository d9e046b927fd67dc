// Package model defines the ride record schema shared by the corruption,
// repair, and scoring stages.
package model

import (
	"time"

	"github.com/rotisserie/eris"
)

// TimeLayout is the canonical timestamp format for started_at/ended_at.
const TimeLayout = "2006-01-02 15:04:05"

// Valid timestamp range for the January 2024 export.
var (
	ValidStart = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	ValidEnd   = time.Date(2024, 2, 1, 23, 59, 59, 0, time.UTC)
)

// Rideable type enum.
const (
	RideableClassic  = "classic_bike"
	RideableElectric = "electric_bike"
)

// Member type enum.
const (
	MemberTypeMember = "member"
	MemberTypeCasual = "casual"
)

// RideableTypes lists the valid rideable_type values.
var RideableTypes = []string{RideableClassic, RideableElectric}

// MemberTypes lists the valid member_casual values.
var MemberTypes = []string{MemberTypeMember, MemberTypeCasual}

// Column names in canonical CSV order.
const (
	ColRideID           = "ride_id"
	ColRideableType     = "rideable_type"
	ColStartedAt        = "started_at"
	ColEndedAt          = "ended_at"
	ColStartStationName = "start_station_name"
	ColStartStationID   = "start_station_id"
	ColEndStationName   = "end_station_name"
	ColEndStationID     = "end_station_id"
	ColStartLat         = "start_lat"
	ColStartLng         = "start_lng"
	ColEndLat           = "end_lat"
	ColEndLng           = "end_lng"
	ColMemberCasual     = "member_casual"
)

// Columns is the canonical column order for all CSV input and output.
var Columns = []string{
	ColRideID, ColRideableType, ColStartedAt, ColEndedAt,
	ColStartStationName, ColStartStationID, ColEndStationName, ColEndStationID,
	ColStartLat, ColStartLng, ColEndLat, ColEndLng, ColMemberCasual,
}

// RideRecord is one ride observation. All fields are held as text so that
// corrupted values (spurious decimals, misspellings, cleared cells) survive
// a round trip through CSV unchanged.
type RideRecord struct {
	RideID           string `json:"ride_id"`
	RideableType     string `json:"rideable_type"`
	StartedAt        string `json:"started_at"`
	EndedAt          string `json:"ended_at"`
	StartStationName string `json:"start_station_name"`
	StartStationID   string `json:"start_station_id"`
	EndStationName   string `json:"end_station_name"`
	EndStationID     string `json:"end_station_id"`
	StartLat         string `json:"start_lat"`
	StartLng         string `json:"start_lng"`
	EndLat           string `json:"end_lat"`
	EndLng           string `json:"end_lng"`
	MemberCasual     string `json:"member_casual"`
}

// Fields returns the record's values in canonical column order.
func (r RideRecord) Fields() []string {
	return []string{
		r.RideID, r.RideableType, r.StartedAt, r.EndedAt,
		r.StartStationName, r.StartStationID, r.EndStationName, r.EndStationID,
		r.StartLat, r.StartLng, r.EndLat, r.EndLng, r.MemberCasual,
	}
}

// Get returns the value of the named column.
func (r RideRecord) Get(col string) string {
	switch col {
	case ColRideID:
		return r.RideID
	case ColRideableType:
		return r.RideableType
	case ColStartedAt:
		return r.StartedAt
	case ColEndedAt:
		return r.EndedAt
	case ColStartStationName:
		return r.StartStationName
	case ColStartStationID:
		return r.StartStationID
	case ColEndStationName:
		return r.EndStationName
	case ColEndStationID:
		return r.EndStationID
	case ColStartLat:
		return r.StartLat
	case ColStartLng:
		return r.StartLng
	case ColEndLat:
		return r.EndLat
	case ColEndLng:
		return r.EndLng
	case ColMemberCasual:
		return r.MemberCasual
	}
	return ""
}

// Set assigns the value of the named column. Unknown columns are ignored.
func (r *RideRecord) Set(col, value string) {
	switch col {
	case ColRideID:
		r.RideID = value
	case ColRideableType:
		r.RideableType = value
	case ColStartedAt:
		r.StartedAt = value
	case ColEndedAt:
		r.EndedAt = value
	case ColStartStationName:
		r.StartStationName = value
	case ColStartStationID:
		r.StartStationID = value
	case ColEndStationName:
		r.EndStationName = value
	case ColEndStationID:
		r.EndStationID = value
	case ColStartLat:
		r.StartLat = value
	case ColStartLng:
		r.StartLng = value
	case ColEndLat:
		r.EndLat = value
	case ColEndLng:
		r.EndLng = value
	case ColMemberCasual:
		r.MemberCasual = value
	}
}

// FromFields builds a record from a CSV row in canonical column order.
func FromFields(fields []string) (RideRecord, error) {
	if len(fields) != len(Columns) {
		return RideRecord{}, eris.Errorf("model: expected %d fields, got %d", len(Columns), len(fields))
	}
	var r RideRecord
	for i, col := range Columns {
		r.Set(col, fields[i])
	}
	return r, nil
}

// Outcome classifies the repair confidence of a processed row.
type Outcome string

const (
	OutcomeRepaired     Outcome = "repaired"
	OutcomePartial      Outcome = "partial"
	OutcomeUnrepairable Outcome = "unrepairable"
)
