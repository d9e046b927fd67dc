// Package prompt renders corrupted ride rows into the text prompts sent to
// the cleaning model. One parameterized template covers the four variants
// (bare, rule-annotated, metadata-augmented, few-shot).
package prompt

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/mobilitylabs/ridewash/internal/model"
	"github.com/mobilitylabs/ridewash/internal/station"
)

// SystemPrompt is the system message sent with every cleaning request.
const SystemPrompt = "You are a data cleaning expert."

// Options selects which sections the rendered prompt includes.
type Options struct {
	IncludeRules    bool
	IncludeMetadata bool
	IncludeExamples bool
}

// Named prompt variants.
const (
	VariantBare     = "bare"
	VariantRules    = "rules"
	VariantMetadata = "metadata"
	VariantFewShot  = "fewshot"
)

// VariantOptions maps a variant name to its Options.
func VariantOptions(name string) (Options, error) {
	switch name {
	case VariantBare:
		return Options{}, nil
	case VariantRules:
		return Options{IncludeRules: true}, nil
	case VariantMetadata:
		return Options{IncludeRules: true, IncludeMetadata: true}, nil
	case VariantFewShot:
		return Options{IncludeExamples: true}, nil
	}
	return Options{}, eris.Errorf("prompt: unknown variant %q", name)
}

const jsonShape = `Return only a JSON object with the required format below. The JSON must contain ALL fields:
    "ride_id": "value",
    "rideable_type": "value",
    "started_at": "value",
    "ended_at": "value",
    "start_station_name": "value",
    "start_station_id": "value",
    "end_station_name": "value",
    "end_station_id": "value",
    "start_lat": value,
    "start_lng": value,
    "end_lat": value,
    "end_lng": value,
    "member_casual": "value"`

const ruleList = `Rules:
1. ride_id: Remove spaces and use uppercase. Return one string which is all uppercase. Concatenate all the parts of the string by removing the spaces. Do not leave characters out. Must be one string containing 14 characters without spaces.
2. rideable_type: Must be 'electric_bike' or 'classic_bike'
3. dates: 2024-01-01 to 2024-02-01, started_at before ended_at
        - date format must be YYYY-MM-DD hh:mm:ss
4. member_casual: Must be 'member' or 'casual' in lowercase, nothing else. Correct this field as well.
5. station_ids: Integers only. Remove decimals
6. DO NOT OMIT COLUMNS FROM THE ROW. ALL THE COLUMNS MUST BE PRESENT. THEY MUST BE CORRECTED, FILLED IN CASE OF MISSING VALUES AND RETURNED.`

const closingInstructions = `If no corrections are needed, return the exact original values in the JSON format above.
Never return null. Never leave fields empty. Always return a complete JSON object.`

const metadataInstructions = `REMEMBER: Use the metadata matches when appropriate to correct station information.
If the original row has missing values, fill them up using the station metadata.
Do not return the row with missing values as such. Always fill it up.`

const fewShotExamples = `Examples of CORRECT rows - Note the exact field names that must be used:

"ride_id": "BBC291376E29C9A1",
"rideable_type": "classic_bike",
"started_at": "2024-01-19 20:24:21",
"ended_at": "2024-01-19 20:34:26",
"start_station_name": "Florida Ave & R St NW",
"start_station_id": "31503",
"end_station_name": "11th & M St NW",
"end_station_id": "31266",
"start_lat": 38.9126,
"start_lng": -77.0135,
"end_lat": 38.9055785,
"end_lng": -77.027313,
"member_casual": "member"

"ride_id": "DE01351AA3EE520A",
"rideable_type": "electric_bike",
"started_at": "2024-01-24 06:01:16",
"ended_at": "2024-01-24 06:14:36",
"start_station_name": "11th & Park Rd NW",
"start_station_id": "31651",
"end_station_name": "18th & L St NW",
"end_station_id": "31224",
"start_lat": 38.931365132,
"start_lng": -77.028289914,
"end_lat": 38.903741450919384,
"end_lng": -77.04245209693909,
"member_casual": "casual"

Examples of INCORRECT formatting - Do not use these formats:

"ride_id": "62 4E A0 EB B9 2C 5C D9",          (spaces inside the id)
"rideable_type": "electric bike",              (space instead of underscore)
"start_at": "2024-01-10 161307",               (wrong key name, missing time separators)
"end_at": "2024-01-10 16:17:08",               (wrong key name)
"start_station_name": "Virginia  Square  Metro  /  Monroe  St  &  9th  St  N",
"start_station_id": "31024.0",                 (spurious decimal)
"end_station_name": "Washington-Blvd & 10th St N",
"end_station_id": "31026.0",                   (spurious decimal)
"start_lat": "38.882723927",                   (number quoted as string)
"start_lng": "-77.103165865",
"end_lat": null,                               (null is never allowed)
"end_lng": null,
"member_casual": "membr"                       (misspelling)

"ride_id": "Fa443eB033BaeC9c",                 (mixed case)
"rideable_type": "electric bike",
"start_at": "2024-01-23 183153",
"end_at": "2024-01-23 184117",
"start_station_name": "15th  &  P  St  NW",    (doubled interior spaces)
"start_station_id": "31201",
"end_station_name": "14Th & Belmont St Nw",    (wrong casing)
"end_station_id": "31119",
"start_lat": 38.909881353,
"start_lng": -77.034395814,
"end_lat": 38.921074,
"end_lng": -77.031887,
"member_casual": "causual"                     (misspelling)`

// Render formats one corrupted row, plus any station metadata matches, into
// a single prompt. It only arranges existing row values and fixed template
// text; metadata blocks appear iff the corresponding match is non-nil.
func Render(rec model.RideRecord, startMatch, endMatch *station.Station, opts Options) string {
	var b strings.Builder

	fmt.Fprintf(&b, `Clean this bike data row:
ride_id: %s
rideable_type: %s
started_at: %s
ended_at: %s
member_casual: %s
start_station: %s, id=%s, lat=%s, lng=%s
end_station: %s, id=%s, lat=%s, lng=%s`,
		rec.RideID, rec.RideableType, rec.StartedAt, rec.EndedAt, rec.MemberCasual,
		rec.StartStationName, rec.StartStationID, rec.StartLat, rec.StartLng,
		rec.EndStationName, rec.EndStationID, rec.EndLat, rec.EndLng,
	)

	if opts.IncludeMetadata && (startMatch != nil || endMatch != nil) {
		b.WriteString("\n\nMetadata matches found:")
		if startMatch != nil {
			fmt.Fprintf(&b, "\nStart station metadata: name=%q, id=%s, lat=%v, lng=%v",
				startMatch.Name, startMatch.ID, startMatch.Lat, startMatch.Lng)
		}
		if endMatch != nil {
			fmt.Fprintf(&b, "\nEnd station metadata: name=%q, id=%s, lat=%v, lng=%v",
				endMatch.Name, endMatch.ID, endMatch.Lat, endMatch.Lng)
		}
	}

	if opts.IncludeExamples {
		b.WriteString("\n\n" + fewShotExamples)
	}

	b.WriteString("\n\n" + jsonShape)

	if opts.IncludeRules {
		b.WriteString("\n\n" + ruleList)
	}

	if opts.IncludeMetadata && (startMatch != nil || endMatch != nil) {
		b.WriteString("\n\n" + metadataInstructions)
	}

	b.WriteString("\n\n" + closingInstructions)

	return b.String()
}
