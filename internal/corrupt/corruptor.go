// Package corrupt injects synthetic data-entry errors into clean ride
// records. Every rule is a deterministic transformation gated by a Bernoulli
// trial against the configured error rate, so a seeded rand.Rand reproduces
// a corruption run exactly.
package corrupt

import (
	"fmt"
	"math/rand"
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/mobilitylabs/ridewash/internal/model"
)

// Rule identifies a corruption transformation for the per-row manifest.
type Rule string

const (
	RuleIDSpaces       Rule = "ride_id_spaces"
	RuleIDLowercase    Rule = "ride_id_lowercase"
	RuleTypeMisspell   Rule = "rideable_type_misspell"
	RuleTimeFormat     Rule = "timestamp_format"
	RuleTimeInverted   Rule = "timestamp_inverted"
	RuleNameVariant    Rule = "station_name_variant"
	RuleIDVariant      Rule = "station_id_variant"
	RuleCoordDrift     Rule = "coordinate_drift"
	RuleMemberMisspell Rule = "member_casual_misspell"
	RuleEmptied        Rule = "emptied"
)

// Confusable replacements for the categorical fields.
var (
	rideableConfusables = map[string][]string{
		model.RideableClassic:  {"class_bike", "classic_bik", "clasic_bike", "classic bike"},
		model.RideableElectric: {"electrc_bike", "electric bike", "eclectic_bike", "elektric_bike"},
	}
	memberConfusables = map[string][]string{
		model.MemberTypeMember: {"Member", "MEMBER", "membr", "Members"},
		model.MemberTypeCasual: {"Casual", "CASUAL", "causual", "Casuals"},
	}
)

var interiorSpace = regexp.MustCompile(`\s+`)

// stationVariants caches the corrupted spellings, ids, and coordinates
// generated for one station, so the same station is corrupted consistently
// across the whole table.
type stationVariants struct {
	names  []string
	ids    []string
	coords [][2]float64
}

// Generator applies corruption rules to ride records.
type Generator struct {
	rate     float64
	maxEmpty float64
	rng      *rand.Rand
	title    cases.Caser
	stations map[string]*stationVariants
}

// NewGenerator creates a Generator with the given per-field error rate and
// per-column empty-value cap. The rand.Rand is the sole randomness source;
// seed it for reproducible runs.
func NewGenerator(rate, maxEmpty float64, rng *rand.Rand) *Generator {
	return &Generator{
		rate:     rate,
		maxEmpty: maxEmpty,
		rng:      rng,
		title:    cases.Title(language.English),
		stations: make(map[string]*stationVariants),
	}
}

// fire performs one Bernoulli trial against the configured error rate.
func (g *Generator) fire() bool {
	return g.rng.Float64() < g.rate
}

// CorruptRideID chunks the id into space-separated pairs and/or randomly
// lowercases characters. Returns the corrupted value and the fired rules.
func (g *Generator) CorruptRideID(v string) (string, []Rule) {
	if v == "" {
		return v, nil
	}
	var fired []Rule
	if g.fire() {
		var parts []string
		for i := 0; i < len(v); i += 2 {
			end := i + 2
			if end > len(v) {
				end = len(v)
			}
			parts = append(parts, v[i:end])
		}
		v = strings.Join(parts, " ")
		fired = append(fired, RuleIDSpaces)
	}
	if g.fire() {
		var b strings.Builder
		for _, c := range v {
			if g.rng.Float64() < 0.3 {
				b.WriteString(strings.ToLower(string(c)))
			} else {
				b.WriteRune(c)
			}
		}
		v = b.String()
		fired = append(fired, RuleIDLowercase)
	}
	return v, fired
}

// CorruptRideableType swaps a valid rideable_type for a near-miss spelling.
func (g *Generator) CorruptRideableType(v string) (string, []Rule) {
	if v == "" || !g.fire() {
		return v, nil
	}
	for correct, variants := range rideableConfusables {
		if strings.Contains(v, correct) {
			return variants[g.rng.Intn(len(variants))], []Rule{RuleTypeMisspell}
		}
	}
	return v, nil
}

// CorruptMemberType swaps a valid member_casual for a near-miss spelling.
func (g *Generator) CorruptMemberType(v string) (string, []Rule) {
	if v == "" || !g.fire() {
		return v, nil
	}
	for correct, variants := range memberConfusables {
		if strings.EqualFold(correct, v) {
			return variants[g.rng.Intn(len(variants))], []Rule{RuleMemberMisspell}
		}
	}
	return v, nil
}

// CorruptTimestamps re-renders both timestamps in an alternate layout and/or
// moves ended_at before started_at.
func (g *Generator) CorruptTimestamps(start, end string) (string, string, []Rule) {
	if start == "" || end == "" {
		return start, end, nil
	}
	var fired []Rule
	if g.fire() {
		start = g.formatVariant(start)
		end = g.formatVariant(end)
		fired = append(fired, RuleTimeFormat)
	}
	if g.fire() {
		if t, err := time.Parse(model.TimeLayout, start); err == nil {
			end = t.Add(-g.randomGap()).Format(model.TimeLayout)
			fired = append(fired, RuleTimeInverted)
		}
	}
	return start, end, fired
}

// formatVariant re-renders a canonical timestamp in one of the alternate but
// unambiguous layouts seen in messy exports.
func (g *Generator) formatVariant(v string) string {
	t, err := time.Parse(model.TimeLayout, v)
	if err != nil {
		return v
	}
	layouts := []string{
		"2006/01/02 15:04:05",
		"20060102 15:04:05",
		"2006-01-02 150405",
		"2006-01-02-15-04-05",
	}
	return t.Format(layouts[g.rng.Intn(len(layouts))])
}

func (g *Generator) randomGap() time.Duration {
	switch g.rng.Intn(3) {
	case 0:
		return time.Duration(1+g.rng.Intn(24)) * time.Hour
	case 1:
		return time.Duration(1+g.rng.Intn(7)) * 24 * time.Hour
	default:
		return time.Duration(1+g.rng.Intn(4)) * 7 * 24 * time.Hour
	}
}

// CorruptStation perturbs a station name and id using the cached variant
// table for that station. Name and id rules are returned separately so the
// manifest can attribute each to its own column.
func (g *Generator) CorruptStation(name, id string) (string, string, []Rule, []Rule) {
	if name == "" || id == "" {
		return name, id, nil, nil
	}
	sv := g.variantsFor(name, id, "", "")
	var nameFired, idFired []Rule
	if g.fire() {
		name = sv.names[g.rng.Intn(len(sv.names))]
		nameFired = append(nameFired, RuleNameVariant)
	}
	if g.fire() {
		id = sv.ids[g.rng.Intn(len(sv.ids))]
		idFired = append(idFired, RuleIDVariant)
	}
	return name, id, nameFired, idFired
}

// CorruptCoordinates replaces a coordinate pair with one of the drifted
// variants cached for the station, keeping drift consistent per station.
func (g *Generator) CorruptCoordinates(lat, lng, stationName, stationID string) (string, string, []Rule) {
	if stationName == "" || lat == "" || lng == "" {
		return lat, lng, nil
	}
	if !g.fire() {
		return lat, lng, nil
	}
	sv := g.variantsFor(stationName, stationID, lat, lng)
	if len(sv.coords) == 0 {
		return lat, lng, nil
	}
	c := sv.coords[g.rng.Intn(len(sv.coords))]
	return formatCoord(c[0]), formatCoord(c[1]), []Rule{RuleCoordDrift}
}

// variantsFor returns the cached variant table for a station, building it on
// first sight.
func (g *Generator) variantsFor(name, id, lat, lng string) *stationVariants {
	if sv, ok := g.stations[name]; ok {
		// Name-only lookups cache no coordinates; fill them in once a
		// coordinate pair for this station is seen.
		if len(sv.coords) == 0 && lat != "" {
			sv.coords = g.driftedCoords(lat, lng)
		}
		return sv
	}
	sv := &stationVariants{
		names: []string{
			name,
			g.title.String(name),
			strings.ToUpper(name),
			strings.ReplaceAll(name, "&", "and"),
			interiorSpace.ReplaceAllString(name, "  "),
		},
	}

	if n, err := strconv.Atoi(strings.TrimSpace(id)); err == nil {
		sv.ids = []string{
			id,
			fmt.Sprintf("%.1f", float64(n)+0.1),
			strconv.Itoa(n + 1),
		}
	} else {
		sv.ids = []string{id}
	}

	sv.coords = g.driftedCoords(lat, lng)

	g.stations[name] = sv
	return sv
}

// driftedCoords builds 3-4 coordinate variants within ±1.0 degrees of the
// base pair. Returns nil when the base pair does not parse.
func (g *Generator) driftedCoords(lat, lng string) [][2]float64 {
	baseLat, err := strconv.ParseFloat(lat, 64)
	if err != nil {
		return nil
	}
	baseLng, err := strconv.ParseFloat(lng, 64)
	if err != nil {
		return nil
	}
	var coords [][2]float64
	n := 3 + g.rng.Intn(2)
	for i := 0; i < n; i++ {
		coords = append(coords, [2]float64{
			baseLat + (g.rng.Float64()*2 - 1),
			baseLng + (g.rng.Float64()*2 - 1),
		})
	}
	return coords
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
