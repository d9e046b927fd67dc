// Package station builds and queries the station metadata directory used to
// cross-check and fill station fields during repair.
package station

import (
	"math"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/mobilitylabs/ridewash/internal/model"
)

// coordEpsilon is the tolerance for coordinate-based station matching.
const coordEpsilon = 1e-4

// Station is one reference directory entry.
type Station struct {
	Name string  `json:"station_name"`
	ID   string  `json:"station_id"`
	Lat  float64 `json:"lat"`
	Lng  float64 `json:"lng"`
}

// Directory is a reference lookup table of stations keyed by name.
type Directory struct {
	stations []Station
	byName   map[string]*Station
}

// observation is one (id, lat, lng) sighting of a station while building
// the directory.
type observation struct {
	ids  map[string]int
	lats map[float64]int
	lngs map[float64]int
}

// BuildDirectory aggregates start and end station columns of a clean table
// into one directory entry per station name, keeping the most frequent id
// and coordinates seen for each.
func BuildDirectory(recs []model.RideRecord) *Directory {
	obs := make(map[string]*observation)
	order := make([]string, 0)

	record := func(name, id, lat, lng string) {
		if name == "" {
			return
		}
		o, ok := obs[name]
		if !ok {
			o = &observation{
				ids:  make(map[string]int),
				lats: make(map[float64]int),
				lngs: make(map[float64]int),
			}
			obs[name] = o
			order = append(order, name)
		}
		if id != "" {
			o.ids[id]++
		}
		if f, err := strconv.ParseFloat(lat, 64); err == nil {
			o.lats[f]++
		}
		if f, err := strconv.ParseFloat(lng, 64); err == nil {
			o.lngs[f]++
		}
	}

	for _, r := range recs {
		record(r.StartStationName, r.StartStationID, r.StartLat, r.StartLng)
		record(r.EndStationName, r.EndStationID, r.EndLat, r.EndLng)
	}

	d := &Directory{byName: make(map[string]*Station, len(obs))}
	for _, name := range order {
		o := obs[name]
		s := Station{
			Name: name,
			ID:   mostFrequent(o.ids),
			Lat:  mostFrequentFloat(o.lats),
			Lng:  mostFrequentFloat(o.lngs),
		}
		d.stations = append(d.stations, s)
	}
	for i := range d.stations {
		d.byName[strings.ToLower(d.stations[i].Name)] = &d.stations[i]
	}

	zap.L().Info("built station directory", zap.Int("stations", len(d.stations)))
	return d
}

// Len returns the number of directory entries.
func (d *Directory) Len() int {
	return len(d.stations)
}

// Match looks up a station by exact lowercased name, by id with any spurious
// decimal stripped, or by coordinates within the matching tolerance. Returns
// nil when nothing matches.
func (d *Directory) Match(name, id, lat, lng string) *Station {
	if n := strings.ToLower(strings.TrimSpace(name)); n != "" {
		if s, ok := d.byName[n]; ok {
			return s
		}
	}

	if wantID := NormalizeID(id); wantID != "" {
		for i := range d.stations {
			if NormalizeID(d.stations[i].ID) == wantID {
				return &d.stations[i]
			}
		}
	}

	fLat, errLat := strconv.ParseFloat(lat, 64)
	fLng, errLng := strconv.ParseFloat(lng, 64)
	if errLat == nil && errLng == nil {
		for i := range d.stations {
			s := &d.stations[i]
			if math.Abs(fLat-s.Lat) < coordEpsilon && math.Abs(fLng-s.Lng) < coordEpsilon {
				return s
			}
		}
	}

	return nil
}

// NormalizeID strips surrounding whitespace and a trailing ".0" decimal
// remainder from a station id rendered as text.
func NormalizeID(id string) string {
	id = strings.TrimSpace(id)
	if i := strings.Index(id, "."); i >= 0 {
		frac := id[i+1:]
		if strings.Trim(frac, "0") == "" {
			id = id[:i]
		}
	}
	return id
}

func mostFrequent(counts map[string]int) string {
	best, bestN := "", 0
	for v, n := range counts {
		if n > bestN || (n == bestN && v < best) {
			best, bestN = v, n
		}
	}
	return best
}

func mostFrequentFloat(counts map[float64]int) float64 {
	best, bestN := 0.0, 0
	for v, n := range counts {
		if n > bestN || (n == bestN && v < best) {
			best, bestN = v, n
		}
	}
	return best
}
