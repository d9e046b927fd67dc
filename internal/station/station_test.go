package station

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mobilitylabs/ridewash/internal/model"
)

func refTable() []model.RideRecord {
	return []model.RideRecord{
		{
			StartStationName: "Florida Ave & R St NW", StartStationID: "31503",
			StartLat: "38.9126", StartLng: "-77.0135",
			EndStationName: "11th & M St NW", EndStationID: "31266",
			EndLat: "38.9055785", EndLng: "-77.027313",
		},
		{
			StartStationName: "Florida Ave & R St NW", StartStationID: "31503",
			StartLat: "38.9126", StartLng: "-77.0135",
			EndStationName: "18th & L St NW", EndStationID: "31224",
			EndLat: "38.903741", EndLng: "-77.042452",
		},
		{
			// Minority sighting with a different id; majority wins.
			StartStationName: "Florida Ave & R St NW", StartStationID: "99999",
			StartLat: "38.9126", StartLng: "-77.0135",
			EndStationName: "11th & M St NW", EndStationID: "31266",
			EndLat: "38.9055785", EndLng: "-77.027313",
		},
	}
}

func TestBuildDirectory(t *testing.T) {
	t.Parallel()

	d := BuildDirectory(refTable())
	assert.Equal(t, 3, d.Len())

	s := d.Match("Florida Ave & R St NW", "", "", "")
	require.NotNil(t, s)
	assert.Equal(t, "31503", s.ID)
	assert.InDelta(t, 38.9126, s.Lat, 1e-9)
	assert.InDelta(t, -77.0135, s.Lng, 1e-9)
}

func TestDirectory_Match(t *testing.T) {
	t.Parallel()

	d := BuildDirectory(refTable())

	t.Run("name is case insensitive", func(t *testing.T) {
		t.Parallel()
		s := d.Match("11TH & M ST NW", "", "", "")
		require.NotNil(t, s)
		assert.Equal(t, "31266", s.ID)
	})

	t.Run("id with spurious decimal", func(t *testing.T) {
		t.Parallel()
		s := d.Match("", "31224.0", "", "")
		require.NotNil(t, s)
		assert.Equal(t, "18th & L St NW", s.Name)
	})

	t.Run("coordinates within tolerance", func(t *testing.T) {
		t.Parallel()
		s := d.Match("", "", "38.90557", "-77.02731")
		require.NotNil(t, s)
		assert.Equal(t, "11th & M St NW", s.Name)
	})

	t.Run("coordinates outside tolerance", func(t *testing.T) {
		t.Parallel()
		assert.Nil(t, d.Match("", "", "39.9", "-77.0"))
	})

	t.Run("nothing matches", func(t *testing.T) {
		t.Parallel()
		assert.Nil(t, d.Match("Unknown Station", "00000", "", ""))
	})
}

func TestNormalizeID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"31024", "31024"},
		{"31024.0", "31024"},
		{"31024.00", "31024"},
		{" 31024.0 ", "31024"},
		{"31024.5", "31024.5"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeID(tt.in), tt.in)
	}
}

func TestBuildDirectory_Empty(t *testing.T) {
	t.Parallel()

	d := BuildDirectory(nil)
	assert.Equal(t, 0, d.Len())
	assert.Nil(t, d.Match("anything", "1", "0", "0"))
}
