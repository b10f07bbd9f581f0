package domain

import (
	"context"
	"errors"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// box builds a single rectangular polygon in lon/lat order.
func box(minLon, minLat, maxLon, maxLat float64) orb.MultiPolygon {
	return orb.MultiPolygon{{{
		{minLon, minLat}, {maxLon, minLat}, {maxLon, maxLat}, {minLon, maxLat}, {minLon, minLat},
	}}}
}

// testRegions returns simplified states. Arizona and Nevada share the
// border at longitude -115 between latitudes 35 and 37.
func testRegions(t *testing.T) *RegionSet {
	t.Helper()
	set, err := NewRegionSet([]Region{
		{Name: "Nevada", PostalCode: "NV", Geometry: box(-120, 35, -115, 42)},
		{Name: "Arizona", PostalCode: "AZ", Geometry: box(-115, 31, -109, 37)},
		{Name: "California", PostalCode: "CA", Geometry: box(-124, 32, -120, 42)},
	})
	require.NoError(t, err)
	return set
}

func TestNewRegionSet(t *testing.T) {
	set := testRegions(t)

	assert.Equal(t, 3, set.Len())
	regions := set.Regions()
	require.Len(t, regions, 3)
	assert.Equal(t, "Arizona", regions[0].Name)
	assert.Equal(t, "California", regions[1].Name)
	assert.Equal(t, "Nevada", regions[2].Name)
}

func TestNewRegionSet_Invalid(t *testing.T) {
	t.Run("duplicate names", func(t *testing.T) {
		_, err := NewRegionSet([]Region{
			{Name: "Nevada", Geometry: box(0, 0, 1, 1)},
			{Name: "Nevada", Geometry: box(2, 2, 3, 3)},
		})
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrDuplicateRegion))
	})

	t.Run("empty name", func(t *testing.T) {
		_, err := NewRegionSet([]Region{{Name: " ", Geometry: box(0, 0, 1, 1)}})
		assert.Error(t, err)
	})

	t.Run("no geometry", func(t *testing.T) {
		_, err := NewRegionSet([]Region{{Name: "Utah"}})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Utah")
	})
}

func TestRegionSet_Locate(t *testing.T) {
	set := testRegions(t)

	tests := []struct {
		name     string
		lat, lon float64
		expected string
		found    bool
	}{
		{"inside nevada", 39.5, -117.0, "Nevada", true},
		{"inside arizona", 33.4, -112.0, "Arizona", true},
		{"inside california", 36.0, -121.5, "California", true},
		{"just east of california", 38.0, -119.99, "Nevada", true},
		{"pacific ocean", 35.0, -130.0, "", false},
		{"north of arizona", 40.0, -110.0, "", false},
		{"shared border goes to first name", 36.0, -115.0, "Arizona", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			name, ok := set.Locate(tt.lat, tt.lon)
			assert.Equal(t, tt.found, ok)
			assert.Equal(t, tt.expected, name)
		})
	}
}

func TestRegionSet_NilIsEmpty(t *testing.T) {
	var set *RegionSet
	assert.Equal(t, 0, set.Len())
	assert.Nil(t, set.Regions())
	_, ok := set.Locate(36, -115)
	assert.False(t, ok)
}

func TestRegionSet_HolesAreExcluded(t *testing.T) {
	donut := orb.MultiPolygon{{
		{{0, 0}, {10, 0}, {10, 10}, {0, 10}, {0, 0}},
		{{4, 4}, {6, 4}, {6, 6}, {4, 6}, {4, 4}},
	}}
	set, err := NewRegionSet([]Region{{Name: "Donut", Geometry: donut}})
	require.NoError(t, err)

	_, ok := set.Locate(5, 5)
	assert.False(t, ok)
	name, ok := set.Locate(2, 2)
	assert.True(t, ok)
	assert.Equal(t, "Donut", name)
}

func TestClassify(t *testing.T) {
	set := testRegions(t)
	dets := []Detection{
		{Lat: 39.5, Lon: -117.0, Date: testDate},
		{Lat: 35.0, Lon: -130.0, Date: testDate},
		{Lat: 36.0, Lon: -115.0, Date: testDate},
	}

	out, err := Classify(context.Background(), dets, set, 4)
	require.NoError(t, err)
	require.Len(t, out, 3)

	assert.Equal(t, "Nevada", out[0].Region)
	assert.Equal(t, GridCell{LatBin: 39.5, LonBin: -117.0}, out[0].Cell)
	assert.False(t, out[1].HasRegion())
	assert.Equal(t, GridCell{LatBin: 35.0, LonBin: -130.0}, out[1].Cell)
	assert.Equal(t, "Arizona", out[2].Region)
	assert.Equal(t, dets[2], out[2].Detection)
}

func TestClassify_NilRegionsStillBins(t *testing.T) {
	out, err := Classify(context.Background(), []Detection{{Lat: 34.05, Lon: -118.25}}, nil, 1)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.False(t, out[0].HasRegion())
	assert.Equal(t, GridCell{LatBin: 34.0, LonBin: -118.5}, out[0].Cell)
}

func TestClassify_Empty(t *testing.T) {
	out, err := Classify(context.Background(), nil, testRegions(t), 4)
	require.NoError(t, err)
	assert.NotNil(t, out)
	assert.Empty(t, out)
}

func TestClassify_ParallelMatchesSequential(t *testing.T) {
	set := testRegions(t)
	dets := syntheticDetections(5000)

	seq, err := Classify(context.Background(), dets, set, 1)
	require.NoError(t, err)
	par, err := Classify(context.Background(), dets, set, 8)
	require.NoError(t, err)

	assert.Equal(t, seq, par)
}

func TestClassify_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Classify(ctx, syntheticDetections(10), testRegions(t), 2)
	assert.ErrorIs(t, err, context.Canceled)
}

// syntheticDetections spreads n points over the western US on two dates.
func syntheticDetections(n int) []Detection {
	dets := make([]Detection, n)
	for i := range dets {
		date := Date("2024-06-01")
		dn := DayNightDay
		if i%2 == 1 {
			date = "2024-06-02"
			dn = DayNightNight
		}
		dets[i] = Detection{
			Lat:        30 + float64(i%130)*0.1,
			Lon:        -126 + float64(i%170)*0.1,
			Date:       date,
			Brightness: 300 + float64(i%60),
			FRP:        float64(i % 10),
			DayNight:   dn,
		}
	}
	return dets
}
