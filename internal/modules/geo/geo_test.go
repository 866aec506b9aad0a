package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ridewave/internal/types"
)

func TestDistanceKm_KnownDistances(t *testing.T) {
	tests := []struct {
		name      string
		a, b      types.Point
		wantKm    float64
		tolerance float64
	}{
		{
			name:      "same point",
			a:         types.Point{Lat: 25.033, Lng: 121.565},
			b:         types.Point{Lat: 25.033, Lng: 121.565},
			wantKm:    0,
			tolerance: 0.001,
		},
		{
			name:      "equator, 0.05 degrees of longitude",
			a:         types.Point{Lat: 0, Lng: 0},
			b:         types.Point{Lat: 0, Lng: 0.05},
			wantKm:    5.56,
			tolerance: 0.01,
		},
		{
			name:      "New York to Los Angeles",
			a:         types.Point{Lat: 40.7128, Lng: -74.0060},
			b:         types.Point{Lat: 34.0522, Lng: -118.2437},
			wantKm:    3944,
			tolerance: 50,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DistanceKm(tt.a, tt.b)
			require.NoError(t, err)
			assert.InDelta(t, tt.wantKm, got, tt.tolerance)
		})
	}
}

func TestDistanceKm_Symmetry(t *testing.T) {
	a := types.Point{Lat: 25.0, Lng: 121.0}
	b := types.Point{Lat: 26.0, Lng: 122.0}
	d1, err := DistanceKm(a, b)
	require.NoError(t, err)
	d2, err := DistanceKm(b, a)
	require.NoError(t, err)
	assert.InDelta(t, d1, d2, 0.0001)
}

func TestDistanceKm_RejectsNonFinite(t *testing.T) {
	bad := []types.Point{
		{Lat: math.NaN(), Lng: 0},
		{Lat: 0, Lng: math.Inf(1)},
		{Lat: 91, Lng: 0},
		{Lat: 0, Lng: -181},
	}
	for _, p := range bad {
		_, err := DistanceKm(types.Point{}, p)
		assert.ErrorIs(t, err, ErrInvalidCoordinate, "point %+v", p)
	}
}

func TestWithinRadius(t *testing.T) {
	origin := types.Point{Lat: 0, Lng: 0}
	near := types.Point{Lat: 0, Lng: 0.05}

	assert.True(t, WithinRadius(origin, near, 6000))
	assert.False(t, WithinRadius(origin, near, 5000))
	assert.False(t, WithinRadius(origin, types.Point{Lat: math.NaN()}, 1e9))
}

func TestSortByDistance(t *testing.T) {
	type item struct {
		id   string
		dist float64
	}
	items := []item{{"c", 5}, {"b", 1}, {"a", 1}, {"d", 3}}

	SortByDistance(items, func(i item) float64 { return i.dist }, func(i item) string { return i.id })

	ids := make([]string, len(items))
	for i, it := range items {
		ids[i] = it.id
	}
	assert.Equal(t, []string{"a", "b", "d", "c"}, ids)
}

func TestSortByDistance_Empty(t *testing.T) {
	var items []float64
	SortByDistance(items, func(f float64) float64 { return f }, func(float64) string { return "" })
	assert.Empty(t, items)
}
