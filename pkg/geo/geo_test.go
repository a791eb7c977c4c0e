package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHaversine(t *testing.T) {
	t.Run("zero for identical points", func(t *testing.T) {
		points := []Point{{0, 0}, {41.9, 2.8}, {-33.86, 151.2}, {89.9, -179.9}}
		for _, p := range points {
			assert.Equal(t, 0.0, Haversine(p, p), "point %s", p)
		}
	})

	t.Run("symmetric", func(t *testing.T) {
		a := Point{Lat: 41.90, Lon: 2.80}
		b := Point{Lat: 48.85, Lon: 2.35}
		assert.InDelta(t, Haversine(a, b), Haversine(b, a), 1e-9)
	})

	t.Run("pair beyond 50 km and within 150 km", func(t *testing.T) {
		event := Point{Lat: 41.90, Lon: 2.80}
		user := Point{Lat: 41.00, Lon: 2.00}
		assert.InDelta(t, 120.25, Haversine(user, event), 0.01)
		assert.False(t, Within(user, event, 50))
		assert.True(t, Within(user, event, 150))
	})

	t.Run("one degree of latitude", func(t *testing.T) {
		assert.InDelta(t, 111.19, Haversine(Point{0, 0}, Point{1, 0}), 0.01)
	})
}

func TestPointValidate(t *testing.T) {
	testCases := []struct {
		name    string
		point   Point
		wantErr bool
	}{
		{"origin", Point{0, 0}, false},
		{"north pole", Point{90, 0}, false},
		{"latitude too high", Point{90.1, 0}, true},
		{"longitude too low", Point{0, -180.5}, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.point.Validate()
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestParse(t *testing.T) {
	p, err := Parse("41.9,2.8")
	require.NoError(t, err)
	assert.Equal(t, Point{Lat: 41.9, Lon: 2.8}, p)

	_, err = Parse("north")
	assert.Error(t, err)

	_, err = Parse("120,0")
	assert.Error(t, err)
}
