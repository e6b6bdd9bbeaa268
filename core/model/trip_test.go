package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTripFeaturesVectorOrder(t *testing.T) {
	f := TripFeatures{DistanceKm: 1, AvgSpeed: 2, TrafficLevel: 3, BatteryLevel: 4, FuelLevel: 5}
	assert.Equal(t, Vector{1, 2, 3, 4, 5}, f.Vector())
	assert.Equal(t, f, FeaturesFromVector(f.Vector()))

	p := f.Payload()
	for i, name := range FeatureNames {
		assert.Equal(t, f.Vector()[i], p[name], name)
	}
}

func TestVectorSliceIsCopy(t *testing.T) {
	v := Vector{1, 2, 3, 4, 5}
	s := v.Slice()
	s[0] = 42
	assert.Equal(t, 1.0, v[0])
}

func TestParseTrafficLevel(t *testing.T) {
	for _, lvl := range TrafficLevels {
		got, err := ParseTrafficLevel(lvl.String())
		require.NoError(t, err)
		assert.Equal(t, lvl, got)
	}
	got, err := ParseTrafficLevel(" medium ")
	require.NoError(t, err)
	assert.Equal(t, TrafficMedium, got)

	_, err = ParseTrafficLevel("gridlock")
	assert.Error(t, err)
}

func TestTrafficEncodingIsMonotonic(t *testing.T) {
	prev := -1.0
	for _, lvl := range TrafficLevels {
		v, err := lvl.Encode()
		require.NoError(t, err)
		assert.Greater(t, v, prev)
		prev = v
	}
	_, err := TrafficLevel(9).Encode()
	assert.Error(t, err)

	table := TrafficEncodingTable()
	assert.Equal(t, map[string]float64{"Low": 0.2, "Medium": 0.5, "High": 0.8}, table)
}
