package data

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRounded(t *testing.T) {
	s := Sample{
		Timestamp:   time.Date(2026, 3, 1, 12, 30, 45, 987654321, time.UTC),
		Temperature: 24.4567,
		PH:          7.2345,
		Turbidity:   14.05,
		WaterLevel:  78.91,
		Humidity:    52.49,
	}
	r := s.Rounded()

	assert.Equal(t, time.Date(2026, 3, 1, 12, 30, 45, 0, time.UTC), r.Timestamp)
	assert.Equal(t, 24.5, r.Temperature)
	assert.Equal(t, 7.23, r.PH)
	assert.Equal(t, 14.1, r.Turbidity)
	assert.Equal(t, 78.9, r.WaterLevel)
	assert.Equal(t, 52.5, r.Humidity)
}

func TestNormalizeThresholdsSwapsInvertedBounds(t *testing.T) {
	min, max := 30.0, 20.0
	payload := map[string]Threshold{
		"temperature": {Min: &min, Max: &max},
	}

	result := NormalizeThresholds(payload)

	entry := result["temperature"]
	require.NotNil(t, entry.Min)
	require.NotNil(t, entry.Max)
	assert.Equal(t, 20.0, *entry.Min)
	assert.Equal(t, 30.0, *entry.Max)
	assert.Equal(t, "C", entry.Unit)
}

func TestNormalizeThresholdsDropsNonFiniteBounds(t *testing.T) {
	bad := math.NaN()
	good := 22.0
	payload := map[string]Threshold{
		"humidity": {Min: &bad, Max: &good},
	}

	result := NormalizeThresholds(payload)

	entry := result["humidity"]
	assert.Nil(t, entry.Min)
	require.NotNil(t, entry.Max)
	assert.Equal(t, 22.0, *entry.Max)
}

func TestNormalizeThresholdsCoversEveryMetric(t *testing.T) {
	result := NormalizeThresholds(map[string]Threshold{})

	for _, key := range MetricKeys {
		entry, ok := result[key]
		require.True(t, ok, key)
		assert.Nil(t, entry.Min, key)
		assert.Nil(t, entry.Max, key)
		assert.Equal(t, Units[key], entry.Unit, key)
	}
}

func TestDefaultThresholdsTurbidityHasNoMin(t *testing.T) {
	defaults := DefaultThresholds()
	assert.Nil(t, defaults["turbidity"].Min)
	require.NotNil(t, defaults["turbidity"].Max)
	assert.Equal(t, 22.0, *defaults["turbidity"].Max)
}
