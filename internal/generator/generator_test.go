package generator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"basin-gateway/internal/data"
)

func assertWithinClamps(t *testing.T, s data.Sample) {
	t.Helper()
	for key, rule := range rules {
		value := s.Value(key)
		assert.GreaterOrEqual(t, value, rule.clampMin, key)
		assert.LessOrEqual(t, value, rule.clampMax, key)
	}
}

func TestNextStaysWithinClampRanges(t *testing.T) {
	var last *data.Sample
	for i := 0; i < 500; i++ {
		s := Next(last)
		assertWithinClamps(t, s)
		last = &s
	}
}

func TestNextClampsFromBoundaryPreviousValues(t *testing.T) {
	atMax := data.Sample{Temperature: 30.0, PH: 8.2, Turbidity: 35.0, WaterLevel: 95.0, Humidity: 80.0}
	atMin := data.Sample{Temperature: 20.0, PH: 6.5, Turbidity: 6.0, WaterLevel: 40.0, Humidity: 30.0}

	for i := 0; i < 100; i++ {
		assertWithinClamps(t, Next(&atMax))
		assertWithinClamps(t, Next(&atMin))
	}
}

func TestNextTimestampSecondPrecisionUTC(t *testing.T) {
	s := Next(nil)
	assert.Equal(t, time.UTC, s.Timestamp.Location())
	assert.Zero(t, s.Timestamp.Nanosecond())
}

func TestSeedHistory(t *testing.T) {
	items := SeedHistory()
	require.Len(t, items, 12)

	for i := 1; i < len(items); i++ {
		assert.True(t, items[i].Timestamp.After(items[i-1].Timestamp), "timestamps must ascend")
		assert.Equal(t, 10*time.Minute, items[i].Timestamp.Sub(items[i-1].Timestamp))
	}
	for _, s := range items {
		assertWithinClamps(t, s)
	}
}
