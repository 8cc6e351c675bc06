package alerting

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"basin-gateway/internal/data"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func ptr(v float64) *float64 { return &v }

func thresholds() data.Thresholds {
	return data.Thresholds{
		"temperature": {Min: ptr(22.0), Max: ptr(28.0), Unit: "C"},
		"ph":          {Min: ptr(6.8), Max: ptr(7.8)},
		"turbidity":   {Max: ptr(22.0), Unit: "NTU"},
	}
}

func sampleWith(temp float64) data.Sample {
	return data.Sample{Timestamp: t0, Temperature: temp, PH: 7.2, Turbidity: 14.0, WaterLevel: 78.0, Humidity: 52.0}
}

func TestEvaluateInRangeEmitsNothing(t *testing.T) {
	alerts := Evaluate(sampleWith(24.0), thresholds(), nil, t0)
	assert.Empty(t, alerts)
}

func TestEvaluateLowBreachIsWarning(t *testing.T) {
	alerts := Evaluate(sampleWith(21.0), thresholds(), nil, t0)
	require.Len(t, alerts, 1)
	assert.Equal(t, "temperature", alerts[0].Type)
	assert.Equal(t, "warning", alerts[0].Severity)
	assert.Equal(t, "Temperature is low (21)", alerts[0].Message)
	assert.Equal(t, t0, alerts[0].Timestamp)
}

func TestEvaluateSeverityMarginIsExclusive(t *testing.T) {
	// max 28.0: critical requires value > 30.8 strictly.
	atMargin := Evaluate(sampleWith(30.8), thresholds(), nil, t0)
	require.Len(t, atMargin, 1)
	assert.Equal(t, "warning", atMargin[0].Severity)

	beyond := Evaluate(sampleWith(30.9), thresholds(), nil, t0)
	require.Len(t, beyond, 1)
	assert.Equal(t, "critical", beyond[0].Severity)

	// min 22.0: critical requires value < 19.8 strictly.
	atLowMargin := Evaluate(sampleWith(19.8), thresholds(), nil, t0)
	require.Len(t, atLowMargin, 1)
	assert.Equal(t, "warning", atLowMargin[0].Severity)

	belowLow := Evaluate(sampleWith(19.7), thresholds(), nil, t0)
	require.Len(t, belowLow, 1)
	assert.Equal(t, "critical", belowLow[0].Severity)
}

func TestEvaluateCooldownSuppressesRepeats(t *testing.T) {
	first := Evaluate(sampleWith(21.0), thresholds(), nil, t0)
	require.Len(t, first, 1)

	// 299 seconds later: still inside the 300 s window.
	inside := Evaluate(sampleWith(21.0), thresholds(), first, t0.Add(299*time.Second))
	assert.Empty(t, inside)

	// Exactly 300 seconds later the window has elapsed.
	outside := Evaluate(sampleWith(21.0), thresholds(), first, t0.Add(300*time.Second))
	assert.Len(t, outside, 1)
}

func TestEvaluateCooldownIsPerType(t *testing.T) {
	existing := Evaluate(sampleWith(21.0), thresholds(), nil, t0)
	require.Len(t, existing, 1)

	// Temperature is cooling down but a pH breach is new.
	s := sampleWith(21.0)
	s.PH = 6.0
	alerts := Evaluate(s, thresholds(), existing, t0.Add(10*time.Second))
	require.Len(t, alerts, 1)
	assert.Equal(t, "ph", alerts[0].Type)
}

func TestEvaluateUnboundedSideNeverAlerts(t *testing.T) {
	// Turbidity has no configured min: a very low value stays silent.
	s := sampleWith(24.0)
	s.Turbidity = 0.1
	alerts := Evaluate(s, thresholds(), nil, t0)
	assert.Empty(t, alerts)
}

func TestEvaluateSharedTimestampAndUniqueIDs(t *testing.T) {
	s := sampleWith(21.0)
	s.PH = 6.0
	alerts := Evaluate(s, thresholds(), nil, t0)
	require.Len(t, alerts, 2)
	assert.Equal(t, alerts[0].Timestamp, alerts[1].Timestamp)
	assert.NotEqual(t, alerts[0].ID, alerts[1].ID)
}

func TestLogAppendTrimsToBound(t *testing.T) {
	log := NewLog(filepath.Join(t.TempDir(), "alerts.json"))

	batch := make([]data.Alert, 0, 250)
	for i := 0; i < 250; i++ {
		batch = append(batch, data.Alert{ID: fmt.Sprintf("alert_%d", i), Type: "temperature", Timestamp: t0})
	}
	require.NoError(t, log.Append(batch))

	assert.Len(t, log.Recent(0), 200)
	assert.Len(t, log.Recent(50), 50)
}

func TestLogRecentReturnsNewestEntries(t *testing.T) {
	log := NewLog(filepath.Join(t.TempDir(), "alerts.json"))
	require.NoError(t, log.Append([]data.Alert{
		{ID: "a", Type: "temperature", Timestamp: t0},
		{ID: "b", Type: "ph", Timestamp: t0.Add(time.Minute)},
	}))

	recent := log.Recent(1)
	require.Len(t, recent, 1)
	assert.Equal(t, "b", recent[0].ID)
}
