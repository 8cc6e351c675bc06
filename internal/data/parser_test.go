package data

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestParseSampleValid(t *testing.T) {
	raw := []byte(`{"temperature": 24.42, "ph": 7.213, "turbidity": 14.0, "water_level": 78.0, "humidity": 52.0}`)

	sample, err := ParseSample(raw, now)
	require.NoError(t, err)

	assert.Equal(t, now, sample.Timestamp)
	assert.Equal(t, 24.4, sample.Temperature)
	assert.Equal(t, 7.21, sample.PH)
}

func TestParseSampleExplicitTimestamp(t *testing.T) {
	raw := []byte(`{"timestamp": "2026-02-28T10:15:30Z", "temperature": 24, "ph": 7.2, "turbidity": 14, "water_level": 78, "humidity": 52}`)

	sample, err := ParseSample(raw, now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 2, 28, 10, 15, 30, 0, time.UTC), sample.Timestamp)
}

func TestParseSampleRejectsInvalidTimestamp(t *testing.T) {
	raw := []byte(`{"timestamp": "yesterday", "temperature": 24, "ph": 7.2, "turbidity": 14, "water_level": 78, "humidity": 52}`)

	_, err := ParseSample(raw, now)
	assert.True(t, errors.Is(err, ErrInvalidTimestamp))
}

func TestParseSampleNamesOffendingFields(t *testing.T) {
	raw := []byte(`{"temperature": "hot", "ph": 7.2, "turbidity": 14, "humidity": 52}`)

	_, err := ParseSample(raw, now)
	var fieldErr *FieldError
	require.True(t, errors.As(err, &fieldErr))
	assert.Equal(t, []string{"temperature", "water_level"}, fieldErr.Fields)
}

func TestParseSampleRejectsNonFiniteValues(t *testing.T) {
	// JSON has no NaN literal, but a null value must not slip through
	// as zero.
	raw := []byte(`{"temperature": null, "ph": 7.2, "turbidity": 14, "water_level": 78, "humidity": 52}`)

	_, err := ParseSample(raw, now)
	var fieldErr *FieldError
	require.True(t, errors.As(err, &fieldErr))
	assert.Equal(t, []string{"temperature"}, fieldErr.Fields)
}

func TestParseSampleRejectsMalformedJSON(t *testing.T) {
	_, err := ParseSample([]byte(`{not json`), now)
	var fieldErr *FieldError
	assert.True(t, errors.As(err, &fieldErr))
}
