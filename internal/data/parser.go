// internal/data/parser.go
package data

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// ErrInvalidTimestamp marks an ingest payload whose timestamp field is
// present but not parseable as RFC 3339.
var ErrInvalidTimestamp = errors.New("invalid timestamp")

// FieldError reports an ingest payload whose metric fields are missing
// or not finite numbers.
type FieldError struct {
	Fields []string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("invalid metric fields: %s", strings.Join(e.Fields, ", "))
}

// ingestPayload mirrors the POST /metrics and MQTT message body. Fields
// are decoded as raw JSON so non-numeric values can be distinguished
// from absent ones.
type ingestPayload struct {
	Timestamp   *json.RawMessage `json:"timestamp"`
	Temperature *json.RawMessage `json:"temperature"`
	PH          *json.RawMessage `json:"ph"`
	Turbidity   *json.RawMessage `json:"turbidity"`
	WaterLevel  *json.RawMessage `json:"water_level"`
	Humidity    *json.RawMessage `json:"humidity"`
}

// ParseSample normalizes an externally supplied payload into a
// canonical Sample. All five metric fields must parse to finite
// numbers; the timestamp defaults to now when absent and is rejected
// when present but malformed. now supplies the default timestamp so
// callers can pin time in tests.
func ParseSample(raw []byte, now time.Time) (Sample, error) {
	var payload ingestPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return Sample{}, &FieldError{Fields: MetricKeys}
	}

	fields := map[string]*json.RawMessage{
		"temperature": payload.Temperature,
		"ph":          payload.PH,
		"turbidity":   payload.Turbidity,
		"water_level": payload.WaterLevel,
		"humidity":    payload.Humidity,
	}

	values := make(map[string]float64, len(fields))
	var bad []string
	for key, rawValue := range fields {
		v, ok := numericValue(rawValue)
		if !ok {
			bad = append(bad, key)
			continue
		}
		values[key] = v
	}
	if len(bad) > 0 {
		sort.Strings(bad)
		return Sample{}, &FieldError{Fields: bad}
	}

	ts := now
	if payload.Timestamp != nil {
		var raw string
		if err := json.Unmarshal(*payload.Timestamp, &raw); err != nil {
			return Sample{}, ErrInvalidTimestamp
		}
		if raw != "" {
			parsed, err := time.Parse(time.RFC3339, raw)
			if err != nil {
				return Sample{}, ErrInvalidTimestamp
			}
			ts = parsed
		}
	}

	sample := Sample{
		Timestamp:   ts,
		Temperature: values["temperature"],
		PH:          values["ph"],
		Turbidity:   values["turbidity"],
		WaterLevel:  values["water_level"],
		Humidity:    values["humidity"],
	}
	return sample.Rounded(), nil
}

func numericValue(raw *json.RawMessage) (float64, bool) {
	if raw == nil {
		return 0, false
	}
	var v float64
	if err := json.Unmarshal(*raw, &v); err != nil {
		return 0, false
	}
	if !isFinite(v) {
		return 0, false
	}
	return v, true
}
