// internal/data/models.go
package data

import (
	"math"
	"time"
)

// MetricKeys lists the tracked quantities in evaluation order.
var MetricKeys = []string{"temperature", "ph", "turbidity", "water_level", "humidity"}

// Labels maps metric keys to the display names used in alert messages.
var Labels = map[string]string{
	"temperature": "Temperature",
	"ph":          "pH",
	"turbidity":   "Turbidity",
	"water_level": "Water level",
	"humidity":    "Humidity",
}

// Decimals is the fixed rounding precision per field.
var Decimals = map[string]int{
	"temperature": 1,
	"ph":          2,
	"turbidity":   1,
	"water_level": 1,
	"humidity":    1,
}

// Sample is one timestamped reading of the five tracked quantities.
// Immutable after construction.
type Sample struct {
	Timestamp   time.Time `json:"timestamp"`
	Temperature float64   `json:"temperature"`
	PH          float64   `json:"ph"`
	Turbidity   float64   `json:"turbidity"`
	WaterLevel  float64   `json:"water_level"`
	Humidity    float64   `json:"humidity"`
}

// Value returns the named field of the sample.
func (s Sample) Value(key string) float64 {
	switch key {
	case "temperature":
		return s.Temperature
	case "ph":
		return s.PH
	case "turbidity":
		return s.Turbidity
	case "water_level":
		return s.WaterLevel
	case "humidity":
		return s.Humidity
	}
	return 0
}

// Rounded returns a copy with every field rounded to its fixed
// precision and the timestamp truncated to whole seconds in UTC.
func (s Sample) Rounded() Sample {
	return Sample{
		Timestamp:   s.Timestamp.UTC().Truncate(time.Second),
		Temperature: Round(s.Temperature, Decimals["temperature"]),
		PH:          Round(s.PH, Decimals["ph"]),
		Turbidity:   Round(s.Turbidity, Decimals["turbidity"]),
		WaterLevel:  Round(s.WaterLevel, Decimals["water_level"]),
		Humidity:    Round(s.Humidity, Decimals["humidity"]),
	}
}

// Round rounds value to the given number of decimal digits.
func Round(value float64, digits int) float64 {
	factor := math.Pow(10, float64(digits))
	return math.Round(value*factor) / factor
}

// Threshold is the operator-configured acceptable range for one
// metric. A nil bound means unconstrained on that side.
type Threshold struct {
	Min  *float64 `json:"min,omitempty"`
	Max  *float64 `json:"max,omitempty"`
	Unit string   `json:"unit,omitempty"`
}

// Thresholds maps metric keys to their configured ranges.
type Thresholds map[string]Threshold

// Alert is one threshold breach record. Never mutated after creation.
type Alert struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Type      string    `json:"type"`
	Severity  string    `json:"severity"` // warning or critical
	Message   string    `json:"message"`
}

// ActuatorState is the current setting of one device.
type ActuatorState struct {
	State       string    `json:"state"` // on or off
	Mode        string    `json:"mode"`  // auto or manual
	LastChanged time.Time `json:"lastChanged"`
}

func ptr(v float64) *float64 { return &v }

// DefaultThresholds returns the ranges seeded on first run. Turbidity
// deliberately has no lower bound.
func DefaultThresholds() Thresholds {
	return Thresholds{
		"temperature": {Min: ptr(22.0), Max: ptr(28.0), Unit: "C"},
		"ph":          {Min: ptr(6.8), Max: ptr(7.8)},
		"turbidity":   {Max: ptr(22.0), Unit: "NTU"},
		"water_level": {Min: ptr(60.0), Max: ptr(90.0), Unit: "%"},
		"humidity":    {Min: ptr(35.0), Max: ptr(70.0), Unit: "%"},
	}
}

// Units maps metric keys to the display unit reapplied on every
// threshold update.
var Units = map[string]string{
	"temperature": "C",
	"turbidity":   "NTU",
	"water_level": "%",
	"humidity":    "%",
}

// NormalizeThresholds validates an operator-supplied threshold update:
// non-finite bounds are dropped, inverted ranges are swapped, and the
// fixed display units are reapplied.
func NormalizeThresholds(payload map[string]Threshold) Thresholds {
	result := make(Thresholds, len(MetricKeys))
	for _, key := range MetricKeys {
		entry := payload[key]
		min, max := entry.Min, entry.Max
		if min != nil && !isFinite(*min) {
			min = nil
		}
		if max != nil && !isFinite(*max) {
			max = nil
		}
		if min != nil && max != nil && *min > *max {
			min, max = max, min
		}
		result[key] = Threshold{Min: min, Max: max, Unit: Units[key]}
	}
	return result
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
