// internal/generator/generator.go
package generator

import (
	"math"
	"math/rand"
	"time"

	"basin-gateway/internal/data"
)

// walkRule bounds one field of the random walk.
type walkRule struct {
	deltaMin, deltaMax float64
	clampMin, clampMax float64
}

var rules = map[string]walkRule{
	"temperature": {-0.4, 0.5, 20.0, 30.0},
	"ph":          {-0.06, 0.06, 6.5, 8.2},
	"turbidity":   {-1.2, 1.4, 6.0, 35.0},
	"water_level": {-1.6, 1.2, 40.0, 95.0},
	"humidity":    {-2.2, 2.0, 30.0, 80.0},
}

// Baseline is the starting point used when no history exists.
var Baseline = data.Sample{
	Temperature: 24.0,
	PH:          7.2,
	Turbidity:   14.0,
	WaterLevel:  78.0,
	Humidity:    52.0,
}

// Next produces a new sample as a bounded random walk from last. A nil
// last starts from the baseline. The timestamp is the generation
// instant in UTC at second precision.
func Next(last *data.Sample) data.Sample {
	base := Baseline
	if last != nil {
		base = *last
	}
	next := data.Sample{
		Timestamp:   time.Now(),
		Temperature: step(base.Temperature, rules["temperature"]),
		PH:          step(base.PH, rules["ph"]),
		Turbidity:   step(base.Turbidity, rules["turbidity"]),
		WaterLevel:  step(base.WaterLevel, rules["water_level"]),
		Humidity:    step(base.Humidity, rules["humidity"]),
	}
	return next.Rounded()
}

func step(value float64, r walkRule) float64 {
	v := value + r.deltaMin + rand.Float64()*(r.deltaMax-r.deltaMin)
	return clamp(v, r.clampMin, r.clampMax)
}

func clamp(value, min, max float64) float64 {
	return math.Max(min, math.Min(max, value))
}

// SeedHistory returns the sinusoidal 12-sample history written when a
// backend starts with zero rows, spaced 10 minutes apart ending now.
func SeedHistory() []data.Sample {
	now := time.Now()
	items := make([]data.Sample, 0, 12)
	for i := 11; i >= 0; i-- {
		fi := float64(i)
		s := data.Sample{
			Timestamp:   now.Add(-time.Duration(i) * 10 * time.Minute),
			Temperature: 24.2 + math.Sin(fi/3)*0.8,
			PH:          7.2 + math.Cos(fi/4)*0.2,
			Turbidity:   14 + math.Sin(fi/2)*3,
			WaterLevel:  78 + math.Cos(fi/5)*4,
			Humidity:    52 + math.Sin(fi/6)*5,
		}
		items = append(items, s.Rounded())
	}
	return items
}
