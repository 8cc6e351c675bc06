// internal/alerting/engine.go
package alerting

import (
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"basin-gateway/internal/data"
)

// Cooldown is the minimum gap between two alerts of the same type.
const Cooldown = 300 * time.Second

// criticalMargin is the relative excursion beyond a bound that
// escalates an alert from warning to critical. The margin is
// exclusive: a value exactly at min*0.9 or max*1.1 stays warning.
const criticalMargin = 0.1

var alertSeq atomic.Uint64

// Evaluate checks one sample against the configured thresholds and
// returns the alerts to append. existing is consulted for the cooldown
// window; now stamps every emitted alert. Pure apart from ID
// generation.
func Evaluate(sample data.Sample, thresholds data.Thresholds, existing []data.Alert, now time.Time) []data.Alert {
	var emitted []data.Alert

	for _, key := range data.MetricKeys {
		entry, ok := thresholds[key]
		if !ok {
			continue
		}
		value := sample.Value(key)

		out := false
		direction := ""
		if entry.Min != nil && value < *entry.Min {
			out = true
			direction = "low"
		}
		if entry.Max != nil && value > *entry.Max {
			out = true
			direction = "high"
		}
		if !out {
			continue
		}

		if last := lastOfType(existing, key); last != nil {
			if now.Sub(last.Timestamp) < Cooldown {
				continue
			}
		}

		severity := "warning"
		if (entry.Min != nil && value < *entry.Min*(1-criticalMargin)) ||
			(entry.Max != nil && value > *entry.Max*(1+criticalMargin)) {
			severity = "critical"
		}

		emitted = append(emitted, data.Alert{
			ID:        newID(now),
			Timestamp: now,
			Type:      key,
			Severity:  severity,
			Message:   fmt.Sprintf("%s is %s (%s)", data.Labels[key], direction, formatValue(value)),
		})
	}
	return emitted
}

func lastOfType(alerts []data.Alert, alertType string) *data.Alert {
	for i := len(alerts) - 1; i >= 0; i-- {
		if alerts[i].Type == alertType {
			return &alerts[i]
		}
	}
	return nil
}

func newID(now time.Time) string {
	return fmt.Sprintf("alert_%d_%d", now.UnixMilli(), alertSeq.Add(1))
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
