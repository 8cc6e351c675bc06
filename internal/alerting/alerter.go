// internal/alerting/alerter.go
package alerting

import (
	"basin-gateway/internal/data"
	"basin-gateway/internal/state"
)

// maxAlerts bounds the persisted alert history; oldest entries drop
// first.
const maxAlerts = 200

// Log is the persisted, bounded alert history.
type Log struct {
	file *state.File[[]data.Alert]
}

func NewLog(path string) *Log {
	return &Log{file: state.NewFile[[]data.Alert](path)}
}

// Append merges newly emitted alerts into the history and trims it to
// the most recent maxAlerts entries.
func (l *Log) Append(alerts []data.Alert) error {
	if len(alerts) == 0 {
		return nil
	}
	_, err := l.file.Update(nil, func(existing []data.Alert) []data.Alert {
		merged := append(existing, alerts...)
		if len(merged) > maxAlerts {
			merged = merged[len(merged)-maxAlerts:]
		}
		return merged
	})
	return err
}

// Recent returns up to limit most recent alerts in insertion order.
// limit <= 0 returns everything.
func (l *Log) Recent(limit int) []data.Alert {
	alerts := l.file.Load(nil)
	if limit > 0 && len(alerts) > limit {
		alerts = alerts[len(alerts)-limit:]
	}
	return alerts
}
