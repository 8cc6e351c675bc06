// internal/ingest/pipeline.go
package ingest

import (
	"context"
	"sync"
	"time"

	"basin-gateway/internal/alerting"
	"basin-gateway/internal/data"
	"basin-gateway/internal/state"
	"basin-gateway/internal/storage"
	"basin-gateway/internal/websocket"
)

// Pipeline is the single serialized ingestion path. The HTTP ingest
// endpoint, the MQTT feed and the sampler loop all publish through
// it, so store appends and alert evaluation never interleave.
type Pipeline struct {
	mu         sync.Mutex
	store      storage.Store
	thresholds *state.File[data.Thresholds]
	alerts     *alerting.Log
	hub        *websocket.Hub
}

func NewPipeline(store storage.Store, thresholds *state.File[data.Thresholds], alerts *alerting.Log, hub *websocket.Hub) *Pipeline {
	return &Pipeline{
		store:      store,
		thresholds: thresholds,
		alerts:     alerts,
		hub:        hub,
	}
}

// Ingest persists a normalized sample, evaluates it against the
// current thresholds and appends any raised alerts. Returns the alerts
// emitted for this sample.
func (p *Pipeline) Ingest(ctx context.Context, sample data.Sample) ([]data.Alert, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.store.AddMetric(ctx, sample); err != nil {
		return nil, err
	}

	thresholds := p.thresholds.Load(data.DefaultThresholds())
	existing := p.alerts.Recent(0)
	emitted := alerting.Evaluate(sample, thresholds, existing, time.Now().UTC().Truncate(time.Second))
	if err := p.alerts.Append(emitted); err != nil {
		return nil, err
	}

	if p.hub != nil {
		p.hub.BroadcastSample(sample)
		p.hub.BroadcastAlerts(emitted)
	}
	return emitted, nil
}

// Parse normalizes an external payload into a canonical sample. Both
// ingest ports use it so HTTP and bus messages validate identically.
func (p *Pipeline) Parse(raw []byte) (data.Sample, error) {
	return data.ParseSample(raw, time.Now())
}

// Store exposes the backing store for read-only handlers.
func (p *Pipeline) Store() storage.Store { return p.store }
