// internal/ingest/sampler.go
package ingest

import (
	"context"
	"log"
	"time"

	"basin-gateway/internal/data"
	"basin-gateway/internal/generator"
)

// Sampler periodically produces a synthetic sample from the last
// stored one and pushes it through the pipeline. It stands in for an
// external sensor feed in demo deployments.
type Sampler struct {
	pipeline *Pipeline
	interval time.Duration
}

func NewSampler(pipeline *Pipeline, interval time.Duration) *Sampler {
	return &Sampler{pipeline: pipeline, interval: interval}
}

// Run blocks until ctx is cancelled.
func (s *Sampler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Sampler) tick(ctx context.Context) {
	var last *data.Sample
	latest, err := s.pipeline.Store().GetLatest(ctx)
	if err != nil {
		log.Printf("Sampler: reading latest metric: %v", err)
	} else {
		last = latest
	}

	sample := generator.Next(last)
	if _, err := s.pipeline.Ingest(ctx, sample); err != nil {
		log.Printf("Sampler: ingest failed: %v", err)
	}
}
