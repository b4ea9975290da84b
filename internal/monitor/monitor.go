// Package monitor keeps the simulated network figures shown on the stats
// endpoints. The numbers derive from a request counter and a fixed formula;
// they are not real telemetry.
package monitor

import (
	"context"
	"time"

	"github.com/blog-content-api/internal/models"
)

// DefaultWindow is the span of requests counted towards throughput
const DefaultWindow = time.Minute

const (
	baseLatency   = 50.0
	latencySpread = 20
	busyThreshold = 10
)

// Sink records request activity and reports the current snapshot
type Sink interface {
	// RecordRequest marks the start of a request
	RecordRequest(ctx context.Context) error
	// RequestCompleted marks the end of a request started with RecordRequest
	RequestCompleted(ctx context.Context) error
	// Snapshot reports figures for the current window
	Snapshot(ctx context.Context) (*models.NetworkSnapshot, error)
}

// Compute builds a snapshot from the number of requests in the window and
// the number of requests in flight.
func Compute(requests, active int, at time.Time) *models.NetworkSnapshot {
	latency := baseLatency
	if requests > busyThreshold {
		latency += float64(requests % latencySpread)
	}
	if active < 0 {
		active = 0
	}
	return &models.NetworkSnapshot{
		Latency:           latency,
		Throughput:        float64(requests),
		ActiveConnections: active,
		Timestamp:         at,
	}
}
