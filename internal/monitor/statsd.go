package monitor

import (
	"context"

	"github.com/DataDog/datadog-go/statsd"
	"github.com/blog-content-api/internal/models"
	"github.com/rs/zerolog"
)

// Metric names forwarded to DogStatsD
const (
	MetricRequests   = "blog.network.requests"
	MetricLatency    = "blog.network.latency"
	MetricThroughput = "blog.network.throughput"
	MetricActive     = "blog.network.active_connections"
)

// StatsdClient is the part of the DogStatsD client the sink uses
type StatsdClient interface {
	Incr(name string, tags []string, rate float64) error
	Gauge(name string, value float64, tags []string, rate float64) error
}

var _ StatsdClient = (*statsd.Client)(nil)

// StatsdSink forwards activity to a DogStatsD agent and delegates storage to
// an inner sink. Agent errors are logged and never fail the request.
type StatsdSink struct {
	inner  Sink
	client StatsdClient
	tags   []string
	log    zerolog.Logger
}

// NewDogStatsdClient connects to the agent at addr
func NewDogStatsdClient(addr string) (*statsd.Client, error) {
	return statsd.New(addr)
}

// NewStatsdSink wraps inner
func NewStatsdSink(inner Sink, client StatsdClient, tags []string, log zerolog.Logger) *StatsdSink {
	return &StatsdSink{
		inner:  inner,
		client: client,
		tags:   tags,
		log:    log.With().Str("component", "statsd_sink").Logger(),
	}
}

func (s *StatsdSink) RecordRequest(ctx context.Context) error {
	if err := s.client.Incr(MetricRequests, s.tags, 1); err != nil {
		s.log.Debug().Err(err).Msg("cannot report request")
	}
	return s.inner.RecordRequest(ctx)
}

func (s *StatsdSink) RequestCompleted(ctx context.Context) error {
	return s.inner.RequestCompleted(ctx)
}

func (s *StatsdSink) Snapshot(ctx context.Context) (*models.NetworkSnapshot, error) {
	snap, err := s.inner.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	gauges := map[string]float64{
		MetricLatency:    snap.Latency,
		MetricThroughput: snap.Throughput,
		MetricActive:     float64(snap.ActiveConnections),
	}
	for name, value := range gauges {
		if err := s.client.Gauge(name, value, s.tags, 1); err != nil {
			s.log.Debug().Err(err).Str("metric", name).Msg("cannot report gauge")
		}
	}
	return snap, nil
}
