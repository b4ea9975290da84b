package models

import (
	"time"
)

// NetworkSnapshot is a simulated traffic reading. The numbers come from a request
// counter and a fixed formula; they are not real telemetry.
type NetworkSnapshot struct {
	ID                string    `json:"id,omitempty" db:"id"`
	Latency           float64   `json:"latency" db:"latency"`
	Throughput        float64   `json:"throughput" db:"throughput"`
	ActiveConnections int       `json:"active_connections" db:"active_connections"`
	Timestamp         time.Time `json:"timestamp" db:"timestamp"`
}

// StatsHistoryLimit is how many samples the history endpoint returns
const StatsHistoryLimit = 100
