package repository

import (
	"context"

	"github.com/blog-content-api/internal/database"
	"github.com/blog-content-api/internal/models"
	"github.com/google/uuid"
)

// statsRepo is the concrete implementation of StatsRepository
type statsRepo struct {
	db *database.DB
}

// NewStatsRepo creates a new network stats repository
func NewStatsRepo(db *database.DB) StatsRepository {
	return &statsRepo{db: db}
}

// Insert stores a sampled snapshot
func (r *statsRepo) Insert(ctx context.Context, snapshot *models.NetworkSnapshot) error {
	if snapshot.ID == "" {
		snapshot.ID = uuid.New().String()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO network_stats (id, timestamp, latency, throughput, active_connections)
		VALUES ($1, $2, $3, $4, $5)
	`, snapshot.ID, snapshot.Timestamp, snapshot.Latency, snapshot.Throughput, snapshot.ActiveConnections)
	return err
}

// Recent returns the newest snapshots, newest first
func (r *statsRepo) Recent(ctx context.Context, limit int) ([]*models.NetworkSnapshot, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, timestamp, latency, throughput, active_connections
		FROM network_stats ORDER BY timestamp DESC LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	snapshots := []*models.NetworkSnapshot{}
	for rows.Next() {
		var s models.NetworkSnapshot
		if err := rows.Scan(&s.ID, &s.Timestamp, &s.Latency, &s.Throughput, &s.ActiveConnections); err != nil {
			return nil, err
		}
		snapshots = append(snapshots, &s)
	}
	return snapshots, rows.Err()
}
