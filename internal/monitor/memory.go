package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/blog-content-api/internal/models"
)

// MemorySink keeps request timestamps for one process
type MemorySink struct {
	mu       sync.Mutex
	window   time.Duration
	now      func() time.Time
	requests []time.Time
	active   int
}

// NewMemorySink creates an in-process sink over the given window
func NewMemorySink(window time.Duration) *MemorySink {
	if window <= 0 {
		window = DefaultWindow
	}
	return &MemorySink{window: window, now: time.Now}
}

// RecordRequest stamps the request into the window and opens a connection
func (s *MemorySink) RecordRequest(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.requests = append(s.requests, now)
	s.prune(now)
	s.active++
	return nil
}

// RequestCompleted closes a connection, never going below zero
func (s *MemorySink) RequestCompleted(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active > 0 {
		s.active--
	}
	return nil
}

// Snapshot computes the figures for requests inside the window
func (s *MemorySink) Snapshot(ctx context.Context) (*models.NetworkSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.prune(now)
	return Compute(len(s.requests), s.active, now), nil
}

// prune drops timestamps older than the window; callers hold mu
func (s *MemorySink) prune(now time.Time) {
	cutoff := now.Add(-s.window)
	i := 0
	for i < len(s.requests) && !s.requests[i].After(cutoff) {
		i++
	}
	if i > 0 {
		s.requests = append(s.requests[:0], s.requests[i:]...)
	}
}
