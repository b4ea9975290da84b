package service

import (
	"context"
	"sync"
	"time"

	"github.com/blog-content-api/internal/models"
	"github.com/blog-content-api/internal/monitor"
	"github.com/blog-content-api/internal/repository"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// statsService is the concrete implementation of StatsService
type statsService struct {
	statsRepo repository.StatsRepository
	sink      monitor.Sink
	interval  time.Duration
	log       zerolog.Logger
	ctx       context.Context
	cancel    context.CancelFunc
	done      chan struct{}
	running   bool
	mu        sync.Mutex
}

// newStatsService creates a new StatsService sampling every interval
func newStatsService(statsRepo repository.StatsRepository, sink monitor.Sink, interval time.Duration, log zerolog.Logger) *statsService {
	if interval <= 0 {
		interval = time.Minute
	}
	return &statsService{
		statsRepo: statsRepo,
		sink:      sink,
		interval:  interval,
		log:       log.With().Str("service", "stats").Logger(),
	}
}

// StartSampler persists a snapshot every interval until ctx ends or
// StopSampler is called. It blocks; run it in its own goroutine.
func (s *statsService) StartSampler(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	loopCtx, done := s.ctx, s.done
	s.mu.Unlock()

	defer close(done)

	s.log.Info().Dur("interval", s.interval).Msg("Stats sampler started")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-loopCtx.Done():
			s.log.Info().Msg("Stats sampler stopping")
			return
		case <-ticker.C:
			if _, err := s.Sample(loopCtx); err != nil && loopCtx.Err() == nil {
				s.log.Error().Err(err).Msg("Failed to record network sample")
			}
		}
	}
}

// StopSampler stops the sampler and waits for the loop to exit
func (s *statsService) StopSampler() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}

	s.cancel()
	<-s.done
	s.running = false
	s.log.Info().Msg("Stats sampler stopped")
}

// Sample takes the current snapshot and stores it
func (s *statsService) Sample(ctx context.Context) (*models.NetworkSnapshot, error) {
	snap, err := s.sink.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	snap.ID = uuid.New().String()
	if err := s.statsRepo.Insert(ctx, snap); err != nil {
		return nil, err
	}
	return snap, nil
}

// Current returns the live snapshot without storing it
func (s *statsService) Current(ctx context.Context) (*models.NetworkSnapshot, error) {
	return s.sink.Snapshot(ctx)
}

// History returns the most recent stored samples
func (s *statsService) History(ctx context.Context) ([]*models.NetworkSnapshot, error) {
	return s.statsRepo.Recent(ctx, models.StatsHistoryLimit)
}
