package monitor

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/blog-content-api/internal/models"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// decrFloor decrements a counter without letting it go below zero
var decrFloor = redis.NewScript(`
local v = redis.call('DECR', KEYS[1])
if v < 0 then
	redis.call('SET', KEYS[1], 0)
	v = 0
end
return v
`)

// RedisSink shares the request window across server instances through a
// sorted set scored by arrival time and a counter of requests in flight.
type RedisSink struct {
	client    redis.UniversalClient
	window    time.Duration
	now       func() time.Time
	windowKey string
	activeKey string
}

// NewRedisClient opens a client and verifies the connection
func NewRedisClient(ctx context.Context, addr, password string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0, // use default DB
	})
	if _, err := client.Ping(ctx).Result(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}
	return client, nil
}

// NewRedisSink creates a sink storing its state under keyPrefix
func NewRedisSink(client redis.UniversalClient, keyPrefix string, window time.Duration) *RedisSink {
	if window <= 0 {
		window = DefaultWindow
	}
	return &RedisSink{
		client:    client,
		window:    window,
		now:       time.Now,
		windowKey: keyPrefix + ":requests",
		activeKey: keyPrefix + ":active",
	}
}

// RecordRequest adds the request to the sorted-set window and bumps the active counter
func (s *RedisSink) RecordRequest(ctx context.Context) error {
	now := s.now()
	pipe := s.client.TxPipeline()
	pipe.ZAdd(ctx, s.windowKey, &redis.Z{Score: float64(now.UnixNano()), Member: uuid.New().String()})
	pipe.ZRemRangeByScore(ctx, s.windowKey, "-inf", s.cutoff(now))
	pipe.Expire(ctx, s.windowKey, 2*s.window)
	pipe.Incr(ctx, s.activeKey)
	_, err := pipe.Exec(ctx)
	return err
}

// RequestCompleted decrements the active counter, floored at zero
func (s *RedisSink) RequestCompleted(ctx context.Context) error {
	return decrFloor.Run(ctx, s.client, []string{s.activeKey}).Err()
}

// Snapshot trims the window and computes the figures from what remains
func (s *RedisSink) Snapshot(ctx context.Context) (*models.NetworkSnapshot, error) {
	now := s.now()
	pipe := s.client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, s.windowKey, "-inf", s.cutoff(now))
	count := pipe.ZCard(ctx, s.windowKey)
	active := pipe.Get(ctx, s.activeKey)
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return nil, err
	}

	n, err := active.Int()
	if err == redis.Nil {
		n = 0
	} else if err != nil {
		return nil, err
	}
	return Compute(int(count.Val()), n, now), nil
}

// cutoff is the inclusive upper score of expired entries
func (s *RedisSink) cutoff(now time.Time) string {
	return strconv.FormatInt(now.Add(-s.window).UnixNano(), 10)
}
