package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	appErrors "github.com/noah-isme/league-scheduler-api/pkg/errors"
)

// ErrCacheUnavailable is returned while the Redis circuit breaker is open.
var ErrCacheUnavailable = errors.New("cache temporarily unavailable")

// BreakerConfig tunes the circuit breaker guarding Redis calls.
type BreakerConfig struct {
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold float64
	MinRequests      uint32
}

// DefaultBreakerConfig trips after 5 requests with at least 60% failures and probes again after 30s.
var DefaultBreakerConfig = BreakerConfig{
	MaxRequests:      1,
	Interval:         time.Minute,
	Timeout:          30 * time.Second,
	FailureThreshold: 0.6,
	MinRequests:      5,
}

// CacheRepository stores JSON payloads (proposals, generation runs) in Redis.
type CacheRepository struct {
	client  *redis.Client
	breaker *gobreaker.CircuitBreaker
	logger  *zap.Logger
}

// NewCacheRepository constructs a cache repository with the default breaker.
func NewCacheRepository(client *redis.Client, logger *zap.Logger) *CacheRepository {
	return NewCacheRepositoryWithBreaker(client, DefaultBreakerConfig, logger)
}

// NewCacheRepositoryWithBreaker constructs a cache repository with a custom breaker.
func NewCacheRepositoryWithBreaker(client *redis.Client, cfg BreakerConfig, logger *zap.Logger) *CacheRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "redis",
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, redis.Nil)
		},
	})
	return &CacheRepository{client: client, breaker: breaker, logger: logger}
}

// BreakerState reports the breaker state, for readiness and tests.
func (r *CacheRepository) BreakerState() gobreaker.State {
	return r.breaker.State()
}

func (r *CacheRepository) guard(fn func() error) error {
	_, err := r.breaker.Execute(func() (interface{}, error) {
		return nil, fn()
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
	}
	return err
}

// Get retrieves and unmarshals the cached value into the provided destination.
func (r *CacheRepository) Get(ctx context.Context, key string, dest interface{}) error {
	if r.client == nil {
		return appErrors.ErrCacheMiss
	}

	var raw []byte
	err := r.guard(func() error {
		var getErr error
		raw, getErr = r.client.Get(ctx, key).Bytes()
		return getErr
	})
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return appErrors.ErrCacheMiss
		}
		return fmt.Errorf("redis get %s: %w", key, err)
	}

	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("unmarshal cache value for %s: %w", key, err)
	}

	return nil
}

// Set marshals the provided value and stores it with the given TTL.
func (r *CacheRepository) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if r.client == nil {
		return nil
	}

	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal cache value for %s: %w", key, err)
	}

	if err := r.guard(func() error { return r.client.Set(ctx, key, payload, ttl).Err() }); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}

	return nil
}

// Delete removes a single key. Missing keys are not an error.
func (r *CacheRepository) Delete(ctx context.Context, key string) error {
	if r.client == nil {
		return nil
	}
	if err := r.guard(func() error { return r.client.Del(ctx, key).Err() }); err != nil {
		return fmt.Errorf("redis delete %s: %w", key, err)
	}
	return nil
}

// Close releases the underlying Redis connection if present.
func (r *CacheRepository) Close() error {
	if r.client == nil {
		return nil
	}
	return r.client.Close()
}
