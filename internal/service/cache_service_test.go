package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/league-scheduler-api/pkg/errors"
)

type memoryCacheRepo struct {
	mu    sync.Mutex
	items map[string][]byte
	ttls  map[string]time.Duration
	err   error
}

func newMemoryCacheRepo() *memoryCacheRepo {
	return &memoryCacheRepo{items: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (r *memoryCacheRepo) Get(ctx context.Context, key string, dest interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	raw, ok := r.items[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (r *memoryCacheRepo) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	r.items[key] = raw
	r.ttls[key] = ttl
	return nil
}

func (r *memoryCacheRepo) Delete(ctx context.Context, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.items, key)
	return nil
}

func TestCacheServiceRoundTrip(t *testing.T) {
	repo := newMemoryCacheRepo()
	metrics := NewMetricsService()
	svc := NewCacheService(repo, metrics, 0, nil, true)
	ctx := context.Background()

	require.NoError(t, svc.Set(ctx, "run:1", map[string]int{"attempts": 2}, 0))
	assert.Equal(t, 10*time.Minute, repo.ttls["run:1"])

	var out map[string]int
	hit, err := svc.Get(ctx, "run:1", &out)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, 2, out["attempts"])

	require.NoError(t, svc.Delete(ctx, "run:1"))
	hit, err = svc.Get(ctx, "run:1", &out)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, uint64(1), metrics.Snapshot().CacheHits)
}

func TestCacheServiceSurfacesBackendErrors(t *testing.T) {
	repo := newMemoryCacheRepo()
	repo.err = errors.New("connection refused")
	svc := NewCacheService(repo, nil, time.Minute, nil, true)

	var out map[string]int
	hit, err := svc.Get(context.Background(), "run:1", &out)
	assert.False(t, hit)
	assert.Error(t, err)
}

func TestCacheServiceDisabled(t *testing.T) {
	svc := NewCacheService(newMemoryCacheRepo(), nil, time.Minute, nil, false)
	assert.False(t, svc.Enabled())
	hit, err := svc.Get(context.Background(), "x", &struct{}{})
	assert.False(t, hit)
	assert.NoError(t, err)
	assert.NoError(t, svc.Set(context.Background(), "x", 1, 0))
	assert.NoError(t, svc.Delete(context.Background(), "x"))
}
