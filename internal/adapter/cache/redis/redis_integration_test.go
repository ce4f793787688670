//go:build integration

package redis

import (
	"context"
	"log"
	"os"
	"testing"
	"time"

	"github.com/cemonal1/Verbfy-sub006/internal/config"
	"github.com/cemonal1/Verbfy-sub006/internal/domain"
	"github.com/cemonal1/Verbfy-sub006/internal/platform/logger"
	"github.com/cemonal1/Verbfy-sub006/internal/usecase"

	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testClient *redis.Client

func TestMain(m *testing.M) {
	pool, err := dockertest.NewPool("")
	if err != nil {
		log.Fatalf("Could not construct pool: %s", err)
	}
	resource, err := pool.RunWithOptions(&dockertest.RunOptions{Repository: "redis", Tag: "7-alpine"},
		func(hc *docker.HostConfig) {
			hc.AutoRemove = true
			hc.RestartPolicy = docker.RestartPolicy{Name: "no"}
		})
	if err != nil {
		log.Fatalf("Could not start Redis resource: %s", err)
	}

	cfg := config.RedisConfig{Address: resource.GetHostPort("6379/tcp")}
	if err := pool.Retry(func() error {
		var errRetry error
		testClient, errRetry = NewClient(context.Background(), cfg, logger.NewNop())
		return errRetry
	}); err != nil {
		log.Fatalf("Could not connect to Redis: %s", err)
	}

	code := m.Run()
	_ = testClient.Close()
	_ = pool.Purge(resource)
	os.Exit(code)
}

func TestCache(t *testing.T) {
	ctx := context.Background()
	c := NewCache(testClient, logger.NewNop())

	_, err := c.Get(ctx, "missing")
	assert.ErrorIs(t, err, usecase.ErrCacheMiss)

	require.NoError(t, c.Set(ctx, "k1", []byte("v1"), time.Minute))
	require.NoError(t, c.Set(ctx, "k2", []byte("v2"), time.Minute))
	got, err := c.Get(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), got)

	require.NoError(t, c.Delete(ctx, "k1", "k2"))
	_, err = c.Get(ctx, "k2")
	assert.ErrorIs(t, err, usecase.ErrCacheMiss)
}

func TestTokenStore_SingleUse(t *testing.T) {
	ctx := context.Background()
	s := NewTokenStore(testClient)

	require.NoError(t, s.SaveRefresh(ctx, "jti-1", "u1", time.Minute))
	owner, err := s.ConsumeRefresh(ctx, "jti-1")
	require.NoError(t, err)
	assert.Equal(t, "u1", owner)

	_, err = s.ConsumeRefresh(ctx, "jti-1")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	require.NoError(t, s.SaveReset(ctx, "jti-1", "u2", time.Minute))
	owner, err = s.ConsumeReset(ctx, "jti-1")
	require.NoError(t, err)
	assert.Equal(t, "u2", owner)
}

func TestLocker(t *testing.T) {
	ctx := context.Background()
	l := NewLocker(testClient)

	release, err := l.Acquire(ctx, "slot:t1:2026-06-01T10:00", time.Second)
	require.NoError(t, err)

	_, err = l.Acquire(ctx, "slot:t1:2026-06-01T10:00", time.Second)
	assert.ErrorIs(t, err, domain.ErrLockNotAcquired)

	require.NoError(t, release(ctx))
	again, err := l.Acquire(ctx, "slot:t1:2026-06-01T10:00", time.Second)
	require.NoError(t, err)

	// A stale release must not drop a lock someone else now holds.
	require.NoError(t, release(ctx))
	_, err = l.Acquire(ctx, "slot:t1:2026-06-01T10:00", time.Second)
	assert.ErrorIs(t, err, domain.ErrLockNotAcquired)
	require.NoError(t, again(ctx))
}
