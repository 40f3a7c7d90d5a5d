package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"safeharbour/internal/platform/config"
)

func TestNewEmptyURLDisablesRedis(t *testing.T) {
	c, err := New(context.Background(), config.Redis{})
	require.NoError(t, err)
	assert.Nil(t, c)
}

func TestNewPingsServer(t *testing.T) {
	mr := miniredis.RunT(t)

	c, err := New(context.Background(), config.Redis{URL: "redis://" + mr.Addr()})
	require.NoError(t, err)
	defer c.Close()

	assert.NoError(t, c.Health(context.Background()))
}

func TestNewFailsWhenUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := New(context.Background(), config.Redis{URL: "redis://" + addr})
	require.Error(t, err)
}

func TestOptionsKeepDefaultsForZeroValues(t *testing.T) {
	opts, err := options(config.Redis{URL: "redis://localhost:6379/2", MinIdleConns: 3})
	require.NoError(t, err)
	assert.Equal(t, 2, opts.DB)
	assert.Equal(t, 3, opts.MinIdleConns)
	assert.Zero(t, opts.PoolSize, "go-redis sizes the pool itself")

	opts, err = options(config.Redis{URL: "redis://localhost:6379", PoolSize: 7, ReadTimeout: time.Second})
	require.NoError(t, err)
	assert.Equal(t, 7, opts.PoolSize)
	assert.Equal(t, time.Second, opts.ReadTimeout)
}

func TestOptionsRejectsBadURL(t *testing.T) {
	_, err := options(config.Redis{URL: "http://not-redis"})
	require.Error(t, err)
}
